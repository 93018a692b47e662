package tuples

import (
	"net/url"
	str "strings"

	"github.com/knakk/rdf"
	"github.com/pkg/errors"
)

// NodeKind tells which kind of RDF term a Node holds.
type NodeKind int

const (
	Resource NodeKind = iota
	Literal
	Blank
)

func (k NodeKind) String() string {
	switch k {
	case Resource:
		return "resource"
	case Literal:
		return "literal"
	case Blank:
		return "blank"
	}
	return "unknown"
}

// Node is one parsed term of a tuple. Value holds the IRI of a Resource, the
// unescaped lexical form of a Literal, or the label of a Blank node.
type Node struct {
	Kind     NodeKind
	Value    string
	Lang     string
	Datatype string
}

// NewResource returns a Resource node for the given IRI.
func NewResource(iri string) Node {
	return Node{Kind: Resource, Value: iri}
}

// NewLiteral returns a plain Literal node.
func NewLiteral(value string) Node {
	return Node{Kind: Literal, Value: value}
}

// String returns the bare value of the node: the IRI of a resource, the lexical
// form of a literal, and _:label for a blank node.
func (n Node) String() string {
	if n.Kind == Blank {
		return "_:" + n.Value
	}
	return n.Value
}

// N3 returns the node in N-Triples notation.
func (n Node) N3() string {
	switch n.Kind {
	case Resource:
		return "<" + n.Value + ">"
	case Blank:
		return "_:" + n.Value
	}
	s := `"` + escapeLiteral(n.Value) + `"`
	if n.Lang != "" {
		return s + "@" + n.Lang
	}
	if n.Datatype != "" {
		return s + "^^<" + n.Datatype + ">"
	}
	return s
}

// canonical is the text filter expressions are matched against.
func (n Node) canonical() string {
	if n.Kind == Resource {
		return n.Value
	}
	return n.N3()
}

// ValidateURI checks that a Resource node holds a well formed URI. Other kinds
// always validate.
func (n Node) ValidateURI() error {
	if n.Kind != Resource {
		return nil
	}
	if _, err := rdf.NewIRI(n.Value); err != nil {
		return errors.Wrapf(err, "invalid IRI %q", n.Value)
	}
	if _, err := url.Parse(n.Value); err != nil {
		return errors.Wrapf(err, "invalid URI %q", n.Value)
	}
	return nil
}

// Term converts the node into a knakk/rdf term.
func (n Node) Term() (rdf.Term, error) {
	switch n.Kind {
	case Resource:
		return rdf.NewIRI(n.Value)
	case Blank:
		return rdf.NewBlank(n.Value)
	}
	if n.Lang != "" {
		return rdf.NewLangLiteral(n.Value, n.Lang)
	}
	if n.Datatype != "" {
		dt, err := rdf.NewIRI(n.Datatype)
		if err != nil {
			return nil, err
		}
		return rdf.NewTypedLiteral(n.Value, dt), nil
	}
	return rdf.NewLiteral(n.Value)
}

var literalEscaper = str.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	"\n", `\n`,
	"\r", `\r`,
	"\t", `\t`,
)

func escapeLiteral(s string) string {
	return literalEscaper.Replace(s)
}
