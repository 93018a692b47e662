package tuples

import (
	"fmt"
	"regexp"
	"strconv"
	str "strings"
	"unicode/utf8"

	"github.com/knakk/rdf"
	"github.com/pkg/errors"
)

// ErrParse is returned (wrapped) for every line ParseNodes cannot read.
var ErrParse = errors.New("tuple parse error")

var datatypeSuffix = regexp.MustCompile(`\^\^<[^>]+>`)

// StripDatatypes removes ^^<...> datatype annotations from a line, turning
// typed literals into plain ones.
func StripDatatypes(line string) string {
	return datatypeSuffix.ReplaceAllString(line, "")
}

// ParseNodes reads a whitespace separated list of nodes terminated by a '.'.
// It does not care how many nodes the line holds; arity is checked by the
// caller.
func ParseNodes(line string) ([]Node, error) {
	p := &nodeParser{input: line}
	return p.parse()
}

type nodeParser struct {
	input string
	pos   int
}

func (p *nodeParser) errorf(format string, args ...interface{}) error {
	return errors.Wrapf(ErrParse, "col %d: %s", p.pos+1, fmt.Sprintf(format, args...))
}

func (p *nodeParser) parse() ([]Node, error) {
	var nodes []Node
	for {
		p.skipSpace()
		if p.pos >= len(p.input) {
			return nil, p.errorf("missing terminating '.'")
		}
		ch := p.input[p.pos]
		switch {
		case ch == '.' && p.atTerminator(p.pos+1):
			p.pos++
			if err := p.expectEnd(); err != nil {
				return nil, err
			}
			return nodes, nil
		case ch == '<':
			iri, err := p.parseIRI()
			if err != nil {
				return nil, err
			}
			nodes = append(nodes, NewResource(iri))
		case ch == '_':
			n, err := p.parseBlank()
			if err != nil {
				return nil, err
			}
			nodes = append(nodes, n)
		case ch == '"':
			n, err := p.parseLiteral()
			if err != nil {
				return nil, err
			}
			nodes = append(nodes, n)
		default:
			return nil, p.errorf("unexpected character %q", ch)
		}
	}
}

func (p *nodeParser) skipSpace() {
	for p.pos < len(p.input) {
		switch p.input[p.pos] {
		case ' ', '\t', '\r', '\n':
			p.pos++
		default:
			return
		}
	}
}

// atTerminator reports whether position i ends a token: end of input,
// whitespace or a comment.
func (p *nodeParser) atTerminator(i int) bool {
	if i >= len(p.input) {
		return true
	}
	switch p.input[i] {
	case ' ', '\t', '\r', '\n', '#':
		return true
	}
	return false
}

func (p *nodeParser) expectEnd() error {
	p.skipSpace()
	if p.pos < len(p.input) && p.input[p.pos] != '#' {
		return p.errorf("trailing content after '.'")
	}
	return nil
}

func (p *nodeParser) parseIRI() (string, error) {
	start := p.pos + 1
	end := str.IndexByte(p.input[start:], '>')
	if end < 0 {
		return "", p.errorf("unterminated IRI")
	}
	p.pos = start + end + 1
	return p.input[start : start+end], nil
}

func (p *nodeParser) parseBlank() (Node, error) {
	if !str.HasPrefix(p.input[p.pos:], "_:") {
		return Node{}, p.errorf("malformed blank node")
	}
	p.pos += 2
	start := p.pos
	for p.pos < len(p.input) && !p.atTerminator(p.pos) {
		if p.input[p.pos] == '.' && p.atTerminator(p.pos+1) {
			break
		}
		p.pos++
	}
	if p.pos == start {
		return Node{}, p.errorf("empty blank node label")
	}
	return Node{Kind: Blank, Value: p.input[start:p.pos]}, nil
}

func (p *nodeParser) parseLiteral() (Node, error) {
	p.pos++ // opening quote
	var sb str.Builder
	closed := false
	for p.pos < len(p.input) && !closed {
		ch := p.input[p.pos]
		switch ch {
		case '"':
			closed = true
			p.pos++
		case '\\':
			if err := p.unescape(&sb); err != nil {
				return Node{}, err
			}
		default:
			sb.WriteByte(ch)
			p.pos++
		}
	}
	if !closed {
		return Node{}, p.errorf("unterminated literal")
	}
	n := Node{Kind: Literal, Value: sb.String()}

	switch {
	case str.HasPrefix(p.input[p.pos:], "@"):
		p.pos++
		start := p.pos
		for p.pos < len(p.input) && isLangChar(p.input[p.pos]) {
			p.pos++
		}
		if p.pos == start {
			return Node{}, p.errorf("empty language tag")
		}
		n.Lang = p.input[start:p.pos]
	case str.HasPrefix(p.input[p.pos:], "^^"):
		p.pos += 2
		if p.pos >= len(p.input) || p.input[p.pos] != '<' {
			return Node{}, p.errorf("datatype must be an IRI")
		}
		dt, err := p.parseIRI()
		if err != nil {
			return Node{}, err
		}
		if _, err := rdf.NewIRI(dt); err != nil {
			return Node{}, p.errorf("bad datatype IRI %q", dt)
		}
		n.Datatype = dt
	}
	return n, nil
}

func (p *nodeParser) unescape(sb *str.Builder) error {
	if p.pos+1 >= len(p.input) {
		return p.errorf("dangling escape")
	}
	esc := p.input[p.pos+1]
	p.pos += 2
	switch esc {
	case 't':
		sb.WriteByte('\t')
	case 'b':
		sb.WriteByte('\b')
	case 'n':
		sb.WriteByte('\n')
	case 'r':
		sb.WriteByte('\r')
	case 'f':
		sb.WriteByte('\f')
	case '"', '\'', '\\':
		sb.WriteByte(esc)
	case 'u', 'U':
		size := 4
		if esc == 'U' {
			size = 8
		}
		if p.pos+size > len(p.input) {
			return p.errorf("short unicode escape")
		}
		cp, err := strconv.ParseUint(p.input[p.pos:p.pos+size], 16, 32)
		if err != nil || !utf8.ValidRune(rune(cp)) {
			return p.errorf("bad unicode escape")
		}
		sb.WriteRune(rune(cp))
		p.pos += size
	default:
		return p.errorf("unknown escape \\%c", esc)
	}
	return nil
}

func isLangChar(c byte) bool {
	return c == '-' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
