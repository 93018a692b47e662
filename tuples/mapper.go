package tuples

import (
	"regexp"
	str "strings"

	"github.com/pkg/errors"

	"github.com/rdfio/rdfprep/internal/logs"
)

// Positions of the nodes in a tuple.
const (
	SubjectIdx = iota
	PredicateIdx
	ObjectIdx
	ContextIdx
	// MaxNodes allows for a trailing literal naming the extractor that
	// produced the tuple.
	MaxNodes = 5
	MinNodes = 3
)

// Role is the position a resource was seen in.
type Role int

const (
	Predicate Role = iota
	Object
	Context
)

func (r Role) String() string {
	switch r {
	case Predicate:
		return "PREDICATE"
	case Object:
		return "OBJECT"
	case Context:
		return "CONTEXT"
	}
	return "UNKNOWN"
}

// Conjunction decides how several configured filters combine.
type Conjunction int

const (
	// Or lets a tuple through when any configured filter matches.
	Or Conjunction = iota
	// And requires every configured filter to match.
	And
)

// ParseConjunction maps "and"/"or" to a Conjunction.
func ParseConjunction(s string) (Conjunction, error) {
	switch str.ToLower(s) {
	case "", "or":
		return Or, nil
	case "and":
		return And, nil
	}
	return Or, errors.Errorf("unknown filter conjunction %q", s)
}

// Config configures a Mapper. Empty regular expressions are not applied.
type Config struct {
	SubjectRegex    string
	PredicateRegex  string
	ObjectRegex     string
	ContextRegex    string
	Conjunction     Conjunction
	IncludeContexts bool
	// MaxResourceLength rejects tuples holding a longer IRI. Zero means no
	// limit.
	MaxResourceLength int
	// MaxRelationLength rejects tuples whose relation text is longer. Zero
	// means no limit.
	MaxRelationLength int
}

// RoleEmission says that Resource was seen in position Role.
type RoleEmission struct {
	Resource string
	Role     Role
}

// SubjectRelation carries the "<p> <o> [<c>] ." text for one subject.
type SubjectRelation struct {
	Subject   string
	Relations string
}

// Result is everything a mapped line produces.
type Result struct {
	Emissions []RoleEmission
	Relation  SubjectRelation
}

// Mapper turns input lines into role emissions and subject relations. A Mapper
// is not safe for concurrent use; give each goroutine its own.
type Mapper struct {
	includeContexts bool
	conjunction     Conjunction
	maxResource     int
	maxRelation     int
	patterns        [MaxNodes]*regexp.Regexp
	counters        Counters
	nodesAsN3       [MaxNodes]string
	relations       str.Builder
}

// NewMapper compiles the filters in cfg.
func NewMapper(cfg Config) (*Mapper, error) {
	m := &Mapper{
		includeContexts: cfg.IncludeContexts,
		conjunction:     cfg.Conjunction,
		maxResource:     cfg.MaxResourceLength,
		maxRelation:     cfg.MaxRelationLength,
	}
	regexes := [...]string{
		SubjectIdx:   cfg.SubjectRegex,
		PredicateIdx: cfg.PredicateRegex,
		ObjectIdx:    cfg.ObjectRegex,
		ContextIdx:   cfg.ContextRegex,
	}
	for i, expr := range regexes {
		if expr == "" {
			continue
		}
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, errors.Wrapf(err, "bad filter regex for position %d", i)
		}
		m.patterns[i] = re
	}
	return m, nil
}

// Counters returns a copy of the counters accumulated so far.
func (m *Mapper) Counters() Counters {
	return m.counters
}

// Map processes one input line. The boolean is false when the line was
// rejected, in which case the Result is empty.
func (m *Mapper) Map(line string) (Result, bool) {
	line = str.TrimSpace(line)
	if line == "" {
		return Result{}, false
	}
	m.counters.Lines++

	nodes, err := ParseNodes(line)
	if err != nil {
		m.counters.ParseFailures++
		logs.Debugf("Failed parsing line %d: %v\n", m.counters.Lines, err)
		stripped := StripDatatypes(line)
		nodes, err = ParseNodes(stripped)
		if err != nil {
			m.counters.ParseRetryFailures++
			logs.Debugf("Failed parsing retry after removing literal types: %s\n", stripped)
			return Result{}, false
		}
	}

	if len(nodes) < MinNodes {
		m.counters.ShortTuples++
		logs.Debugf("Line %d parsed with less than %d nodes\n", m.counters.Lines, MinNodes)
		return Result{}, false
	}
	if len(nodes) > MaxNodes {
		m.counters.LongTuples++
		logs.Debugf("Line %d parsed with more than %d nodes\n", m.counters.Lines, MaxNodes)
		return Result{}, false
	}

	tried, matched := 0, 0
	for i, node := range nodes {
		if re := m.patterns[i]; re != nil {
			tried++
			if re.MatchString(node.canonical()) {
				matched++
			}
		}
		m.nodesAsN3[i] = node.N3()
	}
	if !m.passes(tried, matched) {
		m.counters.Filtered++
		return Result{}, false
	}

	for _, node := range nodes {
		if err := node.ValidateURI(); err != nil {
			m.counters.InvalidResources++
			logs.Debugf("Bad resource on line %d: %v\n", m.counters.Lines, err)
			return Result{}, false
		}
	}

	if nodes[SubjectIdx].Kind != Resource || nodes[PredicateIdx].Kind != Resource {
		m.counters.NonResourceKeys++
		return Result{}, false
	}

	if m.maxResource > 0 {
		for _, node := range nodes {
			if node.Kind == Resource && len(node.Value) > m.maxResource {
				m.counters.OversizeResources++
				logs.Debugf("Line %d has a resource of %d bytes\n", m.counters.Lines, len(node.Value))
				return Result{}, false
			}
		}
	}

	res := Result{Emissions: make([]RoleEmission, 0, 3)}
	m.relations.Reset()

	res.Emissions = append(res.Emissions, RoleEmission{Resource: nodes[PredicateIdx].Value, Role: Predicate})
	m.relations.WriteString(m.nodesAsN3[PredicateIdx])

	if obj := nodes[ObjectIdx]; obj.Kind == Resource {
		res.Emissions = append(res.Emissions, RoleEmission{Resource: obj.Value, Role: Object})
	}
	m.relations.WriteByte(' ')
	m.relations.WriteString(m.nodesAsN3[ObjectIdx])

	if m.includeContexts && len(nodes) > ContextIdx {
		if ctx := nodes[ContextIdx]; ctx.Kind == Resource {
			res.Emissions = append(res.Emissions, RoleEmission{Resource: ctx.Value, Role: Context})
		}
		m.relations.WriteByte(' ')
		m.relations.WriteString(m.nodesAsN3[ContextIdx])
	}
	m.relations.WriteString(" .")
	if m.maxRelation > 0 && m.relations.Len() > m.maxRelation {
		m.counters.OversizeRelations++
		logs.Debugf("Line %d has a relation of %d bytes\n", m.counters.Lines, m.relations.Len())
		return Result{}, false
	}

	res.Relation = SubjectRelation{
		Subject:   nodes[SubjectIdx].Value,
		Relations: m.relations.String(),
	}
	m.counters.Emitted++
	return res, true
}

func (m *Mapper) passes(tried, matched int) bool {
	if m.conjunction == And {
		return tried == matched
	}
	return tried == 0 || matched > 0
}
