package bysubject

import (
	"bufio"
	"io"
	"strconv"
	str "strings"

	"github.com/knakk/rdf"
	"github.com/pkg/errors"

	"github.com/rdfio/rdfprep/tuples"
)

// RecordDelimiter separates records in the by-subject store.
const RecordDelimiter = '\n'

const fieldDelimiter = '\t'

// ErrMalformedRecord is returned when a stored record cannot be read back.
var ErrMalformedRecord = errors.New("malformed by-subject record")

// Record holds all relations of one subject. ID is the document id assigned
// in sorted subject order.
type Record struct {
	ID        int64
	Subject   string
	Relations []string
}

// WriteTo serializes the record as ID, subject and relations separated by
// tabs. It writes no record delimiter.
func (r *Record) WriteTo(w io.Writer) (int64, error) {
	sw, ok := w.(io.StringWriter)
	var buffered *bufio.Writer
	if !ok {
		buffered = bufio.NewWriter(w)
		sw = buffered
	}
	var total int64
	write := func(s string) error {
		n, err := sw.WriteString(s)
		total += int64(n)
		return err
	}
	if err := write(strconv.FormatInt(r.ID, 10)); err != nil {
		return total, err
	}
	for _, field := range append([]string{r.Subject}, r.Relations...) {
		if err := write(string(fieldDelimiter)); err != nil {
			return total, err
		}
		if err := write(field); err != nil {
			return total, err
		}
	}
	if buffered != nil {
		return total, buffered.Flush()
	}
	return total, nil
}

// String returns the serialized form of the record.
func (r *Record) String() string {
	var sb str.Builder
	_, _ = r.WriteTo(&sb)
	return sb.String()
}

// ParseRecord reads a record serialized by WriteTo.
func ParseRecord(line string) (*Record, error) {
	fields := str.Split(line, string(fieldDelimiter))
	if len(fields) < 2 {
		return nil, errors.Wrapf(ErrMalformedRecord, "%d fields", len(fields))
	}
	id, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil || id < 0 {
		return nil, errors.Wrapf(ErrMalformedRecord, "bad document id %q", fields[0])
	}
	return &Record{
		ID:        id,
		Subject:   fields[1],
		Relations: fields[2:],
	}, nil
}

// Quads parses the relations back into RDF statements about the subject.
// Relations without a context get a nil Ctx, and so do relations whose
// third node is a literal, which is an extractor label rather than a graph.
func (r *Record) Quads() ([]rdf.Quad, error) {
	subj, err := rdf.NewIRI(r.Subject)
	if err != nil {
		return nil, errors.Wrapf(err, "record %d subject", r.ID)
	}
	quads := make([]rdf.Quad, 0, len(r.Relations))
	for _, rel := range r.Relations {
		nodes, err := tuples.ParseNodes(rel)
		if err != nil {
			return nil, errors.Wrapf(err, "record %d relation %q", r.ID, rel)
		}
		if len(nodes) < 2 || len(nodes) > 3 {
			return nil, errors.Wrapf(ErrMalformedRecord, "record %d relation %q has %d nodes", r.ID, rel, len(nodes))
		}
		terms := make([]rdf.Term, len(nodes))
		for i, n := range nodes {
			if terms[i], err = n.Term(); err != nil {
				return nil, errors.Wrapf(err, "record %d relation %q", r.ID, rel)
			}
		}
		pred, ok := terms[0].(rdf.Predicate)
		if !ok {
			return nil, errors.Wrapf(ErrMalformedRecord, "record %d predicate %s", r.ID, terms[0])
		}
		obj, ok := terms[1].(rdf.Object)
		if !ok {
			return nil, errors.Wrapf(ErrMalformedRecord, "record %d object %s", r.ID, terms[1])
		}
		q := rdf.Quad{Triple: rdf.Triple{Subj: subj, Pred: pred, Obj: obj}}
		if len(terms) == 3 {
			if ctx, ok := terms[2].(rdf.Context); ok {
				q.Ctx = ctx
			}
		}
		quads = append(quads, q)
	}
	return quads, nil
}
