package shuffle

import (
	"context"

	"github.com/rdfio/rdfprep/bysubject"
	"github.com/rdfio/rdfprep/resources"
)

// RecordWriter receives the reduced output. *resources.ResourceRecordWriter
// is the production implementation.
type RecordWriter interface {
	Write(key string, value interface{}) error
}

// Reducer turns groups into dictionary entries and subject records. Document
// ids are handed out in the order subjects arrive, which is ascending key
// order when fed from a Sorter.
type Reducer struct {
	w         RecordWriter
	nextDocID int64
	dedup     map[string]struct{}
}

// NewReducer returns a Reducer writing to w. Document ids start at 0.
func NewReducer(w RecordWriter) *Reducer {
	return &Reducer{w: w, dedup: make(map[string]struct{})}
}

// Reduce writes the output for one group: the key to the all dictionary,
// to every role dictionary it was seen in, and, if it has relations, a
// by-subject record.
func (r *Reducer) Reduce(g *Group) error {
	total := g.Predicates + g.Objects + g.Contexts + len(g.Relations)
	if total == 0 {
		return nil
	}
	if err := r.w.Write(g.Key, resources.OutputCount{Output: resources.All, Count: total}); err != nil {
		return err
	}
	for _, oc := range []resources.OutputCount{
		{Output: resources.Context, Count: g.Contexts},
		{Output: resources.Object, Count: g.Objects},
		{Output: resources.Predicate, Count: g.Predicates},
	} {
		if oc.Count == 0 {
			continue
		}
		if err := r.w.Write(g.Key, oc); err != nil {
			return err
		}
	}
	if len(g.Relations) == 0 {
		return nil
	}

	rec := &bysubject.Record{ID: r.nextDocID, Subject: g.Key, Relations: r.unique(g.Relations)}
	if err := r.w.Write(g.Key, rec); err != nil {
		return err
	}
	r.nextDocID++
	return nil
}

// unique drops repeated relations, keeping the first occurrence.
func (r *Reducer) unique(relations []string) []string {
	for k := range r.dedup {
		delete(r.dedup, k)
	}
	out := relations[:0]
	for _, rel := range relations {
		if _, seen := r.dedup[rel]; seen {
			continue
		}
		r.dedup[rel] = struct{}{}
		out = append(out, rel)
	}
	return out
}

// Documents is the number of subject records written.
func (r *Reducer) Documents() int64 {
	return r.nextDocID
}

// ReduceAll drains the sorter into the reducer, stopping early when ctx is
// cancelled.
func ReduceAll(ctx context.Context, s *Sorter, r *Reducer) error {
	return s.Groups(func(g *Group) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return r.Reduce(g)
	})
}
