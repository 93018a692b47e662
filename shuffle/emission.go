// Package shuffle groups mapper output by key in ascending key order, the way
// a sorted shuffle would, and reduces each group into dictionary entries and
// subject records.
package shuffle

import (
	"github.com/zeebo/xxh3"

	"github.com/rdfio/rdfprep/tuples"
)

// Kind tells what an Emission says about its key.
type Kind byte

const (
	KindPredicate Kind = 'P'
	KindObject    Kind = 'O'
	KindContext   Kind = 'C'
	KindRelation  Kind = 'R'
)

// Emission is one mapper output pair. Relation is only set for KindRelation,
// where Key is the subject.
type Emission struct {
	Key      string
	Kind     Kind
	Relation string
}

// KindOf maps a tuple role to its emission kind.
func KindOf(r tuples.Role) Kind {
	switch r {
	case tuples.Object:
		return KindObject
	case tuples.Context:
		return KindContext
	}
	return KindPredicate
}

// FromResult flattens a mapped line into emissions.
func FromResult(res tuples.Result) []Emission {
	out := make([]Emission, 0, len(res.Emissions)+1)
	for _, e := range res.Emissions {
		out = append(out, Emission{Key: e.Resource, Kind: KindOf(e.Role)})
	}
	return append(out, Emission{
		Key:      res.Relation.Subject,
		Kind:     KindRelation,
		Relation: res.Relation.Relations,
	})
}

// Partition assigns key to one of n partitions.
func Partition(key string, n int) int {
	if n <= 1 {
		return 0
	}
	return int(xxh3.HashString(key) % uint64(n))
}
