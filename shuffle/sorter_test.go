package shuffle

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rdfio/rdfprep/tuples"
)

func newTestSorter(t *testing.T) *Sorter {
	s, err := NewSorter("")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func collect(t *testing.T, s *Sorter) []*Group {
	var groups []*Group
	require.NoError(t, s.Groups(func(g *Group) error {
		groups = append(groups, g)
		return nil
	}))
	return groups
}

func TestSorterGroupsInKeyOrder(t *testing.T) {
	s := newTestSorter(t)
	for _, e := range []Emission{
		{Key: "http://b/", Kind: KindRelation, Relation: "<http://p/> <http://a/> ."},
		{Key: "http://p/", Kind: KindPredicate},
		{Key: "http://a/", Kind: KindObject},
		{Key: "http://b/", Kind: KindRelation, Relation: "<http://p/> \"x\" ."},
		{Key: "http://p/", Kind: KindPredicate},
		{Key: "http://a/b", Kind: KindContext},
	} {
		require.NoError(t, s.Add(e))
	}
	assert.Equal(t, uint64(6), s.Len())

	groups := collect(t, s)
	require.Len(t, groups, 4)
	assert.Equal(t, &Group{Key: "http://a/", Objects: 1}, groups[0])
	assert.Equal(t, &Group{Key: "http://a/b", Contexts: 1}, groups[1])
	assert.Equal(t, &Group{Key: "http://b/", Relations: []string{"<http://p/> <http://a/> .", "<http://p/> \"x\" ."}}, groups[2])
	assert.Equal(t, &Group{Key: "http://p/", Predicates: 2}, groups[3])
}

func TestSorterManyEmissions(t *testing.T) {
	s := newTestSorter(t)
	// Sequence numbers with zero bytes must not confuse key splitting.
	for i := 0; i < 600; i++ {
		require.NoError(t, s.Add(Emission{Key: "http://p/", Kind: KindPredicate}))
	}
	groups := collect(t, s)
	require.Len(t, groups, 1)
	assert.Equal(t, 600, groups[0].Predicates)
}

func TestSorterEmpty(t *testing.T) {
	s := newTestSorter(t)
	assert.Empty(t, collect(t, s))
	assert.Error(t, s.Add(Emission{Kind: KindObject}))
}

func TestFromResult(t *testing.T) {
	res := tuples.Result{
		Emissions: []tuples.RoleEmission{
			{Resource: "http://p/", Role: tuples.Predicate},
			{Resource: "http://o/", Role: tuples.Object},
			{Resource: "http://c/", Role: tuples.Context},
		},
		Relation: tuples.SubjectRelation{Subject: "http://s/", Relations: "<http://p/> <http://o/> <http://c/> ."},
	}
	assert.Equal(t, []Emission{
		{Key: "http://p/", Kind: KindPredicate},
		{Key: "http://o/", Kind: KindObject},
		{Key: "http://c/", Kind: KindContext},
		{Key: "http://s/", Kind: KindRelation, Relation: "<http://p/> <http://o/> <http://c/> ."},
	}, FromResult(res))
}

func TestPartition(t *testing.T) {
	assert.Equal(t, 0, Partition("http://s/", 1))
	assert.Equal(t, 0, Partition("http://s/", 0))
	seen := map[int]bool{}
	for i := 0; i < 200; i++ {
		key := "http://example.org/" + string(rune('a'+i%26)) + string(rune('a'+i/26))
		p := Partition(key, 4)
		assert.True(t, p >= 0 && p < 4)
		assert.Equal(t, p, Partition(key, 4))
		seen[p] = true
	}
	assert.Len(t, seen, 4)
}

func TestSorterKeyLimits(t *testing.T) {
	s := newTestSorter(t)
	longest := "http://x/" + strings.Repeat("a", MaxKeyLength-len("http://x/"))

	require.NoError(t, s.Add(Emission{Key: longest, Kind: KindObject}))
	err := s.Add(Emission{Key: longest + "a", Kind: KindObject})
	assert.ErrorIs(t, err, ErrOversize)
	err = s.Add(Emission{Key: "http://s/", Kind: KindRelation, Relation: strings.Repeat("r", MaxRelationLength+1)})
	assert.ErrorIs(t, err, ErrOversize)

	groups := collect(t, s)
	require.Len(t, groups, 1)
	assert.Equal(t, longest, groups[0].Key)
	assert.Equal(t, 1, groups[0].Objects)
}

func TestSorterReservedPrefixKey(t *testing.T) {
	s := newTestSorter(t)
	require.NoError(t, s.Add(Emission{Key: "!badger!head", Kind: KindPredicate}))

	groups := collect(t, s)
	require.Len(t, groups, 1)
	assert.Equal(t, "!badger!head", groups[0].Key)
}
