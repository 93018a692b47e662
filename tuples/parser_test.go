package tuples

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNodesQuad(t *testing.T) {
	nodes, err := ParseNodes(`<http://s/> <http://p/> <http://o/> <http://c/> .`)
	require.NoError(t, err)
	require.Len(t, nodes, 4)
	for i, want := range []string{"http://s/", "http://p/", "http://o/", "http://c/"} {
		assert.Equal(t, Resource, nodes[i].Kind)
		assert.Equal(t, want, nodes[i].Value)
	}
}

func TestParseNodesLiterals(t *testing.T) {
	nodes, err := ParseNodes(`_:b1 <http://p/> "a \"quoted\"\tvalue"@en-GB "27"^^<http://www.w3.org/2001/XMLSchema#int> "x".`)
	require.NoError(t, err)
	require.Len(t, nodes, 5)

	assert.Equal(t, Blank, nodes[0].Kind)
	assert.Equal(t, "_:b1", nodes[0].String())

	assert.Equal(t, Literal, nodes[2].Kind)
	assert.Equal(t, "a \"quoted\"\tvalue", nodes[2].Value)
	assert.Equal(t, "en-GB", nodes[2].Lang)
	assert.Equal(t, `"a \"quoted\"\tvalue"@en-GB`, nodes[2].N3())

	assert.Equal(t, "http://www.w3.org/2001/XMLSchema#int", nodes[3].Datatype)
	assert.Equal(t, `"27"^^<http://www.w3.org/2001/XMLSchema#int>`, nodes[3].N3())

	assert.Equal(t, `"x"`, nodes[4].N3())
}

func TestParseNodesUnicodeEscape(t *testing.T) {
	nodes, err := ParseNodes(`<http://s/> <http://p/> "caf\u00e9" .`)
	require.NoError(t, err)
	assert.Equal(t, "café", nodes[2].Value)
}

func TestParseNodesErrors(t *testing.T) {
	for _, line := range []string{
		`<http://s/> <http://p/> <http://o/>`,
		`<http://s/> <http://p/> <http://o/ .`,
		`<http://s/> <http://p/> "open .`,
		`<http://s/> <http://p/> "27"^^<int uri> .`,
		`<http://s/> <http://p/> "27"^^xsd:int .`,
		`<http://s/> <http://p/> o .`,
		`<http://s/> <http://p/> <http://o/> . extra`,
	} {
		_, err := ParseNodes(line)
		assert.ErrorIs(t, err, ErrParse, line)
	}
}

func TestParseNodesTrailingComment(t *testing.T) {
	nodes, err := ParseNodes(`<http://s/> <http://p/> <http://o/> . # comment`)
	require.NoError(t, err)
	assert.Len(t, nodes, 3)
}

func TestStripDatatypes(t *testing.T) {
	assert.Equal(t, `<http://s/> <http://p/> "27" .`, StripDatatypes(`<http://s/> <http://p/> "27"^^<int uri> .`))
}

func TestValidateURI(t *testing.T) {
	assert.NoError(t, NewResource("http://example.org/a#b").ValidateURI())
	assert.Error(t, NewResource("http://bad uri/").ValidateURI())
	assert.Error(t, NewResource("http://example.org/%zz").ValidateURI())
	assert.Error(t, NewResource("").ValidateURI())
	assert.NoError(t, NewLiteral("not a uri").ValidateURI())
}

func TestNodeTerm(t *testing.T) {
	term, err := NewResource("http://example.org/s").Term()
	require.NoError(t, err)
	assert.Equal(t, "http://example.org/s", term.String())

	term, err = NewLiteral("hello").Term()
	require.NoError(t, err)
	assert.Equal(t, "hello", term.String())
}
