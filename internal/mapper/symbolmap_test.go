package mapper

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testGeneData = `symbol,hgnc_id,entrez_id
SYM1,HGNC:100,200
SYM2,HGNC:101,201
SYM3,HGNC:102,
`

func testGenes() []GeneRecord {
	return []GeneRecord{
		{Symbol: "SYM1", HGNCID: "HGNC:100", EntrezID: "200"},
		{Symbol: "SYM2", HGNCID: "HGNC:101", EntrezID: "201"},
		{Symbol: "SYM3", HGNCID: "HGNC:102", EntrezID: ""},
	}
}

func TestBuildSymbolMap_RoundTrip(t *testing.T) {
	m, err := BuildSymbolMap(FilterSet{"200"}, testGenes(), []byte(testGeneData))
	require.NoError(t, err)

	assert.Equal(t, SymbolMap{"SYM1": "100"}, m)
}

func TestBuildSymbolMap_Soundness(t *testing.T) {
	set := FilterSet{"200", "999"}
	genes := testGenes()

	m, err := BuildSymbolMap(set, genes, []byte(testGeneData))
	require.NoError(t, err)

	entrezBySymbol := make(map[string]string)
	for _, g := range genes {
		entrezBySymbol[g.Symbol] = g.EntrezID
	}
	for symbol := range m {
		assert.True(t, set.Contains(entrezBySymbol[symbol]), "symbol %s outside filter set", symbol)
	}
}

func TestBuildSymbolMap_EmptyEntrezNeverRetained(t *testing.T) {
	m, err := BuildSymbolMap(NewFilterSet([]string{""}), testGenes(), []byte(testGeneData))
	require.NoError(t, err)
	assert.Empty(t, m)
}

func TestBuildSymbolMap_LastOccurrenceWins(t *testing.T) {
	data := "symbol,hgnc_id,entrez_id\nDUP,HGNC:1,10\nDUP,HGNC:2,10\n"
	genes := []GeneRecord{
		{Symbol: "DUP", HGNCID: "HGNC:1", EntrezID: "10"},
		{Symbol: "DUP", HGNCID: "HGNC:2", EntrezID: "10"},
	}

	m, err := BuildSymbolMap(FilterSet{"10"}, genes, []byte(data))
	require.NoError(t, err)
	assert.Equal(t, "2", m["DUP"])
}

func TestBuildSymbolMap_MalformedRow(t *testing.T) {
	data := "symbol,hgnc_id,entrez_id\nSYM1,HGNC:100,200\nLONELY\n"

	_, err := BuildSymbolMap(FilterSet{"200"}, nil, []byte(data))
	require.Error(t, err)
	assert.True(t, IsKind(err, KindParse))

	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 3, pe.Line)
}

func TestBuildSymbolMap_BadQuoting(t *testing.T) {
	data := "symbol,hgnc_id\n\"SYM1,HGNC:1\n"
	_, err := BuildSymbolMap(FilterSet{}, nil, []byte(data))
	assert.True(t, IsKind(err, KindParse))
}

func TestSymbolMap_Merge(t *testing.T) {
	m := SymbolMap{"HK1": "4922"}

	added := m.Merge(map[string]string{"HK1": "9999", "HK2": "4923"})

	assert.Equal(t, 1, added)
	assert.Equal(t, "4922", m["HK1"], "existing entries must not be overwritten")
	assert.Equal(t, "4923", m["HK2"])
}

func TestSymbolMap_Symbols(t *testing.T) {
	m := SymbolMap{"b": "2", "a": "1", "c": "3"}
	assert.Equal(t, []string{"a", "b", "c"}, m.Symbols())
}

func TestNormalizeHGNCID(t *testing.T) {
	assert.Equal(t, "5", NormalizeHGNCID("HGNC:5"))
	assert.Equal(t, "5", NormalizeHGNCID("5"))
}

func TestKindOf(t *testing.T) {
	base := E(KindNetwork, "lookup", fmt.Errorf("timeout"))
	wrapped := fmt.Errorf("escalate HK9: %w", base)

	assert.Equal(t, KindNetwork, KindOf(wrapped))
	assert.True(t, IsKind(wrapped, KindNetwork))
	assert.False(t, IsKind(nil, KindNetwork))
	assert.Equal(t, KindParse, KindOf(&ParseError{Source: "x", Message: "bad"}))
	assert.Equal(t, KindUnknown, KindOf(fmt.Errorf("plain")))
	assert.Nil(t, E(KindIO, "noop", nil))
}
