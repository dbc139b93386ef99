package rewrite

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/cellfie-mapper/internal/hgnc"
	"github.com/inodb/cellfie-mapper/internal/mapper"
)

type fakeLookuper struct {
	prev  map[string]hgnc.Match
	calls int
}

func (f *fakeLookuper) BatchLookup(context.Context, []string) (map[string]string, error) {
	return nil, nil
}

func (f *fakeLookuper) PreviousSymbol(_ context.Context, symbol string) (hgnc.Match, error) {
	f.calls++
	m, ok := f.prev[symbol]
	if !ok {
		return hgnc.Match{}, mapper.E(mapper.KindNetwork, "previous symbol "+symbol, hgnc.ErrNoMatches)
	}
	return m, nil
}

func TestStaticResolver(t *testing.T) {
	r := NewStaticResolver(mapper.SymbolMap{"HK1": "4922"})

	id, ok, err := r.Resolve(context.Background(), "HK1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "4922", id)

	_, ok, err = r.Resolve(context.Background(), "hk1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEscalatingResolver_MapFirst(t *testing.T) {
	l := &fakeLookuper{}
	r := NewEscalatingResolver(mapper.SymbolMap{"HK1": "4922"}, l, false)

	id, ok, err := r.Resolve(context.Background(), "HK1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "4922", id)
	assert.Equal(t, 0, l.calls)
}

func TestEscalatingResolver_PreviousSymbolMemoized(t *testing.T) {
	l := &fakeLookuper{prev: map[string]hgnc.Match{"OLD1": {Symbol: "NEW1", HGNCID: "42"}}}
	r := NewEscalatingResolver(mapper.SymbolMap{}, l, false)

	for i := 0; i < 3; i++ {
		id, ok, err := r.Resolve(context.Background(), "OLD1")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "42", id)
	}
	assert.Equal(t, 1, l.calls)
	assert.Equal(t, 1, r.Lookups())
	assert.Equal(t, 1, r.Resolved())
}

func TestEscalatingResolver_Lenient(t *testing.T) {
	l := &fakeLookuper{}
	r := NewEscalatingResolver(mapper.SymbolMap{}, l, false)

	for i := 0; i < 2; i++ {
		_, ok, err := r.Resolve(context.Background(), "NOPE")
		require.NoError(t, err)
		assert.False(t, ok)
	}
	assert.Equal(t, 1, l.calls, "failed lookups are memoized too")
}

func TestEscalatingResolver_Strict(t *testing.T) {
	r := NewEscalatingResolver(mapper.SymbolMap{}, &fakeLookuper{}, true)

	_, _, err := r.Resolve(context.Background(), "NOPE")
	require.Error(t, err)
	assert.ErrorIs(t, err, hgnc.ErrNoMatches)
	assert.True(t, mapper.IsKind(err, mapper.KindNetwork))
}

func TestRewrite_Escalation(t *testing.T) {
	l := &fakeLookuper{prev: map[string]hgnc.Match{"SYM2": {Symbol: "NEW2", HGNCID: "200"}}}
	m := mapper.SymbolMap{"SYM1": "100"}
	in := "gene,a,b\n\"SYM1\",1.0,2.0\n\"SYM2\",3.0,4.0\n\"SYM3\",5.0,6.0\n"

	t.Run("lenient", func(t *testing.T) {
		out, stats := rewrite(t, NewEscalatingResolver(m, l, false), DefaultOptions(), in)
		assert.Equal(t, "100\t1.0\t2.0\n200\t3.0\t4.0\n", out)
		assert.Equal(t, 1, stats.Dropped)
	})

	t.Run("strict", func(t *testing.T) {
		var out bytes.Buffer
		_, err := NewRewriter(NewEscalatingResolver(m, l, true), DefaultOptions()).
			Rewrite(context.Background(), strings.NewReader(in), &out)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "line 4")
	})
}
