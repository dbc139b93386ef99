package rewrite

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/cellfie-mapper/internal/mapper"
)

func rewrite(t *testing.T, res Resolver, opts Options, in string) (string, Stats) {
	t.Helper()
	var out bytes.Buffer
	stats, err := NewRewriter(res, opts).Rewrite(context.Background(), strings.NewReader(in), &out)
	require.NoError(t, err)
	return out.String(), stats
}

func TestRewrite_DropsUnresolved(t *testing.T) {
	res := NewStaticResolver(mapper.SymbolMap{"SYM1": "100"})
	in := "gene,a,b\n\"SYM1\",1.0,2.0\n\"SYM2\",3.0,4.0"

	out, stats := rewrite(t, res, DefaultOptions(), in)

	assert.Equal(t, "100\t1.0\t2.0\n", out)
	assert.Equal(t, 3, stats.Read)
	assert.Equal(t, 1, stats.Written)
	assert.Equal(t, 1, stats.Dropped)
}

func TestRewrite_HeaderOnly(t *testing.T) {
	res := NewStaticResolver(mapper.SymbolMap{"gene": "1"})

	out, stats := rewrite(t, res, DefaultOptions(), "gene,a,b\n")
	assert.Empty(t, out)
	assert.Equal(t, 0, stats.Written)

	out, _ = rewrite(t, res, DefaultOptions(), "")
	assert.Empty(t, out)
}

func TestRewrite_NoHeaderSkip(t *testing.T) {
	res := NewStaticResolver(mapper.SymbolMap{"HK1": "4922"})
	opts := DefaultOptions()
	opts.SkipHeader = false

	out, _ := rewrite(t, res, opts, "HK1,5\n")
	assert.Equal(t, "4922\t5\n", out)
}

func TestRewrite_SkipsEmptyLinesAndCRLF(t *testing.T) {
	res := NewStaticResolver(mapper.SymbolMap{"HK1": "4922", "GAPDH": "4141"})

	out, stats := rewrite(t, res, DefaultOptions(), "gene,a\r\nHK1,1\r\n\r\nGAPDH,2\r\n")

	assert.Equal(t, "4922\t1\n4141\t2\n", out)
	assert.Equal(t, 1, stats.Empty)
}

func TestRewrite_SubstitutionModes(t *testing.T) {
	res := NewStaticResolver(mapper.SymbolMap{"1": "999"})
	in := "gene,a,b\n\"1\",\"x1\",2\n"

	t.Run("field", func(t *testing.T) {
		out, _ := rewrite(t, res, DefaultOptions(), in)
		assert.Equal(t, "999\tx1\t2\n", out)
	})

	t.Run("first-match", func(t *testing.T) {
		opts := DefaultOptions()
		opts.Substitution = SubstitutionFirstMatch
		out, _ := rewrite(t, res, opts, in)
		assert.Equal(t, "999\tx1\t2\n", out)
	})

	// Quotes splitting the symbol text make the first occurrence land in a
	// later field.
	t.Run("split symbol", func(t *testing.T) {
		res := NewStaticResolver(mapper.SymbolMap{"AB": "7"})
		in := "gene,a\n\"A\"B,AB\n"

		out, _ := rewrite(t, res, DefaultOptions(), in)
		assert.Equal(t, "7\tAB\n", out)

		opts := DefaultOptions()
		opts.Substitution = SubstitutionFirstMatch
		out, _ = rewrite(t, res, opts, in)
		assert.Equal(t, "AB\t7\n", out)
	})
}

func TestRewrite_SemicolonDelimiter(t *testing.T) {
	res := NewStaticResolver(mapper.SymbolMap{"HK1": "4922"})
	opts := DefaultOptions()
	opts.Delimiter = ';'

	out, _ := rewrite(t, res, opts, "gene;a\n\"HK1\";\"1,5\"\n")
	assert.Equal(t, "4922\t1,5\n", out)
}

type failingResolver struct{}

func (failingResolver) Resolve(context.Context, string) (string, bool, error) {
	return "", false, mapper.E(mapper.KindNetwork, "lookup", errors.New("connection refused"))
}

func TestRewrite_ResolverError(t *testing.T) {
	var out bytes.Buffer
	_, err := NewRewriter(failingResolver{}, DefaultOptions()).
		Rewrite(context.Background(), strings.NewReader("gene,a\nHK1,1\n"), &out)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
	assert.True(t, mapper.IsKind(err, mapper.KindNetwork))
}

func TestRewrite_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	res := NewStaticResolver(mapper.SymbolMap{"HK1": "4922"})
	_, err := NewRewriter(res, DefaultOptions()).Rewrite(ctx, strings.NewReader("gene,a\nHK1,1\n"), &out)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExtractKey(t *testing.T) {
	assert.Equal(t, "SYM1", ExtractKey(`"SYM1",1.0`, ','))
	assert.Equal(t, "SYM1", ExtractKey(`SYM1`, ','))
	assert.Equal(t, "", ExtractKey(`,1`, ','))
}

func TestSubstituteField(t *testing.T) {
	assert.Equal(t, "100\t1.0\t2.0", SubstituteField(`"SYM1",1.0,2.0`, "100", ',', "\t"))
	assert.Equal(t, "100", SubstituteField(`"SYM1"`, "100", ',', "\t"))
	assert.Equal(t, "100\t", SubstituteField(`SYM1,`, "100", ',', "\t"))
}

func TestSubstituteFirstMatch(t *testing.T) {
	assert.Equal(t, "100\t1.0\t2.0", SubstituteFirstMatch(`"SYM1",1.0,2.0`, "SYM1", "100", ',', "\t"))
	assert.Equal(t, "x100\t1", SubstituteFirstMatch(`xSYM1,1`, "SYM1", "100", ',', "\t"))
}

func TestParseSubstitution(t *testing.T) {
	s, err := ParseSubstitution("")
	require.NoError(t, err)
	assert.Equal(t, SubstitutionField, s)

	s, err = ParseSubstitution("first-match")
	require.NoError(t, err)
	assert.Equal(t, SubstitutionFirstMatch, s)

	_, err = ParseSubstitution("position")
	assert.True(t, mapper.IsKind(err, mapper.KindConfig))
}
