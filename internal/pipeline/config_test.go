package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/cellfie-mapper/internal/mapper"
)

func TestParseResolverMode(t *testing.T) {
	for _, s := range []string{"static", "escalate", "api"} {
		m, err := ParseResolverMode(s)
		require.NoError(t, err)
		assert.Equal(t, ResolverMode(s), m)
	}

	m, err := ParseResolverMode("")
	require.NoError(t, err)
	assert.Equal(t, ResolverStatic, m)
	assert.False(t, m.Remote())

	_, err = ParseResolverMode("remote")
	assert.True(t, mapper.IsKind(err, mapper.KindConfig))
}

func TestParseDelimiter(t *testing.T) {
	tests := []struct {
		in   string
		want rune
	}{
		{"", ','},
		{",", ','},
		{";", ';'},
		{"tab", '\t'},
		{`\t`, '\t'},
		{"\t", '\t'},
	}
	for _, tt := range tests {
		got, err := ParseDelimiter(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	for _, bad := range []string{",,", `"`, "\n"} {
		_, err := ParseDelimiter(bad)
		assert.True(t, mapper.IsKind(err, mapper.KindConfig), bad)
	}
}

func TestConfigValidate(t *testing.T) {
	valid := func() Config {
		cfg := DefaultConfig()
		cfg.Input = "expr.csv"
		return cfg
	}

	cfg := valid()
	require.NoError(t, cfg.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no input", func(c *Config) { c.Input = "" }},
		{"in-place stdin", func(c *Config) { c.Input = "-"; c.InPlace = true }},
		{"in-place with output", func(c *Config) { c.InPlace = true; c.Output = "out.tsv" }},
		{"remote from stdin", func(c *Config) { c.Input = "-"; c.Resolver = ResolverAPI }},
		{"bad resolver", func(c *Config) { c.Resolver = "fuzzy" }},
		{"bad substitution", func(c *Config) { c.Substitution = "regex" }},
		{"bad delimiter", func(c *Config) { c.InputDelimiter = "ab" }},
		{"empty output delimiter", func(c *Config) { c.OutputDelimiter = "" }},
		{"phenotype without output", func(c *Config) { c.Phenotype.Input = "pheno.csv" }},
		{"phenotype output and in-place", func(c *Config) {
			c.Phenotype = PhenotypeConfig{Input: "pheno.csv", Output: "p.csv", InPlace: true}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, mapper.IsKind(err, mapper.KindConfig))
		})
	}
}
