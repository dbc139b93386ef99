package pipeline

import (
	"unicode/utf8"

	"github.com/inodb/cellfie-mapper/internal/hgnc"
	"github.com/inodb/cellfie-mapper/internal/input"
	"github.com/inodb/cellfie-mapper/internal/mapper"
	"github.com/inodb/cellfie-mapper/internal/rewrite"
)

// DefaultModel is the metabolic model used when none is given.
const DefaultModel = "MT_recon_2_2_entrez.mat"

// DelimiterAuto asks for the input delimiter to be detected from the file.
const DelimiterAuto = "auto"

// ResolverMode selects where gene symbols are resolved.
type ResolverMode string

const (
	// ResolverStatic uses the reference tables only.
	ResolverStatic ResolverMode = "static"
	// ResolverEscalate uses the reference tables, batch resolves symbols
	// missing from them and falls back to a previous-symbol lookup per line.
	ResolverEscalate ResolverMode = "escalate"
	// ResolverAPI resolves every symbol remotely.
	ResolverAPI ResolverMode = "api"
)

// ParseResolverMode validates a resolver mode name.
func ParseResolverMode(s string) (ResolverMode, error) {
	switch ResolverMode(s) {
	case "", ResolverStatic:
		return ResolverStatic, nil
	case ResolverEscalate, ResolverAPI:
		return ResolverMode(s), nil
	default:
		return "", mapper.Errorf(mapper.KindConfig, "parse resolver",
			"unknown resolver %q (want static, escalate or api)", s)
	}
}

// Remote reports whether the mode issues HGNC requests.
func (m ResolverMode) Remote() bool {
	return m == ResolverEscalate || m == ResolverAPI
}

// PhenotypeConfig configures the optional phenotype pass.
type PhenotypeConfig struct {
	Input   string
	Output  string
	InPlace bool
}

// Config configures a Pipeline.
type Config struct {
	Model   string
	Input   string
	Output  string // "-" writes to stdout
	InPlace bool

	Phenotype PhenotypeConfig

	Resolver        ResolverMode
	Substitution    rewrite.Substitution
	InputDelimiter  string // single character or "auto"
	OutputDelimiter string
	Strict          bool

	FilterTable string // empty selects the embedded table
	GeneTable   string

	Remote    hgnc.Config
	CachePath string // DuckDB lookup cache, disabled when empty
}

// DefaultConfig returns a Config with every default applied.
func DefaultConfig() Config {
	return Config{
		Model:           DefaultModel,
		Output:          input.Stdin,
		Resolver:        ResolverStatic,
		Substitution:    rewrite.SubstitutionField,
		InputDelimiter:  ",",
		OutputDelimiter: "\t",
		Remote: hgnc.Config{
			BaseURL:   hgnc.DefaultBaseURL,
			Timeout:   hgnc.DefaultTimeout,
			ChunkSize: hgnc.DefaultChunkSize,
			RateLimit: hgnc.DefaultRateLimit,
		},
	}
}

// Validate checks the configuration for contradictions before anything is
// read or written.
func (c *Config) Validate() error {
	const op = "validate config"

	if c.Input == "" {
		return mapper.Errorf(mapper.KindConfig, op, "no input file given")
	}
	if c.InPlace {
		if c.Input == input.Stdin {
			return mapper.Errorf(mapper.KindConfig, op, "cannot rewrite stdin in place")
		}
		if c.Output != "" && c.Output != input.Stdin {
			return mapper.Errorf(mapper.KindConfig, op, "--in-place and --output are mutually exclusive")
		}
	}
	if _, err := ParseResolverMode(string(c.Resolver)); err != nil {
		return err
	}
	if _, err := rewrite.ParseSubstitution(string(c.Substitution)); err != nil {
		return err
	}
	if c.Resolver.Remote() && c.Input == input.Stdin {
		return mapper.Errorf(mapper.KindConfig, op,
			"resolver %s needs a file input to collect symbols", c.Resolver)
	}
	if c.InputDelimiter != DelimiterAuto {
		if _, err := ParseDelimiter(c.InputDelimiter); err != nil {
			return err
		}
	}
	if c.OutputDelimiter == "" {
		return mapper.Errorf(mapper.KindConfig, op, "empty output delimiter")
	}

	if p := c.Phenotype; p.Input != "" {
		if p.Input == input.Stdin && (p.InPlace || c.Input == input.Stdin) {
			return mapper.Errorf(mapper.KindConfig, op, "invalid phenotype input %q", p.Input)
		}
		if p.InPlace && p.Output != "" {
			return mapper.Errorf(mapper.KindConfig, op, "phenotype in-place and output are mutually exclusive")
		}
		if !p.InPlace && p.Output == "" {
			return mapper.Errorf(mapper.KindConfig, op, "no phenotype output given")
		}
	}
	return nil
}

// ParseDelimiter converts a delimiter setting to a rune. "tab" and a literal
// backslash-t are accepted for tab.
func ParseDelimiter(s string) (rune, error) {
	switch s {
	case "":
		return input.DefaultDelimiter, nil
	case "tab", `\t`:
		return '\t', nil
	}
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError || size != len(s) || r == '"' || r == '\n' || r == '\r' {
		return 0, mapper.Errorf(mapper.KindConfig, "parse delimiter", "invalid delimiter %q", s)
	}
	return r, nil
}

// outputDelimiter expands the escaped forms accepted for tab.
func outputDelimiter(s string) string {
	if s == "tab" || s == `\t` {
		return "\t"
	}
	return s
}
