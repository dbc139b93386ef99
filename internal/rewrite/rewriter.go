// Package rewrite streams delimited gene matrices, replacing the leading gene
// symbol of every line with its HGNC ID.
package rewrite

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/inodb/cellfie-mapper/internal/input"
	"github.com/inodb/cellfie-mapper/internal/mapper"
)

// Substitution selects how the resolved ID is written into a line.
type Substitution string

const (
	// SubstitutionField replaces the leading field.
	SubstitutionField Substitution = "field"
	// SubstitutionFirstMatch replaces the first occurrence of the symbol text
	// anywhere in the line.
	SubstitutionFirstMatch Substitution = "first-match"
)

// ParseSubstitution validates a substitution mode name.
func ParseSubstitution(s string) (Substitution, error) {
	switch Substitution(s) {
	case "", SubstitutionField:
		return SubstitutionField, nil
	case SubstitutionFirstMatch:
		return SubstitutionFirstMatch, nil
	default:
		return "", mapper.Errorf(mapper.KindConfig, "parse substitution",
			"unknown substitution %q (want %s or %s)", s, SubstitutionField, SubstitutionFirstMatch)
	}
}

// Options configures a Rewriter.
type Options struct {
	SkipHeader      bool
	Delimiter       rune
	OutputDelimiter string
	Substitution    Substitution
}

// DefaultOptions returns the options for a comma-separated expression matrix
// with one header line.
func DefaultOptions() Options {
	return Options{
		SkipHeader:      true,
		Delimiter:       ',',
		OutputDelimiter: "\t",
		Substitution:    SubstitutionField,
	}
}

// Stats counts lines seen by a rewrite.
type Stats struct {
	Read    int // lines read, header included
	Written int
	Dropped int // unresolved symbols
	Empty   int
}

// Rewriter maps the leading symbol of every line through a Resolver.
type Rewriter struct {
	resolver Resolver
	opts     Options
	logger   *zap.Logger
}

// NewRewriter creates a Rewriter. Zero option fields take their defaults.
func NewRewriter(res Resolver, opts Options) *Rewriter {
	def := DefaultOptions()
	if opts.Delimiter == 0 {
		opts.Delimiter = def.Delimiter
	}
	if opts.OutputDelimiter == "" {
		opts.OutputDelimiter = def.OutputDelimiter
	}
	if opts.Substitution == "" {
		opts.Substitution = def.Substitution
	}
	return &Rewriter{
		resolver: res,
		opts:     opts,
		logger:   zap.NewNop(),
	}
}

// SetLogger sets the logger for debug messages.
func (rw *Rewriter) SetLogger(l *zap.Logger) {
	rw.logger = l
}

// Rewrite reads lines from r and writes the converted lines to w. Lines whose
// symbol cannot be resolved are dropped.
func (rw *Rewriter) Rewrite(ctx context.Context, r io.Reader, w io.Writer) (Stats, error) {
	var stats Stats
	br := bufio.NewReader(r)
	bw := bufio.NewWriter(w)

	for {
		line, readErr := br.ReadString('\n')
		if readErr != nil && readErr != io.EOF {
			return stats, mapper.E(mapper.KindIO, "read input", readErr)
		}
		if line == "" && readErr == io.EOF {
			break
		}
		stats.Read++

		if stats.Read == 1 && rw.opts.SkipHeader {
			if readErr == io.EOF {
				break
			}
			continue
		}

		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			stats.Empty++
		} else if err := rw.rewriteLine(ctx, line, bw, &stats); err != nil {
			return stats, fmt.Errorf("line %d: %w", stats.Read, err)
		}

		if readErr == io.EOF {
			break
		}
	}

	if err := bw.Flush(); err != nil {
		return stats, mapper.E(mapper.KindIO, "write output", err)
	}

	rw.logger.Debug("rewrite finished",
		zap.Int("read", stats.Read),
		zap.Int("written", stats.Written),
		zap.Int("dropped", stats.Dropped))
	return stats, nil
}

func (rw *Rewriter) rewriteLine(ctx context.Context, line string, w *bufio.Writer, stats *Stats) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	key := ExtractKey(line, rw.opts.Delimiter)
	id, ok, err := rw.resolver.Resolve(ctx, key)
	if err != nil {
		return err
	}
	if !ok {
		stats.Dropped++
		return nil
	}

	var out string
	if rw.opts.Substitution == SubstitutionFirstMatch {
		out = SubstituteFirstMatch(line, key, id, rw.opts.Delimiter, rw.opts.OutputDelimiter)
	} else {
		out = SubstituteField(line, id, rw.opts.Delimiter, rw.opts.OutputDelimiter)
	}

	if _, err := w.WriteString(out); err != nil {
		return mapper.E(mapper.KindIO, "write output", err)
	}
	if err := w.WriteByte('\n'); err != nil {
		return mapper.E(mapper.KindIO, "write output", err)
	}
	stats.Written++
	return nil
}

// ExtractKey returns the gene symbol of a line: the text before the first
// delimiter with double quotes removed.
func ExtractKey(line string, delim rune) string {
	return input.LeadingKey(line, delim)
}

// SubstituteField replaces the leading field of line with id, strips double
// quotes and converts delimiters to outDelim.
func SubstituteField(line, id string, delim rune, outDelim string) string {
	i := strings.IndexRune(line, delim)
	if i < 0 {
		return id
	}
	rest := line[i+len(string(delim)):]
	return id + outDelim + convert(rest, delim, outDelim)
}

// SubstituteFirstMatch replaces the first occurrence of key anywhere in line
// with id, then strips double quotes and converts delimiters to outDelim.
func SubstituteFirstMatch(line, key, id string, delim rune, outDelim string) string {
	return convert(strings.Replace(line, key, id, 1), delim, outDelim)
}

func convert(s string, delim rune, outDelim string) string {
	s = strings.ReplaceAll(s, `"`, "")
	return strings.ReplaceAll(s, string(delim), outDelim)
}
