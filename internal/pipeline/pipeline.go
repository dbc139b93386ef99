// Package pipeline converts expression and phenotype matrices end to end:
// it builds the symbol mapping for a model, optionally resolves missing
// symbols against HGNC and rewrites the files atomically.
package pipeline

import (
	"context"
	"errors"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/inodb/cellfie-mapper/internal/duckdb"
	"github.com/inodb/cellfie-mapper/internal/hgnc"
	"github.com/inodb/cellfie-mapper/internal/input"
	"github.com/inodb/cellfie-mapper/internal/mapper"
	"github.com/inodb/cellfie-mapper/internal/output"
	"github.com/inodb/cellfie-mapper/internal/reference"
	"github.com/inodb/cellfie-mapper/internal/rewrite"
)

// Result summarizes a Run.
type Result struct {
	Model      string
	Mapped     int // symbols in the mapping before rewriting
	Merged     int // symbols added by batch resolution
	Escalated  int // symbols resolved by previous-symbol lookups
	Expression rewrite.Stats
	Phenotype  *rewrite.Stats
	Duration   time.Duration
}

// Pipeline runs one conversion.
type Pipeline struct {
	cfg    Config
	logger *zap.Logger
	stdout io.Writer
}

// New creates a Pipeline. A nil logger disables logging.
func New(cfg Config, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Resolver == "" {
		cfg.Resolver = ResolverStatic
	}
	if cfg.Substitution == "" {
		cfg.Substitution = rewrite.SubstitutionField
	}
	if cfg.OutputDelimiter == "" {
		cfg.OutputDelimiter = "\t"
	}
	if cfg.Output == "" && !cfg.InPlace {
		cfg.Output = input.Stdin
	}
	return &Pipeline{cfg: cfg, logger: logger, stdout: os.Stdout}
}

// SetStdout redirects output written to "-".
func (p *Pipeline) SetStdout(w io.Writer) {
	p.stdout = w
}

// Run performs the conversion. The mapping is built before any output is
// created, so configuration and reference table errors leave the file system
// untouched.
func (p *Pipeline) Run(ctx context.Context) (Result, error) {
	start := time.Now()
	res := Result{Model: mapper.StripModelSuffix(p.cfg.Model)}

	if err := p.cfg.Validate(); err != nil {
		return res, err
	}

	symbols, err := p.baseMapping()
	if err != nil {
		return res, err
	}

	delim, err := p.delimiter(p.cfg.Input)
	if err != nil {
		return res, err
	}

	var resolver rewrite.Resolver = rewrite.NewStaticResolver(symbols)
	var escalating *rewrite.EscalatingResolver
	if p.cfg.Resolver.Remote() {
		lookuper, closeFn, err := p.lookuper()
		if err != nil {
			return res, err
		}
		defer closeFn()

		keys, err := scanKeys(p.cfg.Input, delim)
		if err != nil {
			return res, err
		}
		res.Merged, err = p.batchResolve(ctx, lookuper, symbols, keys)
		if err != nil {
			return res, err
		}

		escalating = rewrite.NewEscalatingResolver(symbols, lookuper, p.cfg.Strict)
		escalating.SetLogger(p.logger)
		resolver = escalating
	}
	res.Mapped = len(symbols)

	rw := rewrite.NewRewriter(resolver, rewrite.Options{
		SkipHeader:      true,
		Delimiter:       delim,
		OutputDelimiter: outputDelimiter(p.cfg.OutputDelimiter),
		Substitution:    p.cfg.Substitution,
	})
	rw.SetLogger(p.logger)

	dest := p.cfg.Output
	if p.cfg.InPlace {
		dest = p.cfg.Input
	}
	err = p.convert(p.cfg.Input, dest, func(r io.Reader, w io.Writer) error {
		var err error
		res.Expression, err = rw.Rewrite(ctx, r, w)
		return err
	})
	if escalating != nil {
		res.Escalated = escalating.Resolved()
	}
	if err != nil {
		return res, err
	}

	if ph := p.cfg.Phenotype; ph.Input != "" {
		phDelim, err := p.delimiter(ph.Input)
		if err != nil {
			return res, err
		}
		phDest := ph.Output
		if ph.InPlace {
			phDest = ph.Input
		}
		var stats rewrite.Stats
		if err := p.convert(ph.Input, phDest, func(r io.Reader, w io.Writer) error {
			var err error
			stats, err = rewrite.Phenotype(r, w, phDelim)
			return err
		}); err != nil {
			return res, err
		}
		res.Phenotype = &stats
	}

	res.Duration = time.Since(start)
	p.logger.Info("conversion finished",
		zap.String("model", res.Model),
		zap.String("resolver", string(p.cfg.Resolver)),
		zap.Int("mapped", res.Mapped),
		zap.Int("written", res.Expression.Written),
		zap.Int("dropped", res.Expression.Dropped),
		zap.Int("escalated", res.Escalated),
		zap.Duration("elapsed", res.Duration))
	return res, nil
}

// Mapping returns the symbol mapping for the configured model and resolver.
// For remote resolvers only the mapping from the reference tables is
// returned; use Lookup to include remote results.
func (p *Pipeline) Mapping(ctx context.Context) (mapper.SymbolMap, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return p.baseMapping()
}

// Lookup resolves symbols the same way Run would and returns the hits.
func (p *Pipeline) Lookup(ctx context.Context, symbols []string) (map[string]string, error) {
	if _, err := ParseResolverMode(string(p.cfg.Resolver)); err != nil {
		return nil, err
	}
	m, err := p.Mapping(ctx)
	if err != nil {
		return nil, err
	}

	var resolver rewrite.Resolver = rewrite.NewStaticResolver(m)
	if p.cfg.Resolver.Remote() {
		lookuper, closeFn, err := p.lookuper()
		if err != nil {
			return nil, err
		}
		defer closeFn()

		if _, err := p.batchResolve(ctx, lookuper, m, symbols); err != nil {
			return nil, err
		}
		esc := rewrite.NewEscalatingResolver(m, lookuper, p.cfg.Strict)
		esc.SetLogger(p.logger)
		resolver = esc
	}

	hits := make(map[string]string, len(symbols))
	for _, sym := range symbols {
		id, ok, err := resolver.Resolve(ctx, sym)
		if err != nil {
			return nil, err
		}
		if ok {
			hits[sym] = id
		}
	}
	return hits, nil
}

// baseMapping builds the reference table mapping. The api resolver starts
// from an empty mapping.
func (p *Pipeline) baseMapping() (mapper.SymbolMap, error) {
	if p.cfg.Resolver == ResolverAPI {
		return mapper.SymbolMap{}, nil
	}

	tables, err := reference.LoadFiles(p.cfg.FilterTable, p.cfg.GeneTable)
	if err != nil {
		return nil, err
	}
	p.logger.Debug("loaded reference tables", zap.Stringer("tables", tables))

	set, err := mapper.ResolveFilter(p.cfg.Model, tables.FilterHeader, tables.FilterRows)
	if err != nil {
		return nil, err
	}
	p.logger.Debug("resolved model filter",
		zap.String("model", p.cfg.Model),
		zap.Int("entrez_ids", set.Len()))

	b := mapper.NewBuilder()
	b.SetLogger(p.logger)
	return b.Build(set, tables.Genes, tables.GeneData)
}

// lookuper creates the HGNC client, wrapped with the DuckDB cache when one is
// configured. The returned function releases the cache.
func (p *Pipeline) lookuper() (hgnc.Lookuper, func(), error) {
	client := hgnc.NewClient(p.cfg.Remote)
	client.SetLogger(p.logger)

	if p.cfg.CachePath == "" {
		return client, func() {}, nil
	}

	store, err := duckdb.Open(p.cfg.CachePath)
	if err != nil {
		return nil, nil, mapper.E(mapper.KindIO, "open lookup cache", err)
	}
	cached := duckdb.NewCachedLookuper(store, client)
	cached.SetLogger(p.logger)

	return cached, func() {
		if err := store.Close(); err != nil {
			p.logger.Warn("closing lookup cache", zap.Error(err))
		}
	}, nil
}

// batchResolve looks up the keys missing from symbols and merges the results
// without overwriting existing entries.
func (p *Pipeline) batchResolve(ctx context.Context, l hgnc.Lookuper, symbols mapper.SymbolMap, keys []string) (int, error) {
	var missing []string
	for _, k := range keys {
		if _, ok := symbols[k]; !ok {
			missing = append(missing, k)
		}
	}
	if len(missing) == 0 {
		return 0, nil
	}

	found, err := l.BatchLookup(ctx, missing)
	if err != nil {
		return 0, err
	}
	added := symbols.Merge(found)

	p.logger.Debug("batch resolved symbols",
		zap.Int("requested", len(missing)),
		zap.Int("found", len(found)),
		zap.Int("added", added))
	return added, nil
}

// delimiter returns the configured input delimiter, detecting it from path
// when set to auto.
func (p *Pipeline) delimiter(path string) (rune, error) {
	if p.cfg.InputDelimiter != DelimiterAuto {
		return ParseDelimiter(p.cfg.InputDelimiter)
	}
	if path == input.Stdin {
		return input.DefaultDelimiter, nil
	}

	d, err := input.DetectDelimiter(path)
	if err != nil {
		return 0, err
	}
	p.logger.Debug("detected delimiter", zap.String("path", path), zap.String("delimiter", string(d)))
	return d, nil
}

// convert streams src through fn into dest. Files are written through an
// AtomicFile so dest is only replaced once fn succeeds.
func (p *Pipeline) convert(src, dest string, fn func(io.Reader, io.Writer) error) (err error) {
	in, err := input.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := in.Close(); cerr != nil && err == nil {
			err = mapper.E(mapper.KindIO, "close input", cerr)
		}
	}()

	if dest == input.Stdin {
		return fn(in, p.stdout)
	}

	out, err := output.CreateAtomic(dest)
	if err != nil {
		return err
	}
	defer out.Abort()

	if err := fn(in, out); err != nil {
		return err
	}
	if err := out.Commit(); err != nil {
		return err
	}

	p.logger.Debug("wrote output", zap.String("path", dest))
	return nil
}

func scanKeys(path string, delim rune) (keys []string, err error) {
	f, err := input.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()
	return input.ScanKeys(f, delim, true)
}
