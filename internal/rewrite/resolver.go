package rewrite

import (
	"context"

	"go.uber.org/zap"

	"github.com/inodb/cellfie-mapper/internal/hgnc"
	"github.com/inodb/cellfie-mapper/internal/mapper"
)

// Resolver maps a gene symbol to an HGNC ID. ok is false when the symbol
// cannot be resolved and its line should be dropped.
type Resolver interface {
	Resolve(ctx context.Context, symbol string) (hgncID string, ok bool, err error)
}

// StaticResolver resolves symbols from a prebuilt map only.
type StaticResolver struct {
	symbols mapper.SymbolMap
}

// NewStaticResolver creates a resolver backed by m.
func NewStaticResolver(m mapper.SymbolMap) *StaticResolver {
	return &StaticResolver{symbols: m}
}

// Resolve implements Resolver.
func (r *StaticResolver) Resolve(_ context.Context, symbol string) (string, bool, error) {
	id, ok := r.symbols.Lookup(symbol)
	return id, ok, nil
}

// EscalatingResolver consults a map first and falls back to a previous-symbol
// lookup for misses. Each symbol is looked up remotely at most once per run.
//
// In strict mode a failed lookup is returned as an error; otherwise it is
// logged and the symbol is treated as unresolved.
type EscalatingResolver struct {
	symbols  mapper.SymbolMap
	lookuper hgnc.Lookuper
	strict   bool
	memo     map[string]string // "" marks a failed lookup
	lookups  int
	resolved int
	logger   *zap.Logger
}

// NewEscalatingResolver creates a resolver backed by m and l.
func NewEscalatingResolver(m mapper.SymbolMap, l hgnc.Lookuper, strict bool) *EscalatingResolver {
	return &EscalatingResolver{
		symbols:  m,
		lookuper: l,
		strict:   strict,
		memo:     make(map[string]string),
		logger:   zap.NewNop(),
	}
}

// SetLogger sets the logger for warning and debug messages.
func (r *EscalatingResolver) SetLogger(l *zap.Logger) {
	r.logger = l
}

// Resolve implements Resolver.
func (r *EscalatingResolver) Resolve(ctx context.Context, symbol string) (string, bool, error) {
	if id, ok := r.symbols.Lookup(symbol); ok {
		return id, true, nil
	}
	if id, seen := r.memo[symbol]; seen {
		return id, id != "", nil
	}

	r.lookups++
	match, err := r.lookuper.PreviousSymbol(ctx, symbol)
	if err != nil {
		if r.strict || ctx.Err() != nil {
			return "", false, err
		}
		r.logger.Warn("previous symbol lookup failed, dropping line",
			zap.String("symbol", symbol),
			zap.Stringer("kind", mapper.KindOf(err)),
			zap.Error(err))
		r.memo[symbol] = ""
		return "", false, nil
	}

	r.logger.Debug("resolved previous symbol",
		zap.String("symbol", symbol),
		zap.String("approved", match.Symbol),
		zap.String("hgnc_id", match.HGNCID))
	r.memo[symbol] = match.HGNCID
	r.resolved++
	return match.HGNCID, match.HGNCID != "", nil
}

// Lookups returns the number of remote lookups issued.
func (r *EscalatingResolver) Lookups() int {
	return r.lookups
}

// Resolved returns the number of symbols resolved remotely.
func (r *EscalatingResolver) Resolved() int {
	return r.resolved
}
