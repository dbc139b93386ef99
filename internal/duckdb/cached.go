package duckdb

import (
	"context"

	"go.uber.org/zap"

	"github.com/inodb/cellfie-mapper/internal/hgnc"
	"github.com/inodb/cellfie-mapper/internal/mapper"
)

// CachedLookuper serves HGNC lookups from a Store, falling through to the
// wrapped Lookuper for symbols not yet cached and recording what it returns.
type CachedLookuper struct {
	store  *Store
	next   hgnc.Lookuper
	logger *zap.Logger
}

// NewCachedLookuper wraps next with store.
func NewCachedLookuper(store *Store, next hgnc.Lookuper) *CachedLookuper {
	return &CachedLookuper{store: store, next: next, logger: zap.NewNop()}
}

// SetLogger sets the logger for cache hit statistics.
func (c *CachedLookuper) SetLogger(l *zap.Logger) {
	c.logger = l
}

// BatchLookup implements hgnc.Lookuper.
func (c *CachedLookuper) BatchLookup(ctx context.Context, symbols []string) (map[string]string, error) {
	cached, err := c.store.GetLookups(SourceSymbol, symbols)
	if err != nil {
		return nil, mapper.E(mapper.KindIO, "read lookup cache", err)
	}

	results := make(map[string]string, len(symbols))
	var missing []string
	for _, sym := range symbols {
		if l, ok := cached[sym]; ok {
			results[sym] = l.HGNCID
			continue
		}
		missing = append(missing, sym)
	}
	c.logger.Debug("lookup cache",
		zap.Int("hits", len(symbols)-len(missing)),
		zap.Int("misses", len(missing)))

	if len(missing) == 0 {
		return results, nil
	}

	fetched, err := c.next.BatchLookup(ctx, missing)
	if err != nil {
		return nil, err
	}

	lookups := make([]Lookup, 0, len(fetched))
	for sym, id := range fetched {
		if _, ok := results[sym]; !ok {
			results[sym] = id
		}
		lookups = append(lookups, Lookup{Symbol: sym, HGNCID: id, MatchedSymbol: sym})
	}
	if err := c.store.PutLookups(SourceSymbol, lookups); err != nil {
		return nil, mapper.E(mapper.KindIO, "write lookup cache", err)
	}

	return results, nil
}

// PreviousSymbol implements hgnc.Lookuper. Failed lookups are not cached.
func (c *CachedLookuper) PreviousSymbol(ctx context.Context, symbol string) (hgnc.Match, error) {
	cached, err := c.store.GetLookups(SourcePrevSymbol, []string{symbol})
	if err != nil {
		return hgnc.Match{}, mapper.E(mapper.KindIO, "read lookup cache", err)
	}
	if l, ok := cached[symbol]; ok {
		return hgnc.Match{Symbol: l.MatchedSymbol, HGNCID: l.HGNCID}, nil
	}

	m, err := c.next.PreviousSymbol(ctx, symbol)
	if err != nil {
		return hgnc.Match{}, err
	}

	if err := c.store.PutLookups(SourcePrevSymbol, []Lookup{{
		Symbol:        symbol,
		HGNCID:        m.HGNCID,
		MatchedSymbol: m.Symbol,
	}}); err != nil {
		return hgnc.Match{}, mapper.E(mapper.KindIO, "write lookup cache", err)
	}
	return m, nil
}
