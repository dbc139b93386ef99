package duckdb

import (
	"context"
	"database/sql/driver"
	"fmt"
	"strings"
	"time"

	goduckdb "github.com/marcboeker/go-duckdb"
)

// Lookup sources, matching the HGNC search field that produced the result.
const (
	SourceSymbol     = "symbol"
	SourcePrevSymbol = "prev_symbol"
)

// Lookup is one cached resolution of a queried symbol.
type Lookup struct {
	Symbol        string // symbol as queried
	HGNCID        string
	MatchedSymbol string // approved symbol returned by HGNC
}

// GetLookups returns the cached lookups for symbols from source, keyed by the
// queried symbol. Symbols without a cached entry are absent from the result.
func (s *Store) GetLookups(source string, symbols []string) (map[string]Lookup, error) {
	results := make(map[string]Lookup)
	if len(symbols) == 0 {
		return results, nil
	}

	const chunkSize = 1000
	for i := 0; i < len(symbols); i += chunkSize {
		chunk := symbols[i:min(i+chunkSize, len(symbols))]

		args := make([]any, 0, len(chunk)+1)
		args = append(args, source)
		for _, sym := range chunk {
			args = append(args, sym)
		}
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(chunk)), ",")

		rows, err := s.db.Query(
			`SELECT symbol, hgnc_id, matched_symbol FROM hgnc_lookups
			WHERE source = ? AND symbol IN (`+placeholders+`)`, args...)
		if err != nil {
			return nil, fmt.Errorf("query cached lookups: %w", err)
		}

		for rows.Next() {
			var l Lookup
			if err := rows.Scan(&l.Symbol, &l.HGNCID, &l.MatchedSymbol); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scan cached lookup: %w", err)
			}
			results[l.Symbol] = l
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, fmt.Errorf("cached lookup rows: %w", err)
		}
		rows.Close()
	}

	return results, nil
}

// PutLookups stores lookups from source using the Appender API. Entries
// already cached, or repeated within lookups, are skipped so the first
// result for a symbol is the one kept.
func (s *Store) PutLookups(source string, lookups []Lookup) error {
	if len(lookups) == 0 {
		return nil
	}

	symbols := make([]string, 0, len(lookups))
	for _, l := range lookups {
		symbols = append(symbols, l.Symbol)
	}
	existing, err := s.GetLookups(source, symbols)
	if err != nil {
		return err
	}

	seen := make(map[string]bool, len(lookups))
	deduped := make([]Lookup, 0, len(lookups))
	for _, l := range lookups {
		if _, cached := existing[l.Symbol]; cached || seen[l.Symbol] {
			continue
		}
		seen[l.Symbol] = true
		deduped = append(deduped, l)
	}
	if len(deduped) == 0 {
		return nil
	}

	conn, err := s.db.Conn(context.Background())
	if err != nil {
		return fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	var appender *goduckdb.Appender
	if err := conn.Raw(func(driverConn any) error {
		var err error
		appender, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", "hgnc_lookups")
		return err
	}); err != nil {
		return fmt.Errorf("create appender: %w", err)
	}
	defer appender.Close()

	now := time.Now().UTC()
	for _, l := range deduped {
		if err := appender.AppendRow(l.Symbol, source, l.HGNCID, l.MatchedSymbol, now); err != nil {
			return fmt.Errorf("append lookup: %w", err)
		}
	}

	return appender.Flush()
}

// Count returns the number of cached lookups.
func (s *Store) Count() (int64, error) {
	var count int64
	if err := s.db.QueryRow("SELECT COUNT(*) FROM hgnc_lookups").Scan(&count); err != nil {
		return 0, fmt.Errorf("count cached lookups: %w", err)
	}
	return count, nil
}

// Clear removes all cached lookups.
func (s *Store) Clear() error {
	_, err := s.db.Exec("DELETE FROM hgnc_lookups")
	return err
}
