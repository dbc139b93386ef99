// Package mapper builds the gene symbol to HGNC ID mapping for a metabolic model.
package mapper

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"go.uber.org/zap"
)

const hgncPrefix = "HGNC:"

// GeneRecord is one row of the gene nomenclature table.
type GeneRecord struct {
	Symbol   string `csv:"symbol"`
	HGNCID   string `csv:"hgnc_id"`
	EntrezID string `csv:"entrez_id"`
}

// NormalizeHGNCID strips the "HGNC:" prefix from an HGNC identifier.
func NormalizeHGNCID(id string) string {
	return strings.TrimPrefix(id, hgncPrefix)
}

// SymbolMap maps gene symbols to HGNC IDs (without the "HGNC:" prefix).
type SymbolMap map[string]string

// Lookup returns the HGNC ID for symbol.
func (m SymbolMap) Lookup(symbol string) (string, bool) {
	id, ok := m[symbol]
	return id, ok
}

// Merge adds entries from other whose symbols are not yet present and returns
// how many were added. Existing entries are never overwritten.
func (m SymbolMap) Merge(other map[string]string) int {
	added := 0
	for symbol, id := range other {
		if _, exists := m[symbol]; exists {
			continue
		}
		m[symbol] = id
		added++
	}
	return added
}

// Symbols returns the mapped symbols in sorted order.
func (m SymbolMap) Symbols() []string {
	symbols := make([]string, 0, len(m))
	for s := range m {
		symbols = append(symbols, s)
	}
	slices.Sort(symbols)
	return symbols
}

// Builder cross-references a FilterSet against the nomenclature table.
type Builder struct {
	logger *zap.Logger
}

// NewBuilder creates a Builder with a no-op logger.
func NewBuilder() *Builder {
	return &Builder{logger: zap.NewNop()}
}

// SetLogger sets the logger for debug messages.
func (b *Builder) SetLogger(l *zap.Logger) {
	b.logger = l
}

// Build returns the mapping restricted to symbols whose Entrez ID is in set.
// genes are the typed nomenclature rows; geneData is the raw table the
// symbol index is built from. A symbol listed more than once keeps its last
// HGNC ID.
func (b *Builder) Build(set FilterSet, genes []GeneRecord, geneData []byte) (SymbolMap, error) {
	retained := make(map[string]struct{})
	for _, g := range genes {
		if set.Contains(g.EntrezID) {
			retained[g.Symbol] = struct{}{}
		}
	}
	b.logger.Debug("retained symbols", zap.Int("count", len(retained)))

	raw, err := rawIndex(geneData)
	if err != nil {
		return nil, err
	}
	b.logger.Debug("raw symbol index", zap.Int("size", len(raw)))

	for symbol := range raw {
		if _, ok := retained[symbol]; !ok {
			delete(raw, symbol)
		}
	}
	b.logger.Debug("restricted symbol index", zap.Int("size", len(raw)))

	return raw, nil
}

// BuildSymbolMap is a convenience wrapper around NewBuilder().Build.
func BuildSymbolMap(set FilterSet, genes []GeneRecord, geneData []byte) (SymbolMap, error) {
	return NewBuilder().Build(set, genes, geneData)
}

// rawIndex maps the first column of every line to the second, header
// included. Later lines overwrite earlier ones.
func rawIndex(data []byte) (SymbolMap, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.ReuseRecord = true

	index := make(SymbolMap)
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, E(KindParse, "index gene table", CSVParseError("gene table", err))
		}
		if len(record) < 2 {
			line, _ := r.FieldPos(0)
			return nil, E(KindParse, "index gene table", &ParseError{
				Source:  "gene table",
				Line:    line,
				Message: fmt.Sprintf("expected at least 2 columns, found %d", len(record)),
			})
		}
		index[record[0]] = NormalizeHGNCID(record[1])
	}
	return index, nil
}

// CSVParseError converts an encoding/csv error into a *ParseError for source.
func CSVParseError(source string, err error) error {
	var ce *csv.ParseError
	if errors.As(err, &ce) {
		return &ParseError{Source: source, Line: ce.Line, Message: ce.Err.Error()}
	}
	return &ParseError{Source: source, Message: err.Error()}
}
