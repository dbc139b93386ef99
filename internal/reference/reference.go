// Package reference loads the model filter matrix and the gene nomenclature
// table, either from the copies embedded in the binary or from files.
package reference

import (
	"bytes"
	"encoding/csv"
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gocarina/gocsv"

	"github.com/inodb/cellfie-mapper/internal/mapper"
)

//go:embed data/model-filter.csv
var embeddedFilterTable []byte

//go:embed data/genename-data.csv
var embeddedGeneTable []byte

// Tables holds both reference tables, parsed once per run.
type Tables struct {
	FilterHeader []string
	FilterRows   [][]string
	Genes        []mapper.GeneRecord
	GeneData     []byte // raw nomenclature table, used for the symbol index
}

// Models returns the model names available in the filter matrix.
func (t *Tables) Models() []string {
	return t.FilterHeader
}

// Load parses the embedded tables.
func Load() (*Tables, error) {
	return parse(embeddedFilterTable, embeddedGeneTable)
}

// LoadFiles parses tables from disk. An empty path selects the embedded table.
func LoadFiles(filterPath, genePath string) (*Tables, error) {
	filterData := embeddedFilterTable
	if filterPath != "" {
		data, err := os.ReadFile(filterPath)
		if err != nil {
			return nil, mapper.E(mapper.KindIO, "read filter table", err)
		}
		filterData = data
	}

	geneData := embeddedGeneTable
	if genePath != "" {
		data, err := os.ReadFile(genePath)
		if err != nil {
			return nil, mapper.E(mapper.KindIO, "read gene table", err)
		}
		geneData = data
	}

	return parse(filterData, geneData)
}

func parse(filterData, geneData []byte) (*Tables, error) {
	header, rows, err := ParseFilterTable(bytes.NewReader(filterData))
	if err != nil {
		return nil, err
	}

	genes, err := ParseGeneRecords(geneData)
	if err != nil {
		return nil, err
	}

	return &Tables{
		FilterHeader: header,
		FilterRows:   rows,
		Genes:        genes,
		GeneData:     geneData,
	}, nil
}

// ParseFilterTable reads the filter matrix: a header row of model names
// followed by rows of Entrez IDs. Rows must all have the header's width.
func ParseFilterTable(r io.Reader) (header []string, rows [][]string, err error) {
	cr := csv.NewReader(r)

	header, err = cr.Read()
	if err == io.EOF {
		return nil, nil, mapper.E(mapper.KindParse, "parse filter table",
			&mapper.ParseError{Source: "filter table", Message: "empty table"})
	}
	if err != nil {
		return nil, nil, mapper.E(mapper.KindParse, "parse filter table", mapper.CSVParseError("filter table", err))
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, mapper.E(mapper.KindParse, "parse filter table", mapper.CSVParseError("filter table", err))
		}
		rows = append(rows, record)
	}

	return header, rows, nil
}

// ParseGeneRecords decodes the nomenclature table into typed records.
func ParseGeneRecords(data []byte) ([]mapper.GeneRecord, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, mapper.E(mapper.KindParse, "parse gene table",
			&mapper.ParseError{Source: "gene table", Message: "empty table"})
	}

	var records []mapper.GeneRecord
	if err := gocsv.UnmarshalCSV(csv.NewReader(bytes.NewReader(data)), &records); err != nil {
		return nil, mapper.E(mapper.KindParse, "parse gene table", mapper.CSVParseError("gene table", err))
	}
	return records, nil
}

// String summarizes the tables for logging.
func (t *Tables) String() string {
	return fmt.Sprintf("%d models, %d filter rows, %d genes", len(t.FilterHeader), len(t.FilterRows), len(t.Genes))
}
