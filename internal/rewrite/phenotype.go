package rewrite

import (
	"bufio"
	"io"
	"strings"

	"github.com/inodb/cellfie-mapper/internal/mapper"
)

// Phenotype drops the leading column of every line in r, strips double quotes
// and writes the remaining fields, still joined by delim, to w. There is no
// header handling; empty lines are skipped.
func Phenotype(r io.Reader, w io.Writer, delim rune) (Stats, error) {
	var stats Stats
	br := bufio.NewReader(r)
	bw := bufio.NewWriter(w)

	for {
		line, readErr := br.ReadString('\n')
		if readErr != nil && readErr != io.EOF {
			return stats, mapper.E(mapper.KindIO, "read phenotype input", readErr)
		}
		if line == "" && readErr == io.EOF {
			break
		}
		stats.Read++

		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			stats.Empty++
		} else {
			if _, err := bw.WriteString(DropLeadingField(line, delim)); err != nil {
				return stats, mapper.E(mapper.KindIO, "write phenotype output", err)
			}
			if err := bw.WriteByte('\n'); err != nil {
				return stats, mapper.E(mapper.KindIO, "write phenotype output", err)
			}
			stats.Written++
		}

		if readErr == io.EOF {
			break
		}
	}

	if err := bw.Flush(); err != nil {
		return stats, mapper.E(mapper.KindIO, "write phenotype output", err)
	}
	return stats, nil
}

// DropLeadingField removes everything up to and including the first delimiter
// and strips double quotes. A line without a delimiter becomes empty.
func DropLeadingField(line string, delim rune) string {
	i := strings.IndexRune(line, delim)
	if i < 0 {
		return ""
	}
	return strings.ReplaceAll(line[i+len(string(delim)):], `"`, "")
}
