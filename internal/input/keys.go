package input

import (
	"bufio"
	"io"
	"strings"

	"github.com/inodb/cellfie-mapper/internal/mapper"
)

// LeadingKey returns the text before the first delimiter with double quotes
// removed. A line without a delimiter is its own key.
func LeadingKey(line string, delim rune) string {
	key := line
	if i := strings.IndexRune(line, delim); i >= 0 {
		key = line[:i]
	}
	return strings.ReplaceAll(key, `"`, "")
}

// ScanKeys returns the distinct leading keys of r's lines in first-seen
// order. Empty lines are ignored; skipHeader drops the first line.
func ScanKeys(r io.Reader, delim rune, skipHeader bool) ([]string, error) {
	br := bufio.NewReader(r)
	seen := make(map[string]bool)
	var keys []string
	first := true

	for {
		line, err := br.ReadString('\n')
		if err != nil && err != io.EOF {
			return nil, mapper.E(mapper.KindIO, "scan input", err)
		}
		if line == "" && err == io.EOF {
			break
		}

		if first && skipHeader {
			first = false
			if err == io.EOF {
				break
			}
			continue
		}
		first = false

		line = strings.TrimRight(line, "\r\n")
		if line != "" {
			if key := LeadingKey(line, delim); key != "" && !seen[key] {
				seen[key] = true
				keys = append(keys, key)
			}
		}

		if err == io.EOF {
			break
		}
	}

	return keys, nil
}
