package input

import (
	"io"

	"github.com/csimplestring/go-csv/detector"
)

// DefaultDelimiter is used when detection finds no candidate.
const DefaultDelimiter = ','

// sampleSize bounds how much of a file is inspected for delimiter detection.
const sampleSize = 64 * 1024

// DetectDelimiter returns the most likely field delimiter of the file at path.
func DetectDelimiter(path string) (rune, error) {
	rc, err := Open(path)
	if err != nil {
		return 0, err
	}
	defer rc.Close()

	return DetectDelimiterReader(io.LimitReader(rc, sampleSize)), nil
}

// DetectDelimiterReader returns the most likely delimiter in r, assuming
// double-quote enclosures.
func DetectDelimiterReader(r io.Reader) rune {
	d := detector.New()
	delimiters := d.DetectDelimiter(r, '"')

	if len(delimiters) > 0 && delimiters[0] != "" {
		return []rune(delimiters[0])[0]
	}
	return DefaultDelimiter
}
