// Package input opens delimited text inputs and inspects their contents.
package input

import (
	"bufio"
	"io"
	"os"

	"github.com/klauspost/pgzip"

	"github.com/inodb/cellfie-mapper/internal/mapper"
)

// Stdin is the path that selects standard input.
const Stdin = "-"

var gzipMagic = []byte{0x1f, 0x8b}

// Open opens path for reading. Gzip-compressed files are decompressed
// transparently; "-" reads standard input.
func Open(path string) (io.ReadCloser, error) {
	if path == Stdin {
		return wrap(os.Stdin, nil)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, mapper.E(mapper.KindIO, "open input", err)
	}
	rc, err := wrap(f, f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return rc, nil
}

// wrap peeks at r's first bytes and adds a gzip reader when needed. closer,
// when non-nil, is closed along with the returned reader.
func wrap(r io.Reader, closer io.Closer) (io.ReadCloser, error) {
	br := bufio.NewReader(r)
	magic, err := br.Peek(len(gzipMagic))
	if err != nil && err != io.EOF {
		return nil, mapper.E(mapper.KindIO, "read input", err)
	}

	if len(magic) == len(gzipMagic) && magic[0] == gzipMagic[0] && magic[1] == gzipMagic[1] {
		gz, err := pgzip.NewReader(br)
		if err != nil {
			return nil, mapper.E(mapper.KindIO, "open gzip input", err)
		}
		return &readCloser{Reader: gz, closers: []io.Closer{gz, closer}}, nil
	}

	return &readCloser{Reader: br, closers: []io.Closer{closer}}, nil
}

type readCloser struct {
	io.Reader
	closers []io.Closer
}

func (rc *readCloser) Close() error {
	var first error
	for _, c := range rc.closers {
		if c == nil {
			continue
		}
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
