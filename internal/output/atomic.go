// Package output writes converted matrices to their destination.
package output

import (
	"bufio"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/inodb/cellfie-mapper/internal/mapper"
)

// defaultMode is the permission given to newly created outputs.
const defaultMode fs.FileMode = 0644

// AtomicFile buffers writes into a temporary file next to its destination and
// renames it over the destination on Commit. Until then the destination is
// left untouched.
type AtomicFile struct {
	dest string
	tmp  *os.File
	w    *bufio.Writer
	done bool
}

// CreateAtomic creates the temporary file for dest.
func CreateAtomic(dest string) (*AtomicFile, error) {
	dir, base := filepath.Split(dest)
	if dir == "" {
		dir = "."
	}

	tmp, err := os.CreateTemp(dir, "."+base+".tmp-*")
	if err != nil {
		return nil, mapper.E(mapper.KindIO, "create temporary output", err)
	}

	return &AtomicFile{
		dest: dest,
		tmp:  tmp,
		w:    bufio.NewWriter(tmp),
	}, nil
}

// Write implements io.Writer.
func (a *AtomicFile) Write(p []byte) (int, error) {
	if a.done {
		return 0, mapper.Errorf(mapper.KindIO, "write output", "%s already finished", a.dest)
	}
	return a.w.Write(p)
}

// Dest returns the destination path.
func (a *AtomicFile) Dest() string {
	return a.dest
}

// TempPath returns the path of the temporary file.
func (a *AtomicFile) TempPath() string {
	return a.tmp.Name()
}

// Commit flushes and syncs the temporary file, then renames it over the
// destination. An existing destination keeps its permissions.
func (a *AtomicFile) Commit() error {
	if a.done {
		return mapper.Errorf(mapper.KindIO, "commit output", "%s already finished", a.dest)
	}
	a.done = true

	if err := a.w.Flush(); err != nil {
		a.discard()
		return mapper.E(mapper.KindIO, "flush output", err)
	}
	if err := a.tmp.Sync(); err != nil {
		a.discard()
		return mapper.E(mapper.KindIO, "sync output", err)
	}
	if err := a.tmp.Close(); err != nil {
		os.Remove(a.tmp.Name())
		return mapper.E(mapper.KindIO, "close output", err)
	}

	mode := defaultMode
	if info, err := os.Stat(a.dest); err == nil {
		mode = info.Mode().Perm()
	} else if !errors.Is(err, fs.ErrNotExist) {
		os.Remove(a.tmp.Name())
		return mapper.E(mapper.KindIO, "stat output", err)
	}
	if err := os.Chmod(a.tmp.Name(), mode); err != nil {
		os.Remove(a.tmp.Name())
		return mapper.E(mapper.KindIO, "chmod output", err)
	}

	if err := os.Rename(a.tmp.Name(), a.dest); err != nil {
		os.Remove(a.tmp.Name())
		return mapper.E(mapper.KindIO, "rename output", err)
	}
	return nil
}

// Abort discards the temporary file. It is a no-op after Commit, so it can be
// deferred unconditionally.
func (a *AtomicFile) Abort() {
	if a.done {
		return
	}
	a.done = true
	a.discard()
}

func (a *AtomicFile) discard() {
	a.tmp.Close()
	os.Remove(a.tmp.Name())
}
