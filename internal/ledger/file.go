package ledger

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// FilePersister keeps the ledger as an indented JSON document on disk.
type FilePersister struct {
	path string
}

func NewFilePersister(path string) *FilePersister {
	return &FilePersister{path: path}
}

func (p *FilePersister) Load(ctx context.Context) ([]Slot, error) {
	b, err := os.ReadFile(p.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNoState
	}
	if err != nil {
		return nil, loadErr(err)
	}
	return decodeDocument(b)
}

// Save writes to a temp file in the same directory and renames it over the
// ledger so a crash never leaves a half-written document.
func (p *FilePersister) Save(ctx context.Context, slots []Slot) error {
	b, err := encodeDocument(slots)
	if err != nil {
		return writeErr(err)
	}
	dir := filepath.Dir(p.path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(p.path)+".*")
	if err != nil {
		return writeErr(err)
	}
	name := tmp.Name()
	if _, err := tmp.Write(append(b, '\n')); err != nil {
		tmp.Close()
		os.Remove(name)
		return writeErr(err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(name)
		return writeErr(err)
	}
	if err := os.Rename(name, p.path); err != nil {
		os.Remove(name)
		return writeErr(err)
	}
	return nil
}

func (p *FilePersister) Close() error { return nil }
