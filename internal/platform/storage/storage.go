// Package storage keeps uploaded file content on the local filesystem under
// generated names. Metadata lives in the database.
package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

var ErrTooLarge = errors.New("file exceeds size limit")

type Stored struct {
	Name     string
	Size     int64
	Checksum string
}

type Local struct {
	root string
}

func NewLocal(root string) (*Local, error) {
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &Local{root: root}, nil
}

// Save streams r to disk, enforcing maxBytes when positive. Partial files
// are removed on failure.
func (l *Local) Save(r io.Reader, ext string, maxBytes int64) (Stored, error) {
	name := uuid.NewString() + ext
	path := filepath.Join(l.root, name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o640)
	if err != nil {
		return Stored{}, err
	}

	hasher := sha256.New()
	src := r
	if maxBytes > 0 {
		src = io.LimitReader(r, maxBytes+1)
	}
	size, copyErr := io.Copy(io.MultiWriter(f, hasher), src)
	closeErr := f.Close()
	switch {
	case copyErr != nil:
		_ = os.Remove(path)
		return Stored{}, copyErr
	case closeErr != nil:
		_ = os.Remove(path)
		return Stored{}, closeErr
	case maxBytes > 0 && size > maxBytes:
		_ = os.Remove(path)
		return Stored{}, ErrTooLarge
	}
	return Stored{Name: name, Size: size, Checksum: hex.EncodeToString(hasher.Sum(nil))}, nil
}

func (l *Local) Open(name string) (*os.File, error) {
	return os.Open(l.path(name))
}

func (l *Local) Remove(name string) error {
	err := os.Remove(l.path(name))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func (l *Local) path(name string) string {
	return filepath.Join(l.root, filepath.Base(name))
}
