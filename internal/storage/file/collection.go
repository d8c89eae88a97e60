// Package file implements the product and cart repositories on JSON files,
// one file per collection.
//
// Every mutation holds the collection's write lock while it re-reads the
// file, applies a change to one record, and atomically replaces the file
// (temp file + rename). Readers never observe a partially written file and
// need no lock.
package file

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
)

// collection is a JSON document stored in a single file.
type collection struct {
	path string
	mu   sync.Mutex // serializes writers
}

// read returns the file content, or nil when the file does not exist yet.
func (c *collection) read() ([]byte, error) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "read %s", c.path)
	}
	return data, nil
}

// decode reads the file and passes a decoder positioned at its content to fn.
// An empty or missing file is not passed to fn.
func (c *collection) decode(fn func(d *jx.Decoder) error) error {
	data, err := c.read()
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	if err := fn(jx.DecodeBytes(data)); err != nil {
		return errors.Wrapf(err, "decode %s", c.path)
	}
	return nil
}

// encode renders the document with fn and replaces the file.
func (c *collection) encode(fn func(e *jx.Encoder)) error {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	fn(e)
	return c.write(e.Bytes())
}

func (c *collection) write(data []byte) error {
	dir := filepath.Dir(c.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(c.path)+".*.tmp")
	if err != nil {
		return errors.Wrap(err, "create temp file")
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return errors.Wrapf(err, "write %s", tmp.Name())
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return errors.Wrapf(err, "sync %s", tmp.Name())
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrapf(err, "close %s", tmp.Name())
	}
	if err := os.Rename(tmp.Name(), c.path); err != nil {
		return errors.Wrapf(err, "replace %s", c.path)
	}
	return nil
}

// Ping reports whether dir exists and is a directory.
func Ping(_ context.Context, dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return errors.Wrap(err, "stat data dir")
	}
	if !info.IsDir() {
		return errors.Errorf("%s is not a directory", dir)
	}
	return nil
}

// ensureDir creates the data directory when missing.
func ensureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "create data dir %s", dir)
	}
	return nil
}
