// Package storage keeps uploaded files on the local filesystem.
package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrInvalidName is returned for names that are empty or would escape the storage root
var ErrInvalidName = errors.New("invalid file name")

// FileInfo describes a stored file
type FileInfo struct {
	Name    string
	Size    int64
	ModTime time.Time
}

// Store is the file backend used by the upload services
type Store interface {
	Save(name string, r io.Reader) (int64, error)
	Open(name string) (io.ReadCloser, error)
	Remove(name string) error
	List() ([]FileInfo, error)
	Path(name string) string
}

// Disk stores files flat inside a single directory
type Disk struct {
	root string
}

// NewDisk creates root if needed and returns a Disk rooted there
func NewDisk(root string) (*Disk, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Disk{root: root}, nil
}

// Root returns the directory files are written to
func (d *Disk) Root() string {
	return d.root
}

func validName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return filepath.Base(name) == name && !strings.ContainsAny(name, `/\`)
}

// Path returns the absolute location of name
func (d *Disk) Path(name string) string {
	return filepath.Join(d.root, name)
}

// Save writes r to name through a temp file so readers never see a partial file
func (d *Disk) Save(name string, r io.Reader) (int64, error) {
	if !validName(name) {
		return 0, ErrInvalidName
	}

	tmp, err := os.CreateTemp(d.root, ".upload-*")
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}
	n, err := io.Copy(tmp, r)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(tmp.Name())
		return 0, fmt.Errorf("write %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), d.Path(name)); err != nil {
		_ = os.Remove(tmp.Name())
		return 0, fmt.Errorf("rename %s: %w", name, err)
	}
	return n, nil
}

// Open opens a stored file for reading
func (d *Disk) Open(name string) (io.ReadCloser, error) {
	if !validName(name) {
		return nil, ErrInvalidName
	}
	return os.Open(d.Path(name))
}

// Remove deletes name. Removing a file that does not exist is not an error.
func (d *Disk) Remove(name string) error {
	if !validName(name) {
		return ErrInvalidName
	}
	if err := os.Remove(d.Path(name)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// List returns the regular files in the root, skipping in-flight temp files
func (d *Disk) List() ([]FileInfo, error) {
	entries, err := os.ReadDir(d.root)
	if err != nil {
		return nil, err
	}
	files := make([]FileInfo, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() || strings.HasPrefix(entry.Name(), ".upload-") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, FileInfo{Name: entry.Name(), Size: info.Size(), ModTime: info.ModTime()})
	}
	return files, nil
}
