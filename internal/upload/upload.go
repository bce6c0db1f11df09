// Package upload stores multipart file parts on local disk and reports the
// URL paths they are served at. Event handling only ever sees those paths.
package upload

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// ImageKey is the logical name given to the first uploaded file.
const ImageKey = "image"

// PublicPrefix is the URL path uploads are served under. Stored paths are
// PublicPrefix followed by the file name.
const PublicPrefix = "/public/"

// ErrTooManyFiles is returned when a request carries more parts than allowed.
var ErrTooManyFiles = errors.New("too many files")

// Store writes uploads under a single directory.
type Store struct {
	dir      string
	maxFiles int
}

// NewStore creates dir if needed. maxFiles <= 0 means 10.
func NewStore(dir string, maxFiles int) (*Store, error) {
	if maxFiles <= 0 {
		maxFiles = 10
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Store{dir: dir, maxFiles: maxFiles}, nil
}

// Dir is the directory files are written to.
func (s *Store) Dir() string {
	return s.dir
}

// Save writes every file part of form to disk and returns the paths they are
// served at, under PublicPrefix. The first file is keyed
// "image", later ones "attachment_1", "attachment_2", ... Parts are taken in
// form-field name order, then in submission order within a field.
// A form without files yields an empty map.
func (s *Store) Save(form *multipart.Form) (map[string]string, error) {
	files := map[string]string{}
	if form == nil || len(form.File) == 0 {
		return files, nil
	}

	fields := make([]string, 0, len(form.File))
	total := 0
	for field, headers := range form.File {
		fields = append(fields, field)
		total += len(headers)
	}
	if total > s.maxFiles {
		return nil, fmt.Errorf("%w: %d > %d", ErrTooManyFiles, total, s.maxFiles)
	}
	sort.Strings(fields)

	n := 0
	for _, field := range fields {
		for _, fh := range form.File[field] {
			path, err := s.write(fh)
			if err != nil {
				s.Discard(files)
				return nil, err
			}
			key := ImageKey
			if n > 0 {
				key = fmt.Sprintf("attachment_%d", n)
			}
			files[key] = path
			n++
		}
	}
	return files, nil
}

// Discard removes previously saved files. Missing files and paths outside
// PublicPrefix are ignored.
func (s *Store) Discard(files map[string]string) {
	for _, stored := range files {
		if local, ok := s.LocalPath(stored); ok {
			_ = os.Remove(local)
		}
	}
}

// LocalPath maps a stored path back to the file on disk.
func (s *Store) LocalPath(stored string) (string, bool) {
	name, ok := strings.CutPrefix(stored, PublicPrefix)
	if !ok || name == "" || strings.ContainsAny(name, `/\`) {
		return "", false
	}
	return filepath.Join(s.dir, name), true
}

func (s *Store) write(fh *multipart.FileHeader) (string, error) {
	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	name := uuid.New().String() + strings.ToLower(filepath.Ext(fh.Filename))
	path := filepath.Join(s.dir, name)

	dst, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("create upload: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		_ = os.Remove(path)
		return "", fmt.Errorf("write upload: %w", err)
	}
	if err := dst.Close(); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("close upload: %w", err)
	}
	return PublicPrefix + name, nil
}
