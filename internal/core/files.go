package core

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ErrFileTooLarge is returned by Save when the upload exceeds its limit.
var ErrFileTooLarge = errors.New("file too large")

// LocalFiles resolves and stores import files under one directory.
type LocalFiles struct {
	Dir string
}

// Path returns the location of name inside Dir. Names that escape the
// directory or do not exist yield ErrFileNotFound.
func (l LocalFiles) Path(name string) (string, error) {
	clean := filepath.Clean(name)
	if name == "" || filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrFileNotFound, name)
	}

	path := filepath.Join(l.Dir, clean)
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) || (err == nil && info.IsDir()) {
		return "", fmt.Errorf("%w: %s", ErrFileNotFound, name)
	}
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", name, err)
	}
	return path, nil
}

// Save copies r into Dir under a unique name derived from original and
// returns the stored name. maxBytes <= 0 means unlimited.
func (l LocalFiles) Save(original string, r io.Reader, maxBytes int64) (string, error) {
	base := filepath.Base(filepath.Clean("/" + original))
	if base == "/" || base == "." {
		return "", fmt.Errorf("%w: empty file name", ErrInvalidJob)
	}
	if err := os.MkdirAll(l.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}

	stored := uuid.NewString() + "_" + base
	path := filepath.Join(l.Dir, stored)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", stored, err)
	}

	src := r
	if maxBytes > 0 {
		src = io.LimitReader(r, maxBytes+1)
	}
	n, err := io.Copy(f, src)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil && maxBytes > 0 && n > maxBytes {
		err = fmt.Errorf("%w: limit is %d bytes", ErrFileTooLarge, maxBytes)
	}
	if err != nil {
		os.Remove(path)
		return "", err
	}
	return stored, nil
}
