// Package texts resolves request names to documents in the text directory.
// A name is served only if a regular file of that name is present in the
// directory listing, so names can never escape the directory.
package texts

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/wordfreq/pkg/errors"
)

// Info describes one text.
type Info struct {
	Name    string    `json:"name"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}

// Library is a directory of plain-text documents.
type Library struct {
	dir string
	ext string
}

// NewLibrary returns a Library over dir. Only files ending in ext are
// listed; an empty ext lists every regular file.
func NewLibrary(dir, ext string) *Library {
	return &Library{dir: dir, ext: ext}
}

// Dir returns the library directory.
func (l *Library) Dir() string { return l.dir }

// List returns the texts in the directory sorted by name.
func (l *Library) List() ([]Info, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, apperrors.IO("listing texts", err)
	}
	infos := make([]Info, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() || !strings.HasSuffix(e.Name(), l.ext) {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			continue
		}
		infos = append(infos, Info{Name: e.Name(), Size: fi.Size(), ModTime: fi.ModTime()})
	}
	slices.SortFunc(infos, func(a, b Info) int { return strings.Compare(a.Name, b.Name) })
	return infos, nil
}

// Resolve maps a request name to a listed text. The name may omit the
// library extension, so "promessi" resolves to "promessi.txt".
func (l *Library) Resolve(name string) (Info, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return Info{}, fmt.Errorf("%w: text %q", apperrors.ErrNotFound, name)
	}
	infos, err := l.List()
	if err != nil {
		return Info{}, err
	}
	for _, candidate := range []string{name, name + l.ext} {
		if i, ok := slices.BinarySearchFunc(infos, candidate, func(info Info, target string) int {
			return strings.Compare(info.Name, target)
		}); ok {
			return infos[i], nil
		}
	}
	return Info{}, fmt.Errorf("%w: text %q", apperrors.ErrNotFound, name)
}

// Open resolves name and opens the text for reading.
func (l *Library) Open(name string) (io.ReadCloser, Info, error) {
	info, err := l.Resolve(name)
	if err != nil {
		return nil, Info{}, err
	}
	f, err := os.Open(filepath.Join(l.dir, info.Name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, Info{}, fmt.Errorf("%w: text %q", apperrors.ErrNotFound, name)
		}
		return nil, Info{}, apperrors.IO("opening text "+info.Name, err)
	}
	return f, info, nil
}
