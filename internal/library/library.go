// Package library lists and resolves PDFs under a server-side root directory.
package library

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"example.com/pdfmerge/internal/source"
)

var (
	// ErrOutsideRoot is returned for paths escaping the root.
	ErrOutsideRoot = errors.New("path escapes library root")
	// ErrNotFile is returned for missing or non-regular files.
	ErrNotFile = errors.New("not a regular file")
)

// Item is one PDF under the root.
type Item struct {
	Path string    `json:"-"`
	Rel  string    `json:"rel"` // slash-separated, relative to the root
	Size int64     `json:"size"`
	Mod  time.Time `json:"mod"`
}

// Scan walks root for *.pdf files, newest first, stopping after limit files
// when limit > 0.
func Scan(root string, limit int) ([]Item, error) {
	var items []Item
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(strings.ToLower(d.Name()), source.ExtPDF) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		rel, _ := filepath.Rel(root, p)
		items = append(items, Item{
			Path: p,
			Rel:  filepath.ToSlash(rel),
			Size: info.Size(),
			Mod:  info.ModTime(),
		})
		if limit > 0 && len(items) >= limit {
			return filepath.SkipAll
		}
		return nil
	})
	sort.SliceStable(items, func(i, j int) bool { return items[i].Mod.After(items[j].Mod) })
	return items, err
}

// Path maps a slash-separated relative path to an absolute path inside root.
func Path(root, rel string) (string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}
	ap, err := filepath.Abs(filepath.Join(absRoot, filepath.FromSlash(rel)))
	if err != nil {
		return "", err
	}
	if !strings.HasPrefix(ap+string(os.PathSeparator), absRoot+string(os.PathSeparator)) || ap == absRoot {
		return "", ErrOutsideRoot
	}
	return ap, nil
}

// Resolve returns a descriptor for rel under root.
func Resolve(root, rel string) (source.Descriptor, error) {
	ap, err := Path(root, rel)
	if err != nil {
		return source.Descriptor{}, err
	}
	st, err := os.Stat(ap)
	if err != nil || !st.Mode().IsRegular() {
		return source.Descriptor{}, ErrNotFile
	}
	d, err := source.FromFile(ap)
	if err != nil {
		return source.Descriptor{}, err
	}
	d.Name = filepath.Base(ap)
	return d, nil
}
