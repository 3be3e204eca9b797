// Package paths derives the on-disk location of every captured photo.
package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/marcus/portrait/internal/models"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const photoExt = ".jpg"

var sharpS = strings.NewReplacer("ß", "ss", "ẞ", "SS")

// Sanitize reduces name to ASCII letters, digits, '-' and '_'.
// Diacritics fold to their base letter, ß expands to "ss".
func Sanitize(name string) string {
	name = sharpS.Replace(name)

	fold := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(fold, name)
	if err != nil {
		folded = name
	}

	var b strings.Builder
	for _, r := range folded {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Layout resolves output directories below a base path
type Layout struct {
	Base string
}

// ClassDir returns {base}/{location}/{class} without creating it.
func (l Layout) ClassDir(location, className string) string {
	return filepath.Join(l.Base, Sanitize(location), Sanitize(className))
}

// WalkInDir returns {base}/Neue Lernende/{location}/{class} without creating it.
func (l Layout) WalkInDir(location, className string) string {
	return filepath.Join(l.Base, models.WalkInFolder, Sanitize(location), Sanitize(className))
}

// PhotoPath creates the target directory for p and returns a file path
// that does not exist yet.
func (l Layout) PhotoPath(p models.Person, location string) (string, error) {
	var dir, name string
	if p.IsNew {
		dir = l.WalkInDir(location, p.ClassName)
		name = Sanitize(p.FirstName) + "_" + Sanitize(p.LastName) + photoExt
	} else {
		id := Sanitize(p.StudentID)
		if id == "" {
			return "", fmt.Errorf("person %q has no usable student id", p.DisplayName())
		}
		dir = l.ClassDir(location, p.ClassName)
		name = id + photoExt
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	return UniqueFilePath(dir, name), nil
}

// UniqueFilePath returns dir/name, or dir/stem_N.ext for the lowest N >= 1
// when that path is already taken.
func UniqueFilePath(dir, name string) string {
	candidate := filepath.Join(dir, name)
	if !exists(candidate) {
		return candidate
	}

	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for i := 1; ; i++ {
		candidate = filepath.Join(dir, fmt.Sprintf("%s_%d%s", stem, i, ext))
		if !exists(candidate) {
			return candidate
		}
	}
}

// ListPhotos returns the photos directly inside dir, sorted by name.
// A missing directory yields an empty list.
func ListPhotos(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), photoExt) {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	return files, nil
}

func exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}
