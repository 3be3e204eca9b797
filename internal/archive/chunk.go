// Package archive bundles finished class photos into bounded zip files.
package archive

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"
)

// ChunkByCount writes files into one or more zip archives holding at most
// maxCount entries each. A single archive goes to outputBase; more than one
// are named {stem}_part01.zip, {stem}_part02.zip, ... next to it.
// Entries are stored flat under their base name. Existing archives are
// overwritten.
func ChunkByCount(files []string, outputBase string, maxCount int) ([]string, error) {
	if maxCount < 1 {
		return nil, fmt.Errorf("max entries must be >= 1, got %d", maxCount)
	}
	if len(files) == 0 {
		return nil, nil
	}

	if len(files) <= maxCount {
		if err := writeZip(outputBase, files); err != nil {
			return nil, err
		}
		return []string{outputBase}, nil
	}

	dir := filepath.Dir(outputBase)
	stem := strings.TrimSuffix(filepath.Base(outputBase), filepath.Ext(outputBase))

	var written []string
	for part, start := 1, 0; start < len(files); part, start = part+1, start+maxCount {
		end := start + maxCount
		if end > len(files) {
			end = len(files)
		}
		target := filepath.Join(dir, fmt.Sprintf("%s_part%02d.zip", stem, part))
		if err := writeZip(target, files[start:end]); err != nil {
			return written, err
		}
		written = append(written, target)
	}
	return written, nil
}

func writeZip(target string, files []string) (err error) {
	out, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}
	defer func() {
		if cerr := out.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("close archive %s: %w", filepath.Base(target), cerr)
		}
	}()

	zw := zip.NewWriter(out)
	for _, f := range files {
		if err := addFile(zw, f); err != nil {
			zw.Close()
			return fmt.Errorf("add %s to %s: %w", filepath.Base(f), filepath.Base(target), err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("finalize archive %s: %w", filepath.Base(target), err)
	}
	return out.Sync()
}

func addFile(zw *zip.Writer, path string) error {
	src, err := os.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return err
	}
	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	header.Name = filepath.Base(path)
	header.Method = zip.Deflate

	w, err := zw.CreateHeader(header)
	if err != nil {
		return err
	}
	_, err = io.Copy(w, src)
	return err
}
