// Package imaging turns a raw capture into the final portrait JPEG.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"

	"golang.org/x/image/draw"

	"github.com/marcus/portrait/internal/config"
)

// Options describes the target image
type Options struct {
	Width   int
	Height  int
	Quality int
	Aspect  config.AspectRatio
	// Comment is written as a JPEG COM segment when non-empty.
	Comment string
}

// OptionsFromSettings maps the persisted settings onto processor options.
func OptionsFromSettings(s config.Settings) Options {
	return Options{
		Width:   s.Image.Width,
		Height:  s.Image.Height,
		Quality: s.Image.Quality,
		Aspect:  s.Image.Aspect,
		Comment: CopyrightComment(s.Copyright),
	}
}

// CopyrightComment joins artist and notice for the COM segment.
func CopyrightComment(c config.CopyrightSettings) string {
	switch {
	case c.Artist != "" && c.Notice != "":
		return c.Artist + " - " + c.Notice
	case c.Artist != "":
		return c.Artist
	default:
		return c.Notice
	}
}

// Processor rewrites src into dest
type Processor interface {
	Process(src, dest string, opts Options) error
}

// JPEGProcessor crops, resizes and re-encodes with x/image scaling.
type JPEGProcessor struct{}

// Process decodes src, center-crops it to opts.Aspect, scales it to
// Width x Height and writes a JPEG to dest via temp file and rename.
// src and dest may be the same path.
func (JPEGProcessor) Process(src, dest string, opts Options) error {
	img, err := Decode(src)
	if err != nil {
		return err
	}

	img = CropCenter(img, opts.Aspect)
	img = Resize(img, opts.Width, opts.Height)

	quality := opts.Quality
	if quality < 1 || quality > 100 {
		quality = jpeg.DefaultQuality
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return fmt.Errorf("encode jpeg: %w", err)
	}
	data := buf.Bytes()
	if opts.Comment != "" {
		data, err = InsertComment(data, opts.Comment)
		if err != nil {
			return err
		}
	}
	return writeAtomic(dest, data)
}

// Decode reads any registered image format from path.
func Decode(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return img, nil
}

// CropCenter returns the largest centered region of img with ratio r.
// A zero ratio returns img unchanged.
func CropCenter(img image.Image, r config.AspectRatio) image.Image {
	if r.IsZero() {
		return img
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return img
	}

	cw, ch := w, h
	// compare w/h against r.W/r.H without floats
	if w*r.H > h*r.W {
		cw = h * r.W / r.H
	} else {
		ch = w * r.H / r.W
	}
	if cw == w && ch == h {
		return img
	}

	x0 := b.Min.X + (w-cw)/2
	y0 := b.Min.Y + (h-ch)/2
	rect := image.Rect(x0, y0, x0+cw, y0+ch)

	if sub, ok := img.(interface {
		SubImage(image.Rectangle) image.Image
	}); ok {
		return sub.SubImage(rect)
	}
	dst := image.NewRGBA(image.Rect(0, 0, cw, ch))
	draw.Draw(dst, dst.Bounds(), img, rect.Min, draw.Src)
	return dst
}

// Resize scales img to exactly w x h. Non-positive sizes keep img.
func Resize(img image.Image, w, h int) image.Image {
	if w <= 0 || h <= 0 {
		return img
	}
	b := img.Bounds()
	if b.Dx() == w && b.Dy() == h {
		return img
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// maxComment is the payload limit of one COM segment.
const maxComment = 0xFFFF - 2

// InsertComment places a COM segment right after the SOI marker.
func InsertComment(jpg []byte, comment string) ([]byte, error) {
	if len(jpg) < 2 || jpg[0] != 0xFF || jpg[1] != 0xD8 {
		return nil, errors.New("insert comment: not a jpeg stream")
	}
	payload := []byte(comment)
	if len(payload) > maxComment {
		payload = payload[:maxComment]
	}
	n := len(payload) + 2

	out := make([]byte, 0, len(jpg)+n+2)
	out = append(out, jpg[:2]...)
	out = append(out, 0xFF, 0xFE, byte(n>>8), byte(n))
	out = append(out, payload...)
	out = append(out, jpg[2:]...)
	return out, nil
}

// ReadComment returns the first COM segment payload, if any.
func ReadComment(jpg []byte) (string, bool) {
	if len(jpg) < 4 || jpg[0] != 0xFF || jpg[1] != 0xD8 {
		return "", false
	}
	i := 2
	for i+4 <= len(jpg) {
		if jpg[i] != 0xFF {
			return "", false
		}
		marker := jpg[i+1]
		if marker == 0xDA || marker == 0xD9 { // start of scan / end of image
			return "", false
		}
		n := int(jpg[i+2])<<8 | int(jpg[i+3])
		if n < 2 || i+2+n > len(jpg) {
			return "", false
		}
		if marker == 0xFE {
			return string(jpg[i+4 : i+2+n]), true
		}
		i += 2 + n
	}
	return "", false
}

func writeAtomic(dest string, data []byte) error {
	dir := filepath.Dir(dest)
	tmp, err := os.CreateTemp(dir, ".portrait-*.jpg")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}
