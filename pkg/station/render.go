package station

import (
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/image/draw"

	"github.com/marcus/portrait/internal/config"
	"github.com/marcus/portrait/internal/imaging"
)

// Guides describes what is drawn over the live preview
type Guides struct {
	Mode    string  // config.OverlayThirds, config.OverlayCrosshair or config.OverlayNone
	Opacity float64 // 0..1
	Image   image.Image
	Aspect  config.AspectRatio
}

// fitCells returns the largest cols x rows (rows of two pixels) that fits
// maxCols x maxRows and keeps the aspect ratio of b.
func fitCells(b image.Rectangle, maxCols, maxRows int) (int, int) {
	if b.Dx() == 0 || b.Dy() == 0 || maxCols < 1 || maxRows < 1 {
		return 0, 0
	}
	cols := maxCols
	rows := cols * b.Dy() / b.Dx() / 2
	if rows > maxRows {
		rows = maxRows
		cols = rows * 2 * b.Dx() / b.Dy()
	}
	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}
	return cols, rows
}

// scaleTo resizes img to fit the cell grid, one pixel per half cell.
func scaleTo(img image.Image, maxCols, maxRows int) *image.RGBA {
	cols, rows := fitCells(img.Bounds(), maxCols, maxRows)
	dst := image.NewRGBA(image.Rect(0, 0, cols, rows*2))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}

// ApplyGuides draws composition guides and the overlay image onto dst.
func ApplyGuides(dst *image.RGBA, g Guides) {
	alpha := g.Opacity
	if alpha <= 0 {
		return
	}
	if alpha > 1 {
		alpha = 1
	}
	b := dst.Bounds()

	if g.Image != nil {
		scaled := image.NewRGBA(b)
		draw.ApproxBiLinear.Scale(scaled, b, g.Image, g.Image.Bounds(), draw.Src, nil)
		mask := image.NewUniform(color.Alpha{A: uint8(alpha * 255)})
		draw.DrawMask(dst, b, scaled, b.Min, mask, image.Point{}, draw.Over)
	}

	frame := imaging.CropCenter(dst, g.Aspect).Bounds()
	w, h := frame.Dx(), frame.Dy()
	switch g.Mode {
	case config.OverlayThirds:
		for _, x := range []int{frame.Min.X + w/3, frame.Min.X + 2*w/3} {
			vline(dst, x, frame.Min.Y, frame.Max.Y, alpha)
		}
		for _, y := range []int{frame.Min.Y + h/3, frame.Min.Y + 2*h/3} {
			hline(dst, y, frame.Min.X, frame.Max.X, alpha)
		}
	case config.OverlayCrosshair:
		cx, cy := frame.Min.X+w/2, frame.Min.Y+h/2
		arm := min(w, h) / 8
		hline(dst, cy, cx-arm, cx+arm+1, alpha)
		vline(dst, cx, cy-arm, cy+arm+1, alpha)
	}
	if frame != b {
		hline(dst, frame.Min.Y, frame.Min.X, frame.Max.X, alpha)
		hline(dst, frame.Max.Y-1, frame.Min.X, frame.Max.X, alpha)
		vline(dst, frame.Min.X, frame.Min.Y, frame.Max.Y, alpha)
		vline(dst, frame.Max.X-1, frame.Min.Y, frame.Max.Y, alpha)
	}
}

func blendWhite(dst *image.RGBA, x, y int, alpha float64) {
	if !(image.Point{X: x, Y: y}.In(dst.Bounds())) {
		return
	}
	c := dst.RGBAAt(x, y)
	mix := func(v uint8) uint8 { return uint8(float64(v)*(1-alpha) + 255*alpha) }
	dst.SetRGBA(x, y, color.RGBA{R: mix(c.R), G: mix(c.G), B: mix(c.B), A: 255})
}

func hline(dst *image.RGBA, y, x0, x1 int, alpha float64) {
	for x := x0; x < x1; x++ {
		blendWhite(dst, x, y, alpha)
	}
}

func vline(dst *image.RGBA, x, y0, y1 int, alpha float64) {
	for y := y0; y < y1; y++ {
		blendWhite(dst, x, y, alpha)
	}
}

// RenderImage draws img into at most maxCols x maxRows terminal cells
// using upper half blocks, two pixels per cell.
func RenderImage(img image.Image, maxCols, maxRows int, g *Guides) string {
	if img == nil {
		return ""
	}
	px := scaleTo(img, maxCols, maxRows)
	if g != nil {
		ApplyGuides(px, *g)
	}
	return renderBlocks(px)
}

func renderBlocks(px *image.RGBA) string {
	b := px.Bounds()
	var sb strings.Builder
	for y := b.Min.Y; y+1 < b.Max.Y; y += 2 {
		if y > b.Min.Y {
			sb.WriteByte('\n')
		}
		for x := b.Min.X; x < b.Max.X; x++ {
			top, bottom := px.RGBAAt(x, y), px.RGBAAt(x, y+1)
			sb.WriteString(lipgloss.NewStyle().
				Foreground(hexColor(top)).
				Background(hexColor(bottom)).
				Render("▀"))
		}
	}
	return sb.String()
}

func hexColor(c color.RGBA) lipgloss.Color {
	return lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B))
}
