// Package surface holds the drawing surface a token image is made from and
// the encoder that turns it into an image payload.
package surface

import (
	"errors"
	"image"
	"image/color"
	"image/draw"
	"math"
	"sync"
)

// ErrEmpty is returned when a surface holds nothing to encode.
var ErrEmpty = errors.New("surface has no drawable content")

// Surface is a drawing surface the mint pipeline can encode and clear.
type Surface interface {
	// Image returns a snapshot of the current surface contents.
	Image() image.Image
	// IsEmpty reports whether nothing has been drawn since the last clear.
	IsEmpty() bool
	// Clear resets the surface to its background.
	Clear()
}

const (
	DefaultWidth  = 350
	DefaultHeight = 350
)

var (
	DefaultBackground = color.RGBA{R: 0x32, G: 0x71, B: 0xbf, A: 0xff}
	DefaultInk        = color.RGBA{A: 0xff}
)

// Point is a pixel position on a canvas.
type Point struct {
	X, Y int
}

// Canvas is an in-memory raster [Surface]. It is safe for concurrent use.
type Canvas struct {
	mu         sync.Mutex
	img        *image.RGBA
	background color.Color
	ink        color.Color
	dirty      bool
}

var _ Surface = (*Canvas)(nil)

// Option configures a Canvas.
type Option func(c *Canvas)

// WithBackground sets the color the canvas is cleared to.
func WithBackground(bg color.Color) Option {
	return func(c *Canvas) {
		c.background = bg
	}
}

// WithInk sets the stroke color.
func WithInk(ink color.Color) Option {
	return func(c *Canvas) {
		c.ink = ink
	}
}

// NewCanvas creates a blank canvas of the given size.
func NewCanvas(width, height int, opts ...Option) *Canvas {
	c := &Canvas{
		img:        image.NewRGBA(image.Rect(0, 0, width, height)),
		background: DefaultBackground,
		ink:        DefaultInk,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.fill()
	return c
}

// FromImage creates a canvas holding a copy of img. A non-empty image counts
// as drawn content.
func FromImage(img image.Image, opts ...Option) *Canvas {
	b := img.Bounds()
	c := NewCanvas(b.Dx(), b.Dy(), opts...)
	draw.Draw(c.img, c.img.Bounds(), img, b.Min, draw.Over)
	c.dirty = !b.Empty()
	return c
}

// Stroke draws connected line segments through the given points. A single
// point draws a dot. Pixels outside the canvas are clipped.
func (c *Canvas) Stroke(points ...Point) {
	if len(points) == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(points) == 1 {
		c.img.Set(points[0].X, points[0].Y, c.ink)
	}
	for i := 1; i < len(points); i++ {
		c.line(points[i-1], points[i])
	}
	c.dirty = true
}

// line rasterizes the visible part of a segment with Bresenham's algorithm.
func (c *Canvas) line(from, to Point) {
	from, to, ok := clip(from, to, c.img.Bounds())
	if !ok {
		return
	}
	dx := abs(to.X - from.X)
	dy := -abs(to.Y - from.Y)
	sx, sy := 1, 1
	if from.X > to.X {
		sx = -1
	}
	if from.Y > to.Y {
		sy = -1
	}
	e := dx + dy
	x, y := from.X, from.Y
	for {
		c.img.Set(x, y, c.ink)
		if x == to.X && y == to.Y {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x += sx
		}
		if e2 <= dx {
			e += dx
			y += sy
		}
	}
}

func (c *Canvas) Image() image.Image {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := image.NewRGBA(c.img.Bounds())
	copy(cp.Pix, c.img.Pix)
	return cp
}

func (c *Canvas) IsEmpty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.dirty
}

func (c *Canvas) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fill()
	c.dirty = false
}

func (c *Canvas) fill() {
	draw.Draw(c.img, c.img.Bounds(), image.NewUniform(c.background), image.Point{}, draw.Src)
}

// clip trims a segment to the pixels of r with Liang-Barsky. ok is false
// when no part of the segment lies inside r.
func clip(from, to Point, r image.Rectangle) (_, _ Point, ok bool) {
	x0, y0 := float64(from.X), float64(from.Y)
	dx, dy := float64(to.X)-x0, float64(to.Y)-y0
	t0, t1 := 0.0, 1.0
	for _, e := range [4]struct{ p, q float64 }{
		{-dx, x0 - float64(r.Min.X)},
		{dx, float64(r.Max.X-1) - x0},
		{-dy, y0 - float64(r.Min.Y)},
		{dy, float64(r.Max.Y-1) - y0},
	} {
		if e.p == 0 {
			if e.q < 0 {
				return from, to, false
			}
			continue
		}
		t := e.q / e.p
		if e.p < 0 {
			if t > t1 {
				return from, to, false
			}
			t0 = max(t0, t)
		} else {
			if t < t0 {
				return from, to, false
			}
			t1 = min(t1, t)
		}
	}
	at := func(t float64) Point {
		return Point{X: int(math.Round(x0 + t*dx)), Y: int(math.Round(y0 + t*dy))}
	}
	if t0 > 0 {
		from = at(t0)
	}
	if t1 < 1 {
		to = at(t1)
	}
	return from, to, true
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
