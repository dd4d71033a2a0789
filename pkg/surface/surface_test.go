package surface_test

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/doodlemint/doodlemint/pkg/surface"
)

func TestCanvas(t *testing.T) {
	t.Run("starts empty", func(t *testing.T) {
		c := surface.NewCanvas(10, 10)
		require.True(t, c.IsEmpty())
	})

	t.Run("stroke marks the canvas as drawn", func(t *testing.T) {
		ink := color.RGBA{R: 0xff, A: 0xff}
		c := surface.NewCanvas(10, 10, surface.WithInk(ink))
		c.Stroke(surface.Point{X: 0, Y: 0}, surface.Point{X: 9, Y: 9})
		require.False(t, c.IsEmpty())

		img := c.Image()
		require.Equal(t, ink, color.RGBAModel.Convert(img.At(0, 0)))
		require.Equal(t, ink, color.RGBAModel.Convert(img.At(5, 5)))
		require.Equal(t, ink, color.RGBAModel.Convert(img.At(9, 9)))
		require.Equal(t, surface.DefaultBackground, color.RGBAModel.Convert(img.At(9, 0)))
	})

	t.Run("single point draws a dot", func(t *testing.T) {
		c := surface.NewCanvas(4, 4)
		c.Stroke(surface.Point{X: 2, Y: 1})
		require.Equal(t, surface.DefaultInk, color.RGBAModel.Convert(c.Image().At(2, 1)))
	})

	t.Run("strokes outside the canvas are clipped", func(t *testing.T) {
		c := surface.NewCanvas(4, 4)
		require.NotPanics(t, func() {
			c.Stroke(surface.Point{X: -10, Y: -10}, surface.Point{X: 20, Y: 20})
		})
		require.Equal(t, surface.DefaultInk, color.RGBAModel.Convert(c.Image().At(3, 3)))
	})

	t.Run("long strokes only walk the visible pixels", func(t *testing.T) {
		c := surface.NewCanvas(8, 8)
		done := make(chan struct{})
		go func() {
			defer close(done)
			c.Stroke(surface.Point{X: 0, Y: 0}, surface.Point{X: 1e9, Y: 1e9})
			c.Stroke(surface.Point{X: -1e9, Y: 7}, surface.Point{X: 1e9, Y: 7})
		}()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("stroke did not finish")
		}

		img := c.Image()
		for i := range 8 {
			require.Equal(t, surface.DefaultInk, color.RGBAModel.Convert(img.At(i, i)), "diagonal %d", i)
			require.Equal(t, surface.DefaultInk, color.RGBAModel.Convert(img.At(i, 7)), "row %d", i)
		}
		require.Equal(t, surface.DefaultBackground, color.RGBAModel.Convert(img.At(7, 0)))
	})

	t.Run("strokes entirely off the canvas draw nothing", func(t *testing.T) {
		c := surface.NewCanvas(8, 8)
		c.Stroke(surface.Point{X: 100, Y: -5}, surface.Point{X: 1e9, Y: 1e9})
		img := c.Image()
		for y := range 8 {
			for x := range 8 {
				require.Equal(t, surface.DefaultBackground, color.RGBAModel.Convert(img.At(x, y)))
			}
		}
	})

	t.Run("clear resets contents", func(t *testing.T) {
		c := surface.NewCanvas(4, 4)
		c.Stroke(surface.Point{X: 1, Y: 1}, surface.Point{X: 2, Y: 2})
		c.Clear()
		require.True(t, c.IsEmpty())
		require.Equal(t, surface.DefaultBackground, color.RGBAModel.Convert(c.Image().At(1, 1)))
	})

	t.Run("image is a snapshot", func(t *testing.T) {
		c := surface.NewCanvas(4, 4)
		snap := c.Image()
		c.Stroke(surface.Point{X: 0, Y: 0})
		require.Equal(t, surface.DefaultBackground, color.RGBAModel.Convert(snap.At(0, 0)))
	})

	t.Run("from image counts as drawn", func(t *testing.T) {
		src := image.NewRGBA(image.Rect(0, 0, 3, 2))
		src.Set(1, 1, color.RGBA{G: 0xff, A: 0xff})
		c := surface.FromImage(src)
		require.False(t, c.IsEmpty())
		require.Equal(t, image.Rect(0, 0, 3, 2), c.Image().Bounds())
		require.Equal(t, color.RGBA{G: 0xff, A: 0xff}, color.RGBAModel.Convert(c.Image().At(1, 1)))
	})
}

func TestPNGEncoder(t *testing.T) {
	enc := surface.PNGEncoder{}

	t.Run("empty surface is rejected", func(t *testing.T) {
		_, err := enc.Encode(surface.NewCanvas(8, 8))
		require.ErrorIs(t, err, surface.ErrEmpty)
	})

	t.Run("nil surface is rejected", func(t *testing.T) {
		_, err := enc.Encode(nil)
		require.ErrorIs(t, err, surface.ErrEmpty)
	})

	t.Run("zero sized surface is rejected", func(t *testing.T) {
		c := surface.NewCanvas(0, 0)
		c.Stroke(surface.Point{X: 0, Y: 0})
		_, err := enc.Encode(c)
		require.ErrorIs(t, err, surface.ErrEmpty)
	})

	t.Run("encodes a decodable png", func(t *testing.T) {
		c := surface.NewCanvas(16, 12)
		c.Stroke(surface.Point{X: 1, Y: 1}, surface.Point{X: 14, Y: 10})

		payload, err := enc.Encode(c)
		require.NoError(t, err)

		img, err := png.Decode(bytes.NewReader(payload))
		require.NoError(t, err)
		require.Equal(t, image.Rect(0, 0, 16, 12), img.Bounds())
		require.Equal(t, surface.DefaultInk, color.RGBAModel.Convert(img.At(1, 1)))
	})
}
