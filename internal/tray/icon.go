package tray

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"sync"
)

var (
	iconOnce sync.Once
	iconData []byte
)

// Icon returns a 16x16 PNG of a keycap outline.
func Icon() []byte {
	iconOnce.Do(func() {
		iconData = drawKeycap(16)
	})
	return iconData
}

func drawKeycap(size int) []byte {
	img := image.NewNRGBA(image.Rect(0, 0, size, size))
	ink := color.NRGBA{A: 255}

	lo, hi := 1, size-2
	for i := lo + 1; i < hi; i++ {
		img.Set(i, lo, ink)
		img.Set(i, hi, ink)
		img.Set(lo, i, ink)
		img.Set(hi, i, ink)
	}
	// Inner key face.
	for x := 5; x < size-5; x++ {
		for y := 5; y < size-6; y++ {
			img.Set(x, y, ink)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil
	}
	return buf.Bytes()
}
