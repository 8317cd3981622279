package processing

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
)

const (
	placeholderWidth  = 640
	placeholderHeight = 360
)

// placeholderPalette is cycled through by slide position.
var placeholderPalette = []color.RGBA{
	{66, 133, 244, 255}, // blue
	{52, 168, 83, 255},  // green
	{251, 188, 4, 255},  // orange
	{154, 83, 212, 255}, // purple
	{26, 188, 156, 255}, // teal
	{234, 67, 149, 255}, // pink
}

// PlaceholderColor returns the base colour used for the placeholder of a slide.
func PlaceholderColor(slideIndex int) color.RGBA {
	n := len(placeholderPalette)
	return placeholderPalette[((slideIndex%n)+n)%n]
}

// PlaceholderImage renders the deterministic stand-in PNG for a slide: the
// palette colour with a gradient over x and y.
func PlaceholderImage(slideIndex int) []byte {
	base := PlaceholderColor(slideIndex)
	img := image.NewRGBA(image.Rect(0, 0, placeholderWidth, placeholderHeight))

	for y := 0; y < placeholderHeight; y++ {
		for x := 0; x < placeholderWidth; x++ {
			img.SetRGBA(x, y, color.RGBA{
				R: clampChannel(int(base.R) + y/8),
				G: clampChannel(int(base.G) + x/15),
				B: clampChannel(int(base.B) - y/10),
				A: 255,
			})
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		// An in-memory RGBA encode does not fail.
		panic(err)
	}
	return buf.Bytes()
}

func clampChannel(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
