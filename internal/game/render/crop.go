package render

import (
	"image"
	"math"
)

// CropRect returns the square region of an image with the given bounds that
// ends up in a slot.
//
// Portrait and square images keep their full width and are anchored to the
// bottom. Landscape images use an edge of ratio*height, centered horizontally
// and anchored to the top. Both images of a pair go through the same policy.
func CropRect(b image.Rectangle, ratio float64) image.Rectangle {
	w, h := b.Dx(), b.Dy()
	if w <= h {
		return image.Rect(b.Min.X, b.Min.Y+h-w, b.Min.X+w, b.Max.Y)
	}

	edge := int(math.Round(float64(h) * ratio))
	if edge < 1 {
		edge = 1
	}
	x := b.Min.X + (w-edge)/2
	return image.Rect(x, b.Min.Y, x+edge, b.Min.Y+edge)
}
