package detect

import (
	"image"

	"golang.org/x/image/draw"
)

// GrayFrom converts any decoded image into the single-channel grayscale
// buffer the pipeline works on. The input is returned unchanged if it is
// already grayscale.
func GrayFrom(src image.Image) *image.Gray {
	if gray, ok := src.(*image.Gray); ok {
		return gray
	}
	dst := image.NewGray(src.Bounds())
	draw.Draw(dst, dst.Bounds(), src, src.Bounds().Min, draw.Src)
	return dst
}
