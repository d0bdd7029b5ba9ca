package encoder

import (
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"
	"io"
)

const defaultJPEGQuality = 90

// EncodeJPG writes img as baseline jpeg. Transparent areas become white.
func EncodeJPG(w io.Writer, img image.Image, o EncodeOptions) error {
	quality := o.Quality
	if quality < 1 || quality > 100 {
		quality = defaultJPEGQuality
	}
	return jpeg.Encode(w, flatten(img), &jpeg.Options{Quality: quality})
}

// EncodePNG writes img as png
func EncodePNG(w io.Writer, img image.Image, o EncodeOptions) error {
	enc := png.Encoder{CompressionLevel: png.DefaultCompression}
	return enc.Encode(w, img)
}

// flatten composites images with an alpha channel onto white
func flatten(img image.Image) image.Image {
	if !hasAlpha(img) {
		return img
	}
	bounds := img.Bounds()
	dst := image.NewRGBA(bounds)
	draw.Draw(dst, bounds, &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	draw.Draw(dst, bounds, img, bounds.Min, draw.Over)
	return dst
}

func hasAlpha(img image.Image) bool {
	switch img.(type) {
	case *image.YCbCr, *image.Gray, *image.CMYK:
		return false
	}
	if o, ok := img.(interface{ Opaque() bool }); ok {
		return !o.Opaque()
	}
	return true
}
