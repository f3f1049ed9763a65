package ocr

import (
	"image"
	"image/color"

	"github.com/nfnt/resize"
)

// PreprocessHeight is the crop height engines see after preprocessing.
const PreprocessHeight = 100

// Preprocess converts a plate crop to a binarised grayscale image scaled to
// PreprocessHeight. Pixels brighter than the mean become white.
func Preprocess(img image.Image) *image.Gray {
	b := img.Bounds()
	if b.Empty() {
		return image.NewGray(image.Rect(0, 0, 0, 0))
	}

	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			gray.Set(x-b.Min.X, y-b.Min.Y, color.GrayModel.Convert(img.At(x, y)))
		}
	}

	scaled := toGray(resize.Resize(0, PreprocessHeight, gray, resize.Bicubic))

	var sum int
	for _, p := range scaled.Pix {
		sum += int(p)
	}
	mean := uint8(sum / max(1, len(scaled.Pix)))
	for i, p := range scaled.Pix {
		if p > mean {
			scaled.Pix[i] = 255
		} else {
			scaled.Pix[i] = 0
		}
	}
	return scaled
}

func toGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok && g.Rect.Min == (image.Point{}) && g.Stride == g.Rect.Dx() {
		return g
	}
	b := img.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			out.Set(x-b.Min.X, y-b.Min.Y, img.At(x, y))
		}
	}
	return out
}
