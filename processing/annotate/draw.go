package annotate

import (
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

var (
	Green  = color.RGBA{0, 255, 0, 255}
	Yellow = color.RGBA{255, 255, 0, 255}
	Red    = color.RGBA{255, 0, 0, 255}
	White  = color.RGBA{255, 255, 255, 255}
)

const labelPadding = 5

// ConfidenceColor grades a detection: green above 0.7, yellow above 0.5, red otherwise.
func ConfidenceColor(confidence float64) color.RGBA {
	switch {
	case confidence > 0.7:
		return Green
	case confidence > 0.5:
		return Yellow
	default:
		return Red
	}
}

// DrawRect outlines r with the given thickness growing inwards. Pixels outside
// img are skipped.
func DrawRect(img *image.RGBA, r image.Rectangle, col color.Color, thickness int) {
	bounds := img.Bounds()
	x1, y1, x2, y2 := r.Min.X, r.Min.Y, r.Max.X, r.Max.Y

	setPixel := func(x, y int) {
		if x >= bounds.Min.X && x < bounds.Max.X && y >= bounds.Min.Y && y < bounds.Max.Y {
			img.Set(x, y, col)
		}
	}

	for t := 0; t < thickness; t++ {
		for x := x1; x <= x2; x++ {
			setPixel(x, y1+t)
			setPixel(x, y2-t)
		}
		for y := y1; y <= y2; y++ {
			setPixel(x1+t, y)
			setPixel(x2-t, y)
		}
	}
}

func FillRect(img *image.RGBA, r image.Rectangle, col color.Color) {
	draw.Draw(img, r.Intersect(img.Bounds()), &image.Uniform{C: col}, image.Point{}, draw.Src)
}

// TextSize reports the pixel extent of text in the label face.
func TextSize(text string) (int, int) {
	face := basicfont.Face7x13
	width := font.MeasureString(face, text).Ceil()
	return width, face.Metrics().Ascent.Ceil()
}

// DrawLabel renders text on a filled background whose bottom-left corner sits
// at (x, y), the top-left corner of the box being labelled. The label is
// shifted down or left as needed to stay inside img.
func DrawLabel(img *image.RGBA, x, y int, text string, fg, bg color.Color) {
	w, h := TextSize(text)
	top := y - h - 2*labelPadding
	if top < img.Bounds().Min.Y {
		top = img.Bounds().Min.Y
	}
	if x+w > img.Bounds().Max.X {
		x = img.Bounds().Max.X - w
	}
	if x < img.Bounds().Min.X {
		x = img.Bounds().Min.X
	}

	FillRect(img, image.Rect(x, top, x+w, top+h+2*labelPadding), bg)

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(fg),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, top+h+labelPadding),
	}
	d.DrawString(text)
}

// Box draws an outlined rectangle with its label above it.
func Box(img *image.RGBA, r image.Rectangle, col color.Color, thickness int, label string) {
	DrawRect(img, r, col, thickness)
	if label != "" {
		DrawLabel(img, r.Min.X, r.Min.Y, label, White, col)
	}
}
