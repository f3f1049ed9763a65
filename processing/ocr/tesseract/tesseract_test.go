package tesseract_test

import (
	"context"
	"image"
	"image/color"
	"image/draw"
	"os/exec"
	"path/filepath"
	"testing"

	"platescan/internal/config"
	"platescan/internal/imageio"
	"platescan/internal/logging"
	"platescan/internal/models"
	"platescan/processing/ocr"
	"platescan/processing/ocr/tesseract"
	"platescan/processing/pipeline"
	"platescan/processing/plate"

	"github.com/nfnt/resize"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const plateText = "KA01AB1234"

func ensureTesseractAvailable(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("tesseract"); err != nil {
		t.Skip("tesseract not installed in PATH")
	}
}

// renderPlate draws text in black on a white plate and upscales it so the
// glyphs are large enough for recognition.
func renderPlate(text string) image.Image {
	w, h := font.MeasureString(basicfont.Face7x13, text).Ceil()+20, 24
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	d := &font.Drawer{
		Dst:  img,
		Src:  image.Black,
		Face: basicfont.Face7x13,
		Dot:  fixed.P(10, 17),
	}
	d.DrawString(text)
	return resize.Resize(uint(w*4), uint(h*4), img, resize.NearestNeighbor)
}

type fixedDetector struct {
	box [4]float32
}

func (f fixedDetector) Detect(context.Context, image.Image, float32) ([]models.DetectionResult, error) {
	return []models.DetectionResult{{Label: "license_plate", Confidence: 0.88, Box: f.box}}, nil
}

func (fixedDetector) Close() error { return nil }

func TestRecognizeRenderedPlate(t *testing.T) {
	ensureTesseractAvailable(t)

	reading, err := tesseract.New([]string{"eng"}, "").Recognize(context.Background(), renderPlate(plateText))
	require.NoError(t, err)
	assert.Equal(t, plateText, ocr.CleanPlateText(reading.Text))
	assert.GreaterOrEqual(t, reading.Confidence, 0.0)
	assert.LessOrEqual(t, reading.Confidence, 1.0)
}

func TestFullPipelineOnRenderedScene(t *testing.T) {
	ensureTesseractAvailable(t)

	plateImg := renderPlate(plateText)
	pb := plateImg.Bounds()
	scene := image.NewRGBA(image.Rect(0, 0, pb.Dx()+200, pb.Dy()+200))
	draw.Draw(scene, scene.Bounds(), &image.Uniform{C: color.Gray{Y: 120}}, image.Point{}, draw.Src)
	at := image.Pt(100, 100)
	draw.Draw(scene, pb.Add(at), plateImg, pb.Min, draw.Src)

	path := filepath.Join(t.TempDir(), "scene.png")
	require.NoError(t, imageio.Save(path, scene))

	log := logging.Discard()
	cfg := config.NewDefaultConfig()
	cfg.Crop.TempDir = t.TempDir()

	det := fixedDetector{box: [4]float32{100, 100, float32(100 + pb.Dx()), float32(100 + pb.Dy())}}
	svc := pipeline.NewService(
		plate.NewService(det, log),
		ocr.NewRecognizer(log, tesseract.New([]string{"eng"}, "")),
		cfg.Crop,
		log,
	)

	res := svc.Process(context.Background(), path, 0.25, ocr.MethodAuto)
	require.True(t, res.Success, res.Error)
	require.NotEmpty(t, res.BestResults)
	assert.Equal(t, plateText, res.BestResults[0].LicensePlateText)
	assert.GreaterOrEqual(t, res.BestResults[0].OCRConfidence, 0.0)
}
