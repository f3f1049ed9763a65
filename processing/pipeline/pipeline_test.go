package pipeline

import (
	"context"
	"errors"
	"image"
	"os"
	"path/filepath"
	"testing"

	"platescan/internal/config"
	"platescan/internal/imageio"
	"platescan/internal/logging"
	"platescan/internal/models"
	"platescan/processing/annotate"
	"platescan/processing/ocr"
	"platescan/processing/plate"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDetector struct {
	dets []models.DetectionResult
}

func (f *fakeDetector) Detect(context.Context, image.Image, float32) ([]models.DetectionResult, error) {
	return f.dets, nil
}

func (f *fakeDetector) Close() error { return nil }

// widthEngine reads plates by crop width so each plate gets a distinct answer.
type widthEngine struct {
	answers map[int]ocr.Reading
}

func (e *widthEngine) Name() string { return "fake" }

func (e *widthEngine) Recognize(_ context.Context, img image.Image) (ocr.Reading, error) {
	w := img.Bounds().Dx()
	r, ok := e.answers[w]
	if !ok {
		return ocr.Reading{}, errors.New("unreadable")
	}
	return r, nil
}

func writeScene(t *testing.T) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 400, 300))
	for i := range img.Pix {
		img.Pix[i] = 70
	}
	path := filepath.Join(t.TempDir(), "scene.png")
	require.NoError(t, imageio.Save(path, img))
	return path
}

func newService(t *testing.T, dets []models.DetectionResult, engine ocr.Engine) (*Service, config.CropConfig) {
	t.Helper()
	log := logging.Discard()
	cfg := config.NewDefaultConfig().Crop
	cfg.TempDir = t.TempDir()
	svc := NewService(
		plate.NewService(&fakeDetector{dets: dets}, log),
		ocr.NewRecognizer(log, engine),
		cfg,
		log,
	)
	return svc, cfg
}

func TestProcess(t *testing.T) {
	path := writeScene(t)
	dets := []models.DetectionResult{
		{Confidence: 0.9, Box: [4]float32{10, 10, 70, 30}},     // crop 70 wide
		{Confidence: 0.8, Box: [4]float32{100, 100, 190, 130}}, // crop 100 wide
		{Confidence: 0.7, Box: [4]float32{200, 200, 250, 220}}, // crop 60 wide, unreadable
	}
	engine := &widthEngine{answers: map[int]ocr.Reading{
		70:  {Text: "ab 12", Confidence: 0.5},
		100: {Text: "XY-987", Confidence: 0.95},
	}}
	svc, cfg := newService(t, dets, engine)

	// the preprocessed crop is rescaled, so only the raw pass matches by width
	res := svc.Process(context.Background(), path, 0.25, ocr.MethodAuto)
	require.True(t, res.Success, res.Error)

	assert.Equal(t, &models.FullSummary{PlatesDetected: 3, PlatesWithText: 2}, res.DetectionSummary)
	require.Len(t, res.ProcessedPlates, 3)
	require.Len(t, res.BestResults, 2)

	assert.Equal(t, 2, res.BestResults[0].PlateID)
	assert.Equal(t, "XY987", res.BestResults[0].LicensePlateText)
	assert.InDelta(t, 0.8, res.BestResults[0].DetectionConfidence, 1e-6)
	assert.Equal(t, 0.95, res.BestResults[0].OCRConfidence)
	assert.Equal(t, models.Box{X1: 100, Y1: 100, X2: 190, Y2: 130, Width: 90, Height: 30}, res.BestResults[0].BBox)
	assert.Equal(t, "AB12", res.BestResults[1].LicensePlateText)

	failed := res.ProcessedPlates[2].OCRResult
	require.NotNil(t, failed)
	assert.False(t, failed.Success)
	assert.Equal(t, "No text detected", failed.Error)

	for _, p := range res.ProcessedPlates {
		require.NotNil(t, p.ExtractedImagePath)
		assert.Equal(t, cfg.TempDir, filepath.Dir(*p.ExtractedImagePath))
		_, err := os.Stat(*p.ExtractedImagePath)
		assert.True(t, os.IsNotExist(err), "temp crop removed")
	}
}

func TestProcessUnwritableTempDir(t *testing.T) {
	path := writeScene(t)
	dets := []models.DetectionResult{{Confidence: 0.9, Box: [4]float32{10, 10, 70, 30}}}
	engine := &widthEngine{answers: map[int]ocr.Reading{70: {Text: "AB123", Confidence: 0.6}}}
	svc, _ := newService(t, dets, engine)

	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
	svc.cfg.TempDir = filepath.Join(file, "temp")

	res := svc.Process(context.Background(), path, 0.25, ocr.MethodAuto)
	require.True(t, res.Success, res.Error)
	require.Len(t, res.BestResults, 1)
	assert.Equal(t, "AB123", res.BestResults[0].LicensePlateText)
	assert.Nil(t, res.ProcessedPlates[0].ExtractedImagePath)
}

func TestProcessDetectionFailure(t *testing.T) {
	svc, _ := newService(t, nil, &widthEngine{})

	res := svc.Process(context.Background(), writeScene(t), 0.25, ocr.MethodAuto)
	assert.False(t, res.Success)
	assert.Equal(t, "License plate detection failed: No license plates detected", res.Error)
	require.NotNil(t, res.DetectionResult)
	assert.Equal(t, 400, res.DetectionResult.ImageDimensions.Width)

	missing := filepath.Join(t.TempDir(), "nope.jpg")
	res = svc.Process(context.Background(), missing, 0.25, ocr.MethodAuto)
	assert.Equal(t, "License plate detection failed: Image not found: "+missing, res.Error)
}

func TestProcessUnsupportedMethod(t *testing.T) {
	dets := []models.DetectionResult{{Confidence: 0.9, Box: [4]float32{10, 10, 70, 30}}}
	svc, _ := newService(t, dets, &widthEngine{})

	res := svc.Process(context.Background(), writeScene(t), 0.25, "paddle")
	require.True(t, res.Success)
	assert.Empty(t, res.BestResults)
	assert.Equal(t, "Unsupported OCR method: paddle", res.ProcessedPlates[0].OCRResult.Error)
}

func TestSaveAnnotated(t *testing.T) {
	path := writeScene(t)
	dets := []models.DetectionResult{
		{Confidence: 0.9, Box: [4]float32{10, 40, 70, 60}},
		{Confidence: 0.8, Box: [4]float32{100, 100, 190, 130}},
	}
	engine := &widthEngine{answers: map[int]ocr.Reading{70: {Text: "AB12", Confidence: 0.5}}}
	svc, _ := newService(t, dets, engine)

	res := svc.Process(context.Background(), path, 0.25, ocr.MethodAuto)
	require.True(t, res.Success, res.Error)

	out := filepath.Join(t.TempDir(), "out", "annotated.png")
	svc.SaveAnnotated(context.Background(), path, &res, out)
	assert.Equal(t, out, res.AnnotatedImageSaved)
	assert.Empty(t, res.AnnotationError)

	img, err := imageio.Load(context.Background(), out)
	require.NoError(t, err)
	rgba := imageio.ToRGBA(img)
	assert.Equal(t, annotate.Green, rgba.RGBAAt(10, 50))
	assert.Equal(t, annotate.Yellow, rgba.RGBAAt(100, 115))

	bad := models.FullResult{Success: true}
	svc.SaveAnnotated(context.Background(), filepath.Join(t.TempDir(), "gone.png"), &bad, out)
	assert.Equal(t, "Failed to save annotated image", bad.AnnotationError)
	assert.Empty(t, bad.AnnotatedImageSaved)
}

func TestReadImage(t *testing.T) {
	path := writeScene(t)
	dets := []models.DetectionResult{
		{Confidence: 0.6, Box: [4]float32{200, 200, 250, 220}},
		{Confidence: 0.9, Box: [4]float32{100, 100, 190, 130}},
	}
	engine := &widthEngine{answers: map[int]ocr.Reading{
		100: {Text: "XY987", Confidence: 0.8},
		400: {Text: "WHOLE1", Confidence: 0.4},
	}}
	svc, _ := newService(t, dets, engine)

	t.Run("detect first", func(t *testing.T) {
		res := svc.ReadImage(context.Background(), path, "fake", true, 0.25)
		require.False(t, res.Success, "named engine only sees the preprocessed crop")

		res = svc.ReadImage(context.Background(), path, ocr.MethodAuto, true, 0.25)
		require.True(t, res.Success, res.Error)
		assert.Equal(t, "XY987", res.LicensePlateText)
		require.NotNil(t, res.Detection)
		assert.InDelta(t, 0.9, res.Detection.Confidence, 1e-6)
		assert.Equal(t, path, res.ImagePath)
	})

	t.Run("whole image", func(t *testing.T) {
		res := svc.ReadImage(context.Background(), path, ocr.MethodAuto, false, 0.25)
		require.True(t, res.Success, res.Error)
		assert.Equal(t, "WHOLE1", res.LicensePlateText)
		assert.Nil(t, res.Detection)
	})

	t.Run("missing", func(t *testing.T) {
		missing := filepath.Join(t.TempDir(), "nope.jpg")
		res := svc.ReadImage(context.Background(), missing, ocr.MethodAuto, false, 0.25)
		assert.False(t, res.Success)
		assert.Equal(t, "Image not found: "+missing, res.Error)

		res = svc.ReadImage(context.Background(), missing, ocr.MethodAuto, true, 0.25)
		assert.Equal(t, "License plate detection failed: Image not found: "+missing, res.Error)
	})
}
