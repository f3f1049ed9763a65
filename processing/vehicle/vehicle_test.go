package vehicle

import (
	"context"
	"errors"
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"platescan/internal/imageio"
	"platescan/internal/logging"
	"platescan/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDetector struct {
	dets []models.DetectionResult
	err  error
	conf float32
}

func (f *fakeDetector) Detect(_ context.Context, _ image.Image, conf float32) ([]models.DetectionResult, error) {
	f.conf = conf
	return f.dets, f.err
}

func (f *fakeDetector) Close() error { return nil }

func writeImage(t *testing.T) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 64, 48))
	for i := range img.Pix {
		img.Pix[i] = 128
	}
	img.Set(0, 0, color.Black)
	path := filepath.Join(t.TempDir(), "car.png")
	require.NoError(t, imageio.Save(path, img))
	return path
}

func TestDetect(t *testing.T) {
	path := writeImage(t)

	tests := []struct {
		name    string
		dets    []models.DetectionResult
		err     error
		want    string
		wantErr string
	}{
		{
			name:    "no detections",
			wantErr: "No detections found",
		},
		{
			name:    "only non vehicles",
			dets:    []models.DetectionResult{{ClassID: 0, Confidence: 0.9}},
			wantErr: "No valid vehicle detected",
		},
		{
			name: "picks most confident vehicle",
			dets: []models.DetectionResult{
				{ClassID: 0, Confidence: 0.99},
				{ClassID: 2, Confidence: 0.6, Box: [4]float32{1, 2, 3, 4}},
				{ClassID: 3, Confidence: 0.8, Box: [4]float32{5, 6, 7, 8}},
			},
			want: TwoWheeler,
		},
		{
			name:    "detector failure",
			err:     errors.New("inference error: boom"),
			wantErr: "inference error: boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			det := &fakeDetector{dets: tt.dets, err: tt.err}
			res := NewService(det, logging.Discard()).Detect(context.Background(), path)

			assert.Equal(t, Confidence, det.conf)
			if tt.wantErr != "" {
				assert.False(t, res.Success)
				assert.Equal(t, tt.wantErr, res.Error)
				return
			}
			require.True(t, res.Success, res.Error)
			assert.Equal(t, tt.want, res.VehicleType)
			assert.InDelta(t, 0.8, res.Confidence, 1e-6)
			assert.Equal(t, []float64{5, 6, 7, 8}, res.BBox)
		})
	}
}

func TestDetectMissingImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ghost.jpg")
	res := NewService(&fakeDetector{}, logging.Discard()).Detect(context.Background(), path)

	assert.False(t, res.Success)
	assert.Equal(t, "Image not found: "+path, res.Error)
}

func TestBest(t *testing.T) {
	_, ok := Best(nil)
	assert.False(t, ok)

	best, ok := Best([]models.DetectionResult{
		{ClassID: 5, Confidence: 0.3},
		{ClassID: 7, Confidence: 0.7},
	})
	require.True(t, ok)
	assert.Equal(t, 7, best.ClassID)
	assert.Equal(t, FourWheeler, Classes[best.ClassID])
}
