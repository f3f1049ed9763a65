package plate

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math"
	"sort"

	"platescan/internal/imageio"
	"platescan/internal/models"
	"platescan/processing/annotate"
	detector "platescan/processing/detector"

	"github.com/sirupsen/logrus"
)

const (
	MinAspectRatio = 1.5
	MaxAspectRatio = 8.0

	DefaultPadding = 5
)

const (
	errNoPlates         = "No license plates detected"
	errModelUnavailable = "License plate detection model not available"
)

type Service struct {
	det detector.Detector
	log logrus.FieldLogger
}

func NewService(det detector.Detector, log logrus.FieldLogger) *Service {
	return &Service{det: det, log: log}
}

// Detect loads the image at path and finds plate-shaped detections in it.
func (s *Service) Detect(ctx context.Context, path string, conf float64) (models.PlateResult, image.Image) {
	img, err := imageio.Load(ctx, path)
	if err != nil {
		if errors.Is(err, imageio.ErrNotFound) {
			return models.PlateResult{Error: err.Error()}, nil
		}
		s.log.Debugf("decode %s: %v", path, err)
		return models.PlateResult{Error: imageio.ErrDecode.Error()}, nil
	}
	return s.DetectImage(ctx, img, conf), img
}

func (s *Service) DetectImage(ctx context.Context, img image.Image, conf float64) models.PlateResult {
	dims := &models.ImageDimensions{Width: img.Bounds().Dx(), Height: img.Bounds().Dy()}

	raw, err := s.det.Detect(ctx, img, float32(conf))
	if err != nil {
		if errors.Is(err, detector.ErrModelUnavailable) {
			s.log.Warn("No trained license plate model found; train or export one to the configured plate_models paths")
			return models.PlateResult{Error: errModelUnavailable}
		}
		return models.PlateResult{Error: err.Error()}
	}

	dets := Filter(raw)
	s.log.Debugf("%d raw detections, %d plate shaped", len(raw), len(dets))
	if len(dets) == 0 {
		return models.PlateResult{Error: errNoPlates, ImageDimensions: dims}
	}

	return models.PlateResult{
		Success:         true,
		PlatesDetected:  len(dets),
		Detections:      dets,
		ImageDimensions: dims,
	}
}

// Filter keeps detections whose width/height ratio looks like a plate and
// returns them sorted by confidence, highest first.
func Filter(raw []models.DetectionResult) []models.PlateDetection {
	var out []models.PlateDetection
	for _, d := range raw {
		x1, y1, x2, y2 := float64(d.Box[0]), float64(d.Box[1]), float64(d.Box[2]), float64(d.Box[3])
		w, h := x2-x1, y2-y1

		var ratio float64
		if h > 0 {
			ratio = w / h
		}
		if ratio < MinAspectRatio || ratio > MaxAspectRatio {
			continue
		}

		out = append(out, models.PlateDetection{
			Confidence: float64(d.Confidence),
			BBox: models.Box{
				X1: int(x1), Y1: int(y1), X2: int(x2), Y2: int(y2),
				Width: int(w), Height: int(h),
			},
			AspectRatio: math.Round(ratio*100) / 100,
			Area:        int(w * h),
			Center:      models.Point{X: int((x1 + x2) / 2), Y: int((y1 + y2) / 2)},
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Confidence > out[j].Confidence
	})
	return out
}

// PaddedRect grows the box by padding on every side and clips it to bounds.
func PaddedRect(bbox models.Box, padding int, bounds image.Rectangle) image.Rectangle {
	r := image.Rect(
		bounds.Min.X+bbox.X1-padding,
		bounds.Min.Y+bbox.Y1-padding,
		bounds.Min.X+bbox.X2+padding,
		bounds.Min.Y+bbox.Y2+padding,
	)
	return r.Intersect(bounds)
}

// Extract copies the padded plate region out of img. It returns nil when the
// region does not overlap the image.
func Extract(img image.Image, bbox models.Box, padding int) *image.RGBA {
	r := PaddedRect(bbox, padding, img.Bounds())
	if r.Empty() {
		return nil
	}
	sub, ok := img.(interface {
		SubImage(r image.Rectangle) image.Image
	})
	if !ok {
		return imageio.ToRGBA(imageio.ToRGBA(img).SubImage(r.Sub(img.Bounds().Min)))
	}
	return imageio.ToRGBA(sub.SubImage(r))
}

// Clamp pins the box corners inside [0, w-1] x [0, h-1].
func Clamp(bbox models.Box, w, h int) models.Box {
	clamp := func(v, hi int) int { return max(0, min(v, hi)) }
	x1, y1 := clamp(bbox.X1, w-1), clamp(bbox.Y1, h-1)
	x2, y2 := clamp(bbox.X2, w-1), clamp(bbox.Y2, h-1)
	return models.Box{X1: x1, Y1: y1, X2: x2, Y2: y2, Width: x2 - x1, Height: y2 - y1}
}

// Annotate draws every detection with a confidence-graded colour.
func Annotate(img image.Image, dets []models.PlateDetection) *image.RGBA {
	out := imageio.ToRGBA(img)
	for i, d := range dets {
		label := fmt.Sprintf("License Plate %d: %.2f", i+1, d.Confidence)
		r := image.Rect(d.BBox.X1, d.BBox.Y1, d.BBox.X2, d.BBox.Y2)
		annotate.Box(out, r, annotate.ConfidenceColor(d.Confidence), 2, label)
	}
	return out
}
