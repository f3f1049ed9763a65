package vehicle

import (
	"context"
	"errors"

	"platescan/internal/imageio"
	"platescan/internal/models"
	detector "platescan/processing/detector"

	"github.com/sirupsen/logrus"
)

const (
	FourWheeler = "4-wheeler"
	TwoWheeler  = "2-wheeler"

	// Confidence is the detector threshold used for vehicle classification.
	Confidence float32 = 0.25
)

// Classes maps COCO class ids onto wheel categories.
var Classes = map[int]string{
	2: FourWheeler, // car
	5: FourWheeler, // bus
	7: FourWheeler, // truck
	3: TwoWheeler,  // motorcycle
}

type Service struct {
	det detector.Detector
	log logrus.FieldLogger
}

func NewService(det detector.Detector, log logrus.FieldLogger) *Service {
	return &Service{det: det, log: log}
}

// Detect classifies the most confident vehicle in the image at path.
func (s *Service) Detect(ctx context.Context, path string) models.VehicleResult {
	img, err := imageio.Load(ctx, path)
	if err != nil {
		if errors.Is(err, imageio.ErrNotFound) {
			return models.VehicleResult{Error: err.Error()}
		}
		s.log.Debugf("decode %s: %v", path, err)
		return models.VehicleResult{Error: imageio.ErrDecode.Error()}
	}

	dets, err := s.det.Detect(ctx, img, Confidence)
	if err != nil {
		return models.VehicleResult{Error: err.Error()}
	}
	if len(dets) == 0 {
		return models.VehicleResult{Error: "No detections found"}
	}

	best, ok := Best(dets)
	if !ok {
		return models.VehicleResult{Error: "No valid vehicle detected"}
	}

	s.log.Debugf("best vehicle %s (%s) at %.3f", best.Label, Classes[best.ClassID], best.Confidence)
	return models.VehicleResult{
		Success:     true,
		VehicleType: Classes[best.ClassID],
		Confidence:  float64(best.Confidence),
		BBox: []float64{
			float64(best.Box[0]), float64(best.Box[1]),
			float64(best.Box[2]), float64(best.Box[3]),
		},
	}
}

// Best returns the most confident detection whose class is a vehicle.
func Best(dets []models.DetectionResult) (models.DetectionResult, bool) {
	var (
		best  models.DetectionResult
		found bool
	)
	for _, d := range dets {
		if _, ok := Classes[d.ClassID]; !ok {
			continue
		}
		if !found || d.Confidence > best.Confidence {
			best = d
			found = true
		}
	}
	return best, found
}
