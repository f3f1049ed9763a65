package processing

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"platescan/internal/config"
	"platescan/internal/models"

	"github.com/sirupsen/logrus"
)

var ErrModelUnavailable = errors.New("detection model not available")

type Detector interface {
	// Detect returns hits at or above conf in source-image pixel coordinates.
	Detect(ctx context.Context, img image.Image, conf float32) ([]models.DetectionResult, error)
	Close() error
}

// Open builds the configured detector. For the onnx backend the candidate model
// files are tried in order and the first one that loads wins.
func Open(cfg *config.Config, modelPaths []string, log logrus.FieldLogger) (Detector, error) {
	switch cfg.Detector.Backend {
	case config.BackendRemote:
		timeout := time.Duration(cfg.Detector.RemoteTimeout) * time.Second
		log.Infof("using remote detector at %s", cfg.Detector.RemoteHost)
		return NewRemoteDetector(cfg.Detector.RemoteHost, timeout), nil

	case config.BackendONNX:
		opts := ONNXOptions{
			SharedLibrary:  cfg.Detector.SharedLibrary,
			InputSize:      cfg.Detector.InputSize,
			IoUThreshold:   cfg.Detector.IoUThreshold,
			IntraOpThreads: cfg.Detector.IntraOpThreads,
		}
		for _, path := range modelPaths {
			if _, err := os.Stat(path); err != nil {
				continue
			}
			det, err := NewONNXDetector(path, opts)
			if err != nil {
				log.Warnf("Failed to load model from %s: %v", path, err)
				continue
			}
			log.Infof("Loaded model from: %s", path)
			return det, nil
		}
		log.Warnf("no usable model among %s", strings.Join(modelPaths, ", "))
		return nil, ErrModelUnavailable

	default:
		return nil, fmt.Errorf("unknown detector backend %q (want one of %s)",
			cfg.Detector.Backend, strings.Join(config.BackendsList[:], ", "))
	}
}

// Lazy defers opening a detector until the first Detect call, so input
// validation can run before a model is loaded.
type Lazy struct {
	open func() (Detector, error)

	once sync.Once
	det  Detector
	err  error
}

func NewLazy(open func() (Detector, error)) *Lazy {
	return &Lazy{open: open}
}

func (l *Lazy) Detect(ctx context.Context, img image.Image, conf float32) ([]models.DetectionResult, error) {
	l.once.Do(func() {
		l.det, l.err = l.open()
	})
	if l.err != nil {
		return nil, l.err
	}
	return l.det.Detect(ctx, img, conf)
}

func (l *Lazy) Close() error {
	if l.det == nil {
		return nil
	}
	return l.det.Close()
}

// IoU is the intersection-over-union of two x1,y1,x2,y2 boxes.
func IoU(a, b [4]float32) float32 {
	x1 := max(a[0], b[0])
	y1 := max(a[1], b[1])
	x2 := min(a[2], b[2])
	y2 := min(a[3], b[3])

	inter := max(0, x2-x1) * max(0, y2-y1)
	areaA := (a[2] - a[0]) * (a[3] - a[1])
	areaB := (b[2] - b[0]) * (b[3] - b[1])
	union := areaA + areaB - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

// NMS keeps the most confident box of every overlapping group of the same
// class. The result is sorted by confidence, highest first.
func NMS(dets []models.DetectionResult, threshold float32) []models.DetectionResult {
	sorted := append([]models.DetectionResult(nil), dets...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Confidence > sorted[j].Confidence
	})

	kept := make([]models.DetectionResult, 0, len(sorted))
	suppressed := make([]bool, len(sorted))
	for i := range sorted {
		if suppressed[i] {
			continue
		}
		kept = append(kept, sorted[i])
		for j := i + 1; j < len(sorted); j++ {
			if suppressed[j] || sorted[j].ClassID != sorted[i].ClassID {
				continue
			}
			if IoU(sorted[i].Box, sorted[j].Box) > threshold {
				suppressed[j] = true
			}
		}
	}
	return kept
}

// clipBox limits a box to the image rectangle [0,w]x[0,h].
func clipBox(box [4]float32, w, h int) [4]float32 {
	clamp := func(v, hi float32) float32 { return min(max(v, 0), hi) }
	fw, fh := float32(w), float32(h)
	return [4]float32{clamp(box[0], fw), clamp(box[1], fh), clamp(box[2], fw), clamp(box[3], fh)}
}
