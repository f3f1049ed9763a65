package crop

import (
	"context"
	"fmt"
	"image"
	"path/filepath"
	"strings"
	"time"

	"platescan/internal/config"
	"platescan/internal/imageio"
	"platescan/internal/models"
	"platescan/processing/annotate"
	"platescan/processing/plate"

	"github.com/nfnt/resize"
	"github.com/sirupsen/logrus"
)

const timestampLayout = "20060102_150405.000"

type Service struct {
	runner Runner
	cfg    config.CropConfig
	log    logrus.FieldLogger
	now    func() time.Time
}

func NewService(runner Runner, cfg config.CropConfig, log logrus.FieldLogger) *Service {
	return &Service{runner: runner, cfg: cfg, log: log, now: time.Now}
}

// Process detects plates in the image at path and writes, per plate, an
// annotated copy of the image, the padded crop and an upscaled crop to the
// temp directory.
func (s *Service) Process(ctx context.Context, path string, conf float64) models.CropResult {
	detection, err := s.runner.Run(ctx, path, conf)
	if err != nil {
		return models.CropResult{Error: err.Error()}
	}
	if !detection.Success || detection.PlatesDetected == 0 {
		return models.CropResult{Error: "No license plates detected", DetectionResult: detection}
	}

	img, err := imageio.Load(ctx, path)
	if err != nil {
		s.log.Debugf("reload %s: %v", path, err)
		return models.CropResult{
			Error:           fmt.Sprintf("Could not load image: %s", path),
			DetectionResult: detection,
		}
	}

	var processed []models.CroppedPlate
	for i, det := range detection.Detections {
		cropped, err := s.processPlate(img, i+1, det)
		if err != nil {
			return models.CropResult{Error: fmt.Sprintf("Processing error: %v", err)}
		}
		if cropped != nil {
			processed = append(processed, *cropped)
		}
	}

	dims := detection.ImageDimensions
	if dims == nil {
		dims = &models.ImageDimensions{Width: img.Bounds().Dx(), Height: img.Bounds().Dy()}
	}
	return models.CropResult{
		Success:          true,
		ImagePath:        path,
		DetectionSummary: detection,
		PlatesProcessed:  processed,
		TotalPlates:      len(processed),
		FilesSaved: &models.FilesSaved{
			AnnotatedImages: len(processed),
			CroppedPlates:   len(processed),
			TempDirectory:   s.cfg.TempDir,
		},
		ProcessingInfo: &models.ProcessingInfo{
			ConfidenceThreshold: conf,
			ImageDimensions:     dims,
			CroppingEnabled:     true,
			AnnotationEnabled:   true,
		},
	}
}

func (s *Service) processPlate(img image.Image, id int, det models.PlateDetection) (*models.CroppedPlate, error) {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	box := plate.Clamp(det.BBox, w, h)

	crop := plate.Extract(img, box, s.cfg.Padding)
	if crop == nil {
		s.log.Debugf("plate %d: empty crop for %+v", id, det.BBox)
		return nil, nil
	}

	annotated := imageio.ToRGBA(img)
	label := fmt.Sprintf("License Plate (%.1f%%)", det.Confidence*100)
	annotate.Box(annotated, image.Rect(box.X1, box.Y1, box.X2, box.Y2), annotate.Green, 3, label)

	cw, ch := crop.Bounds().Dx(), crop.Bounds().Dy()
	scale := ScaleFactor(cw, ch, s.cfg.TargetSize)
	resized := resize.Resize(uint(cw*scale), uint(ch*scale), crop, resize.Bicubic)

	ts := strings.Replace(s.now().Format(timestampLayout), ".", "_", 1)
	files := models.SavedFiles{
		AnnotatedImage: filepath.Join(s.cfg.TempDir, fmt.Sprintf("annotated_%s_%d.jpg", ts, id)),
		CroppedPlate:   filepath.Join(s.cfg.TempDir, fmt.Sprintf("cropped_plate_%s_%d.jpg", ts, id)),
		ResizedPlate:   filepath.Join(s.cfg.TempDir, fmt.Sprintf("resized_plate_%s_%d.jpg", ts, id)),
	}
	for path, out := range map[string]image.Image{
		files.AnnotatedImage: annotated,
		files.CroppedPlate:   crop,
		files.ResizedPlate:   resized,
	} {
		if err := imageio.SaveJPEG(path, out, imageio.DefaultJPEGQuality); err != nil {
			return nil, err
		}
	}
	s.log.Debugf("plate %d saved to %s", id, files.CroppedPlate)

	return &models.CroppedPlate{
		PlateID:    id,
		Detection:  det,
		SavedFiles: files,
		CropInfo: models.CropInfo{
			OriginalSize: fmt.Sprintf("%dx%d", cw, ch),
			ResizedSize:  fmt.Sprintf("%dx%d", cw*scale, ch*scale),
			ScaleFactor:  scale,
		},
	}, nil
}

// ScaleFactor is the integer upscale that brings the longer crop side near
// target, never less than 2.
func ScaleFactor(w, h, target int) int {
	longest := max(w, h)
	if longest <= 0 {
		return 2
	}
	return max(2, target/longest)
}
