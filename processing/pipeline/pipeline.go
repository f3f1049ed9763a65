package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"

	"platescan/internal/config"
	"platescan/internal/imageio"
	"platescan/internal/models"
	"platescan/processing/annotate"
	"platescan/processing/ocr"
	"platescan/processing/plate"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Service chains plate detection, extraction and OCR for one image.
type Service struct {
	plates *plate.Service
	reader *ocr.Recognizer
	cfg    config.CropConfig
	log    logrus.FieldLogger
}

func NewService(plates *plate.Service, reader *ocr.Recognizer, cfg config.CropConfig, log logrus.FieldLogger) *Service {
	return &Service{plates: plates, reader: reader, cfg: cfg, log: log}
}

func (s *Service) Process(ctx context.Context, path string, conf float64, method string) models.FullResult {
	detection, img := s.plates.Detect(ctx, path, conf)
	if !detection.Success {
		return models.FullResult{
			Error:           fmt.Sprintf("License plate detection failed: %s", detection.Error),
			DetectionResult: &detection,
		}
	}

	processed := make([]models.ProcessedPlate, 0, len(detection.Detections))
	for i, det := range detection.Detections {
		processed = append(processed, s.readPlate(ctx, img, i+1, det, method))
	}

	var withText int
	best := []models.BestResult{}
	for _, p := range processed {
		if p.OCRResult == nil || !p.OCRResult.Success {
			continue
		}
		withText++
		if p.OCRResult.LicensePlateText == "" {
			continue
		}
		best = append(best, models.BestResult{
			PlateID:             p.PlateID,
			LicensePlateText:    p.OCRResult.LicensePlateText,
			DetectionConfidence: p.Detection.Confidence,
			OCRConfidence:       p.OCRResult.Confidence,
			BBox:                p.Detection.BBox,
		})
	}
	sort.SliceStable(best, func(i, j int) bool {
		return best[i].OCRConfidence > best[j].OCRConfidence
	})

	return models.FullResult{
		Success:   true,
		ImagePath: path,
		DetectionSummary: &models.FullSummary{
			PlatesDetected: len(detection.Detections),
			PlatesWithText: withText,
		},
		ProcessedPlates: processed,
		BestResults:     best,
	}
}

// readPlate never fails the whole image: extraction and OCR errors end up in
// the plate's ocr_result.
func (s *Service) readPlate(ctx context.Context, img image.Image, id int, det models.PlateDetection, method string) models.ProcessedPlate {
	pp := models.ProcessedPlate{PlateID: id, Detection: det}

	crop := plate.Extract(img, det.BBox, s.cfg.Padding)
	if crop == nil {
		pp.OCRResult = &models.OCRResult{Error: "Failed to extract license plate image"}
		return pp
	}

	// The saved crop is only a diagnostic artefact; OCR reads the in-memory image.
	tmp := filepath.Join(s.cfg.TempDir, fmt.Sprintf("plate_%s.jpg", uuid.NewString()))
	if err := imageio.SaveJPEG(tmp, crop, imageio.DefaultJPEGQuality); err != nil {
		s.log.Warnf("plate %d: save crop: %v", id, err)
	} else {
		pp.ExtractedImagePath = &tmp
		defer func() {
			if err := os.Remove(tmp); err != nil {
				s.log.Debugf("remove %s: %v", tmp, err)
			}
		}()
	}

	res := s.reader.Read(ctx, crop, method)
	s.log.Debugf("plate %d: success=%t text=%q conf=%.3f", id, res.Success, res.LicensePlateText, res.Confidence)
	pp.OCRResult = &res
	return pp
}

// SaveAnnotated draws every processed plate onto the source image and writes
// it to out, recording the outcome on result.
func (s *Service) SaveAnnotated(ctx context.Context, path string, result *models.FullResult, out string) {
	img, err := imageio.Load(ctx, path)
	if err == nil {
		err = imageio.Save(out, AnnotateResult(img, result.ProcessedPlates))
	}
	if err != nil {
		s.log.Warnf("Error saving annotated image: %v", err)
		result.AnnotationError = "Failed to save annotated image"
		return
	}
	result.AnnotatedImageSaved = out
}

// AnnotateResult labels plates with recognised text in green and the rest as
// detection only in yellow.
func AnnotateResult(img image.Image, plates []models.ProcessedPlate) *image.RGBA {
	canvas := imageio.ToRGBA(img)
	for _, p := range plates {
		col := annotate.Yellow
		label := fmt.Sprintf("Plate %d: Detection Only", p.PlateID)
		if p.OCRResult != nil && p.OCRResult.Success && p.OCRResult.LicensePlateText != "" {
			col = annotate.Green
			label = fmt.Sprintf("Plate %d: %s", p.PlateID, p.OCRResult.LicensePlateText)
		}
		b := p.Detection.BBox
		annotate.Box(canvas, image.Rect(b.X1, b.Y1, b.X2, b.Y2), col, 2, label)
	}
	return canvas
}

// ReadImage runs OCR on the image at path. With detect set, the most confident
// plate is located and cropped first; otherwise the image is taken to be a
// plate crop already.
func (s *Service) ReadImage(ctx context.Context, path string, method string, detect bool, conf float64) models.OCRCommandResult {
	out := models.OCRCommandResult{ImagePath: path}

	if !detect {
		img, err := imageio.Load(ctx, path)
		if err != nil {
			if errors.Is(err, imageio.ErrNotFound) {
				out.Error = err.Error()
			} else {
				out.Error = imageio.ErrDecode.Error()
			}
			return out
		}
		out.OCRResult = s.reader.Read(ctx, img, method)
		return out
	}

	detection, img := s.plates.Detect(ctx, path, conf)
	if !detection.Success {
		out.Error = fmt.Sprintf("License plate detection failed: %s", detection.Error)
		return out
	}
	best := detection.Detections[0]
	out.Detection = &best

	crop := plate.Extract(img, best.BBox, s.cfg.Padding)
	if crop == nil {
		out.Error = "Failed to extract license plate image"
		return out
	}
	out.OCRResult = s.reader.Read(ctx, crop, method)
	return out
}
