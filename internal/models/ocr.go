package models

import "encoding/json"

type OCRResult struct {
	Success          bool    `json:"success"`
	LicensePlateText string  `json:"license_plate_text"`
	RawText          string  `json:"raw_text,omitempty"`
	Confidence       float64 `json:"confidence"`
	Method           string  `json:"method,omitempty"`
	Error            string  `json:"error,omitempty"`
}

// OCRCommandResult is the payload of the standalone OCR command.
type OCRCommandResult struct {
	OCRResult
	ImagePath string          `json:"image_path"`
	Detection *PlateDetection `json:"detection,omitempty"`
}

type ProcessedPlate struct {
	PlateID            int            `json:"plate_id"`
	Detection          PlateDetection `json:"detection"`
	OCRResult          *OCRResult     `json:"ocr_result"`
	ExtractedImagePath *string        `json:"extracted_image_path"`
}

type BestResult struct {
	PlateID             int     `json:"plate_id"`
	LicensePlateText    string  `json:"license_plate_text"`
	DetectionConfidence float64 `json:"detection_confidence"`
	OCRConfidence       float64 `json:"ocr_confidence"`
	BBox                Box     `json:"bbox"`
}

type FullSummary struct {
	PlatesDetected int `json:"plates_detected"`
	PlatesWithText int `json:"plates_with_text"`
}

type FullResult struct {
	Success             bool             `json:"success"`
	ImagePath           string           `json:"image_path,omitempty"`
	DetectionSummary    *FullSummary     `json:"detection_summary,omitempty"`
	ProcessedPlates     []ProcessedPlate `json:"processed_plates,omitempty"`
	BestResults         []BestResult     `json:"best_results,omitempty"`
	Error               string           `json:"error,omitempty"`
	DetectionResult     *PlateResult     `json:"detection_result,omitempty"`
	AnnotatedImageSaved string           `json:"annotated_image_saved,omitempty"`
	AnnotationError     string           `json:"annotation_error,omitempty"`
}

// MarshalJSON always emits best_results on success, as an empty list when no
// plate was read, and leaves it out of failure payloads.
func (r FullResult) MarshalJSON() ([]byte, error) {
	type plain FullResult
	if !r.Success {
		return json.Marshal(plain(r))
	}
	best := r.BestResults
	if best == nil {
		best = []BestResult{}
	}
	return json.Marshal(struct {
		plain
		BestResults []BestResult `json:"best_results"`
	}{plain(r), best})
}
