package models

import "encoding/json"

type SavedFiles struct {
	AnnotatedImage string `json:"annotated_image"`
	CroppedPlate   string `json:"cropped_plate"`
	ResizedPlate   string `json:"resized_plate"`
}

type CropInfo struct {
	OriginalSize string `json:"original_size"`
	ResizedSize  string `json:"resized_size"`
	ScaleFactor  int    `json:"scale_factor"`
}

type CroppedPlate struct {
	PlateID    int            `json:"plate_id"`
	Detection  PlateDetection `json:"detection"`
	SavedFiles SavedFiles     `json:"saved_files"`
	CropInfo   CropInfo       `json:"crop_info"`
}

type FilesSaved struct {
	AnnotatedImages int    `json:"annotated_images"`
	CroppedPlates   int    `json:"cropped_plates"`
	TempDirectory   string `json:"temp_directory"`
}

type ProcessingInfo struct {
	ConfidenceThreshold float64          `json:"confidence_threshold"`
	ImageDimensions     *ImageDimensions `json:"image_dimensions"`
	CroppingEnabled     bool             `json:"cropping_enabled"`
	AnnotationEnabled   bool             `json:"annotation_enabled"`
}

type CropResult struct {
	Success          bool            `json:"success"`
	ImagePath        string          `json:"image_path,omitempty"`
	DetectionSummary *PlateResult    `json:"detection_summary,omitempty"`
	PlatesProcessed  []CroppedPlate  `json:"plates_processed,omitempty"`
	TotalPlates      int             `json:"total_plates,omitempty"`
	FilesSaved       *FilesSaved     `json:"files_saved,omitempty"`
	ProcessingInfo   *ProcessingInfo `json:"processing_info,omitempty"`
	Error            string          `json:"error,omitempty"`
	DetectionResult  *PlateResult    `json:"detection_result,omitempty"`
}

// MarshalJSON keeps detection_result on failure payloads, null when the
// detector produced nothing usable.
func (r CropResult) MarshalJSON() ([]byte, error) {
	type plain CropResult
	if r.Success {
		return json.Marshal(plain(r))
	}
	return json.Marshal(struct {
		plain
		DetectionResult *PlateResult `json:"detection_result"`
	}{plain(r), r.DetectionResult})
}
