package models

// DetectionResult is a raw detector hit. Box is x1, y1, x2, y2 in pixels of the
// source image.
type DetectionResult struct {
	Label      string     `json:"label"`
	ClassID    int        `json:"class_id"`
	Confidence float32    `json:"confidence"`
	Box        [4]float32 `json:"box"`
}

func (d DetectionResult) Width() float32  { return d.Box[2] - d.Box[0] }
func (d DetectionResult) Height() float32 { return d.Box[3] - d.Box[1] }

type Box struct {
	X1     int `json:"x1"`
	Y1     int `json:"y1"`
	X2     int `json:"x2"`
	Y2     int `json:"y2"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type ImageDimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

type PlateDetection struct {
	Confidence  float64 `json:"confidence"`
	BBox        Box     `json:"bbox"`
	AspectRatio float64 `json:"aspect_ratio"`
	Area        int     `json:"area"`
	Center      Point   `json:"center"`
}

type VehicleResult struct {
	Success     bool      `json:"success"`
	VehicleType string    `json:"vehicle_type,omitempty"`
	Confidence  float64   `json:"confidence,omitempty"`
	BBox        []float64 `json:"bbox,omitempty"`
	Error       string    `json:"error,omitempty"`
}

type PlateResult struct {
	Success             bool             `json:"success"`
	PlatesDetected      int              `json:"license_plates_detected,omitempty"`
	Detections          []PlateDetection `json:"detections,omitempty"`
	Error               string           `json:"error,omitempty"`
	ImageDimensions     *ImageDimensions `json:"image_dimensions,omitempty"`
	AnnotatedImageSaved string           `json:"annotated_image_saved,omitempty"`
}

// Fail builds the uniform failure payload shared by every command.
func Fail(msg string) map[string]any {
	return map[string]any{"success": false, "error": msg}
}
