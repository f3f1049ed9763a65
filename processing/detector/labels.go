package processing

import "fmt"

// CocoLabels are the class names of the 80-class COCO models (yolov8n).
var CocoLabels = []string{
	"person", "bicycle", "car", "motorcycle", "airplane", "bus", "train", "truck", "boat",
	"traffic light", "fire hydrant", "stop sign", "parking meter", "bench", "bird", "cat",
	"dog", "horse", "sheep", "cow", "elephant", "bear", "zebra", "giraffe", "backpack",
	"umbrella", "handbag", "tie", "suitcase", "frisbee", "skis", "snowboard", "sports ball",
	"kite", "baseball bat", "baseball glove", "skateboard", "surfboard", "tennis racket",
	"bottle", "wine glass", "cup", "fork", "knife", "spoon", "bowl", "banana", "apple",
	"sandwich", "orange", "broccoli", "carrot", "hot dog", "pizza", "donut", "cake", "chair",
	"couch", "potted plant", "bed", "dining table", "toilet", "tv", "laptop", "mouse",
	"remote", "keyboard", "cell phone", "microwave", "oven", "toaster", "sink",
	"refrigerator", "book", "clock", "vase", "scissors", "teddy bear", "hair drier",
	"toothbrush",
}

const PlateLabel = "license_plate"

func labelsFor(numClasses int) []string {
	switch numClasses {
	case len(CocoLabels):
		return CocoLabels
	case 1:
		return []string{PlateLabel}
	}
	labels := make([]string, numClasses)
	for i := range labels {
		labels[i] = fmt.Sprintf("class_%d", i)
	}
	return labels
}

// classIDFor resolves a label sent by a remote detector back to its COCO index.
func classIDFor(label string) int {
	for i, l := range CocoLabels {
		if l == label {
			return i
		}
	}
	if label == PlateLabel {
		return 0
	}
	return -1
}
