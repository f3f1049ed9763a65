package processing

import (
	"context"
	"fmt"
	"image"
	"sync"

	"platescan/internal/models"

	"github.com/nfnt/resize"
	ort "github.com/yalue/onnxruntime_go"
)

type ONNXOptions struct {
	SharedLibrary  string
	InputSize      int
	IoUThreshold   float32
	IntraOpThreads int
}

// ONNXDetector runs a YOLOv8-layout model: input [1,3,S,S] in 0..1 RGB,
// output [1,4+classes,anchors] with centre-x, centre-y, width, height rows
// followed by one score row per class.
type ONNXDetector struct {
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]

	inputSize  int
	numClasses int
	numAnchors int
	labels     []string
	iou        float32

	mu sync.Mutex
}

var (
	envOnce sync.Once
	envErr  error
)

func initEnvironment(sharedLibrary string) error {
	envOnce.Do(func() {
		if sharedLibrary != "" {
			ort.SetSharedLibraryPath(sharedLibrary)
		}
		envErr = ort.InitializeEnvironment()
	})
	return envErr
}

func NewONNXDetector(modelPath string, opts ONNXOptions) (*ONNXDetector, error) {
	if err := initEnvironment(opts.SharedLibrary); err != nil {
		return nil, fmt.Errorf("initialize onnxruntime: %w", err)
	}

	inputs, outputs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, fmt.Errorf("read model info: %w", err)
	}
	if len(inputs) == 0 || len(outputs) == 0 {
		return nil, fmt.Errorf("model %s has no inputs or outputs", modelPath)
	}

	size := opts.InputSize
	if dims := inputs[0].Dimensions; len(dims) == 4 && dims[2] > 0 && dims[2] == dims[3] {
		size = int(dims[2])
	}
	if size <= 0 {
		return nil, fmt.Errorf("cannot determine input size of %s", modelPath)
	}

	outDims := outputs[0].Dimensions
	if len(outDims) != 3 || outDims[1] <= 4 || outDims[2] <= 0 {
		return nil, fmt.Errorf("unsupported output shape %v", outDims)
	}
	numClasses := int(outDims[1]) - 4
	numAnchors := int(outDims[2])

	inputTensor, err := ort.NewTensor(ort.NewShape(1, 3, int64(size), int64(size)), make([]float32, 3*size*size))
	if err != nil {
		return nil, err
	}

	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, outDims[1], outDims[2]))
	if err != nil {
		inputTensor.Destroy()
		return nil, err
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, err
	}
	defer options.Destroy()

	if opts.IntraOpThreads > 0 {
		options.SetIntraOpNumThreads(opts.IntraOpThreads)
		options.SetInterOpNumThreads(1)
	}

	session, err := ort.NewAdvancedSession(
		modelPath,
		[]string{inputs[0].Name},
		[]string{outputs[0].Name},
		[]ort.Value{inputTensor},
		[]ort.Value{outputTensor},
		options,
	)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, err
	}

	iou := opts.IoUThreshold
	if iou <= 0 {
		iou = 0.45
	}

	return &ONNXDetector{
		session:    session,
		input:      inputTensor,
		output:     outputTensor,
		inputSize:  size,
		numClasses: numClasses,
		numAnchors: numAnchors,
		labels:     labelsFor(numClasses),
		iou:        iou,
	}, nil
}

func (d *ONNXDetector) Detect(ctx context.Context, img image.Image, conf float32) ([]models.DetectionResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	fillInput(d.input.GetData(), img, d.inputSize)
	if err := d.session.Run(); err != nil {
		return nil, fmt.Errorf("inference error: %w", err)
	}

	b := img.Bounds()
	raw := decodeOutput(d.output.GetData(), d.numClasses, d.numAnchors, d.inputSize, b.Dx(), b.Dy(), conf)
	for i := range raw {
		raw[i].Label = d.labels[raw[i].ClassID]
	}
	return NMS(raw, d.iou), nil
}

func (d *ONNXDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var firstErr error
	for _, destroy := range []func() error{d.session.Destroy, d.input.Destroy, d.output.Destroy} {
		if err := destroy(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// fillInput stretches img to size x size and writes it planar (CHW) into dst.
func fillInput(dst []float32, img image.Image, size int) {
	resized := resize.Resize(uint(size), uint(size), img, resize.Bilinear)
	rb := resized.Bounds()
	stride := size * size
	idx := 0

	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			r, g, b, _ := resized.At(rb.Min.X+x, rb.Min.Y+y).RGBA()
			dst[idx] = float32(r>>8) / 255.0
			dst[idx+stride] = float32(g>>8) / 255.0
			dst[idx+2*stride] = float32(b>>8) / 255.0
			idx++
		}
	}
}

// decodeOutput turns the raw [4+classes, anchors] matrix into pixel-space boxes
// for an image of width x height. Labels are left for the caller.
func decodeOutput(out []float32, numClasses, numAnchors, inputSize, width, height int, conf float32) []models.DetectionResult {
	if len(out) < (4+numClasses)*numAnchors {
		return nil
	}
	sx := float32(width) / float32(inputSize)
	sy := float32(height) / float32(inputSize)

	var dets []models.DetectionResult
	for i := 0; i < numAnchors; i++ {
		classID, prob := 0, float32(0)
		for c := 0; c < numClasses; c++ {
			if p := out[(4+c)*numAnchors+i]; p > prob {
				prob = p
				classID = c
			}
		}
		if prob < conf {
			continue
		}

		xc := out[i]
		yc := out[numAnchors+i]
		w := out[2*numAnchors+i]
		h := out[3*numAnchors+i]

		box := [4]float32{(xc - w/2) * sx, (yc - h/2) * sy, (xc + w/2) * sx, (yc + h/2) * sy}
		dets = append(dets, models.DetectionResult{
			ClassID:    classID,
			Confidence: prob,
			Box:        clipBox(box, width, height),
		})
	}
	return dets
}
