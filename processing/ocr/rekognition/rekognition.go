package rekognition

import (
	"context"
	"fmt"
	"image"
	"strings"

	"platescan/internal/imageio"
	"platescan/processing/ocr"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"
)

// DetectTextAPI is the part of the Rekognition client the engine uses.
type DetectTextAPI interface {
	DetectText(ctx context.Context, params *rekognition.DetectTextInput, optFns ...func(*rekognition.Options)) (*rekognition.DetectTextOutput, error)
}

type Engine struct {
	client DetectTextAPI
}

// New builds an engine from the default AWS credential chain.
func New(ctx context.Context, region string) (*Engine, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewWithClient(rekognition.NewFromConfig(cfg)), nil
}

func NewWithClient(client DetectTextAPI) *Engine {
	return &Engine{client: client}
}

func (e *Engine) Name() string { return "rekognition" }

// Recognize returns the most confident LINE detection with spaces removed.
func (e *Engine) Recognize(ctx context.Context, img image.Image) (ocr.Reading, error) {
	data, err := imageio.EncodeJPEG(img)
	if err != nil {
		return ocr.Reading{}, fmt.Errorf("encode crop: %w", err)
	}

	out, err := e.client.DetectText(ctx, &rekognition.DetectTextInput{
		Image: &types.Image{Bytes: data},
	})
	if err != nil {
		return ocr.Reading{}, fmt.Errorf("rekognition: %w", err)
	}

	var best ocr.Reading
	for _, td := range out.TextDetections {
		if td.Type != types.TextTypesLine || td.DetectedText == nil || td.Confidence == nil {
			continue
		}
		conf := float64(*td.Confidence) / 100
		if conf > best.Confidence {
			best = ocr.Reading{Text: strings.ReplaceAll(*td.DetectedText, " ", ""), Confidence: conf}
		}
	}
	return best, nil
}
