package tesseract

import (
	"context"
	"fmt"
	"image"
	"strings"

	"platescan/internal/imageio"
	"platescan/processing/ocr"

	"github.com/otiai10/gosseract/v2"
)

const PlateWhitelist = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Engine reads a single text line with a fresh gosseract client per call.
type Engine struct {
	languages     []string
	whitelist     string
	clientFactory func() *gosseract.Client
}

func New(languages []string, whitelist string) *Engine {
	if whitelist == "" {
		whitelist = PlateWhitelist
	}
	return &Engine{languages: languages, whitelist: whitelist, clientFactory: gosseract.NewClient}
}

func (e *Engine) Name() string { return "tesseract" }

func (e *Engine) Recognize(ctx context.Context, img image.Image) (ocr.Reading, error) {
	if err := ctx.Err(); err != nil {
		return ocr.Reading{}, err
	}
	data, err := imageio.EncodePNG(img)
	if err != nil {
		return ocr.Reading{}, fmt.Errorf("encode crop: %w", err)
	}

	c := e.clientFactory()
	defer c.Close()

	if len(e.languages) > 0 {
		if err := c.SetLanguage(e.languages...); err != nil {
			return ocr.Reading{}, fmt.Errorf("set languages: %w", err)
		}
	}
	if err := c.SetWhitelist(e.whitelist); err != nil {
		return ocr.Reading{}, fmt.Errorf("set whitelist: %w", err)
	}
	if err := c.SetPageSegMode(gosseract.PSM_SINGLE_LINE); err != nil {
		return ocr.Reading{}, fmt.Errorf("set page segmentation: %w", err)
	}
	if err := c.SetImageFromBytes(data); err != nil {
		return ocr.Reading{}, fmt.Errorf("set image: %w", err)
	}

	text, err := c.Text()
	if err != nil {
		return ocr.Reading{}, fmt.Errorf("recognize text: %w", err)
	}
	return ocr.Reading{Text: strings.TrimSpace(text), Confidence: wordConfidence(c)}, nil
}

// wordConfidence averages the word-level confidences on a 0-1 scale.
func wordConfidence(c *gosseract.Client) float64 {
	boxes, err := c.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil || len(boxes) == 0 {
		return 0
	}
	var sum float64
	for _, b := range boxes {
		sum += b.Confidence / 100.0
	}
	return sum / float64(len(boxes))
}
