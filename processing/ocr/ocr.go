package ocr

import (
	"context"
	"fmt"
	"image"
	"strings"

	"platescan/internal/models"

	"github.com/sirupsen/logrus"
)

const MethodAuto = "auto"

// Reading is the raw output of one engine pass. Confidence is in [0, 1].
type Reading struct {
	Text       string
	Confidence float64
}

type Engine interface {
	Name() string
	Recognize(ctx context.Context, img image.Image) (Reading, error)
}

// CleanPlateText uppercases text and drops everything outside A-Z and 0-9.
func CleanPlateText(text string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(text) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Recognizer runs the configured engines over a plate crop.
type Recognizer struct {
	engines []Engine
	log     logrus.FieldLogger
}

func NewRecognizer(log logrus.FieldLogger, engines ...Engine) *Recognizer {
	return &Recognizer{engines: engines, log: log}
}

// Methods lists the accepted method names.
func (r *Recognizer) Methods() []string {
	methods := []string{MethodAuto}
	for _, e := range r.engines {
		methods = append(methods, e.Name())
	}
	return methods
}

type candidate struct {
	engine  string
	variant string
	raw     string
	text    string
	conf    float64
}

// Read recognises plate text with the given method. "auto" tries every engine
// on the crop as is and on its preprocessed variant, keeping the most
// confident non-empty reading. An engine name runs only that engine on the
// preprocessed crop.
func (r *Recognizer) Read(ctx context.Context, img image.Image, method string) models.OCRResult {
	if method == "" {
		method = MethodAuto
	}

	var (
		engines  []Engine
		variants = map[string]image.Image{"preprocessed": Preprocess(img)}
	)
	if method == MethodAuto {
		engines = r.engines
		variants["raw"] = img
	} else {
		for _, e := range r.engines {
			if e.Name() == method {
				engines = []Engine{e}
				break
			}
		}
		if engines == nil {
			return models.OCRResult{Error: fmt.Sprintf("Unsupported OCR method: %s", method)}
		}
	}

	var (
		best    *candidate
		lastErr error
	)
	for _, e := range engines {
		for _, variant := range []string{"raw", "preprocessed"} {
			in, ok := variants[variant]
			if !ok {
				continue
			}
			reading, err := e.Recognize(ctx, in)
			if err != nil {
				r.log.Debugf("%s on %s crop: %v", e.Name(), variant, err)
				lastErr = err
				continue
			}
			text := CleanPlateText(reading.Text)
			r.log.Debugf("%s on %s crop: %q -> %q (%.3f)", e.Name(), variant, reading.Text, text, reading.Confidence)
			if text == "" {
				continue
			}
			if best == nil || reading.Confidence > best.conf {
				best = &candidate{
					engine:  e.Name(),
					variant: variant,
					raw:     strings.TrimSpace(reading.Text),
					text:    text,
					conf:    reading.Confidence,
				}
			}
		}
	}

	if best == nil {
		if method != MethodAuto && lastErr != nil {
			return models.OCRResult{Method: method, Error: fmt.Sprintf("%s OCR failed: %v", method, lastErr)}
		}
		return models.OCRResult{Method: method, Error: "No text detected"}
	}

	m := best.engine
	if method == MethodAuto {
		m = best.engine + "_" + best.variant
	}
	return models.OCRResult{
		Success:          true,
		LicensePlateText: best.text,
		RawText:          best.raw,
		Confidence:       best.conf,
		Method:           m,
	}
}
