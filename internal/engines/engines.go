package engines

import (
	"context"
	"fmt"
	"strings"
	"time"

	"platescan/internal/config"
	"platescan/processing/ocr"
	"platescan/processing/ocr/rekognition"
	"platescan/processing/ocr/remote"
	"platescan/processing/ocr/tesseract"

	"github.com/sirupsen/logrus"
)

const (
	Tesseract   = "tesseract"
	Remote      = "remote"
	Rekognition = "rekognition"
)

// NewRecognizer builds the OCR engines named in cfg.Engines, in order.
func NewRecognizer(ctx context.Context, cfg config.OCRConfig, log logrus.FieldLogger) (*ocr.Recognizer, error) {
	var list []ocr.Engine
	for _, name := range cfg.Engines {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case Tesseract:
			list = append(list, tesseract.New(cfg.Languages, cfg.Whitelist))
		case Remote:
			list = append(list, remote.New(cfg.RemoteURL, cfg.RemoteToken, time.Duration(cfg.RequestTimeout)*time.Second))
		case Rekognition:
			eng, err := rekognition.New(ctx, cfg.AWSRegion)
			if err != nil {
				return nil, err
			}
			list = append(list, eng)
		default:
			return nil, fmt.Errorf("unknown OCR engine %q (want %s, %s or %s)", name, Tesseract, Remote, Rekognition)
		}
		log.Debugf("OCR engine enabled: %s", name)
	}
	return ocr.NewRecognizer(log, list...), nil
}
