package remote

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"time"

	"platescan/internal/imageio"
	"platescan/processing/ocr"
)

type recognizeRequest struct {
	ImageB64 string `json:"image_base64"`
}

type recognizeResponse struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// Engine posts plate crops to an HTTP OCR service.
type Engine struct {
	url     string
	token   string
	timeout time.Duration
	client  *http.Client
}

func New(url, token string, timeout time.Duration) *Engine {
	return &Engine{
		url:     url,
		token:   token,
		timeout: timeout,
		client:  &http.Client{Transport: &http.Transport{Proxy: http.ProxyFromEnvironment, IdleConnTimeout: 90 * time.Second}},
	}
}

func (e *Engine) Name() string { return "remote" }

func (e *Engine) Recognize(ctx context.Context, img image.Image) (ocr.Reading, error) {
	if e.url == "" {
		return ocr.Reading{}, errors.New("remote OCR url is not configured")
	}
	data, err := imageio.EncodePNG(img)
	if err != nil {
		return ocr.Reading{}, fmt.Errorf("encode crop: %w", err)
	}
	body, err := json.Marshal(recognizeRequest{ImageB64: base64.StdEncoding.EncodeToString(data)})
	if err != nil {
		return ocr.Reading{}, err
	}

	reqCtx := ctx
	if e.timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	request, err := http.NewRequestWithContext(reqCtx, http.MethodPost, e.url, bytes.NewReader(body))
	if err != nil {
		return ocr.Reading{}, err
	}
	request.Header.Set("Content-Type", "application/json")
	if e.token != "" {
		request.Header.Set("X-Internal-Token", e.token)
	}

	resp, err := e.client.Do(request)
	if err != nil {
		return ocr.Reading{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return ocr.Reading{}, fmt.Errorf("ocr request failed: status %d: %s", resp.StatusCode, string(msg))
	}

	var parsed recognizeResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return ocr.Reading{}, fmt.Errorf("decode ocr response: %w", err)
	}
	if parsed.Confidence > 1 {
		parsed.Confidence /= 100
	}
	return ocr.Reading{Text: parsed.Text, Confidence: parsed.Confidence}, nil
}
