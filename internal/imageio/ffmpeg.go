package imageio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"os/exec"
)

const bytesPerPixel = 4

var (
	ffmpegBin  = "ffmpeg"
	ffprobeBin = "ffprobe"
)

type probeData struct {
	Streams []struct {
		Width  int `json:"width"`
		Height int `json:"height"`
	} `json:"streams"`
}

func probeDimensions(ctx context.Context, path string) (int, int, error) {
	cmd := exec.CommandContext(ctx, ffprobeBin,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height",
		"-of", "json",
		path,
	)

	output, err := cmd.Output()
	if err != nil {
		return 0, 0, err
	}

	var data probeData
	if err := json.Unmarshal(output, &data); err != nil {
		return 0, 0, err
	}

	if len(data.Streams) == 0 {
		return 0, 0, fmt.Errorf("no image streams found")
	}
	w, h := data.Streams[0].Width, data.Streams[0].Height
	if w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("invalid dimensions %dx%d", w, h)
	}
	return w, h, nil
}

// decodeWithFFmpeg reads the first frame of path as raw RGBA.
func decodeWithFFmpeg(ctx context.Context, path string) (image.Image, error) {
	if _, err := exec.LookPath(ffmpegBin); err != nil {
		return nil, err
	}

	width, height, err := probeDimensions(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to probe image: %w", err)
	}

	args := []string{
		"-v", "error",
		"-i", path,
		"-frames:v", "1",
		"-f", "image2pipe",
		"-pix_fmt", "rgba",
		"-vcodec", "rawvideo",
		"-",
	}

	cmd := exec.CommandContext(ctx, ffmpegBin, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	pixels, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg error: %w. Details: %s", err, stderr.String())
	}

	frameSize := width * height * bytesPerPixel
	if len(pixels) < frameSize {
		return nil, fmt.Errorf("short frame: got %d bytes, want %d", len(pixels), frameSize)
	}

	return &image.RGBA{
		Pix:    pixels[:frameSize],
		Stride: width * bytesPerPixel,
		Rect:   image.Rect(0, 0, width, height),
	}, nil
}
