package imageio

import (
	"context"
	"errors"
	"image"
	"image/color"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solid(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestLoadMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope.jpg")

	_, err := Load(context.Background(), path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, "Image not found: "+path, err.Error())
}

func TestLoadGarbage(t *testing.T) {
	ffmpegBin = "platescan-no-such-ffmpeg"
	t.Cleanup(func() { ffmpegBin = "ffmpeg" })

	path := filepath.Join(t.TempDir(), "garbage.jpg")
	require.NoError(t, os.WriteFile(path, []byte("definitely not an image"), 0o644))

	_, err := Load(context.Background(), path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDecode))
}

func TestSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	src := solid(40, 20, color.RGBA{R: 200, G: 10, B: 10, A: 255})

	for _, name := range []string{"nested/a.png", "nested/b.jpg"} {
		path := filepath.Join(dir, name)
		require.NoError(t, Save(path, src))

		img, err := Load(context.Background(), path)
		require.NoError(t, err)
		assert.Equal(t, 40, img.Bounds().Dx())
		assert.Equal(t, 20, img.Bounds().Dy())
	}
}

func TestToRGBAReanchors(t *testing.T) {
	src := solid(30, 30, color.White)
	sub := src.SubImage(image.Rect(10, 5, 20, 25))

	out := ToRGBA(sub)
	assert.Equal(t, image.Rect(0, 0, 10, 20), out.Bounds())
	assert.Equal(t, color.RGBA{255, 255, 255, 255}, out.RGBAAt(0, 0))
}

func TestDecodeWithFFmpeg(t *testing.T) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not installed in PATH")
	}
	if _, err := exec.LookPath("ffprobe"); err != nil {
		t.Skip("ffprobe not installed in PATH")
	}

	path := filepath.Join(t.TempDir(), "frame.png")
	require.NoError(t, SavePNG(path, solid(16, 8, color.Black)))

	img, err := decodeWithFFmpeg(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 16, 8), img.Bounds())
}
