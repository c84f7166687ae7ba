// Package imaging shrinks uploaded catalog photos before they are stored.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/nfnt/resize"
)

const (
	MaxWidth  = 800
	MaxHeight = 800
	Quality   = 80

	// Source limits, checked from the header before any pixel is decoded.
	MaxSourceSide   = 10000
	MaxSourcePixels = 50_000_000
)

var (
	ErrUnsupportedFormat = errors.New("unsupported image format")
	ErrTooLarge          = errors.New("image dimensions too large")
)

// Compress decodes a PNG, JPEG or GIF, fits it into the 800x800 box keeping
// its aspect ratio, and re-encodes it as JPEG. Smaller images are not
// enlarged. Sources beyond MaxSourceSide or MaxSourcePixels are rejected with
// ErrTooLarge.
func Compress(r io.Reader) ([]byte, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return nil, ErrUnsupportedFormat
		}
		return nil, fmt.Errorf("failed to decode image header: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width > MaxSourceSide || cfg.Height > MaxSourceSide ||
		cfg.Width*cfg.Height > MaxSourcePixels {
		return nil, fmt.Errorf("%w: %dx%d", ErrTooLarge, cfg.Width, cfg.Height)
	}

	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return nil, ErrUnsupportedFormat
		}
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	resized := resize.Thumbnail(MaxWidth, MaxHeight, img, resize.Lanczos3)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, resized, &jpeg.Options{Quality: Quality}); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}

// Uploads stores compressed images on disk under unique names.
type Uploads struct {
	Dir       string
	URLPrefix string
}

// Save compresses r into Dir and returns the public URL of the file.
func (u *Uploads) Save(r io.Reader) (string, error) {
	data, err := Compress(r)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(u.Dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create upload dir: %w", err)
	}

	filename := fmt.Sprintf("%s.jpg", uuid.New().String())
	if err := os.WriteFile(filepath.Join(u.Dir, filename), data, 0o644); err != nil {
		return "", fmt.Errorf("failed to save image: %w", err)
	}
	return u.URLPrefix + filename, nil
}
