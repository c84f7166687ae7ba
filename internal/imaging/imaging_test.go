package imaging_test

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alextreichler/flowershop/internal/imaging"
)

func pngOf(t *testing.T, w, h int) *bytes.Buffer {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, x%h, color.RGBA{R: 200, G: 20, B: 60, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return &buf
}

func TestCompress_FitsBoundingBox(t *testing.T) {
	data, err := imaging.Compress(pngOf(t, 1600, 1000))
	require.NoError(t, err)

	cfg, err := jpeg.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 800, cfg.Width)
	assert.Equal(t, 500, cfg.Height)

	data, err = imaging.Compress(pngOf(t, 900, 1800))
	require.NoError(t, err)
	cfg, err = jpeg.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 400, cfg.Width)
	assert.Equal(t, 800, cfg.Height)
}

func TestCompress_DoesNotEnlarge(t *testing.T) {
	data, err := imaging.Compress(pngOf(t, 120, 80))
	require.NoError(t, err)
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 120, cfg.Width)
	assert.Equal(t, 80, cfg.Height)
}

func TestCompress_Unsupported(t *testing.T) {
	_, err := imaging.Compress(strings.NewReader("definitely not an image"))
	assert.ErrorIs(t, err, imaging.ErrUnsupportedFormat)
}

// gifClaiming is a valid 1x1 GIF whose screen descriptor declares w x h.
func gifClaiming(t *testing.T, w, h uint16) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, gif.Encode(&buf, image.NewPaletted(image.Rect(0, 0, 1, 1), color.Palette{color.Black}), nil))
	data := buf.Bytes()
	binary.LittleEndian.PutUint16(data[6:8], w)
	binary.LittleEndian.PutUint16(data[8:10], h)
	return data
}

func TestCompress_RejectsHugeDimensions(t *testing.T) {
	for _, tc := range []struct {
		name string
		w, h uint16
	}{
		{"wide", 60000, 10},
		{"tall", 10, 60000},
		{"too many pixels", 9000, 9000},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := imaging.Compress(bytes.NewReader(gifClaiming(t, tc.w, tc.h)))
			assert.ErrorIs(t, err, imaging.ErrTooLarge)
		})
	}

	// the header check itself lets ordinary sizes through
	data, err := imaging.Compress(bytes.NewReader(gifClaiming(t, 1, 1)))
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}

func TestUploads_Save(t *testing.T) {
	dir := t.TempDir()
	u := &imaging.Uploads{Dir: filepath.Join(dir, "uploads"), URLPrefix: "/uploads/"}

	url, err := u.Save(pngOf(t, 50, 50))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(url, "/uploads/"))
	assert.True(t, strings.HasSuffix(url, ".jpg"))

	_, err = os.Stat(filepath.Join(u.Dir, strings.TrimPrefix(url, "/uploads/")))
	assert.NoError(t, err)
}
