package handlers_test

import (
	"bytes"
	"encoding/json"
	"image"
	"image/jpeg"
	"io"
	"strconv"
)

func itoa(n int) string { return strconv.Itoa(n) }

func imageConfig(data []byte) (image.Config, error) {
	return jpeg.DecodeConfig(bytes.NewReader(data))
}

func decodeReader(r io.Reader, v interface{}) error {
	return json.NewDecoder(r).Decode(v)
}
