package analyzer

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "github.com/xfmoulet/qoi"
	_ "golang.org/x/image/webp"
)

// ErrDecode is returned when the encoded bytes are not a supported image.
var ErrDecode = errors.New("image decode failed")

// DefaultMaxDecodePixels bounds the area an image header may declare. Small
// files can claim huge canvases, so the upload size alone does not bound memory.
const DefaultMaxDecodePixels int64 = 40_000_000

// DecodeImage decodes JPEG, PNG, GIF, WebP or QOI bytes into a PixelBuffer and
// reports the detected format name. The declared area is capped at
// DefaultMaxDecodePixels.
func DecodeImage(data []byte) (*PixelBuffer, string, error) {
	return DecodeImageLimit(data, DefaultMaxDecodePixels)
}

// DecodeImageLimit is DecodeImage with an explicit pixel cap checked against
// the header before any pixel is decoded. maxPixels <= 0 uses the default.
func DecodeImageLimit(data []byte, maxPixels int64) (*PixelBuffer, string, error) {
	if len(data) == 0 {
		return nil, "", fmt.Errorf("%w: empty image data", ErrInvalidInput)
	}
	if maxPixels <= 0 {
		maxPixels = DefaultMaxDecodePixels
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if area := int64(cfg.Width) * int64(cfg.Height); area > maxPixels {
		return nil, format, fmt.Errorf("%w: %dx%d image exceeds %d pixels",
			ErrInvalidInput, cfg.Width, cfg.Height, maxPixels)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrDecode, err)
	}
	buf, err := PixelBufferFromImage(img)
	if err != nil {
		return nil, format, err
	}
	return buf, format, nil
}
