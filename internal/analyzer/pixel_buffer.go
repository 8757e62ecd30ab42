package analyzer

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	"math"

	xdraw "golang.org/x/image/draw"
)

// ErrInvalidInput is returned for buffers that cannot be analysed: zero area,
// or a pixel slice whose length does not match the declared dimensions.
var ErrInvalidInput = errors.New("invalid input")

// lumaScale is the fixed-point scale of the grayscale buffer. The luminance
// weights have three decimals, so 299R+587G+114B is the exact luminance in
// thousandths and box sums over it never accumulate rounding error.
const lumaScale = 1000

// PixelBuffer is a read-only view of decoded RGBA pixels, row-major, four
// bytes per pixel, not premultiplied.
type PixelBuffer struct {
	width  int
	height int
	pix    []byte
}

// NewPixelBuffer validates the dimensions against the pixel slice. The slice
// is not copied; the caller must not mutate it while the buffer is in use.
func NewPixelBuffer(width, height int, pix []byte) (*PixelBuffer, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: zero-area buffer %dx%d", ErrInvalidInput, width, height)
	}
	if width > math.MaxInt/4/height {
		return nil, fmt.Errorf("%w: dimensions %dx%d overflow", ErrInvalidInput, width, height)
	}
	if want := width * height * 4; len(pix) != want {
		return nil, fmt.Errorf("%w: buffer length %d does not match %dx%dx4 = %d",
			ErrInvalidInput, len(pix), width, height, want)
	}
	return &PixelBuffer{width: width, height: height, pix: pix}, nil
}

// PixelBufferFromImage converts any decoded image into a PixelBuffer.
func PixelBufferFromImage(img image.Image) (*PixelBuffer, error) {
	if img == nil {
		return nil, fmt.Errorf("%w: nil image", ErrInvalidInput)
	}
	bounds := img.Bounds()
	if bounds.Empty() {
		return nil, fmt.Errorf("%w: zero-area image %dx%d", ErrInvalidInput, bounds.Dx(), bounds.Dy())
	}

	dst := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(dst, dst.Bounds(), img, bounds.Min, draw.Src)
	return NewPixelBuffer(bounds.Dx(), bounds.Dy(), dst.Pix)
}

// Width returns the buffer width in pixels.
func (b *PixelBuffer) Width() int { return b.width }

// Height returns the buffer height in pixels.
func (b *PixelBuffer) Height() int { return b.height }

// Pixels returns the total pixel count.
func (b *PixelBuffer) Pixels() int { return b.width * b.height }

// Pix exposes the underlying bytes. Callers must treat them as read-only.
func (b *PixelBuffer) Pix() []byte { return b.pix }

// Image wraps the buffer as an *image.NRGBA sharing the same memory.
func (b *PixelBuffer) Image() *image.NRGBA {
	return &image.NRGBA{
		Pix:    b.pix,
		Stride: 4 * b.width,
		Rect:   image.Rect(0, 0, b.width, b.height),
	}
}

// DownscaleSize returns the target dimensions for maxDim using the single
// factor min(1, maxDim/max(w,h)), rounded to the nearest integer >= 1.
// A non-positive maxDim means unbounded.
func DownscaleSize(width, height, maxDim int) (int, int) {
	longest := max(width, height)
	if maxDim <= 0 || longest <= maxDim {
		return width, height
	}
	scale := float64(maxDim) / float64(longest)
	tw := max(1, int(math.Round(float64(width)*scale)))
	th := max(1, int(math.Round(float64(height)*scale)))
	return tw, th
}

// Downscale returns a bilinear-resampled copy whose larger side does not
// exceed maxDim. It never upscales; the receiver is returned unchanged when it
// already fits.
func (b *PixelBuffer) Downscale(maxDim int) *PixelBuffer {
	tw, th := DownscaleSize(b.width, b.height, maxDim)
	if tw == b.width && th == b.height {
		return b
	}

	dst := image.NewNRGBA(image.Rect(0, 0, tw, th))
	xdraw.BiLinear.Scale(dst, dst.Bounds(), b.Image(), image.Rect(0, 0, b.width, b.height), xdraw.Src, nil)
	return &PixelBuffer{width: tw, height: th, pix: dst.Pix}
}

// Luma returns a freshly allocated grayscale buffer in thousandths of a
// luminance unit (0.299R + 0.587G + 0.114B, scaled by 1000).
func (b *PixelBuffer) Luma() []int32 {
	luma := make([]int32, b.width*b.height)
	for i, p := 0, 0; i < len(b.pix); i, p = i+4, p+1 {
		luma[p] = 299*int32(b.pix[i]) + 587*int32(b.pix[i+1]) + 114*int32(b.pix[i+2])
	}
	return luma
}

// Grayscale returns a freshly allocated float luminance buffer in [0,255].
func (b *PixelBuffer) Grayscale() []float64 {
	luma := b.Luma()
	gray := make([]float64, len(luma))
	for i, v := range luma {
		gray[i] = float64(v) / lumaScale
	}
	return gray
}
