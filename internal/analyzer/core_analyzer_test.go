package analyzer

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"reflect"
	"testing"
)

// createTestImage creates a simple test image for testing purposes
func createTestImage(width, height int, fillColor color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, fillColor)
		}
	}
	return img
}

// createGradientImage creates a gradient test image
func createGradientImage(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			intensity := uint8((x + y) * 255 / (width + height))
			img.Set(x, y, color.RGBA{intensity, uint8(x * 255 / width), intensity / 2, 255})
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("Failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

// stubMarkers reports a fixed marker and counts lookups.
type stubMarkers struct {
	marker string
	calls  int
}

func (s *stubMarkers) FindMarker([]byte) (string, bool) {
	s.calls++
	return s.marker, s.marker != ""
}

func newTestAnalyzer(t *testing.T, markers MarkerExtractor) ImageAnalyzer {
	t.Helper()
	analyzer, err := NewImageAnalyzer(markers, 2)
	if err != nil {
		t.Fatalf("Failed to create image analyzer: %v", err)
	}
	t.Cleanup(func() { analyzer.Close() })
	return analyzer
}

func TestNewImageAnalyzer(t *testing.T) {
	analyzer, err := NewImageAnalyzer(nil, 0)
	if err != nil {
		t.Fatalf("Failed to create image analyzer: %v", err)
	}
	if analyzer == nil {
		t.Fatal("Expected non-nil analyzer")
	}
	if err := analyzer.Close(); err != nil {
		t.Errorf("Unexpected close error: %v", err)
	}
}

func TestAnalyzeBytes_BlackImage(t *testing.T) {
	analyzer := newTestAnalyzer(t, nil)
	data := encodePNG(t, createTestImage(100, 100, color.RGBA{0, 0, 0, 255}))

	report, err := analyzer.AnalyzeBytes(context.Background(), data, DefaultOptions().WithSeed(1))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if report.Format != "png" {
		t.Errorf("Expected format png, got %q", report.Format)
	}
	if report.Features.FileSize != int64(len(data)) {
		t.Errorf("Expected file size %d, got %d", len(data), report.Features.FileSize)
	}
	if report.Features.GreenPixelCount != 0 || report.Features.MeanExG != nil {
		t.Error("Expected no green pixels in a black image")
	}
	if report.Features.NoiseRaw != 0 || report.Features.LapVar != 0 {
		t.Errorf("Expected zero noise and lapVar, got %f and %f", report.Features.NoiseRaw, report.Features.LapVar)
	}
	if report.Result.Score != 48 {
		t.Errorf("Expected score 48, got %d", report.Result.Score)
	}
	if len(report.Result.Reasons) != 2 {
		t.Errorf("Expected 2 reasons, got %v", report.Result.Reasons)
	}
	if report.Features.PerceptualHash == "" {
		t.Error("Expected a perceptual hash by default")
	}
	if report.Timestamp.IsZero() {
		t.Error("Expected timestamp to be set")
	}
}

func TestAnalyzeBytes_SeededIsIdempotent(t *testing.T) {
	analyzer := newTestAnalyzer(t, nil)
	data := encodePNG(t, createGradientImage(160, 120))
	opts := DefaultOptions().WithSeed(12345)

	first, err := analyzer.AnalyzeBytes(context.Background(), data, opts)
	if err != nil {
		t.Fatal(err)
	}
	second, err := analyzer.AnalyzeBytes(context.Background(), data, opts)
	if err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(first.Features, second.Features) {
		t.Errorf("Expected identical features, got %+v and %+v", first.Features, second.Features)
	}
	if !reflect.DeepEqual(first.Result, second.Result) {
		t.Errorf("Expected identical results, got %+v and %+v", first.Result, second.Result)
	}
}

func TestAnalyzeBuffer_ParallelMatchesSequential(t *testing.T) {
	analyzer := newTestAnalyzer(t, nil)
	buf, err := PixelBufferFromImage(createGradientImage(300, 200))
	if err != nil {
		t.Fatal(err)
	}

	parallel := DefaultOptions().WithSeed(3)
	sequential := parallel
	sequential.UseWorkerPool = false

	a, err := analyzer.AnalyzeBuffer(context.Background(), buf, Metadata{}, parallel)
	if err != nil {
		t.Fatal(err)
	}
	b, err := analyzer.AnalyzeBuffer(context.Background(), buf, Metadata{}, sequential)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(a.Features, b.Features) || !reflect.DeepEqual(a.Result, b.Result) {
		t.Errorf("Expected parallel and sequential extraction to agree:\n%+v\n%+v", a, b)
	}
}

func TestAnalyzeBytes_InvalidInput(t *testing.T) {
	analyzer := newTestAnalyzer(t, nil)

	tests := []struct {
		name    string
		data    []byte
		wantErr error
	}{
		{"nil data", nil, ErrInvalidInput},
		{"empty data", []byte{}, ErrInvalidInput},
		{"garbage", []byte("definitely not an image"), ErrDecode},
		{"truncated png", encodePNG(t, createTestImage(10, 10, color.RGBA{1, 2, 3, 255}))[:30], ErrDecode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := analyzer.AnalyzeBytes(context.Background(), tt.data, DefaultOptions())
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestAnalyzeBuffer_NilBuffer(t *testing.T) {
	analyzer := newTestAnalyzer(t, nil)
	if _, err := analyzer.AnalyzeBuffer(context.Background(), nil, Metadata{}, DefaultOptions()); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}

func TestAnalyzeBytes_CancelledContext(t *testing.T) {
	analyzer := newTestAnalyzer(t, nil)
	data := encodePNG(t, createTestImage(20, 20, color.RGBA{9, 9, 9, 255}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := analyzer.AnalyzeBytes(ctx, data, DefaultOptions()); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestAnalyzeBytes_InvalidOptions(t *testing.T) {
	analyzer := newTestAnalyzer(t, nil)
	opts := DefaultOptions()
	opts.Scoring.Weights = Weights{}

	_, err := analyzer.AnalyzeBytes(context.Background(), []byte("x"), opts)
	if !errors.Is(err, ErrInvalidOptions) {
		t.Errorf("Expected ErrInvalidOptions, got %v", err)
	}
}

func TestAnalyzeBytes_MarkerExtractor(t *testing.T) {
	markers := &stubMarkers{marker: "stable"}
	analyzer := newTestAnalyzer(t, markers)
	data := encodePNG(t, createTestImage(30, 30, color.RGBA{0, 0, 0, 255}))

	report, err := analyzer.AnalyzeBytes(context.Background(), data, DefaultOptions().WithSeed(1))
	if err != nil {
		t.Fatal(err)
	}
	if report.Features.ExifMarker == nil || *report.Features.ExifMarker != "stable" {
		t.Fatalf("Expected marker 'stable', got %v", report.Features.ExifMarker)
	}
	if report.Result.Components["exif"] != 1 {
		t.Errorf("Expected exif component 1, got %v", report.Result.Components["exif"])
	}

	// Skipped metadata never consults the extractor
	calls := markers.calls
	report, err = analyzer.AnalyzeBytes(context.Background(), data, DefaultOptions().WithoutMetadata())
	if err != nil {
		t.Fatal(err)
	}
	if markers.calls != calls {
		t.Error("Expected marker extractor not to be called when metadata is skipped")
	}
	if report.Features.ExifMarker != nil {
		t.Error("Expected no marker when metadata is skipped")
	}
}

func TestAnalyzeBytes_Downscales(t *testing.T) {
	analyzer := newTestAnalyzer(t, nil)
	data := encodePNG(t, createGradientImage(2000, 100))

	report, err := analyzer.AnalyzeBytes(context.Background(), data, DefaultOptions().WithSeed(5))
	if err != nil {
		t.Fatal(err)
	}
	if report.Features.Width != 900 || report.Features.Height != 45 {
		t.Errorf("Expected features over 900x45, got %dx%d", report.Features.Width, report.Features.Height)
	}
	if report.OriginalWidth != 2000 || report.OriginalHeight != 100 {
		t.Errorf("Expected original size 2000x100, got %dx%d", report.OriginalWidth, report.OriginalHeight)
	}
}

func TestAnalyzeBytes_FastModeSkipsHash(t *testing.T) {
	analyzer := newTestAnalyzer(t, nil)
	data := encodePNG(t, createGradientImage(64, 64))

	report, err := analyzer.AnalyzeBytes(context.Background(), data, FastOptions())
	if err != nil {
		t.Fatal(err)
	}
	if report.Features.PerceptualHash != "" {
		t.Errorf("Expected no perceptual hash in fast mode, got %q", report.Features.PerceptualHash)
	}
}
