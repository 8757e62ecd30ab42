package metadata

import (
	"bytes"
	"image"
	"image/png"
	"testing"

	"github.com/bep/imagemeta"
)

func TestFindMarkerInText(t *testing.T) {
	e := NewExtractor()

	tests := []struct {
		name   string
		text   string
		want   string
		wantOK bool
	}{
		{"empty", "", "", false},
		{"camera", "canon eos 5d mark iv", "", false},
		{"midjourney", "Made with Midjourney v6", "midjourney", true},
		{"first marker in list order wins", "dalle stable diffusion", "stable", true},
		{"sd substring", "model: sdxl", "sd", true},
		{"generated by", "Image Generated By some tool", "generated by", true},
		{"fuzzy match", "created in midjurney", "midjourney", true},
		{"fuzzy needs long tokens", "imagon", "imagen", true},
		{"too far for fuzzy", "midnight journey", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := e.FindMarkerInText(tt.text)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("FindMarkerInText(%q) = (%q, %v), want (%q, %v)", tt.text, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestFindMarkerInText_FuzzyDisabled(t *testing.T) {
	e := &Extractor{Markers: DefaultMarkers}
	if m, ok := e.FindMarkerInText("midjurney"); ok {
		t.Errorf("Expected no match with fuzzy matching disabled, got %q", m)
	}
}

func TestFindMarkerInText_CustomVocabulary(t *testing.T) {
	e := &Extractor{Markers: []string{"firefly"}}
	if m, ok := e.FindMarkerInText("Adobe Firefly"); !ok || m != "firefly" {
		t.Errorf("Expected firefly, got (%q, %v)", m, ok)
	}
	if _, ok := e.FindMarkerInText("midjourney"); ok {
		t.Error("Expected default markers not to apply to a custom vocabulary")
	}
}

func TestFindMarker_NoMetadata(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, 4, 4))); err != nil {
		t.Fatal(err)
	}

	e := NewExtractor()
	for name, data := range map[string][]byte{
		"plain png": buf.Bytes(),
		"garbage":   []byte("not an image"),
		"empty":     nil,
	} {
		if m, ok := e.FindMarker(data); ok {
			t.Errorf("%s: expected no marker, got %q", name, m)
		}
	}
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name   string
		data   []byte
		want   imagemeta.ImageFormat
		wantOK bool
	}{
		{"jpeg", []byte{0xFF, 0xD8, 0xFF, 0xE0}, imagemeta.JPEG, true},
		{"png", []byte{0x89, 'P', 'N', 'G', '\r', '\n'}, imagemeta.PNG, true},
		{"webp", []byte("RIFF\x00\x00\x00\x00WEBPVP8 "), imagemeta.WebP, true},
		{"tiff little endian", []byte("II*\x00"), imagemeta.TIFF, true},
		{"tiff big endian", []byte("MM\x00*"), imagemeta.TIFF, true},
		{"gif", []byte("GIF89a"), 0, false},
		{"short", []byte{0xFF}, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := detectFormat(tt.data)
			if ok != tt.wantOK || (ok && got != tt.want) {
				t.Errorf("detectFormat() = (%v, %v), want (%v, %v)", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestTagValueString(t *testing.T) {
	if got := tagValueString("Midjourney"); got != "Midjourney" {
		t.Errorf("Unexpected %q", got)
	}
	if got := tagValueString([]string{"a", "b"}); got != "a b" {
		t.Errorf("Unexpected %q", got)
	}
	if got := tagValueString([]byte("ascii\x00\x00")); got != "ascii" {
		t.Errorf("Unexpected %q", got)
	}
	if got := tagValueString(42); got != "" {
		t.Errorf("Expected non-string values to be ignored, got %q", got)
	}
}
