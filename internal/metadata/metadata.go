// Package metadata finds AI-generator markers in embedded image metadata.
package metadata

import (
	"bytes"
	"fmt"
	"strings"
	"unicode"

	"github.com/anime-shed/synthscan/internal/logger"

	"github.com/arbovm/levenshtein"
	"github.com/bep/imagemeta"
)

// DefaultMarkers are checked in order; the first one found wins.
var DefaultMarkers = []string{
	"midjourney",
	"stable",
	"sd",
	"dalle",
	"gpt-image",
	"imagen",
	"generated by",
	"ai-generated",
}

// fuzzyMinLength keeps short markers such as "sd" out of fuzzy matching.
const fuzzyMinLength = 6

// Extractor resolves a generator marker from EXIF, IPTC and XMP tag values.
type Extractor struct {
	Markers []string
	// FuzzyDistance is the largest Levenshtein distance at which a word token
	// still matches a marker. 0 disables fuzzy matching.
	FuzzyDistance int
}

// NewExtractor returns an extractor with the default vocabulary.
func NewExtractor() *Extractor {
	return &Extractor{
		Markers:       DefaultMarkers,
		FuzzyDistance: 1,
	}
}

// FindMarker decodes the metadata of data and returns the first marker found.
// Unsupported formats and unreadable metadata report no marker.
func (e *Extractor) FindMarker(data []byte) (string, bool) {
	text, err := TagText(data)
	if err != nil {
		logger.WithError(err).Debug("Metadata not readable")
		return "", false
	}
	return e.FindMarkerInText(text)
}

// FindMarkerInText matches markers against already collected tag text.
func (e *Extractor) FindMarkerInText(text string) (string, bool) {
	if text == "" {
		return "", false
	}
	lower := strings.ToLower(text)
	for _, m := range e.Markers {
		if strings.Contains(lower, m) {
			return m, true
		}
	}
	if e.FuzzyDistance <= 0 {
		return "", false
	}

	tokens := strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-'
	})
	for _, m := range e.Markers {
		if len(m) < fuzzyMinLength {
			continue
		}
		for _, tok := range tokens {
			if len(tok) < fuzzyMinLength {
				continue
			}
			if levenshtein.Distance(tok, m) <= e.FuzzyDistance {
				return m, true
			}
		}
	}
	return "", false
}

// TagText returns the lower-cased, space separated values of every string-like
// metadata tag in data. An image without metadata yields "".
func TagText(data []byte) (string, error) {
	format, ok := detectFormat(data)
	if !ok {
		return "", nil
	}

	var sb strings.Builder
	_, err := imagemeta.Decode(imagemeta.Options{
		R:           bytes.NewReader(data),
		ImageFormat: format,
		Sources:     imagemeta.EXIF | imagemeta.IPTC | imagemeta.XMP,
		HandleTag: func(ti imagemeta.TagInfo) error {
			if s := tagValueString(ti.Value); s != "" {
				sb.WriteString(strings.ToLower(s))
				sb.WriteByte(' ')
			}
			return nil
		},
	})
	if err != nil {
		return sb.String(), fmt.Errorf("decode metadata: %w", err)
	}
	return sb.String(), nil
}

// detectFormat maps magic bytes to the container formats imagemeta reads.
func detectFormat(data []byte) (imagemeta.ImageFormat, bool) {
	switch {
	case bytes.HasPrefix(data, []byte{0xFF, 0xD8}):
		return imagemeta.JPEG, true
	case bytes.HasPrefix(data, []byte{0x89, 'P', 'N', 'G'}):
		return imagemeta.PNG, true
	case len(data) >= 12 && bytes.Equal(data[:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WEBP")):
		return imagemeta.WebP, true
	case bytes.HasPrefix(data, []byte("II*\x00")), bytes.HasPrefix(data, []byte("MM\x00*")):
		return imagemeta.TIFF, true
	}
	return 0, false
}

// tagValueString extracts a string from a tag value.
// XMP values may be string or []string (from altList/seqList).
func tagValueString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case []string:
		return strings.Join(val, " ")
	case []byte:
		return string(bytes.TrimRight(val, "\x00"))
	}
	return ""
}
