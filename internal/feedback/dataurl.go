package feedback

import (
	"encoding/base64"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrInvalidBackground is returned when a data URL carries undecodable base64.
var ErrInvalidBackground = errors.New("invalid background image data")

var dataURLPattern = regexp.MustCompile(`^data:(image/[a-zA-Z+]+);base64,(.+)$`)

// Background is a decoded data URL image.
type Background struct {
	MimeType string
	// Ext is the subtype up to the first '+', e.g. "svg" for image/svg+xml.
	Ext  string
	Data []byte
}

// ParseDataURL decodes data:image/<type>;base64,<payload>. A string that does
// not have that shape returns (nil, nil) and is ignored by the store.
func ParseDataURL(s string) (*Background, error) {
	m := dataURLPattern.FindStringSubmatch(s)
	if m == nil {
		return nil, nil
	}

	mime := m[1]
	_, subtype, _ := strings.Cut(mime, "/")
	ext, _, _ := strings.Cut(subtype, "+")

	payload := strings.TrimRight(m[2], "=")
	data, err := base64.RawStdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBackground, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrInvalidBackground)
	}

	return &Background{MimeType: mime, Ext: strings.ToLower(ext), Data: data}, nil
}
