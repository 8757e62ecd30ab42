// Package validation checks client input before it reaches the analyzer.
package validation

import (
	"bytes"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strings"

	apperrors "github.com/anime-shed/synthscan/internal/errors"
)

// URLValidator accepts absolute http(s) URLs, optionally restricted to hosts.
type URLValidator struct {
	allowedSchemes []string
	allowedHosts   []string
}

// NewURLValidator creates a new URL validator with default settings
func NewURLValidator() *URLValidator {
	return &URLValidator{
		allowedSchemes: []string{"http", "https"},
	}
}

// NewURLValidatorWithOptions creates a URL validator with custom options.
// An empty hosts list allows every host.
func NewURLValidatorWithOptions(schemes []string, hosts []string) *URLValidator {
	return &URLValidator{
		allowedSchemes: schemes,
		allowedHosts:   hosts,
	}
}

// ValidateImageURL returns a validation AppError when imageURL cannot be fetched.
func (v *URLValidator) ValidateImageURL(imageURL string) error {
	if strings.TrimSpace(imageURL) == "" {
		return apperrors.NewValidationError("URL cannot be empty", nil)
	}

	parsedURL, err := url.Parse(imageURL)
	if err != nil {
		return apperrors.NewValidationError("Invalid URL format", err)
	}
	if !slices.Contains(v.allowedSchemes, strings.ToLower(parsedURL.Scheme)) {
		return apperrors.NewValidationError("URL scheme not allowed", nil)
	}
	if parsedURL.Hostname() == "" {
		return apperrors.NewValidationError("URL must have a valid host", nil)
	}
	if parsedURL.User != nil {
		return apperrors.NewValidationError("URL must not embed credentials", nil)
	}
	if !v.isHostAllowed(parsedURL.Hostname()) {
		return apperrors.NewValidationError("URL host not allowed", nil)
	}
	return nil
}

func (v *URLValidator) isHostAllowed(host string) bool {
	if len(v.allowedHosts) == 0 {
		return true
	}
	return slices.ContainsFunc(v.allowedHosts, func(allowed string) bool {
		return strings.EqualFold(host, allowed)
	})
}

// UploadValidator screens uploaded bytes by size and content sniffing.
type UploadValidator struct {
	maxBytes int64
}

// NewUploadValidator creates a validator; maxBytes <= 0 disables the size check.
func NewUploadValidator(maxBytes int64) *UploadValidator {
	return &UploadValidator{maxBytes: maxBytes}
}

// ValidateUpload checks that data is non-empty, within the size limit and
// looks like an image. It returns the sniffed MIME type.
func (v *UploadValidator) ValidateUpload(data []byte) (string, error) {
	if len(data) == 0 {
		return "", apperrors.NewValidationError("file is empty", nil)
	}
	if v.maxBytes > 0 && int64(len(data)) > v.maxBytes {
		return "", apperrors.NewValidationError(
			fmt.Sprintf("file exceeds %d bytes", v.maxBytes), nil)
	}

	mime := SniffImageType(data)
	if mime == "" {
		return "", apperrors.NewValidationError("file is not a supported image", nil).
			WithDetails("detected " + http.DetectContentType(data))
	}
	return mime, nil
}

// SniffImageType returns the MIME type of a supported image format, or "".
func SniffImageType(data []byte) string {
	// QOI is unknown to http.DetectContentType
	if bytes.HasPrefix(data, []byte("qoif")) {
		return "image/qoi"
	}
	switch ct := http.DetectContentType(data); ct {
	case "image/jpeg", "image/png", "image/gif", "image/webp":
		return ct
	}
	return ""
}
