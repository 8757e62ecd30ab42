package analyzer

// Metadata is the externally resolved input merged into the feature vector.
type Metadata struct {
	// ExifMarker is the generator marker found in the image metadata, or nil.
	ExifMarker *string
	// FileSize is the encoded size of the original upload in bytes.
	FileSize int64
}

// FeatureVector is the complete input of the heuristic scorer.
type FeatureVector struct {
	ColorStats
	NoiseRaw          float64 `json:"noiseRaw"`
	NoiseNormalized   float64 `json:"noiseNormalized"`
	LapVar            float64 `json:"lapVar"`
	Entropy           float64 `json:"entropy"`
	Width             int     `json:"width"`
	Height            int     `json:"height"`
	FileSize          int64   `json:"fileSize"`
	BytesPerMegapixel float64 `json:"bytesPerMP"`
	ExifMarker        *string `json:"exifMarker"`
	PerceptualHash    string  `json:"perceptualHash,omitempty"`
}

// NewFeatureVector merges estimator outputs with the external metadata.
func NewFeatureVector(width, height int, color ColorStats, noise NoiseResult, edge EdgeResult, meta Metadata) FeatureVector {
	return FeatureVector{
		ColorStats:        color,
		NoiseRaw:          noise.Raw,
		NoiseNormalized:   noise.Normalized,
		LapVar:            edge.LapVar,
		Entropy:           edge.Entropy,
		Width:             width,
		Height:            height,
		FileSize:          meta.FileSize,
		BytesPerMegapixel: bytesPerMegapixel(meta.FileSize, width, height),
		ExifMarker:        meta.ExifMarker,
	}
}

// GreenFraction is the share of pixels that passed the green mask.
func (f FeatureVector) GreenFraction() float64 {
	area := f.Width * f.Height
	if area <= 0 {
		return 0
	}
	return float64(f.GreenPixelCount) / float64(area)
}

func bytesPerMegapixel(fileSize int64, width, height int) float64 {
	mp := float64(width) * float64(height) / 1_000_000
	if mp <= 0 {
		return float64(fileSize)
	}
	return float64(fileSize) / mp
}
