package analyzer

// ColorStats summarises the pixels that pass the green mask. Mean fields are
// nil when no pixel qualified; that state is distinct from a zero mean.
type ColorStats struct {
	MeanR           *float64 `json:"meanR"`
	MeanG           *float64 `json:"meanG"`
	MeanB           *float64 `json:"meanB"`
	MeanExG         *float64 `json:"meanExG"`
	MeanVARI        *float64 `json:"meanVARI"`
	MeanGLI         *float64 `json:"meanGLI"`
	GreenPixelCount int      `json:"greenPixelCount"`
}

// HasGreen reports whether at least one pixel passed the mask.
func (s ColorStats) HasGreen() bool {
	return s.GreenPixelCount > 0
}

// ColorIndexAnalyzer computes vegetation color indices over green-ish pixels.
type ColorIndexAnalyzer struct {
	// DominanceRatio: g must exceed this fraction of both r and b.
	DominanceRatio float64
	// MinGreen: g must be strictly above this channel value.
	MinGreen float64
}

// NewColorIndexAnalyzer returns an analyzer with the 0.9 dominance ratio and
// a minimum green channel of 30.
func NewColorIndexAnalyzer() *ColorIndexAnalyzer {
	return &ColorIndexAnalyzer{DominanceRatio: 0.9, MinGreen: 30}
}

// InMask reports whether a pixel belongs to the green mask.
func (a *ColorIndexAnalyzer) InMask(r, g, b float64) bool {
	return g > a.DominanceRatio*r && g > a.DominanceRatio*b && g > a.MinGreen
}

// Analyze accumulates channel means, ExG, VARI and GLI over masked pixels.
func (a *ColorIndexAnalyzer) Analyze(buf *PixelBuffer) ColorStats {
	var sumR, sumG, sumB, sumExG, sumVARI, sumGLI float64
	count := 0

	pix := buf.Pix()
	for i := 0; i+3 < len(pix); i += 4 {
		r, g, b := float64(pix[i]), float64(pix[i+1]), float64(pix[i+2])
		if !a.InMask(r, g, b) {
			continue
		}
		sumR += r
		sumG += g
		sumB += b
		sumExG += 2*g - r - b
		sumVARI += (g - r) / nonZero(g+r-b)
		sumGLI += (2*g - r - b) / nonZero(2*g+r+b)
		count++
	}

	if count == 0 {
		return ColorStats{}
	}

	n := float64(count)
	return ColorStats{
		MeanR:           ptr(sumR / n),
		MeanG:           ptr(sumG / n),
		MeanB:           ptr(sumB / n),
		MeanExG:         ptr(sumExG / n),
		MeanVARI:        ptr(sumVARI / n),
		MeanGLI:         ptr(sumGLI / n),
		GreenPixelCount: count,
	}
}

// nonZero substitutes a tiny epsilon for a zero denominator.
func nonZero(v float64) float64 {
	if v == 0 {
		return 1e-6
	}
	return v
}

func ptr(v float64) *float64 {
	return &v
}
