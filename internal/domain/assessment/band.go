package assessment

import "strconv"

// Band is the risk category shown to the user and logged with a submission.
type Band string

const (
	BandNone     Band = "none"
	BandLow      Band = "low"
	BandMedium   Band = "medium"
	BandHigh     Band = "high"
	BandVeryHigh Band = "very_high"
)

// DisplayCap is the highest risk shown as a number.
const DisplayCap = 0.3

// BandFor classifies a predicted risk. The high band includes both of its
// bounds.
func BandFor(risk float64) Band {
	switch {
	case !(risk > 0):
		return BandNone
	case risk < 0.1:
		return BandLow
	case risk < 0.2:
		return BandMedium
	case risk <= 0.3:
		return BandHigh
	default:
		return BandVeryHigh
	}
}

// DisplayPercent formats risk as a percentage with two decimals. Above
// DisplayCap it reports capped instead and the caller shows the localized
// "more than 30" text.
func DisplayPercent(risk float64) (percent string, capped bool) {
	if risk > DisplayCap {
		return "", true
	}
	return strconv.FormatFloat(risk*100, 'f', 2, 64), false
}

// Comparison places the subject against the reference profile.
type Comparison string

const (
	ComparisonHigher  Comparison = "higher"
	ComparisonLower   Comparison = "lower"
	ComparisonSimilar Comparison = "similar"
)

// ComparisonFor classifies a rounded risk ratio.
func ComparisonFor(ratio float64) Comparison {
	switch {
	case ratio > 1.1:
		return ComparisonHigher
	case ratio < 0.9:
		return ComparisonLower
	default:
		return ComparisonSimilar
	}
}

// FormatRatio renders a ratio the way it is shown: one decimal.
func FormatRatio(ratio float64) string {
	return strconv.FormatFloat(ratio, 'f', 1, 64)
}
