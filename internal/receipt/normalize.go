package receipt

import (
	"regexp"
	"strconv"
	"strings"
)

// Thresholds tune the leading-digit artifact correction. OCR engines often
// misread a currency glyph as a leading digit ("₹260" becoming "1260" or
// "2260"); when a detected number is implausibly large the correction tries
// dropping leading digits and keeps the largest result that stays below the
// plausibility ceiling. The defaults come from receipts observed in the
// field and should be calibrated against a real corpus, not treated as laws.
type Thresholds struct {
	// TotalCeiling is the plausible upper bound for a receipt total. Totals
	// above it trigger a first-digit-drop attempt.
	TotalCeiling float64

	// ArtifactFloor is the value above which a price with no other context
	// is suspected of carrying a leading glyph artifact.
	ArtifactFloor float64

	// FeasibleSlack is the tolerance added to the reference total when
	// judging whether a corrected price is feasible.
	FeasibleSlack float64

	// ArtifactRatio is the minimum original/corrected ratio required before
	// a context-free leading-digit drop is accepted.
	ArtifactRatio float64
}

// DefaultThresholds returns the calibration in use by the original heuristic.
func DefaultThresholds() Thresholds {
	return Thresholds{
		TotalCeiling:  500,
		ArtifactFloor: 1000,
		FeasibleSlack: 10,
		ArtifactRatio: 5,
	}
}

var nonNumericRe = regexp.MustCompile(`[^0-9.]`)

// normalizeTotal cleans a total candidate and corrects an implausibly large
// value by dropping its first digit or dividing by ten. Returns "" when the
// token does not parse at all.
func (e *Extractor) normalizeTotal(tok string) string {
	cleaned := strings.ReplaceAll(tok, ",", "")
	n, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return ""
	}
	if n > e.th.TotalCeiling && len(cleaned) >= 4 {
		if d, err := strconv.ParseFloat(cleaned[1:], 64); err == nil && d > 0 && d <= e.th.TotalCeiling {
			return format2dp(d)
		}
		if n/10 <= e.th.TotalCeiling {
			return format2dp(n / 10)
		}
	}
	return format2dp(n)
}

// normalizePrice cleans a per-item price token and runs the artifact
// correction against the receipt total. Never fails: unparseable tokens
// become "0.00".
func (e *Extractor) normalizePrice(tok string, total float64) string {
	cleaned := nonNumericRe.ReplaceAllString(tok, "")

	// Context-free pass: a 4+ digit price starting with 1 or 2 whose
	// remainder is a sensible price is likely a misread currency glyph.
	if len(cleaned) >= 4 && (cleaned[0] == '1' || cleaned[0] == '2') {
		if candid, err := strconv.ParseFloat(cleaned[1:], 64); err == nil && candid < e.th.ArtifactFloor {
			if orig, err := strconv.ParseFloat(cleaned, 64); err == nil && orig > candid*e.th.ArtifactRatio {
				cleaned = cleaned[1:]
			}
		}
	}

	n, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return "0.00"
	}
	return format2dp(e.fixLeadingDigitArtifact(n, cleaned, total))
}

// fixLeadingDigitArtifact corrects values like 2180→180 or 316→16 using the
// receipt total as the plausibility reference. Among the feasible corrections
// (1-3 dropped leading digits, /10, /100) it keeps the largest, i.e. the most
// conservative reduction; with no feasible correction the value is returned
// unchanged.
func (e *Extractor) fixLeadingDigitArtifact(n float64, cleaned string, total float64) float64 {
	if total > 0 && n > total {
		var candidates []float64
		for drop := 1; drop <= 3 && drop < len(cleaned); drop++ {
			if v, err := strconv.ParseFloat(cleaned[drop:], 64); err == nil {
				candidates = append(candidates, v)
			}
		}
		candidates = append(candidates, n/10, n/100)

		best := 0.0
		for _, c := range candidates {
			if c > 0 && c <= total+e.th.FeasibleSlack && c > best {
				best = c
			}
		}
		if best > 0 {
			return best
		}
	}

	// No usable total: fall back to the 4-digit glyph heuristic.
	if n > e.th.ArtifactFloor && len(cleaned) == 4 && (cleaned[0] == '1' || cleaned[0] == '2') {
		if d, err := strconv.ParseFloat(cleaned[1:], 64); err == nil && d < e.th.TotalCeiling {
			return d
		}
	}
	return n
}

// parseNumber parses a 2-decimal string produced by this package; returns 0
// for empty or malformed input.
func parseNumber(s string) float64 {
	if s == "" {
		return 0
	}
	n, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil {
		return 0
	}
	return n
}

func format2dp(f float64) string {
	return strconv.FormatFloat(f, 'f', 2, 64)
}
