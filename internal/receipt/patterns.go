package receipt

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	totalLineRe      = regexp.MustCompile(`(?i)grand\s*total|total\s*amount|total\b`)
	trailingNumberRe = regexp.MustCompile(`([0-9][0-9,]*(?:\.[0-9]{2})?)\s*$`)
	numberTokenRe    = regexp.MustCompile(`[0-9][0-9,]*(?:\.[0-9]{2})?`)

	// Currency-marked numbers anywhere in the text, tried in order when no
	// total keyword line exists.
	amountFallbacks = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:grand\s*total|total|amount|sum|rs\.?|₹)\s*:?\s*([0-9]+(?:\.[0-9]{2})?)`),
		regexp.MustCompile(`(?i)([0-9]+(?:\.[0-9]{2})?)\s*(?:rs\.?|₹|inr)`),
	}

	merchantSkipWords = []string{
		"receipt", "invoice", "bill", "thank", "you", "visit", "total",
		"amount", "cash", "change", "tax", "delivery", "charges", "charge",
	}

	endsWithNumberRe   = regexp.MustCompile(`[0-9][0-9,]*\.?[0-9]*$`)
	trailingDigitRunRe = regexp.MustCompile(`\s+[0-9][0-9\s]*$`)

	priceRowRe      = regexp.MustCompile(`[0-9][0-9,]*\.?[0-9]{0,2}$`)
	negativePriceRe = regexp.MustCompile(`-\s*\$?[0-9][0-9,]*\.[0-9]{2}`)
	summaryRowRe    = regexp.MustCompile(`grand\s*total|total|subtotal|tax|cgst|sgst|igst|round\s*off`)

	currencyGlyphRe    = regexp.MustCompile(`[₹$€]`)
	rupeeWordRe        = regexp.MustCompile(`(?i)\bRs\.?\b|\bINR\b`)
	numberTokenPlainRe = regexp.MustCompile(`[0-9]+(?:\.[0-9]{1,2})?`)
	trailingQtyRe      = regexp.MustCompile(`\s+[0-9]+\s*$`)
)

// datePattern pairs a regexp with an interpreter for its capture groups.
// The table is evaluated in priority order with first-match-wins semantics.
type datePattern struct {
	re    *regexp.Regexp
	parse func(m []string) (year, month, day int, ok bool)
}

var datePatterns = []datePattern{
	{
		// D/M/Y
		re: regexp.MustCompile(`\b([0-9]{1,2})/([0-9]{1,2})/([0-9]{2,4})\b`),
		parse: func(m []string) (int, int, int, bool) {
			return expandYear(m[3]), atoi(m[2]), atoi(m[1]), true
		},
	},
	{
		// Y/M/D or Y-M-D
		re: regexp.MustCompile(`\b([0-9]{4})[/-]([0-9]{1,2})[/-]([0-9]{1,2})\b`),
		parse: func(m []string) (int, int, int, bool) {
			return atoi(m[1]), atoi(m[2]), atoi(m[3]), true
		},
	},
	{
		// D-M-Y
		re: regexp.MustCompile(`\b([0-9]{1,2})-([0-9]{1,2})-([0-9]{2,4})\b`),
		parse: func(m []string) (int, int, int, bool) {
			return expandYear(m[3]), atoi(m[2]), atoi(m[1]), true
		},
	},
	{
		// "25 Dec 2023" and "25th December, 2023"
		re: regexp.MustCompile(`(?i)\b([0-9]{1,2})(?:st|nd|rd|th)?\s+(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.?,?\s+([0-9]{2,4})\b`),
		parse: func(m []string) (int, int, int, bool) {
			mon, ok := monthByName(m[2])
			return expandYear(m[3]), mon, atoi(m[1]), ok
		},
	},
	{
		// "Dec 25, 2023"
		re: regexp.MustCompile(`(?i)\b(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.?\s+([0-9]{1,2})(?:st|nd|rd|th)?,?\s+([0-9]{2,4})\b`),
		parse: func(m []string) (int, int, int, bool) {
			mon, ok := monthByName(m[1])
			return expandYear(m[3]), mon, atoi(m[2]), ok
		},
	},
}

// detectDate returns the first valid calendar date found in the text as an
// ISO string, or "" when no pattern matches.
func detectDate(text string) string {
	for _, p := range datePatterns {
		m := p.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		year, month, day, ok := p.parse(m)
		if !ok || !validCalendarDate(year, month, day) {
			continue
		}
		return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC).Format("2006-01-02")
	}
	return ""
}

// expandYear interprets two-digit years as 20YY.
func expandYear(s string) int {
	y := atoi(s)
	if len(s) == 2 {
		return 2000 + y
	}
	return y
}

func monthByName(name string) (int, bool) {
	switch strings.ToLower(name[:3]) {
	case "jan":
		return 1, true
	case "feb":
		return 2, true
	case "mar":
		return 3, true
	case "apr":
		return 4, true
	case "may":
		return 5, true
	case "jun":
		return 6, true
	case "jul":
		return 7, true
	case "aug":
		return 8, true
	case "sep":
		return 9, true
	case "oct":
		return 10, true
	case "nov":
		return 11, true
	case "dec":
		return 12, true
	}
	return 0, false
}

// validCalendarDate rejects matches like 31/02 that a regexp alone lets
// through; time.Date normalizes overflow, so compare the round trip.
func validCalendarDate(year, month, day int) bool {
	if year < 2000 || year > 2100 || month < 1 || month > 12 || day < 1 {
		return false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return t.Year() == year && int(t.Month()) == month && t.Day() == day
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
