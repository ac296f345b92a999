// Package receipt turns noisy OCR text into a structured receipt candidate:
// merchant, total amount, transaction date, and best-guess line items. It is
// a pure text transformation used to pre-fill an expense entry form; the
// caller decides which detected items become real expenses.
package receipt

import (
	"errors"
	"strings"
)

// ErrNoTextExtracted is returned for empty or whitespace-only input. Every
// other irregularity degrades to a best-effort default instead of an error.
var ErrNoTextExtracted = errors.New("no text extracted from receipt")

// Candidate is the extraction result. Amount and every present item price are
// non-negative 2-decimal strings. Date is ISO YYYY-MM-DD, or empty when no
// date was detected (callers substitute the current date). Items is never
// empty: when no line items are detected a single synthetic item is produced.
type Candidate struct {
	Merchant string `json:"merchant"`
	Amount   string `json:"amount"`
	Date     string `json:"date"`
	Items    []Item `json:"items"`
}

// Item is a tentative (name, price) pair from one receipt line. Price is
// empty when no per-item price could be recovered; callers fall back to the
// receipt total.
type Item struct {
	Name  string `json:"name"`
	Price string `json:"price,omitempty"`
}

// Extractor runs the extraction pipeline with a fixed set of plausibility
// thresholds. The zero value is not usable; use New or Extract.
type Extractor struct {
	th Thresholds
}

// New returns an Extractor with the given thresholds.
func New(th Thresholds) *Extractor {
	return &Extractor{th: th}
}

// Extract runs the pipeline with default thresholds.
func Extract(text string) (*Candidate, error) {
	return New(DefaultThresholds()).Extract(text)
}

// Extract parses raw OCR text into a Candidate. It is deterministic and has
// no side effects; the only failure mode is empty input.
func (e *Extractor) Extract(text string) (*Candidate, error) {
	lines := segmentLines(text)
	if len(lines) == 0 {
		return nil, ErrNoTextExtracted
	}

	amount := e.detectAmount(text, lines)
	date := detectDate(text)
	merchant := detectMerchant(lines)
	items := e.detectItems(lines, amount)

	if len(items) == 0 {
		// Never return zero items: synthesize one from what we know.
		name := merchant
		if name == "" {
			name = "Receipt Item"
		}
		items = append(items, Item{Name: name, Price: amount})
	}

	if amount == "" {
		amount = "0.00"
	}

	return &Candidate{
		Merchant: merchant,
		Amount:   amount,
		Date:     date,
		Items:    items,
	}, nil
}

// segmentLines splits on newlines, trims, and drops empty lines. The result
// is the working set for all detection steps.
func segmentLines(text string) []string {
	var lines []string
	for _, l := range strings.Split(text, "\n") {
		l = strings.TrimSpace(l)
		if l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

// detectAmount finds the receipt total. A line containing a total keyword
// wins; otherwise currency-marked numbers anywhere in the text are tried in
// pattern order. Returns a 2-decimal string, or "" when nothing parses.
func (e *Extractor) detectAmount(text string, lines []string) string {
	for _, l := range lines {
		if !totalLineRe.MatchString(l) {
			continue
		}
		// Right-most numeric token on the keyword line.
		if m := trailingNumberRe.FindStringSubmatch(l); m != nil {
			return e.normalizeTotal(m[1])
		}
		if all := numberTokenRe.FindAllString(l, -1); len(all) > 0 {
			return e.normalizeTotal(all[len(all)-1])
		}
	}
	for _, p := range amountFallbacks {
		if m := p.FindStringSubmatch(text); m != nil {
			return e.normalizeTotal(m[1])
		}
	}
	return ""
}

// detectMerchant scans at most the first six lines, skipping boilerplate and
// price rows. Falls back to the very first line, then strips trailing stray
// digit runs left by the OCR engine.
func detectMerchant(lines []string) string {
	merchant := ""
	limit := len(lines)
	if limit > 6 {
		limit = 6
	}
	for i := 0; i < limit; i++ {
		lower := strings.ToLower(lines[i])
		if containsAny(lower, merchantSkipWords) {
			continue
		}
		if len(lines[i]) <= 3 || endsWithNumberRe.MatchString(lines[i]) {
			continue
		}
		merchant = lines[i]
		break
	}
	if merchant == "" && len(lines) > 0 {
		merchant = lines[0]
	}
	return strings.TrimSpace(trailingDigitRunRe.ReplaceAllString(merchant, ""))
}

// detectItems keeps candidate price rows (lines ending in a numeric token,
// excluding total/subtotal/tax/rounding rows) and parses each into an item.
func (e *Extractor) detectItems(lines []string, totalAmount string) []Item {
	total := parseNumber(totalAmount)
	var items []Item
	for _, l := range lines {
		if !priceRowRe.MatchString(l) && !negativePriceRe.MatchString(l) {
			continue
		}
		if summaryRowRe.MatchString(strings.ToLower(l)) {
			continue
		}
		it := e.parseItemLine(l, total)
		if it.Name != "" {
			items = append(items, it)
		}
	}
	return items
}

// parseItemLine splits one price row into a name and a price. The right-most
// numeric token is the price; a second-to-right token is treated as a unit
// price or quantity and stripped from the name, as is any trailing bare
// quantity suffix.
func (e *Extractor) parseItemLine(line string, total float64) Item {
	cleaned := currencyGlyphRe.ReplaceAllString(line, "")
	cleaned = rupeeWordRe.ReplaceAllString(cleaned, "")

	nums := numberTokenPlainRe.FindAllString(cleaned, -1)
	if len(nums) == 0 {
		return Item{Name: strings.TrimSpace(cleaned)}
	}

	price := nums[len(nums)-1]
	lastIdx := strings.LastIndex(cleaned, price)
	name := strings.TrimSpace(cleaned[:lastIdx])
	name = strings.TrimSpace(trailingQtyRe.ReplaceAllString(name, ""))

	if len(nums) >= 2 {
		// The token before the price is likely a unit price or quantity.
		unit := nums[len(nums)-2]
		if idx := strings.LastIndex(name, unit); idx > 0 {
			name = strings.TrimSpace(name[:idx])
		}
	}
	name = strings.TrimSpace(trailingQtyRe.ReplaceAllString(name, ""))
	if name == "" {
		name = "Item"
	}

	return Item{Name: name, Price: e.normalizePrice(price, total)}
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
