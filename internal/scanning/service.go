package scanning

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"spendsmart/internal/ai"
	"spendsmart/internal/core"
	"spendsmart/internal/ocr"
	"spendsmart/internal/receipt"
)

// ocrConfidence is reported for the OCR fallback path. Text heuristics
// are far less reliable than the vision model.
const ocrConfidence = 0.5

// Result is a scanned receipt ready for the expense form: the
// extracted candidate plus a suggested category and a confidence for
// the extraction as a whole.
type Result struct {
	receipt.Candidate
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
}

// Scanner extracts an expense result from a receipt image
type Scanner interface {
	Scan(ctx context.Context, imageData []byte, contentType string) (Result, error)
}

// Service scans receipts with a vision model first and falls back to
// local OCR plus text heuristics when vision is unavailable or fails.
type Service struct {
	vision    Scanner // nil when no API key is configured
	engine    ocr.Engine
	extractor *receipt.Extractor
}

func NewService(vision Scanner, engine ocr.Engine, extractor *receipt.Extractor) *Service {
	return &Service{
		vision:    vision,
		engine:    engine,
		extractor: extractor,
	}
}

// ScanReceipt returns the scan result and the method used, "gemini"
// or "ocr". The result always carries a valid category and an ISO
// date; an undetected date becomes today.
func (s *Service) ScanReceipt(ctx context.Context, imageData []byte, contentType string) (Result, string, error) {
	if s.vision != nil {
		result, err := s.vision.Scan(ctx, imageData, contentType)
		if err == nil {
			finalize(&result)
			return result, "gemini", nil
		}
		slog.WarnContext(ctx, "Vision scan failed, falling back to OCR", "error", err)
	}

	if s.engine == nil {
		return Result{}, "", fmt.Errorf("no scanner available")
	}

	text, err := s.engine.Recognize(ctx, imageData)
	if err != nil {
		return Result{}, "", fmt.Errorf("recognize text: %w", err)
	}

	candidate, err := s.extractor.Extract(text)
	if err != nil {
		return Result{}, "", fmt.Errorf("extract candidate: %w", err)
	}

	result := Result{Candidate: *candidate, Confidence: ocrConfidence}
	finalize(&result)
	return result, "ocr", nil
}

// finalize fills the gaps the scan paths may leave: an unusable
// category falls back to keyword rules, an out-of-range confidence is
// reset, and a missing date becomes today.
func finalize(r *Result) {
	if !core.ValidCategory(r.Category) {
		r.Category = keywordCategory(r.Candidate)
	}
	if r.Confidence <= 0 || r.Confidence > 1 {
		r.Confidence = ocrConfidence
	}
	if r.Date == "" {
		r.Date = core.Today().ISO()
	}
}

// keywordCategory guesses a category from the merchant and item names
func keywordCategory(c receipt.Candidate) string {
	var b strings.Builder
	b.WriteString(c.Merchant)
	for _, item := range c.Items {
		b.WriteString(" ")
		b.WriteString(item.Name)
	}
	return ai.CategorizeByKeywords(b.String()).Category
}
