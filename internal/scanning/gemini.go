// Package scanning turns receipt images into expense candidates, using
// Gemini vision when configured and local OCR plus text heuristics as
// the fallback path.
package scanning

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const visionPrompt = `Analyze this receipt image and extract the purchase details.

Respond with ONLY a JSON object in this exact format:
{
    "merchant": "Store Name",
    "amount": "123.45",
    "date": "2024-01-31",
    "category": "Food & Dining",
    "confidence": 0.9,
    "items": [
        {"name": "Item name", "price": "12.34"}
    ]
}

Rules:
- amount is the grand total as a plain decimal string, no currency symbols
- date is in YYYY-MM-DD format; use "" if not visible
- category is the best expense category for this purchase, exactly one of:
  Food & Dining, Transportation, Shopping, Entertainment, Bills & Utilities,
  Healthcare, Education, Others
- confidence is how certain you are of the extraction overall, 0.0 to 1.0
- items lists individual purchased line items, excluding subtotal/tax/total rows
- use "" for any field you cannot read`

// Vision scans receipts with the Gemini multimodal API
type Vision struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

func NewVision(ctx context.Context, apiKey, modelName string) (*Vision, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	return &Vision{
		client: client,
		model:  client.GenerativeModel(modelName),
	}, nil
}

func (v *Vision) Close() error {
	return v.client.Close()
}

// Scan extracts an expense result from a receipt image
func (v *Vision) Scan(ctx context.Context, imageData []byte, contentType string) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	parts := []genai.Part{
		genai.ImageData(imageFormat(contentType), imageData),
		genai.Text(visionPrompt),
	}

	resp, err := v.model.GenerateContent(ctx, parts...)
	if err != nil {
		return Result{}, fmt.Errorf("generating content: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return Result{}, fmt.Errorf("no response from gemini")
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}

	return parseScanJSON(b.String())
}

// imageFormat maps a MIME type to the format suffix genai.ImageData expects
func imageFormat(contentType string) string {
	switch contentType {
	case "image/jpeg", "image/jpg":
		return "jpeg"
	case "image/webp":
		return "webp"
	default:
		return "png"
	}
}

func parseScanJSON(text string) (Result, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end < start {
		return Result{}, fmt.Errorf("no JSON object in response")
	}

	var result Result
	if err := json.Unmarshal([]byte(text[start:end+1]), &result); err != nil {
		return Result{}, fmt.Errorf("parsing receipt data: %w", err)
	}

	if result.Amount == "" && result.Merchant == "" && len(result.Items) == 0 {
		return Result{}, fmt.Errorf("empty receipt data")
	}

	// A model answer without a usable confidence still counts as a
	// vision read
	if result.Confidence <= 0 || result.Confidence > 1 {
		result.Confidence = 0.8
	}

	result.Date = normalizeDate(result.Date)
	return result, nil
}

// normalizeDate coerces common model date formats to ISO, dropping
// anything unparseable rather than failing the scan
func normalizeDate(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	formats := []string{"2006-01-02", "01/02/2006", "02/01/2006", "Jan 2, 2006", "2 Jan 2006"}
	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return ""
}
