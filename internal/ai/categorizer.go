package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/avast/retry-go"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"spendsmart/internal/core"
)

// Categorization is the result of classifying an expense item
type Categorization struct {
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
	Method     string  `json:"method"`
}

// Suggestion is one of several candidate categories for an item
type Suggestion struct {
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
}

// categoryKeywords drives rule-based categorization. Order matters:
// earlier categories win when an item matches keywords in several.
var categoryKeywords = []struct {
	category string
	keywords []string
}{
	{"Food & Dining", []string{"food", "restaurant", "cafe", "coffee", "pizza", "burger", "lunch", "dinner", "breakfast", "grocery", "supermarket", "dining"}},
	{"Transportation", []string{"transport", "uber", "taxi", "bus", "train", "metro", "gas", "fuel", "parking", "toll", "flight", "car"}},
	{"Shopping", []string{"shop", "store", "mall", "amazon", "clothes", "shoes", "electronics", "retail", "purchase"}},
	{"Entertainment", []string{"entertainment", "netflix", "movie", "cinema", "theater", "game", "gaming", "sports", "concert", "show"}},
	{"Bills & Utilities", []string{"bill", "utility", "electric", "water", "internet", "phone", "rent", "mortgage", "insurance"}},
	{"Healthcare", []string{"health", "medical", "doctor", "pharmacy", "medicine", "hospital", "clinic", "dental"}},
	{"Education", []string{"education", "school", "course", "book", "tuition", "learning", "training"}},
	{"Others", []string{"other", "misc", "miscellaneous"}},
}

// Categorizer classifies expense items with Gemini, falling back to
// keyword rules when the model is unavailable or misbehaves.
type Categorizer struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewCategorizer creates a categorizer. An empty API key yields a
// rule-based-only categorizer.
func NewCategorizer(ctx context.Context, apiKey, modelName string) (*Categorizer, error) {
	c := &Categorizer{}
	if apiKey == "" {
		return c, nil
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	c.client = client
	c.model = client.GenerativeModel(modelName)
	return c, nil
}

func (c *Categorizer) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// Categorize classifies a single expense item. amountCents is optional
// context for the model; pass 0 when unknown.
func (c *Categorizer) Categorize(ctx context.Context, item string, amountCents int64) Categorization {
	if c.model == nil {
		return fallbackCategorize(item)
	}

	text, err := c.generate(ctx, categorizationPrompt(item, amountCents))
	if err != nil {
		slog.WarnContext(ctx, "AI categorization failed, using rules", "error", err, "item", item)
		return fallbackCategorize(item)
	}

	result, ok := parseCategorization(text)
	if !ok {
		return fallbackCategorize(item)
	}
	return result
}

// Suggestions returns up to three candidate categories for an item
func (c *Categorizer) Suggestions(ctx context.Context, item string) []Suggestion {
	if c.model == nil {
		return fallbackSuggestions(item)
	}

	text, err := c.generate(ctx, suggestionsPrompt(item))
	if err != nil {
		slog.WarnContext(ctx, "AI suggestions failed, using rules", "error", err, "item", item)
		return fallbackSuggestions(item)
	}

	raw := extractJSONArray(text)
	if raw == "" {
		return fallbackSuggestions(item)
	}

	var suggestions []Suggestion
	if err := json.Unmarshal([]byte(raw), &suggestions); err != nil || len(suggestions) == 0 {
		return fallbackSuggestions(item)
	}
	if len(suggestions) > 3 {
		suggestions = suggestions[:3]
	}
	return suggestions
}

func (c *Categorizer) generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	var text string
	err := retry.Do(
		func() error {
			resp, err := c.model.GenerateContent(ctx, genai.Text(prompt))
			if err != nil {
				return err
			}
			text, err = responseText(resp)
			return err
		},
		retry.Attempts(3),
		retry.Delay(500*time.Millisecond),
		retry.Context(ctx),
	)
	return text, err
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no response from gemini")
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	return stripCodeFences(b.String()), nil
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func categorizationPrompt(item string, amountCents int64) string {
	amountContext := ""
	if amountCents > 0 {
		amountContext = fmt.Sprintf(" (Amount: $%s)", core.Money{Cents: amountCents}.String())
	}

	return fmt.Sprintf(`Categorize this expense item: %q%s

Available categories:
- Food & Dining: restaurants, cafes, groceries, food delivery
- Transportation: uber, taxi, gas, parking, public transport, flights
- Shopping: retail stores, online shopping, clothes, electronics
- Entertainment: movies, games, streaming services, concerts, sports
- Bills & Utilities: electricity, water, internet, phone, rent, insurance
- Healthcare: medical expenses, pharmacy, doctor visits, dental
- Education: courses, books, tuition, school supplies
- Others: anything that doesn't fit the above categories

Respond with ONLY a JSON object in this exact format:
{
    "category": "Category Name",
    "confidence": 0.95,
    "reasoning": "Brief explanation of why this category was chosen"
}

Be precise and choose the most appropriate category. Confidence should be between 0.0 and 1.0.`, item, amountContext)
}

func suggestionsPrompt(item string) string {
	return fmt.Sprintf(`For the expense item %q, suggest the top 3 most likely categories.

Available categories: %s

Respond with a JSON array of objects:
[
    {"category": "Category Name", "confidence": 0.9, "reason": "Why this category fits"},
    {"category": "Category Name", "confidence": 0.7, "reason": "Why this category fits"},
    {"category": "Category Name", "confidence": 0.5, "reason": "Why this category fits"}
]`, item, strings.Join(core.Categories, ", "))
}

func parseCategorization(text string) (Categorization, bool) {
	raw := extractJSONObject(text)
	if raw == "" {
		return extractCategoryFromText(text)
	}

	var result Categorization
	if err := json.Unmarshal([]byte(raw), &result); err != nil || result.Category == "" {
		return extractCategoryFromText(text)
	}

	if result.Reasoning == "" {
		result.Reasoning = "AI categorization"
	}
	result.Method = "ai"
	return result, true
}

// extractCategoryFromText scans an unstructured model reply for keywords
func extractCategoryFromText(text string) (Categorization, bool) {
	lower := strings.ToLower(text)
	for _, entry := range categoryKeywords {
		for _, keyword := range entry.keywords {
			if strings.Contains(lower, keyword) {
				return Categorization{
					Category:   entry.category,
					Confidence: 0.8,
					Reasoning:  "Matched keyword: " + keyword,
					Method:     "ai_keyword",
				}, true
			}
		}
	}
	return Categorization{}, false
}

// CategorizeByKeywords classifies an item with the keyword rules
// alone, never touching the model. Used by callers that need a cheap
// local guess, like the receipt scan fallback.
func CategorizeByKeywords(item string) Categorization {
	return fallbackCategorize(item)
}

func fallbackCategorize(item string) Categorization {
	lower := strings.ToLower(item)
	for _, entry := range categoryKeywords {
		for _, keyword := range entry.keywords {
			if strings.Contains(lower, keyword) {
				return Categorization{
					Category:   entry.category,
					Confidence: 0.7,
					Reasoning:  "Rule-based match: " + keyword,
					Method:     "rule_based",
				}
			}
		}
	}
	return Categorization{
		Category:   core.DefaultCategory,
		Confidence: 0.5,
		Reasoning:  "No specific match found",
		Method:     "fallback",
	}
}

func fallbackSuggestions(item string) []Suggestion {
	lower := strings.ToLower(item)
	var suggestions []Suggestion

	for _, entry := range categoryKeywords {
		for _, keyword := range entry.keywords {
			if strings.Contains(lower, keyword) {
				suggestions = append(suggestions, Suggestion{
					Category:   entry.category,
					Confidence: 0.8,
					Reason:     "Matched keyword: " + keyword,
				})
				break
			}
		}
	}

	if len(suggestions) == 0 {
		suggestions = []Suggestion{
			{Category: "Others", Confidence: 0.5, Reason: "No specific match found"},
			{Category: "Food & Dining", Confidence: 0.3, Reason: "Common category"},
			{Category: "Shopping", Confidence: 0.2, Reason: "Common category"},
		}
	}
	if len(suggestions) > 3 {
		suggestions = suggestions[:3]
	}
	return suggestions
}

func extractJSONObject(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end < start {
		return ""
	}
	return text[start : end+1]
}

func extractJSONArray(text string) string {
	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start == -1 || end == -1 || end < start {
		return ""
	}
	return text[start : end+1]
}
