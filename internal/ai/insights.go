package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/avast/retry-go"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"spendsmart/internal/core"
)

// CategoryShare is a category's share of spending for a period
type CategoryShare struct {
	Category string  `json:"category"`
	Amount   float64 `json:"amount"`
}

// DateRange brackets the analyzed expenses by ISO date
type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Analytics summarizes spending for a period
type Analytics struct {
	TotalAmount         float64            `json:"total_amount"`
	TotalExpenses       int                `json:"total_expenses"`
	CategoryBreakdown   map[string]float64 `json:"category_breakdown"`
	CategoryPercentages map[string]float64 `json:"category_percentages"`
	CategoryCounts      map[string]int     `json:"category_counts"`
	DailySpending       map[string]float64 `json:"daily_spending"`
	AvgDailySpending    float64            `json:"avg_daily_spending"`
	TopCategories       []CategoryShare    `json:"top_categories"`
	Period              string             `json:"period"`
	DateRange           DateRange          `json:"date_range"`
}

// Alert flags notable spending conditions found during analysis
type Alert struct {
	Type     string `json:"type"`
	Message  string `json:"message"`
	Severity string `json:"severity"`
}

// Insights is the full analysis result for a period
type Insights struct {
	Analytics       Analytics `json:"analytics"`
	Insights        []string  `json:"insights"`
	Recommendations []string  `json:"recommendations"`
	Patterns        []string  `json:"patterns"`
	Alerts          []Alert   `json:"alerts"`
	GeneratedAt     time.Time `json:"generated_at"`
}

// SpendingTrend compares the first and second half of a period
type SpendingTrend struct {
	Trend           string  `json:"trend"`
	Change          float64 `json:"change"`
	Message         string  `json:"message"`
	FirstHalfTotal  float64 `json:"first_half_total,omitempty"`
	SecondHalfTotal float64 `json:"second_half_total,omitempty"`
}

// aiNarrative is the model's portion of an insights response
type aiNarrative struct {
	Insights        []string `json:"insights"`
	Recommendations []string `json:"recommendations"`
	Patterns        []string `json:"patterns"`
}

// InsightsGenerator produces financial insights, narrated by Gemini when
// available and by computed heuristics otherwise.
type InsightsGenerator struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewInsightsGenerator creates a generator. An empty API key yields a
// heuristics-only generator.
func NewInsightsGenerator(ctx context.Context, apiKey, modelName string) (*InsightsGenerator, error) {
	g := &InsightsGenerator{}
	if apiKey == "" {
		return g, nil
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	g.client = client
	g.model = client.GenerativeModel(modelName)
	return g, nil
}

func (g *InsightsGenerator) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

// Generate analyzes expenses for a period ("week", "month", or "all")
func (g *InsightsGenerator) Generate(ctx context.Context, expenses []core.Expense, period string) Insights {
	filtered := filterByPeriod(expenses, period, time.Now())
	if len(filtered) == 0 {
		return emptyInsights(period)
	}

	analytics := computeAnalytics(filtered, period)
	result := Insights{
		Analytics:   analytics,
		Alerts:      budgetAlerts(analytics),
		GeneratedAt: time.Now(),
	}

	if g.model != nil {
		if narrative, err := g.narrate(ctx, analytics, period); err == nil {
			result.Insights = narrative.Insights
			result.Recommendations = narrative.Recommendations
			result.Patterns = narrative.Patterns
			return result
		} else {
			slog.WarnContext(ctx, "AI insights failed, using heuristics", "error", err)
		}
	}

	narrative := fallbackNarrative(analytics)
	result.Insights = narrative.Insights
	result.Recommendations = narrative.Recommendations
	result.Patterns = narrative.Patterns
	return result
}

func (g *InsightsGenerator) narrate(ctx context.Context, analytics Analytics, period string) (aiNarrative, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	var text string
	err := retry.Do(
		func() error {
			resp, err := g.model.GenerateContent(ctx, genai.Text(insightsPrompt(analytics, period)))
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
	if err != nil {
		return aiNarrative{}, err
	}

	raw := extractJSONObject(text)
	if raw == "" {
		return aiNarrative{}, fmt.Errorf("no JSON in insights response")
	}

	var narrative aiNarrative
	if err := json.Unmarshal([]byte(raw), &narrative); err != nil {
		return aiNarrative{}, fmt.Errorf("parse insights response: %w", err)
	}
	if len(narrative.Insights) == 0 && len(narrative.Recommendations) == 0 && len(narrative.Patterns) == 0 {
		return aiNarrative{}, fmt.Errorf("empty insights response")
	}
	return narrative, nil
}

func insightsPrompt(analytics Analytics, period string) string {
	var top []string
	for _, cs := range analytics.TopCategories {
		pct := analytics.CategoryPercentages[cs.Category]
		top = append(top, fmt.Sprintf("%s: %.1f%%", cs.Category, pct))
	}

	breakdown, _ := json.MarshalIndent(analytics.CategoryPercentages, "", "  ")

	return fmt.Sprintf(`Analyze this spending data for the past %s and provide CONCISE financial insights:

Total Spending: $%.2f
Average Daily Spending: $%.2f
Top Categories: %s

Category Breakdown:
%s

IMPORTANT: Keep each point under 100 characters. Be brief and direct.

Provide:
1. 2-3 SHORT key insights (what stands out in spending)
2. 2-3 BRIEF actionable recommendations (how to improve)
3. 1-2 CONCISE patterns (spending behaviors)

Respond in JSON format:
{
    "insights": ["Brief insight 1", "Brief insight 2"],
    "recommendations": ["Quick actionable tip 1", "Quick actionable tip 2"],
    "patterns": ["Short pattern 1", "Short pattern 2"]
}

RULES:
- Each point: 60-100 characters max
- Use simple language
- Be specific with numbers/percentages
- Focus on the most impactful insights`,
		period, analytics.TotalAmount, analytics.AvgDailySpending, strings.Join(top, ", "), breakdown)
}

// filterByPeriod keeps expenses within the trailing window for period.
// "all" keeps everything.
func filterByPeriod(expenses []core.Expense, period string, now time.Time) []core.Expense {
	var start time.Time
	switch period {
	case "week":
		start = now.AddDate(0, 0, -7)
	case "month":
		start = now.AddDate(0, 0, -30)
	default:
		return expenses
	}

	var filtered []core.Expense
	for _, e := range expenses {
		if !e.Date.Before(start) {
			filtered = append(filtered, e)
		}
	}
	return filtered
}

func computeAnalytics(expenses []core.Expense, period string) Analytics {
	a := Analytics{
		CategoryBreakdown:   make(map[string]float64),
		CategoryPercentages: make(map[string]float64),
		CategoryCounts:      make(map[string]int),
		DailySpending:       make(map[string]float64),
		Period:              period,
	}

	for _, e := range expenses {
		amount := e.Amount.Float()
		a.TotalAmount += amount
		a.CategoryBreakdown[e.Category] += amount
		a.CategoryCounts[e.Category]++
		a.DailySpending[e.Date.ISO()] += amount

		day := e.Date.ISO()
		if a.DateRange.Start == "" || day < a.DateRange.Start {
			a.DateRange.Start = day
		}
		if day > a.DateRange.End {
			a.DateRange.End = day
		}
	}

	a.TotalAmount = round2(a.TotalAmount)
	a.TotalExpenses = len(expenses)

	for category, amount := range a.CategoryBreakdown {
		a.CategoryBreakdown[category] = round2(amount)
		if a.TotalAmount > 0 {
			a.CategoryPercentages[category] = amount / a.TotalAmount * 100
		}
	}

	if len(a.DailySpending) > 0 {
		a.AvgDailySpending = round2(a.TotalAmount / float64(len(a.DailySpending)))
	}
	for day, amount := range a.DailySpending {
		a.DailySpending[day] = round2(amount)
	}

	for category, amount := range a.CategoryBreakdown {
		a.TopCategories = append(a.TopCategories, CategoryShare{Category: category, Amount: amount})
	}
	sort.Slice(a.TopCategories, func(i, j int) bool {
		if a.TopCategories[i].Amount != a.TopCategories[j].Amount {
			return a.TopCategories[i].Amount > a.TopCategories[j].Amount
		}
		return a.TopCategories[i].Category < a.TopCategories[j].Category
	})
	if len(a.TopCategories) > 3 {
		a.TopCategories = a.TopCategories[:3]
	}

	return a
}

func fallbackNarrative(analytics Analytics) aiNarrative {
	var narrative aiNarrative

	if len(analytics.TopCategories) > 0 {
		top := analytics.TopCategories[0]
		narrative.Insights = append(narrative.Insights,
			fmt.Sprintf("You spent %.1f%% of your budget on %s this %s.",
				analytics.CategoryPercentages[top.Category], top.Category, analytics.Period))
	}
	if analytics.TotalAmount > 0 {
		narrative.Insights = append(narrative.Insights,
			fmt.Sprintf("Total spending: $%.2f across %d transactions.",
				analytics.TotalAmount, analytics.TotalExpenses))
	}

	if analytics.CategoryPercentages["Food & Dining"] > 40 {
		narrative.Recommendations = append(narrative.Recommendations,
			"Consider reducing dining out expenses by cooking more meals at home.")
	}
	if analytics.TotalAmount > 500 {
		narrative.Recommendations = append(narrative.Recommendations,
			"Review your spending to identify areas where you can save money.")
	}

	if len(analytics.TopCategories) > 0 {
		narrative.Patterns = append(narrative.Patterns,
			fmt.Sprintf("Your highest spending category is %s.", analytics.TopCategories[0].Category))
	}

	return narrative
}

func budgetAlerts(analytics Analytics) []Alert {
	alerts := []Alert{}

	if analytics.TotalAmount > 1000 {
		alerts = append(alerts, Alert{
			Type:     "warning",
			Message:  fmt.Sprintf("High spending detected: $%.2f this period", analytics.TotalAmount),
			Severity: "medium",
		})
	}

	var categories []string
	for category := range analytics.CategoryPercentages {
		categories = append(categories, category)
	}
	sort.Strings(categories)
	for _, category := range categories {
		if pct := analytics.CategoryPercentages[category]; pct > 50 {
			alerts = append(alerts, Alert{
				Type:     "info",
				Message:  fmt.Sprintf("%s represents %.1f%% of your spending", category, pct),
				Severity: "low",
			})
		}
	}

	return alerts
}

func emptyInsights(period string) Insights {
	if period == "" {
		period = "week"
	}
	return Insights{
		Analytics: Analytics{
			CategoryBreakdown:   map[string]float64{},
			CategoryPercentages: map[string]float64{},
			CategoryCounts:      map[string]int{},
			DailySpending:       map[string]float64{},
			Period:              period,
		},
		Insights:        []string{"No spending data available for analysis"},
		Recommendations: []string{"Start tracking your expenses to get personalized insights"},
		Patterns:        []string{"No patterns detected - add some expenses to see insights"},
		Alerts:          []Alert{},
		GeneratedAt:     time.Now(),
	}
}

// ComputeTrend compares the first and second half of the expense history
func ComputeTrend(expenses []core.Expense) SpendingTrend {
	if len(expenses) == 0 {
		return SpendingTrend{Trend: "stable", Change: 0, Message: "No data available"}
	}

	dailyTotals := make(map[string]float64)
	for _, e := range expenses {
		dailyTotals[e.Date.ISO()] += e.Amount.Float()
	}

	dates := make([]string, 0, len(dailyTotals))
	for day := range dailyTotals {
		dates = append(dates, day)
	}
	sort.Strings(dates)

	if len(dates) < 2 {
		return SpendingTrend{Trend: "stable", Change: 0, Message: "Insufficient data for trend analysis"}
	}

	mid := len(dates) / 2
	var firstHalf, secondHalf float64
	for _, day := range dates[:mid] {
		firstHalf += dailyTotals[day]
	}
	for _, day := range dates[mid:] {
		secondHalf += dailyTotals[day]
	}

	var changePct float64
	if firstHalf == 0 {
		if secondHalf > 0 {
			changePct = 100
		}
	} else {
		changePct = (secondHalf - firstHalf) / firstHalf * 100
	}

	trend := SpendingTrend{
		Change:          round1(changePct),
		FirstHalfTotal:  round2(firstHalf),
		SecondHalfTotal: round2(secondHalf),
	}
	switch {
	case changePct > 10:
		trend.Trend = "increasing"
		trend.Message = fmt.Sprintf("Spending increased by %.1f%%", changePct)
	case changePct < -10:
		trend.Trend = "decreasing"
		trend.Message = fmt.Sprintf("Spending decreased by %.1f%%", math.Abs(changePct))
	default:
		trend.Trend = "stable"
		trend.Message = fmt.Sprintf("Spending is relatively stable (%.1f%% change)", changePct)
	}
	return trend
}

func round1(x float64) float64 {
	return math.Round(x*10) / 10
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
