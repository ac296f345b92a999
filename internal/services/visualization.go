package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"spendsmart/internal/log"
)

// chartColors is the palette assigned to pie slices in order
var chartColors = []string{
	"#FF6384", "#36A2EB", "#FFCE56", "#4BC0C0",
	"#9966FF", "#FF9F40", "#FF6384", "#C9CBCF",
}

// PieSlice is one category's share of the pie chart
type PieSlice struct {
	Label      string  `json:"label"`
	Value      float64 `json:"value"`
	Percentage float64 `json:"percentage"`
	Color      string  `json:"color"`
}

// TrendPoint is one bucket of the spending trend line
type TrendPoint struct {
	Period string  `json:"period"`
	Label  string  `json:"label"`
	Amount float64 `json:"amount"`
}

// VisualizationData feeds the spending charts for one period
type VisualizationData struct {
	PieChart          []PieSlice         `json:"pie_chart"`
	Trends            []TrendPoint       `json:"trends"`
	CategoryBreakdown map[string]float64 `json:"category_breakdown"`
	TotalAmount       float64            `json:"total_amount"`
	Period            string             `json:"period"`
}

// VisualizationService builds chart data over a trailing window.
// Results are cached per period until the next expense write.
type VisualizationService struct {
	repo   Repository
	caches *Caches
	logger *log.Logger
	now    func() time.Time
}

func NewVisualizationService(repo Repository, caches *Caches, logger *log.Logger) *VisualizationService {
	return &VisualizationService{
		repo:   repo,
		caches: caches,
		logger: logger.WithComponent(log.ComponentCache),
		now:    time.Now,
	}
}

// Data returns chart data for "week", "month", or "year". Unknown
// periods fall back to "month".
func (s *VisualizationService) Data(ctx context.Context, period string) (VisualizationData, error) {
	if period != "week" && period != "month" && period != "year" {
		period = "month"
	}

	cacheKey := "viz:" + period
	if s.caches != nil {
		if cached, ok := s.caches.Viz.Get(cacheKey); ok {
			return cached, nil
		}
	}

	data, err := s.compute(ctx, period)
	if err != nil {
		return VisualizationData{}, err
	}

	if s.caches != nil {
		s.caches.Viz.Set(cacheKey, data)
	}
	return data, nil
}

func (s *VisualizationService) compute(ctx context.Context, period string) (VisualizationData, error) {
	now := s.now()

	var windowDays int
	switch period {
	case "week":
		windowDays = 7
	case "year":
		windowDays = 365
	default:
		windowDays = 30
	}
	from := now.AddDate(0, 0, -(windowDays - 1)).Format("2006-01-02")
	to := now.Format("2006-01-02")

	sums, err := s.repo.CategorySums(ctx, from, to)
	if err != nil {
		return VisualizationData{}, err
	}

	data := VisualizationData{
		PieChart:          []PieSlice{},
		Trends:            []TrendPoint{},
		CategoryBreakdown: map[string]float64{},
		Period:            period,
	}

	if len(sums) == 0 {
		return data, nil
	}

	var totalCents int64
	for _, cs := range sums {
		totalCents += cs.Total.Cents
	}
	data.TotalAmount = round2(float64(totalCents) / 100)

	for i, cs := range sums {
		value := cs.Total.Float()
		data.CategoryBreakdown[cs.Category] = value

		var pct float64
		if totalCents > 0 {
			pct = round1(float64(cs.Total.Cents) / float64(totalCents) * 100)
		}
		data.PieChart = append(data.PieChart, PieSlice{
			Label:      cs.Category,
			Value:      round2(value),
			Percentage: pct,
			Color:      chartColors[i%len(chartColors)],
		})
	}

	trends, err := s.trends(ctx, period, now, from, to)
	if err != nil {
		return VisualizationData{}, err
	}
	data.Trends = trends

	return data, nil
}

// trends gap-fills the window so charts show every bucket, including
// days or months without spending.
func (s *VisualizationService) trends(ctx context.Context, period string, now time.Time, from, to string) ([]TrendPoint, error) {
	if period == "year" {
		monthly, err := s.repo.MonthlySums(ctx, now.Year())
		if err != nil {
			return nil, err
		}

		byMonth := make(map[int]float64, len(monthly))
		for _, ms := range monthly {
			byMonth[ms.Month] = ms.Total.Float()
		}

		trends := make([]TrendPoint, 0, 12)
		for month := 1; month <= 12; month++ {
			trends = append(trends, TrendPoint{
				Period: fmt.Sprintf("%04d-%02d", now.Year(), month),
				Label:  time.Date(now.Year(), time.Month(month), 1, 0, 0, 0, 0, time.UTC).Format("Jan"),
				Amount: round2(byMonth[month]),
			})
		}
		return trends, nil
	}

	daily, err := s.repo.DailySums(ctx, from, to)
	if err != nil {
		return nil, err
	}

	byDay := make(map[string]float64, len(daily))
	for _, ds := range daily {
		byDay[ds.Day] = ds.Total.Float()
	}

	start, err := time.Parse("2006-01-02", from)
	if err != nil {
		return nil, err
	}
	end, err := time.Parse("2006-01-02", to)
	if err != nil {
		return nil, err
	}

	var trends []TrendPoint
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		iso := day.Format("2006-01-02")
		label := day.Format("02")
		if period == "week" {
			label = day.Format("Mon 02")
		}
		trends = append(trends, TrendPoint{
			Period: iso,
			Label:  label,
			Amount: round2(byDay[iso]),
		})
	}
	return trends, nil
}

func round1(x float64) float64 {
	return math.Round(x*10) / 10
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
