package services

import (
	"context"
	"fmt"

	"spendsmart/internal/ai"
	"spendsmart/internal/log"
	"spendsmart/internal/storage"
)

// InsightsService produces AI-backed spending analysis over the full
// expense history. Generated insights are cached per period until the
// next expense write.
type InsightsService struct {
	repo      Repository
	generator *ai.InsightsGenerator
	caches    *Caches
	logger    *log.Logger
}

func NewInsightsService(repo Repository, generator *ai.InsightsGenerator, caches *Caches, logger *log.Logger) *InsightsService {
	return &InsightsService{
		repo:      repo,
		generator: generator,
		caches:    caches,
		logger:    logger.WithComponent(log.ComponentAI),
	}
}

// Insights analyzes spending for "week", "month", or "all".
func (s *InsightsService) Insights(ctx context.Context, period string) (ai.Insights, error) {
	if period != "week" && period != "month" && period != "all" {
		period = "week"
	}

	cacheKey := "insights:" + period
	if s.caches != nil {
		if cached, ok := s.caches.Insights.Get(cacheKey); ok {
			return cached, nil
		}
	}

	expenses, err := s.repo.ListExpenses(ctx, storage.ListFilter{})
	if err != nil {
		return ai.Insights{}, fmt.Errorf("failed to load expenses for insights: %w", err)
	}

	insights := s.generator.Generate(ctx, expenses, period)

	if s.caches != nil {
		s.caches.Insights.Set(cacheKey, insights)
	}
	return insights, nil
}

// Trends compares the first and second halves of the spending history.
func (s *InsightsService) Trends(ctx context.Context) (ai.SpendingTrend, error) {
	expenses, err := s.repo.ListExpenses(ctx, storage.ListFilter{})
	if err != nil {
		return ai.SpendingTrend{}, fmt.Errorf("failed to load expenses for trends: %w", err)
	}
	return ai.ComputeTrend(expenses), nil
}
