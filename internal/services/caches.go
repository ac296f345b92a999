package services

import (
	"time"

	"spendsmart/internal/ai"
	"spendsmart/internal/cache"
)

// Caches holds the derived-view caches that expense writes invalidate
type Caches struct {
	Viz      *cache.LRUCache[VisualizationData]
	Insights *cache.LRUCache[ai.Insights]
}

// NewCaches builds the derived-view caches and registers them with the
// manager for periodic expiry cleanup.
func NewCaches(manager *cache.Manager, ttl time.Duration) *Caches {
	c := &Caches{
		Viz:      cache.NewLRUCache[VisualizationData](16, ttl),
		Insights: cache.NewLRUCache[ai.Insights](16, ttl),
	}
	if manager != nil {
		manager.Register(c.Viz)
		manager.Register(c.Insights)
	}
	return c
}

// InvalidateDerived drops every cached derived view
func (c *Caches) InvalidateDerived() {
	c.Viz.DeleteByPrefix("")
	c.Insights.DeleteByPrefix("")
}
