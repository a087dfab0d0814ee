package models

import "time"

// AnalyticsSystemMetrics is a lightweight runtime snapshot surfaced on
// the analytics endpoints alongside Prometheus scraping.
type AnalyticsSystemMetrics struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	DBQueryCount             uint64    `json:"db_query_count"`
	AverageDBQueryDurationMs float64   `json:"average_db_query_duration_ms"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}

// DashboardSummary aggregates the headline views for the admin
// dashboard.
type DashboardSummary struct {
	Goals       *GoalAnalytics          `json:"goals,omitempty"`
	System      *AnalyticsSystemMetrics `json:"system,omitempty"`
	GeneratedAt time.Time               `json:"generated_at"`
}
