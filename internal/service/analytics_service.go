package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/carebridge/carebridge-api/internal/models"
	appErrors "github.com/carebridge/carebridge-api/pkg/errors"
)

type goalAnalyticsSource interface {
	Analytics(ctx context.Context) (*models.GoalAnalytics, error)
}

// AnalyticsService assembles the admin dashboard from the derived
// domain views and the runtime metrics snapshot.
type AnalyticsService struct {
	goals    goalAnalyticsSource
	metrics  *MetricsService
	cache    *CacheService
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewAnalyticsService constructs an AnalyticsService instance.
func NewAnalyticsService(goals goalAnalyticsSource, metrics *MetricsService, cache *CacheService, cacheTTL time.Duration, logger *zap.Logger) *AnalyticsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalyticsService{goals: goals, metrics: metrics, cache: cache, cacheTTL: cacheTTL, logger: logger}
}

// Dashboard returns the headline summary. Administrators only.
func (s *AnalyticsService) Dashboard(ctx context.Context, claims *models.JWTClaims) (*models.DashboardSummary, error) {
	if !claims.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only administrators can view the dashboard")
	}

	const key = "analytics:dashboard"
	var cached models.DashboardSummary
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return &cached, nil
	}

	goals, err := s.goals.Analytics(ctx)
	if err != nil {
		return nil, err
	}

	summary := &models.DashboardSummary{
		Goals:       goals,
		GeneratedAt: time.Now().UTC(),
	}
	if s.metrics != nil {
		system := s.metrics.Snapshot()
		summary.System = &system
	}

	if err := s.cache.Set(ctx, key, summary, s.cacheTTL); err != nil {
		s.logger.Warn("failed to cache dashboard summary", zap.Error(err))
	}
	return summary, nil
}
