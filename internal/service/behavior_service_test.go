package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/carebridge/carebridge-api/internal/dto"
	"github.com/carebridge/carebridge-api/internal/models"
	appErrors "github.com/carebridge/carebridge-api/pkg/errors"
)

type mockBehaviorRepo struct {
	incidents map[string]models.BehaviorIncident
	counts    map[string]models.IncidentCounts
}

func (m *mockBehaviorRepo) FindByID(ctx context.Context, id string) (*models.BehaviorIncident, error) {
	if i, ok := m.incidents[id]; ok {
		return &i, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockBehaviorRepo) List(ctx context.Context, filter models.IncidentFilter) ([]models.BehaviorIncident, int, error) {
	var list []models.BehaviorIncident
	for _, i := range m.incidents {
		if filter.CarerID != "" && i.CarerID != filter.CarerID {
			continue
		}
		list = append(list, i)
	}
	return list, len(list), nil
}

func (m *mockBehaviorRepo) Create(ctx context.Context, incident *models.BehaviorIncident) error {
	if m.incidents == nil {
		m.incidents = make(map[string]models.BehaviorIncident)
	}
	if incident.ID == "" {
		incident.ID = "new-incident"
	}
	m.incidents[incident.ID] = *incident
	if incident.ActivityID != nil {
		if m.counts == nil {
			m.counts = make(map[string]models.IncidentCounts)
		}
		c := m.counts[*incident.ActivityID]
		c.Total++
		if incident.IsCritical() {
			c.Critical++
		}
		m.counts[*incident.ActivityID] = c
	}
	return nil
}

func (m *mockBehaviorRepo) Update(ctx context.Context, incident *models.BehaviorIncident) error {
	m.incidents[incident.ID] = *incident
	return nil
}

func (m *mockBehaviorRepo) CountsForActivity(ctx context.Context, activityID string, since *time.Time) (*models.IncidentCounts, error) {
	c := m.counts[activityID]
	return &c, nil
}

func (m *mockBehaviorRepo) RiskAggregates(ctx context.Context, activityID string, since *time.Time) (*models.ActivityRiskSummary, error) {
	c := m.counts[activityID]
	return &models.ActivityRiskSummary{
		ActivityID:        activityID,
		TotalIncidents:    c.Total,
		CriticalIncidents: c.Critical,
	}, nil
}

type mockCompletionLookup struct {
	logs map[string]models.ActivityLog
}

func (m *mockCompletionLookup) FindByID(ctx context.Context, id string) (*models.ActivityLog, error) {
	if l, ok := m.logs[id]; ok {
		return &l, nil
	}
	return nil, sql.ErrNoRows
}

func newBehaviorService(repo *mockBehaviorRepo, logs *mockCompletionLookup, events eventEmitter) *BehaviorService {
	if logs == nil {
		logs = &mockCompletionLookup{}
	}
	return NewBehaviorService(repo, logs, disabledCache(), events, validator.New(), zap.NewNop(), RiskConfig{}, 0)
}

func incidentReq(severity models.IncidentSeverity) dto.ReportIncidentRequest {
	return dto.ReportIncidentRequest{
		OccurredAt:       day(3),
		Location:         models.LocationHome,
		Occurrence:       models.OccurrenceUnrelated,
		BehaviorType:     models.BehaviorDisruption,
		Severity:         severity,
		InterventionUsed: "redirection",
	}
}

func TestReportDerivesActivityFromCompletionRecord(t *testing.T) {
	repo := &mockBehaviorRepo{}
	logs := &mockCompletionLookup{logs: map[string]models.ActivityLog{"l1": {ID: "l1", ActivityID: "a1", CarerID: "carer-1"}}}
	svc := newBehaviorService(repo, logs, nil)

	logID := "l1"
	req := incidentReq(models.SeverityLow)
	req.ActivityLogID = &logID
	req.Occurrence = models.OccurrenceDuringActivity

	incident, err := svc.Report(context.Background(), carerClaims(), req)
	require.NoError(t, err)
	require.NotNil(t, incident.ActivityID)
	assert.Equal(t, "a1", *incident.ActivityID)
}

func TestReportConflictingActivityReference(t *testing.T) {
	repo := &mockBehaviorRepo{}
	logs := &mockCompletionLookup{logs: map[string]models.ActivityLog{"l1": {ID: "l1", ActivityID: "a1"}}}
	svc := newBehaviorService(repo, logs, nil)

	logID := "l1"
	otherActivity := "a2"
	req := incidentReq(models.SeverityLow)
	req.ActivityLogID = &logID
	req.ActivityID = &otherActivity
	req.Occurrence = models.OccurrenceDuringActivity

	_, err := svc.Report(context.Background(), carerClaims(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestReportMissingCompletionRecord(t *testing.T) {
	svc := newBehaviorService(&mockBehaviorRepo{}, nil, nil)

	logID := "missing"
	req := incidentReq(models.SeverityLow)
	req.ActivityLogID = &logID
	req.Occurrence = models.OccurrenceDuringActivity

	_, err := svc.Report(context.Background(), carerClaims(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestReportNoActivityMustBeUnrelated(t *testing.T) {
	svc := newBehaviorService(&mockBehaviorRepo{}, nil, nil)

	req := incidentReq(models.SeverityLow)
	req.Occurrence = models.OccurrenceDuringActivity

	_, err := svc.Report(context.Background(), carerClaims(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	req.Occurrence = models.OccurrenceUnrelated
	incident, err := svc.Report(context.Background(), carerClaims(), req)
	require.NoError(t, err)
	assert.Nil(t, incident.ActivityID)
}

func TestReportUnapprovedCarer(t *testing.T) {
	svc := newBehaviorService(&mockBehaviorRepo{}, nil, nil)

	unapproved := &models.JWTClaims{UserID: "carer-2", Role: models.RoleSupportWorker, Approved: false}
	_, err := svc.Report(context.Background(), unapproved, incidentReq(models.SeverityLow))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotApproved.Code, appErrors.FromError(err).Code)
}

func TestReportThirdCriticalEmitsHighRiskEvent(t *testing.T) {
	repo := &mockBehaviorRepo{}
	emitter := &mockEmitter{}
	svc := newBehaviorService(repo, nil, emitter)

	activityID := "a1"
	req := incidentReq(models.SeverityCritical)
	req.ActivityID = &activityID
	req.Occurrence = models.OccurrenceDuringActivity

	for i := 0; i < 3; i++ {
		_, err := svc.Report(context.Background(), carerClaims(), req)
		require.NoError(t, err)
	}

	risk, hit, err := svc.Risk(context.Background(), activityID)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, models.RiskHigh, risk.RiskLevel)
	assert.Equal(t, 3, risk.Critical)

	require.Len(t, emitter.events, 1)
	assert.Equal(t, models.EventHighRiskActivity, emitter.events[0].Type)
	assert.Equal(t, "high_risk_activity:a1:high", emitter.events[0].DedupeKey)
}

func TestClassifyRiskThresholds(t *testing.T) {
	cfg := RiskConfig{}
	cases := []struct {
		name   string
		counts models.IncidentCounts
		want   models.RiskLevel
	}{
		{"no incidents", models.IncidentCounts{}, models.RiskLow},
		{"two non-critical", models.IncidentCounts{Total: 2}, models.RiskLow},
		{"three non-critical", models.IncidentCounts{Total: 3}, models.RiskMedium},
		{"one critical", models.IncidentCounts{Total: 1, Critical: 1}, models.RiskMedium},
		{"three critical", models.IncidentCounts{Total: 3, Critical: 3}, models.RiskHigh},
		{"ten total", models.IncidentCounts{Total: 10}, models.RiskHigh},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, classifyRisk(tc.counts, cfg))
		})
	}
}

func TestIncidentUpdateLockedAfterReview(t *testing.T) {
	reviewedAt := day(4)
	repo := &mockBehaviorRepo{incidents: map[string]models.BehaviorIncident{
		"i1": {ID: "i1", CarerID: "carer-1", ReviewedAt: &reviewedAt},
	}}
	svc := newBehaviorService(repo, nil, nil)

	notes := "addendum"
	_, err := svc.Update(context.Background(), carerClaims(), "i1", dto.UpdateIncidentRequest{Notes: &notes})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	updated, err := svc.Update(context.Background(), adminClaims(), "i1", dto.UpdateIncidentRequest{Notes: &notes})
	require.NoError(t, err)
	assert.Equal(t, "addendum", *updated.Notes)
}

func TestIncidentReviewAdminOnly(t *testing.T) {
	repo := &mockBehaviorRepo{incidents: map[string]models.BehaviorIncident{
		"i1": {ID: "i1", CarerID: "carer-1"},
	}}
	svc := newBehaviorService(repo, nil, nil)

	_, err := svc.Review(context.Background(), carerClaims(), "i1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	incident, err := svc.Review(context.Background(), adminClaims(), "i1")
	require.NoError(t, err)
	require.NotNil(t, incident.ReviewedBy)
	assert.Equal(t, "admin-1", *incident.ReviewedBy)
	assert.NotNil(t, incident.ReviewedAt)
}

func TestIncidentListScopedToReporter(t *testing.T) {
	repo := &mockBehaviorRepo{incidents: map[string]models.BehaviorIncident{
		"i1": {ID: "i1", CarerID: "carer-1"},
		"i2": {ID: "i2", CarerID: "carer-9"},
	}}
	svc := newBehaviorService(repo, nil, nil)

	own, total, err := svc.List(context.Background(), carerClaims(), models.IncidentFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, own, 1)
	assert.Equal(t, "carer-1", own[0].CarerID)
}
