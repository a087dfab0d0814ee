package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/carebridge/carebridge-api/internal/dto"
	"github.com/carebridge/carebridge-api/internal/models"
	appErrors "github.com/carebridge/carebridge-api/pkg/errors"
)

type clientRepository interface {
	FindByID(ctx context.Context, id string) (*models.Client, error)
	List(ctx context.Context, filter models.ClientFilter) ([]models.Client, int, error)
	Create(ctx context.Context, client *models.Client) error
	Update(ctx context.Context, client *models.Client) error
	Deactivate(ctx context.Context, id string, ts time.Time) error
	ReplaceSupportWorkers(ctx context.Context, clientID string, carerIDs []string) error
}

// ClientService manages care recipients and their support worker
// assignments.
type ClientService struct {
	repo      clientRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewClientService constructs a ClientService instance.
func NewClientService(repo clientRepository, validate *validator.Validate, logger *zap.Logger) *ClientService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ClientService{repo: repo, validator: validate, logger: logger}
}

// Create registers a care recipient. Administrators only.
func (s *ClientService) Create(ctx context.Context, claims *models.JWTClaims, req dto.CreateClientRequest) (*models.Client, error) {
	if !claims.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only administrators can create clients")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid client payload")
	}

	client := &models.Client{
		FullName:         req.FullName,
		DateOfBirth:      req.DateOfBirth,
		Address:          req.Address,
		CareNotes:        req.CareNotes,
		CaseManagerID:    req.CaseManagerID,
		EmergencyContact: req.EmergencyContact,
		EmergencyPhone:   req.EmergencyPhone,
		Active:           true,
		CreatedBy:        claims.UserID,
	}
	if err := s.repo.Create(ctx, client); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create client")
	}

	if len(req.SupportWorkerIDs) > 0 {
		if err := s.repo.ReplaceSupportWorkers(ctx, client.ID, req.SupportWorkerIDs); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign support workers")
		}
		client.SupportWorkerIDs = req.SupportWorkerIDs
	}

	return client, nil
}

// Get returns a client. Support workers may only fetch clients they are
// assigned to.
func (s *ClientService) Get(ctx context.Context, claims *models.JWTClaims, id string) (*models.Client, error) {
	client, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "client not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load client")
	}

	if !claims.IsAdmin() && !containsID(client.SupportWorkerIDs, claims.UserID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "client is not assigned to you")
	}
	return client, nil
}

// List returns clients matching the filter. Non-admin callers only see
// clients assigned to them.
func (s *ClientService) List(ctx context.Context, claims *models.JWTClaims, filter models.ClientFilter) ([]models.Client, int, error) {
	if claims != nil && !claims.IsAdmin() {
		filter.SupportWorkerID = claims.UserID
	}
	clients, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list clients")
	}
	return clients, total, nil
}

// Update edits client details. Administrators only.
func (s *ClientService) Update(ctx context.Context, claims *models.JWTClaims, id string, req dto.UpdateClientRequest) (*models.Client, error) {
	if !claims.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only administrators can edit clients")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid client payload")
	}

	client, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "client not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load client")
	}

	if req.FullName != nil {
		client.FullName = *req.FullName
	}
	if req.DateOfBirth != nil {
		client.DateOfBirth = req.DateOfBirth
	}
	if req.Address != nil {
		client.Address = req.Address
	}
	if req.CareNotes != nil {
		client.CareNotes = req.CareNotes
	}
	if req.CaseManagerID != nil {
		client.CaseManagerID = req.CaseManagerID
	}
	if req.EmergencyContact != nil {
		client.EmergencyContact = req.EmergencyContact
	}
	if req.EmergencyPhone != nil {
		client.EmergencyPhone = req.EmergencyPhone
	}

	if err := s.repo.Update(ctx, client); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update client")
	}

	if req.SupportWorkerIDs != nil {
		if err := s.repo.ReplaceSupportWorkers(ctx, client.ID, req.SupportWorkerIDs); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign support workers")
		}
		client.SupportWorkerIDs = req.SupportWorkerIDs
	}

	return client, nil
}

// Deactivate soft-deletes a client. Administrators only.
func (s *ClientService) Deactivate(ctx context.Context, claims *models.JWTClaims, id string) error {
	if !claims.IsAdmin() {
		return appErrors.Clone(appErrors.ErrForbidden, "only administrators can deactivate clients")
	}
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "client not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load client")
	}
	if err := s.repo.Deactivate(ctx, id, time.Now().UTC()); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate client")
	}
	return nil
}

func containsID(ids []string, id string) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}
