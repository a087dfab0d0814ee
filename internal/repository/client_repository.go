package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/carebridge/carebridge-api/internal/models"
)

// ClientRepository manages persistence for care recipients.
type ClientRepository struct {
	db *sqlx.DB
}

// NewClientRepository constructs a new repository.
func NewClientRepository(db *sqlx.DB) *ClientRepository {
	return &ClientRepository{db: db}
}

const clientColumns = `id, full_name, date_of_birth, address, care_notes, case_manager_id, emergency_contact,
emergency_phone, active, created_by, created_at, updated_at`

// FindByID loads a client with its support worker set.
func (r *ClientRepository) FindByID(ctx context.Context, id string) (*models.Client, error) {
	var client models.Client
	query := fmt.Sprintf("SELECT %s FROM clients WHERE id = $1", clientColumns)
	if err := r.db.GetContext(ctx, &client, query, id); err != nil {
		return nil, err
	}
	workers, err := r.supportWorkerIDs(ctx, id)
	if err != nil {
		return nil, err
	}
	client.SupportWorkerIDs = workers
	return &client, nil
}

// List returns clients matching the filter.
func (r *ClientRepository) List(ctx context.Context, filter models.ClientFilter) ([]models.Client, int, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	if filter.SupportWorkerID != "" {
		where = append(where, fmt.Sprintf("id IN (SELECT client_id FROM client_assignments WHERE carer_id = $%d)", len(args)+1))
		args = append(args, filter.SupportWorkerID)
	}
	if filter.CaseManagerID != "" {
		where = append(where, fmt.Sprintf("case_manager_id = $%d", len(args)+1))
		args = append(args, filter.CaseManagerID)
	}
	if filter.Active != nil {
		where = append(where, fmt.Sprintf("active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	if filter.Search != "" {
		where = append(where, fmt.Sprintf("full_name ILIKE $%d", len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}
	whereClause := strings.Join(where, " AND ")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s FROM clients WHERE %s ORDER BY full_name ASC LIMIT %d OFFSET %d",
		clientColumns, whereClause, size, offset)
	var clients []models.Client
	if err := r.db.SelectContext(ctx, &clients, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list clients: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM clients WHERE %s", whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count clients: %w", err)
	}
	return clients, total, nil
}

// Create inserts a new client and its assignments.
func (r *ClientRepository) Create(ctx context.Context, client *models.Client) error {
	if client.ID == "" {
		client.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	client.CreatedAt = now
	client.UpdatedAt = now
	query := `INSERT INTO clients (id, full_name, date_of_birth, address, care_notes, case_manager_id, emergency_contact,
emergency_phone, active, created_by, created_at, updated_at)
VALUES (:id, :full_name, :date_of_birth, :address, :care_notes, :case_manager_id, :emergency_contact,
:emergency_phone, :active, :created_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, client); err != nil {
		return fmt.Errorf("create client: %w", err)
	}
	return r.ReplaceSupportWorkers(ctx, client.ID, client.SupportWorkerIDs)
}

// Update modifies client details.
func (r *ClientRepository) Update(ctx context.Context, client *models.Client) error {
	client.UpdatedAt = time.Now().UTC()
	query := `UPDATE clients SET full_name = :full_name, date_of_birth = :date_of_birth, address = :address,
care_notes = :care_notes, case_manager_id = :case_manager_id, emergency_contact = :emergency_contact,
emergency_phone = :emergency_phone, active = :active, updated_at = :updated_at
WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, client); err != nil {
		return fmt.Errorf("update client: %w", err)
	}
	return r.ReplaceSupportWorkers(ctx, client.ID, client.SupportWorkerIDs)
}

// Deactivate soft-deletes the client record.
func (r *ClientRepository) Deactivate(ctx context.Context, id string, ts time.Time) error {
	if _, err := r.db.ExecContext(ctx,
		"UPDATE clients SET active = false, updated_at = $1 WHERE id = $2", ts, id); err != nil {
		return fmt.Errorf("deactivate client: %w", err)
	}
	return nil
}

// ReplaceSupportWorkers rewrites the carer assignment set for a client.
func (r *ClientRepository) ReplaceSupportWorkers(ctx context.Context, clientID string, carerIDs []string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin client assignments tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, "DELETE FROM client_assignments WHERE client_id = $1", clientID); err != nil {
		return fmt.Errorf("clear client assignments: %w", err)
	}
	for _, carerID := range carerIDs {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO client_assignments (client_id, carer_id) VALUES ($1, $2) ON CONFLICT DO NOTHING",
			clientID, carerID); err != nil {
			return fmt.Errorf("insert client assignment: %w", err)
		}
	}
	return tx.Commit()
}

func (r *ClientRepository) supportWorkerIDs(ctx context.Context, clientID string) ([]string, error) {
	var ids []string
	if err := r.db.SelectContext(ctx, &ids,
		"SELECT carer_id FROM client_assignments WHERE client_id = $1 ORDER BY carer_id", clientID); err != nil {
		return nil, fmt.Errorf("support worker ids: %w", err)
	}
	return ids, nil
}
