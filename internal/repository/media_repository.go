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

// MediaRepository manages persistence for uploaded file references.
type MediaRepository struct {
	db *sqlx.DB
}

// NewMediaRepository constructs a new repository.
func NewMediaRepository(db *sqlx.DB) *MediaRepository {
	return &MediaRepository{db: db}
}

const mediaColumns = `id, file_name, content_type, size_bytes, storage_path, uploaded_by, resource, resource_id, created_at`

// Create inserts an uploaded file record.
func (r *MediaRepository) Create(ctx context.Context, file *models.MediaFile) error {
	if file.ID == "" {
		file.ID = uuid.NewString()
	}
	if file.CreatedAt.IsZero() {
		file.CreatedAt = time.Now().UTC()
	}
	query := `INSERT INTO media_files (id, file_name, content_type, size_bytes, storage_path, uploaded_by, resource, resource_id, created_at)
VALUES (:id, :file_name, :content_type, :size_bytes, :storage_path, :uploaded_by, :resource, :resource_id, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, file); err != nil {
		return fmt.Errorf("create media file: %w", err)
	}
	return nil
}

// FindByID loads a media record.
func (r *MediaRepository) FindByID(ctx context.Context, id string) (*models.MediaFile, error) {
	var file models.MediaFile
	query := fmt.Sprintf("SELECT %s FROM media_files WHERE id = $1", mediaColumns)
	if err := r.db.GetContext(ctx, &file, query, id); err != nil {
		return nil, err
	}
	return &file, nil
}

// List returns media records matching the filter.
func (r *MediaRepository) List(ctx context.Context, filter models.MediaFilter) ([]models.MediaFile, int, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	if filter.UploadedBy != "" {
		where = append(where, fmt.Sprintf("uploaded_by = $%d", len(args)+1))
		args = append(args, filter.UploadedBy)
	}
	if filter.Resource != "" {
		where = append(where, fmt.Sprintf("resource = $%d", len(args)+1))
		args = append(args, filter.Resource)
	}
	if filter.ResourceID != "" {
		where = append(where, fmt.Sprintf("resource_id = $%d", len(args)+1))
		args = append(args, filter.ResourceID)
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

	query := fmt.Sprintf("SELECT %s FROM media_files WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d",
		mediaColumns, whereClause, size, offset)
	var files []models.MediaFile
	if err := r.db.SelectContext(ctx, &files, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list media files: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM media_files WHERE %s", whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count media files: %w", err)
	}
	return files, total, nil
}
