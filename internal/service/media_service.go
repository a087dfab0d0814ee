package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/carebridge/carebridge-api/internal/models"
	appErrors "github.com/carebridge/carebridge-api/pkg/errors"
	"github.com/carebridge/carebridge-api/pkg/storage"
)

type mediaRepository interface {
	Create(ctx context.Context, file *models.MediaFile) error
	FindByID(ctx context.Context, id string) (*models.MediaFile, error)
	List(ctx context.Context, filter models.MediaFilter) ([]models.MediaFile, int, error)
}

// MediaConfig bounds uploads.
type MediaConfig struct {
	MaxFileSizeBytes int64
	AllowedMIMEs     []string
}

// MediaService accepts uploads and hands out signed download references.
// Log entries store only the returned reference, never raw bytes.
type MediaService struct {
	repo    mediaRepository
	storage *storage.LocalStorage
	signer  *storage.SignedURLSigner
	logger  *zap.Logger
	config  MediaConfig
}

// NewMediaService constructs a MediaService instance.
func NewMediaService(repo mediaRepository, store *storage.LocalStorage, signer *storage.SignedURLSigner, logger *zap.Logger, config MediaConfig) *MediaService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.MaxFileSizeBytes <= 0 {
		config.MaxFileSizeBytes = 25 << 20
	}
	return &MediaService{repo: repo, storage: store, signer: signer, logger: logger, config: config}
}

// Upload stores the file and returns its record plus a signed download
// token.
func (s *MediaService) Upload(ctx context.Context, claims *models.JWTClaims, fileName, contentType string, size int64, r io.Reader, resource, resourceID *string) (*models.MediaFile, string, error) {
	if !claims.IsAdmin() && !claims.CanRecordCare() {
		return nil, "", appErrors.Clone(appErrors.ErrForbidden, "not allowed to upload media")
	}
	if size <= 0 || size > s.config.MaxFileSizeBytes {
		return nil, "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file size must be between 1 and %d bytes", s.config.MaxFileSizeBytes))
	}
	if len(s.config.AllowedMIMEs) > 0 && !mimeAllowed(contentType, s.config.AllowedMIMEs) {
		return nil, "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("content type %q not allowed", contentType))
	}

	id := uuid.NewString()
	storagePath := filepath.Join("media", id+filepath.Ext(fileName))
	if _, err := s.storage.SaveStream(storagePath, io.LimitReader(r, s.config.MaxFileSizeBytes)); err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store file")
	}

	file := &models.MediaFile{
		ID:          id,
		FileName:    fileName,
		ContentType: contentType,
		SizeBytes:   size,
		StoragePath: storagePath,
		UploadedBy:  claims.UserID,
		Resource:    resource,
		ResourceID:  resourceID,
	}
	if err := s.repo.Create(ctx, file); err != nil {
		if cleanupErr := s.storage.Delete(storagePath); cleanupErr != nil {
			s.logger.Warn("failed to remove orphaned upload", zap.String("path", storagePath), zap.Error(cleanupErr))
		}
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record upload")
	}

	token, _, err := s.signer.Generate(file.ID, storagePath)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download link")
	}
	return file, token, nil
}

// Get returns the record and a fresh signed token.
func (s *MediaService) Get(ctx context.Context, id string) (*models.MediaFile, string, error) {
	file, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", appErrors.Clone(appErrors.ErrNotFound, "media file not found")
		}
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load media file")
	}
	token, _, err := s.signer.Generate(file.ID, file.StoragePath)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download link")
	}
	return file, token, nil
}

// List returns uploads matching the filter. Non-admin callers only see
// their own uploads.
func (s *MediaService) List(ctx context.Context, claims *models.JWTClaims, filter models.MediaFilter) ([]models.MediaFile, int, error) {
	if claims != nil && !claims.IsAdmin() {
		filter.UploadedBy = claims.UserID
	}
	files, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list media files")
	}
	return files, total, nil
}

// Download validates a signed token and opens the referenced file.
func (s *MediaService) Download(ctx context.Context, token string) (*models.MediaFile, *os.File, error) {
	fileID, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid download token")
	}

	file, err := s.repo.FindByID(ctx, fileID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "media file not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load media file")
	}
	if file.StoragePath != relPath {
		return nil, nil, appErrors.Clone(appErrors.ErrUnauthorized, "token does not match stored file")
	}

	handle, err := s.storage.Open(file.StoragePath)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open stored file")
	}
	return file, handle, nil
}

func mimeAllowed(contentType string, allowed []string) bool {
	for _, mime := range allowed {
		if strings.EqualFold(mime, contentType) {
			return true
		}
	}
	return false
}
