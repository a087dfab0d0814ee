package models

import "time"

// MediaFile records an uploaded file. Only the storage reference is kept
// alongside log entries, never raw bytes.
type MediaFile struct {
	ID          string    `db:"id" json:"id"`
	FileName    string    `db:"file_name" json:"file_name"`
	ContentType string    `db:"content_type" json:"content_type"`
	SizeBytes   int64     `db:"size_bytes" json:"size_bytes"`
	StoragePath string    `db:"storage_path" json:"-"`
	UploadedBy  string    `db:"uploaded_by" json:"uploaded_by"`
	Resource    *string   `db:"resource" json:"resource,omitempty"`
	ResourceID  *string   `db:"resource_id" json:"resource_id,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// MediaFilter scopes media listings.
type MediaFilter struct {
	UploadedBy string
	Resource   string
	ResourceID string
	Page       int
	PageSize   int
}
