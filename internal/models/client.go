package models

import "time"

// Client is a care recipient managed by the service.
type Client struct {
	ID               string     `db:"id" json:"id"`
	FullName         string     `db:"full_name" json:"full_name"`
	DateOfBirth      *time.Time `db:"date_of_birth" json:"date_of_birth,omitempty"`
	Address          *string    `db:"address" json:"address,omitempty"`
	CareNotes        *string    `db:"care_notes" json:"care_notes,omitempty"`
	CaseManagerID    *string    `db:"case_manager_id" json:"case_manager_id,omitempty"`
	EmergencyContact *string    `db:"emergency_contact" json:"emergency_contact,omitempty"`
	EmergencyPhone   *string    `db:"emergency_phone" json:"emergency_phone,omitempty"`
	Active           bool       `db:"active" json:"active"`
	CreatedBy        string     `db:"created_by" json:"created_by"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`

	// SupportWorkerIDs is loaded from the client_assignments join table.
	SupportWorkerIDs []string `db:"-" json:"support_worker_ids"`
}

// ClientFilter scopes client listings.
type ClientFilter struct {
	SupportWorkerID string
	CaseManagerID   string
	Active          *bool
	Search          string
	Page            int
	PageSize        int
	SortBy          string
	SortOrder       string
}
