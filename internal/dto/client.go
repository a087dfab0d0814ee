package dto

import "time"

// CreateClientRequest registers a care recipient.
type CreateClientRequest struct {
	FullName         string     `json:"full_name" validate:"required,min=2,max=200"`
	DateOfBirth      *time.Time `json:"date_of_birth,omitempty"`
	Address          *string    `json:"address,omitempty"`
	CareNotes        *string    `json:"care_notes,omitempty"`
	CaseManagerID    *string    `json:"case_manager_id,omitempty"`
	EmergencyContact *string    `json:"emergency_contact,omitempty"`
	EmergencyPhone   *string    `json:"emergency_phone,omitempty"`
	SupportWorkerIDs []string   `json:"support_worker_ids,omitempty"`
}

// UpdateClientRequest edits client details and support worker assignments.
type UpdateClientRequest struct {
	FullName         *string    `json:"full_name,omitempty" validate:"omitempty,min=2,max=200"`
	DateOfBirth      *time.Time `json:"date_of_birth,omitempty"`
	Address          *string    `json:"address,omitempty"`
	CareNotes        *string    `json:"care_notes,omitempty"`
	CaseManagerID    *string    `json:"case_manager_id,omitempty"`
	EmergencyContact *string    `json:"emergency_contact,omitempty"`
	EmergencyPhone   *string    `json:"emergency_phone,omitempty"`
	SupportWorkerIDs []string   `json:"support_worker_ids,omitempty"`
}
