package model

import (
	"fmt"
	"time"
)

// Status is the lifecycle state of an application.
type Status string

const (
	StatusReceived Status = "received"
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// ContactUnknown is stored when no contact handle could be extracted
// from a free-text submission.
const ContactUnknown = "N/A"

// Application holds one submitted candidacy for the dubbing team.
// Payload fields are immutable after intake; only the status fields
// change afterwards.
type Application struct {
	ID     string `json:"id"`
	Status Status `json:"status"`

	Name       string `json:"name"`
	Contact    string `json:"contact"`
	Role       string `json:"role"`
	Experience string `json:"experience,omitempty"`
	Samples    string `json:"samples,omitempty"`
	Motivation string `json:"motivation"`

	// RawText carries the original message body for chat intake,
	// where the payload arrives as unstructured text.
	RawText string `json:"raw_text,omitempty"`

	// ContactHandle is the best-effort extracted messenger handle,
	// ContactUnknown when absent.
	ContactHandle string `json:"telegram_username"`

	// ApplicantChatID is the submitter's own chat, known only for chat
	// intake. Zero means decisions cannot be delivered back directly.
	ApplicantChatID int64 `json:"applicant_chat_id,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
	ProcessedBy string     `json:"processed_by,omitempty"`
}

// Decided reports whether the application has reached a terminal decision.
func (a *Application) Decided() bool {
	return a.Status == StatusApproved || a.Status == StatusRejected
}

// FormatID renders the canonical application ID for a counter value.
func FormatID(counter int64) string {
	return fmt.Sprintf("APP-%04d", counter)
}

// ValidStatus reports whether s is one of the known lifecycle states.
func ValidStatus(s Status) bool {
	switch s {
	case StatusReceived, StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// CanTransition reports whether a status change from -> to is allowed:
// received->pending, pending->approved/rejected, and approved<->rejected
// (re-decision). Everything else, including same-status moves, is not.
func CanTransition(from, to Status) bool {
	if from == to {
		return false
	}
	switch from {
	case StatusReceived:
		return to == StatusPending
	case StatusPending:
		return to == StatusApproved || to == StatusRejected
	case StatusApproved:
		return to == StatusRejected
	case StatusRejected:
		return to == StatusApproved
	}
	return false
}
