// Package events defines the domain events published on the application
// event bus by the maintenance module's services.
package events

import (
	"time"

	"github.com/google/uuid"
)

// ChangeRequestSubmitted is published when a request enters review.
type ChangeRequestSubmitted struct {
	RequestID   uuid.UUID
	VesselID    uuid.UUID
	TargetID    uuid.UUID
	RequestedBy uuid.UUID
	Title       string
	SubmittedAt time.Time
}

// ChangeRequestDecided is published for approve, reject and return alike;
// Decision carries the resulting status.
type ChangeRequestDecided struct {
	RequestID  uuid.UUID
	VesselID   uuid.UUID
	TargetID   uuid.UUID
	ReviewerID uuid.UUID
	Decision   string
	Comment    string
	DecidedAt  time.Time
}

// ComponentsImported is published after a spreadsheet import run completes.
type ComponentsImported struct {
	VesselID   uuid.UUID
	FileName   string
	Imported   int
	Skipped    int
	ImportedBy uuid.UUID
	FinishedAt time.Time
}
