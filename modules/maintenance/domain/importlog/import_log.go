// Package importlog records spreadsheet import runs so an operator can see
// when component data last arrived and how much of it was rejected.
package importlog

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ImportLog is one completed import run. Errors holds the per-row rejection
// messages, capped by the service.
type ImportLog struct {
	ID         uuid.UUID
	VesselID   uuid.UUID
	FileName   string
	RowCount   int
	Imported   int
	Skipped    int
	Errors     []string
	ImportedBy uuid.UUID
	CreatedAt  time.Time
}

// Repository is the persistence port for import history.
type Repository interface {
	Create(ctx context.Context, log *ImportLog) error
	ListByVessel(ctx context.Context, vesselID uuid.UUID, limit int) ([]*ImportLog, error)
}
