// Package component models the vessel machinery records that change
// requests target. The maintenance data itself lives in Data as a JSON
// document keyed by the scalar field names and list section arrays.
package component

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned for lookups that match no row.
var ErrNotFound = errors.New("component not found")

// Component is one machinery item in a vessel's component tree. Code is the
// SFI-style hierarchical number ("601.001") and is unique per vessel.
type Component struct {
	ID        uuid.UUID
	VesselID  uuid.UUID
	Code      string
	Name      string
	ParentID  *uuid.UUID
	Data      json.RawMessage
	CreatedAt time.Time
	UpdatedAt time.Time
}

// FindParams filters the component list.
type FindParams struct {
	VesselID uuid.UUID
	ParentID *uuid.UUID
	Search   string
	Limit    int
}

// Repository is the persistence port for components.
type Repository interface {
	Create(ctx context.Context, c *Component) error
	GetByID(ctx context.Context, id uuid.UUID) (*Component, error)
	GetByCode(ctx context.Context, vesselID uuid.UUID, code string) (*Component, error)
	List(ctx context.Context, params FindParams) ([]*Component, error)
	UpdateData(ctx context.Context, id uuid.UUID, data json.RawMessage) error
	Upsert(ctx context.Context, c *Component) error
}
