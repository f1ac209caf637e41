package changerequest

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned for lookups that match no row.
	ErrNotFound = errors.New("change request not found")
	// ErrStale is returned when a conditional status update matched no row,
	// i.e. another writer moved the request first.
	ErrStale = errors.New("change request status changed concurrently")
	// ErrNoChanges is returned by SubmitGuard when the payload diff is empty.
	ErrNoChanges = errors.New("change request has no changes")
)

// FindParams filters and pages the change-request list. Cursor is the
// created_at of the last row of the previous page; zero means first page.
type FindParams struct {
	VesselID    uuid.UUID
	Statuses    []Status
	TargetType  string
	TargetID    uuid.UUID
	RequestedBy uuid.UUID
	Cursor      time.Time
	Limit       int
}

const (
	defaultPageSize = 50
	maxPageSize     = 100
)

// NormalizeLimit clamps the page size so callers and the repository agree on
// how many rows a page holds, which the pagination cursor depends on.
func (p *FindParams) NormalizeLimit() {
	if p.Limit <= 0 || p.Limit > maxPageSize {
		p.Limit = defaultPageSize
	}
}

// DecisionUpdate carries a reviewer decision into the repository. The status
// write is conditional on the allowed source statuses so concurrent
// reviewers cannot double-decide.
type DecisionUpdate struct {
	ID          uuid.UUID
	From        []Status
	To          Status
	ReviewerID  uuid.UUID
	Comment     string
	RevertPatch json.RawMessage
	DecidedAt   time.Time
}

// Repository is the persistence port for change requests. Implementations
// return ErrNotFound (wrapped) for missing rows and ErrStale when a
// conditional status update matched no row.
type Repository interface {
	Create(ctx context.Context, cr *ChangeRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*ChangeRequest, error)
	List(ctx context.Context, params FindParams) ([]*ChangeRequest, error)
	UpdateDraft(ctx context.Context, cr *ChangeRequest) error
	UpdateStatus(ctx context.Context, id uuid.UUID, from []Status, to Status) error
	Decide(ctx context.Context, upd DecisionUpdate) error
	DeleteDraft(ctx context.Context, id uuid.UUID) error
}
