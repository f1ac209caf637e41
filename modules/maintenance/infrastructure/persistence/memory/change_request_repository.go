// Package memory provides map-backed repository implementations used by
// service tests and by local development without a database. Semantics match
// the postgres repositories, including conditional status updates.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/helmline/pms/modules/maintenance/domain/changerequest"
)

type ChangeRequestRepository struct {
	mu   sync.RWMutex
	rows map[uuid.UUID]*changerequest.ChangeRequest
}

func NewChangeRequestRepository() *ChangeRequestRepository {
	return &ChangeRequestRepository{rows: make(map[uuid.UUID]*changerequest.ChangeRequest)}
}

func (r *ChangeRequestRepository) Create(_ context.Context, cr *changerequest.ChangeRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *cr
	r.rows[cr.ID] = &clone
	return nil
}

func (r *ChangeRequestRepository) GetByID(_ context.Context, id uuid.UUID) (*changerequest.ChangeRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	row, ok := r.rows[id]
	if !ok {
		return nil, changerequest.ErrNotFound
	}
	clone := *row
	return &clone, nil
}

func (r *ChangeRequestRepository) List(_ context.Context, params changerequest.FindParams) ([]*changerequest.ChangeRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*changerequest.ChangeRequest
	for _, row := range r.rows {
		if row.VesselID != params.VesselID {
			continue
		}
		if len(params.Statuses) > 0 && !containsStatus(params.Statuses, row.Status) {
			continue
		}
		if params.TargetType != "" && row.TargetType != params.TargetType {
			continue
		}
		if params.TargetID != uuid.Nil && row.TargetID != params.TargetID {
			continue
		}
		if params.RequestedBy != uuid.Nil && row.RequestedBy != params.RequestedBy {
			continue
		}
		if !params.Cursor.IsZero() && !row.CreatedAt.Before(params.Cursor) {
			continue
		}
		clone := *row
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if params.Limit > 0 && len(out) > params.Limit {
		out = out[:params.Limit]
	}
	return out, nil
}

func (r *ChangeRequestRepository) UpdateDraft(_ context.Context, cr *changerequest.ChangeRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[cr.ID]
	if !ok {
		return changerequest.ErrNotFound
	}
	clone := *cr
	clone.Status = row.Status
	r.rows[cr.ID] = &clone
	return nil
}

func (r *ChangeRequestRepository) UpdateStatus(_ context.Context, id uuid.UUID, from []changerequest.Status, to changerequest.Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return changerequest.ErrNotFound
	}
	if !containsStatus(from, row.Status) {
		return changerequest.ErrStale
	}
	row.Status = to
	return nil
}

func (r *ChangeRequestRepository) Decide(_ context.Context, upd changerequest.DecisionUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[upd.ID]
	if !ok {
		return changerequest.ErrNotFound
	}
	if !containsStatus(upd.From, row.Status) {
		return changerequest.ErrStale
	}
	row.Status = upd.To
	reviewer := upd.ReviewerID
	row.ReviewerID = &reviewer
	row.Comment = upd.Comment
	row.RevertPatch = upd.RevertPatch
	decidedAt := upd.DecidedAt
	row.DecidedAt = &decidedAt
	row.UpdatedAt = upd.DecidedAt
	return nil
}

func (r *ChangeRequestRepository) DeleteDraft(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return changerequest.ErrNotFound
	}
	if row.Status != changerequest.StatusDraft {
		return changerequest.ErrStale
	}
	delete(r.rows, id)
	return nil
}

func containsStatus(list []changerequest.Status, s changerequest.Status) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
