package memory

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/helmline/pms/modules/maintenance/domain/component"
)

type ComponentRepository struct {
	mu   sync.RWMutex
	rows map[uuid.UUID]*component.Component
}

func NewComponentRepository() *ComponentRepository {
	return &ComponentRepository{rows: make(map[uuid.UUID]*component.Component)}
}

func (r *ComponentRepository) Create(_ context.Context, c *component.Component) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *c
	r.rows[c.ID] = &clone
	return nil
}

func (r *ComponentRepository) GetByID(_ context.Context, id uuid.UUID) (*component.Component, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	row, ok := r.rows[id]
	if !ok {
		return nil, component.ErrNotFound
	}
	clone := *row
	return &clone, nil
}

func (r *ComponentRepository) GetByCode(_ context.Context, vesselID uuid.UUID, code string) (*component.Component, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, row := range r.rows {
		if row.VesselID == vesselID && row.Code == code {
			clone := *row
			return &clone, nil
		}
	}
	return nil, component.ErrNotFound
}

func (r *ComponentRepository) List(_ context.Context, params component.FindParams) ([]*component.Component, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*component.Component
	for _, row := range r.rows {
		if row.VesselID != params.VesselID {
			continue
		}
		if params.ParentID != nil {
			if row.ParentID == nil || *row.ParentID != *params.ParentID {
				continue
			}
		}
		if params.Search != "" {
			needle := strings.ToLower(params.Search)
			if !strings.Contains(strings.ToLower(row.Name), needle) &&
				!strings.Contains(strings.ToLower(row.Code), needle) {
				continue
			}
		}
		clone := *row
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	if params.Limit > 0 && len(out) > params.Limit {
		out = out[:params.Limit]
	}
	return out, nil
}

func (r *ComponentRepository) UpdateData(_ context.Context, id uuid.UUID, data json.RawMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return component.ErrNotFound
	}
	row.Data = data
	row.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *ComponentRepository) Upsert(_ context.Context, c *component.Component) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.VesselID == c.VesselID && row.Code == c.Code {
			row.Name = c.Name
			row.Data = c.Data
			row.UpdatedAt = c.UpdatedAt
			return nil
		}
	}
	clone := *c
	r.rows[c.ID] = &clone
	return nil
}
