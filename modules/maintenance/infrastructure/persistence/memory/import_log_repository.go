package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/helmline/pms/modules/maintenance/domain/importlog"
)

type ImportLogRepository struct {
	mu   sync.RWMutex
	rows []*importlog.ImportLog
}

func NewImportLogRepository() *ImportLogRepository {
	return &ImportLogRepository{}
}

func (r *ImportLogRepository) Create(_ context.Context, log *importlog.ImportLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *log
	clone.Errors = append([]string(nil), log.Errors...)
	r.rows = append(r.rows, &clone)
	return nil
}

func (r *ImportLogRepository) ListByVessel(_ context.Context, vesselID uuid.UUID, limit int) ([]*importlog.ImportLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*importlog.ImportLog
	for _, row := range r.rows {
		if row.VesselID != vesselID {
			continue
		}
		clone := *row
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
