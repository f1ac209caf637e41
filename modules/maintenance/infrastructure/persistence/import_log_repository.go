package persistence

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/helmline/pms/modules/maintenance/domain/importlog"
	"github.com/helmline/pms/pkg/composables"
)

type PgImportLogRepository struct{}

func NewImportLogRepository() *PgImportLogRepository {
	return &PgImportLogRepository{}
}

func (r *PgImportLogRepository) Create(ctx context.Context, log *importlog.ImportLog) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO pms_import_history (
			id, vessel_id, file_name, row_count, imported, skipped, errors,
			imported_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		pgUUID(log.ID), pgUUID(log.VesselID), log.FileName,
		log.RowCount, log.Imported, log.Skipped, log.Errors,
		pgUUID(log.ImportedBy), log.CreatedAt,
	)
	if err != nil {
		return errors.Wrap(err, "inserting import history row")
	}
	return nil
}

func (r *PgImportLogRepository) ListByVessel(ctx context.Context, vesselID uuid.UUID, limit int) ([]*importlog.ImportLog, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, `
		SELECT id, vessel_id, file_name, row_count, imported, skipped, errors,
			imported_by, created_at
		FROM pms_import_history
		WHERE vessel_id = $1
		ORDER BY created_at DESC
		LIMIT $2`,
		pgUUID(vesselID), limit,
	)
	if err != nil {
		return nil, errors.Wrap(err, "listing import history")
	}
	defer rows.Close()

	var out []*importlog.ImportLog
	for rows.Next() {
		var (
			log        importlog.ImportLog
			id         pgtype.UUID
			vessel     pgtype.UUID
			importedBy pgtype.UUID
		)
		err := rows.Scan(&id, &vessel, &log.FileName, &log.RowCount,
			&log.Imported, &log.Skipped, &log.Errors, &importedBy, &log.CreatedAt)
		if err != nil {
			return nil, errors.Wrap(err, "scanning import history row")
		}
		log.ID = asUUID(id)
		log.VesselID = asUUID(vessel)
		log.ImportedBy = asUUID(importedBy)
		out = append(out, &log)
	}
	return out, rows.Err()
}
