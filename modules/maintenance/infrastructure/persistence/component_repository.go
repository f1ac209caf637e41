package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/helmline/pms/modules/maintenance/domain/component"
	"github.com/helmline/pms/pkg/composables"
)

const componentColumns = `
	id, vessel_id, code, name, parent_id, data, created_at, updated_at`

type PgComponentRepository struct{}

func NewComponentRepository() *PgComponentRepository {
	return &PgComponentRepository{}
}

func (r *PgComponentRepository) Create(ctx context.Context, c *component.Component) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO pms_components (`+componentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		pgUUID(c.ID), pgUUID(c.VesselID), c.Code, c.Name,
		pgUUIDPtr(c.ParentID), c.Data, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return errors.Wrap(err, "inserting component")
	}
	return nil
}

func (r *PgComponentRepository) GetByID(ctx context.Context, id uuid.UUID) (*component.Component, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	row := tx.QueryRow(ctx,
		`SELECT `+componentColumns+` FROM pms_components WHERE id = $1`,
		pgUUID(id))
	return r.scan(row)
}

func (r *PgComponentRepository) GetByCode(ctx context.Context, vesselID uuid.UUID, code string) (*component.Component, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	row := tx.QueryRow(ctx,
		`SELECT `+componentColumns+` FROM pms_components WHERE vessel_id = $1 AND code = $2`,
		pgUUID(vesselID), code)
	return r.scan(row)
}

func (r *PgComponentRepository) List(ctx context.Context, params component.FindParams) ([]*component.Component, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	where := []string{"vessel_id = $1"}
	args := []any{pgUUID(params.VesselID)}
	if params.ParentID != nil {
		args = append(args, pgUUID(*params.ParentID))
		where = append(where, fmt.Sprintf("parent_id = $%d", len(args)))
	}
	if params.Search != "" {
		args = append(args, "%"+params.Search+"%")
		where = append(where, fmt.Sprintf("(name ILIKE $%d OR code ILIKE $%d)", len(args), len(args)))
	}
	args = append(args, params.Limit)

	query := fmt.Sprintf(`
		SELECT %s FROM pms_components
		WHERE %s
		ORDER BY code
		LIMIT $%d`,
		componentColumns, strings.Join(where, " AND "), len(args))

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "listing components")
	}
	defer rows.Close()

	var out []*component.Component
	for rows.Next() {
		c, scanErr := r.scan(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *PgComponentRepository) UpdateData(ctx context.Context, id uuid.UUID, data json.RawMessage) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, `
		UPDATE pms_components SET data = $2, updated_at = now() WHERE id = $1`,
		pgUUID(id), data,
	)
	if err != nil {
		return errors.Wrap(err, "updating component data")
	}
	if tag.RowsAffected() == 0 {
		return component.ErrNotFound
	}
	return nil
}

// Upsert keys on vessel+code; imports use it so re-running a sheet refreshes
// instead of duplicating.
func (r *PgComponentRepository) Upsert(ctx context.Context, c *component.Component) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO pms_components (`+componentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (vessel_id, code) DO UPDATE
		SET name = EXCLUDED.name, data = EXCLUDED.data, updated_at = EXCLUDED.updated_at`,
		pgUUID(c.ID), pgUUID(c.VesselID), c.Code, c.Name,
		pgUUIDPtr(c.ParentID), c.Data, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return errors.Wrap(err, "upserting component")
	}
	return nil
}

func (r *PgComponentRepository) scan(row rowScanner) (*component.Component, error) {
	var (
		c        component.Component
		id       pgtype.UUID
		vesselID pgtype.UUID
		parentID pgtype.UUID
		data     []byte
	)
	err := row.Scan(&id, &vesselID, &c.Code, &c.Name, &parentID, &data, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, component.ErrNotFound
		}
		return nil, errors.Wrap(err, "scanning component")
	}
	c.ID = asUUID(id)
	c.VesselID = asUUID(vesselID)
	c.ParentID = asUUIDPtr(parentID)
	c.Data = json.RawMessage(data)
	return &c, nil
}
