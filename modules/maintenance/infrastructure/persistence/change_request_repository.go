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

	"github.com/helmline/pms/modules/maintenance/domain/changerequest"
	"github.com/helmline/pms/pkg/composables"
)

const changeRequestColumns = `
	id, vessel_id, target_type, target_id, title, category, reason, status,
	payload, snapshot_before, proposed_changes, move_preview, revert_patch,
	requested_by, reviewer_id, comment, created_at, updated_at, decided_at`

type PgChangeRequestRepository struct{}

func NewChangeRequestRepository() *PgChangeRequestRepository {
	return &PgChangeRequestRepository{}
}

func (r *PgChangeRequestRepository) Create(ctx context.Context, cr *changerequest.ChangeRequest) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO pms_change_requests (`+changeRequestColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`,
		pgUUID(cr.ID), pgUUID(cr.VesselID), cr.TargetType, pgUUID(cr.TargetID),
		cr.Title, cr.Category, cr.Reason, string(cr.Status),
		cr.Payload, cr.SnapshotBefore, cr.ProposedChanges, cr.MovePreview, cr.RevertPatch,
		pgUUID(cr.RequestedBy), pgUUIDPtr(cr.ReviewerID), cr.Comment,
		cr.CreatedAt, cr.UpdatedAt, cr.DecidedAt,
	)
	if err != nil {
		return errors.Wrap(err, "inserting change request")
	}
	return nil
}

func (r *PgChangeRequestRepository) GetByID(ctx context.Context, id uuid.UUID) (*changerequest.ChangeRequest, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	row := tx.QueryRow(ctx,
		`SELECT `+changeRequestColumns+` FROM pms_change_requests WHERE id = $1`,
		pgUUID(id))
	cr, err := scanChangeRequest(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, changerequest.ErrNotFound
		}
		return nil, errors.Wrap(err, "selecting change request")
	}
	return cr, nil
}

func (r *PgChangeRequestRepository) List(ctx context.Context, params changerequest.FindParams) ([]*changerequest.ChangeRequest, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	where := []string{"vessel_id = $1"}
	args := []any{pgUUID(params.VesselID)}
	if len(params.Statuses) > 0 {
		args = append(args, statusStrings(params.Statuses))
		where = append(where, fmt.Sprintf("status = ANY($%d)", len(args)))
	}
	if params.TargetType != "" {
		args = append(args, params.TargetType)
		where = append(where, fmt.Sprintf("target_type = $%d", len(args)))
	}
	if params.TargetID != uuid.Nil {
		args = append(args, pgUUID(params.TargetID))
		where = append(where, fmt.Sprintf("target_id = $%d", len(args)))
	}
	if params.RequestedBy != uuid.Nil {
		args = append(args, pgUUID(params.RequestedBy))
		where = append(where, fmt.Sprintf("requested_by = $%d", len(args)))
	}
	if !params.Cursor.IsZero() {
		args = append(args, params.Cursor)
		where = append(where, fmt.Sprintf("created_at < $%d", len(args)))
	}
	args = append(args, params.Limit)

	query := fmt.Sprintf(`
		SELECT %s FROM pms_change_requests
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d`,
		changeRequestColumns, strings.Join(where, " AND "), len(args))

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "listing change requests")
	}
	defer rows.Close()

	var out []*changerequest.ChangeRequest
	for rows.Next() {
		cr, scanErr := scanChangeRequest(rows)
		if scanErr != nil {
			return nil, errors.Wrap(scanErr, "scanning change request")
		}
		out = append(out, cr)
	}
	return out, rows.Err()
}

func (r *PgChangeRequestRepository) UpdateDraft(ctx context.Context, cr *changerequest.ChangeRequest) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, `
		UPDATE pms_change_requests
		SET target_id = $2, title = $3, category = $4, reason = $5,
			payload = $6, snapshot_before = $7, proposed_changes = $8,
			move_preview = $9, updated_at = $10
		WHERE id = $1`,
		pgUUID(cr.ID), pgUUID(cr.TargetID), cr.Title, cr.Category, cr.Reason,
		cr.Payload, cr.SnapshotBefore, cr.ProposedChanges, cr.MovePreview, cr.UpdatedAt,
	)
	if err != nil {
		return errors.Wrap(err, "updating change request draft")
	}
	if tag.RowsAffected() == 0 {
		return changerequest.ErrNotFound
	}
	return nil
}

// UpdateStatus writes the new status only when the current one is in from,
// so two concurrent transitions cannot both win.
func (r *PgChangeRequestRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from []changerequest.Status, to changerequest.Status) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, `
		UPDATE pms_change_requests
		SET status = $2, updated_at = now()
		WHERE id = $1 AND status = ANY($3)`,
		pgUUID(id), string(to), statusStrings(from),
	)
	if err != nil {
		return errors.Wrap(err, "updating change request status")
	}
	if tag.RowsAffected() == 0 {
		return r.staleOrMissing(ctx, id)
	}
	return nil
}

func (r *PgChangeRequestRepository) Decide(ctx context.Context, upd changerequest.DecisionUpdate) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, `
		UPDATE pms_change_requests
		SET status = $2, reviewer_id = $3, comment = $4, revert_patch = $5,
			decided_at = $6, updated_at = $6
		WHERE id = $1 AND status = ANY($7)`,
		pgUUID(upd.ID), string(upd.To), pgUUID(upd.ReviewerID), upd.Comment,
		upd.RevertPatch, upd.DecidedAt, statusStrings(upd.From),
	)
	if err != nil {
		return errors.Wrap(err, "recording change request decision")
	}
	if tag.RowsAffected() == 0 {
		return r.staleOrMissing(ctx, upd.ID)
	}
	return nil
}

func (r *PgChangeRequestRepository) DeleteDraft(ctx context.Context, id uuid.UUID) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, `
		DELETE FROM pms_change_requests
		WHERE id = $1 AND status = $2`,
		pgUUID(id), string(changerequest.StatusDraft),
	)
	if err != nil {
		return errors.Wrap(err, "deleting change request draft")
	}
	if tag.RowsAffected() == 0 {
		return r.staleOrMissing(ctx, id)
	}
	return nil
}

// staleOrMissing disambiguates a zero-row conditional update: the row either
// does not exist or sits in a status the condition excluded.
func (r *PgChangeRequestRepository) staleOrMissing(ctx context.Context, id uuid.UUID) error {
	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	return changerequest.ErrStale
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanChangeRequest(row rowScanner) (*changerequest.ChangeRequest, error) {
	var (
		cr         changerequest.ChangeRequest
		id         pgtype.UUID
		vesselID   pgtype.UUID
		targetID   pgtype.UUID
		status     string
		payload    []byte
		snapshot   []byte
		proposed   []byte
		preview    []byte
		revert     []byte
		requested  pgtype.UUID
		reviewerID pgtype.UUID
	)
	err := row.Scan(
		&id, &vesselID, &cr.TargetType, &targetID, &cr.Title, &cr.Category,
		&cr.Reason, &status, &payload, &snapshot, &proposed, &preview, &revert,
		&requested, &reviewerID, &cr.Comment, &cr.CreatedAt, &cr.UpdatedAt, &cr.DecidedAt,
	)
	if err != nil {
		return nil, err
	}
	cr.ID = asUUID(id)
	cr.VesselID = asUUID(vesselID)
	cr.TargetID = asUUID(targetID)
	cr.Status = changerequest.Status(status)
	cr.Payload = json.RawMessage(payload)
	cr.SnapshotBefore = json.RawMessage(snapshot)
	cr.ProposedChanges = json.RawMessage(proposed)
	cr.MovePreview = json.RawMessage(preview)
	cr.RevertPatch = json.RawMessage(revert)
	cr.RequestedBy = asUUID(requested)
	cr.ReviewerID = asUUIDPtr(reviewerID)
	return &cr, nil
}
