package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	jsonpatch "github.com/evanphx/json-patch/v5"
	"github.com/google/uuid"
	"github.com/wI2L/jsondiff"

	"github.com/helmline/pms/modules/maintenance/domain/changerequest"
	"github.com/helmline/pms/modules/maintenance/domain/changeset"
	"github.com/helmline/pms/modules/maintenance/domain/component"
	"github.com/helmline/pms/modules/maintenance/domain/events"
	"github.com/helmline/pms/pkg/composables"
	"github.com/helmline/pms/pkg/constants"
	"github.com/helmline/pms/pkg/eventbus"
)

// ChangeRequestService owns the change-request lifecycle: drafting, the diff
// payload, submission and reviewer decisions. Approval applies the request's
// move preview patch to the target component inside the same transaction as
// the status change.
type ChangeRequestService struct {
	repo       changerequest.Repository
	components component.Repository
	publisher  eventbus.EventBus
	inTx       TxRunner
}

func NewChangeRequestService(
	repo changerequest.Repository,
	components component.Repository,
	publisher eventbus.EventBus,
	inTx TxRunner,
) *ChangeRequestService {
	if inTx == nil {
		inTx = DefaultTx
	}
	return &ChangeRequestService{
		repo:       repo,
		components: components,
		publisher:  publisher,
		inTx:       inTx,
	}
}

// DraftParams is the drafting DTO. Proposed is the full edited component
// document; the service computes the diff payload against the stored one.
type DraftParams struct {
	TargetID uuid.UUID       `validate:"required"`
	Title    string          `validate:"required,max=200"`
	Category string          `validate:"required,oneof=componentUpdate workOrderChange sparesChange generalCorrection"`
	Reason   string          `validate:"required,max=2000"`
	Proposed json.RawMessage `validate:"required"`
}

// TargetParams retargets an editable request. The snapshot and proposed
// documents are reset to the new target's current data.
type TargetParams struct {
	TargetID uuid.UUID `validate:"required"`
	Title    string    `validate:"required,max=200"`
	Category string    `validate:"required,oneof=componentUpdate workOrderChange sparesChange generalCorrection"`
	Reason   string    `validate:"required,max=2000"`
}

func (s *ChangeRequestService) CreateDraft(ctx context.Context, params DraftParams) (*changerequest.ChangeRequest, error) {
	cr, err := s.newRequest(ctx, params)
	if err != nil {
		return nil, err
	}
	err = s.inTx(ctx, func(ctx context.Context) error {
		return s.repo.Create(ctx, cr)
	})
	if err != nil {
		return nil, mapRepositoryError(err, "change request not found")
	}
	return cr, nil
}

// CreateSubmitted is the one-shot path: the request is validated, gets its
// move preview and lands directly in review.
func (s *ChangeRequestService) CreateSubmitted(ctx context.Context, params DraftParams) (*changerequest.ChangeRequest, error) {
	cr, err := s.newRequest(ctx, params)
	if err != nil {
		return nil, err
	}
	if err := cr.SubmitGuard(); err != nil {
		return nil, submitGuardError(err)
	}
	if svcErr := s.computePreview(cr); svcErr != nil {
		return nil, svcErr
	}
	cr.Status = changerequest.StatusSubmitted

	err = s.inTx(ctx, func(ctx context.Context) error {
		return s.repo.Create(ctx, cr)
	})
	if err != nil {
		return nil, mapRepositoryError(err, "change request not found")
	}
	s.publishSubmitted(cr)
	return cr, nil
}

// UpdateTarget points an editable request at a component and resets its
// documents to that component's current data, discarding pending edits.
func (s *ChangeRequestService) UpdateTarget(ctx context.Context, id uuid.UUID, params TargetParams) (*changerequest.ChangeRequest, error) {
	user, err := composables.UseUser(ctx)
	if err != nil {
		return nil, forbiddenError("no authenticated user")
	}
	if err := constants.Validate.Struct(params); err != nil {
		return nil, validatorError(err, "invalid change request target")
	}

	var cr *changerequest.ChangeRequest
	err = s.inTx(ctx, func(ctx context.Context) error {
		var txErr error
		cr, txErr = s.editable(ctx, id, user.ID)
		if txErr != nil {
			return txErr
		}
		target, svcErr := s.loadTarget(ctx, params.TargetID, user.VesselID)
		if svcErr != nil {
			return svcErr
		}
		payload, svcErr := buildPayload(target, target.Data, target.Data,
			params.Category, params.Title, params.Reason)
		if svcErr != nil {
			return svcErr
		}

		cr.TargetID = target.ID
		cr.Title = params.Title
		cr.Category = params.Category
		cr.Reason = params.Reason
		cr.Payload = payload
		cr.SnapshotBefore = target.Data
		cr.ProposedChanges = target.Data
		cr.MovePreview = nil
		cr.UpdatedAt = time.Now().UTC()
		return s.repo.UpdateDraft(ctx, cr)
	})
	if err != nil {
		return nil, asServiceError(err, "change request not found")
	}
	return cr, nil
}

// UpdateProposed replaces the proposed document and recomputes the diff
// payload against the frozen snapshot.
func (s *ChangeRequestService) UpdateProposed(ctx context.Context, id uuid.UUID, proposed json.RawMessage) (*changerequest.ChangeRequest, error) {
	user, err := composables.UseUser(ctx)
	if err != nil {
		return nil, forbiddenError("no authenticated user")
	}
	if len(proposed) == 0 {
		return nil, validationError("proposed document is required", nil)
	}

	var cr *changerequest.ChangeRequest
	err = s.inTx(ctx, func(ctx context.Context) error {
		var txErr error
		cr, txErr = s.editable(ctx, id, user.ID)
		if txErr != nil {
			return txErr
		}
		target, txErr := s.components.GetByID(ctx, cr.TargetID)
		if txErr != nil {
			return txErr
		}
		payload, svcErr := buildPayload(target, cr.SnapshotBefore, proposed,
			cr.Category, cr.Title, cr.Reason)
		if svcErr != nil {
			return svcErr
		}

		cr.Payload = payload
		cr.ProposedChanges = proposed
		cr.MovePreview = nil
		cr.UpdatedAt = time.Now().UTC()
		return s.repo.UpdateDraft(ctx, cr)
	})
	if err != nil {
		return nil, asServiceError(err, "change request not found")
	}
	return cr, nil
}

// Submit moves a draft or returned request into review. The move preview
// patch is computed here, once, and stored with the request.
func (s *ChangeRequestService) Submit(ctx context.Context, id uuid.UUID) (*changerequest.ChangeRequest, error) {
	user, err := composables.UseUser(ctx)
	if err != nil {
		return nil, forbiddenError("no authenticated user")
	}

	var cr *changerequest.ChangeRequest
	err = s.inTx(ctx, func(ctx context.Context) error {
		var txErr error
		cr, txErr = s.repo.GetByID(ctx, id)
		if txErr != nil {
			return txErr
		}
		if cr.RequestedBy != user.ID {
			return forbiddenError("only the requester can submit a change request")
		}
		if _, txErr = changerequest.Transition(cr.Status, changerequest.ActionSubmit); txErr != nil {
			return invalidStateError(txErr.Error(), txErr)
		}
		if txErr = cr.SubmitGuard(); txErr != nil {
			return submitGuardError(txErr)
		}
		if svcErr := s.computePreview(cr); svcErr != nil {
			return svcErr
		}
		cr.UpdatedAt = time.Now().UTC()

		if txErr = s.repo.UpdateDraft(ctx, cr); txErr != nil {
			return txErr
		}
		return s.repo.UpdateStatus(ctx, id,
			changerequest.AllowedFrom(changerequest.ActionSubmit), changerequest.StatusSubmitted)
	})
	if err != nil {
		return nil, asServiceError(err, "change request not found")
	}

	cr.Status = changerequest.StatusSubmitted
	s.publishSubmitted(cr)
	return cr, nil
}

// DecisionParams carries a reviewer decision. Every decision needs a
// comment so the requester always learns the reviewer's grounds.
type DecisionParams struct {
	Action  changerequest.Action
	Comment string
}

func (s *ChangeRequestService) Decide(ctx context.Context, id uuid.UUID, params DecisionParams) (*changerequest.ChangeRequest, error) {
	user, err := composables.UseUser(ctx)
	if err != nil {
		return nil, forbiddenError("no authenticated user")
	}
	if !user.CanReview() {
		return nil, forbiddenError("reviewing change requests requires the reviewer role")
	}
	if strings.TrimSpace(params.Comment) == "" {
		return nil, validationError("a reviewer comment is required", nil)
	}

	var cr *changerequest.ChangeRequest
	var to changerequest.Status
	err = s.inTx(ctx, func(ctx context.Context) error {
		var txErr error
		cr, txErr = s.repo.GetByID(ctx, id)
		if txErr != nil {
			return txErr
		}
		if cr.RequestedBy == user.ID {
			return forbiddenError("requesters cannot review their own change requests")
		}
		to, txErr = changerequest.Transition(cr.Status, params.Action)
		if txErr != nil {
			return invalidStateError(txErr.Error(), txErr)
		}

		now := time.Now().UTC()
		upd := changerequest.DecisionUpdate{
			ID:         cr.ID,
			From:       changerequest.AllowedFrom(params.Action),
			To:         to,
			ReviewerID: user.ID,
			Comment:    params.Comment,
			DecidedAt:  now,
		}

		if params.Action == changerequest.ActionApprove {
			revert, applyErr := s.applyToTarget(ctx, cr)
			if applyErr != nil {
				return applyErr
			}
			upd.RevertPatch = revert
		}
		return s.repo.Decide(ctx, upd)
	})
	if err != nil {
		return nil, asServiceError(err, "change request not found")
	}

	now := time.Now().UTC()
	cr.Status = to
	cr.ReviewerID = &user.ID
	cr.Comment = params.Comment
	cr.DecidedAt = &now
	s.publisher.Publish(events.ChangeRequestDecided{
		RequestID:  cr.ID,
		VesselID:   cr.VesselID,
		TargetID:   cr.TargetID,
		ReviewerID: user.ID,
		Decision:   string(to),
		Comment:    params.Comment,
		DecidedAt:  now,
	})
	return cr, nil
}

// applyToTarget applies the stored move preview to the component's current
// document and returns the revert patch for the audit trail.
func (s *ChangeRequestService) applyToTarget(ctx context.Context, cr *changerequest.ChangeRequest) (json.RawMessage, error) {
	target, err := s.components.GetByID(ctx, cr.TargetID)
	if err != nil {
		return nil, err
	}

	patch, err := jsonpatch.DecodePatch(cr.MovePreview)
	if err != nil {
		return nil, invalidStateError("change request has no applicable move preview", err)
	}
	updated, err := patch.Apply(target.Data)
	if err != nil {
		return nil, invalidStateError("component has changed since the request was submitted", err)
	}

	revertOps, err := jsondiff.CompareJSON(updated, cr.SnapshotBefore)
	if err != nil {
		return nil, internalError("computing revert patch failed", err)
	}
	revert, err := json.Marshal(revertOps)
	if err != nil {
		return nil, internalError("encoding revert patch failed", err)
	}

	if err := s.components.UpdateData(ctx, target.ID, updated); err != nil {
		return nil, err
	}
	return revert, nil
}

// Delete removes a draft. Submitted and decided requests are part of the
// audit trail and are never deleted.
func (s *ChangeRequestService) Delete(ctx context.Context, id uuid.UUID) error {
	user, err := composables.UseUser(ctx)
	if err != nil {
		return forbiddenError("no authenticated user")
	}

	err = s.inTx(ctx, func(ctx context.Context) error {
		cr, txErr := s.repo.GetByID(ctx, id)
		if txErr != nil {
			return txErr
		}
		if cr.RequestedBy != user.ID {
			return forbiddenError("only the requester can delete a change request")
		}
		if cr.Status != changerequest.StatusDraft {
			return invalidStateError("only drafts can be deleted", nil)
		}
		return s.repo.DeleteDraft(ctx, id)
	})
	if err != nil {
		return asServiceError(err, "change request not found")
	}
	return nil
}

func (s *ChangeRequestService) GetByID(ctx context.Context, id uuid.UUID) (*changerequest.ChangeRequest, error) {
	cr, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepositoryError(err, "change request not found")
	}
	return cr, nil
}

func (s *ChangeRequestService) List(ctx context.Context, params changerequest.FindParams) ([]*changerequest.ChangeRequest, error) {
	vesselID, err := composables.UseVesselID(ctx)
	if err != nil {
		return nil, forbiddenError("no vessel scope on request")
	}
	params.VesselID = vesselID
	params.NormalizeLimit()
	list, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, mapRepositoryError(err, "change request not found")
	}
	return list, nil
}

// newRequest validates the draft DTO and assembles an unsaved request with
// its payload computed against the target's current data.
func (s *ChangeRequestService) newRequest(ctx context.Context, params DraftParams) (*changerequest.ChangeRequest, error) {
	user, err := composables.UseUser(ctx)
	if err != nil {
		return nil, forbiddenError("no authenticated user")
	}
	if err := constants.Validate.Struct(params); err != nil {
		return nil, validatorError(err, "invalid change request")
	}

	target, svcErr := s.loadTarget(ctx, params.TargetID, user.VesselID)
	if svcErr != nil {
		return nil, svcErr
	}
	payload, svcErr := buildPayload(target, target.Data, params.Proposed,
		params.Category, params.Title, params.Reason)
	if svcErr != nil {
		return nil, svcErr
	}

	now := time.Now().UTC()
	return &changerequest.ChangeRequest{
		ID:              uuid.New(),
		VesselID:        user.VesselID,
		TargetType:      "component",
		TargetID:        target.ID,
		Title:           params.Title,
		Category:        params.Category,
		Reason:          params.Reason,
		Status:          changerequest.StatusDraft,
		Payload:         payload,
		SnapshotBefore:  target.Data,
		ProposedChanges: params.Proposed,
		RequestedBy:     user.ID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// editable loads a request and checks ownership and that it is still open
// for editing.
func (s *ChangeRequestService) editable(ctx context.Context, id, userID uuid.UUID) (*changerequest.ChangeRequest, error) {
	cr, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if cr.RequestedBy != userID {
		return nil, forbiddenError("only the requester can edit a change request")
	}
	if !cr.Editable() {
		return nil, invalidStateError(
			fmt.Sprintf("change request in status %q cannot be edited", cr.Status), nil)
	}
	return cr, nil
}

// computePreview freezes the snapshot-to-proposed JSON Patch on the request.
func (s *ChangeRequestService) computePreview(cr *changerequest.ChangeRequest) *ServiceError {
	patch, err := jsondiff.CompareJSON(cr.SnapshotBefore, cr.ProposedChanges)
	if err != nil {
		return internalError("computing move preview failed", err)
	}
	preview, err := json.Marshal(patch)
	if err != nil {
		return internalError("encoding move preview failed", err)
	}
	cr.MovePreview = preview
	return nil
}

func (s *ChangeRequestService) publishSubmitted(cr *changerequest.ChangeRequest) {
	s.publisher.Publish(events.ChangeRequestSubmitted{
		RequestID:   cr.ID,
		VesselID:    cr.VesselID,
		TargetID:    cr.TargetID,
		RequestedBy: cr.RequestedBy,
		Title:       cr.Title,
		SubmittedAt: cr.UpdatedAt,
	})
}

func (s *ChangeRequestService) loadTarget(ctx context.Context, id, vesselID uuid.UUID) (*component.Component, *ServiceError) {
	target, err := s.components.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepositoryError(err, "target component not found")
	}
	if target.VesselID != vesselID {
		return nil, forbiddenError("target component belongs to another vessel")
	}
	return target, nil
}

// buildPayload diffs the frozen snapshot against the proposed document and
// renders the change-request payload. The component supplies identity for
// the payload's target block.
func buildPayload(target *component.Component, snapshot, proposed json.RawMessage, category, title, reason string) (json.RawMessage, *ServiceError) {
	var original, current map[string]any
	if err := json.Unmarshal(snapshot, &original); err != nil {
		return nil, internalError("stored component document is not valid JSON", err)
	}
	if err := json.Unmarshal(proposed, &current); err != nil {
		return nil, validationError("proposed document is not valid JSON", err)
	}

	p := changeset.BuildPayload(changeset.BuildInput{
		Type:   category,
		Title:  title,
		Reason: reason,
		Target: changeset.Target{
			ComponentID:   target.ID.String(),
			ComponentCode: target.Code,
			ComponentName: target.Name,
			VesselID:      target.VesselID.String(),
		},
		Current:    current,
		Original:   original,
		WorkOrders: changeset.ItemsFromDocuments(changeset.WorkOrders, original, current),
		Metrics:    changeset.ItemsFromDocuments(changeset.Metrics, original, current),
		Spares:     changeset.ItemsFromDocuments(changeset.Spares, original, current),
	})
	if p == nil {
		return nil, validationError("component snapshot is missing", nil)
	}

	raw, err := json.Marshal(p)
	if err != nil {
		return nil, internalError("encoding payload failed", err)
	}
	return raw, nil
}

// asServiceError keeps ServiceErrors raised inside transactions intact and
// maps everything else through the repository error mapping.
func asServiceError(err error, notFoundMessage string) error {
	if err == nil {
		return nil
	}
	if svcErr, ok := err.(*ServiceError); ok {
		return svcErr
	}
	return mapRepositoryError(err, notFoundMessage)
}
