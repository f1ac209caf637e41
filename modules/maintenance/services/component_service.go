package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/helmline/pms/modules/maintenance/domain/component"
	"github.com/helmline/pms/pkg/composables"
	"github.com/helmline/pms/pkg/constants"
)

// ComponentService reads and creates the machinery records change requests
// target. Direct edits to component data go through the change-request
// workflow, not here; the only data write this service performs is creation.
type ComponentService struct {
	repo component.Repository
	inTx TxRunner
}

func NewComponentService(repo component.Repository, inTx TxRunner) *ComponentService {
	if inTx == nil {
		inTx = DefaultTx
	}
	return &ComponentService{repo: repo, inTx: inTx}
}

// ComponentParams is the creation DTO.
type ComponentParams struct {
	Code     string          `validate:"required,max=50"`
	Name     string          `validate:"required,max=200"`
	ParentID *uuid.UUID      `validate:"omitempty"`
	Data     json.RawMessage `validate:"omitempty"`
}

func (s *ComponentService) Create(ctx context.Context, params ComponentParams) (*component.Component, error) {
	user, err := composables.UseUser(ctx)
	if err != nil {
		return nil, forbiddenError("no authenticated user")
	}
	if err := constants.Validate.Struct(params); err != nil {
		return nil, validatorError(err, "invalid component")
	}

	data := params.Data
	if len(data) == 0 {
		data = json.RawMessage(`{}`)
	}
	if !json.Valid(data) {
		return nil, validationError("component data is not valid JSON", nil)
	}

	now := time.Now().UTC()
	c := &component.Component{
		ID:        uuid.New(),
		VesselID:  user.VesselID,
		Code:      params.Code,
		Name:      params.Name,
		ParentID:  params.ParentID,
		Data:      data,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = s.inTx(ctx, func(ctx context.Context) error {
		return s.repo.Create(ctx, c)
	})
	if err != nil {
		return nil, mapRepositoryError(err, "component not found")
	}
	return c, nil
}

func (s *ComponentService) GetByID(ctx context.Context, id uuid.UUID) (*component.Component, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepositoryError(err, "component not found")
	}
	return c, nil
}

func (s *ComponentService) List(ctx context.Context, params component.FindParams) ([]*component.Component, error) {
	vesselID, err := composables.UseVesselID(ctx)
	if err != nil {
		return nil, forbiddenError("no vessel scope on request")
	}
	params.VesselID = vesselID
	if params.Limit <= 0 || params.Limit > 500 {
		params.Limit = 200
	}
	list, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, mapRepositoryError(err, "component not found")
	}
	return list, nil
}
