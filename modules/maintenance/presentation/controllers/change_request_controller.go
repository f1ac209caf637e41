package controllers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/helmline/pms/modules/maintenance/domain/changerequest"
	"github.com/helmline/pms/modules/maintenance/services"
	"github.com/helmline/pms/pkg/application"
	"github.com/helmline/pms/pkg/composables"
)

// ChangeRequestController is the one-shot surface: requests created here go
// straight into review, and decisions arrive as a single status patch.
type ChangeRequestController struct {
	service *services.ChangeRequestService
}

func NewChangeRequestController(app application.Application) *ChangeRequestController {
	return &ChangeRequestController{
		service: app.Service(services.ChangeRequestService{}).(*services.ChangeRequestService),
	}
}

func (c *ChangeRequestController) Key() string {
	return "/api/change-requests"
}

func (c *ChangeRequestController) Register(r *mux.Router) {
	router := r.PathPrefix("/api/change-requests").Subrouter()
	router.HandleFunc("", c.create).Methods(http.MethodPost)
	router.HandleFunc("", c.list).Methods(http.MethodGet)
	router.HandleFunc("/{id}", c.get).Methods(http.MethodGet)
	router.HandleFunc("/{id}/status", c.patchStatus).Methods(http.MethodPatch)
}

// changeRequestBody accepts the full client payload. Clients may send their
// own snapshot, diff, identity and status fields; the server recomputes the
// diff from the stored snapshot and assigns identity and status itself, so
// those fields are tolerated but not trusted.
type changeRequestBody struct {
	TargetID    uuid.UUID       `json:"targetId"`
	TargetType  string          `json:"targetType,omitempty"`
	TargetPath  string          `json:"targetPath,omitempty"`
	Title       string          `json:"title"`
	Category    string          `json:"category"`
	Reason      string          `json:"reason"`
	Proposed    json.RawMessage `json:"proposed"`
	Original    json.RawMessage `json:"original,omitempty"`
	Diff        json.RawMessage `json:"diff,omitempty"`
	SubmittedBy *uuid.UUID      `json:"submittedBy,omitempty"`
	SubmittedAt *time.Time      `json:"submittedAt,omitempty"`
	Status      string          `json:"status,omitempty"`
}

func (b changeRequestBody) params() services.DraftParams {
	return services.DraftParams{
		TargetID: b.TargetID,
		Title:    b.Title,
		Category: b.Category,
		Reason:   b.Reason,
		Proposed: b.Proposed,
	}
}

type changeRequestResponse struct {
	ID          uuid.UUID       `json:"id"`
	VesselID    uuid.UUID       `json:"vesselId"`
	TargetType  string          `json:"targetType"`
	TargetID    uuid.UUID       `json:"targetId"`
	Title       string          `json:"title"`
	Category    string          `json:"category"`
	Reason      string          `json:"reason"`
	Status      string          `json:"status"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	MovePreview json.RawMessage `json:"movePreview,omitempty"`
	RequestedBy uuid.UUID       `json:"requestedBy"`
	ReviewerID  *uuid.UUID      `json:"reviewerId,omitempty"`
	Comment     string          `json:"comment,omitempty"`
	ChangeCount int             `json:"diffSummaryCount"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
	DecidedAt   *time.Time      `json:"decidedAt,omitempty"`
}

func toResponse(cr *changerequest.ChangeRequest) changeRequestResponse {
	return changeRequestResponse{
		ID:          cr.ID,
		VesselID:    cr.VesselID,
		TargetType:  cr.TargetType,
		TargetID:    cr.TargetID,
		Title:       cr.Title,
		Category:    cr.Category,
		Reason:      cr.Reason,
		Status:      string(cr.Status),
		Payload:     cr.Payload,
		MovePreview: cr.MovePreview,
		RequestedBy: cr.RequestedBy,
		ReviewerID:  cr.ReviewerID,
		Comment:     cr.Comment,
		ChangeCount: cr.DiffSummaryCount(),
		CreatedAt:   cr.CreatedAt,
		UpdatedAt:   cr.UpdatedAt,
		DecidedAt:   cr.DecidedAt,
	}
}

func (c *ChangeRequestController) create(w http.ResponseWriter, r *http.Request) {
	var body changeRequestBody
	if err := decodeJSON(r, &body); err != nil {
		writeAPIError(w, r, err)
		return
	}
	cr, err := c.service.CreateSubmitted(r.Context(), body.params())
	if err != nil {
		writeAPIError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toResponse(cr))
}

func (c *ChangeRequestController) get(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeAPIError(w, r, err)
		return
	}
	cr, err := c.service.GetByID(r.Context(), id)
	if err != nil {
		writeAPIError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(cr))
}

func (c *ChangeRequestController) list(w http.ResponseWriter, r *http.Request) {
	params, err := listParams(r)
	if err != nil {
		writeAPIError(w, r, err)
		return
	}
	items, err := c.service.List(r.Context(), params)
	if err != nil {
		writeAPIError(w, r, err)
		return
	}

	out := make([]changeRequestResponse, 0, len(items))
	for _, cr := range items {
		out = append(out, toResponse(cr))
	}
	resp := struct {
		Items      []changeRequestResponse `json:"items"`
		NextCursor string                  `json:"nextCursor,omitempty"`
	}{Items: out}
	if len(items) == params.Limit && params.Limit > 0 {
		resp.NextCursor = items[len(items)-1].CreatedAt.Format(time.RFC3339Nano)
	}
	writeJSON(w, http.StatusOK, resp)
}

// statusActions maps a requested terminal status onto the state-machine
// action that produces it.
var statusActions = map[string]changerequest.Action{
	"submitted": changerequest.ActionSubmit,
	"approved":  changerequest.ActionApprove,
	"rejected":  changerequest.ActionReject,
	"returned":  changerequest.ActionReturn,
}

func (c *ChangeRequestController) patchStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeAPIError(w, r, err)
		return
	}
	var body struct {
		Status     string     `json:"status"`
		ReviewerID *uuid.UUID `json:"reviewerId,omitempty"`
		Comment    string     `json:"comment"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeAPIError(w, r, err)
		return
	}

	action, ok := statusActions[strings.ToLower(body.Status)]
	if !ok {
		writeAPIError(w, r, &services.ServiceError{
			Status: http.StatusBadRequest, Code: services.CodeValidation,
			Message: "status must be one of: submitted, approved, rejected, returned",
		})
		return
	}

	var cr *changerequest.ChangeRequest
	if action == changerequest.ActionSubmit {
		cr, err = c.service.Submit(r.Context(), id)
	} else {
		cr, err = c.service.Decide(r.Context(), id, services.DecisionParams{
			Action:  action,
			Comment: body.Comment,
		})
	}
	if err != nil {
		writeAPIError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(cr))
}

func listParams(r *http.Request) (changerequest.FindParams, error) {
	q := r.URL.Query()
	params := changerequest.FindParams{}

	if raw := q.Get("status"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			params.Statuses = append(params.Statuses, changerequest.Status(strings.TrimSpace(s)))
		}
	}
	if raw := q.Get("targetType"); raw != "" {
		params.TargetType = raw
	}
	if raw := q.Get("targetId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return params, &services.ServiceError{
				Status: http.StatusBadRequest, Code: services.CodeValidation,
				Message: "targetId is not a valid id", Cause: err,
			}
		}
		params.TargetID = id
	}
	if q.Get("mine") == "true" {
		if user, err := composables.UseUser(r.Context()); err == nil {
			params.RequestedBy = user.ID
		}
	}
	if raw := q.Get("cursor"); raw != "" {
		cursor, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return params, &services.ServiceError{
				Status: http.StatusBadRequest, Code: services.CodeValidation,
				Message: "cursor is not a valid timestamp", Cause: err,
			}
		}
		params.Cursor = cursor
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return params, &services.ServiceError{
				Status: http.StatusBadRequest, Code: services.CodeValidation,
				Message: "limit is not a number", Cause: err,
			}
		}
		params.Limit = limit
	}
	params.NormalizeLimit()
	return params, nil
}
