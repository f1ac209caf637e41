package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/helmline/pms/modules/maintenance/domain/changerequest"
	"github.com/helmline/pms/modules/maintenance/services"
	"github.com/helmline/pms/pkg/application"
)

// ModifyPMSController is the draft-first surface: a request starts as an
// editable draft, its target and proposed document can be revised any number
// of times, and submission is an explicit step.
type ModifyPMSController struct {
	service *services.ChangeRequestService
}

func NewModifyPMSController(app application.Application) *ModifyPMSController {
	return &ModifyPMSController{
		service: app.Service(services.ChangeRequestService{}).(*services.ChangeRequestService),
	}
}

func (c *ModifyPMSController) Key() string {
	return "/api/modify-pms/requests"
}

func (c *ModifyPMSController) Register(r *mux.Router) {
	router := r.PathPrefix("/api/modify-pms/requests").Subrouter()
	router.HandleFunc("", c.createDraft).Methods(http.MethodPost)
	router.HandleFunc("/{id}", c.get).Methods(http.MethodGet)
	router.HandleFunc("/{id}", c.delete).Methods(http.MethodDelete)
	router.HandleFunc("/{id}/target", c.updateTarget).Methods(http.MethodPut)
	router.HandleFunc("/{id}/proposed", c.updateProposed).Methods(http.MethodPut)
	router.HandleFunc("/{id}/submit", c.submit).Methods(http.MethodPut)
	router.HandleFunc("/{id}/approve", c.decide(changerequest.ActionApprove)).Methods(http.MethodPut)
	router.HandleFunc("/{id}/reject", c.decide(changerequest.ActionReject)).Methods(http.MethodPut)
	router.HandleFunc("/{id}/return", c.decide(changerequest.ActionReturn)).Methods(http.MethodPut)
}

func (c *ModifyPMSController) createDraft(w http.ResponseWriter, r *http.Request) {
	var body changeRequestBody
	if err := decodeJSON(r, &body); err != nil {
		writeAPIError(w, r, err)
		return
	}
	cr, err := c.service.CreateDraft(r.Context(), body.params())
	if err != nil {
		writeAPIError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toResponse(cr))
}

func (c *ModifyPMSController) get(w http.ResponseWriter, r *http.Request) {
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

func (c *ModifyPMSController) updateTarget(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeAPIError(w, r, err)
		return
	}
	var body struct {
		TargetID uuid.UUID `json:"targetId"`
		Title    string    `json:"title"`
		Category string    `json:"category"`
		Reason   string    `json:"reason"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeAPIError(w, r, err)
		return
	}
	cr, err := c.service.UpdateTarget(r.Context(), id, services.TargetParams{
		TargetID: body.TargetID,
		Title:    body.Title,
		Category: body.Category,
		Reason:   body.Reason,
	})
	if err != nil {
		writeAPIError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(cr))
}

func (c *ModifyPMSController) updateProposed(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeAPIError(w, r, err)
		return
	}
	var body struct {
		Proposed json.RawMessage `json:"proposed"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeAPIError(w, r, err)
		return
	}
	cr, err := c.service.UpdateProposed(r.Context(), id, body.Proposed)
	if err != nil {
		writeAPIError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(cr))
}

func (c *ModifyPMSController) submit(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeAPIError(w, r, err)
		return
	}
	cr, err := c.service.Submit(r.Context(), id)
	if err != nil {
		writeAPIError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(cr))
}

func (c *ModifyPMSController) decide(action changerequest.Action) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "id")
		if err != nil {
			writeAPIError(w, r, err)
			return
		}
		var body struct {
			Comment string `json:"comment"`
		}
		if r.ContentLength > 0 {
			if err := decodeJSON(r, &body); err != nil {
				writeAPIError(w, r, err)
				return
			}
		}
		cr, err := c.service.Decide(r.Context(), id, services.DecisionParams{
			Action:  action,
			Comment: body.Comment,
		})
		if err != nil {
			writeAPIError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toResponse(cr))
	}
}

func (c *ModifyPMSController) delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeAPIError(w, r, err)
		return
	}
	if err := c.service.Delete(r.Context(), id); err != nil {
		writeAPIError(w, r, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}
