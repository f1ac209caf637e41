package controllers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/helmline/pms/modules/maintenance/domain/component"
	"github.com/helmline/pms/modules/maintenance/permissions"
	"github.com/helmline/pms/modules/maintenance/services"
	"github.com/helmline/pms/pkg/application"
)

type ComponentController struct {
	service *services.ComponentService
}

func NewComponentController(app application.Application) *ComponentController {
	return &ComponentController{
		service: app.Service(services.ComponentService{}).(*services.ComponentService),
	}
}

func (c *ComponentController) Key() string {
	return "/api/components"
}

func (c *ComponentController) Register(r *mux.Router) {
	router := r.PathPrefix("/api/components").Subrouter()
	router.HandleFunc("", c.create).Methods(http.MethodPost)
	router.HandleFunc("", c.list).Methods(http.MethodGet)
	router.HandleFunc("/{id}", c.get).Methods(http.MethodGet)
}

type componentResponse struct {
	ID        uuid.UUID       `json:"id"`
	VesselID  uuid.UUID       `json:"vesselId"`
	Code      string          `json:"code"`
	Name      string          `json:"name"`
	ParentID  *uuid.UUID      `json:"parentId,omitempty"`
	Data      json.RawMessage `json:"data"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

func toComponentResponse(c *component.Component) componentResponse {
	return componentResponse{
		ID:        c.ID,
		VesselID:  c.VesselID,
		Code:      c.Code,
		Name:      c.Name,
		ParentID:  c.ParentID,
		Data:      c.Data,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func (c *ComponentController) create(w http.ResponseWriter, r *http.Request) {
	if err := requirePermission(r, permissions.ResourceComponent, permissions.ActionCreate); err != nil {
		writeAPIError(w, r, err)
		return
	}
	var body struct {
		Code     string          `json:"code"`
		Name     string          `json:"name"`
		ParentID *uuid.UUID      `json:"parentId"`
		Data     json.RawMessage `json:"data"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeAPIError(w, r, err)
		return
	}
	created, err := c.service.Create(r.Context(), services.ComponentParams{
		Code:     body.Code,
		Name:     body.Name,
		ParentID: body.ParentID,
		Data:     body.Data,
	})
	if err != nil {
		writeAPIError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toComponentResponse(created))
}

func (c *ComponentController) get(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeAPIError(w, r, err)
		return
	}
	found, err := c.service.GetByID(r.Context(), id)
	if err != nil {
		writeAPIError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toComponentResponse(found))
}

func (c *ComponentController) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params := component.FindParams{Search: q.Get("search")}
	if raw := q.Get("parentId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeAPIError(w, r, &services.ServiceError{
				Status: http.StatusBadRequest, Code: services.CodeValidation,
				Message: "parentId is not a valid id", Cause: err,
			})
			return
		}
		params.ParentID = &id
	}
	if raw := q.Get("limit"); raw != "" {
		if limit, err := strconv.Atoi(raw); err == nil {
			params.Limit = limit
		}
	}

	items, err := c.service.List(r.Context(), params)
	if err != nil {
		writeAPIError(w, r, err)
		return
	}
	out := make([]componentResponse, 0, len(items))
	for _, item := range items {
		out = append(out, toComponentResponse(item))
	}
	writeJSON(w, http.StatusOK, struct {
		Items []componentResponse `json:"items"`
	}{Items: out})
}
