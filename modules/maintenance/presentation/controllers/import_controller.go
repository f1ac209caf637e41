package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/helmline/pms/modules/maintenance/domain/importlog"
	"github.com/helmline/pms/modules/maintenance/permissions"
	"github.com/helmline/pms/modules/maintenance/services"
	"github.com/helmline/pms/pkg/application"
	"github.com/helmline/pms/pkg/configuration"
)

type ImportController struct {
	service *services.ImportService
}

func NewImportController(app application.Application) *ImportController {
	return &ImportController{
		service: app.Service(services.ImportService{}).(*services.ImportService),
	}
}

func (c *ImportController) Key() string {
	return "/api/imports"
}

func (c *ImportController) Register(r *mux.Router) {
	router := r.PathPrefix("/api/imports").Subrouter()
	router.HandleFunc("", c.upload).Methods(http.MethodPost)
	router.HandleFunc("", c.history).Methods(http.MethodGet)
}

type importLogResponse struct {
	ID        uuid.UUID `json:"id"`
	FileName  string    `json:"fileName"`
	RowCount  int       `json:"rowCount"`
	Imported  int       `json:"imported"`
	Skipped   int       `json:"skipped"`
	Errors    []string  `json:"errors,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func toImportLogResponse(log *importlog.ImportLog) importLogResponse {
	return importLogResponse{
		ID:        log.ID,
		FileName:  log.FileName,
		RowCount:  log.RowCount,
		Imported:  log.Imported,
		Skipped:   log.Skipped,
		Errors:    log.Errors,
		CreatedAt: log.CreatedAt,
	}
}

// upload accepts a multipart form with the workbook under "file".
func (c *ImportController) upload(w http.ResponseWriter, r *http.Request) {
	if err := requirePermission(r, permissions.ResourceImport, permissions.ActionImport); err != nil {
		writeAPIError(w, r, err)
		return
	}
	maxSize := configuration.Use().Import.MaxUploadSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)
	if err := r.ParseMultipartForm(maxSize); err != nil {
		writeAPIError(w, r, &services.ServiceError{
			Status: http.StatusBadRequest, Code: services.CodeValidation,
			Message: "expected a multipart form with a file", Cause: err,
		})
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeAPIError(w, r, &services.ServiceError{
			Status: http.StatusBadRequest, Code: services.CodeValidation,
			Message: `form field "file" is required`, Cause: err,
		})
		return
	}
	defer file.Close()

	log, err := c.service.ImportComponents(r.Context(), header.Filename, file)
	if err != nil {
		writeAPIError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toImportLogResponse(log))
}

func (c *ImportController) history(w http.ResponseWriter, r *http.Request) {
	if err := requirePermission(r, permissions.ResourceImport, permissions.ActionRead); err != nil {
		writeAPIError(w, r, err)
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, _ = strconv.Atoi(raw)
	}
	items, err := c.service.History(r.Context(), limit)
	if err != nil {
		writeAPIError(w, r, err)
		return
	}
	out := make([]importLogResponse, 0, len(items))
	for _, item := range items {
		out = append(out, toImportLogResponse(item))
	}
	writeJSON(w, http.StatusOK, struct {
		Items []importLogResponse `json:"items"`
	}{Items: out})
}
