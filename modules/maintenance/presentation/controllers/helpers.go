// Package controllers exposes the maintenance module over HTTP. Responses
// are JSON; errors use a single envelope with a stable code and the request
// id for correlation.
package controllers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/helmline/pms/modules/maintenance/permissions"
	"github.com/helmline/pms/modules/maintenance/services"
	"github.com/helmline/pms/pkg/composables"
)

type apiError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Meta    map[string]any `json:"meta,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func writeAPIError(w http.ResponseWriter, r *http.Request, err error) {
	var svcErr *services.ServiceError
	if !errors.As(err, &svcErr) {
		svcErr = &services.ServiceError{
			Status:  http.StatusInternalServerError,
			Code:    services.CodeInternal,
			Message: "internal error",
		}
	}

	meta := map[string]any{}
	if requestID := composables.UseRequestID(r.Context()); requestID != "" {
		meta["request_id"] = requestID
	}
	if svcErr.Status >= http.StatusInternalServerError {
		composables.UseLogger(r.Context()).WithError(err).Error("request failed")
	}
	writeJSON(w, svcErr.Status, struct {
		Error apiError `json:"error"`
	}{Error: apiError{Code: svcErr.Code, Message: svcErr.Message, Meta: meta}})
}

// decodeJSON rejects unknown fields so typos in request bodies fail loudly
// instead of silently dropping data. Bodies that are not JSON at all get a
// distinct code from bodies that decode but fail field checks.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		code := services.CodeValidation
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) ||
			errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			code = services.CodeInvalidBody
		}
		return &services.ServiceError{
			Status:  http.StatusBadRequest,
			Code:    code,
			Message: "invalid request body",
			Cause:   err,
		}
	}
	return nil
}

func requirePermission(r *http.Request, resource permissions.Resource, action permissions.Action) error {
	user, err := composables.UseUser(r.Context())
	if err != nil {
		return &services.ServiceError{
			Status:  http.StatusUnauthorized,
			Code:    "PMS_UNAUTHORIZED",
			Message: "authentication required",
			Cause:   err,
		}
	}
	if !permissions.Allowed(user.Role, resource, action) {
		return &services.ServiceError{
			Status:  http.StatusForbidden,
			Code:    services.CodeForbidden,
			Message: "role " + user.Role + " may not " + string(action) + " " + string(resource),
		}
	}
	return nil
}

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(mux.Vars(r)[name])
	if err != nil {
		return uuid.Nil, &services.ServiceError{
			Status:  http.StatusBadRequest,
			Code:    services.CodeValidation,
			Message: name + " is not a valid id",
			Cause:   err,
		}
	}
	return id, nil
}
