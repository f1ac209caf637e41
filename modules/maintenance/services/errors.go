package services

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/helmline/pms/modules/maintenance/domain/changerequest"
	"github.com/helmline/pms/modules/maintenance/domain/component"
	"github.com/helmline/pms/pkg/serrors"
)

// ServiceError is the service-layer error contract: an HTTP-ish status, a
// stable machine code and a human message. Controllers map it onto the API
// error envelope without inspecting causes.
type ServiceError struct {
	Status  int
	Code    string
	Message string
	Cause   error
}

func (e *ServiceError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *ServiceError) Unwrap() error {
	return e.Cause
}

func newServiceError(status int, code, message string, cause error) *ServiceError {
	return &ServiceError{Status: status, Code: code, Message: message, Cause: cause}
}

// Stable service error codes.
const (
	CodeNotFound       = "PMS_NOT_FOUND"
	CodeValidation     = "PMS_VALIDATION"
	CodeInvalidBody    = "PMS_INVALID_BODY"
	CodeInvalidState   = "PMS_INVALID_STATE"
	CodeConflict       = "PMS_CONFLICT"
	CodeForbidden      = "PMS_FORBIDDEN"
	CodeNoChanges      = "PMS_NO_CHANGES"
	CodeImportRejected = "PMS_IMPORT_REJECTED"
	CodeInternal       = "PMS_INTERNAL"
)

func notFoundError(message string, cause error) *ServiceError {
	return newServiceError(http.StatusNotFound, CodeNotFound, message, cause)
}

func validationError(message string, cause error) *ServiceError {
	return newServiceError(http.StatusBadRequest, CodeValidation, message, cause)
}

// validatorError renders validator.Struct failures with per-field messages.
func validatorError(err error, fallback string) *ServiceError {
	var vErrs validator.ValidationErrors
	if errors.As(err, &vErrs) {
		return validationError(serrors.ProcessValidatorErrors(vErrs).String(), err)
	}
	return validationError(fallback, err)
}

// submitGuardError maps submit-guard failures: an empty diff gets its own
// code so clients can distinguish it from missing fields.
func submitGuardError(err error) *ServiceError {
	if errors.Is(err, changerequest.ErrNoChanges) {
		return newServiceError(http.StatusBadRequest, CodeNoChanges, err.Error(), err)
	}
	return validationError(err.Error(), err)
}

func invalidStateError(message string, cause error) *ServiceError {
	return newServiceError(http.StatusBadRequest, CodeInvalidState, message, cause)
}

func forbiddenError(message string) *ServiceError {
	return newServiceError(http.StatusForbidden, CodeForbidden, message, nil)
}

func internalError(message string, cause error) *ServiceError {
	return newServiceError(http.StatusInternalServerError, CodeInternal, message, cause)
}

// mapRepositoryError normalizes repository and driver errors into
// ServiceErrors. Anything unrecognized becomes an internal error.
func mapRepositoryError(err error, notFoundMessage string) *ServiceError {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, changerequest.ErrNotFound),
		errors.Is(err, component.ErrNotFound),
		errors.Is(err, pgx.ErrNoRows):
		return notFoundError(notFoundMessage, err)
	case errors.Is(err, changerequest.ErrStale):
		return invalidStateError("change request was updated concurrently", err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return newServiceError(http.StatusConflict, CodeConflict, "record already exists", err)
		case "23503":
			return newServiceError(http.StatusConflict, CodeConflict, "record is referenced by other data", err)
		case "23P01":
			return newServiceError(http.StatusConflict, CodeConflict, "record conflicts with existing data", err)
		}
	}
	return internalError("storage operation failed", err)
}
