package serrors

import "fmt"

// BaseError is the minimal coded error carried by framework-level packages
// (eventbus, middleware) that have no HTTP status of their own.
type BaseError struct {
	Code    string
	Message string
	Field   string
}

func (e *BaseError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewError(code, message, field string) *BaseError {
	return &BaseError{Code: code, Message: message, Field: field}
}

func NewFieldRequiredError(field string) *BaseError {
	return &BaseError{Code: "FIELD_REQUIRED", Message: field + " is required", Field: field}
}
