package constants

import (
	"github.com/go-playground/validator/v10"
)

type ContextKey string

const (
	PoolKey      ContextKey = "pool"
	TxKey        ContextKey = "tx"
	UserKey      ContextKey = "user"
	VesselIDKey  ContextKey = "vessel_id"
	LoggerKey    ContextKey = "logger"
	RequestIDKey ContextKey = "request_id"
	AppKey       ContextKey = "app"
)

// Validate is the shared validator instance used by DTOs across modules.
var Validate = validator.New()
