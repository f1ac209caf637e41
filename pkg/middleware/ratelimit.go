package middleware

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/ulule/limiter/v3"
	mhttp "github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

// RateLimit applies a global requests-per-second limit backed by the
// in-memory store. Single-process deployment; a shared store is not needed.
func RateLimit(rps int) mux.MiddlewareFunc {
	rate := limiter.Rate{
		Period: time.Second,
		Limit:  int64(rps),
	}
	instance := limiter.New(memory.NewStore(), rate)
	wrapped := mhttp.NewMiddleware(instance)
	return func(next http.Handler) http.Handler {
		return wrapped.Handler(next)
	}
}
