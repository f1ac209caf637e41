package server

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/helmline/pms/pkg/application"
	"github.com/helmline/pms/pkg/configuration"
	"github.com/helmline/pms/pkg/constants"
	"github.com/helmline/pms/pkg/middleware"
	"github.com/helmline/pms/pkg/server"
)

type DefaultOptions struct {
	Logger        *logrus.Logger
	Configuration *configuration.Configuration
	Application   application.Application
	Pool          *pgxpool.Pool
}

// Default assembles the standard middleware stack and the HTTP server. Auth
// sits after the context providers so handlers always see pool and app.
func Default(options *DefaultOptions) (*server.HTTPServer, error) {
	app := options.Application

	middlewares := []mux.MiddlewareFunc{
		middleware.WithLogger(options.Logger),
		middleware.Provide(constants.AppKey, app),
		middleware.Provide(constants.PoolKey, options.Pool),
		middleware.Cors(splitOrigins(options.Configuration.AllowedOrigins)...),
		middleware.Authorize(),
	}
	if options.Configuration.RateLimit.Enabled {
		middlewares = append(middlewares, middleware.RateLimit(options.Configuration.RateLimit.GlobalRPS))
	}
	app.RegisterMiddleware(middlewares...)

	return server.NewHTTPServer(app, notFound(), methodNotAllowed()), nil
}

func splitOrigins(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func notFound() http.Handler {
	return jsonError(http.StatusNotFound, "PMS_NOT_FOUND", "resource not found")
}

func methodNotAllowed() http.Handler {
	return jsonError(http.StatusMethodNotAllowed, "PMS_METHOD_NOT_ALLOWED", "method not allowed")
}

func jsonError(status int, code, message string) http.Handler {
	body := `{"error":{"code":"` + code + `","message":"` + message + `"}}`
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	})
}
