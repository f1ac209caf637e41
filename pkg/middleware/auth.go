package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/helmline/pms/pkg/composables"
	"github.com/helmline/pms/pkg/configuration"
)

// Claims is the JWT payload issued to crew and office reviewers.
type Claims struct {
	jwt.RegisteredClaims
	Name     string `json:"name,omitempty"`
	Role     string `json:"role"`
	VesselID string `json:"vessel_id"`
}

// IssueToken mints an HS256 token for the given user. Exposed for the login
// collaborator and for tests.
func IssueToken(u composables.User, secret string, duration time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(duration)),
		},
		Name:     u.Name,
		Role:     u.Role,
		VesselID: u.VesselID.String(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// Authorize validates the bearer token and stores the authenticated user in
// the request context. Requests without a valid token get 401.
func Authorize() mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			conf := configuration.Use()

			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				writeAuthError(w, "missing bearer token")
				return
			}
			raw := strings.TrimPrefix(header, "Bearer ")

			claims := &Claims{}
			token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
				}
				return []byte(conf.Auth.JWTSecret), nil
			})
			if err != nil || !token.Valid {
				writeAuthError(w, "invalid token")
				return
			}

			userID, err := uuid.Parse(claims.Subject)
			if err != nil {
				writeAuthError(w, "invalid subject")
				return
			}
			vesselID, err := uuid.Parse(claims.VesselID)
			if err != nil {
				writeAuthError(w, "invalid vessel id")
				return
			}

			user := composables.User{
				ID:       userID,
				Name:     claims.Name,
				Role:     claims.Role,
				VesselID: vesselID,
			}
			next.ServeHTTP(w, r.WithContext(composables.WithUser(r.Context(), user)))
		})
	}
}

func writeAuthError(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"code":    "PMS_UNAUTHORIZED",
		"message": message,
	})
}
