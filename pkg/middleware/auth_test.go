package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"

	"github.com/helmline/pms/pkg/composables"
	"github.com/helmline/pms/pkg/configuration"
	"github.com/helmline/pms/pkg/middleware"
)

func testRouter(t *testing.T) (*mux.Router, *composables.User) {
	t.Helper()
	var seen composables.User
	r := mux.NewRouter()
	r.Use(middleware.Authorize())
	r.HandleFunc("/ping", func(w http.ResponseWriter, req *http.Request) {
		u, err := composables.UseUser(req.Context())
		require.NoError(t, err)
		seen = u
		w.WriteHeader(http.StatusNoContent)
	})
	return r, &seen
}

func TestAuthorize_ValidToken(t *testing.T) {
	conf := configuration.Use()
	user := composables.User{
		ID:       uuid.New(),
		Name:     "Chief Engineer",
		Role:     composables.RoleReviewer,
		VesselID: uuid.New(),
	}
	token, err := middleware.IssueToken(user, conf.Auth.JWTSecret, time.Hour)
	require.NoError(t, err)

	router, seen := testRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, user.ID, seen.ID)
	require.Equal(t, user.VesselID, seen.VesselID)
	require.True(t, seen.CanReview())
}

func TestAuthorize_MissingToken(t *testing.T) {
	router, _ := testRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthorize_ExpiredToken(t *testing.T) {
	conf := configuration.Use()
	user := composables.User{ID: uuid.New(), Role: composables.RoleCrew, VesselID: uuid.New()}
	token, err := middleware.IssueToken(user, conf.Auth.JWTSecret, -time.Minute)
	require.NoError(t, err)

	router, _ := testRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthorize_WrongSecret(t *testing.T) {
	user := composables.User{ID: uuid.New(), Role: composables.RoleCrew, VesselID: uuid.New()}
	token, err := middleware.IssueToken(user, "not-the-secret", time.Hour)
	require.NoError(t, err)

	router, _ := testRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
