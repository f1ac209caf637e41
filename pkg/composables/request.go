package composables

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/helmline/pms/pkg/constants"
)

var (
	ErrNoUser     = errors.New("no user found in context")
	ErrNoVesselID = errors.New("no vessel id found in context")
	ErrNoLogger   = errors.New("no logger found in context")
)

// User is the authenticated principal extracted from the bearer token.
// Crew can edit and submit; reviewers additionally decide change requests.
type User struct {
	ID       uuid.UUID
	Name     string
	Role     string
	VesselID uuid.UUID
}

const (
	RoleCrew     = "crew"
	RoleReviewer = "reviewer"
	RoleAdmin    = "admin"
)

func (u User) CanReview() bool {
	return u.Role == RoleReviewer || u.Role == RoleAdmin
}

func WithUser(ctx context.Context, u User) context.Context {
	ctx = context.WithValue(ctx, constants.UserKey, u)
	return context.WithValue(ctx, constants.VesselIDKey, u.VesselID)
}

func UseUser(ctx context.Context) (User, error) {
	u, ok := ctx.Value(constants.UserKey).(User)
	if !ok {
		return User{}, ErrNoUser
	}
	return u, nil
}

func WithVesselID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, constants.VesselIDKey, id)
}

func UseVesselID(ctx context.Context) (uuid.UUID, error) {
	id, ok := ctx.Value(constants.VesselIDKey).(uuid.UUID)
	if !ok || id == uuid.Nil {
		return uuid.Nil, ErrNoVesselID
	}
	return id, nil
}

func WithLogger(ctx context.Context, entry *logrus.Entry) context.Context {
	return context.WithValue(ctx, constants.LoggerKey, entry)
}

// UseLogger returns the request-scoped log entry, falling back to the
// standard logger so library code never has to nil-check.
func UseLogger(ctx context.Context) *logrus.Entry {
	if entry, ok := ctx.Value(constants.LoggerKey).(*logrus.Entry); ok {
		return entry
	}
	return logrus.NewEntry(logrus.StandardLogger())
}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, constants.RequestIDKey, id)
}

func UseRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(constants.RequestIDKey).(string); ok {
		return id
	}
	return ""
}
