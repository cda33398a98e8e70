package service

import (
	"context"

	"github.com/google/uuid"
)

type ctxKey string

const (
	ctxUserIDKey  ctxKey = "userID"
	ctxRoleKey    ctxKey = "role"
	ctxProfileKey ctxKey = "profile"
)

func WithUserID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, ctxUserIDKey, id)
}

func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	v, ok := ctx.Value(ctxUserIDKey).(uuid.UUID)
	return v, ok
}

type Role string

const (
	RoleCustomer Role = "ROLE_CUSTOMER"
	RoleAdmin    Role = "ROLE_ADMIN"
)

func WithRole(ctx context.Context, r Role) context.Context {
	return context.WithValue(ctx, ctxRoleKey, r)
}

func RoleFromContext(ctx context.Context) (Role, bool) {
	v, ok := ctx.Value(ctxRoleKey).(Role)
	return v, ok
}

// Profile is the contact data carried in the access token of a registered user.
type Profile struct {
	Name  string
	Email string
	Phone string
}

func WithProfile(ctx context.Context, p Profile) context.Context {
	return context.WithValue(ctx, ctxProfileKey, p)
}

func ProfileFromContext(ctx context.Context) (Profile, bool) {
	v, ok := ctx.Value(ctxProfileKey).(Profile)
	return v, ok
}

func isAdmin(ctx context.Context) bool {
	r, _ := RoleFromContext(ctx)
	return r == RoleAdmin
}

func requireAuth(ctx context.Context) (uuid.UUID, Role, error) {
	uid, ok := UserIDFromContext(ctx)
	if !ok {
		return uuid.Nil, "", ErrUnauthorized
	}
	role, _ := RoleFromContext(ctx) // без роли считаем customer
	if role == "" {
		role = RoleCustomer
	}
	return uid, role, nil
}

func requireAdmin(ctx context.Context) (uuid.UUID, error) {
	uid, role, err := requireAuth(ctx)
	if err != nil {
		return uuid.Nil, err
	}
	if role != RoleAdmin {
		return uuid.Nil, ErrForbidden
	}
	return uid, nil
}
