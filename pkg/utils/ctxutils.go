// pkg/utils/ctxutils.go

package utils

import (
	"context"

	"field-service/pkg/contextkeys"
	apperrors "field-service/pkg/errors"
)

// GetUserIDFromCtx - ID пользователя, записанный AuthMiddleware.
func GetUserIDFromCtx(ctx context.Context) (uint64, error) {
	userID, ok := ctx.Value(contextkeys.UserIDKey).(uint64)
	if !ok {
		return 0, apperrors.ErrActorNotFoundInContext
	}
	return userID, nil
}

func GetRoleFromCtx(ctx context.Context) (string, error) {
	role, ok := ctx.Value(contextkeys.RoleKey).(string)
	if !ok || role == "" {
		return "", apperrors.ErrActorNotFoundInContext
	}
	return role, nil
}

// WithUser кладёт пользователя в контекст. Используется middleware и тестами.
func WithUser(ctx context.Context, userID uint64, role string) context.Context {
	ctx = context.WithValue(ctx, contextkeys.UserIDKey, userID)
	return context.WithValue(ctx, contextkeys.RoleKey, role)
}
