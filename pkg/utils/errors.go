package utils

import (
	"errors"
	"net/http"

	apperrors "field-service/pkg/errors"
)

// ErrorList - сигнальные ошибки и их HTTP-коды. Типизированные ошибки
// разбираются в StatusFromError.
var ErrorList = map[error]int{
	apperrors.ErrEmptyAuthHeader:        http.StatusUnauthorized,
	apperrors.ErrInvalidAuthHeader:      http.StatusUnauthorized,
	apperrors.ErrInvalidToken:           http.StatusUnauthorized,
	apperrors.ErrInvalidSigningMethod:   http.StatusUnauthorized,
	apperrors.ErrTokenExpired:           http.StatusUnauthorized,
	apperrors.ErrTokenNotYetValid:       http.StatusUnauthorized,
	apperrors.ErrUnauthorized:           http.StatusUnauthorized,
	apperrors.ErrActorNotFoundInContext: http.StatusUnauthorized,
	apperrors.ErrForbidden:              http.StatusForbidden,
	apperrors.ErrBadRequest:             http.StatusBadRequest,
	apperrors.ErrNotFound:               http.StatusNotFound,
	apperrors.ErrConflict:               http.StatusConflict,
}

// StatusFromError: код ответа, сообщение для клиента и детали.
// Неизвестные ошибки отдаются как 500 без текста, текст идёт только в лог.
func StatusFromError(err error) (int, string, map[string]interface{}) {
	var httpErr *apperrors.HttpError
	if errors.As(err, &httpErr) {
		return httpErr.Code, httpErr.Message, httpErr.Details
	}

	var validationErr *apperrors.ValidationError
	if errors.As(err, &validationErr) {
		var details map[string]interface{}
		if validationErr.Field != "" {
			details = map[string]interface{}{"field": validationErr.Field}
		}
		return http.StatusBadRequest, validationErr.Error(), details
	}

	var stockErr *apperrors.InsufficientStockError
	if errors.As(err, &stockErr) {
		return http.StatusUnprocessableEntity, stockErr.Error(), map[string]interface{}{
			"product_id": stockErr.ProductID,
			"requested":  stockErr.Requested.String(),
			"available":  stockErr.Available.String(),
		}
	}

	var preconditionErr *apperrors.PreconditionError
	if errors.As(err, &preconditionErr) {
		var details map[string]interface{}
		if preconditionErr.Rule != "" {
			details = map[string]interface{}{"rule": preconditionErr.Rule}
		}
		return http.StatusUnprocessableEntity, preconditionErr.Error(), details
	}

	var notFoundErr *apperrors.NotFoundError
	if errors.As(err, &notFoundErr) {
		return http.StatusNotFound, notFoundErr.Error(), nil
	}

	var conflictErr *apperrors.ConflictError
	if errors.As(err, &conflictErr) {
		return http.StatusConflict, conflictErr.Message, nil
	}

	for target, code := range ErrorList {
		if errors.Is(err, target) {
			return code, target.Error(), nil
		}
	}

	return http.StatusInternalServerError, "внутренняя ошибка сервера", nil
}
