package errors

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// JWT и токены
	ErrInvalidSigningMethod = fmt.Errorf("неверный метод подписи токена")
	ErrInvalidToken         = fmt.Errorf("недопустимый токен")
	ErrTokenExpired         = fmt.Errorf("срок действия токена истёк")
	ErrTokenNotYetValid     = fmt.Errorf("токен ещё не активен")

	// Авторизация
	ErrEmptyAuthHeader   = fmt.Errorf("заголовок авторизации отсутствует")
	ErrInvalidAuthHeader = fmt.Errorf("неверный формат заголовка авторизации")
	ErrUnauthorized      = fmt.Errorf("неавторизован")
	ErrForbidden         = fmt.Errorf("доступ запрещён")

	// Контекст
	ErrActorNotFoundInContext = fmt.Errorf("пользователь не найден в контексте запроса")

	// Общие
	ErrNotFound   = fmt.Errorf("запись не найдена")
	ErrConflict   = fmt.Errorf("конфликт данных")
	ErrBadRequest = fmt.Errorf("неверный запрос")

	// Категории бизнес-ошибок, через errors.Is
	ErrValidation   = fmt.Errorf("ошибка валидации")
	ErrPrecondition = fmt.Errorf("операция недоступна")
)

// ValidationError - некорректные входные данные. Исправляется пользователем.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func NewValidationError(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// PreconditionError - операция допустима в принципе, но не в текущем состоянии.
// Повторять автоматически нельзя.
type PreconditionError struct {
	Rule    string
	Message string
}

func (e *PreconditionError) Error() string { return e.Message }

func (e *PreconditionError) Unwrap() error { return ErrPrecondition }

func NewPreconditionError(rule, format string, args ...interface{}) error {
	return &PreconditionError{Rule: rule, Message: fmt.Sprintf(format, args...)}
}

type NotFoundError struct {
	Entity string
	ID     uint64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s с ID %d не найден(а)", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

func NewNotFoundError(entity string, id uint64) error {
	return &NotFoundError{Entity: entity, ID: id}
}

// ConflictError - параллельное изменение нарушило предположение операции.
// Вызывающая сторона должна повторить запрос.
type ConflictError struct {
	Message string
	Err     error
}

func (e *ConflictError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ConflictError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrConflict, e.Err}
	}
	return []error{ErrConflict}
}

func NewConflictError(message string, err error) error {
	return &ConflictError{Message: message, Err: err}
}

// InsufficientStockError - частный случай PreconditionError.
type InsufficientStockError struct {
	ProductID uint64
	Requested decimal.Decimal
	Available decimal.Decimal
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("недостаточно товара ID %d: запрошено %s, доступно %s",
		e.ProductID, e.Requested.String(), e.Available.String())
}

func (e *InsufficientStockError) Unwrap() error { return ErrPrecondition }

func NewInsufficientStockError(productID uint64, requested, available decimal.Decimal) error {
	return &InsufficientStockError{ProductID: productID, Requested: requested, Available: available}
}

// HttpError - ошибка транспортного уровня с кодом ответа.
type HttpError struct {
	Code    int
	Message string
	Err     error
	Details map[string]interface{}
}

func (e *HttpError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%d: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%d: %s", e.Code, e.Message)
}

func (e *HttpError) Unwrap() error { return e.Err }

func NewHttpError(code int, message string, err error, details map[string]interface{}) *HttpError {
	return &HttpError{Code: code, Message: message, Err: err, Details: details}
}

func IsValidation(err error) bool   { return errors.Is(err, ErrValidation) }
func IsPrecondition(err error) bool { return errors.Is(err, ErrPrecondition) }

func IsInsufficientStock(err error) bool {
	var target *InsufficientStockError
	return errors.As(err, &target)
}
