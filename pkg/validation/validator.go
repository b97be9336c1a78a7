package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	apperrors "field-service/pkg/errors"
)

// CustomValidator - обертка для использования в Echo
type CustomValidator struct {
	validator *validator.Validate
}

// Validate реализует интерфейс echo.Validator. Первая ошибка поля
// превращается в ValidationError, чтобы обработчик ответил 400.
func (cv *CustomValidator) Validate(i interface{}) error {
	err := cv.validator.Struct(i)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return apperrors.NewValidationError(fieldName(fe), "%s", ruleMessage(fe))
	}
	return apperrors.NewValidationError("", "%v", err)
}

// fieldName: "CompleteWithPartsDTO.Lines[0].Quantity" -> "lines[0].quantity"
func fieldName(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		ns = ns[i+1:]
	}
	return strings.ToLower(ns)
}

func ruleMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "обязательное поле"
	case "max":
		return fmt.Sprintf("не длиннее %s", fe.Param())
	case "email":
		return "некорректный email"
	case "hour_ranges":
		return "ожидается формат 9-13,14-18"
	case "order_priority":
		return "допустимо: low, normal, high, urgent"
	case "positive_decimal":
		return "должно быть больше нуля"
	case "nonneg_decimal":
		return "не может быть отрицательным"
	}
	return fmt.Sprintf("не прошло проверку %s", fe.Tag())
}

// New создает и настраивает валидатор
func New() *CustomValidator {
	v := validator.New()

	registerNullTypes(v)

	// Если правило не зарегистрировалось - сервер не должен стартовать
	if err := registerRules(v); err != nil {
		panic("ошибка регистрации валидаторов: " + err.Error())
	}

	return &CustomValidator{validator: v}
}
