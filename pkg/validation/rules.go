package validation

import (
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"field-service/internal/entities"
	"field-service/pkg/constants"
)

// registerRules регистрирует теги, которые мы используем в struct tags
func registerRules(v *validator.Validate) error {
	rules := map[string]validator.Func{
		"hour_ranges":      isHourRanges,
		"order_priority":   isOrderPriority,
		"positive_decimal": isPositiveDecimal,
		"nonneg_decimal":   isNonNegativeDecimal,
	}
	for tag, fn := range rules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return err
		}
	}
	return nil
}

// isHourRanges - "9-13,14-18"
func isHourRanges(fl validator.FieldLevel) bool {
	_, err := entities.ParseHourRanges(fl.Field().String())
	return err == nil
}

func isOrderPriority(fl validator.FieldLevel) bool {
	return constants.Priority(fl.Field().String()).IsValid()
}

// decimal.Decimal приходит сюда строкой, см. registerNullTypes.
func decimalOf(fl validator.FieldLevel) (decimal.Decimal, bool) {
	d, err := decimal.NewFromString(fl.Field().String())
	return d, err == nil
}

func isPositiveDecimal(fl validator.FieldLevel) bool {
	d, ok := decimalOf(fl)
	return ok && d.IsPositive()
}

func isNonNegativeDecimal(fl validator.FieldLevel) bool {
	d, ok := decimalOf(fl)
	return ok && !d.IsNegative()
}
