package validation

import (
	"testing"

	"github.com/aarondl/null/v8"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"field-service/internal/dto"
	apperrors "field-service/pkg/errors"
)

func TestValidator_OrderDTO(t *testing.T) {
	v := New()

	valid := dto.CreateServiceOrderDTO{
		CustomerID: 1, EquipmentID: 2, ServiceTypeID: 3,
		ReportedFault: "не морозит", Priority: "urgent",
		LaborHours: decimal.NewFromInt(2), LaborPrice: decimal.Zero,
	}
	require.NoError(t, v.Validate(&valid))

	bad := valid
	bad.Priority = "asap"
	err := v.Validate(&bad)
	var verr *apperrors.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "priority", verr.Field)

	bad = valid
	bad.LaborPrice = decimal.NewFromInt(-1)
	require.ErrorAs(t, v.Validate(&bad), &verr)
	assert.Equal(t, "laborprice", verr.Field)
	assert.Equal(t, "не может быть отрицательным", verr.Message)

	bad = valid
	bad.CustomerID = 0
	require.ErrorAs(t, v.Validate(&bad), &verr)
	assert.Equal(t, "обязательное поле", verr.Message)
}

func TestValidator_NestedLines(t *testing.T) {
	v := New()

	d := dto.CompleteWithPartsDTO{
		Diagnosis: "износ", WorkPerformed: "замена",
		Lines: []dto.LineItemDTO{
			{ProductID: 1, Quantity: decimal.NewFromInt(1)},
			{ProductID: 2, Quantity: decimal.Zero},
		},
	}
	var verr *apperrors.ValidationError
	require.ErrorAs(t, v.Validate(&d), &verr)
	assert.Equal(t, "lines[1].quantity", verr.Field)
	assert.Equal(t, "должно быть больше нуля", verr.Message)
}

func TestValidator_NullTypesAndHours(t *testing.T) {
	v := New()

	tech := dto.UpsertTechnicianDTO{Name: "Иван", AvailableHours: "9-13,14-18", Phone: null.String{}}
	require.NoError(t, v.Validate(&tech), "пустой null.String пропускается через omitempty")

	tech.AvailableHours = "9 до 18"
	assert.True(t, apperrors.IsValidation(v.Validate(&tech)))

	customer := dto.CreateCustomerDTO{Code: "ACME", Name: "Акме", Email: null.StringFrom("не почта")}
	var verr *apperrors.ValidationError
	require.ErrorAs(t, v.Validate(&customer), &verr)
	assert.Equal(t, "email", verr.Field)
}
