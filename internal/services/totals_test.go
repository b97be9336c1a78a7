package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"field-service/internal/entities"
)

func TestRecomputeTotals(t *testing.T) {
	tests := []struct {
		name        string
		serviceType *entities.ServiceType
		lines       []*entities.RefactionLine
		want        string
	}{
		{"без вида услуги и строк", nil, nil, "0"},
		{"только базовая цена", &entities.ServiceType{BasePrice: dec("1500")}, nil, "1500"},
		{
			"базовая цена и строки",
			&entities.ServiceType{BasePrice: dec("1000")},
			[]*entities.RefactionLine{
				{Quantity: dec("2"), UnitPrice: dec("100")},
				{Quantity: dec("0.5"), UnitPrice: dec("850.40")},
			},
			"1625.2",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order := &entities.ServiceOrder{LaborHours: dec("1.5"), LaborPrice: dec("400")}
			total := RecomputeTotals(order, tt.serviceType, tt.lines)

			assert.True(t, total.Equal(dec(tt.want)), "получено %s", total)
			assert.True(t, order.TotalAmount.Equal(total))
			assert.True(t, order.InvoiceTotal().Equal(total.Add(dec("600"))), "работа в итог заказа не входит")
			for _, l := range tt.lines {
				assert.True(t, l.Subtotal.Equal(l.Quantity.Mul(l.UnitPrice)))
			}
		})
	}
}
