package services

import (
	"github.com/shopspring/decimal"

	"field-service/internal/entities"
)

// RecomputeTotals: базовая цена вида услуги плюс сумма строк.
// Пересчитывает подытог каждой строки и записывает итог в заказ.
func RecomputeTotals(order *entities.ServiceOrder, serviceType *entities.ServiceType, lines []*entities.RefactionLine) decimal.Decimal {
	total := decimal.Zero
	if serviceType != nil {
		total = serviceType.BasePrice
	}
	for _, line := range lines {
		total = total.Add(line.ComputeSubtotal())
	}
	order.TotalAmount = total
	return total
}
