package dto

import "github.com/shopspring/decimal"

type CreateProductDTO struct {
	Name            string              `json:"name" validate:"required,max=200"`
	SKU             string              `json:"sku" validate:"required,max=64"`
	ListPrice       decimal.Decimal     `json:"list_price" validate:"nonneg_decimal"`
	InitialQuantity decimal.Decimal     `json:"initial_quantity" validate:"nonneg_decimal"`
	AlertThreshold  decimal.NullDecimal `json:"alert_threshold"`
}

// StockQuantityDTO - тело операций прихода, расхода, корректировки и инвентаризации.
type StockQuantityDTO struct {
	Quantity decimal.Decimal `json:"quantity"`
	Note     string          `json:"note" validate:"max=500"`
}
