package dto

import "github.com/shopspring/decimal"

// PagoParcialRequest pays a subset of the pending items. Monto must equal
// the sum of the selected lines.
type PagoParcialRequest struct {
	ItemIDs []string        `json:"itemIds" validate:"required,min=1,dive,required"`
	Monto   decimal.Decimal `json:"monto"   validate:"required,gt=0"`
}
