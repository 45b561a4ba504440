package model

import (
	"github.com/shopspring/decimal"
)

type UltimoPagoParcial struct {
	Fecha string          `json:"fecha"`
	Hora  string          `json:"hora"`
	Monto decimal.Decimal `json:"monto"`
}

// RegistroHistorial is a finalized order plus the annotations kitchen and
// payment events leave on it. The embedded Pedido serializes flat.
type RegistroHistorial struct {
	Pedido

	CompletadoCocina      bool   `json:"completadoCocina,omitempty"`
	FechaCompletadoCocina string `json:"fechaCompletadoCocina,omitempty"`
	HoraCompletadoCocina  string `json:"horaCompletadoCocina,omitempty"`

	Pagado      bool   `json:"pagado,omitempty"`
	FechaPagado string `json:"fechaPagado,omitempty"`
	HoraPagado  string `json:"horaPagado,omitempty"`
	Completado  bool   `json:"completado,omitempty"`

	PagoParcial       bool               `json:"pagoParcial,omitempty"`
	UltimoPagoParcial *UltimoPagoParcial `json:"ultimoPagoParcial,omitempty"`
	TotalPagado       *decimal.Decimal   `json:"totalPagado,omitempty"`
	TotalPendiente    *decimal.Decimal   `json:"totalPendiente,omitempty"`
}
