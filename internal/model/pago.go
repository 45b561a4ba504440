package model

import (
	"github.com/shopspring/decimal"
)

// TipoPago: "completo" | "parcial"
type TipoPago string

const (
	PagoCompleto TipoPago = "completo"
	PagoParcial  TipoPago = "parcial"
)

// EstadoPago is derived from a RegistroPago, never stored.
type EstadoPago string

const (
	EstadoAbierto    EstadoPago = "abierto"
	EstadoParcial    EstadoPago = "parcial"
	EstadoCompletado EstadoPago = "completado"
)

// EventoPago is one recorded payment against a RegistroPago.
type EventoPago struct {
	Fecha string          `json:"fecha"`
	Hora  string          `json:"hora"`
	Monto decimal.Decimal `json:"monto"`
	Tipo  TipoPago        `json:"tipo"`
	Items []ItemPedido    `json:"items,omitempty"`
}

// RegistroPago is the payment ledger entry of one order.
// Invariant: TotalPendiente + TotalPagado == PedidoOriginal.Total.
type RegistroPago struct {
	ID              string          `json:"id"`
	PedidoOriginal  Pedido          `json:"pedidoOriginal"`
	ItemsPendientes []ItemPedido    `json:"itemsPendientes"`
	TotalPendiente  decimal.Decimal `json:"totalPendiente"`
	PagosRealizados []EventoPago    `json:"pagosRealizados"`
	TotalPagado     decimal.Decimal `json:"totalPagado"`
	Completado      bool            `json:"completado"`
	FechaCompletado string          `json:"fechaCompletado,omitempty"`
	HoraCompletado  string          `json:"horaCompletado,omitempty"`

	CompletadoCocina      bool   `json:"completadoCocina,omitempty"`
	FechaCompletadoCocina string `json:"fechaCompletadoCocina,omitempty"`
	HoraCompletadoCocina  string `json:"horaCompletadoCocina,omitempty"`
}

func (r RegistroPago) Estado() EstadoPago {
	switch {
	case r.Completado:
		return EstadoCompletado
	case r.TotalPagado.IsPositive():
		return EstadoParcial
	default:
		return EstadoAbierto
	}
}

// ProductoReporte is a paid product line inside a ReportePago.
type ProductoReporte struct {
	Nombre    string          `json:"nombre"`
	Categoria string          `json:"categoria"`
	Cantidad  int             `json:"cantidad"`
	Precio    decimal.Decimal `json:"precio"`
}

// NuevoProductoReporte flattens an item, filling the defaults the
// statistics engine expects for missing values.
func NuevoProductoReporte(it ItemPedido) ProductoReporte {
	pr := ProductoReporte{
		Nombre:    it.Nombre,
		Categoria: string(it.Categoria),
		Cantidad:  it.Cantidad,
		Precio:    it.Precio,
	}
	if pr.Nombre == "" {
		pr.Nombre = "Producto sin nombre"
	}
	if pr.Categoria == "" {
		pr.Categoria = "Sin categoría"
	}
	if pr.Cantidad <= 0 {
		pr.Cantidad = 1
	}
	return pr
}

// ReportePago is an append-only log entry, one per payment event.
type ReportePago struct {
	ID        string            `json:"id"`
	FechaPago string            `json:"fechaPago"`
	HoraPago  string            `json:"horaPago"`
	Timestamp int64             `json:"timestamp"`
	Cliente   string            `json:"cliente"`
	Mesa      string            `json:"mesa"`
	Monto     decimal.Decimal   `json:"monto"`
	TipoPago  TipoPago          `json:"tipoPago"`
	PedidoID  string            `json:"pedidoId"`
	Productos []ProductoReporte `json:"productos"`
}
