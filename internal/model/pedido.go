package model

import (
	"github.com/shopspring/decimal"
)

// ItemPedido is one line of an order. Catalog-derived items always have
// Cantidad 1; only free sales carry a larger quantity.
type ItemPedido struct {
	ID         string          `json:"id"`
	ProductoID *int            `json:"productoId,omitempty"`
	Nombre     string          `json:"nombre"`
	Precio     decimal.Decimal `json:"precio"`
	Cantidad   int             `json:"cantidad"`
	Detalles   string          `json:"detalles"`
	Timestamp  int64           `json:"timestamp,omitempty"`
	Tipo       TipoProducto    `json:"tipo,omitempty"`
	Categoria  Categoria       `json:"categoria,omitempty"`

	// Acompanamientos is null when the item never had a sides list; an
	// empty list stays empty through storage.
	Acompanamientos []Acompanamiento `json:"acompañamientos"`
	// Porcion is the side chosen in the side-selection flow.
	Porcion *Acompanamiento `json:"porcion,omitempty"`

	EsMitad bool     `json:"esMitad,omitempty"`
	Mitades []string `json:"mitades,omitempty"`
}

// Subtotal is precio × cantidad.
func (i ItemPedido) Subtotal() decimal.Decimal {
	return i.Precio.Mul(decimal.NewFromInt(int64(i.Cantidad)))
}

// Pedido is the order aggregate and, while it is being composed, the
// builder context the caller owns.
type Pedido struct {
	ID        string          `json:"id"`
	Cliente   string          `json:"cliente"`
	Mesa      string          `json:"mesa"`
	Items     []ItemPedido    `json:"items"`
	Total     decimal.Decimal `json:"total"`
	Fecha     string          `json:"fecha"`
	Hora      string          `json:"hora"`
	Timestamp int64           `json:"timestamp"`

	// Edit markers: set while a historical order is being re-composed.
	EsEdicion        bool   `json:"esEdicion,omitempty"`
	PedidoOriginalID string `json:"pedidoOriginalId,omitempty"`
}

// RecalcularTotal sets Total to Σ precio × cantidad.
func (p *Pedido) RecalcularTotal() {
	total := decimal.Zero
	for _, it := range p.Items {
		total = total.Add(it.Subtotal())
	}
	p.Total = total
}

// Copia returns a copy whose item slice is not shared with p.
func (p Pedido) Copia() Pedido {
	p.Items = CopiarItems(p.Items)
	return p
}

func CopiarItems(items []ItemPedido) []ItemPedido {
	out := make([]ItemPedido, len(items))
	copy(out, items)
	return out
}
