package dto

import (
	"comanda/internal/model"

	"github.com/shopspring/decimal"
)

// ─── Request DTOs ────────────────────────────────────────────────────────────

type AsignarClienteRequest struct {
	Cliente string `json:"cliente" validate:"max=80"`
	Mesa    string `json:"mesa"    validate:"max=20"`
}

// SeleccionRequest is the full option state of a composition dialog.
// Zero ids mean "none" (no doneness, no side).
type SeleccionRequest struct {
	TerminoID      int   `json:"terminoId"      validate:"min=0"`
	PorcionID      int   `json:"porcionId"      validate:"min=0"`
	Mitades        bool  `json:"mitades"`
	PrimeraMitadID int   `json:"primeraMitadId" validate:"required_if=Mitades true"`
	SegundaMitadID int   `json:"segundaMitadId" validate:"required_if=Mitades true"`
	Extras         []int `json:"extras"         validate:"omitempty,unique,dive,min=1"`
}

// AgregarItemRequest adds a catalog product. Without Seleccion the
// product's default options are used.
type AgregarItemRequest struct {
	ProductoID int               `json:"productoId" validate:"required,min=1"`
	Seleccion  *SeleccionRequest `json:"seleccion"`
}

type VentaLibreRequest struct {
	Nombre   string          `json:"nombre"   validate:"required,max=120"`
	Precio   decimal.Decimal `json:"precio"   validate:"required,gt=0"`
	Cantidad int             `json:"cantidad" validate:"required,min=1"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type ItemAgregadoResponse struct {
	Item   model.ItemPedido `json:"item"`
	Pedido *model.Pedido    `json:"pedido"`
}

// SeleccionInicialResponse tells the client which dialog to open for a
// product and with which defaults.
type SeleccionInicialResponse struct {
	Producto     model.Producto `json:"producto"`
	Variante     string         `json:"variante"`
	PideOpciones bool           `json:"pideOpciones"`
	Seleccion    any            `json:"seleccion"`
}
