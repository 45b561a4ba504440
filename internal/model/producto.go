package model

import (
	"github.com/shopspring/decimal"
)

// Categoria groups catalog products. Kitchen routing is decided per categoria.
type Categoria string

const (
	CategoriaCortes               Categoria = "cortes"
	CategoriaMariscos             Categoria = "mariscos"
	CategoriaBandejas             Categoria = "bandejas"
	CategoriaPizzas               Categoria = "pizzas"
	CategoriaPlatos               Categoria = "platos"
	CategoriaPorcionesAdicionales Categoria = "porciones_adicionales"
	CategoriaBebidas              Categoria = "bebidas"
	CategoriaOtros                Categoria = "otros"
)

// VaACocina reports whether products of this categoria need preparation.
func (c Categoria) VaACocina() bool {
	switch c {
	case CategoriaCortes, CategoriaMariscos, CategoriaBandejas, CategoriaPizzas, CategoriaPlatos:
		return true
	}
	return false
}

// TipoProducto drives which composition flow the order builder uses.
type TipoProducto string

const (
	TipoCorte           TipoProducto = "corte"
	TipoCorteTermino    TipoProducto = "corte_termino"
	TipoMariscoEnsalada TipoProducto = "marisco_ensalada"
	TipoBandejaEnsalada TipoProducto = "bandeja_ensalada"
	TipoPizza           TipoProducto = "pizza"
	TipoPlato           TipoProducto = "plato"
	TipoAcompanamiento  TipoProducto = "acompanamiento"
	TipoBebida          TipoProducto = "bebida"
	TipoRegular         TipoProducto = "regular"
)

// Producto is a read-only catalog entry.
type Producto struct {
	ID          int             `json:"id"`
	Nombre      string          `json:"nombre"`
	Precio      decimal.Decimal `json:"precio"`
	Categoria   Categoria       `json:"categoria"`
	Tipo        TipoProducto    `json:"tipo"`
	Descripcion string          `json:"descripcion"`
	// AcompanamientosObligatorios are copied onto the item on direct add.
	AcompanamientosObligatorios    []Acompanamiento `json:"acompanamientosObligatorios,omitempty"`
	SinAcompanamientosObligatorios bool             `json:"sinAcompanamientosObligatorios,omitempty"`
}

// Opcion is a row of one of the small option tables: side portions,
// pizza extras, pizza flavors and doneness levels.
type Opcion struct {
	ID          int             `json:"id"`
	Nombre      string          `json:"nombre"`
	Precio      decimal.Decimal `json:"precio"`
	Descripcion string          `json:"descripcion,omitempty"`
}

// Acompanamiento is a side attached to an order item.
type Acompanamiento struct {
	Nombre   string          `json:"nombre"`
	Precio   decimal.Decimal `json:"precio"`
	Cantidad int             `json:"cantidad,omitempty"`
}
