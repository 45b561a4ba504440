package dto

import "comanda/internal/model"

// ─── Filters ─────────────────────────────────────────────────────────────────

type CatalogoFilter struct {
	Categoria string `form:"categoria" validate:"omitempty,oneof=cortes mariscos bandejas pizzas platos porciones_adicionales bebidas otros"`
}

// EstadisticasFilter dates are YYYY-MM-DD and only read for
// periodo=personalizado.
type EstadisticasFilter struct {
	Periodo string `form:"periodo" validate:"omitempty,oneof=hoy semana mes personalizado todo"`
	Desde   string `form:"desde"   validate:"omitempty,datetime=2006-01-02"`
	Hasta   string `form:"hasta"   validate:"omitempty,datetime=2006-01-02"`
}

type PurgarAntiguosFilter struct {
	Forzar bool `form:"forzar"`
}

// ─── Responses ───────────────────────────────────────────────────────────────

type ProductoResponse struct {
	model.Producto
	Variante     string `json:"variante"`
	PideOpciones bool   `json:"pideOpciones"`
}

type OpcionesResponse struct {
	Porciones []model.Opcion `json:"porciones"`
	Extras    []model.Opcion `json:"extras"`
	Sabores   []model.Opcion `json:"sabores"`
	Terminos  []model.Opcion `json:"terminos"`
}

type PurgaResponse struct {
	Purgado bool     `json:"purgado"`
	IDs     []string `json:"ids,omitempty"`
}
