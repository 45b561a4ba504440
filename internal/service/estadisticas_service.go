package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"comanda/internal/apierror"
	"comanda/internal/model"
	"comanda/internal/repository"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

type Periodo string

const (
	PeriodoHoy           Periodo = "hoy"
	PeriodoSemana        Periodo = "semana"
	PeriodoMes           Periodo = "mes"
	PeriodoPersonalizado Periodo = "personalizado"
	PeriodoTodo          Periodo = "todo"
)

// FiltroEstadisticas selects the period. Desde and Hasta are only read for
// PeriodoPersonalizado and are inclusive days.
type FiltroEstadisticas struct {
	Periodo Periodo
	Desde   time.Time
	Hasta   time.Time
}

type ProductoVendido struct {
	Nombre    string          `json:"nombre"`
	Categoria string          `json:"categoria"`
	Cantidad  int             `json:"cantidad"`
	Total     decimal.Decimal `json:"total"`
}

type PagoDiario struct {
	Fecha    string          `json:"fecha"`
	Monto    decimal.Decimal `json:"monto"`
	Cantidad int             `json:"cantidad"`
}

type Estadisticas struct {
	Periodo        Periodo           `json:"periodo"`
	TotalVentas    decimal.Decimal   `json:"totalVentas"`
	TotalPedidos   int               `json:"totalPedidos"`
	TotalPagos     int               `json:"totalPagos"`
	TicketPromedio decimal.Decimal   `json:"ticketPromedio"`
	ProductoTop    string            `json:"productoTop"`
	Productos      []ProductoVendido `json:"productos"`
	Pagos          []PagoDiario      `json:"pagos"`
}

// HayDatos is false when the period matched neither orders nor payments.
func (e *Estadisticas) HayDatos() bool { return e.TotalPedidos > 0 || e.TotalPagos > 0 }

type EstadisticasService interface {
	Calcular(ctx context.Context, f FiltroEstadisticas) (*Estadisticas, error)
}

type estadisticasService struct {
	almacen repository.Almacen
	reloj   Reloj
}

func NewEstadisticasService(almacen repository.Almacen, reloj Reloj) EstadisticasService {
	return &estadisticasService{almacen: almacen, reloj: reloj}
}

func inicioDia(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// rango returns the half-open interval [desde, hasta) of the period.
func rango(f FiltroEstadisticas, ahora time.Time) (desde, hasta time.Time, err error) {
	hoy := inicioDia(ahora)
	manana := hoy.AddDate(0, 0, 1)
	switch f.Periodo {
	case PeriodoHoy:
		return hoy, manana, nil
	case PeriodoSemana:
		// weeks start on Sunday
		return hoy.AddDate(0, 0, -int(hoy.Weekday())), manana, nil
	case PeriodoMes:
		return time.Date(hoy.Year(), hoy.Month(), 1, 0, 0, 0, 0, hoy.Location()), manana, nil
	case PeriodoPersonalizado:
		if f.Desde.IsZero() || f.Hasta.IsZero() {
			return desde, hasta, apierror.Validacion("Seleccione las fechas de inicio y fin")
		}
		d := inicioDia(f.Desde.In(ahora.Location()))
		h := inicioDia(f.Hasta.In(ahora.Location())).AddDate(0, 0, 1)
		if !d.Before(h) {
			return desde, hasta, apierror.Validacion("La fecha de inicio debe ser anterior a la fecha de fin")
		}
		return d, h, nil
	case PeriodoTodo, "":
		return time.Time{}, time.Time{}, nil
	default:
		return desde, hasta, apierror.Validacion("Periodo %q no válido", f.Periodo)
	}
}

// fechaReporte resolves the day of a payment: timestamp first, then the
// stored date string as DD/MM/YYYY and finally MM/DD/YYYY.
func fechaReporte(r model.ReportePago, loc *time.Location, ahora time.Time) (time.Time, bool) {
	if r.Timestamp > 0 {
		return time.UnixMilli(r.Timestamp).In(loc), true
	}
	s := strings.TrimSpace(r.FechaPago)
	if s == "" {
		return ahora, true
	}
	for _, layout := range []string{FormatoFecha, "01/02/2006"} {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func (s *estadisticasService) Calcular(ctx context.Context, f FiltroEstadisticas) (*Estadisticas, error) {
	ahora := s.reloj()
	loc := ahora.Location()
	desde, hasta, err := rango(f, ahora)
	if err != nil {
		return nil, err
	}
	todo := desde.IsZero()
	dentro := func(t time.Time) bool {
		return todo || (!t.Before(desde) && t.Before(hasta))
	}

	var (
		historial []model.RegistroHistorial
		reportes  []model.ReportePago
	)
	err = s.almacen.View(ctx, func(tx *repository.Tx) error {
		var err error
		if historial, err = tx.Historial(); err != nil {
			return err
		}
		reportes, err = tx.Reportes()
		return err
	})
	if err != nil {
		return nil, err
	}

	periodo := f.Periodo
	if periodo == "" {
		periodo = PeriodoTodo
	}
	est := &Estadisticas{
		Periodo:        periodo,
		TotalVentas:    decimal.Zero,
		TicketPromedio: decimal.Zero,
		ProductoTop:    "-",
		Productos:      []ProductoVendido{},
		Pagos:          []PagoDiario{},
	}
	productos := map[string]*ProductoVendido{}
	sumar := func(p model.ProductoReporte) {
		total := p.Precio.Mul(decimal.NewFromInt(int64(p.Cantidad)))
		if pv, ok := productos[p.Nombre]; ok {
			pv.Cantidad += p.Cantidad
			pv.Total = pv.Total.Add(total)
			return
		}
		productos[p.Nombre] = &ProductoVendido{Nombre: p.Nombre, Categoria: p.Categoria, Cantidad: p.Cantidad, Total: total}
	}

	for _, h := range historial {
		if !todo {
			t, err := time.ParseInLocation(FormatoFecha, h.Fecha, loc)
			if err != nil {
				log.Warn().Str("pedido_id", h.ID).Str("fecha", h.Fecha).Msg("estadisticas: fecha de pedido inválida, se excluye")
				continue
			}
			if !dentro(t) {
				continue
			}
		}
		est.TotalPedidos++
		est.TotalVentas = est.TotalVentas.Add(h.Total)
		for _, it := range h.Items {
			sumar(model.NuevoProductoReporte(it))
		}
	}

	type dia struct {
		t time.Time
		PagoDiario
	}
	dias := map[string]*dia{}
	for _, r := range reportes {
		t, ok := fechaReporte(r, loc, ahora)
		if !ok {
			log.Warn().Str("reporte_id", r.ID).Str("fecha", r.FechaPago).Msg("estadisticas: fecha de pago inválida, se excluye")
			continue
		}
		if !dentro(t) {
			continue
		}
		est.TotalPagos++
		clave := t.Format(FormatoFecha)
		d, ok := dias[clave]
		if !ok {
			d = &dia{t: inicioDia(t), PagoDiario: PagoDiario{Fecha: clave, Monto: decimal.Zero}}
			dias[clave] = d
		}
		d.Monto = d.Monto.Add(r.Monto)
		d.Cantidad++
		for _, p := range r.Productos {
			if p.Cantidad <= 0 {
				p.Cantidad = 1
			}
			sumar(p)
		}
	}

	for _, pv := range productos {
		est.Productos = append(est.Productos, *pv)
	}
	sort.SliceStable(est.Productos, func(i, j int) bool {
		if c := est.Productos[i].Total.Cmp(est.Productos[j].Total); c != 0 {
			return c > 0
		}
		return est.Productos[i].Nombre < est.Productos[j].Nombre
	})
	if len(est.Productos) > 0 {
		est.ProductoTop = est.Productos[0].Nombre
	}

	ordenados := make([]*dia, 0, len(dias))
	for _, d := range dias {
		ordenados = append(ordenados, d)
	}
	sort.Slice(ordenados, func(i, j int) bool { return ordenados[i].t.Before(ordenados[j].t) })
	for _, d := range ordenados {
		est.Pagos = append(est.Pagos, d.PagoDiario)
	}

	if est.TotalPedidos > 0 {
		est.TicketPromedio = est.TotalVentas.Div(decimal.NewFromInt(int64(est.TotalPedidos))).Round(2)
	}
	return est, nil
}
