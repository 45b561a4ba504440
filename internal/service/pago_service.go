package service

import (
	"context"
	"sort"

	"comanda/internal/apierror"
	"comanda/internal/infra"
	"comanda/internal/model"
	"comanda/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// PagoService is the payment ledger. Every mutation keeps
// TotalPagado + TotalPendiente == PedidoOriginal.Total and mirrors the
// totals onto the history record in the same transaction.
type PagoService interface {
	PagarCompleto(ctx context.Context, id string) (*model.RegistroPago, error)
	PagarParcial(ctx context.Context, id string, itemIDs []string, monto decimal.Decimal) (*model.RegistroPago, error)
	VerOriginal(ctx context.Context, id string) (*model.Pedido, error)
	ListarPendientes(ctx context.Context) ([]model.RegistroPago, error)
	ListarReportes(ctx context.Context) ([]model.ReportePago, error)
}

type pagoService struct {
	almacen repository.Almacen
	reloj   Reloj
	pub     infra.Publicador
}

func NewPagoService(almacen repository.Almacen, reloj Reloj, pub infra.Publicador) PagoService {
	return &pagoService{almacen: almacen, reloj: reloj, pub: pub}
}

func pagoAbierto(pagos []model.RegistroPago, id string) (int, error) {
	i := buscarPago(pagos, id)
	if i < 0 || pagos[i].Completado {
		return -1, apierror.NoEncontrado("Pago %s no encontrado o ya completado", id)
	}
	return i, nil
}

func reporteDe(p model.RegistroPago, monto decimal.Decimal, tipo model.TipoPago, items []model.ItemPedido, st sello) model.ReportePago {
	productos := make([]model.ProductoReporte, 0, len(items))
	for _, it := range items {
		productos = append(productos, model.NuevoProductoReporte(it))
	}
	return model.ReportePago{
		ID:        uuid.NewString(),
		FechaPago: st.fecha,
		HoraPago:  st.hora,
		Timestamp: st.ms,
		Cliente:   p.PedidoOriginal.Cliente,
		Mesa:      p.PedidoOriginal.Mesa,
		Monto:     monto,
		TipoPago:  tipo,
		PedidoID:  p.PedidoOriginal.ID,
		Productos: productos,
	}
}

// ── PagarCompleto ────────────────────────────────────────────────────────────

func (s *pagoService) PagarCompleto(ctx context.Context, id string) (*model.RegistroPago, error) {
	var (
		pago    model.RegistroPago
		reporte model.ReportePago
	)
	err := s.almacen.RunTx(ctx, func(tx *repository.Tx) error {
		pagos, err := tx.Pagos()
		if err != nil {
			return err
		}
		i, err := pagoAbierto(pagos, id)
		if err != nil {
			return err
		}
		st := s.reloj.sello()
		p := &pagos[i]

		monto := p.TotalPendiente
		p.PagosRealizados = append(p.PagosRealizados, model.EventoPago{
			Fecha: st.fecha,
			Hora:  st.hora,
			Monto: monto,
			Tipo:  model.PagoCompleto,
		})
		p.TotalPagado = p.TotalPagado.Add(monto)
		cerrarPago(p, st)
		tx.GuardarPagos(pagos)

		reporte = reporteDe(*p, monto, model.PagoCompleto, p.PedidoOriginal.Items, st)
		pago = *p
		return s.cerrarPedido(tx, pago, reporte, st)
	})
	if err != nil {
		return nil, err
	}
	s.notificar(ctx, pago, reporte)
	return &pago, nil
}

// ── PagarParcial ─────────────────────────────────────────────────────────────

func (s *pagoService) PagarParcial(ctx context.Context, id string, itemIDs []string, monto decimal.Decimal) (*model.RegistroPago, error) {
	if len(itemIDs) == 0 {
		return nil, apierror.Validacion("Seleccione al menos un producto para pagar")
	}
	if !monto.IsPositive() {
		return nil, apierror.Validacion("Ingrese un monto válido")
	}
	var (
		pago    model.RegistroPago
		reporte model.ReportePago
	)
	err := s.almacen.RunTx(ctx, func(tx *repository.Tx) error {
		pagos, err := tx.Pagos()
		if err != nil {
			return err
		}
		i, err := pagoAbierto(pagos, id)
		if err != nil {
			return err
		}
		p := &pagos[i]

		elegidos := make(map[string]bool, len(itemIDs))
		for _, itemID := range itemIDs {
			if elegidos[itemID] {
				return apierror.Validacion("Producto %s seleccionado dos veces", itemID)
			}
			elegidos[itemID] = true
		}
		var pagados, restantes []model.ItemPedido
		seleccionado := decimal.Zero
		for _, it := range p.ItemsPendientes {
			if elegidos[it.ID] {
				pagados = append(pagados, it)
				seleccionado = seleccionado.Add(it.Subtotal())
			} else {
				restantes = append(restantes, it)
			}
		}
		if len(pagados) != len(elegidos) {
			return apierror.Validacion("Hay productos seleccionados que no están pendientes de pago")
		}
		if monto.GreaterThan(p.TotalPendiente) {
			return apierror.Validacion("El monto supera el saldo pendiente: $%s", p.TotalPendiente.StringFixed(2))
		}
		if !monto.Equal(seleccionado) {
			return apierror.Validacion("El monto debe ser igual al total de los productos seleccionados: $%s", seleccionado.StringFixed(2))
		}

		st := s.reloj.sello()
		if restantes == nil {
			restantes = []model.ItemPedido{}
		}
		p.ItemsPendientes = restantes
		p.TotalPendiente = p.TotalPendiente.Sub(monto)
		p.TotalPagado = p.TotalPagado.Add(monto)
		p.PagosRealizados = append(p.PagosRealizados, model.EventoPago{
			Fecha: st.fecha,
			Hora:  st.hora,
			Monto: monto,
			Tipo:  model.PagoParcial,
			Items: pagados,
		})
		reporte = reporteDe(*p, monto, model.PagoParcial, pagados, st)

		if len(p.ItemsPendientes) == 0 || !p.TotalPendiente.IsPositive() {
			cerrarPago(p, st)
			tx.GuardarPagos(pagos)
			pago = *p
			return s.cerrarPedido(tx, pago, reporte, st)
		}
		tx.GuardarPagos(pagos)
		pago = *p

		if err := agregarReporte(tx, reporte); err != nil {
			return err
		}
		historial, err := tx.Historial()
		if err != nil {
			return err
		}
		if j := buscarHistorial(historial, pago.PedidoOriginal.ID); j >= 0 {
			reflejarPago(&historial[j], pago, st)
			historial[j].UltimoPagoParcial = &model.UltimoPagoParcial{Fecha: st.fecha, Hora: st.hora, Monto: monto}
			tx.GuardarHistorial(historial)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.notificar(ctx, pago, reporte)
	return &pago, nil
}

func agregarReporte(tx *repository.Tx, r model.ReportePago) error {
	reportes, err := tx.Reportes()
	if err != nil {
		return err
	}
	tx.GuardarReportes(append(reportes, r))
	return nil
}

// cerrarPedido applies the effects of a completed payment: report entry,
// history marked paid, kitchen ticket dropped, then the completed purge.
func (s *pagoService) cerrarPedido(tx *repository.Tx, pago model.RegistroPago, reporte model.ReportePago, st sello) error {
	if err := agregarReporte(tx, reporte); err != nil {
		return err
	}
	pedidoID := pago.PedidoOriginal.ID

	historial, err := tx.Historial()
	if err != nil {
		return err
	}
	if j := buscarHistorial(historial, pedidoID); j >= 0 {
		reflejarPago(&historial[j], pago, st)
		tx.GuardarHistorial(historial)
	}

	cocina, err := tx.Cocina()
	if err != nil {
		return err
	}
	if c, cambio := filtrar(cocina, func(t model.TicketCocina) bool { return t.ID == pedidoID }); cambio {
		tx.GuardarCocina(c)
		log.Info().Str("pedido_id", pedidoID).Msg("pagos: pedido retirado de cocina al completar el pago")
	}

	_, err = purgarCompletados(tx)
	return err
}

func (s *pagoService) notificar(ctx context.Context, pago model.RegistroPago, reporte model.ReportePago) {
	publicar(ctx, s.pub, infra.TemaPagoRegistrado, reporte)
	ev := log.Info().
		Str("pago_id", pago.ID).
		Str("tipo", string(reporte.TipoPago)).
		Str("monto", reporte.Monto.StringFixed(2)).
		Str("pendiente", pago.TotalPendiente.StringFixed(2))
	if pago.Completado {
		publicar(ctx, s.pub, infra.TemaPagoCompletado, pago)
		ev.Msg("pagos: pago completado")
		return
	}
	ev.Msg("pagos: pago parcial registrado")
}

// ── Consultas ────────────────────────────────────────────────────────────────

func (s *pagoService) VerOriginal(ctx context.Context, id string) (*model.Pedido, error) {
	var pedido *model.Pedido
	err := s.almacen.View(ctx, func(tx *repository.Tx) error {
		pagos, err := tx.Pagos()
		if err != nil {
			return err
		}
		i := buscarPago(pagos, id)
		if i < 0 {
			return apierror.NoEncontrado("Pago %s no encontrado", id)
		}
		p := pagos[i].PedidoOriginal.Copia()
		pedido = &p
		return nil
	})
	return pedido, err
}

// ListarPendientes returns open and partially paid records, oldest order first.
func (s *pagoService) ListarPendientes(ctx context.Context) ([]model.RegistroPago, error) {
	out := []model.RegistroPago{}
	err := s.almacen.View(ctx, func(tx *repository.Tx) error {
		pagos, err := tx.Pagos()
		if err != nil {
			return err
		}
		for _, p := range pagos {
			if !p.Completado {
				out = append(out, p)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PedidoOriginal.Timestamp < out[j].PedidoOriginal.Timestamp
	})
	return out, nil
}

func (s *pagoService) ListarReportes(ctx context.Context) ([]model.ReportePago, error) {
	out := []model.ReportePago{}
	err := s.almacen.View(ctx, func(tx *repository.Tx) error {
		reportes, err := tx.Reportes()
		if err != nil {
			return err
		}
		out = append(out, reportes...)
		return nil
	})
	return out, err
}
