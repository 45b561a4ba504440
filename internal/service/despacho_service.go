package service

import (
	"context"
	"strings"
	"time"

	"comanda/internal/apierror"
	"comanda/internal/catalogo"
	"comanda/internal/infra"
	"comanda/internal/model"
	"comanda/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// ComprobanteEncolador schedules the receipt render of a finalized order.
// Implemented by worker.Dispatcher.
type ComprobanteEncolador interface {
	EncolarComprobante(ctx context.Context, pedido model.Pedido) error
}

// ResultadoMigracion counts the records MigrarHistorial synthesized.
type ResultadoMigracion struct {
	Tickets int `json:"tickets"`
	Pagos   int `json:"pagos"`
}

// ResumenMantenimiento reports what one maintenance run changed.
type ResumenMantenimiento struct {
	Purgado     bool               `json:"purgado"`
	Completados []string           `json:"completados"`
	Guardados   int                `json:"guardados"`
	Migracion   ResultadoMigracion `json:"migracion"`
}

// DespachoService fans a finalized order out to history, kitchen and
// payments, and owns the migration and purge routines over those stores.
type DespachoService interface {
	Finalizar(ctx context.Context, pedido *model.Pedido) (*model.RegistroHistorial, error)
	GuardarBorrador(ctx context.Context, pedido *model.Pedido) (*model.RegistroHistorial, error)
	EditarDesdeHistorial(ctx context.Context, id string) (*model.Pedido, error)
	MigrarGuardados(ctx context.Context) (int, error)
	MigrarHistorial(ctx context.Context) (ResultadoMigracion, error)
	PurgarCompletados(ctx context.Context) ([]string, error)
	PurgarAntiguos(ctx context.Context, forzar bool) (bool, error)
	TiempoRestante(ctx context.Context) (time.Duration, error)
	Mantenimiento(ctx context.Context) (*ResumenMantenimiento, error)
}

type despachoService struct {
	almacen repository.Almacen
	cat     *catalogo.Catalogo
	reloj   Reloj
	pub     infra.Publicador
	enc     ComprobanteEncolador
	umbral  time.Duration
}

// NewDespachoService wires the dispatch service. enc may be nil, in which
// case no receipt is rendered on finalization.
func NewDespachoService(
	almacen repository.Almacen,
	cat *catalogo.Catalogo,
	reloj Reloj,
	pub infra.Publicador,
	enc ComprobanteEncolador,
	umbral time.Duration,
) DespachoService {
	return &despachoService{
		almacen: almacen,
		cat:     cat,
		reloj:   reloj,
		pub:     pub,
		enc:     enc,
		umbral:  umbral,
	}
}

// ── Finalizar / GuardarBorrador ──────────────────────────────────────────────

func (s *despachoService) Finalizar(ctx context.Context, pedido *model.Pedido) (*model.RegistroHistorial, error) {
	reg, err := s.despachar(ctx, pedido)
	if err != nil {
		return nil, err
	}
	publicar(ctx, s.pub, infra.TemaPedidoFinalizado, reg)
	if s.enc != nil {
		if err := s.enc.EncolarComprobante(ctx, reg.Pedido.Copia()); err != nil {
			// the order is committed; the receipt can be re-rendered from history
			log.Warn().Err(err).Str("pedido_id", reg.ID).Msg("despacho: no se pudo encolar el comprobante")
		}
	}
	log.Info().
		Str("pedido_id", reg.ID).
		Str("mesa", reg.Mesa).
		Str("total", reg.Total.StringFixed(2)).
		Int("items", len(reg.Items)).
		Msg("despacho: pedido finalizado")
	return reg, nil
}

func (s *despachoService) GuardarBorrador(ctx context.Context, pedido *model.Pedido) (*model.RegistroHistorial, error) {
	reg, err := s.despachar(ctx, pedido)
	if err != nil {
		return nil, err
	}
	publicar(ctx, s.pub, infra.TemaPedidoGuardado, reg)
	log.Info().Str("pedido_id", reg.ID).Msg("despacho: pedido guardado")
	return reg, nil
}

func validarPedido(p *model.Pedido) error {
	if p == nil || len(p.Items) == 0 {
		return apierror.Validacion("El pedido no tiene productos")
	}
	if strings.TrimSpace(p.Cliente) == "" {
		return apierror.Validacion("Ingrese el nombre del cliente")
	}
	if strings.TrimSpace(p.Mesa) == "" {
		return apierror.Validacion("Ingrese el número de mesa")
	}
	return nil
}

// despachar writes the order to history, kitchen and payments in one
// transaction. In edit mode the original order is removed first and its
// payments carried over to the new id.
func (s *despachoService) despachar(ctx context.Context, pedido *model.Pedido) (*model.RegistroHistorial, error) {
	if err := validarPedido(pedido); err != nil {
		return nil, err
	}
	final := pedido.Copia()
	final.Cliente = strings.TrimSpace(final.Cliente)
	final.Mesa = strings.TrimSpace(final.Mesa)
	final.RecalcularTotal()

	edicion := final.EsEdicion && final.PedidoOriginalID != ""
	originalID := final.PedidoOriginalID
	final.EsEdicion = false
	final.PedidoOriginalID = ""

	var reg model.RegistroHistorial
	err := s.almacen.RunTx(ctx, func(tx *repository.Tx) error {
		st := s.reloj.sello()

		var recuperados []model.EventoPago
		pagado := decimal.Zero
		if edicion {
			pagos, err := tx.Pagos()
			if err != nil {
				return err
			}
			if i := buscarPago(pagos, originalID); i >= 0 {
				recuperados = pagos[i].PagosRealizados
				pagado = pagos[i].TotalPagado
			}
			if err := eliminarDeTodo(tx, map[string]bool{originalID: true}); err != nil {
				return err
			}
		}

		// payments
		pagos, err := tx.Pagos()
		if err != nil {
			return err
		}
		pago := nuevoRegistroPago(final)
		i := buscarPago(pagos, final.ID)
		switch {
		case edicion:
			pago.PagosRealizados = append(pago.PagosRealizados, recuperados...)
			pago.TotalPagado = pagado
		case i >= 0:
			pago.PagosRealizados = pagos[i].PagosRealizados
			pago.TotalPagado = pagos[i].TotalPagado
			pago.CompletadoCocina = pagos[i].CompletadoCocina
			pago.FechaCompletadoCocina = pagos[i].FechaCompletadoCocina
			pago.HoraCompletadoCocina = pagos[i].HoraCompletadoCocina
		}
		pago.ItemsPendientes = sinPagados(pago.ItemsPendientes, pago.PagosRealizados)
		pago.TotalPendiente = final.Total.Sub(pago.TotalPagado)
		if pago.TotalPagado.IsPositive() && !pago.TotalPendiente.IsPositive() {
			cerrarPago(&pago, st)
		}
		if i >= 0 {
			pagos[i] = pago
		} else {
			pagos = append(pagos, pago)
		}
		tx.GuardarPagos(pagos)

		// history
		historial, err := tx.Historial()
		if err != nil {
			return err
		}
		reg = model.RegistroHistorial{Pedido: final}
		reflejarPago(&reg, pago, st)
		if j := buscarHistorial(historial, final.ID); j >= 0 {
			historial[j] = reg
		} else {
			historial = append(historial, reg)
		}
		tx.GuardarHistorial(historial)

		// kitchen
		cocina, err := tx.Cocina()
		if err != nil {
			return err
		}
		k := buscarTicket(cocina, final.ID)
		ticket, hayCocina := ticketPara(s.cat, final)
		switch {
		case hayCocina && !pago.Completado && k >= 0:
			cocina[k] = ticket
			tx.GuardarCocina(cocina)
		case hayCocina && !pago.Completado:
			tx.GuardarCocina(append(cocina, ticket))
		case k >= 0:
			// re-dispatch without kitchen items leaves no stale ticket
			tx.GuardarCocina(append(cocina[:k:k], cocina[k+1:]...))
		}

		if pago.Completado {
			if _, err := purgarCompletados(tx); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if edicion {
		publicar(ctx, s.pub, infra.TemaPedidoEliminado, map[string]string{"id": originalID, "reemplazadoPor": final.ID})
		log.Info().Str("original_id", originalID).Str("pedido_id", final.ID).Msg("despacho: pedido editado reemplaza al original")
	}
	return &reg, nil
}

// ── Edición ──────────────────────────────────────────────────────────────────

// EditarDesdeHistorial returns a builder context for re-composing a past
// order. It gets a new id; the original is removed when it is finalized.
func (s *despachoService) EditarDesdeHistorial(ctx context.Context, id string) (*model.Pedido, error) {
	var pedido *model.Pedido
	err := s.almacen.View(ctx, func(tx *repository.Tx) error {
		historial, err := tx.Historial()
		if err != nil {
			return err
		}
		i := buscarHistorial(historial, id)
		if i < 0 {
			return apierror.NoEncontrado("Pedido %s no encontrado en el historial", id)
		}
		p := historial[i].Pedido.Copia()
		p.ID = uuid.NewString()
		p.EsEdicion = true
		p.PedidoOriginalID = id
		pedido = &p
		return nil
	})
	return pedido, err
}

// ── Migración ────────────────────────────────────────────────────────────────

func (s *despachoService) MigrarGuardados(ctx context.Context) (int, error) {
	var n int
	err := s.almacen.RunTx(ctx, func(tx *repository.Tx) error {
		guardados, err := tx.Guardados()
		if err != nil || len(guardados) == 0 {
			return err
		}
		historial, err := tx.Historial()
		if err != nil {
			return err
		}
		for _, g := range guardados {
			if buscarHistorial(historial, g.ID) >= 0 {
				continue
			}
			historial = append(historial, model.RegistroHistorial{Pedido: g.Copia()})
			n++
		}
		if n > 0 {
			tx.GuardarHistorial(historial)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if n > 0 {
		log.Info().Int("migrados", n).Msg("despacho: borradores migrados al historial")
	}
	return n, nil
}

// MigrarHistorial backfills kitchen tickets and payment records for history
// entries that predate them. Orders already paid or already served get
// neither.
func (s *despachoService) MigrarHistorial(ctx context.Context) (ResultadoMigracion, error) {
	var res ResultadoMigracion
	err := s.almacen.RunTx(ctx, func(tx *repository.Tx) error {
		historial, err := tx.Historial()
		if err != nil || len(historial) == 0 {
			return err
		}
		cocina, err := tx.Cocina()
		if err != nil {
			return err
		}
		pagos, err := tx.Pagos()
		if err != nil {
			return err
		}
		for _, h := range historial {
			if !h.CompletadoCocina && !h.Pagado && buscarTicket(cocina, h.ID) < 0 {
				if t, ok := ticketPara(s.cat, h.Pedido); ok {
					cocina = append(cocina, t)
					res.Tickets++
				}
			}
			if !h.Pagado && !h.Completado && buscarPago(pagos, h.ID) < 0 {
				pagos = append(pagos, nuevoRegistroPago(h.Pedido))
				res.Pagos++
			}
		}
		if res.Tickets > 0 {
			tx.GuardarCocina(cocina)
		}
		if res.Pagos > 0 {
			tx.GuardarPagos(pagos)
		}
		return nil
	})
	if err != nil {
		return ResultadoMigracion{}, err
	}
	if res.Tickets+res.Pagos > 0 {
		log.Info().Int("tickets", res.Tickets).Int("pagos", res.Pagos).Msg("despacho: historial migrado a cocina y pagos")
	}
	return res, nil
}

// ── Purgas ───────────────────────────────────────────────────────────────────

func (s *despachoService) PurgarCompletados(ctx context.Context) ([]string, error) {
	var ids []string
	err := s.almacen.RunTx(ctx, func(tx *repository.Tx) error {
		var err error
		ids, err = purgarCompletados(tx)
		return err
	})
	if err != nil {
		return nil, err
	}
	if len(ids) > 0 {
		log.Info().Strs("ids", ids).Msg("despacho: pedidos completados eliminados")
	}
	return ids, nil
}

// PurgarAntiguos backs up and clears history, kitchen and payments once
// the purge threshold has elapsed since the last purge. forzar skips the
// threshold check. A store that never recorded a purge starts its clock now.
func (s *despachoService) PurgarAntiguos(ctx context.Context, forzar bool) (bool, error) {
	var purgado bool
	err := s.almacen.RunTx(ctx, func(tx *repository.Tx) error {
		st := s.reloj.sello()
		ultima, ok, err := tx.UltimaLimpieza()
		if err != nil {
			return err
		}
		if !forzar {
			if !ok {
				tx.GuardarUltimaLimpieza(st.ms)
				return nil
			}
			if time.Duration(st.ms-ultima)*time.Millisecond < s.umbral {
				return nil
			}
		}

		historial, err := tx.Historial()
		if err != nil {
			return err
		}
		pagos, err := tx.Pagos()
		if err != nil {
			return err
		}
		reportes, err := tx.Reportes()
		if err != nil {
			return err
		}
		kh, kp, kr := repository.ClavesRespaldo(st.t)
		tx.GuardarRespaldo(kh, historial)
		tx.GuardarRespaldo(kp, pagos)
		tx.GuardarRespaldo(kr, reportes)

		tx.GuardarHistorial(nil)
		tx.GuardarCocina(nil)
		tx.GuardarPagos(nil)
		tx.GuardarUltimaLimpieza(st.ms)
		purgado = true
		return nil
	})
	if err != nil {
		return false, err
	}
	if purgado {
		publicar(ctx, s.pub, infra.TemaLimpiezaEjecutada, map[string]bool{"forzada": forzar})
		log.Info().Bool("forzada", forzar).Msg("despacho: limpieza de datos antiguos ejecutada")
	}
	return purgado, nil
}

// TiempoRestante is the time left until the next stale-data purge.
func (s *despachoService) TiempoRestante(ctx context.Context) (time.Duration, error) {
	restante := s.umbral
	err := s.almacen.View(ctx, func(tx *repository.Tx) error {
		ultima, ok, err := tx.UltimaLimpieza()
		if err != nil || !ok {
			return err
		}
		transcurrido := time.Duration(s.reloj().UnixMilli()-ultima) * time.Millisecond
		restante = s.umbral - transcurrido
		return nil
	})
	if err != nil {
		return 0, err
	}
	if restante < 0 {
		restante = 0
	}
	return restante, nil
}

// Mantenimiento is the startup sequence: stale purge, completed purge,
// draft migration and history backfill, in that order.
func (s *despachoService) Mantenimiento(ctx context.Context) (*ResumenMantenimiento, error) {
	var (
		r   ResumenMantenimiento
		err error
	)
	if r.Purgado, err = s.PurgarAntiguos(ctx, false); err != nil {
		return nil, err
	}
	if r.Completados, err = s.PurgarCompletados(ctx); err != nil {
		return nil, err
	}
	if r.Guardados, err = s.MigrarGuardados(ctx); err != nil {
		return nil, err
	}
	if r.Migracion, err = s.MigrarHistorial(ctx); err != nil {
		return nil, err
	}
	if r.Completados == nil {
		r.Completados = []string{}
	}
	return &r, nil
}
