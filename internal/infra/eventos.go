package infra

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
)

// Event topics. Brokers prefix them with EVENTS_PREFIX.
const (
	TemaPedidoFinalizado    = "pedido.finalizado"
	TemaPedidoGuardado      = "pedido.guardado"
	TemaPedidoEliminado     = "pedido.eliminado"
	TemaTicketCompletado    = "cocina.ticket.completado"
	TemaPagoRegistrado      = "pago.registrado"
	TemaPagoCompletado      = "pago.completado"
	TemaLimpiezaEjecutada   = "limpieza.ejecutada"
	TemaCuentaRegresiva     = "limpieza.cuenta_regresiva"
	TemaComprobanteGenerado = "comprobante.generado"
)

// Evento is the envelope every publisher sends.
type Evento struct {
	Tema      string          `json:"tema"`
	Timestamp int64           `json:"timestamp"`
	Datos     json.RawMessage `json:"datos"`
}

func NuevoEvento(tema string, datos any) (Evento, error) {
	b, err := json.Marshal(datos)
	if err != nil {
		return Evento{}, err
	}
	return Evento{Tema: tema, Timestamp: time.Now().UnixMilli(), Datos: b}, nil
}

// Publicador delivers domain events. Publishing is best effort: callers log
// failures and never roll back committed state because of them.
type Publicador interface {
	Publicar(ctx context.Context, tema string, datos any) error
}

type nopPublicador struct{}

// NopPublicador discards everything. Used when EVENTS_DRIVER=none and in tests.
func NopPublicador() Publicador { return nopPublicador{} }

func (nopPublicador) Publicar(context.Context, string, any) error { return nil }

type multiPublicador []Publicador

// MultiPublicador fans out to every non-nil publisher and joins the errors.
func MultiPublicador(ps ...Publicador) Publicador {
	var out multiPublicador
	for _, p := range ps {
		if p != nil {
			out = append(out, p)
		}
	}
	return out
}

func (m multiPublicador) Publicar(ctx context.Context, tema string, datos any) error {
	var errs []error
	for _, p := range m {
		if err := p.Publicar(ctx, tema, datos); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type publicadorResiliente struct {
	inner  Publicador
	cb     *Cortacircuitos
	nombre string
}

// ConCortacircuitos wraps a broker publisher so an unreachable broker costs
// one fast error per event instead of a network timeout.
func ConCortacircuitos(nombre string, p Publicador, cfg ConfigCircuito) Publicador {
	return &publicadorResiliente{inner: p, cb: NewCortacircuitos(cfg), nombre: nombre}
}

func (r *publicadorResiliente) Publicar(ctx context.Context, tema string, datos any) error {
	err := r.cb.Ejecutar(func() error { return r.inner.Publicar(ctx, tema, datos) })
	if errors.Is(err, ErrCircuitoAbierto) {
		log.Debug().Str("broker", r.nombre).Str("tema", tema).Msg("eventos: circuito abierto, evento descartado")
	}
	return err
}
