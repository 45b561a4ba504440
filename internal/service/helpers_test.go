package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"comanda/internal/catalogo"
	"comanda/internal/infra"
	"comanda/internal/model"
	"comanda/internal/repository"
	"comanda/internal/service"

	"github.com/stretchr/testify/require"
)

// ── Stubs ─────────────────────────────────────────────────────────────────────

type stubPublicador struct {
	mu    sync.Mutex
	temas []string
}

func (p *stubPublicador) Publicar(_ context.Context, tema string, _ any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.temas = append(p.temas, tema)
	return nil
}

func (p *stubPublicador) publicados(tema string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, t := range p.temas {
		if t == tema {
			n++
		}
	}
	return n
}

var _ infra.Publicador = (*stubPublicador)(nil)

type stubEncolador struct {
	pedidos []model.Pedido
	err     error
}

func (e *stubEncolador) EncolarComprobante(_ context.Context, p model.Pedido) error {
	e.pedidos = append(e.pedidos, p)
	return e.err
}

var _ service.ComprobanteEncolador = (*stubEncolador)(nil)

// ── Entorno ───────────────────────────────────────────────────────────────────

const umbralPrueba = 6 * time.Hour

// entorno wires every service over one in-memory store with a clock the
// test moves by hand.
type entorno struct {
	ahora time.Time

	kv      repository.KV
	almacen repository.Almacen
	cat     *catalogo.Catalogo
	pub     *stubPublicador
	enc     *stubEncolador

	constructor  service.ConstructorService
	despacho     service.DespachoService
	cocina       service.CocinaService
	pagos        service.PagoService
	historial    service.HistorialService
	estadisticas service.EstadisticasService
}

func nuevoEntorno(t *testing.T) *entorno {
	t.Helper()
	cat, err := catalogo.Cargar()
	require.NoError(t, err)

	loc, err := time.LoadLocation("America/Guayaquil")
	require.NoError(t, err)

	e := &entorno{
		// a Wednesday
		ahora: time.Date(2024, 5, 15, 13, 30, 0, 0, loc),
		kv:    repository.NewMemoryKV(0),
		cat:   cat,
		pub:   &stubPublicador{},
		enc:   &stubEncolador{},
	}
	reloj := service.Reloj(func() time.Time { return e.ahora })
	e.almacen = repository.NewAlmacen(e.kv)
	e.constructor = service.NewConstructorService(cat, reloj)
	e.despacho = service.NewDespachoService(e.almacen, cat, reloj, e.pub, e.enc, umbralPrueba)
	e.cocina = service.NewCocinaService(e.almacen, reloj, e.pub)
	e.pagos = service.NewPagoService(e.almacen, reloj, e.pub)
	e.historial = service.NewHistorialService(e.almacen, e.pub, "Comanda de Prueba")
	e.estadisticas = service.NewEstadisticasService(e.almacen, reloj)
	return e
}

func (e *entorno) avanzar(d time.Duration) { e.ahora = e.ahora.Add(d) }

// pedido builds a named order with the given catalog products added with
// their default selection.
func (e *entorno) pedido(t *testing.T, cliente, mesa string, productos ...int) *model.Pedido {
	t.Helper()
	p := e.constructor.Nuevo()
	e.constructor.AsignarCliente(p, cliente, mesa)
	for _, id := range productos {
		_, err := e.constructor.AgregarProducto(p, id, nil)
		require.NoError(t, err)
	}
	return p
}

// finalizado finalizes a fresh order and returns its id.
func (e *entorno) finalizado(t *testing.T, productos ...int) string {
	t.Helper()
	reg, err := e.despacho.Finalizar(context.Background(), e.pedido(t, "Ana", "4", productos...))
	require.NoError(t, err)
	return reg.ID
}

type estado struct {
	historial []model.RegistroHistorial
	cocina    []model.TicketCocina
	pagos     []model.RegistroPago
	reportes  []model.ReportePago
	guardados []model.Pedido
}

func (e *entorno) leer(t *testing.T) estado {
	t.Helper()
	var s estado
	err := e.almacen.View(context.Background(), func(tx *repository.Tx) error {
		var err error
		if s.historial, err = tx.Historial(); err != nil {
			return err
		}
		if s.cocina, err = tx.Cocina(); err != nil {
			return err
		}
		if s.pagos, err = tx.Pagos(); err != nil {
			return err
		}
		if s.reportes, err = tx.Reportes(); err != nil {
			return err
		}
		s.guardados, err = tx.Guardados()
		return err
	})
	require.NoError(t, err)
	return s
}

func (s estado) pago(id string) (model.RegistroPago, bool) {
	for _, p := range s.pagos {
		if p.ID == id {
			return p, true
		}
	}
	return model.RegistroPago{}, false
}

func (s estado) enHistorial(id string) (model.RegistroHistorial, bool) {
	for _, h := range s.historial {
		if h.ID == id {
			return h, true
		}
	}
	return model.RegistroHistorial{}, false
}

func (s estado) enCocina(id string) (model.TicketCocina, bool) {
	for _, c := range s.cocina {
		if c.ID == id {
			return c, true
		}
	}
	return model.TicketCocina{}, false
}
