package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"comanda/internal/apierror"
	"comanda/internal/model"

	"github.com/rs/zerolog/log"
)

// Almacen is the single entry point for every multi-collection change.
// History, kitchen and payments keep denormalized copies of the same order,
// so all three are loaded, mutated and written back inside one RunTx.
type Almacen interface {
	// RunTx runs fn and, if it returns nil, writes every collection fn
	// changed in one atomic SetMany. A failing fn writes nothing.
	RunTx(ctx context.Context, fn func(tx *Tx) error) error
	// View runs fn against a consistent snapshot; writes are discarded.
	View(ctx context.Context, fn func(tx *Tx) error) error
}

type almacen struct {
	kv KV
	// serializes load→mutate→write cycles within this process
	mu sync.Mutex
}

func NewAlmacen(kv KV) Almacen {
	return &almacen{kv: kv}
}

// Tx is a unit of work over the persisted collections. Collections are
// loaded lazily on first access and cached for the rest of the Tx.
type Tx struct {
	ctx    context.Context
	kv     KV
	cache  map[string]any
	sucios map[string]any
}

func (a *almacen) RunTx(ctx context.Context, fn func(tx *Tx) error) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	tx := a.nuevaTx(ctx)
	if err := fn(tx); err != nil {
		return err
	}
	return a.commit(ctx, tx)
}

func (a *almacen) View(ctx context.Context, fn func(tx *Tx) error) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return fn(a.nuevaTx(ctx))
}

func (a *almacen) nuevaTx(ctx context.Context) *Tx {
	return &Tx{ctx: ctx, kv: a.kv, cache: map[string]any{}, sucios: map[string]any{}}
}

// commit writes the changed collections. On quota errors the saved receipts
// are evicted and the write is retried once.
func (a *almacen) commit(ctx context.Context, tx *Tx) error {
	if len(tx.sucios) == 0 {
		return nil
	}
	valores := make(map[string][]byte, len(tx.sucios))
	for k, v := range tx.sucios {
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("serializar %s: %w", k, err)
		}
		valores[k] = b
	}

	return escribir(ctx, a.kv, valores)
}

// escribir stores valores in one SetMany. On quota errors the saved
// receipts are evicted and the write is retried exactly once.
func escribir(ctx context.Context, kv KV, valores map[string][]byte) error {
	err := kv.SetMany(ctx, valores)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrCuotaExcedida) {
		return apierror.Persistencia("No se pudo guardar en el almacenamiento", err)
	}

	log.Warn().Err(err).Msg("almacen: cuota excedida, eliminando comprobantes guardados")
	if derr := kv.Delete(ctx, ClaveComprobantes); derr != nil {
		return apierror.Persistencia("No se pudo liberar espacio de almacenamiento", derr)
	}
	delete(valores, ClaveComprobantes)
	if len(valores) == 0 {
		return apierror.Persistencia("Almacenamiento lleno: no se pudo guardar el comprobante", err)
	}
	if err := kv.SetMany(ctx, valores); err != nil {
		log.Error().Err(err).Msg("almacen: reintento de escritura fallido")
		return apierror.Persistencia("Almacenamiento lleno: los cambios no se guardaron", err)
	}
	return nil
}

func (tx *Tx) Context() context.Context { return tx.ctx }

// cargar decodes a collection, treating a missing key as empty. Corrupt
// blobs are logged and also read as empty so one bad key cannot lock the
// terminal out of every operation.
func cargar[T any](tx *Tx, clave string) (T, error) {
	if v, ok := tx.cache[clave]; ok {
		return v.(T), nil
	}
	var out T
	raw, err := tx.kv.Get(tx.ctx, clave)
	switch {
	case errors.Is(err, ErrClaveNoExiste):
	case err != nil:
		return out, apierror.Persistencia("No se pudo leer el almacenamiento", err)
	default:
		if jerr := json.Unmarshal(raw, &out); jerr != nil {
			log.Warn().Err(jerr).Str("clave", clave).Msg("almacen: datos corruptos, se leen como vacíos")
			var vacio T
			out = vacio
		}
	}
	tx.cache[clave] = out
	return out, nil
}

func (tx *Tx) guardar(clave string, v any) {
	tx.cache[clave] = v
	tx.sucios[clave] = v
}

// ── Collections ──────────────────────────────────────────────────────────────

func (tx *Tx) Historial() ([]model.RegistroHistorial, error) {
	return cargar[[]model.RegistroHistorial](tx, ClaveHistorial)
}

func (tx *Tx) GuardarHistorial(v []model.RegistroHistorial) { tx.guardar(ClaveHistorial, noNil(v)) }

func (tx *Tx) Cocina() ([]model.TicketCocina, error) {
	return cargar[[]model.TicketCocina](tx, ClaveCocina)
}

func (tx *Tx) GuardarCocina(v []model.TicketCocina) { tx.guardar(ClaveCocina, noNil(v)) }

func (tx *Tx) Pagos() ([]model.RegistroPago, error) {
	return cargar[[]model.RegistroPago](tx, ClavePagos)
}

func (tx *Tx) GuardarPagos(v []model.RegistroPago) { tx.guardar(ClavePagos, noNil(v)) }

func (tx *Tx) Reportes() ([]model.ReportePago, error) {
	return cargar[[]model.ReportePago](tx, ClaveReportes)
}

func (tx *Tx) GuardarReportes(v []model.ReportePago) { tx.guardar(ClaveReportes, noNil(v)) }

// Guardados is the legacy drafts bucket, read only by migration and purge.
func (tx *Tx) Guardados() ([]model.Pedido, error) {
	return cargar[[]model.Pedido](tx, ClaveGuardados)
}

func (tx *Tx) GuardarGuardados(v []model.Pedido) { tx.guardar(ClaveGuardados, noNil(v)) }

func (tx *Tx) Comprobantes() ([]model.ComprobanteGuardado, error) {
	return cargar[[]model.ComprobanteGuardado](tx, ClaveComprobantes)
}

func (tx *Tx) GuardarComprobantes(v []model.ComprobanteGuardado) {
	tx.guardar(ClaveComprobantes, noNil(v))
}

// UltimaLimpieza returns the last purge time in Unix ms; ok is false when
// no purge was ever recorded.
func (tx *Tx) UltimaLimpieza() (ms int64, ok bool, err error) {
	v, err := cargar[json.RawMessage](tx, ClaveUltimaLimpieza)
	if err != nil || len(v) == 0 {
		return 0, false, err
	}
	// legacy values were written as a quoted string
	s := string(v)
	if uq, uerr := strconv.Unquote(s); uerr == nil {
		s = uq
	}
	ms, perr := strconv.ParseInt(s, 10, 64)
	if perr != nil {
		log.Warn().Str("valor", s).Msg("almacen: ultima_limpieza inválida")
		return 0, false, nil
	}
	return ms, true, nil
}

func (tx *Tx) GuardarUltimaLimpieza(ms int64) {
	tx.guardar(ClaveUltimaLimpieza, json.RawMessage(strconv.FormatInt(ms, 10)))
}

// GuardarRespaldo writes an arbitrary snapshot under a backup key.
func (tx *Tx) GuardarRespaldo(clave string, v any) { tx.guardar(clave, v) }

func noNil[T any](v []T) []T {
	if v == nil {
		return []T{}
	}
	return v
}
