package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"comanda/internal/model"
)

// SesionRepository keeps in-progress builder contexts between HTTP requests.
// Each order being composed lives under its own key, outside the Almacen
// collections, so composing never contends with dispatch.
//
// Bloquear serializes load→mutate→save cycles on one order inside this
// process; callers release with the returned func.
type SesionRepository interface {
	Obtener(ctx context.Context, id string) (*model.Pedido, error)
	Guardar(ctx context.Context, p *model.Pedido) error
	Eliminar(ctx context.Context, id string) error
	Bloquear(id string) (liberar func())
}

type sesionRepo struct {
	kv KV

	mu       sync.Mutex
	cerrojos map[string]*cerrojo
}

// cerrojo is a per-order mutex, dropped when nobody holds or waits on it.
type cerrojo struct {
	sync.Mutex
	usos int
}

func NewSesionRepository(kv KV) SesionRepository {
	return &sesionRepo{kv: kv, cerrojos: map[string]*cerrojo{}}
}

func (r *sesionRepo) Obtener(ctx context.Context, id string) (*model.Pedido, error) {
	raw, err := r.kv.Get(ctx, prefijoSesion+id)
	if err != nil {
		return nil, err
	}
	var p model.Pedido
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("sesion %s corrupta: %w", id, err)
	}
	return &p, nil
}

// Guardar shares the Almacen write path, so a full store evicts the saved
// receipts before giving up.
func (r *sesionRepo) Guardar(ctx context.Context, p *model.Pedido) error {
	if p == nil || p.ID == "" {
		return errors.New("pedido sin id")
	}
	b, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return escribir(ctx, r.kv, map[string][]byte{prefijoSesion + p.ID: b})
}

func (r *sesionRepo) Eliminar(ctx context.Context, id string) error {
	return r.kv.Delete(ctx, prefijoSesion+id)
}

func (r *sesionRepo) Bloquear(id string) func() {
	r.mu.Lock()
	c, ok := r.cerrojos[id]
	if !ok {
		c = &cerrojo{}
		r.cerrojos[id] = c
	}
	c.usos++
	r.mu.Unlock()

	c.Lock()
	var una sync.Once
	return func() {
		una.Do(func() {
			c.Unlock()
			r.mu.Lock()
			c.usos--
			if c.usos == 0 {
				delete(r.cerrojos, id)
			}
			r.mu.Unlock()
		})
	}
}
