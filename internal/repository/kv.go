package repository

import (
	"context"
	"errors"
)

var (
	// ErrClaveNoExiste is returned by Get for a key that was never written.
	ErrClaveNoExiste = errors.New("clave no existe")
	// ErrCuotaExcedida means the backend refused the write for lack of space.
	ErrCuotaExcedida = errors.New("cuota de almacenamiento excedida")
)

// KV is the string-keyed blob store every persisted collection lives in.
// Values are JSON documents; the store never interprets them.
type KV interface {
	Get(ctx context.Context, clave string) ([]byte, error)
	// SetMany writes every pair or none.
	SetMany(ctx context.Context, valores map[string][]byte) error
	Delete(ctx context.Context, claves ...string) error
	Ping(ctx context.Context) error
}
