package repository

import (
	"context"
	"sync"
)

type memoryKV struct {
	mu       sync.RWMutex
	datos    map[string][]byte
	maxBytes int
}

// NewMemoryKV returns a process-local store. maxBytes > 0 emulates a browser
// storage quota: a write that would push keys+values past it is refused whole.
func NewMemoryKV(maxBytes int) KV {
	return &memoryKV{datos: make(map[string][]byte), maxBytes: maxBytes}
}

func (m *memoryKV) Get(_ context.Context, clave string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.datos[clave]
	if !ok {
		return nil, ErrClaveNoExiste
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (m *memoryKV) SetMany(_ context.Context, valores map[string][]byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.maxBytes > 0 {
		total := 0
		for k, v := range m.datos {
			if _, reemplazado := valores[k]; !reemplazado {
				total += len(k) + len(v)
			}
		}
		for k, v := range valores {
			total += len(k) + len(v)
		}
		if total > m.maxBytes {
			return ErrCuotaExcedida
		}
	}

	for k, v := range valores {
		cp := make([]byte, len(v))
		copy(cp, v)
		m.datos[k] = cp
	}
	return nil
}

func (m *memoryKV) Delete(_ context.Context, claves ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range claves {
		delete(m.datos, k)
	}
	return nil
}

func (m *memoryKV) Ping(context.Context) error { return nil }
