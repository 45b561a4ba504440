package infra

import (
	"errors"
	"sync"
	"time"
)

// ── Circuit breaker ───────────────────────────────────────────────────────────
// Guards calls to the event broker. After enough consecutive failures the
// breaker opens and publishing fails fast until enfriamiento elapses; then a
// single probe decides whether it closes again.

type EstadoCircuito int

const (
	CircuitoCerrado EstadoCircuito = iota
	CircuitoAbierto
	CircuitoSemiabierto
)

func (e EstadoCircuito) String() string {
	switch e {
	case CircuitoCerrado:
		return "cerrado"
	case CircuitoAbierto:
		return "abierto"
	case CircuitoSemiabierto:
		return "semiabierto"
	default:
		return "desconocido"
	}
}

var ErrCircuitoAbierto = errors.New("circuito abierto")

type ConfigCircuito struct {
	FallasParaAbrir  int           // consecutive failures that open the breaker
	ExitosParaCerrar int           // consecutive probe successes that close it
	Enfriamiento     time.Duration // time spent open before probing
}

func ConfigCircuitoPorDefecto() ConfigCircuito {
	return ConfigCircuito{FallasParaAbrir: 5, ExitosParaCerrar: 1, Enfriamiento: 30 * time.Second}
}

type Cortacircuitos struct {
	mu          sync.Mutex
	estado      EstadoCircuito
	fallas      int
	exitos      int
	ultimaFalla time.Time
	cfg         ConfigCircuito
	ahora       func() time.Time
}

func NewCortacircuitos(cfg ConfigCircuito) *Cortacircuitos {
	def := ConfigCircuitoPorDefecto()
	if cfg.FallasParaAbrir <= 0 {
		cfg.FallasParaAbrir = def.FallasParaAbrir
	}
	if cfg.ExitosParaCerrar <= 0 {
		cfg.ExitosParaCerrar = def.ExitosParaCerrar
	}
	if cfg.Enfriamiento <= 0 {
		cfg.Enfriamiento = def.Enfriamiento
	}
	return &Cortacircuitos{estado: CircuitoCerrado, cfg: cfg, ahora: time.Now}
}

// Estado moves an open breaker to half-open once the cooldown is over.
func (c *Cortacircuitos) Estado() EstadoCircuito {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.estadoLocked()
}

func (c *Cortacircuitos) estadoLocked() EstadoCircuito {
	if c.estado == CircuitoAbierto && c.ahora().Sub(c.ultimaFalla) >= c.cfg.Enfriamiento {
		c.estado = CircuitoSemiabierto
		c.exitos = 0
	}
	return c.estado
}

func (c *Cortacircuitos) Ejecutar(fn func() error) error {
	if c.Estado() == CircuitoAbierto {
		return ErrCircuitoAbierto
	}

	err := fn()

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.fallas++
		c.ultimaFalla = c.ahora()
		if c.estado == CircuitoSemiabierto || c.fallas >= c.cfg.FallasParaAbrir {
			c.estado = CircuitoAbierto
			c.fallas = 0
		}
		return err
	}

	switch c.estado {
	case CircuitoCerrado:
		c.fallas = 0
	case CircuitoSemiabierto:
		c.exitos++
		if c.exitos >= c.cfg.ExitosParaCerrar {
			c.estado = CircuitoCerrado
			c.fallas, c.exitos = 0, 0
		}
	}
	return nil
}
