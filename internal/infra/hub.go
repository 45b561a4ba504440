package infra

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const esperaEscritura = 5 * time.Second

// Hub pushes events to every connected websocket client (kitchen screens,
// the purge countdown banner). It implements Publicador.
type Hub struct {
	clientes   map[*websocket.Conn]bool
	broadcast  chan []byte
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	mu         sync.Mutex
}

func NewHub() *Hub {
	return &Hub{
		clientes:   make(map[*websocket.Conn]bool),
		broadcast:  make(chan []byte, 64),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
	}
}

// Run owns the client set until ctx is cancelled, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clientes {
				_ = c.Close()
				delete(h.clientes, c)
			}
			h.mu.Unlock()
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clientes[c] = true
			h.mu.Unlock()

		case c := <-h.unregister:
			h.mu.Lock()
			if h.clientes[c] {
				delete(h.clientes, c)
				_ = c.Close()
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.mu.Lock()
			for c := range h.clientes {
				_ = c.SetWriteDeadline(time.Now().Add(esperaEscritura))
				if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
					log.Debug().Err(err).Msg("ws: cliente descartado")
					_ = c.Close()
					delete(h.clientes, c)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Registrar adds an upgraded connection and blocks reading from it until
// the client goes away. Incoming messages are ignored.
func (h *Hub) Registrar(ctx context.Context, c *websocket.Conn) {
	select {
	case h.register <- c:
	case <-ctx.Done():
		_ = c.Close()
		return
	}
	defer func() {
		select {
		case h.unregister <- c:
		case <-ctx.Done():
		}
	}()
	for {
		if _, _, err := c.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) Clientes() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clientes)
}

var ErrHubSaturado = errors.New("ws: cola de difusión llena")

func (h *Hub) Publicar(ctx context.Context, tema string, datos any) error {
	ev, err := NuevoEvento(tema, datos)
	if err != nil {
		return err
	}
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	select {
	case h.broadcast <- b:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		// a stuck client must not stall the service that published
		return ErrHubSaturado
	}
}
