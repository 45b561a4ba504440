package infra

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

type PublicadorNATS struct {
	conn    *nats.Conn
	prefijo string
}

// NewPublicadorNATS connects with unlimited reconnects; messages published
// while disconnected are buffered by the client.
func NewPublicadorNATS(url, prefijo string) (*PublicadorNATS, error) {
	conn, err := nats.Connect(url,
		nats.Name("comanda"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn().Err(err).Msg("nats: desconectado")
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info().Str("url", c.ConnectedUrl()).Msg("nats: reconectado")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("nats: conectar: %w", err)
	}
	return &PublicadorNATS{conn: conn, prefijo: prefijo}, nil
}

func (p *PublicadorNATS) Publicar(_ context.Context, tema string, datos any) error {
	ev, err := NuevoEvento(tema, datos)
	if err != nil {
		return err
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return p.conn.Publish(asunto(p.prefijo, tema), body)
}

func (p *PublicadorNATS) Close() {
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
	}
}

func asunto(prefijo, tema string) string {
	if prefijo == "" {
		return tema
	}
	return prefijo + "." + tema
}
