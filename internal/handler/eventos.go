package handler

import (
	"net/http"

	"comanda/internal/infra"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Eventos upgrades to a websocket that receives every published event:
// kitchen updates, payments and the purge countdown.
//
// @Summary      Feed de eventos en vivo
// @Tags         eventos
// @Success      101
// @Router       /ws/eventos [get]
func Eventos(hub *infra.Hub, origenes []string) gin.HandlerFunc {
	permitidos := make(map[string]bool, len(origenes))
	todos := false
	for _, o := range origenes {
		if o == "*" {
			todos = true
		}
		permitidos[o] = true
	}
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			o := r.Header.Get("Origin")
			return o == "" || todos || permitidos[o]
		},
	}

	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Debug().Err(err).Msg("ws: upgrade rechazado")
			return
		}
		hub.Registrar(c.Request.Context(), conn)
	}
}
