package handler

import (
	"context"
	"net/http"
	"time"

	"comanda/internal/infra"
	"comanda/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// Health returns a JSON health check response.
// Checks the store and, when configured, the job-queue Redis; never exposes
// credentials or internals.
func Health(kv repository.KV, rdb *redis.Client, hub *infra.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		storeStatus := "connected"
		if kv.Ping(ctx) != nil {
			storeStatus = "error"
		}

		colaStatus := "inline"
		if rdb != nil {
			colaStatus = "connected"
			if rdb.Ping(ctx).Err() != nil {
				colaStatus = "error"
			}
		}

		status := http.StatusOK
		if storeStatus != "connected" || colaStatus == "error" {
			status = http.StatusServiceUnavailable
		}

		body := gin.H{
			"ok":    status == http.StatusOK,
			"store": storeStatus,
			"cola":  colaStatus,
		}
		if hub != nil {
			body["ws_clientes"] = hub.Clientes()
		}
		c.JSON(status, body)
	}
}
