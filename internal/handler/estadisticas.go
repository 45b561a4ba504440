package handler

import (
	"net/http"
	"time"

	"comanda/internal/dto"
	"comanda/internal/service"

	"github.com/gin-gonic/gin"
)

type EstadisticasHandler struct {
	svc service.EstadisticasService
	loc *time.Location
}

func NewEstadisticasHandler(svc service.EstadisticasService, loc *time.Location) *EstadisticasHandler {
	return &EstadisticasHandler{svc: svc, loc: loc}
}

// Calcular godoc
// @Summary      Estadísticas de ventas
// @Description  Totales, productos más vendidos y pagos por día del período.
// @Tags         estadisticas
// @Produce      json
// @Param        periodo query string false "hoy | semana | mes | personalizado | todo (default: todo)"
// @Param        desde   query string false "YYYY-MM-DD, solo personalizado"
// @Param        hasta   query string false "YYYY-MM-DD, solo personalizado"
// @Success      200 {object} service.Estadisticas
// @Failure      422 {object} apierror.APIError
// @Router       /v1/estadisticas [get]
func (h *EstadisticasHandler) Calcular(c *gin.Context) {
	var q dto.EstadisticasFilter
	if !bindQuery(c, &q) {
		return
	}
	f := service.FiltroEstadisticas{Periodo: service.Periodo(q.Periodo)}
	// formats were checked by the datetime tag
	if q.Desde != "" {
		f.Desde, _ = time.ParseInLocation("2006-01-02", q.Desde, h.loc)
	}
	if q.Hasta != "" {
		f.Hasta, _ = time.ParseInLocation("2006-01-02", q.Hasta, h.loc)
	}

	est, err := h.svc.Calcular(c.Request.Context(), f)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, est)
}
