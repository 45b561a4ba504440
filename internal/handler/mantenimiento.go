package handler

import (
	"net/http"

	"comanda/internal/dto"
	"comanda/internal/service"
	"comanda/internal/worker"

	"github.com/gin-gonic/gin"
)

type MantenimientoHandler struct{ despacho service.DespachoService }

func NewMantenimientoHandler(despacho service.DespachoService) *MantenimientoHandler {
	return &MantenimientoHandler{despacho: despacho}
}

// Limpieza godoc
// @Summary      Tiempo hasta la próxima limpieza
// @Tags         mantenimiento
// @Produce      json
// @Success      200 {object} worker.CuentaRegresiva
// @Router       /v1/mantenimiento/limpieza [get]
func (h *MantenimientoHandler) Limpieza(c *gin.Context) {
	restante, err := h.despacho.TiempoRestante(c.Request.Context())
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, worker.NuevaCuentaRegresiva(restante))
}

// Ejecutar godoc
// @Summary      Ejecutar mantenimiento
// @Description  Limpieza por antigüedad si corresponde, purga de completados y migración de pedidos guardados e historial.
// @Tags         mantenimiento
// @Produce      json
// @Success      200 {object} service.ResumenMantenimiento
// @Failure      503 {object} apierror.APIError
// @Router       /v1/mantenimiento/ejecutar [post]
func (h *MantenimientoHandler) Ejecutar(c *gin.Context) {
	r, err := h.despacho.Mantenimiento(c.Request.Context())
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

// PurgarCompletados godoc
// @Summary      Purgar pedidos pagados
// @Tags         mantenimiento
// @Produce      json
// @Success      200 {object} dto.PurgaResponse
// @Router       /v1/mantenimiento/purgar-completados [post]
func (h *MantenimientoHandler) PurgarCompletados(c *gin.Context) {
	ids, err := h.despacho.PurgarCompletados(c.Request.Context())
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.PurgaResponse{Purgado: len(ids) > 0, IDs: ids})
}

// PurgarAntiguos godoc
// @Summary      Limpieza por antigüedad
// @Description  Respalda y vacía historial, cocina y pagos si pasó el umbral. Con forzar=true no espera el umbral.
// @Tags         mantenimiento
// @Produce      json
// @Param        forzar query bool false "Ignorar el umbral"
// @Success      200 {object} dto.PurgaResponse
// @Router       /v1/mantenimiento/purgar-antiguos [post]
func (h *MantenimientoHandler) PurgarAntiguos(c *gin.Context) {
	var q dto.PurgarAntiguosFilter
	if !bindQuery(c, &q) {
		return
	}
	ok, err := h.despacho.PurgarAntiguos(c.Request.Context(), q.Forzar)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.PurgaResponse{Purgado: ok})
}
