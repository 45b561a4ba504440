package handler

import (
	"fmt"
	"net/http"

	"comanda/internal/repository"
	"comanda/internal/service"

	"github.com/gin-gonic/gin"
)

type HistorialHandler struct {
	svc      service.HistorialService
	despacho service.DespachoService
	sesiones repository.SesionRepository
}

func NewHistorialHandler(svc service.HistorialService, despacho service.DespachoService, sesiones repository.SesionRepository) *HistorialHandler {
	return &HistorialHandler{svc: svc, despacho: despacho, sesiones: sesiones}
}

// Listar godoc
// @Summary      Historial de pedidos
// @Description  El más reciente primero.
// @Tags         historial
// @Produce      json
// @Success      200 {array} model.RegistroHistorial
// @Router       /v1/historial [get]
func (h *HistorialHandler) Listar(c *gin.Context) {
	regs, err := h.svc.Listar(c.Request.Context())
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, regs)
}

// Obtener godoc
// @Summary      Pedido del historial
// @Tags         historial
// @Produce      json
// @Param        id  path     string true "ID del pedido"
// @Success      200 {object} model.RegistroHistorial
// @Failure      404 {object} apierror.APIError
// @Router       /v1/historial/{id} [get]
func (h *HistorialHandler) Obtener(c *gin.Context) {
	reg, err := h.svc.Obtener(c.Request.Context(), c.Param("id"))
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, reg)
}

// Comprobante godoc
// @Summary      Reimprimir comprobante
// @Tags         historial
// @Produce      application/pdf
// @Param        id  path     string true "ID del pedido"
// @Success      200 {file}   binary
// @Failure      404 {object} apierror.APIError
// @Router       /v1/historial/{id}/comprobante [get]
func (h *HistorialHandler) Comprobante(c *gin.Context) {
	id := c.Param("id")
	pdf, err := h.svc.Comprobante(c.Request.Context(), id)
	if err != nil {
		responderError(c, err)
		return
	}
	enviarPDF(c, id, pdf)
}

// ComprobanteGuardado godoc
// @Summary      Comprobante generado al finalizar
// @Description  Puede haber sido descartado si el almacenamiento se llenó; en ese caso usar /v1/historial/{id}/comprobante.
// @Tags         historial
// @Produce      application/pdf
// @Param        id  path     string true "ID del pedido"
// @Success      200 {file}   binary
// @Failure      404 {object} apierror.APIError
// @Router       /v1/comprobantes/{id} [get]
func (h *HistorialHandler) ComprobanteGuardado(c *gin.Context) {
	cg, err := h.svc.ComprobanteGuardado(c.Request.Context(), c.Param("id"))
	if err != nil {
		responderError(c, err)
		return
	}
	enviarPDF(c, cg.ID, cg.PDF)
}

func enviarPDF(c *gin.Context, id string, pdf []byte) {
	c.Header("Content-Disposition", fmt.Sprintf(`inline; filename="comprobante-%s.pdf"`, id))
	c.Data(http.StatusOK, "application/pdf", pdf)
}

// Editar godoc
// @Summary      Editar pedido del historial
// @Description  Abre un pedido nuevo con los ítems del original. Al finalizarlo reemplaza al original en todos los registros.
// @Tags         historial
// @Produce      json
// @Param        id  path     string true "ID del pedido original"
// @Success      201 {object} model.Pedido
// @Failure      404 {object} apierror.APIError
// @Router       /v1/historial/{id}/editar [post]
func (h *HistorialHandler) Editar(c *gin.Context) {
	p, err := h.despacho.EditarDesdeHistorial(c.Request.Context(), c.Param("id"))
	if err != nil {
		responderError(c, err)
		return
	}
	if err := h.sesiones.Guardar(c.Request.Context(), p); err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

// Eliminar godoc
// @Summary      Eliminar pedido
// @Description  Lo quita del historial, la cocina y los pagos.
// @Tags         historial
// @Param        id path string true "ID del pedido"
// @Success      204
// @Failure      404 {object} apierror.APIError
// @Router       /v1/historial/{id} [delete]
func (h *HistorialHandler) Eliminar(c *gin.Context) {
	if err := h.svc.Eliminar(c.Request.Context(), c.Param("id")); err != nil {
		responderError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
