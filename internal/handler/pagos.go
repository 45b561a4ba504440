package handler

import (
	"net/http"

	"comanda/internal/dto"
	"comanda/internal/service"

	"github.com/gin-gonic/gin"
)

type PagosHandler struct{ svc service.PagoService }

func NewPagosHandler(svc service.PagoService) *PagosHandler { return &PagosHandler{svc: svc} }

// Listar godoc
// @Summary      Pagos pendientes
// @Tags         pagos
// @Produce      json
// @Success      200 {array} model.RegistroPago
// @Router       /v1/pagos [get]
func (h *PagosHandler) Listar(c *gin.Context) {
	pagos, err := h.svc.ListarPendientes(c.Request.Context())
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, pagos)
}

// Reportes godoc
// @Summary      Registro de pagos
// @Description  Un registro por cada pago, completo o parcial.
// @Tags         pagos
// @Produce      json
// @Success      200 {array} model.ReportePago
// @Router       /v1/pagos/reportes [get]
func (h *PagosHandler) Reportes(c *gin.Context) {
	reportes, err := h.svc.ListarReportes(c.Request.Context())
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, reportes)
}

// Original godoc
// @Summary      Pedido original de un pago
// @Tags         pagos
// @Produce      json
// @Param        id  path     string true "ID del pedido"
// @Success      200 {object} model.Pedido
// @Failure      404 {object} apierror.APIError
// @Router       /v1/pagos/{id}/original [get]
func (h *PagosHandler) Original(c *gin.Context) {
	p, err := h.svc.VerOriginal(c.Request.Context(), c.Param("id"))
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// Completo godoc
// @Summary      Pago completo
// @Description  Cobra el saldo pendiente y cierra el pedido.
// @Tags         pagos
// @Produce      json
// @Param        id  path     string true "ID del pedido"
// @Success      200 {object} model.RegistroPago
// @Failure      404 {object} apierror.APIError
// @Router       /v1/pagos/{id}/completo [post]
func (h *PagosHandler) Completo(c *gin.Context) {
	p, err := h.svc.PagarCompleto(c.Request.Context(), c.Param("id"))
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// Parcial godoc
// @Summary      Pago parcial
// @Description  Cobra un subconjunto de los ítems pendientes. El monto debe coincidir con la suma de los ítems.
// @Tags         pagos
// @Accept       json
// @Produce      json
// @Param        id   path     string                 true "ID del pedido"
// @Param        body body     dto.PagoParcialRequest true "Ítems y monto"
// @Success      200  {object} model.RegistroPago
// @Failure      404  {object} apierror.APIError
// @Failure      422  {object} apierror.APIError
// @Router       /v1/pagos/{id}/parcial [post]
func (h *PagosHandler) Parcial(c *gin.Context) {
	var req dto.PagoParcialRequest
	if !bindAndValidate(c, &req) {
		return
	}
	p, err := h.svc.PagarParcial(c.Request.Context(), c.Param("id"), req.ItemIDs, req.Monto)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}
