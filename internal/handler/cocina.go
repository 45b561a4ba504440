package handler

import (
	"net/http"

	"comanda/internal/service"

	"github.com/gin-gonic/gin"
)

type CocinaHandler struct{ svc service.CocinaService }

func NewCocinaHandler(svc service.CocinaService) *CocinaHandler { return &CocinaHandler{svc: svc} }

// Listar godoc
// @Summary      Tickets pendientes de cocina
// @Description  Ordenados por llegada, el más antiguo primero.
// @Tags         cocina
// @Produce      json
// @Success      200 {array} model.TicketCocina
// @Router       /v1/cocina [get]
func (h *CocinaHandler) Listar(c *gin.Context) {
	tickets, err := h.svc.ListarPendientes(c.Request.Context())
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, tickets)
}

// Completar godoc
// @Summary      Marcar ticket como servido
// @Tags         cocina
// @Produce      json
// @Param        id  path     string true "ID del pedido"
// @Success      200 {object} model.TicketCocina
// @Failure      404 {object} apierror.APIError
// @Router       /v1/cocina/{id}/completar [post]
func (h *CocinaHandler) Completar(c *gin.Context) {
	t, err := h.svc.CompletarTicket(c.Request.Context(), c.Param("id"))
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}
