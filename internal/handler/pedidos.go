package handler

import (
	"errors"
	"net/http"
	"strconv"

	"comanda/internal/apierror"
	"comanda/internal/catalogo"
	"comanda/internal/dto"
	"comanda/internal/model"
	"comanda/internal/repository"
	"comanda/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// PedidosHandler drives the order builder. The builder context of every
// order being composed is kept in the session store between requests.
type PedidosHandler struct {
	cat         *catalogo.Catalogo
	constructor service.ConstructorService
	despacho    service.DespachoService
	sesiones    repository.SesionRepository
}

func NewPedidosHandler(
	cat *catalogo.Catalogo,
	constructor service.ConstructorService,
	despacho service.DespachoService,
	sesiones repository.SesionRepository,
) *PedidosHandler {
	return &PedidosHandler{cat: cat, constructor: constructor, despacho: despacho, sesiones: sesiones}
}

// cargar writes the error response itself and returns nil when the
// session cannot be loaded.
func (h *PedidosHandler) cargar(c *gin.Context) *model.Pedido {
	p, err := h.sesiones.Obtener(c.Request.Context(), c.Param("id"))
	if errors.Is(err, repository.ErrClaveNoExiste) {
		c.JSON(http.StatusNotFound, apierror.New("Pedido no encontrado"))
		return nil
	}
	if err != nil {
		_ = c.Error(err)
		return nil
	}
	return p
}

func (h *PedidosHandler) guardar(c *gin.Context, p *model.Pedido) bool {
	if err := h.sesiones.Guardar(c.Request.Context(), p); err != nil {
		responderError(c, apierror.Persistencia("No se pudo guardar el pedido en curso", err))
		return false
	}
	return true
}

func (h *PedidosHandler) cerrarSesion(c *gin.Context, id string) {
	if err := h.sesiones.Eliminar(c.Request.Context(), id); err != nil {
		log.Warn().Err(err).Str("pedido_id", id).Msg("pedidos: sesión no eliminada")
	}
}

// Crear godoc
// @Summary      Nuevo pedido
// @Description  Abre un pedido vacío para componer.
// @Tags         pedidos
// @Produce      json
// @Success      201 {object} model.Pedido
// @Failure      503 {object} apierror.APIError
// @Router       /v1/pedidos [post]
func (h *PedidosHandler) Crear(c *gin.Context) {
	p := h.constructor.Nuevo()
	if !h.guardar(c, p) {
		return
	}
	c.JSON(http.StatusCreated, p)
}

// Obtener godoc
// @Summary      Pedido en curso
// @Tags         pedidos
// @Produce      json
// @Param        id  path     string true "ID del pedido"
// @Success      200 {object} model.Pedido
// @Failure      404 {object} apierror.APIError
// @Router       /v1/pedidos/{id} [get]
func (h *PedidosHandler) Obtener(c *gin.Context) {
	if p := h.cargar(c); p != nil {
		c.JSON(http.StatusOK, p)
	}
}

// AsignarCliente godoc
// @Summary      Asignar cliente y mesa
// @Tags         pedidos
// @Accept       json
// @Produce      json
// @Param        id   path     string                    true "ID del pedido"
// @Param        body body     dto.AsignarClienteRequest true "Cliente y mesa"
// @Success      200  {object} model.Pedido
// @Failure      404  {object} apierror.APIError
// @Router       /v1/pedidos/{id}/cliente [put]
func (h *PedidosHandler) AsignarCliente(c *gin.Context) {
	defer h.sesiones.Bloquear(c.Param("id"))()
	var req dto.AsignarClienteRequest
	if !bindAndValidate(c, &req) {
		return
	}
	p := h.cargar(c)
	if p == nil {
		return
	}
	h.constructor.AsignarCliente(p, req.Cliente, req.Mesa)
	if !h.guardar(c, p) {
		return
	}
	c.JSON(http.StatusOK, p)
}

// Seleccion godoc
// @Summary      Opciones iniciales de un producto
// @Description  Indica qué diálogo de composición abrir y con qué valores por defecto.
// @Tags         pedidos
// @Produce      json
// @Param        id          path     string true "ID del pedido"
// @Param        producto_id path     int    true "ID del producto"
// @Success      200 {object} dto.SeleccionInicialResponse
// @Failure      404 {object} apierror.APIError
// @Router       /v1/pedidos/{id}/seleccion/{producto_id} [get]
func (h *PedidosHandler) Seleccion(c *gin.Context) {
	if h.cargar(c) == nil {
		return
	}
	prod, ok := h.producto(c)
	if !ok {
		return
	}
	sel := h.constructor.SeleccionInicial(prod)
	c.JSON(http.StatusOK, dto.SeleccionInicialResponse{
		Producto:     prod,
		Variante:     sel.Variante.String(),
		PideOpciones: sel.Variante.PideOpciones(),
		Seleccion:    sel,
	})
}

func (h *PedidosHandler) producto(c *gin.Context) (model.Producto, bool) {
	id, err := strconv.Atoi(c.Param("producto_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("ID de producto invalido"))
		return model.Producto{}, false
	}
	prod, ok := h.cat.Producto(id)
	if !ok {
		c.JSON(http.StatusNotFound, apierror.New("Producto no encontrado"))
		return model.Producto{}, false
	}
	return prod, true
}

// AgregarItem godoc
// @Summary      Agregar producto del catálogo
// @Tags         pedidos
// @Accept       json
// @Produce      json
// @Param        id   path     string                 true "ID del pedido"
// @Param        body body     dto.AgregarItemRequest true "Producto y selección"
// @Success      201  {object} dto.ItemAgregadoResponse
// @Failure      404  {object} apierror.APIError
// @Failure      422  {object} apierror.APIError
// @Router       /v1/pedidos/{id}/items [post]
func (h *PedidosHandler) AgregarItem(c *gin.Context) {
	defer h.sesiones.Bloquear(c.Param("id"))()
	var req dto.AgregarItemRequest
	if !bindAndValidate(c, &req) {
		return
	}
	p := h.cargar(c)
	if p == nil {
		return
	}

	var sel *service.Seleccion
	if req.Seleccion != nil {
		prod, ok := h.cat.Producto(req.ProductoID)
		if !ok {
			c.JSON(http.StatusNotFound, apierror.New("Producto no encontrado"))
			return
		}
		sel = seleccionDesde(h.constructor.Clasificar(prod), prod.ID, *req.Seleccion)
	}

	item, err := h.constructor.AgregarProducto(p, req.ProductoID, sel)
	if err != nil {
		responderError(c, err)
		return
	}
	if !h.guardar(c, p) {
		return
	}
	c.JSON(http.StatusCreated, dto.ItemAgregadoResponse{Item: item, Pedido: p})
}

func seleccionDesde(v service.Variante, productoID int, r dto.SeleccionRequest) *service.Seleccion {
	sel := &service.Seleccion{Variante: v, ProductoID: productoID}
	sel.ElegirTermino(r.TerminoID)
	sel.ElegirPorcion(r.PorcionID)
	if r.Mitades {
		sel.ElegirMitades(r.PrimeraMitadID, r.SegundaMitadID)
	}
	for _, id := range r.Extras {
		sel.AlternarExtra(id)
	}
	return sel
}

// VentaLibre godoc
// @Summary      Agregar venta libre
// @Description  Ítem fuera del catálogo con nombre, precio y cantidad. No pasa por cocina.
// @Tags         pedidos
// @Accept       json
// @Produce      json
// @Param        id   path     string                true "ID del pedido"
// @Param        body body     dto.VentaLibreRequest true "Ítem libre"
// @Success      201  {object} dto.ItemAgregadoResponse
// @Failure      422  {object} apierror.ValidationError
// @Router       /v1/pedidos/{id}/venta-libre [post]
func (h *PedidosHandler) VentaLibre(c *gin.Context) {
	defer h.sesiones.Bloquear(c.Param("id"))()
	var req dto.VentaLibreRequest
	if !bindAndValidate(c, &req) {
		return
	}
	p := h.cargar(c)
	if p == nil {
		return
	}
	item, err := h.constructor.AgregarVentaLibre(p, req.Nombre, req.Precio, req.Cantidad)
	if err != nil {
		responderError(c, err)
		return
	}
	if !h.guardar(c, p) {
		return
	}
	c.JSON(http.StatusCreated, dto.ItemAgregadoResponse{Item: item, Pedido: p})
}

// QuitarItem godoc
// @Summary      Quitar ítem
// @Tags         pedidos
// @Produce      json
// @Param        id      path     string true "ID del pedido"
// @Param        item_id path     string true "ID del ítem"
// @Success      200 {object} model.Pedido
// @Failure      404 {object} apierror.APIError
// @Router       /v1/pedidos/{id}/items/{item_id} [delete]
func (h *PedidosHandler) QuitarItem(c *gin.Context) {
	defer h.sesiones.Bloquear(c.Param("id"))()
	p := h.cargar(c)
	if p == nil {
		return
	}
	if err := h.constructor.QuitarItem(p, c.Param("item_id")); err != nil {
		responderError(c, err)
		return
	}
	if !h.guardar(c, p) {
		return
	}
	c.JSON(http.StatusOK, p)
}

// Finalizar godoc
// @Summary      Finalizar pedido
// @Description  Registra el pedido en historial, cocina y pagos en una sola escritura y genera el comprobante.
// @Tags         pedidos
// @Produce      json
// @Param        id  path     string true "ID del pedido"
// @Success      201 {object} model.RegistroHistorial
// @Failure      422 {object} apierror.APIError
// @Failure      503 {object} apierror.APIError
// @Router       /v1/pedidos/{id}/finalizar [post]
func (h *PedidosHandler) Finalizar(c *gin.Context) {
	defer h.sesiones.Bloquear(c.Param("id"))()
	p := h.cargar(c)
	if p == nil {
		return
	}
	reg, err := h.despacho.Finalizar(c.Request.Context(), p)
	if err != nil {
		responderError(c, err)
		return
	}
	h.cerrarSesion(c, p.ID)
	c.JSON(http.StatusCreated, reg)
}

// Guardar godoc
// @Summary      Guardar pedido
// @Description  Igual que finalizar pero sin comprobante.
// @Tags         pedidos
// @Produce      json
// @Param        id  path     string true "ID del pedido"
// @Success      201 {object} model.RegistroHistorial
// @Failure      422 {object} apierror.APIError
// @Router       /v1/pedidos/{id}/guardar [post]
func (h *PedidosHandler) Guardar(c *gin.Context) {
	defer h.sesiones.Bloquear(c.Param("id"))()
	p := h.cargar(c)
	if p == nil {
		return
	}
	reg, err := h.despacho.GuardarBorrador(c.Request.Context(), p)
	if err != nil {
		responderError(c, err)
		return
	}
	h.cerrarSesion(c, p.ID)
	c.JSON(http.StatusCreated, reg)
}

// Descartar godoc
// @Summary      Descartar pedido en curso
// @Tags         pedidos
// @Param        id path string true "ID del pedido"
// @Success      204
// @Failure      404 {object} apierror.APIError
// @Router       /v1/pedidos/{id} [delete]
func (h *PedidosHandler) Descartar(c *gin.Context) {
	defer h.sesiones.Bloquear(c.Param("id"))()
	p := h.cargar(c)
	if p == nil {
		return
	}
	if err := h.sesiones.Eliminar(c.Request.Context(), p.ID); err != nil {
		responderError(c, apierror.Persistencia("No se pudo descartar el pedido", err))
		return
	}
	c.Status(http.StatusNoContent)
}
