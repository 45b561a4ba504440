package handler

import (
	"net/http"
	"strconv"

	"comanda/internal/apierror"
	"comanda/internal/catalogo"
	"comanda/internal/dto"
	"comanda/internal/model"
	"comanda/internal/service"

	"github.com/gin-gonic/gin"
)

type CatalogoHandler struct {
	cat         *catalogo.Catalogo
	constructor service.ConstructorService
}

func NewCatalogoHandler(cat *catalogo.Catalogo, constructor service.ConstructorService) *CatalogoHandler {
	return &CatalogoHandler{cat: cat, constructor: constructor}
}

func (h *CatalogoHandler) respuesta(p model.Producto) dto.ProductoResponse {
	v := h.constructor.Clasificar(p)
	return dto.ProductoResponse{Producto: p, Variante: v.String(), PideOpciones: v.PideOpciones()}
}

// Productos godoc
// @Summary      Listar productos del catálogo
// @Tags         catalogo
// @Produce      json
// @Param        categoria query string false "cortes | mariscos | bandejas | pizzas | platos | porciones_adicionales | bebidas | otros"
// @Success      200 {array}  dto.ProductoResponse
// @Failure      422 {object} apierror.ValidationError
// @Router       /v1/catalogo/productos [get]
func (h *CatalogoHandler) Productos(c *gin.Context) {
	var f dto.CatalogoFilter
	if !bindQuery(c, &f) {
		return
	}
	productos := h.cat.Productos(model.Categoria(f.Categoria))
	out := make([]dto.ProductoResponse, 0, len(productos))
	for _, p := range productos {
		out = append(out, h.respuesta(p))
	}
	c.JSON(http.StatusOK, out)
}

// Producto godoc
// @Summary      Obtener producto por id
// @Tags         catalogo
// @Produce      json
// @Param        id  path     int true "ID del producto"
// @Success      200 {object} dto.ProductoResponse
// @Failure      404 {object} apierror.APIError
// @Router       /v1/catalogo/productos/{id} [get]
func (h *CatalogoHandler) Producto(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("ID invalido"))
		return
	}
	p, ok := h.cat.Producto(id)
	if !ok {
		c.JSON(http.StatusNotFound, apierror.New("Producto no encontrado"))
		return
	}
	c.JSON(http.StatusOK, h.respuesta(p))
}

// Opciones godoc
// @Summary      Tablas de opciones
// @Description  Acompañamientos, extras y sabores de pizza, términos de cocción.
// @Tags         catalogo
// @Produce      json
// @Success      200 {object} dto.OpcionesResponse
// @Router       /v1/catalogo/opciones [get]
func (h *CatalogoHandler) Opciones(c *gin.Context) {
	c.JSON(http.StatusOK, dto.OpcionesResponse{
		Porciones: h.cat.Porciones(),
		Extras:    h.cat.Extras(),
		Sabores:   h.cat.Sabores(),
		Terminos:  h.cat.Terminos(),
	})
}
