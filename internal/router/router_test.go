package router_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"comanda/internal/catalogo"
	"comanda/internal/config"
	"comanda/internal/dto"
	"comanda/internal/infra"
	"comanda/internal/model"
	"comanda/internal/repository"
	"comanda/internal/router"
	"comanda/internal/service"
	"comanda/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ── Helpers ──────────────────────────────────────────────────────────────────

func nuevoRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		Env:               "test",
		CORSOrigins:       "*",
		ZonaHoraria:       "UTC",
		RestauranteNombre: "Comanda de Prueba",
		LimpiezaHoras:     6,
	}
	cat, err := catalogo.Cargar()
	require.NoError(t, err)

	ahora := time.Date(2024, 5, 15, 13, 30, 0, 0, time.UTC)
	reloj := service.Reloj(func() time.Time { return ahora })
	kv := repository.NewMemoryKV(0)
	almacen := repository.NewAlmacen(kv)
	pub := infra.NopPublicador()

	dispatcher := worker.NewDispatcher(nil, worker.NewComprobanteWorker(almacen, reloj, pub, cfg.RestauranteNombre))
	despacho := service.NewDespachoService(almacen, cat, reloj, pub, dispatcher, cfg.UmbralLimpieza())

	return router.New(router.Deps{
		Config:   cfg,
		Catalogo: cat,
		KV:       kv,

		Constructor:  service.NewConstructorService(cat, reloj),
		Despacho:     despacho,
		Cocina:       service.NewCocinaService(almacen, reloj, pub),
		Pagos:        service.NewPagoService(almacen, reloj, pub),
		Historial:    service.NewHistorialService(almacen, pub, cfg.RestauranteNombre),
		Estadisticas: service.NewEstadisticasService(almacen, reloj),
		Sesiones:     repository.NewSesionRepository(kv),
	})
}

func hacer(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf *bytes.Buffer
	switch b := body.(type) {
	case nil:
		buf = &bytes.Buffer{}
	case string:
		buf = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		buf = bytes.NewBuffer(raw)
	}
	req := httptest.NewRequest(method, path, buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodificar[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func nuevoPedido(t *testing.T, r http.Handler, cliente, mesa string) model.Pedido {
	t.Helper()
	w := hacer(t, r, http.MethodPost, "/v1/pedidos", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	p := decodificar[model.Pedido](t, w)

	w = hacer(t, r, http.MethodPut, "/v1/pedidos/"+p.ID+"/cliente", dto.AsignarClienteRequest{Cliente: cliente, Mesa: mesa})
	require.Equal(t, http.StatusOK, w.Code)
	return decodificar[model.Pedido](t, w)
}

func agregar(t *testing.T, r http.Handler, pedidoID string, body any) dto.ItemAgregadoResponse {
	t.Helper()
	w := hacer(t, r, http.MethodPost, "/v1/pedidos/"+pedidoID+"/items", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decodificar[dto.ItemAgregadoResponse](t, w)
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// ── Tests ────────────────────────────────────────────────────────────────────

func TestFlujoCompleto_PedidoCocinaPagos(t *testing.T) {
	r := nuevoRouter(t)

	p := nuevoPedido(t, r, " Ana ", "4")
	assert.Equal(t, "Ana", p.Cliente)

	w := hacer(t, r, http.MethodGet, "/v1/pedidos/"+p.ID+"/seleccion/34", nil)
	require.Equal(t, http.StatusOK, w.Code)
	sel := decodificar[dto.SeleccionInicialResponse](t, w)
	assert.Equal(t, "termino", sel.Variante)
	assert.True(t, sel.PideOpciones)

	lomo := agregar(t, r, p.ID, map[string]any{
		"productoId": 34,
		"seleccion":  map[string]any{"terminoId": 3, "porcionId": 5},
	})
	assert.True(t, lomo.Item.Precio.Equal(dec("12.50")), lomo.Item.Precio.String())
	assert.Equal(t, "Completo, Arroz Moro", lomo.Item.Detalles)

	agregar(t, r, p.ID, map[string]any{"productoId": 47})

	w = hacer(t, r, http.MethodPost, "/v1/pedidos/"+p.ID+"/venta-libre", map[string]any{"nombre": "Postre", "precio": "2.00", "cantidad": 3})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	libre := decodificar[dto.ItemAgregadoResponse](t, w)
	assert.True(t, libre.Pedido.Total.Equal(dec("19.50")), libre.Pedido.Total.String())

	w = hacer(t, r, http.MethodPost, "/v1/pedidos/"+p.ID+"/finalizar", nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	reg := decodificar[model.RegistroHistorial](t, w)
	assert.Equal(t, p.ID, reg.ID)

	// the builder session is closed once the order is dispatched
	w = hacer(t, r, http.MethodGet, "/v1/pedidos/"+p.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = hacer(t, r, http.MethodGet, "/v1/cocina", nil)
	require.Equal(t, http.StatusOK, w.Code)
	tickets := decodificar[[]model.TicketCocina](t, w)
	require.Len(t, tickets, 1)
	require.Len(t, tickets[0].Items, 1)
	assert.Equal(t, "Lomo fino", tickets[0].Items[0].Nombre)
	assert.Equal(t, 1, tickets[0].Acompanamientos.ArrozMoro)

	w = hacer(t, r, http.MethodGet, "/v1/comprobantes/"+p.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF")))

	w = hacer(t, r, http.MethodPost, "/v1/pagos/"+p.ID+"/parcial", dto.PagoParcialRequest{
		ItemIDs: []string{lomo.Item.ID},
		Monto:   dec("12.50"),
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	pago := decodificar[model.RegistroPago](t, w)
	assert.True(t, pago.TotalPendiente.Equal(dec("7.00")))
	assert.False(t, pago.Completado)

	w = hacer(t, r, http.MethodPost, "/v1/pagos/"+p.ID+"/completo", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	pago = decodificar[model.RegistroPago](t, w)
	assert.True(t, pago.Completado)
	assert.True(t, pago.TotalPagado.Equal(dec("19.50")))

	// a paid order leaves every store at once
	w = hacer(t, r, http.MethodGet, "/v1/historial/"+p.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = hacer(t, r, http.MethodGet, "/v1/cocina", nil)
	assert.Empty(t, decodificar[[]model.TicketCocina](t, w))
	w = hacer(t, r, http.MethodGet, "/v1/pagos", nil)
	assert.Empty(t, decodificar[[]model.RegistroPago](t, w))

	w = hacer(t, r, http.MethodGet, "/v1/pagos/reportes", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodificar[[]model.ReportePago](t, w), 2)

	w = hacer(t, r, http.MethodGet, "/v1/estadisticas?periodo=hoy", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	est := decodificar[service.Estadisticas](t, w)
	assert.Equal(t, 2, est.TotalPagos)
	assert.Equal(t, "Lomo fino", est.ProductoTop)
	require.Len(t, est.Pagos, 1)
	assert.True(t, est.Pagos[0].Monto.Equal(dec("19.50")))
}

func TestPedidos_Errores(t *testing.T) {
	r := nuevoRouter(t)
	p := nuevoPedido(t, r, "Ana", "4")

	casos := []struct {
		nombre string
		method string
		path   string
		body   any
		status int
	}{
		{"pedido inexistente", http.MethodGet, "/v1/pedidos/nope", nil, http.StatusNotFound},
		{"finalizar vacío", http.MethodPost, "/v1/pedidos/" + p.ID + "/finalizar", nil, http.StatusUnprocessableEntity},
		{"json inválido", http.MethodPost, "/v1/pedidos/" + p.ID + "/items", "{", http.StatusBadRequest},
		{"producto requerido", http.MethodPost, "/v1/pedidos/" + p.ID + "/items", map[string]any{"productoId": 0}, http.StatusUnprocessableEntity},
		{"producto inexistente", http.MethodPost, "/v1/pedidos/" + p.ID + "/items", map[string]any{"productoId": 999}, http.StatusNotFound},
		{"término obligatorio", http.MethodPost, "/v1/pedidos/" + p.ID + "/items", map[string]any{"productoId": 34, "seleccion": map[string]any{}}, http.StatusUnprocessableEntity},
		{"extras repetidos", http.MethodPost, "/v1/pedidos/" + p.ID + "/items", map[string]any{"productoId": 1, "seleccion": map[string]any{"extras": []int{1, 1}}}, http.StatusUnprocessableEntity},
		{"venta libre sin precio", http.MethodPost, "/v1/pedidos/" + p.ID + "/venta-libre", map[string]any{"nombre": "X", "precio": 0, "cantidad": 1}, http.StatusUnprocessableEntity},
		{"quitar ítem inexistente", http.MethodDelete, "/v1/pedidos/" + p.ID + "/items/nope", nil, http.StatusNotFound},
		{"pago inexistente", http.MethodPost, "/v1/pagos/nope/completo", nil, http.StatusNotFound},
		{"parcial sin ítems", http.MethodPost, "/v1/pagos/nope/parcial", map[string]any{"itemIds": []string{}, "monto": "1"}, http.StatusUnprocessableEntity},
		{"cocina inexistente", http.MethodPost, "/v1/cocina/nope/completar", nil, http.StatusNotFound},
		{"historial inexistente", http.MethodDelete, "/v1/historial/nope", nil, http.StatusNotFound},
		{"editar inexistente", http.MethodPost, "/v1/historial/nope/editar", nil, http.StatusNotFound},
		{"periodo inválido", http.MethodGet, "/v1/estadisticas?periodo=anual", nil, http.StatusUnprocessableEntity},
		{"personalizado sin fechas", http.MethodGet, "/v1/estadisticas?periodo=personalizado", nil, http.StatusUnprocessableEntity},
		{"fecha mal formada", http.MethodGet, "/v1/estadisticas?periodo=personalizado&desde=15/05/2024&hasta=2024-05-16", nil, http.StatusUnprocessableEntity},
		{"id de producto inválido", http.MethodGet, "/v1/catalogo/productos/abc", nil, http.StatusBadRequest},
		{"categoría inválida", http.MethodGet, "/v1/catalogo/productos?categoria=zapatos", nil, http.StatusUnprocessableEntity},
	}
	for _, c := range casos {
		t.Run(c.nombre, func(t *testing.T) {
			w := hacer(t, r, c.method, c.path, c.body)
			assert.Equal(t, c.status, w.Code, w.Body.String())
			var body map[string]any
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.NotEmpty(t, body["detail"])
		})
	}
}

func TestPedidos_QuitarYDescartar(t *testing.T) {
	r := nuevoRouter(t)
	p := nuevoPedido(t, r, "Luis", "2")

	a := agregar(t, r, p.ID, map[string]any{"productoId": 47})
	agregar(t, r, p.ID, map[string]any{"productoId": 47})

	w := hacer(t, r, http.MethodDelete, "/v1/pedidos/"+p.ID+"/items/"+a.Item.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decodificar[model.Pedido](t, w)
	assert.Len(t, got.Items, 1)
	assert.True(t, got.Total.Equal(dec("1.00")))

	w = hacer(t, r, http.MethodDelete, "/v1/pedidos/"+p.ID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = hacer(t, r, http.MethodGet, "/v1/pedidos/"+p.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHistorial_EditarYEliminar(t *testing.T) {
	r := nuevoRouter(t)
	p := nuevoPedido(t, r, "Ana", "4")
	agregar(t, r, p.ID, map[string]any{"productoId": 47})
	w := hacer(t, r, http.MethodPost, "/v1/pedidos/"+p.ID+"/guardar", nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = hacer(t, r, http.MethodGet, "/v1/historial", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, decodificar[[]model.RegistroHistorial](t, w), 1)

	w = hacer(t, r, http.MethodGet, "/v1/historial/"+p.ID+"/comprobante", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF")))

	// drafts have no stored receipt
	w = hacer(t, r, http.MethodGet, "/v1/comprobantes/"+p.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = hacer(t, r, http.MethodPost, "/v1/historial/"+p.ID+"/editar", nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	edicion := decodificar[model.Pedido](t, w)
	assert.True(t, edicion.EsEdicion)
	assert.Equal(t, p.ID, edicion.PedidoOriginalID)
	assert.NotEqual(t, p.ID, edicion.ID)

	w = hacer(t, r, http.MethodGet, "/v1/pedidos/"+edicion.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodificar[model.Pedido](t, w).Items, 1)

	w = hacer(t, r, http.MethodDelete, "/v1/historial/"+p.ID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = hacer(t, r, http.MethodGet, "/v1/historial/"+p.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = hacer(t, r, http.MethodGet, "/v1/pagos/"+p.ID+"/original", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCatalogo(t *testing.T) {
	r := nuevoRouter(t)

	w := hacer(t, r, http.MethodGet, "/v1/catalogo/productos?categoria=bebidas", nil)
	require.Equal(t, http.StatusOK, w.Code)
	bebidas := decodificar[[]dto.ProductoResponse](t, w)
	require.NotEmpty(t, bebidas)
	for _, b := range bebidas {
		assert.Equal(t, model.CategoriaBebidas, b.Categoria)
		assert.Equal(t, "directa", b.Variante)
	}

	w = hacer(t, r, http.MethodGet, "/v1/catalogo/productos/34", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Lomo fino", decodificar[dto.ProductoResponse](t, w).Nombre)

	w = hacer(t, r, http.MethodGet, "/v1/catalogo/productos/9999", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = hacer(t, r, http.MethodGet, "/v1/catalogo/opciones", nil)
	require.Equal(t, http.StatusOK, w.Code)
	op := decodificar[dto.OpcionesResponse](t, w)
	assert.NotEmpty(t, op.Terminos)
	assert.NotEmpty(t, op.Porciones)
}

func TestMantenimiento(t *testing.T) {
	r := nuevoRouter(t)

	w := hacer(t, r, http.MethodGet, "/v1/mantenimiento/limpieza", nil)
	require.Equal(t, http.StatusOK, w.Code)
	cr := decodificar[worker.CuentaRegresiva](t, w)
	assert.Equal(t, "06:00:00", cr.Restante)
	assert.False(t, cr.Alerta)

	w = hacer(t, r, http.MethodPost, "/v1/mantenimiento/purgar-antiguos?forzar=true", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decodificar[dto.PurgaResponse](t, w).Purgado)

	w = hacer(t, r, http.MethodPost, "/v1/mantenimiento/purgar-antiguos", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decodificar[dto.PurgaResponse](t, w).Purgado)

	w = hacer(t, r, http.MethodPost, "/v1/mantenimiento/purgar-completados", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = hacer(t, r, http.MethodPost, "/v1/mantenimiento/ejecutar", nil)
	require.Equal(t, http.StatusOK, w.Code)
	res := decodificar[service.ResumenMantenimiento](t, w)
	assert.False(t, res.Purgado)
}

func TestHealthYRequestID(t *testing.T) {
	r := nuevoRouter(t)

	w := hacer(t, r, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodificar[map[string]any](t, w)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, "inline", body["cola"])
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get("X-Request-ID"))
}
