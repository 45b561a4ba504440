package router

import (
	"time"

	"comanda/internal/catalogo"
	"comanda/internal/config"
	"comanda/internal/handler"
	"comanda/internal/infra"
	"comanda/internal/middleware"
	"comanda/internal/repository"
	"comanda/internal/service"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// Deps is everything the HTTP layer needs, built once in main.
type Deps struct {
	Config    *config.Config
	Catalogo  *catalogo.Catalogo
	KV        repository.KV
	Redis     *redis.Client // nil when jobs run inline
	Hub       *infra.Hub
	Limitador *middleware.Limitador

	Constructor  service.ConstructorService
	Despacho     service.DespachoService
	Cocina       service.CocinaService
	Pagos        service.PagoService
	Historial    service.HistorialService
	Estadisticas service.EstadisticasService
	Sesiones     repository.SesionRepository
}

// New returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Almacen ← KV
func New(d Deps) *gin.Engine {
	cfg := d.Config
	if cfg.EsProduccion() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS(cfg.Origenes()))
	r.Use(middleware.ErrorHandler())
	lim := d.Limitador
	if lim == nil {
		lim = middleware.NewLimitador(1000, time.Minute) // 1000 req/min per IP
	}
	r.Use(lim.Middleware())

	// ── Handlers ─────────────────────────────────────────────────────────────
	catalogoH := handler.NewCatalogoHandler(d.Catalogo, d.Constructor)
	pedidosH := handler.NewPedidosHandler(d.Catalogo, d.Constructor, d.Despacho, d.Sesiones)
	cocinaH := handler.NewCocinaHandler(d.Cocina)
	pagosH := handler.NewPagosHandler(d.Pagos)
	historialH := handler.NewHistorialHandler(d.Historial, d.Despacho, d.Sesiones)
	estadisticasH := handler.NewEstadisticasHandler(d.Estadisticas, cfg.Ubicacion())
	mantenimientoH := handler.NewMantenimientoHandler(d.Despacho)

	// ── Routes ───────────────────────────────────────────────────────────────
	r.GET("/health", handler.Health(d.KV, d.Redis, d.Hub))
	if d.Hub != nil {
		r.GET("/ws/eventos", handler.Eventos(d.Hub, cfg.Origenes()))
	}

	v1 := r.Group("/v1")
	{
		cat := v1.Group("/catalogo")
		{
			cat.GET("/productos", catalogoH.Productos)
			cat.GET("/productos/:id", catalogoH.Producto)
			cat.GET("/opciones", catalogoH.Opciones)
		}

		ped := v1.Group("/pedidos")
		{
			ped.POST("", pedidosH.Crear)
			ped.GET("/:id", pedidosH.Obtener)
			ped.DELETE("/:id", pedidosH.Descartar)
			ped.PUT("/:id/cliente", pedidosH.AsignarCliente)
			ped.GET("/:id/seleccion/:producto_id", pedidosH.Seleccion)
			ped.POST("/:id/items", pedidosH.AgregarItem)
			ped.DELETE("/:id/items/:item_id", pedidosH.QuitarItem)
			ped.POST("/:id/venta-libre", pedidosH.VentaLibre)
			ped.POST("/:id/finalizar", pedidosH.Finalizar)
			ped.POST("/:id/guardar", pedidosH.Guardar)
		}

		v1.GET("/cocina", cocinaH.Listar)
		v1.POST("/cocina/:id/completar", cocinaH.Completar)

		pag := v1.Group("/pagos")
		{
			pag.GET("", pagosH.Listar)
			pag.GET("/reportes", pagosH.Reportes)
			pag.GET("/:id/original", pagosH.Original)
			pag.POST("/:id/completo", pagosH.Completo)
			pag.POST("/:id/parcial", pagosH.Parcial)
		}

		hist := v1.Group("/historial")
		{
			hist.GET("", historialH.Listar)
			hist.GET("/:id", historialH.Obtener)
			hist.GET("/:id/comprobante", historialH.Comprobante)
			hist.POST("/:id/editar", historialH.Editar)
			hist.DELETE("/:id", historialH.Eliminar)
		}
		v1.GET("/comprobantes/:id", historialH.ComprobanteGuardado)

		v1.GET("/estadisticas", estadisticasH.Calcular)

		mant := v1.Group("/mantenimiento")
		{
			mant.GET("/limpieza", mantenimientoH.Limpieza)
			mant.POST("/ejecutar", mantenimientoH.Ejecutar)
			mant.POST("/purgar-completados", mantenimientoH.PurgarCompletados)
			mant.POST("/purgar-antiguos", mantenimientoH.PurgarAntiguos)
		}
	}

	// Swagger UI, only enabled outside production
	if !cfg.EsProduccion() {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
