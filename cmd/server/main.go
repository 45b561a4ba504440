package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"comanda/internal/catalogo"
	"comanda/internal/config"
	"comanda/internal/infra"
	"comanda/internal/middleware"
	"comanda/internal/repository"
	"comanda/internal/router"
	"comanda/internal/service"
	"comanda/internal/worker"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	// Structured logger: dev pretty, prod JSON
	if cfg.EsProduccion() {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := infra.AbrirStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.StoreDriver).Msg("failed to open store")
	}
	defer store.Close()

	cat, err := catalogo.Cargar()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load catalog")
	}

	reloj := service.RelojSistema(cfg.Ubicacion())
	almacen := repository.NewAlmacen(store.KV)

	// ── Events ───────────────────────────────────────────────────────────────
	hub := infra.NewHub()
	go hub.Run(ctx)

	broker, cerrarBroker, err := abrirBroker(cfg)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.EventsDriver).Msg("failed to connect event broker")
	}
	defer cerrarBroker()
	pub := infra.MultiPublicador(hub, broker)

	// ── Async receipts ───────────────────────────────────────────────────────
	comprobantes := worker.NewComprobanteWorker(almacen, reloj, pub, cfg.RestauranteNombre)
	dispatcher := worker.NewDispatcher(store.Redis, comprobantes)
	dispatcher.StartWorkerPool(ctx, cfg.WorkerPoolSize)

	// ── Services ─────────────────────────────────────────────────────────────
	despacho := service.NewDespachoService(almacen, cat, reloj, pub, dispatcher, cfg.UmbralLimpieza())

	// Startup maintenance: stale purge, completed purge, legacy migration
	if r, err := despacho.Mantenimiento(ctx); err != nil {
		log.Error().Err(err).Msg("startup maintenance failed")
	} else {
		log.Info().
			Bool("purgado", r.Purgado).
			Int("completados", len(r.Completados)).
			Int("guardados", r.Guardados).
			Int("tickets_migrados", r.Migracion.Tickets).
			Int("pagos_migrados", r.Migracion.Pagos).
			Msg("startup maintenance done")
	}

	worker.StartLimpiezaCron(ctx, worker.LimpiezaCronConfig{
		Despacho:  despacho,
		Pub:       pub,
		Intervalo: time.Duration(cfg.LimpiezaIntervaloMinutos) * time.Minute,
	})
	// the countdown ticks every second, so it only goes to websocket clients
	worker.StartCuentaRegresiva(ctx, worker.LimpiezaCronConfig{Despacho: despacho, Pub: hub})

	limitador := middleware.NewLimitador(1000, time.Minute)
	limitador.IniciarPurga(ctx)

	r := router.New(router.Deps{
		Config:    cfg,
		Catalogo:  cat,
		KV:        store.KV,
		Redis:     store.Redis,
		Hub:       hub,
		Limitador: limitador,

		Constructor:  service.NewConstructorService(cat, reloj),
		Despacho:     despacho,
		Cocina:       service.NewCocinaService(almacen, reloj, pub),
		Pagos:        service.NewPagoService(almacen, reloj, pub),
		Historial:    service.NewHistorialService(almacen, pub, cfg.RestauranteNombre),
		Estadisticas: service.NewEstadisticasService(almacen, reloj),
		Sesiones:     repository.NewSesionRepository(store.KV),
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM
	go func() {
		log.Info().Str("store", cfg.StoreDriver).Msgf("comanda listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server…")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}
	log.Info().Msg("server exited")
}

// abrirBroker connects the publisher named by EVENTS_DRIVER, behind a
// circuit breaker. The returned publisher is nil for "none".
func abrirBroker(cfg *config.Config) (infra.Publicador, func(), error) {
	switch cfg.EventsDriver {
	case "", "none":
		return nil, func() {}, nil
	case "nats":
		p, err := infra.NewPublicadorNATS(cfg.NATSURL, cfg.EventsPrefix)
		if err != nil {
			return nil, nil, err
		}
		return infra.ConCortacircuitos("nats", p, infra.ConfigCircuitoPorDefecto()), p.Close, nil
	case "amqp":
		p, err := infra.NewPublicadorAMQP(cfg.AMQPURL, cfg.EventsPrefix)
		if err != nil {
			return nil, nil, err
		}
		return infra.ConCortacircuitos("amqp", p, infra.ConfigCircuitoPorDefecto()), p.Close, nil
	default:
		return nil, nil, fmt.Errorf("EVENTS_DRIVER desconocido: %q", cfg.EventsDriver)
	}
}
