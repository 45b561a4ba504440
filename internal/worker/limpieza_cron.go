package worker

// limpieza_cron.go
// Two background goroutines around the purge routines:
//   - every LIMPIEZA_INTERVALO_MINUTOS: drop completed orders and run the
//     stale-data purge when its threshold has passed
//   - every second: publish the countdown to the next stale purge and run
//     the full maintenance sequence when it reaches zero

import (
	"context"
	"fmt"
	"time"

	"comanda/internal/infra"
	"comanda/internal/service"

	"github.com/rs/zerolog/log"
)

const (
	tickCuentaRegresiva = time.Second
	// below this the countdown is flagged so the UI can warn
	umbralAlerta = time.Hour
)

type LimpiezaCronConfig struct {
	Despacho  service.DespachoService
	Pub       infra.Publicador
	Intervalo time.Duration
}

// CuentaRegresiva is the payload of TemaCuentaRegresiva.
type CuentaRegresiva struct {
	Restante string `json:"restante"`
	Segundos int64  `json:"segundos"`
	Alerta   bool   `json:"alerta"`
}

// NuevaCuentaRegresiva builds the countdown payload for the time left.
func NuevaCuentaRegresiva(restante time.Duration) CuentaRegresiva {
	if restante < 0 {
		restante = 0
	}
	return CuentaRegresiva{
		Restante: FormatoCuentaRegresiva(restante),
		Segundos: int64(restante / time.Second),
		Alerta:   restante < umbralAlerta,
	}
}

// FormatoCuentaRegresiva renders d as HH:MM:SS, flooring at zero.
func FormatoCuentaRegresiva(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	s := int64(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", s/3600, (s%3600)/60, s%60)
}

// StartLimpiezaCron launches the periodic purge goroutine. It respects ctx
// for graceful shutdown.
func StartLimpiezaCron(ctx context.Context, cfg LimpiezaCronConfig) {
	go func() {
		ticker := time.NewTicker(cfg.Intervalo)
		defer ticker.Stop()

		log.Info().Dur("intervalo", cfg.Intervalo).Msg("limpieza_cron: iniciado")

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("limpieza_cron: apagando")
				return
			case <-ticker.C:
				limpiar(ctx, cfg)
			}
		}
	}()
}

func limpiar(ctx context.Context, cfg LimpiezaCronConfig) {
	if _, err := cfg.Despacho.PurgarCompletados(ctx); err != nil {
		log.Error().Err(err).Msg("limpieza_cron: purga de completados fallida")
	}
	if _, err := cfg.Despacho.PurgarAntiguos(ctx, false); err != nil {
		log.Error().Err(err).Msg("limpieza_cron: purga de datos antiguos fallida")
	}
}

// StartCuentaRegresiva launches the once-per-second countdown publisher.
func StartCuentaRegresiva(ctx context.Context, cfg LimpiezaCronConfig) {
	go func() {
		ticker := time.NewTicker(tickCuentaRegresiva)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				cuentaRegresiva(ctx, cfg)
			}
		}
	}()
}

func cuentaRegresiva(ctx context.Context, cfg LimpiezaCronConfig) {
	restante, err := cfg.Despacho.TiempoRestante(ctx)
	if err != nil {
		log.Debug().Err(err).Msg("cuenta_regresiva: no se pudo leer ultima_limpieza")
		return
	}
	if restante == 0 {
		r, err := cfg.Despacho.Mantenimiento(ctx)
		if err != nil {
			log.Error().Err(err).Msg("cuenta_regresiva: mantenimiento fallido")
			return
		}
		log.Info().Bool("purgado", r.Purgado).Msg("cuenta_regresiva: mantenimiento ejecutado")
		if restante, err = cfg.Despacho.TiempoRestante(ctx); err != nil {
			return
		}
	}
	if cfg.Pub == nil {
		return
	}
	if err := cfg.Pub.Publicar(ctx, infra.TemaCuentaRegresiva, NuevaCuentaRegresiva(restante)); err != nil {
		log.Debug().Err(err).Msg("cuenta_regresiva: evento descartado")
	}
}
