package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"comanda/internal/model"
	"comanda/internal/service"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	QueueComprobantes = "jobs:comprobantes"

	jobComprobante = "comprobante"
	// MaxIntentos is how many times a job runs before it goes to the DLQ.
	MaxIntentos = 3
)

// Job is the generic envelope for all async tasks.
type Job struct {
	Type     string          `json:"type"`
	Payload  json.RawMessage `json:"payload"`
	Intentos int             `json:"intentos"`
}

// Dispatcher enqueues async jobs into Redis lists. Without Redis (memory
// and sqlite stores) jobs run inline in the caller's goroutine.
type Dispatcher struct {
	rdb          *redis.Client
	comprobantes *ComprobanteWorker
}

func NewDispatcher(rdb *redis.Client, comprobantes *ComprobanteWorker) *Dispatcher {
	return &Dispatcher{rdb: rdb, comprobantes: comprobantes}
}

var _ service.ComprobanteEncolador = (*Dispatcher)(nil)

// EncolarComprobante schedules the receipt render of a finalized order.
func (d *Dispatcher) EncolarComprobante(ctx context.Context, pedido model.Pedido) error {
	if d.rdb == nil {
		return d.comprobantes.Procesar(ctx, pedido)
	}
	return d.enqueue(ctx, QueueComprobantes, jobComprobante, pedido)
}

func (d *Dispatcher) enqueue(ctx context.Context, queue, jobType string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return push(ctx, d.rdb, queue, Job{Type: jobType, Payload: data})
}

func push(ctx context.Context, rdb *redis.Client, queue string, job Job) error {
	encoded, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return rdb.LPush(ctx, queue, encoded).Err()
}

// StartWorkerPool launches numWorkers goroutines consuming the job queues.
// Each goroutine blocks on BRPOP, so idle workers cost nothing.
func (d *Dispatcher) StartWorkerPool(ctx context.Context, numWorkers int) {
	if d.rdb == nil {
		log.Info().Msg("worker pool: sin redis, los comprobantes se generan en línea")
		return
	}
	for i := 0; i < numWorkers; i++ {
		go d.runWorker(ctx, i)
	}
	log.Info().Int("workers", numWorkers).Msg("worker pool iniciado")
}

func (d *Dispatcher) runWorker(ctx context.Context, id int) {
	for {
		select {
		case <-ctx.Done():
			log.Info().Int("worker", id).Msg("worker: apagando")
			return
		default:
			// waits up to 5s then loops to check ctx
			result, err := d.rdb.BRPop(ctx, 5*time.Second, QueueComprobantes).Result()
			if err != nil {
				continue
			}
			if len(result) < 2 {
				continue
			}
			d.processJob(ctx, result[0], result[1])
		}
	}
}

func (d *Dispatcher) processJob(ctx context.Context, queue, raw string) {
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		log.Error().Str("queue", queue).Err(err).Msg("worker: job ilegible")
		crudo, _ := json.Marshal(raw)
		SendToDLQ(ctx, d.rdb, queue, "", crudo, err.Error(), 0)
		return
	}
	job.Intentos++

	err := d.ejecutar(ctx, job)
	if err == nil {
		return
	}
	if job.Intentos >= MaxIntentos {
		SendToDLQ(ctx, d.rdb, queue, job.Type, job.Payload, err.Error(), job.Intentos)
		return
	}
	log.Warn().Err(err).Str("type", job.Type).Int("intentos", job.Intentos).Msg("worker: job fallido, se reencola")
	if perr := push(ctx, d.rdb, queue, job); perr != nil {
		log.Error().Err(perr).Str("queue", queue).Msg("worker: no se pudo reencolar")
	}
}

func (d *Dispatcher) ejecutar(ctx context.Context, job Job) error {
	switch job.Type {
	case jobComprobante:
		var pedido model.Pedido
		if err := json.Unmarshal(job.Payload, &pedido); err != nil {
			return fmt.Errorf("payload de comprobante: %w", err)
		}
		return d.comprobantes.Procesar(ctx, pedido)
	default:
		return fmt.Errorf("tipo de job desconocido: %q", job.Type)
	}
}
