package worker

import (
	"context"
	"fmt"

	"comanda/internal/infra"
	"comanda/internal/model"
	"comanda/internal/repository"
	"comanda/internal/service"

	"github.com/rs/zerolog/log"
)

// maxComprobantes bounds the receipts kept under comprobantes_guardados;
// the oldest are dropped first.
const maxComprobantes = 50

// ComprobanteWorker renders the receipt PDF of a finalized order and keeps
// it in the evictable receipts bucket for re-printing.
type ComprobanteWorker struct {
	almacen     repository.Almacen
	reloj       service.Reloj
	pub         infra.Publicador
	restaurante string
}

func NewComprobanteWorker(almacen repository.Almacen, reloj service.Reloj, pub infra.Publicador, restaurante string) *ComprobanteWorker {
	return &ComprobanteWorker{almacen: almacen, reloj: reloj, pub: pub, restaurante: restaurante}
}

func (w *ComprobanteWorker) Procesar(ctx context.Context, pedido model.Pedido) error {
	pdf, err := infra.GenerarComprobantePDF(pedido, w.restaurante)
	if err != nil {
		return fmt.Errorf("comprobante %s: %w", pedido.ID, err)
	}
	ahora := w.reloj()
	c := model.ComprobanteGuardado{
		ID:    pedido.ID,
		PDF:   pdf,
		Fecha: ahora.Format(service.FormatoFecha),
		Hora:  ahora.Format(service.FormatoHora),
	}

	err = w.almacen.RunTx(ctx, func(tx *repository.Tx) error {
		cs, err := tx.Comprobantes()
		if err != nil {
			return err
		}
		out := make([]model.ComprobanteGuardado, 0, len(cs)+1)
		for _, x := range cs {
			if x.ID != c.ID {
				out = append(out, x)
			}
		}
		out = append(out, c)
		if len(out) > maxComprobantes {
			out = out[len(out)-maxComprobantes:]
		}
		tx.GuardarComprobantes(out)
		return nil
	})
	if err != nil {
		return err
	}

	if w.pub != nil {
		if err := w.pub.Publicar(ctx, infra.TemaComprobanteGenerado, map[string]string{"id": pedido.ID}); err != nil {
			log.Warn().Err(err).Msg("comprobante: evento no publicado")
		}
	}
	log.Info().Str("pedido_id", pedido.ID).Int("bytes", len(pdf)).Msg("comprobante: generado")
	return nil
}
