package service

import (
	"context"
	"sort"

	"comanda/internal/apierror"
	"comanda/internal/infra"
	"comanda/internal/model"
	"comanda/internal/repository"

	"github.com/rs/zerolog/log"
)

type HistorialService interface {
	Listar(ctx context.Context) ([]model.RegistroHistorial, error)
	Obtener(ctx context.Context, id string) (*model.RegistroHistorial, error)
	Eliminar(ctx context.Context, id string) error
	Comprobante(ctx context.Context, id string) ([]byte, error)
	ComprobanteGuardado(ctx context.Context, id string) (*model.ComprobanteGuardado, error)
}

type historialService struct {
	almacen     repository.Almacen
	pub         infra.Publicador
	restaurante string
}

func NewHistorialService(almacen repository.Almacen, pub infra.Publicador, restaurante string) HistorialService {
	return &historialService{almacen: almacen, pub: pub, restaurante: restaurante}
}

// Listar returns the history newest first.
func (s *historialService) Listar(ctx context.Context) ([]model.RegistroHistorial, error) {
	out := []model.RegistroHistorial{}
	err := s.almacen.View(ctx, func(tx *repository.Tx) error {
		h, err := tx.Historial()
		if err != nil {
			return err
		}
		out = append(out, h...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp > out[j].Timestamp })
	return out, nil
}

func (s *historialService) Obtener(ctx context.Context, id string) (*model.RegistroHistorial, error) {
	var reg *model.RegistroHistorial
	err := s.almacen.View(ctx, func(tx *repository.Tx) error {
		h, err := tx.Historial()
		if err != nil {
			return err
		}
		i := buscarHistorial(h, id)
		if i < 0 {
			return apierror.NoEncontrado("Pedido %s no encontrado en el historial", id)
		}
		r := h[i]
		r.Pedido = r.Pedido.Copia()
		reg = &r
		return nil
	})
	return reg, err
}

// Eliminar drops the order from every store at once.
func (s *historialService) Eliminar(ctx context.Context, id string) error {
	err := s.almacen.RunTx(ctx, func(tx *repository.Tx) error {
		h, err := tx.Historial()
		if err != nil {
			return err
		}
		if buscarHistorial(h, id) < 0 {
			return apierror.NoEncontrado("Pedido %s no encontrado en el historial", id)
		}
		return eliminarDeTodo(tx, map[string]bool{id: true})
	})
	if err != nil {
		return err
	}
	publicar(ctx, s.pub, infra.TemaPedidoEliminado, map[string]string{"id": id})
	log.Info().Str("pedido_id", id).Msg("historial: pedido eliminado")
	return nil
}

// Comprobante re-renders the receipt of a history record.
func (s *historialService) Comprobante(ctx context.Context, id string) ([]byte, error) {
	reg, err := s.Obtener(ctx, id)
	if err != nil {
		return nil, err
	}
	return infra.GenerarComprobantePDF(reg.Pedido, s.restaurante)
}

// ComprobanteGuardado returns the receipt rendered at finalization, if it
// has not been evicted.
func (s *historialService) ComprobanteGuardado(ctx context.Context, id string) (*model.ComprobanteGuardado, error) {
	var out *model.ComprobanteGuardado
	err := s.almacen.View(ctx, func(tx *repository.Tx) error {
		cs, err := tx.Comprobantes()
		if err != nil {
			return err
		}
		for i := range cs {
			if cs[i].ID == id {
				c := cs[i]
				out = &c
				return nil
			}
		}
		return apierror.NoEncontrado("Comprobante %s no disponible", id)
	})
	return out, err
}
