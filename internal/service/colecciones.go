package service

import (
	"context"

	"comanda/internal/catalogo"
	"comanda/internal/infra"
	"comanda/internal/model"
	"comanda/internal/repository"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// Helpers shared by every service that touches more than one collection.
// They all run inside an Almacen transaction and only mark a collection
// dirty when they actually changed it.

func buscarHistorial(h []model.RegistroHistorial, id string) int {
	for i := range h {
		if h[i].ID == id {
			return i
		}
	}
	return -1
}

func buscarTicket(c []model.TicketCocina, id string) int {
	for i := range c {
		if c[i].ID == id {
			return i
		}
	}
	return -1
}

func buscarPago(p []model.RegistroPago, id string) int {
	for i := range p {
		if p[i].ID == id {
			return i
		}
	}
	return -1
}

func filtrar[T any](xs []T, quitar func(T) bool) ([]T, bool) {
	out := make([]T, 0, len(xs))
	for _, x := range xs {
		if !quitar(x) {
			out = append(out, x)
		}
	}
	return out, len(out) != len(xs)
}

// eliminarDeTodo removes every id in ids from history, kitchen, payments
// and the legacy drafts bucket.
func eliminarDeTodo(tx *repository.Tx, ids map[string]bool) error {
	if len(ids) == 0 {
		return nil
	}
	historial, err := tx.Historial()
	if err != nil {
		return err
	}
	if h, cambio := filtrar(historial, func(r model.RegistroHistorial) bool { return ids[r.ID] }); cambio {
		tx.GuardarHistorial(h)
	}

	cocina, err := tx.Cocina()
	if err != nil {
		return err
	}
	if c, cambio := filtrar(cocina, func(t model.TicketCocina) bool { return ids[t.ID] }); cambio {
		tx.GuardarCocina(c)
	}

	pagos, err := tx.Pagos()
	if err != nil {
		return err
	}
	if p, cambio := filtrar(pagos, func(r model.RegistroPago) bool {
		return ids[r.ID] || ids[r.PedidoOriginal.ID]
	}); cambio {
		tx.GuardarPagos(p)
	}

	guardados, err := tx.Guardados()
	if err != nil {
		return err
	}
	if g, cambio := filtrar(guardados, func(p model.Pedido) bool { return ids[p.ID] }); cambio {
		tx.GuardarGuardados(g)
	}
	return nil
}

// purgarCompletados drops completed payment records and removes their
// orders everywhere else. Returns the purged ids.
func purgarCompletados(tx *repository.Tx) ([]string, error) {
	pagos, err := tx.Pagos()
	if err != nil {
		return nil, err
	}
	ids := map[string]bool{}
	var lista []string
	for _, p := range pagos {
		if !p.Completado {
			continue
		}
		for _, id := range []string{p.ID, p.PedidoOriginal.ID} {
			if id != "" && !ids[id] {
				ids[id] = true
				lista = append(lista, id)
			}
		}
	}
	if len(lista) == 0 {
		return nil, nil
	}
	if err := eliminarDeTodo(tx, ids); err != nil {
		return nil, err
	}
	return lista, nil
}

// ticketPara projects an order onto the kitchen. ok is false when no item
// needs preparation.
func ticketPara(cat *catalogo.Catalogo, p model.Pedido) (model.TicketCocina, bool) {
	var items []model.ItemPedido
	for _, it := range p.Items {
		if cat.EsCocina(it) {
			items = append(items, it)
		}
	}
	if len(items) == 0 {
		return model.TicketCocina{}, false
	}
	conteo, sinClasificar := ContarAcompanamientos(p.Items)
	return model.TicketCocina{
		ID:              p.ID,
		Mesa:            p.Mesa,
		Cliente:         p.Cliente,
		Items:           items,
		Fecha:           p.Fecha,
		Hora:            p.Hora,
		Timestamp:       p.Timestamp,
		Acompanamientos: conteo,
		SinClasificar:   sinClasificar,
	}, true
}

func nuevoRegistroPago(p model.Pedido) model.RegistroPago {
	return model.RegistroPago{
		ID:              p.ID,
		PedidoOriginal:  p.Copia(),
		ItemsPendientes: model.CopiarItems(p.Items),
		TotalPendiente:  p.Total,
		PagosRealizados: []model.EventoPago{},
		TotalPagado:     decimal.Zero,
	}
}

// sinPagados drops the items already covered by a payment event, matched
// by item id.
func sinPagados(items []model.ItemPedido, eventos []model.EventoPago) []model.ItemPedido {
	pagados := make(map[string]bool)
	for _, ev := range eventos {
		for _, it := range ev.Items {
			pagados[it.ID] = true
		}
	}
	out := make([]model.ItemPedido, 0, len(items))
	for _, it := range items {
		if !pagados[it.ID] {
			out = append(out, it)
		}
	}
	return out
}

// cerrarPago marks a payment record completed. Pending goes to zero even
// if an edit left the order cheaper than what was already paid.
func cerrarPago(p *model.RegistroPago, st sello) {
	p.Completado = true
	p.FechaCompletado = st.fecha
	p.HoraCompletado = st.hora
	p.ItemsPendientes = []model.ItemPedido{}
	p.TotalPendiente = decimal.Zero
}

// reflejarPago copies the payment state onto the history record so both
// report the same paid and pending totals.
func reflejarPago(h *model.RegistroHistorial, p model.RegistroPago, st sello) {
	pagado, pendiente := p.TotalPagado, p.TotalPendiente
	if p.Completado {
		h.Pagado = true
		h.FechaPagado = st.fecha
		h.HoraPagado = st.hora
		h.Completado = true
		h.TotalPagado, h.TotalPendiente = &pagado, &pendiente
		return
	}
	if p.TotalPagado.IsPositive() {
		h.PagoParcial = true
		h.TotalPagado, h.TotalPendiente = &pagado, &pendiente
	}
}

// publicar sends an event after commit. Failures are logged only.
func publicar(ctx context.Context, pub infra.Publicador, tema string, datos any) {
	if pub == nil {
		return
	}
	if err := pub.Publicar(ctx, tema, datos); err != nil {
		log.Warn().Err(err).Str("tema", tema).Msg("eventos: no se pudo publicar")
	}
}
