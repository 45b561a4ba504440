package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"comanda/internal/apierror"
	"comanda/internal/infra"
	"comanda/internal/model"
	"comanda/internal/service"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func acomp(nombres ...string) []model.Acompanamiento {
	out := make([]model.Acompanamiento, 0, len(nombres))
	for _, n := range nombres {
		out = append(out, model.Acompanamiento{Nombre: n, Precio: decimal.Zero})
	}
	return out
}

func TestContarAcompanamientos(t *testing.T) {
	items := []model.ItemPedido{
		{Nombre: "Lomo fino", Cantidad: 1, Acompanamientos: acomp("Ensalada", "Arroz Moro")},
		{Nombre: "Bandeja", Cantidad: 2, Acompanamientos: acomp("ENSALADA", "Patacón")},
		{Nombre: "Pechuga", Cantidad: 1, Porcion: &model.Acompanamiento{Nombre: "Arroz y Menestra"}},
		{Nombre: "Picaña", Cantidad: 1, Acompanamientos: acomp("Papas fritas", "Yuca Frita")},
		{Nombre: "Coca Cola", Cantidad: 3},
	}

	c, sinClasificar := service.ContarAcompanamientos(items)
	assert.Equal(t, model.ConteoAcompanamientos{
		Ensaladas:     3,
		Papas:         1,
		Patacones:     2,
		Yucas:         1,
		ArrozMenestra: 1,
		ArrozMoro:     1,
	}, c)
	assert.Empty(t, sinClasificar)
}

func TestContarAcompanamientos_ListaTienePrioridad(t *testing.T) {
	items := []model.ItemPedido{{
		Cantidad:        1,
		Acompanamientos: acomp("Ensalada", "Yuca"),
		Porcion:         &model.Acompanamiento{Nombre: "Yuca"},
	}}
	c, _ := service.ContarAcompanamientos(items)
	assert.Equal(t, 1, c.Yucas)
}

func TestContarAcompanamientos_SinClasificar(t *testing.T) {
	items := []model.ItemPedido{
		{Cantidad: 1, Acompanamientos: acomp("Ensalada", "Porción adicional")},
		{Cantidad: 1, Acompanamientos: acomp("Porción adicional", "Maduro")},
	}
	c, sinClasificar := service.ContarAcompanamientos(items)
	assert.Equal(t, 1, c.Ensaladas)
	assert.Equal(t, []string{"Porción adicional", "Maduro"}, sinClasificar)
}

func TestContarAcompanamientos_ListaVaciaNoUsaPorcion(t *testing.T) {
	items := []model.ItemPedido{
		{Cantidad: 1, Acompanamientos: []model.Acompanamiento{}, Porcion: &model.Acompanamiento{Nombre: "Yuca"}},
		{Cantidad: 2, Porcion: &model.Acompanamiento{Nombre: "Patacón"}},
	}
	c, sinClasificar := service.ContarAcompanamientos(items)
	assert.Equal(t, 0, c.Yucas)
	assert.Equal(t, 2, c.Patacones)
	assert.Empty(t, sinClasificar)

	// the distinction survives storage
	raw, err := json.Marshal(items[0])
	require.NoError(t, err)
	var leido model.ItemPedido
	require.NoError(t, json.Unmarshal(raw, &leido))
	c, _ = service.ContarAcompanamientos([]model.ItemPedido{leido})
	assert.Equal(t, 0, c.Yucas)
}

func TestContarAcompanamientos_NombresVaciosSeIgnoran(t *testing.T) {
	items := []model.ItemPedido{
		{Cantidad: 1, Acompanamientos: acomp("", "  ", "Ensalada")},
		{Cantidad: 1, Porcion: &model.Acompanamiento{Nombre: ""}},
	}
	c, sinClasificar := service.ContarAcompanamientos(items)
	assert.Equal(t, 1, c.Ensaladas)
	assert.Empty(t, sinClasificar)
}

func TestTicket_ConteoSobreTodosLosItems(t *testing.T) {
	e := nuevoEntorno(t)
	p := e.constructor.Nuevo()
	e.constructor.AsignarCliente(p, "Ana", "1")

	lomo, _ := e.cat.Producto(34)
	sel := e.constructor.SeleccionInicial(lomo)
	sel.ElegirPorcion(1)
	_, err := e.constructor.AgregarProducto(p, 34, sel)
	require.NoError(t, err)
	// a side portion sold on its own counts in the tally but is not cooked
	e.constructor.AgregarItem(p, model.ItemPedido{
		Nombre:          "Porción extra",
		Precio:          dec("1.50"),
		Acompanamientos: acomp("Patacón"),
	})

	_, err = e.despacho.Finalizar(context.Background(), p)
	require.NoError(t, err)

	s := e.leer(t)
	require.Len(t, s.cocina, 1)
	ticket := s.cocina[0]
	assert.Len(t, ticket.Items, 1)
	assert.Equal(t, 1, ticket.Acompanamientos.Ensaladas)
	assert.Equal(t, 1, ticket.Acompanamientos.Papas)
	assert.Equal(t, 1, ticket.Acompanamientos.Patacones)
}

func TestListarPendientes_Ordenados(t *testing.T) {
	e := nuevoEntorno(t)
	ctx := context.Background()
	primero := e.pedido(t, "Ana", "1", 1)
	e.avanzar(time.Minute)
	segundo := e.pedido(t, "Leo", "2", 2)

	_, err := e.despacho.Finalizar(ctx, segundo)
	require.NoError(t, err)
	_, err = e.despacho.Finalizar(ctx, primero)
	require.NoError(t, err)

	tickets, err := e.cocina.ListarPendientes(ctx)
	require.NoError(t, err)
	require.Len(t, tickets, 2)
	assert.Equal(t, primero.ID, tickets[0].ID)
	assert.Equal(t, segundo.ID, tickets[1].ID)
}

func TestCompletarTicket(t *testing.T) {
	e := nuevoEntorno(t)
	ctx := context.Background()
	id := e.finalizado(t, 1, 43)

	e.avanzar(20 * time.Minute)
	ticket, err := e.cocina.CompletarTicket(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, ticket.ID)

	s := e.leer(t)
	assert.Empty(t, s.cocina)
	h, ok := s.enHistorial(id)
	require.True(t, ok)
	assert.True(t, h.CompletadoCocina)
	assert.Equal(t, "13:50", h.HoraCompletadoCocina)
	assert.False(t, h.Pagado)

	p, ok := s.pago(id)
	require.True(t, ok)
	assert.True(t, p.CompletadoCocina)
	assert.False(t, p.Completado, "servir no cambia el estado del pago")
	assert.Equal(t, 1, e.pub.publicados(infra.TemaTicketCompletado))

	_, err = e.cocina.CompletarTicket(ctx, id)
	assert.True(t, errors.Is(err, apierror.ErrNoEncontrado))
}

func TestCompletarTicket_MigracionNoLoRecrea(t *testing.T) {
	e := nuevoEntorno(t)
	ctx := context.Background()
	id := e.finalizado(t, 1)

	_, err := e.cocina.CompletarTicket(ctx, id)
	require.NoError(t, err)
	res, err := e.despacho.MigrarHistorial(ctx)
	require.NoError(t, err)
	assert.Zero(t, res.Tickets)
	assert.Empty(t, e.leer(t).cocina)
}
