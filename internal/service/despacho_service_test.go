package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"comanda/internal/apierror"
	"comanda/internal/infra"
	"comanda/internal/model"
	"comanda/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ── Finalizar ─────────────────────────────────────────────────────────────────

func TestFinalizar_SoloBebidasNoVaACocina(t *testing.T) {
	e := nuevoEntorno(t)
	id := e.finalizado(t, 43, 47)

	s := e.leer(t)
	assert.Empty(t, s.cocina)
	h, ok := s.enHistorial(id)
	require.True(t, ok)
	assert.True(t, h.Total.Equal(dec("1.50")))

	p, ok := s.pago(id)
	require.True(t, ok)
	assert.True(t, p.TotalPendiente.Equal(dec("1.50")))
	assert.True(t, p.TotalPagado.IsZero())
	assert.Len(t, p.ItemsPendientes, 2)
	assert.Equal(t, model.EstadoAbierto, p.Estado())

	require.Len(t, e.enc.pedidos, 1)
	assert.Equal(t, id, e.enc.pedidos[0].ID)
	assert.Equal(t, 1, e.pub.publicados(infra.TemaPedidoFinalizado))
}

func TestFinalizar_PizzaYBebida(t *testing.T) {
	e := nuevoEntorno(t)
	id := e.finalizado(t, 1, 43)

	s := e.leer(t)
	require.Len(t, s.cocina, 1)
	ticket := s.cocina[0]
	assert.Equal(t, id, ticket.ID)
	require.Len(t, ticket.Items, 1)
	assert.Equal(t, "Pizza Hawaiana", ticket.Items[0].Nombre)
	assert.Equal(t, "4", ticket.Mesa)
	assert.Equal(t, "Ana", ticket.Cliente)
}

func TestFinalizar_Validacion(t *testing.T) {
	e := nuevoEntorno(t)
	ctx := context.Background()

	vacio := e.pedido(t, "Ana", "1")
	sinCliente := e.pedido(t, "   ", "1", 43)
	sinMesa := e.pedido(t, "Ana", "", 43)

	for _, p := range []*model.Pedido{vacio, sinCliente, sinMesa, nil} {
		_, err := e.despacho.Finalizar(ctx, p)
		require.Error(t, err)
		assert.True(t, errors.Is(err, apierror.ErrValidacion))
	}

	s := e.leer(t)
	assert.Empty(t, s.historial)
	assert.Empty(t, s.pagos)
	assert.Empty(t, e.enc.pedidos)
}

func TestFinalizar_MismoIDReemplaza(t *testing.T) {
	e := nuevoEntorno(t)
	ctx := context.Background()
	p := e.pedido(t, "Ana", "2", 1)

	_, err := e.despacho.GuardarBorrador(ctx, p)
	require.NoError(t, err)
	_, err = e.constructor.AgregarProducto(p, 43, nil)
	require.NoError(t, err)
	_, err = e.despacho.Finalizar(ctx, p)
	require.NoError(t, err)

	s := e.leer(t)
	require.Len(t, s.historial, 1)
	assert.Len(t, s.historial[0].Items, 2)
	require.Len(t, s.cocina, 1)
	require.Len(t, s.pagos, 1)
	assert.True(t, s.pagos[0].TotalPendiente.Equal(dec("7.00")))
	assert.Len(t, e.enc.pedidos, 1, "el borrador no genera comprobante")
	assert.Equal(t, 1, e.pub.publicados(infra.TemaPedidoGuardado))
}

func TestFinalizar_ReenvioSinCocinaQuitaTicket(t *testing.T) {
	e := nuevoEntorno(t)
	ctx := context.Background()
	p := e.pedido(t, "Ana", "2", 1)
	_, err := e.despacho.Finalizar(ctx, p)
	require.NoError(t, err)
	require.Len(t, e.leer(t).cocina, 1)

	require.NoError(t, e.constructor.QuitarItem(p, p.Items[0].ID))
	_, err = e.constructor.AgregarProducto(p, 43, nil)
	require.NoError(t, err)
	_, err = e.despacho.Finalizar(ctx, p)
	require.NoError(t, err)

	assert.Empty(t, e.leer(t).cocina)
}

func TestFinalizar_ErrorAlEncolarNoFalla(t *testing.T) {
	e := nuevoEntorno(t)
	e.enc.err = errors.New("redis caído")

	id := e.finalizado(t, 43)
	_, ok := e.leer(t).enHistorial(id)
	assert.True(t, ok)
}

// ── Edición ───────────────────────────────────────────────────────────────────

func TestEditar_ReemplazaOriginalYConservaPagos(t *testing.T) {
	e := nuevoEntorno(t)
	ctx := context.Background()
	original := e.pedido(t, "Luis", "7", 1, 43)
	_, err := e.despacho.Finalizar(ctx, original)
	require.NoError(t, err)

	bebida := original.Items[1]
	_, err = e.pagos.PagarParcial(ctx, original.ID, []string{bebida.ID}, dec("0.50"))
	require.NoError(t, err)

	edit, err := e.despacho.EditarDesdeHistorial(ctx, original.ID)
	require.NoError(t, err)
	assert.NotEqual(t, original.ID, edit.ID)
	assert.True(t, edit.EsEdicion)
	assert.Equal(t, original.ID, edit.PedidoOriginalID)
	assert.Equal(t, "Luis", edit.Cliente)
	require.Len(t, edit.Items, 2)

	_, err = e.constructor.AgregarProducto(edit, 43, nil)
	require.NoError(t, err)
	reg, err := e.despacho.Finalizar(ctx, edit)
	require.NoError(t, err)
	assert.False(t, reg.EsEdicion)
	assert.Empty(t, reg.PedidoOriginalID)

	s := e.leer(t)
	_, ok := s.enHistorial(original.ID)
	assert.False(t, ok)
	_, ok = s.enCocina(original.ID)
	assert.False(t, ok)
	_, ok = s.pago(original.ID)
	assert.False(t, ok)

	p, ok := s.pago(edit.ID)
	require.True(t, ok)
	assert.True(t, p.TotalPagado.Equal(dec("0.50")))
	assert.True(t, p.TotalPendiente.Equal(dec("7.00")))
	assert.Len(t, p.PagosRealizados, 1)
	assert.True(t, p.TotalPagado.Add(p.TotalPendiente).Equal(p.PedidoOriginal.Total))

	h, ok := s.enHistorial(edit.ID)
	require.True(t, ok)
	assert.True(t, h.PagoParcial)
	require.NotNil(t, h.TotalPagado)
	assert.True(t, h.TotalPagado.Equal(dec("0.50")))
	_, ok = s.enCocina(edit.ID)
	assert.True(t, ok)
}

func TestEditar_ItemsYaPagadosNoSeCobranDosVeces(t *testing.T) {
	e := nuevoEntorno(t)
	ctx := context.Background()
	original := e.pedido(t, "Luis", "7", 1, 43)
	_, err := e.despacho.Finalizar(ctx, original)
	require.NoError(t, err)
	bebida := original.Items[1]
	_, err = e.pagos.PagarParcial(ctx, original.ID, []string{bebida.ID}, dec("0.50"))
	require.NoError(t, err)

	edit, err := e.despacho.EditarDesdeHistorial(ctx, original.ID)
	require.NoError(t, err)
	_, err = e.constructor.AgregarProducto(edit, 43, nil)
	require.NoError(t, err)
	_, err = e.despacho.Finalizar(ctx, edit)
	require.NoError(t, err)

	p, ok := e.leer(t).pago(edit.ID)
	require.True(t, ok)
	require.Len(t, p.ItemsPendientes, 2)
	ids := make([]string, 0, len(p.ItemsPendientes))
	suma := dec("0")
	for _, it := range p.ItemsPendientes {
		assert.NotEqual(t, bebida.ID, it.ID)
		ids = append(ids, it.ID)
		suma = suma.Add(it.Subtotal())
	}
	assert.True(t, suma.Equal(p.TotalPendiente), "pendientes %s, saldo %s", suma, p.TotalPendiente)

	final, err := e.pagos.PagarParcial(ctx, edit.ID, ids, suma)
	require.NoError(t, err)
	assert.True(t, final.Completado)
	assert.True(t, final.TotalPagado.Equal(final.PedidoOriginal.Total))

	reportes, err := e.pagos.ListarReportes(ctx)
	require.NoError(t, err)
	cobrado := dec("0")
	for _, r := range reportes {
		cobrado = cobrado.Add(r.Monto)
	}
	assert.True(t, cobrado.Equal(dec("7.50")), "cobrado %s", cobrado)
}

func TestPagarParcial_MontoMayorAlSaldo(t *testing.T) {
	e := nuevoEntorno(t)
	ctx := context.Background()
	original := e.pedido(t, "Ana", "2", 1, 43)
	_, err := e.despacho.Finalizar(ctx, original)
	require.NoError(t, err)
	bebida := original.Items[1]
	_, err = e.pagos.PagarParcial(ctx, original.ID, []string{bebida.ID}, dec("0.50"))
	require.NoError(t, err)

	// the paid drink is removed, so the pizza now costs more than what is owed
	edit, err := e.despacho.EditarDesdeHistorial(ctx, original.ID)
	require.NoError(t, err)
	require.NoError(t, e.constructor.QuitarItem(edit, bebida.ID))
	_, err = e.despacho.Finalizar(ctx, edit)
	require.NoError(t, err)

	p, ok := e.leer(t).pago(edit.ID)
	require.True(t, ok)
	require.True(t, p.TotalPendiente.Equal(dec("6.00")))
	require.Len(t, p.ItemsPendientes, 1)

	_, err = e.pagos.PagarParcial(ctx, edit.ID, []string{p.ItemsPendientes[0].ID}, dec("6.50"))
	assert.True(t, errors.Is(err, apierror.ErrValidacion))

	p, _ = e.leer(t).pago(edit.ID)
	assert.True(t, p.TotalPagado.Equal(dec("0.50")))
	assert.False(t, p.Completado)
}

func TestEditar_NoExiste(t *testing.T) {
	e := nuevoEntorno(t)
	_, err := e.despacho.EditarDesdeHistorial(context.Background(), "nada")
	assert.True(t, errors.Is(err, apierror.ErrNoEncontrado))
}

// ── Migración ─────────────────────────────────────────────────────────────────

func TestMigrarGuardados(t *testing.T) {
	e := nuevoEntorno(t)
	ctx := context.Background()
	ya := e.finalizado(t, 43)

	borrador := e.pedido(t, "Eva", "3", 1)
	err := e.almacen.RunTx(ctx, func(tx *repository.Tx) error {
		tx.GuardarGuardados([]model.Pedido{*borrador, {ID: ya, Cliente: "Ana", Mesa: "4"}})
		return nil
	})
	require.NoError(t, err)

	n, err := e.despacho.MigrarGuardados(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = e.despacho.MigrarGuardados(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	s := e.leer(t)
	assert.Len(t, s.historial, 2)
	assert.Len(t, s.guardados, 2, "los borradores no se borran al migrar")
}

func TestMigrarHistorial_Idempotente(t *testing.T) {
	e := nuevoEntorno(t)
	ctx := context.Background()

	conCocina := e.pedido(t, "Eva", "3", 1, 43)
	soloBebida := e.pedido(t, "Leo", "5", 43)
	pagado := e.pedido(t, "Sol", "6", 2)
	err := e.almacen.RunTx(ctx, func(tx *repository.Tx) error {
		tx.GuardarHistorial([]model.RegistroHistorial{
			{Pedido: *conCocina},
			{Pedido: *soloBebida},
			{Pedido: *pagado, Pagado: true, Completado: true},
		})
		return nil
	})
	require.NoError(t, err)

	res, err := e.despacho.MigrarHistorial(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Tickets)
	assert.Equal(t, 2, res.Pagos)

	res, err = e.despacho.MigrarHistorial(ctx)
	require.NoError(t, err)
	assert.Zero(t, res.Tickets)
	assert.Zero(t, res.Pagos)

	s := e.leer(t)
	assert.Len(t, s.cocina, 1)
	assert.Len(t, s.pagos, 2)
	p, ok := s.pago(conCocina.ID)
	require.True(t, ok)
	assert.True(t, p.TotalPendiente.Equal(conCocina.Total))
}

// ── Purgas ────────────────────────────────────────────────────────────────────

func TestPurgarCompletados_QuitaDeTodo(t *testing.T) {
	e := nuevoEntorno(t)
	ctx := context.Background()
	cerrado := e.finalizado(t, 1)
	abierto := e.finalizado(t, 2)

	err := e.almacen.RunTx(ctx, func(tx *repository.Tx) error {
		pagos, err := tx.Pagos()
		if err != nil {
			return err
		}
		for i := range pagos {
			if pagos[i].ID == cerrado {
				pagos[i].Completado = true
			}
		}
		tx.GuardarPagos(pagos)
		tx.GuardarGuardados([]model.Pedido{{ID: cerrado}})
		return nil
	})
	require.NoError(t, err)

	ids, err := e.despacho.PurgarCompletados(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{cerrado}, ids)

	s := e.leer(t)
	_, ok := s.enHistorial(cerrado)
	assert.False(t, ok)
	_, ok = s.enCocina(cerrado)
	assert.False(t, ok)
	_, ok = s.pago(cerrado)
	assert.False(t, ok)
	assert.Empty(t, s.guardados)

	_, ok = s.enHistorial(abierto)
	assert.True(t, ok)
	_, ok = s.enCocina(abierto)
	assert.True(t, ok)

	ids, err = e.despacho.PurgarCompletados(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestPurgarAntiguos(t *testing.T) {
	e := nuevoEntorno(t)
	ctx := context.Background()
	id := e.finalizado(t, 1)
	_, err := e.pagos.PagarParcial(ctx, id, []string{e.leer(t).historial[0].Items[0].ID}, dec("6.50"))
	require.NoError(t, err)
	otro := e.finalizado(t, 43)

	purgado, err := e.despacho.PurgarAntiguos(ctx, false)
	require.NoError(t, err)
	assert.False(t, purgado, "sin marca previa solo se inicializa")

	e.avanzar(5 * time.Hour)
	purgado, err = e.despacho.PurgarAntiguos(ctx, false)
	require.NoError(t, err)
	assert.False(t, purgado)

	e.avanzar(time.Hour)
	purgado, err = e.despacho.PurgarAntiguos(ctx, false)
	require.NoError(t, err)
	assert.True(t, purgado)

	s := e.leer(t)
	assert.Empty(t, s.historial)
	assert.Empty(t, s.cocina)
	assert.Empty(t, s.pagos)
	assert.Len(t, s.reportes, 1, "los reportes se respaldan pero no se borran")

	raw, err := e.kv.Get(ctx, "respaldo_historial_2024-05-15")
	require.NoError(t, err)
	assert.Contains(t, string(raw), otro)
	_, err = e.kv.Get(ctx, "respaldo_pagos_2024-05-15")
	require.NoError(t, err)
	_, err = e.kv.Get(ctx, "respaldo_reportes_2024-05-15")
	require.NoError(t, err)
	assert.Equal(t, 1, e.pub.publicados(infra.TemaLimpiezaEjecutada))

	restante, err := e.despacho.TiempoRestante(ctx)
	require.NoError(t, err)
	assert.Equal(t, umbralPrueba, restante)
}

func TestPurgarAntiguos_Forzada(t *testing.T) {
	e := nuevoEntorno(t)
	ctx := context.Background()
	e.finalizado(t, 43)

	purgado, err := e.despacho.PurgarAntiguos(ctx, true)
	require.NoError(t, err)
	assert.True(t, purgado)
	assert.Empty(t, e.leer(t).historial)
}

func TestTiempoRestante(t *testing.T) {
	e := nuevoEntorno(t)
	ctx := context.Background()

	restante, err := e.despacho.TiempoRestante(ctx)
	require.NoError(t, err)
	assert.Equal(t, umbralPrueba, restante)

	_, err = e.despacho.PurgarAntiguos(ctx, false)
	require.NoError(t, err)
	e.avanzar(2*time.Hour + 30*time.Minute)
	restante, err = e.despacho.TiempoRestante(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3*time.Hour+30*time.Minute, restante)

	e.avanzar(10 * time.Hour)
	restante, err = e.despacho.TiempoRestante(ctx)
	require.NoError(t, err)
	assert.Zero(t, restante)
}

func TestMantenimiento(t *testing.T) {
	e := nuevoEntorno(t)
	ctx := context.Background()

	huerfano := e.pedido(t, "Eva", "3", 1)
	borrador := e.pedido(t, "Leo", "5", 43)
	err := e.almacen.RunTx(ctx, func(tx *repository.Tx) error {
		tx.GuardarHistorial([]model.RegistroHistorial{{Pedido: *huerfano}})
		tx.GuardarGuardados([]model.Pedido{*borrador})
		return nil
	})
	require.NoError(t, err)

	r, err := e.despacho.Mantenimiento(ctx)
	require.NoError(t, err)
	assert.False(t, r.Purgado)
	assert.Empty(t, r.Completados)
	assert.Equal(t, 1, r.Guardados)
	assert.Equal(t, 1, r.Migracion.Tickets)
	assert.Equal(t, 2, r.Migracion.Pagos)

	s := e.leer(t)
	assert.Len(t, s.historial, 2)
	assert.Len(t, s.cocina, 1)
	assert.Len(t, s.pagos, 2)
}
