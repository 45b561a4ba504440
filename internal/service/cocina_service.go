package service

import (
	"context"
	"sort"
	"strings"
	"unicode"

	"comanda/internal/apierror"
	"comanda/internal/infra"
	"comanda/internal/model"
	"comanda/internal/repository"

	"github.com/rs/zerolog/log"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

type CocinaService interface {
	ListarPendientes(ctx context.Context) ([]model.TicketCocina, error)
	CompletarTicket(ctx context.Context, id string) (*model.TicketCocina, error)
}

type cocinaService struct {
	almacen repository.Almacen
	reloj   Reloj
	pub     infra.Publicador
}

func NewCocinaService(almacen repository.Almacen, reloj Reloj, pub infra.Publicador) CocinaService {
	return &cocinaService{almacen: almacen, reloj: reloj, pub: pub}
}

// ListarPendientes returns the queue oldest first.
func (s *cocinaService) ListarPendientes(ctx context.Context) ([]model.TicketCocina, error) {
	var out []model.TicketCocina
	err := s.almacen.View(ctx, func(tx *repository.Tx) error {
		cocina, err := tx.Cocina()
		if err != nil {
			return err
		}
		out = append([]model.TicketCocina{}, cocina...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp < out[j].Timestamp })
	return out, nil
}

// CompletarTicket removes the ticket and marks the order served in history
// and payments. Payment state is untouched.
func (s *cocinaService) CompletarTicket(ctx context.Context, id string) (*model.TicketCocina, error) {
	var ticket model.TicketCocina
	err := s.almacen.RunTx(ctx, func(tx *repository.Tx) error {
		cocina, err := tx.Cocina()
		if err != nil {
			return err
		}
		i := buscarTicket(cocina, id)
		if i < 0 {
			return apierror.NoEncontrado("Pedido %s no está en cocina", id)
		}
		ticket = cocina[i]
		tx.GuardarCocina(append(cocina[:i:i], cocina[i+1:]...))

		st := s.reloj.sello()
		historial, err := tx.Historial()
		if err != nil {
			return err
		}
		if j := buscarHistorial(historial, id); j >= 0 {
			historial[j].CompletadoCocina = true
			historial[j].FechaCompletadoCocina = st.fecha
			historial[j].HoraCompletadoCocina = st.hora
			tx.GuardarHistorial(historial)
		}

		pagos, err := tx.Pagos()
		if err != nil {
			return err
		}
		if j := buscarPago(pagos, id); j >= 0 {
			pagos[j].CompletadoCocina = true
			pagos[j].FechaCompletadoCocina = st.fecha
			pagos[j].HoraCompletadoCocina = st.hora
			tx.GuardarPagos(pagos)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	publicar(ctx, s.pub, infra.TemaTicketCompletado, ticket)
	log.Info().Str("pedido_id", id).Str("mesa", ticket.Mesa).Msg("cocina: pedido completado")
	return &ticket, nil
}

// ── Side tally ───────────────────────────────────────────────────────────────

// plegar lowercases and strips diacritics: "Patacón" → "patacon".
func plegar(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}

// ContarAcompanamientos tallies the sides of every item by bucket, weighted
// by cantidad. Only items with no sides list at all fall back to their
// chosen porcion; blank names are skipped. Names matching no bucket are
// returned, once each, in sinClasificar.
func ContarAcompanamientos(items []model.ItemPedido) (conteo model.ConteoAcompanamientos, sinClasificar []string) {
	vistos := map[string]bool{}
	for _, it := range items {
		fuente := it.Acompanamientos
		if fuente == nil && it.Porcion != nil {
			fuente = []model.Acompanamiento{*it.Porcion}
		}
		nombres := make([]string, 0, len(fuente))
		for _, a := range fuente {
			if strings.TrimSpace(a.Nombre) != "" {
				nombres = append(nombres, a.Nombre)
			}
		}
		cant := it.Cantidad
		if cant <= 0 {
			cant = 1
		}
		for _, nombre := range nombres {
			if sumarAcompanamiento(&conteo, plegar(nombre), cant) {
				continue
			}
			if !vistos[nombre] {
				vistos[nombre] = true
				sinClasificar = append(sinClasificar, nombre)
				log.Warn().Str("acompanamiento", nombre).Str("item", it.Nombre).Msg("cocina: acompañamiento sin clasificar")
			}
		}
	}
	return conteo, sinClasificar
}

// sumarAcompanamiento adds cant to every bucket n matches.
func sumarAcompanamiento(c *model.ConteoAcompanamientos, n string, cant int) bool {
	hit := false
	sumar := func(ok bool, dst *int) {
		if ok {
			*dst += cant
			hit = true
		}
	}
	sumar(strings.Contains(n, "ensalada"), &c.Ensaladas)
	sumar(strings.Contains(n, "papa"), &c.Papas)
	sumar(strings.Contains(n, "patacon"), &c.Patacones)
	sumar(strings.Contains(n, "yuca"), &c.Yucas)
	arroz := strings.Contains(n, "arroz")
	sumar(arroz && strings.Contains(n, "menestra"), &c.ArrozMenestra)
	sumar(arroz && strings.Contains(n, "moro"), &c.ArrozMoro)
	return hit
}
