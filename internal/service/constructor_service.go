package service

import (
	"fmt"
	"sort"
	"strings"

	"comanda/internal/apierror"
	"comanda/internal/catalogo"
	"comanda/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Variante is the composition flow a product goes through when added.
type Variante int

const (
	VarianteDirecta Variante = iota
	VarianteEspecialidad
	VarianteTermino
	VariantePizza
	VariantePorcion
)

var nombresVariante = [...]string{"directa", "especialidad", "termino", "pizza", "porcion"}

func (v Variante) String() string {
	if int(v) < len(nombresVariante) {
		return nombresVariante[v]
	}
	return fmt.Sprintf("Variante(%d)", int(v))
}

func (v Variante) MarshalText() ([]byte, error) { return []byte(v.String()), nil }

// PideOpciones reports whether the variant needs a Seleccion from the user.
func (v Variante) PideOpciones() bool {
	return v == VarianteTermino || v == VariantePizza || v == VariantePorcion
}

const (
	SinTermino         = 0
	SinAcompanamientos = 0

	ensaladaBase = "Ensalada"
	detalleLibre = "Venta libre"
)

// Seleccion is the option state of one composition dialog, keyed by option id.
type Seleccion struct {
	Variante       Variante     `json:"variante"`
	ProductoID     int          `json:"productoId"`
	TerminoID      int          `json:"terminoId"`
	PorcionID      int          `json:"porcionId"`
	Mitades        bool         `json:"mitades"`
	PrimeraMitadID int          `json:"primeraMitadId,omitempty"`
	SegundaMitadID int          `json:"segundaMitadId,omitempty"`
	Extras         map[int]bool `json:"extras,omitempty"`
}

func (s *Seleccion) ElegirTermino(id int) { s.TerminoID = id }
func (s *Seleccion) ElegirPorcion(id int) { s.PorcionID = id }

// AlternarExtra toggles an extra on or off.
func (s *Seleccion) AlternarExtra(id int) {
	if s.Extras == nil {
		s.Extras = map[int]bool{}
	}
	if s.Extras[id] {
		delete(s.Extras, id)
		return
	}
	s.Extras[id] = true
}

func (s *Seleccion) ElegirMitades(primera, segunda int) {
	s.Mitades = true
	s.PrimeraMitadID = primera
	s.SegundaMitadID = segunda
}

func (s *Seleccion) Entera() {
	s.Mitades = false
	s.PrimeraMitadID, s.SegundaMitadID = 0, 0
}

func (s *Seleccion) extrasOrdenados() []int {
	ids := make([]int, 0, len(s.Extras))
	for id, on := range s.Extras {
		if on {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	return ids
}

// ConstructorService composes orders. The *model.Pedido passed in is the
// caller-owned builder context; every method mutates it in place.
type ConstructorService interface {
	Nuevo() *model.Pedido
	Clasificar(p model.Producto) Variante
	SeleccionInicial(p model.Producto) *Seleccion
	AgregarProducto(pedido *model.Pedido, productoID int, sel *Seleccion) (model.ItemPedido, error)
	AgregarVentaLibre(pedido *model.Pedido, nombre string, precio decimal.Decimal, cantidad int) (model.ItemPedido, error)
	AgregarItem(pedido *model.Pedido, item model.ItemPedido) model.ItemPedido
	QuitarItem(pedido *model.Pedido, itemID string) error
	AsignarCliente(pedido *model.Pedido, cliente, mesa string)
}

type constructorService struct {
	cat   *catalogo.Catalogo
	reloj Reloj
}

func NewConstructorService(cat *catalogo.Catalogo, reloj Reloj) ConstructorService {
	return &constructorService{cat: cat, reloj: reloj}
}

type manejadorVariante func(s *constructorService, p model.Producto, sel *Seleccion) (model.ItemPedido, error)

var manejadores = map[Variante]manejadorVariante{
	VarianteDirecta:      (*constructorService).itemDirecto,
	VarianteEspecialidad: (*constructorService).itemDirecto,
	VarianteTermino:      (*constructorService).itemConPorcion,
	VariantePorcion:      (*constructorService).itemConPorcion,
	VariantePizza:        (*constructorService).itemPizza,
}

func (s *constructorService) Nuevo() *model.Pedido {
	st := s.reloj.sello()
	return &model.Pedido{
		ID:        uuid.NewString(),
		Items:     []model.ItemPedido{},
		Total:     decimal.Zero,
		Fecha:     st.fecha,
		Hora:      st.hora,
		Timestamp: st.ms,
	}
}

func (s *constructorService) Clasificar(p model.Producto) Variante {
	switch {
	case catalogo.EsEspecialidad(p):
		return VarianteEspecialidad
	case catalogo.RequiereTermino(p):
		return VarianteTermino
	case p.Tipo == model.TipoPizza:
		return VariantePizza
	case p.Tipo == model.TipoPlato || p.Tipo == model.TipoCorte || p.Tipo == model.TipoCorteTermino:
		return VariantePorcion
	default:
		return VarianteDirecta
	}
}

func (s *constructorService) SeleccionInicial(p model.Producto) *Seleccion {
	sel := &Seleccion{
		Variante:   s.Clasificar(p),
		ProductoID: p.ID,
		TerminoID:  SinTermino,
		PorcionID:  SinAcompanamientos,
	}
	if catalogo.RequiereTermino(p) {
		// "1/2"
		sel.TerminoID = 1
	}
	if sel.Variante == VariantePizza {
		sel.PrimeraMitadID, sel.SegundaMitadID = 1, 1
	}
	return sel
}

// AgregarProducto builds the item for the product's variant and appends it.
// A nil sel uses the defaults of SeleccionInicial.
func (s *constructorService) AgregarProducto(pedido *model.Pedido, productoID int, sel *Seleccion) (model.ItemPedido, error) {
	p, ok := s.cat.Producto(productoID)
	if !ok {
		return model.ItemPedido{}, apierror.NoEncontrado("Producto %d no encontrado", productoID)
	}
	if sel == nil {
		sel = s.SeleccionInicial(p)
	}
	v := s.Clasificar(p)
	item, err := manejadores[v](s, p, sel)
	if err != nil {
		return model.ItemPedido{}, err
	}
	return s.AgregarItem(pedido, item), nil
}

func (s *constructorService) AgregarVentaLibre(pedido *model.Pedido, nombre string, precio decimal.Decimal, cantidad int) (model.ItemPedido, error) {
	nombre = strings.TrimSpace(nombre)
	if nombre == "" {
		return model.ItemPedido{}, apierror.Validacion("Ingrese el nombre del producto")
	}
	if !precio.IsPositive() {
		return model.ItemPedido{}, apierror.Validacion("El precio debe ser mayor a cero")
	}
	if cantidad <= 0 {
		return model.ItemPedido{}, apierror.Validacion("La cantidad debe ser mayor a cero")
	}
	return s.AgregarItem(pedido, model.ItemPedido{
		Nombre:   nombre,
		Precio:   precio,
		Cantidad: cantidad,
		Detalles: detalleLibre,
	}), nil
}

// AgregarItem never merges: two identical selections are two items.
func (s *constructorService) AgregarItem(pedido *model.Pedido, item model.ItemPedido) model.ItemPedido {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if item.Timestamp == 0 {
		item.Timestamp = s.reloj().UnixMilli()
	}
	if item.Cantidad <= 0 {
		item.Cantidad = 1
	}
	pedido.Items = append(pedido.Items, item)
	pedido.RecalcularTotal()
	return item
}

func (s *constructorService) QuitarItem(pedido *model.Pedido, itemID string) error {
	for i, it := range pedido.Items {
		if it.ID == itemID {
			pedido.Items = append(pedido.Items[:i], pedido.Items[i+1:]...)
			pedido.RecalcularTotal()
			return nil
		}
	}
	return apierror.NoEncontrado("Item %s no está en el pedido", itemID)
}

func (s *constructorService) AsignarCliente(pedido *model.Pedido, cliente, mesa string) {
	pedido.Cliente = strings.TrimSpace(cliente)
	pedido.Mesa = strings.TrimSpace(mesa)
}

// ── Variant handlers ─────────────────────────────────────────────────────────

func itemBase(p model.Producto) model.ItemPedido {
	id := p.ID
	return model.ItemPedido{
		ProductoID: &id,
		Nombre:     p.Nombre,
		Precio:     p.Precio,
		Cantidad:   1,
		Tipo:       p.Tipo,
		Categoria:  p.Categoria,
	}
}

func (s *constructorService) itemDirecto(p model.Producto, _ *Seleccion) (model.ItemPedido, error) {
	item := itemBase(p)
	item.Detalles = p.Descripcion
	if len(p.AcompanamientosObligatorios) > 0 && !catalogo.EsEspecialidad(p) {
		item.Acompanamientos = append([]model.Acompanamiento(nil), p.AcompanamientosObligatorios...)
	}
	return item, nil
}

func (s *constructorService) itemConPorcion(p model.Producto, sel *Seleccion) (model.ItemPedido, error) {
	requiere := catalogo.RequiereTermino(p)

	var termino *model.Opcion
	if sel.TerminoID != SinTermino {
		t, ok := s.cat.Termino(sel.TerminoID)
		if !ok {
			return model.ItemPedido{}, apierror.Validacion("Término %d no existe", sel.TerminoID)
		}
		termino = &t
	} else if requiere {
		return model.ItemPedido{}, apierror.Validacion("Seleccione el término de %s", p.Nombre)
	}

	var porcion *model.Opcion
	if sel.PorcionID != SinAcompanamientos {
		o, ok := s.cat.Porcion(sel.PorcionID)
		if !ok {
			return model.ItemPedido{}, apierror.Validacion("Acompañamiento %d no existe", sel.PorcionID)
		}
		porcion = &o
	}

	item := itemBase(p)
	var partes []string
	if termino != nil {
		partes = append(partes, termino.Nombre)
	}
	if porcion != nil {
		partes = append(partes, porcion.Nombre)
		if porcion.Nombre == catalogo.PorcionPremium {
			item.Precio = item.Precio.Add(porcion.Precio)
		}
		elegida := model.Acompanamiento{Nombre: porcion.Nombre, Precio: porcion.Precio}
		item.Acompanamientos = []model.Acompanamiento{
			{Nombre: ensaladaBase, Precio: decimal.Zero},
			elegida,
		}
		item.Porcion = &elegida
	}
	item.Detalles = strings.Join(partes, ", ")
	return item, nil
}

func (s *constructorService) itemPizza(p model.Producto, sel *Seleccion) (model.ItemPedido, error) {
	item := itemBase(p)

	var textos []string
	for _, id := range sel.extrasOrdenados() {
		e, ok := s.cat.Extra(id)
		if !ok {
			return model.ItemPedido{}, apierror.Validacion("Extra %d no existe", id)
		}
		item.Precio = item.Precio.Add(e.Precio)
		textos = append(textos, fmt.Sprintf("%s (+$%s)", e.Nombre, e.Precio.StringFixed(2)))
	}
	extras := strings.Join(textos, ", ")

	if !sel.Mitades {
		item.Detalles = extras
		return item, nil
	}

	a, okA := s.cat.Sabor(sel.PrimeraMitadID)
	b, okB := s.cat.Sabor(sel.SegundaMitadID)
	if !okA || !okB {
		return model.ItemPedido{}, apierror.Validacion("Seleccione los dos sabores de la pizza")
	}
	item.Detalles = fmt.Sprintf("Mitad %s y mitad %s", a.Nombre, b.Nombre)
	if extras != "" {
		item.Detalles += ", " + extras
	}
	item.EsMitad = true
	item.Mitades = []string{a.Nombre, b.Nombre}
	return item, nil
}
