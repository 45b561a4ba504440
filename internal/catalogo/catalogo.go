// Package catalogo holds the restaurant's read-only reference data: products,
// side portions, pizza extras and flavors, and doneness levels.
package catalogo

import (
	_ "embed"
	"fmt"
	"sort"

	"comanda/internal/model"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

//go:embed catalogo.yaml
var datosEmbebidos []byte

// PorcionPremium is the only side whose price is added to the item.
const PorcionPremium = "Arroz Moro"

var especialidades = map[string]bool{
	"Asado Completo":     true,
	"Picaditas de Carne": true,
	"Seco de Gallina":    true,
	"Arroz con Camarón":  true,
	"Arroz Mariscos":     true,
}

var conTermino = map[string]bool{
	"Picaña":             true,
	"Ribye":              true,
	"Lomo fino":          true,
	"Costillas ahumadas": true,
}

// Catalogo is immutable after load and safe for concurrent use.
type Catalogo struct {
	productos []model.Producto
	porID     map[int]model.Producto
	porciones []model.Opcion
	extras    []model.Opcion
	sabores   []model.Opcion
	terminos  []model.Opcion
}

// ── YAML shape ───────────────────────────────────────────────────────────────

type acompanamientoYAML struct {
	Nombre   string `yaml:"nombre"`
	Precio   string `yaml:"precio"`
	Cantidad int    `yaml:"cantidad"`
}

type productoYAML struct {
	ID                             int                  `yaml:"id"`
	Nombre                         string               `yaml:"nombre"`
	Precio                         string               `yaml:"precio"`
	Categoria                      string               `yaml:"categoria"`
	Tipo                           string               `yaml:"tipo"`
	Descripcion                    string               `yaml:"descripcion"`
	AcompanamientosObligatorios    []acompanamientoYAML `yaml:"acompanamientos_obligatorios"`
	SinAcompanamientosObligatorios bool                 `yaml:"sin_acompanamientos_obligatorios"`
}

type opcionYAML struct {
	ID          int    `yaml:"id"`
	Nombre      string `yaml:"nombre"`
	Precio      string `yaml:"precio"`
	Descripcion string `yaml:"descripcion"`
}

type archivoYAML struct {
	Productos []productoYAML `yaml:"productos"`
	Porciones []opcionYAML   `yaml:"porciones"`
	Extras    []opcionYAML   `yaml:"extras"`
	Sabores   []opcionYAML   `yaml:"sabores"`
	Terminos  []opcionYAML   `yaml:"terminos"`
}

// Cargar parses the embedded catalog.
func Cargar() (*Catalogo, error) {
	return Parse(datosEmbebidos)
}

// Parse builds a Catalogo from YAML. Product ids must be unique.
func Parse(data []byte) (*Catalogo, error) {
	var raw archivoYAML
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("catalogo: yaml inválido: %w", err)
	}

	c := &Catalogo{porID: make(map[int]model.Producto, len(raw.Productos))}
	for _, p := range raw.Productos {
		if _, dup := c.porID[p.ID]; dup {
			return nil, fmt.Errorf("catalogo: id de producto duplicado %d", p.ID)
		}
		precio, err := precioDesde(p.Precio)
		if err != nil {
			return nil, fmt.Errorf("catalogo: producto %d: %w", p.ID, err)
		}
		prod := model.Producto{
			ID:                             p.ID,
			Nombre:                         p.Nombre,
			Precio:                         precio,
			Categoria:                      model.Categoria(p.Categoria),
			Tipo:                           model.TipoProducto(p.Tipo),
			Descripcion:                    p.Descripcion,
			SinAcompanamientosObligatorios: p.SinAcompanamientosObligatorios,
		}
		for _, a := range p.AcompanamientosObligatorios {
			ap, err := precioDesde(a.Precio)
			if err != nil {
				return nil, fmt.Errorf("catalogo: producto %d: %w", p.ID, err)
			}
			prod.AcompanamientosObligatorios = append(prod.AcompanamientosObligatorios,
				model.Acompanamiento{Nombre: a.Nombre, Precio: ap, Cantidad: a.Cantidad})
		}
		c.productos = append(c.productos, prod)
		c.porID[p.ID] = prod
	}

	var err error
	if c.porciones, err = opciones("porciones", raw.Porciones); err != nil {
		return nil, err
	}
	if c.extras, err = opciones("extras", raw.Extras); err != nil {
		return nil, err
	}
	if c.sabores, err = opciones("sabores", raw.Sabores); err != nil {
		return nil, err
	}
	if c.terminos, err = opciones("terminos", raw.Terminos); err != nil {
		return nil, err
	}
	return c, nil
}

func opciones(tabla string, in []opcionYAML) ([]model.Opcion, error) {
	out := make([]model.Opcion, 0, len(in))
	vistos := make(map[int]bool, len(in))
	for _, o := range in {
		if vistos[o.ID] {
			return nil, fmt.Errorf("catalogo: %s: id duplicado %d", tabla, o.ID)
		}
		vistos[o.ID] = true
		precio, err := precioDesde(o.Precio)
		if err != nil {
			return nil, fmt.Errorf("catalogo: %s %d: %w", tabla, o.ID, err)
		}
		out = append(out, model.Opcion{ID: o.ID, Nombre: o.Nombre, Precio: precio, Descripcion: o.Descripcion})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func precioDesde(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("precio inválido %q", s)
	}
	return d, nil
}

// ── Lookups ──────────────────────────────────────────────────────────────────

func (c *Catalogo) Producto(id int) (model.Producto, bool) {
	p, ok := c.porID[id]
	return p, ok
}

// Productos lists the catalog in file order, optionally filtered by categoria.
func (c *Catalogo) Productos(categoria model.Categoria) []model.Producto {
	out := make([]model.Producto, 0, len(c.productos))
	for _, p := range c.productos {
		if categoria == "" || p.Categoria == categoria {
			out = append(out, p)
		}
	}
	return out
}

func (c *Catalogo) Porciones() []model.Opcion { return c.porciones }
func (c *Catalogo) Extras() []model.Opcion    { return c.extras }
func (c *Catalogo) Sabores() []model.Opcion   { return c.sabores }
func (c *Catalogo) Terminos() []model.Opcion  { return c.terminos }

func (c *Catalogo) Porcion(id int) (model.Opcion, bool) { return buscar(c.porciones, id) }
func (c *Catalogo) Extra(id int) (model.Opcion, bool)   { return buscar(c.extras, id) }
func (c *Catalogo) Sabor(id int) (model.Opcion, bool)   { return buscar(c.sabores, id) }
func (c *Catalogo) Termino(id int) (model.Opcion, bool) { return buscar(c.terminos, id) }

func buscar(tabla []model.Opcion, id int) (model.Opcion, bool) {
	for _, o := range tabla {
		if o.ID == id {
			return o, true
		}
	}
	return model.Opcion{}, false
}

// ── Classification helpers ───────────────────────────────────────────────────

// EsEspecialidad reports whether the product is added directly with no prompt.
func EsEspecialidad(p model.Producto) bool {
	return especialidades[p.Nombre] || p.SinAcompanamientosObligatorios
}

// RequiereTermino reports whether the product must be ordered with a doneness.
func RequiereTermino(p model.Producto) bool {
	return conTermino[p.Nombre]
}

// EsCocina decides kitchen routing. Items without a catalog link (free
// sales) and items whose product no longer exists never go to the kitchen.
func (c *Catalogo) EsCocina(it model.ItemPedido) bool {
	if it.ProductoID == nil {
		return false
	}
	p, ok := c.porID[*it.ProductoID]
	if !ok {
		return false
	}
	return p.Categoria.VaACocina()
}
