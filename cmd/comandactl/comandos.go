package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"comanda/internal/catalogo"
	"comanda/internal/config"
	"comanda/internal/infra"
	"comanda/internal/model"
	"comanda/internal/repository"
	"comanda/internal/service"
	"comanda/internal/worker"

	"github.com/spf13/cobra"
)

// entorno is the part of the server wiring the commands need. Events go
// nowhere: a CLI run has no websocket clients and brokers are not dialed.
type entorno struct {
	cfg      *config.Config
	store    *infra.Store
	despacho service.DespachoService
}

func abrir(ctx context.Context) (*entorno, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	store, err := infra.AbrirStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	cat, err := catalogo.Cargar()
	if err != nil {
		store.Close()
		return nil, err
	}
	almacen := repository.NewAlmacen(store.KV)
	reloj := service.RelojSistema(cfg.Ubicacion())
	despacho := service.NewDespachoService(almacen, cat, reloj, infra.NopPublicador(), nil, cfg.UmbralLimpieza())
	return &entorno{cfg: cfg, store: store, despacho: despacho}, nil
}

func imprimir(v any, texto func()) error {
	if salidaJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	texto()
	return nil
}

func mantenimientoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mantenimiento",
		Short: "Ejecuta la secuencia de arranque: limpieza por antigüedad, purga de completados y migración",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := abrir(cmd.Context())
			if err != nil {
				return err
			}
			defer e.store.Close()

			r, err := e.despacho.Mantenimiento(cmd.Context())
			if err != nil {
				return err
			}
			return imprimir(r, func() {
				fmt.Printf("Limpieza por antigüedad: %v\n", r.Purgado)
				fmt.Printf("Pedidos completados purgados: %d\n", len(r.Completados))
				fmt.Printf("Pedidos guardados migrados: %d\n", r.Guardados)
				fmt.Printf("Tickets reconstruidos: %d, pagos reconstruidos: %d\n", r.Migracion.Tickets, r.Migracion.Pagos)
			})
		},
	}
}

func purgarCompletadosCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "purgar-completados",
		Short: "Elimina de todos los registros los pedidos ya pagados",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := abrir(cmd.Context())
			if err != nil {
				return err
			}
			defer e.store.Close()

			ids, err := e.despacho.PurgarCompletados(cmd.Context())
			if err != nil {
				return err
			}
			return imprimir(ids, func() {
				fmt.Printf("Pedidos purgados: %d\n", len(ids))
				for _, id := range ids {
					fmt.Println("  " + id)
				}
			})
		},
	}
}

func purgarAntiguosCmd() *cobra.Command {
	var forzar bool
	cmd := &cobra.Command{
		Use:   "purgar-antiguos",
		Short: "Respalda y vacía historial, cocina y pagos cuando pasó el umbral de limpieza",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := abrir(cmd.Context())
			if err != nil {
				return err
			}
			defer e.store.Close()

			ok, err := e.despacho.PurgarAntiguos(cmd.Context(), forzar)
			if err != nil {
				return err
			}
			restante, err := e.despacho.TiempoRestante(cmd.Context())
			if err != nil {
				return err
			}
			cr := worker.NuevaCuentaRegresiva(restante)
			return imprimir(map[string]any{"purgado": ok, "proxima": cr}, func() {
				if ok {
					fmt.Println("Datos respaldados y eliminados.")
				} else {
					fmt.Println("Todavía no corresponde limpiar (use --forzar).")
				}
				fmt.Printf("Próxima limpieza en %s\n", cr.Restante)
			})
		},
	}
	cmd.Flags().BoolVar(&forzar, "forzar", false, "limpiar aunque no haya pasado el umbral")
	return cmd
}

func migrarCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrar",
		Short: "Migra pedidos guardados al historial y reconstruye tickets y pagos faltantes",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := abrir(cmd.Context())
			if err != nil {
				return err
			}
			defer e.store.Close()

			n, err := e.despacho.MigrarGuardados(cmd.Context())
			if err != nil {
				return err
			}
			r, err := e.despacho.MigrarHistorial(cmd.Context())
			if err != nil {
				return err
			}
			return imprimir(map[string]any{"guardados": n, "historial": r}, func() {
				fmt.Printf("Pedidos guardados migrados: %d\n", n)
				fmt.Printf("Tickets reconstruidos: %d, pagos reconstruidos: %d\n", r.Tickets, r.Pagos)
			})
		},
	}
}

func catalogoCmd() *cobra.Command {
	var categoria string
	cmd := &cobra.Command{
		Use:   "catalogo",
		Short: "Lista los productos del catálogo embebido",
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := catalogo.Cargar()
			if err != nil {
				return err
			}
			productos := cat.Productos(model.Categoria(categoria))
			return imprimir(productos, func() {
				w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tNOMBRE\tCATEGORIA\tPRECIO")
				for _, p := range productos {
					fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", p.ID, p.Nombre, p.Categoria, p.Precio.StringFixed(2))
				}
				_ = w.Flush()
			})
		},
	}
	cmd.Flags().StringVarP(&categoria, "categoria", "c", "", "filtrar por categoría")
	return cmd
}

func dlqCmd() *cobra.Command {
	var reencolar bool
	cmd := &cobra.Command{
		Use:   "dlq",
		Short: "Muestra los comprobantes que fallaron en la cola de trabajos",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := abrir(cmd.Context())
			if err != nil {
				return err
			}
			defer e.store.Close()
			if e.store.Redis == nil {
				return fmt.Errorf("la cola de trabajos requiere redis (STORE_DRIVER=%s)", e.cfg.StoreDriver)
			}

			if reencolar {
				n, err := worker.Reencolar(cmd.Context(), e.store.Redis, worker.QueueComprobantes)
				if err != nil {
					return err
				}
				return imprimir(map[string]int{"reencolados": n}, func() {
					fmt.Printf("Trabajos reencolados: %d\n", n)
				})
			}

			entradas, err := worker.ListarDLQ(cmd.Context(), e.store.Redis, worker.QueueComprobantes)
			if err != nil {
				return err
			}
			return imprimir(entradas, func() {
				w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "FALLO\tTIPO\tINTENTOS\tMOTIVO")
				for _, en := range entradas {
					fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", en.FailedAt, en.JobType, en.Attempts, en.Reason)
				}
				_ = w.Flush()
			})
		},
	}
	cmd.Flags().BoolVar(&reencolar, "reencolar", false, "devolver todos los trabajos fallidos a la cola")
	return cmd
}
