// comandactl runs the maintenance routines of a comanda store from the
// command line: purges, legacy migration, catalog listing and the receipt
// dead-letter queue.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	Version = "dev"

	verbose    bool
	salidaJSON bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "comandactl",
		Short:   "Mantenimiento del almacenamiento de comanda",
		Version: Version,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			nivel := zerolog.WarnLevel
			if verbose {
				nivel = zerolog.DebugLevel
			}
			log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).Level(nivel)
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log detallado")
	rootCmd.PersistentFlags().BoolVar(&salidaJSON, "json", false, "salida en JSON")

	rootCmd.AddCommand(mantenimientoCmd())
	rootCmd.AddCommand(purgarCompletadosCmd())
	rootCmd.AddCommand(purgarAntiguosCmd())
	rootCmd.AddCommand(migrarCmd())
	rootCmd.AddCommand(catalogoCmd())
	rootCmd.AddCommand(dlqCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
