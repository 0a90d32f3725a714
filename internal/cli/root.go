// Package cli wires configuration, storage and the analytics engine into the
// pdmtracker command line.
package cli

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"pdmtracker/internal/config"
)

type app struct {
	cfgFile  string
	envFiles []string
	cfg      config.Config
	logger   zerolog.Logger
	out      io.Writer
}

// NewRootCommand builds the command tree writing results to out and logs to
// errOut.
func NewRootCommand(out, errOut io.Writer) *cobra.Command {
	a := &app{out: out, logger: zerolog.Nop()}
	root := &cobra.Command{
		Use:   "pdmtracker",
		Short: "pdmtracker analyzes municipal development plan workbooks",
		Long: `pdmtracker loads the indicative-plan workbook of a territorial development
plan (PDM), derives the execution state of every investment product and
reports completion by year, sector, strategic line and sustainability goal.

The last analysis is cached so reports and the REST API survive restarts.
Department assignments and yearly progress are kept across submissions.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return a.init(errOut)
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)
	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default is $HOME/.pdmtracker.toml)")
	root.PersistentFlags().StringSliceVar(&a.envFiles, "env-file", nil, "dotenv files to load (default is ./.env)")

	root.AddCommand(
		a.analyzeCommand(),
		a.reportCommand(),
		a.serveCommand(),
		a.watchCommand(),
		a.cacheCommand(),
		versionCommand(),
	)
	return root
}

func (a *app) init(errOut io.Writer) error {
	cfg, err := config.Load(a.cfgFile, a.envFiles...)
	if err != nil {
		return err
	}
	level, err := cfg.Level()
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = zerolog.New(zerolog.ConsoleWriter{Out: errOut}).Level(level).With().Timestamp().Logger()
	log.Logger = a.logger
	return nil
}

// Execute runs the command line until it finishes or an interrupt arrives.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := NewRootCommand(os.Stdout, os.Stderr).ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Msg("pdmtracker failed")
		return 1
	}
	return 0
}
