package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/glamour"
	json "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"pdmtracker/internal/adapters/httpapi"
	"pdmtracker/internal/core"
	"pdmtracker/internal/report"
	"pdmtracker/internal/watch"
	"pdmtracker/pkg/domain"
)

var errNoSnapshot = errors.New("no cached analysis; run analyze first")

func (a *app) analyzeCommand() *cobra.Command {
	var asJSON, raw bool
	cmd := &cobra.Command{
		Use:   "analyze <file.xlsx>",
		Short: "Load a plan workbook and print its analysis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, release, err := a.openService(ctx)
			if err != nil {
				return err
			}
			defer release()

			ds, rep, err := submitFile(ctx, svc, args[0])
			if err != nil {
				return err
			}
			if asJSON {
				return a.writeJSON(rep)
			}
			return a.printSummary(ds, rep, raw)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the analysis report as JSON")
	cmd.Flags().BoolVar(&raw, "raw", false, "print markdown without terminal styling")
	return cmd
}

func (a *app) reportCommand() *cobra.Command {
	var asJSON, raw bool
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print the cached analysis",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, release, err := a.openService(cmd.Context())
			if err != nil {
				return err
			}
			defer release()

			ds, r := svc.Dataset(), svc.Report()
			if ds == nil || r == nil {
				return errNoSnapshot
			}
			if asJSON {
				return a.writeJSON(r)
			}
			return a.printSummary(ds, r, raw)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the analysis report as JSON")
	cmd.Flags().BoolVar(&raw, "raw", false, "print markdown without terminal styling")
	return cmd
}

func (a *app) serveCommand() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the REST API and Prometheus metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
			recorder, err := core.NewPrometheusRecorder(reg)
			if err != nil {
				return err
			}
			svc, release, err := a.openService(ctx, core.WithMetricsRecorder(recorder))
			if err != nil {
				return err
			}
			defer release()

			if addr == "" {
				addr = a.cfg.Server.Addr
			}
			e := httpapi.New(svc,
				httpapi.WithLogger(a.logger),
				httpapi.WithMetricsHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})),
			)
			a.logger.Info().Str("addr", addr).Msg("serving")
			return httpapi.Run(ctx, e, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from server.addr)")
	return cmd
}

func (a *app) watchCommand() *cobra.Command {
	var debounce time.Duration
	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Submit every workbook written to a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, release, err := a.openService(ctx)
			if err != nil {
				return err
			}
			defer release()

			w, err := watch.New(args[0], func(ctx context.Context, path string) error {
				_, _, err := submitFile(ctx, svc, path)
				return err
			}, watch.WithLogger(a.logger), watch.WithDebounce(debounce))
			if err != nil {
				return err
			}
			return w.Run(ctx)
		},
	}
	cmd.Flags().DurationVar(&debounce, "debounce", watch.DefaultDebounce, "quiet period before a changed file is submitted")
	return cmd
}

func (a *app) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the cached analysis",
	}
	var asJSON bool
	infoCmd := &cobra.Command{
		Use:   "info",
		Short: "Describe the cached snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, release, err := a.openService(cmd.Context())
			if err != nil {
				return err
			}
			defer release()

			info := svc.CacheInfo(cmd.Context())
			switch {
			case asJSON:
				return a.writeJSON(info)
			case !info.Exists || info.Timestamp == nil:
				_, err = fmt.Fprintln(a.out, "No hay análisis en caché.")
			default:
				_, err = fmt.Fprintf(a.out, "Análisis en caché (versión %s), guardado %s.\n",
					info.Version, report.Spanish.Format(*info.Timestamp))
			}
			return err
		},
	}
	infoCmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Drop the cached analysis",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, release, err := a.openService(cmd.Context())
			if err != nil {
				return err
			}
			defer release()

			if err := svc.Clear(cmd.Context()); err != nil {
				return err
			}
			_, err = fmt.Fprintln(a.out, "Caché eliminada.")
			return err
		},
	}
	cmd.AddCommand(infoCmd, clearCmd)
	return cmd
}

func submitFile(ctx context.Context, svc *core.Service, path string) (*domain.Dataset, *domain.AnalysisReport, error) {
	f, err := os.Open(path) // #nosec G304 -- operator supplied workbook path
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = f.Close() }()
	return svc.SubmitAnalysis(ctx, filepath.Base(path), f)
}

func (a *app) writeJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (a *app) printSummary(ds *domain.Dataset, r *domain.AnalysisReport, raw bool) error {
	doc := report.Summary(ds, r, time.Now())
	if !raw {
		renderer, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(100),
		)
		if err != nil {
			return err
		}
		if doc, err = renderer.Render(doc); err != nil {
			return err
		}
	}
	_, err := fmt.Fprint(a.out, doc)
	return err
}
