package main

import (
	"context"
	"errors"
	"expvar"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"taxoncore/internal/config"
	"taxoncore/internal/taxonomy"
)

// app holds state shared by every subcommand for one invocation.
type app struct {
	configPath  string
	logLevel    string
	metricsAddr string

	stdout io.Writer
	stderr io.Writer

	cfg      config.Config
	logger   *slog.Logger
	registry *prometheus.Registry
	metrics  taxonomy.MetricsRecorder
	server   *http.Server
	// metricsListen is the bound metrics address once serving.
	metricsListen string
}

// processVars is published once per process; expvar names are global.
var processVars = sync.OnceValue(func() *taxonomy.ExpvarRecorder {
	return taxonomy.NewExpvarRecorder("taxoncore_resolver")
})

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	a := &app{stdout: stdout, stderr: stderr}
	root := a.rootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	err := root.ExecuteContext(ctx)
	if cerr := a.close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "taxoncore",
		Short:         "Resolve NCBI taxonomy identifiers and import the entries that use them",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd.Context())
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "YAML config file (overrides TAXONCORE_CONFIG)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "debug|info|warn|error")
	root.PersistentFlags().StringVar(&a.metricsAddr, "metrics-addr", "", "serve Prometheus /metrics and expvar /debug/vars on this address while running")

	root.AddCommand(a.lookupCmd(), a.importCmd(), a.taxaCmd(), a.entriesCmd(), a.dumpsCmd())
	return root
}

func (a *app) setup(ctx context.Context) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if a.metricsAddr != "" {
		cfg.MetricsAddr = a.metricsAddr
	}
	logger, err := config.NewLogger(cfg.Log, a.stderr)
	if err != nil {
		return err
	}
	a.cfg, a.logger = cfg, logger

	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	rec, err := taxonomy.NewPrometheusRecorder(a.registry)
	if err != nil {
		return err
	}
	a.metrics = taxonomy.Recorders{rec, processVars()}
	if cfg.MetricsAddr != "" {
		return a.serveMetrics(ctx, cfg.MetricsAddr)
	}
	return nil
}

func (a *app) serveMetrics(_ context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("metrics listener: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))
	mux.Handle("/debug/vars", expvar.Handler())
	a.server = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	a.metricsListen = ln.Addr().String()
	a.logger.Info("serving metrics", "addr", a.metricsListen)
	go func() {
		if err := a.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("metrics server", "err", err)
		}
	}()
	return nil
}

func (a *app) close() error {
	if a.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return a.server.Shutdown(ctx)
}
