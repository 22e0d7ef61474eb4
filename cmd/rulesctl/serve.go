package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/graphrules/engine/actionexec"
	"github.com/graphrules/engine/changebridge"
	"github.com/graphrules/engine/config"
	"github.com/graphrules/engine/diagnostics"
	"github.com/graphrules/engine/engine"
	"github.com/graphrules/engine/events"
	"github.com/graphrules/engine/graph/memory"
	"github.com/graphrules/engine/logging"
	"github.com/graphrules/engine/metrics"
	"github.com/graphrules/engine/registry"
	"github.com/graphrules/engine/scan"
	"github.com/graphrules/engine/store"
)

// newServeCommand wires every ambient/domain component named in
// SPEC_FULL.md (config C11, logging C12, metrics C13, execution log
// C14, diagnostics C15, scan C16, changebridge C17) into one running
// engine, the long-lived counterpart to "run"'s one-shot fixture
// replay.
func newServeCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve <dir>",
		Short: "Load every .dsl file in a directory and run the engine against live change sources until interrupted.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logger := logging.New(cfg.LogLevel)

			rules := registry.NewRuleRegistry()
			actions := registry.NewActionRegistry()
			files, err := dslFiles(args[0])
			if err != nil {
				return err
			}
			for _, f := range files {
				if err := rules.LoadFromFile(f); err != nil {
					return fmt.Errorf("%s: %w", f, err)
				}
				if err := actions.LoadFromFile(f); err != nil {
					return fmt.Errorf("%s: %w", f, err)
				}
			}

			reg := prometheus.NewRegistry()
			metricsInst, err := metrics.New(reg)
			if err != nil {
				return err
			}
			hub := diagnostics.New(logger)

			var execLog *store.Log
			if cfg.ExecutionLogPath != "" {
				execLog, err = store.Open(cfg.ExecutionLogPath)
				if err != nil {
					return fmt.Errorf("opening execution log: %w", err)
				}
				defer execLog.Close()
			}

			graphStore := memory.New()
			emitter := events.New()

			eng := engine.New(rules, actions, graphStore, logger)
			eng.MaxCascadeDepth = cfg.CascadeDepthLimit
			eng.MaxQueueSize = cfg.CascadeQueueLimit
			eng.Observers = []engine.Observer{metricsInst, hub, execLog}
			eng.QueueDepth = metricsInst
			eng.ActionObserver = actionexec.MultiObserver{metricsInst, execLog}

			emitter.Subscribe(eng)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if len(cfg.ScanSchedules) > 0 {
				scheduler, err := scan.New(emitter, logger, cfg.ScanSchedules)
				if err != nil {
					return fmt.Errorf("scan: %w", err)
				}
				go scheduler.Run(ctx)
			}

			var bridge *changebridge.Bridge
			if cfg.MQTT.BrokerURL != "" {
				bridge = changebridge.New(changebridge.Config{
					BrokerURL: cfg.MQTT.BrokerURL,
					ClientID:  cfg.MQTT.ClientID,
					Topic:     cfg.MQTT.Topic,
				}, emitter, logger)
				if err := bridge.Start(); err != nil {
					return fmt.Errorf("changebridge: %w", err)
				}
				defer bridge.Stop()
			}

			servers := startHTTPServers(cfg, logger, reg, hub)
			defer stopHTTPServers(servers)

			logger.Info("rulesctl serve: running",
				"rules", len(rules.All()), "actions", len(actions.All()),
				"metrics_addr", cfg.MetricsAddr, "diagnostics_addr", cfg.DiagnosticsAddr)

			<-ctx.Done()
			logger.Info("rulesctl serve: shutting down")
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "YAML config file (see config.Config); a missing path uses defaults")
	return cmd
}

func startHTTPServers(cfg *config.Config, logger interface {
	Warn(msg string, args ...any)
}, reg *prometheus.Registry, hub *diagnostics.Hub) []*http.Server {
	var servers []*http.Server
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler(reg))
		srv := &http.Server{Addr: cfg.MetricsAddr, Handler: mux}
		servers = append(servers, srv)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Warn("metrics server stopped", "error", err)
			}
		}()
	}
	if cfg.DiagnosticsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/diagnostics", hub)
		srv := &http.Server{Addr: cfg.DiagnosticsAddr, Handler: mux}
		servers = append(servers, srv)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Warn("diagnostics server stopped", "error", err)
			}
		}()
	}
	return servers
}

func stopHTTPServers(servers []*http.Server) {
	for _, s := range servers {
		_ = s.Shutdown(context.Background())
	}
}
