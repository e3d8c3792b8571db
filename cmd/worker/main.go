package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mirceapaciu/econ-assistant/internal/bootstrap"
	"github.com/mirceapaciu/econ-assistant/internal/config"
	"github.com/mirceapaciu/econ-assistant/internal/core/domain"
	"github.com/mirceapaciu/econ-assistant/internal/observability/logging"
	"github.com/mirceapaciu/econ-assistant/internal/observability/metrics"
)

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger("worker", cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		logger.Error("bootstrap failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	if app.Queue == nil {
		logger.Error("worker requires NATS_URL; with no queue the api runs loads in-process")
		os.Exit(1)
	}

	loaderMetrics := metrics.NewLoaderMetrics("worker")
	go serveMetrics(ctx, cfg.WorkerMetricsPort, loaderMetrics, logger)
	go heartbeatLoop(ctx, app, cfg.HeartbeatInterval, logger)

	if cfg.BootLoadEnabled {
		bootLoad(ctx, app, cfg.BootLoadTimeout, loaderMetrics, logger)
	}

	logger.Info("worker subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeLoadRequests(ctx, func(handlerCtx context.Context, policy domain.LoadPolicy) error {
		loadCtx, cancel := context.WithTimeout(handlerCtx, cfg.LoadTimeout)
		defer cancel()
		return runLoad(loadCtx, app, policy, loaderMetrics, logger)
	})
	if err != nil {
		logger.Error("worker subscribe failed", "error", err)
		os.Exit(1)
	}
}

// bootLoad fills in missing corpus entries at startup under a tighter
// ceiling than interactive loads. A refusal means another instance is
// already loading, which is fine.
func bootLoad(ctx context.Context, app *bootstrap.App, timeout time.Duration, loaderMetrics *metrics.LoaderMetrics, logger *slog.Logger) {
	loadCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := runLoad(loadCtx, app, domain.PolicyMissingOnly, loaderMetrics, logger); err != nil {
		if domain.IsKind(err, domain.ErrLoadInProgress) {
			logger.Info("boot load skipped, job already running")
			return
		}
		logger.Error("boot load failed", "error", err)
	}
}

func runLoad(ctx context.Context, app *bootstrap.App, policy domain.LoadPolicy, loaderMetrics *metrics.LoaderMetrics, logger *slog.Logger) error {
	start := time.Now()
	loaderMetrics.StartLoad()

	summary, err := app.LoadUC.Load(ctx, policy)
	loaderMetrics.FinishLoad("worker", string(policy), time.Since(start), err)
	if err != nil {
		return err
	}

	loaderMetrics.RecordFiles("worker", summary.Processed, summary.Skipped, len(summary.Failures))
	logger.Info("load finished",
		"policy", string(summary.Policy),
		"processed", summary.Processed,
		"skipped", summary.Skipped,
		"failed", len(summary.Failures),
		"duration_ms", summary.Duration.Milliseconds(),
	)
	for fileName, message := range summary.Failures {
		logger.Warn("file load failed", "file", fileName, "error", message)
	}
	return nil
}

func heartbeatLoop(ctx context.Context, app *bootstrap.App, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := app.Locks.Heartbeat(ctx, app.InstanceID); err != nil {
				logger.Warn("heartbeat failed", "error", err)
			}
		}
	}
}

func serveMetrics(ctx context.Context, port string, loaderMetrics *metrics.LoaderMetrics, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", loaderMetrics.Handler())

	server := &http.Server{Addr: ":" + port, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	logger.Info("worker metrics listening", "port", port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("metrics server failed", "error", err)
	}
}
