package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/donaldgifford/wb-seller-tracker/internal/api"
	"github.com/donaldgifford/wb-seller-tracker/internal/api/handlers"
	"github.com/donaldgifford/wb-seller-tracker/internal/config"
	"github.com/donaldgifford/wb-seller-tracker/internal/engine"
	"github.com/donaldgifford/wb-seller-tracker/internal/metrics"
	"github.com/donaldgifford/wb-seller-tracker/internal/notify"
	"github.com/donaldgifford/wb-seller-tracker/internal/store"
	"github.com/donaldgifford/wb-seller-tracker/internal/tracing"
	"github.com/donaldgifford/wb-seller-tracker/pkg/logger"
	"github.com/donaldgifford/wb-seller-tracker/pkg/wb"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server and scheduler",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Setup(ctx, cfg.Tracing, Version)
	if err != nil {
		return fmt.Errorf("setting up tracing: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			log.Warn("tracing shutdown failed", "error", err)
		}
	}()

	st, err := store.NewPostgresStore(ctx, cfg.Database.DSN(), store.WithPoolSize(cfg.Database.PoolSize))
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer st.Close()

	if err := st.Migrate(ctx); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	client, token, err := newServiceClient(cfg, log)
	if err != nil {
		return err
	}

	eng := engine.NewEngine(st, client, newNotifier(cfg, log),
		engine.WithLogger(log),
		engine.WithTaskBudget(cfg.Schedule.TaskBudget),
		engine.WithTaskConcurrency(cfg.Schedule.TaskConcurrency),
		engine.WithTaskTimeout(cfg.Polling.Timeout),
		engine.WithPollerOptions(cfg.Polling.Options()...),
		engine.WithLowBalanceThreshold(cfg.Alerts.LowBalanceThreshold),
		engine.WithTaskAlerts(cfg.Alerts.TaskFailures),
	)

	sched, err := engine.NewScheduler(eng, st, engine.Intervals{
		Balance: cfg.Schedule.BalanceInterval,
		Tasks:   cfg.Schedule.TaskInterval,
		Limits:  cfg.Schedule.LimitsInterval,
	}, log)
	if err != nil {
		return fmt.Errorf("creating scheduler: %w", err)
	}
	sched.Start(ctx)

	e, _ := api.NewServer(api.Deps{
		Store:    st,
		Tracker:  eng,
		Limiters: eng,
		Jobs:     sched,
		Checks:   map[string]handlers.CheckFunc{"token": tokenCheck(token)},
		Logger:   log,
		Version:  Version,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      otelhttp.NewHandler(e, "wb-seller-tracker"),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server", "addr", srv.Addr, "jobs", sched.JobNames())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serving: %w", err)
		}
	}

	log.Info("shutting down server")

	// Wait for running jobs before the store closes.
	<-sched.Stop().Done()

	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}

	log.Info("server stopped")
	return nil
}

// newServiceClient builds the API client. The returned token info is nil
// when the token is not a readable JWT.
func newServiceClient(cfg *config.Config, log *slog.Logger) (*wb.Client, *wb.TokenInfo, error) {
	cc, err := cfg.WB.ClientConfig()
	if err != nil {
		return nil, nil, err
	}

	client, err := wb.NewClient(cc,
		wb.WithLogger(log.With("component", "wb")),
		wb.WithObserver(metrics.WBObserver{}),
		wb.WithUserAgent(cfg.WB.UserAgent),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("creating wb client: %w", err)
	}

	info, err := wb.ParseToken(cc.Token)
	if err != nil {
		log.Warn("token is not a readable JWT; skipping local checks", "error", err)
		return client, nil, nil
	}
	if !info.ExpiresAt.IsZero() {
		metrics.TokenExpiryTimestamp.Set(float64(info.ExpiresAt.Unix()))
	}
	if err := info.Validate(time.Now()); err != nil {
		log.Warn("token check failed", "error", err)
	}
	return client, info, nil
}

// tokenCheck fails readiness once the token has expired. It is nil when
// the token could not be inspected.
func tokenCheck(info *wb.TokenInfo) handlers.CheckFunc {
	if info == nil {
		return nil
	}
	return func(context.Context) error {
		return info.Validate(time.Now())
	}
}

func newNotifier(cfg *config.Config, log *slog.Logger) notify.Notifier {
	if cfg.Notifications.Discord.Enabled {
		return notify.NewDiscordNotifier(cfg.Notifications.Discord.WebhookURL)
	}
	return notify.NewNoOpNotifier(log)
}
