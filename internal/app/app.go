package app

import (
	"context"
	"fmt"
	"net"
	"os"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"voice-ledger-service/internal/config"
	apphttp "voice-ledger-service/internal/http"
	"voice-ledger-service/internal/observability"
	"voice-ledger-service/internal/observability/logging"
	"voice-ledger-service/internal/observability/metrics"
	"voice-ledger-service/internal/service/pipeline"
	"voice-ledger-service/internal/transport"
	"voice-ledger-service/internal/transport/discord"
	"voice-ledger-service/internal/transport/telegram"
)

const shutdownTimeout = 10 * time.Second

// Application holds process-wide state for the service.
type Application struct {
	StartupTime time.Time
	Logger      zerolog.Logger
	Cfg         *config.Configuration

	Metrics    *metrics.Metrics
	Components *Components
	Dispatcher *pipeline.Dispatcher
	Transport  transport.Transport
	Server     *observability.Server

	ready atomic.Bool
}

// New constructs the application and every component it serves with.
func New(ctx context.Context, cfg *config.Configuration) (*Application, error) {
	a := &Application{
		Cfg:     cfg,
		Metrics: metrics.DefaultMetrics,
	}
	a.setupLogger()

	appLogger := a.Logger.With().
		Str("method", "New").
		Logger()

	components, err := BuildComponents(ctx, cfg, a.Metrics)
	if err != nil {
		return nil, fmt.Errorf("build components: %w", err)
	}
	a.Components = components
	a.Dispatcher = pipeline.NewDispatcher(components.Pipeline, cfg.Pipeline.MaxConcurrentRuns)

	a.Transport, err = buildTransport(cfg, a.Dispatcher)
	if err != nil {
		_ = components.Close()
		return nil, err
	}

	router := apphttp.NewRouter(a.Ready, prometheus.DefaultGatherer)
	a.Server = observability.NewServer(":"+cfg.Service.Port, router)

	appLogger.Info().
		Str("transport", cfg.Transport).
		Str("stt", components.Transcriber.Name()).
		Str("classifier", components.Classifier.Name()).
		Str("store", components.Store.Name()).
		Str("contract", string(components.Contract.Version)).
		Msg("Voice ledger application created")
	return a, nil
}

func buildTransport(cfg *config.Configuration, d transport.Dispatcher) (transport.Transport, error) {
	switch cfg.Transport {
	case "telegram":
		return telegram.New(telegram.Config{Token: cfg.Telegram.Token}, d)
	case "discord":
		return discord.New(discord.Config{Token: cfg.Discord.Token, ChannelID: cfg.Discord.ChannelID}, d)
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown transport %q", cfg.Transport)
	}
}

// setupLogger configures zerolog for the service. ENV=dev selects the
// console writer.
func (a *Application) setupLogger() {
	format := a.Cfg.Log.Format
	if a.Cfg.Env == "dev" || os.Getenv("ENV") == "dev" {
		format = "console"
	}
	logging.Init(logging.Config{
		Level:      a.Cfg.Log.Level,
		Format:     format,
		TimeFormat: time.RFC3339,
	})

	a.Logger = log.Logger.With().
		Str("service", "voice-ledger-service").
		Str("component", "application").
		Logger()

	a.Logger.Info().
		Str("logLevel", zerolog.GlobalLevel().String()).
		Str("environment", a.Cfg.Env).
		Msg("Logger setup completed")
}

// Ready reports whether the application is serving.
func (a *Application) Ready() bool {
	return a.ready.Load()
}

// Start serves HTTP and the transport until ctx is cancelled or one of them fails.
func (a *Application) Start(ctx context.Context) error {
	lis, err := net.Listen("tcp", a.Server.Addr())
	if err != nil {
		return fmt.Errorf("listen %s: %w", a.Server.Addr(), err)
	}
	return a.Serve(ctx, lis)
}

// Serve is Start on an existing listener.
func (a *Application) Serve(ctx context.Context, lis net.Listener) error {
	startLogger := a.Logger.With().
		Str("method", "Start").
		Logger()

	a.StartupTime = time.Now().UTC()
	startLogger.Info().
		Time("startupTime", a.StartupTime).
		Str("addr", lis.Addr().String()).
		Msg("Voice ledger service starting")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.Server.Serve(lis)
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return a.Server.Shutdown(sctx)
	})
	if a.Transport != nil {
		g.Go(func() error {
			if err := a.Transport.Run(gctx); err != nil {
				return fmt.Errorf("%s transport: %w", a.Transport.Name(), err)
			}
			return nil
		})
	}

	a.ready.Store(true)
	err := g.Wait()
	a.ready.Store(false)
	return err
}

// Shutdown stops accepting events, drains in-flight runs and releases clients.
func (a *Application) Shutdown() {
	shutdownLogger := a.Logger.With().
		Str("method", "Shutdown").
		Logger()

	shutdownLogger.Info().Int64("inFlight", a.Dispatcher.InFlight()).Msg("Voice ledger service shutting down")
	a.Dispatcher.Close()
	a.Dispatcher.Wait()

	if a.Transport != nil {
		if err := a.Transport.Close(); err != nil {
			shutdownLogger.Warn().Err(err).Msg("Failed to close transport")
		}
	}
	if err := a.Components.Close(); err != nil {
		shutdownLogger.Warn().Err(err).Msg("Failed to close components")
	}
	shutdownLogger.Info().Msg("Shutdown complete")
}
