// Command proxy runs the authenticating proxy: it checks the client's
// API key, mints cached identity tokens per worker target, and streams
// requests through to the addressed worker.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/mihmosh/whisper-flash/bootstrap"
	"github.com/mihmosh/whisper-flash/config"
	"github.com/mihmosh/whisper-flash/observability"
	"github.com/mihmosh/whisper-flash/proxy"
	"github.com/mihmosh/whisper-flash/server"
)

const serviceName = "proxy"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", serviceName, err)
		os.Exit(1)
	}
}

func run() error {
	var cfg proxy.Config
	if err := config.LoadConfig(serviceName, &cfg); err != nil {
		return err
	}

	app, err := bootstrap.NewApp(serviceName, &cfg)
	if err != nil {
		return err
	}
	log := app.Logger
	ctx := context.Background()

	metrics, err := setupMetrics(ctx, app)
	if err != nil {
		return err
	}

	svc, err := proxy.NewService(cfg, proxy.GoogleIssuer{}, log, metrics)
	if err != nil {
		return err
	}

	srv := server.New(cfg.Server, log)
	srv.ApplyMiddleware()
	srv.RegisterInfoRoute(serviceName)
	svc.RegisterRoutes(srv.GinEngine())

	if err := app.RegisterComponent(srv); err != nil {
		return err
	}

	return app.Run(ctx)
}

// setupMetrics initializes the OTLP meter when an exporter endpoint is
// configured in the environment. Without one the service runs unmetered.
func setupMetrics(ctx context.Context, app *bootstrap.App[*proxy.Config]) (*observability.Metrics, error) {
	endpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if endpoint == "" {
		return nil, nil
	}

	meterCfg := observability.DefaultMeterConfig(serviceName)
	meterCfg.Endpoint = endpoint
	meterCfg.Environment = app.Cfg.Environment
	meterCfg.ServiceVersion = app.Version

	provider, err := observability.InitMeter(ctx, meterCfg)
	if err != nil {
		return nil, fmt.Errorf("init meter: %w", err)
	}
	app.OnStop(provider.Shutdown)

	return observability.NewMetrics(observability.Meter(serviceName))
}
