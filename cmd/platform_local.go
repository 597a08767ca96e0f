//go:build !gcloud

package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/habitline/notification-scheduling/internal/config"
	"github.com/habitline/notification-scheduling/internal/infra/notifier"
	"github.com/habitline/notification-scheduling/internal/observability"
	"github.com/habitline/notification-scheduling/internal/observability/logging"
)

func initNotifier(_ context.Context, cfg *config.Config) (notifier.Notifier, func() error, error) {
	if cfg.Notifier.GatewayURL == "" {
		slog.Warn("NOTIFIER_GATEWAY_URL not set, notification registration disabled")

		return nil, nil, nil
	}

	client := notifier.NewGatewayClient(
		cfg.Notifier.GatewayURL,
		cfg.Notifier.MaxRetries,
	)

	slog.Info("notifier initialized",
		slog.String("type", "gateway"),
		slog.String("url", cfg.Notifier.GatewayURL),
	)

	return client, nil, nil
}

func initObservability(ctx context.Context, cfg *config.Config) (*observability.Resources, error) {
	serviceName := os.Getenv("SERVICE_NAME")
	if serviceName == "" {
		serviceName = "notification-scheduling"
	}

	env := logging.EnvDev
	if e := os.Getenv("ENV"); e != "" {
		env = logging.Environment(e)
	}

	obs, err := observability.Init(ctx, observability.Config{
		ServiceInfo: logging.ServiceInfo{
			Name:     serviceName,
			Version:  Version,
			Revision: "",
		},
		Environment:   env,
		LogLevel:      cfg.LogLevel,
		GCPProjectID:  "",
		SamplingRate:  1.0,
		DefaultModule: logging.Module("notification-scheduling"),
	})
	if err != nil {
		return nil, err
	}

	return obs, nil
}
