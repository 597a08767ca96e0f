//go:build gcloud

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

func initNotifier(ctx context.Context, cfg *config.Config) (notifier.Notifier, func() error, error) {
	if err := cfg.Notifier.Validate(); err != nil {
		return nil, nil, err
	}

	cloudTasksClient, err := notifier.NewCloudTasksClient(ctx, notifier.CloudTasksConfig{
		ProjectID:  cfg.Notifier.GCloudProjectID,
		LocationID: cfg.Notifier.GCloudLocationID,
		QueueID:    cfg.Notifier.GCloudQueueID,
		TargetURL:  cfg.Notifier.GCloudTargetURL,
		MaxRetries: cfg.Notifier.MaxRetries,
	})
	if err != nil {
		return nil, nil, err
	}

	slog.Info("notifier initialized",
		slog.String("type", "cloud_tasks"),
		slog.String("project", cfg.Notifier.GCloudProjectID),
		slog.String("location", cfg.Notifier.GCloudLocationID),
		slog.String("queue", cfg.Notifier.GCloudQueueID),
	)

	cleanup := func() error {
		if err := cloudTasksClient.Close(); err != nil {
			slog.Warn("failed to close cloud tasks client", slog.String("error", err.Error()))

			return err
		}

		return nil
	}

	return cloudTasksClient, cleanup, nil
}

func initObservability(ctx context.Context, cfg *config.Config) (*observability.Resources, error) {
	serviceName := os.Getenv("K_SERVICE")
	if serviceName == "" {
		serviceName = "notification-scheduling"
	}

	env := logging.EnvProd
	if e := os.Getenv("ENV"); e != "" {
		env = logging.Environment(e)
	}

	projectID := os.Getenv("GOOGLE_CLOUD_PROJECT")
	if projectID == "" {
		projectID = os.Getenv("GCLOUD_PROJECT_ID")
	}

	obs, err := observability.Init(ctx, observability.Config{
		ServiceInfo: logging.ServiceInfo{
			Name:     serviceName,
			Version:  Version,
			Revision: os.Getenv("K_REVISION"),
		},
		Environment:   env,
		LogLevel:      cfg.LogLevel,
		GCPProjectID:  projectID,
		SamplingRate:  1.0,
		DefaultModule: logging.Module("notification-scheduling"),
	})
	if err != nil {
		return nil, err
	}

	return obs, nil
}
