package config

import (
	"os"
	"strconv"
	"time"
)

const (
	reminderLeadMinutesEnv      = "REMINDER_LEAD_MINUTES"
	registerConcurrencyEnv      = "REGISTER_CONCURRENCY"
	cancelConcurrencyEnv        = "CANCEL_CONCURRENCY"
	backgroundTimeoutSecondsEnv = "BACKGROUND_TASK_TIMEOUT_SECONDS"

	defaultReminderLeadMinutes      = 15
	defaultRegisterConcurrency      = 8
	defaultCancelConcurrency        = 8
	defaultBackgroundTimeoutSeconds = 30
)

type SchedulerConfig struct {
	ReminderLeadMinutes   int
	RegisterConcurrency   int
	CancelConcurrency     int
	BackgroundTaskTimeout time.Duration
}

func LoadSchedulerConfig() *SchedulerConfig {
	leadMinutes := defaultReminderLeadMinutes
	if v := os.Getenv(reminderLeadMinutesEnv); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			leadMinutes = parsed
		}
	}

	registerConcurrency := defaultRegisterConcurrency
	if v := os.Getenv(registerConcurrencyEnv); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			registerConcurrency = parsed
		}
	}

	cancelConcurrency := defaultCancelConcurrency
	if v := os.Getenv(cancelConcurrencyEnv); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			cancelConcurrency = parsed
		}
	}

	timeoutSeconds := defaultBackgroundTimeoutSeconds
	if v := os.Getenv(backgroundTimeoutSecondsEnv); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			timeoutSeconds = parsed
		}
	}

	return &SchedulerConfig{
		ReminderLeadMinutes:   leadMinutes,
		RegisterConcurrency:   registerConcurrency,
		CancelConcurrency:     cancelConcurrency,
		BackgroundTaskTimeout: time.Duration(timeoutSeconds) * time.Second,
	}
}
