package config

// ValidateForRun checks the configuration the server cannot start without.
// Platform-specific notifier settings are validated where the notifier is
// initialized.
func ValidateForRun(cfg *Config) error {
	if err := cfg.Redis.Validate(); err != nil {
		return err
	}
	return nil
}
