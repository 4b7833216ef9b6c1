package sendnotification

import (
	"fmt"
	"time"

	"portal-notifier/internal/common/config"
)

type Config struct {
	Enabled bool
	Timeout time.Duration
}

func createConfigFromAppConfig(appConfig *config.Config) *Config {
	if appConfig == nil {
		return &Config{Enabled: true, Timeout: 30 * time.Second}
	}
	wc := config.GetWorkerConfig(appConfig, TaskType)
	return &Config{
		Enabled: wc.Enabled,
		Timeout: config.GetDuration(wc.Timeout),
	}
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	return nil
}
