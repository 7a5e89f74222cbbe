package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# optionedge configuration

[model]
# Cap on the implied-to-realized volatility ratio used when sizing sigma.
iv_hv_ratio_cap = 4.0
# Multiplier on the 1-sigma expected move used as the loss proxy for
# unlimited-risk structures.
unlimited_loss_multiplier = 2.5

[gates]
# Minimum net credit per share a candidate must collect.
min_credit_per_share = 0.10

[backtest]
# Backtest service endpoint.
url = "http://localhost:8787"
# Seconds between job status polls.
poll_interval_seconds = 1
# Polls before giving up and reporting the job as still running.
max_poll_attempts = 60
# Default lookback for historical backtests.
history_years = 5

[logging]
# Log level: debug, info, warn, error
level = "info"
console = true
file = true
`

const credentialsTemplate = `# optionedge credentials
# Keep this file private (chmod 600).

[openai]
api_key = ""
model = "gpt-4o"
`

func createTemplateConfig(configDir string) error {
	return writeTemplate(configDir, "config.toml", configTemplate, 0644)
}

func createTemplateCredentials(configDir string) error {
	return writeTemplate(configDir, "credentials.toml", credentialsTemplate, 0600)
}

func writeTemplate(configDir, name, content string, perm os.FileMode) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	path := filepath.Join(configDir, name)
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	if err := os.WriteFile(path, []byte(content), perm); err != nil {
		return fmt.Errorf("writing %s template: %w", name, err)
	}
	return nil
}
