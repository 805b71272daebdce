package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# Angel Trader Configuration

[analysis]
# Accepted delta difference band for spread legs
min_delta_diff = 0.15
max_delta_diff = 0.26
# Strikes selected above and below ATM
strike_window = 6
# Maximum recommendations returned
top_n = 10

[gateway]
# Retry attempts for transient upstream failures
max_retries = 3
# Backoff between retries (doubles each attempt)
initial_backoff = "500ms"
max_backoff = "8s"
# Per-request timeout
request_timeout = "10s"
# Upstream requests per second
rate_limit_per_sec = 3.0
# Circuit breaker around market data fetches
breaker_enabled = true
# Minutes of remaining validity below which the session refreshes
refresh_margin_mins = 5

[symbols.NIFTY]
lot_size = 75
strike_interval = 50.0
token = "99926000"

[symbols.BANKNIFTY]
lot_size = 35
strike_interval = 100.0
token = "99926009"

[ui]
# Enable colored output
color_enabled = true
# Date format
date_format = "02-Jan-2006"
`

const credentialsTemplate = `# Angel One SmartAPI Credentials
# Keep this file private (chmod 600)

[angel]
api_key = ""
client_code = ""
password = ""
# Base32 TOTP secret from the SmartAPI 2FA setup page
totp_secret = ""
`

func createTemplateConfig(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	path := filepath.Join(configDir, "config.toml")
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	if err := os.WriteFile(path, []byte(configTemplate), 0644); err != nil {
		return fmt.Errorf("writing config template: %w", err)
	}
	return nil
}

func createTemplateCredentials(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	path := filepath.Join(configDir, "credentials.toml")
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	if err := os.WriteFile(path, []byte(credentialsTemplate), 0600); err != nil {
		return fmt.Errorf("writing credentials template: %w", err)
	}
	return nil
}
