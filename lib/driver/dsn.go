package driver

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cast"

	"github.com/dodopizza/sql-to-kql/lib/adx"
)

// Config is a parsed DSN of the form
//
//	kusto://<host>/<database>?msi=true&user_msi=<id>&azure_ad_client_id=...&dev_mode=true
type Config struct {
	Host     string
	Database string
	DevMode  bool
	Auth     adx.AuthConfig
}

// Endpoint returns the cluster URL. Dev mode talks plain http to a local emulator.
func (c *Config) Endpoint() string {
	if c.DevMode {
		return "http://" + c.Host
	}
	return "https://" + c.Host
}

func ParseDSN(dsn string) (*Config, error) {
	u, err := url.Parse(strings.TrimSpace(dsn))
	if err != nil {
		return nil, fmt.Errorf("invalid dsn: %w", err)
	}
	if u.Scheme != NameKQL && u.Scheme != NameSQL {
		return nil, fmt.Errorf("invalid dsn: unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid dsn: cluster host is required")
	}

	cfg := &Config{
		Host:     u.Host,
		Database: strings.Trim(u.Path, "/"),
	}
	var msi, workload bool
	for key, values := range u.Query() {
		value := ""
		if len(values) > 0 {
			value = values[len(values)-1]
		}
		switch key {
		case "msi":
			msi, err = parseBool(key, value)
		case "workload_identity":
			workload, err = parseBool(key, value)
		case "dev_mode":
			cfg.DevMode, err = parseBool(key, value)
		case "user_msi":
			cfg.Auth.UserMSI = value
		case "azure_ad_client_id":
			cfg.Auth.ClientID = value
		case "azure_ad_client_secret":
			cfg.Auth.ClientSecret = value
		case "azure_ad_tenant_id":
			cfg.Auth.TenantID = value
		default:
			err = fmt.Errorf("invalid dsn: unknown parameter %q", key)
		}
		if err != nil {
			return nil, err
		}
	}

	switch {
	case cfg.Auth.ClientID != "" && cfg.Auth.ClientSecret != "" && cfg.Auth.TenantID != "":
		cfg.Auth.Method = adx.AuthAppKey
	case workload:
		cfg.Auth.Method = adx.AuthWorkloadIdentity
	case msi:
		cfg.Auth.Method = adx.AuthMSI
	default:
		cfg.Auth.Method = adx.AuthAzCLI
	}
	if cfg.DevMode {
		return cfg, nil
	}
	if err := cfg.Auth.WithEnvironment().Validate(); err != nil {
		return nil, fmt.Errorf("invalid dsn: %w", err)
	}
	return cfg, nil
}

func parseBool(key, value string) (bool, error) {
	b, err := cast.ToBoolE(value)
	if err != nil {
		return false, fmt.Errorf("invalid dsn: %s must be a boolean: %w", key, err)
	}
	return b, nil
}
