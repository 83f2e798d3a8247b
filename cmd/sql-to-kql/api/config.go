package api

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cast"
	"sigs.k8s.io/yaml"

	"github.com/dodopizza/sql-to-kql/lib/adx"
)

const (
	DefaultListenAddr   = ":8080"
	DefaultViewsDir     = "./data/views"
	DefaultLimit        = 1000
	DefaultQueryTimeout = 60 * time.Second
)

// Config is the server configuration. It is read from YAML or JSON.
type Config struct {
	ListenAddr string `json:"listenAddr"`
	// Cluster is the cluster URL. Without it statements are only translated.
	Cluster  string            `json:"cluster"`
	Database string            `json:"database"`
	Auth     adx.AuthConfig    `json:"auth"`
	Tables   map[string]string `json:"tables"`
	ViewsDir string            `json:"viewsDir"`
	Limit    uint32            `json:"limit"`
	// QueryTimeout bounds each request to the cluster, e.g. "30s".
	QueryTimeout Duration `json:"queryTimeout"`
}

// Duration reads Go duration strings such as "1m30s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	parsed, err := cast.ToDurationE(v)
	if err != nil {
		return fmt.Errorf("invalid duration %s: %w", b, err)
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// LoadConfig reads path. An empty path yields the defaults.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}
	cfg.SetDefaults()
	return cfg, nil
}

// SetDefaults fills unset fields and trims the string ones.
func (c *Config) SetDefaults() {
	c.ListenAddr = strings.TrimSpace(c.ListenAddr)
	c.Cluster = strings.TrimRight(strings.TrimSpace(c.Cluster), "/")
	c.Database = strings.TrimSpace(c.Database)
	c.ViewsDir = strings.TrimSpace(c.ViewsDir)
	if c.ListenAddr == "" {
		c.ListenAddr = DefaultListenAddr
	}
	if c.ViewsDir == "" {
		c.ViewsDir = DefaultViewsDir
	}
	if c.Limit == 0 {
		c.Limit = DefaultLimit
	}
	if c.QueryTimeout.Duration <= 0 {
		c.QueryTimeout.Duration = DefaultQueryTimeout
	}
}
