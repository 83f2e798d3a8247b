package api

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dodopizza/sql-to-kql/lib/adx"
)

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
listenAddr: ":9090"
cluster: https://help.kusto.windows.net/
database: Samples
auth:
  method: msi
  userMsi: 00000000-0000-0000-0000-000000000001
tables:
  texas: StormEvents | where State == 'TEXAS'
queryTimeout: 90s
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}
	if cfg.ListenAddr != ":9090" || cfg.Cluster != "https://help.kusto.windows.net" || cfg.Database != "Samples" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.Auth.Method != adx.AuthMSI || cfg.Auth.UserMSI == "" {
		t.Fatalf("unexpected auth: %+v", cfg.Auth)
	}
	if cfg.Tables["texas"] != "StormEvents | where State == 'TEXAS'" {
		t.Fatalf("unexpected tables: %v", cfg.Tables)
	}
	if cfg.QueryTimeout.Duration != 90*time.Second {
		t.Fatalf("unexpected timeout: %v", cfg.QueryTimeout)
	}
	if cfg.ViewsDir != DefaultViewsDir || cfg.Limit != DefaultLimit {
		t.Fatalf("expected defaults, got viewsDir=%q limit=%d", cfg.ViewsDir, cfg.Limit)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}
	if cfg.ListenAddr != DefaultListenAddr || cfg.QueryTimeout.Duration != DefaultQueryTimeout {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	dir := t.TempDir()
	for name, content := range map[string]string{
		"unknown.yaml": "endpoint: http://logs.example\n",
		"timeout.yaml": "queryTimeout: soon\n",
	} {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}
		if _, err := LoadConfig(path); err == nil {
			t.Fatalf("expected error for %s", name)
		}
	}
	if _, err := LoadConfig(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Fatalf("expected error for a missing file")
	}
}
