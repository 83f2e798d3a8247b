package main

import (
	"github.com/spf13/pflag"

	"github.com/dodopizza/sql-to-kql/cmd/sql-to-kql/api"
)

// options are the flags shared by every command. Set flags win over the config file.
type options struct {
	configFile string
	flags      *pflag.FlagSet
	override   api.Config
}

func (o *options) addFlags(fs *pflag.FlagSet) {
	o.flags = fs
	fs.StringVar(&o.configFile, "config", "", "path to a YAML or JSON configuration file")
	fs.StringVar(&o.override.ListenAddr, "listen-addr", api.DefaultListenAddr, "address the HTTP server listens on")
	fs.StringVar(&o.override.Cluster, "cluster", "", "cluster URL, e.g. https://help.kusto.windows.net")
	fs.StringVar(&o.override.Database, "database", "", "default database")
	fs.StringVar(&o.override.ViewsDir, "views-dir", api.DefaultViewsDir, "directory for views created with CREATE VIEW")
	fs.Uint32Var(&o.override.Limit, "limit", api.DefaultLimit, "maximum number of rows returned per query")
	fs.DurationVar(&o.override.QueryTimeout.Duration, "query-timeout", api.DefaultQueryTimeout, "timeout for one cluster request")
	fs.StringVar((*string)(&o.override.Auth.Method), "auth-method", "", "default, app_key, msi, workload_identity or az_cli")
}

// config loads the config file and applies the flags that were set explicitly.
func (o *options) config() (api.Config, error) {
	cfg, err := api.LoadConfig(o.configFile)
	if err != nil {
		return cfg, err
	}
	set := func(name string, apply func()) {
		if o.flags.Changed(name) {
			apply()
		}
	}
	set("listen-addr", func() { cfg.ListenAddr = o.override.ListenAddr })
	set("cluster", func() { cfg.Cluster = o.override.Cluster })
	set("database", func() { cfg.Database = o.override.Database })
	set("views-dir", func() { cfg.ViewsDir = o.override.ViewsDir })
	set("limit", func() { cfg.Limit = o.override.Limit })
	set("query-timeout", func() { cfg.QueryTimeout = o.override.QueryTimeout })
	set("auth-method", func() { cfg.Auth.Method = o.override.Auth.Method })
	cfg.SetDefaults()
	return cfg, nil
}
