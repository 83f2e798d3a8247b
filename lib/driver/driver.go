// Package driver exposes clusters through database/sql.
//
// Two drivers are registered. "kusto" translates SELECT statements to KQL on the
// client and sends every other text as KQL unchanged. "kustosql" renders SELECT
// statements as T-SQL with TOP n and lets the cluster run them with
// query_language=sql.
package driver

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"io"

	"github.com/dodopizza/sql-to-kql/lib/adx"
	"github.com/dodopizza/sql-to-kql/lib/store"
)

const (
	NameKQL = "kusto"
	NameSQL = "kustosql"
)

func init() {
	sql.Register(NameKQL, &Driver{lang: adx.LanguageKQL})
	sql.Register(NameSQL, &Driver{lang: adx.LanguageSQL})
}

// Driver opens connections described by a kusto:// DSN.
type Driver struct {
	lang adx.Language
}

var (
	_ driver.Driver        = (*Driver)(nil)
	_ driver.DriverContext = (*Driver)(nil)
)

func (d *Driver) Open(dsn string) (driver.Conn, error) {
	c, err := d.OpenConnector(dsn)
	if err != nil {
		return nil, err
	}
	return c.Connect(context.Background())
}

func (d *Driver) OpenConnector(dsn string) (driver.Connector, error) {
	cfg, err := ParseDSN(dsn)
	if err != nil {
		return nil, err
	}
	return &Connector{
		driver:   d,
		lang:     d.lang,
		database: cfg.Database,
		dial: func() (adx.Executor, io.Closer, error) {
			client, err := adx.NewClient(cfg.Endpoint(), cfg.Auth)
			if err != nil {
				return nil, nil, err
			}
			return client, client, nil
		},
	}, nil
}

// Connector hands out connections that share one executor setup.
type Connector struct {
	driver   driver.Driver
	lang     adx.Language
	database string
	provider *store.Provider
	dial     func() (adx.Executor, io.Closer, error)
}

var _ driver.Connector = (*Connector)(nil)

// NewConnector builds a connector over an existing executor. Use it with sql.OpenDB.
func NewConnector(exec adx.Executor, database string, lang adx.Language) *Connector {
	return &Connector{
		driver:   &Driver{lang: lang},
		lang:     lang,
		database: database,
		dial: func() (adx.Executor, io.Closer, error) {
			return exec, nil, nil
		},
	}
}

// WithProvider makes configured tables and stored views visible to translated queries.
func (c *Connector) WithProvider(sp *store.Provider) *Connector {
	c.provider = sp
	return c
}

func (c *Connector) Connect(ctx context.Context) (driver.Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	exec, closer, err := c.dial()
	if err != nil {
		return nil, err
	}
	return &conn{
		exec:     exec,
		closer:   closer,
		database: c.database,
		lang:     c.lang,
		provider: c.provider,
	}, nil
}

func (c *Connector) Driver() driver.Driver {
	return c.driver
}
