package adx

import (
	"context"
	"fmt"

	"github.com/Azure/azure-kusto-go/azkustodata"
	"github.com/Azure/azure-kusto-go/azkustodata/kql"
	"github.com/Azure/azure-kusto-go/azkustodata/query"
	v1 "github.com/Azure/azure-kusto-go/azkustodata/query/v1"
	"github.com/google/uuid"
	"k8s.io/klog/v2"
	"k8s.io/utils/clock"
)

// kustoClient is the part of *azkustodata.Client the executor uses.
type kustoClient interface {
	Query(ctx context.Context, db string, stmt azkustodata.Statement, options ...azkustodata.QueryOption) (query.Dataset, error)
	Mgmt(ctx context.Context, db string, stmt azkustodata.Statement, options ...azkustodata.QueryOption) (v1.Dataset, error)
	Close() error
}

// Client executes requests against one cluster. It implements Executor.
type Client struct {
	kusto    kustoClient
	endpoint string
	clock    clock.PassiveClock
}

var _ Executor = (*Client)(nil)

// NewClient connects to endpoint with the given credentials.
func NewClient(endpoint string, auth AuthConfig) (*Client, error) {
	kcsb, err := auth.WithEnvironment().ConnectionString(endpoint)
	if err != nil {
		return nil, err
	}
	kcsb.SetConnectorDetails("sql-to-kql", "1.0.0", "", "", false, "")
	kc, err := azkustodata.New(kcsb)
	if err != nil {
		return nil, Classify("connect", err)
	}
	return newClient(kc, endpoint), nil
}

func newClient(kc kustoClient, endpoint string) *Client {
	return &Client{kusto: kc, endpoint: endpoint, clock: clock.RealClock{}}
}

// SetClock replaces the clock used to time requests.
func (c *Client) SetClock(clk clock.PassiveClock) {
	c.clock = clk
}

// Endpoint returns the cluster URL.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Query runs a query and returns its primary result. SQL text is sent with query_language=sql.
func (c *Client) Query(ctx context.Context, db, text string, lang Language) (*Result, error) {
	opts := []azkustodata.QueryOption{azkustodata.ClientRequestID("sql-to-kql;" + uuid.NewString())}
	if lang == LanguageSQL {
		opts = append(opts, azkustodata.CustomQueryOption("query_language", string(LanguageSQL)))
	}
	start := c.clock.Now()
	ds, err := c.kusto.Query(ctx, db, kql.New("").AddUnsafe(text), opts...)
	elapsed := c.clock.Since(start)
	if err != nil {
		klog.V(2).InfoS("Query failed", "cluster", c.Endpoint(), "database", db, "language", lang, "duration", elapsed, "err", err)
		return nil, Classify("query", err)
	}
	klog.V(2).InfoS("Executed query", "cluster", c.Endpoint(), "database", db, "language", lang, "duration", elapsed)
	res, err := primaryResult(ds.Tables())
	if err != nil {
		return nil, err
	}
	res.Duration = elapsed
	return res, nil
}

// Mgmt runs a management command and returns its first result table.
func (c *Client) Mgmt(ctx context.Context, db, cmd string) (*Result, error) {
	start := c.clock.Now()
	ds, err := c.kusto.Mgmt(ctx, db, kql.New("").AddUnsafe(cmd), azkustodata.ClientRequestID("sql-to-kql;"+uuid.NewString()))
	elapsed := c.clock.Since(start)
	if err != nil {
		klog.V(2).InfoS("Command failed", "cluster", c.Endpoint(), "database", db, "duration", elapsed, "err", err)
		return nil, Classify("command", err)
	}
	klog.V(2).InfoS("Executed command", "cluster", c.Endpoint(), "database", db, "duration", elapsed)
	res, err := primaryResult(ds.Tables())
	if err != nil {
		return nil, err
	}
	res.Duration = elapsed
	return res, nil
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	return c.kusto.Close()
}

// primaryResult converts the primary result table. Without one, the first table is used.
func primaryResult(tables []query.Table) (*Result, error) {
	if len(tables) == 0 {
		return &Result{}, nil
	}
	table := tables[0]
	for _, t := range tables {
		if t.IsPrimaryResult() {
			table = t
			break
		}
	}

	res := &Result{}
	for _, col := range table.Columns() {
		res.Columns = append(res.Columns, Column{Name: col.Name(), Type: string(col.Type())})
	}
	for _, row := range table.Rows() {
		values := row.Values()
		if len(values) != len(res.Columns) {
			return nil, Classify("decode", fmt.Errorf("row %d has %d values for %d columns", row.Index(), len(values), len(res.Columns)))
		}
		out := make([]any, len(values))
		for i, v := range values {
			out[i] = plainValue(v)
		}
		res.Rows = append(res.Rows, out)
	}
	return res, nil
}
