package adx

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Azure/azure-kusto-go/azkustodata"
	kerrors "github.com/Azure/azure-kusto-go/azkustodata/errors"
	"github.com/Azure/azure-kusto-go/azkustodata/query"
	v1 "github.com/Azure/azure-kusto-go/azkustodata/query/v1"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	testingclock "k8s.io/utils/clock/testing"
)

type emptyDataset struct{}

func (emptyDataset) Context() context.Context { return context.Background() }
func (emptyDataset) Op() kerrors.Op { return kerrors.OpQuery }
func (emptyDataset) PrimaryResultKind() string { return v1.PrimaryResultKind }
func (emptyDataset) Tables() []query.Table { return nil }
func (emptyDataset) Index() []v1.TableIndexRow { return nil }
func (emptyDataset) Status() []v1.QueryStatus { return nil }
func (emptyDataset) Info() []v1.QueryProperties { return nil }

type fakeKusto struct {
	clock   *testingclock.FakePassiveClock
	took    time.Duration
	err     error
	queries []string
	options []int
}

func (f *fakeKusto) Query(_ context.Context, _ string, stmt azkustodata.Statement, options ...azkustodata.QueryOption) (query.Dataset, error) {
	f.queries = append(f.queries, stmt.String())
	f.options = append(f.options, len(options))
	f.clock.SetTime(f.clock.Now().Add(f.took))
	if f.err != nil {
		return nil, f.err
	}
	return emptyDataset{}, nil
}

func (f *fakeKusto) Mgmt(_ context.Context, _ string, stmt azkustodata.Statement, _ ...azkustodata.QueryOption) (v1.Dataset, error) {
	f.queries = append(f.queries, stmt.String())
	f.clock.SetTime(f.clock.Now().Add(f.took))
	if f.err != nil {
		return nil, f.err
	}
	return emptyDataset{}, nil
}

func (f *fakeKusto) Close() error { return nil }

func TestClientQueryTiming(t *testing.T) {
	t.Parallel()
	clk := testingclock.NewFakePassiveClock(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))
	fake := &fakeKusto{clock: clk, took: 1500 * time.Millisecond}
	c := newClient(fake, "https://help.kusto.windows.net")
	c.SetClock(clk)

	res, err := c.Query(context.Background(), "Samples", "StormEvents | take 1", LanguageKQL)
	require.NoError(t, err)
	assert.Equal(t, 1500*time.Millisecond, res.Duration)
	assert.Empty(t, res.Rows)

	_, err = c.Query(context.Background(), "Samples", "SELECT TOP 1 * FROM StormEvents", LanguageSQL)
	require.NoError(t, err)
	assert.Equal(t, []string{"StormEvents | take 1", "SELECT TOP 1 * FROM StormEvents"}, fake.queries)
	assert.Equal(t, []int{1, 2}, fake.options)

	res, err = c.Mgmt(context.Background(), "Samples", ".show tables")
	require.NoError(t, err)
	assert.Equal(t, 1500*time.Millisecond, res.Duration)
	assert.Equal(t, "https://help.kusto.windows.net", c.Endpoint())
}

func TestClientQueryClassifiesErrors(t *testing.T) {
	t.Parallel()
	clk := testingclock.NewFakePassiveClock(time.Now())
	cause := kerrors.ES(kerrors.OpQuery, kerrors.KInternal, "semantic error")
	c := newClient(&fakeKusto{clock: clk, err: cause}, "https://help.kusto.windows.net")
	c.SetClock(clk)

	_, err := c.Query(context.Background(), "Samples", "bad", LanguageKQL)
	var se *ServiceError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, CategoryDatabase, se.Category)
	assert.True(t, errors.Is(err, cause))

	_, err = c.Mgmt(context.Background(), "Samples", ".bad")
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "command", se.Op)
}
