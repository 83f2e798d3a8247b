package adx

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type mockExecutor struct {
	mock.Mock
}

func (m *mockExecutor) Query(ctx context.Context, db, text string, lang Language) (*Result, error) {
	args := m.Called(ctx, db, text, lang)
	res, _ := args.Get(0).(*Result)
	return res, args.Error(1)
}

func (m *mockExecutor) Mgmt(ctx context.Context, db, cmd string) (*Result, error) {
	args := m.Called(ctx, db, cmd)
	res, _ := args.Get(0).(*Result)
	return res, args.Error(1)
}

type mockIngestor struct {
	mock.Mock
}

func (m *mockIngestor) IngestJSON(ctx context.Context, db, table string, payload []byte) error {
	return m.Called(ctx, db, table, payload).Error(0)
}

func names(column string, values ...string) *Result {
	res := &Result{Columns: []Column{{Name: column, Type: "string"}}}
	for _, v := range values {
		res.Rows = append(res.Rows, []any{v})
	}
	return res
}
