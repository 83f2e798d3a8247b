package adx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dodopizza/sql-to-kql/lib/kql"
)

func TestEncodeRows(t *testing.T) {
	t.Parallel()
	res := &Result{
		Columns: []Column{{Name: "State", Type: "string"}, {Name: "events", Type: "long"}, {Name: "props", Type: "dynamic"}},
		Rows: [][]any{
			{"TEXAS", int64(3), json.RawMessage(`{"a":1}`)},
			{"OHIO", nil, nil},
			{"IOWA", int64(1), nil},
		},
	}

	out, err := EncodeRows(res, 2)
	require.NoError(t, err)
	assert.Equal(t, "{\"State\":\"TEXAS\",\"events\":3,\"props\":{\"a\":1}}\n{\"State\":\"OHIO\",\"events\":null,\"props\":null}\n", string(out))

	out, err = EncodeRows(res, 0)
	require.NoError(t, err)
	assert.Contains(t, string(out), "IOWA")
}

func TestAPIExecuteSelect(t *testing.T) {
	t.Parallel()
	exec := &mockExecutor{}
	exec.On("Query", mock.Anything, "Samples", "StormEvents | take 1", LanguageKQL).
		Return(&Result{Columns: []Column{{Name: "n", Type: "long"}}, Rows: [][]any{{int64(7)}}}, nil)

	api := NewAPI(exec, nil, "Samples", 10)
	out, err := api.Execute(context.Background(), &kql.StatementInfo{Kind: kql.StatementTypeSelect, KQL: "StormEvents | take 1"}, "")
	require.NoError(t, err)
	assert.Equal(t, "{\"n\":7}\n", string(out))
}

func TestAPIExecuteWithoutCluster(t *testing.T) {
	t.Parallel()
	api := NewAPI(nil, nil, "", 10)
	assert.False(t, api.Configured())

	out, err := api.Execute(context.Background(), &kql.StatementInfo{Kind: kql.StatementTypeSelect, KQL: "T"}, "")
	require.NoError(t, err)
	assert.Nil(t, out)

	out, err = api.Execute(context.Background(), &kql.StatementInfo{Kind: kql.StatementTypeShowTables, Data: "{\"table_name\":\"texas\"}\n"}, "")
	require.NoError(t, err)
	assert.Equal(t, "{\"table_name\":\"texas\"}\n", string(out))
}

func TestAPIExecuteDatabaseConflict(t *testing.T) {
	t.Parallel()
	api := NewAPI(&mockExecutor{}, nil, "Samples", 10)
	_, err := api.Execute(context.Background(), &kql.StatementInfo{Kind: kql.StatementTypeSelect, KQL: "T"}, "Other")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Code)

	_, err = NewAPI(&mockExecutor{}, nil, "", 10).Execute(context.Background(), &kql.StatementInfo{Kind: kql.StatementTypeSelect, KQL: "T"}, "")
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Code)
}

func TestAPIExecuteShowTablesMergesLocal(t *testing.T) {
	t.Parallel()
	exec := &mockExecutor{}
	exec.On("Mgmt", mock.Anything, "Samples", ".show tables | project TableName").
		Return(names("TableName", "StormEvents"), nil)

	api := NewAPI(exec, nil, "Samples", 10)
	out, err := api.Execute(context.Background(), &kql.StatementInfo{Kind: kql.StatementTypeShowTables, Data: "{\"table_name\":\"texas\"}\n"}, "")
	require.NoError(t, err)
	assert.Equal(t, "{\"table_name\":\"texas\"}\n{\"table_name\":\"StormEvents\"}\n", string(out))
}

func TestAPIExecuteDescribeTable(t *testing.T) {
	t.Parallel()
	exec := &mockExecutor{}
	exec.On("Mgmt", mock.Anything, "Other", ".show tables | project TableName").
		Return(names("TableName", "Events"), nil)
	exec.On("Mgmt", mock.Anything, "Other", `.show table ["Events"] schema as json`).
		Return(names("Schema", `{"OrderedColumns":[{"Name":"Level","CslType":"string"}]}`), nil)

	api := NewAPI(exec, nil, "Samples", 10)
	out, err := api.Execute(context.Background(), &kql.StatementInfo{
		Kind:  kql.StatementTypeDescribe,
		Table: &kql.TableRef{Schema: "Other", Name: "Events"},
	}, "")
	require.NoError(t, err)
	assert.Equal(t, "{\"column_name\":\"Level\",\"csl_type\":\"string\",\"type\":\"VARCHAR\",\"nullable\":true}\n", string(out))
}

func TestAPIExecuteInsert(t *testing.T) {
	t.Parallel()
	payload := []byte("{\"State\":\"TEXAS\"}\n")
	ingestor := &mockIngestor{}
	ingestor.On("IngestJSON", mock.Anything, "Samples", "StormEvents", payload).Return(nil)

	api := NewAPI(&mockExecutor{}, ingestor, "Samples", 10)
	out, err := api.Execute(context.Background(), &kql.StatementInfo{
		Kind:   kql.StatementTypeInsert,
		Insert: &kql.InsertBatch{Table: kql.TableRef{Name: "StormEvents"}, Payload: payload, Rows: 1},
	}, "")
	require.NoError(t, err)
	assert.Equal(t, "{\"inserted\":1}\n", string(out))
	ingestor.AssertExpectations(t)
}

func TestAPIExecuteUpstreamFailure(t *testing.T) {
	t.Parallel()
	exec := &mockExecutor{}
	cause := &ServiceError{Category: CategoryDatabase, Op: "query", Err: errors.New("semantic error")}
	exec.On("Query", mock.Anything, "Samples", "bad", LanguageKQL).Return(nil, cause)

	_, err := NewAPI(exec, nil, "Samples", 10).Execute(context.Background(), &kql.StatementInfo{Kind: kql.StatementTypeSelect, KQL: "bad"}, "")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.Code)
	category, ok := CategoryOf(err)
	require.True(t, ok)
	assert.Equal(t, CategoryDatabase, category)
}

func TestResultStrings(t *testing.T) {
	t.Parallel()
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	res := &Result{
		Columns: []Column{{Name: "a"}, {Name: "b"}},
		Rows:    [][]any{{"x", int64(1)}, {at, nil}},
	}
	assert.Equal(t, []string{"x", "2024-01-02T03:04:05Z"}, res.Strings("a"))
	assert.Equal(t, []string{"1", ""}, res.Strings("b"))
	assert.Nil(t, res.Strings("c"))
}
