package adx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/dodopizza/sql-to-kql/lib/kql"
)

// API runs translated statements and renders their results as JSON lines.
type API struct {
	exec     Executor
	catalog  *Catalog
	ingestor Ingestor
	database string
	limit    uint32
}

// NewAPI returns an API over exec. exec may be nil, in which case only locally answered statements produce data.
func NewAPI(exec Executor, ingestor Ingestor, database string, limit uint32) *API {
	a := &API{exec: exec, ingestor: ingestor, database: database, limit: limit}
	if exec != nil {
		a.catalog = NewCatalog(exec)
	}
	return a
}

// Configured reports whether a cluster is available.
func (a *API) Configured() bool {
	return a.exec != nil
}

func (a *API) Catalog() *Catalog {
	return a.catalog
}

// Execute runs si against database db. db may come from the request only when no database is configured.
func (a *API) Execute(ctx context.Context, si *kql.StatementInfo, db string) ([]byte, error) {
	if si == nil {
		return nil, &APIError{Code: http.StatusBadRequest, Message: "adx: nothing to execute"}
	}
	if a.database != "" && db != "" && db != a.database {
		return nil, &APIError{
			Code:    http.StatusBadRequest,
			Message: "database can be set either in config or in request, not both",
		}
	}
	if db == "" {
		db = a.database
	}

	switch si.Kind {
	case kql.StatementTypeCreateView, kql.StatementTypeDropView:
		return []byte(si.Data), nil
	case kql.StatementTypeShowTables, kql.StatementTypeShowViews:
		if a.exec == nil {
			return []byte(si.Data), nil
		}
	}
	if a.exec == nil {
		return nil, nil
	}
	if db == "" && si.Kind != kql.StatementTypeShowDatabases {
		return nil, &APIError{Code: http.StatusBadRequest, Message: "database is required for this statement"}
	}

	switch si.Kind {
	case kql.StatementTypeSelect:
		return a.Query(ctx, db, si.KQL)
	case kql.StatementTypeDescribe:
		return a.describe(ctx, si, db)
	case kql.StatementTypeShowDatabases:
		names, err := a.catalog.ListDatabases(ctx)
		if err != nil {
			return nil, upstream("list databases", err)
		}
		return nameLines("database_name", "", names)
	case kql.StatementTypeShowTables:
		names, err := a.catalog.ListTables(ctx, db)
		if err != nil {
			return nil, upstream("list tables", err)
		}
		return nameLines("table_name", si.Data, names)
	case kql.StatementTypeShowViews:
		names, err := a.catalog.ListViews(ctx, db)
		if err != nil {
			return nil, upstream("list views", err)
		}
		return nameLines("view_name", si.Data, names)
	case kql.StatementTypeInsert:
		return a.insert(ctx, si.Insert, db)
	default:
		return nil, &APIError{
			Code:    http.StatusBadRequest,
			Message: fmt.Sprintf("adx: unsupported statement type %s", si.Kind),
		}
	}
}

// Query runs KQL text and renders at most limit rows.
func (a *API) Query(ctx context.Context, db, text string) ([]byte, error) {
	res, err := a.exec.Query(ctx, db, text, LanguageKQL)
	if err != nil {
		return nil, upstream("execute query", err)
	}
	return EncodeRows(res, int(a.limit))
}

func (a *API) describe(ctx context.Context, si *kql.StatementInfo, db string) ([]byte, error) {
	if si.KQL != "" {
		return a.Query(ctx, db, si.KQL)
	}
	if si.Table == nil {
		return nil, &APIError{Code: http.StatusBadRequest, Message: "adx: DESCRIBE without a target"}
	}
	if si.Table.Schema != "" {
		db = si.Table.Schema
	}
	cols, err := a.catalog.GetTableSchema(ctx, db, si.Table.Name)
	if err != nil {
		return nil, upstream("describe "+si.Table.Name, err)
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, col := range cols {
		if err := enc.Encode(col); err != nil {
			return nil, &APIError{Code: http.StatusInternalServerError, Message: "failed to marshal schema", Err: err}
		}
	}
	return buf.Bytes(), nil
}

func (a *API) insert(ctx context.Context, batch *kql.InsertBatch, db string) ([]byte, error) {
	if batch == nil {
		return nil, &APIError{Code: http.StatusBadRequest, Message: "adx: INSERT without rows"}
	}
	if a.ingestor == nil {
		return nil, &APIError{Code: http.StatusBadRequest, Message: "INSERT requires an ingestion client"}
	}
	if batch.Table.Schema != "" {
		db = batch.Table.Schema
	}
	if err := a.ingestor.IngestJSON(ctx, db, batch.Table.Name, batch.Payload); err != nil {
		return nil, upstream("ingest into "+batch.Table.Name, err)
	}
	return fmt.Appendf(nil, "{\"inserted\":%d}\n", batch.Rows), nil
}

// upstream maps cluster failures to a bad gateway, keeping errors that already carry a status.
func upstream(what string, err error) error {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return &APIError{
		Code:    http.StatusBadGateway,
		Message: "failed to " + what + ": " + err.Error(),
		Err:     err,
	}
}

func nameLines(field, local string, names []string) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(local)
	enc := json.NewEncoder(&buf)
	for _, name := range names {
		if err := enc.Encode(map[string]string{field: name}); err != nil {
			return nil, &APIError{Code: http.StatusInternalServerError, Message: "failed to marshal names", Err: err}
		}
	}
	return buf.Bytes(), nil
}

// EncodeRows renders a result as one JSON object per row, keys in column order. limit <= 0 means no cap.
func EncodeRows(res *Result, limit int) ([]byte, error) {
	var buf bytes.Buffer
	if res == nil {
		return buf.Bytes(), nil
	}
	names := make([][]byte, len(res.Columns))
	for i, col := range res.Columns {
		name, err := json.Marshal(col.Name)
		if err != nil {
			return nil, &APIError{Code: http.StatusInternalServerError, Message: "failed to marshal column name", Err: err}
		}
		names[i] = name
	}
	for n, row := range res.Rows {
		if limit > 0 && n >= limit {
			break
		}
		buf.WriteByte('{')
		for i, v := range row {
			if i >= len(names) {
				break
			}
			if i > 0 {
				buf.WriteByte(',')
			}
			buf.Write(names[i])
			buf.WriteByte(':')
			cell, err := json.Marshal(v)
			if err != nil {
				return nil, &APIError{Code: http.StatusInternalServerError, Message: "failed to marshal row", Err: err}
			}
			buf.Write(cell)
		}
		buf.WriteString("}\n")
	}
	return buf.Bytes(), nil
}
