package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"k8s.io/klog/v2"

	"github.com/dodopizza/sql-to-kql/lib/adx"
	"github.com/dodopizza/sql-to-kql/lib/kql"
	"github.com/dodopizza/sql-to-kql/lib/sql/parser"
	"github.com/dodopizza/sql-to-kql/lib/store"
	"github.com/dodopizza/sql-to-kql/lib/store/tablestore"
	"github.com/dodopizza/sql-to-kql/lib/store/viewstore"
)

const maxRequestBytes = 1 << 20

type Server struct {
	api     *adx.API
	mux     *http.ServeMux
	sp      *store.Provider
	cfg     Config
	timeout time.Duration
	closers []io.Closer
}

// NewServer builds a server for cfg. A configured cluster gets a query client and a streaming ingestor.
func NewServer(cfg Config) (*Server, error) {
	cfg.SetDefaults()
	if cfg.Cluster == "" {
		return newServer(cfg, nil, nil)
	}
	if _, err := url.Parse(cfg.Cluster); err != nil {
		return nil, fmt.Errorf("invalid cluster URL: %w", err)
	}
	if err := cfg.Auth.WithEnvironment().Validate(); err != nil {
		return nil, err
	}
	client, err := adx.NewClient(cfg.Cluster, cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to create cluster client: %w", err)
	}
	klog.V(2).InfoS("Created cluster client", "cluster", client.Endpoint())
	ingestor, err := adx.NewStreamIngestor(cfg.Cluster, cfg.Auth)
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to create ingestor: %w", err)
	}
	srv, err := newServer(cfg, client, ingestor)
	if err != nil {
		_ = client.Close()
		_ = ingestor.Close()
		return nil, err
	}
	srv.closers = append(srv.closers, client, ingestor)
	return srv, nil
}

func newServer(cfg Config, exec adx.Executor, ingestor adx.Ingestor) (*Server, error) {
	cfg.SetDefaults()
	tableStore, err := tablestore.NewTableStore(cfg.Tables)
	if err != nil {
		return nil, fmt.Errorf("failed to create table store: %w", err)
	}
	viewStore, err := viewstore.NewViewStore(cfg.ViewsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create view store: %w", err)
	}

	srv := &Server{
		mux:     http.NewServeMux(),
		sp:      store.NewStoreProvider(tableStore, viewStore),
		api:     adx.NewAPI(exec, ingestor, cfg.Database, cfg.Limit),
		cfg:     cfg,
		timeout: cfg.QueryTimeout.Duration,
	}
	srv.mux.HandleFunc("/healthz", withSecurityHeaders(srv.handleHealth))
	srv.mux.HandleFunc("/api/v1/sql-to-kql", withSecurityHeaders(srv.handleQuery))
	srv.mux.HandleFunc("/api/v1/config", withSecurityHeaders(srv.handleConfig))
	return srv, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Close releases cluster clients.
func (s *Server) Close() error {
	var errs []error
	for _, c := range s.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

// WatchViews caches view definitions until ctx is done, following changes in the views directory.
// It does nothing when views are disabled.
func (s *Server) WatchViews(ctx context.Context) error {
	vs := s.sp.ViewStore()
	if vs == nil {
		return nil
	}
	return vs.Watch(ctx)
}

// withSecurityHeaders middleware adds security headers to responses
func withSecurityHeaders(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-XSS-Protection", "1; mode=block")
		next(w, r)
	}
}

type queryRequest struct {
	SQL      string `json:"sql"`
	Database string `json:"database,omitempty"`
}

type queryResponse struct {
	KQL   string `json:"kql"`
	Data  string `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	defer r.Body.Close()

	requestID := uuid.NewString()
	w.Header().Set("X-Request-Id", requestID)

	var req queryRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBytes)).Decode(&req); err != nil {
		klog.ErrorS(err, "Failed to decode request", "requestID", requestID)
		writeJSON(w, http.StatusBadRequest, queryResponse{Error: "invalid request payload"})
		return
	}

	sqlText := strings.TrimSpace(req.SQL)
	if sqlText == "" {
		writeJSON(w, http.StatusBadRequest, queryResponse{Error: "sql query is required"})
		return
	}

	statement, err := ProcessQuery(sqlText, s.sp)
	if err != nil {
		klog.ErrorS(err, "Query processing failed", "requestID", requestID)
		writeError(w, err, queryResponse{}, "query processing failed")
		return
	}
	klog.V(4).InfoS("Translated statement", "requestID", requestID, "kind", statement.Kind, "kql", statement.KQL)

	resp := queryResponse{KQL: statement.KQL}
	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()
	data, err := s.api.Execute(ctx, statement, strings.TrimSpace(req.Database))
	if err != nil {
		category, _ := adx.CategoryOf(err)
		klog.ErrorS(err, "Query execution failed", "requestID", requestID, "category", category)
		writeError(w, err, resp, "query execution failed")
		return
	}
	resp.Data = string(data)
	writeJSON(w, http.StatusOK, resp)
}

// writeError maps typed errors to their HTTP status. The translated KQL in resp is kept.
func writeError(w http.ResponseWriter, err error, resp queryResponse, fallback string) {
	var ae *adx.APIError
	var te *kql.TranslationError
	var ve *viewstore.StoreError
	var se *parser.SyntaxError
	status := http.StatusInternalServerError
	resp.Error = fallback
	switch {
	case errors.As(err, &ae):
		status, resp.Error = ae.Code, ae.Message
	case errors.As(err, &te):
		status, resp.Error = te.Code, te.Message
	case errors.As(err, &ve):
		status, resp.Error = ve.Code, ve.Message
	case errors.As(err, &se):
		status, resp.Error = http.StatusBadRequest, err.Error()
	case errors.Is(err, context.DeadlineExceeded):
		status, resp.Error = http.StatusGatewayTimeout, "query timed out"
	}
	writeJSON(w, status, resp)
}

// ProcessQuery parses sql and translates it against the local tables and views.
func ProcessQuery(sql string, sp *store.Provider) (*kql.StatementInfo, error) {
	stmt, err := parser.Parse(sql)
	if err != nil {
		return nil, err
	}
	return kql.GetStatementInfo(stmt, sp)
}

// Translate turns sql into a statement without touching the cluster.
func (s *Server) Translate(sql string) (*kql.StatementInfo, error) {
	return ProcessQuery(sql, s.sp)
}

// Run translates sql and executes it against db. The statement is returned whenever translation succeeded.
func (s *Server) Run(ctx context.Context, sql, db string) (*kql.StatementInfo, []byte, error) {
	si, err := s.Translate(sql)
	if err != nil {
		return nil, nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	data, err := s.api.Execute(ctx, si, db)
	return si, data, err
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"cluster":      s.cfg.Cluster,
		"database":     s.cfg.Database,
		"limit":        s.cfg.Limit,
		"queryTimeout": s.cfg.QueryTimeout,
		"views":        s.sp.ViewStore() != nil,
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		klog.ErrorS(err, "Failed to encode JSON response")
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.api.Configured() && r.URL.Query().Get("deep") != "" {
		ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
		defer cancel()
		if err := s.api.Catalog().Ping(ctx, s.cfg.Database); err != nil {
			klog.ErrorS(err, "Cluster health check failed")
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
