package adx

import (
	"bytes"
	"context"

	"github.com/Azure/azure-kusto-go/azkustodata"
	"github.com/Azure/azure-kusto-go/azkustoingest"
	"github.com/google/uuid"
	"k8s.io/klog/v2"
)

// Ingestor writes JSON lines into a table.
type Ingestor interface {
	IngestJSON(ctx context.Context, db, table string, payload []byte) error
}

// StreamIngestor sends rows through streaming ingestion.
type StreamIngestor struct {
	ingestor azkustoingest.Ingestor
}

var _ Ingestor = (*StreamIngestor)(nil)

// NewStreamIngestor opens a streaming ingestion client for endpoint.
func NewStreamIngestor(endpoint string, auth AuthConfig) (*StreamIngestor, error) {
	kcsb, err := auth.WithEnvironment().ConnectionString(endpoint)
	if err != nil {
		return nil, err
	}
	return newStreamIngestor(kcsb)
}

func newStreamIngestor(kcsb *azkustodata.ConnectionStringBuilder) (*StreamIngestor, error) {
	in, err := azkustoingest.NewStreaming(kcsb)
	if err != nil {
		return nil, Classify("ingest", err)
	}
	return &StreamIngestor{ingestor: in}, nil
}

func (s *StreamIngestor) IngestJSON(ctx context.Context, db, table string, payload []byte) error {
	requestID := "sql-to-kql;" + uuid.NewString()
	_, err := s.ingestor.FromReader(ctx, bytes.NewReader(payload),
		azkustoingest.Database(db),
		azkustoingest.Table(table),
		azkustoingest.FileFormat(azkustoingest.JSON),
		azkustoingest.ClientRequestId(requestID),
	)
	if err != nil {
		return Classify("ingest", err)
	}
	klog.V(2).InfoS("Ingested rows", "database", db, "table", table, "bytes", len(payload), "requestID", requestID)
	return nil
}

func (s *StreamIngestor) Close() error {
	return s.ingestor.Close()
}
