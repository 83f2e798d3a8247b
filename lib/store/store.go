package store

import (
	"github.com/dodopizza/sql-to-kql/lib/store/tablestore"
	"github.com/dodopizza/sql-to-kql/lib/store/viewstore"
)

// Provider bundles the local sources a query can read from before falling back to cluster tables.
type Provider struct {
	tableStore *tablestore.TableStore
	viewStore  *viewstore.ViewStore
}

func NewStoreProvider(tableStore *tablestore.TableStore, viewStore *viewstore.ViewStore) *Provider {
	return &Provider{
		tableStore: tableStore,
		viewStore:  viewStore,
	}
}

func (s *Provider) TableStore() *tablestore.TableStore {
	if s == nil {
		return nil
	}
	return s.tableStore
}

func (s *Provider) ViewStore() *viewstore.ViewStore {
	if s == nil {
		return nil
	}
	return s.viewStore
}
