// Package storage opens the processed-file ledger and scheduler store
// selected in the sync settings.
package storage

import (
	"fmt"

	"github.com/custodia-labs/docrag/internal/adapters/driven/storage/jsonfile"
	"github.com/custodia-labs/docrag/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/docrag/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
)

// Stores bundles the ledger with the scheduler history store.
type Stores struct {
	Ledger    driven.LedgerStore
	Scheduler driven.SchedulerStore
}

// Close releases the ledger, which owns any shared database.
func (s Stores) Close() error {
	return s.Ledger.Close()
}

// Open builds the stores for s. The json ledger keeps scheduler history
// in memory; the sqlite ledger persists it alongside the ledger tables.
func Open(s domain.SyncSettings) (Stores, error) {
	switch s.Ledger {
	case domain.LedgerJSON, "":
		ledger, err := jsonfile.NewLedgerStore(s.LedgerPath)
		if err != nil {
			return Stores{}, err
		}
		return Stores{Ledger: ledger, Scheduler: memory.NewSchedulerStore()}, nil
	case domain.LedgerSQLite:
		db, err := sqlite.NewStore(s.LedgerPath)
		if err != nil {
			return Stores{}, err
		}
		return Stores{Ledger: db.LedgerStore(), Scheduler: db.SchedulerStore()}, nil
	case domain.LedgerMemory:
		return OpenMemory(), nil
	default:
		return Stores{}, fmt.Errorf("%w: ledger %q, use json, sqlite or memory", domain.ErrUnsupportedType, s.Ledger)
	}
}

// OpenMemory returns process-local stores.
func OpenMemory() Stores {
	return Stores{Ledger: memory.NewLedgerStore(), Scheduler: memory.NewSchedulerStore()}
}
