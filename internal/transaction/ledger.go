// Package transaction tracks transactions the user submitted until the
// indexer knows about them, and serves the indexed transfer history.
package transaction

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	walletstatedb "github.com/Maphikza/flow-wallet-state/internal/database"
	"github.com/Maphikza/flow-wallet-state/internal/indexer"
	"github.com/Maphikza/flow-wallet-state/internal/persist"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// TransferSource provides the indexed transfer history.
type TransferSource interface {
	FetchTransferPage(ctx context.Context, network, address string, offset, limit int) (*indexer.TransferPage, error)
}

// addressInvalidator is implemented by sources that cache per account.
type addressInvalidator interface {
	InvalidateAddress(network, address string)
}

// Ledger holds pending transactions per (network, address) partition. Before
// Init every operation is a no-op and every read is empty.
type Ledger struct {
	mu         sync.Mutex
	partitions map[string][]*PendingTransaction

	store   walletstatedb.Store
	writer  *persist.Writer
	history TransferSource
	logger  zerolog.Logger
}

func NewLedger(store walletstatedb.Store, writer *persist.Writer, history TransferSource, logger zerolog.Logger) *Ledger {
	return &Ledger{
		store:   store,
		writer:  writer,
		history: history,
		logger:  logger.With().Str("component", "pending").Logger(),
	}
}

func partitionKey(network, address string) string {
	return partitionPrefix + network + ":" + address
}

// Init loads every stored partition.
func (l *Ledger) Init(ctx context.Context) error {
	keys, err := l.store.Keys(ctx, partitionPrefix)
	if err != nil {
		return errors.Wrap(err, "failed to list pending partitions")
	}

	partitions := make(map[string][]*PendingTransaction, len(keys))
	for _, key := range keys {
		list, err := walletstatedb.GetLocalData[[]*PendingTransaction](ctx, l.store, key)
		if err != nil {
			l.logger.Error().Err(err).Str("key", key).Msg("skipping unreadable pending partition")
			continue
		}
		if list != nil && len(*list) > 0 {
			partitions[key] = *list
		}
	}

	l.mu.Lock()
	l.partitions = partitions
	l.mu.Unlock()

	l.logger.Info().Int("partitions", len(partitions)).Msg("pending transactions loaded")
	return nil
}

// Clear drops every partition, in memory and in storage.
func (l *Ledger) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.partitions == nil {
		return
	}
	for key := range l.partitions {
		l.writer.ScheduleRemove(key)
	}
	l.partitions = make(map[string][]*PendingTransaction)
}

// persistLocked schedules a write of one partition. Callers hold l.mu.
func (l *Ledger) persistLocked(key string) {
	list := l.partitions[key]
	if len(list) == 0 {
		delete(l.partitions, key)
		l.writer.ScheduleRemove(key)
		return
	}
	raw, err := json.Marshal(list)
	if err != nil {
		l.logger.Error().Err(err).Str("key", key).Msg("failed to encode pending partition")
		return
	}
	l.writer.Schedule(key, raw)
}

// SetPending records a freshly submitted transaction. A second call with the
// same id is ignored.
func (l *Ledger) SetPending(network, address, cadenceTxID, icon, title string) {
	if cadenceTxID == "" {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.partitions == nil {
		return
	}

	key := partitionKey(network, address)
	for _, p := range l.partitions[key] {
		if p.CadenceTxID == cadenceTxID {
			return
		}
	}

	l.partitions[key] = append(l.partitions[key], &PendingTransaction{
		CadenceTxID: cadenceTxID,
		EVMTxIDs:    []string{},
		Sender:      address,
		Image:       icon,
		Title:       title,
		Status:      StatusPending,
		Error:       false,
	})
	l.persistLocked(key)
}

// UpdatePending applies a status payload to the record for cadenceTxID and
// collects any new EVM transaction hashes from its events.
func (l *Ledger) UpdatePending(network, address, cadenceTxID string, status TransactionStatus) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.partitions == nil {
		return
	}

	key := partitionKey(network, address)
	var record *PendingTransaction
	for _, p := range l.partitions[key] {
		if p.CadenceTxID == cadenceTxID {
			record = p
			break
		}
	}
	if record == nil {
		return
	}

	record.Status = status.StatusString
	record.Error = status.StatusCode == StatusCodeFailed

	seen := make(map[string]struct{}, len(record.EVMTxIDs))
	for _, id := range record.EVMTxIDs {
		seen[id] = struct{}{}
	}
	for _, ev := range status.Events {
		hash, ok := evmTxHash(ev)
		if !ok {
			if strings.Contains(ev.Type, evmEventMarker) {
				l.logger.Debug().Str("type", ev.Type).Str("tx", cadenceTxID).Msg("EVM event without usable hash")
			}
			continue
		}
		if _, dup := seen[hash]; dup {
			continue
		}
		seen[hash] = struct{}{}
		record.EVMTxIDs = append(record.EVMTxIDs, hash)
	}
	l.persistLocked(key)

	if record.Error || strings.EqualFold(record.Status, StatusSealed) {
		if inv, ok := l.history.(addressInvalidator); ok {
			inv.InvalidateAddress(network, address)
		}
	}
}

// ListPending returns copies of the partition's records in insertion order.
func (l *Ledger) ListPending(network, address string) []PendingTransaction {
	l.mu.Lock()
	defer l.mu.Unlock()

	list := l.partitions[partitionKey(network, address)]
	out := make([]PendingTransaction, 0, len(list))
	for _, p := range list {
		out = append(out, p.clone())
	}
	return out
}

// RemovePending drops the record whose Cadence id or any EVM id equals txID.
func (l *Ledger) RemovePending(network, address, txID string) {
	if txID == "" {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.partitions == nil {
		return
	}

	key := partitionKey(network, address)
	list := l.partitions[key]
	for i, p := range list {
		if p.hasID(txID) {
			l.partitions[key] = append(list[:i:i], list[i+1:]...)
			l.persistLocked(key)
			return
		}
	}
}

func (l *Ledger) ClearPending(network, address string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.partitions == nil {
		return
	}

	key := partitionKey(network, address)
	delete(l.partitions, key)
	l.writer.ScheduleRemove(key)
}

// ListTransactions returns one page of indexed history. Fetch failures are
// logged and yield an empty list.
func (l *Ledger) ListTransactions(ctx context.Context, network, address string, offset, limit int) []indexer.Transfer {
	page := l.fetch(ctx, network, address, offset, limit)
	if page == nil {
		return []indexer.Transfer{}
	}
	out := make([]indexer.Transfer, len(page.Transactions))
	for i, tr := range page.Transactions {
		tr.Indexed = true
		out[i] = tr
	}
	return out
}

// GetCount returns the total number of indexed transactions, or 0 when the
// history is unavailable.
func (l *Ledger) GetCount(ctx context.Context, network, address string, offset, limit int) int {
	page := l.fetch(ctx, network, address, offset, limit)
	if page == nil {
		return 0
	}
	return page.Total
}

func (l *Ledger) fetch(ctx context.Context, network, address string, offset, limit int) *indexer.TransferPage {
	if l.history == nil {
		return nil
	}
	page, err := l.history.FetchTransferPage(ctx, network, address, offset, limit)
	if err != nil {
		l.logger.Error().Err(err).Str("network", network).Str("address", address).Msg("failed to load transfer history")
		return nil
	}
	return page
}

// Flush waits for scheduled writes to reach storage.
func (l *Ledger) Flush(ctx context.Context) error {
	return l.writer.Flush(ctx)
}
