// Package ledger adjusts stock-opname quantities as a side effect of the
// order lifecycle. Adjustments are best-effort: the ledger is advisory for
// restocking decisions, not a hard reservation system, so a failed batch is
// reported to the caller and logged but never blocks the primary write.
package ledger

import (
	"context"
	"log"

	"tokobuku/backend/internal/docstore"
	"tokobuku/backend/internal/domain"
)

// Logf is the observer the ledger reports failures through. Defaults to the
// standard logger so callers only wire it explicitly in tests.
type Logf func(format string, args ...any)

type Ledger struct {
	store docstore.Client
	logf  Logf
}

func New(store docstore.Client, logf Logf) *Ledger {
	if logf == nil {
		logf = log.Printf
	}
	return &Ledger{store: store, logf: logf}
}

// Result reports what a deduct/restore attempted. Callers may ignore it
// entirely; the ledger has already logged any failure.
type Result struct {
	// Deltas holds the signed per-stock-item adjustments sent to the store,
	// keyed by stock id. Empty when no line item referenced stock.
	Deltas map[string]int64
	Err    error
}

func (r Result) Ok() bool {
	return r.Err == nil
}

// Deduct decrements stock once per line-item occurrence that carries a stock
// reference. The whole batch is applied atomically or not at all; items
// without a stock id are freeform entries and are skipped.
func (l *Ledger) Deduct(ctx context.Context, items []domain.OrderLineItem) Result {
	return l.adjust(ctx, items, -1, "deduct")
}

// Restore is the inverse of Deduct, incrementing stock by one per occurrence.
func (l *Ledger) Restore(ctx context.Context, items []domain.OrderLineItem) Result {
	return l.adjust(ctx, items, +1, "restore")
}

func (l *Ledger) adjust(ctx context.Context, items []domain.OrderLineItem, sign int64, op string) Result {
	deltas := countByStockID(items, sign)
	if len(deltas) == 0 {
		return Result{Deltas: deltas}
	}

	err := l.store.BatchIncrement(ctx, domain.CollectionStockOpname, "stock", deltas)
	if err != nil {
		l.logf("[ledger] WARN: stock %s failed for %d item(s): %v", op, len(deltas), err)
	}
	return Result{Deltas: deltas, Err: err}
}

func countByStockID(items []domain.OrderLineItem, sign int64) map[string]int64 {
	deltas := make(map[string]int64, len(items))
	for _, item := range items {
		if item.StockID == "" {
			continue
		}
		deltas[item.StockID] += sign
	}
	return deltas
}
