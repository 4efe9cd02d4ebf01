package gateway

import (
	"context"
	"log/slog"

	"airgate/internal/cache"
)

// Write kinds recognized by the invalidator.
const (
	WriteCreate = "create"
	WriteUpdate = "update"
	WriteDelete = "delete"
	WriteBatch  = "batch_create"
)

// WriteOp describes a completed upstream mutation for invalidation purposes.
type WriteOp struct {
	Kind   string
	Base   string
	Table  string
	Record string
}

// Invalidator drops cached reads made stale by a write. The policy is
// scoped to the written table: record list and single-record entries for
// (base, table) are dropped, base list and schema entries are left alone
// since record writes cannot change them.
type Invalidator struct {
	store  cache.Store
	logger *slog.Logger
}

// NewInvalidator creates an invalidator over the given store.
func NewInvalidator(store cache.Store, logger *slog.Logger) *Invalidator {
	return &Invalidator{store: store, logger: logger}
}

// OnWrite runs synchronously after a successful upstream write and before
// the response is returned, so no reader can observe a stale entry after
// the writer has seen its result. It returns the prefixes it dropped.
// Store failures are logged and swallowed; invalidation never fails the
// write that triggered it.
func (inv *Invalidator) OnWrite(ctx context.Context, op WriteOp) []string {
	prefixes := []string{
		cache.PrefixRecords(op.Base, op.Table),
		cache.PrefixRecord(op.Base, op.Table),
	}

	dropped := 0
	for _, prefix := range prefixes {
		n, err := inv.store.DeletePrefix(ctx, prefix)
		if err != nil {
			inv.logger.Warn("cache invalidation failed",
				slog.String("prefix", prefix),
				slog.String("kind", op.Kind),
				slog.Any("error", err))
			continue
		}
		dropped += n
	}

	inv.logger.Debug("cache invalidated",
		slog.String("kind", op.Kind),
		slog.String("base_id", op.Base),
		slog.String("table_id", op.Table),
		slog.Int("entries_dropped", dropped))

	return prefixes
}
