// Package journal implements the append-only decision log: an fsynced
// JSONL file as source of truth plus a sqlite mirror for range queries.
package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alejandrodnm/edgebot/internal/adapters/storage"
	"github.com/alejandrodnm/edgebot/internal/domain"
)

// Journal implements ports.Journal. Appends are mutex-guarded so several
// strategy instances in the same process can share one Journal; each
// entry is self-contained, so append atomicity is the only coordination.
type Journal struct {
	mu    sync.Mutex
	file  *os.File
	store *storage.SQLiteStore
}

// New opens (or creates) the JSONL log at path. An unwritable journal
// aborts startup — decisions must never go unrecorded.
func New(path string, store *storage.SQLiteStore) (*Journal, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("journal.New: open %q: %w", path, err)
	}
	return &Journal{file: f, store: store}, nil
}

// Append journals a decision: marshal once, fsync the line, mirror the
// raw bytes into sqlite. The write is the atomic unit of a cycle — a
// cancelled cycle never leaves a half-committed entry.
func (j *Journal) Append(ctx context.Context, d domain.Decision) (string, error) {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	raw, err := json.Marshal(d)
	if err != nil {
		return "", fmt.Errorf("journal.Append: marshal: %w", err)
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	if _, err := j.file.Write(append(raw, '\n')); err != nil {
		return "", fmt.Errorf("journal.Append: write: %w", err)
	}
	if err := j.file.Sync(); err != nil {
		return "", fmt.Errorf("journal.Append: fsync: %w", err)
	}

	// The mirror is best-effort once the line is durable: a mirror
	// failure loses queryability, not the record itself.
	if err := j.store.InsertDecision(ctx, d, raw); err != nil {
		slog.Warn("journal: sqlite mirror failed", "decision", d.ID, "err", err)
	}
	return d.ID, nil
}

// QueryByMarket returns a market's decisions in insertion order.
func (j *Journal) QueryByMarket(ctx context.Context, marketID string) ([]domain.Decision, error) {
	raws, err := j.store.DecisionsByMarket(ctx, marketID)
	if err != nil {
		return nil, fmt.Errorf("journal.QueryByMarket: %w", err)
	}
	return unmarshalAll(raws)
}

// QueryByRange returns decisions in [from, to] in insertion order.
func (j *Journal) QueryByRange(ctx context.Context, from, to time.Time) ([]domain.Decision, error) {
	raws, err := j.store.DecisionsByRange(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("journal.QueryByRange: %w", err)
	}
	return unmarshalAll(raws)
}

// Close flushes and closes the log file.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.file.Sync(); err != nil {
		return fmt.Errorf("journal.Close: fsync: %w", err)
	}
	return j.file.Close()
}

func unmarshalAll(raws [][]byte) ([]domain.Decision, error) {
	out := make([]domain.Decision, 0, len(raws))
	for _, raw := range raws {
		var d domain.Decision
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, fmt.Errorf("journal: corrupt entry: %w", err)
		}
		out = append(out, d)
	}
	return out, nil
}
