// Package activity records and lists per-tenant audit entries. Rows live in
// each tenant's own database and are filtered by row-level security on
// app.tenant_id, so a request only ever sees its own tenant's entries.
package activity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dmitrymomot/pillar/pkg/tenant"
)

// DefaultLimit caps List when no limit is given.
const DefaultLimit = 50

var (
	ErrEmptyAction = errors.New("activity: action is required")
	ErrNoTenant    = tenant.ErrNoTenantInContext
)

// Entry is one recorded action.
type Entry struct {
	ID        int64           `json:"id"`
	TenantID  int64           `json:"tenant_id"`
	ActorID   *uuid.UUID      `json:"actor_id,omitempty"`
	Action    string          `json:"action"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// TxRunner runs fn in a tenant-scoped transaction. *tenantdb.Manager
// implements it.
type TxRunner interface {
	InTx(ctx context.Context, fn func(pgx.Tx) error) error
}

// Log reads and writes activity entries of the current tenant.
type Log struct {
	db TxRunner
}

// New returns a Log. Panics if db is nil.
func New(db TxRunner) *Log {
	if db == nil {
		panic("activity: tx runner is required")
	}
	return &Log{db: db}
}

// Record appends an entry. The tenant id column defaults to the
// transaction's app.tenant_id.
func (l *Log) Record(ctx context.Context, actor *uuid.UUID, action string, payload json.RawMessage) (*Entry, error) {
	if action == "" {
		return nil, ErrEmptyAction
	}
	if _, ok := tenant.IDFromContext(ctx); !ok {
		return nil, ErrNoTenant
	}
	var e Entry
	err := l.db.InTx(ctx, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `
			INSERT INTO activity_log (actor_id, action, payload)
			VALUES ($1, $2, $3)
			RETURNING `+entryColumns,
			actor, action, nullPayload(payload),
		)
		if err != nil {
			return err
		}
		e, err = pgx.CollectExactlyOneRow(rows, scanEntry)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("record activity: %w", err)
	}
	return &e, nil
}

// List returns the newest entries first.
func (l *Log) List(ctx context.Context, limit int) ([]Entry, error) {
	if _, ok := tenant.IDFromContext(ctx); !ok {
		return nil, ErrNoTenant
	}
	if limit <= 0 || limit > DefaultLimit {
		limit = DefaultLimit
	}
	var out []Entry
	err := l.db.InTx(ctx, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `
			SELECT `+entryColumns+`
			FROM activity_log ORDER BY id DESC LIMIT $1`, limit)
		if err != nil {
			return err
		}
		out, err = pgx.CollectRows(rows, scanEntry)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	return out, nil
}

const entryColumns = `id, tenant_id, actor_id, action, payload, created_at`

func scanEntry(row pgx.CollectableRow) (Entry, error) {
	var (
		e       Entry
		payload []byte
	)
	err := row.Scan(&e.ID, &e.TenantID, &e.ActorID, &e.Action, &payload, &e.CreatedAt)
	e.Payload = payload
	return e, err
}

func nullPayload(p json.RawMessage) any {
	if len(p) == 0 {
		return nil
	}
	return []byte(p)
}
