package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"contas/internal/core"
	"contas/internal/store"

	_ "modernc.org/sqlite"
)

const createdAtLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteRepository is the durable EntryStore. Each mutation commits the row
// change together with a bump of ledger_meta.version, then pushes a fresh
// snapshot to subscribers of this process.
type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	hub     *store.Broadcaster

	// serializes mutation+publish so subscribers see versions in order
	mu          sync.Mutex
	lastVersion int64
	now         func() time.Time
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	repo := &SQLiteRepository{
		db:      db,
		queries: New(db),
		hub:     store.NewBroadcaster(),
		now:     time.Now,
	}
	if v, err := repo.queries.GetVersion(context.Background()); err == nil {
		repo.lastVersion = v
	}
	return repo, nil
}

func (r *SQLiteRepository) Close() error {
	r.hub.Close()
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) Create(ctx context.Context, e core.Entry) (string, error) {
	if err := e.Validate(); err != nil {
		return "", err
	}
	e.ID = uuid.NewString()
	e.CreatedAt = r.now().UTC()

	r.mu.Lock()
	defer r.mu.Unlock()

	err := r.inTx(ctx, func(q *Queries) error {
		return q.InsertEntry(ctx, toRow(e))
	})
	if err != nil {
		return "", core.NewPersistenceError("create", "", err)
	}

	slog.InfoContext(ctx, "Entry saved to SQLite",
		"entry_id", e.ID,
		"kind", e.Kind,
		"category", e.Category,
		"amount", e.Amount.StringFixed(2),
		"due_date", e.DueDate.String())

	r.publishLocked(ctx)
	return e.ID, nil
}

func (r *SQLiteRepository) Update(ctx context.Context, id string, p core.Patch) error {
	if err := p.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	err := r.inTx(ctx, func(q *Queries) error {
		row, err := q.GetEntry(ctx, id)
		if errors.Is(err, sql.ErrNoRows) {
			return core.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get entry: %w", err)
		}
		current, err := fromRow(row)
		if err != nil {
			return err
		}
		next := toRow(p.Apply(current))
		n, err := q.UpdateEntry(ctx, UpdateEntryParams{
			Description: next.Description,
			Amount:      next.Amount,
			Category:    next.Category,
			DueDate:     next.DueDate,
			Paid:        next.Paid,
			ID:          id,
		})
		if err != nil {
			return fmt.Errorf("update entry: %w", err)
		}
		if n == 0 {
			return core.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return core.NewPersistenceError("update", id, err)
	}

	slog.InfoContext(ctx, "Entry updated in SQLite", "entry_id", id)
	r.publishLocked(ctx)
	return nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	err := r.inTx(ctx, func(q *Queries) error {
		n, err := q.DeleteEntry(ctx, id)
		if err != nil {
			return fmt.Errorf("delete entry: %w", err)
		}
		if n == 0 {
			return core.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return core.NewPersistenceError("delete", id, err)
	}

	slog.InfoContext(ctx, "Entry deleted from SQLite", "entry_id", id)
	r.publishLocked(ctx)
	return nil
}

func (r *SQLiteRepository) Get(ctx context.Context, id string) (core.Entry, error) {
	row, err := r.queries.GetEntry(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Entry{}, core.NewPersistenceError("get", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Entry{}, core.NewPersistenceError("get", id, err)
	}
	e, err := fromRow(row)
	if err != nil {
		return core.Entry{}, core.NewPersistenceError("get", id, err)
	}
	return e, nil
}

func (r *SQLiteRepository) Snapshot(ctx context.Context, f store.Filter) (core.Snapshot, error) {
	if err := f.Validate(); err != nil {
		return core.Snapshot{}, err
	}
	s, err := r.loadSnapshot(ctx, f)
	if err != nil {
		return core.Snapshot{}, core.NewPersistenceError("snapshot", "", err)
	}
	return s, nil
}

func (r *SQLiteRepository) Subscribe(ctx context.Context, f store.Filter) (<-chan core.Snapshot, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	s, err := r.loadSnapshot(ctx, store.Filter{})
	if err != nil {
		return nil, core.NewPersistenceError("subscribe", "", err)
	}
	return r.hub.Subscribe(ctx, f, s), nil
}

// Refresh re-reads the change counter and, when another process has written
// since the last publish, pushes a fresh snapshot to local subscribers.
// It reports whether a snapshot was published.
func (r *SQLiteRepository) Refresh(ctx context.Context) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, err := r.queries.GetVersion(ctx)
	if err != nil {
		return false, core.NewPersistenceError("refresh", "", err)
	}
	if v == r.lastVersion {
		return false, nil
	}
	s, err := r.loadSnapshot(ctx, store.Filter{})
	if err != nil {
		return false, core.NewPersistenceError("refresh", "", err)
	}
	r.lastVersion = int64(s.Version)
	r.hub.Publish(s)
	return true, nil
}

func (r *SQLiteRepository) inTx(ctx context.Context, fn func(q *Queries) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)
	if err := fn(q); err != nil {
		return err
	}
	if _, err := q.BumpVersion(ctx); err != nil {
		return fmt.Errorf("bump version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) loadSnapshot(ctx context.Context, f store.Filter) (core.Snapshot, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Snapshot{}, fmt.Errorf("begin read transaction: %w", err)
	}
	defer tx.Rollback()
	q := r.queries.WithTx(tx)

	version, err := q.GetVersion(ctx)
	if err != nil {
		return core.Snapshot{}, fmt.Errorf("get version: %w", err)
	}

	var rows []EntryRow
	if f.Category != "" {
		rows, err = q.ListEntriesByCategory(ctx, string(f.Category))
	} else {
		rows, err = q.ListEntries(ctx)
	}
	if err != nil {
		return core.Snapshot{}, fmt.Errorf("list entries: %w", err)
	}

	entries := make([]core.Entry, 0, len(rows))
	for _, row := range rows {
		e, err := fromRow(row)
		if err != nil {
			return core.Snapshot{}, err
		}
		entries = append(entries, e)
	}
	core.SortEntries(entries)
	return core.Snapshot{Version: uint64(version), Entries: entries, TakenAt: r.now().UTC()}, nil
}

// publishLocked broadcasts the committed state. A read failure is logged and
// left for the next Refresh to repair.
func (r *SQLiteRepository) publishLocked(ctx context.Context) {
	s, err := r.loadSnapshot(context.WithoutCancel(ctx), store.Filter{})
	if err != nil {
		slog.ErrorContext(ctx, "Failed to load snapshot after mutation", "error", err)
		return
	}
	r.lastVersion = int64(s.Version)
	r.hub.Publish(s)
}

func toRow(e core.Entry) EntryRow {
	row := EntryRow{
		ID:          e.ID,
		Description: e.Description,
		Amount:      e.Amount.StringFixed(2),
		Kind:        string(e.Kind),
		Category:    string(e.Category),
		DueDate:     e.DueDate.String(),
		CreatedAt:   e.CreatedAt.UTC().Format(createdAtLayout),
	}
	if e.Paid {
		row.Paid = 1
	}
	if e.Installment != nil {
		row.InstallmentIndex = sql.NullInt64{Int64: int64(e.Installment.Index), Valid: true}
		row.InstallmentCount = sql.NullInt64{Int64: int64(e.Installment.Count), Valid: true}
	}
	return row
}

func fromRow(row EntryRow) (core.Entry, error) {
	amount, err := decimal.NewFromString(row.Amount)
	if err != nil {
		return core.Entry{}, fmt.Errorf("entry %s: parse amount %q: %w", row.ID, row.Amount, err)
	}
	due, err := core.ParseDate(row.DueDate)
	if err != nil {
		return core.Entry{}, fmt.Errorf("entry %s: %w", row.ID, err)
	}
	created, err := time.Parse(createdAtLayout, row.CreatedAt)
	if err != nil {
		return core.Entry{}, fmt.Errorf("entry %s: parse created_at: %w", row.ID, err)
	}
	e := core.Entry{
		ID:          row.ID,
		Description: row.Description,
		Amount:      amount,
		Kind:        core.Kind(row.Kind),
		Category:    core.Category(row.Category),
		DueDate:     due,
		Paid:        row.Paid != 0,
		CreatedAt:   created,
	}
	if row.InstallmentIndex.Valid && row.InstallmentCount.Valid {
		e.Installment = &core.Installment{
			Index: int(row.InstallmentIndex.Int64),
			Count: int(row.InstallmentCount.Int64),
		}
	}
	return e, nil
}
