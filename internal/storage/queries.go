package storage

import (
	"context"
	"database/sql"
)

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	PrepareContext(context.Context, string) (*sql.Stmt, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// EntryRow mirrors a row of the entries table.
type EntryRow struct {
	ID               string
	Description      string
	Amount           string
	Kind             string
	Category         string
	DueDate          string
	Paid             int64
	InstallmentIndex sql.NullInt64
	InstallmentCount sql.NullInt64
	CreatedAt        string
}

const entryColumns = `id, description, amount, kind, category, due_date, paid, installment_index, installment_count, created_at`

const insertEntry = `INSERT INTO entries (` + entryColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) InsertEntry(ctx context.Context, arg EntryRow) error {
	_, err := q.db.ExecContext(ctx, insertEntry,
		arg.ID,
		arg.Description,
		arg.Amount,
		arg.Kind,
		arg.Category,
		arg.DueDate,
		arg.Paid,
		arg.InstallmentIndex,
		arg.InstallmentCount,
		arg.CreatedAt,
	)
	return err
}

const getEntry = `SELECT ` + entryColumns + ` FROM entries WHERE id = ?`

func (q *Queries) GetEntry(ctx context.Context, id string) (EntryRow, error) {
	row := q.db.QueryRowContext(ctx, getEntry, id)
	var i EntryRow
	err := scanEntry(row, &i)
	return i, err
}

const listEntries = `SELECT ` + entryColumns + ` FROM entries ORDER BY due_date, created_at, id`

func (q *Queries) ListEntries(ctx context.Context) ([]EntryRow, error) {
	rows, err := q.db.QueryContext(ctx, listEntries)
	if err != nil {
		return nil, err
	}
	return collectEntries(rows)
}

const listEntriesByCategory = `SELECT ` + entryColumns + ` FROM entries WHERE category = ? ORDER BY due_date, created_at, id`

func (q *Queries) ListEntriesByCategory(ctx context.Context, category string) ([]EntryRow, error) {
	rows, err := q.db.QueryContext(ctx, listEntriesByCategory, category)
	if err != nil {
		return nil, err
	}
	return collectEntries(rows)
}

const updateEntry = `UPDATE entries
SET description = ?, amount = ?, category = ?, due_date = ?, paid = ?
WHERE id = ?`

type UpdateEntryParams struct {
	Description string
	Amount      string
	Category    string
	DueDate     string
	Paid        int64
	ID          string
}

func (q *Queries) UpdateEntry(ctx context.Context, arg UpdateEntryParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, updateEntry,
		arg.Description,
		arg.Amount,
		arg.Category,
		arg.DueDate,
		arg.Paid,
		arg.ID,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deleteEntry = `DELETE FROM entries WHERE id = ?`

func (q *Queries) DeleteEntry(ctx context.Context, id string) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteEntry, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const bumpVersion = `UPDATE ledger_meta SET version = version + 1 WHERE id = 1 RETURNING version`

func (q *Queries) BumpVersion(ctx context.Context) (int64, error) {
	row := q.db.QueryRowContext(ctx, bumpVersion)
	var version int64
	err := row.Scan(&version)
	return version, err
}

const getVersion = `SELECT version FROM ledger_meta WHERE id = 1`

func (q *Queries) GetVersion(ctx context.Context) (int64, error) {
	row := q.db.QueryRowContext(ctx, getVersion)
	var version int64
	err := row.Scan(&version)
	return version, err
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanEntry(s scanner, i *EntryRow) error {
	return s.Scan(
		&i.ID,
		&i.Description,
		&i.Amount,
		&i.Kind,
		&i.Category,
		&i.DueDate,
		&i.Paid,
		&i.InstallmentIndex,
		&i.InstallmentCount,
		&i.CreatedAt,
	)
}

func collectEntries(rows *sql.Rows) ([]EntryRow, error) {
	defer rows.Close()
	var items []EntryRow
	for rows.Next() {
		var i EntryRow
		if err := scanEntry(rows, &i); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
