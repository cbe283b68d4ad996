// Package store persists fetched transactions in a local SQLite ledger.
// Rows are keyed by the deterministic transaction ID, so re-fetching an
// overlapping window upserts instead of duplicating.
package store

import (
	"context"
	"database/sql"
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/rumor-ml/commons.systems/fidelity/internal/domain"
	"github.com/rumor-ml/commons.systems/fidelity/internal/transform"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS transactions (
	id           TEXT PRIMARY KEY,
	acct_num     TEXT NOT NULL,
	date         TEXT NOT NULL,
	description  TEXT NOT NULL,
	amount       TEXT,
	order_number TEXT,
	pending      INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_transactions_acct_date ON transactions (acct_num, date);
`

const upsertSQL = `
INSERT INTO transactions (id, acct_num, date, description, amount, order_number, pending)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
	acct_num     = excluded.acct_num,
	date         = excluded.date,
	description  = excluded.description,
	amount       = excluded.amount,
	order_number = excluded.order_number,
	pending      = excluded.pending
`

// Ledger is a SQLite-backed transaction store.
type Ledger struct {
	db *sql.DB
}

// Open opens (creating if necessary) the ledger at path and ensures the
// schema exists.
func Open(path string) (*Ledger, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger %s: %w", path, err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize ledger schema: %w", err)
	}
	return &Ledger{db: db}, nil
}

// Close releases the underlying database.
func (l *Ledger) Close() error {
	return l.db.Close()
}

// Upsert writes all transactions in one database transaction; either every
// row lands or none do.
func (l *Ledger) Upsert(ctx context.Context, transactions []domain.Transaction) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin ledger transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, upsertSQL)
	if err != nil {
		return fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, t := range transactions {
		var amount sql.NullString
		if t.Amount != nil {
			amount = sql.NullString{String: t.Amount.StringFixed(2), Valid: true}
		}
		var orderNumber sql.NullString
		if t.OrderNumber != nil {
			orderNumber = sql.NullString{String: *t.OrderNumber, Valid: true}
		}

		_, err := stmt.ExecContext(ctx,
			transform.TransactionID(&t),
			t.AcctNum,
			t.Date.String(),
			t.Description,
			amount,
			orderNumber,
			t.Pending,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert transaction for account %s on %s: %w", t.AcctNum, t.Date, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit ledger transaction: %w", err)
	}
	return nil
}

// ListByAccount returns the account's transactions ordered by date then ID.
func (l *Ledger) ListByAccount(ctx context.Context, acctNum string) ([]domain.Transaction, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT acct_num, date, description, amount, order_number, pending
		FROM transactions
		WHERE acct_num = ?
		ORDER BY date, id`, acctNum)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger for account %s: %w", acctNum, err)
	}
	defer rows.Close()

	var transactions []domain.Transaction
	for rows.Next() {
		var (
			t           domain.Transaction
			date        string
			amount      sql.NullString
			orderNumber sql.NullString
		)
		if err := rows.Scan(&t.AcctNum, &date, &t.Description, &amount, &orderNumber, &t.Pending); err != nil {
			return nil, fmt.Errorf("failed to scan ledger row: %w", err)
		}

		d, err := civil.ParseDate(date)
		if err != nil {
			return nil, fmt.Errorf("ledger row has malformed date %q: %w", date, err)
		}
		t.Date = d

		if amount.Valid {
			a, err := decimal.NewFromString(amount.String)
			if err != nil {
				return nil, fmt.Errorf("ledger row has malformed amount %q: %w", amount.String, err)
			}
			t.Amount = &a
		}
		if orderNumber.Valid {
			t.OrderNumber = &orderNumber.String
		}

		transactions = append(transactions, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate ledger rows: %w", err)
	}
	return transactions, nil
}

// Count returns the total number of ledger rows.
func (l *Ledger) Count(ctx context.Context) (int, error) {
	var n int
	if err := l.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count ledger rows: %w", err)
	}
	return n, nil
}
