package sqlstore

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"

	interfaces "github.com/sheikh-saqib/transaction-orchestrator/internal/interfaces" // interface LedgerStore
	"github.com/sheikh-saqib/transaction-orchestrator/internal/models"
)

//go:embed schema.sql
var schema string

// Supported database/sql driver names.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

const selectColumns = `id, from_account, to_account, amount, currency, kind, status,
	description, user_id, risk_score, ip_address, user_agent, created_at, processed_at`

// SQLLedgerStore persists transactions through database/sql. Queries are
// written with '?' placeholders and rebound for Postgres.
type SQLLedgerStore struct {
	db     *sql.DB
	driver string
}

func NewSQLLedgerStore(db *sql.DB, driver string) *SQLLedgerStore {
	return &SQLLedgerStore{
		db:     db,
		driver: driver,
	}
}

// Open connects to dsn with the named driver and verifies the connection.
func Open(ctx context.Context, driver, dsn string) (*SQLLedgerStore, error) {
	if driver != DriverPostgres && driver != DriverSQLite {
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		// sqlite serialises writers; one connection avoids SQLITE_BUSY
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	return NewSQLLedgerStore(db, driver), nil
}

// Migrate creates the transactions table and its indexes if missing.
func (p *SQLLedgerStore) Migrate(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func (p *SQLLedgerStore) Create(ctx context.Context, tx models.Transaction) error {
	const query = `INSERT INTO transactions (id, from_account, to_account, amount, currency, kind, status,
	description, user_id, risk_score, ip_address, user_agent, created_at, processed_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := p.db.ExecContext(ctx, p.rebind(query),
		tx.ID, tx.FromAccount, tx.ToAccount, tx.Amount, tx.Currency, string(tx.Type), string(tx.Status),
		tx.Description, tx.UserID, tx.RiskScore, tx.Metadata.IPAddress, tx.Metadata.UserAgent,
		tx.CreatedAt.UTC(), nullTime(tx.ProcessedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create %s: %w", tx.ID, interfaces.ErrConflict)
		}
		return fmt.Errorf("create %s: %w", tx.ID, err)
	}
	return nil
}

// Update moves a pending transaction to its new status. The status guard
// keeps terminal rows from being rewritten.
func (p *SQLLedgerStore) Update(ctx context.Context, tx models.Transaction) error {
	const query = `UPDATE transactions SET status = ?, processed_at = ? WHERE id = ? AND status = ?`

	res, err := p.db.ExecContext(ctx, p.rebind(query),
		string(tx.Status), nullTime(tx.ProcessedAt), tx.ID, string(models.StatusPending))
	if err != nil {
		return fmt.Errorf("update %s: %w", tx.ID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update %s: %w", tx.ID, err)
	}
	if affected == 1 {
		return nil
	}

	var current string
	err = p.db.QueryRowContext(ctx, p.rebind(`SELECT status FROM transactions WHERE id = ?`), tx.ID).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("update %s: %w", tx.ID, interfaces.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("update %s: %w", tx.ID, err)
	}
	return fmt.Errorf("update %s: %w: %s -> %s", tx.ID, models.ErrInvalidTransition, current, tx.Status)
}

func (p *SQLLedgerStore) Find(ctx context.Context, filter interfaces.TransactionFilter) ([]models.Transaction, error) {
	var (
		where []string
		args  []any
	)
	if filter.Account != "" {
		where = append(where, "(from_account = ? OR to_account = ?)")
		args = append(args, filter.Account, filter.Account)
	}
	if filter.FromAccount != "" {
		where = append(where, "from_account = ?")
		args = append(args, filter.FromAccount)
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(filter.Status))
	}
	if !filter.Since.IsZero() {
		where = append(where, "created_at >= ?")
		args = append(args, filter.Since.UTC())
	}

	query := "SELECT " + selectColumns + " FROM transactions"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	} else if filter.Skip > 0 {
		// sqlite only accepts OFFSET after a LIMIT
		if p.driver == DriverPostgres {
			query += " LIMIT ALL"
		} else {
			query += " LIMIT -1"
		}
	}
	if filter.Skip > 0 {
		query += " OFFSET ?"
		args = append(args, filter.Skip)
	}

	rows, err := p.db.QueryContext(ctx, p.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("find transactions: %w", err)
	}
	defer rows.Close()

	transactions := make([]models.Transaction, 0)
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, tx)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return transactions, nil
}

func (p *SQLLedgerStore) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

func (p *SQLLedgerStore) Close() error {
	return p.db.Close()
}

func scanTransaction(rows *sql.Rows) (models.Transaction, error) {
	var (
		tx          models.Transaction
		kind        string
		status      string
		processedAt sql.NullTime
	)
	err := rows.Scan(
		&tx.ID,
		&tx.FromAccount,
		&tx.ToAccount,
		&tx.Amount,
		&tx.Currency,
		&kind,
		&status,
		&tx.Description,
		&tx.UserID,
		&tx.RiskScore,
		&tx.Metadata.IPAddress,
		&tx.Metadata.UserAgent,
		&tx.CreatedAt,
		&processedAt,
	)
	if err != nil {
		return models.Transaction{}, fmt.Errorf("scan transaction: %w", err)
	}
	tx.Type = models.Type(kind)
	tx.Status = models.Status(status)
	tx.CreatedAt = tx.CreatedAt.UTC()
	if processedAt.Valid {
		at := processedAt.Time.UTC()
		tx.ProcessedAt = &at
	}
	return tx, nil
}

// rebind rewrites '?' placeholders to $n for Postgres.
func (p *SQLLedgerStore) rebind(query string) string {
	if p.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey ||
			liteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}

var _ interfaces.LedgerStore = (*SQLLedgerStore)(nil)
