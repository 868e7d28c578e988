package inventory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"hemobank/pkg/domain"
	"hemobank/pkg/platform/sentinel"
	txcontext "hemobank/pkg/platform/tx"
)

// Postgres persists inventory records in PostgreSQL. The (bank_id,
// blood_group) pair carries a unique constraint; UpsertAdd leans on it.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Postgres) q(ctx context.Context) querier {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const recordColumns = `id, bank_id, blood_group, units, updated_at`

func (s *Postgres) UpsertAdd(ctx context.Context, bankID domain.BankID, group domain.BloodGroup, units int) (*Record, error) {
	query := `
		INSERT INTO blood_inventory (id, bank_id, blood_group, units, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (bank_id, blood_group)
		DO UPDATE SET units = blood_inventory.units + EXCLUDED.units, updated_at = EXCLUDED.updated_at
		RETURNING ` + recordColumns + `
	`
	row := s.q(ctx).QueryRowContext(ctx, query,
		uuid.New(), uuid.UUID(bankID), group.String(), units, time.Now(),
	)
	rec, err := scanRecord(row)
	if err != nil {
		return nil, fmt.Errorf("upsert inventory: %w", err)
	}
	return rec, nil
}

func (s *Postgres) FindByID(ctx context.Context, id domain.InventoryRecordID) (*Record, error) {
	query := `SELECT ` + recordColumns + ` FROM blood_inventory WHERE id = $1`
	rec, err := scanRecord(s.q(ctx).QueryRowContext(ctx, query, uuid.UUID(id)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find inventory record: %w", err)
	}
	return rec, nil
}

func (s *Postgres) FindByBankAndGroup(ctx context.Context, bankID domain.BankID, group domain.BloodGroup) (*Record, error) {
	query := `SELECT ` + recordColumns + ` FROM blood_inventory WHERE bank_id = $1 AND blood_group = $2`
	rec, err := scanRecord(s.q(ctx).QueryRowContext(ctx, query, uuid.UUID(bankID), group.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find inventory record: %w", err)
	}
	return rec, nil
}

func (s *Postgres) ListByGroup(ctx context.Context, group domain.BloodGroup) ([]*Record, error) {
	query := `SELECT ` + recordColumns + ` FROM blood_inventory WHERE blood_group = $1`
	rows, err := s.q(ctx).QueryContext(ctx, query, group.String())
	if err != nil {
		return nil, fmt.Errorf("list inventory by group: %w", err)
	}
	defer rows.Close()

	var out []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan inventory record: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// DecrementIfSufficient performs the sufficiency check and the decrement in
// one statement; the units >= $2 predicate is the in-transaction re-read the
// executor relies on.
func (s *Postgres) DecrementIfSufficient(ctx context.Context, id domain.InventoryRecordID, units int) error {
	query := `
		UPDATE blood_inventory
		SET units = units - $2, updated_at = $3
		WHERE id = $1 AND units >= $2
	`
	res, err := s.q(ctx).ExecContext(ctx, query, uuid.UUID(id), units, time.Now())
	if err != nil {
		return fmt.Errorf("decrement inventory: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("decrement inventory rows affected: %w", err)
	}
	if affected == 1 {
		return nil
	}

	// Distinguish a missing record from one that ran short.
	if _, err := s.FindByID(ctx, id); err != nil {
		return err
	}
	return sentinel.ErrInsufficientStock
}

func (s *Postgres) Increment(ctx context.Context, id domain.InventoryRecordID, units int) error {
	query := `UPDATE blood_inventory SET units = units + $2, updated_at = $3 WHERE id = $1`
	res, err := s.q(ctx).ExecContext(ctx, query, uuid.UUID(id), units, time.Now())
	if err != nil {
		return fmt.Errorf("increment inventory: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("increment inventory rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) AggregateByGroup(ctx context.Context) (map[domain.BloodGroup]int, error) {
	query := `SELECT blood_group, COALESCE(SUM(units), 0) FROM blood_inventory GROUP BY blood_group`
	rows, err := s.q(ctx).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("aggregate inventory: %w", err)
	}
	defer rows.Close()

	totals := make(map[domain.BloodGroup]int)
	for rows.Next() {
		var (
			group string
			units int
		)
		if err := rows.Scan(&group, &units); err != nil {
			return nil, fmt.Errorf("scan aggregate row: %w", err)
		}
		totals[domain.BloodGroup(group)] = units
	}
	return totals, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var (
		rec    Record
		id     uuid.UUID
		bankID uuid.UUID
		group  string
	)
	if err := row.Scan(&id, &bankID, &group, &rec.Units, &rec.UpdatedAt); err != nil {
		return nil, err
	}
	rec.ID = domain.InventoryRecordID(id)
	rec.BankID = domain.BankID(bankID)
	rec.Group = domain.BloodGroup(group)
	return &rec, nil
}

// PostgresTx runs fn inside one SQL transaction, carried through ctx so store
// calls made by fn join it.
type PostgresTx struct {
	db *sql.DB
}

func NewPostgresTx(db *sql.DB) *PostgresTx {
	return &PostgresTx{db: db}
}

func (t *PostgresTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	sqlTx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(txcontext.WithTx(ctx, sqlTx)); err != nil {
		if rbErr := sqlTx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return fmt.Errorf("rollback after %w: %v", err, rbErr)
		}
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
