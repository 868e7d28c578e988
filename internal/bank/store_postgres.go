package bank

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"hemobank/pkg/domain"
	"hemobank/pkg/platform/sentinel"
	txcontext "hemobank/pkg/platform/tx"
)

// Postgres persists banks in PostgreSQL.
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

const bankColumns = `id, name, address, city, phone, email, created_by, created_at, updated_at`

func (s *Postgres) Create(ctx context.Context, bank *Bank) error {
	query := `
		INSERT INTO banks (` + bankColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.q(ctx).ExecContext(ctx, query,
		uuid.UUID(bank.ID),
		bank.Name,
		bank.Address,
		bank.City,
		bank.Phone,
		bank.Email,
		uuid.UUID(bank.CreatedBy),
		bank.CreatedAt,
		bank.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert bank: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, id domain.BankID) (*Bank, error) {
	query := `SELECT ` + bankColumns + ` FROM banks WHERE id = $1`
	return s.scanOne(s.q(ctx).QueryRowContext(ctx, query, uuid.UUID(id)))
}

func (s *Postgres) FindByName(ctx context.Context, name string) (*Bank, error) {
	query := `SELECT ` + bankColumns + ` FROM banks WHERE lower(name) = lower($1)`
	return s.scanOne(s.q(ctx).QueryRowContext(ctx, query, name))
}

func (s *Postgres) List(ctx context.Context) ([]*Bank, error) {
	query := `SELECT ` + bankColumns + ` FROM banks ORDER BY name`
	rows, err := s.q(ctx).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list banks: %w", err)
	}
	defer rows.Close()

	var out []*Bank
	for rows.Next() {
		bank, err := scanBank(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, bank)
	}
	return out, rows.Err()
}

func (s *Postgres) Update(ctx context.Context, bank *Bank) error {
	query := `
		UPDATE banks
		SET name = $2, address = $3, city = $4, phone = $5, email = $6, updated_at = $7
		WHERE id = $1
	`
	res, err := s.q(ctx).ExecContext(ctx, query,
		uuid.UUID(bank.ID),
		bank.Name,
		bank.Address,
		bank.City,
		bank.Phone,
		bank.Email,
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("update bank: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update bank rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *Postgres) scanOne(row *sql.Row) (*Bank, error) {
	bank, err := scanBank(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, err
	}
	return bank, nil
}

func scanBank(row rowScanner) (*Bank, error) {
	var (
		b         Bank
		id        uuid.UUID
		createdBy uuid.UUID
	)
	err := row.Scan(&id, &b.Name, &b.Address, &b.City, &b.Phone, &b.Email, &createdBy, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan bank: %w", err)
	}
	b.ID = domain.BankID(id)
	b.CreatedBy = domain.UserID(createdBy)
	return &b, nil
}

// isUniqueViolation matches Postgres SQLSTATE 23505.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
