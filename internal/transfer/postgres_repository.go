package transfer

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/paytos/paytos/internal/asset"
)

// PostgresRepository stores transactions in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a transaction record.
func (r *PostgresRepository) Create(ctx context.Context, tx Transaction) error {
	id, err := uuid.Parse(tx.ID)
	if err != nil {
		return fmt.Errorf("parse transaction id: %w", err)
	}
	_, err = r.db.Exec(ctx, `INSERT INTO transactions
        (id, sender_phone, recipient_phone, sender_address, recipient_address, amount, asset, status, signature, error, created_at, completed_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		id, tx.SenderPhone, tx.RecipientPhone, tx.SenderAddress, tx.RecipientAddr,
		tx.Amount, string(tx.Asset), string(tx.Status), tx.Signature, tx.Error,
		tx.CreatedAt.UTC(), tx.CompletedAt)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// Get fetches a transaction by identifier.
func (r *PostgresRepository) Get(ctx context.Context, id string) (Transaction, error) {
	txID, err := uuid.Parse(id)
	if err != nil {
		return Transaction{}, fmt.Errorf("parse transaction id: %w", err)
	}
	row := r.db.QueryRow(ctx, `SELECT id, sender_phone, recipient_phone, sender_address, recipient_address, amount, asset, status, signature, error, created_at, completed_at
        FROM transactions WHERE id = $1`, txID)
	return scanTransaction(row)
}

// Save updates a transaction, refusing to overwrite a terminal status. The
// guard lives in the WHERE clause so concurrent writers cannot race a
// read-check-write cycle.
func (r *PostgresRepository) Save(ctx context.Context, tx Transaction) error {
	id, err := uuid.Parse(tx.ID)
	if err != nil {
		return fmt.Errorf("parse transaction id: %w", err)
	}
	tag, err := r.db.Exec(ctx, `UPDATE transactions SET
        status = $2, signature = $3, error = $4, completed_at = $5
        WHERE id = $1 AND status = 'pending'`,
		id, string(tx.Status), tx.Signature, tx.Error, tx.CompletedAt)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTxNotFound
	}
	return nil
}

// ListPending returns all non-terminal transactions.
func (r *PostgresRepository) ListPending(ctx context.Context) ([]Transaction, error) {
	rows, err := r.db.Query(ctx, `SELECT id, sender_phone, recipient_phone, sender_address, recipient_address, amount, asset, status, signature, error, created_at, completed_at
        FROM transactions WHERE status = 'pending'`)
	if err != nil {
		return nil, fmt.Errorf("list pending transactions: %w", err)
	}
	defer rows.Close()

	var out []Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

func scanTransaction(row pgx.Row) (Transaction, error) {
	var tx Transaction
	var id uuid.UUID
	var assetName, status string
	err := row.Scan(&id, &tx.SenderPhone, &tx.RecipientPhone, &tx.SenderAddress, &tx.RecipientAddr,
		&tx.Amount, &assetName, &status, &tx.Signature, &tx.Error, &tx.CreatedAt, &tx.CompletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Transaction{}, ErrTxNotFound
	}
	if err != nil {
		return Transaction{}, fmt.Errorf("scan transaction: %w", err)
	}
	tx.ID = id.String()
	tx.Asset = asset.Symbol(assetName)
	tx.Status = Status(status)
	return tx, nil
}
