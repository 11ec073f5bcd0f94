package account

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/paytos/paytos/internal/asset"
)

// PostgresRepository stores accounts in PostgreSQL. Balances are persisted
// as a JSONB symbol-to-amount document.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts an account record.
func (r *PostgresRepository) Create(ctx context.Context, acct Account) error {
	balances, err := marshalBalances(acct.Balances)
	if err != nil {
		return err
	}
	tag, err := r.db.Exec(ctx, `INSERT INTO accounts
        (phone, encrypted_key, address, pin_hash, failed_attempts, locked, balances, verified, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
        ON CONFLICT (phone) DO NOTHING`,
		acct.Phone, acct.EncryptedKey, acct.Address, acct.PINHash, acct.FailedAttempts,
		acct.Locked, balances, acct.Verified, acct.CreatedAt.UTC(), acct.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrExists
	}
	return nil
}

// FindByPhone fetches an account by phone number.
func (r *PostgresRepository) FindByPhone(ctx context.Context, phone string) (Account, error) {
	row := r.db.QueryRow(ctx, `SELECT phone, encrypted_key, address, pin_hash, failed_attempts, locked, balances, verified, created_at, updated_at
        FROM accounts WHERE phone = $1`, phone)

	var acct Account
	var balances []byte
	err := row.Scan(&acct.Phone, &acct.EncryptedKey, &acct.Address, &acct.PINHash,
		&acct.FailedAttempts, &acct.Locked, &balances, &acct.Verified, &acct.CreatedAt, &acct.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, ErrNotFound
	}
	if err != nil {
		return Account{}, fmt.Errorf("scan account: %w", err)
	}
	if acct.Balances, err = unmarshalBalances(balances); err != nil {
		return Account{}, err
	}
	return acct, nil
}

// Save updates an existing account record.
func (r *PostgresRepository) Save(ctx context.Context, acct Account) error {
	balances, err := marshalBalances(acct.Balances)
	if err != nil {
		return err
	}
	tag, err := r.db.Exec(ctx, `UPDATE accounts SET
        encrypted_key = $2, address = $3, pin_hash = $4, failed_attempts = $5,
        locked = $6, balances = $7, verified = $8, updated_at = $9
        WHERE phone = $1`,
		acct.Phone, acct.EncryptedKey, acct.Address, acct.PINHash, acct.FailedAttempts,
		acct.Locked, balances, acct.Verified, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func marshalBalances(balances map[asset.Symbol]decimal.Decimal) ([]byte, error) {
	if balances == nil {
		balances = map[asset.Symbol]decimal.Decimal{}
	}
	buf, err := json.Marshal(balances)
	if err != nil {
		return nil, fmt.Errorf("marshal balances: %w", err)
	}
	return buf, nil
}

func unmarshalBalances(buf []byte) (map[asset.Symbol]decimal.Decimal, error) {
	balances := map[asset.Symbol]decimal.Decimal{}
	if len(buf) == 0 {
		return balances, nil
	}
	if err := json.Unmarshal(buf, &balances); err != nil {
		return nil, fmt.Errorf("unmarshal balances: %w", err)
	}
	return balances, nil
}
