package account

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/paytos/paytos/internal/custody"
)

const (
	// lockThreshold is the failed-PIN count that permanently locks an account.
	lockThreshold = 5

	// sentinelPIN protects auto-provisioned recipients until they REGISTER.
	// It is publicly known, which is why unverified accounts cannot spend.
	sentinelPIN = "000000"
)

var (
	// ErrLocked indicates the account is permanently locked. There is no
	// unlock path.
	ErrLocked = errors.New("account is locked")
	// ErrInvalidPIN indicates a PIN mismatch.
	ErrInvalidPIN = errors.New("invalid PIN")
	// ErrUnverified indicates the account still carries the provisioning
	// sentinel PIN and may not move funds out.
	ErrUnverified = errors.New("account is not verified")
)

// Service manages account lifecycle, key custody and PIN policy.
type Service struct {
	repo   Repository
	vault  *custody.Vault
	logger *slog.Logger
}

// NewService builds an account service.
func NewService(repo Repository, vault *custody.Vault, logger *slog.Logger) *Service {
	return &Service{repo: repo, vault: vault, logger: logger}
}

// Register creates a wallet for a new phone number, or resets the PIN and
// marks the account verified when one already exists (including accounts
// auto-provisioned as transfer recipients).
func (s *Service) Register(ctx context.Context, phone, pin string) (Account, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return Account{}, err
	}

	existing, err := s.repo.FindByPhone(ctx, phone)
	switch {
	case err == nil:
		if existing.Locked {
			return Account{}, ErrLocked
		}
		existing.PINHash = hash
		existing.Verified = true
		existing.FailedAttempts = 0
		if err := s.repo.Save(ctx, existing); err != nil {
			return Account{}, err
		}
		s.logger.Info("account re-registered", "phone", phone)
		return existing, nil
	case errors.Is(err, ErrNotFound):
		acct, err := s.provision(ctx, phone, hash, true)
		if err != nil {
			return Account{}, err
		}
		s.logger.Info("account created", "phone", phone, "address", acct.Address)
		return acct, nil
	default:
		return Account{}, err
	}
}

// Provision creates an unverified account for a transfer recipient that has
// never registered. The sentinel PIN must be replaced via REGISTER before the
// account can spend.
func (s *Service) Provision(ctx context.Context, phone string) (Account, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(sentinelPIN), bcrypt.DefaultCost)
	if err != nil {
		return Account{}, err
	}
	acct, err := s.provision(ctx, phone, hash, false)
	if err != nil {
		return Account{}, err
	}
	s.logger.Info("recipient auto-provisioned", "phone", phone, "address", acct.Address)
	return acct, nil
}

func (s *Service) provision(ctx context.Context, phone string, pinHash []byte, verified bool) (Account, error) {
	encrypted, address, err := s.vault.Create()
	if err != nil {
		return Account{}, err
	}
	now := time.Now().UTC()
	acct := Account{
		Phone:        phone,
		EncryptedKey: encrypted,
		Address:      address,
		PINHash:      pinHash,
		Verified:     verified,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, acct); err != nil {
		return Account{}, err
	}
	return acct, nil
}

// VerifyPIN authenticates a phone number against its stored PIN hash. A
// mismatch increments the failed-attempt counter and locks the account for
// good at the threshold; a match resets the counter. Locked accounts fail
// regardless of the PIN supplied.
func (s *Service) VerifyPIN(ctx context.Context, phone, pin string) (Account, error) {
	acct, err := s.repo.FindByPhone(ctx, phone)
	if err != nil {
		return Account{}, err
	}
	if acct.Locked {
		return Account{}, ErrLocked
	}

	if err := bcrypt.CompareHashAndPassword(acct.PINHash, []byte(pin)); err != nil {
		acct.FailedAttempts++
		if acct.FailedAttempts >= lockThreshold {
			acct.Locked = true
			s.logger.Warn("account locked after failed PIN attempts", "phone", phone, "attempts", acct.FailedAttempts)
		}
		if saveErr := s.repo.Save(ctx, acct); saveErr != nil {
			return Account{}, saveErr
		}
		return Account{}, ErrInvalidPIN
	}

	acct.FailedAttempts = 0
	if err := s.repo.Save(ctx, acct); err != nil {
		return Account{}, err
	}
	return acct, nil
}

// Get fetches an account by phone number.
func (s *Service) Get(ctx context.Context, phone string) (Account, error) {
	return s.repo.FindByPhone(ctx, phone)
}
