package account

import (
	"context"
	"errors"
	"testing"

	"github.com/paytos/paytos/internal/custody"
	"github.com/paytos/paytos/internal/logging"
)

const vaultKeyHex = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func newTestService(t *testing.T) *Service {
	t.Helper()
	vault, err := custody.NewVault(vaultKeyHex)
	if err != nil {
		t.Fatalf("new vault: %v", err)
	}
	return NewService(NewMemoryRepository(), vault, logging.Discard())
}

func TestRegisterCreatesWallet(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	acct, err := svc.Register(ctx, "+12345678901", "1234")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if acct.Address == "" || len(acct.EncryptedKey) == 0 {
		t.Fatalf("expected wallet material, got %+v", acct)
	}
	if !acct.Verified {
		t.Fatalf("expected registered account to be verified")
	}

	if _, err := svc.VerifyPIN(ctx, "+12345678901", "1234"); err != nil {
		t.Fatalf("verify pin: %v", err)
	}
}

func TestRegisterExistingResetsPIN(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	first, err := svc.Register(ctx, "+12345678901", "1234")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	second, err := svc.Register(ctx, "+12345678901", "5678")
	if err != nil {
		t.Fatalf("re-register: %v", err)
	}

	if second.Address != first.Address {
		t.Fatalf("re-registration must not change the wallet address")
	}
	if _, err := svc.VerifyPIN(ctx, "+12345678901", "5678"); err != nil {
		t.Fatalf("verify new pin: %v", err)
	}
}

func TestProvisionIsUnverified(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	acct, err := svc.Provision(ctx, "+19999999999")
	if err != nil {
		t.Fatalf("provision: %v", err)
	}
	if acct.Verified {
		t.Fatalf("auto-provisioned account must not be verified")
	}

	// The sentinel PIN authenticates but registration later replaces it.
	if _, err := svc.VerifyPIN(ctx, "+19999999999", "000000"); err != nil {
		t.Fatalf("verify sentinel pin: %v", err)
	}

	registered, err := svc.Register(ctx, "+19999999999", "4321")
	if err != nil {
		t.Fatalf("register provisioned account: %v", err)
	}
	if !registered.Verified {
		t.Fatalf("expected account verified after registration")
	}
	if registered.Address != acct.Address {
		t.Fatalf("registration must keep the provisioned wallet address")
	}
	if _, err := svc.VerifyPIN(ctx, "+19999999999", "000000"); !errors.Is(err, ErrInvalidPIN) {
		t.Fatalf("sentinel pin must stop working after registration, got %v", err)
	}
}

func TestVerifyPINMismatchCountsAndLocks(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "+12345678901", "1234"); err != nil {
		t.Fatalf("register: %v", err)
	}

	for i := 0; i < 5; i++ {
		if _, err := svc.VerifyPIN(ctx, "+12345678901", "0000"); !errors.Is(err, ErrInvalidPIN) {
			t.Fatalf("attempt %d: expected ErrInvalidPIN, got %v", i+1, err)
		}
	}

	// The sixth attempt with the correct PIN still fails: the lock is one-way.
	if _, err := svc.VerifyPIN(ctx, "+12345678901", "1234"); !errors.Is(err, ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
}

func TestVerifyPINSuccessResetsCounter(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "+12345678901", "1234"); err != nil {
		t.Fatalf("register: %v", err)
	}

	for i := 0; i < 4; i++ {
		if _, err := svc.VerifyPIN(ctx, "+12345678901", "0000"); !errors.Is(err, ErrInvalidPIN) {
			t.Fatalf("expected ErrInvalidPIN, got %v", err)
		}
	}
	if _, err := svc.VerifyPIN(ctx, "+12345678901", "1234"); err != nil {
		t.Fatalf("verify correct pin: %v", err)
	}

	acct, err := svc.Get(ctx, "+12345678901")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if acct.FailedAttempts != 0 {
		t.Fatalf("expected counter reset, got %d", acct.FailedAttempts)
	}
	if acct.Locked {
		t.Fatalf("account must not be locked after a successful verification")
	}
}

func TestVerifyPINUnknownAccount(t *testing.T) {
	svc := newTestService(t)
	if _, err := svc.VerifyPIN(context.Background(), "+10000000000", "1234"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
