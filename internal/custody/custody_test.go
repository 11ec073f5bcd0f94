package custody

import (
	"bytes"
	"errors"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/core/types"
)

const testKeyHex = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func newTestVault(t *testing.T) *Vault {
	t.Helper()
	v, err := NewVault(testKeyHex)
	if err != nil {
		t.Fatalf("new vault: %v", err)
	}
	return v
}

func TestNewVaultRejectsBadKeys(t *testing.T) {
	if _, err := NewVault("not-hex"); err == nil {
		t.Fatalf("expected error for non-hex key")
	}
	if _, err := NewVault("abcd"); err == nil {
		t.Fatalf("expected error for short key")
	}
}

func TestCreateAndOpenRoundTrip(t *testing.T) {
	v := newTestVault(t)

	encrypted, address, err := v.Create()
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !strings.HasPrefix(address, "0x") || len(address) != 42 {
		t.Fatalf("unexpected address %q", address)
	}

	signer, err := v.Open(encrypted)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if signer.Address().Hex() != address {
		t.Fatalf("address changed after open: %s vs %s", signer.Address().Hex(), address)
	}
}

func TestCreateProducesDistinctWallets(t *testing.T) {
	v := newTestVault(t)

	encA, addrA, err := v.Create()
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	encB, addrB, err := v.Create()
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if addrA == addrB {
		t.Fatalf("two wallets derived the same address")
	}
	if bytes.Equal(encA, encB) {
		t.Fatalf("two wallets sealed to identical ciphertext")
	}
}

func TestOpenWrongKeyFails(t *testing.T) {
	v := newTestVault(t)
	encrypted, _, err := v.Create()
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	other, err := NewVault("ffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff")
	if err != nil {
		t.Fatalf("new vault: %v", err)
	}
	if _, err := other.Open(encrypted); !errors.Is(err, ErrDecrypt) {
		t.Fatalf("expected ErrDecrypt, got %v", err)
	}
}

func TestOpenTamperedCiphertextFails(t *testing.T) {
	v := newTestVault(t)
	encrypted, _, err := v.Create()
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	encrypted[len(encrypted)-1] ^= 0xff

	if _, err := v.Open(encrypted); !errors.Is(err, ErrDecrypt) {
		t.Fatalf("expected ErrDecrypt, got %v", err)
	}
}

func TestOpenTruncatedCiphertextFails(t *testing.T) {
	v := newTestVault(t)
	if _, err := v.Open([]byte{0x01, 0x02}); !errors.Is(err, ErrDecrypt) {
		t.Fatalf("expected ErrDecrypt, got %v", err)
	}
}

func TestSignerSignsTransactions(t *testing.T) {
	v := newTestVault(t)
	encrypted, _, err := v.Create()
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	signer, err := v.Open(encrypted)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	to := signer.Address()
	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   big.NewInt(11155111),
		Nonce:     0,
		GasTipCap: big.NewInt(1),
		GasFeeCap: big.NewInt(2),
		Gas:       21000,
		To:        &to,
		Value:     big.NewInt(1),
	})
	signed, err := signer.SignTx(big.NewInt(11155111), tx)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	sender, err := types.Sender(types.LatestSignerForChainID(big.NewInt(11155111)), signed)
	if err != nil {
		t.Fatalf("recover sender: %v", err)
	}
	if sender != signer.Address() {
		t.Fatalf("recovered sender %s, expected %s", sender.Hex(), signer.Address().Hex())
	}
}
