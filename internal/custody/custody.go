package custody

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"github.com/ethereum/go-ethereum/crypto"
)

// ErrDecrypt indicates stored key material could not be recovered. The
// enclosing operation cannot sign and must fail.
var ErrDecrypt = errors.New("wallet decryption failed")

// Vault generates custodial wallets and guards their private keys with a
// process-wide AES-256-GCM key. Plaintext key material never leaves a call.
type Vault struct {
	key []byte
}

// NewVault builds a vault from a hex-encoded 32-byte symmetric key.
func NewVault(hexKey string) (*Vault, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("decode encryption key: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("encryption key must be 32 bytes, got %d", len(key))
	}
	return &Vault{key: key}, nil
}

// Create generates a fresh key pair and returns the sealed private key along
// with the derived address. The address is the account's permanent identity
// for chain lookups.
func (v *Vault) Create() (encrypted []byte, address string, err error) {
	pk, err := crypto.GenerateKey()
	if err != nil {
		return nil, "", fmt.Errorf("generate key: %w", err)
	}
	raw := crypto.FromECDSA(pk)
	defer zero(raw)

	encrypted, err = v.seal(raw)
	if err != nil {
		return nil, "", err
	}
	address = crypto.PubkeyToAddress(pk.PublicKey).Hex()
	return encrypted, address, nil
}

// Open recovers the private key behind a sealed secret and binds it to a
// Signer. The signer holds decrypted material only for the caller's use; it
// is never cached by the vault.
func (v *Vault) Open(encrypted []byte) (*Signer, error) {
	raw, err := v.open(encrypted)
	if err != nil {
		return nil, err
	}
	defer zero(raw)

	pk, err := crypto.ToECDSA(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	return newSigner(pk), nil
}

func (v *Vault) seal(plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(v.key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("init gcm: %w", err)
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func (v *Vault) open(sealed []byte) ([]byte, error) {
	block, err := aes.NewCipher(v.key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("init gcm: %w", err)
	}
	if len(sealed) < gcm.NonceSize() {
		return nil, fmt.Errorf("%w: ciphertext too short", ErrDecrypt)
	}
	nonce, ciphertext := sealed[:gcm.NonceSize()], sealed[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	return plaintext, nil
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
