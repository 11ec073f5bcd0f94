package custody

import (
	"crypto/ecdsa"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// Signer signs transactions with a decrypted wallet key.
type Signer struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
}

func newSigner(pk *ecdsa.PrivateKey) *Signer {
	return &Signer{privateKey: pk, address: crypto.PubkeyToAddress(pk.PublicKey)}
}

// Address returns the wallet address bound to this signer.
func (s *Signer) Address() common.Address {
	return s.address
}

// SignTx signs the transaction for the given chain.
func (s *Signer) SignTx(chainID *big.Int, tx *types.Transaction) (*types.Transaction, error) {
	if s == nil || s.privateKey == nil {
		return nil, errors.New("signer is not initialized")
	}
	return types.SignTx(tx, types.LatestSignerForChainID(chainID), s.privateKey)
}
