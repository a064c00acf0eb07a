package chain

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Signer produces recoverable signatures for one account. Implementations may be
// remote, so every call takes a context.
type Signer interface {
	Address() common.Address
	// SignHash signs a 32-byte digest such as an EIP-712 hash.
	SignHash(ctx context.Context, digest common.Hash) (*Signature, error)
	// SignMessage signs msg with the EIP-191 personal message prefix.
	SignMessage(ctx context.Context, msg []byte) (*Signature, error)
}

// KeySigner signs with an in-memory private key.
type KeySigner struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

// NewKeySigner wraps a private key.
func NewKeySigner(key *ecdsa.PrivateKey) *KeySigner {
	return &KeySigner{key: key, address: crypto.PubkeyToAddress(key.PublicKey)}
}

// NewKeySignerFromHex parses a hex private key, with or without 0x prefix.
func NewKeySignerFromHex(privateKeyHex string) (*KeySigner, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return NewKeySigner(key), nil
}

func (s *KeySigner) Address() common.Address {
	return s.address
}

func (s *KeySigner) SignHash(ctx context.Context, digest common.Hash) (*Signature, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sig, err := crypto.Sign(digest.Bytes(), s.key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign digest: %w", err)
	}
	return SignatureFromBytes(sig)
}

func (s *KeySigner) SignMessage(ctx context.Context, msg []byte) (*Signature, error) {
	return s.SignHash(ctx, common.BytesToHash(accounts.TextHash(msg)))
}

// RecoverMessageSigner returns the address that signed msg with SignMessage.
func RecoverMessageSigner(msg []byte, sig *Signature) (common.Address, error) {
	return sig.Recover(common.BytesToHash(accounts.TextHash(msg)))
}
