package chain

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Signature is a recoverable secp256k1 signature. V is 27 or 28.
type Signature struct {
	R [32]byte
	S [32]byte
	V byte
}

// SignatureFromBytes parses a 65-byte [r || s || v] signature. v may be 0/1 or 27/28.
func SignatureFromBytes(sig []byte) (*Signature, error) {
	if len(sig) != crypto.SignatureLength {
		return nil, fmt.Errorf("invalid signature length: %d", len(sig))
	}
	s := &Signature{V: sig[64]}
	copy(s.R[:], sig[:32])
	copy(s.S[:], sig[32:64])
	if s.V < 27 {
		s.V += 27
	}
	if s.V != 27 && s.V != 28 {
		return nil, fmt.Errorf("invalid signature recovery id: %d", sig[64])
	}
	return s, nil
}

// SignatureFromCompact parses an EIP-2098 compact signature, where the top bit of s
// carries the y parity.
func SignatureFromCompact(compact [64]byte) *Signature {
	s := &Signature{V: 27 + compact[32]>>7}
	copy(s.R[:], compact[:32])
	copy(s.S[:], compact[32:])
	s.S[0] &= 0x7f
	return s
}

// Bytes returns the 65-byte [r || s || v] form with v as 27 or 28.
func (s *Signature) Bytes() []byte {
	out := make([]byte, 0, crypto.SignatureLength)
	out = append(out, s.R[:]...)
	out = append(out, s.S[:]...)
	return append(out, s.V)
}

// Compact returns the EIP-2098 form.
func (s *Signature) Compact() [64]byte {
	var out [64]byte
	copy(out[:32], s.R[:])
	copy(out[32:], s.S[:])
	if s.V == 28 {
		out[32] |= 0x80
	}
	return out
}

// Recover returns the address that produced s over digest.
func (s *Signature) Recover(digest common.Hash) (common.Address, error) {
	raw := s.Bytes()
	raw[64] -= 27
	pub, err := crypto.SigToPub(digest.Bytes(), raw)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to recover signer: %w", err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}
