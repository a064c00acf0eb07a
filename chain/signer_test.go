package chain

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSigner(t *testing.T) *KeySigner {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return NewKeySigner(key)
}

func TestKeySigner_SignHashRecovers(t *testing.T) {
	signer := newTestSigner(t)
	digest := crypto.Keccak256Hash([]byte("order"))

	sig, err := signer.SignHash(context.Background(), digest)
	require.NoError(t, err)
	assert.Contains(t, []byte{27, 28}, sig.V)

	got, err := sig.Recover(digest)
	require.NoError(t, err)
	assert.Equal(t, signer.Address(), got)

	other, err := sig.Recover(crypto.Keccak256Hash([]byte("other")))
	require.NoError(t, err)
	assert.NotEqual(t, signer.Address(), other)
}

func TestKeySigner_SignMessage(t *testing.T) {
	signer := newTestSigner(t)
	msg := []byte("example.com wants you to sign in")

	sig, err := signer.SignMessage(context.Background(), msg)
	require.NoError(t, err)

	got, err := RecoverMessageSigner(msg, sig)
	require.NoError(t, err)
	assert.Equal(t, signer.Address(), got)
}

func TestKeySigner_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestSigner(t).SignHash(ctx, common.Hash{1})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSignature_Forms(t *testing.T) {
	signer := newTestSigner(t)
	digest := crypto.Keccak256Hash([]byte("compact"))

	for i := 0; i < 8; i++ {
		digest = crypto.Keccak256Hash(digest.Bytes())
		sig, err := signer.SignHash(context.Background(), digest)
		require.NoError(t, err)

		assert.Equal(t, sig, SignatureFromCompact(sig.Compact()))

		parsed, err := SignatureFromBytes(sig.Bytes())
		require.NoError(t, err)
		assert.Equal(t, sig, parsed)
	}

	_, err := SignatureFromBytes(make([]byte, 64))
	assert.Error(t, err)

	raw := make([]byte, 65)
	raw[64] = 5
	_, err = SignatureFromBytes(raw)
	assert.Error(t, err)
}
