package valoremrfq

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/spruceid/siwe-go"
)

// DefaultSIWEStatement is the statement the trade API expects makers and takers to sign.
const DefaultSIWEStatement = "I accept the Valorem Terms of Service at https://app.valorem.xyz/tos and Privacy Policy at https://app.valorem.xyz/privacy"

// SIWEMessage holds the fields of an EIP-4361 sign-in message.
type SIWEMessage struct {
	Domain    string
	Address   common.Address
	Statement string
	URI       string
	ChainID   int64
	Nonce     string
	IssuedAt  time.Time
}

// Message builds the EIP-4361 message. Its String form is what gets signed.
func (m *SIWEMessage) Message() (*siwe.Message, error) {
	options := map[string]interface{}{
		"chainId":  int(m.ChainID),
		"issuedAt": m.IssuedAt.UTC().Format(time.RFC3339),
	}
	if m.Statement != "" {
		options["statement"] = m.Statement
	}
	msg, err := siwe.InitMessage(m.Domain, m.Address.Hex(), m.URI, m.Nonce, options)
	if err != nil {
		return nil, errors.Wrap(err, "siwe")
	}
	return msg, nil
}
