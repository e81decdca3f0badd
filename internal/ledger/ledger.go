// Package ledger talks to the credential smart contract. The contract is the
// sole owner of credential records; this package only reads them and, when a
// signer is configured, submits issuance transactions.
package ledger

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

var (
	// ErrNoContract indicates the configured address holds no contract code.
	ErrNoContract = errors.New("no contract code at address")

	// ErrReadOnly is returned by IssueCredential when no signer was configured.
	ErrReadOnly = errors.New("ledger client has no signer")
)

// Credential mirrors one Certificate.Credential tuple returned by
// getCredentials. Field order matches the ABI tuple.
type Credential struct {
	CertHash  string
	Timestamp *big.Int
	Issuer    common.Address
}

// Prober reports the chain head, used for liveness.
type Prober interface {
	BlockNumber(ctx context.Context) (uint64, error)
}
