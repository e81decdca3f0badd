package credential

//go:generate mockgen -source=interfaces.go -destination=mocks/ledger_mock.go -package=mocks

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/certledger/certledger/internal/ledger"
)

// Ledger is the read side of the credential contract.
type Ledger interface {
	GetCredentials(ctx context.Context, learner common.Address) ([]ledger.Credential, error)
}

// Writer submits issuance transactions.
type Writer interface {
	IssueCredential(ctx context.Context, learner common.Address, certHash string) (string, error)
}
