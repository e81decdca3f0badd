package ledger

import (
	"context"
	"encoding/binary"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// InMemory is a concurrency-safe stand-in for the contract used in
// development and tests. Records are append-only per learner.
type InMemory struct {
	mu      sync.RWMutex
	records map[common.Address][]Credential
	issuer  common.Address
	height  uint64
	now     func() time.Time
}

// NewInMemory creates an empty ledger whose writes are attributed to issuer.
func NewInMemory(issuer common.Address) *InMemory {
	return &InMemory{
		records: make(map[common.Address][]Credential),
		issuer:  issuer,
		now:     time.Now,
	}
}

// GetCredentials returns the learner's records in insertion order.
func (l *InMemory) GetCredentials(ctx context.Context, learner common.Address) ([]Credential, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	stored := l.records[learner]
	out := make([]Credential, len(stored))
	for i, c := range stored {
		out[i] = c
		if c.Timestamp != nil {
			out[i].Timestamp = new(big.Int).Set(c.Timestamp)
		}
	}
	return out, nil
}

// IssueCredential appends a record and returns a synthetic transaction hash.
func (l *InMemory) IssueCredential(ctx context.Context, learner common.Address, certHash string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.height++
	l.records[learner] = append(l.records[learner], Credential{
		CertHash:  certHash,
		Timestamp: big.NewInt(l.now().Unix()),
		Issuer:    l.issuer,
	})

	var nonce [8]byte
	binary.BigEndian.PutUint64(nonce[:], l.height)
	return crypto.Keccak256Hash(learner.Bytes(), []byte(certHash), nonce[:]).Hex(), nil
}

// BlockNumber counts writes, one block per issuance.
func (l *InMemory) BlockNumber(ctx context.Context) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.height, nil
}
