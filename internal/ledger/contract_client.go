package ledger

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/certledger/certledger/internal/ledger"

// Contract is a typed client for the credential contract over JSON-RPC.
type Contract struct {
	address common.Address
	abi     abi.ABI
	caller  bind.ContractCaller
	tracer  trace.Tracer

	// issuance is serialized so concurrent submissions do not race on the nonce.
	mu     sync.Mutex
	bound  *bind.BoundContract
	signer *bind.TransactOpts
}

// ContractOption configures a Contract.
type ContractOption func(*Contract)

// WithSigner enables IssueCredential using transactor to submit transactions
// signed by opts.
func WithSigner(transactor bind.ContractTransactor, opts *bind.TransactOpts) ContractOption {
	return func(c *Contract) {
		c.signer = opts
		c.bound = bind.NewBoundContract(c.address, c.abi, c.caller, transactor, nil)
	}
}

// WithTracer overrides the global tracer provider.
func WithTracer(t trace.Tracer) ContractOption {
	return func(c *Contract) {
		c.tracer = t
	}
}

// NewContract binds the contract at address. caller is usually an *ethclient.Client.
func NewContract(address common.Address, caller bind.ContractCaller, opts ...ContractOption) (*Contract, error) {
	parsed, err := ParsedABI()
	if err != nil {
		return nil, fmt.Errorf("parse contract abi: %w", err)
	}
	c := &Contract{address: address, abi: parsed, caller: caller}
	for _, opt := range opts {
		opt(c)
	}
	if c.tracer == nil {
		c.tracer = otel.Tracer(tracerName)
	}
	return c, nil
}

// GetCredentials performs a read-only eth_call of getCredentials(learner)
// against the latest block and decodes the tuple array.
func (c *Contract) GetCredentials(ctx context.Context, learner common.Address) (creds []Credential, err error) {
	ctx, span := c.tracer.Start(ctx, "ledger.getCredentials", trace.WithAttributes(
		attribute.String("ledger.contract", c.address.Hex()),
		attribute.String("ledger.learner", learner.Hex()),
	))
	defer func() { endSpan(span, err) }()

	input, err := c.abi.Pack(methodGetCredentials, learner)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", methodGetCredentials, err)
	}
	output, err := c.caller.CallContract(ctx, ethereum.CallMsg{To: &c.address, Data: input}, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", methodGetCredentials, err)
	}
	if len(output) == 0 {
		code, err := c.caller.CodeAt(ctx, c.address, nil)
		if err != nil {
			return nil, fmt.Errorf("code at %s: %w", c.address.Hex(), err)
		}
		if len(code) == 0 {
			return nil, fmt.Errorf("%s: %w", c.address.Hex(), ErrNoContract)
		}
		return nil, fmt.Errorf("call %s: empty return data", methodGetCredentials)
	}
	if err := c.abi.UnpackIntoInterface(&creds, methodGetCredentials, output); err != nil {
		return nil, fmt.Errorf("decode %s: %w", methodGetCredentials, err)
	}
	span.SetAttributes(attribute.Int("ledger.records", len(creds)))
	return creds, nil
}

// IssueCredential submits issueCredential(learner, certHash). It returns once
// the transaction is accepted by the node, not when it is mined.
func (c *Contract) IssueCredential(ctx context.Context, learner common.Address, certHash string) (txHash string, err error) {
	if c.bound == nil || c.signer == nil {
		return "", ErrReadOnly
	}
	ctx, span := c.tracer.Start(ctx, "ledger.issueCredential", trace.WithAttributes(
		attribute.String("ledger.contract", c.address.Hex()),
		attribute.String("ledger.learner", learner.Hex()),
	))
	defer func() { endSpan(span, err) }()

	c.mu.Lock()
	defer c.mu.Unlock()

	opts := *c.signer
	opts.Context = ctx
	tx, err := c.bound.Transact(&opts, methodIssueCredential, learner, certHash)
	if err != nil {
		return "", fmt.Errorf("transact %s: %w", methodIssueCredential, err)
	}
	span.SetAttributes(attribute.String("ledger.tx", tx.Hash().Hex()))
	return tx.Hash().Hex(), nil
}

// ChainIDReader is satisfied by *ethclient.Client.
type ChainIDReader interface {
	ChainID(ctx context.Context) (*big.Int, error)
}

// NewSigner builds transaction options from a hex private key. When chainID is
// zero it is read from the node.
func NewSigner(ctx context.Context, keyHex string, chainID int64, node ChainIDReader) (*bind.TransactOpts, common.Address, error) {
	key, err := crypto.HexToECDSA(keyHex)
	if err != nil {
		return nil, common.Address{}, fmt.Errorf("parse issuer private key: %w", err)
	}
	id := big.NewInt(chainID)
	if chainID == 0 {
		if id, err = node.ChainID(ctx); err != nil {
			return nil, common.Address{}, fmt.Errorf("read chain id: %w", err)
		}
	}
	opts, err := bind.NewKeyedTransactorWithChainID(key, id)
	if err != nil {
		return nil, common.Address{}, fmt.Errorf("build transactor: %w", err)
	}
	return opts, crypto.PubkeyToAddress(*key.Public().(*ecdsa.PublicKey)), nil
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
