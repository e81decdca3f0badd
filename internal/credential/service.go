package credential

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/singleflight"

	"github.com/certledger/certledger/internal/apperr"
	"github.com/certledger/certledger/internal/metrics"
	"github.com/certledger/certledger/internal/notification"
)

const (
	defaultLedgerTimeout = 10 * time.Second
	cacheOpTimeout       = 2 * time.Second
)

// Service reads credential sets from the ledger and, when a writer is
// configured, submits issuance transactions.
type Service struct {
	ledger   Ledger
	writer   Writer
	cache    Cache
	notifier notification.Notifier
	metrics  *metrics.Metrics
	logger   *slog.Logger
	timeout  time.Duration

	group singleflight.Group

	// inflight tracks ledger reads per address so a read that started before
	// an issuance never repopulates the cache after it. Entries live only
	// while a read is running.
	mu       sync.Mutex
	inflight map[string]*inflightRead
}

type inflightRead struct {
	readers int
	writes  uint64
}

// Option configures a Service.
type Option func(*Service)

// WithWriter enables Issue.
func WithWriter(w Writer) Option {
	return func(s *Service) { s.writer = w }
}

// WithCache enables read-through caching of non-empty sets.
func WithCache(c Cache) Option {
	return func(s *Service) { s.cache = c }
}

// WithTimeout bounds every ledger call.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithNotifier(n notification.Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// NewService builds a credential service over the given ledger reader.
func NewService(l Ledger, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		ledger:   l,
		logger:   logger,
		timeout:  defaultLedgerTimeout,
		inflight: make(map[string]*inflightRead),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IssuingEnabled reports whether a writer is configured.
func (s *Service) IssuingEnabled() bool {
	return s.writer != nil
}

// GetCredentials returns the full set for address in ledger order. An empty
// set is reported as a NotFound error; ledger failures as Upstream errors
// whose message is safe to show to clients.
func (s *Service) GetCredentials(ctx context.Context, address string) (Set, error) {
	learner, err := ParseAddress(address)
	if err != nil {
		s.metrics.VerifyOutcome(metrics.OutcomeInvalid)
		return nil, err
	}
	key := strings.ToLower(address)

	if set, ok := s.cached(ctx, key); ok {
		s.metrics.VerifyOutcome(metrics.OutcomeFound)
		return set, nil
	}

	// Concurrent misses for one address share a single ledger call, bounded
	// by the first caller's context.
	v, err, _ := s.group.Do(key, func() (any, error) {
		return s.read(ctx, key, learner)
	})
	if err != nil {
		s.metrics.VerifyOutcome(metrics.OutcomeUpstreamError)
		return nil, err
	}
	set := v.(Set)
	if len(set) == 0 {
		s.metrics.VerifyOutcome(metrics.OutcomeNotFound)
		return nil, apperr.NotFound(MsgNotFound)
	}
	s.metrics.VerifyOutcome(metrics.OutcomeFound)
	return append(Set(nil), set...), nil
}

func (s *Service) read(ctx context.Context, key string, learner common.Address) (Set, error) {
	guard, writes := s.beginRead(key)
	defer s.endRead(key, guard)

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	started := time.Now()
	rows, err := s.ledger.GetCredentials(callCtx, learner)
	var set Set
	if err == nil {
		set, err = fromLedger(rows)
	}
	s.metrics.ObserveLedgerCall("getCredentials", started, err)
	if err != nil {
		s.logger.ErrorContext(ctx, "ledger read failed",
			slog.String("address", learner.Hex()),
			slog.Duration("duration", time.Since(started)),
			slog.Duration("timeout", s.timeout),
			slog.Any("error", err),
		)
		return nil, apperr.Upstream(err, MsgVerifyFailed)
	}
	s.logger.DebugContext(ctx, "ledger read",
		slog.String("address", learner.Hex()),
		slog.Int("records", len(set)),
		slog.Duration("duration", time.Since(started)),
	)

	if len(set) > 0 && s.unchangedSince(guard, writes) {
		s.store(key, set)
	}
	return set, nil
}

// Issuance describes an accepted issuance transaction.
type Issuance struct {
	TxHash   string
	Learner  string
	CertHash string
}

// Issue records certHash for address on the ledger. The digest is
// lowercased before submission so later comparisons stay exact.
func (s *Service) Issue(ctx context.Context, address, certHash string) (Issuance, error) {
	if s.writer == nil {
		return Issuance{}, apperr.New(apperr.CodeUnavailable, MsgIssueDisabled)
	}
	learner, err := ParseAddress(address)
	if err != nil {
		return Issuance{}, err
	}
	hash, err := NormalizeDigest(certHash)
	if err != nil {
		return Issuance{}, err
	}
	key := strings.ToLower(address)

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	started := time.Now()
	tx, err := s.writer.IssueCredential(callCtx, learner, hash)
	s.metrics.ObserveLedgerCall("issueCredential", started, err)
	if err != nil {
		s.logger.ErrorContext(ctx, "ledger issuance failed",
			slog.String("address", learner.Hex()),
			slog.String("cert_hash", hash),
			slog.Duration("duration", time.Since(started)),
			slog.Any("error", err),
		)
		return Issuance{}, apperr.Upstream(err, MsgIssueFailed)
	}

	s.recordWrite(key)
	s.group.Forget(key)
	s.invalidate(key)
	s.metrics.CredentialIssued()

	issued := Issuance{TxHash: tx, Learner: learner.Hex(), CertHash: hash}
	if s.notifier != nil {
		msg := notification.Message{
			Kind:        notification.KindCredentialIssued,
			Destination: issued.Learner,
			Body:        issued.CertHash,
			Reference:   issued.TxHash,
		}
		if err := s.notifier.Send(ctx, msg); err != nil {
			s.logger.WarnContext(ctx, "issuance notification failed", slog.Any("error", err))
		}
	}
	return issued, nil
}

func (s *Service) cached(ctx context.Context, key string) (Set, bool) {
	if s.cache == nil {
		return nil, false
	}
	set, ok, err := s.cache.Get(ctx, key)
	switch {
	case err != nil:
		s.metrics.CacheLookup(metrics.CacheError)
		s.logger.WarnContext(ctx, "credential cache lookup failed", slog.String("address", key), slog.Any("error", err))
		return nil, false
	case !ok || len(set) == 0:
		s.metrics.CacheLookup(metrics.CacheMiss)
		return nil, false
	default:
		s.metrics.CacheLookup(metrics.CacheHit)
		return set, true
	}
}

func (s *Service) store(key string, set Set) {
	if s.cache == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), cacheOpTimeout)
	defer cancel()
	if err := s.cache.Put(ctx, key, set); err != nil {
		s.logger.Warn("credential cache store failed", slog.String("address", key), slog.Any("error", err))
	}
}

func (s *Service) invalidate(key string) {
	if s.cache == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), cacheOpTimeout)
	defer cancel()
	if err := s.cache.Invalidate(ctx, key); err != nil {
		s.logger.Error("credential cache invalidation failed", slog.String("address", key), slog.Any("error", err))
	}
}

func (s *Service) beginRead(key string) (*inflightRead, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g := s.inflight[key]
	if g == nil {
		g = &inflightRead{}
		s.inflight[key] = g
	}
	g.readers++
	return g, g.writes
}

func (s *Service) endRead(key string, g *inflightRead) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if g.readers--; g.readers == 0 {
		delete(s.inflight, key)
	}
}

func (s *Service) unchangedSince(g *inflightRead, writes uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return g.writes == writes
}

// recordWrite marks running reads of key as stale. With none running there
// is nothing to track.
func (s *Service) recordWrite(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if g := s.inflight[key]; g != nil {
		g.writes++
	}
}
