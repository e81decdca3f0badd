package credential

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/certledger/certledger/internal/apperr"
	"github.com/certledger/certledger/internal/ledger"
)

// Client-facing messages.
const (
	MsgInvalidAddress = "Invalid wallet address."
	MsgInvalidHash    = "certHash must be a 64 character hex SHA-256 digest."
	MsgNotFound       = "No certificates found for this address."
	MsgVerifyFailed   = "Server error during verification."
	MsgIssueFailed    = "Server error during issuance."
	MsgIssueDisabled  = "Credential issuance is not enabled on this server."
)

// ErrMalformedRecord marks a record whose certHash is not a SHA-256 digest.
var ErrMalformedRecord = errors.New("malformed credential record")

var (
	addressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)
	digestPattern  = regexp.MustCompile(`^[0-9a-f]{64}$`)
)

// Record is one issuance event read from the ledger.
type Record struct {
	CertHash  string `json:"certHash"`
	Timestamp int64  `json:"timestamp"`
	Issuer    string `json:"issuer"`
}

// Set is the ordered sequence of records for one learner, oldest first, as
// the ledger returned it. Duplicates are kept.
type Set []Record

// Validate rejects the set if any record's certHash is not a digest.
// Case is ignored.
func (s Set) Validate() error {
	for i, rec := range s {
		if !IsDigest(strings.ToLower(rec.CertHash)) {
			return fmt.Errorf("%w: record %d certHash %q", ErrMalformedRecord, i, rec.CertHash)
		}
	}
	return nil
}

// ParseAddress accepts only 0x-prefixed 40 hex digit addresses. Checksums are
// not enforced.
func ParseAddress(s string) (common.Address, error) {
	if !addressPattern.MatchString(s) {
		return common.Address{}, apperr.Validation(MsgInvalidAddress)
	}
	return common.HexToAddress(s), nil
}

// NormalizeDigest lowercases h and checks it is a 256-bit hex digest.
func NormalizeDigest(h string) (string, error) {
	lower := strings.ToLower(h)
	if !digestPattern.MatchString(lower) {
		return "", apperr.Validation(MsgInvalidHash)
	}
	return lower, nil
}

// IsDigest reports whether h is already a normalized digest.
func IsDigest(h string) bool {
	return digestPattern.MatchString(h)
}

// fromLedger converts contract tuples into records. Any non-conforming tuple
// rejects the whole result.
func fromLedger(rows []ledger.Credential) (Set, error) {
	set := make(Set, 0, len(rows))
	for i, row := range rows {
		hash, err := NormalizeDigest(row.CertHash)
		if err != nil {
			return nil, fmt.Errorf("record %d: malformed certHash %q", i, row.CertHash)
		}
		if row.Timestamp == nil || !row.Timestamp.IsInt64() || row.Timestamp.Sign() < 0 {
			return nil, fmt.Errorf("record %d: timestamp out of range", i)
		}
		set = append(set, Record{
			CertHash:  hash,
			Timestamp: row.Timestamp.Int64(),
			Issuer:    row.Issuer.Hex(),
		})
	}
	return set, nil
}
