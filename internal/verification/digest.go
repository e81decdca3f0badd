// Package verification hashes documents and matches digests against
// credential sets. Matching is pure; the only I/O is reading the document.
package verification

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/certledger/certledger/internal/credential"
)

// ErrMalformedDigest is returned by Match for a digest that is not 64 hex digits.
var ErrMalformedDigest = errors.New("malformed digest")

// Algorithm names the content digest used for issuance and verification.
const Algorithm = "sha256"

// Digest streams r through SHA-256 and returns the lowercase hex digest.
func Digest(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("hash document: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// DigestBytes hashes an in-memory document.
func DigestBytes(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// Result lists the positions in a set whose certHash equals Digest.
type Result struct {
	Digest  string `json:"digest"`
	Matches []int  `json:"matches"`
}

// Matched reports whether at least one record matched.
func (r Result) Matched() bool {
	return len(r.Matches) > 0
}

// Match compares digest against every record, case-insensitively, and
// returns all matching indices in set order. A set holding any record whose
// hash is not a digest is rejected before comparison.
func Match(set credential.Set, digest string) (Result, error) {
	want := strings.ToLower(digest)
	if !credential.IsDigest(want) {
		return Result{}, fmt.Errorf("%w: %q", ErrMalformedDigest, digest)
	}
	if err := set.Validate(); err != nil {
		return Result{}, err
	}
	res := Result{Digest: want, Matches: []int{}}
	for i, rec := range set {
		if strings.ToLower(rec.CertHash) == want {
			res.Matches = append(res.Matches, i)
		}
	}
	return res, nil
}
