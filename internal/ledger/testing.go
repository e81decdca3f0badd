package ledger

import "github.com/ethereum/go-ethereum/common"

// SeedCredentials is a test helper that appends raw tuples for learner,
// bypassing timestamp and issuer assignment.
func SeedCredentials(mem *InMemory, learner common.Address, creds ...Credential) {
	mem.mu.Lock()
	defer mem.mu.Unlock()
	mem.records[learner] = append(mem.records[learner], creds...)
}
