package ledger

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const (
	methodGetCredentials  = "getCredentials"
	methodIssueCredential = "issueCredential"
)

// CertificateABI is the interface of the deployed multi-certificate contract.
const CertificateABI = `[
  {"inputs":[],"stateMutability":"nonpayable","type":"constructor"},
  {"anonymous":false,"inputs":[
    {"indexed":true,"internalType":"address","name":"learner","type":"address"},
    {"indexed":false,"internalType":"string","name":"certHash","type":"string"},
    {"indexed":false,"internalType":"uint256","name":"timestamp","type":"uint256"},
    {"indexed":true,"internalType":"address","name":"issuer","type":"address"}
  ],"name":"CredentialIssued","type":"event"},
  {"inputs":[
    {"internalType":"address","name":"","type":"address"},
    {"internalType":"uint256","name":"","type":"uint256"}
  ],"name":"credentials","outputs":[
    {"internalType":"string","name":"certHash","type":"string"},
    {"internalType":"uint256","name":"timestamp","type":"uint256"},
    {"internalType":"address","name":"issuer","type":"address"}
  ],"stateMutability":"view","type":"function"},
  {"inputs":[{"internalType":"address","name":"_learner","type":"address"}],
   "name":"getCredentials","outputs":[{"components":[
    {"internalType":"string","name":"certHash","type":"string"},
    {"internalType":"uint256","name":"timestamp","type":"uint256"},
    {"internalType":"address","name":"issuer","type":"address"}
   ],"internalType":"struct Certificate.Credential[]","name":"","type":"tuple[]"}],
   "stateMutability":"view","type":"function"},
  {"inputs":[
    {"internalType":"address","name":"_learner","type":"address"},
    {"internalType":"string","name":"_certHash","type":"string"}
  ],"name":"issueCredential","outputs":[],"stateMutability":"nonpayable","type":"function"},
  {"inputs":[],"name":"owner","outputs":[{"internalType":"address","name":"","type":"address"}],
   "stateMutability":"view","type":"function"}
]`

var parsedABI = sync.OnceValues(func() (abi.ABI, error) {
	return abi.JSON(strings.NewReader(CertificateABI))
})

// ParsedABI returns the parsed contract interface.
func ParsedABI() (abi.ABI, error) {
	return parsedABI()
}
