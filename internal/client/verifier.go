package client

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/certledger/certledger/internal/verification"
)

// Exit codes of the verifier CLI.
const (
	ExitMatch   = 0
	ExitNoMatch = 1
	ExitError   = 2
)

// PasswordReader prompts for a secret without echo.
type PasswordReader func() ([]byte, error)

// Verifier implements the verifier subcommands.
type Verifier struct {
	Stdout       io.Writer
	Stderr       io.Writer
	ReadPassword PasswordReader
}

// Run dispatches args and returns the process exit code.
func (v *Verifier) Run(ctx context.Context, args []string) int {
	if len(args) == 0 {
		v.usage()
		return ExitError
	}
	var err error
	code := ExitMatch
	switch args[0] {
	case "hash":
		err = v.hash(args[1:])
	case "check":
		code, err = v.check(ctx, args[1:])
	default:
		v.usage()
		return ExitError
	}
	if err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(v.Stderr, "error: %v\n", err)
		}
		return ExitError
	}
	return code
}

func (v *Verifier) usage() {
	fmt.Fprintln(v.Stderr, "usage:")
	fmt.Fprintln(v.Stderr, "  verifier hash -file F")
	fmt.Fprintln(v.Stderr, "  verifier check -server URL -user U -address A -file F")
}

func (v *Verifier) hash(args []string) error {
	fs := flag.NewFlagSet("hash", flag.ContinueOnError)
	fs.SetOutput(v.Stderr)
	file := fs.String("file", "", "document to hash")
	if err := fs.Parse(args); err != nil {
		return err
	}
	digest, err := digestFile(*file)
	if err != nil {
		return err
	}
	fmt.Fprintln(v.Stdout, digest)
	return nil
}

func (v *Verifier) check(ctx context.Context, args []string) (int, error) {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	fs.SetOutput(v.Stderr)
	server := fs.String("server", "http://localhost:3001", "verification API base URL")
	user := fs.String("user", "", "username to log in with")
	address := fs.String("address", "", "learner wallet address")
	file := fs.String("file", "", "document to check")
	if err := fs.Parse(args); err != nil {
		return ExitError, err
	}
	if *user == "" || *address == "" {
		return ExitError, errors.New("-user and -address are required")
	}

	digest, err := digestFile(*file)
	if err != nil {
		return ExitError, err
	}

	password := os.Getenv("VERIFIER_PASSWORD")
	if password == "" {
		fmt.Fprint(v.Stderr, "Enter password: ")
		raw, err := v.ReadPassword()
		fmt.Fprintln(v.Stderr)
		if err != nil {
			return ExitError, fmt.Errorf("read password: %w", err)
		}
		password = strings.TrimRight(string(raw), "\r\n")
	}

	api := New(*server, nil)
	token, _, err := api.Login(ctx, *user, password)
	if err != nil {
		return ExitError, err
	}
	set, err := api.Credentials(ctx, token, *address)
	if errors.Is(err, ErrNotFound) {
		fmt.Fprintf(v.Stdout, "digest %s\nno credentials recorded for %s\n", digest, *address)
		return ExitNoMatch, nil
	}
	if err != nil {
		return ExitError, err
	}

	res, err := verification.Match(set, digest)
	if err != nil {
		return ExitError, err
	}
	fmt.Fprintf(v.Stdout, "digest %s\n", res.Digest)
	if !res.Matched() {
		fmt.Fprintf(v.Stdout, "no match among %d credential(s)\n", len(set))
		return ExitNoMatch, nil
	}
	for _, i := range res.Matches {
		fmt.Fprintf(v.Stdout, "match #%d issued by %s at %d\n", i, set[i].Issuer, set[i].Timestamp)
	}
	return ExitMatch, nil
}

func digestFile(path string) (string, error) {
	if path == "" {
		return "", errors.New("-file is required")
	}
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return verification.Digest(f)
}
