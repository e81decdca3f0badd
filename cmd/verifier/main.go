package main

import (
	"context"
	"os"
	"os/signal"

	"golang.org/x/term"

	"github.com/certledger/certledger/internal/client"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	v := &client.Verifier{
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		ReadPassword: func() ([]byte, error) {
			return term.ReadPassword(int(os.Stdin.Fd()))
		},
	}
	code := v.Run(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}
