package auth

import (
	"context"
	"time"

	"github.com/certledger/certledger/internal/identity"
)

// Service logs users in by delegating password checks to identity.Service.
type Service struct {
	ids    *identity.Service
	tokens *Tokens
}

func NewService(ids *identity.Service, tokens *Tokens) *Service {
	return &Service{ids: ids, tokens: tokens}
}

// LoginResult is a freshly issued session.
type LoginResult struct {
	User      identity.User
	Token     string
	ExpiresAt time.Time
}

// Login validates credentials and issues a session token.
func (s *Service) Login(ctx context.Context, username, password string) (LoginResult, error) {
	user, err := s.ids.Authenticate(ctx, identity.Credentials{Username: username, Password: password})
	if err != nil {
		return LoginResult{}, err
	}
	token, exp, err := s.tokens.Issue(user.ID, user.Role)
	if err != nil {
		return LoginResult{}, err
	}
	return LoginResult{User: user, Token: token, ExpiresAt: exp}, nil
}
