package client

import (
	"context"
	"sync"

	"github.com/Additional-Code/boxoffice/pkg/errorbank"
)

// Session tracks the caller's identity on top of a Client. A background probe
// quietly downgrades the session when the token stops being accepted;
// explicit actions surface the authentication failure to the caller.
type Session struct {
	client *Client

	mu       sync.RWMutex
	identity *Identity
}

// NewSession builds a Session over the given Client.
func NewSession(c *Client) *Session {
	return &Session{client: c}
}

// Probe checks the stored token in the background. An authentication failure
// is absorbed: the cached identity is dropped and nil is returned, because a
// background refresh must never interrupt whatever the user is doing.
// Transport failures are reported so callers can retry.
func (s *Session) Probe(ctx context.Context) error {
	identity, err := s.client.Me(ctx)
	if err != nil {
		if errorbank.From(err).Kind() == errorbank.KindUnauthenticated {
			s.setIdentity(nil)
			return nil
		}
		return err
	}
	s.setIdentity(identity)
	return nil
}

// Require returns the caller's identity, verifying the token when no cached
// identity exists. Unlike Probe this surfaces authentication failures.
func (s *Session) Require(ctx context.Context) (*Identity, error) {
	return s.RequireFor(ctx, "")
}

// RequireFor is Require with the caller's intended destination attached. When
// authentication fails, the destination rides on the error's details under
// "destination" so the flow can resume there after a fresh login.
func (s *Session) RequireFor(ctx context.Context, destination string) (*Identity, error) {
	if identity := s.Identity(); identity != nil {
		return identity, nil
	}
	identity, err := s.client.Me(ctx)
	if err != nil {
		appErr := errorbank.From(err)
		if destination != "" && appErr.Kind() == errorbank.KindUnauthenticated {
			return nil, errorbank.Unauthenticated(appErr.Message(),
				errorbank.WithDetail("destination", destination),
				errorbank.WithCause(err),
			)
		}
		return nil, err
	}
	s.setIdentity(identity)
	return identity, nil
}

// Identity returns the cached identity, or nil when the session is not known
// to be authenticated.
func (s *Session) Identity() *Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity
}

// Authenticated reports whether the session currently holds an identity.
func (s *Session) Authenticated() bool {
	return s.Identity() != nil
}

// SetToken replaces the bearer token and resets the cached identity.
func (s *Session) SetToken(token string) {
	s.client.SetToken(token)
	s.setIdentity(nil)
}

func (s *Session) setIdentity(identity *Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identity = identity
}
