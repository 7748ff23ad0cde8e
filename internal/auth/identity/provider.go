// Package identity talks to the identity provider (Firebase Authentication).
package identity

import (
	"context"
	"sync"
	"time"

	"github.com/GoSim-25-26J-441/lms-access-backend/internal/auth/domain"
)

// AccountCreator creates a credential for a new principal.
type AccountCreator interface {
	CreateAccount(ctx context.Context, email, password string) (*domain.Principal, error)
}

// TokenVerifier validates an ID token and returns its principal.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*domain.Principal, error)
}

// PasswordResetter asks the provider to e-mail a password reset link.
type PasswordResetter interface {
	SendPasswordReset(ctx context.Context, email string) error
}

// Provider is the client-side contract: credential management plus a change stream
// that fires with the signed-in principal, or nil after sign-out.
type Provider interface {
	AccountCreator
	PasswordResetter
	SignIn(ctx context.Context, email, password string) (*domain.Principal, error)
	SignOut(ctx context.Context) error
	IDToken(ctx context.Context) (string, error)
	Subscribe(fn func(*domain.Principal)) (unsubscribe func())
}

// Credentials are the tokens held for the signed-in principal.
type Credentials struct {
	Principal    domain.Principal
	IDToken      string
	RefreshToken string
	ExpiresAt    time.Time
}

func (c *Credentials) expired(now time.Time) bool {
	// Refresh a minute early so tokens do not expire in flight.
	return c.ExpiresAt.IsZero() || now.After(c.ExpiresAt.Add(-time.Minute))
}

// notifier fans change notifications out to subscribers in registration order.
type notifier struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]func(*domain.Principal)
	order  []int
}

func (n *notifier) subscribe(fn func(*domain.Principal)) func() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.subs == nil {
		n.subs = make(map[int]func(*domain.Principal))
	}
	id := n.nextID
	n.nextID++
	n.subs[id] = fn
	n.order = append(n.order, id)

	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		delete(n.subs, id)
		for i, v := range n.order {
			if v == id {
				n.order = append(n.order[:i], n.order[i+1:]...)
				break
			}
		}
	}
}

func (n *notifier) publish(p *domain.Principal) {
	n.mu.Lock()
	fns := make([]func(*domain.Principal), 0, len(n.order))
	for _, id := range n.order {
		fns = append(fns, n.subs[id])
	}
	n.mu.Unlock()

	for _, fn := range fns {
		var cp *domain.Principal
		if p != nil {
			v := *p
			cp = &v
		}
		fn(cp)
	}
}
