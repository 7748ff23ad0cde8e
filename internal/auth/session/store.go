// Package session holds the process-local view of the signed-in principal.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/GoSim-25-26J-441/lms-access-backend/internal/auth/domain"
	"github.com/GoSim-25-26J-441/lms-access-backend/internal/auth/identity"
	"github.com/GoSim-25-26J-441/lms-access-backend/internal/logging"
)

// ProfileSource loads the profile for a principal.
type ProfileSource interface {
	Profile(ctx context.Context, p *domain.Principal) (*domain.UserProfile, error)
}

// TokenSource yields identity tokens for the signed-in principal.
type TokenSource interface {
	IDToken(ctx context.Context) (string, error)
}

// Session is an immutable snapshot of the store.
type Session struct {
	Principal *domain.Principal
	Profile   *domain.UserProfile
	Loading   bool
	// ProfileErr is set when the profile could not be fetched and the session
	// carries only the bare principal.
	ProfileErr error
}

func (s Session) SignedIn() bool { return s.Principal != nil }

// Role is the profile's role, or RoleUnknown when there is no profile.
func (s Session) Role() domain.Role {
	if s.Profile == nil {
		return domain.RoleUnknown
	}
	return s.Profile.Role
}

// Store tracks the current principal and notifies subscribers on every change.
// It starts in the loading state until the first change notification arrives.
type Store struct {
	profiles ProfileSource
	log      *slog.Logger

	// handling serializes OnSessionChange; notifications are not deduplicated.
	handling sync.Mutex

	mu      sync.RWMutex
	current Session
	tokens  TokenSource
	signOut func(context.Context) error
	nextID  int
	subs    map[int]func(Session)
}

func NewStore(profiles ProfileSource, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{
		profiles: profiles,
		log:      log,
		current:  Session{Loading: true},
		subs:     make(map[int]func(Session)),
	}
}

// Bind feeds the provider's change stream into the store and uses the provider
// for tokens and sign-out.
func (s *Store) Bind(ctx context.Context, p identity.Provider) (unbind func()) {
	s.mu.Lock()
	s.tokens = p
	s.signOut = p.SignOut
	s.mu.Unlock()

	return p.Subscribe(func(principal *domain.Principal) {
		s.OnSessionChange(ctx, principal)
	})
}

// OnSessionChange handles a sign-in state change. A failed profile fetch is
// logged and leaves a session with the bare principal.
func (s *Store) OnSessionChange(ctx context.Context, p *domain.Principal) {
	s.handling.Lock()
	defer s.handling.Unlock()

	log := logging.FromContext(ctx, s.log)

	s.set(Session{Principal: p, Loading: true})

	if p == nil {
		s.set(Session{})
		return
	}

	next := Session{Principal: p}
	if s.profiles != nil {
		profile, err := s.profiles.Profile(ctx, p)
		if err != nil {
			ferr := &domain.ProfileFetchError{PrincipalID: p.ID, Err: err}
			log.Warn("profile fetch failed, continuing with bare principal",
				slog.String("user_id", p.ID), logging.Err(ferr))
			next.ProfileErr = ferr
		} else {
			next.Profile = profile
		}
	}
	s.set(next)
}

// Refresh re-runs profile resolution for the current principal.
func (s *Store) Refresh(ctx context.Context) {
	cur := s.Current()
	if cur.Principal == nil {
		return
	}
	s.OnSessionChange(ctx, cur.Principal)
}

func (s *Store) Current() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Token returns an identity token for the signed-in principal.
func (s *Store) Token(ctx context.Context) (string, error) {
	s.mu.RLock()
	tokens, signedIn := s.tokens, s.current.Principal != nil
	s.mu.RUnlock()

	if !signedIn {
		return "", domain.ErrMissingPrincipal
	}
	if tokens == nil {
		return "", errors.New("session has no token source")
	}
	return tokens.IDToken(ctx)
}

// Logout signs out through the bound provider and clears the session.
func (s *Store) Logout(ctx context.Context) error {
	s.mu.RLock()
	signOut := s.signOut
	s.mu.RUnlock()

	if signOut != nil {
		if err := signOut(ctx); err != nil {
			return err
		}
	}
	// Providers normally publish nil on sign-out; clearing again is harmless.
	s.OnSessionChange(ctx, nil)
	return nil
}

// Subscribe registers fn for every session change and calls it once with the
// current session.
func (s *Store) Subscribe(fn func(Session)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	cur := s.current
	s.mu.Unlock()

	fn(cur)

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *Store) set(next Session) {
	s.mu.Lock()
	s.current = next
	fns := make([]func(Session), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(next)
	}
}
