package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"linkup/linkup-shell/internal/nav"
)

// Backend is the slice of the LinkUp API the session depends on.
type Backend interface {
	Profile(ctx context.Context) (Identity, error)
	Login(ctx context.Context, creds Credentials) (Identity, error)
	Logout(ctx context.Context) error
}

// CredentialResetter drops whatever transport credentials back the session.
type CredentialResetter interface {
	Reset(ctx context.Context) error
}

type EventKind string

const (
	EventCheck    EventKind = "session.check"
	EventLogin    EventKind = "auth.login"
	EventLogout   EventKind = "auth.logout"
	EventExpired  EventKind = "session.expired"
	EventIdentity EventKind = "identity.update"
)

type Event struct {
	Kind     EventKind
	Username string
	Outcome  string
	Detail   string
}

type Observer func(Event)

// Service is the process-wide session store. All mutation goes through its
// methods; each one replaces the identity as a whole under the lock, after any
// backend call has returned.
type Service struct {
	backend     Backend
	credentials CredentialResetter
	log         *zap.Logger

	checkOnce sync.Once
	resolved  chan struct{}

	mu         sync.RWMutex
	identity   *Identity
	resolution Resolution
	// generation counts identity changes made outside the startup check.
	generation uint64

	obsMu     sync.RWMutex
	observers []Observer
}

type ServiceConfig struct {
	// Credentials is reset on logout. Optional.
	Credentials CredentialResetter
	Logger      *zap.Logger
}

func NewService(backend Backend, cfg ServiceConfig) (*Service, error) {
	if backend == nil {
		return nil, fmt.Errorf("backend is required")
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		backend:     backend,
		credentials: cfg.Credentials,
		log:         log,
		resolved:    make(chan struct{}),
		resolution:  Pending,
	}, nil
}

// Observe registers fn to be called after every session transition.
func (s *Service) Observe(fn Observer) {
	if fn == nil {
		return
	}
	s.obsMu.Lock()
	s.observers = append(s.observers, fn)
	s.obsMu.Unlock()
}

// CheckSession asks the backend who is logged in. Only the first call does
// any work; it always leaves the session Resolved and never fails: an
// unreachable or rejecting backend simply means nobody is logged in. A login,
// logout, expiry or identity update that lands while the check is in flight
// wins over the check's answer.
func (s *Service) CheckSession(ctx context.Context) {
	s.checkOnce.Do(func() {
		s.mu.RLock()
		gen := s.generation
		s.mu.RUnlock()

		id, err := s.backend.Profile(nav.WithIdentityProbe(ctx))

		s.mu.Lock()
		stale := s.generation != gen
		if !stale {
			if err == nil {
				s.identity = &id
			} else {
				s.identity = nil
			}
		}
		s.resolution = Resolved
		s.mu.Unlock()
		close(s.resolved)

		if stale {
			s.log.Debug("session check: superseded by a newer session change")
			s.emit(Event{Kind: EventCheck, Outcome: "superseded"})
			return
		}
		if err != nil {
			s.log.Debug("session check: not authenticated", zap.Error(err))
			s.emit(Event{Kind: EventCheck, Outcome: "anonymous", Detail: err.Error()})
			return
		}
		s.log.Info("session check: authenticated", zap.String("username", id.Username))
		s.emit(Event{Kind: EventCheck, Username: id.Username, Outcome: "success"})
	})
}

// Resolved is closed once the startup check has finished.
func (s *Service) Resolved() <-chan struct{} {
	return s.resolved
}

// Login authenticates with the backend. A rejected login returns the backend
// error untouched and leaves the session as it was.
func (s *Service) Login(ctx context.Context, creds Credentials) (Identity, error) {
	id, err := s.backend.Login(ctx, creds)
	if err != nil {
		s.log.Info("login rejected", zap.String("username", creds.Username), zap.Error(err))
		s.emit(Event{Kind: EventLogin, Username: creds.Username, Outcome: "failed", Detail: err.Error()})
		return Identity{}, err
	}

	s.mu.Lock()
	s.identity = &id
	s.generation++
	s.mu.Unlock()

	s.log.Info("login succeeded", zap.String("username", id.Username))
	s.emit(Event{Kind: EventLogin, Username: id.Username, Outcome: "success"})
	return id, nil
}

// Logout tells the backend to end the session and clears local state whatever
// the backend says. The returned error is informational: the session is
// anonymous when Logout returns.
func (s *Service) Logout(ctx context.Context) error {
	backendErr := s.backend.Logout(ctx)

	s.mu.Lock()
	prev := s.identity
	s.identity = nil
	s.generation++
	s.mu.Unlock()

	var resetErr error
	if s.credentials != nil {
		resetErr = s.credentials.Reset(ctx)
	}

	username := ""
	if prev != nil {
		username = prev.Username
	}
	err := errors.Join(backendErr, resetErr)
	if err != nil {
		s.log.Warn("logout completed with errors", zap.String("username", username), zap.Error(err))
		s.emit(Event{Kind: EventLogout, Username: username, Outcome: "success", Detail: err.Error()})
		return err
	}
	s.log.Info("logout completed", zap.String("username", username))
	s.emit(Event{Kind: EventLogout, Username: username, Outcome: "success"})
	return nil
}

// UpdateIdentity replaces the identity with a record the backend echoed back,
// typically after a profile edit.
func (s *Service) UpdateIdentity(id Identity) {
	s.mu.Lock()
	s.identity = &id
	s.generation++
	s.mu.Unlock()
	s.emit(Event{Kind: EventIdentity, Username: id.Username, Outcome: "success"})
}

// Expire drops the identity after the backend rejected the session. The
// resolution state is left alone.
func (s *Service) Expire(reason string) {
	s.mu.Lock()
	prev := s.identity
	s.identity = nil
	if prev != nil {
		s.generation++
	}
	s.mu.Unlock()

	if prev == nil {
		return
	}
	s.log.Info("session expired", zap.String("username", prev.Username), zap.String("reason", reason))
	s.emit(Event{Kind: EventExpired, Username: prev.Username, Outcome: "cleared", Detail: reason})
}

func (s *Service) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := State{Resolution: s.resolution}
	if s.identity != nil {
		id := *s.identity
		st.Identity = &id
	}
	return st
}

func (s *Service) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity != nil
}

func (s *Service) emit(e Event) {
	s.obsMu.RLock()
	obs := append([]Observer(nil), s.observers...)
	s.obsMu.RUnlock()
	for _, fn := range obs {
		fn(e)
	}
}
