package application

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/cnecrea/hidropanel/internal/domain/model"
	"github.com/cnecrea/hidropanel/internal/domain/port/driven"
)

// SessionManager owns the backend session. It hands out the held session
// without network traffic while it remains valid and collapses concurrent
// login attempts into a single handshake.
type SessionManager struct {
	client driven.UtilityClient
	seeds  *SeedProvider
	group  singleflight.Group

	mu       sync.RWMutex
	session  model.Session
	accounts []model.Account
}

// NewSessionManager creates a SessionManager around the given client and
// seed provider. No login happens until Ensure is called.
func NewSessionManager(client driven.UtilityClient, seeds *SeedProvider) *SessionManager {
	return &SessionManager{client: client, seeds: seeds}
}

// Ensure returns the current session and its account list, logging in only
// when no valid session is held. Concurrent callers share one login.
func (m *SessionManager) Ensure(ctx context.Context) (model.Session, []model.Account, error) {
	m.mu.RLock()
	if m.session.IsValid() {
		session, accounts := m.session, m.accounts
		m.mu.RUnlock()
		return session, accounts, nil
	}
	m.mu.RUnlock()

	return m.login(ctx)
}

// ForceRelogin drops the stale session and performs a fresh login. Callers
// holding the same stale session race safely: the first one clears it, and
// singleflight collapses their logins into one handshake.
func (m *SessionManager) ForceRelogin(ctx context.Context, stale model.Session) (model.Session, []model.Account, error) {
	m.Invalidate(stale)
	return m.Ensure(ctx)
}

// Invalidate clears the held session if it still matches stale. A session
// refreshed by another caller in the meantime is left untouched.
func (m *SessionManager) Invalidate(stale model.Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session.Token == stale.Token {
		m.session = model.Session{}
		m.accounts = nil
	}
}

// Reset drops the session unconditionally. Used after credential updates so
// the next cycle authenticates with the new seed.
func (m *SessionManager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = model.Session{}
	m.accounts = nil
}

func (m *SessionManager) login(ctx context.Context) (model.Session, []model.Account, error) {
	v, err, shared := m.group.Do("login", func() (any, error) {
		seed := m.seeds.Get()
		if !seed.IsComplete() {
			return nil, &driven.AuthenticationError{Reason: "no credentials configured"}
		}

		result, err := m.client.Login(ctx, seed)
		if err != nil {
			return nil, err
		}

		m.mu.Lock()
		m.session = result.Session
		m.accounts = result.Accounts
		m.mu.Unlock()

		return result, nil
	})
	if err != nil {
		return model.Session{}, nil, err
	}

	result := v.(*driven.LoginResult)
	if shared {
		slog.Debug("login shared across concurrent callers")
	}
	return result.Session, result.Accounts, nil
}
