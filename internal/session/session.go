// Package session owns the single authenticated upstream session.
//
// The upstream provider enforces single-session semantics: a second login
// with the same credentials silently invalidates the first. The manager
// therefore holds exactly one AuthSession per process and collapses every
// concurrent refresh or login into one in-flight call.
package session

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	apierrors "angel-trader/internal/errors"
	"angel-trader/internal/logging"
	"angel-trader/internal/provider"
	"angel-trader/pkg/utils"
)

// State represents the lifecycle state of the auth session.
type State string

const (
	StateUnauthenticated State = "UNAUTHENTICATED"
	StateValid           State = "VALID"
	StateExpiring        State = "EXPIRING"
	StateInvalid         State = "INVALID"
)

// Session validity windows. Logins are valid for 28 hours upstream; the
// manager stamps 27 to stay inside the window, and 23 after a renewal.
const (
	loginValidity = 27 * time.Hour
	renewValidity = 23 * time.Hour
)

// AuthSession holds the token set for the current upstream session.
type AuthSession struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	FeedToken    string    `json:"feed_token"`
	IssuedAt     time.Time `json:"issued_at"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Config holds session manager configuration.
type Config struct {
	Credentials   provider.Credentials
	SessionPath   string        // defaults to ~/.config/angel-trader/session.json
	RefreshMargin time.Duration // remaining validity below which a refresh triggers
	LoginAttempts int           // bounded retries for transient login failures
}

// Manager guards the one AuthSession and serializes refresh/login.
type Manager struct {
	provider provider.Provider
	creds    provider.Credentials
	path     string
	margin   time.Duration
	attempts int
	logger   zerolog.Logger

	mu      sync.RWMutex
	session *AuthSession

	flight singleflight.Group
}

// NewManager creates a session manager. Any persisted session is loaded
// and reused when still valid.
func NewManager(p provider.Provider, cfg Config, logger zerolog.Logger) *Manager {
	path := cfg.SessionPath
	if path == "" {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, ".config", "angel-trader", "session.json")
	}
	margin := cfg.RefreshMargin
	if margin <= 0 {
		margin = 5 * time.Minute
	}
	attempts := cfg.LoginAttempts
	if attempts <= 0 {
		attempts = 2
	}

	m := &Manager{
		provider: p,
		creds:    cfg.Credentials,
		path:     path,
		margin:   margin,
		attempts: attempts,
		logger:   logger,
	}

	if err := m.loadSession(); err == nil {
		if s, ok := m.Current(); ok {
			m.logger.Debug().Time("expires_at", s.ExpiresAt).Msg("Loaded persisted session")
		}
	}

	return m
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := m.session
	if s == nil || s.AccessToken == "" {
		return StateUnauthenticated
	}
	now := time.Now()
	switch {
	case now.After(s.ExpiresAt):
		return StateInvalid
	case now.After(s.ExpiresAt.Add(-m.margin)):
		return StateExpiring
	default:
		return StateValid
	}
}

// Current returns a copy of the current session, if any.
func (m *Manager) Current() (AuthSession, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.session == nil {
		return AuthSession{}, false
	}
	return *m.session, true
}

// Token returns a usable access token, refreshing or re-logging-in first
// when the session is missing, expiring, or expired. Concurrent callers
// share one in-flight refresh.
func (m *Manager) Token(ctx context.Context) (string, error) {
	if tok, ok := m.validToken(); ok {
		return tok, nil
	}
	return m.renew(ctx, false)
}

// ForceReauth discards the current session and performs a fresh login.
// Used after the upstream reports an invalid or expired token.
func (m *Manager) ForceReauth(ctx context.Context) (string, error) {
	m.mu.Lock()
	m.session = nil
	m.mu.Unlock()

	return m.renew(ctx, true)
}

// Logout terminates the upstream session and clears local state.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	had := m.session != nil
	m.session = nil
	m.mu.Unlock()

	m.provider.SetAccessToken("")

	if err := os.Remove(m.path); err != nil && !os.IsNotExist(err) {
		m.logger.Warn().Err(err).Msg("Failed to remove persisted session")
	}

	if !had {
		return nil
	}
	if err := m.provider.Logout(ctx, m.creds.ClientCode); err != nil {
		return apierrors.Wrap(err, "terminating upstream session")
	}
	logging.LogSessionEvent(m.logger, "logout", time.Time{})
	return nil
}

func (m *Manager) validToken() (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := m.session
	if s == nil || s.AccessToken == "" {
		return "", false
	}
	if !time.Now().Before(s.ExpiresAt.Add(-m.margin)) {
		return "", false
	}
	return s.AccessToken, true
}

// renew funnels every login/refresh through one singleflight key so that
// waiters observe the session produced by the single in-flight call.
func (m *Manager) renew(ctx context.Context, force bool) (string, error) {
	v, err, _ := m.flight.Do("session", func() (interface{}, error) {
		// A waiter that queued behind the winning call finds the fresh
		// session here and must not trigger another login.
		if tok, ok := m.validToken(); ok {
			return tok, nil
		}

		if !force {
			if tok, err := m.tryRenew(ctx); err == nil {
				return tok, nil
			}
		}
		return m.login(ctx)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (m *Manager) tryRenew(ctx context.Context) (string, error) {
	m.mu.RLock()
	var refresh string
	if m.session != nil {
		refresh = m.session.RefreshToken
	}
	m.mu.RUnlock()

	if refresh == "" {
		return "", apierrors.ErrAuthentication
	}

	res, err := m.provider.RenewToken(ctx, refresh)
	if err != nil {
		m.logger.Debug().Err(err).Msg("Token renewal failed, will re-login")
		return "", err
	}

	s := m.install(res, renewValidity)
	logging.LogSessionEvent(m.logger, "renewed", s.ExpiresAt)
	return res.AccessToken, nil
}

// login performs a fresh TOTP login with bounded retries on transient
// failures. Credential and validation failures are never retried.
func (m *Manager) login(ctx context.Context) (string, error) {
	var res *provider.LoginResult
	var err error

	for attempt := 0; attempt < m.attempts; attempt++ {
		res, err = m.provider.Login(ctx, m.creds)
		if err == nil {
			break
		}
		if !apierrors.Is(err, apierrors.ErrTransient) && !apierrors.Is(err, apierrors.ErrRateLimited) {
			break
		}
		if attempt < m.attempts-1 {
			delay := utils.CalculateBackoff(attempt, 500*time.Millisecond, 5*time.Second, 2.0)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(delay):
			}
		}
	}
	if err != nil {
		return "", apierrors.Wrap(err, "login failed")
	}

	s := m.install(res, loginValidity)
	logging.LogSessionEvent(m.logger, "login", s.ExpiresAt)
	return res.AccessToken, nil
}

func (m *Manager) install(res *provider.LoginResult, validity time.Duration) *AuthSession {
	now := time.Now()
	s := &AuthSession{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		FeedToken:    res.FeedToken,
		IssuedAt:     now,
		ExpiresAt:    now.Add(validity),
	}

	m.mu.Lock()
	m.session = s
	m.mu.Unlock()

	m.provider.SetAccessToken(res.AccessToken)

	if err := m.saveSession(s); err != nil {
		m.logger.Warn().Err(err).Msg("Failed to persist session")
	}
	return s
}

func (m *Manager) loadSession() error {
	data, err := os.ReadFile(m.path)
	if err != nil {
		return err
	}

	var s AuthSession
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if time.Now().After(s.ExpiresAt) {
		return apierrors.ErrAuthentication
	}

	m.mu.Lock()
	m.session = &s
	m.mu.Unlock()
	m.provider.SetAccessToken(s.AccessToken)
	return nil
}

func (m *Manager) saveSession(s *AuthSession) error {
	if err := os.MkdirAll(filepath.Dir(m.path), 0700); err != nil {
		return err
	}
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return os.WriteFile(m.path, data, 0600)
}
