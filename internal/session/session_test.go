package session

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "angel-trader/internal/errors"
	"angel-trader/internal/models"
	"angel-trader/internal/provider"
)

// fakeProvider counts lifecycle calls and can be scripted to fail.
type fakeProvider struct {
	mu          sync.Mutex
	logins      int32
	renewals    int32
	logouts     int32
	loginErrs   []error // consumed one per login call
	renewErr    error
	accessToken string
}

func (f *fakeProvider) Login(ctx context.Context, creds provider.Credentials) (*provider.LoginResult, error) {
	atomic.AddInt32(&f.logins, 1)

	f.mu.Lock()
	var err error
	if len(f.loginErrs) > 0 {
		err = f.loginErrs[0]
		f.loginErrs = f.loginErrs[1:]
	}
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}

	return &provider.LoginResult{
		AccessToken:  "access-token",
		RefreshToken: "refresh-token",
		FeedToken:    "feed-token",
	}, nil
}

func (f *fakeProvider) RenewToken(ctx context.Context, refreshToken string) (*provider.LoginResult, error) {
	atomic.AddInt32(&f.renewals, 1)
	if f.renewErr != nil {
		return nil, f.renewErr
	}
	return &provider.LoginResult{
		AccessToken:  "renewed-token",
		RefreshToken: "refresh-token-2",
		FeedToken:    "feed-token-2",
	}, nil
}

func (f *fakeProvider) Logout(ctx context.Context, clientCode string) error {
	atomic.AddInt32(&f.logouts, 1)
	return nil
}

func (f *fakeProvider) Profile(ctx context.Context) (*provider.UserProfile, error) {
	return &provider.UserProfile{ClientCode: "X123", Name: "Test User"}, nil
}

func (f *fakeProvider) SetAccessToken(token string) {
	f.mu.Lock()
	f.accessToken = token
	f.mu.Unlock()
}

func (f *fakeProvider) LTP(ctx context.Context, exchange models.Exchange, symbol, token string) (float64, error) {
	return 0, nil
}

func (f *fakeProvider) OptionGreeks(ctx context.Context, name, expiry string) ([]provider.GreekRecord, error) {
	return nil, nil
}

func (f *fakeProvider) GainersLosers(ctx context.Context, kind models.MoverKind, scope models.ExpiryScope) ([]models.Mover, error) {
	return nil, nil
}

func (f *fakeProvider) CandleData(ctx context.Context, req provider.CandleRequest) ([]models.Candle, error) {
	return nil, nil
}

var _ provider.Provider = (*fakeProvider)(nil)

func newTestManager(t *testing.T, p provider.Provider) *Manager {
	t.Helper()
	return NewManager(p, Config{
		Credentials: provider.Credentials{ClientCode: "X123", Password: "pw", TOTPSecret: "secret"},
		SessionPath: filepath.Join(t.TempDir(), "session.json"),
	}, zerolog.Nop())
}

func TestTokenPerformsLogin(t *testing.T) {
	fake := &fakeProvider{}
	m := newTestManager(t, fake)

	tok, err := m.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "access-token", tok)
	assert.Equal(t, int32(1), atomic.LoadInt32(&fake.logins))
	assert.Equal(t, StateValid, m.State())
}

func TestConcurrentTokenSharesOneLogin(t *testing.T) {
	fake := &fakeProvider{}
	m := newTestManager(t, fake)

	const callers = 20
	var wg sync.WaitGroup
	tokens := make([]string, callers)
	errs := make([]error, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tokens[i], errs[i] = m.Token(context.Background())
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "access-token", tokens[i])
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&fake.logins))
}

func TestTokenReusesValidSession(t *testing.T) {
	fake := &fakeProvider{}
	m := newTestManager(t, fake)

	_, err := m.Token(context.Background())
	require.NoError(t, err)
	_, err = m.Token(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int32(1), atomic.LoadInt32(&fake.logins))
}

func TestForceReauthLogsInAgain(t *testing.T) {
	fake := &fakeProvider{}
	m := newTestManager(t, fake)

	_, err := m.Token(context.Background())
	require.NoError(t, err)

	tok, err := m.ForceReauth(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "access-token", tok)
	assert.Equal(t, int32(2), atomic.LoadInt32(&fake.logins))
	// A forced reauth never goes through the refresh-token path.
	assert.Equal(t, int32(0), atomic.LoadInt32(&fake.renewals))
}

func TestLoginRetriesTransientFailures(t *testing.T) {
	fake := &fakeProvider{loginErrs: []error{apierrors.ErrTransient}}
	m := newTestManager(t, fake)

	tok, err := m.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "access-token", tok)
	assert.Equal(t, int32(2), atomic.LoadInt32(&fake.logins))
}

func TestLoginDoesNotRetryCredentialFailures(t *testing.T) {
	fake := &fakeProvider{loginErrs: []error{
		apierrors.NewProviderError("AB1000", ""),
		apierrors.NewProviderError("AB1000", ""),
	}}
	m := newTestManager(t, fake)

	_, err := m.Token(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, apierrors.ErrAuthentication)
	assert.Equal(t, int32(1), atomic.LoadInt32(&fake.logins))
}

func TestSessionPersistsAcrossManagers(t *testing.T) {
	fake := &fakeProvider{}
	path := filepath.Join(t.TempDir(), "session.json")
	cfg := Config{
		Credentials: provider.Credentials{ClientCode: "X123", Password: "pw", TOTPSecret: "secret"},
		SessionPath: path,
	}

	m1 := NewManager(fake, cfg, zerolog.Nop())
	_, err := m1.Token(context.Background())
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	// A fresh manager loads the persisted session and skips login.
	m2 := NewManager(fake, cfg, zerolog.Nop())
	tok, err := m2.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "access-token", tok)
	assert.Equal(t, int32(1), atomic.LoadInt32(&fake.logins))
}

func TestLogoutClearsSession(t *testing.T) {
	fake := &fakeProvider{}
	m := newTestManager(t, fake)

	_, err := m.Token(context.Background())
	require.NoError(t, err)

	require.NoError(t, m.Logout(context.Background()))
	assert.Equal(t, StateUnauthenticated, m.State())
	assert.Equal(t, int32(1), atomic.LoadInt32(&fake.logouts))
	_, err = os.Stat(m.path)
	assert.True(t, os.IsNotExist(err))
}

func TestExpiringSessionTriggersRenewal(t *testing.T) {
	fake := &fakeProvider{}
	m := newTestManager(t, fake)

	_, err := m.Token(context.Background())
	require.NoError(t, err)

	// Push the session inside the refresh margin.
	m.mu.Lock()
	m.session.ExpiresAt = time.Now().Add(time.Minute)
	m.mu.Unlock()

	assert.Equal(t, StateExpiring, m.State())

	tok, err := m.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "renewed-token", tok)
	assert.Equal(t, int32(1), atomic.LoadInt32(&fake.renewals))
	assert.Equal(t, int32(1), atomic.LoadInt32(&fake.logins))
}

func TestRenewFailureFallsBackToLogin(t *testing.T) {
	fake := &fakeProvider{renewErr: apierrors.ErrAuthentication}
	m := newTestManager(t, fake)

	_, err := m.Token(context.Background())
	require.NoError(t, err)

	m.mu.Lock()
	m.session.ExpiresAt = time.Now().Add(time.Minute)
	m.mu.Unlock()

	tok, err := m.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "access-token", tok)
	assert.Equal(t, int32(2), atomic.LoadInt32(&fake.logins))
}
