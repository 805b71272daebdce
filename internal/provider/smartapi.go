package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	apierrors "angel-trader/internal/errors"
	"angel-trader/internal/models"
)

// DefaultBaseURL is the production SmartAPI endpoint.
const DefaultBaseURL = "https://apiconnect.angelbroking.com"

const (
	pathLogin         = "/rest/auth/angelbroking/user/v1/loginByPassword"
	pathRenewTokens   = "/rest/auth/angelbroking/jwt/v1/generateTokens"
	pathLogout        = "/rest/secure/angelbroking/user/v1/logout"
	pathProfile       = "/rest/secure/angelbroking/user/v1/getProfile"
	pathLTPData       = "/rest/secure/angelbroking/order/v1/getLtpData"
	pathOptionGreek   = "/rest/secure/angelbroking/marketData/v1/optionGreek"
	pathGainersLosers = "/rest/secure/angelbroking/marketData/v1/gainersLosers"
	pathCandleData    = "/rest/secure/angelbroking/historical/v1/getCandleData"
)

// SmartConfig holds configuration for the SmartAPI client.
type SmartConfig struct {
	APIKey          string
	BaseURL         string
	TimeoutSeconds  int
	RateLimitPerSec float64
}

// SmartClient is the HTTP implementation of Provider for the SmartAPI feed.
type SmartClient struct {
	apiKey      string
	baseURL     string
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	logger      zerolog.Logger

	mu          sync.RWMutex
	accessToken string
}

// NewSmartClient creates a SmartAPI client.
func NewSmartClient(cfg SmartConfig, logger zerolog.Logger) *SmartClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.TimeoutSeconds <= 0 {
		cfg.TimeoutSeconds = 10
	}
	if cfg.RateLimitPerSec <= 0 {
		cfg.RateLimitPerSec = 3
	}

	return &SmartClient{
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
		rateLimiter: rate.NewLimiter(rate.Limit(cfg.RateLimitPerSec), 1),
		logger:      logger,
	}
}

// envelope is the response wrapper every SmartAPI endpoint uses.
type envelope struct {
	Status    bool            `json:"status"`
	Message   string          `json:"message"`
	ErrorCode string          `json:"errorcode"`
	Data      json.RawMessage `json:"data"`
}

// SetAccessToken installs the bearer token for the secure endpoints.
func (c *SmartClient) SetAccessToken(token string) {
	c.mu.Lock()
	c.accessToken = token
	c.mu.Unlock()
}

func (c *SmartClient) token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.accessToken
}

// Login authenticates with password plus a freshly generated TOTP code.
func (c *SmartClient) Login(ctx context.Context, creds Credentials) (*LoginResult, error) {
	code, err := totp.GenerateCode(creds.TOTPSecret, time.Now())
	if err != nil {
		return nil, apierrors.Wrap(apierrors.ErrAuthentication, "generating TOTP code")
	}

	body := map[string]string{
		"clientcode": creds.ClientCode,
		"password":   creds.Password,
		"totp":       code,
	}

	var data struct {
		JWTToken     string `json:"jwtToken"`
		RefreshToken string `json:"refreshToken"`
		FeedToken    string `json:"feedToken"`
	}
	if err := c.post(ctx, pathLogin, body, &data); err != nil {
		return nil, err
	}

	return &LoginResult{
		AccessToken:  data.JWTToken,
		RefreshToken: data.RefreshToken,
		FeedToken:    data.FeedToken,
	}, nil
}

// RenewToken exchanges a refresh token for a new token set.
func (c *SmartClient) RenewToken(ctx context.Context, refreshToken string) (*LoginResult, error) {
	body := map[string]string{"refreshToken": refreshToken}

	var data struct {
		JWTToken     string `json:"jwtToken"`
		RefreshToken string `json:"refreshToken"`
		FeedToken    string `json:"feedToken"`
	}
	if err := c.post(ctx, pathRenewTokens, body, &data); err != nil {
		return nil, err
	}

	return &LoginResult{
		AccessToken:  data.JWTToken,
		RefreshToken: data.RefreshToken,
		FeedToken:    data.FeedToken,
	}, nil
}

// Logout terminates the upstream session.
func (c *SmartClient) Logout(ctx context.Context, clientCode string) error {
	body := map[string]string{"clientcode": clientCode}
	return c.post(ctx, pathLogout, body, nil)
}

// Profile fetches the account summary for the authenticated session.
func (c *SmartClient) Profile(ctx context.Context) (*UserProfile, error) {
	var data UserProfile
	if err := c.call(ctx, http.MethodGet, pathProfile, nil, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// LTP fetches the last traded price for an instrument token.
func (c *SmartClient) LTP(ctx context.Context, exchange models.Exchange, symbol, token string) (float64, error) {
	body := map[string]string{
		"exchange":      string(exchange),
		"tradingsymbol": symbol,
		"symboltoken":   token,
	}

	var data struct {
		LTP json.Number `json:"ltp"`
	}
	if err := c.post(ctx, pathLTPData, body, &data); err != nil {
		return 0, err
	}

	ltp, err := data.LTP.Float64()
	if err != nil {
		return 0, apierrors.Wrapf(apierrors.ErrDataIntegrity, "non-numeric ltp %q for %s", data.LTP, symbol)
	}
	return ltp, nil
}

// OptionGreeks fetches the raw greek rows for a symbol and expiry.
func (c *SmartClient) OptionGreeks(ctx context.Context, name, expiry string) ([]GreekRecord, error) {
	body := map[string]string{
		"name":       name,
		"expirydate": expiry,
	}

	var data []GreekRecord
	if err := c.post(ctx, pathOptionGreek, body, &data); err != nil {
		return nil, err
	}
	return data, nil
}

// GainersLosers fetches derivative movers for a data type and expiry bucket.
func (c *SmartClient) GainersLosers(ctx context.Context, kind models.MoverKind, scope models.ExpiryScope) ([]models.Mover, error) {
	body := map[string]string{
		"datatype":   string(kind),
		"expirytype": string(scope),
	}

	var data []struct {
		TradingSymbol string      `json:"tradingSymbol"`
		PercentChange json.Number `json:"percentChange"`
		LTP           json.Number `json:"ltp"`
		NetChange     json.Number `json:"netChange"`
	}
	if err := c.post(ctx, pathGainersLosers, body, &data); err != nil {
		return nil, err
	}

	movers := make([]models.Mover, 0, len(data))
	for _, d := range data {
		pc, _ := d.PercentChange.Float64()
		ltp, _ := d.LTP.Float64()
		nc, _ := d.NetChange.Float64()
		movers = append(movers, models.Mover{
			TradingSymbol: d.TradingSymbol,
			PercentChange: pc,
			Value:         ltp,
			NetChange:     nc,
		})
	}
	return movers, nil
}

// CandleData fetches historical OHLCV rows. The feed sends each candle as a
// positional array [timestamp, open, high, low, close, volume].
func (c *SmartClient) CandleData(ctx context.Context, req CandleRequest) ([]models.Candle, error) {
	body := map[string]string{
		"exchange":    string(req.Exchange),
		"symboltoken": req.SymbolToken,
		"interval":    req.Interval,
		"fromdate":    req.From.Format("2006-01-02 15:04"),
		"todate":      req.To.Format("2006-01-02 15:04"),
	}

	var rows [][]json.RawMessage
	if err := c.post(ctx, pathCandleData, body, &rows); err != nil {
		return nil, err
	}

	candles := make([]models.Candle, 0, len(rows))
	for _, row := range rows {
		if len(row) < 6 {
			continue
		}
		var ts string
		if err := json.Unmarshal(row[0], &ts); err != nil {
			continue
		}
		t, err := time.Parse("2006-01-02T15:04:05-07:00", ts)
		if err != nil {
			continue
		}
		vals := make([]float64, 5)
		ok := true
		for i := 0; i < 5; i++ {
			if err := json.Unmarshal(row[i+1], &vals[i]); err != nil {
				ok = false
				break
			}
		}
		if !ok {
			continue
		}
		candles = append(candles, models.Candle{
			Timestamp: t,
			Open:      vals[0],
			High:      vals[1],
			Low:       vals[2],
			Close:     vals[3],
			Volume:    int64(vals[4]),
		})
	}
	return candles, nil
}

// post sends a POST request through call.
func (c *SmartClient) post(ctx context.Context, path string, body interface{}, out interface{}) error {
	return c.call(ctx, http.MethodPost, path, body, out)
}

// call sends a request, unwraps the response envelope, and maps failures
// into the error taxonomy. body and out may be nil.
func (c *SmartClient) call(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return apierrors.Wrap(apierrors.ErrTransient, "rate limiter wait")
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return apierrors.Wrap(apierrors.ErrValidation, "encoding request body")
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return apierrors.Wrap(apierrors.ErrValidation, "building request")
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-UserType", "USER")
	req.Header.Set("X-SourceID", "WEB")
	req.Header.Set("X-PrivateKey", c.apiKey)
	if tok := c.token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug().Err(err).Str("path", path).Msg("transport failure")
		return apierrors.Wrapf(apierrors.ErrTransient, "%s %s", method, path)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return apierrors.Wrapf(apierrors.ErrTransient, "reading response for %s", path)
	}

	c.logger.Debug().
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("API call")

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return apierrors.Wrapf(apierrors.ErrRateLimited, "%s %s returned %d", method, path, resp.StatusCode)
	case resp.StatusCode == http.StatusForbidden:
		// The feed answers 403 both for bad tokens and for access-rate
		// breaches; the body distinguishes them when parseable.
		if isRateMessage(raw) {
			return apierrors.Wrapf(apierrors.ErrRateLimited, "%s %s returned 403", method, path)
		}
		return apierrors.Wrapf(apierrors.ErrAuthentication, "%s %s returned 403", method, path)
	case resp.StatusCode == http.StatusUnauthorized:
		return apierrors.Wrapf(apierrors.ErrAuthentication, "%s %s returned 401", method, path)
	case resp.StatusCode >= 500:
		return apierrors.Wrapf(apierrors.ErrTransient, "%s %s returned %d", method, path, resp.StatusCode)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return apierrors.Wrapf(apierrors.ErrUpstream, "malformed envelope from %s", path)
	}

	if !env.Status {
		code := env.ErrorCode
		if code == "" {
			code = "AB2000"
		}
		return apierrors.NewProviderError(code, env.Message)
	}

	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return apierrors.Wrapf(apierrors.ErrUpstream, "decoding data from %s", path)
	}
	return nil
}

func isRateMessage(raw []byte) bool {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return false
	}
	msg := strings.ToLower(env.Message)
	return strings.Contains(msg, "access rate") || strings.Contains(msg, "rate limit")
}

// Ensure SmartClient implements Provider
var _ Provider = (*SmartClient)(nil)
