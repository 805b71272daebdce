// Package provider gives typed access to the upstream market-data feed.
package provider

import (
	"context"
	"time"

	"angel-trader/internal/models"
)

// Credentials holds everything needed for a password+TOTP login.
type Credentials struct {
	APIKey     string
	ClientCode string
	Password   string
	TOTPSecret string
}

// LoginResult is the token set returned by a successful login or renewal.
type LoginResult struct {
	AccessToken  string
	RefreshToken string
	FeedToken    string
}

// GreekRecord is one raw option row as the feed sends it. Numeric fields
// arrive as strings and are coerced by the normalizer, not here.
type GreekRecord struct {
	Name              string `json:"name"`
	Expiry            string `json:"expiry"`
	StrikePrice       string `json:"strikePrice"`
	OptionType        string `json:"optionType"`
	LTP               string `json:"ltp"`
	Delta             string `json:"delta"`
	Gamma             string `json:"gamma"`
	Theta             string `json:"theta"`
	Vega              string `json:"vega"`
	ImpliedVolatility string `json:"impliedVolatility"`
	TradeVolume       string `json:"tradeVolume"`
}

// UserProfile is the account summary behind the authenticated session.
type UserProfile struct {
	ClientCode string `json:"clientcode"`
	Name       string `json:"name"`
	Email      string `json:"email"`
}

// CandleRequest describes a historical candle fetch.
type CandleRequest struct {
	Exchange    models.Exchange
	SymbolToken string
	Interval    string
	From        time.Time
	To          time.Time
}

// Provider is the outbound boundary to the market-data feed. Every method
// may return a *errors.ProviderError carrying the upstream error code.
type Provider interface {
	Login(ctx context.Context, creds Credentials) (*LoginResult, error)
	RenewToken(ctx context.Context, refreshToken string) (*LoginResult, error)
	Logout(ctx context.Context, clientCode string) error
	Profile(ctx context.Context) (*UserProfile, error)

	// SetAccessToken installs the token used by the data methods below.
	SetAccessToken(token string)

	LTP(ctx context.Context, exchange models.Exchange, symbol, token string) (float64, error)
	OptionGreeks(ctx context.Context, name, expiry string) ([]GreekRecord, error)
	GainersLosers(ctx context.Context, kind models.MoverKind, scope models.ExpiryScope) ([]models.Mover, error)
	CandleData(ctx context.Context, req CandleRequest) ([]models.Candle, error)
}
