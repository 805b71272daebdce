// Package models provides domain models for the spread advisor.
package models

import (
	"time"
)

// Exchange represents a stock exchange segment.
type Exchange string

const (
	NSE Exchange = "NSE"
	NFO Exchange = "NFO" // F&O
)

// Symbol represents a supported index underlying.
type Symbol string

const (
	Nifty     Symbol = "NIFTY"
	BankNifty Symbol = "BANKNIFTY"
)

// Valid reports whether the symbol is one of the supported indices.
func (s Symbol) Valid() bool {
	return s == Nifty || s == BankNifty
}

// Candle represents OHLCV data for a time period.
type Candle struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    int64     `json:"volume"`
}

// Quote represents a spot quote for an index.
type Quote struct {
	Symbol    Symbol    `json:"symbol"`
	LTP       float64   `json:"ltp"`
	Timestamp time.Time `json:"timestamp"`
}

// MoverKind enumerates the gainers/losers data types the feed supports.
type MoverKind string

const (
	PercPriceGainers MoverKind = "PercPriceGainers"
	PercPriceLosers  MoverKind = "PercPriceLosers"
	PercOIGainers    MoverKind = "PercOIGainers"
	PercOILosers     MoverKind = "PercOILosers"
)

// Valid reports whether the mover kind is a known data type.
func (k MoverKind) Valid() bool {
	switch k {
	case PercPriceGainers, PercPriceLosers, PercOIGainers, PercOILosers:
		return true
	}
	return false
}

// ExpiryScope enumerates expiry buckets for derivative movers.
type ExpiryScope string

const (
	ExpiryNear ExpiryScope = "NEAR"
	ExpiryNext ExpiryScope = "NEXT"
	ExpiryFar  ExpiryScope = "FAR"
)

// Valid reports whether the expiry scope is a known bucket.
func (s ExpiryScope) Valid() bool {
	switch s {
	case ExpiryNear, ExpiryNext, ExpiryFar:
		return true
	}
	return false
}

// Mover represents one gainers/losers record.
type Mover struct {
	TradingSymbol string  `json:"trading_symbol"`
	PercentChange float64 `json:"percent_change"`
	Value         float64 `json:"value"`
	NetChange     float64 `json:"net_change"`
}

// Instrument represents a cached instrument token mapping.
type Instrument struct {
	Token    string
	Symbol   string
	Exchange Exchange
	Name     string
}
