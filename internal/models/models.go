// Package models contains the domain models for the terminal bridge.
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Money is rendered as JSON numbers, not quoted strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// Source tags where a snapshot came from.
type Source string

const (
	// SourceLive is a snapshot written by the most recent refresh of the account.
	SourceLive Source = "live"
	// SourceCached is an older snapshot kept after a later refresh failed.
	SourceCached Source = "cached"
	// SourceNoCache is a placeholder for an account that was never refreshed.
	SourceNoCache Source = "no_cache"
)

// ManagedAccount is one logical trading account exposed by the bridge.
// Loaded once at startup and never mutated.
type ManagedAccount struct {
	ID            int64  `json:"accountId" yaml:"id"`
	Name          string `json:"name" yaml:"name"`
	FundType      string `json:"fundType" yaml:"fund_type"`
	Provider      string `json:"provider" yaml:"provider"`
	CredentialRef string `json:"-" yaml:"credential"` // Key into the credential store, never exposed
}

// AccountSnapshot is a point-in-time capture of one account's margin state.
type AccountSnapshot struct {
	AccountID   int64           `json:"accountId"`
	Balance     decimal.Decimal `json:"balance"`
	Equity      decimal.Decimal `json:"equity"`
	Profit      decimal.Decimal `json:"profit"`
	Margin      decimal.Decimal `json:"margin"`
	FreeMargin  decimal.Decimal `json:"freeMargin"`
	MarginLevel decimal.Decimal `json:"marginLevel"`
	Currency    string          `json:"currency"`
	Leverage    int             `json:"leverage"`
	Timestamp   time.Time       `json:"timestamp"`
	Source      Source          `json:"source"`
}

// NoCacheSnapshot returns the placeholder served for an account that has no
// cache entry yet. All money fields are zero and the timestamp is the zero time.
func NoCacheSnapshot(accountID int64) AccountSnapshot {
	return AccountSnapshot{
		AccountID:   accountID,
		Balance:     decimal.Zero,
		Equity:      decimal.Zero,
		Profit:      decimal.Zero,
		Margin:      decimal.Zero,
		FreeMargin:  decimal.Zero,
		MarginLevel: decimal.Zero,
		Source:      SourceNoCache,
	}
}

// HasData returns true if the snapshot came from a real refresh.
func (s AccountSnapshot) HasData() bool {
	return s.Source != SourceNoCache
}

// Trade is one historical deal of a managed account.
type Trade struct {
	Ticket     int64           `json:"ticket"`
	Order      int64           `json:"order"`
	Time       time.Time       `json:"time"`
	Type       string          `json:"type"`  // "buy", "sell", "balance", ...
	Entry      string          `json:"entry"` // "in", "out", "inout", "out_by"
	Magic      int64           `json:"magic"` // Strategy identifier, always serialized
	Volume     decimal.Decimal `json:"volume"`
	Price      decimal.Decimal `json:"price"`
	Commission decimal.Decimal `json:"commission"`
	Swap       decimal.Decimal `json:"swap"`
	Profit     decimal.Decimal `json:"profit"`
	Symbol     string          `json:"symbol"`
	Comment    string          `json:"comment"`
	PositionID int64           `json:"positionId"`
	AccountID  int64           `json:"accountId"`
}

// AccountSummary is one row of the multi-account summary.
type AccountSummary struct {
	AccountID int64           `json:"accountId"`
	Name      string          `json:"name"`
	FundType  string          `json:"fundType"`
	Provider  string          `json:"provider"`
	Balance   decimal.Decimal `json:"balance"`
	Equity    decimal.Decimal `json:"equity"`
	Profit    decimal.Decimal `json:"profit"`
	Timestamp time.Time       `json:"timestamp"`
	Source    Source          `json:"source"`
}

// AccountDetail merges registry metadata with the cached snapshot of one account.
type AccountDetail struct {
	AccountID int64           `json:"accountId"`
	Name      string          `json:"name"`
	FundType  string          `json:"fundType"`
	Provider  string          `json:"provider"`
	LiveData  AccountSnapshot `json:"liveData"`
	LastSync  *time.Time      `json:"lastSync"` // nil until the first successful refresh
}
