// Package broker defines the native terminal port and credential handling.
package broker

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrTerminalUnreachable indicates the terminal process did not answer.
	ErrTerminalUnreachable = errors.New("terminal unreachable")

	// ErrNotInitialized indicates a call was made before Initialize succeeded.
	ErrNotInitialized = errors.New("terminal not initialized")

	// ErrLoginRejected indicates the trade server refused the credentials.
	ErrLoginRejected = errors.New("login rejected by trade server")

	// ErrNoSession indicates no account is logged in.
	ErrNoSession = errors.New("no active session")
)

// AccountInfo is the account state reported by the terminal for the active login.
type AccountInfo struct {
	Login       int64
	Balance     decimal.Decimal
	Equity      decimal.Decimal
	Profit      decimal.Decimal
	Margin      decimal.Decimal
	FreeMargin  decimal.Decimal
	MarginLevel decimal.Decimal
	Currency    string
	Leverage    int
	Server      string
}

// Deal is one native history deal.
type Deal struct {
	Ticket     int64
	Order      int64
	Time       time.Time
	Type       int // DealType* constants
	Entry      int // DealEntry* constants
	Magic      int64
	Volume     decimal.Decimal
	Price      decimal.Decimal
	Commission decimal.Decimal
	Swap       decimal.Decimal
	Profit     decimal.Decimal
	Symbol     string
	Comment    string
	PositionID int64
}

// Native deal type codes.
const (
	DealTypeBuy        = 0
	DealTypeSell       = 1
	DealTypeBalance    = 2
	DealTypeCredit     = 3
	DealTypeCharge     = 4
	DealTypeCorrection = 5
	DealTypeBonus      = 6
	DealTypeCommission = 7
)

// Native deal entry codes.
const (
	DealEntryIn    = 0
	DealEntryOut   = 1
	DealEntryInOut = 2
	DealEntryOutBy = 3
)

var dealTypeNames = map[int]string{
	DealTypeBuy:        "buy",
	DealTypeSell:       "sell",
	DealTypeBalance:    "balance",
	DealTypeCredit:     "credit",
	DealTypeCharge:     "charge",
	DealTypeCorrection: "correction",
	DealTypeBonus:      "bonus",
	DealTypeCommission: "commission",
}

var dealEntryNames = map[int]string{
	DealEntryIn:    "in",
	DealEntryOut:   "out",
	DealEntryInOut: "inout",
	DealEntryOutBy: "out_by",
}

// DealTypeName returns the wire name of a deal type code.
func DealTypeName(code int) string {
	if name, ok := dealTypeNames[code]; ok {
		return name
	}
	return "other"
}

// DealEntryName returns the wire name of a deal entry code.
func DealEntryName(code int) string {
	if name, ok := dealEntryNames[code]; ok {
		return name
	}
	return "unknown"
}

// Terminal is the native trading terminal. It holds exactly one authenticated
// session at a time: Login replaces whatever account was active before.
//
// Only the terminal connection manager (Initialize, Shutdown, Ping) and the
// session broker (everything else) may call it.
type Terminal interface {
	// Initialize connects to the terminal process.
	Initialize(ctx context.Context) error

	// Shutdown releases the terminal connection.
	Shutdown(ctx context.Context) error

	// Ping checks that the terminal still answers.
	Ping(ctx context.Context) error

	// Login switches the terminal session to the given account.
	Login(ctx context.Context, login int64, password, server string) error

	// ActiveLogin returns the account currently logged in, or ErrNoSession.
	ActiveLogin(ctx context.Context) (int64, error)

	// AccountInfo returns the state of the active account.
	AccountInfo(ctx context.Context) (*AccountInfo, error)

	// HistoryDeals returns the deals of the active account in [from, to].
	HistoryDeals(ctx context.Context, from, to time.Time) ([]Deal, error)
}

// Credential is what the terminal needs to log in, minus the login number.
type Credential struct {
	Password string
	Server   string
}
