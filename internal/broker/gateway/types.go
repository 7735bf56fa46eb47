package gateway

import (
	"time"

	"github.com/shopspring/decimal"

	"terminal_bridge/internal/broker"
)

// Gateway error codes returned in errorResponse.Code.
const (
	codeNotInitialized = "not_initialized"
	codeNoSession      = "no_session"
	codeLoginRejected  = "login_rejected"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type loginRequest struct {
	Login    int64  `json:"login"`
	Password string `json:"password"`
	Server   string `json:"server"`
}

type loginResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

type sessionResponse struct {
	Login int64 `json:"login"`
}

type accountResponse struct {
	Login       int64           `json:"login"`
	Balance     decimal.Decimal `json:"balance"`
	Equity      decimal.Decimal `json:"equity"`
	Profit      decimal.Decimal `json:"profit"`
	Margin      decimal.Decimal `json:"margin"`
	FreeMargin  decimal.Decimal `json:"margin_free"`
	MarginLevel decimal.Decimal `json:"margin_level"`
	Currency    string          `json:"currency"`
	Leverage    int             `json:"leverage"`
	Server      string          `json:"server"`
}

func (a *accountResponse) toAccountInfo() *broker.AccountInfo {
	return &broker.AccountInfo{
		Login:       a.Login,
		Balance:     a.Balance,
		Equity:      a.Equity,
		Profit:      a.Profit,
		Margin:      a.Margin,
		FreeMargin:  a.FreeMargin,
		MarginLevel: a.MarginLevel,
		Currency:    a.Currency,
		Leverage:    a.Leverage,
		Server:      a.Server,
	}
}

// dealResponse mirrors the native deal record. Time is unix seconds.
type dealResponse struct {
	Ticket     int64           `json:"ticket"`
	Order      int64           `json:"order"`
	Time       int64           `json:"time"`
	Type       int             `json:"type"`
	Entry      int             `json:"entry"`
	Magic      int64           `json:"magic"`
	Volume     decimal.Decimal `json:"volume"`
	Price      decimal.Decimal `json:"price"`
	Commission decimal.Decimal `json:"commission"`
	Swap       decimal.Decimal `json:"swap"`
	Profit     decimal.Decimal `json:"profit"`
	Symbol     string          `json:"symbol"`
	Comment    string          `json:"comment"`
	PositionID int64           `json:"position_id"`
}

type dealsResponse struct {
	Deals []dealResponse `json:"deals"`
}

func (d dealResponse) toDeal() broker.Deal {
	return broker.Deal{
		Ticket:     d.Ticket,
		Order:      d.Order,
		Time:       time.Unix(d.Time, 0).UTC(),
		Type:       d.Type,
		Entry:      d.Entry,
		Magic:      d.Magic,
		Volume:     d.Volume,
		Price:      d.Price,
		Commission: d.Commission,
		Swap:       d.Swap,
		Profit:     d.Profit,
		Symbol:     d.Symbol,
		Comment:    d.Comment,
		PositionID: d.PositionID,
	}
}
