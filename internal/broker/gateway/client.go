// Package gateway drives the native terminal through its local HTTP gateway.
package gateway

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"

	"terminal_bridge/internal/broker"
)

const defaultTimeout = 60 * time.Second

// Client implements broker.Terminal against the gateway process.
type Client struct {
	client *resty.Client
}

var _ broker.Terminal = (*Client)(nil)

// NewClient creates a gateway client for the given base URL.
func NewClient(baseURL string) *Client {
	baseURL = strings.TrimSuffix(baseURL, "/")

	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(defaultTimeout).
		SetHeader("Accept", "application/json")

	return &Client{client: client}
}

// SetTimeout overrides the per-request timeout.
func (c *Client) SetTimeout(d time.Duration) *Client {
	c.client.SetTimeout(d)
	return c
}

func (c *Client) newRequest(ctx context.Context) *resty.Request {
	r := c.client.R()
	if ctx != nil {
		r.SetContext(ctx)
	}
	return r.SetError(&errorResponse{})
}

// check turns a transport error or a non-2xx response into a broker error.
func check(ctx context.Context, method, path string, resp *resty.Response, err error) error {
	if err != nil {
		if ctx != nil && ctx.Err() != nil {
			return errors.Wrapf(ctx.Err(), "%s %s", method, path)
		}
		return errors.Wrapf(broker.ErrTerminalUnreachable, "%s %s: %v", method, path, err)
	}
	if !resp.IsError() {
		return nil
	}

	var body errorResponse
	if e, ok := resp.Error().(*errorResponse); ok && e != nil {
		body = *e
	}

	switch body.Code {
	case codeNotInitialized:
		return errors.Wrap(broker.ErrNotInitialized, body.Error)
	case codeNoSession:
		return broker.ErrNoSession
	case codeLoginRejected:
		return errors.Wrap(broker.ErrLoginRejected, body.Error)
	}

	if resp.StatusCode() >= http.StatusInternalServerError {
		return errors.Wrapf(broker.ErrTerminalUnreachable, "%s %s: status %d: %s", method, path, resp.StatusCode(), body.Error)
	}
	return errors.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode(), body.Error)
}

// Initialize connects the gateway to the terminal process.
func (c *Client) Initialize(ctx context.Context) error {
	resp, err := c.newRequest(ctx).Post("/initialize")
	return check(ctx, http.MethodPost, "/initialize", resp, err)
}

// Shutdown releases the terminal connection.
func (c *Client) Shutdown(ctx context.Context) error {
	resp, err := c.newRequest(ctx).Post("/shutdown")
	return check(ctx, http.MethodPost, "/shutdown", resp, err)
}

// Ping checks that the gateway and the terminal answer.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.newRequest(ctx).Get("/ping")
	return check(ctx, http.MethodGet, "/ping", resp, err)
}

// Login switches the terminal session to the given account.
func (c *Client) Login(ctx context.Context, login int64, password, server string) error {
	var out loginResponse
	resp, err := c.newRequest(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(loginRequest{Login: login, Password: password, Server: server}).
		SetResult(&out).
		Post("/login")
	if err := check(ctx, http.MethodPost, "/login", resp, err); err != nil {
		return err
	}
	if !out.Success {
		return errors.Wrapf(broker.ErrLoginRejected, "login %d: %s", login, out.Error)
	}
	return nil
}

// ActiveLogin returns the account the terminal is currently logged in to.
func (c *Client) ActiveLogin(ctx context.Context) (int64, error) {
	var out sessionResponse
	resp, err := c.newRequest(ctx).SetResult(&out).Get("/session")
	if err := check(ctx, http.MethodGet, "/session", resp, err); err != nil {
		return 0, err
	}
	if out.Login == 0 {
		return 0, broker.ErrNoSession
	}
	return out.Login, nil
}

// AccountInfo returns the state of the active account.
func (c *Client) AccountInfo(ctx context.Context) (*broker.AccountInfo, error) {
	var out accountResponse
	resp, err := c.newRequest(ctx).SetResult(&out).Get("/account")
	if err := check(ctx, http.MethodGet, "/account", resp, err); err != nil {
		return nil, err
	}
	return out.toAccountInfo(), nil
}

// HistoryDeals returns the deals of the active account between from and to.
func (c *Client) HistoryDeals(ctx context.Context, from, to time.Time) ([]broker.Deal, error) {
	var out dealsResponse
	resp, err := c.newRequest(ctx).
		SetQueryParam("from", strconv.FormatInt(from.Unix(), 10)).
		SetQueryParam("to", strconv.FormatInt(to.Unix(), 10)).
		SetResult(&out).
		Get("/history/deals")
	if err := check(ctx, http.MethodGet, "/history/deals", resp, err); err != nil {
		return nil, err
	}

	deals := make([]broker.Deal, 0, len(out.Deals))
	for _, d := range out.Deals {
		deals = append(deals, d.toDeal())
	}
	return deals, nil
}
