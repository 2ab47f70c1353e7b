// Package api maps each ledger-service operation onto a gateway request.
package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/congo-pay/walletgate/internal/gateway"
	"github.com/congo-pay/walletgate/internal/model"
)

// Doer executes a gateway request. *gateway.Client satisfies it.
type Doer interface {
	Do(ctx context.Context, req gateway.Request, out any) error
}

// Client exposes the ledger service's REST operations.
type Client struct {
	gw Doer
}

// New wraps a gateway.
func New(gw Doer) *Client {
	return &Client{gw: gw}
}

// Login exchanges email and password for a credential pair.
func (c *Client) Login(ctx context.Context, req model.LoginRequest) (model.AuthResponse, error) {
	var out model.AuthResponse
	err := c.gw.Do(ctx, gateway.Request{Method: http.MethodPost, Path: "/auth/login", Body: req, Public: true}, &out)
	return out, err
}

// Register creates an account. It does not authenticate.
func (c *Client) Register(ctx context.Context, req model.RegisterRequest) (model.User, error) {
	var out model.User
	err := c.gw.Do(ctx, gateway.Request{Method: http.MethodPost, Path: "/auth/register", Body: req, Public: true}, &out)
	return out, err
}

// Logout revokes the server-side refresh credentials of the caller.
func (c *Client) Logout(ctx context.Context) error {
	return c.gw.Do(ctx, gateway.Request{Method: http.MethodPost, Path: "/auth/logout"}, nil)
}

// CurrentUser returns the authenticated identity.
func (c *Client) CurrentUser(ctx context.Context) (model.User, error) {
	var out model.User
	err := c.gw.Do(ctx, gateway.Request{Method: http.MethodGet, Path: "/users/me"}, &out)
	return out, err
}

// Wallets lists the caller's wallets.
func (c *Client) Wallets(ctx context.Context) ([]model.Wallet, error) {
	var out []model.Wallet
	err := c.gw.Do(ctx, gateway.Request{Method: http.MethodGet, Path: "/wallets"}, &out)
	return out, err
}

// Wallet fetches one wallet.
func (c *Client) Wallet(ctx context.Context, id int64) (model.Wallet, error) {
	var out model.Wallet
	err := c.gw.Do(ctx, gateway.Request{Method: http.MethodGet, Path: "/wallets/" + strconv.FormatInt(id, 10)}, &out)
	return out, err
}

// CreateWallet opens a wallet and returns the server's entity.
func (c *Client) CreateWallet(ctx context.Context, req model.CreateWalletRequest) (model.Wallet, error) {
	var out model.Wallet
	err := c.gw.Do(ctx, gateway.Request{Method: http.MethodPost, Path: "/wallets", Body: req}, &out)
	return out, err
}

// Balance returns the balance snapshot of a wallet.
func (c *Client) Balance(ctx context.Context, walletID int64) (model.Balance, error) {
	var out model.Balance
	path := "/wallets/" + strconv.FormatInt(walletID, 10) + "/balance"
	err := c.gw.Do(ctx, gateway.Request{Method: http.MethodGet, Path: path}, &out)
	return out, err
}

// Transactions returns one page of history.
func (c *Client) Transactions(ctx context.Context, filter model.TransactionFilter) (model.Page[model.Transaction], error) {
	var out model.Page[model.Transaction]
	err := c.gw.Do(ctx, gateway.Request{Method: http.MethodGet, Path: "/transactions", Query: filter.Query()}, &out)
	return out, err
}

// Transaction fetches one transaction.
func (c *Client) Transaction(ctx context.Context, id int64) (model.Transaction, error) {
	var out model.Transaction
	err := c.gw.Do(ctx, gateway.Request{Method: http.MethodGet, Path: "/transactions/" + strconv.FormatInt(id, 10)}, &out)
	return out, err
}

// Deposit credits a wallet.
func (c *Client) Deposit(ctx context.Context, req model.DepositRequest) (model.Transaction, error) {
	return c.mutate(ctx, "/transactions/deposit", req)
}

// Withdraw debits a wallet.
func (c *Client) Withdraw(ctx context.Context, req model.WithdrawRequest) (model.Transaction, error) {
	return c.mutate(ctx, "/transactions/withdraw", req)
}

// Transfer moves funds between two wallets.
func (c *Client) Transfer(ctx context.Context, req model.TransferRequest) (model.Transaction, error) {
	return c.mutate(ctx, "/transactions/transfer", req)
}

func (c *Client) mutate(ctx context.Context, path string, body any) (model.Transaction, error) {
	var out model.Transaction
	err := c.gw.Do(ctx, gateway.Request{Method: http.MethodPost, Path: path, Body: body}, &out)
	return out, err
}
