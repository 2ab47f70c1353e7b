package ledger_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/congo-pay/walletgate/internal/api"
	"github.com/congo-pay/walletgate/internal/apierror"
	"github.com/congo-pay/walletgate/internal/credstore"
	"github.com/congo-pay/walletgate/internal/gateway"
	"github.com/congo-pay/walletgate/internal/ledger"
	"github.com/congo-pay/walletgate/internal/logging"
	"github.com/congo-pay/walletgate/internal/model"
	"github.com/congo-pay/walletgate/internal/sandbox/sandboxtest"
	"github.com/congo-pay/walletgate/internal/session"
	"github.com/congo-pay/walletgate/internal/state"
)

type client struct {
	creds   *credstore.MemoryStore
	store   *state.Store
	session *session.Orchestrator
	ledger  *ledger.Orchestrator
}

func newClient(t *testing.T, sb *sandboxtest.Sandbox, email string) *client {
	t.Helper()

	logger := logging.Discard()
	creds := credstore.NewMemoryStore()
	gw := gateway.New(sb.URL, creds, gateway.WithLogger(logger))
	svc := api.New(gw)
	store := state.New()

	c := &client{
		creds:   creds,
		store:   store,
		session: session.New(svc, creds, store, logger),
		ledger:  ledger.New(svc, store, logger),
	}
	gw.SetSessionExpiredHandler(c.session.HandleSessionExpired)
	t.Cleanup(c.ledger.Wait)

	_, err := c.session.Login(context.Background(), email, sandboxtest.DefaultPassword)
	require.NoError(t, err)
	return c
}

func await(t *testing.T, o *ledger.Orchestrator, receipt ledger.Receipt) state.LedgerState {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	l, err := o.AwaitConsistent(ctx, receipt.Generation)
	require.NoError(t, err)
	return l
}

func TestDepositConvergesAgainstSandbox(t *testing.T) {
	sb := sandboxtest.Start(t)
	sb.Register(t, "ada@example.com")
	c := newClient(t, sb, "ada@example.com")
	ctx := context.Background()

	wallet, err := c.ledger.CreateWallet(ctx, "Main", model.WalletChecking)
	require.NoError(t, err)
	require.NoError(t, sb.Book().SeedBalance(wallet.ID, decimal.NewFromInt(100)))

	receipt, err := c.ledger.Deposit(ctx, model.DepositRequest{WalletID: wallet.ID, Amount: decimal.NewFromInt(50), Description: "Top up"})
	require.NoError(t, err)
	assert.Equal(t, model.TxDeposit, receipt.Transaction.Type)

	l := await(t, c.ledger, receipt)
	require.Len(t, l.Wallets, 1)
	assert.True(t, l.Wallets[0].Balance.Equal(decimal.NewFromInt(150)), "balance %s", l.Wallets[0].Balance)
	require.NotEmpty(t, l.Transactions)
	assert.Equal(t, receipt.Transaction.ID, l.Transactions[0].ID)
	assert.Equal(t, 1, l.TotalTransactions)
	assert.Empty(t, l.Error)
}

func TestRejectedWithdrawLeavesCache(t *testing.T) {
	sb := sandboxtest.Start(t)
	sb.Register(t, "ada@example.com")
	c := newClient(t, sb, "ada@example.com")
	ctx := context.Background()

	wallet, err := c.ledger.CreateWallet(ctx, "Main", model.WalletChecking)
	require.NoError(t, err)
	receipt, err := c.ledger.Deposit(ctx, model.DepositRequest{WalletID: wallet.ID, Amount: decimal.NewFromInt(10)})
	require.NoError(t, err)
	before := await(t, c.ledger, receipt)

	_, err = c.ledger.Withdraw(ctx, model.WithdrawRequest{WalletID: wallet.ID, Amount: decimal.NewFromInt(500)})
	var httpErr *apierror.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, apierror.CodeInsufficient, httpErr.Code)

	c.ledger.Wait()
	after := c.store.Ledger()
	assert.Equal(t, before.Generation, after.Generation)
	assert.NotEmpty(t, after.Error)
	require.Len(t, after.Wallets, 1)
	assert.True(t, after.Wallets[0].Balance.Equal(decimal.NewFromInt(10)))
}

func TestMutationPicksUpOutOfBandChanges(t *testing.T) {
	sb := sandboxtest.Start(t)
	sb.Register(t, "ada@example.com")
	c := newClient(t, sb, "ada@example.com")
	ctx := context.Background()

	main, err := c.ledger.CreateWallet(ctx, "Main", model.WalletChecking)
	require.NoError(t, err)
	other, err := c.ledger.CreateWallet(ctx, "Other", model.WalletChecking)
	require.NoError(t, err)

	// Changed behind the client's back; only a refetch reveals it.
	require.NoError(t, sb.Book().SeedBalance(other.ID, decimal.NewFromInt(999)))

	receipt, err := c.ledger.Deposit(ctx, model.DepositRequest{WalletID: main.ID, Amount: decimal.NewFromInt(1)})
	require.NoError(t, err)
	l := await(t, c.ledger, receipt)

	require.Len(t, l.Wallets, 2)
	assert.True(t, l.Wallets[1].Balance.Equal(decimal.NewFromInt(999)))
}

func TestFollowUpFetchesFirstPage(t *testing.T) {
	sb := sandboxtest.Start(t)
	sb.Register(t, "ada@example.com")
	c := newClient(t, sb, "ada@example.com")
	ctx := context.Background()

	wallet, err := c.ledger.CreateWallet(ctx, "Main", model.WalletChecking)
	require.NoError(t, err)

	var receipt ledger.Receipt
	for i := 0; i < 45; i++ {
		receipt, err = c.ledger.Deposit(ctx, model.DepositRequest{WalletID: wallet.ID, Amount: decimal.NewFromInt(1)})
		require.NoError(t, err)
	}

	l := await(t, c.ledger, receipt)
	assert.Len(t, l.Transactions, ledger.FollowUpPageSize)
	assert.Equal(t, 45, l.TotalTransactions)
	assert.Equal(t, receipt.Transaction.ID, l.Transactions[0].ID)
	require.Len(t, l.Wallets, 1)
	assert.True(t, l.Wallets[0].Balance.Equal(decimal.NewFromInt(45)))
}

func TestRevokedAccessTokenRenewsTransparently(t *testing.T) {
	sb := sandboxtest.Start(t)
	sb.Register(t, "ada@example.com")
	c := newClient(t, sb, "ada@example.com")
	ctx := context.Background()

	before, err := c.creds.Get(ctx)
	require.NoError(t, err)

	sb.Auth().RevokeAccessTokens()

	wallets, err := c.ledger.FetchWallets(ctx)
	require.NoError(t, err)
	assert.Empty(t, wallets)

	after, err := c.creds.Get(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, before.AccessToken, after.AccessToken)
	assert.NotEqual(t, before.RefreshToken, after.RefreshToken)
	assert.True(t, c.store.Session().IsAuthenticated)
}

func TestFailedRenewalForcesLogout(t *testing.T) {
	sb := sandboxtest.Start(t)
	sb.Register(t, "ada@example.com")
	c := newClient(t, sb, "ada@example.com")
	ctx := context.Background()

	_, err := c.ledger.CreateWallet(ctx, "Main", model.WalletChecking)
	require.NoError(t, err)

	sb.Auth().RevokeRefreshTokens()
	sb.Auth().RevokeAccessTokens()

	_, err = c.ledger.FetchWallets(ctx)
	var expired *apierror.SessionExpiredError
	require.ErrorAs(t, err, &expired)

	_, err = c.creds.Get(ctx)
	assert.True(t, errors.Is(err, credstore.ErrNotFound))

	sess := c.store.Session()
	assert.False(t, sess.IsAuthenticated)
	assert.Nil(t, sess.Identity)
	assert.Equal(t, apierror.SessionExpiredMessage, sess.Error)
	assert.Empty(t, c.store.Ledger().Wallets)

	// Without credentials nothing reaches the network.
	_, err = c.ledger.FetchWallets(ctx)
	assert.ErrorIs(t, err, apierror.ErrNotAuthenticated)
}

func TestRepeatedWalletFetchIsStable(t *testing.T) {
	sb := sandboxtest.Start(t)
	sb.Register(t, "ada@example.com")
	c := newClient(t, sb, "ada@example.com")
	ctx := context.Background()

	main, err := c.ledger.CreateWallet(ctx, "Main", model.WalletChecking)
	require.NoError(t, err)
	_, err = c.ledger.CreateWallet(ctx, "Rainy day", model.WalletSavings)
	require.NoError(t, err)
	receipt, err := c.ledger.Deposit(ctx, model.DepositRequest{WalletID: main.ID, Amount: decimal.RequireFromString("12.34")})
	require.NoError(t, err)
	await(t, c.ledger, receipt)

	first, err := c.ledger.FetchWallets(ctx)
	require.NoError(t, err)
	second, err := c.ledger.FetchWallets(ctx)
	require.NoError(t, err)

	require.Len(t, first, 2)
	assert.Equal(t, first, second)
	assert.Equal(t, second, c.store.Ledger().Wallets)
}

func TestRepeatedPageFetchIsStable(t *testing.T) {
	sb := sandboxtest.Start(t)
	sb.Register(t, "ada@example.com")
	c := newClient(t, sb, "ada@example.com")
	ctx := context.Background()

	wallet, err := c.ledger.CreateWallet(ctx, "Main", model.WalletChecking)
	require.NoError(t, err)
	var receipt ledger.Receipt
	for i := 0; i < 45; i++ {
		receipt, err = c.ledger.Deposit(ctx, model.DepositRequest{WalletID: wallet.ID, Amount: decimal.NewFromInt(1)})
		require.NoError(t, err)
	}
	await(t, c.ledger, receipt)

	filter := model.TransactionFilter{Page: model.Ptr(1), Size: model.Ptr(20)}
	var ids []int64
	for i := 0; i < 3; i++ {
		page, err := c.ledger.FetchTransactions(ctx, filter)
		require.NoError(t, err)
		require.Len(t, page.Content, 20)

		l := c.store.Ledger()
		assert.Len(t, l.Transactions, 20)
		assert.Equal(t, 45, l.TotalTransactions)

		got := make([]int64, 0, len(page.Content))
		for _, tx := range page.Content {
			got = append(got, tx.ID)
		}
		if ids == nil {
			ids = got
			continue
		}
		assert.Equal(t, ids, got)
	}
}

func TestSingleReadsAgainstSandbox(t *testing.T) {
	sb := sandboxtest.Start(t)
	sb.Register(t, "ada@example.com")
	c := newClient(t, sb, "ada@example.com")
	ctx := context.Background()

	wallet, err := c.ledger.CreateWallet(ctx, "Main", model.WalletChecking)
	require.NoError(t, err)
	receipt, err := c.ledger.Deposit(ctx, model.DepositRequest{WalletID: wallet.ID, Amount: decimal.NewFromInt(30)})
	require.NoError(t, err)
	await(t, c.ledger, receipt)

	got, err := c.ledger.FetchWallet(ctx, wallet.ID)
	require.NoError(t, err)
	assert.Equal(t, "Main", got.Name)
	assert.True(t, got.Balance.Equal(decimal.NewFromInt(30)))

	tx, err := c.ledger.FetchTransaction(ctx, receipt.Transaction.ID)
	require.NoError(t, err)
	assert.Equal(t, receipt.Transaction.ReferenceNumber, tx.ReferenceNumber)

	_, err = c.ledger.FetchWallet(ctx, wallet.ID+100)
	var httpErr *apierror.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, apierror.CodeWalletNotFound, httpErr.Code)
}
