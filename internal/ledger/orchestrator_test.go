package ledger

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/congo-pay/walletgate/internal/apierror"
	"github.com/congo-pay/walletgate/internal/logging"
	"github.com/congo-pay/walletgate/internal/model"
	"github.com/congo-pay/walletgate/internal/state"
)

// fakeAPI serves canned data. When gate is set, Wallets blocks until it is
// closed so tests can observe the window between mutation and refresh;
// txGate does the same for Transactions.
type fakeAPI struct {
	mu          sync.Mutex
	wallets     []model.Wallet
	walletsErr  error
	page        model.Page[model.Transaction]
	mutationErr error
	gate        chan struct{}
	txGate      chan struct{}

	walletCalls int
	filters     []model.TransactionFilter
}

func (f *fakeAPI) Wallets(ctx context.Context) ([]model.Wallet, error) {
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.walletCalls++
	return append([]model.Wallet(nil), f.wallets...), f.walletsErr
}

func (f *fakeAPI) Wallet(_ context.Context, id int64) (model.Wallet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, w := range f.wallets {
		if w.ID == id {
			return w, nil
		}
	}
	return model.Wallet{}, &apierror.HTTPError{Status: http.StatusNotFound, Code: apierror.CodeWalletNotFound, Message: "Wallet not found"}
}

func (f *fakeAPI) Transaction(_ context.Context, id int64) (model.Transaction, error) {
	return model.Transaction{ID: id, Type: model.TxDeposit}, nil
}

func (f *fakeAPI) CreateWallet(_ context.Context, req model.CreateWalletRequest) (model.Wallet, error) {
	return model.Wallet{ID: 99, Name: req.Name, WalletType: req.WalletType}, nil
}

func (f *fakeAPI) Balance(_ context.Context, walletID int64) (model.Balance, error) {
	return model.Balance{WalletID: walletID, Balance: decimal.NewFromInt(1)}, nil
}

func (f *fakeAPI) Transactions(ctx context.Context, filter model.TransactionFilter) (model.Page[model.Transaction], error) {
	if f.txGate != nil {
		select {
		case <-f.txGate:
		case <-ctx.Done():
			return model.Page[model.Transaction]{}, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filters = append(f.filters, filter)
	return f.page, nil
}

func (f *fakeAPI) Deposit(_ context.Context, req model.DepositRequest) (model.Transaction, error) {
	if f.mutationErr != nil {
		return model.Transaction{}, f.mutationErr
	}
	return model.Transaction{ID: 1, Amount: req.Amount, Type: model.TxDeposit, Status: model.TxCompleted}, nil
}

func (f *fakeAPI) Withdraw(_ context.Context, req model.WithdrawRequest) (model.Transaction, error) {
	if f.mutationErr != nil {
		return model.Transaction{}, f.mutationErr
	}
	return model.Transaction{ID: 2, Amount: req.Amount, Type: model.TxWithdrawal}, nil
}

func (f *fakeAPI) Transfer(_ context.Context, req model.TransferRequest) (model.Transaction, error) {
	if f.mutationErr != nil {
		return model.Transaction{}, f.mutationErr
	}
	return model.Transaction{ID: 3, Amount: req.Amount, Type: model.TxTransfer}, nil
}

func TestDepositReturnsBeforeRefreshAndConverges(t *testing.T) {
	api := &fakeAPI{
		wallets: []model.Wallet{{ID: 1, Balance: decimal.RequireFromString("150")}},
		page:    model.Page[model.Transaction]{Content: []model.Transaction{{ID: 1, Type: model.TxDeposit}}, TotalElements: 1},
		gate:    make(chan struct{}),
	}
	store := state.New()
	o := New(api, store, logging.Discard())
	ctx := context.Background()

	receipt, err := o.Deposit(ctx, model.DepositRequest{WalletID: 1, Amount: decimal.NewFromInt(50)})
	require.NoError(t, err)
	assert.EqualValues(t, 1, receipt.Generation)
	assert.Equal(t, model.TxDeposit, receipt.Transaction.Type)

	// The wallet refresh is still blocked; the mutation did not wait for it.
	assert.Less(t, store.Ledger().Converged, receipt.Generation)

	close(api.gate)
	waitCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	ledger, err := o.AwaitConsistent(waitCtx, receipt.Generation)
	require.NoError(t, err)

	require.Len(t, ledger.Wallets, 1)
	assert.True(t, ledger.Wallets[0].Balance.Equal(decimal.RequireFromString("150")))
	assert.Equal(t, 1, ledger.TotalTransactions)
	assert.False(t, ledger.IsLoading)

	o.Wait()
	assert.Equal(t, 1, api.walletCalls)
	require.Len(t, api.filters, 1)
	require.NotNil(t, api.filters[0].Size)
	assert.Equal(t, FollowUpPageSize, *api.filters[0].Size)
	assert.Nil(t, api.filters[0].Page)
}

func TestEveryMutationKindRefreshes(t *testing.T) {
	api := &fakeAPI{}
	store := state.New()
	o := New(api, store, logging.Discard())
	ctx := context.Background()

	_, err := o.Deposit(ctx, model.DepositRequest{WalletID: 1, Amount: decimal.NewFromInt(1)})
	require.NoError(t, err)
	_, err = o.Withdraw(ctx, model.WithdrawRequest{WalletID: 1, Amount: decimal.NewFromInt(1)})
	require.NoError(t, err)
	last, err := o.Transfer(ctx, model.TransferRequest{SourceWalletID: 1, DestinationWalletID: 2, Amount: decimal.NewFromInt(1)})
	require.NoError(t, err)
	assert.EqualValues(t, 3, last.Generation)

	o.Wait()
	assert.Equal(t, 3, api.walletCalls)
	assert.Len(t, api.filters, 3)
	assert.EqualValues(t, 3, store.Ledger().Converged)
}

func TestRejectedMutationDoesNotRefresh(t *testing.T) {
	api := &fakeAPI{mutationErr: &apierror.HTTPError{Status: http.StatusBadRequest, Code: apierror.CodeInsufficient, Message: "Insufficient balance"}}
	store := state.New()
	store.WalletsFetched(0, []model.Wallet{{ID: 1, Balance: decimal.NewFromInt(10)}})
	o := New(api, store, logging.Discard())

	_, err := o.Withdraw(context.Background(), model.WithdrawRequest{WalletID: 1, Amount: decimal.NewFromInt(50)})
	require.Error(t, err)
	o.Wait()

	ledger := store.Ledger()
	assert.Equal(t, "Insufficient balance", ledger.Error)
	assert.Zero(t, ledger.Generation)
	assert.Zero(t, api.walletCalls)
	require.Len(t, ledger.Wallets, 1)
	assert.True(t, ledger.Wallets[0].Balance.Equal(decimal.NewFromInt(10)))
}

func TestServerFailureUsesFallbackMessage(t *testing.T) {
	cases := []struct {
		name string
		run  func(*Orchestrator) error
		want string
	}{
		{"deposit", func(o *Orchestrator) error {
			_, err := o.Deposit(context.Background(), model.DepositRequest{})
			return err
		}, "Deposit failed"},
		{"withdraw", func(o *Orchestrator) error {
			_, err := o.Withdraw(context.Background(), model.WithdrawRequest{})
			return err
		}, "Withdrawal failed"},
		{"transfer", func(o *Orchestrator) error {
			_, err := o.Transfer(context.Background(), model.TransferRequest{})
			return err
		}, "Transfer failed"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			api := &fakeAPI{mutationErr: &apierror.HTTPError{Status: http.StatusInternalServerError, Message: "stack trace"}}
			store := state.New()
			o := New(api, store, logging.Discard())
			require.Error(t, tc.run(o))
			assert.Equal(t, tc.want, store.Ledger().Error)
		})
	}
}

func TestFailedFollowUpStillSettles(t *testing.T) {
	api := &fakeAPI{walletsErr: &apierror.NetworkError{Op: "GET /wallets", Err: errors.New("reset")}}
	store := state.New()
	o := New(api, store, logging.Discard())

	receipt, err := o.Deposit(context.Background(), model.DepositRequest{WalletID: 1, Amount: decimal.NewFromInt(5)})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	ledger, err := o.AwaitConsistent(ctx, receipt.Generation)
	require.NoError(t, err)
	assert.Equal(t, "Failed to fetch wallets", ledger.Error)
}

func TestFollowUpFailureSurvivesSiblingFetch(t *testing.T) {
	api := &fakeAPI{
		walletsErr: &apierror.NetworkError{Op: "GET /wallets", Err: errors.New("reset")},
		page:       model.Page[model.Transaction]{TotalElements: 4},
		txGate:     make(chan struct{}),
	}
	store := state.New()
	o := New(api, store, logging.Discard())
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	receipt, err := o.Deposit(ctx, model.DepositRequest{WalletID: 1, Amount: decimal.NewFromInt(5)})
	require.NoError(t, err)

	// Both follow-ups are pending before Deposit returns.
	assert.True(t, store.Ledger().IsLoading)

	// The wallet fetch fails while the history fetch is still held back.
	_, err = store.WaitLedger(ctx, func(l state.LedgerState) bool { return l.Error != "" })
	require.NoError(t, err)
	close(api.txGate)

	ledger, err := o.AwaitConsistent(ctx, receipt.Generation)
	require.NoError(t, err)
	assert.Equal(t, "Failed to fetch wallets", ledger.Error)
	assert.Equal(t, 4, ledger.TotalTransactions)
	assert.False(t, ledger.IsLoading)
}

func TestSingleReadsLeaveCache(t *testing.T) {
	api := &fakeAPI{wallets: []model.Wallet{{ID: 4, Name: "Main", Balance: decimal.NewFromInt(9)}}}
	store := state.New()
	o := New(api, store, logging.Discard())
	ctx := context.Background()

	w, err := o.FetchWallet(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, "Main", w.Name)

	_, err = o.FetchWallet(ctx, 5)
	var httpErr *apierror.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusNotFound, httpErr.Status)

	tx, err := o.FetchTransaction(ctx, 12)
	require.NoError(t, err)
	assert.EqualValues(t, 12, tx.ID)

	assert.Empty(t, store.Ledger().Wallets)
	assert.Empty(t, store.Ledger().Transactions)
}

func TestCreateWalletAppends(t *testing.T) {
	api := &fakeAPI{wallets: []model.Wallet{{ID: 1, Name: "Main"}}}
	store := state.New()
	o := New(api, store, logging.Discard())
	ctx := context.Background()

	_, err := o.FetchWallets(ctx)
	require.NoError(t, err)
	created, err := o.CreateWallet(ctx, "Rainy day", model.WalletSavings)
	require.NoError(t, err)
	assert.EqualValues(t, 99, created.ID)

	wallets := store.Ledger().Wallets
	require.Len(t, wallets, 2)
	assert.Equal(t, "Rainy day", wallets[1].Name)
}

func TestFetchBalanceLeavesCache(t *testing.T) {
	api := &fakeAPI{}
	store := state.New()
	store.WalletsFetched(0, []model.Wallet{{ID: 4, Balance: decimal.NewFromInt(7)}})
	o := New(api, store, logging.Discard())

	bal, err := o.FetchBalance(context.Background(), 4)
	require.NoError(t, err)
	assert.True(t, bal.Balance.Equal(decimal.NewFromInt(1)))
	assert.True(t, store.Ledger().Wallets[0].Balance.Equal(decimal.NewFromInt(7)))
}

func TestSelectAndClearError(t *testing.T) {
	store := state.New()
	o := New(&fakeAPI{}, store, logging.Discard())

	w := model.Wallet{ID: 5, Name: "Pick me"}
	o.SelectWallet(&w)
	require.NotNil(t, store.Ledger().SelectedWallet)
	assert.EqualValues(t, 5, store.Ledger().SelectedWallet.ID)

	store.LedgerRejected("boom")
	o.ClearError()
	assert.Empty(t, store.Ledger().Error)
}
