// Package ledger orchestrates wallet and transaction operations against the
// ledger service and keeps the ledger slice of the store converging to the
// server after every mutation.
package ledger

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/congo-pay/walletgate/internal/apierror"
	"github.com/congo-pay/walletgate/internal/logging"
	"github.com/congo-pay/walletgate/internal/model"
	"github.com/congo-pay/walletgate/internal/state"
)

// FollowUpPageSize is the history page size refetched after a mutation.
const FollowUpPageSize = 20

// Fallback messages used when the server provides none.
const (
	msgFetchWallets      = "Failed to fetch wallets"
	msgCreateWallet      = "Failed to create wallet"
	msgFetchTransactions = "Failed to fetch transactions"
	msgDeposit           = "Deposit failed"
	msgWithdraw          = "Withdrawal failed"
	msgTransfer          = "Transfer failed"
)

// API is the subset of the ledger service the orchestrator calls.
type API interface {
	Wallets(ctx context.Context) ([]model.Wallet, error)
	Wallet(ctx context.Context, id int64) (model.Wallet, error)
	CreateWallet(ctx context.Context, req model.CreateWalletRequest) (model.Wallet, error)
	Balance(ctx context.Context, walletID int64) (model.Balance, error)
	Transactions(ctx context.Context, filter model.TransactionFilter) (model.Page[model.Transaction], error)
	Transaction(ctx context.Context, id int64) (model.Transaction, error)
	Deposit(ctx context.Context, req model.DepositRequest) (model.Transaction, error)
	Withdraw(ctx context.Context, req model.WithdrawRequest) (model.Transaction, error)
	Transfer(ctx context.Context, req model.TransferRequest) (model.Transaction, error)
}

// Receipt is the result of an accepted mutation. Generation is the token to
// pass to AwaitConsistent.
type Receipt struct {
	Transaction model.Transaction
	Generation  uint64
}

// Orchestrator is safe for concurrent use.
type Orchestrator struct {
	api    API
	store  *state.Store
	logger *slog.Logger
	wg     sync.WaitGroup
}

// New builds a ledger orchestrator.
func New(api API, store *state.Store, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		api:    api,
		store:  store,
		logger: logging.Component(logger, "ledger"),
	}
}

// FetchWallets replaces the wallet cache with the server's list.
func (o *Orchestrator) FetchWallets(ctx context.Context) ([]model.Wallet, error) {
	return o.fetchWallets(ctx, o.store.LedgerPending())
}

func (o *Orchestrator) fetchWallets(ctx context.Context, asOf uint64) ([]model.Wallet, error) {
	wallets, err := o.api.Wallets(ctx)
	if err != nil {
		o.store.LedgerRejected(apierror.Message(err, msgFetchWallets))
		return nil, err
	}

	o.store.WalletsFetched(asOf, wallets)
	return wallets, nil
}

// CreateWallet opens a wallet and appends the server's entity to the cache.
func (o *Orchestrator) CreateWallet(ctx context.Context, name string, walletType model.WalletType) (model.Wallet, error) {
	asOf := o.store.LedgerPending()

	wallet, err := o.api.CreateWallet(ctx, model.CreateWalletRequest{Name: name, WalletType: walletType})
	if err != nil {
		o.store.LedgerRejected(apierror.Message(err, msgCreateWallet))
		return model.Wallet{}, err
	}

	o.store.WalletCreated(asOf, wallet)
	o.logger.Info("wallet created", slog.Int64("wallet_id", wallet.ID), slog.String("type", string(wallet.WalletType)))
	return wallet, nil
}

// FetchTransactions replaces the history cache with the requested page.
func (o *Orchestrator) FetchTransactions(ctx context.Context, filter model.TransactionFilter) (model.Page[model.Transaction], error) {
	return o.fetchTransactions(ctx, o.store.LedgerPending(), filter)
}

func (o *Orchestrator) fetchTransactions(ctx context.Context, asOf uint64, filter model.TransactionFilter) (model.Page[model.Transaction], error) {
	page, err := o.api.Transactions(ctx, filter)
	if err != nil {
		o.store.LedgerRejected(apierror.Message(err, msgFetchTransactions))
		return model.Page[model.Transaction]{}, err
	}

	o.store.TransactionsFetched(asOf, page)
	return page, nil
}

// FetchBalance reads a wallet's balance snapshot. The cache is not touched;
// it is refreshed only by FetchWallets.
func (o *Orchestrator) FetchBalance(ctx context.Context, walletID int64) (model.Balance, error) {
	return o.api.Balance(ctx, walletID)
}

// FetchWallet reads one wallet. Like FetchBalance it leaves the cache alone.
func (o *Orchestrator) FetchWallet(ctx context.Context, walletID int64) (model.Wallet, error) {
	return o.api.Wallet(ctx, walletID)
}

// FetchTransaction reads one transaction by id.
func (o *Orchestrator) FetchTransaction(ctx context.Context, transactionID int64) (model.Transaction, error) {
	return o.api.Transaction(ctx, transactionID)
}

// Deposit credits a wallet. It returns as soon as the server accepts; the
// cache catches up asynchronously (see AwaitConsistent).
func (o *Orchestrator) Deposit(ctx context.Context, req model.DepositRequest) (Receipt, error) {
	return o.mutate(ctx, "deposit", msgDeposit, func(ctx context.Context) (model.Transaction, error) {
		return o.api.Deposit(ctx, req)
	})
}

// Withdraw debits a wallet.
func (o *Orchestrator) Withdraw(ctx context.Context, req model.WithdrawRequest) (Receipt, error) {
	return o.mutate(ctx, "withdraw", msgWithdraw, func(ctx context.Context) (model.Transaction, error) {
		return o.api.Withdraw(ctx, req)
	})
}

// Transfer moves funds between two wallets.
func (o *Orchestrator) Transfer(ctx context.Context, req model.TransferRequest) (Receipt, error) {
	return o.mutate(ctx, "transfer", msgTransfer, func(ctx context.Context) (model.Transaction, error) {
		return o.api.Transfer(ctx, req)
	})
}

func (o *Orchestrator) mutate(ctx context.Context, kind, fallback string, call func(context.Context) (model.Transaction, error)) (Receipt, error) {
	o.store.MutationPending()

	tx, err := call(ctx)
	if err != nil {
		o.store.MutationRejected(apierror.Message(err, fallback))
		return Receipt{}, err
	}

	generation := o.store.MutationCommitted()
	o.logger.Info("mutation accepted",
		slog.String("kind", kind),
		slog.Int64("transaction_id", tx.ID),
		slog.String("reference", tx.ReferenceNumber),
		slog.Uint64("generation", generation),
	)
	o.refetch(ctx, generation)

	return Receipt{Transaction: tx, Generation: generation}, nil
}

// refetch refreshes wallets and the first history page in the background and
// marks generation settled once both calls have returned. Both fetches are
// marked pending before either starts, so one settling cannot have its error
// cleared by the other going pending.
func (o *Orchestrator) refetch(ctx context.Context, generation uint64) {
	detached := context.WithoutCancel(ctx)
	walletsAsOf := o.store.LedgerPending()
	txAsOf := o.store.LedgerPending()

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		defer o.store.RefetchSettled(generation)

		var g errgroup.Group
		g.Go(func() error {
			_, err := o.fetchWallets(detached, walletsAsOf)
			return err
		})
		g.Go(func() error {
			_, err := o.fetchTransactions(detached, txAsOf, model.TransactionFilter{Size: model.Ptr(FollowUpPageSize)})
			return err
		})
		if err := g.Wait(); err != nil {
			o.logger.Warn("follow-up refresh failed", slog.Uint64("generation", generation), "error", err)
		}
	}()
}

// AwaitConsistent blocks until the follow-up fetches of generation have
// settled, successfully or not, and returns the ledger slice at that point.
func (o *Orchestrator) AwaitConsistent(ctx context.Context, generation uint64) (state.LedgerState, error) {
	return o.store.WaitLedger(ctx, func(l state.LedgerState) bool {
		return l.Converged >= generation
	})
}

// Wait blocks until every background refresh has finished.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// SelectWallet sets or clears the selected wallet.
func (o *Orchestrator) SelectWallet(wallet *model.Wallet) {
	o.store.SelectWallet(wallet)
}

// ClearError empties the ledger error.
func (o *Orchestrator) ClearError() {
	o.store.ClearLedgerError()
}
