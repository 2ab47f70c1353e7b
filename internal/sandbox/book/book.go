// Package book is the sandbox's wallet and transaction ledger. Balances are
// decimals held in memory; every movement is recorded as a completed
// transaction.
package book

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/congo-pay/walletgate/internal/model"
	"github.com/congo-pay/walletgate/internal/sandbox/notify"
)

var (
	// ErrWalletNotFound is returned for an unknown wallet ID.
	ErrWalletNotFound = errors.New("wallet not found")
	// ErrTransactionNotFound is returned for an unknown transaction ID.
	ErrTransactionNotFound = errors.New("transaction not found")
	// ErrForbidden is returned when the caller does not own the wallet or
	// take part in the transaction.
	ErrForbidden = errors.New("you don't have access to this resource")
	// ErrInsufficientBalance is returned when a debit exceeds the balance.
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrSameWallet is returned for a transfer from a wallet to itself.
	ErrSameWallet = errors.New("source and destination wallets cannot be the same")
	// ErrWalletInactive is returned when moving funds through a wallet that
	// is not ACTIVE.
	ErrWalletInactive = errors.New("wallet is not active")
)

// Wallet is a stored value account owned by one user.
type Wallet struct {
	ID             int64
	OwnerID        int64
	Number         string
	Name           string
	Type           model.WalletType
	Balance        decimal.Decimal
	MinimumBalance decimal.Decimal
	DailyLimit     decimal.Decimal
	Currency       string
	Status         model.WalletStatus
	CreatedAt      time.Time
}

// Available is the balance above the wallet's minimum.
func (w Wallet) Available() decimal.Decimal {
	return w.Balance.Sub(w.MinimumBalance)
}

// View is the wire form of w.
func (w Wallet) View() model.Wallet {
	return model.Wallet{
		ID:                    w.ID,
		WalletNumber:          w.Number,
		Name:                  w.Name,
		WalletType:            w.Type,
		Balance:               w.Balance,
		AvailableBalance:      w.Available(),
		MinimumBalance:        w.MinimumBalance,
		DailyTransactionLimit: w.DailyLimit,
		Currency:              w.Currency,
		Status:                w.Status,
		CreatedAt:             model.NewTime(w.CreatedAt),
	}
}

// leg is one side of a transaction.
type leg struct {
	walletID int64
	ownerID  int64
	name     string
}

// Transaction is a recorded movement. A deposit has no source and a
// withdrawal no destination.
type Transaction struct {
	ID          int64
	Reference   string
	source      *leg
	destination *leg
	Amount      decimal.Decimal
	Fee         decimal.Decimal
	Type        model.TransactionType
	Status      model.TransactionStatus
	Description string
	CreatedAt   time.Time
	CompletedAt time.Time
}

func (t Transaction) involves(userID int64) bool {
	return (t.source != nil && t.source.ownerID == userID) ||
		(t.destination != nil && t.destination.ownerID == userID)
}

func (t Transaction) touches(walletID int64) bool {
	return (t.source != nil && t.source.walletID == walletID) ||
		(t.destination != nil && t.destination.walletID == walletID)
}

// View is the wire form of t.
func (t Transaction) View() model.Transaction {
	v := model.Transaction{
		ID:              t.ID,
		ReferenceNumber: t.Reference,
		Amount:          t.Amount,
		Fee:             t.Fee,
		Type:            t.Type,
		Status:          t.Status,
		Description:     t.Description,
		CreatedAt:       model.NewTime(t.CreatedAt),
	}
	if t.source != nil {
		v.SourceWalletID = model.Ptr(t.source.walletID)
		v.SourceWalletName = t.source.name
	}
	if t.destination != nil {
		v.DestinationWalletID = model.Ptr(t.destination.walletID)
		v.DestinationWalletName = t.destination.name
	}
	if !t.CompletedAt.IsZero() {
		v.CompletedAt = model.Ptr(model.NewTime(t.CompletedAt))
	}
	return v
}

// Book is safe for concurrent use. Each operation holds the lock for its
// whole read-check-write so concurrent movements on one wallet serialize.
type Book struct {
	notifier notify.Notifier
	logger   *slog.Logger
	now      func() time.Time

	mu           sync.RWMutex
	nextWallet   int64
	nextTx       int64
	wallets      map[int64]*Wallet
	transactions []Transaction
}

// New builds an empty book. notifier may be nil.
func New(notifier notify.Notifier, logger *slog.Logger) *Book {
	return &Book{
		notifier: notifier,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
		wallets:  make(map[int64]*Wallet),
	}
}

func (b *Book) notify(ctx context.Context, msg notify.Message) {
	if b.notifier == nil {
		return
	}
	if err := b.notifier.Send(ctx, msg); err != nil {
		b.logger.Warn("notification failed", slog.String("kind", msg.Kind), slog.Any("error", err))
	}
}

// owned returns the wallet if it exists and belongs to userID. Callers hold mu.
func (b *Book) owned(userID, walletID int64) (*Wallet, error) {
	w, ok := b.wallets[walletID]
	if !ok {
		return nil, walletNotFound(walletID)
	}
	if w.OwnerID != userID {
		return nil, ErrForbidden
	}
	return w, nil
}
