package book

import (
	"github.com/shopspring/decimal"

	"github.com/congo-pay/walletgate/internal/model"
)

// SeedBalance overwrites a wallet's balance without recording a transaction.
// It stands in for changes made out of band, by another device or a back
// office, that a client only learns about by refetching.
func (b *Book) SeedBalance(walletID int64, amount decimal.Decimal) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	w, ok := b.wallets[walletID]
	if !ok {
		return walletNotFound(walletID)
	}
	w.Balance = amount
	return nil
}

// SetStatus changes a wallet's lifecycle state.
func (b *Book) SetStatus(walletID int64, status model.WalletStatus) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	w, ok := b.wallets[walletID]
	if !ok {
		return walletNotFound(walletID)
	}
	w.Status = status
	return nil
}
