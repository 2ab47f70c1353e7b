package book

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/congo-pay/walletgate/internal/model"
	"github.com/congo-pay/walletgate/internal/sandbox/respond"
)

const defaultCurrency = "USD"

// product holds the defaults a new wallet of one type starts with.
type product struct {
	minimum    decimal.Decimal
	dailyLimit decimal.Decimal
}

var products = map[model.WalletType]product{
	model.WalletSavings:    {minimum: decimal.NewFromInt(100), dailyLimit: decimal.NewFromInt(50_000)},
	model.WalletChecking:   {minimum: decimal.Zero, dailyLimit: decimal.NewFromInt(100_000)},
	model.WalletInvestment: {minimum: decimal.NewFromInt(1_000), dailyLimit: decimal.NewFromInt(500_000)},
	model.WalletMerchant:   {minimum: decimal.Zero, dailyLimit: decimal.NewFromInt(1_000_000)},
}

func walletNotFound(id int64) error {
	return fmt.Errorf("%w with id: %d", ErrWalletNotFound, id)
}

// CreateWallet opens an empty ACTIVE wallet with the defaults of its type.
func (b *Book) CreateWallet(_ context.Context, userID int64, name string, walletType model.WalletType) (Wallet, error) {
	name = strings.TrimSpace(name)
	fields := map[string]string{}
	if name == "" {
		fields["name"] = "Wallet name is required"
	}
	if walletType == "" {
		fields["walletType"] = "Wallet type is required"
	} else if !walletType.Valid() {
		fields["walletType"] = fmt.Sprintf("Unknown wallet type %q", walletType)
	}
	if err := respond.Validation(fields); err != nil {
		return Wallet{}, err
	}

	p := products[walletType]
	now := b.now()

	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextWallet++
	w := &Wallet{
		ID:             b.nextWallet,
		OwnerID:        userID,
		Number:         fmt.Sprintf("W%d%04d", now.UnixMilli(), rand.IntN(10_000)),
		Name:           name,
		Type:           walletType,
		Balance:        decimal.Zero,
		MinimumBalance: p.minimum,
		DailyLimit:     p.dailyLimit,
		Currency:       defaultCurrency,
		Status:         model.WalletActive,
		CreatedAt:      now,
	}
	b.wallets[w.ID] = w
	return *w, nil
}

// Wallets lists the user's wallets in creation order.
func (b *Book) Wallets(_ context.Context, userID int64) []Wallet {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Wallet, 0)
	for _, w := range b.wallets {
		if w.OwnerID == userID {
			out = append(out, *w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Wallet returns one of the user's wallets.
func (b *Book) Wallet(_ context.Context, userID, walletID int64) (Wallet, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	w, err := b.owned(userID, walletID)
	if err != nil {
		return Wallet{}, err
	}
	return *w, nil
}

// Balance returns the balance snapshot of one of the user's wallets.
func (b *Book) Balance(ctx context.Context, userID, walletID int64) (model.Balance, error) {
	w, err := b.Wallet(ctx, userID, walletID)
	if err != nil {
		return model.Balance{}, err
	}
	return model.Balance{
		WalletID:         w.ID,
		WalletName:       w.Name,
		Balance:          w.Balance,
		AvailableBalance: w.Available(),
		Currency:         w.Currency,
	}, nil
}
