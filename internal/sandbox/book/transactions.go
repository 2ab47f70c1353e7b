package book

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/congo-pay/walletgate/internal/model"
	"github.com/congo-pay/walletgate/internal/sandbox/notify"
	"github.com/congo-pay/walletgate/internal/sandbox/respond"
)

// Paging limits of the history listing.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Query selects a page of a user's history. Start and End are inclusive
// calendar days in UTC.
type Query struct {
	WalletID *int64
	Type     model.TransactionType
	Start    *time.Time
	End      *time.Time
	Page     int
	Size     int
}

// Deposit credits one of the user's wallets.
func (b *Book) Deposit(_ context.Context, userID int64, req model.DepositRequest) (Transaction, error) {
	if err := validateMovement("walletId", req.WalletID, req.Amount); err != nil {
		return Transaction{}, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	w, err := b.activeOwned(userID, req.WalletID)
	if err != nil {
		return Transaction{}, err
	}

	w.Balance = w.Balance.Add(req.Amount)
	return b.record(Transaction{
		destination: legOf(w),
		Amount:      req.Amount,
		Type:        model.TxDeposit,
		Description: describe(req.Description, "Deposit"),
	}), nil
}

// Withdraw debits one of the user's wallets. The whole balance may be
// withdrawn; the minimum balance is informational.
func (b *Book) Withdraw(_ context.Context, userID int64, req model.WithdrawRequest) (Transaction, error) {
	if err := validateMovement("walletId", req.WalletID, req.Amount); err != nil {
		return Transaction{}, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	w, err := b.activeOwned(userID, req.WalletID)
	if err != nil {
		return Transaction{}, err
	}
	if w.Balance.LessThan(req.Amount) {
		return Transaction{}, insufficient(w.ID, req.Amount)
	}

	w.Balance = w.Balance.Sub(req.Amount)
	return b.record(Transaction{
		source:      legOf(w),
		Amount:      req.Amount,
		Type:        model.TxWithdrawal,
		Description: describe(req.Description, "Withdrawal"),
	}), nil
}

// Transfer moves funds from one of the user's wallets to any active wallet.
// The destination owner is notified when it is someone else.
func (b *Book) Transfer(ctx context.Context, userID int64, req model.TransferRequest) (Transaction, error) {
	if err := validateMovement("sourceWalletId", req.SourceWalletID, req.Amount); err != nil {
		return Transaction{}, err
	}
	if req.DestinationWalletID <= 0 {
		return Transaction{}, respond.Validation(map[string]string{"destinationWalletId": "Destination wallet ID is required"})
	}
	if req.SourceWalletID == req.DestinationWalletID {
		return Transaction{}, ErrSameWallet
	}

	b.mu.Lock()
	src, err := b.owned(userID, req.SourceWalletID)
	if err != nil {
		b.mu.Unlock()
		return Transaction{}, err
	}
	dst, ok := b.wallets[req.DestinationWalletID]
	if !ok {
		b.mu.Unlock()
		return Transaction{}, walletNotFound(req.DestinationWalletID)
	}
	if src.Status != model.WalletActive || dst.Status != model.WalletActive {
		b.mu.Unlock()
		return Transaction{}, ErrWalletInactive
	}
	if src.Balance.LessThan(req.Amount) {
		b.mu.Unlock()
		return Transaction{}, insufficient(src.ID, req.Amount)
	}

	src.Balance = src.Balance.Sub(req.Amount)
	dst.Balance = dst.Balance.Add(req.Amount)
	tx := b.record(Transaction{
		source:      legOf(src),
		destination: legOf(dst),
		Amount:      req.Amount,
		Type:        model.TxTransfer,
		Description: describe(req.Description, "Transfer"),
	})
	recipient := dst.OwnerID
	b.mu.Unlock()

	if recipient != userID {
		b.notify(ctx, notify.Message{
			Kind:   notify.KindTransferReceived,
			UserID: recipient,
			Body:   fmt.Sprintf("You received %s %s (ref %s)", req.Amount.StringFixed(2), dst.Currency, tx.Reference),
		})
	}
	return tx, nil
}

// Transactions returns one page of the user's history, newest first.
func (b *Book) Transactions(_ context.Context, userID int64, q Query) (model.Page[model.Transaction], error) {
	size := q.Size
	if size <= 0 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	page := max(q.Page, 0)

	var from, until time.Time
	if q.Start != nil {
		from = startOfDay(*q.Start)
	}
	if q.End != nil {
		until = startOfDay(*q.End).AddDate(0, 0, 1)
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if q.WalletID != nil {
		if _, err := b.owned(userID, *q.WalletID); err != nil {
			return model.Page[model.Transaction]{}, err
		}
	}

	// Transactions are appended in creation order.
	matched := make([]Transaction, 0)
	for i := len(b.transactions) - 1; i >= 0; i-- {
		t := b.transactions[i]
		switch {
		case !t.involves(userID):
		case q.WalletID != nil && !t.touches(*q.WalletID):
		case q.Type != "" && t.Type != q.Type:
		case !from.IsZero() && t.CreatedAt.Before(from):
		case !until.IsZero() && !t.CreatedAt.Before(until):
		default:
			matched = append(matched, t)
		}
	}

	total := len(matched)
	totalPages := (total + size - 1) / size
	content := make([]model.Transaction, 0, size)
	for i := page * size; i < total && i < (page+1)*size; i++ {
		content = append(content, matched[i].View())
	}

	return model.Page[model.Transaction]{
		Content:       content,
		TotalElements: total,
		TotalPages:    totalPages,
		Size:          size,
		Number:        page,
		First:         page == 0,
		Last:          page >= totalPages-1,
	}, nil
}

// Transaction returns a transaction the user took part in.
func (b *Book) Transaction(_ context.Context, userID, id int64) (Transaction, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if id <= 0 || id > int64(len(b.transactions)) {
		return Transaction{}, fmt.Errorf("%w: %d", ErrTransactionNotFound, id)
	}
	t := b.transactions[id-1]
	if !t.involves(userID) {
		return Transaction{}, ErrForbidden
	}
	return t, nil
}

// activeOwned is owned plus the ACTIVE check. Callers hold mu.
func (b *Book) activeOwned(userID, walletID int64) (*Wallet, error) {
	w, err := b.owned(userID, walletID)
	if err != nil {
		return nil, err
	}
	if w.Status != model.WalletActive {
		return nil, ErrWalletInactive
	}
	return w, nil
}

// record completes and stores t. Callers hold mu.
func (b *Book) record(t Transaction) Transaction {
	now := b.now()
	b.nextTx++
	t.ID = b.nextTx
	t.Reference = reference(now)
	t.Fee = decimal.Zero
	t.Status = model.TxCompleted
	t.CreatedAt = now
	t.CompletedAt = now
	b.transactions = append(b.transactions, t)
	return t
}

func legOf(w *Wallet) *leg {
	return &leg{walletID: w.ID, ownerID: w.OwnerID, name: w.Name}
}

func reference(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:8]
	return "TXN" + now.Format("20060102") + suffix
}

func describe(description, fallback string) string {
	if d := strings.TrimSpace(description); d != "" {
		return d
	}
	return fallback
}

func insufficient(walletID int64, amount decimal.Decimal) error {
	return fmt.Errorf("%w in wallet %d for amount %s", ErrInsufficientBalance, walletID, amount.String())
}

func validateMovement(walletField string, walletID int64, amount decimal.Decimal) error {
	fields := map[string]string{}
	if walletID <= 0 {
		fields[walletField] = "Wallet ID is required"
	}
	if !amount.IsPositive() {
		fields["amount"] = "Amount must be greater than 0"
	}
	return respond.Validation(fields)
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
