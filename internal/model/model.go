// Package model holds the wire types exchanged with the ledger service.
package model

import (
	"github.com/shopspring/decimal"
)

func init() {
	// The ledger service speaks JSON numbers for amounts, not quoted strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// UserStatus is the lifecycle state of a user account.
type UserStatus string

const (
	UserActive              UserStatus = "ACTIVE"
	UserInactive            UserStatus = "INACTIVE"
	UserSuspended           UserStatus = "SUSPENDED"
	UserPendingVerification UserStatus = "PENDING_VERIFICATION"
)

// User is an immutable snapshot of the authenticated identity. It is replaced
// wholesale on every fetch.
type User struct {
	ID            int64      `json:"id"`
	Email         string     `json:"email"`
	FirstName     string     `json:"firstName"`
	LastName      string     `json:"lastName"`
	PhoneNumber   string     `json:"phoneNumber,omitempty"`
	Status        UserStatus `json:"status"`
	EmailVerified bool       `json:"emailVerified"`
	Roles         []string   `json:"roles"`
	CreatedAt     Time       `json:"createdAt"`
}

// WalletType selects the server-side wallet product.
type WalletType string

const (
	WalletSavings    WalletType = "SAVINGS"
	WalletChecking   WalletType = "CHECKING"
	WalletInvestment WalletType = "INVESTMENT"
	WalletMerchant   WalletType = "MERCHANT"
)

// Valid reports whether t is one of the known wallet types.
func (t WalletType) Valid() bool {
	switch t {
	case WalletSavings, WalletChecking, WalletInvestment, WalletMerchant:
		return true
	}
	return false
}

// WalletStatus is the lifecycle state of a wallet.
type WalletStatus string

const (
	WalletActive   WalletStatus = "ACTIVE"
	WalletInactive WalletStatus = "INACTIVE"
	WalletFrozen   WalletStatus = "FROZEN"
	WalletClosed   WalletStatus = "CLOSED"
)

// Wallet as returned by the server. Balance fields are authoritative and are
// only ever overwritten by a later fetch.
type Wallet struct {
	ID                    int64           `json:"id"`
	WalletNumber          string          `json:"walletNumber"`
	Name                  string          `json:"name"`
	WalletType            WalletType      `json:"walletType"`
	Balance               decimal.Decimal `json:"balance"`
	AvailableBalance      decimal.Decimal `json:"availableBalance"`
	MinimumBalance        decimal.Decimal `json:"minimumBalance"`
	DailyTransactionLimit decimal.Decimal `json:"dailyTransactionLimit"`
	Currency              string          `json:"currency"`
	Status                WalletStatus    `json:"status"`
	CreatedAt             Time            `json:"createdAt"`
}

// Balance is the server's balance snapshot for one wallet.
type Balance struct {
	WalletID         int64           `json:"walletId"`
	WalletName       string          `json:"walletName"`
	Balance          decimal.Decimal `json:"balance"`
	AvailableBalance decimal.Decimal `json:"availableBalance"`
	Currency         string          `json:"currency"`
}

// TransactionType classifies a ledger movement.
type TransactionType string

const (
	TxDeposit    TransactionType = "DEPOSIT"
	TxWithdrawal TransactionType = "WITHDRAWAL"
	TxTransfer   TransactionType = "TRANSFER"
	TxPayment    TransactionType = "PAYMENT"
	TxRefund     TransactionType = "REFUND"
)

// TransactionStatus is the processing state of a transaction.
type TransactionStatus string

const (
	TxPending   TransactionStatus = "PENDING"
	TxCompleted TransactionStatus = "COMPLETED"
	TxFailed    TransactionStatus = "FAILED"
	TxCancelled TransactionStatus = "CANCELLED"
	TxReversed  TransactionStatus = "REVERSED"
)

// Transaction as returned by the server. Amount and Fee are displayed verbatim.
type Transaction struct {
	ID                    int64             `json:"id"`
	ReferenceNumber       string            `json:"referenceNumber"`
	SourceWalletID        *int64            `json:"sourceWalletId,omitempty"`
	SourceWalletName      string            `json:"sourceWalletName,omitempty"`
	DestinationWalletID   *int64            `json:"destinationWalletId,omitempty"`
	DestinationWalletName string            `json:"destinationWalletName,omitempty"`
	Amount                decimal.Decimal   `json:"amount"`
	Fee                   decimal.Decimal   `json:"fee"`
	Type                  TransactionType   `json:"type"`
	Status                TransactionStatus `json:"status"`
	Description           string            `json:"description,omitempty"`
	CreatedAt             Time              `json:"createdAt"`
	CompletedAt           *Time             `json:"completedAt,omitempty"`
}

// Page is one server-driven page of results.
type Page[T any] struct {
	Content       []T  `json:"content"`
	TotalElements int  `json:"totalElements"`
	TotalPages    int  `json:"totalPages"`
	Size          int  `json:"size"`
	Number        int  `json:"number"`
	First         bool `json:"first"`
	Last          bool `json:"last"`
}

// Envelope wraps every response body of the ledger service.
type Envelope[T any] struct {
	Success   bool   `json:"success"`
	Message   string `json:"message,omitempty"`
	ErrorCode string `json:"errorCode,omitempty"`
	Data      T      `json:"data"`
	Timestamp Time   `json:"timestamp"`
}
