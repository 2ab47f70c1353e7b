package model

import (
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	PhoneNumber string `json:"phoneNumber,omitempty"`
}

// RefreshRequest is the body of POST /auth/refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// AuthResponse is returned by login and refresh.
type AuthResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	TokenType    string `json:"tokenType"`
	ExpiresIn    int64  `json:"expiresIn"`
	User         User   `json:"user"`
}

// CreateWalletRequest is the body of POST /wallets.
type CreateWalletRequest struct {
	Name       string     `json:"name"`
	WalletType WalletType `json:"walletType"`
}

// DepositRequest is the body of POST /transactions/deposit.
type DepositRequest struct {
	WalletID    int64           `json:"walletId"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description,omitempty"`
}

// WithdrawRequest is the body of POST /transactions/withdraw.
type WithdrawRequest struct {
	WalletID    int64           `json:"walletId"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description,omitempty"`
}

// TransferRequest is the body of POST /transactions/transfer.
type TransferRequest struct {
	SourceWalletID      int64           `json:"sourceWalletId"`
	DestinationWalletID int64           `json:"destinationWalletId"`
	Amount              decimal.Decimal `json:"amount"`
	Description         string          `json:"description,omitempty"`
}

// DateLayout is the ISO date format of the transaction date filters.
const DateLayout = "2006-01-02"

// TransactionFilter selects a page of transaction history. Nil fields are not
// sent and the server applies its defaults.
type TransactionFilter struct {
	WalletID  *int64
	Type      TransactionType
	StartDate *time.Time
	EndDate   *time.Time
	Page      *int
	Size      *int
}

// Query encodes the filter as query parameters.
func (f TransactionFilter) Query() url.Values {
	q := url.Values{}
	if f.WalletID != nil {
		q.Set("walletId", strconv.FormatInt(*f.WalletID, 10))
	}
	if f.Type != "" {
		q.Set("type", string(f.Type))
	}
	if f.StartDate != nil {
		q.Set("startDate", f.StartDate.Format(DateLayout))
	}
	if f.EndDate != nil {
		q.Set("endDate", f.EndDate.Format(DateLayout))
	}
	if f.Page != nil {
		q.Set("page", strconv.Itoa(*f.Page))
	}
	if f.Size != nil {
		q.Set("size", strconv.Itoa(*f.Size))
	}
	return q
}

// Ptr returns a pointer to v, for filling optional filter fields.
func Ptr[T any](v T) *T {
	return &v
}
