package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimeAcceptsZonelessTimestamps(t *testing.T) {
	var tx Transaction
	body := `{"id":1,"amount":50.00,"fee":0,"type":"DEPOSIT","status":"COMPLETED","createdAt":"2025-03-01T10:15:30.123","completedAt":"2025-03-01T10:15:31Z"}`
	require.NoError(t, json.Unmarshal([]byte(body), &tx))

	assert.Equal(t, time.Date(2025, 3, 1, 10, 15, 30, 123_000_000, time.UTC), tx.CreatedAt.Time)
	require.NotNil(t, tx.CompletedAt)
	assert.Equal(t, time.Date(2025, 3, 1, 10, 15, 31, 0, time.UTC), tx.CompletedAt.Time)
	assert.True(t, tx.Amount.Equal(decimal.RequireFromString("50")))
}

func TestAmountsMarshalAsNumbers(t *testing.T) {
	payload, err := json.Marshal(DepositRequest{WalletID: 7, Amount: decimal.RequireFromString("50.00")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"walletId":7,"amount":50.00}`, string(payload))
}

func TestTransactionFilterQuery(t *testing.T) {
	start := time.Date(2025, 1, 2, 15, 0, 0, 0, time.UTC)
	f := TransactionFilter{
		WalletID:  Ptr(int64(7)),
		Type:      TxTransfer,
		StartDate: &start,
		Page:      Ptr(1),
		Size:      Ptr(20),
	}

	q := f.Query()
	assert.Equal(t, "7", q.Get("walletId"))
	assert.Equal(t, "TRANSFER", q.Get("type"))
	assert.Equal(t, "2025-01-02", q.Get("startDate"))
	assert.Equal(t, "1", q.Get("page"))
	assert.Equal(t, "20", q.Get("size"))
	assert.False(t, q.Has("endDate"))

	assert.Empty(t, TransactionFilter{}.Query())
}
