package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/walletgate/internal/sandbox/book"
)

// RegisterLedgerRoutes wires wallet and transaction endpoints onto an
// authenticated router.
func RegisterLedgerRoutes(r fiber.Router, h *book.Handler) {
	r.Get("/wallets", h.Wallets)
	r.Post("/wallets", h.CreateWallet)
	r.Get("/wallets/:walletId", h.Wallet)
	r.Get("/wallets/:walletId/balance", h.Balance)

	r.Get("/transactions", h.Transactions)
	r.Post("/transactions/deposit", h.Deposit)
	r.Post("/transactions/withdraw", h.Withdraw)
	r.Post("/transactions/transfer", h.Transfer)
	r.Get("/transactions/:transactionId", h.Transaction)
}
