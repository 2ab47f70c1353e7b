package book

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/walletgate/internal/apierror"
	"github.com/congo-pay/walletgate/internal/model"
	"github.com/congo-pay/walletgate/internal/sandbox/middleware"
	"github.com/congo-pay/walletgate/internal/sandbox/respond"
)

// Handler exposes the /wallets and /transactions endpoints. Every route
// requires middleware.Bearer.
type Handler struct {
	book *Book
}

// NewHandler builds the ledger HTTP handler.
func NewHandler(book *Book) *Handler {
	return &Handler{book: book}
}

// Wallets lists the caller's wallets.
func (h *Handler) Wallets(c *fiber.Ctx) error {
	userID, err := caller(c)
	if err != nil {
		return err
	}
	wallets := h.book.Wallets(c.UserContext(), userID)
	views := make([]model.Wallet, 0, len(wallets))
	for _, w := range wallets {
		views = append(views, w.View())
	}
	return respond.OK(c, views, "")
}

// Wallet returns one wallet.
func (h *Handler) Wallet(c *fiber.Ctx) error {
	userID, err := caller(c)
	if err != nil {
		return err
	}
	walletID, err := pathID(c, "walletId")
	if err != nil {
		return err
	}
	w, err := h.book.Wallet(c.UserContext(), userID, walletID)
	if err != nil {
		return fault(err)
	}
	return respond.OK(c, w.View(), "")
}

// CreateWallet opens a wallet.
func (h *Handler) CreateWallet(c *fiber.Ctx) error {
	userID, err := caller(c)
	if err != nil {
		return err
	}
	var req model.CreateWalletRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "Malformed request body")
	}
	w, err := h.book.CreateWallet(c.UserContext(), userID, req.Name, req.WalletType)
	if err != nil {
		return fault(err)
	}
	return respond.Created(c, w.View(), "Wallet created successfully")
}

// Balance returns a wallet's balance snapshot.
func (h *Handler) Balance(c *fiber.Ctx) error {
	userID, err := caller(c)
	if err != nil {
		return err
	}
	walletID, err := pathID(c, "walletId")
	if err != nil {
		return err
	}
	bal, err := h.book.Balance(c.UserContext(), userID, walletID)
	if err != nil {
		return fault(err)
	}
	return respond.OK(c, bal, "")
}

// Deposit credits a wallet.
func (h *Handler) Deposit(c *fiber.Ctx) error {
	userID, err := caller(c)
	if err != nil {
		return err
	}
	var req model.DepositRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "Malformed request body")
	}
	tx, err := h.book.Deposit(c.UserContext(), userID, req)
	if err != nil {
		return fault(err)
	}
	return respond.Created(c, tx.View(), "Deposit successful")
}

// Withdraw debits a wallet.
func (h *Handler) Withdraw(c *fiber.Ctx) error {
	userID, err := caller(c)
	if err != nil {
		return err
	}
	var req model.WithdrawRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "Malformed request body")
	}
	tx, err := h.book.Withdraw(c.UserContext(), userID, req)
	if err != nil {
		return fault(err)
	}
	return respond.Created(c, tx.View(), "Withdrawal successful")
}

// Transfer moves funds between wallets.
func (h *Handler) Transfer(c *fiber.Ctx) error {
	userID, err := caller(c)
	if err != nil {
		return err
	}
	var req model.TransferRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "Malformed request body")
	}
	tx, err := h.book.Transfer(c.UserContext(), userID, req)
	if err != nil {
		return fault(err)
	}
	return respond.Created(c, tx.View(), "Transfer successful")
}

// Transactions returns a page of history filtered by the query string.
func (h *Handler) Transactions(c *fiber.Ctx) error {
	userID, err := caller(c)
	if err != nil {
		return err
	}
	q, err := parseQuery(c)
	if err != nil {
		return err
	}
	page, err := h.book.Transactions(c.UserContext(), userID, q)
	if err != nil {
		return fault(err)
	}
	return respond.OK(c, page, "")
}

// Transaction returns one transaction.
func (h *Handler) Transaction(c *fiber.Ctx) error {
	userID, err := caller(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "transactionId")
	if err != nil {
		return err
	}
	tx, err := h.book.Transaction(c.UserContext(), userID, id)
	if err != nil {
		return fault(err)
	}
	return respond.OK(c, tx.View(), "")
}

func caller(c *fiber.Ctx) (int64, error) {
	userID, ok := middleware.UserID(c)
	if !ok {
		return 0, fiber.NewError(http.StatusUnauthorized, "Full authentication is required to access this resource")
	}
	return userID, nil
}

func pathID(c *fiber.Ctx, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Params(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fiber.NewError(http.StatusBadRequest, "Invalid "+name)
	}
	return id, nil
}

func parseQuery(c *fiber.Ctx) (Query, error) {
	var q Query
	fields := map[string]string{}

	if v := c.Query("walletId"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			fields["walletId"] = "must be a number"
		} else {
			q.WalletID = &id
		}
	}
	if v := c.Query("type"); v != "" {
		q.Type = model.TransactionType(v)
	}
	for name, dst := range map[string]**time.Time{"startDate": &q.Start, "endDate": &q.End} {
		if v := c.Query(name); v != "" {
			d, err := time.Parse(model.DateLayout, v)
			if err != nil {
				fields[name] = "must be a date in " + model.DateLayout + " form"
				continue
			}
			*dst = &d
		}
	}
	var err error
	if q.Page, err = intQuery(c, "page"); err != nil {
		fields["page"] = "must be a number"
	}
	if q.Size, err = intQuery(c, "size"); err != nil {
		fields["size"] = "must be a number"
	}

	if err := respond.Validation(fields); err != nil {
		return Query{}, err
	}
	return q, nil
}

func intQuery(c *fiber.Ctx, name string) (int, error) {
	v := c.Query(name)
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}

func fault(err error) error {
	switch {
	case errors.Is(err, ErrWalletNotFound):
		return respond.NewFault(http.StatusNotFound, apierror.CodeWalletNotFound, err)
	case errors.Is(err, ErrForbidden):
		return respond.NewFault(http.StatusForbidden, apierror.CodeUnauthorized, err)
	case errors.Is(err, ErrInsufficientBalance):
		return respond.NewFault(http.StatusBadRequest, apierror.CodeInsufficient, err)
	case errors.Is(err, ErrSameWallet), errors.Is(err, ErrWalletInactive), errors.Is(err, ErrTransactionNotFound):
		return respond.NewFault(http.StatusBadRequest, apierror.CodeInvalidTransaction, err)
	default:
		return err
	}
}
