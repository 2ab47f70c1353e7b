package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"github.com/congo-pay/walletgate/internal/api"
	"github.com/congo-pay/walletgate/internal/apierror"
	"github.com/congo-pay/walletgate/internal/config"
	"github.com/congo-pay/walletgate/internal/gateway"
	"github.com/congo-pay/walletgate/internal/infra"
	"github.com/congo-pay/walletgate/internal/ledger"
	"github.com/congo-pay/walletgate/internal/logging"
	"github.com/congo-pay/walletgate/internal/model"
	"github.com/congo-pay/walletgate/internal/session"
	"github.com/congo-pay/walletgate/internal/state"
)

const usage = `usage: walletctl <command> [flags]

commands:
  register       -email -password -first-name -last-name [-phone]
  login          -email -password
  logout
  whoami
  wallets
  wallet         -id
  create-wallet  -name -type SAVINGS|CHECKING|INVESTMENT|MERCHANT
  balance        -wallet
  transactions   [-wallet] [-type] [-from YYYY-MM-DD] [-to YYYY-MM-DD] [-page] [-size]
  transaction    -id
  deposit        -wallet -amount [-description]
  withdraw       -wallet -amount [-description]
  transfer       -from -to -amount [-description]
`

const consistencyTimeout = 15 * time.Second

type app struct {
	session *session.Orchestrator
	ledger  *ledger.Orchestrator
	store   *state.Store
	out     io.Writer
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewWithWriter(os.Stderr, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	code := run(ctx, cfg, logger, os.Args[1], os.Args[2:])
	stop()
	os.Exit(code)
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger, command string, args []string) int {
	creds, closeCreds, err := infra.OpenCredentialStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("open credential store", "error", err)
		return 1
	}
	defer closeCreds()

	gw := gateway.New(cfg.BaseURL, creds,
		gateway.WithHTTPClient(&http.Client{Timeout: cfg.RequestTimeout}),
		gateway.WithLogger(logger),
		gateway.WithRateLimit(cfg.RateLimitRPS, 1),
		gateway.WithRenewalTimeout(cfg.RenewalTimeout),
	)
	svc := api.New(gw)
	store := state.New()

	a := &app{
		session: session.New(svc, creds, store, logger),
		ledger:  ledger.New(svc, store, logger),
		store:   store,
		out:     os.Stdout,
	}
	gw.SetSessionExpiredHandler(a.session.HandleSessionExpired)
	defer a.ledger.Wait()

	if err := a.dispatch(ctx, command, args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 2
		}
		fmt.Fprintln(os.Stderr, describe(err))
		return 1
	}
	return 0
}

func (a *app) dispatch(ctx context.Context, command string, args []string) error {
	switch command {
	case "register":
		return a.register(ctx, args)
	case "login":
		return a.login(ctx, args)
	case "logout":
		return a.session.Logout(ctx)
	case "whoami":
		user, err := a.session.FetchCurrentIdentity(ctx)
		if err != nil {
			return err
		}
		return a.print(user)
	case "wallets":
		wallets, err := a.ledger.FetchWallets(ctx)
		if err != nil {
			return err
		}
		return a.print(wallets)
	case "wallet":
		return a.lookup(ctx, command, args, func(ctx context.Context, id int64) (any, error) {
			return a.ledger.FetchWallet(ctx, id)
		})
	case "transaction":
		return a.lookup(ctx, command, args, func(ctx context.Context, id int64) (any, error) {
			return a.ledger.FetchTransaction(ctx, id)
		})
	case "create-wallet":
		return a.createWallet(ctx, args)
	case "balance":
		return a.balance(ctx, args)
	case "transactions":
		return a.transactions(ctx, args)
	case "deposit", "withdraw":
		return a.movement(ctx, command, args)
	case "transfer":
		return a.transfer(ctx, args)
	case "help", "-h", "--help":
		fmt.Fprint(a.out, usage)
		return nil
	default:
		return fmt.Errorf("unknown command %q\n\n%s", command, usage)
	}
}

func (a *app) register(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	var req model.RegisterRequest
	fs.StringVar(&req.Email, "email", "", "account email")
	fs.StringVar(&req.Password, "password", "", "account password")
	fs.StringVar(&req.FirstName, "first-name", "", "first name")
	fs.StringVar(&req.LastName, "last-name", "", "last name")
	fs.StringVar(&req.PhoneNumber, "phone", "", "phone number")
	if err := fs.Parse(args); err != nil {
		return err
	}

	user, err := a.session.Register(ctx, req)
	if err != nil {
		return err
	}
	return a.print(user)
}

func (a *app) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", os.Getenv("WALLETGATE_PASSWORD"), "account password")
	if err := fs.Parse(args); err != nil {
		return err
	}

	user, err := a.session.Login(ctx, *email, *password)
	if err != nil {
		return err
	}
	return a.print(user)
}

// lookup runs a single-entity read keyed by -id.
func (a *app) lookup(ctx context.Context, command string, args []string, fetch func(context.Context, int64) (any, error)) error {
	fs := flag.NewFlagSet(command, flag.ContinueOnError)
	id := fs.Int64("id", 0, command+" id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id <= 0 {
		return fmt.Errorf("-id is required")
	}

	v, err := fetch(ctx, *id)
	if err != nil {
		return err
	}
	return a.print(v)
}

func (a *app) createWallet(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("create-wallet", flag.ContinueOnError)
	name := fs.String("name", "", "wallet name")
	walletType := fs.String("type", string(model.WalletChecking), "wallet type")
	if err := fs.Parse(args); err != nil {
		return err
	}

	wallet, err := a.ledger.CreateWallet(ctx, *name, model.WalletType(*walletType))
	if err != nil {
		return err
	}
	return a.print(wallet)
}

func (a *app) balance(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("balance", flag.ContinueOnError)
	walletID := fs.Int64("wallet", 0, "wallet id")
	if err := fs.Parse(args); err != nil {
		return err
	}

	bal, err := a.ledger.FetchBalance(ctx, *walletID)
	if err != nil {
		return err
	}
	return a.print(bal)
}

func (a *app) transactions(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("transactions", flag.ContinueOnError)
	walletID := fs.Int64("wallet", 0, "filter by wallet id")
	txType := fs.String("type", "", "filter by DEPOSIT, WITHDRAWAL or TRANSFER")
	from := fs.String("from", "", "first day, YYYY-MM-DD")
	to := fs.String("to", "", "last day, YYYY-MM-DD")
	page := fs.Int("page", -1, "zero-based page")
	size := fs.Int("size", 0, "page size")
	if err := fs.Parse(args); err != nil {
		return err
	}

	filter := model.TransactionFilter{Type: model.TransactionType(*txType)}
	if *walletID > 0 {
		filter.WalletID = model.Ptr(*walletID)
	}
	if *page >= 0 {
		filter.Page = model.Ptr(*page)
	}
	if *size > 0 {
		filter.Size = model.Ptr(*size)
	}
	var err error
	if filter.StartDate, err = parseDay(*from); err != nil {
		return err
	}
	if filter.EndDate, err = parseDay(*to); err != nil {
		return err
	}

	result, err := a.ledger.FetchTransactions(ctx, filter)
	if err != nil {
		return err
	}
	return a.print(result)
}

func (a *app) movement(ctx context.Context, kind string, args []string) error {
	fs := flag.NewFlagSet(kind, flag.ContinueOnError)
	walletID := fs.Int64("wallet", 0, "wallet id")
	amount := fs.String("amount", "", "amount, e.g. 25.50")
	description := fs.String("description", "", "optional description")
	if err := fs.Parse(args); err != nil {
		return err
	}
	value, err := parseAmount(*amount)
	if err != nil {
		return err
	}

	var receipt ledger.Receipt
	if kind == "deposit" {
		receipt, err = a.ledger.Deposit(ctx, model.DepositRequest{WalletID: *walletID, Amount: value, Description: *description})
	} else {
		receipt, err = a.ledger.Withdraw(ctx, model.WithdrawRequest{WalletID: *walletID, Amount: value, Description: *description})
	}
	if err != nil {
		return err
	}
	return a.settle(ctx, receipt)
}

func (a *app) transfer(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("transfer", flag.ContinueOnError)
	from := fs.Int64("from", 0, "source wallet id")
	to := fs.Int64("to", 0, "destination wallet id")
	amount := fs.String("amount", "", "amount, e.g. 25.50")
	description := fs.String("description", "", "optional description")
	if err := fs.Parse(args); err != nil {
		return err
	}
	value, err := parseAmount(*amount)
	if err != nil {
		return err
	}

	receipt, err := a.ledger.Transfer(ctx, model.TransferRequest{
		SourceWalletID:      *from,
		DestinationWalletID: *to,
		Amount:              value,
		Description:         *description,
	})
	if err != nil {
		return err
	}
	return a.settle(ctx, receipt)
}

// settle prints the accepted transaction, then the wallets once the
// follow-up refresh has landed.
func (a *app) settle(ctx context.Context, receipt ledger.Receipt) error {
	if err := a.print(receipt.Transaction); err != nil {
		return err
	}

	waitCtx, cancel := context.WithTimeout(ctx, consistencyTimeout)
	defer cancel()
	snapshot, err := a.ledger.AwaitConsistent(waitCtx, receipt.Generation)
	if err != nil {
		return fmt.Errorf("wait for refresh: %w", err)
	}
	if snapshot.Error != "" {
		fmt.Fprintln(os.Stderr, "refresh:", snapshot.Error)
	}
	return a.print(snapshot.Wallets)
}

func (a *app) print(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parseAmount(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Decimal{}, errors.New("-amount is required")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid amount %q", s)
	}
	return d, nil
}

func parseDay(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(model.DateLayout, s)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q, want YYYY-MM-DD", s)
	}
	return &t, nil
}

// describe renders err for a terminal user.
func describe(err error) string {
	var (
		expired    *apierror.SessionExpiredError
		validation *apierror.ValidationError
	)
	switch {
	case errors.As(err, &expired):
		return apierror.SessionExpiredMessage
	case errors.Is(err, apierror.ErrNotAuthenticated):
		return "Not logged in, run: walletctl login -email <email>"
	case errors.As(err, &validation):
		msg := validation.Message
		for field, problem := range validation.Fields {
			msg += "\n  " + field + ": " + problem
		}
		return msg
	}
	return apierror.Message(err, err.Error())
}
