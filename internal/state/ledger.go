package state

import (
	"github.com/shopspring/decimal"

	"github.com/congo-pay/walletgate/internal/model"
)

// LedgerState is the cached financial data slice. Wallets and Transactions
// are server snapshots replaced wholesale by the latest applicable fetch.
type LedgerState struct {
	Wallets           []model.Wallet
	SelectedWallet    *model.Wallet
	Transactions      []model.Transaction
	TotalTransactions int
	// IsLoading is true while any fetch or wallet creation is in flight.
	IsLoading bool
	Error     string

	// Generation counts successful mutations. Converged is the highest
	// generation whose follow-up fetches have settled; the cache reflects
	// every mutation up to Converged.
	Generation uint64
	Converged  uint64
}

// TotalBalance sums the cached wallet balances for display. It is computed on
// read and never stored.
func (l LedgerState) TotalBalance() decimal.Decimal {
	total := decimal.Zero
	for _, w := range l.Wallets {
		total = total.Add(w.Balance)
	}
	return total
}

// WalletByID looks up a cached wallet.
func (l LedgerState) WalletByID(id int64) (model.Wallet, bool) {
	for _, w := range l.Wallets {
		if w.ID == id {
			return w, true
		}
	}
	return model.Wallet{}, false
}

func (l LedgerState) clone() LedgerState {
	l.Wallets = append([]model.Wallet(nil), l.Wallets...)
	l.Transactions = append([]model.Transaction(nil), l.Transactions...)
	if l.SelectedWallet != nil {
		w := *l.SelectedWallet
		l.SelectedWallet = &w
	}
	return l
}

// LedgerPending marks a fetch or wallet creation as started. It returns the
// generation the fetched data will be as of.
func (s *Store) LedgerPending() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ledgerInflight++
	s.ledger.IsLoading = true
	s.ledger.Error = ""
	s.commit()
	return s.ledger.Generation
}

func (s *Store) ledgerSettled() {
	if s.ledgerInflight > 0 {
		s.ledgerInflight--
	}
	s.ledger.IsLoading = s.ledgerInflight > 0
}

// WalletsFetched replaces the wallet cache unless a fetch as of a newer
// generation has already been applied. The selected wallet follows its fresh
// server copy.
func (s *Store) WalletsFetched(asOf uint64, wallets []model.Wallet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ledgerSettled()
	if asOf >= s.walletsAsOf {
		s.walletsAsOf = asOf
		s.ledger.Wallets = append([]model.Wallet(nil), wallets...)
		if sel := s.ledger.SelectedWallet; sel != nil {
			if fresh, ok := s.ledger.WalletByID(sel.ID); ok {
				s.ledger.SelectedWallet = &fresh
			}
		}
	}
	s.commit()
}

// TransactionsFetched replaces the history cache with one page, under the
// same staleness rule as WalletsFetched.
func (s *Store) TransactionsFetched(asOf uint64, page model.Page[model.Transaction]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ledgerSettled()
	if asOf >= s.txAsOf {
		s.txAsOf = asOf
		s.ledger.Transactions = append([]model.Transaction(nil), page.Content...)
		s.ledger.TotalTransactions = page.TotalElements
	}
	s.commit()
}

// WalletCreated appends the server-returned wallet, unless the cache was
// reset while the creation was in flight or a concurrent fetch already
// brought the wallet in.
func (s *Store) WalletCreated(asOf uint64, wallet model.Wallet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ledgerSettled()
	if _, cached := s.ledger.WalletByID(wallet.ID); asOf >= s.walletsAsOf && !cached {
		s.ledger.Wallets = append(s.ledger.Wallets, wallet)
	}
	s.commit()
}

// LedgerRejected settles a failed fetch or creation.
func (s *Store) LedgerRejected(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ledgerSettled()
	s.ledger.Error = message
	s.commit()
}

// MutationPending clears the ledger error as a deposit, withdrawal or
// transfer starts.
func (s *Store) MutationPending() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ledger.Error = ""
	s.commit()
}

// MutationCommitted records a server-accepted mutation and returns its
// generation.
func (s *Store) MutationCommitted() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ledger.Generation++
	s.commit()
	return s.ledger.Generation
}

// MutationRejected records a refused mutation. The cache is untouched.
func (s *Store) MutationRejected(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ledger.Error = message
	s.commit()
}

// RefetchSettled marks the follow-up fetches of generation as settled.
func (s *Store) RefetchSettled(generation uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if generation > s.ledger.Converged {
		s.ledger.Converged = generation
	}
	s.commit()
}

// SelectWallet sets or clears the selected wallet.
func (s *Store) SelectWallet(wallet *model.Wallet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if wallet == nil {
		s.ledger.SelectedWallet = nil
	} else {
		w := *wallet
		s.ledger.SelectedWallet = &w
	}
	s.commit()
}

// ClearLedgerError empties the ledger error.
func (s *Store) ClearLedgerError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ledger.Error == "" {
		return
	}
	s.ledger.Error = ""
	s.commit()
}

// ResetLedger drops every cached entity. Results of fetches still in flight
// are discarded when they arrive, and any waiter on a pending generation is
// released.
func (s *Store) ResetLedger() {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.ledger.Generation + 1
	s.ledger = LedgerState{
		IsLoading:  s.ledgerInflight > 0,
		Generation: next,
		Converged:  next,
	}
	s.walletsAsOf = next
	s.txAsOf = next
	s.commit()
}
