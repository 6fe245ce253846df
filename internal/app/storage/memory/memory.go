package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/regenfi/platform/internal/app/domain/account"
	"github.com/regenfi/platform/internal/app/domain/contribution"
	"github.com/regenfi/platform/internal/app/domain/deposit"
	"github.com/regenfi/platform/internal/app/domain/holding"
	"github.com/regenfi/platform/internal/app/domain/settings"
	"github.com/regenfi/platform/internal/app/domain/wallet"
	"github.com/regenfi/platform/internal/app/storage"
)

// Store is an in-memory implementation of the storage interfaces. It is safe
// for concurrent use and is primarily intended for tests and local
// development.
type Store struct {
	mu            sync.RWMutex
	nextID        int64
	accounts      map[string]account.Account
	deposits      map[string]deposit.Request
	contributions map[string]contribution.Request
	activations   map[string]wallet.ActivationRequest
	holdings      map[string]holding.Holding
	redemptions   map[string]holding.Redemption
	bankAccount   *settings.BankAccount
	proofs        map[string][]byte
}

var _ storage.AccountStore = (*Store)(nil)
var _ storage.DepositStore = (*Store)(nil)
var _ storage.ContributionStore = (*Store)(nil)
var _ storage.WalletRequestStore = (*Store)(nil)
var _ storage.HoldingStore = (*Store)(nil)
var _ storage.SettingsStore = (*Store)(nil)
var _ storage.ProofStore = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		nextID:        1,
		accounts:      make(map[string]account.Account),
		deposits:      make(map[string]deposit.Request),
		contributions: make(map[string]contribution.Request),
		activations:   make(map[string]wallet.ActivationRequest),
		holdings:      make(map[string]holding.Holding),
		redemptions:   make(map[string]holding.Redemption),
		proofs:        make(map[string][]byte),
	}
}

func (s *Store) nextIDLocked() string {
	id := s.nextID
	s.nextID++
	return fmt.Sprintf("%d", id)
}

// AccountStore implementation -------------------------------------------------

func (s *Store) CreateAccount(_ context.Context, acct account.Account) (account.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if acct.ID == "" {
		acct.ID = s.nextIDLocked()
	} else if _, exists := s.accounts[acct.ID]; exists {
		return account.Account{}, fmt.Errorf("account %s already exists", acct.ID)
	}

	now := time.Now().UTC()
	acct.CreatedAt = now
	acct.UpdatedAt = now

	s.accounts[acct.ID] = acct
	return acct, nil
}

func (s *Store) UpdateAccount(_ context.Context, acct account.Account) (account.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.accounts[acct.ID]
	if !ok {
		return account.Account{}, fmt.Errorf("account %s: %w", acct.ID, storage.ErrNotFound)
	}

	acct.CreatedAt = original.CreatedAt
	acct.UpdatedAt = time.Now().UTC()

	s.accounts[acct.ID] = acct
	return acct, nil
}

func (s *Store) GetAccount(_ context.Context, id string) (account.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	acct, ok := s.accounts[id]
	if !ok {
		return account.Account{}, fmt.Errorf("account %s: %w", id, storage.ErrNotFound)
	}
	return acct, nil
}

func (s *Store) ListAccounts(_ context.Context) ([]account.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]account.Account, 0, len(s.accounts))
	for _, acct := range s.accounts {
		result = append(result, acct)
	}
	return result, nil
}

func (s *Store) DeleteAccount(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[id]; !ok {
		return fmt.Errorf("account %s: %w", id, storage.ErrNotFound)
	}
	delete(s.accounts, id)
	return nil
}

// DepositStore implementation --------------------------------------------------

func (s *Store) CreateDeposit(_ context.Context, req deposit.Request) (deposit.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.deposits {
		if existing.ReferenceCode == req.ReferenceCode && !existing.Status.Terminal() {
			return deposit.Request{}, storage.ErrDuplicateReference
		}
	}

	if req.ID == "" {
		req.ID = s.nextIDLocked()
	}
	now := time.Now().UTC()
	req.CreatedAt = now
	req.UpdatedAt = now

	s.deposits[req.ID] = req
	return req, nil
}

func (s *Store) UpdateDeposit(_ context.Context, req deposit.Request) (deposit.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.deposits[req.ID]
	if !ok {
		return deposit.Request{}, fmt.Errorf("deposit %s: %w", req.ID, storage.ErrNotFound)
	}

	req.CreatedAt = original.CreatedAt
	req.UpdatedAt = time.Now().UTC()

	s.deposits[req.ID] = req
	return req, nil
}

func (s *Store) GetDeposit(_ context.Context, id string) (deposit.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	req, ok := s.deposits[id]
	if !ok {
		return deposit.Request{}, fmt.Errorf("deposit %s: %w", id, storage.ErrNotFound)
	}
	return req, nil
}

func (s *Store) ListDeposits(_ context.Context, accountID string) ([]deposit.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []deposit.Request
	for _, req := range s.deposits {
		if accountID == "" || req.AccountID == accountID {
			result = append(result, req)
		}
	}
	return result, nil
}

func (s *Store) ListDepositsByStatus(_ context.Context, status deposit.Status) ([]deposit.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []deposit.Request
	for _, req := range s.deposits {
		if req.Status == status {
			result = append(result, req)
		}
	}
	return result, nil
}

func (s *Store) ApproveDeposit(_ context.Context, req deposit.Request, creditNGNTS int64) (deposit.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.deposits[req.ID]
	if !ok {
		return deposit.Request{}, fmt.Errorf("deposit %s: %w", req.ID, storage.ErrNotFound)
	}
	acct, ok := s.accounts[original.AccountID]
	if !ok {
		return deposit.Request{}, fmt.Errorf("account %s: %w", original.AccountID, storage.ErrNotFound)
	}

	now := time.Now().UTC()
	req.AccountID = original.AccountID
	req.CreatedAt = original.CreatedAt
	req.UpdatedAt = now

	acct.NGNTSBalance += creditNGNTS
	acct.UpdatedAt = now

	s.deposits[req.ID] = req
	s.accounts[acct.ID] = acct
	return req, nil
}

// ContributionStore implementation --------------------------------------------

func (s *Store) CreateContribution(_ context.Context, req contribution.Request) (contribution.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.contributions {
		if existing.ReferenceCode == req.ReferenceCode && !existing.Status.Terminal() {
			return contribution.Request{}, storage.ErrDuplicateReference
		}
	}

	if req.ID == "" {
		req.ID = s.nextIDLocked()
	}
	now := time.Now().UTC()
	req.CreatedAt = now
	req.UpdatedAt = now

	s.contributions[req.ID] = req
	return req, nil
}

func (s *Store) UpdateContribution(_ context.Context, req contribution.Request) (contribution.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.contributions[req.ID]
	if !ok {
		return contribution.Request{}, fmt.Errorf("contribution %s: %w", req.ID, storage.ErrNotFound)
	}

	req.CreatedAt = original.CreatedAt
	req.UpdatedAt = time.Now().UTC()

	s.contributions[req.ID] = req
	return req, nil
}

func (s *Store) GetContribution(_ context.Context, id string) (contribution.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	req, ok := s.contributions[id]
	if !ok {
		return contribution.Request{}, fmt.Errorf("contribution %s: %w", id, storage.ErrNotFound)
	}
	return req, nil
}

func (s *Store) ListContributions(_ context.Context, accountID string) ([]contribution.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []contribution.Request
	for _, req := range s.contributions {
		if accountID == "" || req.AccountID == accountID {
			result = append(result, req)
		}
	}
	return result, nil
}

func (s *Store) ListContributionsByStatus(_ context.Context, status contribution.Status) ([]contribution.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []contribution.Request
	for _, req := range s.contributions {
		if req.Status == status {
			result = append(result, req)
		}
	}
	return result, nil
}

func (s *Store) ApproveContribution(_ context.Context, req contribution.Request, creditFund int64) (contribution.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.contributions[req.ID]
	if !ok {
		return contribution.Request{}, fmt.Errorf("contribution %s: %w", req.ID, storage.ErrNotFound)
	}
	acct, ok := s.accounts[original.AccountID]
	if !ok {
		return contribution.Request{}, fmt.Errorf("account %s: %w", original.AccountID, storage.ErrNotFound)
	}

	now := time.Now().UTC()
	req.AccountID = original.AccountID
	req.CreatedAt = original.CreatedAt
	req.UpdatedAt = now

	acct.FundBalance += creditFund
	acct.UpdatedAt = now

	s.contributions[req.ID] = req
	s.accounts[acct.ID] = acct
	return req, nil
}

// WalletRequestStore implementation -------------------------------------------

func (s *Store) CreateActivationRequest(_ context.Context, req wallet.ActivationRequest) (wallet.ActivationRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.activations {
		if existing.AccountID == req.AccountID && existing.Status == wallet.StatusPending {
			return wallet.ActivationRequest{}, fmt.Errorf("account %s already has a pending activation request", req.AccountID)
		}
	}

	if req.ID == "" {
		req.ID = s.nextIDLocked()
	}
	now := time.Now().UTC()
	req.CreatedAt = now
	req.UpdatedAt = now

	s.activations[req.ID] = req
	return req, nil
}

func (s *Store) UpdateActivationRequest(_ context.Context, req wallet.ActivationRequest) (wallet.ActivationRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.activations[req.ID]
	if !ok {
		return wallet.ActivationRequest{}, fmt.Errorf("activation request %s: %w", req.ID, storage.ErrNotFound)
	}

	req.CreatedAt = original.CreatedAt
	req.UpdatedAt = time.Now().UTC()

	s.activations[req.ID] = req
	return req, nil
}

func (s *Store) GetActivationRequest(_ context.Context, id string) (wallet.ActivationRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	req, ok := s.activations[id]
	if !ok {
		return wallet.ActivationRequest{}, fmt.Errorf("activation request %s: %w", id, storage.ErrNotFound)
	}
	return req, nil
}

func (s *Store) ListActivationRequests(_ context.Context, status wallet.Status) ([]wallet.ActivationRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []wallet.ActivationRequest
	for _, req := range s.activations {
		if status == "" || req.Status == status {
			result = append(result, req)
		}
	}
	return result, nil
}

func (s *Store) GetPendingActivationByAccount(_ context.Context, accountID string) (wallet.ActivationRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, req := range s.activations {
		if req.AccountID == accountID && req.Status == wallet.StatusPending {
			return req, nil
		}
	}
	return wallet.ActivationRequest{}, fmt.Errorf("no pending activation for account %s: %w", accountID, storage.ErrNotFound)
}

// HoldingStore implementation --------------------------------------------------

func (s *Store) CreateHolding(_ context.Context, h holding.Holding) (holding.Holding, error) {
	if err := h.Validate(); err != nil {
		return holding.Holding{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if h.ID == "" {
		h.ID = s.nextIDLocked()
	}
	now := time.Now().UTC()
	h.CreatedAt = now
	h.UpdatedAt = now

	s.holdings[h.ID] = h
	return h, nil
}

func (s *Store) UpdateHolding(_ context.Context, h holding.Holding) (holding.Holding, error) {
	if err := h.Validate(); err != nil {
		return holding.Holding{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.holdings[h.ID]
	if !ok {
		return holding.Holding{}, fmt.Errorf("holding %s: %w", h.ID, storage.ErrNotFound)
	}

	h.CreatedAt = original.CreatedAt
	h.UpdatedAt = time.Now().UTC()

	s.holdings[h.ID] = h
	return h, nil
}

func (s *Store) GetHolding(_ context.Context, id string) (holding.Holding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h, ok := s.holdings[id]
	if !ok {
		return holding.Holding{}, fmt.Errorf("holding %s: %w", id, storage.ErrNotFound)
	}
	return h, nil
}

func (s *Store) GetHoldingByProject(_ context.Context, accountID, projectID string) (holding.Holding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, h := range s.holdings {
		if h.AccountID == accountID && h.ProjectID == projectID {
			return h, nil
		}
	}
	return holding.Holding{}, fmt.Errorf("holding for project %s: %w", projectID, storage.ErrNotFound)
}

func (s *Store) ListHoldings(_ context.Context, accountID string) ([]holding.Holding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []holding.Holding
	for _, h := range s.holdings {
		if h.AccountID == accountID {
			result = append(result, h)
		}
	}
	return result, nil
}

func (s *Store) ListAllHoldings(_ context.Context) ([]holding.Holding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]holding.Holding, 0, len(s.holdings))
	for _, h := range s.holdings {
		result = append(result, h)
	}
	return result, nil
}

func (s *Store) CreateRedemption(_ context.Context, r holding.Redemption) (holding.Redemption, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.ID == "" {
		r.ID = s.nextIDLocked()
	}
	now := time.Now().UTC()
	r.CreatedAt = now
	r.UpdatedAt = now

	s.redemptions[r.ID] = r
	return r, nil
}

func (s *Store) UpdateRedemption(_ context.Context, r holding.Redemption) (holding.Redemption, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.redemptions[r.ID]
	if !ok {
		return holding.Redemption{}, fmt.Errorf("redemption %s: %w", r.ID, storage.ErrNotFound)
	}

	r.CreatedAt = original.CreatedAt
	r.UpdatedAt = time.Now().UTC()

	s.redemptions[r.ID] = r
	return r, nil
}

func (s *Store) GetRedemption(_ context.Context, id string) (holding.Redemption, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.redemptions[id]
	if !ok {
		return holding.Redemption{}, fmt.Errorf("redemption %s: %w", id, storage.ErrNotFound)
	}
	return r, nil
}

func (s *Store) ListRedemptions(_ context.Context, accountID string) ([]holding.Redemption, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []holding.Redemption
	for _, r := range s.redemptions {
		if accountID == "" || r.AccountID == accountID {
			result = append(result, r)
		}
	}
	return result, nil
}

func (s *Store) ListRedemptionsByStatus(_ context.Context, status holding.RedemptionStatus) ([]holding.Redemption, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []holding.Redemption
	for _, r := range s.redemptions {
		if r.Status == status {
			result = append(result, r)
		}
	}
	return result, nil
}

func (s *Store) SettleRedemption(_ context.Context, r holding.Redemption, h holding.Holding, payoutNGNTS int64) (holding.Redemption, error) {
	if err := h.Validate(); err != nil {
		return holding.Redemption{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	origRed, ok := s.redemptions[r.ID]
	if !ok {
		return holding.Redemption{}, fmt.Errorf("redemption %s: %w", r.ID, storage.ErrNotFound)
	}
	origHold, ok := s.holdings[h.ID]
	if !ok {
		return holding.Redemption{}, fmt.Errorf("holding %s: %w", h.ID, storage.ErrNotFound)
	}
	acct, ok := s.accounts[origRed.AccountID]
	if !ok {
		return holding.Redemption{}, fmt.Errorf("account %s: %w", origRed.AccountID, storage.ErrNotFound)
	}

	now := time.Now().UTC()
	r.AccountID = origRed.AccountID
	r.CreatedAt = origRed.CreatedAt
	r.UpdatedAt = now
	h.CreatedAt = origHold.CreatedAt
	h.UpdatedAt = now

	acct.NGNTSBalance += payoutNGNTS
	acct.UpdatedAt = now

	s.redemptions[r.ID] = r
	s.holdings[h.ID] = h
	s.accounts[acct.ID] = acct
	return r, nil
}

// SettingsStore implementation -------------------------------------------------

func (s *Store) GetBankAccount(_ context.Context) (settings.BankAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.bankAccount == nil {
		return settings.BankAccount{}, fmt.Errorf("platform bank account: %w", storage.ErrNotFound)
	}
	return *s.bankAccount, nil
}

func (s *Store) PutBankAccount(_ context.Context, acct settings.BankAccount) (settings.BankAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acct.UpdatedAt = time.Now().UTC()
	s.bankAccount = &acct
	return acct, nil
}

// ProofStore implementation ----------------------------------------------------

func (s *Store) SaveProof(_ context.Context, _ string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextIDLocked()
	s.proofs[id] = data
	return id, nil
}

func (s *Store) OpenProof(_ context.Context, id string) (io.ReadCloser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.proofs[id]
	if !ok {
		return nil, fmt.Errorf("proof %s: %w", id, storage.ErrNotFound)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}
