// Package wallets provisions custodial blockchain wallets. Activation can be
// triggered by an explicit approved request or implicitly by a first deposit
// approval; both paths converge on the same idempotent activation so the gas
// stipend is never spent twice for one account.
package wallets

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/regenfi/platform/internal/app/chain"
	"github.com/regenfi/platform/internal/app/domain/account"
	"github.com/regenfi/platform/internal/app/domain/wallet"
	"github.com/regenfi/platform/internal/app/metrics"
	"github.com/regenfi/platform/internal/app/storage"
	"github.com/regenfi/platform/pkg/logger"
)

// platformAssets are the trustlines every activated wallet needs.
var platformAssets = []string{"NGNTS", "RGN"}

// Service manages wallet-activation requests and performs activation.
type Service struct {
	store    storage.WalletRequestStore
	accounts storage.AccountStore
	gateway  chain.Gateway
	metrics  *metrics.Metrics
	log      *logger.Logger
}

// New creates the wallet service.
func New(store storage.WalletRequestStore, accounts storage.AccountStore, gateway chain.Gateway, m *metrics.Metrics, log *logger.Logger) *Service {
	return &Service{store: store, accounts: accounts, gateway: gateway, metrics: m, log: log}
}

// RequestActivation files an explicit activation request. At most one may be
// outstanding per account, and already-active wallets cannot request again.
func (s *Service) RequestActivation(ctx context.Context, accountID, publicKey string) (wallet.ActivationRequest, error) {
	if strings.TrimSpace(publicKey) == "" {
		return wallet.ActivationRequest{}, fmt.Errorf("public key must not be empty")
	}

	acct, err := s.accounts.GetAccount(ctx, accountID)
	if err != nil {
		return wallet.ActivationRequest{}, err
	}
	if acct.WalletStatus == account.WalletActive {
		return wallet.ActivationRequest{}, fmt.Errorf("account %s already has an active wallet", accountID)
	}
	if _, err := s.store.GetPendingActivationByAccount(ctx, accountID); err == nil {
		return wallet.ActivationRequest{}, fmt.Errorf("account %s already has a pending activation request", accountID)
	} else if !errors.Is(err, storage.ErrNotFound) {
		return wallet.ActivationRequest{}, err
	}

	now := time.Now().UTC()
	req := wallet.ActivationRequest{
		ID:        uuid.NewString(),
		AccountID: accountID,
		PublicKey: publicKey,
		Status:    wallet.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	created, err := s.store.CreateActivationRequest(ctx, req)
	if err != nil {
		return wallet.ActivationRequest{}, fmt.Errorf("create activation request: %w", err)
	}

	acct.WalletStatus = account.WalletPending
	acct.UpdatedAt = now
	if _, err := s.accounts.UpdateAccount(ctx, acct); err != nil {
		return wallet.ActivationRequest{}, fmt.Errorf("update account: %w", err)
	}

	s.log.WithFields(map[string]interface{}{
		"request_id": created.ID,
		"account_id": accountID,
	}).Info("wallet activation requested")
	return created, nil
}

// Get returns one activation request.
func (s *Service) Get(ctx context.Context, id string) (wallet.ActivationRequest, error) {
	return s.store.GetActivationRequest(ctx, id)
}

// ListByStatus returns activation requests in one state.
func (s *Service) ListByStatus(ctx context.Context, status wallet.Status) ([]wallet.ActivationRequest, error) {
	return s.store.ListActivationRequests(ctx, status)
}

// Approve accepts a pending activation request and activates the wallet.
func (s *Service) Approve(ctx context.Context, id, reviewer string) (wallet.ActivationRequest, error) {
	req, err := s.store.GetActivationRequest(ctx, id)
	if err != nil {
		return wallet.ActivationRequest{}, err
	}
	if req.Status != wallet.StatusPending {
		return wallet.ActivationRequest{}, fmt.Errorf("activation request %s is %s; only pending requests can be approved", id, req.Status)
	}

	if err := s.EnsureActive(ctx, req.AccountID); err != nil {
		return wallet.ActivationRequest{}, err
	}

	// EnsureActive resolved the pending request; record who approved it.
	req, err = s.store.GetActivationRequest(ctx, id)
	if err != nil {
		return wallet.ActivationRequest{}, err
	}
	req.ReviewedBy = reviewer
	updated, err := s.store.UpdateActivationRequest(ctx, req)
	if err != nil {
		return wallet.ActivationRequest{}, fmt.Errorf("update activation request: %w", err)
	}
	return updated, nil
}

// Reject declines a pending activation request and returns the account to the
// not-activated state.
func (s *Service) Reject(ctx context.Context, id, reviewer, reason string) (wallet.ActivationRequest, error) {
	if strings.TrimSpace(reason) == "" {
		return wallet.ActivationRequest{}, fmt.Errorf("a rejection reason is required")
	}

	req, err := s.store.GetActivationRequest(ctx, id)
	if err != nil {
		return wallet.ActivationRequest{}, err
	}
	if req.Status != wallet.StatusPending {
		return wallet.ActivationRequest{}, fmt.Errorf("activation request %s is %s; only pending requests can be rejected", id, req.Status)
	}

	now := time.Now().UTC()
	req.Status = wallet.StatusRejected
	req.RejectionReason = reason
	req.ReviewedBy = reviewer
	req.UpdatedAt = now

	updated, err := s.store.UpdateActivationRequest(ctx, req)
	if err != nil {
		return wallet.ActivationRequest{}, fmt.Errorf("update activation request: %w", err)
	}

	acct, err := s.accounts.GetAccount(ctx, req.AccountID)
	if err != nil {
		return wallet.ActivationRequest{}, err
	}
	if acct.WalletStatus == account.WalletPending {
		acct.WalletStatus = account.WalletNotActivated
		acct.UpdatedAt = now
		if _, err := s.accounts.UpdateAccount(ctx, acct); err != nil {
			return wallet.ActivationRequest{}, fmt.Errorf("update account: %w", err)
		}
	}

	s.log.WithFields(map[string]interface{}{
		"request_id": id,
		"reviewer":   reviewer,
	}).Info("wallet activation rejected")
	return updated, nil
}

// EnsureActive activates the account's wallet if it is not active yet. The
// call is idempotent: an already-active wallet returns immediately and the
// gas stipend is spent at most once. When a pending activation request
// exists, its public key becomes the wallet address and the request is
// resolved; otherwise a custodial address is generated.
func (s *Service) EnsureActive(ctx context.Context, accountID string) error {
	acct, err := s.accounts.GetAccount(ctx, accountID)
	if err != nil {
		return err
	}
	if acct.WalletStatus == account.WalletActive {
		return nil
	}

	var pending *wallet.ActivationRequest
	if req, err := s.store.GetPendingActivationByAccount(ctx, accountID); err == nil {
		pending = &req
	} else if !errors.Is(err, storage.ErrNotFound) {
		return err
	}

	address := acct.WalletAddress
	if address == "" {
		if pending != nil {
			address = pending.PublicKey
		} else {
			address = custodialAddress()
		}
	}

	if _, err := s.gateway.FundGas(ctx, address); err != nil {
		return fmt.Errorf("fund gas: %w", err)
	}
	if _, err := s.gateway.EstablishTrustlines(ctx, address, platformAssets); err != nil {
		return fmt.Errorf("establish trustlines: %w", err)
	}

	now := time.Now().UTC()
	acct.WalletAddress = address
	acct.WalletStatus = account.WalletActive
	acct.UpdatedAt = now
	if _, err := s.accounts.UpdateAccount(ctx, acct); err != nil {
		return fmt.Errorf("update account: %w", err)
	}

	if pending != nil {
		pending.Status = wallet.StatusApproved
		pending.GasFunded = true
		pending.UpdatedAt = now
		if _, err := s.store.UpdateActivationRequest(ctx, *pending); err != nil {
			return fmt.Errorf("update activation request: %w", err)
		}
	}

	s.metrics.WalletsActivated.Inc()
	s.log.WithFields(map[string]interface{}{
		"account_id": accountID,
		"wallet":     address,
	}).Info("wallet activated")
	return nil
}

func custodialAddress() string {
	return "GC" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
}
