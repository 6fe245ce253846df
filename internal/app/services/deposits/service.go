// Package deposits runs the Regenerator bank-deposit funnel: initiate with a
// reference code, attach proof of transfer, admin review, then on-chain
// settlement tracked by the confirmation poller.
package deposits

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/regenfi/platform/internal/app/chain"
	"github.com/regenfi/platform/internal/app/domain/deposit"
	"github.com/regenfi/platform/internal/app/domain/fee"
	"github.com/regenfi/platform/internal/app/domain/settings"
	"github.com/regenfi/platform/internal/app/metrics"
	"github.com/regenfi/platform/internal/app/reference"
	"github.com/regenfi/platform/internal/app/services/accounts"
	"github.com/regenfi/platform/internal/app/services/fees"
	"github.com/regenfi/platform/internal/app/storage"
	"github.com/regenfi/platform/pkg/logger"
)

const (
	referencePrefix   = "RF"
	referenceAttempts = 5
	stableAsset       = "NGNTS"
)

// Activator provisions a wallet when a first deposit is approved. Implemented
// by the wallets service; an interface here keeps the dependency one-way.
type Activator interface {
	EnsureActive(ctx context.Context, accountID string) error
}

// Service implements the deposit funnel.
type Service struct {
	store     storage.DepositStore
	proofs    storage.ProofStore
	settings  storage.SettingsStore
	accounts  *accounts.Service
	fees      *fees.Service
	activator Activator
	gateway   chain.Gateway
	metrics   *metrics.Metrics
	log       *logger.Logger
}

// New creates the deposit service.
func New(
	store storage.DepositStore,
	proofs storage.ProofStore,
	settingsStore storage.SettingsStore,
	accountSvc *accounts.Service,
	feeSvc *fees.Service,
	activator Activator,
	gateway chain.Gateway,
	m *metrics.Metrics,
	log *logger.Logger,
) *Service {
	return &Service{
		store:     store,
		proofs:    proofs,
		settings:  settingsStore,
		accounts:  accountSvc,
		fees:      feeSvc,
		activator: activator,
		gateway:   gateway,
		metrics:   m,
		log:       log,
	}
}

// Instructions pairs a created request with the platform bank account the
// transfer must be sent to.
type Instructions struct {
	Request     deposit.Request      `json:"request"`
	BankAccount settings.BankAccount `json:"bank_account"`
}

// Initiate prices the amount, assigns a unique reference code and stores a
// pending request. The fee breakdown is computed here and never trusted from
// the client.
func (s *Service) Initiate(ctx context.Context, accountID string, amount int64) (Instructions, error) {
	if _, err := s.accounts.RequireKYCApproved(ctx, accountID); err != nil {
		return Instructions{}, err
	}

	breakdown, err := s.fees.Preview(fee.ProductRegenerator, amount)
	if err != nil {
		return Instructions{}, err
	}

	bank, err := s.settings.GetBankAccount(ctx)
	if err != nil {
		return Instructions{}, fmt.Errorf("platform bank account not configured: %w", err)
	}

	now := time.Now().UTC()
	req := deposit.Request{
		ID:        uuid.NewString(),
		AccountID: accountID,
		Amount:    amount,
		Breakdown: breakdown,
		Status:    deposit.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	created, err := s.createWithReference(ctx, req)
	if err != nil {
		return Instructions{}, err
	}

	s.metrics.DepositsSubmitted.Inc()
	s.log.WithFields(map[string]interface{}{
		"deposit_id": created.ID,
		"account_id": accountID,
		"reference":  created.ReferenceCode,
		"amount":     amount,
	}).Info("deposit initiated")

	return Instructions{Request: created, BankAccount: bank}, nil
}

// createWithReference retries on the rare reference-code collision with an
// outstanding request.
func (s *Service) createWithReference(ctx context.Context, req deposit.Request) (deposit.Request, error) {
	for attempt := 0; attempt < referenceAttempts; attempt++ {
		code, err := reference.New(referencePrefix)
		if err != nil {
			return deposit.Request{}, err
		}
		req.ReferenceCode = code

		created, err := s.store.CreateDeposit(ctx, req)
		if err == nil {
			return created, nil
		}
		if !errors.Is(err, storage.ErrDuplicateReference) {
			return deposit.Request{}, fmt.Errorf("create deposit: %w", err)
		}
		s.log.WithField("reference", code).Warn("reference code collision, regenerating")
	}
	return deposit.Request{}, fmt.Errorf("could not assign a unique reference code after %d attempts", referenceAttempts)
}

// AttachProof stores the uploaded transfer proof against a pending request.
// Re-uploading replaces the previous artifact reference.
func (s *Service) AttachProof(ctx context.Context, id, accountID, name, contentType string, r io.Reader) (deposit.Request, error) {
	req, err := s.store.GetDeposit(ctx, id)
	if err != nil {
		return deposit.Request{}, err
	}
	if req.AccountID != accountID {
		return deposit.Request{}, storage.ErrNotFound
	}
	if req.Status != deposit.StatusPending {
		return deposit.Request{}, fmt.Errorf("deposit %s is %s; proof can only be attached while pending", id, req.Status)
	}

	proofID, err := s.proofs.SaveProof(ctx, name, r)
	if err != nil {
		return deposit.Request{}, fmt.Errorf("save proof: %w", err)
	}

	req.ProofID = proofID
	req.ProofName = name
	req.ProofContentType = contentType
	req.UpdatedAt = time.Now().UTC()

	updated, err := s.store.UpdateDeposit(ctx, req)
	if err != nil {
		return deposit.Request{}, fmt.Errorf("update deposit: %w", err)
	}
	s.log.WithFields(map[string]interface{}{
		"deposit_id": id,
		"proof_id":   proofID,
	}).Info("transfer proof attached")
	return updated, nil
}

// Get returns one request, scoped to its owner unless accountID is empty
// (admin access).
func (s *Service) Get(ctx context.Context, id, accountID string) (deposit.Request, error) {
	req, err := s.store.GetDeposit(ctx, id)
	if err != nil {
		return deposit.Request{}, err
	}
	if accountID != "" && req.AccountID != accountID {
		return deposit.Request{}, storage.ErrNotFound
	}
	return req, nil
}

// List returns an account's requests.
func (s *Service) List(ctx context.Context, accountID string) ([]deposit.Request, error) {
	return s.store.ListDeposits(ctx, accountID)
}

// ListByStatus returns requests in one state, for the review queue.
func (s *Service) ListByStatus(ctx context.Context, status deposit.Status) ([]deposit.Request, error) {
	return s.store.ListDepositsByStatus(ctx, status)
}

// OpenProof streams the stored proof artifact for review.
func (s *Service) OpenProof(ctx context.Context, id string) (io.ReadCloser, deposit.Request, error) {
	req, err := s.store.GetDeposit(ctx, id)
	if err != nil {
		return nil, deposit.Request{}, err
	}
	if req.ProofID == "" {
		return nil, deposit.Request{}, storage.ErrNotFound
	}
	rc, err := s.proofs.OpenProof(ctx, req.ProofID)
	if err != nil {
		return nil, deposit.Request{}, err
	}
	return rc, req, nil
}

// Approve accepts a pending request: the account's wallet is provisioned if
// this is its first approved deposit, the net amount is minted as NGNTS and
// credited, and the request moves to approved carrying the mint transaction
// hash for the confirmation poller.
func (s *Service) Approve(ctx context.Context, id, reviewer string) (deposit.Request, error) {
	req, err := s.store.GetDeposit(ctx, id)
	if err != nil {
		return deposit.Request{}, err
	}
	if req.Status != deposit.StatusPending {
		return deposit.Request{}, fmt.Errorf("deposit %s is %s; only pending requests can be approved", id, req.Status)
	}
	if req.ProofID == "" {
		return deposit.Request{}, fmt.Errorf("deposit %s has no transfer proof attached", id)
	}

	if err := s.activator.EnsureActive(ctx, req.AccountID); err != nil {
		return deposit.Request{}, fmt.Errorf("activate wallet for account %s: %w", req.AccountID, err)
	}

	acct, err := s.accounts.Get(ctx, req.AccountID)
	if err != nil {
		return deposit.Request{}, err
	}

	txHash, err := s.gateway.Mint(ctx, acct.WalletAddress, stableAsset, req.Breakdown.NetCredited)
	if err != nil {
		return deposit.Request{}, fmt.Errorf("mint %s: %w", stableAsset, err)
	}

	req.Status = deposit.StatusApproved
	req.TxHash = txHash
	req.ReviewedBy = reviewer
	req.UpdatedAt = time.Now().UTC()

	// Status flip and balance credit commit together; if this fails the
	// request stays pending with no credit, so the approval can be retried.
	updated, err := s.store.ApproveDeposit(ctx, req, req.Breakdown.NetCredited)
	if err != nil {
		return deposit.Request{}, fmt.Errorf("approve deposit: %w", err)
	}

	s.metrics.DepositsApproved.Inc()
	s.log.WithFields(map[string]interface{}{
		"deposit_id": id,
		"account_id": req.AccountID,
		"tx_hash":    txHash,
		"reviewer":   reviewer,
	}).Info("deposit approved")
	return updated, nil
}

// Reject declines a pending request with a mandatory reason. Rejection is
// terminal.
func (s *Service) Reject(ctx context.Context, id, reviewer, reason string) (deposit.Request, error) {
	if strings.TrimSpace(reason) == "" {
		return deposit.Request{}, fmt.Errorf("a rejection reason is required")
	}

	req, err := s.store.GetDeposit(ctx, id)
	if err != nil {
		return deposit.Request{}, err
	}
	if req.Status != deposit.StatusPending {
		return deposit.Request{}, fmt.Errorf("deposit %s is %s; only pending requests can be rejected", id, req.Status)
	}

	req.Status = deposit.StatusRejected
	req.RejectionReason = reason
	req.ReviewedBy = reviewer
	req.UpdatedAt = time.Now().UTC()

	updated, err := s.store.UpdateDeposit(ctx, req)
	if err != nil {
		return deposit.Request{}, fmt.Errorf("update deposit: %w", err)
	}

	s.metrics.DepositsRejected.Inc()
	s.log.WithFields(map[string]interface{}{
		"deposit_id": id,
		"reviewer":   reviewer,
	}).Info("deposit rejected")
	return updated, nil
}
