// Package contributions runs the Primer liquidity-pool funnel. It mirrors
// the deposit funnel but credits the pooled-fund balance and mints pool
// units instead of the stable token.
package contributions

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/regenfi/platform/internal/app/chain"
	"github.com/regenfi/platform/internal/app/domain/contribution"
	"github.com/regenfi/platform/internal/app/domain/fee"
	"github.com/regenfi/platform/internal/app/domain/settings"
	"github.com/regenfi/platform/internal/app/metrics"
	"github.com/regenfi/platform/internal/app/reference"
	"github.com/regenfi/platform/internal/app/services/accounts"
	"github.com/regenfi/platform/internal/app/services/confirmations"
	"github.com/regenfi/platform/internal/app/services/deposits"
	"github.com/regenfi/platform/internal/app/services/fees"
	"github.com/regenfi/platform/internal/app/storage"
	"github.com/regenfi/platform/pkg/logger"
)

const (
	referencePrefix   = "LP"
	referenceAttempts = 5
	poolAsset         = "RGNLP"
)

// Service implements the contribution funnel.
type Service struct {
	store     storage.ContributionStore
	proofs    storage.ProofStore
	settings  storage.SettingsStore
	accounts  *accounts.Service
	fees      *fees.Service
	activator deposits.Activator
	gateway   chain.Gateway
	metrics   *metrics.Metrics
	log       *logger.Logger
}

// New creates the contribution service.
func New(
	store storage.ContributionStore,
	proofs storage.ProofStore,
	settingsStore storage.SettingsStore,
	accountSvc *accounts.Service,
	feeSvc *fees.Service,
	activator deposits.Activator,
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

// Instructions pairs a created request with the platform bank account.
type Instructions struct {
	Request     contribution.Request `json:"request"`
	BankAccount settings.BankAccount `json:"bank_account"`
}

// Initiate prices the amount against the primer schedule, assigns a unique
// reference code and stores a pending request.
func (s *Service) Initiate(ctx context.Context, accountID string, amount int64) (Instructions, error) {
	if _, err := s.accounts.RequireKYCApproved(ctx, accountID); err != nil {
		return Instructions{}, err
	}

	breakdown, err := s.fees.Preview(fee.ProductPrimer, amount)
	if err != nil {
		return Instructions{}, err
	}

	bank, err := s.settings.GetBankAccount(ctx)
	if err != nil {
		return Instructions{}, fmt.Errorf("platform bank account not configured: %w", err)
	}

	now := time.Now().UTC()
	req := contribution.Request{
		ID:        uuid.NewString(),
		AccountID: accountID,
		Amount:    amount,
		Breakdown: breakdown,
		Status:    contribution.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	created, err := s.createWithReference(ctx, req)
	if err != nil {
		return Instructions{}, err
	}

	s.metrics.ContributionsSubmitted.Inc()
	s.log.WithFields(map[string]interface{}{
		"contribution_id": created.ID,
		"account_id":      accountID,
		"reference":       created.ReferenceCode,
		"amount":          amount,
	}).Info("contribution initiated")

	return Instructions{Request: created, BankAccount: bank}, nil
}

func (s *Service) createWithReference(ctx context.Context, req contribution.Request) (contribution.Request, error) {
	for attempt := 0; attempt < referenceAttempts; attempt++ {
		code, err := reference.New(referencePrefix)
		if err != nil {
			return contribution.Request{}, err
		}
		req.ReferenceCode = code

		created, err := s.store.CreateContribution(ctx, req)
		if err == nil {
			return created, nil
		}
		if !errors.Is(err, storage.ErrDuplicateReference) {
			return contribution.Request{}, fmt.Errorf("create contribution: %w", err)
		}
		s.log.WithField("reference", code).Warn("reference code collision, regenerating")
	}
	return contribution.Request{}, fmt.Errorf("could not assign a unique reference code after %d attempts", referenceAttempts)
}

// AttachProof stores the uploaded transfer proof against a pending request.
func (s *Service) AttachProof(ctx context.Context, id, accountID, name, contentType string, r io.Reader) (contribution.Request, error) {
	req, err := s.store.GetContribution(ctx, id)
	if err != nil {
		return contribution.Request{}, err
	}
	if req.AccountID != accountID {
		return contribution.Request{}, storage.ErrNotFound
	}
	if req.Status != contribution.StatusPending {
		return contribution.Request{}, fmt.Errorf("contribution %s is %s; proof can only be attached while pending", id, req.Status)
	}

	proofID, err := s.proofs.SaveProof(ctx, name, r)
	if err != nil {
		return contribution.Request{}, fmt.Errorf("save proof: %w", err)
	}

	req.ProofID = proofID
	req.ProofName = name
	req.ProofContentType = contentType
	req.UpdatedAt = time.Now().UTC()

	updated, err := s.store.UpdateContribution(ctx, req)
	if err != nil {
		return contribution.Request{}, fmt.Errorf("update contribution: %w", err)
	}
	s.log.WithFields(map[string]interface{}{
		"contribution_id": id,
		"proof_id":        proofID,
	}).Info("transfer proof attached")
	return updated, nil
}

// Get returns one request, scoped to its owner unless accountID is empty.
func (s *Service) Get(ctx context.Context, id, accountID string) (contribution.Request, error) {
	req, err := s.store.GetContribution(ctx, id)
	if err != nil {
		return contribution.Request{}, err
	}
	if accountID != "" && req.AccountID != accountID {
		return contribution.Request{}, storage.ErrNotFound
	}
	return req, nil
}

// List returns an account's requests.
func (s *Service) List(ctx context.Context, accountID string) ([]contribution.Request, error) {
	return s.store.ListContributions(ctx, accountID)
}

// ListByStatus returns requests in one state, for the review queue.
func (s *Service) ListByStatus(ctx context.Context, status contribution.Status) ([]contribution.Request, error) {
	return s.store.ListContributionsByStatus(ctx, status)
}

// OpenProof streams the stored proof artifact for review.
func (s *Service) OpenProof(ctx context.Context, id string) (io.ReadCloser, contribution.Request, error) {
	req, err := s.store.GetContribution(ctx, id)
	if err != nil {
		return nil, contribution.Request{}, err
	}
	if req.ProofID == "" {
		return nil, contribution.Request{}, storage.ErrNotFound
	}
	rc, err := s.proofs.OpenProof(ctx, req.ProofID)
	if err != nil {
		return nil, contribution.Request{}, err
	}
	return rc, req, nil
}

// Approve accepts a pending contribution: the wallet is provisioned if
// needed, pool units for the net amount are minted and the pooled-fund
// balance is credited.
func (s *Service) Approve(ctx context.Context, id, reviewer string) (contribution.Request, error) {
	req, err := s.store.GetContribution(ctx, id)
	if err != nil {
		return contribution.Request{}, err
	}
	if req.Status != contribution.StatusPending {
		return contribution.Request{}, fmt.Errorf("contribution %s is %s; only pending requests can be approved", id, req.Status)
	}
	if req.ProofID == "" {
		return contribution.Request{}, fmt.Errorf("contribution %s has no transfer proof attached", id)
	}

	if err := s.activator.EnsureActive(ctx, req.AccountID); err != nil {
		return contribution.Request{}, fmt.Errorf("activate wallet for account %s: %w", req.AccountID, err)
	}

	acct, err := s.accounts.Get(ctx, req.AccountID)
	if err != nil {
		return contribution.Request{}, err
	}

	txHash, err := s.gateway.Mint(ctx, acct.WalletAddress, poolAsset, req.Breakdown.NetCredited)
	if err != nil {
		return contribution.Request{}, fmt.Errorf("mint %s: %w", poolAsset, err)
	}

	req.Status = contribution.StatusApproved
	req.TxHash = txHash
	req.ReviewedBy = reviewer
	req.UpdatedAt = time.Now().UTC()

	// Status flip and fund credit commit together; a failure leaves the
	// request pending with no credit.
	updated, err := s.store.ApproveContribution(ctx, req, req.Breakdown.NetCredited)
	if err != nil {
		return contribution.Request{}, fmt.Errorf("approve contribution: %w", err)
	}

	s.metrics.ContributionsApproved.Inc()
	s.log.WithFields(map[string]interface{}{
		"contribution_id": id,
		"account_id":      req.AccountID,
		"tx_hash":         txHash,
		"reviewer":        reviewer,
	}).Info("contribution approved")
	return updated, nil
}

// Reject declines a pending contribution with a mandatory reason.
func (s *Service) Reject(ctx context.Context, id, reviewer, reason string) (contribution.Request, error) {
	if strings.TrimSpace(reason) == "" {
		return contribution.Request{}, fmt.Errorf("a rejection reason is required")
	}

	req, err := s.store.GetContribution(ctx, id)
	if err != nil {
		return contribution.Request{}, err
	}
	if req.Status != contribution.StatusPending {
		return contribution.Request{}, fmt.Errorf("contribution %s is %s; only pending requests can be rejected", id, req.Status)
	}

	req.Status = contribution.StatusRejected
	req.RejectionReason = reason
	req.ReviewedBy = reviewer
	req.UpdatedAt = time.Now().UTC()

	updated, err := s.store.UpdateContribution(ctx, req)
	if err != nil {
		return contribution.Request{}, fmt.Errorf("update contribution: %w", err)
	}

	s.metrics.ContributionsRejected.Inc()
	s.log.WithFields(map[string]interface{}{
		"contribution_id": id,
		"reviewer":        reviewer,
	}).Info("contribution rejected")
	return updated, nil
}

// PendingConfirmations lists approved contributions awaiting settlement.
func (s *Service) PendingConfirmations(ctx context.Context) ([]confirmations.PendingTx, error) {
	reqs, err := s.store.ListContributionsByStatus(ctx, contribution.StatusApproved)
	if err != nil {
		return nil, err
	}
	txs := make([]confirmations.PendingTx, 0, len(reqs))
	for _, r := range reqs {
		txs = append(txs, confirmations.PendingTx{
			ID:         r.ID,
			TxHash:     r.TxHash,
			ApprovedAt: r.UpdatedAt,
		})
	}
	return txs, nil
}

// MarkConfirmed moves an approved contribution to completed.
func (s *Service) MarkConfirmed(ctx context.Context, id string) error {
	req, err := s.store.GetContribution(ctx, id)
	if err != nil {
		return err
	}
	if req.Status != contribution.StatusApproved {
		return fmt.Errorf("contribution %s is %s, not approved", id, req.Status)
	}

	now := time.Now().UTC()
	req.Status = contribution.StatusCompleted
	req.CompletedAt = now
	req.UpdatedAt = now

	if _, err := s.store.UpdateContribution(ctx, req); err != nil {
		return fmt.Errorf("update contribution: %w", err)
	}
	return nil
}
