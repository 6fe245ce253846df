// Package holdings tracks per-project token positions and runs the
// redemption funnel that converts liquid tokens back to NGNTS.
package holdings

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/regenfi/platform/internal/app/domain/holding"
	"github.com/regenfi/platform/internal/app/metrics"
	"github.com/regenfi/platform/internal/app/storage"
	"github.com/regenfi/platform/pkg/logger"
)

// Service manages holdings and redemption requests.
type Service struct {
	store   storage.HoldingStore
	metrics *metrics.Metrics
	log     *logger.Logger
}

// New creates the holdings service.
func New(store storage.HoldingStore, m *metrics.Metrics, log *logger.Logger) *Service {
	return &Service{store: store, metrics: m, log: log}
}

// Credit adds tokens to an account's position in a project, creating the
// holding on first credit. The liquid/locked split is preserved per credit.
func (s *Service) Credit(ctx context.Context, accountID, projectID string, liquid, locked int64, lockType holding.LockType, navPerToken int64) (holding.Holding, error) {
	if liquid < 0 || locked < 0 || liquid+locked == 0 {
		return holding.Holding{}, fmt.Errorf("credit must be positive, got liquid=%d locked=%d", liquid, locked)
	}
	if navPerToken <= 0 {
		return holding.Holding{}, fmt.Errorf("nav per token must be positive, got %d", navPerToken)
	}

	now := time.Now().UTC()
	h, err := s.store.GetHoldingByProject(ctx, accountID, projectID)
	switch {
	case err == nil:
		h.TotalTokens += liquid + locked
		h.LiquidTokens += liquid
		h.LockedTokens += locked
		h.NAVPerToken = navPerToken
		if locked > 0 && h.LockType == holding.LockNone {
			h.LockType = lockType
		}
		h.UpdatedAt = now
		return s.store.UpdateHolding(ctx, h)
	case errors.Is(err, storage.ErrNotFound):
		h = holding.Holding{
			ID:           uuid.NewString(),
			AccountID:    accountID,
			ProjectID:    projectID,
			TotalTokens:  liquid + locked,
			LiquidTokens: liquid,
			LockedTokens: locked,
			NAVPerToken:  navPerToken,
			LockType:     lockType,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if locked == 0 {
			h.LockType = holding.LockNone
		}
		return s.store.CreateHolding(ctx, h)
	default:
		return holding.Holding{}, err
	}
}

// List returns an account's holdings.
func (s *Service) List(ctx context.Context, accountID string) ([]holding.Holding, error) {
	return s.store.ListHoldings(ctx, accountID)
}

// RequestRedemption files a request to convert liquid tokens to NGNTS. The
// payout is priced at the holding's current NAV snapshot and frozen on the
// request.
func (s *Service) RequestRedemption(ctx context.Context, accountID, projectID string, tokens int64) (holding.Redemption, error) {
	if tokens <= 0 {
		return holding.Redemption{}, fmt.Errorf("token count must be positive, got %d", tokens)
	}

	h, err := s.store.GetHoldingByProject(ctx, accountID, projectID)
	if err != nil {
		return holding.Redemption{}, err
	}
	if tokens > h.LiquidTokens {
		return holding.Redemption{}, fmt.Errorf("requested %d tokens but only %d are liquid", tokens, h.LiquidTokens)
	}

	now := time.Now().UTC()
	r := holding.Redemption{
		ID:           uuid.NewString(),
		AccountID:    accountID,
		ProjectID:    projectID,
		Tokens:       tokens,
		NAVPerToken:  h.NAVPerToken,
		PayoutAmount: tokens * h.NAVPerToken,
		Status:       holding.RedemptionPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	created, err := s.store.CreateRedemption(ctx, r)
	if err != nil {
		return holding.Redemption{}, fmt.Errorf("create redemption: %w", err)
	}

	s.metrics.RedemptionsRequested.Inc()
	s.log.WithFields(map[string]interface{}{
		"redemption_id": created.ID,
		"account_id":    accountID,
		"project_id":    projectID,
		"tokens":        tokens,
	}).Info("redemption requested")
	return created, nil
}

// GetRedemption returns one request, scoped to its owner unless accountID is
// empty.
func (s *Service) GetRedemption(ctx context.Context, id, accountID string) (holding.Redemption, error) {
	r, err := s.store.GetRedemption(ctx, id)
	if err != nil {
		return holding.Redemption{}, err
	}
	if accountID != "" && r.AccountID != accountID {
		return holding.Redemption{}, storage.ErrNotFound
	}
	return r, nil
}

// ListRedemptions returns an account's redemption requests.
func (s *Service) ListRedemptions(ctx context.Context, accountID string) ([]holding.Redemption, error) {
	return s.store.ListRedemptions(ctx, accountID)
}

// ListRedemptionsByStatus returns redemption requests in one state.
func (s *Service) ListRedemptionsByStatus(ctx context.Context, status holding.RedemptionStatus) ([]holding.Redemption, error) {
	return s.store.ListRedemptionsByStatus(ctx, status)
}

// ApproveRedemption burns the tokens from the holding and credits the frozen
// payout to the NGNTS balance. Liquidity is re-checked at approval because
// other redemptions may have settled since the request was filed.
func (s *Service) ApproveRedemption(ctx context.Context, id, reviewer string) (holding.Redemption, error) {
	r, err := s.store.GetRedemption(ctx, id)
	if err != nil {
		return holding.Redemption{}, err
	}
	if r.Status != holding.RedemptionPending {
		return holding.Redemption{}, fmt.Errorf("redemption %s is %s; only pending requests can be approved", id, r.Status)
	}

	h, err := s.store.GetHoldingByProject(ctx, r.AccountID, r.ProjectID)
	if err != nil {
		return holding.Redemption{}, err
	}
	if r.Tokens > h.LiquidTokens {
		return holding.Redemption{}, fmt.Errorf("holding has %d liquid tokens, redemption needs %d", h.LiquidTokens, r.Tokens)
	}

	now := time.Now().UTC()
	h.TotalTokens -= r.Tokens
	h.LiquidTokens -= r.Tokens
	h.UpdatedAt = now

	r.Status = holding.RedemptionApproved
	r.ReviewedBy = reviewer
	r.UpdatedAt = now

	// Token burn, status flip and payout credit commit together; a failure
	// leaves the request pending and the holding untouched.
	updated, err := s.store.SettleRedemption(ctx, r, h, r.PayoutAmount)
	if err != nil {
		return holding.Redemption{}, fmt.Errorf("settle redemption: %w", err)
	}

	s.metrics.RedemptionsApproved.Inc()
	s.log.WithFields(map[string]interface{}{
		"redemption_id": id,
		"account_id":    r.AccountID,
		"payout":        r.PayoutAmount,
		"reviewer":      reviewer,
	}).Info("redemption approved")
	return updated, nil
}

// RejectRedemption declines a pending request with a mandatory reason. The
// holding is untouched.
func (s *Service) RejectRedemption(ctx context.Context, id, reviewer, reason string) (holding.Redemption, error) {
	if strings.TrimSpace(reason) == "" {
		return holding.Redemption{}, fmt.Errorf("a rejection reason is required")
	}

	r, err := s.store.GetRedemption(ctx, id)
	if err != nil {
		return holding.Redemption{}, err
	}
	if r.Status != holding.RedemptionPending {
		return holding.Redemption{}, fmt.Errorf("redemption %s is %s; only pending requests can be rejected", id, r.Status)
	}

	r.Status = holding.RedemptionRejected
	r.RejectionReason = reason
	r.ReviewedBy = reviewer
	r.UpdatedAt = time.Now().UTC()

	updated, err := s.store.UpdateRedemption(ctx, r)
	if err != nil {
		return holding.Redemption{}, fmt.Errorf("update redemption: %w", err)
	}
	s.log.WithFields(map[string]interface{}{
		"redemption_id": id,
		"reviewer":      reviewer,
	}).Info("redemption rejected")
	return updated, nil
}
