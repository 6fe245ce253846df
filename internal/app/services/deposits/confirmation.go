package deposits

import (
	"context"
	"fmt"
	"time"

	"github.com/regenfi/platform/internal/app/domain/deposit"
	"github.com/regenfi/platform/internal/app/services/confirmations"
)

// PendingConfirmations lists approved deposits awaiting settlement.
func (s *Service) PendingConfirmations(ctx context.Context) ([]confirmations.PendingTx, error) {
	reqs, err := s.store.ListDepositsByStatus(ctx, deposit.StatusApproved)
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

// MarkConfirmed moves an approved deposit to completed.
func (s *Service) MarkConfirmed(ctx context.Context, id string) error {
	req, err := s.store.GetDeposit(ctx, id)
	if err != nil {
		return err
	}
	if req.Status != deposit.StatusApproved {
		return fmt.Errorf("deposit %s is %s, not approved", id, req.Status)
	}

	now := time.Now().UTC()
	req.Status = deposit.StatusCompleted
	req.CompletedAt = now
	req.UpdatedAt = now

	if _, err := s.store.UpdateDeposit(ctx, req); err != nil {
		return fmt.Errorf("update deposit: %w", err)
	}
	s.metrics.DepositsCompleted.Inc()
	return nil
}
