// Package fees computes deterministic fee breakdowns for funding requests.
package fees

import (
	"fmt"

	"github.com/regenfi/platform/internal/app/config"
	"github.com/regenfi/platform/internal/app/domain/fee"
)

// Service prices requests against the loaded fee schedule. It is pure: no
// storage, no clock.
type Service struct {
	schedule *config.FeeSchedule
}

// New creates a pricing service over a validated schedule.
func New(schedule *config.FeeSchedule) *Service {
	return &Service{schedule: schedule}
}

// Limits returns the request bounds for a product.
func (s *Service) Limits(product fee.Product) (config.ProductLimits, error) {
	switch product {
	case fee.ProductRegenerator:
		return s.schedule.Regenerator, nil
	case fee.ProductPrimer:
		return s.schedule.Primer, nil
	default:
		return config.ProductLimits{}, fmt.Errorf("unknown product %q", product)
	}
}

// MaxProofBytes returns the upload ceiling for transfer proofs.
func (s *Service) MaxProofBytes() int64 {
	return s.schedule.MaxProofBytes
}

// Preview computes the fee partition for a requested amount. The platform
// fee is floor(amount * bps / 10000) and the remainder after both fees is
// credited, so the three parts always sum to the requested amount exactly.
func (s *Service) Preview(product fee.Product, amount int64) (fee.Breakdown, error) {
	limits, err := s.Limits(product)
	if err != nil {
		return fee.Breakdown{}, err
	}
	if amount < limits.MinAmount || amount > limits.MaxAmount {
		return fee.Breakdown{}, fmt.Errorf("amount %d outside %s limits [%d, %d]",
			amount, product, limits.MinAmount, limits.MaxAmount)
	}

	platformFee := amount * s.schedule.PlatformFeeBps / 10000
	gasFee := s.schedule.GasFeeAmount
	net := amount - platformFee - gasFee
	if net <= 0 {
		return fee.Breakdown{}, fmt.Errorf("amount %d does not cover fees", amount)
	}

	return fee.Breakdown{
		AmountRequested:   amount,
		PlatformFeeBps:    s.schedule.PlatformFeeBps,
		PlatformFeeAmount: platformFee,
		GasFeeAmount:      gasFee,
		NetCredited:       net,
	}, nil
}
