package fees

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regenfi/platform/internal/app/config"
	"github.com/regenfi/platform/internal/app/domain/fee"
)

func testSchedule() *config.FeeSchedule {
	return &config.FeeSchedule{
		PlatformFeeBps: 200,
		GasFeeAmount:   50,
		Regenerator:    config.ProductLimits{MinAmount: 1000, MaxAmount: 10000000},
		Primer:         config.ProductLimits{MinAmount: 1000, MaxAmount: 100000000},
		MaxProofBytes:  5 << 20,
	}
}

func TestPreviewPartitionsExactly(t *testing.T) {
	svc := New(testSchedule())

	amounts := []int64{1000, 1001, 4999, 50000, 123457, 10000000}
	for _, amount := range amounts {
		b, err := svc.Preview(fee.ProductRegenerator, amount)
		require.NoError(t, err, "amount %d", amount)

		assert.Equal(t, amount, b.AmountRequested)
		assert.Equal(t, int64(200), b.PlatformFeeBps)
		assert.Equal(t, amount*200/10000, b.PlatformFeeAmount, "amount %d", amount)
		assert.Equal(t, int64(50), b.GasFeeAmount)
		assert.Equal(t, amount, b.PlatformFeeAmount+b.GasFeeAmount+b.NetCredited,
			"partition must sum back to the requested amount for %d", amount)
	}
}

func TestPreviewEnforcesProductLimits(t *testing.T) {
	svc := New(testSchedule())

	_, err := svc.Preview(fee.ProductRegenerator, 999)
	assert.Error(t, err)

	_, err = svc.Preview(fee.ProductRegenerator, 10000001)
	assert.Error(t, err)

	// The primer ceiling is an order of magnitude higher.
	_, err = svc.Preview(fee.ProductPrimer, 10000001)
	assert.NoError(t, err)

	_, err = svc.Preview(fee.ProductPrimer, 100000001)
	assert.Error(t, err)
}

func TestPreviewUnknownProduct(t *testing.T) {
	svc := New(testSchedule())
	_, err := svc.Preview(fee.Product("staking"), 5000)
	assert.Error(t, err)
}

func TestPreviewRejectsAmountConsumedByFees(t *testing.T) {
	sched := testSchedule()
	sched.GasFeeAmount = 2000
	sched.Regenerator.MinAmount = 1
	svc := New(sched)

	_, err := svc.Preview(fee.ProductRegenerator, 1500)
	assert.Error(t, err, "net credit would be negative")
}
