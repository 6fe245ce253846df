package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regenfi/platform/internal/app/domain/deposit"
	"github.com/regenfi/platform/internal/app/domain/holding"
	"github.com/regenfi/platform/internal/app/domain/wallet"
	"github.com/regenfi/platform/internal/app/storage"
)

func TestReferenceCodeUniqueAmongOutstanding(t *testing.T) {
	store := New()
	ctx := context.Background()

	first, err := store.CreateDeposit(ctx, deposit.Request{
		ID: "d1", AccountID: "a1", Amount: 5000,
		ReferenceCode: "RF-SAME", Status: deposit.StatusPending,
	})
	require.NoError(t, err)

	_, err = store.CreateDeposit(ctx, deposit.Request{
		ID: "d2", AccountID: "a2", Amount: 5000,
		ReferenceCode: "RF-SAME", Status: deposit.StatusPending,
	})
	assert.True(t, errors.Is(err, storage.ErrDuplicateReference))

	// Once the first request is terminal the code may be reused.
	first.Status = deposit.StatusRejected
	_, err = store.UpdateDeposit(ctx, first)
	require.NoError(t, err)

	_, err = store.CreateDeposit(ctx, deposit.Request{
		ID: "d3", AccountID: "a3", Amount: 5000,
		ReferenceCode: "RF-SAME", Status: deposit.StatusPending,
	})
	assert.NoError(t, err)
}

func TestHoldingWritesValidatePartition(t *testing.T) {
	store := New()
	ctx := context.Background()

	_, err := store.CreateHolding(ctx, holding.Holding{
		ID: "h1", AccountID: "a1", ProjectID: "p1",
		TotalTokens: 10, LiquidTokens: 5, LockedTokens: 4,
	})
	assert.Error(t, err, "total != liquid + locked must be rejected")

	h, err := store.CreateHolding(ctx, holding.Holding{
		ID: "h1", AccountID: "a1", ProjectID: "p1",
		TotalTokens: 10, LiquidTokens: 6, LockedTokens: 4,
	})
	require.NoError(t, err)

	h.LiquidTokens = -1
	h.TotalTokens = 3
	_, err = store.UpdateHolding(ctx, h)
	assert.Error(t, err, "negative buckets must be rejected")
}

func TestOnePendingActivationPerAccount(t *testing.T) {
	store := New()
	ctx := context.Background()

	_, err := store.CreateActivationRequest(ctx, wallet.ActivationRequest{
		ID: "w1", AccountID: "a1", PublicKey: "K1", Status: wallet.StatusPending,
	})
	require.NoError(t, err)

	_, err = store.CreateActivationRequest(ctx, wallet.ActivationRequest{
		ID: "w2", AccountID: "a1", PublicKey: "K2", Status: wallet.StatusPending,
	})
	assert.Error(t, err)

	got, err := store.GetPendingActivationByAccount(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, "w1", got.ID)

	_, err = store.GetPendingActivationByAccount(ctx, "a2")
	assert.True(t, errors.Is(err, storage.ErrNotFound))
}
