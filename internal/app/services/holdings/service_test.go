package holdings

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regenfi/platform/internal/app/domain/account"
	"github.com/regenfi/platform/internal/app/domain/holding"
	"github.com/regenfi/platform/internal/app/metrics"
	"github.com/regenfi/platform/internal/app/services/accounts"
	"github.com/regenfi/platform/internal/app/storage/memory"
	"github.com/regenfi/platform/pkg/logger"
)

func newFixture(t *testing.T) (*Service, *memory.Store, account.Account) {
	t.Helper()
	store := memory.New()
	log := logger.NewDefault("holdings-test")
	acctSvc := accounts.New(store, log)
	svc := New(store, metrics.New(), log)

	acct, err := acctSvc.Register(context.Background(), "Ada Obi", "ada@example.com")
	require.NoError(t, err)
	return svc, store, acct
}

func TestCreditCreatesAndAccumulates(t *testing.T) {
	svc, _, acct := newFixture(t)
	ctx := context.Background()

	h, err := svc.Credit(ctx, acct.ID, "proj-solar", 100, 50, holding.LockGrant, 2000)
	require.NoError(t, err)
	assert.Equal(t, int64(150), h.TotalTokens)
	assert.Equal(t, int64(100), h.LiquidTokens)
	assert.Equal(t, int64(50), h.LockedTokens)
	assert.Equal(t, holding.LockGrant, h.LockType)

	h, err = svc.Credit(ctx, acct.ID, "proj-solar", 25, 0, holding.LockNone, 2100)
	require.NoError(t, err)
	assert.Equal(t, int64(175), h.TotalTokens)
	assert.Equal(t, int64(125), h.LiquidTokens)
	assert.Equal(t, int64(2100), h.NAVPerToken)
	require.NoError(t, h.Validate())
}

func TestCreditValidation(t *testing.T) {
	svc, _, acct := newFixture(t)
	ctx := context.Background()

	_, err := svc.Credit(ctx, acct.ID, "proj-solar", 0, 0, holding.LockNone, 2000)
	assert.Error(t, err)
	_, err = svc.Credit(ctx, acct.ID, "proj-solar", -5, 10, holding.LockNone, 2000)
	assert.Error(t, err)
	_, err = svc.Credit(ctx, acct.ID, "proj-solar", 10, 0, holding.LockNone, 0)
	assert.Error(t, err)
}

func TestRedemptionBoundedByLiquidTokens(t *testing.T) {
	svc, _, acct := newFixture(t)
	ctx := context.Background()

	_, err := svc.Credit(ctx, acct.ID, "proj-solar", 100, 400, holding.LockPermanent, 2000)
	require.NoError(t, err)

	_, err = svc.RequestRedemption(ctx, acct.ID, "proj-solar", 0)
	assert.Error(t, err)
	_, err = svc.RequestRedemption(ctx, acct.ID, "proj-solar", 101)
	assert.Error(t, err, "locked tokens must not be redeemable")

	r, err := svc.RequestRedemption(ctx, acct.ID, "proj-solar", 100)
	require.NoError(t, err)
	assert.Equal(t, int64(2000), r.NAVPerToken)
	assert.Equal(t, int64(200000), r.PayoutAmount)
}

func TestApproveRedemptionBurnsAndPaysOut(t *testing.T) {
	svc, store, acct := newFixture(t)
	ctx := context.Background()

	_, err := svc.Credit(ctx, acct.ID, "proj-solar", 100, 0, holding.LockNone, 2000)
	require.NoError(t, err)

	r, err := svc.RequestRedemption(ctx, acct.ID, "proj-solar", 40)
	require.NoError(t, err)

	approved, err := svc.ApproveRedemption(ctx, r.ID, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, holding.RedemptionApproved, approved.Status)

	h, err := store.GetHoldingByProject(ctx, acct.ID, "proj-solar")
	require.NoError(t, err)
	assert.Equal(t, int64(60), h.TotalTokens)
	assert.Equal(t, int64(60), h.LiquidTokens)
	require.NoError(t, h.Validate())

	got, err := store.GetAccount(ctx, acct.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(80000), got.NGNTSBalance)

	// Approving again must fail.
	_, err = svc.ApproveRedemption(ctx, r.ID, "admin-2")
	assert.Error(t, err)
}

type flakyHoldingStore struct {
	*memory.Store
	failures int
}

func (s *flakyHoldingStore) SettleRedemption(ctx context.Context, r holding.Redemption, h holding.Holding, payout int64) (holding.Redemption, error) {
	if s.failures > 0 {
		s.failures--
		return holding.Redemption{}, errors.New("connection reset by peer")
	}
	return s.Store.SettleRedemption(ctx, r, h, payout)
}

func TestApproveCommitFailureBurnsAndPaysNothing(t *testing.T) {
	svc, store, acct := newFixture(t)
	ctx := context.Background()

	flaky := &flakyHoldingStore{Store: store, failures: 1}
	flakySvc := New(flaky, metrics.New(), logger.NewDefault("holdings-test"))

	_, err := svc.Credit(ctx, acct.ID, "proj-solar", 100, 0, holding.LockNone, 2000)
	require.NoError(t, err)
	r, err := svc.RequestRedemption(ctx, acct.ID, "proj-solar", 40)
	require.NoError(t, err)

	_, err = flakySvc.ApproveRedemption(ctx, r.ID, "admin-1")
	require.Error(t, err)

	// Nothing moved: holding intact, request still pending, no payout.
	h, err := store.GetHoldingByProject(ctx, acct.ID, "proj-solar")
	require.NoError(t, err)
	assert.Equal(t, int64(100), h.LiquidTokens)
	got, err := store.GetRedemption(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, holding.RedemptionPending, got.Status)
	a, err := store.GetAccount(ctx, acct.ID)
	require.NoError(t, err)
	assert.Zero(t, a.NGNTSBalance)

	// The retry settles exactly once.
	_, err = flakySvc.ApproveRedemption(ctx, r.ID, "admin-1")
	require.NoError(t, err)
	h, err = store.GetHoldingByProject(ctx, acct.ID, "proj-solar")
	require.NoError(t, err)
	assert.Equal(t, int64(60), h.LiquidTokens)
	a, err = store.GetAccount(ctx, acct.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(80000), a.NGNTSBalance)
}

func TestApproveRechecksLiquidity(t *testing.T) {
	svc, _, acct := newFixture(t)
	ctx := context.Background()

	_, err := svc.Credit(ctx, acct.ID, "proj-solar", 100, 0, holding.LockNone, 2000)
	require.NoError(t, err)

	first, err := svc.RequestRedemption(ctx, acct.ID, "proj-solar", 80)
	require.NoError(t, err)
	second, err := svc.RequestRedemption(ctx, acct.ID, "proj-solar", 80)
	require.NoError(t, err, "requests only reserve at approval time")

	_, err = svc.ApproveRedemption(ctx, first.ID, "admin-1")
	require.NoError(t, err)

	_, err = svc.ApproveRedemption(ctx, second.ID, "admin-1")
	assert.Error(t, err, "second approval exceeds remaining liquidity")
}

func TestRejectRedemptionLeavesHoldingUntouched(t *testing.T) {
	svc, store, acct := newFixture(t)
	ctx := context.Background()

	_, err := svc.Credit(ctx, acct.ID, "proj-solar", 100, 0, holding.LockNone, 2000)
	require.NoError(t, err)

	r, err := svc.RequestRedemption(ctx, acct.ID, "proj-solar", 40)
	require.NoError(t, err)

	_, err = svc.RejectRedemption(ctx, r.ID, "admin-1", "")
	assert.Error(t, err)

	rejected, err := svc.RejectRedemption(ctx, r.ID, "admin-1", "liquidity freeze this week")
	require.NoError(t, err)
	assert.Equal(t, holding.RedemptionRejected, rejected.Status)

	h, err := store.GetHoldingByProject(ctx, acct.ID, "proj-solar")
	require.NoError(t, err)
	assert.Equal(t, int64(100), h.LiquidTokens)
}

func TestNAVRefresherUpdatesSnapshots(t *testing.T) {
	svc, store, acct := newFixture(t)
	ctx := context.Background()

	_, err := svc.Credit(ctx, acct.ID, "proj-solar", 100, 0, holding.LockNone, 2000)
	require.NoError(t, err)
	_, err = svc.Credit(ctx, acct.ID, "proj-wind", 10, 0, holding.LockNone, 500)
	require.NoError(t, err)

	valuer := NewStaticValuer(500)
	valuer.SetPrice("proj-solar", 2500)

	refresher := NewNAVRefresher(svc, valuer, "*/10 * * * *", logger.NewDefault("nav-test"))
	require.NoError(t, refresher.RefreshAll(ctx))

	solar, err := store.GetHoldingByProject(ctx, acct.ID, "proj-solar")
	require.NoError(t, err)
	assert.Equal(t, int64(2500), solar.NAVPerToken)

	wind, err := store.GetHoldingByProject(ctx, acct.ID, "proj-wind")
	require.NoError(t, err)
	assert.Equal(t, int64(500), wind.NAVPerToken, "unchanged price stays put")

	// New redemptions quote against the refreshed snapshot.
	r, err := svc.RequestRedemption(ctx, acct.ID, "proj-solar", 10)
	require.NoError(t, err)
	assert.Equal(t, int64(25000), r.PayoutAmount)
}
