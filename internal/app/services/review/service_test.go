package review

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regenfi/platform/internal/app/chain"
	"github.com/regenfi/platform/internal/app/config"
	"github.com/regenfi/platform/internal/app/domain/account"
	"github.com/regenfi/platform/internal/app/domain/deposit"
	"github.com/regenfi/platform/internal/app/domain/holding"
	"github.com/regenfi/platform/internal/app/metrics"
	"github.com/regenfi/platform/internal/app/services/accounts"
	"github.com/regenfi/platform/internal/app/services/contributions"
	"github.com/regenfi/platform/internal/app/services/deposits"
	"github.com/regenfi/platform/internal/app/services/fees"
	"github.com/regenfi/platform/internal/app/services/holdings"
	"github.com/regenfi/platform/internal/app/services/wallets"
	"github.com/regenfi/platform/internal/app/storage/memory"
	"github.com/regenfi/platform/pkg/logger"

	domainsettings "github.com/regenfi/platform/internal/app/domain/settings"
)

type fixture struct {
	svc      *Service
	deposits *deposits.Service
	holdings *holdings.Service
	store    *memory.Store
	acct     account.Account
}

func newFixture(t *testing.T, quorum int) *fixture {
	t.Helper()
	ctx := context.Background()

	store := memory.New()
	sim := chain.NewSimulator(0)
	m := metrics.New()
	log := logger.NewDefault("review-test")

	feeSvc := fees.New(&config.FeeSchedule{
		PlatformFeeBps: 200,
		GasFeeAmount:   50,
		Regenerator:    config.ProductLimits{MinAmount: 1000, MaxAmount: 10000000},
		Primer:         config.ProductLimits{MinAmount: 1000, MaxAmount: 100000000},
		MaxProofBytes:  5 << 20,
	})
	acctSvc := accounts.New(store, log)
	walletSvc := wallets.New(store, store, sim, m, log)
	depositSvc := deposits.New(store, store, store, acctSvc, feeSvc, walletSvc, sim, m, log)
	contributionSvc := contributions.New(store, store, store, acctSvc, feeSvc, walletSvc, sim, m, log)
	holdingSvc := holdings.New(store, m, log)

	_, err := store.PutBankAccount(ctx, domainsettings.BankAccount{
		BankName:      "Providus Bank",
		AccountName:   "RegenFi Operations",
		AccountNumber: "9901234567",
	})
	require.NoError(t, err)

	acct, err := acctSvc.Register(ctx, "Ada Obi", "ada@example.com")
	require.NoError(t, err)
	acct, err = acctSvc.SetKYCStatus(ctx, acct.ID, account.KYCApproved)
	require.NoError(t, err)

	svc := New(depositSvc, contributionSvc, walletSvc, holdingSvc, quorum, log)
	return &fixture{svc: svc, deposits: depositSvc, holdings: holdingSvc, store: store, acct: acct}
}

func (f *fixture) pendingDeposit(t *testing.T) deposit.Request {
	t.Helper()
	instr, err := f.deposits.Initiate(context.Background(), f.acct.ID, 50000)
	require.NoError(t, err)
	req, err := f.deposits.AttachProof(context.Background(), instr.Request.ID, f.acct.ID,
		"transfer.png", "image/png", strings.NewReader("png"))
	require.NoError(t, err)
	return req
}

func TestQueueAggregatesFunnels(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()

	dep := f.pendingDeposit(t)
	_, err := f.holdings.Credit(ctx, f.acct.ID, "proj-solar", 100, 0, holding.LockNone, 2000)
	require.NoError(t, err)
	red, err := f.holdings.RequestRedemption(ctx, f.acct.ID, "proj-solar", 10)
	require.NoError(t, err)

	items, err := f.svc.Queue(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)

	kinds := map[Kind]string{}
	for _, it := range items {
		kinds[it.Kind] = it.ID
	}
	assert.Equal(t, dep.ID, kinds[KindDeposit])
	assert.Equal(t, red.ID, kinds[KindRedemption])
}

func TestEndorseAppliesAtQuorum(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()
	dep := f.pendingDeposit(t)

	first, err := f.svc.Endorse(ctx, KindDeposit, dep.ID, "admin-1")
	require.NoError(t, err)
	assert.False(t, first.Applied)

	// Still pending after one endorsement.
	got, err := f.deposits.Get(ctx, dep.ID, "")
	require.NoError(t, err)
	assert.Equal(t, deposit.StatusPending, got.Status)

	second, err := f.svc.Endorse(ctx, KindDeposit, dep.ID, "admin-2")
	require.NoError(t, err)
	assert.True(t, second.Applied)
	assert.Equal(t, []string{"admin-1", "admin-2"}, second.Endorsements)

	got, err = f.deposits.Get(ctx, dep.ID, "")
	require.NoError(t, err)
	assert.Equal(t, deposit.StatusApproved, got.Status)
	assert.Equal(t, "admin-1,admin-2", got.ReviewedBy)
}

func TestEndorseRejectsDuplicateAdmin(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()
	dep := f.pendingDeposit(t)

	_, err := f.svc.Endorse(ctx, KindDeposit, dep.ID, "admin-1")
	require.NoError(t, err)
	_, err = f.svc.Endorse(ctx, KindDeposit, dep.ID, "admin-1")
	assert.Error(t, err, "one admin cannot meet quorum alone")
}

func TestEndorsementsClearedWhenResolvedDirectly(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()
	dep := f.pendingDeposit(t)

	_, err := f.svc.Endorse(ctx, KindDeposit, dep.ID, "admin-1")
	require.NoError(t, err)

	// An admin resolves the request through the direct approval path,
	// bypassing the queue entirely.
	_, err = f.deposits.Approve(ctx, dep.ID, "admin-9")
	require.NoError(t, err)

	_, err = f.svc.Endorse(ctx, KindDeposit, dep.ID, "admin-2")
	assert.Error(t, err, "resolved requests cannot collect endorsements")

	f.svc.mu.Lock()
	stale := len(f.svc.endorsements)
	f.svc.mu.Unlock()
	assert.Zero(t, stale, "stale endorsement entries must not accumulate")
}

func TestQueuePrunesStaleEndorsements(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()
	dep := f.pendingDeposit(t)

	_, err := f.svc.Endorse(ctx, KindDeposit, dep.ID, "admin-1")
	require.NoError(t, err)

	_, err = f.deposits.Reject(ctx, dep.ID, "admin-9", "statement mismatch")
	require.NoError(t, err)

	items, err := f.svc.Queue(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)

	f.svc.mu.Lock()
	stale := len(f.svc.endorsements)
	f.svc.mu.Unlock()
	assert.Zero(t, stale)
}

func TestVetoRejectsImmediately(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()
	dep := f.pendingDeposit(t)

	_, err := f.svc.Endorse(ctx, KindDeposit, dep.ID, "admin-1")
	require.NoError(t, err)

	require.NoError(t, f.svc.Veto(ctx, KindDeposit, dep.ID, "admin-3", "statement mismatch"))

	got, err := f.deposits.Get(ctx, dep.ID, "")
	require.NoError(t, err)
	assert.Equal(t, deposit.StatusRejected, got.Status)

	err = f.svc.Veto(ctx, KindDeposit, dep.ID, "admin-3", "again")
	assert.Error(t, err, "terminal requests cannot be vetoed twice")
}

func TestVetoRequiresKnownKind(t *testing.T) {
	f := newFixture(t, 2)
	err := f.svc.Veto(context.Background(), Kind("mystery"), "x", "admin-1", "why not")
	assert.Error(t, err)
}
