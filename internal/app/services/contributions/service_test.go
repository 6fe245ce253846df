package contributions

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regenfi/platform/internal/app/chain"
	"github.com/regenfi/platform/internal/app/config"
	"github.com/regenfi/platform/internal/app/domain/account"
	"github.com/regenfi/platform/internal/app/domain/contribution"
	"github.com/regenfi/platform/internal/app/metrics"
	"github.com/regenfi/platform/internal/app/services/accounts"
	"github.com/regenfi/platform/internal/app/services/fees"
	"github.com/regenfi/platform/internal/app/services/wallets"
	"github.com/regenfi/platform/internal/app/storage/memory"
	"github.com/regenfi/platform/pkg/logger"

	domainsettings "github.com/regenfi/platform/internal/app/domain/settings"
)

type fixture struct {
	svc     *Service
	store   *memory.Store
	sim     *chain.Simulator
	acct    account.Account
	acctSvc *accounts.Service
	feeSvc  *fees.Service
	wallets *wallets.Service
	metrics *metrics.Metrics
	log     *logger.Logger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	store := memory.New()
	sim := chain.NewSimulator(0)
	m := metrics.New()
	log := logger.NewDefault("contributions-test")

	feeSvc := fees.New(&config.FeeSchedule{
		PlatformFeeBps: 200,
		GasFeeAmount:   50,
		Regenerator:    config.ProductLimits{MinAmount: 1000, MaxAmount: 10000000},
		Primer:         config.ProductLimits{MinAmount: 1000, MaxAmount: 100000000},
		MaxProofBytes:  5 << 20,
	})
	acctSvc := accounts.New(store, log)
	walletSvc := wallets.New(store, store, sim, m, log)

	_, err := store.PutBankAccount(ctx, domainsettings.BankAccount{
		BankName:      "Providus Bank",
		AccountName:   "RegenFi Operations",
		AccountNumber: "9901234567",
	})
	require.NoError(t, err)

	acct, err := acctSvc.Register(ctx, "Bayo Ade", "bayo@example.com")
	require.NoError(t, err)
	acct, err = acctSvc.SetKYCStatus(ctx, acct.ID, account.KYCApproved)
	require.NoError(t, err)

	svc := New(store, store, store, acctSvc, feeSvc, walletSvc, sim, m, log)
	return &fixture{
		svc: svc, store: store, sim: sim, acct: acct,
		acctSvc: acctSvc, feeSvc: feeSvc, wallets: walletSvc, metrics: m, log: log,
	}
}

func (f *fixture) withProof(t *testing.T, amount int64) contribution.Request {
	t.Helper()
	instr, err := f.svc.Initiate(context.Background(), f.acct.ID, amount)
	require.NoError(t, err)
	updated, err := f.svc.AttachProof(context.Background(), instr.Request.ID, f.acct.ID,
		"wire.pdf", "application/pdf", strings.NewReader("pdf-bytes"))
	require.NoError(t, err)
	return updated
}

func TestInitiateUsesPrimerLimits(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Above the regenerator ceiling but inside the primer one.
	instr, err := f.svc.Initiate(ctx, f.acct.ID, 50000000)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(instr.Request.ReferenceCode, "LP-"))
	assert.Equal(t, int64(1000000), instr.Request.Breakdown.PlatformFeeAmount)

	_, err = f.svc.Initiate(ctx, f.acct.ID, 100000001)
	assert.Error(t, err)
}

func TestApproveCreditsFundBalanceAndMintsPoolUnits(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := f.withProof(t, 1000000)

	approved, err := f.svc.Approve(ctx, req.ID, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, contribution.StatusApproved, approved.Status)

	acct, err := f.store.GetAccount(ctx, f.acct.ID)
	require.NoError(t, err)
	assert.Equal(t, account.WalletActive, acct.WalletStatus)
	assert.Equal(t, req.Breakdown.NetCredited, acct.FundBalance)
	assert.Zero(t, acct.NGNTSBalance, "contributions must not touch the stable balance")
	assert.Equal(t, req.Breakdown.NetCredited, f.sim.MintedBalance(acct.WalletAddress, "RGNLP"))
}

type flakyContributionStore struct {
	*memory.Store
	failures int
}

func (s *flakyContributionStore) ApproveContribution(ctx context.Context, req contribution.Request, credit int64) (contribution.Request, error) {
	if s.failures > 0 {
		s.failures--
		return contribution.Request{}, errors.New("connection reset by peer")
	}
	return s.Store.ApproveContribution(ctx, req, credit)
}

func TestApproveCommitFailureLeavesFundBalanceUntouched(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	flaky := &flakyContributionStore{Store: f.store, failures: 1}
	svc := New(flaky, f.store, f.store, f.acctSvc, f.feeSvc, f.wallets, f.sim, f.metrics, f.log)

	req := f.withProof(t, 1000000)

	_, err := svc.Approve(ctx, req.ID, "admin-1")
	require.Error(t, err)

	acct, err := f.store.GetAccount(ctx, f.acct.ID)
	require.NoError(t, err)
	assert.Zero(t, acct.FundBalance)
	got, err := f.store.GetContribution(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, contribution.StatusPending, got.Status)

	approved, err := svc.Approve(ctx, req.ID, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, contribution.StatusApproved, approved.Status)

	acct, err = f.store.GetAccount(ctx, f.acct.ID)
	require.NoError(t, err)
	assert.Equal(t, req.Breakdown.NetCredited, acct.FundBalance)
}

func TestRejectIsTerminalWithReason(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := f.withProof(t, 1000000)

	_, err := f.svc.Reject(ctx, req.ID, "admin-1", " ")
	assert.Error(t, err)

	rejected, err := f.svc.Reject(ctx, req.ID, "admin-1", "amount mismatch on statement")
	require.NoError(t, err)
	assert.Equal(t, contribution.StatusRejected, rejected.Status)

	_, err = f.svc.Approve(ctx, req.ID, "admin-2")
	assert.Error(t, err)
}

func TestConfirmationCompletesApprovedContribution(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := f.withProof(t, 1000000)

	_, err := f.svc.Approve(ctx, req.ID, "admin-1")
	require.NoError(t, err)

	pending, err := f.svc.PendingConfirmations(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	require.NoError(t, f.svc.MarkConfirmed(ctx, req.ID))

	done, err := f.svc.Get(ctx, req.ID, "")
	require.NoError(t, err)
	assert.Equal(t, contribution.StatusCompleted, done.Status)
}
