package deposits

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regenfi/platform/internal/app/chain"
	"github.com/regenfi/platform/internal/app/config"
	"github.com/regenfi/platform/internal/app/domain/account"
	"github.com/regenfi/platform/internal/app/domain/deposit"
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
	log := logger.NewDefault("deposits-test")

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

	acct, err := acctSvc.Register(ctx, "Ada Obi", "ada@example.com")
	require.NoError(t, err)
	acct, err = acctSvc.SetKYCStatus(ctx, acct.ID, account.KYCApproved)
	require.NoError(t, err)

	svc := New(store, store, store, acctSvc, feeSvc, walletSvc, sim, m, log)
	return &fixture{
		svc: svc, store: store, sim: sim, acct: acct,
		acctSvc: acctSvc, feeSvc: feeSvc, wallets: walletSvc, metrics: m, log: log,
	}
}

func (f *fixture) initiated(t *testing.T) deposit.Request {
	t.Helper()
	instr, err := f.svc.Initiate(context.Background(), f.acct.ID, 50000)
	require.NoError(t, err)
	return instr.Request
}

func (f *fixture) withProof(t *testing.T) deposit.Request {
	t.Helper()
	req := f.initiated(t)
	updated, err := f.svc.AttachProof(context.Background(), req.ID, f.acct.ID,
		"transfer.png", "image/png", strings.NewReader("png-bytes"))
	require.NoError(t, err)
	return updated
}

func TestInitiateComputesServerSideBreakdown(t *testing.T) {
	f := newFixture(t)

	instr, err := f.svc.Initiate(context.Background(), f.acct.ID, 50000)
	require.NoError(t, err)

	req := instr.Request
	assert.Equal(t, deposit.StatusPending, req.Status)
	assert.True(t, strings.HasPrefix(req.ReferenceCode, "RF-"), "reference %s", req.ReferenceCode)
	assert.Equal(t, int64(1000), req.Breakdown.PlatformFeeAmount)
	assert.Equal(t, int64(50), req.Breakdown.GasFeeAmount)
	assert.Equal(t, int64(48950), req.Breakdown.NetCredited)
	assert.Equal(t, "Providus Bank", instr.BankAccount.BankName)
}

func TestInitiateRejectsOutOfRangeAmounts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Initiate(ctx, f.acct.ID, 999)
	assert.Error(t, err)
	_, err = f.svc.Initiate(ctx, f.acct.ID, 10000001)
	assert.Error(t, err)
}

func TestInitiateUnknownAccount(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Initiate(context.Background(), "nope", 50000)
	assert.Error(t, err)
}

func TestInitiateRequiresApprovedKYC(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	unverified, err := f.acctSvc.Register(ctx, "Chidi Eze", "chidi@example.com")
	require.NoError(t, err)

	_, err = f.svc.Initiate(ctx, unverified.ID, 50000)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kyc")
}

func TestAttachProofOwnerScoped(t *testing.T) {
	f := newFixture(t)
	req := f.initiated(t)

	_, err := f.svc.AttachProof(context.Background(), req.ID, "someone-else",
		"transfer.png", "image/png", strings.NewReader("png"))
	assert.Error(t, err)
}

func TestApproveRequiresProof(t *testing.T) {
	f := newFixture(t)
	req := f.initiated(t)

	_, err := f.svc.Approve(context.Background(), req.ID, "admin-1")
	assert.Error(t, err)
}

func TestApproveActivatesWalletMintsAndCredits(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := f.withProof(t)

	approved, err := f.svc.Approve(ctx, req.ID, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, deposit.StatusApproved, approved.Status)
	assert.NotEmpty(t, approved.TxHash)
	assert.Equal(t, "admin-1", approved.ReviewedBy)

	acct, err := f.store.GetAccount(ctx, f.acct.ID)
	require.NoError(t, err)
	assert.Equal(t, account.WalletActive, acct.WalletStatus)
	assert.Equal(t, int64(48950), acct.NGNTSBalance)
	assert.True(t, f.sim.GasFunded(acct.WalletAddress))
	assert.Equal(t, int64(48950), f.sim.MintedBalance(acct.WalletAddress, "NGNTS"))

	// A second approval of the same request must fail; terminal review
	// decisions are immutable.
	_, err = f.svc.Approve(ctx, req.ID, "admin-2")
	assert.Error(t, err)
}

func TestSecondApprovedDepositDoesNotRefundGas(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := f.withProof(t)
	_, err := f.svc.Approve(ctx, first.ID, "admin-1")
	require.NoError(t, err)

	second := f.withProof(t)
	_, err = f.svc.Approve(ctx, second.ID, "admin-1")
	require.NoError(t, err, "wallet is already active; approval must not fund gas again")

	acct, err := f.store.GetAccount(ctx, f.acct.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2*48950), acct.NGNTSBalance)
}

// flakyDepositStore fails the atomic approval commit a set number of times,
// standing in for a dropped database connection mid-approval.
type flakyDepositStore struct {
	*memory.Store
	failures int
}

func (s *flakyDepositStore) ApproveDeposit(ctx context.Context, req deposit.Request, credit int64) (deposit.Request, error) {
	if s.failures > 0 {
		s.failures--
		return deposit.Request{}, errors.New("connection reset by peer")
	}
	return s.Store.ApproveDeposit(ctx, req, credit)
}

func TestApproveCommitFailureCreditsNothingAndRetriesOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	flaky := &flakyDepositStore{Store: f.store, failures: 1}
	svc := New(flaky, f.store, f.store, f.acctSvc, f.feeSvc, f.wallets, f.sim, f.metrics, f.log)

	req := f.withProof(t)

	_, err := svc.Approve(ctx, req.ID, "admin-1")
	require.Error(t, err)

	// The failed commit left no credit and the request still pending.
	acct, err := f.store.GetAccount(ctx, f.acct.ID)
	require.NoError(t, err)
	assert.Zero(t, acct.NGNTSBalance)
	got, err := f.store.GetDeposit(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, deposit.StatusPending, got.Status)

	// The retry succeeds and credits exactly once.
	approved, err := svc.Approve(ctx, req.ID, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, deposit.StatusApproved, approved.Status)

	acct, err = f.store.GetAccount(ctx, f.acct.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(48950), acct.NGNTSBalance)
}

func TestRejectRequiresReasonAndIsTerminal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := f.withProof(t)

	_, err := f.svc.Reject(ctx, req.ID, "admin-1", "")
	assert.Error(t, err)

	rejected, err := f.svc.Reject(ctx, req.ID, "admin-1", "transfer not received")
	require.NoError(t, err)
	assert.Equal(t, deposit.StatusRejected, rejected.Status)
	assert.Equal(t, "transfer not received", rejected.RejectionReason)

	_, err = f.svc.Approve(ctx, req.ID, "admin-2")
	assert.Error(t, err)
	_, err = f.svc.Reject(ctx, req.ID, "admin-2", "again")
	assert.Error(t, err)

	// No credit happened.
	acct, err := f.store.GetAccount(ctx, f.acct.ID)
	require.NoError(t, err)
	assert.Zero(t, acct.NGNTSBalance)
}

func TestConfirmationMovesApprovedToCompleted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := f.withProof(t)

	_, err := f.svc.Approve(ctx, req.ID, "admin-1")
	require.NoError(t, err)

	pending, err := f.svc.PendingConfirmations(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, req.ID, pending[0].ID)

	require.NoError(t, f.svc.MarkConfirmed(ctx, req.ID))

	done, err := f.svc.Get(ctx, req.ID, "")
	require.NoError(t, err)
	assert.Equal(t, deposit.StatusCompleted, done.Status)
	assert.False(t, done.CompletedAt.IsZero())

	// Completed requests no longer appear in the pending list.
	pending, err = f.svc.PendingConfirmations(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestOpenProofStreamsStoredArtifact(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := f.withProof(t)

	rc, got, err := f.svc.OpenProof(ctx, req.ID)
	require.NoError(t, err)
	defer rc.Close()

	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(body))
	assert.Equal(t, "transfer.png", got.ProofName)
	assert.Equal(t, "image/png", got.ProofContentType)
}

func TestGetIsOwnerScoped(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := f.initiated(t)

	_, err := f.svc.Get(ctx, req.ID, "other-account")
	assert.Error(t, err)

	got, err := f.svc.Get(ctx, req.ID, f.acct.ID)
	require.NoError(t, err)
	assert.Equal(t, req.ID, got.ID)
}
