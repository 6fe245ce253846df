package accounts

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regenfi/platform/internal/app/domain/account"
	"github.com/regenfi/platform/internal/app/storage/memory"
	"github.com/regenfi/platform/pkg/logger"
)

func newService(t *testing.T) *Service {
	t.Helper()
	return New(memory.New(), logger.NewDefault("accounts-test"))
}

func TestRegisterDefaults(t *testing.T) {
	svc := newService(t)

	acct, err := svc.Register(context.Background(), "Ada Obi", "ada@example.com")
	require.NoError(t, err)

	assert.NotEmpty(t, acct.ID)
	assert.Equal(t, account.KYCPending, acct.KYCStatus)
	assert.Equal(t, account.WalletNotActivated, acct.WalletStatus)
	assert.Zero(t, acct.NGNTSBalance)
	assert.Zero(t, acct.FundBalance)
}

func TestRegisterValidation(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "", "ada@example.com")
	assert.Error(t, err)

	_, err = svc.Register(ctx, "Ada Obi", "not-an-email")
	assert.Error(t, err)
}

func TestSetKYCStatus(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	acct, err := svc.Register(ctx, "Ada Obi", "ada@example.com")
	require.NoError(t, err)

	updated, err := svc.SetKYCStatus(ctx, acct.ID, account.KYCApproved)
	require.NoError(t, err)
	assert.Equal(t, account.KYCApproved, updated.KYCStatus)

	_, err = svc.SetKYCStatus(ctx, acct.ID, account.KYCStatus("maybe"))
	assert.Error(t, err)
}

func TestRequireKYCApproved(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	acct, err := svc.Register(ctx, "Ada Obi", "ada@example.com")
	require.NoError(t, err)

	_, err = svc.RequireKYCApproved(ctx, acct.ID)
	assert.Error(t, err, "freshly registered accounts are kyc-pending")

	_, err = svc.SetKYCStatus(ctx, acct.ID, account.KYCApproved)
	require.NoError(t, err)

	got, err := svc.RequireKYCApproved(ctx, acct.ID)
	require.NoError(t, err)
	assert.Equal(t, acct.ID, got.ID)
}

func TestDeleteAccount(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	acct, err := svc.Register(ctx, "Ada Obi", "ada@example.com")
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, acct.ID))

	_, err = svc.Get(ctx, acct.ID)
	assert.Error(t, err)
	assert.Error(t, svc.Delete(ctx, acct.ID))
}
