package platformsettings

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regenfi/platform/internal/app/domain/settings"
	"github.com/regenfi/platform/internal/app/storage/memory"
	"github.com/regenfi/platform/pkg/logger"
)

func TestSetAndGetBankAccount(t *testing.T) {
	svc := New(memory.New(), logger.NewDefault("settings-test"))
	ctx := context.Background()

	_, err := svc.BankAccount(ctx)
	assert.Error(t, err, "unset bank account is not found")

	saved, err := svc.SetBankAccount(ctx, settings.BankAccount{
		BankName:      "Providus Bank",
		AccountName:   "RegenFi Operations",
		AccountNumber: "9901234567",
	}, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, "admin-1", saved.UpdatedBy)
	assert.False(t, saved.UpdatedAt.IsZero())

	got, err := svc.BankAccount(ctx)
	require.NoError(t, err)
	assert.Equal(t, "9901234567", got.AccountNumber)
}

func TestSetBankAccountValidation(t *testing.T) {
	svc := New(memory.New(), logger.NewDefault("settings-test"))
	ctx := context.Background()

	cases := []settings.BankAccount{
		{BankName: "", AccountName: "Ops", AccountNumber: "9901234567"},
		{BankName: "Providus", AccountName: "", AccountNumber: "9901234567"},
		{BankName: "Providus", AccountName: "Ops", AccountNumber: "12345"},
		{BankName: "Providus", AccountName: "Ops", AccountNumber: "12345678AB"},
	}
	for _, c := range cases {
		_, err := svc.SetBankAccount(ctx, c, "admin-1")
		assert.Error(t, err, "%+v", c)
	}
}
