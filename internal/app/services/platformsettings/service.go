// Package platformsettings manages operator-editable platform configuration,
// currently the bank account deposits are wired to.
package platformsettings

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/regenfi/platform/internal/app/domain/settings"
	"github.com/regenfi/platform/internal/app/storage"
	"github.com/regenfi/platform/pkg/logger"
)

// Service reads and updates platform settings.
type Service struct {
	store storage.SettingsStore
	log   *logger.Logger
}

// New creates the settings service.
func New(store storage.SettingsStore, log *logger.Logger) *Service {
	return &Service{store: store, log: log}
}

// BankAccount returns the configured platform bank account.
func (s *Service) BankAccount(ctx context.Context) (settings.BankAccount, error) {
	return s.store.GetBankAccount(ctx)
}

// SetBankAccount replaces the platform bank account. Requests initiated
// before the change keep showing the account they were created against only
// until re-fetched; the reference code, not the account, correlates the
// transfer.
func (s *Service) SetBankAccount(ctx context.Context, acct settings.BankAccount, updatedBy string) (settings.BankAccount, error) {
	acct.BankName = strings.TrimSpace(acct.BankName)
	acct.AccountName = strings.TrimSpace(acct.AccountName)
	acct.AccountNumber = strings.TrimSpace(acct.AccountNumber)

	if acct.BankName == "" || acct.AccountName == "" {
		return settings.BankAccount{}, fmt.Errorf("bank name and account name are required")
	}
	if len(acct.AccountNumber) != 10 || strings.Trim(acct.AccountNumber, "0123456789") != "" {
		return settings.BankAccount{}, fmt.Errorf("account number must be 10 digits")
	}

	acct.UpdatedBy = updatedBy
	acct.UpdatedAt = time.Now().UTC()

	saved, err := s.store.PutBankAccount(ctx, acct)
	if err != nil {
		return settings.BankAccount{}, fmt.Errorf("save bank account: %w", err)
	}
	s.log.WithFields(map[string]interface{}{
		"bank":       saved.BankName,
		"updated_by": updatedBy,
	}).Info("platform bank account updated")
	return saved, nil
}
