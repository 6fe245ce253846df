// Package accounts manages platform participant records.
package accounts

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/regenfi/platform/internal/app/domain/account"
	"github.com/regenfi/platform/internal/app/storage"
	"github.com/regenfi/platform/pkg/logger"
)

// Service manages account lifecycle: registration, KYC review and admin
// maintenance. Balance credits happen inside the stores' atomic approval
// commits, never here.
type Service struct {
	store storage.AccountStore
	log   *logger.Logger
}

// New creates an account service.
func New(store storage.AccountStore, log *logger.Logger) *Service {
	return &Service{store: store, log: log}
}

// Register creates a new account in KYC-pending state with no wallet.
func (s *Service) Register(ctx context.Context, owner, email string) (account.Account, error) {
	owner = strings.TrimSpace(owner)
	if owner == "" {
		return account.Account{}, fmt.Errorf("owner must not be empty")
	}
	email = strings.TrimSpace(email)
	if !strings.Contains(email, "@") {
		return account.Account{}, fmt.Errorf("invalid email %q", email)
	}

	now := time.Now().UTC()
	acct := account.Account{
		ID:           uuid.NewString(),
		Owner:        owner,
		Email:        email,
		KYCStatus:    account.KYCPending,
		WalletStatus: account.WalletNotActivated,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	created, err := s.store.CreateAccount(ctx, acct)
	if err != nil {
		return account.Account{}, fmt.Errorf("create account: %w", err)
	}

	s.log.WithFields(map[string]interface{}{
		"account_id": created.ID,
		"owner":      created.Owner,
	}).Info("account registered")
	return created, nil
}

// Get returns one account.
func (s *Service) Get(ctx context.Context, id string) (account.Account, error) {
	return s.store.GetAccount(ctx, id)
}

// List returns all accounts.
func (s *Service) List(ctx context.Context) ([]account.Account, error) {
	return s.store.ListAccounts(ctx)
}

// Delete removes an account.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteAccount(ctx, id); err != nil {
		return err
	}
	s.log.WithField("account_id", id).Info("account deleted")
	return nil
}

// RequireKYCApproved gates funding operations on a completed verification.
func (s *Service) RequireKYCApproved(ctx context.Context, id string) (account.Account, error) {
	acct, err := s.store.GetAccount(ctx, id)
	if err != nil {
		return account.Account{}, err
	}
	if acct.KYCStatus != account.KYCApproved {
		return account.Account{}, fmt.Errorf("account %s kyc status is %s; verification must be approved first", id, acct.KYCStatus)
	}
	return acct, nil
}

// SetKYCStatus records the outcome of a KYC review.
func (s *Service) SetKYCStatus(ctx context.Context, id string, status account.KYCStatus) (account.Account, error) {
	switch status {
	case account.KYCApproved, account.KYCRejected:
	default:
		return account.Account{}, fmt.Errorf("invalid kyc outcome %q", status)
	}

	acct, err := s.store.GetAccount(ctx, id)
	if err != nil {
		return account.Account{}, err
	}
	acct.KYCStatus = status
	acct.UpdatedAt = time.Now().UTC()

	updated, err := s.store.UpdateAccount(ctx, acct)
	if err != nil {
		return account.Account{}, fmt.Errorf("update account: %w", err)
	}
	s.log.WithField("account_id", id).Infof("kyc status set to %s", status)
	return updated, nil
}

