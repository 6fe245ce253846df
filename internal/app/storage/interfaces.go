package storage

import (
	"context"
	"errors"
	"io"

	"github.com/regenfi/platform/internal/app/domain/account"
	"github.com/regenfi/platform/internal/app/domain/contribution"
	"github.com/regenfi/platform/internal/app/domain/deposit"
	"github.com/regenfi/platform/internal/app/domain/holding"
	"github.com/regenfi/platform/internal/app/domain/settings"
	"github.com/regenfi/platform/internal/app/domain/wallet"
)

// ErrDuplicateReference is returned when a reference code collides with an
// outstanding request. Callers regenerate and retry.
var ErrDuplicateReference = errors.New("reference code already in use")

// ErrNotFound is returned for lookups of unknown records.
var ErrNotFound = errors.New("record not found")

// AccountStore persists platform accounts.
type AccountStore interface {
	CreateAccount(ctx context.Context, acct account.Account) (account.Account, error)
	UpdateAccount(ctx context.Context, acct account.Account) (account.Account, error)
	GetAccount(ctx context.Context, id string) (account.Account, error)
	ListAccounts(ctx context.Context) ([]account.Account, error)
	DeleteAccount(ctx context.Context, id string) error
}

// DepositStore persists bank-deposit requests.
type DepositStore interface {
	CreateDeposit(ctx context.Context, req deposit.Request) (deposit.Request, error)
	UpdateDeposit(ctx context.Context, req deposit.Request) (deposit.Request, error)
	GetDeposit(ctx context.Context, id string) (deposit.Request, error)
	ListDeposits(ctx context.Context, accountID string) ([]deposit.Request, error)
	ListDepositsByStatus(ctx context.Context, status deposit.Status) ([]deposit.Request, error)

	// ApproveDeposit persists req and adds creditNGNTS to the owning
	// account's NGNTS balance in one atomic commit. Either both changes
	// land or neither does, so a failed approval can be retried without
	// crediting twice.
	ApproveDeposit(ctx context.Context, req deposit.Request, creditNGNTS int64) (deposit.Request, error)
}

// ContributionStore persists Primer liquidity-pool contribution requests.
type ContributionStore interface {
	CreateContribution(ctx context.Context, req contribution.Request) (contribution.Request, error)
	UpdateContribution(ctx context.Context, req contribution.Request) (contribution.Request, error)
	GetContribution(ctx context.Context, id string) (contribution.Request, error)
	ListContributions(ctx context.Context, accountID string) ([]contribution.Request, error)
	ListContributionsByStatus(ctx context.Context, status contribution.Status) ([]contribution.Request, error)

	// ApproveContribution persists req and adds creditFund to the owning
	// account's pooled-fund balance in one atomic commit.
	ApproveContribution(ctx context.Context, req contribution.Request, creditFund int64) (contribution.Request, error)
}

// WalletRequestStore persists wallet-activation requests.
type WalletRequestStore interface {
	CreateActivationRequest(ctx context.Context, req wallet.ActivationRequest) (wallet.ActivationRequest, error)
	UpdateActivationRequest(ctx context.Context, req wallet.ActivationRequest) (wallet.ActivationRequest, error)
	GetActivationRequest(ctx context.Context, id string) (wallet.ActivationRequest, error)
	ListActivationRequests(ctx context.Context, status wallet.Status) ([]wallet.ActivationRequest, error)
	GetPendingActivationByAccount(ctx context.Context, accountID string) (wallet.ActivationRequest, error)
}

// HoldingStore persists token holdings and redemption requests.
type HoldingStore interface {
	CreateHolding(ctx context.Context, h holding.Holding) (holding.Holding, error)
	UpdateHolding(ctx context.Context, h holding.Holding) (holding.Holding, error)
	GetHolding(ctx context.Context, id string) (holding.Holding, error)
	GetHoldingByProject(ctx context.Context, accountID, projectID string) (holding.Holding, error)
	ListHoldings(ctx context.Context, accountID string) ([]holding.Holding, error)
	ListAllHoldings(ctx context.Context) ([]holding.Holding, error)

	CreateRedemption(ctx context.Context, r holding.Redemption) (holding.Redemption, error)
	UpdateRedemption(ctx context.Context, r holding.Redemption) (holding.Redemption, error)
	GetRedemption(ctx context.Context, id string) (holding.Redemption, error)
	ListRedemptions(ctx context.Context, accountID string) ([]holding.Redemption, error)
	ListRedemptionsByStatus(ctx context.Context, status holding.RedemptionStatus) ([]holding.Redemption, error)

	// SettleRedemption persists the burned-down holding, the approved
	// redemption and the NGNTS payout credit in one atomic commit.
	SettleRedemption(ctx context.Context, r holding.Redemption, h holding.Holding, payoutNGNTS int64) (holding.Redemption, error)
}

// SettingsStore persists platform settings.
type SettingsStore interface {
	GetBankAccount(ctx context.Context) (settings.BankAccount, error)
	PutBankAccount(ctx context.Context, acct settings.BankAccount) (settings.BankAccount, error)
}

// ProofStore persists uploaded proof-of-payment artifacts.
type ProofStore interface {
	SaveProof(ctx context.Context, name string, r io.Reader) (id string, err error)
	OpenProof(ctx context.Context, id string) (io.ReadCloser, error)
}
