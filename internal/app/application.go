// Package app wires the platform's services over a shared set of stores and
// manages their lifecycle.
package app

import (
	"context"
	"fmt"

	"github.com/regenfi/platform/internal/app/chain"
	"github.com/regenfi/platform/internal/app/config"
	"github.com/regenfi/platform/internal/app/metrics"
	"github.com/regenfi/platform/internal/app/services/accounts"
	"github.com/regenfi/platform/internal/app/services/confirmations"
	"github.com/regenfi/platform/internal/app/services/contributions"
	"github.com/regenfi/platform/internal/app/services/deposits"
	"github.com/regenfi/platform/internal/app/services/fees"
	"github.com/regenfi/platform/internal/app/services/holdings"
	"github.com/regenfi/platform/internal/app/services/platformsettings"
	"github.com/regenfi/platform/internal/app/services/review"
	"github.com/regenfi/platform/internal/app/services/wallets"
	"github.com/regenfi/platform/internal/app/storage"
	"github.com/regenfi/platform/internal/app/storage/memory"
	"github.com/regenfi/platform/internal/app/system"
	"github.com/regenfi/platform/pkg/logger"
)

// reviewQuorum is the number of distinct admin endorsements an approval
// needs.
const reviewQuorum = 2

// Stores collects the persistence interfaces the application needs. Leave a
// field nil to fall back to the shared in-memory store.
type Stores struct {
	Accounts      storage.AccountStore
	Deposits      storage.DepositStore
	Contributions storage.ContributionStore
	Wallets       storage.WalletRequestStore
	Holdings      storage.HoldingStore
	Settings      storage.SettingsStore
	Proofs        storage.ProofStore
}

func (s *Stores) fillDefaults() {
	var mem *memory.Store
	ensure := func() *memory.Store {
		if mem == nil {
			mem = memory.New()
		}
		return mem
	}
	if s.Accounts == nil {
		s.Accounts = ensure()
	}
	if s.Deposits == nil {
		s.Deposits = ensure()
	}
	if s.Contributions == nil {
		s.Contributions = ensure()
	}
	if s.Wallets == nil {
		s.Wallets = ensure()
	}
	if s.Holdings == nil {
		s.Holdings = ensure()
	}
	if s.Settings == nil {
		s.Settings = ensure()
	}
	if s.Proofs == nil {
		s.Proofs = ensure()
	}
}

// Application owns every service and their lifecycle.
type Application struct {
	Accounts      *accounts.Service
	Fees          *fees.Service
	Deposits      *deposits.Service
	Contributions *contributions.Service
	Wallets       *wallets.Service
	Holdings      *holdings.Service
	Review        *review.Service
	Settings      *platformsettings.Service
	Metrics       *metrics.Metrics
	Gateway       chain.Gateway

	manager *system.Manager
	log     *logger.Logger
}

// New wires the application. The gateway may be nil, in which case the
// chain simulator is used.
func New(cfg *config.Config, schedule *config.FeeSchedule, stores Stores, gateway chain.Gateway, valuer holdings.Valuer, log *logger.Logger) (*Application, error) {
	stores.fillDefaults()

	if gateway == nil {
		gateway = chain.NewSimulator(1)
	}
	m := metrics.New()

	feeSvc := fees.New(schedule)
	acctSvc := accounts.New(stores.Accounts, log.WithField("service", "accounts"))
	walletSvc := wallets.New(stores.Wallets, stores.Accounts, gateway, m, log.WithField("service", "wallets"))
	depositSvc := deposits.New(stores.Deposits, stores.Proofs, stores.Settings, acctSvc, feeSvc, walletSvc, gateway, m, log.WithField("service", "deposits"))
	contributionSvc := contributions.New(stores.Contributions, stores.Proofs, stores.Settings, acctSvc, feeSvc, walletSvc, gateway, m, log.WithField("service", "contributions"))
	holdingSvc := holdings.New(stores.Holdings, m, log.WithField("service", "holdings"))
	reviewSvc := review.New(depositSvc, contributionSvc, walletSvc, holdingSvc, reviewQuorum, log.WithField("service", "review"))
	settingsSvc := platformsettings.New(stores.Settings, log.WithField("service", "settings"))

	if valuer == nil {
		valuer = holdings.NewStaticValuer(1)
	}

	manager := system.NewManager()
	pollers := []system.Service{
		confirmations.NewPoller("deposit-confirmations", depositSvc, gateway,
			cfg.ConfirmInterval, cfg.ConfirmTimeout, m, log),
		confirmations.NewPoller("contribution-confirmations", contributionSvc, gateway,
			cfg.ConfirmInterval, cfg.ConfirmTimeout, m, log),
		holdings.NewNAVRefresher(holdingSvc, valuer, cfg.NAVRefreshSpec, log),
	}
	for _, p := range pollers {
		if err := manager.Register(p); err != nil {
			return nil, fmt.Errorf("register %s: %w", p.Name(), err)
		}
	}

	return &Application{
		Accounts:      acctSvc,
		Fees:          feeSvc,
		Deposits:      depositSvc,
		Contributions: contributionSvc,
		Wallets:       walletSvc,
		Holdings:      holdingSvc,
		Review:        reviewSvc,
		Settings:      settingsSvc,
		Metrics:       m,
		Gateway:       gateway,
		manager:       manager,
		log:           log,
	}, nil
}

// Start launches background services.
func (a *Application) Start(ctx context.Context) error {
	a.log.Info("starting background services")
	return a.manager.Start(ctx)
}

// Stop halts background services.
func (a *Application) Stop(ctx context.Context) error {
	a.log.Info("stopping background services")
	return a.manager.Stop(ctx)
}
