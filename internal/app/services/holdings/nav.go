package holdings

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/regenfi/platform/pkg/logger"
)

// Valuer prices a project's token. Production wires an oracle-backed
// implementation; StaticValuer serves development and tests.
type Valuer interface {
	NAVPerToken(ctx context.Context, projectID string) (int64, error)
}

// StaticValuer returns fixed per-project prices with a fallback default.
type StaticValuer struct {
	mu       sync.RWMutex
	prices   map[string]int64
	fallback int64
}

// NewStaticValuer creates a valuer with the given fallback price.
func NewStaticValuer(fallback int64) *StaticValuer {
	return &StaticValuer{prices: make(map[string]int64), fallback: fallback}
}

// SetPrice pins a project's price.
func (v *StaticValuer) SetPrice(projectID string, price int64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.prices[projectID] = price
}

func (v *StaticValuer) NAVPerToken(_ context.Context, projectID string) (int64, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if p, ok := v.prices[projectID]; ok {
		return p, nil
	}
	return v.fallback, nil
}

// NAVRefresher periodically re-prices every holding so redemption requests
// are quoted against a fresh snapshot. It runs on a cron schedule and
// implements the system service interface.
type NAVRefresher struct {
	service *Service
	valuer  Valuer
	spec    string
	log     *logger.Logger

	mu   sync.Mutex
	cron *cron.Cron
}

// NewNAVRefresher creates the refresher with a standard 5-field cron spec.
func NewNAVRefresher(service *Service, valuer Valuer, spec string, log *logger.Logger) *NAVRefresher {
	return &NAVRefresher{
		service: service,
		valuer:  valuer,
		spec:    spec,
		log:     log.WithField("service", "nav-refresher"),
	}
}

// Name identifies the refresher to the system manager.
func (n *NAVRefresher) Name() string { return "nav-refresher" }

// Start schedules the refresh job.
func (n *NAVRefresher) Start(context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.cron != nil {
		return nil
	}
	c := cron.New()
	if _, err := c.AddFunc(n.spec, func() {
		if err := n.RefreshAll(context.Background()); err != nil {
			n.log.WithError(err).Warn("nav refresh pass failed")
		}
	}); err != nil {
		return fmt.Errorf("schedule nav refresh %q: %w", n.spec, err)
	}
	c.Start()
	n.cron = c
	return nil
}

// Stop halts the schedule and waits for a running job to finish.
func (n *NAVRefresher) Stop(ctx context.Context) error {
	n.mu.Lock()
	c := n.cron
	n.cron = nil
	n.mu.Unlock()

	if c == nil {
		return nil
	}
	select {
	case <-c.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RefreshAll re-prices every holding once.
func (n *NAVRefresher) RefreshAll(ctx context.Context) error {
	all, err := n.service.store.ListAllHoldings(ctx)
	if err != nil {
		return fmt.Errorf("list holdings: %w", err)
	}

	for _, h := range all {
		price, err := n.valuer.NAVPerToken(ctx, h.ProjectID)
		if err != nil {
			n.log.WithError(err).WithField("project_id", h.ProjectID).Warn("pricing project failed")
			continue
		}
		if price <= 0 || price == h.NAVPerToken {
			continue
		}
		h.NAVPerToken = price
		if _, err := n.service.store.UpdateHolding(ctx, h); err != nil {
			n.log.WithError(err).WithField("holding_id", h.ID).Warn("updating holding nav failed")
		}
	}
	return nil
}
