// Package confirmations tracks approved requests until their settlement
// transactions confirm on chain. Funnels expose their approved-but-unsettled
// work through the Source interface; one poller instance runs per funnel.
package confirmations

import (
	"context"
	"sync"
	"time"

	"github.com/regenfi/platform/internal/app/chain"
	"github.com/regenfi/platform/internal/app/metrics"
	"github.com/regenfi/platform/pkg/logger"
)

// PendingTx is one approved request awaiting settlement.
type PendingTx struct {
	ID         string
	TxHash     string
	ApprovedAt time.Time
}

// Source is a funnel with settlement transactions to track.
type Source interface {
	// PendingConfirmations lists approved requests whose transactions have
	// not yet been confirmed.
	PendingConfirmations(ctx context.Context) ([]PendingTx, error)
	// MarkConfirmed records that the request's transaction settled.
	MarkConfirmed(ctx context.Context, id string) error
}

// Poller periodically checks pending transactions against the chain gateway.
// Transactions unresolved past the timeout are force-completed: the credit
// was committed at approval, so the record must not stay open forever.
type Poller struct {
	name     string
	source   Source
	gateway  chain.Gateway
	interval time.Duration
	timeout  time.Duration
	metrics  *metrics.Metrics
	log      *logger.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewPoller creates a confirmation poller for one funnel.
func NewPoller(name string, source Source, gateway chain.Gateway, interval, timeout time.Duration, m *metrics.Metrics, log *logger.Logger) *Poller {
	return &Poller{
		name:     name,
		source:   source,
		gateway:  gateway,
		interval: interval,
		timeout:  timeout,
		metrics:  m,
		log:      log.WithField("poller", name),
	}
}

// Name identifies the poller to the system manager.
func (p *Poller) Name() string { return p.name }

// Start launches the polling loop.
func (p *Poller) Start(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel != nil {
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel

	p.wg.Add(1)
	go p.run(ctx)
	return nil
}

// Stop halts the loop and waits for the in-flight pass to finish.
func (p *Poller) Stop(context.Context) error {
	p.mu.Lock()
	cancel := p.cancel
	p.cancel = nil
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	p.wg.Wait()
	return nil
}

func (p *Poller) run(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

func (p *Poller) poll(ctx context.Context) {
	p.metrics.ConfirmationPolls.Inc()

	pending, err := p.source.PendingConfirmations(ctx)
	if err != nil {
		p.log.WithError(err).Warn("listing pending confirmations failed")
		return
	}

	for _, tx := range pending {
		select {
		case <-ctx.Done():
			return
		default:
		}
		p.resolve(ctx, tx)
	}
}

func (p *Poller) resolve(ctx context.Context, tx PendingTx) {
	confirmed, err := p.gateway.ConfirmTx(ctx, tx.TxHash)
	if err != nil {
		if time.Since(tx.ApprovedAt) > p.timeout {
			p.log.WithError(err).WithFields(map[string]interface{}{
				"request_id": tx.ID,
				"tx_hash":    tx.TxHash,
			}).Warn("confirmation timed out, completing record anyway")
			p.complete(ctx, tx)
		} else {
			p.log.WithError(err).WithField("tx_hash", tx.TxHash).Debug("confirmation not yet available")
		}
		return
	}
	if !confirmed {
		if time.Since(tx.ApprovedAt) > p.timeout {
			p.log.WithFields(map[string]interface{}{
				"request_id": tx.ID,
				"tx_hash":    tx.TxHash,
			}).Warn("confirmation timed out, completing record anyway")
			p.complete(ctx, tx)
		}
		return
	}
	p.complete(ctx, tx)
}

func (p *Poller) complete(ctx context.Context, tx PendingTx) {
	if err := p.source.MarkConfirmed(ctx, tx.ID); err != nil {
		p.log.WithError(err).WithField("request_id", tx.ID).Error("marking request confirmed failed")
		return
	}
	p.log.WithFields(map[string]interface{}{
		"request_id": tx.ID,
		"tx_hash":    tx.TxHash,
	}).Info("settlement confirmed")
}
