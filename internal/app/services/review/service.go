// Package review presents one unified queue of pending admin work across
// the deposit, contribution, wallet-activation and redemption funnels, and
// gates approvals behind a multi-admin endorsement quorum. A single admin
// can veto; approval requires quorum distinct endorsers.
package review

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/regenfi/platform/internal/app/domain/contribution"
	"github.com/regenfi/platform/internal/app/domain/deposit"
	"github.com/regenfi/platform/internal/app/domain/holding"
	"github.com/regenfi/platform/internal/app/domain/wallet"
	"github.com/regenfi/platform/internal/app/services/contributions"
	"github.com/regenfi/platform/internal/app/services/deposits"
	"github.com/regenfi/platform/internal/app/services/holdings"
	"github.com/regenfi/platform/internal/app/services/wallets"
	"github.com/regenfi/platform/pkg/logger"
)

// Kind tags the funnel a queue item belongs to.
type Kind string

const (
	KindDeposit      Kind = "deposit"
	KindContribution Kind = "contribution"
	KindActivation   Kind = "wallet_activation"
	KindRedemption   Kind = "redemption"
)

// Item is one pending request awaiting review.
type Item struct {
	Kind         Kind      `json:"kind"`
	ID           string    `json:"id"`
	AccountID    string    `json:"account_id"`
	Amount       int64     `json:"amount,omitempty"`
	SubmittedAt  time.Time `json:"submitted_at"`
	Endorsements []string  `json:"endorsements"`
}

// Decision is the outcome of an endorsement or veto.
type Decision struct {
	Kind         Kind     `json:"kind"`
	ID           string   `json:"id"`
	Endorsements []string `json:"endorsements"`
	Applied      bool     `json:"applied"`
}

// Service aggregates the funnels and tracks endorsements. Endorsements are
// held in memory: a restart clears them, which only means admins endorse
// again; no funnel state is lost.
type Service struct {
	deposits      *deposits.Service
	contributions *contributions.Service
	wallets       *wallets.Service
	holdings      *holdings.Service
	quorum        int
	log           *logger.Logger

	mu           sync.Mutex
	endorsements map[string]map[string]bool
}

// New creates the review service. Quorum below 1 is clamped to 1.
func New(
	depositSvc *deposits.Service,
	contributionSvc *contributions.Service,
	walletSvc *wallets.Service,
	holdingSvc *holdings.Service,
	quorum int,
	log *logger.Logger,
) *Service {
	if quorum < 1 {
		quorum = 1
	}
	return &Service{
		deposits:      depositSvc,
		contributions: contributionSvc,
		wallets:       walletSvc,
		holdings:      holdingSvc,
		quorum:        quorum,
		log:           log,
		endorsements:  make(map[string]map[string]bool),
	}
}

func itemKey(kind Kind, id string) string { return string(kind) + "/" + id }

// Queue lists every pending request across the funnels, oldest first.
func (s *Service) Queue(ctx context.Context) ([]Item, error) {
	var items []Item

	deps, err := s.deposits.ListByStatus(ctx, deposit.StatusPending)
	if err != nil {
		return nil, fmt.Errorf("list pending deposits: %w", err)
	}
	for _, d := range deps {
		items = append(items, Item{Kind: KindDeposit, ID: d.ID, AccountID: d.AccountID, Amount: d.Amount, SubmittedAt: d.CreatedAt})
	}

	cons, err := s.contributions.ListByStatus(ctx, contribution.StatusPending)
	if err != nil {
		return nil, fmt.Errorf("list pending contributions: %w", err)
	}
	for _, c := range cons {
		items = append(items, Item{Kind: KindContribution, ID: c.ID, AccountID: c.AccountID, Amount: c.Amount, SubmittedAt: c.CreatedAt})
	}

	acts, err := s.wallets.ListByStatus(ctx, wallet.StatusPending)
	if err != nil {
		return nil, fmt.Errorf("list pending activations: %w", err)
	}
	for _, a := range acts {
		items = append(items, Item{Kind: KindActivation, ID: a.ID, AccountID: a.AccountID, SubmittedAt: a.CreatedAt})
	}

	reds, err := s.holdings.ListRedemptionsByStatus(ctx, holding.RedemptionPending)
	if err != nil {
		return nil, fmt.Errorf("list pending redemptions: %w", err)
	}
	for _, r := range reds {
		items = append(items, Item{Kind: KindRedemption, ID: r.ID, AccountID: r.AccountID, Amount: r.PayoutAmount, SubmittedAt: r.CreatedAt})
	}

	live := make(map[string]bool, len(items))
	for _, it := range items {
		live[itemKey(it.Kind, it.ID)] = true
	}

	s.mu.Lock()
	// Requests resolved outside the queue (direct admin approve or reject)
	// never pass through Endorse or Veto, so their endorsement entries are
	// pruned here instead.
	for key := range s.endorsements {
		if !live[key] {
			delete(s.endorsements, key)
		}
	}
	for i := range items {
		items[i].Endorsements = s.endorserListLocked(itemKey(items[i].Kind, items[i].ID))
	}
	s.mu.Unlock()

	sort.Slice(items, func(i, j int) bool { return items[i].SubmittedAt.Before(items[j].SubmittedAt) })
	return items, nil
}

func (s *Service) endorserListLocked(key string) []string {
	set := s.endorsements[key]
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Endorse records an admin's approval vote. When quorum distinct admins have
// endorsed, the underlying funnel approval runs with the endorsers recorded
// as the reviewer.
func (s *Service) Endorse(ctx context.Context, kind Kind, id, admin string) (Decision, error) {
	admin = strings.TrimSpace(admin)
	if admin == "" {
		return Decision{}, fmt.Errorf("endorser identity is required")
	}

	key := itemKey(kind, id)
	if err := s.requirePending(ctx, kind, id); err != nil {
		s.mu.Lock()
		delete(s.endorsements, key)
		s.mu.Unlock()
		return Decision{}, err
	}

	s.mu.Lock()
	set := s.endorsements[key]
	if set == nil {
		set = make(map[string]bool)
		s.endorsements[key] = set
	}
	if set[admin] {
		s.mu.Unlock()
		return Decision{}, fmt.Errorf("%s already endorsed %s %s", admin, kind, id)
	}
	set[admin] = true
	endorsers := s.endorserListLocked(key)
	reached := len(endorsers) >= s.quorum
	s.mu.Unlock()

	decision := Decision{Kind: kind, ID: id, Endorsements: endorsers}
	if !reached {
		s.log.WithFields(map[string]interface{}{
			"kind": string(kind), "id": id, "admin": admin,
			"endorsements": len(endorsers), "quorum": s.quorum,
		}).Info("endorsement recorded")
		return decision, nil
	}

	reviewer := strings.Join(endorsers, ",")
	if err := s.approve(ctx, kind, id, reviewer); err != nil {
		// Leave the endorsements in place; the approval can be retried
		// once the underlying problem is fixed.
		return Decision{}, err
	}

	s.mu.Lock()
	delete(s.endorsements, key)
	s.mu.Unlock()

	decision.Applied = true
	s.log.WithFields(map[string]interface{}{
		"kind": string(kind), "id": id, "reviewer": reviewer,
	}).Info("quorum reached, request approved")
	return decision, nil
}

// Veto rejects a pending request immediately. Any single admin can veto, but
// the reason is mandatory.
func (s *Service) Veto(ctx context.Context, kind Kind, id, admin, reason string) error {
	var err error
	switch kind {
	case KindDeposit:
		_, err = s.deposits.Reject(ctx, id, admin, reason)
	case KindContribution:
		_, err = s.contributions.Reject(ctx, id, admin, reason)
	case KindActivation:
		_, err = s.wallets.Reject(ctx, id, admin, reason)
	case KindRedemption:
		_, err = s.holdings.RejectRedemption(ctx, id, admin, reason)
	default:
		return fmt.Errorf("unknown review kind %q", kind)
	}
	if err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.endorsements, itemKey(kind, id))
	s.mu.Unlock()
	return nil
}

// requirePending verifies the request is still open for review.
func (s *Service) requirePending(ctx context.Context, kind Kind, id string) error {
	switch kind {
	case KindDeposit:
		d, err := s.deposits.Get(ctx, id, "")
		if err != nil {
			return err
		}
		if d.Status != deposit.StatusPending {
			return fmt.Errorf("deposit %s is already %s", id, d.Status)
		}
	case KindContribution:
		c, err := s.contributions.Get(ctx, id, "")
		if err != nil {
			return err
		}
		if c.Status != contribution.StatusPending {
			return fmt.Errorf("contribution %s is already %s", id, c.Status)
		}
	case KindActivation:
		a, err := s.wallets.Get(ctx, id)
		if err != nil {
			return err
		}
		if a.Status != wallet.StatusPending {
			return fmt.Errorf("activation %s is already %s", id, a.Status)
		}
	case KindRedemption:
		r, err := s.holdings.GetRedemption(ctx, id, "")
		if err != nil {
			return err
		}
		if r.Status != holding.RedemptionPending {
			return fmt.Errorf("redemption %s is already %s", id, r.Status)
		}
	default:
		return fmt.Errorf("unknown review kind %q", kind)
	}
	return nil
}

func (s *Service) approve(ctx context.Context, kind Kind, id, reviewer string) error {
	var err error
	switch kind {
	case KindDeposit:
		_, err = s.deposits.Approve(ctx, id, reviewer)
	case KindContribution:
		_, err = s.contributions.Approve(ctx, id, reviewer)
	case KindActivation:
		_, err = s.wallets.Approve(ctx, id, reviewer)
	case KindRedemption:
		_, err = s.holdings.ApproveRedemption(ctx, id, reviewer)
	default:
		err = fmt.Errorf("unknown review kind %q", kind)
	}
	return err
}
