package holding

import (
	"fmt"
	"time"
)

// LockType classifies the restricted portion of a holding.
type LockType string

const (
	LockNone       LockType = "none"
	LockGrant      LockType = "grant"
	LockPermanent  LockType = "permanent"
	LockTimeLocked LockType = "time_locked"
)

// Holding is a per-project token position. TotalTokens must always equal
// LiquidTokens + LockedTokens; NAVPerToken is the valuation snapshot, in
// whole NGN per token, used to price redemptions.
type Holding struct {
	ID           string
	AccountID    string
	ProjectID    string
	TotalTokens  int64
	LiquidTokens int64
	LockedTokens int64
	NAVPerToken  int64
	LockType     LockType
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Validate checks the liquid/locked partition invariant.
func (h Holding) Validate() error {
	if h.LiquidTokens < 0 || h.LockedTokens < 0 {
		return fmt.Errorf("holding %s has negative token bucket", h.ID)
	}
	if h.TotalTokens != h.LiquidTokens+h.LockedTokens {
		return fmt.Errorf("holding %s violates total=liquid+locked: %d != %d+%d",
			h.ID, h.TotalTokens, h.LiquidTokens, h.LockedTokens)
	}
	return nil
}

// RedemptionStatus is the review state of a redemption request.
type RedemptionStatus string

const (
	RedemptionPending  RedemptionStatus = "pending"
	RedemptionApproved RedemptionStatus = "approved"
	RedemptionRejected RedemptionStatus = "rejected"
)

// Redemption requests conversion of liquid project tokens back to NGNTS at
// the NAV snapshot captured when the request was created.
type Redemption struct {
	ID              string
	AccountID       string
	ProjectID       string
	Tokens          int64
	NAVPerToken     int64
	PayoutAmount    int64
	Status          RedemptionStatus
	RejectionReason string
	ReviewedBy      string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
