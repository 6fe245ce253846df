package contribution

import (
	"time"

	"github.com/regenfi/platform/internal/app/domain/fee"
)

// Status mirrors the deposit funnel: pending -> approved|rejected, then
// completed once the pooled-fund credit is confirmed on chain.
type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusCompleted Status = "completed"
)

func (s Status) Terminal() bool {
	return s == StatusRejected || s == StatusCompleted
}

// Request is a Primer liquidity-pool contribution request.
type Request struct {
	ID               string
	AccountID        string
	Amount           int64
	ReferenceCode    string
	Breakdown        fee.Breakdown
	ProofID          string
	ProofName        string
	ProofContentType string
	Status           Status
	RejectionReason  string
	TxHash           string
	ReviewedBy       string
	CreatedAt        time.Time
	UpdatedAt        time.Time
	CompletedAt      time.Time
}
