package deposit

import (
	"time"

	"github.com/regenfi/platform/internal/app/domain/fee"
)

// Status is the lifecycle state of a bank-deposit request. The funnel is
// pending -> approved|rejected, with approved requests marked completed once
// the mint transaction is confirmed. Terminal states are immutable.
type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusCompleted Status = "completed"
)

// Terminal reports whether no further admin action is possible.
func (s Status) Terminal() bool {
	return s == StatusRejected || s == StatusCompleted
}

// Request is a bank-transfer deposit request. The reference code correlates
// the out-of-band transfer with this record and is unique among outstanding
// requests. The breakdown is recomputed server-side at creation and frozen.
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
