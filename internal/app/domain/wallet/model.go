package wallet

import "time"

// Status is the review state of an activation request.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// ActivationRequest asks an admin to provision a blockchain account: fund it
// with the fixed gas allowance and establish the required trustlines. At most
// one request may be outstanding per account, and activation itself is
// idempotent regardless of which path (explicit request or first deposit
// approval) triggers it.
type ActivationRequest struct {
	ID              string
	AccountID       string
	PublicKey       string
	Status          Status
	RejectionReason string
	GasFunded       bool
	ReviewedBy      string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
