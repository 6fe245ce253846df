package account

import "time"

// KYCStatus tracks the verification state of an account holder.
type KYCStatus string

const (
	KYCPending  KYCStatus = "pending"
	KYCApproved KYCStatus = "approved"
	KYCRejected KYCStatus = "rejected"
)

// WalletStatus tracks provisioning of the custodial blockchain wallet.
type WalletStatus string

const (
	WalletNotActivated WalletStatus = "not_activated"
	WalletPending      WalletStatus = "pending"
	WalletActive       WalletStatus = "active"
)

// Account represents a platform participant. NGNTS and fund balances are
// held in whole NGN.
type Account struct {
	ID            string
	Owner         string
	Email         string
	KYCStatus     KYCStatus
	WalletAddress string
	WalletStatus  WalletStatus
	NGNTSBalance  int64
	FundBalance   int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
