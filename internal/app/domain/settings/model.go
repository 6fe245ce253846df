package settings

import "time"

// BankAccount holds the platform account users transfer deposits into. It is
// shown alongside every initiated request so the out-of-band transfer can be
// correlated by reference code.
type BankAccount struct {
	BankName      string
	AccountName   string
	AccountNumber string
	UpdatedBy     string
	UpdatedAt     time.Time
}
