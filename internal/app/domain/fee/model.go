package fee

// Product identifies the funding flow a fee schedule entry applies to.
type Product string

const (
	ProductRegenerator Product = "regenerator"
	ProductPrimer      Product = "primer"
)

// Breakdown is the deterministic partition of a requested gross amount.
// PlatformFeeAmount + GasFeeAmount + NetCredited always equals
// AmountRequested; amounts are whole NGN and the platform fee is expressed
// in basis points.
type Breakdown struct {
	AmountRequested   int64 `json:"amount_requested"`
	PlatformFeeBps    int64 `json:"platform_fee_bps"`
	PlatformFeeAmount int64 `json:"platform_fee_amount"`
	GasFeeAmount      int64 `json:"gas_fee_amount"`
	NetCredited       int64 `json:"net_credited"`
}
