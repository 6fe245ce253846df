// Package chain defines the boundary to the settlement network. Services
// depend on the Gateway interface; the production adapter is swapped in by
// deployment, and the simulator backs development and tests.
package chain

import "context"

// Gateway performs the on-chain operations the platform needs. Every call
// returns a transaction hash that the confirmation poller later resolves.
type Gateway interface {
	// Mint issues amount tokens of the given asset to the wallet address.
	Mint(ctx context.Context, walletAddress, asset string, amount int64) (txHash string, err error)
	// FundGas sends the activation gas stipend to a freshly created wallet.
	FundGas(ctx context.Context, walletAddress string) (txHash string, err error)
	// EstablishTrustlines opts the wallet into the platform's assets.
	EstablishTrustlines(ctx context.Context, walletAddress string, assets []string) (txHash string, err error)
	// ConfirmTx reports whether the transaction has settled.
	ConfirmTx(ctx context.Context, txHash string) (confirmed bool, err error)
}
