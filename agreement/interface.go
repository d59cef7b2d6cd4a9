package agreement

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// TokenAccount is the custody/asset-accounting primitive the ledger
// drives. The ledger never mutates balances directly; it relies on the
// implementation to keep balances non-negative, to restrict mint/burn
// to the bridge authority, and to conserve supply across
// mint/burn/transfer.
type TokenAccount interface {
	// TransferIn moves amount from the given account into bridge custody.
	TransferIn(from common.Address, amount *big.Int) error

	// Mint creates amount new units credited to the recipient.
	Mint(to common.Address, amount *big.Int) error

	// Burn destroys amount units held in bridge custody.
	Burn(amount *big.Int) error

	BalanceOf(account common.Address) (*big.Int, error)
	TotalSupply() (*big.Int, error)
}
