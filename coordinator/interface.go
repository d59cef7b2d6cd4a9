package coordinator

import (
	"context"

	ethcommon "github.com/ethereum/go-ethereum/common"

	"github.com/zecbridge/bridge-go/agreement"
)

// BridgeLedger is the ledger surface the coordinator drives.
type BridgeLedger interface {
	LatestCheckpoint() (*agreement.Checkpoint, bool, error)
	SubmitStateUpdate(update *agreement.StateUpdate) error
}

// ZecChain observes the zcash side: block heights and roots plus the
// two transfer flows the bridge cares about. How deposits and
// fulfillments are discovered from raw chain data is the observer's
// business, not the coordinator's.
type ZecChain interface {
	TipHeight(ctx context.Context) (uint64, error)
	BlockRoot(ctx context.Context, height uint64) (ethcommon.Hash, error)

	// Deposits returns bridge deposits confirmed in blocks (from, to].
	// Each becomes a mint entry on the eth side.
	Deposits(ctx context.Context, from, to uint64) ([]agreement.MintEntry, error)

	// Fulfillments returns withdrawals released on zcash in blocks
	// (from, to]. Each becomes a burn entry.
	Fulfillments(ctx context.Context, from, to uint64) ([]agreement.BurnEntry, error)
}

// EthChain observes the eth side.
type EthChain interface {
	TipHeight(ctx context.Context) (uint64, error)
	BlockRoot(ctx context.Context, height uint64) (ethcommon.Hash, error)
}
