// Global agreement on types

package agreement

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Checkpoint is the bridge's last-agreed view of both chains:
// one (root, height) pair per side. It is replaced wholesale by
// every accepted state update and never partially mutated.
type Checkpoint struct {
	ZecRoot  common.Hash
	ZecBlock uint64
	EthRoot  common.Hash
	EthBlock uint64
}

func (c *Checkpoint) Equal(other *Checkpoint) bool {
	if other == nil {
		return false
	}
	return c.ZecRoot == other.ZecRoot &&
		c.ZecBlock == other.ZecBlock &&
		c.EthRoot == other.EthRoot &&
		c.EthBlock == other.EthBlock
}

func (c *Checkpoint) Clone() *Checkpoint {
	clone := *c
	return &clone
}

func (c *Checkpoint) String() string {
	return fmt.Sprintf("Checkpoint { ZecRoot: %s, ZecBlock: %d, EthRoot: %s, EthBlock: %d }",
		c.ZecRoot.String(), c.ZecBlock, c.EthRoot.String(), c.EthBlock)
}

// MintEntry confirms a ZEC deposit on the zcash side; the bridge
// credits WZEC to the recipient on the eth side.
type MintEntry struct {
	Amount    *big.Int
	Recipient common.Address
}

func (e *MintEntry) String() string {
	return fmt.Sprintf("MintEntry { Amount: %v, Recipient: %s }", e.Amount, e.Recipient.String())
}

// BurnEntry confirms that Amount destined for Destination was
// released on the zcash side. It carries no request id; the only
// correlation with a pending withdrawal is (amount, destination).
type BurnEntry struct {
	Amount      *big.Int
	Destination []byte // 20-byte transparent pubkey hash
}

func (e *BurnEntry) String() string {
	return fmt.Sprintf("BurnEntry { Amount: %v, Destination: 0x%x }", e.Amount, e.Destination)
}

// StateUpdate advances the checkpoint on both chains and carries the
// mint/burn batches it authorizes. Applied in full or not at all.
type StateUpdate struct {
	Previous Checkpoint
	New      Checkpoint
	Mints    []MintEntry
	Burns    []BurnEntry
}

func (u *StateUpdate) String() string {
	return fmt.Sprintf("StateUpdate { Previous: %s, New: %s, Mints: %d, Burns: %d }",
		u.Previous.String(), u.New.String(), len(u.Mints), len(u.Burns))
}

type JSONCheckpoint struct {
	ZecRoot  string `json:"zec_root"`
	ZecBlock uint64 `json:"zec_block"`
	EthRoot  string `json:"eth_root"`
	EthBlock uint64 `json:"eth_block"`
}

func (c *Checkpoint) JSON() *JSONCheckpoint {
	return &JSONCheckpoint{
		ZecRoot:  c.ZecRoot.String(),
		ZecBlock: c.ZecBlock,
		EthRoot:  c.EthRoot.String(),
		EthBlock: c.EthBlock,
	}
}
