package coordinator

import (
	"context"
	"sync"

	ethcommon "github.com/ethereum/go-ethereum/common"

	"github.com/zecbridge/bridge-go/agreement"
	"github.com/zecbridge/bridge-go/common"
)

// SimZecChain is an in-memory zcash observer for tests and demos.
// Blocks are mined on demand; deposits and fulfillments attach to the
// block mined next.
type SimZecChain struct {
	mu           sync.Mutex
	height       uint64
	roots        map[uint64]ethcommon.Hash
	deposits     map[uint64][]agreement.MintEntry
	fulfillments map[uint64][]agreement.BurnEntry

	pendingDeposits     []agreement.MintEntry
	pendingFulfillments []agreement.BurnEntry
}

func NewSimZecChain() *SimZecChain {
	return &SimZecChain{
		roots:        make(map[uint64]ethcommon.Hash),
		deposits:     make(map[uint64][]agreement.MintEntry),
		fulfillments: make(map[uint64][]agreement.BurnEntry),
	}
}

// Deposit queues a bridge deposit for the next mined block.
func (s *SimZecChain) Deposit(entry agreement.MintEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pendingDeposits = append(s.pendingDeposits, entry)
}

// Fulfill queues a withdrawal release for the next mined block.
func (s *SimZecChain) Fulfill(entry agreement.BurnEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pendingFulfillments = append(s.pendingFulfillments, entry)
}

func (s *SimZecChain) Mine(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := 0; i < n; i++ {
		s.height++
		s.roots[s.height] = common.RandBytes32()
		if len(s.pendingDeposits) > 0 {
			s.deposits[s.height] = s.pendingDeposits
			s.pendingDeposits = nil
		}
		if len(s.pendingFulfillments) > 0 {
			s.fulfillments[s.height] = s.pendingFulfillments
			s.pendingFulfillments = nil
		}
	}
}

func (s *SimZecChain) TipHeight(ctx context.Context) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.height, nil
}

func (s *SimZecChain) BlockRoot(ctx context.Context, height uint64) (ethcommon.Hash, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roots[height], nil
}

func (s *SimZecChain) Deposits(ctx context.Context, from, to uint64) ([]agreement.MintEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var entries []agreement.MintEntry
	for h := from + 1; h <= to; h++ {
		entries = append(entries, s.deposits[h]...)
	}
	return entries, nil
}

func (s *SimZecChain) Fulfillments(ctx context.Context, from, to uint64) ([]agreement.BurnEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var entries []agreement.BurnEntry
	for h := from + 1; h <= to; h++ {
		entries = append(entries, s.fulfillments[h]...)
	}
	return entries, nil
}

// SimEthChain is an in-memory eth observer for tests and demos.
type SimEthChain struct {
	mu     sync.Mutex
	height uint64
	roots  map[uint64]ethcommon.Hash
}

func NewSimEthChain() *SimEthChain {
	return &SimEthChain{
		roots: make(map[uint64]ethcommon.Hash),
	}
}

func (s *SimEthChain) Mine(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := 0; i < n; i++ {
		s.height++
		s.roots[s.height] = common.RandBytes32()
	}
}

func (s *SimEthChain) TipHeight(ctx context.Context) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.height, nil
}

func (s *SimEthChain) BlockRoot(ctx context.Context, height uint64) (ethcommon.Hash, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roots[height], nil
}
