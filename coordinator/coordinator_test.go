package coordinator

import (
	"context"
	"database/sql"
	"math/big"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"

	"github.com/zecbridge/bridge-go/agreement"
	"github.com/zecbridge/bridge-go/common"
	"github.com/zecbridge/bridge-go/ledger"
	"github.com/zecbridge/bridge-go/token"
)

type testEnv struct {
	coordinator *Coordinator
	ledger      *ledger.Ledger
	wzec        *token.WZEC
	zec         *SimZecChain
	eth         *SimEthChain
	close       func()
}

func newTestEnv(t *testing.T) *testEnv {
	ledgerSQL, err := sql.Open("sqlite3", ":memory:")
	assert.NoError(t, err)
	tokenSQL, err := sql.Open("sqlite3", ":memory:")
	assert.NoError(t, err)

	ldb, err := ledger.NewLedgerDB(ledgerSQL)
	assert.NoError(t, err)
	wzec, err := token.NewWZEC(tokenSQL, common.RandEthAddress())
	assert.NoError(t, err)

	l := ledger.New(ldb, wzec)
	zec := NewSimZecChain()
	eth := NewSimEthChain()

	c, err := New(l, zec, eth, &Config{
		Interval:   MinTickerDuration,
		MaxRetries: 3,
	})
	assert.NoError(t, err)

	return &testEnv{
		coordinator: c,
		ledger:      l,
		wzec:        wzec,
		zec:         zec,
		eth:         eth,
		close: func() {
			ldb.Close()
			wzec.Close()
			ledgerSQL.Close()
			tokenSQL.Close()
		},
	}
}

func TestConfigCheck(t *testing.T) {
	_, err := New(nil, nil, nil, &Config{Interval: time.Millisecond})
	assert.ErrorIs(t, err, ErrIntervalTooSmall)
}

func TestRunOnceWaitsForNewBlocks(t *testing.T) {
	env := newTestEnv(t)
	defer env.close()

	// no blocks anywhere yet
	submitted, err := env.coordinator.RunOnce(context.Background())
	assert.NoError(t, err)
	assert.False(t, submitted)

	// one side alone is not enough
	env.zec.Mine(1)
	submitted, err = env.coordinator.RunOnce(context.Background())
	assert.NoError(t, err)
	assert.False(t, submitted)

	env.eth.Mine(1)
	submitted, err = env.coordinator.RunOnce(context.Background())
	assert.NoError(t, err)
	assert.True(t, submitted)

	cp, ok, err := env.ledger.LatestCheckpoint()
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint64(1), cp.ZecBlock)
	assert.Equal(t, uint64(1), cp.EthBlock)
}

func TestDepositFlowsThroughToMint(t *testing.T) {
	env := newTestEnv(t)
	defer env.close()

	user := common.RandEthAddress()
	amount := big.NewInt(90000)

	env.zec.Deposit(agreement.MintEntry{Amount: amount, Recipient: user})
	env.zec.Mine(2)
	env.eth.Mine(1)

	submitted, err := env.coordinator.RunOnce(context.Background())
	assert.NoError(t, err)
	assert.True(t, submitted)

	balance, err := env.wzec.BalanceOf(user)
	assert.NoError(t, err)
	assert.Equal(t, amount, balance)
}

func TestWithdrawalRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	defer env.close()

	user := common.RandEthAddress()
	amount := big.NewInt(90000)
	dest := common.RandBytes(20)

	// deposit, then bridge it
	env.zec.Deposit(agreement.MintEntry{Amount: amount, Recipient: user})
	env.zec.Mine(1)
	env.eth.Mine(1)
	_, err := env.coordinator.RunOnce(context.Background())
	assert.NoError(t, err)

	// user locks funds for withdrawal
	id, err := env.ledger.RequestWithdrawal(user, amount, dest)
	assert.NoError(t, err)

	// the release lands on zcash, the next update matches it
	env.zec.Fulfill(agreement.BurnEntry{Amount: amount, Destination: dest})
	env.zec.Mine(1)
	env.eth.Mine(1)
	submitted, err := env.coordinator.RunOnce(context.Background())
	assert.NoError(t, err)
	assert.True(t, submitted)

	w, ok, err := env.ledger.GetWithdrawalRequest(id)
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, w.Processed)

	custody, err := env.wzec.CustodyBalance()
	assert.NoError(t, err)
	assert.Equal(t, 0, custody.Sign())
}

// racingLedger loses the first submissions to a concurrent submitter,
// advancing the real ledger behind the coordinator's back.
type racingLedger struct {
	inner *ledger.Ledger
	races int
}

func (r *racingLedger) LatestCheckpoint() (*agreement.Checkpoint, bool, error) {
	return r.inner.LatestCheckpoint()
}

func (r *racingLedger) SubmitStateUpdate(update *agreement.StateUpdate) error {
	if r.races > 0 {
		r.races--
		interfering := &agreement.StateUpdate{
			Previous: update.Previous,
			New: agreement.Checkpoint{
				ZecRoot:  common.RandBytes32(),
				ZecBlock: update.New.ZecBlock - 1,
				EthRoot:  common.RandBytes32(),
				EthBlock: update.New.EthBlock - 1,
			},
		}
		if err := r.inner.SubmitStateUpdate(interfering); err != nil {
			return err
		}
		// now the caller's update is stale
	}
	return r.inner.SubmitStateUpdate(update)
}

func TestTickRetriesAfterCheckpointRace(t *testing.T) {
	env := newTestEnv(t)
	defer env.close()

	racing := &racingLedger{inner: env.ledger, races: 1}
	c, err := New(racing, env.zec, env.eth, &Config{
		Interval:   MinTickerDuration,
		MaxRetries: 3,
	})
	assert.NoError(t, err)

	env.zec.Mine(2)
	env.eth.Mine(2)

	// first attempt loses the race; the tick refetches the corrected
	// checkpoint and resubmits successfully
	err = c.tick(context.Background())
	assert.NoError(t, err)

	cp, ok, err := env.ledger.LatestCheckpoint()
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint64(2), cp.ZecBlock)
}

func TestStartStopsOnContextCancel(t *testing.T) {
	env := newTestEnv(t)
	defer env.close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- env.coordinator.Start(ctx)
	}()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("coordinator did not stop")
	}
}
