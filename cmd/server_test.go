package cmd_test

// Notice:
// This test runs the whole server against the simulated chain
// observers: a deposit mined on the zcash side mints WZEC, a
// withdrawal request plus a mined fulfillment releases the escrow.

import (
	"context"
	"math/big"
	"net"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/zecbridge/bridge-go/agreement"
	"github.com/zecbridge/bridge-go/cmd"
	sharedcommon "github.com/zecbridge/bridge-go/common"
	"github.com/zecbridge/bridge-go/logconfig"
	"github.com/zecbridge/bridge-go/reporter"
)

const (
	RETRY_TIMES = 50 // retry times for waiting on a coordinator tick
	RETRY_SLEEP = 100 * time.Millisecond
)

// grab a free tcp port for the http reporter
func freePort(t *testing.T) string {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	assert.NoError(t, err)
	defer l.Close()
	return strconv.Itoa(l.Addr().(*net.TCPAddr).Port)
}

func TestBridgeServerEndToEnd(t *testing.T) {
	logconfig.ConfigInfoLogger()

	tmp := t.TempDir()
	port := freePort(t)

	bsc := &cmd.BridgeServerConfig{
		LedgerDbFilePath:    filepath.Join(tmp, "ledger.db"),
		TokenDbFilePath:     filepath.Join(tmp, "token.db"),
		CustodyAddr:         sharedcommon.RandEthAddress().Hex(),
		CoordinatorInterval: 200 * time.Millisecond,
		HttpIp:              "127.0.0.1",
		HttpPort:            port,
	}

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup

	srv, err := cmd.NewBridgeServer(bsc, ctx, &wg)
	assert.NoError(t, err)

	user := sharedcommon.RandEthAddress()
	amount := big.NewInt(150000000)

	// A deposit confirmed on the zcash side mints WZEC for the user.
	srv.MyZecChain.Deposit(agreement.MintEntry{Amount: amount, Recipient: user})
	srv.MyZecChain.Mine(1)
	srv.MyEthChain.Mine(1)

	minted := false
	for i := 0; i < RETRY_TIMES; i++ {
		balance, err := srv.MyWzec.BalanceOf(user)
		assert.NoError(t, err)
		if balance.Cmp(amount) == 0 {
			minted = true
			break
		}
		time.Sleep(RETRY_SLEEP)
	}
	assert.True(t, minted, "deposit was not minted in time")

	// The reporter publishes the counters over http.
	reader := reporter.NewHttpReader("127.0.0.1", port)
	body, err := reader.GetCounters()
	assert.NoError(t, err)
	assert.Contains(t, body, `"totalMinted":"150000000"`)

	// The user asks for their WZEC back on the zcash side.
	destination := sharedcommon.RandBytes(20)
	id, err := srv.MyLedger.RequestWithdrawal(user, amount, destination)
	assert.NoError(t, err)

	// The bridge operator releases the funds on zcash; the observed
	// fulfillment burns the escrowed WZEC.
	srv.MyZecChain.Fulfill(agreement.BurnEntry{Amount: amount, Destination: destination})
	srv.MyZecChain.Mine(1)
	srv.MyEthChain.Mine(1)

	processed := false
	for i := 0; i < RETRY_TIMES; i++ {
		w, ok, err := srv.MyLedger.GetWithdrawalRequest(id)
		assert.NoError(t, err)
		if ok && w.Processed {
			processed = true
			break
		}
		time.Sleep(RETRY_SLEEP)
	}
	assert.True(t, processed, "withdrawal was not processed in time")

	locked, err := srv.MyLedger.TotalLocked()
	assert.NoError(t, err)
	assert.Zero(t, locked.Sign())

	cancel()
	wg.Wait()
}
