// Server = ledger + custody token + coordinator + http reporter.
// All components are configured via environment variables (strings!).

package cmd

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"
	_ "github.com/mattn/go-sqlite3"
	logger "github.com/sirupsen/logrus"

	"github.com/zecbridge/bridge-go/coordinator"
	"github.com/zecbridge/bridge-go/ledger"
	"github.com/zecbridge/bridge-go/reporter"
	"github.com/zecbridge/bridge-go/token"
)

// Default params for server.
// More often we don't recommend users to tweak those.
// So we list them here.
const (
	// how often the coordinator polls both chains
	defaultCoordinatorInterval = 5 * time.Second

	// resubmission attempts after losing a checkpoint race
	defaultCoordinatorMaxRetries = 3
)

// Keep the configuration's fields as "text" as possible.
// Its easier to load it from env vars or a config file.
type BridgeServerConfig struct {
	// ledger side
	LedgerDbFilePath string // db file path for checkpoint/withdrawal state

	// token side
	TokenDbFilePath string // db file path for wzec balances; must differ from the ledger db
	CustodyAddr     string // hex eth address that escrows withdrawn wzec

	// coordinator side
	CoordinatorInterval time.Duration // 0 = default
	CoordinatorRetries  int           // 0 = default

	// Http side
	HttpIp   string // eg. 0.0.0.0
	HttpPort string // eg. 8080
}

// BridgeServer holds the objects that consists of the bridge server.
type BridgeServer struct {
	MyLedgerDb    *ledger.LedgerDB
	MyLedger      *ledger.Ledger
	MyWzec        *token.WZEC
	MyZecChain    *coordinator.SimZecChain
	MyEthChain    *coordinator.SimEthChain
	MyCoordinator *coordinator.Coordinator
}

// NewBridgeServer creates a new bridge server.
// ctx is used for parental context to cancel the operation of bridge server.
// wg is used to wait for all the goroutines inside the server (coordinator loop) to finish.
func NewBridgeServer(bsc *BridgeServerConfig, ctx context.Context, wg *sync.WaitGroup) (*BridgeServer, error) {
	// Two separate sqlite handles. The ledger and the token each run
	// their own transactions; sharing one file would interleave them.
	ledgerSQL, err := sql.Open("sqlite3", bsc.LedgerDbFilePath)
	if err != nil {
		logger.Fatalf("failed to open ledger db file %s: %v", bsc.LedgerDbFilePath, err)
		return nil, err
	}
	tokenSQL, err := sql.Open("sqlite3", bsc.TokenDbFilePath)
	if err != nil {
		logger.Fatalf("failed to open token db file %s: %v", bsc.TokenDbFilePath, err)
		return nil, err
	}

	// ledger db
	myLedgerDb, err := ledger.NewLedgerDB(ledgerSQL)
	if err != nil {
		logger.Fatalf("failed to create ledger db: %v", err)
		return nil, err
	}

	// custody token
	myWzec, err := token.NewWZEC(tokenSQL, ethcommon.HexToAddress(bsc.CustodyAddr))
	if err != nil {
		logger.Fatalf("failed to create wzec token: %v", err)
		return nil, err
	}
	logger.WithField("address", myWzec.Custody().Hex()).Info("WZEC custody address")

	// the ledger itself
	myLedger := ledger.New(myLedgerDb, myWzec)

	// Chain observers. Real node connectivity is not wired here;
	// the simulated chains let the whole pipeline run end to end.
	myZecChain := coordinator.NewSimZecChain()
	myEthChain := coordinator.NewSimEthChain()

	interval := bsc.CoordinatorInterval
	if interval == 0 {
		interval = defaultCoordinatorInterval
	}
	retries := bsc.CoordinatorRetries
	if retries == 0 {
		retries = defaultCoordinatorMaxRetries
	}

	myCoordinator, err := coordinator.New(myLedger, myZecChain, myEthChain, &coordinator.Config{
		Interval:   interval,
		MaxRetries: retries,
	})
	if err != nil {
		logger.Fatalf("failed to create coordinator: %v", err)
		return nil, err
	}

	// Important: turn on the coordinator loop!
	wg.Add(1)
	go func() {
		defer wg.Done()
		err := myCoordinator.Start(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Fatalf("coordinator stopped: %v", err)
		}
	}()
	// Don't forget to call wg.Wait() in the main routine.

	// *** Setup a http server to report status ***
	httpServer := reporter.NewHttpReporter(bsc.HttpIp, bsc.HttpPort, myLedger)
	// Turn on the http server
	go httpServer.Run()

	// Give it some time to start the http server
	time.Sleep(1 * time.Second)
	// *** End the setup of http server ***

	return &BridgeServer{
		MyLedgerDb:    myLedgerDb,
		MyLedger:      myLedger,
		MyWzec:        myWzec,
		MyZecChain:    myZecChain,
		MyEthChain:    myEthChain,
		MyCoordinator: myCoordinator,
	}, nil
}

// Create, then start the bridge server and wait.
// Press Ctrl-C to kill the server.
func StartBridgeServerAndWait(bsc *BridgeServerConfig) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up a signal channel to listen for Ctrl-C (SIGINT) or SIGTERM
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	// Launch a new goroutine to handle the signal
	go func() {
		sig := <-sigCh
		fmt.Printf("Received signal: %v, cancelling context...\n", sig)
		cancel()
	}()

	var wg sync.WaitGroup

	_, err := NewBridgeServer(bsc, ctx, &wg)
	if err != nil {
		logger.Fatalf("failed to create bridge server: %v", err)
		return
	}

	// wait for all routines to finish
	wg.Wait()
}
