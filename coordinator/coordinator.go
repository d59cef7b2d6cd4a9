// The coordinator watches both chains and periodically commits one
// state update to the bridge ledger. It runs on its own cadence,
// independent of the ledger: a submission either lands or is rejected
// deterministically, and a lost race against a concurrent submitter
// is recovered by refetching the latest checkpoint and resubmitting.

package coordinator

import (
	"context"
	"errors"
	"time"

	logger "github.com/sirupsen/logrus"

	"github.com/zecbridge/bridge-go/agreement"
	"github.com/zecbridge/bridge-go/ledger"
)

type Coordinator struct {
	cfg    *Config
	ledger BridgeLedger
	zec    ZecChain
	eth    EthChain
}

func New(l BridgeLedger, zec ZecChain, eth EthChain, cfg *Config) (*Coordinator, error) {
	if err := cfg.check(); err != nil {
		return nil, err
	}

	return &Coordinator{
		cfg:    cfg,
		ledger: l,
		zec:    zec,
		eth:    eth,
	}, nil
}

func (c *Coordinator) Start(ctx context.Context) error {
	logger.Debug("starting coordinator")
	defer func() {
		logger.Debug("stopping coordinator")
	}()

	ticker := time.NewTicker(c.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := c.tick(ctx); err != nil {
				return err
			}
		}
	}
}

// tick assembles and submits at most one state update, retrying a
// bounded number of times when the submission loses a checkpoint race.
func (c *Coordinator) tick(ctx context.Context) error {
	for attempt := 0; ; attempt++ {
		submitted, err := c.RunOnce(ctx)
		if errors.Is(err, ledger.ErrInvalidPreviousState) {
			if attempt >= c.cfg.MaxRetries {
				return err
			}
			logger.WithFields(logger.Fields{
				"attempt": attempt + 1,
			}).Warn("state update lost checkpoint race, reassembling")
			continue
		}
		if err != nil {
			return err
		}
		if submitted {
			logger.Debug("state update submitted")
		}
		return nil
	}
}

// RunOnce polls both chains and, when each has at least one block past
// the latest checkpoint, assembles and submits one state update. The
// returned bool reports whether an update was submitted.
func (c *Coordinator) RunOnce(ctx context.Context) (bool, error) {
	var previous agreement.Checkpoint // zero until the baseline exists
	latest, ok, err := c.ledger.LatestCheckpoint()
	if err != nil {
		return false, err
	}
	if ok {
		previous = *latest
	}

	zecTip, err := c.zec.TipHeight(ctx)
	if err != nil {
		return false, err
	}
	ethTip, err := c.eth.TipHeight(ctx)
	if err != nil {
		return false, err
	}

	// wait until at least one new block exists on each chain
	if zecTip <= previous.ZecBlock || ethTip <= previous.EthBlock {
		return false, nil
	}

	zecRoot, err := c.zec.BlockRoot(ctx, zecTip)
	if err != nil {
		return false, err
	}
	ethRoot, err := c.eth.BlockRoot(ctx, ethTip)
	if err != nil {
		return false, err
	}

	mints, err := c.zec.Deposits(ctx, previous.ZecBlock, zecTip)
	if err != nil {
		return false, err
	}
	burns, err := c.zec.Fulfillments(ctx, previous.ZecBlock, zecTip)
	if err != nil {
		return false, err
	}

	update := &agreement.StateUpdate{
		Previous: previous,
		New: agreement.Checkpoint{
			ZecRoot:  zecRoot,
			ZecBlock: zecTip,
			EthRoot:  ethRoot,
			EthBlock: ethTip,
		},
		Mints: mints,
		Burns: burns,
	}

	if err := c.ledger.SubmitStateUpdate(update); err != nil {
		return false, err
	}

	logger.WithFields(logger.Fields{
		"zecBlock": zecTip,
		"ethBlock": ethTip,
		"mints":    len(mints),
		"burns":    len(burns),
	}).Info("committed state update")

	return true, nil
}
