package coordinator

import (
	"errors"
	"time"
)

const MinTickerDuration = 100 * time.Millisecond

var ErrIntervalTooSmall = errors.New("coordinator interval is below the minimum")

type Config struct {
	// how often to poll both chains for new blocks
	Interval time.Duration

	// how many times one tick re-assembles and resubmits after losing
	// a checkpoint race to a concurrent submitter
	MaxRetries int
}

func (cfg *Config) check() error {
	if cfg.Interval < MinTickerDuration {
		return ErrIntervalTooSmall
	}
	return nil
}
