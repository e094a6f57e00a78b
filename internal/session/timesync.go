package session

import (
	"context"
	"sync"
	"time"

	"github.com/beevik/ntp"
)

// Clock provides wall-clock time corrected against a reference NTP
// server. Rotating credentials are derived from this clock so local
// clock skew cannot cause authentication failures.
//
// Sync failure is non-fatal: the last known offset (initially zero,
// i.e. the local clock) stays in effect and a warning is logged.
type Clock struct {
	server   string
	interval time.Duration
	logger   Logger

	mu     sync.RWMutex
	offset time.Duration

	// queryFunc allows tests to stub the NTP query.
	queryFunc func(server string) (time.Duration, error)
}

// NewClock creates a Clock syncing against the given NTP server on the
// given cadence. logger may be nil.
func NewClock(server string, interval time.Duration, logger Logger) *Clock {
	return &Clock{
		server:   server,
		interval: interval,
		logger:   logger,
		queryFunc: func(server string) (time.Duration, error) {
			resp, err := ntp.Query(server)
			if err != nil {
				return 0, err
			}
			if err := resp.Validate(); err != nil {
				return 0, err
			}
			return resp.ClockOffset, nil
		},
	}
}

// Now returns the current reference-corrected time.
func (c *Clock) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return time.Now().Add(c.offset)
}

// Sync queries the reference clock once and updates the offset.
// On failure the previous offset is kept and a warning is logged.
func (c *Clock) Sync() {
	offset, err := c.queryFunc(c.server)
	if err != nil {
		if c.logger != nil {
			c.logger.Warn("time sync failed, falling back to local clock",
				"server", c.server,
				"error", err,
			)
		}
		return
	}

	c.mu.Lock()
	c.offset = offset
	c.mu.Unlock()

	if c.logger != nil {
		c.logger.Debug("time synchronised",
			"server", c.server,
			"offset", offset.String(),
		)
	}
}

// Run synchronises immediately and then on the configured cadence until
// ctx is cancelled.
func (c *Clock) Run(ctx context.Context) {
	c.Sync()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Sync()
		}
	}
}
