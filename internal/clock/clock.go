// Package clock keeps the device wall clock: the configured POSIX timezone
// and an NTP-derived correction applied to the host clock.
package clock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/beevik/ntp"

	"github.com/dmitrijs2005/cubicd/internal/logging"
)

const queryTimeout = 5 * time.Second

// DefaultSyncInterval is used by Run when given a non-positive interval.
const DefaultSyncInterval = time.Hour

// QueryFunc returns the offset of the local clock relative to host.
type QueryFunc func(ctx context.Context, host string) (time.Duration, error)

// Snapshot is the clock state reported to clients.
type Snapshot struct {
	Epoch uint32 `json:"epoch"`
	ISO   string `json:"iso"`
	Local string `json:"local"`
	TZ    string `json:"tz"`
}

type Clock struct {
	mu       sync.RWMutex
	tz       string
	loc      *time.Location
	host     string
	offset   time.Duration
	lastSync time.Time

	resync chan struct{}
	query  QueryFunc
	now    func() time.Time
	logger logging.Logger
}

type Option func(*Clock)

// WithQuery replaces the NTP query, mostly for tests.
func WithQuery(q QueryFunc) Option {
	return func(c *Clock) { c.query = q }
}

// WithNow replaces the host clock.
func WithNow(now func() time.Time) Option {
	return func(c *Clock) { c.now = now }
}

func New(logger logging.Logger, opts ...Option) *Clock {
	c := &Clock{
		loc:    time.UTC,
		tz:     "UTC0",
		resync: make(chan struct{}, 1),
		query:  ntpQuery,
		now:    time.Now,
		logger: logger,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func ntpQuery(ctx context.Context, host string) (time.Duration, error) {
	opts := ntp.QueryOptions{Timeout: queryTimeout}
	if dl, ok := ctx.Deadline(); ok {
		if d := time.Until(dl); d < opts.Timeout {
			opts.Timeout = d
		}
	}

	resp, err := ntp.QueryWithOptions(host, opts)
	if err != nil {
		return 0, err
	}
	if err := resp.Validate(); err != nil {
		return 0, err
	}
	return resp.ClockOffset, nil
}

// SetTimezone switches the local time rules. An invalid string leaves the
// clock on UTC and returns the parse error; tz is still reported as set.
func (c *Clock) SetTimezone(tz string) error {
	loc, err := LoadLocation(tz)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.tz = tz
	if err != nil {
		c.loc = time.UTC
		return err
	}
	c.loc = loc
	return nil
}

// SetNTPServer records host and asks the sync loop to query it soon.
func (c *Clock) SetNTPServer(host string) {
	c.mu.Lock()
	c.host = host
	c.mu.Unlock()

	select {
	case c.resync <- struct{}{}:
	default:
	}
}

func (c *Clock) NTPServer() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.host
}

func (c *Clock) Timezone() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tz
}

func (c *Clock) Location() *time.Location {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loc
}

// Now returns the corrected wall clock in the configured location.
func (c *Clock) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.now().Add(c.offset).In(c.loc)
}

// LastSync reports when the offset was last refreshed; zero if never.
func (c *Clock) LastSync() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastSync
}

func (c *Clock) Snapshot() Snapshot {
	now := c.Now()
	return Snapshot{
		Epoch: uint32(now.Unix()),
		ISO:   now.Format("2006-01-02T15:04:05-0700"),
		Local: now.Format("15:04:05"),
		TZ:    c.Timezone(),
	}
}

// Sync queries the configured NTP host once and stores the offset.
func (c *Clock) Sync(ctx context.Context) error {
	host := c.NTPServer()
	if host == "" {
		return nil
	}

	offset, err := c.query(ctx, host)
	if err != nil {
		return fmt.Errorf("ntp query %s: %w", host, err)
	}

	c.mu.Lock()
	c.offset = offset
	c.lastSync = c.now()
	c.mu.Unlock()

	c.logger.Debug(ctx, "clock synced", "host", host, "offset", offset.String())
	return nil
}

// Run syncs every interval and whenever SetNTPServer is called, until ctx
// is done. A non-positive interval falls back to DefaultSyncInterval.
func (c *Clock) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		c.logger.Warn(ctx, "non-positive ntp sync interval, using default",
			"interval", interval.String(), "default", DefaultSyncInterval.String())
		interval = DefaultSyncInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-c.resync:
		}

		qctx, cancel := context.WithTimeout(ctx, queryTimeout)
		if err := c.Sync(qctx); err != nil {
			c.logger.Warn(ctx, "ntp sync failed", "error", err)
		}
		cancel()
	}
}
