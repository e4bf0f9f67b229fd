package domain

import (
	"sync"
	"time"

	"github.com/lightningnetwork/lnd/clock"
)

// RoundClock reads wall-clock time and never goes backwards: a reading older
// than the last one returned is replaced by the last one.
type RoundClock struct {
	clock clock.Clock
	lock  *sync.Mutex
	last  time.Time
}

func NewRoundClock(c clock.Clock) *RoundClock {
	if c == nil {
		c = clock.NewDefaultClock()
	}
	return &RoundClock{
		clock: c,
		lock:  &sync.Mutex{},
	}
}

func (c *RoundClock) Now() time.Time {
	c.lock.Lock()
	defer c.lock.Unlock()

	now := c.clock.Now()
	if now.Before(c.last) {
		return c.last
	}
	c.last = now
	return now
}

func (c *RoundClock) ElapsedSince(t time.Time) time.Duration {
	elapsed := c.Now().Sub(t)
	if elapsed < 0 {
		return 0
	}
	return elapsed
}

func (c *RoundClock) HasElapsed(t time.Time, d time.Duration) bool {
	return c.ElapsedSince(t) >= d
}
