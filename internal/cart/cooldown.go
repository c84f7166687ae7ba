package cart

import (
	"context"
	"log/slog"
	"math"
	"strconv"
	"time"

	"github.com/alextreichler/flowershop/internal/clientstate"
)

// CooldownWindow is the minimum wait between two bouquet orders.
const CooldownWindow = 300 * time.Second

// Cooldown remembers when the last order went out and blocks a new one
// until the window has passed.
type Cooldown struct {
	storage clientstate.Storage
	window  time.Duration
	now     func() time.Time
}

func NewCooldown(storage clientstate.Storage) *Cooldown {
	return &Cooldown{storage: storage, window: CooldownWindow, now: time.Now}
}

// WithClock returns a copy of the cooldown that reads time from now.
func (c *Cooldown) WithClock(now func() time.Time) *Cooldown {
	cp := *c
	cp.now = now
	return &cp
}

// Start records a successful submission.
func (c *Cooldown) Start() {
	c.storage.Set(clientstate.CooldownKey, strconv.FormatInt(c.now().UnixMilli(), 10))
}

// Remaining is the time left before another submission is allowed. An
// elapsed or unreadable record is cleared.
func (c *Cooldown) Remaining() time.Duration {
	raw, ok := c.storage.Get(clientstate.CooldownKey)
	if !ok {
		return 0
	}
	last, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		slog.Warn("Discarding malformed cooldown record", "value", raw)
		c.storage.Delete(clientstate.CooldownKey)
		return 0
	}
	left := c.window - c.now().Sub(time.UnixMilli(last))
	if left <= 0 {
		c.storage.Delete(clientstate.CooldownKey)
		return 0
	}
	return left
}

func (c *Cooldown) Allowed() bool {
	return c.Remaining() == 0
}

// SecondsLeft is the visible countdown value, rounded up.
func (c *Cooldown) SecondsLeft() int {
	return int(math.Ceil(c.Remaining().Seconds()))
}

// Watch calls onTick with the seconds left every interval until the
// cooldown reaches zero, at which point the record is cleared and onTick
// receives 0. It returns early when ctx is done.
func (c *Cooldown) Watch(ctx context.Context, every time.Duration, onTick func(secondsLeft int)) {
	left := c.SecondsLeft()
	onTick(left)
	if left == 0 {
		return
	}

	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			left = c.SecondsLeft()
			onTick(left)
			if left == 0 {
				return
			}
		}
	}
}
