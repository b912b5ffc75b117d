package idgen

import (
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/niksmo/prodmng/internal/core/domain"
	"github.com/niksmo/prodmng/internal/core/port"
)

var _ port.IDGenerator = (*Clock)(nil)
var _ port.IDGenerator = UUID{}

// Clock issues numeric ids from the wall clock in milliseconds. Ids are
// strictly increasing within a process even when the clock stalls or
// steps back.
type Clock struct {
	mu   sync.Mutex
	now  func() time.Time
	last int64
}

func NewClock() *Clock {
	return &Clock{now: time.Now}
}

func (c *Clock) NewID() domain.ID {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := c.now().UnixMilli()
	if n <= c.last {
		n = c.last + 1
	}
	c.last = n
	return domain.ID(strconv.FormatInt(n, 10))
}

// UUID issues random version 4 UUIDs.
type UUID struct{}

func (UUID) NewID() domain.ID {
	return domain.ID(uuid.NewString())
}

// New returns the generator registered under kind: "clock" or "uuid".
func New(kind string) (port.IDGenerator, bool) {
	switch kind {
	case "", "clock":
		return NewClock(), true
	case "uuid":
		return UUID{}, true
	default:
		return nil, false
	}
}
