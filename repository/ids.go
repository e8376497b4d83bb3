package repository

import (
	"strconv"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// IDGenerator produces entity ids.
type IDGenerator func() string

// UUIDs generates random UUIDv4 strings.
func UUIDs() IDGenerator { return uuid.NewString }

// Monotonic generates decimal Unix-nanosecond strings that strictly increase
// across calls, even when the clock stalls or goes backwards.
func Monotonic() IDGenerator {
	var last int64
	return func() string {
		for {
			now := time.Now().UnixNano()
			prev := atomic.LoadInt64(&last)
			if now <= prev {
				now = prev + 1
			}
			if atomic.CompareAndSwapInt64(&last, prev, now) {
				return strconv.FormatInt(now, 10)
			}
		}
	}
}

// IDStrategy resolves a configured strategy name.
func IDStrategy(name string) (IDGenerator, bool) {
	switch name {
	case "", "uuid":
		return UUIDs(), true
	case "monotonic":
		return Monotonic(), true
	default:
		return nil, false
	}
}
