package api

import (
	"context"
	"net/http"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"

	"party-planner/feed"
	"party-planner/storage"
)

// ChangeFeed fans store changes out to calendar stream subscribers. It is a
// storage.Notifier, so a store can publish to it directly, and its Publish
// method can be handed to storage.SubscribeChanges.
type ChangeFeed struct {
	mu   sync.Mutex
	subs map[chan storage.Change]struct{}
}

func NewChangeFeed() *ChangeFeed {
	return &ChangeFeed{subs: make(map[chan storage.Change]struct{})}
}

func (f *ChangeFeed) subscribe() chan storage.Change {
	ch := make(chan storage.Change, 1)
	f.mu.Lock()
	f.subs[ch] = struct{}{}
	f.mu.Unlock()
	return ch
}

func (f *ChangeFeed) unsubscribe(ch chan storage.Change) {
	f.mu.Lock()
	delete(f.subs, ch)
	f.mu.Unlock()
}

// Publish wakes every subscriber. Slow subscribers coalesce pending changes.
func (f *ChangeFeed) Publish(change storage.Change) {
	f.mu.Lock()
	for ch := range f.subs {
		select {
		case ch <- change:
		default:
		}
	}
	f.mu.Unlock()
}

func (f *ChangeFeed) Notify(_ context.Context, change storage.Change) error {
	f.Publish(change)
	return nil
}

func affectsCalendar(change storage.Change) bool {
	switch storage.Key(change.Key) {
	case storage.KeyEvents, storage.KeyTasks, "":
		return true
	}
	return false
}

func streamCalendar(b *feed.Builder, changes *ChangeFeed) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Response().Header().Set(echo.HeaderContentType, "text/event-stream")
		c.Response().Header().Set(echo.HeaderCacheControl, "no-cache")
		c.Response().Header().Set(echo.HeaderConnection, "keep-alive")
		c.Response().Header().Set("X-Accel-Buffering", "no")
		flusher, ok := c.Response().Writer.(http.Flusher)
		if !ok {
			return c.String(http.StatusInternalServerError, "stream unsupported")
		}
		ctx := c.Request().Context()
		ch := changes.subscribe()
		defer changes.unsubscribe(ch)
		for {
			cal, err := b.Calendar(ctx)
			if err != nil {
				c.Logger().Error(err)
				return err
			}
			data, err := sonic.Marshal(newCalendarResponse(cal))
			if err != nil {
				c.Logger().Error(err)
				return err
			}
			if _, err := c.Response().Write([]byte("data: ")); err != nil {
				return err
			}
			if _, err := c.Response().Write(data); err != nil {
				return err
			}
			if _, err := c.Response().Write([]byte("\n\n")); err != nil {
				return err
			}
			flusher.Flush()
		wait:
			for {
				select {
				case <-ctx.Done():
					return nil
				case change := <-ch:
					if affectsCalendar(change) {
						break wait
					}
				}
			}
		}
	}
}
