// Package feed builds the calendar views derived from events and tasks and
// keeps events that follow the party date in step with it.
package feed

import (
	"sort"
	"time"

	"party-planner/domain"
)

// Feed maps a local calendar day (YYYY-MM-DD) to its items, earliest first.
type Feed map[string][]domain.FeedItem

// Keys returns the days in ascending order.
func (f Feed) Keys() []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Day returns the items of a single day, or nil.
func (f Feed) Day(key string) []domain.FeedItem { return f[key] }

// Only narrows the feed to one day.
func (f Feed) Only(key string) Feed {
	items, ok := f[key]
	if !ok {
		return Feed{}
	}
	return Feed{key: items}
}

type entry struct {
	item domain.FeedItem
	at   time.Time
}

// MergedFeed unions events and dated tasks and groups them by day in loc.
// Events claim their ids first, so a task sharing an id with an event is
// dropped. Items whose datetime cannot be parsed are left out.
func MergedFeed(events []domain.Event, tasks []domain.Task, loc *time.Location) Feed {
	if loc == nil {
		loc = time.Local
	}
	seen := make(map[string]struct{}, len(events)+len(tasks))
	items := make([]domain.FeedItem, 0, len(events)+len(tasks))
	for _, ev := range events {
		if _, dup := seen[ev.ID]; dup {
			continue
		}
		seen[ev.ID] = struct{}{}
		items = append(items, domain.FeedItem{ID: ev.ID, Datetime: ev.Datetime, Title: ev.Title})
	}
	for _, t := range tasks {
		if t.Date == nil {
			continue
		}
		if _, dup := seen[t.ID]; dup {
			continue
		}
		seen[t.ID] = struct{}{}
		items = append(items, domain.FeedItem{ID: t.ID, Datetime: *t.Date, Title: t.Text, IsTask: true})
	}

	groups := map[string][]entry{}
	for _, item := range items {
		at, ok := domain.ParseTime(item.Datetime)
		if !ok {
			continue
		}
		key := domain.DateKey(at, loc)
		groups[key] = append(groups[key], entry{item: item, at: at})
	}

	feed := make(Feed, len(groups))
	for key, entries := range groups {
		sort.SliceStable(entries, func(i, j int) bool { return entries[i].at.Before(entries[j].at) })
		out := make([]domain.FeedItem, len(entries))
		for i, e := range entries {
			out[i] = e.item
		}
		feed[key] = out
	}
	return feed
}
