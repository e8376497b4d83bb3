package feed

import (
	"reflect"
	"testing"
	"time"

	"party-planner/domain"
)

func ptrString(s string) *string { return &s }

func TestMergedFeedGroupsByLocalDate(t *testing.T) {
	events := []domain.Event{
		{ID: "late", Title: "Late", Datetime: "2025-04-10T23:30:00Z"},
		{ID: "early", Title: "Early", Datetime: "2025-04-11T00:15:00Z"},
	}

	utc := MergedFeed(events, nil, time.UTC)
	if got := utc.Keys(); !reflect.DeepEqual(got, []string{"2025-04-10", "2025-04-11"}) {
		t.Fatalf("UTC: expected two days, got %v", got)
	}

	minus5 := MergedFeed(events, nil, time.FixedZone("UTC-5", -5*60*60))
	if got := minus5.Keys(); !reflect.DeepEqual(got, []string{"2025-04-10"}) {
		t.Fatalf("UTC-5: expected one day, got %v", got)
	}
	day := minus5.Day("2025-04-10")
	if len(day) != 2 || day[0].ID != "late" || day[1].ID != "early" {
		t.Fatalf("UTC-5: unexpected order %v", day)
	}

	plus1 := MergedFeed(events, nil, time.FixedZone("UTC+1", 60*60))
	if got := plus1.Keys(); !reflect.DeepEqual(got, []string{"2025-04-11"}) {
		t.Fatalf("UTC+1: expected one day, got %v", got)
	}
}

func TestMergedFeedPackBagsAndBBQ(t *testing.T) {
	tasks := []domain.Task{{ID: "t1", Text: "Pack bags", Date: ptrString("2025-06-01T09:00:00Z")}}
	events := []domain.Event{{ID: "e1", Title: "BBQ", Datetime: "2025-06-01T16:00:00Z"}}

	feed := MergedFeed(events, tasks, time.UTC)
	want := Feed{"2025-06-01": {
		{ID: "t1", Datetime: "2025-06-01T09:00:00Z", Title: "Pack bags", IsTask: true},
		{ID: "e1", Datetime: "2025-06-01T16:00:00Z", Title: "BBQ"},
	}}
	if !reflect.DeepEqual(feed, want) {
		t.Fatalf("expected %v, got %v", want, feed)
	}
}

func TestMergedFeedEventWinsOnIDCollision(t *testing.T) {
	events := []domain.Event{{ID: "same", Title: "Event", Datetime: "2025-06-01T10:00:00Z"}}
	tasks := []domain.Task{
		{ID: "same", Text: "Task", Date: ptrString("2025-06-01T08:00:00Z")},
		{ID: "other", Text: "Other", Date: ptrString("2025-06-02T08:00:00Z")},
	}
	feed := MergedFeed(events, tasks, time.UTC)
	day := feed.Day("2025-06-01")
	if len(day) != 1 || day[0].IsTask || day[0].Title != "Event" {
		t.Fatalf("expected only the event, got %v", day)
	}
	if len(feed.Day("2025-06-02")) != 1 {
		t.Fatalf("expected the other task to survive, got %v", feed)
	}
}

func TestMergedFeedDropsUndatedAndUnparseable(t *testing.T) {
	events := []domain.Event{
		{ID: "e1", Title: "Broken", Datetime: "not a date"},
		{ID: "e2", Title: "Empty"},
		{ID: "e3", Title: "Fine", Datetime: "2025-06-01T10:00:00Z"},
	}
	tasks := []domain.Task{
		{ID: "t1", Text: "No date"},
		{ID: "t2", Text: "Bad date", Date: ptrString("tomorrow")},
	}
	feed := MergedFeed(events, tasks, time.UTC)
	if len(feed) != 1 || len(feed.Day("2025-06-01")) != 1 {
		t.Fatalf("expected only the parseable event, got %v", feed)
	}
}

func TestMergedFeedEmptyAndOnly(t *testing.T) {
	if feed := MergedFeed(nil, nil, time.UTC); len(feed) != 0 || len(feed.Keys()) != 0 {
		t.Fatalf("expected empty feed, got %v", feed)
	}
	events := []domain.Event{
		{ID: "a", Title: "A", Datetime: "2025-06-03T10:00:00Z"},
		{ID: "b", Title: "B", Datetime: "2025-06-01T10:00:00Z"},
	}
	feed := MergedFeed(events, nil, time.UTC)
	if got := feed.Keys(); !reflect.DeepEqual(got, []string{"2025-06-01", "2025-06-03"}) {
		t.Fatalf("keys not sorted: %v", got)
	}
	only := feed.Only("2025-06-03")
	if len(only) != 1 || only.Day("2025-06-03")[0].ID != "a" {
		t.Fatalf("unexpected selection %v", only)
	}
	if len(feed.Only("2025-07-01")) != 0 {
		t.Fatalf("expected empty selection")
	}
}

func TestCascadePartyDateKeepsTimeOfDay(t *testing.T) {
	events := []domain.Event{
		{ID: "follow", Title: "Dinner", Datetime: "2025-06-01T18:00:00.000Z", UsePartyDate: true},
		{ID: "fixed", Title: "Pickup", Datetime: "2025-06-01T18:00:00.000Z"},
	}
	d1 := time.Date(2025, 6, 14, 0, 0, 0, 0, time.UTC)
	out, moved := CascadePartyDate(events, d1, time.UTC)
	if moved != 1 {
		t.Fatalf("expected one event moved, got %d", moved)
	}
	if out[0].Datetime != "2025-06-14T18:00:00.000Z" {
		t.Fatalf("unexpected cascaded datetime %q", out[0].Datetime)
	}
	if !reflect.DeepEqual(out[1], events[1]) {
		t.Fatalf("event without usePartyDate changed: %v", out[1])
	}
	if events[0].Datetime != "2025-06-01T18:00:00.000Z" {
		t.Fatalf("input slice was modified")
	}
}

func TestCascadePartyDateUsesLocalCalendar(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*60*60)
	// 21:00 local on May 31 is 02:00Z on June 1.
	events := []domain.Event{{ID: "e", Datetime: "2025-06-01T02:00:00.000Z", UsePartyDate: true}}
	// Party date saved as local midnight of June 20.
	partyDate := time.Date(2025, 6, 20, 0, 0, 0, 0, loc)
	out, moved := CascadePartyDate(events, partyDate, loc)
	if moved != 1 || out[0].Datetime != "2025-06-21T02:00:00.000Z" {
		t.Fatalf("expected 21:00 local on June 20, got %q (moved %d)", out[0].Datetime, moved)
	}
}

func TestCascadePartyDateNoDate(t *testing.T) {
	events := []domain.Event{{ID: "e", Datetime: "2025-06-01T18:00:00.000Z", UsePartyDate: true}}
	out, moved := CascadePartyDate(events, time.Time{}, time.UTC)
	if moved != 0 || !reflect.DeepEqual(out, events) {
		t.Fatalf("zero date should not change events, got %v", out)
	}
	out, moved = CascadePartyDate([]domain.Event{{ID: "bad", Datetime: "??", UsePartyDate: true}}, time.Now(), time.UTC)
	if moved != 0 || out[0].Datetime != "??" {
		t.Fatalf("unparseable event should be left alone, got %v", out)
	}
}

func TestAlignToPartyDate(t *testing.T) {
	info := &domain.PartyInfo{Date: "2025-07-04T00:00:00.000Z"}
	ev := domain.Event{Title: "Fireworks", Datetime: "2025-06-01T21:30:00.000Z", UsePartyDate: true}
	if got := AlignToPartyDate(ev, info, time.UTC); got.Datetime != "2025-07-04T21:30:00.000Z" {
		t.Fatalf("unexpected alignment %q", got.Datetime)
	}
	if got := AlignToPartyDate(ev, nil, time.UTC); got != ev {
		t.Fatalf("no party info should leave event unchanged")
	}
	ev.UsePartyDate = false
	if got := AlignToPartyDate(ev, info, time.UTC); got != ev {
		t.Fatalf("event not following the party date was changed")
	}
}
