package feed

import (
	"time"

	log "github.com/sirupsen/logrus"

	"party-planner/domain"
)

// CascadePartyDate moves every event flagged UsePartyDate onto the local
// calendar day of newDate, keeping its local time of day. It returns a new
// slice and the number of events moved. A zero newDate changes nothing.
func CascadePartyDate(events []domain.Event, newDate time.Time, loc *time.Location) ([]domain.Event, int) {
	out := append([]domain.Event(nil), events...)
	if newDate.IsZero() {
		return out, 0
	}
	if loc == nil {
		loc = time.Local
	}
	y, m, d := newDate.In(loc).Date()
	moved := 0
	for i, ev := range out {
		if !ev.UsePartyDate {
			continue
		}
		old, ok := ev.Time()
		if !ok {
			log.WithFields(log.Fields{"event": ev.ID, "datetime": ev.Datetime}).Warn("skipping event with unparseable datetime")
			continue
		}
		local := old.In(loc)
		next := domain.FormatTime(time.Date(y, m, d, local.Hour(), local.Minute(), local.Second(), local.Nanosecond(), loc))
		if next == ev.Datetime {
			continue
		}
		out[i].Datetime = next
		moved++
	}
	return out, moved
}

// AlignToPartyDate applies the party date to a single event that follows it.
func AlignToPartyDate(ev domain.Event, info *domain.PartyInfo, loc *time.Location) domain.Event {
	if !ev.UsePartyDate {
		return ev
	}
	date, ok := info.PartyDate()
	if !ok {
		return ev
	}
	out, _ := CascadePartyDate([]domain.Event{ev}, date, loc)
	return out[0]
}
