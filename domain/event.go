package domain

import (
	"strings"
	"time"
)

// Event is a calendar entry. When UsePartyDate is set the date portion of
// Datetime follows PartyInfo.Date.
type Event struct {
	ID           string `json:"id"`
	Title        string `json:"title" validate:"required"`
	Datetime     string `json:"datetime" validate:"required,isodatetime"`
	UsePartyDate bool   `json:"usePartyDate"`
}

func (e *Event) Normalize() {
	e.Title = strings.TrimSpace(e.Title)
	e.Datetime = strings.TrimSpace(e.Datetime)
}

func (e Event) Validate() error { return check("event", e) }

func (e Event) Time() (time.Time, bool) { return ParseTime(e.Datetime) }
