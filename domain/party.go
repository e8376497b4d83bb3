package domain

import (
	"strings"
	"time"
)

// PartyInfo is the single party the app plans for. Times are ISO-8601
// strings; only the time of day of StartTime and EndTime is meaningful.
type PartyInfo struct {
	PartyName string `json:"partyName" validate:"required"`
	Date      string `json:"date" validate:"required,isodatetime"`
	StartTime string `json:"startTime" validate:"required,isodatetime"`
	EndTime   string `json:"endTime" validate:"required,isodatetime"`
	Venue     string `json:"venue" validate:"required"`
	Address   string `json:"address"`
}

// Normalize trims the free-text fields.
func (p *PartyInfo) Normalize() {
	p.PartyName = strings.TrimSpace(p.PartyName)
	p.Date = strings.TrimSpace(p.Date)
	p.StartTime = strings.TrimSpace(p.StartTime)
	p.EndTime = strings.TrimSpace(p.EndTime)
	p.Venue = strings.TrimSpace(p.Venue)
	p.Address = strings.TrimSpace(p.Address)
}

func (p PartyInfo) Validate() error { return check("party info", p) }

// PartyDate returns the parsed party date, if one is set.
func (p *PartyInfo) PartyDate() (time.Time, bool) {
	if p == nil {
		return time.Time{}, false
	}
	return ParseTime(p.Date)
}
