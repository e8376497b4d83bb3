// Package invite renders invitation text from the party info and builds
// share links for guests.
package invite

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"text/template"
	"time"

	"party-planner/domain"
)

// NoPartyInfo is the invitation text used before any party info is saved.
const NoPartyInfo = "Party info not available"

const tbd = "TBD"

var (
	ErrUnknownTemplate = errors.New("unknown invitation template")
	ErrNoPhone         = errors.New("guest has no phone number")
)

var sources = []string{
	`Join us at our party on {{.Date}} from {{.Start}} to {{.End}} at {{.Venue}}.{{with .Address}} Address: {{.}}{{end}}`,
	`You're invited to {{or .Name "our party"}} on {{.Date}} at {{.Venue}} from {{.Start}} to {{.End}}.`,
	`Celebrate with us! {{or .Name "Party"}} on {{.Date}} at {{.Venue}}. Starts at {{.Start}}.`,
	`Don't miss out! {{or .Name "Our party"}} on {{.Date}}. Venue: {{.Venue}}. Begins at {{.Start}}, ends at {{.End}}.`,
	`You are cordially invited to {{or .Name "our event"}} on {{.Date}}. Venue: {{.Venue}}. Time: {{.Start}} - {{.End}}.`,
	`Let's party! {{or .Name "Join us"}} on {{.Date}} at {{.Venue}}. Time: {{.Start}} to {{.End}}.`,
	`Get ready for {{or .Name "a great party"}} on {{.Date}}. We'll kick off at {{.Start}} at {{.Venue}}.{{with .Address}} (Address: {{.}}){{end}}`,
	`Save the date for {{or .Name "our party"}} on {{.Date}}. Starts at {{.Start}} at {{.Venue}}.`,
}

var templates = parse(sources)

func parse(srcs []string) []*template.Template {
	out := make([]*template.Template, len(srcs))
	for i, src := range srcs {
		out[i] = template.Must(template.New(fmt.Sprintf("invite-%d", i)).Parse(src))
	}
	return out
}

type fields struct {
	Name    string
	Date    string
	Start   string
	End     string
	Venue   string
	Address string
}

// Count is the number of built-in templates.
func Count() int { return len(templates) }

// Render fills template index with info, formatting dates in loc.
// A nil info renders NoPartyInfo.
func Render(index int, info *domain.PartyInfo, loc *time.Location) (string, error) {
	if index < 0 || index >= len(templates) {
		return "", fmt.Errorf("%w: %d", ErrUnknownTemplate, index)
	}
	if info == nil {
		return NoPartyInfo, nil
	}
	if loc == nil {
		loc = time.Local
	}
	var b strings.Builder
	if err := templates[index].Execute(&b, newFields(info, loc)); err != nil {
		return "", err
	}
	return b.String(), nil
}

// RenderAll renders every template, for the template picker.
func RenderAll(info *domain.PartyInfo, loc *time.Location) []string {
	out := make([]string, 0, len(templates))
	for i := range templates {
		text, err := Render(i, info, loc)
		if err != nil {
			text = NoPartyInfo
		}
		out = append(out, text)
	}
	return out
}

func newFields(info *domain.PartyInfo, loc *time.Location) fields {
	return fields{
		Name:    info.PartyName,
		Date:    format(info.Date, loc, "Mon Jan 02 2006"),
		Start:   format(info.StartTime, loc, "3:04 PM"),
		End:     format(info.EndTime, loc, "3:04 PM"),
		Venue:   orTBD(info.Venue),
		Address: info.Address,
	}
}

func format(value string, loc *time.Location, layout string) string {
	t, ok := domain.ParseTime(value)
	if !ok {
		return tbd
	}
	return t.In(loc).Format(layout)
}

func orTBD(s string) string {
	if strings.TrimSpace(s) == "" {
		return tbd
	}
	return s
}

// WhatsAppLink returns a wa.me link that opens a chat with phone and the
// invitation text prefilled.
func WhatsAppLink(phone, text string) (string, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return "", ErrNoPhone
	}
	escaped := strings.ReplaceAll(url.QueryEscape(text), "+", "%20")
	return "https://wa.me/" + phone + "?text=" + escaped, nil
}
