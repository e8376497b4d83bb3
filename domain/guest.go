package domain

import (
	"strings"

	"github.com/bytedance/sonic"
)

// noRestriction is how an absent dietary restriction is persisted.
const noRestriction = "No"

// Dietary is either no restriction (the zero value) or a free-text
// restriction. It is stored as "No" when there is none.
type Dietary struct {
	text string
}

// NoRestriction returns the "none" variant.
func NoRestriction() Dietary { return Dietary{} }

// Restriction returns a restriction holding the trimmed text. Blank text
// collapses to NoRestriction.
func Restriction(text string) Dietary { return Dietary{text: strings.TrimSpace(text)} }

// DietaryFromToggle maps the "has restriction" switch and its details field.
func DietaryFromToggle(has bool, details string) Dietary {
	if !has {
		return NoRestriction()
	}
	return Restriction(details)
}

// Restricted returns the restriction text and whether one is set.
func (d Dietary) Restricted() (string, bool) { return d.text, d.text != "" }

func (d Dietary) String() string {
	if d.text == "" {
		return noRestriction
	}
	return d.text
}

func (d Dietary) MarshalJSON() ([]byte, error) {
	return sonic.Marshal(d.String())
}

func (d *Dietary) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*d = NoRestriction()
		return nil
	}
	var s string
	if err := sonic.Unmarshal(data, &s); err != nil {
		return err
	}
	if strings.TrimSpace(s) == noRestriction {
		*d = NoRestriction()
		return nil
	}
	*d = Restriction(s)
	return nil
}

// Guest is a contact on the guest list.
type Guest struct {
	ID                  string  `json:"id"`
	FirstName           string  `json:"firstName" validate:"required"`
	LastName            string  `json:"lastName"`
	Phone               string  `json:"phone"`
	Email               string  `json:"email" validate:"omitempty,email"`
	DietaryRestrictions Dietary `json:"dietaryRestrictions"`
}

func (g *Guest) Normalize() {
	g.FirstName = strings.TrimSpace(g.FirstName)
	g.LastName = strings.TrimSpace(g.LastName)
	g.Phone = strings.TrimSpace(g.Phone)
	g.Email = strings.TrimSpace(g.Email)
}

func (g Guest) Validate() error { return check("guest", g) }

// FullName joins first and last name.
func (g Guest) FullName() string {
	return strings.TrimSpace(g.FirstName + " " + g.LastName)
}
