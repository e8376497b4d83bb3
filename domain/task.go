package domain

import (
	"strings"
	"time"
)

// Task is a to-do item. A nil Date means the task has no calendar presence.
type Task struct {
	ID        string  `json:"id"`
	Text      string  `json:"text" validate:"required"`
	Completed bool    `json:"completed"`
	Date      *string `json:"date"`
}

func (t *Task) Normalize() {
	t.Text = strings.TrimSpace(t.Text)
	if t.Date != nil {
		d := strings.TrimSpace(*t.Date)
		if d == "" {
			t.Date = nil
		} else {
			t.Date = &d
		}
	}
}

func (t Task) Validate() error {
	err := check("task", t)
	if t.Date != nil {
		if _, ok := ParseTime(*t.Date); !ok {
			err = merge("task", err, "date", "isodatetime")
		}
	}
	return err
}

// Time returns the parsed task date, if any.
func (t Task) Time() (time.Time, bool) {
	if t.Date == nil {
		return time.Time{}, false
	}
	return ParseTime(*t.Date)
}

// Overdue reports an open task whose date falls on a day before now in loc.
func (t Task) Overdue(now time.Time, loc *time.Location) bool {
	if t.Completed {
		return false
	}
	due, ok := t.Time()
	if !ok {
		return false
	}
	return DateKey(due, loc) < DateKey(now, loc)
}
