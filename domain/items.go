package domain

import (
	"math"
	"strings"
)

// Invitation is invitation text, usually rendered from a template.
type Invitation struct {
	ID   string `json:"id"`
	Text string `json:"text" validate:"required"`
}

func (i *Invitation) Normalize() { i.Text = strings.TrimSpace(i.Text) }

func (i Invitation) Validate() error { return check("invitation", i) }

// Note is a free-form note. Notes start out empty.
type Note struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// ShoppingItem is an entry on the shopping list. Total is always
// Price * Quantity as computed when the item was last written.
type ShoppingItem struct {
	ID        string  `json:"id"`
	Name      string  `json:"name" validate:"required"`
	Price     float64 `json:"price" validate:"gte=0"`
	Quantity  float64 `json:"quantity" validate:"gte=0"`
	Total     float64 `json:"total"`
	Completed bool    `json:"completed"`
}

func (s *ShoppingItem) Normalize() { s.Name = strings.TrimSpace(s.Name) }

func (s ShoppingItem) Validate() error {
	err := check("shopping item", s)
	if math.IsInf(s.Price, 0) || math.IsNaN(s.Price) {
		err = merge("shopping item", err, "price", "numeric")
	}
	if math.IsInf(s.Quantity, 0) || math.IsNaN(s.Quantity) {
		err = merge("shopping item", err, "quantity", "numeric")
	}
	return err
}

// Recompute sets Total from Price and Quantity.
func (s *ShoppingItem) Recompute() { s.Total = s.Price * s.Quantity }

// FeedItem is one row of the merged calendar feed.
type FeedItem struct {
	ID       string `json:"id"`
	Datetime string `json:"datetime"`
	Title    string `json:"title"`
	IsTask   bool   `json:"isTask"`
}
