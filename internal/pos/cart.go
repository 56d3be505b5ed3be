// Package pos is the checkout domain of a terminal: the cart, pricing,
// discount approval, bill splitting and table merge rules. Nothing here does
// I/O; every operation returns a new value and leaves its receiver untouched.
package pos

import (
	"fmt"

	"github.com/shopspring/decimal"

	"restaurant-pos/internal/models"
)

// MenuItem is what a tap on the menu grid adds to the cart
type MenuItem struct {
	ID        int64             `json:"id"`
	Name      string            `json:"name"`
	Price     decimal.Decimal   `json:"price"`
	Modifiers []models.Modifier `json:"modifiers,omitempty"`
	Notes     string            `json:"notes,omitempty"`
}

// CartLine is one entry of the cart
type CartLine struct {
	MenuItemID int64             `json:"menu_item_id"`
	Name       string            `json:"name"`
	Quantity   int               `json:"quantity"`
	UnitPrice  decimal.Decimal   `json:"unit_price"`
	Modifiers  []models.Modifier `json:"modifiers,omitempty"`
	Notes      string            `json:"notes,omitempty"`
}

// UnitTotal is the unit price plus every modifier
func (l CartLine) UnitTotal() decimal.Decimal {
	unit := l.UnitPrice
	for _, m := range l.Modifiers {
		unit = unit.Add(m.Price)
	}
	return unit
}

// LineTotal is UnitTotal times quantity
func (l CartLine) LineTotal() decimal.Decimal {
	return l.UnitTotal().Mul(decimal.NewFromInt(int64(l.Quantity)))
}

func (l CartLine) sameAs(item MenuItem) bool {
	if l.MenuItemID != item.ID || l.Notes != item.Notes || len(l.Modifiers) != len(item.Modifiers) {
		return false
	}
	for i, m := range l.Modifiers {
		if m.Name != item.Modifiers[i].Name || !m.Price.Equal(item.Modifiers[i].Price) {
			return false
		}
	}
	return true
}

func (l CartLine) validate(index int) error {
	field := fmt.Sprintf("cart[%d]", index)
	if l.Quantity < 1 {
		return models.ValidationError{Field: field + ".quantity", Message: "quantity must be at least 1"}
	}
	if l.UnitPrice.IsNegative() {
		return models.ValidationError{Field: field + ".unit_price", Message: "price must not be negative"}
	}
	for _, m := range l.Modifiers {
		if m.Price.IsNegative() {
			return models.ValidationError{Field: field + ".modifiers", Message: "modifier price must not be negative"}
		}
	}
	return nil
}

// Cart is an immutable list of lines
type Cart struct {
	lines []CartLine
}

// NewCart builds a cart from existing lines, rejecting malformed ones
func NewCart(lines ...CartLine) (Cart, error) {
	for i, l := range lines {
		if err := l.validate(i); err != nil {
			return Cart{}, err
		}
	}
	return Cart{lines: cloneLines(lines)}, nil
}

func cloneLines(lines []CartLine) []CartLine {
	if len(lines) == 0 {
		return nil
	}
	out := make([]CartLine, len(lines))
	for i, l := range lines {
		out[i] = l
		if l.Modifiers != nil {
			out[i].Modifiers = append([]models.Modifier(nil), l.Modifiers...)
		}
	}
	return out
}

// Lines returns a copy of the cart lines
func (c Cart) Lines() []CartLine {
	return cloneLines(c.lines)
}

func (c Cart) Len() int      { return len(c.lines) }
func (c Cart) IsEmpty() bool { return len(c.lines) == 0 }

// Line returns the line at index i
func (c Cart) Line(i int) (CartLine, error) {
	if i < 0 || i >= len(c.lines) {
		return CartLine{}, fmt.Errorf("line %d: %w", i, models.ErrLineNotFound)
	}
	return cloneLines(c.lines[i : i+1])[0], nil
}

// Add taps a menu item. A line with the same item, modifiers and notes is
// incremented; otherwise a new line with quantity 1 is appended.
func (c Cart) Add(item MenuItem) (Cart, error) {
	line := CartLine{
		MenuItemID: item.ID,
		Name:       item.Name,
		Quantity:   1,
		UnitPrice:  item.Price,
		Modifiers:  item.Modifiers,
		Notes:      item.Notes,
	}
	if err := line.validate(len(c.lines)); err != nil {
		return c, err
	}

	lines := cloneLines(c.lines)
	for i := range lines {
		if lines[i].sameAs(item) {
			lines[i].Quantity++
			return Cart{lines: lines}, nil
		}
	}
	return Cart{lines: append(lines, cloneLines([]CartLine{line})...)}, nil
}

func (c Cart) update(i int, fn func(lines []CartLine) []CartLine) (Cart, error) {
	if i < 0 || i >= len(c.lines) {
		return c, fmt.Errorf("line %d: %w", i, models.ErrLineNotFound)
	}
	return Cart{lines: fn(cloneLines(c.lines))}, nil
}

// Increment adds one to the quantity of line i
func (c Cart) Increment(i int) (Cart, error) {
	return c.update(i, func(lines []CartLine) []CartLine {
		lines[i].Quantity++
		return lines
	})
}

// Decrement removes one from line i, dropping the line when it reaches zero
func (c Cart) Decrement(i int) (Cart, error) {
	return c.update(i, func(lines []CartLine) []CartLine {
		lines[i].Quantity--
		if lines[i].Quantity == 0 {
			return append(lines[:i], lines[i+1:]...)
		}
		return lines
	})
}

// Remove deletes line i
func (c Cart) Remove(i int) (Cart, error) {
	return c.update(i, func(lines []CartLine) []CartLine {
		return append(lines[:i], lines[i+1:]...)
	})
}

// SetNotes replaces the kitchen notes of line i
func (c Cart) SetNotes(i int, notes string) (Cart, error) {
	return c.update(i, func(lines []CartLine) []CartLine {
		lines[i].Notes = notes
		return lines
	})
}

// Subtotal is the sum of every line total, unrounded
func (c Cart) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.lines {
		total = total.Add(l.LineTotal())
	}
	return total
}
