package checkout

import (
	"context"
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"restaurant-pos/internal/models"
	domain "restaurant-pos/internal/pos"
)

// Ticket is a scripted checkout, read from YAML by the checkout mode
type Ticket struct {
	Customer   string           `yaml:"customer"`
	OrderType  models.OrderType `yaml:"order_type"`
	Table      string           `yaml:"table"`
	Items      []TicketLine     `yaml:"items"`
	Discount   *TicketDiscount  `yaml:"discount"`
	ManagerPIN string           `yaml:"manager_pin"`
	Tip        *TicketTip       `yaml:"tip"`
	Payment    string           `yaml:"payment"`
	Split      *TicketSplit     `yaml:"split"`
	PayParts   []string         `yaml:"pay_parts"`
}

type TicketLine struct {
	ID        int64            `yaml:"id"`
	Name      string           `yaml:"name"`
	Price     string           `yaml:"price"`
	Quantity  int              `yaml:"quantity"`
	Notes     string           `yaml:"notes"`
	Modifiers []TicketModifier `yaml:"modifiers"`
}

type TicketModifier struct {
	Name  string `yaml:"name"`
	Price string `yaml:"price"`
}

// TicketDiscount names a catalog discount or enters a manual amount
type TicketDiscount struct {
	Catalog string `yaml:"catalog"`
	Manual  string `yaml:"manual"`
	Name    string `yaml:"name"`
}

type TicketTip struct {
	Type  models.TipType `yaml:"type"`
	Value string         `yaml:"value"`
}

type TicketSplit struct {
	Type        models.SplitType `yaml:"type"`
	Parts       int              `yaml:"parts"`
	Percentages []string         `yaml:"percentages"`
	Assignment  []int            `yaml:"assignment"`
}

// LoadTicket reads a ticket file
func LoadTicket(filename string) (*Ticket, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open ticket file: %w", err)
	}
	var t Ticket
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to parse ticket file: %w", err)
	}
	return &t, nil
}

func parseAmount(field, raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, nil
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, models.ValidationError{Field: field, Message: fmt.Sprintf("invalid amount %q", raw)}
	}
	return v, nil
}

// commands translates the ticket into session commands. Table names and
// catalog discounts are resolved against the backend.
func (tk *Ticket) commands(ctx context.Context, term *Terminal) ([]domain.Command, error) {
	orderType := tk.OrderType
	if orderType == "" {
		orderType = models.Takeout
	}
	cmds := []domain.Command{
		domain.SetOrderType{Type: orderType},
		domain.SetCustomer{Name: tk.Customer},
	}

	if tk.Table != "" {
		tables, err := term.api.ListTables(ctx)
		if err != nil {
			return nil, err
		}
		var id *int64
		for i := range tables {
			if tables[i].Name == tk.Table {
				id = &tables[i].ID
				break
			}
		}
		if id == nil {
			return nil, models.NotFoundf("table %s", tk.Table)
		}
		cmds = append(cmds, domain.SetTable{TableID: id})
	}

	for i, line := range tk.Items {
		price, err := parseAmount(fmt.Sprintf("items[%d].price", i), line.Price)
		if err != nil {
			return nil, err
		}
		item := domain.MenuItem{ID: line.ID, Name: line.Name, Price: price, Notes: line.Notes}
		for j, m := range line.Modifiers {
			mp, err := parseAmount(fmt.Sprintf("items[%d].modifiers[%d].price", i, j), m.Price)
			if err != nil {
				return nil, err
			}
			item.Modifiers = append(item.Modifiers, models.Modifier{Name: m.Name, Price: mp})
		}
		qty := line.Quantity
		if qty < 1 {
			qty = 1
		}
		for n := 0; n < qty; n++ {
			cmds = append(cmds, domain.AddItem{Item: item})
		}
	}

	if d := tk.Discount; d != nil {
		switch {
		case d.Catalog != "":
			catalog, err := term.api.ListDiscounts(ctx)
			if err != nil {
				return nil, err
			}
			found := false
			for _, c := range catalog {
				if c.Name == d.Catalog {
					cmds = append(cmds, domain.SelectDiscount{Discount: c})
					found = true
					break
				}
			}
			if !found {
				return nil, models.NotFoundf("discount %q", d.Catalog)
			}
		case d.Manual != "":
			amount, err := parseAmount("discount.manual", d.Manual)
			if err != nil {
				return nil, err
			}
			cmds = append(cmds, domain.SetManualDiscount{Amount: amount, Name: d.Name})
		}
	}

	if tk.Tip != nil {
		value, err := parseAmount("tip.value", tk.Tip.Value)
		if err != nil {
			return nil, err
		}
		cmds = append(cmds, domain.SetTip{Tip: domain.Tip{Type: tk.Tip.Type, Value: value}})
	}

	if s := tk.Split; s != nil {
		plan := &domain.SplitPlan{Type: s.Type, Parts: s.Parts, Assignment: s.Assignment}
		if plan.Type == "" {
			plan.Type = models.SplitEqual
		}
		for i, raw := range s.Percentages {
			pct, err := parseAmount(fmt.Sprintf("split.percentages[%d]", i), raw)
			if err != nil {
				return nil, err
			}
			plan.Percentages = append(plan.Percentages, pct)
		}
		cmds = append(cmds, domain.SetSplit{Plan: plan})
	} else {
		cmds = append(cmds, domain.SetPayment{Method: models.PaymentMethod(tk.Payment)})
	}
	return cmds, nil
}

// Play runs the ticket on a terminal: build the cart, get the discount
// approved, charge, then pay each split part listed in pay_parts.
func Play(ctx context.Context, term *Terminal, tk *Ticket) (*models.CheckoutResult, error) {
	cmds, err := tk.commands(ctx, term)
	if err != nil {
		return nil, err
	}
	for _, cmd := range cmds {
		if err := term.Dispatch(cmd); err != nil {
			return nil, err
		}
		if _, pending := term.Session().Discount.Pending(); pending {
			if err := term.ApproveDiscount(ctx, tk.ManagerPIN); err != nil {
				return nil, err
			}
		}
	}

	result, err := term.Charge(ctx)
	if err != nil {
		return nil, err
	}
	for i, method := range tk.PayParts {
		bill, err := term.PaySplitPart(ctx, i+1, models.PaymentMethod(method))
		if err != nil {
			return result, err
		}
		result.SplitBill = bill
	}
	if len(tk.PayParts) > 0 {
		order, err := term.api.GetOrder(ctx, models.GetOrderInput{OrderID: result.Order.ID})
		if err != nil {
			return result, err
		}
		result.Order = order
	}
	return result, nil
}
