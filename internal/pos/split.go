package pos

import (
	"fmt"

	"github.com/shopspring/decimal"

	"restaurant-pos/internal/models"
	"restaurant-pos/internal/money"
)

// SplitPlan describes how the total will be divided.
//
// Percentages is used by by_percentage and holds one share per part.
// Assignment is used by by_item and maps each cart line (by index) to a
// 1-based part number.
type SplitPlan struct {
	Type        models.SplitType  `json:"split_type"`
	Parts       int               `json:"parts"`
	Percentages []decimal.Decimal `json:"percentages,omitempty"`
	Assignment  []int             `json:"assignment,omitempty"`
}

// Validate checks the plan against the cart it will split
func (p SplitPlan) Validate(cart Cart, policy Policy) error {
	if p.Parts < policy.MinSplitParts || p.Parts > policy.MaxSplitParts {
		return models.ValidationError{
			Field:   "split.parts",
			Message: fmt.Sprintf("split must have between %d and %d parts", policy.MinSplitParts, policy.MaxSplitParts),
		}
	}

	switch p.Type {
	case models.SplitEqual:
		return nil
	case models.SplitByPercentage:
		if len(p.Percentages) != p.Parts {
			return models.ValidationError{Field: "split.percentages", Message: "one percentage per part is required"}
		}
		sum := decimal.Zero
		for _, pct := range p.Percentages {
			if !pct.IsPositive() {
				return models.ValidationError{Field: "split.percentages", Message: "every percentage must be greater than 0"}
			}
			sum = sum.Add(pct)
		}
		if !sum.Equal(decimal.NewFromInt(100)) {
			return models.ValidationError{Field: "split.percentages", Message: fmt.Sprintf("percentages sum to %s, not 100", sum)}
		}
		return nil
	case models.SplitByItem:
		if len(p.Assignment) != cart.Len() {
			return models.ValidationError{Field: "split.assignment", Message: "every cart line must be assigned to a part"}
		}
		owned := make([]bool, p.Parts)
		for i, part := range p.Assignment {
			if part < 1 || part > p.Parts {
				return models.ValidationError{Field: fmt.Sprintf("split.assignment[%d]", i), Message: fmt.Sprintf("part %d does not exist", part)}
			}
			owned[part-1] = true
		}
		for i, ok := range owned {
			if !ok {
				return models.ValidationError{Field: "split.assignment", Message: fmt.Sprintf("part %d has no items", i+1)}
			}
		}
		return nil
	default:
		return models.ValidationError{Field: "split.split_type", Message: "invalid split type"}
	}
}

// Split divides total into the plan's parts. The parts are whole cents and
// always sum to total.
func Split(total decimal.Decimal, cart Cart, plan SplitPlan, policy Policy) ([]decimal.Decimal, error) {
	if err := plan.Validate(cart, policy); err != nil {
		return nil, err
	}

	weights := make([]decimal.Decimal, plan.Parts)
	switch plan.Type {
	case models.SplitEqual:
		return money.Even(total, plan.Parts)
	case models.SplitByPercentage:
		copy(weights, plan.Percentages)
	case models.SplitByItem:
		for i := range weights {
			weights[i] = decimal.Zero
		}
		for i, line := range cart.lines {
			part := plan.Assignment[i] - 1
			weights[part] = weights[part].Add(line.LineTotal())
		}
		if money.Sum(weights...).IsZero() {
			return money.Even(total, plan.Parts)
		}
	}
	return money.Allocate(total, weights)
}
