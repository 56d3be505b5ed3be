package pos

import (
	"github.com/shopspring/decimal"

	"restaurant-pos/internal/config"
)

// Rates are the percentage charges applied to a subtotal, as fractions
type Rates struct {
	Tax           decimal.Decimal
	ServiceCharge decimal.Decimal
}

// DefaultRates returns 10% tax and 5% service charge
func DefaultRates() Rates {
	return Rates{
		Tax:           decimal.RequireFromString("0.10"),
		ServiceCharge: decimal.RequireFromString("0.05"),
	}
}

// Policy is the terminal's pricing and approval configuration
type Policy struct {
	Rates                          Rates
	ApprovalThresholdPct           decimal.Decimal
	ManualDiscountRequiresApproval bool
	PINMinLength                   int
	MinSplitParts                  int
	MaxSplitParts                  int
}

// DefaultPolicy mirrors config.Default
func DefaultPolicy() Policy {
	return Policy{
		Rates:                          DefaultRates(),
		ApprovalThresholdPct:           decimal.NewFromInt(10),
		ManualDiscountRequiresApproval: true,
		PINMinLength:                   4,
		MinSplitParts:                  2,
		MaxSplitParts:                  10,
	}
}

// NewPolicy converts the pos section of the configuration
func NewPolicy(cfg config.POSConfig) Policy {
	return Policy{
		Rates: Rates{
			Tax:           decimal.NewFromFloat(cfg.TaxRate),
			ServiceCharge: decimal.NewFromFloat(cfg.ServiceChargeRate),
		},
		ApprovalThresholdPct:           decimal.NewFromFloat(cfg.ApprovalThresholdPct),
		ManualDiscountRequiresApproval: cfg.ManualDiscountRequiresApproval,
		PINMinLength:                   cfg.PINMinLength,
		MinSplitParts:                  cfg.MinSplitParts,
		MaxSplitParts:                  cfg.MaxSplitParts,
	}
}
