package store

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"restaurant-pos/internal/models"
)

// SeedDemo loads the floor plan and discount catalog that the SQL seed
// migration installs, plus the given staff members. Used in memory mode.
func SeedDemo(ctx context.Context, s Store, staff ...models.StaffMember) error {
	return s.Atomic(ctx, func(tx Store) error {
		seats := []int{2, 2, 4, 4, 6, 8}
		for i, n := range seats {
			t := &models.Table{Name: fmt.Sprintf("T%d", i+1), Seats: n}
			if err := tx.InsertTable(ctx, t); err != nil {
				return fmt.Errorf("failed to seed table: %w", err)
			}
		}

		discounts := []models.CatalogDiscount{
			{Name: "Happy hour 5%", Kind: models.DiscountPercentage, Value: decimal.NewFromInt(5), Active: true},
			{Name: "Loyalty 15%", Kind: models.DiscountPercentage, Value: decimal.NewFromInt(15),
				MaxDiscountAmount: decimal.NewNullDecimal(decimal.NewFromInt(25)), Active: true},
			{Name: "Voucher 3.00", Kind: models.DiscountFixed, Value: decimal.NewFromInt(3), Active: true},
			{Name: "Staff meal", Kind: models.DiscountPercentage, Value: decimal.NewFromInt(50), RequiresApproval: true, Active: true},
		}
		for i := range discounts {
			if err := tx.InsertDiscount(ctx, &discounts[i]); err != nil {
				return fmt.Errorf("failed to seed discount: %w", err)
			}
		}

		for i := range staff {
			if err := tx.InsertStaff(ctx, &staff[i]); err != nil {
				return fmt.Errorf("failed to seed staff: %w", err)
			}
		}
		return nil
	})
}
