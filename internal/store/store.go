// Package store persists POS state. Postgres backs production; the memory
// implementation backs development mode and tests.
package store

import (
	"context"
	"time"

	"restaurant-pos/internal/models"
)

// Store is the persistence surface of the backend service. Lookups return
// models.ErrNotFound (wrapped) when nothing matches.
type Store interface {
	// Atomic runs fn inside one transaction. Calling Atomic on the store
	// handed to fn joins the outer transaction.
	Atomic(ctx context.Context, fn func(tx Store) error) error
	Ping(ctx context.Context) error

	NextOrderSequence(ctx context.Context, day time.Time) (int, error)
	InsertOrder(ctx context.Context, o *models.Order) error
	GetOrder(ctx context.Context, id int64) (*models.Order, error)
	OrderByIdempotencyKey(ctx context.Context, key string) (*models.Order, error)
	ListOrders(ctx context.Context, from, to time.Time, status models.OrderStatus) ([]models.Order, error)
	UpdateOrder(ctx context.Context, o *models.Order) error
	InsertOrderItem(ctx context.Context, item *models.OrderItem) error
	DeleteOrderItems(ctx context.Context, orderID int64) error
	SetItemsStatus(ctx context.Context, orderID int64, status models.ItemStatus) error
	AppendStatus(ctx context.Context, orderID int64, entry models.StatusEntry) error

	ListTables(ctx context.Context) ([]models.Table, error)
	InsertTable(ctx context.Context, t *models.Table) error
	// LockTables returns the tables with the given ids, locked until the
	// surrounding transaction ends
	LockTables(ctx context.Context, ids []int64) ([]models.Table, error)
	// UpdateTableStatus bumps the version. A positive expectedVersion must
	// match the stored version or models.ErrConflict is returned.
	UpdateTableStatus(ctx context.Context, id int64, status models.TableStatus, expectedVersion int64) (*models.Table, error)

	ActiveMerges(ctx context.Context) ([]models.TableMergeGroup, error)
	GetMerge(ctx context.Context, id int64) (*models.TableMergeGroup, error)
	InsertMerge(ctx context.Context, g *models.TableMergeGroup) error
	DissolveMerge(ctx context.Context, id int64, at time.Time) error

	InsertSplitBill(ctx context.Context, b *models.SplitBill) error
	GetSplitBill(ctx context.Context, id int64) (*models.SplitBill, error)
	SplitBillByOrder(ctx context.Context, orderID int64) (*models.SplitBill, error)
	InsertSplitPart(ctx context.Context, billID int64, part models.SplitPart) error
	MarkSplitPartPaid(ctx context.Context, billID int64, partNumber int, method models.PaymentMethod, at time.Time) error
	DeleteSplitBill(ctx context.Context, orderID int64) error

	ListDiscounts(ctx context.Context) ([]models.CatalogDiscount, error)
	InsertDiscount(ctx context.Context, d *models.CatalogDiscount) error
	InsertDiscountApplication(ctx context.Context, a *models.DiscountApplication) error
	DeleteDiscountApplications(ctx context.Context, orderID int64) error

	InsertTip(ctx context.Context, tip *models.Tip) error
	DeleteTips(ctx context.Context, orderID int64) error

	InsertStaff(ctx context.Context, s *models.StaffMember) error
	ListApprovers(ctx context.Context) ([]models.StaffMember, error)
	// GetPINThrottle returns a zero throttle for terminals without failures
	GetPINThrottle(ctx context.Context, terminalID string) (models.PINThrottle, error)
	SavePINThrottle(ctx context.Context, t models.PINThrottle) error

	UpsertZReport(ctx context.Context, r *models.ZReport) error

	// RegisterStation marks a station online. A live station with the same
	// name is a conflict; a stale one is taken over.
	RegisterStation(ctx context.Context, name string) (*models.KitchenStation, error)
	ListStations(ctx context.Context) ([]models.KitchenStation, error)
	SetStationStatus(ctx context.Context, name string, status models.StationStatus) error
	IncrementStationTickets(ctx context.Context, name string) error
}
