package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"restaurant-pos/internal/database"
	"restaurant-pos/internal/models"
)

// querier is satisfied by both the pool and a transaction
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements Store on a pgx pool
type PostgresStore struct {
	pool *pgxpool.Pool
	q    querier
	inTx bool
}

// NewPostgresStore wraps an open connection pool
func NewPostgresStore(db *database.DB) *PostgresStore {
	return &PostgresStore{pool: db.Pool, q: db.Pool}
}

func (s *PostgresStore) Atomic(ctx context.Context, fn func(tx Store) error) error {
	if s.inTx {
		return fn(s)
	}
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(&PostgresStore{pool: s.pool, q: tx, inTx: true})
	})
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// toDecimal converts a scanned NUMERIC; NULL and NaN read as zero
func toDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid || n.NaN {
		return decimal.Zero
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return decimal.Zero
	}
	str, ok := val.(string)
	if !ok {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(str)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func toNullDecimal(n pgtype.Numeric) decimal.NullDecimal {
	if !n.Valid {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(toDecimal(n))
}

func nullDecimalArg(d decimal.NullDecimal) any {
	if !d.Valid {
		return nil
	}
	return d.Decimal.String()
}

func notFound(err error, format string, args ...interface{}) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return models.NotFoundf(format, args...)
	}
	return fmt.Errorf("failed to load %s: %w", fmt.Sprintf(format, args...), err)
}

// uniqueViolation maps a Postgres unique_violation to ErrConflict
func uniqueViolation(err error, format string, args ...interface{}) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return models.Conflictf(format, args...)
	}
	return err
}

func (s *PostgresStore) NextOrderSequence(ctx context.Context, day time.Time) (int, error) {
	pattern := fmt.Sprintf("ORD_%s_%%", day.UTC().Format("20060102"))
	var next int
	if err := s.q.QueryRow(ctx, database.GetNextOrderNumberSQL, pattern).Scan(&next); err != nil {
		return 0, fmt.Errorf("failed to get next order number: %w", err)
	}
	return next, nil
}

func (s *PostgresStore) InsertOrder(ctx context.Context, o *models.Order) error {
	t := o.Totals
	err := s.q.QueryRow(ctx, database.InsertOrderSQL,
		o.Number, o.IdempotencyKey, string(o.Type), o.TableID, o.CustomerName, string(o.Status),
		string(o.PaymentMethod), string(o.PaymentStatus),
		t.Subtotal.String(), t.Tax.String(), t.ServiceCharge.String(),
		t.DiscountAmount.String(), t.TipAmount.String(), t.Total.String(), o.Priority,
	).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return uniqueViolation(err, "order %s already exists", o.Number)
	}
	return nil
}

func scanOrder(row pgx.Row) (*models.Order, error) {
	var (
		o                                        models.Order
		orderType, status, method, paymentStatus string
		subtotal, tax, service, discount, tip    pgtype.Numeric
		total                                    pgtype.Numeric
	)
	err := row.Scan(&o.ID, &o.Number, &o.IdempotencyKey, &orderType, &o.TableID, &o.CustomerName,
		&status, &method, &paymentStatus, &subtotal, &tax, &service, &discount, &tip, &total,
		&o.Priority, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	o.Type = models.OrderType(orderType)
	o.Status = models.OrderStatus(status)
	o.PaymentMethod = models.PaymentMethod(method)
	o.PaymentStatus = models.PaymentStatus(paymentStatus)
	o.Totals = models.OrderTotals{
		Subtotal:       toDecimal(subtotal),
		Tax:            toDecimal(tax),
		ServiceCharge:  toDecimal(service),
		DiscountAmount: toDecimal(discount),
		TipAmount:      toDecimal(tip),
		Total:          toDecimal(total),
	}
	return &o, nil
}

// loadDetails fills the items and status history of an order
func (s *PostgresStore) loadDetails(ctx context.Context, o *models.Order) error {
	rows, err := s.q.Query(ctx, database.GetOrderItemsSQL, o.ID)
	if err != nil {
		return fmt.Errorf("failed to load order items: %w", err)
	}
	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.OrderItem, error) {
		var (
			it        models.OrderItem
			price     pgtype.Numeric
			modifiers []byte
			status    string
		)
		if err := row.Scan(&it.ID, &it.OrderID, &it.MenuItemID, &it.Name, &it.Quantity,
			&price, &modifiers, &it.Notes, &status, &it.CreatedAt); err != nil {
			return it, err
		}
		it.UnitPrice = toDecimal(price)
		it.Status = models.ItemStatus(status)
		if len(modifiers) > 0 {
			if err := json.Unmarshal(modifiers, &it.Modifiers); err != nil {
				return it, fmt.Errorf("failed to decode modifiers: %w", err)
			}
		}
		return it, nil
	})
	if err != nil {
		return fmt.Errorf("failed to scan order items: %w", err)
	}
	o.Items = items

	rows, err = s.q.Query(ctx, database.GetOrderStatusHistorySQL, o.ID)
	if err != nil {
		return fmt.Errorf("failed to load status history: %w", err)
	}
	history, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.StatusEntry, error) {
		var e models.StatusEntry
		err := row.Scan(&e.Status, &e.ChangedBy, &e.ChangedAt, &e.Notes)
		return e, err
	})
	if err != nil {
		return fmt.Errorf("failed to scan status history: %w", err)
	}
	o.History = history
	return nil
}

func (s *PostgresStore) GetOrder(ctx context.Context, id int64) (*models.Order, error) {
	o, err := scanOrder(s.q.QueryRow(ctx, database.GetOrderSQL, id))
	if err != nil {
		return nil, notFound(err, "order %d", id)
	}
	if err := s.loadDetails(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

func (s *PostgresStore) OrderByIdempotencyKey(ctx context.Context, key string) (*models.Order, error) {
	o, err := scanOrder(s.q.QueryRow(ctx, database.GetOrderByIdempotencyKeySQL, key))
	if err != nil {
		return nil, notFound(err, "order with key %s", key)
	}
	if err := s.loadDetails(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

func (s *PostgresStore) ListOrders(ctx context.Context, from, to time.Time, status models.OrderStatus) ([]models.Order, error) {
	rows, err := s.q.Query(ctx, database.ListOrdersSQL, from, to, string(status))
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	orders, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Order, error) {
		o, err := scanOrder(row)
		if err != nil {
			return models.Order{}, err
		}
		return *o, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan orders: %w", err)
	}
	for i := range orders {
		if err := s.loadDetails(ctx, &orders[i]); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

func (s *PostgresStore) UpdateOrder(ctx context.Context, o *models.Order) error {
	t := o.Totals
	err := s.q.QueryRow(ctx, database.UpdateOrderSQL,
		o.ID, string(o.Status), string(o.PaymentMethod), string(o.PaymentStatus),
		t.Subtotal.String(), t.Tax.String(), t.ServiceCharge.String(),
		t.DiscountAmount.String(), t.TipAmount.String(), t.Total.String(),
		o.Priority, o.TableID,
	).Scan(&o.UpdatedAt)
	if err != nil {
		return notFound(err, "order %d", o.ID)
	}
	return nil
}

func (s *PostgresStore) InsertOrderItem(ctx context.Context, item *models.OrderItem) error {
	modifiers := item.Modifiers
	if modifiers == nil {
		modifiers = []models.Modifier{}
	}
	raw, err := json.Marshal(modifiers)
	if err != nil {
		return fmt.Errorf("failed to encode modifiers: %w", err)
	}
	if item.Status == "" {
		item.Status = models.ItemQueued
	}
	err = s.q.QueryRow(ctx, database.InsertOrderItemSQL,
		item.OrderID, item.MenuItemID, item.Name, item.Quantity, item.UnitPrice.String(),
		string(raw), item.Notes, string(item.Status),
	).Scan(&item.ID, &item.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return models.NotFoundf("order %d", item.OrderID)
		}
		return fmt.Errorf("failed to insert order item: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteOrderItems(ctx context.Context, orderID int64) error {
	_, err := s.q.Exec(ctx, database.DeleteOrderItemsSQL, orderID)
	return err
}

func (s *PostgresStore) SetItemsStatus(ctx context.Context, orderID int64, status models.ItemStatus) error {
	_, err := s.q.Exec(ctx, database.SetItemsStatusSQL, orderID, string(status))
	return err
}

func (s *PostgresStore) AppendStatus(ctx context.Context, orderID int64, entry models.StatusEntry) error {
	if entry.ChangedAt.IsZero() {
		entry.ChangedAt = time.Now().UTC()
	}
	_, err := s.q.Exec(ctx, database.InsertOrderStatusLogSQL,
		orderID, entry.Status, entry.ChangedBy, entry.ChangedAt, entry.Notes)
	return err
}

func scanTable(row pgx.CollectableRow) (models.Table, error) {
	var (
		t      models.Table
		status string
	)
	err := row.Scan(&t.ID, &t.Name, &t.Seats, &status, &t.Version, &t.UpdatedAt)
	t.Status = models.TableStatus(status)
	return t, err
}

func (s *PostgresStore) ListTables(ctx context.Context) ([]models.Table, error) {
	rows, err := s.q.Query(ctx, database.ListTablesSQL)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	return pgx.CollectRows(rows, scanTable)
}

func (s *PostgresStore) InsertTable(ctx context.Context, t *models.Table) error {
	if t.Status == "" {
		t.Status = models.TableFree
	}
	err := s.q.QueryRow(ctx, database.InsertTableSQL, t.Name, t.Seats, string(t.Status)).
		Scan(&t.ID, &t.Version, &t.UpdatedAt)
	if err != nil {
		return uniqueViolation(err, "table %s already exists", t.Name)
	}
	return nil
}

func (s *PostgresStore) LockTables(ctx context.Context, ids []int64) ([]models.Table, error) {
	rows, err := s.q.Query(ctx, database.LockTablesSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to lock tables: %w", err)
	}
	locked, err := pgx.CollectRows(rows, scanTable)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]models.Table, len(locked))
	for _, t := range locked {
		byID[t.ID] = t
	}
	out := make([]models.Table, 0, len(ids))
	for _, id := range ids {
		t, ok := byID[id]
		if !ok {
			return nil, models.NotFoundf("table %d", id)
		}
		out = append(out, t)
	}
	return out, nil
}

func (s *PostgresStore) UpdateTableStatus(ctx context.Context, id int64, status models.TableStatus, expectedVersion int64) (*models.Table, error) {
	rows, err := s.q.Query(ctx, database.UpdateTableStatusSQL, id, string(status), expectedVersion)
	if err != nil {
		return nil, fmt.Errorf("failed to update table: %w", err)
	}
	t, err := pgx.CollectOneRow(rows, scanTable)
	if err == nil {
		return &t, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to update table: %w", err)
	}

	var (
		name    string
		version int64
	)
	if err := s.q.QueryRow(ctx, database.GetTableVersionSQL, id).Scan(&name, &version); err != nil {
		return nil, notFound(err, "table %d", id)
	}
	return nil, models.Conflictf("table %s was changed by another terminal (version %d, expected %d)", name, version, expectedVersion)
}

func scanMerge(row pgx.CollectableRow) (models.TableMergeGroup, error) {
	var g models.TableMergeGroup
	err := row.Scan(&g.ID, &g.PrimaryTableID, &g.MergedTableIDs, &g.Active, &g.CreatedAt, &g.DissolvedAt)
	return g, err
}

func (s *PostgresStore) ActiveMerges(ctx context.Context) ([]models.TableMergeGroup, error) {
	rows, err := s.q.Query(ctx, database.ListActiveMergesSQL)
	if err != nil {
		return nil, fmt.Errorf("failed to list merges: %w", err)
	}
	return pgx.CollectRows(rows, scanMerge)
}

func (s *PostgresStore) GetMerge(ctx context.Context, id int64) (*models.TableMergeGroup, error) {
	rows, err := s.q.Query(ctx, database.GetMergeSQL, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load merge group: %w", err)
	}
	g, err := pgx.CollectOneRow(rows, scanMerge)
	if err != nil {
		return nil, notFound(err, "merge group %d", id)
	}
	return &g, nil
}

func (s *PostgresStore) InsertMerge(ctx context.Context, g *models.TableMergeGroup) error {
	return s.q.QueryRow(ctx, database.InsertMergeSQL, g.PrimaryTableID, g.MergedTableIDs).
		Scan(&g.ID, &g.Active, &g.CreatedAt)
}

func (s *PostgresStore) DissolveMerge(ctx context.Context, id int64, at time.Time) error {
	tag, err := s.q.Exec(ctx, database.DissolveMergeSQL, id, at)
	if err != nil {
		return fmt.Errorf("failed to dissolve merge: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.NotFoundf("merge group %d", id)
	}
	return nil
}

func (s *PostgresStore) InsertSplitBill(ctx context.Context, b *models.SplitBill) error {
	err := s.q.QueryRow(ctx, database.InsertSplitBillSQL, b.OrderID, string(b.Type)).Scan(&b.ID, &b.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Conflictf("order %d already has a split bill", b.OrderID)
	}
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return models.NotFoundf("order %d", b.OrderID)
		}
		return fmt.Errorf("failed to insert split bill: %w", err)
	}
	return nil
}

func (s *PostgresStore) loadSplitBill(ctx context.Context, sql string, arg int64, what string) (*models.SplitBill, error) {
	var (
		b         models.SplitBill
		splitType string
	)
	if err := s.q.QueryRow(ctx, sql, arg).Scan(&b.ID, &b.OrderID, &splitType, &b.CreatedAt); err != nil {
		return nil, notFound(err, what, arg)
	}
	b.Type = models.SplitType(splitType)

	rows, err := s.q.Query(ctx, database.GetSplitPartsSQL, b.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load split parts: %w", err)
	}
	b.Parts, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.SplitPart, error) {
		var (
			p      models.SplitPart
			amount pgtype.Numeric
			method string
		)
		err := row.Scan(&p.PartNumber, &amount, &method, &p.Paid, &p.PaidAt)
		p.Amount = toDecimal(amount)
		p.Method = models.PaymentMethod(method)
		return p, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan split parts: %w", err)
	}
	return &b, nil
}

func (s *PostgresStore) GetSplitBill(ctx context.Context, id int64) (*models.SplitBill, error) {
	return s.loadSplitBill(ctx, database.GetSplitBillSQL, id, "split bill %d")
}

func (s *PostgresStore) SplitBillByOrder(ctx context.Context, orderID int64) (*models.SplitBill, error) {
	return s.loadSplitBill(ctx, database.GetSplitBillByOrderSQL, orderID, "split bill for order %d")
}

func (s *PostgresStore) InsertSplitPart(ctx context.Context, billID int64, part models.SplitPart) error {
	tag, err := s.q.Exec(ctx, database.InsertSplitPartSQL,
		billID, part.PartNumber, part.Amount.String(), string(part.Method), part.Paid, part.PaidAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return models.NotFoundf("split bill %d", billID)
		}
		return fmt.Errorf("failed to insert split part: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.Conflictf("part %d already exists", part.PartNumber)
	}
	return nil
}

func (s *PostgresStore) MarkSplitPartPaid(ctx context.Context, billID int64, partNumber int, method models.PaymentMethod, at time.Time) error {
	tag, err := s.q.Exec(ctx, database.MarkSplitPartPaidSQL, billID, partNumber, string(method), at)
	if err != nil {
		return fmt.Errorf("failed to mark part paid: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}
	var paid bool
	if err := s.q.QueryRow(ctx, database.GetSplitPartPaidSQL, billID, partNumber).Scan(&paid); err != nil {
		return notFound(err, "part %d of split bill %d", partNumber, billID)
	}
	return models.Conflictf("part %d is already paid", partNumber)
}

func (s *PostgresStore) DeleteSplitBill(ctx context.Context, orderID int64) error {
	_, err := s.q.Exec(ctx, database.DeleteSplitBillSQL, orderID)
	return err
}

func (s *PostgresStore) ListDiscounts(ctx context.Context) ([]models.CatalogDiscount, error) {
	rows, err := s.q.Query(ctx, database.ListDiscountsSQL)
	if err != nil {
		return nil, fmt.Errorf("failed to list discounts: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.CatalogDiscount, error) {
		var (
			d                  models.CatalogDiscount
			kind               string
			value, maxDiscount pgtype.Numeric
		)
		err := row.Scan(&d.ID, &d.Name, &kind, &value, &maxDiscount, &d.RequiresApproval, &d.Active)
		d.Kind = models.DiscountKind(kind)
		d.Value = toDecimal(value)
		d.MaxDiscountAmount = toNullDecimal(maxDiscount)
		return d, err
	})
}

func (s *PostgresStore) InsertDiscount(ctx context.Context, d *models.CatalogDiscount) error {
	return s.q.QueryRow(ctx, database.InsertDiscountSQL,
		d.Name, string(d.Kind), d.Value.String(), nullDecimalArg(d.MaxDiscountAmount), d.RequiresApproval, d.Active,
	).Scan(&d.ID)
}

func (s *PostgresStore) InsertDiscountApplication(ctx context.Context, a *models.DiscountApplication) error {
	err := s.q.QueryRow(ctx, database.InsertDiscountApplicationSQL,
		a.OrderID, a.DiscountID, a.Name, string(a.Kind), a.Value.String(), a.Amount.String(), a.ApprovedBy,
	).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return models.NotFoundf("order %d or discount", a.OrderID)
		}
		return fmt.Errorf("failed to log discount: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteDiscountApplications(ctx context.Context, orderID int64) error {
	_, err := s.q.Exec(ctx, database.DeleteDiscountApplicationsSQL, orderID)
	return err
}

func (s *PostgresStore) InsertTip(ctx context.Context, tip *models.Tip) error {
	err := s.q.QueryRow(ctx, database.InsertTipSQL,
		tip.OrderID, string(tip.Type), tip.Value.String(), tip.Amount.String(),
	).Scan(&tip.ID, &tip.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return models.NotFoundf("order %d", tip.OrderID)
		}
		return fmt.Errorf("failed to log tip: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteTips(ctx context.Context, orderID int64) error {
	_, err := s.q.Exec(ctx, database.DeleteTipsSQL, orderID)
	return err
}

func (s *PostgresStore) InsertStaff(ctx context.Context, m *models.StaffMember) error {
	return s.q.QueryRow(ctx, database.InsertStaffSQL, m.Name, string(m.Role), m.PINHash, m.Active).Scan(&m.ID)
}

func (s *PostgresStore) ListApprovers(ctx context.Context) ([]models.StaffMember, error) {
	rows, err := s.q.Query(ctx, database.ListApproversSQL)
	if err != nil {
		return nil, fmt.Errorf("failed to list approvers: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.StaffMember, error) {
		var (
			m    models.StaffMember
			role string
		)
		err := row.Scan(&m.ID, &m.Name, &role, &m.PINHash, &m.Active)
		m.Role = models.StaffRole(role)
		return m, err
	})
}

func (s *PostgresStore) GetPINThrottle(ctx context.Context, terminalID string) (models.PINThrottle, error) {
	t := models.PINThrottle{TerminalID: terminalID}
	err := s.q.QueryRow(ctx, database.GetPINThrottleSQL, terminalID).Scan(&t.FailCount, &t.CooldownUntil)
	if errors.Is(err, pgx.ErrNoRows) {
		return t, nil
	}
	if err != nil {
		return t, fmt.Errorf("failed to load pin throttle: %w", err)
	}
	return t, nil
}

func (s *PostgresStore) SavePINThrottle(ctx context.Context, t models.PINThrottle) error {
	_, err := s.q.Exec(ctx, database.UpsertPINThrottleSQL, t.TerminalID, t.FailCount, t.CooldownUntil)
	return err
}

func (s *PostgresStore) UpsertZReport(ctx context.Context, r *models.ZReport) error {
	byMethod := make(map[string]string, len(r.ByPaymentMethod))
	for method, amount := range r.ByPaymentMethod {
		byMethod[string(method)] = amount.StringFixed(2)
	}
	raw, err := json.Marshal(byMethod)
	if err != nil {
		return fmt.Errorf("failed to encode payment breakdown: %w", err)
	}
	return s.q.QueryRow(ctx, database.UpsertZReportSQL,
		r.BusinessDate, r.OrdersCount, r.CancelledCount,
		r.Subtotal.String(), r.Tax.String(), r.ServiceCharge.String(),
		r.Discounts.String(), r.Tips.String(), r.Total.String(),
		string(raw), r.GeneratedAt,
	).Scan(&r.ID)
}

func (s *PostgresStore) RegisterStation(ctx context.Context, name string) (*models.KitchenStation, error) {
	var (
		st     models.KitchenStation
		status string
	)
	err := s.q.QueryRow(ctx, database.InsertStationSQL, name, models.StationStaleAfter.Seconds()).
		Scan(&st.ID, &st.Name, &status, &st.LastSeen, &st.TicketsHandled, &st.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.Conflictf("station %s is already online", name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to register station: %w", err)
	}
	st.Status = models.StationStatus(status)
	return &st, nil
}

func (s *PostgresStore) ListStations(ctx context.Context) ([]models.KitchenStation, error) {
	rows, err := s.q.Query(ctx, database.ListStationsSQL)
	if err != nil {
		return nil, fmt.Errorf("failed to list stations: %w", err)
	}
	defer rows.Close()

	var out []models.KitchenStation
	for rows.Next() {
		var (
			st     models.KitchenStation
			status string
		)
		if err := rows.Scan(&st.ID, &st.Name, &status, &st.LastSeen, &st.TicketsHandled, &st.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan station: %w", err)
		}
		st.Status = models.StationStatus(status)
		out = append(out, st)
	}
	return out, rows.Err()
}

func (s *PostgresStore) SetStationStatus(ctx context.Context, name string, status models.StationStatus) error {
	tag, err := s.q.Exec(ctx, database.UpdateStationStatusSQL, string(status), name)
	if err != nil {
		return fmt.Errorf("failed to update station: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.NotFoundf("station %s", name)
	}
	return nil
}

func (s *PostgresStore) IncrementStationTickets(ctx context.Context, name string) error {
	_, err := s.q.Exec(ctx, database.UpdateStationHeartbeatSQL, 1, name)
	return err
}

var _ Store = (*PostgresStore)(nil)
