package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"restaurant-pos/internal/models"
)

type memData struct {
	nextID       map[string]int64
	orders       map[int64]models.Order
	items        map[int64][]models.OrderItem
	history      map[int64][]models.StatusEntry
	tables       map[int64]models.Table
	merges       map[int64]models.TableMergeGroup
	bills        map[int64]models.SplitBill
	discounts    map[int64]models.CatalogDiscount
	applications map[int64]models.DiscountApplication
	tips         map[int64]models.Tip
	staff        map[int64]models.StaffMember
	throttles    map[string]models.PINThrottle
	reports      map[string]models.ZReport
	stations     map[string]models.KitchenStation
}

func newMemData() *memData {
	return &memData{
		nextID:       map[string]int64{},
		orders:       map[int64]models.Order{},
		items:        map[int64][]models.OrderItem{},
		history:      map[int64][]models.StatusEntry{},
		tables:       map[int64]models.Table{},
		merges:       map[int64]models.TableMergeGroup{},
		bills:        map[int64]models.SplitBill{},
		discounts:    map[int64]models.CatalogDiscount{},
		applications: map[int64]models.DiscountApplication{},
		tips:         map[int64]models.Tip{},
		staff:        map[int64]models.StaffMember{},
		throttles:    map[string]models.PINThrottle{},
		reports:      map[string]models.ZReport{},
		stations:     map[string]models.KitchenStation{},
	}
}

func cloneMap[K comparable, V any](m map[K]V, cp func(V) V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = cp(v)
	}
	return out
}

func same[V any](v V) V { return v }

func cloneItems(items []models.OrderItem) []models.OrderItem {
	out := make([]models.OrderItem, len(items))
	for i, it := range items {
		out[i] = it
		out[i].Modifiers = append([]models.Modifier(nil), it.Modifiers...)
	}
	return out
}

func cloneGroup(g models.TableMergeGroup) models.TableMergeGroup {
	g.MergedTableIDs = append([]int64(nil), g.MergedTableIDs...)
	return g
}

func cloneBill(b models.SplitBill) models.SplitBill {
	b.Parts = append([]models.SplitPart(nil), b.Parts...)
	return b
}

func (d *memData) clone() *memData {
	return &memData{
		nextID:       cloneMap(d.nextID, same[int64]),
		orders:       cloneMap(d.orders, same[models.Order]),
		items:        cloneMap(d.items, cloneItems),
		history:      cloneMap(d.history, func(h []models.StatusEntry) []models.StatusEntry { return append([]models.StatusEntry(nil), h...) }),
		tables:       cloneMap(d.tables, same[models.Table]),
		merges:       cloneMap(d.merges, cloneGroup),
		bills:        cloneMap(d.bills, cloneBill),
		discounts:    cloneMap(d.discounts, same[models.CatalogDiscount]),
		applications: cloneMap(d.applications, same[models.DiscountApplication]),
		tips:         cloneMap(d.tips, same[models.Tip]),
		staff:        cloneMap(d.staff, same[models.StaffMember]),
		throttles:    cloneMap(d.throttles, same[models.PINThrottle]),
		reports:      cloneMap(d.reports, same[models.ZReport]),
		stations:     cloneMap(d.stations, same[models.KitchenStation]),
	}
}

func (d *memData) id(kind string) int64 {
	d.nextID[kind]++
	return d.nextID[kind]
}

// MemoryStore keeps everything in process. Transactions work on a copy of the
// data that replaces the original on success.
type MemoryStore struct {
	mu   *sync.Mutex
	root *MemoryStore
	data *memData
	inTx bool
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	m := &MemoryStore{mu: &sync.Mutex{}, data: newMemData()}
	m.root = m
	return m
}

func (m *MemoryStore) lock() func() {
	if m.inTx {
		return func() {}
	}
	m.mu.Lock()
	return m.mu.Unlock
}

func (m *MemoryStore) Atomic(ctx context.Context, fn func(tx Store) error) error {
	if m.inTx {
		return fn(m)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	tx := &MemoryStore{mu: m.mu, root: m, data: m.data.clone(), inTx: true}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m.data = tx.data
	return nil
}

func (m *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (m *MemoryStore) NextOrderSequence(_ context.Context, day time.Time) (int, error) {
	defer m.lock()()
	prefix := fmt.Sprintf("ORD_%s_", day.UTC().Format("20060102"))
	highest := 0
	for _, o := range m.data.orders {
		if !strings.HasPrefix(o.Number, prefix) {
			continue
		}
		var n int
		if _, err := fmt.Sscanf(strings.TrimPrefix(o.Number, prefix), "%d", &n); err == nil && n > highest {
			highest = n
		}
	}
	return highest + 1, nil
}

func (m *MemoryStore) InsertOrder(_ context.Context, o *models.Order) error {
	defer m.lock()()
	for _, existing := range m.data.orders {
		if existing.Number == o.Number {
			return models.Conflictf("order number %s already exists", o.Number)
		}
		if o.IdempotencyKey != "" && existing.IdempotencyKey == o.IdempotencyKey {
			return models.Conflictf("idempotency key %s already used", o.IdempotencyKey)
		}
	}
	now := time.Now().UTC()
	o.ID = m.data.id("orders")
	o.CreatedAt, o.UpdatedAt = now, now
	header := *o
	header.Items, header.History = nil, nil
	m.data.orders[o.ID] = header
	return nil
}

func (m *MemoryStore) assemble(o models.Order) *models.Order {
	o.Items = cloneItems(m.data.items[o.ID])
	o.History = append([]models.StatusEntry(nil), m.data.history[o.ID]...)
	return &o
}

func (m *MemoryStore) GetOrder(_ context.Context, id int64) (*models.Order, error) {
	defer m.lock()()
	o, ok := m.data.orders[id]
	if !ok {
		return nil, models.NotFoundf("order %d", id)
	}
	return m.assemble(o), nil
}

func (m *MemoryStore) OrderByIdempotencyKey(_ context.Context, key string) (*models.Order, error) {
	defer m.lock()()
	for _, o := range m.data.orders {
		if key != "" && o.IdempotencyKey == key {
			return m.assemble(o), nil
		}
	}
	return nil, models.NotFoundf("order with key %s", key)
}

func (m *MemoryStore) ListOrders(_ context.Context, from, to time.Time, status models.OrderStatus) ([]models.Order, error) {
	defer m.lock()()
	var out []models.Order
	for _, o := range m.data.orders {
		if o.CreatedAt.Before(from) || !o.CreatedAt.Before(to) {
			continue
		}
		if status != "" && o.Status != status {
			continue
		}
		out = append(out, *m.assemble(o))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) UpdateOrder(_ context.Context, o *models.Order) error {
	defer m.lock()()
	existing, ok := m.data.orders[o.ID]
	if !ok {
		return models.NotFoundf("order %d", o.ID)
	}
	existing.Status = o.Status
	existing.PaymentMethod = o.PaymentMethod
	existing.PaymentStatus = o.PaymentStatus
	existing.Totals = o.Totals
	existing.Priority = o.Priority
	existing.TableID = o.TableID
	existing.UpdatedAt = time.Now().UTC()
	m.data.orders[o.ID] = existing
	o.UpdatedAt = existing.UpdatedAt
	return nil
}

func (m *MemoryStore) InsertOrderItem(_ context.Context, item *models.OrderItem) error {
	defer m.lock()()
	if _, ok := m.data.orders[item.OrderID]; !ok {
		return models.NotFoundf("order %d", item.OrderID)
	}
	item.ID = m.data.id("order_items")
	item.CreatedAt = time.Now().UTC()
	if item.Status == "" {
		item.Status = models.ItemQueued
	}
	m.data.items[item.OrderID] = append(m.data.items[item.OrderID], cloneItems([]models.OrderItem{*item})...)
	return nil
}

func (m *MemoryStore) DeleteOrderItems(_ context.Context, orderID int64) error {
	defer m.lock()()
	delete(m.data.items, orderID)
	return nil
}

func (m *MemoryStore) SetItemsStatus(_ context.Context, orderID int64, status models.ItemStatus) error {
	defer m.lock()()
	items := m.data.items[orderID]
	for i := range items {
		items[i].Status = status
	}
	return nil
}

func (m *MemoryStore) AppendStatus(_ context.Context, orderID int64, entry models.StatusEntry) error {
	defer m.lock()()
	if entry.ChangedAt.IsZero() {
		entry.ChangedAt = time.Now().UTC()
	}
	m.data.history[orderID] = append(m.data.history[orderID], entry)
	return nil
}

func (m *MemoryStore) ListTables(_ context.Context) ([]models.Table, error) {
	defer m.lock()()
	out := make([]models.Table, 0, len(m.data.tables))
	for _, t := range m.data.tables {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) InsertTable(_ context.Context, t *models.Table) error {
	defer m.lock()()
	for _, existing := range m.data.tables {
		if existing.Name == t.Name {
			return models.Conflictf("table %s already exists", t.Name)
		}
	}
	t.ID = m.data.id("tables")
	if t.Status == "" {
		t.Status = models.TableFree
	}
	t.Version = 1
	t.UpdatedAt = time.Now().UTC()
	m.data.tables[t.ID] = *t
	return nil
}

// LockTables needs no extra locking here: the whole store is held for the
// duration of a transaction.
func (m *MemoryStore) LockTables(_ context.Context, ids []int64) ([]models.Table, error) {
	defer m.lock()()
	out := make([]models.Table, 0, len(ids))
	for _, id := range ids {
		t, ok := m.data.tables[id]
		if !ok {
			return nil, models.NotFoundf("table %d", id)
		}
		out = append(out, t)
	}
	return out, nil
}

func (m *MemoryStore) UpdateTableStatus(_ context.Context, id int64, status models.TableStatus, expectedVersion int64) (*models.Table, error) {
	defer m.lock()()
	t, ok := m.data.tables[id]
	if !ok {
		return nil, models.NotFoundf("table %d", id)
	}
	if expectedVersion > 0 && t.Version != expectedVersion {
		return nil, models.Conflictf("table %s was changed by another terminal (version %d, expected %d)", t.Name, t.Version, expectedVersion)
	}
	t.Status = status
	t.Version++
	t.UpdatedAt = time.Now().UTC()
	m.data.tables[id] = t
	return &t, nil
}

func (m *MemoryStore) ActiveMerges(_ context.Context) ([]models.TableMergeGroup, error) {
	defer m.lock()()
	var out []models.TableMergeGroup
	for _, g := range m.data.merges {
		if g.Active {
			out = append(out, cloneGroup(g))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) GetMerge(_ context.Context, id int64) (*models.TableMergeGroup, error) {
	defer m.lock()()
	g, ok := m.data.merges[id]
	if !ok {
		return nil, models.NotFoundf("merge group %d", id)
	}
	g = cloneGroup(g)
	return &g, nil
}

func (m *MemoryStore) InsertMerge(_ context.Context, g *models.TableMergeGroup) error {
	defer m.lock()()
	g.ID = m.data.id("table_merges")
	g.CreatedAt = time.Now().UTC()
	g.Active = true
	m.data.merges[g.ID] = cloneGroup(*g)
	return nil
}

func (m *MemoryStore) DissolveMerge(_ context.Context, id int64, at time.Time) error {
	defer m.lock()()
	g, ok := m.data.merges[id]
	if !ok {
		return models.NotFoundf("merge group %d", id)
	}
	g.Active = false
	g.DissolvedAt = &at
	m.data.merges[id] = g
	return nil
}

func (m *MemoryStore) InsertSplitBill(_ context.Context, b *models.SplitBill) error {
	defer m.lock()()
	if _, ok := m.data.orders[b.OrderID]; !ok {
		return models.NotFoundf("order %d", b.OrderID)
	}
	for _, existing := range m.data.bills {
		if existing.OrderID == b.OrderID {
			return models.Conflictf("order %d already has a split bill", b.OrderID)
		}
	}
	b.ID = m.data.id("split_bills")
	b.CreatedAt = time.Now().UTC()
	m.data.bills[b.ID] = cloneBill(*b)
	return nil
}

func (m *MemoryStore) GetSplitBill(_ context.Context, id int64) (*models.SplitBill, error) {
	defer m.lock()()
	b, ok := m.data.bills[id]
	if !ok {
		return nil, models.NotFoundf("split bill %d", id)
	}
	b = cloneBill(b)
	return &b, nil
}

func (m *MemoryStore) SplitBillByOrder(_ context.Context, orderID int64) (*models.SplitBill, error) {
	defer m.lock()()
	for _, b := range m.data.bills {
		if b.OrderID == orderID {
			b = cloneBill(b)
			return &b, nil
		}
	}
	return nil, models.NotFoundf("split bill for order %d", orderID)
}

func (m *MemoryStore) InsertSplitPart(_ context.Context, billID int64, part models.SplitPart) error {
	defer m.lock()()
	b, ok := m.data.bills[billID]
	if !ok {
		return models.NotFoundf("split bill %d", billID)
	}
	for _, p := range b.Parts {
		if p.PartNumber == part.PartNumber {
			return models.Conflictf("part %d already exists", part.PartNumber)
		}
	}
	b.Parts = append(b.Parts, part)
	sort.Slice(b.Parts, func(i, j int) bool { return b.Parts[i].PartNumber < b.Parts[j].PartNumber })
	m.data.bills[billID] = b
	return nil
}

func (m *MemoryStore) MarkSplitPartPaid(_ context.Context, billID int64, partNumber int, method models.PaymentMethod, at time.Time) error {
	defer m.lock()()
	b, ok := m.data.bills[billID]
	if !ok {
		return models.NotFoundf("split bill %d", billID)
	}
	for i := range b.Parts {
		if b.Parts[i].PartNumber != partNumber {
			continue
		}
		if b.Parts[i].Paid {
			return models.Conflictf("part %d is already paid", partNumber)
		}
		b.Parts[i].Paid = true
		b.Parts[i].Method = method
		b.Parts[i].PaidAt = &at
		m.data.bills[billID] = b
		return nil
	}
	return models.NotFoundf("part %d of split bill %d", partNumber, billID)
}

func (m *MemoryStore) DeleteSplitBill(_ context.Context, orderID int64) error {
	defer m.lock()()
	for id, b := range m.data.bills {
		if b.OrderID == orderID {
			delete(m.data.bills, id)
		}
	}
	return nil
}

func (m *MemoryStore) ListDiscounts(_ context.Context) ([]models.CatalogDiscount, error) {
	defer m.lock()()
	var out []models.CatalogDiscount
	for _, d := range m.data.discounts {
		if d.Active {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) InsertDiscount(_ context.Context, d *models.CatalogDiscount) error {
	defer m.lock()()
	d.ID = m.data.id("discounts")
	m.data.discounts[d.ID] = *d
	return nil
}

func (m *MemoryStore) InsertDiscountApplication(_ context.Context, a *models.DiscountApplication) error {
	defer m.lock()()
	if _, ok := m.data.orders[a.OrderID]; !ok {
		return models.NotFoundf("order %d", a.OrderID)
	}
	a.ID = m.data.id("order_discounts")
	a.CreatedAt = time.Now().UTC()
	m.data.applications[a.ID] = *a
	return nil
}

func (m *MemoryStore) DeleteDiscountApplications(_ context.Context, orderID int64) error {
	defer m.lock()()
	for id, a := range m.data.applications {
		if a.OrderID == orderID {
			delete(m.data.applications, id)
		}
	}
	return nil
}

// DiscountApplications lists the discount log of an order. Used by tests.
func (m *MemoryStore) DiscountApplications(orderID int64) []models.DiscountApplication {
	defer m.lock()()
	var out []models.DiscountApplication
	for _, a := range m.data.applications {
		if a.OrderID == orderID {
			out = append(out, a)
		}
	}
	return out
}

func (m *MemoryStore) InsertTip(_ context.Context, tip *models.Tip) error {
	defer m.lock()()
	if _, ok := m.data.orders[tip.OrderID]; !ok {
		return models.NotFoundf("order %d", tip.OrderID)
	}
	tip.ID = m.data.id("order_tips")
	tip.CreatedAt = time.Now().UTC()
	m.data.tips[tip.ID] = *tip
	return nil
}

func (m *MemoryStore) DeleteTips(_ context.Context, orderID int64) error {
	defer m.lock()()
	for id, t := range m.data.tips {
		if t.OrderID == orderID {
			delete(m.data.tips, id)
		}
	}
	return nil
}

// Tips lists the tip log of an order. Used by tests.
func (m *MemoryStore) Tips(orderID int64) []models.Tip {
	defer m.lock()()
	var out []models.Tip
	for _, t := range m.data.tips {
		if t.OrderID == orderID {
			out = append(out, t)
		}
	}
	return out
}

func (m *MemoryStore) InsertStaff(_ context.Context, s *models.StaffMember) error {
	defer m.lock()()
	s.ID = m.data.id("staff")
	m.data.staff[s.ID] = *s
	return nil
}

func (m *MemoryStore) ListApprovers(_ context.Context) ([]models.StaffMember, error) {
	defer m.lock()()
	var out []models.StaffMember
	for _, s := range m.data.staff {
		if s.Active && s.Role.CanApproveDiscounts() {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) GetPINThrottle(_ context.Context, terminalID string) (models.PINThrottle, error) {
	defer m.lock()()
	t, ok := m.data.throttles[terminalID]
	if !ok {
		return models.PINThrottle{TerminalID: terminalID}, nil
	}
	return t, nil
}

func (m *MemoryStore) SavePINThrottle(_ context.Context, t models.PINThrottle) error {
	defer m.lock()()
	m.data.throttles[t.TerminalID] = t
	return nil
}

func (m *MemoryStore) UpsertZReport(_ context.Context, r *models.ZReport) error {
	defer m.lock()()
	if existing, ok := m.data.reports[r.BusinessDate]; ok {
		r.ID = existing.ID
	} else {
		r.ID = m.data.id("z_reports")
	}
	m.data.reports[r.BusinessDate] = *r
	return nil
}

func (m *MemoryStore) RegisterStation(_ context.Context, name string) (*models.KitchenStation, error) {
	defer m.lock()()
	now := time.Now().UTC()
	s, ok := m.data.stations[name]
	if ok && s.Live(now) {
		return nil, models.Conflictf("station %s is already online", name)
	}
	if !ok {
		s = models.KitchenStation{ID: m.data.id("kitchen_stations"), Name: name, CreatedAt: now}
	}
	s.Status = models.StationOnline
	s.LastSeen = now
	m.data.stations[name] = s
	return &s, nil
}

func (m *MemoryStore) ListStations(_ context.Context) ([]models.KitchenStation, error) {
	defer m.lock()()
	out := make([]models.KitchenStation, 0, len(m.data.stations))
	for _, s := range m.data.stations {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *MemoryStore) SetStationStatus(_ context.Context, name string, status models.StationStatus) error {
	defer m.lock()()
	s, ok := m.data.stations[name]
	if !ok {
		return models.NotFoundf("station %s", name)
	}
	s.Status = status
	s.LastSeen = time.Now().UTC()
	m.data.stations[name] = s
	return nil
}

func (m *MemoryStore) IncrementStationTickets(_ context.Context, name string) error {
	defer m.lock()()
	s, ok := m.data.stations[name]
	if !ok {
		return models.NotFoundf("station %s", name)
	}
	s.TicketsHandled++
	s.LastSeen = time.Now().UTC()
	m.data.stations[name] = s
	return nil
}

// Station returns a kitchen station by name. Used by tests.
func (m *MemoryStore) Station(name string) (models.KitchenStation, bool) {
	defer m.lock()()
	s, ok := m.data.stations[name]
	return s, ok
}

var _ Store = (*MemoryStore)(nil)
