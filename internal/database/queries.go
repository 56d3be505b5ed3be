package database

// Order queries
const (
	orderColumns = `id, number, COALESCE(idempotency_key, ''), type, table_id, customer_name, status,
		COALESCE(payment_method, ''), payment_status, subtotal, tax, service_charge,
		discount_amount, tip_amount, total, priority, created_at, updated_at`

	InsertOrderSQL = `
		INSERT INTO orders (number, idempotency_key, type, table_id, customer_name, status,
			payment_method, payment_status, subtotal, tax, service_charge, discount_amount,
			tip_amount, total, priority)
		VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, NULLIF($7, ''), $8,
			$9::numeric, $10::numeric, $11::numeric, $12::numeric, $13::numeric, $14::numeric, $15)
		RETURNING id, created_at, updated_at`

	GetOrderSQL = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	GetOrderByIdempotencyKeySQL = `SELECT ` + orderColumns + ` FROM orders WHERE idempotency_key = $1`

	ListOrdersSQL = `SELECT ` + orderColumns + `
		FROM orders
		WHERE created_at >= $1 AND created_at < $2 AND ($3::text = '' OR status = $3::text)
		ORDER BY id ASC`

	UpdateOrderSQL = `
		UPDATE orders SET status = $2, payment_method = NULLIF($3, ''), payment_status = $4,
			subtotal = $5::numeric, tax = $6::numeric, service_charge = $7::numeric,
			discount_amount = $8::numeric, tip_amount = $9::numeric, total = $10::numeric,
			priority = $11, table_id = $12, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`

	GetNextOrderNumberSQL = `
		SELECT COALESCE(MAX(CAST(SUBSTRING(number FROM 'ORD_[0-9]{8}_([0-9]+)') AS INTEGER)), 0) + 1
		FROM orders
		WHERE number LIKE $1`

	InsertOrderItemSQL = `
		INSERT INTO order_items (order_id, menu_item_id, name, quantity, unit_price, modifiers, notes, status)
		VALUES ($1, $2, $3, $4, $5::numeric, $6::jsonb, $7, $8)
		RETURNING id, created_at`

	GetOrderItemsSQL = `
		SELECT id, order_id, menu_item_id, name, quantity, unit_price, modifiers, notes, status, created_at
		FROM order_items WHERE order_id = $1 ORDER BY id ASC`

	DeleteOrderItemsSQL = `DELETE FROM order_items WHERE order_id = $1`

	SetItemsStatusSQL = `UPDATE order_items SET status = $2 WHERE order_id = $1`

	InsertOrderStatusLogSQL = `
		INSERT INTO order_status_log (order_id, status, changed_by, changed_at, notes)
		VALUES ($1, $2, $3, $4, $5)`

	GetOrderStatusHistorySQL = `
		SELECT status, changed_by, changed_at, notes
		FROM order_status_log
		WHERE order_id = $1
		ORDER BY changed_at ASC, id ASC`
)

// Table queries
const (
	tableColumns = `id, name, seats, status, version, updated_at`

	ListTablesSQL = `SELECT ` + tableColumns + ` FROM restaurant_tables ORDER BY id ASC`

	InsertTableSQL = `
		INSERT INTO restaurant_tables (name, seats, status)
		VALUES ($1, $2, $3)
		RETURNING id, version, updated_at`

	LockTablesSQL = `SELECT ` + tableColumns + `
		FROM restaurant_tables WHERE id = ANY($1) ORDER BY id ASC FOR UPDATE`

	UpdateTableStatusSQL = `
		UPDATE restaurant_tables SET status = $2, version = version + 1, updated_at = NOW()
		WHERE id = $1 AND ($3::bigint = 0 OR version = $3::bigint)
		RETURNING ` + tableColumns

	GetTableVersionSQL = `SELECT name, version FROM restaurant_tables WHERE id = $1`
)

// Merge queries
const (
	mergeColumns = `id, primary_table_id, merged_table_ids, active, created_at, dissolved_at`

	ListActiveMergesSQL = `SELECT ` + mergeColumns + ` FROM table_merges WHERE active ORDER BY id ASC`

	GetMergeSQL = `SELECT ` + mergeColumns + ` FROM table_merges WHERE id = $1`

	InsertMergeSQL = `
		INSERT INTO table_merges (primary_table_id, merged_table_ids)
		VALUES ($1, $2)
		RETURNING id, active, created_at`

	DissolveMergeSQL = `UPDATE table_merges SET active = FALSE, dissolved_at = $2 WHERE id = $1`
)

// Split bill queries
const (
	InsertSplitBillSQL = `
		INSERT INTO split_bills (order_id, split_type)
		VALUES ($1, $2)
		ON CONFLICT (order_id) DO NOTHING
		RETURNING id, created_at`

	GetSplitBillSQL = `SELECT id, order_id, split_type, created_at FROM split_bills WHERE id = $1`

	GetSplitBillByOrderSQL = `SELECT id, order_id, split_type, created_at FROM split_bills WHERE order_id = $1`

	GetSplitPartsSQL = `
		SELECT part_number, amount, method, paid, paid_at
		FROM split_bill_parts WHERE split_bill_id = $1 ORDER BY part_number ASC`

	InsertSplitPartSQL = `
		INSERT INTO split_bill_parts (split_bill_id, part_number, amount, method, paid, paid_at)
		VALUES ($1, $2, $3::numeric, $4, $5, $6)
		ON CONFLICT (split_bill_id, part_number) DO NOTHING`

	MarkSplitPartPaidSQL = `
		UPDATE split_bill_parts SET paid = TRUE, method = $3, paid_at = $4
		WHERE split_bill_id = $1 AND part_number = $2 AND NOT paid`

	GetSplitPartPaidSQL = `SELECT paid FROM split_bill_parts WHERE split_bill_id = $1 AND part_number = $2`

	DeleteSplitBillSQL = `DELETE FROM split_bills WHERE order_id = $1`
)

// Discount and tip queries
const (
	ListDiscountsSQL = `
		SELECT id, name, kind, value, max_discount_amount, requires_approval, active
		FROM discounts WHERE active ORDER BY id ASC`

	InsertDiscountSQL = `
		INSERT INTO discounts (name, kind, value, max_discount_amount, requires_approval, active)
		VALUES ($1, $2, $3::numeric, $4::numeric, $5, $6)
		RETURNING id`

	InsertDiscountApplicationSQL = `
		INSERT INTO order_discounts (order_id, discount_id, name, kind, value, amount, approved_by)
		VALUES ($1, $2, $3, $4, $5::numeric, $6::numeric, $7)
		RETURNING id, created_at`

	DeleteDiscountApplicationsSQL = `DELETE FROM order_discounts WHERE order_id = $1`

	InsertTipSQL = `
		INSERT INTO order_tips (order_id, tip_type, value, amount)
		VALUES ($1, $2, $3::numeric, $4::numeric)
		RETURNING id, created_at`

	DeleteTipsSQL = `DELETE FROM order_tips WHERE order_id = $1`
)

// Staff queries
const (
	InsertStaffSQL = `
		INSERT INTO staff (name, role, pin_hash, active)
		VALUES ($1, $2, $3, $4)
		RETURNING id`

	ListApproversSQL = `
		SELECT id, name, role, pin_hash, active
		FROM staff WHERE active AND role IN ('manager', 'admin') ORDER BY id ASC`

	GetPINThrottleSQL = `SELECT fail_count, cooldown_until FROM pin_throttle WHERE terminal_id = $1`

	UpsertPINThrottleSQL = `
		INSERT INTO pin_throttle (terminal_id, fail_count, cooldown_until)
		VALUES ($1, $2, $3)
		ON CONFLICT (terminal_id) DO UPDATE SET
			fail_count = EXCLUDED.fail_count,
			cooldown_until = EXCLUDED.cooldown_until`
)

// Report queries
const (
	UpsertZReportSQL = `
		INSERT INTO z_reports (business_date, orders_count, cancelled_count, subtotal, tax,
			service_charge, discounts, tips, total, by_payment_method, generated_at)
		VALUES ($1::date, $2, $3, $4::numeric, $5::numeric, $6::numeric, $7::numeric,
			$8::numeric, $9::numeric, $10::jsonb, $11)
		ON CONFLICT (business_date) DO UPDATE SET
			orders_count = EXCLUDED.orders_count,
			cancelled_count = EXCLUDED.cancelled_count,
			subtotal = EXCLUDED.subtotal,
			tax = EXCLUDED.tax,
			service_charge = EXCLUDED.service_charge,
			discounts = EXCLUDED.discounts,
			tips = EXCLUDED.tips,
			total = EXCLUDED.total,
			by_payment_method = EXCLUDED.by_payment_method,
			generated_at = EXCLUDED.generated_at
		RETURNING id`
)

// Kitchen station queries
const (
	InsertStationSQL = `
		INSERT INTO kitchen_stations (name, status)
		VALUES ($1, 'online')
		ON CONFLICT (name) DO UPDATE SET
			status = 'online',
			last_seen = NOW()
		WHERE kitchen_stations.status = 'offline'
			OR kitchen_stations.last_seen < NOW() - make_interval(secs => $2)
		RETURNING id, name, status, last_seen, tickets_handled, created_at`

	ListStationsSQL = `
		SELECT id, name, status, last_seen, tickets_handled, created_at
		FROM kitchen_stations ORDER BY name`

	UpdateStationStatusSQL = `
		UPDATE kitchen_stations SET status = $1, last_seen = NOW()
		WHERE name = $2`

	UpdateStationHeartbeatSQL = `
		UPDATE kitchen_stations SET last_seen = NOW(), tickets_handled = tickets_handled + $1
		WHERE name = $2`
)
