// 文件路径: internal/repository/sqlite/order.go
// 模块说明: 订单、订单明细与状态历史。列表查询附带下单用户姓名与邮箱。
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/creamcroissant/vibemall/internal/repository"
)

type orderRepo struct {
	db dbtx
}

var orderColumns = []string{
	"order_number", "user_id", "subtotal", "tax", "shipping_cost", "discount", "points_redeemed", "total_amount",
	"order_status", "payment_status", "payment_method", "shipping_address", "billing_address", "customer_notes", "admin_notes",
	"tracking_number", "courier_name", "invoice_number", "gateway_order_id", "payment_id", "payment_signature",
	"is_resell", "resell_source_id", "resell_from_name", "resell_from_phone",
	"approval_status", "approval_notes", "approved_by", "approved_at", "is_suspicious", "suspicious_reason", "risk_score",
	"order_date", "delivery_date", "created_at", "updated_at",
}

func orderSelect() sq.SelectBuilder {
	cols := make([]string, 0, len(orderColumns)+3)
	cols = append(cols, "o.id")
	for _, c := range orderColumns {
		cols = append(cols, "o."+c)
	}
	cols = append(cols, "u.first_name", "u.last_name", "u.username", "u.email")
	return builder.Select(cols...).From("orders o").Join("users u ON u.id = o.user_id")
}

func orderValues(o *repository.Order) []any {
	return []any{
		o.OrderNumber, o.UserID, o.Subtotal.String(), o.Tax.String(), o.ShippingCost.String(), o.Discount.String(), o.PointsRedeemed,
		o.TotalAmount.String(), o.OrderStatus, o.PaymentStatus, o.PaymentMethod, o.ShippingAddress, o.BillingAddress,
		o.CustomerNotes, o.AdminNotes, o.TrackingNumber, o.CourierName, nullableString(o.InvoiceNumber), nullableString(o.GatewayOrderID),
		o.PaymentID, o.PaymentSignature, boolToInt(o.IsResell), nullableInt(o.ResellSourceID), o.ResellFromName, o.ResellFromPhone,
		o.ApprovalStatus, o.ApprovalNotes, nullableInt(o.ApprovedBy), nullableInt(o.ApprovedAt), boolToInt(o.IsSuspicious),
		o.SuspiciousReason, o.RiskScore, o.OrderDate, nullableInt(o.DeliveryDate), o.CreatedAt, o.UpdatedAt,
	}
}

func (r *orderRepo) Create(ctx context.Context, o *repository.Order) (*repository.Order, error) {
	query, args, err := builder.Insert("orders").Columns(orderColumns...).Values(orderValues(o)...).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build order insert: %w", err)
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, repository.ErrConflict
		}
		return nil, fmt.Errorf("insert order: %w", err)
	}
	o.ID, err = res.LastInsertId()
	return o, err
}

func (r *orderRepo) AddItems(ctx context.Context, orderID int64, items []repository.OrderItem) ([]repository.OrderItem, error) {
	const stmt = `INSERT INTO order_items(order_id, product_id, product_name, product_price, product_image, quantity, size, color, subtotal)
                  VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)`
	out := make([]repository.OrderItem, 0, len(items))
	for _, item := range items {
		res, err := r.db.ExecContext(ctx, stmt, orderID, nullableInt(item.ProductID), item.ProductName, item.ProductPrice.String(),
			item.ProductImage, item.Quantity, item.Size, item.Color, item.Subtotal.String())
		if err != nil {
			return nil, fmt.Errorf("insert order item: %w", err)
		}
		item.OrderID = orderID
		if item.ID, err = res.LastInsertId(); err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}

func (r *orderRepo) FindByID(ctx context.Context, id int64) (*repository.Order, error) {
	return r.findOne(ctx, sq.Eq{"o.id": id})
}

func (r *orderRepo) FindByNumber(ctx context.Context, number string) (*repository.Order, error) {
	return r.findOne(ctx, sq.Eq{"o.order_number": strings.TrimSpace(number)})
}

func (r *orderRepo) FindByGatewayOrderID(ctx context.Context, ref string) (*repository.Order, error) {
	if strings.TrimSpace(ref) == "" {
		return nil, repository.ErrNotFound
	}
	return r.findOne(ctx, sq.Eq{"o.gateway_order_id": ref})
}

func (r *orderRepo) findOne(ctx context.Context, where sq.Sqlizer) (*repository.Order, error) {
	query, args, err := orderSelect().Where(where).Limit(1).ToSql()
	if err != nil {
		return nil, err
	}
	o, err := scanOrder(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, notFound(err)
	}
	return o, nil
}

const orderItemColumns = `id, order_id, product_id, product_name, product_price, product_image, quantity, size, color, subtotal`

func (r *orderRepo) ListItems(ctx context.Context, orderID int64) ([]repository.OrderItem, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+orderItemColumns+` FROM order_items WHERE order_id = ? ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []repository.OrderItem
	for rows.Next() {
		item, err := scanOrderItem(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *item)
	}
	return list, rows.Err()
}

func (r *orderRepo) FindItem(ctx context.Context, itemID int64) (*repository.OrderItem, error) {
	item, err := scanOrderItem(r.db.QueryRowContext(ctx, `SELECT `+orderItemColumns+` FROM order_items WHERE id = ?`, itemID))
	if err != nil {
		return nil, notFound(err)
	}
	return item, nil
}

// List 返回匹配 filter 的订单（按创建时间倒序，不含明细）及总数。
func (r *orderRepo) List(ctx context.Context, filter repository.OrderFilter) ([]repository.Order, int64, error) {
	where := orderWhere(filter)

	countQuery, countArgs, err := builder.Select("COUNT(*)").From("orders o").Join("users u ON u.id = o.user_id").Where(where).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build order count: %w", err)
	}
	var total int64
	if err := r.db.QueryRowContext(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query, args, err := orderSelect().
		Where(where).
		OrderBy("o.created_at DESC", "o.id DESC").
		Limit(clampLimit(filter.Limit, 20)).
		Offset(uint64(max(filter.Offset, 0))).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build order list: %w", err)
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var list []repository.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		list = append(list, *o)
	}
	return list, total, rows.Err()
}

func orderWhere(filter repository.OrderFilter) sq.And {
	where := sq.And{}
	if filter.UserID != nil {
		where = append(where, sq.Eq{"o.user_id": *filter.UserID})
	}
	if filter.Status != "" {
		where = append(where, sq.Eq{"o.order_status": filter.Status})
	}
	if filter.PaymentStatus != "" {
		where = append(where, sq.Eq{"o.payment_status": filter.PaymentStatus})
	}
	if filter.PaymentMethod != "" {
		where = append(where, sq.Eq{"o.payment_method": filter.PaymentMethod})
	}
	if filter.ApprovalStatus != "" {
		where = append(where, sq.Eq{"o.approval_status": filter.ApprovalStatus})
	}
	if filter.Suspicious != nil {
		where = append(where, sq.Eq{"o.is_suspicious": boolToInt(*filter.Suspicious)})
	}
	if filter.IsResell != nil {
		where = append(where, sq.Eq{"o.is_resell": boolToInt(*filter.IsResell)})
	}
	if filter.From > 0 {
		where = append(where, sq.GtOrEq{"o.created_at": filter.From})
	}
	if filter.To > 0 {
		where = append(where, sq.Lt{"o.created_at": filter.To})
	}
	if q := strings.TrimSpace(filter.Search); q != "" {
		pat := likePattern(q)
		where = append(where, sq.Or{
			sq.Expr(`o.order_number LIKE ? ESCAPE '\'`, pat),
			sq.Expr(`o.tracking_number LIKE ? ESCAPE '\'`, pat),
			sq.Expr(`u.username LIKE ? ESCAPE '\'`, pat),
			sq.Expr(`u.email LIKE ? ESCAPE '\'`, pat),
		})
	}
	return where
}

func (r *orderRepo) Update(ctx context.Context, o *repository.Order) error {
	values := orderValues(o)
	set := make(map[string]any, len(orderColumns))
	for i, c := range orderColumns {
		set[c] = values[i]
	}
	delete(set, "created_at")
	delete(set, "order_number")
	query, args, err := builder.Update("orders").SetMap(set).Where(sq.Eq{"id": o.ID}).ToSql()
	if err != nil {
		return fmt.Errorf("build order update: %w", err)
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if isUniqueViolation(err) {
		return repository.ErrConflict
	}
	return requireAffected(res, err)
}

func (r *orderRepo) AddHistory(ctx context.Context, h *repository.OrderStatusHistory) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO order_status_history(order_id, old_status, new_status, changed_by, notes, created_at) VALUES(?, ?, ?, ?, ?, ?)`,
		h.OrderID, h.OldStatus, h.NewStatus, nullableInt(h.ChangedBy), h.Notes, h.CreatedAt)
	if err != nil {
		return err
	}
	h.ID, err = res.LastInsertId()
	return err
}

func (r *orderRepo) ListHistory(ctx context.Context, orderID int64) ([]repository.OrderStatusHistory, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, order_id, old_status, new_status, changed_by, notes, created_at FROM order_status_history
         WHERE order_id = ? ORDER BY created_at, id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []repository.OrderStatusHistory
	for rows.Next() {
		var (
			h  repository.OrderStatusHistory
			by sql.NullInt64
		)
		if err := rows.Scan(&h.ID, &h.OrderID, &h.OldStatus, &h.NewStatus, &by, &h.Notes, &h.CreatedAt); err != nil {
			return nil, err
		}
		h.ChangedBy = nullableIntPtr(by)
		list = append(list, h)
	}
	return list, rows.Err()
}

// CustomerStats 统计用户已送达、已取消或被拒以及 since 之后的订单数。
func (r *orderRepo) CustomerStats(ctx context.Context, userID int64, since int64) (repository.CustomerOrderStats, error) {
	var stats repository.CustomerOrderStats
	err := r.db.QueryRowContext(ctx, `SELECT
            COALESCE(SUM(CASE WHEN order_status = 'DELIVERED' THEN 1 ELSE 0 END), 0),
            COALESCE(SUM(CASE WHEN order_status = 'CANCELLED' OR approval_status = 'REJECTED' THEN 1 ELSE 0 END), 0),
            COALESCE(SUM(CASE WHEN created_at >= ? THEN 1 ELSE 0 END), 0)
        FROM orders WHERE user_id = ?`, since, userID).
		Scan(&stats.Delivered, &stats.CancelledOrRejected, &stats.RecentOrders)
	return stats, err
}

func (r *orderRepo) HasDeliveredProduct(ctx context.Context, userID, productID int64) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM order_items i JOIN orders o ON o.id = i.order_id
        WHERE o.user_id = ? AND i.product_id = ? AND o.order_status = 'DELIVERED'`, userID, productID).Scan(&n)
	return n > 0, err
}

// ReconcileDeliveredPayments 把已送达但仍待付款的订单标记为已付款。
func (r *orderRepo) ReconcileDeliveredPayments(ctx context.Context, at int64) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE orders SET payment_status = 'PAID', updated_at = ? WHERE order_status = 'DELIVERED' AND payment_status = 'PENDING'`, at)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanOrder(row rowScanner) (*repository.Order, error) {
	var (
		o                                    repository.Order
		invoice, gateway                     sql.NullString
		resellSource, approvedBy, approvedAt sql.NullInt64
		deliveryDate                         sql.NullInt64
		isResell, suspicious                 int
		firstName, lastName, username        string
	)
	if err := row.Scan(
		&o.ID, &o.OrderNumber, &o.UserID, &o.Subtotal, &o.Tax, &o.ShippingCost, &o.Discount, &o.PointsRedeemed, &o.TotalAmount,
		&o.OrderStatus, &o.PaymentStatus, &o.PaymentMethod, &o.ShippingAddress, &o.BillingAddress, &o.CustomerNotes, &o.AdminNotes,
		&o.TrackingNumber, &o.CourierName, &invoice, &gateway, &o.PaymentID, &o.PaymentSignature,
		&isResell, &resellSource, &o.ResellFromName, &o.ResellFromPhone,
		&o.ApprovalStatus, &o.ApprovalNotes, &approvedBy, &approvedAt, &suspicious, &o.SuspiciousReason, &o.RiskScore,
		&o.OrderDate, &deliveryDate, &o.CreatedAt, &o.UpdatedAt,
		&firstName, &lastName, &username, &o.Email,
	); err != nil {
		return nil, err
	}
	o.InvoiceNumber = invoice.String
	o.GatewayOrderID = gateway.String
	o.IsResell = isResell == 1
	o.ResellSourceID = nullableIntPtr(resellSource)
	o.ApprovedBy = nullableIntPtr(approvedBy)
	o.ApprovedAt = nullableIntPtr(approvedAt)
	o.IsSuspicious = suspicious == 1
	o.DeliveryDate = nullableIntPtr(deliveryDate)
	o.CustomerName = repository.User{Username: username, FirstName: firstName, LastName: lastName}.FullName()
	return &o, nil
}

func scanOrderItem(row rowScanner) (*repository.OrderItem, error) {
	var (
		item      repository.OrderItem
		productID sql.NullInt64
	)
	if err := row.Scan(&item.ID, &item.OrderID, &productID, &item.ProductName, &item.ProductPrice, &item.ProductImage,
		&item.Quantity, &item.Size, &item.Color, &item.Subtotal); err != nil {
		return nil, err
	}
	item.ProductID = nullableIntPtr(productID)
	return &item, nil
}
