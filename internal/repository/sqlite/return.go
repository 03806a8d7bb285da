package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/creamcroissant/vibemall/internal/repository"
)

type returnRepo struct {
	db dbtx
}

var returnColumns = []string{
	"id", "return_number", "order_id", "order_item_id", "user_id", "reason", "description", "status", "admin_notes",
	"pickup_date", "refund_amount", "refund_method", "refund_date", "created_at", "updated_at",
}

func (r *returnRepo) Create(ctx context.Context, rr *repository.ReturnRequest) (*repository.ReturnRequest, error) {
	query, args, err := builder.Insert("return_requests").
		Columns(returnColumns[1:]...).
		Values(rr.ReturnNumber, rr.OrderID, rr.OrderItemID, rr.UserID, rr.Reason, rr.Description, rr.Status, rr.AdminNotes,
			nullableInt(rr.PickupDate), rr.RefundAmount, rr.RefundMethod, nullableInt(rr.RefundDate), rr.CreatedAt, rr.UpdatedAt).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build return insert: %w", err)
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, repository.ErrConflict
		}
		return nil, err
	}
	rr.ID, err = res.LastInsertId()
	return rr, err
}

func (r *returnRepo) FindByID(ctx context.Context, id int64) (*repository.ReturnRequest, error) {
	query, args, err := builder.Select(returnColumns...).From("return_requests").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, err
	}
	rr, err := scanReturn(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, notFound(err)
	}
	return rr, nil
}

func (r *returnRepo) List(ctx context.Context, filter repository.ReturnFilter) ([]repository.ReturnRequest, int64, error) {
	where := sq.And{}
	if filter.UserID != nil {
		where = append(where, sq.Eq{"user_id": *filter.UserID})
	}
	if filter.OrderID != nil {
		where = append(where, sq.Eq{"order_id": *filter.OrderID})
	}
	if filter.Status != "" {
		where = append(where, sq.Eq{"status": filter.Status})
	}

	countQuery, countArgs, err := builder.Select("COUNT(*)").From("return_requests").Where(where).ToSql()
	if err != nil {
		return nil, 0, err
	}
	var total int64
	if err := r.db.QueryRowContext(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query, args, err := builder.Select(returnColumns...).From("return_requests").Where(where).
		OrderBy("created_at DESC", "id DESC").Limit(clampLimit(filter.Limit, 20)).Offset(uint64(max(filter.Offset, 0))).ToSql()
	if err != nil {
		return nil, 0, err
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var list []repository.ReturnRequest
	for rows.Next() {
		rr, err := scanReturn(rows)
		if err != nil {
			return nil, 0, err
		}
		list = append(list, *rr)
	}
	return list, total, rows.Err()
}

func (r *returnRepo) Update(ctx context.Context, rr *repository.ReturnRequest) error {
	query, args, err := builder.Update("return_requests").
		SetMap(map[string]any{
			"status":        rr.Status,
			"admin_notes":   rr.AdminNotes,
			"pickup_date":   nullableInt(rr.PickupDate),
			"refund_amount": rr.RefundAmount,
			"refund_method": rr.RefundMethod,
			"refund_date":   nullableInt(rr.RefundDate),
			"updated_at":    rr.UpdatedAt,
		}).
		Where(sq.Eq{"id": rr.ID}).
		ToSql()
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	return requireAffected(res, err)
}

// HasOpenForItem 报告该明细是否已有未被拒绝的退货申请。
func (r *returnRepo) HasOpenForItem(ctx context.Context, itemID int64) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM return_requests WHERE order_item_id = ? AND status <> 'REJECTED'`, itemID).Scan(&n)
	return n > 0, err
}

func (r *returnRepo) CountRefundedItems(ctx context.Context, orderID int64) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT order_item_id) FROM return_requests WHERE order_id = ? AND status = 'REFUNDED'`, orderID).Scan(&n)
	return n, err
}

func scanReturn(row rowScanner) (*repository.ReturnRequest, error) {
	var (
		rr                 repository.ReturnRequest
		pickup, refundDate sql.NullInt64
	)
	if err := row.Scan(&rr.ID, &rr.ReturnNumber, &rr.OrderID, &rr.OrderItemID, &rr.UserID, &rr.Reason, &rr.Description, &rr.Status,
		&rr.AdminNotes, &pickup, &rr.RefundAmount, &rr.RefundMethod, &refundDate, &rr.CreatedAt, &rr.UpdatedAt); err != nil {
		return nil, err
	}
	rr.PickupDate = nullableIntPtr(pickup)
	rr.RefundDate = nullableIntPtr(refundDate)
	return &rr, nil
}
