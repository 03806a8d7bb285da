package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/creamcroissant/vibemall/internal/repository"
)

type reviewRepo struct {
	db dbtx
}

func reviewSelect() sq.SelectBuilder {
	return builder.Select("r.id", "r.product_id", "r.user_id", "r.rating", "r.name", "r.email", "r.comment", "r.is_approved",
		"r.is_verified_purchase", "r.helpful_count", "r.not_helpful_count", "r.created_at", "r.updated_at", "p.name").
		From("reviews r").
		Join("products p ON p.id = r.product_id")
}

func (r *reviewRepo) Create(ctx context.Context, rv *repository.Review) (*repository.Review, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO reviews(product_id, user_id, rating, name, email, comment, is_approved, is_verified_purchase, created_at, updated_at)
         VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rv.ProductID, nullableInt(rv.UserID), rv.Rating, rv.Name, rv.Email, rv.Comment, boolToInt(rv.IsApproved),
		boolToInt(rv.IsVerifiedPurchase), rv.CreatedAt, rv.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert review: %w", err)
	}
	rv.ID, err = res.LastInsertId()
	return rv, err
}

func (r *reviewRepo) FindByID(ctx context.Context, id int64) (*repository.Review, error) {
	query, args, err := reviewSelect().Where(sq.Eq{"r.id": id}).ToSql()
	if err != nil {
		return nil, err
	}
	rv, err := scanReview(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, notFound(err)
	}
	list := []repository.Review{*rv}
	if err := r.attachImages(ctx, list); err != nil {
		return nil, err
	}
	return &list[0], nil
}

func (r *reviewRepo) List(ctx context.Context, filter repository.ReviewFilter) ([]repository.Review, int64, error) {
	where := sq.And{}
	if filter.ProductID != nil {
		where = append(where, sq.Eq{"r.product_id": *filter.ProductID})
	}
	if filter.Approved != nil {
		where = append(where, sq.Eq{"r.is_approved": boolToInt(*filter.Approved)})
	}

	countQuery, countArgs, err := builder.Select("COUNT(*)").From("reviews r").Where(where).ToSql()
	if err != nil {
		return nil, 0, err
	}
	var total int64
	if err := r.db.QueryRowContext(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query, args, err := reviewSelect().Where(where).OrderBy("r.created_at DESC", "r.id DESC").
		Limit(clampLimit(filter.Limit, 20)).Offset(uint64(max(filter.Offset, 0))).ToSql()
	if err != nil {
		return nil, 0, err
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var list []repository.Review
	for rows.Next() {
		rv, err := scanReview(rows)
		if err != nil {
			return nil, 0, err
		}
		list = append(list, *rv)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	rows.Close()
	if err := r.attachImages(ctx, list); err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

func (r *reviewRepo) SetApproved(ctx context.Context, id int64, approved bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE reviews SET is_approved = ?, updated_at = ? WHERE id = ?`, boolToInt(approved), nowUnix(), id)
	return requireAffected(res, err)
}

func (r *reviewRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM reviews WHERE id = ?`, id)
	return requireAffected(res, err)
}

// UpsertVote 记录或改写用户对评价的投票。
func (r *reviewRepo) UpsertVote(ctx context.Context, reviewID, userID int64, helpful bool, at int64) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO review_votes(review_id, user_id, is_helpful, created_at) VALUES(?, ?, ?, ?)
         ON CONFLICT(review_id, user_id) DO UPDATE SET is_helpful = excluded.is_helpful`,
		reviewID, userID, boolToInt(helpful), at)
	return err
}

// RecountVotes 从 review_votes 重新汇总有用与无用计数。
func (r *reviewRepo) RecountVotes(ctx context.Context, reviewID int64) error {
	res, err := r.db.ExecContext(ctx, `UPDATE reviews SET
            helpful_count = (SELECT COUNT(*) FROM review_votes WHERE review_id = reviews.id AND is_helpful = 1),
            not_helpful_count = (SELECT COUNT(*) FROM review_votes WHERE review_id = reviews.id AND is_helpful = 0)
        WHERE id = ?`, reviewID)
	return requireAffected(res, err)
}

func (r *reviewRepo) Summary(ctx context.Context, productID int64) (repository.RatingSummary, error) {
	var s repository.RatingSummary
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(AVG(rating), 0) FROM reviews WHERE product_id = ? AND is_approved = 1`, productID).
		Scan(&s.Count, &s.Average)
	return s, err
}

// AddImages 追加评价图片。
func (r *reviewRepo) AddImages(ctx context.Context, reviewID int64, urls []string, at int64) ([]repository.ReviewImage, error) {
	images := make([]repository.ReviewImage, 0, len(urls))
	for _, url := range urls {
		res, err := r.db.ExecContext(ctx, `INSERT INTO review_images(review_id, url, uploaded_at) VALUES(?, ?, ?)`, reviewID, url, at)
		if err != nil {
			return nil, fmt.Errorf("insert review image: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, err
		}
		images = append(images, repository.ReviewImage{ID: id, ReviewID: reviewID, URL: url, UploadedAt: at})
	}
	return images, nil
}

func (r *reviewRepo) DeleteImage(ctx context.Context, reviewID, imageID int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM review_images WHERE id = ? AND review_id = ?`, imageID, reviewID)
	return requireAffected(res, err)
}

// attachImages 一次查询填充一组评价的图片，按上传时间排序。
func (r *reviewRepo) attachImages(ctx context.Context, list []repository.Review) error {
	if len(list) == 0 {
		return nil
	}
	ids := make([]int64, 0, len(list))
	index := make(map[int64]int, len(list))
	for i := range list {
		list[i].Images = []repository.ReviewImage{}
		ids = append(ids, list[i].ID)
		index[list[i].ID] = i
	}
	query, args, err := builder.Select("id", "review_id", "url", "uploaded_at").
		From("review_images").
		Where(sq.Eq{"review_id": ids}).
		OrderBy("uploaded_at", "id").
		ToSql()
	if err != nil {
		return err
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var img repository.ReviewImage
		if err := rows.Scan(&img.ID, &img.ReviewID, &img.URL, &img.UploadedAt); err != nil {
			return err
		}
		i := index[img.ReviewID]
		list[i].Images = append(list[i].Images, img)
	}
	return rows.Err()
}

func scanReview(row rowScanner) (*repository.Review, error) {
	var (
		rv                 repository.Review
		userID             sql.NullInt64
		approved, verified int
	)
	if err := row.Scan(&rv.ID, &rv.ProductID, &userID, &rv.Rating, &rv.Name, &rv.Email, &rv.Comment, &approved, &verified,
		&rv.HelpfulCount, &rv.NotHelpfulCount, &rv.CreatedAt, &rv.UpdatedAt, &rv.ProductName); err != nil {
		return nil, err
	}
	rv.UserID = nullableIntPtr(userID)
	rv.IsApproved = approved == 1
	rv.IsVerifiedPurchase = verified == 1
	return &rv, nil
}
