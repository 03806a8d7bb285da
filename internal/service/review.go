package service

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/creamcroissant/vibemall/internal/repository"
)

// ReviewService 管理商品评价。新评价需审核后才计入评分。
type ReviewService interface {
	Submit(ctx context.Context, userID int64, input ReviewInput) (*repository.Review, error)
	Vote(ctx context.Context, userID, reviewID int64, helpful bool) (*repository.Review, error)
	ListForProduct(ctx context.Context, productID int64, page int) ([]repository.Review, Page, error)
	ListPending(ctx context.Context, page int) ([]repository.Review, Page, error)
	Approve(ctx context.Context, id int64) error
	Delete(ctx context.Context, id int64) error
	DeleteImage(ctx context.Context, reviewID, imageID int64) error
}

const maxReviewImages = 5

// ReviewInput 是评价表单。
type ReviewInput struct {
	ProductID int64    `json:"product_id"`
	Rating    int      `json:"rating"`
	Name      string   `json:"name"`
	Email     string   `json:"email"`
	Comment   string   `json:"comment"`
	Images    []string `json:"images"`
}

type reviewService struct {
	store repository.Store
	now   func() time.Time
}

// NewReviewService 组装评价服务。
func NewReviewService(store repository.Store) ReviewService {
	return &reviewService{store: store, now: time.Now}
}

// Submit 校验并保存评价；用户有包含该商品的已送达订单时标记为已购。
func (s *reviewService) Submit(ctx context.Context, userID int64, input ReviewInput) (*repository.Review, error) {
	if s == nil || s.store == nil {
		return nil, fmt.Errorf("review service not configured / 评价服务未配置")
	}
	if input.Rating < 1 || input.Rating > 5 {
		return nil, ErrInvalidRating
	}
	name := sanitizeText(input.Name)
	email := strings.TrimSpace(input.Email)
	comment := sanitizeText(input.Comment)
	if name == "" || email == "" || comment == "" {
		return nil, ErrReviewFieldsRequired
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("%w: invalid email / 邮箱格式无效", ErrValidation)
	}
	images, err := reviewImageURLs(input.Images)
	if err != nil {
		return nil, err
	}
	product, err := activeProduct(ctx, s.store, input.ProductID)
	if err != nil {
		return nil, err
	}

	now := s.now().Unix()
	review := &repository.Review{
		ProductID: product.ID,
		Rating:    input.Rating,
		Name:      name,
		Email:     email,
		Comment:   comment,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if userID > 0 {
		review.UserID = int64Ptr(userID)
		verified, err := s.store.Orders().HasDeliveredProduct(ctx, userID, product.ID)
		if err != nil {
			return nil, err
		}
		review.IsVerifiedPurchase = verified
	}
	err = s.store.InTx(ctx, func(tx repository.Store) error {
		if _, err := tx.Reviews().Create(ctx, review); err != nil {
			return err
		}
		added, err := tx.Reviews().AddImages(ctx, review.ID, images, now)
		if err != nil {
			return err
		}
		review.Images = added
		return recountRating(ctx, tx, product.ID)
	})
	if err != nil {
		return nil, err
	}
	review.ProductName = product.Name
	return review, nil
}

// Vote 每个用户对一条评价只有一票，改票会移动计数。
func (s *reviewService) Vote(ctx context.Context, userID, reviewID int64, helpful bool) (*repository.Review, error) {
	if s == nil || s.store == nil {
		return nil, fmt.Errorf("review service not configured / 评价服务未配置")
	}
	if userID <= 0 {
		return nil, ErrUnauthorized
	}
	var review *repository.Review
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		if _, err := tx.Reviews().FindByID(ctx, reviewID); err != nil {
			return mapNotFound(err)
		}
		if err := tx.Reviews().UpsertVote(ctx, reviewID, userID, helpful, s.now().Unix()); err != nil {
			return err
		}
		if err := tx.Reviews().RecountVotes(ctx, reviewID); err != nil {
			return mapNotFound(err)
		}
		var err error
		review, err = tx.Reviews().FindByID(ctx, reviewID)
		return mapNotFound(err)
	})
	return review, err
}

func (s *reviewService) ListForProduct(ctx context.Context, productID int64, page int) ([]repository.Review, Page, error) {
	if s == nil || s.store == nil {
		return nil, Page{}, fmt.Errorf("review service not configured / 评价服务未配置")
	}
	approved := true
	return s.list(ctx, repository.ReviewFilter{ProductID: &productID, Approved: &approved}, page)
}

func (s *reviewService) ListPending(ctx context.Context, page int) ([]repository.Review, Page, error) {
	if s == nil || s.store == nil {
		return nil, Page{}, fmt.Errorf("review service not configured / 评价服务未配置")
	}
	approved := false
	return s.list(ctx, repository.ReviewFilter{Approved: &approved}, page)
}

func (s *reviewService) list(ctx context.Context, filter repository.ReviewFilter, page int) ([]repository.Review, Page, error) {
	p := newPage(page, 10)
	filter.Limit = p.Size
	filter.Offset = p.Offset()
	list, total, err := s.store.Reviews().List(ctx, filter)
	if err != nil {
		return nil, Page{}, err
	}
	if list == nil {
		list = []repository.Review{}
	}
	return list, p.withTotal(total), nil
}

func (s *reviewService) Approve(ctx context.Context, id int64) error {
	if s == nil || s.store == nil {
		return fmt.Errorf("review service not configured / 评价服务未配置")
	}
	return s.store.InTx(ctx, func(tx repository.Store) error {
		review, err := tx.Reviews().FindByID(ctx, id)
		if err != nil {
			return mapNotFound(err)
		}
		if err := tx.Reviews().SetApproved(ctx, id, true); err != nil {
			return mapNotFound(err)
		}
		return recountRating(ctx, tx, review.ProductID)
	})
}

func (s *reviewService) Delete(ctx context.Context, id int64) error {
	if s == nil || s.store == nil {
		return fmt.Errorf("review service not configured / 评价服务未配置")
	}
	return s.store.InTx(ctx, func(tx repository.Store) error {
		review, err := tx.Reviews().FindByID(ctx, id)
		if err != nil {
			return mapNotFound(err)
		}
		if err := tx.Reviews().Delete(ctx, id); err != nil {
			return mapNotFound(err)
		}
		return recountRating(ctx, tx, review.ProductID)
	})
}

// DeleteImage 后台删除评价的一张图片。
func (s *reviewService) DeleteImage(ctx context.Context, reviewID, imageID int64) error {
	if s == nil || s.store == nil {
		return fmt.Errorf("review service not configured / 评价服务未配置")
	}
	return mapNotFound(s.store.Reviews().DeleteImage(ctx, reviewID, imageID))
}

func reviewImageURLs(raw []string) ([]string, error) {
	urls := make([]string, 0, len(raw))
	for _, u := range raw {
		if u = strings.TrimSpace(u); u != "" {
			urls = append(urls, u)
		}
	}
	if len(urls) > maxReviewImages {
		return nil, fmt.Errorf("%w: at most %d review images / 评价图片最多 %d 张", ErrValidation, maxReviewImages, maxReviewImages)
	}
	return urls, nil
}

// recountRating 用已审核评价重算商品评分（保留一位小数，无评价为 0）。
func recountRating(ctx context.Context, tx repository.Store, productID int64) error {
	summary, err := tx.Reviews().Summary(ctx, productID)
	if err != nil {
		return err
	}
	rating := 0.0
	if summary.Count > 0 {
		rating = roundTo(summary.Average, 1)
	}
	return mapNotFound(tx.Products().UpdateRating(ctx, productID, rating, summary.Count))
}
