package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/creamcroissant/vibemall/internal/repository"
)

// WishlistService 维护心愿单与降价提醒。
type WishlistService interface {
	Add(ctx context.Context, userID, productID int64) (*repository.WishlistItem, bool, error)
	Remove(ctx context.Context, userID, itemID int64) error
	List(ctx context.Context, userID int64) ([]repository.WishlistItem, error)
	MoveToCart(ctx context.Context, userID, itemID int64) error
	Toggle(ctx context.Context, userID, productID int64) (bool, error)
	SetPriceAlert(ctx context.Context, userID, productID int64, target string) (*repository.PriceAlert, error)
}

type wishlistService struct {
	store repository.Store
	now   func() time.Time
}

// NewWishlistService 组装心愿单服务。
func NewWishlistService(store repository.Store) WishlistService {
	return &wishlistService{store: store, now: time.Now}
}

// Add 幂等加入心愿单，已存在时 added=false。新加入的商品以当前价格建立提醒基准。
func (s *wishlistService) Add(ctx context.Context, userID, productID int64) (*repository.WishlistItem, bool, error) {
	if s == nil || s.store == nil {
		return nil, false, fmt.Errorf("wishlist service not configured / 心愿单服务未配置")
	}
	var (
		item  *repository.WishlistItem
		added bool
	)
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		product, err := activeProduct(ctx, tx, productID)
		if err != nil {
			return err
		}
		item, added, err = tx.Wishlists().Add(ctx, userID, product.ID)
		if err != nil || !added {
			return err
		}
		now := s.now().Unix()
		_, err = tx.PriceAlerts().Upsert(ctx, &repository.PriceAlert{
			UserID:        userID,
			ProductID:     product.ID,
			OriginalPrice: product.Price,
			IsActive:      true,
			CreatedAt:     now,
			UpdatedAt:     now,
		})
		return err
	})
	if err != nil {
		return nil, false, err
	}
	return item, added, nil
}

func (s *wishlistService) Remove(ctx context.Context, userID, itemID int64) error {
	if s == nil || s.store == nil {
		return fmt.Errorf("wishlist service not configured / 心愿单服务未配置")
	}
	item, err := s.ownedItem(ctx, userID, itemID)
	if err != nil {
		return err
	}
	return mapNotFound(s.store.Wishlists().Delete(ctx, item.ID))
}

func (s *wishlistService) List(ctx context.Context, userID int64) ([]repository.WishlistItem, error) {
	if s == nil || s.store == nil {
		return nil, fmt.Errorf("wishlist service not configured / 心愿单服务未配置")
	}
	items, err := s.store.Wishlists().ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []repository.WishlistItem{}
	}
	return items, nil
}

// MoveToCart 把心愿单商品加入购物车（已有则数量 +1），然后移出心愿单。
func (s *wishlistService) MoveToCart(ctx context.Context, userID, itemID int64) error {
	if s == nil || s.store == nil {
		return fmt.Errorf("wishlist service not configured / 心愿单服务未配置")
	}
	return s.store.InTx(ctx, func(tx repository.Store) error {
		item, err := tx.Wishlists().FindByID(ctx, itemID)
		if err != nil {
			return mapNotFound(err)
		}
		if item.UserID != userID {
			return ErrNotFound
		}
		product, err := activeProduct(ctx, tx, item.ProductID)
		if err != nil {
			return err
		}
		inCart := int64(0)
		if line, err := tx.Carts().FindByUserProduct(ctx, userID, product.ID); err == nil {
			inCart = line.Quantity
		} else if !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		if inCart+1 > product.Stock {
			return ErrOutOfStock
		}
		now := s.now().Unix()
		if _, err := tx.Carts().AddQuantity(ctx, &repository.CartItem{
			UserID:    userID,
			ProductID: product.ID,
			Quantity:  1,
			CreatedAt: now,
			UpdatedAt: now,
		}); err != nil {
			return err
		}
		return tx.Wishlists().Delete(ctx, item.ID)
	})
}

// Toggle 供前端心形按钮使用，返回操作后是否在心愿单中。
func (s *wishlistService) Toggle(ctx context.Context, userID, productID int64) (bool, error) {
	if s == nil || s.store == nil {
		return false, fmt.Errorf("wishlist service not configured / 心愿单服务未配置")
	}
	exists, err := s.store.Wishlists().Exists(ctx, userID, productID)
	if err != nil {
		return false, err
	}
	if exists {
		if err := s.store.Wishlists().DeleteByUserProduct(ctx, userID, productID); err != nil {
			return false, mapNotFound(err)
		}
		return false, nil
	}
	if _, _, err := s.Add(ctx, userID, productID); err != nil {
		return false, err
	}
	return true, nil
}

// SetPriceAlert 设置目标价；target 为空表示跌破加入时价格就提醒。
func (s *wishlistService) SetPriceAlert(ctx context.Context, userID, productID int64, target string) (*repository.PriceAlert, error) {
	if s == nil || s.store == nil {
		return nil, fmt.Errorf("wishlist service not configured / 心愿单服务未配置")
	}
	product, err := activeProduct(ctx, s.store, productID)
	if err != nil {
		return nil, err
	}
	alert := &repository.PriceAlert{
		UserID:        userID,
		ProductID:     product.ID,
		OriginalPrice: product.Price,
		IsActive:      true,
		CreatedAt:     s.now().Unix(),
		UpdatedAt:     s.now().Unix(),
	}
	if raw := strings.TrimSpace(target); raw != "" {
		price, err := decimal.NewFromString(raw)
		if err != nil || !price.IsPositive() {
			return nil, fmt.Errorf("%w: invalid target price / 目标价无效", ErrValidation)
		}
		alert.TargetPrice = decimal.NewNullDecimal(price.Round(2))
	}
	var saved *repository.PriceAlert
	err = s.store.InTx(ctx, func(tx repository.Store) error {
		if _, _, err := tx.Wishlists().Add(ctx, userID, product.ID); err != nil {
			return err
		}
		saved, err = tx.PriceAlerts().Upsert(ctx, alert)
		return err
	})
	return saved, err
}

func (s *wishlistService) ownedItem(ctx context.Context, userID, itemID int64) (*repository.WishlistItem, error) {
	item, err := s.store.Wishlists().FindByID(ctx, itemID)
	if err != nil {
		return nil, mapNotFound(err)
	}
	if item.UserID != userID {
		return nil, ErrNotFound
	}
	return item, nil
}
