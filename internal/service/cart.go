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

// CartService 维护用户购物车。
type CartService interface {
	Add(ctx context.Context, userID int64, input CartAddInput) (*CartView, error)
	UpdateQuantity(ctx context.Context, userID, itemID, qty int64) (*CartView, error)
	Remove(ctx context.Context, userID, itemID int64) (*CartView, error)
	View(ctx context.Context, userID int64) (*CartView, error)
	Clear(ctx context.Context, userID int64) error
}

// CartAddInput 是加购参数，Quantity 为 0 时按 1 处理。
type CartAddInput struct {
	ProductID int64
	Quantity  int64
	Size      string
	Color     string
}

// CartLine 是购物车中的一行。
type CartLine struct {
	repository.CartItem
	LineTotal decimal.Decimal `json:"line_total"`
}

// CartView 是购物车汇总。
type CartView struct {
	Items     []CartLine      `json:"items"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	ItemCount int64           `json:"item_count"`
}

type cartService struct {
	store repository.Store
	now   func() time.Time
}

// NewCartService 组装购物车服务。
func NewCartService(store repository.Store) CartService {
	return &cartService{store: store, now: time.Now}
}

func (s *cartService) Add(ctx context.Context, userID int64, input CartAddInput) (*CartView, error) {
	if s == nil || s.store == nil {
		return nil, fmt.Errorf("cart service not configured / 购物车服务未配置")
	}
	qty := input.Quantity
	if qty == 0 {
		qty = 1
	}
	if qty < 0 {
		return nil, ErrInvalidQuantity
	}
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		product, err := activeProduct(ctx, tx, input.ProductID)
		if err != nil {
			return err
		}
		existing := int64(0)
		if line, err := tx.Carts().FindByUserProduct(ctx, userID, product.ID); err == nil {
			existing = line.Quantity
		} else if !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		if existing+qty > product.Stock {
			return ErrOutOfStock
		}
		now := s.now().Unix()
		_, err = tx.Carts().AddQuantity(ctx, &repository.CartItem{
			UserID:    userID,
			ProductID: product.ID,
			Quantity:  qty,
			Size:      strings.TrimSpace(input.Size),
			Color:     strings.TrimSpace(input.Color),
			CreatedAt: now,
			UpdatedAt: now,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.View(ctx, userID)
}

// UpdateQuantity 设置数量，qty <= 0 时删除该行。
func (s *cartService) UpdateQuantity(ctx context.Context, userID, itemID, qty int64) (*CartView, error) {
	if s == nil || s.store == nil {
		return nil, fmt.Errorf("cart service not configured / 购物车服务未配置")
	}
	item, err := s.ownedItem(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}
	if qty <= 0 {
		if err := s.store.Carts().Delete(ctx, item.ID); err != nil {
			return nil, mapNotFound(err)
		}
		return s.View(ctx, userID)
	}
	if item.Product != nil && qty > item.Product.Stock {
		return nil, ErrOutOfStock
	}
	if err := s.store.Carts().SetQuantity(ctx, item.ID, qty); err != nil {
		return nil, mapNotFound(err)
	}
	return s.View(ctx, userID)
}

func (s *cartService) Remove(ctx context.Context, userID, itemID int64) (*CartView, error) {
	if s == nil || s.store == nil {
		return nil, fmt.Errorf("cart service not configured / 购物车服务未配置")
	}
	item, err := s.ownedItem(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}
	if err := s.store.Carts().Delete(ctx, item.ID); err != nil {
		return nil, mapNotFound(err)
	}
	return s.View(ctx, userID)
}

func (s *cartService) View(ctx context.Context, userID int64) (*CartView, error) {
	if s == nil || s.store == nil {
		return nil, fmt.Errorf("cart service not configured / 购物车服务未配置")
	}
	items, err := s.store.Carts().ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return buildCartView(items), nil
}

func (s *cartService) Clear(ctx context.Context, userID int64) error {
	if s == nil || s.store == nil {
		return fmt.Errorf("cart service not configured / 购物车服务未配置")
	}
	return s.store.Carts().ClearUser(ctx, userID)
}

func (s *cartService) ownedItem(ctx context.Context, userID, itemID int64) (*repository.CartItem, error) {
	item, err := s.store.Carts().FindByID(ctx, itemID)
	if err != nil {
		return nil, mapNotFound(err)
	}
	// 别人的购物车行一律当作不存在
	if item.UserID != userID {
		return nil, ErrNotFound
	}
	return item, nil
}

func buildCartView(items []repository.CartItem) *CartView {
	view := &CartView{Items: make([]CartLine, 0, len(items)), Subtotal: decimal.Zero}
	for _, item := range items {
		line := CartLine{CartItem: item, LineTotal: decimal.Zero}
		if item.Product != nil {
			line.LineTotal = item.Product.Price.Mul(decimal.NewFromInt(item.Quantity))
		}
		view.Items = append(view.Items, line)
		view.Subtotal = view.Subtotal.Add(line.LineTotal)
		view.ItemCount += item.Quantity
	}
	return view
}

// activeProduct 返回在售商品，缺失或下架都视为 ErrNotFound。
func activeProduct(ctx context.Context, store repository.Store, id int64) (*repository.Product, error) {
	product, err := store.Products().FindByID(ctx, id)
	if err != nil {
		return nil, mapNotFound(err)
	}
	if !product.IsActive {
		return nil, ErrNotFound
	}
	return product, nil
}
