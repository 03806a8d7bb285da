package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/creamcroissant/vibemall/internal/notifier"
	"github.com/creamcroissant/vibemall/internal/repository"
)

// ResellService 以历史订单为模板为第三方买家代下单。
type ResellService interface {
	CreateResell(ctx context.Context, userID, sourceOrderID int64, input ResellInput) (*repository.Order, error)
}

// ResellInput 是转售表单。Margins 按源订单明细 ID 指定每件加价。
type ResellInput struct {
	FromName        string           `json:"resell_from_name"`
	FromPhone       string           `json:"resell_from_phone"`
	AddressID       int64            `json:"address_id"`
	ShippingAddress string           `json:"shipping_address"`
	BillingAddress  string           `json:"billing_address"`
	PaymentMethod   string           `json:"payment_method"`
	Notes           string           `json:"notes"`
	Margins         map[int64]string `json:"margins"`
	Quantities      map[int64]int64  `json:"quantities"`
}

type resellService struct {
	store  repository.Store
	placer *orderPlacer
	now    func() time.Time
}

// NewResellService 组装转售服务，与普通下单共用编号、风控和审核流程。
func NewResellService(store repository.Store, mail notifier.Service, settings ShopSettings, metrics *Metrics, logger *slog.Logger) ResellService {
	return &resellService{
		store:  store,
		placer: newOrderPlacer(settings, mail, metrics, logger),
		now:    time.Now,
	}
}

func (s *resellService) CreateResell(ctx context.Context, userID, sourceOrderID int64, input ResellInput) (*repository.Order, error) {
	if s == nil || s.store == nil {
		return nil, fmt.Errorf("resell service not configured / 转售服务未配置")
	}
	method, err := normalizePaymentMethod(input.PaymentMethod)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.FromName) == "" {
		return nil, fmt.Errorf("%w: resell_from_name is required / 请填写转售人姓名", ErrValidation)
	}
	margins, err := parseMargins(input.Margins)
	if err != nil {
		return nil, err
	}
	draft := orderDraft{
		method:         method,
		billing:        input.BillingAddress,
		notes:          input.Notes,
		resellSourceID: int64Ptr(sourceOrderID),
		resellName:     input.FromName,
		resellPhone:    input.FromPhone,
	}
	return s.placer.place(ctx, s.store, userID, draft, func(tx repository.Store) ([]QuoteLine, string, error) {
		source, err := tx.Orders().FindByID(ctx, sourceOrderID)
		if err != nil {
			return nil, "", mapNotFound(err)
		}
		if source.UserID != userID {
			return nil, "", ErrNotFound
		}
		if source.OrderStatus == repository.OrderCancelled {
			return nil, "", fmt.Errorf("%w: cancelled orders cannot be resold / 已取消订单不能转售", ErrValidation)
		}
		items, err := tx.Orders().ListItems(ctx, source.ID)
		if err != nil {
			return nil, "", err
		}
		lines, err := resellLines(ctx, tx, items, margins, input.Quantities)
		if err != nil {
			return nil, "", err
		}
		shipping, err := resolveShipping(ctx, tx, userID, input.AddressID, input.ShippingAddress)
		return lines, shipping, err
	}, s.now())
}

// resellLines 复制源订单明细：商品仍在售时用当前价，否则用快照价，再加上加价。
// 商品已删除时按快照价下单，不再校验库存。
func resellLines(ctx context.Context, tx repository.Store, items []repository.OrderItem, margins map[int64]decimal.Decimal, quantities map[int64]int64) ([]QuoteLine, error) {
	lines := make([]QuoteLine, 0, len(items))
	for _, item := range items {
		product, err := resellProduct(ctx, tx, item)
		if err != nil {
			return nil, err
		}
		price := item.ProductPrice
		if product != nil && product.IsActive {
			price = product.Price
		}
		if margin, ok := margins[item.ID]; ok {
			price = price.Add(margin)
		}
		qty := item.Quantity
		if q, ok := quantities[item.ID]; ok {
			qty = q
		}
		var line QuoteLine
		if product != nil {
			line, err = lineFor(product, qty, price, item.Size, item.Color)
		} else {
			line, err = snapshotLine(item, qty, price)
		}
		if err != nil {
			return nil, err
		}
		line.Name = item.ProductName
		if item.ProductImage != "" {
			line.Image = item.ProductImage
		}
		lines = append(lines, line)
	}
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}
	return lines, nil
}

// resellProduct 返回明细对应的商品，商品已删除时返回 nil。
func resellProduct(ctx context.Context, tx repository.Store, item repository.OrderItem) (*repository.Product, error) {
	if item.ProductID == nil {
		return nil, nil
	}
	product, err := tx.Products().FindByID(ctx, *item.ProductID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	return product, err
}

func snapshotLine(item repository.OrderItem, qty int64, price decimal.Decimal) (QuoteLine, error) {
	if qty <= 0 {
		return QuoteLine{}, ErrInvalidQuantity
	}
	return QuoteLine{
		Name:     item.ProductName,
		Image:    item.ProductImage,
		Price:    price,
		Quantity: qty,
		Size:     item.Size,
		Color:    item.Color,
		Subtotal: price.Mul(decimal.NewFromInt(qty)),
	}, nil
}

func parseMargins(raw map[int64]string) (map[int64]decimal.Decimal, error) {
	out := make(map[int64]decimal.Decimal, len(raw))
	for id, value := range raw {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		margin, err := decimal.NewFromString(value)
		if err != nil || margin.IsNegative() {
			return nil, fmt.Errorf("%w: invalid margin for item %d / 加价无效", ErrValidation, id)
		}
		out[id] = margin.Round(2)
	}
	return out, nil
}
