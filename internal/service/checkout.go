// 文件路径: internal/service/checkout.go
// 模块说明: 结算报价与下单。下单的全部写操作在同一事务内完成，邮件在提交后入队。
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/creamcroissant/vibemall/internal/events"
	"github.com/creamcroissant/vibemall/internal/notifier"
	"github.com/creamcroissant/vibemall/internal/repository"
)

// CheckoutService 计算报价并创建订单。
type CheckoutService interface {
	Quote(ctx context.Context, userID int64, input QuoteInput) (*Quote, error)
	PlaceOrder(ctx context.Context, userID int64, input PlaceOrderInput) (*repository.Order, error)
}

// QuoteInput 选择结算来源：BuyNowProductID 为 0 时使用购物车。
type QuoteInput struct {
	BuyNowProductID int64  `json:"buy_now_product_id"`
	BuyNowQuantity  int64  `json:"buy_now_quantity"`
	Size            string `json:"size"`
	Color           string `json:"color"`
	RedeemPoints    int64  `json:"redeem_points"`
}

// PlaceOrderInput 是下单表单。AddressID 优先于 ShippingAddress 文本，都为空时用默认地址。
type PlaceOrderInput struct {
	QuoteInput
	AddressID       int64  `json:"address_id"`
	ShippingAddress string `json:"shipping_address"`
	BillingAddress  string `json:"billing_address"`
	PaymentMethod   string `json:"payment_method"`
	Notes           string `json:"notes"`
}

// QuoteLine 是结算中的一行。
type QuoteLine struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	Image     string          `json:"image"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int64           `json:"quantity"`
	Size      string          `json:"size"`
	Color     string          `json:"color"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// Quote 是结算金额明细。
type Quote struct {
	Lines           []QuoteLine     `json:"lines"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	Tax             decimal.Decimal `json:"tax"`
	Shipping        decimal.Decimal `json:"shipping"`
	Discount        decimal.Decimal `json:"discount"`
	Total           decimal.Decimal `json:"total"`
	PointsRedeemed  int64           `json:"points_redeemed"`
	PointsAvailable int64           `json:"points_available"`
	FromCart        bool            `json:"from_cart"`
}

type checkoutService struct {
	store  repository.Store
	placer *orderPlacer
	now    func() time.Time
}

// NewCheckoutService 组装结算服务。
func NewCheckoutService(store repository.Store, mail notifier.Service, settings ShopSettings, metrics *Metrics, logger *slog.Logger) CheckoutService {
	return &checkoutService{
		store:  store,
		placer: newOrderPlacer(settings, mail, metrics, logger),
		now:    time.Now,
	}
}

func (s *checkoutService) Quote(ctx context.Context, userID int64, input QuoteInput) (*Quote, error) {
	if s == nil || s.store == nil {
		return nil, fmt.Errorf("checkout service not configured / 结算服务未配置")
	}
	lines, fromCart, err := checkoutLines(ctx, s.store, userID, input)
	if err != nil {
		return nil, err
	}
	available, err := availablePoints(ctx, s.store, userID)
	if err != nil {
		return nil, err
	}
	quote, err := s.placer.price(lines, input.RedeemPoints, available)
	if err != nil {
		return nil, err
	}
	quote.FromCart = fromCart
	return quote, nil
}

func (s *checkoutService) PlaceOrder(ctx context.Context, userID int64, input PlaceOrderInput) (*repository.Order, error) {
	if s == nil || s.store == nil {
		return nil, fmt.Errorf("checkout service not configured / 结算服务未配置")
	}
	method, err := normalizePaymentMethod(input.PaymentMethod)
	if err != nil {
		return nil, err
	}
	draft := orderDraft{
		method:   method,
		redeem:   input.RedeemPoints,
		billing:  input.BillingAddress,
		notes:    input.Notes,
		clearBag: input.BuyNowProductID == 0,
	}
	return s.placer.place(ctx, s.store, userID, draft, func(tx repository.Store) ([]QuoteLine, string, error) {
		lines, _, err := checkoutLines(ctx, tx, userID, input.QuoteInput)
		if err != nil {
			return nil, "", err
		}
		shipping, err := resolveShipping(ctx, tx, userID, input.AddressID, input.ShippingAddress)
		return lines, shipping, err
	}, s.now())
}

// orderDraft 是下单时除明细和地址以外的参数。
type orderDraft struct {
	method   string
	redeem   int64
	billing  string
	notes    string
	clearBag bool

	resellSourceID *int64
	resellName     string
	resellPhone    string
}

// orderPlacer 被普通下单与转售下单共用。
type orderPlacer struct {
	settings ShopSettings
	scorer   RiskScorer
	flow     *orderFlow
	mailer   *orderMailer
	metrics  *Metrics
}

func newOrderPlacer(settings ShopSettings, mail notifier.Service, metrics *Metrics, logger *slog.Logger) *orderPlacer {
	mailer := newOrderMailer(mail, settings.Name, logger)
	return &orderPlacer{
		settings: settings,
		scorer:   NewRiskScorer(settings.SuspiciousThreshold),
		flow:     newOrderFlow(settings, mailer, metrics),
		mailer:   mailer,
		metrics:  metrics,
	}
}

// price 计算金额：税按小计计算，满额免运费，积分抵扣不超过小计。
func (p *orderPlacer) price(lines []QuoteLine, redeem, available int64) (*Quote, error) {
	if redeem < 0 {
		return nil, fmt.Errorf("%w: redeem points must not be negative / 抵扣积分不能为负", ErrValidation)
	}
	if redeem > available {
		return nil, ErrInsufficientPoints
	}
	q := &Quote{Lines: lines, Subtotal: decimal.Zero, Discount: decimal.Zero, Shipping: decimal.Zero, PointsAvailable: available}
	for _, line := range lines {
		q.Subtotal = q.Subtotal.Add(line.Subtotal)
	}
	q.Tax = q.Subtotal.Mul(p.settings.TaxRate).Round(2)
	if q.Subtotal.IsPositive() && q.Subtotal.LessThan(p.settings.FreeShippingThreshold) {
		q.Shipping = p.settings.ShippingFee
	}
	if redeem > 0 && p.settings.PointValue.IsPositive() {
		maxPoints := q.Subtotal.Div(p.settings.PointValue).Floor().IntPart()
		q.PointsRedeemed = min(redeem, maxPoints)
		q.Discount = p.settings.PointValue.Mul(decimal.NewFromInt(q.PointsRedeemed)).Round(2)
	}
	q.Total = q.Subtotal.Add(q.Tax).Add(q.Shipping).Sub(q.Discount)
	return q, nil
}

// place 在一个事务内完成下单：编号、风控、明细、扣库存、积分、清购物车、历史、通知与事件。
func (p *orderPlacer) place(ctx context.Context, store repository.Store, userID int64, draft orderDraft,
	load func(tx repository.Store) ([]QuoteLine, string, error), now time.Time) (*repository.Order, error) {
	var (
		order *repository.Order
		admin *repository.AdminEmailSettings
	)
	err := store.InTx(ctx, func(tx repository.Store) error {
		lines, shipping, err := load(tx)
		if err != nil {
			return err
		}
		available, err := availablePoints(ctx, tx, userID)
		if err != nil {
			return err
		}
		quote, err := p.price(lines, draft.redeem, available)
		if err != nil {
			return err
		}

		user, err := tx.Users().FindByID(ctx, userID)
		if err != nil {
			return mapNotFound(err)
		}
		blocked := false
		if profile, err := tx.Profiles().FindByUserID(ctx, userID); err == nil {
			blocked = profile.IsBlocked
		} else if !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		stats, err := tx.Orders().CustomerStats(ctx, userID, now.Add(-riskWindow).Unix())
		if err != nil {
			return fmt.Errorf("customer order stats: %w", err)
		}
		quantities := make([]int64, 0, len(lines))
		for _, line := range lines {
			quantities = append(quantities, line.Quantity)
		}
		risk := p.scorer.Score(RiskInput{
			Total:            quote.Total,
			PaymentMethod:    draft.method,
			Quantities:       quantities,
			Stats:            stats,
			AccountCreatedAt: user.CreatedAt,
			Blocked:          blocked,
			Now:              now,
		})

		number, err := nextNumber(ctx, tx.Sequences(), "ORD", now)
		if err != nil {
			return err
		}
		billing := strings.TrimSpace(draft.billing)
		if billing == "" {
			billing = shipping
		}
		order = &repository.Order{
			OrderNumber:      number,
			UserID:           userID,
			Subtotal:         quote.Subtotal,
			Tax:              quote.Tax,
			ShippingCost:     quote.Shipping,
			Discount:         quote.Discount,
			PointsRedeemed:   quote.PointsRedeemed,
			TotalAmount:      quote.Total,
			OrderStatus:      repository.OrderPending,
			PaymentStatus:    repository.PaymentPending,
			PaymentMethod:    draft.method,
			ShippingAddress:  shipping,
			BillingAddress:   billing,
			CustomerNotes:    sanitizeText(draft.notes),
			IsResell:         draft.resellSourceID != nil,
			ResellSourceID:   draft.resellSourceID,
			ResellFromName:   strings.TrimSpace(draft.resellName),
			ResellFromPhone:  strings.TrimSpace(draft.resellPhone),
			IsSuspicious:     risk.Suspicious,
			SuspiciousReason: risk.Reason(),
			RiskScore:        risk.Score,
			OrderDate:        now.Unix(),
			CreatedAt:        now.Unix(),
			UpdatedAt:        now.Unix(),
			CustomerName:     user.FullName(),
			Email:            user.Email,
		}
		p.autoApprove(order, risk, now)

		if _, err := tx.Orders().Create(ctx, order); err != nil {
			return fmt.Errorf("create order: %w", err)
		}
		items := make([]repository.OrderItem, 0, len(lines))
		for _, line := range lines {
			var productID *int64
			if line.ProductID > 0 {
				productID = int64Ptr(line.ProductID)
			}
			items = append(items, repository.OrderItem{
				ProductID:    productID,
				ProductName:  line.Name,
				ProductPrice: line.Price,
				ProductImage: line.Image,
				Quantity:     line.Quantity,
				Size:         line.Size,
				Color:        line.Color,
				Subtotal:     line.Subtotal,
			})
		}
		if order.Items, err = tx.Orders().AddItems(ctx, order.ID, items); err != nil {
			return err
		}
		for _, line := range lines {
			if line.ProductID == 0 {
				continue
			}
			if err := tx.Products().DecrementStock(ctx, line.ProductID, line.Quantity); err != nil {
				if errors.Is(err, repository.ErrInsufficientStock) {
					return fmt.Errorf("%w: %s", ErrOutOfStock, line.Name)
				}
				return err
			}
		}
		if order.PointsRedeemed > 0 {
			desc := fmt.Sprintf("Redeemed on order #%s", order.OrderNumber)
			if _, err := applyPoints(ctx, tx, userID, repository.PointsRedeemed, order.PointsRedeemed, desc, int64Ptr(order.ID), now); err != nil {
				return err
			}
		}
		if draft.clearBag {
			if err := tx.Carts().ClearUser(ctx, userID); err != nil {
				return err
			}
		}

		if err := p.flow.history(ctx, tx, order.ID, "", repository.OrderPending, nil, "Order placed", now); err != nil {
			return err
		}
		if order.OrderStatus == repository.OrderProcessing {
			if err := p.flow.history(ctx, tx, order.ID, repository.OrderPending, repository.OrderProcessing, nil, "Auto-approved", now); err != nil {
				return err
			}
		}
		if err := p.flow.notify(ctx, tx, userID, repository.NotifyOrderPlaced,
			fmt.Sprintf("Order #%s Confirmed", order.OrderNumber),
			fmt.Sprintf("Your order of %s has been confirmed and is being processed.", rupees(order.TotalAmount)),
			orderLink(order), now); err != nil {
			return err
		}
		if err := p.flow.emit(ctx, tx, events.TopicOrderPlaced, order, "", nil, now); err != nil {
			return err
		}

		if settings, err := tx.AdminEmail().Get(ctx); err == nil {
			admin = settings
		} else if !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	mails := []notifier.EmailRequest{p.mailer.confirmation(order)}
	if admin != nil && admin.IsActive && admin.AdminEmail != "" {
		mails = append(mails, p.mailer.adminNewOrder(order, admin.AdminEmail))
	}
	p.mailer.send(ctx, mails...)
	p.metrics.orderPlaced(order.PaymentMethod, order.IsResell, order.TotalAmount.InexactFloat64())
	if order.ApprovalStatus == repository.ApprovalAutoApproved {
		p.metrics.approval("auto", 1)
	}
	return order, nil
}

// autoApprove 低风险订单自动通过；货到付款直接进入处理中。
func (p *orderPlacer) autoApprove(order *repository.Order, risk RiskAssessment, now time.Time) {
	if risk.Suspicious || risk.Score >= p.settings.AutoApproveBelow {
		order.ApprovalStatus = repository.ApprovalPending
		return
	}
	at := now.Unix()
	order.ApprovalStatus = repository.ApprovalAutoApproved
	order.ApprovalNotes = fmt.Sprintf("Auto-approved (risk score %d)", risk.Score)
	order.ApprovedAt = &at
	if order.PaymentMethod == repository.MethodCOD || order.PaymentStatus == repository.PaymentPaid {
		order.OrderStatus = repository.OrderProcessing
	}
}

// checkoutLines 读取购物车或立即购买的商品，并校验上架与库存。
func checkoutLines(ctx context.Context, store repository.Store, userID int64, input QuoteInput) ([]QuoteLine, bool, error) {
	if input.BuyNowProductID != 0 {
		qty := input.BuyNowQuantity
		if qty == 0 {
			qty = 1
		}
		if qty < 0 {
			return nil, false, ErrInvalidQuantity
		}
		product, err := activeProduct(ctx, store, input.BuyNowProductID)
		if err != nil {
			return nil, false, err
		}
		line, err := lineFor(product, qty, product.Price, input.Size, input.Color)
		if err != nil {
			return nil, false, err
		}
		return []QuoteLine{line}, false, nil
	}

	items, err := store.Carts().ListByUser(ctx, userID)
	if err != nil {
		return nil, true, err
	}
	if len(items) == 0 {
		return nil, true, ErrEmptyCart
	}
	lines := make([]QuoteLine, 0, len(items))
	for _, item := range items {
		product := item.Product
		if product == nil {
			if product, err = store.Products().FindByID(ctx, item.ProductID); err != nil {
				return nil, true, mapNotFound(err)
			}
		}
		if !product.IsActive {
			return nil, true, fmt.Errorf("%w: %s is no longer available", ErrNotFound, product.Name)
		}
		line, err := lineFor(product, item.Quantity, product.Price, item.Size, item.Color)
		if err != nil {
			return nil, true, err
		}
		lines = append(lines, line)
	}
	return lines, true, nil
}

func lineFor(product *repository.Product, qty int64, price decimal.Decimal, size, color string) (QuoteLine, error) {
	if qty <= 0 {
		return QuoteLine{}, ErrInvalidQuantity
	}
	if qty > product.Stock {
		return QuoteLine{}, fmt.Errorf("%w: %s", ErrOutOfStock, product.Name)
	}
	return QuoteLine{
		ProductID: product.ID,
		Name:      product.Name,
		Image:     product.ImageURL,
		Price:     price,
		Quantity:  qty,
		Size:      strings.TrimSpace(size),
		Color:     strings.TrimSpace(color),
		Subtotal:  price.Mul(decimal.NewFromInt(qty)),
	}, nil
}

// resolveShipping 依次使用 addressID、文本地址、默认地址。
func resolveShipping(ctx context.Context, store repository.Store, userID, addressID int64, text string) (string, error) {
	if addressID > 0 {
		addr, err := ownedAddress(ctx, store, userID, addressID)
		if err != nil {
			return "", err
		}
		return FormatAddress(*addr), nil
	}
	if text = strings.TrimSpace(text); text != "" {
		return sanitizeText(text), nil
	}
	list, err := store.Addresses().ListByUser(ctx, userID)
	if err != nil {
		return "", err
	}
	for _, addr := range list {
		if addr.IsDefault {
			return FormatAddress(addr), nil
		}
	}
	return "", ErrAddressRequired
}

func availablePoints(ctx context.Context, store repository.Store, userID int64) (int64, error) {
	account, err := store.Loyalty().FindAccount(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return account.PointsAvailable(), nil
}

func normalizePaymentMethod(raw string) (string, error) {
	method := strings.ToUpper(strings.TrimSpace(raw))
	switch method {
	case "":
		return repository.MethodCOD, nil
	case repository.MethodCOD, repository.MethodOnline, repository.MethodUPI, repository.MethodCard:
		return method, nil
	default:
		return "", ErrInvalidPaymentMethod
	}
}
