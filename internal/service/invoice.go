package service

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/creamcroissant/vibemall/internal/invoice"
	"github.com/creamcroissant/vibemall/internal/repository"
)

// InvoiceService 生成订单发票。
type InvoiceService interface {
	Generate(ctx context.Context, userID int64, isAdmin bool, orderNumber string) (*InvoiceFile, error)
}

// InvoiceFile 是渲染好的发票。
type InvoiceFile struct {
	Filename      string
	InvoiceNumber string
	Content       []byte
}

type invoiceService struct {
	store    repository.Store
	settings ShopSettings
	now      func() time.Time
}

// NewInvoiceService 创建发票服务。
func NewInvoiceService(store repository.Store, settings ShopSettings) InvoiceService {
	return &invoiceService{store: store, settings: settings, now: time.Now}
}

// Generate 首次生成时分配 INV 编号；非管理员只能下载自己的订单。
func (s *invoiceService) Generate(ctx context.Context, userID int64, isAdmin bool, orderNumber string) (*InvoiceFile, error) {
	if s == nil || s.store == nil {
		return nil, fmt.Errorf("invoice service not configured / 发票服务未配置")
	}
	var (
		order *repository.Order
		items []repository.OrderItem
	)
	now := s.now()
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		var err error
		order, err = tx.Orders().FindByNumber(ctx, orderNumber)
		if err != nil {
			return mapNotFound(err)
		}
		if !isAdmin && order.UserID != userID {
			return ErrNotFound
		}
		if items, err = tx.Orders().ListItems(ctx, order.ID); err != nil {
			return err
		}
		if order.InvoiceNumber != "" {
			return nil
		}
		if order.InvoiceNumber, err = nextNumber(ctx, tx.Sequences(), "INV", now); err != nil {
			return err
		}
		order.UpdatedAt = now.Unix()
		return mapNotFound(tx.Orders().Update(ctx, order))
	})
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := invoice.Render(&buf, invoice.Document{
		ShopName:      s.settings.Name,
		InvoiceNumber: order.InvoiceNumber,
		IssuedAt:      now,
		Order:         order,
		Items:         items,
	}); err != nil {
		return nil, err
	}
	return &InvoiceFile{
		Filename:      invoice.Filename(order.OrderNumber),
		InvoiceNumber: order.InvoiceNumber,
		Content:       buf.Bytes(),
	}, nil
}
