package invoice

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/creamcroissant/vibemall/internal/repository"
)

func TestRenderProducesPDF(t *testing.T) {
	order := &repository.Order{
		OrderNumber:     "ORD20240115001",
		OrderDate:       time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC).Unix(),
		PaymentMethod:   repository.MethodCOD,
		PaymentStatus:   repository.PaymentPaid,
		ShippingAddress: "Asha Rao\n12 MG Road\nBengaluru, KA - 560001\nIndia",
		Subtotal:        decimal.NewFromInt(1000),
		Tax:             decimal.NewFromInt(180),
		ShippingCost:    decimal.Zero,
		Discount:        decimal.RequireFromString("3.30"),
		TotalAmount:     decimal.RequireFromString("1176.70"),
	}
	items := []repository.OrderItem{
		{ProductName: "Wireless Earbuds", ProductPrice: decimal.NewFromInt(500), Quantity: 2, Color: "Black", Subtotal: decimal.NewFromInt(1000)},
	}

	var buf bytes.Buffer
	err := Render(&buf, Document{
		ShopName:      "VibeMall",
		InvoiceNumber: "INV20240116001",
		IssuedAt:      time.Date(2024, 1, 16, 0, 0, 0, 0, time.UTC),
		Order:         order,
		Items:         items,
	})
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}

func TestRenderRequiresOrder(t *testing.T) {
	require.Error(t, Render(&bytes.Buffer{}, Document{}))
}

func TestHelpers(t *testing.T) {
	require.Equal(t, "ORD20240115001_invoice.pdf", Filename("ORD20240115001"))
	require.Equal(t, "Rs. 1499.00", Money(decimal.NewFromInt(1499)))
	require.Equal(t, "Size: M, Color: Red", variant(repository.OrderItem{Size: "M", Color: "Red"}))
	require.Equal(t, "abcd...", truncate("abcdefghij", 7))
	require.Equal(t, "short", truncate("short", 7))
}
