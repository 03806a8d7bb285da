package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/creamcroissant/vibemall/internal/repository"
)

func TestWriteOrders(t *testing.T) {
	orders := []repository.Order{
		{
			OrderNumber:    "ORD20240115001",
			OrderDate:      time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC).Unix(),
			CustomerName:   "Asha Rao",
			Email:          "asha@example.com",
			PaymentMethod:  repository.MethodCOD,
			PaymentStatus:  repository.PaymentPending,
			OrderStatus:    repository.OrderPending,
			ApprovalStatus: repository.ApprovalPending,
			RiskScore:      30,
			Subtotal:       decimal.NewFromInt(1000),
			Tax:            decimal.NewFromInt(180),
			ShippingCost:   decimal.Zero,
			Discount:       decimal.Zero,
			TotalAmount:    decimal.NewFromInt(1180),
		},
		{OrderNumber: "ORD20240115002", IsSuspicious: true, TotalAmount: decimal.RequireFromString("99.50")},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteOrders(&buf, orders))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(OrdersSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.Equal(t, "Order Number", rows[0][0])
	require.Equal(t, "ORD20240115001", rows[1][0])
	require.Equal(t, "2024-01-15 10:30", rows[1][1])
	require.Equal(t, "No", rows[1][9])
	require.Equal(t, "Yes", rows[2][9])

	total, err := f.GetCellValue(OrdersSheet, "P2", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	require.Equal(t, "1180", total)
}

func TestWriteOrdersEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteOrders(&buf, nil))
	require.NotZero(t, buf.Len())
}

func TestFilename(t *testing.T) {
	require.Equal(t, "orders_20240115_103000.xlsx", Filename(time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)))
}
