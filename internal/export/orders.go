// 文件路径: internal/export/orders.go
// 模块说明: 后台订单导出为 XLSX。
package export

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/creamcroissant/vibemall/internal/repository"
)

// OrdersSheet 是工作表名称。
const OrdersSheet = "Orders"

var orderHeaders = []string{
	"Order Number", "Order Date", "Customer", "Email", "Payment Method", "Payment Status", "Order Status",
	"Approval Status", "Risk Score", "Suspicious", "Resell", "Subtotal", "Tax", "Shipping", "Discount", "Total",
	"Tracking Number", "Courier",
}

// WriteOrders 把订单写成一个工作表并输出到 w。金额按数值写入，便于表格内求和。
func WriteOrders(w io.Writer, orders []repository.Order) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", OrdersSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#E8EEF7"}},
	})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	money, err := f.NewStyle(&excelize.Style{NumFmt: 4})
	if err != nil {
		return fmt.Errorf("money style: %w", err)
	}

	if err := f.SetSheetRow(OrdersSheet, "A1", &orderHeaders); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	last, _ := excelize.CoordinatesToCellName(len(orderHeaders), 1)
	if err := f.SetCellStyle(OrdersSheet, "A1", last, header); err != nil {
		return err
	}

	for i, o := range orders {
		row := i + 2
		cell, _ := excelize.CoordinatesToCellName(1, row)
		values := []any{
			o.OrderNumber,
			time.Unix(o.OrderDate, 0).UTC().Format("2006-01-02 15:04"),
			o.CustomerName,
			o.Email,
			o.PaymentMethod,
			o.PaymentStatus,
			o.OrderStatus,
			o.ApprovalStatus,
			o.RiskScore,
			yesNo(o.IsSuspicious),
			yesNo(o.IsResell),
			o.Subtotal.InexactFloat64(),
			o.Tax.InexactFloat64(),
			o.ShippingCost.InexactFloat64(),
			o.Discount.InexactFloat64(),
			o.TotalAmount.InexactFloat64(),
			o.TrackingNumber,
			o.CourierName,
		}
		if err := f.SetSheetRow(OrdersSheet, cell, &values); err != nil {
			return fmt.Errorf("write row %d: %w", row, err)
		}
	}
	if len(orders) > 0 {
		from, _ := excelize.CoordinatesToCellName(12, 2)
		to, _ := excelize.CoordinatesToCellName(16, len(orders)+1)
		if err := f.SetCellStyle(OrdersSheet, from, to, money); err != nil {
			return err
		}
	}
	if err := f.SetColWidth(OrdersSheet, "A", "D", 22); err != nil {
		return err
	}
	if err := f.SetPanes(OrdersSheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return err
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

// Filename 返回带日期的导出文件名。
func Filename(now time.Time) string {
	return fmt.Sprintf("orders_%s.xlsx", now.UTC().Format("20060102_150405"))
}

func yesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}
