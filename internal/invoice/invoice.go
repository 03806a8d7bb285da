// 文件路径: internal/invoice/invoice.go
// 模块说明: 订单发票 PDF 渲染。内置字体不含卢比符号，金额前缀使用 "Rs."。
package invoice

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"

	"github.com/creamcroissant/vibemall/internal/repository"
)

// Document 是渲染发票所需的数据。
type Document struct {
	ShopName      string
	InvoiceNumber string
	IssuedAt      time.Time
	Order         *repository.Order
	Items         []repository.OrderItem
}

// Filename 返回 {order_number}_invoice.pdf。
func Filename(orderNumber string) string {
	return orderNumber + "_invoice.pdf"
}

// Render 把发票写入 w。
func Render(w io.Writer, doc Document) error {
	if doc.Order == nil {
		return fmt.Errorf("invoice: order is required")
	}
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Invoice "+doc.InvoiceNumber, false)
	pdf.SetAuthor(doc.ShopName, false)
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Helvetica", "B", 20)
	pdf.CellFormat(0, 10, tr(doc.ShopName), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, "TAX INVOICE", "", 1, "L", false, 0, "")
	pdf.Ln(4)

	order := doc.Order
	meta := [][2]string{
		{"Invoice Number", doc.InvoiceNumber},
		{"Invoice Date", doc.IssuedAt.UTC().Format("02 Jan 2006")},
		{"Order Number", order.OrderNumber},
		{"Order Date", time.Unix(order.OrderDate, 0).UTC().Format("02 Jan 2006")},
		{"Payment", order.PaymentMethod + " / " + order.PaymentStatus},
	}
	for _, row := range meta {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(40, 6, row[0], "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.CellFormat(0, 6, tr(row[1]), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	addressBlock(pdf, tr, order)
	pdf.Ln(4)

	widths := []float64{90, 20, 35, 35}
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(232, 238, 247)
	for i, h := range []string{"Item", "Qty", "Unit Price", "Subtotal"} {
		align := "R"
		if i == 0 {
			align = "L"
		}
		pdf.CellFormat(widths[i], 8, h, "1", 0, align, true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 10)
	for _, item := range doc.Items {
		name := item.ProductName
		if extra := variant(item); extra != "" {
			name += " (" + extra + ")"
		}
		pdf.CellFormat(widths[0], 7, tr(truncate(name, 55)), "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[1], 7, fmt.Sprint(item.Quantity), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[2], 7, Money(item.ProductPrice), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[3], 7, Money(item.Subtotal), "1", 1, "R", false, 0, "")
	}
	pdf.Ln(2)

	totals := []struct {
		label string
		value string
		bold  bool
	}{
		{"Subtotal", Money(order.Subtotal), false},
		{"Tax", Money(order.Tax), false},
		{"Shipping", Money(order.ShippingCost), false},
		{"Discount", "-" + Money(order.Discount), false},
		{"Total", Money(order.TotalAmount), true},
	}
	for _, row := range totals {
		style := ""
		if row.bold {
			style = "B"
		}
		pdf.SetFont("Helvetica", style, 10)
		pdf.CellFormat(widths[0]+widths[1]+widths[2], 7, row.label, "", 0, "R", false, 0, "")
		pdf.CellFormat(widths[3], 7, row.value, "", 1, "R", false, 0, "")
	}

	pdf.Ln(8)
	pdf.SetFont("Helvetica", "I", 9)
	pdf.CellFormat(0, 5, tr("Thank you for shopping with "+doc.ShopName+"."), "", 1, "C", false, 0, "")

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("invoice: render: %w", err)
	}
	return pdf.Output(w)
}

func addressBlock(pdf *fpdf.Fpdf, tr func(string) string, order *repository.Order) {
	billing := order.BillingAddress
	if billing == "" {
		billing = order.ShippingAddress
	}
	y := pdf.GetY()
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(90, 6, "Bill To", "", 0, "L", false, 0, "")
	pdf.CellFormat(90, 6, "Ship To", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.SetXY(15, y+6)
	pdf.MultiCell(85, 5, tr(billing), "", "L", false)
	left := pdf.GetY()
	pdf.SetXY(105, y+6)
	pdf.MultiCell(85, 5, tr(order.ShippingAddress), "", "L", false)
	pdf.SetY(max(left, pdf.GetY()))
}

// Money 格式化发票金额，例如 Rs. 1499.00。
func Money(d decimal.Decimal) string {
	return "Rs. " + d.StringFixed(2)
}

func variant(item repository.OrderItem) string {
	parts := make([]string, 0, 2)
	if item.Size != "" {
		parts = append(parts, "Size: "+item.Size)
	}
	if item.Color != "" {
		parts = append(parts, "Color: "+item.Color)
	}
	return strings.Join(parts, ", ")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
