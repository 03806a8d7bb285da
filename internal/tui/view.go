package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/creamcroissant/vibemall/internal/repository"
	"github.com/creamcroissant/vibemall/internal/service"
)

// View 实现 tea.Model
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}
	if m.view == ViewOrderDetail && m.detail != nil {
		return m.renderDetailView()
	}
	return m.renderQueueView()
}

func (m Model) renderQueueView() string {
	var b strings.Builder

	b.WriteString(styleHeader.Width(m.width).Render("  VibeMall Order Approval"))
	b.WriteString("\n\n")
	m.renderStatus(&b)

	tableHeader := fmt.Sprintf(
		"  %-16s │ %-20s │ %-6s │ %10s │ %-12s │ %s",
		"Order", "Customer", "Method", "Total", "Placed", "Risk",
	)
	b.WriteString(styleTableHeader.Width(m.width).Render(tableHeader))
	b.WriteString("\n")
	b.WriteString(styleMuted().Render(repeat("─", m.width)))
	b.WriteString("\n")

	if len(m.orders) == 0 {
		b.WriteString(styleMuted().Render("  No orders are waiting for approval."))
		b.WriteString("\n")
	} else {
		visibleRows := max(m.height-12, 5)
		startIdx := 0
		if m.selected >= visibleRows {
			startIdx = m.selected - visibleRows + 1
		}
		endIdx := min(startIdx+visibleRows, len(m.orders))

		for i := startIdx; i < endIdx; i++ {
			b.WriteString(m.renderQueueRow(m.orders[i], i == m.selected))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(m.renderQueueSummary())
	b.WriteString("\n\n")
	b.WriteString(styleHelp.Render("  [↑/↓] Navigate  [Enter] Details  [a] Approve  [x] Reject  [←/→] Page  [r] Refresh  [q] Quit"))
	return b.String()
}

func (m Model) renderStatus(b *strings.Builder) {
	if m.err != nil {
		b.WriteString(styleDanger.Render(fmt.Sprintf("  Error: %v", m.err)))
		b.WriteString("\n\n")
	}
	if m.flash != "" {
		b.WriteString(styleSafe.Render("  " + m.flash))
		b.WriteString("\n\n")
	}
	if m.loading {
		b.WriteString(styleMuted().Render("  Loading..."))
		b.WriteString("\n\n")
	}
}

func (m Model) renderQueueRow(order repository.Order, selected bool) string {
	level := service.RiskLevel(order.RiskScore, order.IsSuspicious)
	row := fmt.Sprintf(
		"  %-16s │ %-20s │ %-6s │ %10s │ %-12s │ %s %d%%",
		order.OrderNumber,
		truncate(customerName(order), 20),
		order.PaymentMethod,
		formatMoney(order.TotalAmount.StringFixed(2)),
		formatAge(order.OrderDate, time.Now().Unix()),
		RiskIcon(level),
		order.RiskScore,
	)
	if selected {
		return styleTableRowSelected.Width(m.width).Render("▶" + row[1:])
	}
	return styleTableRow.Render(row)
}

func (m Model) renderQueueSummary() string {
	safe, warning, danger := 0, 0, 0
	for _, o := range m.orders {
		switch service.RiskLevel(o.RiskScore, o.IsSuspicious) {
		case "success":
			safe++
		case "warning":
			warning++
		case "danger":
			danger++
		}
	}
	pages := max(m.page.Pages, 1)
	return fmt.Sprintf(
		"  %s %d Safe  %s %d Warning  %s %d Suspicious  │  Page %d/%d  │  Pending: %d",
		styleSafe.Render("●"), safe,
		styleWarning.Render("◐"), warning,
		styleDanger.Render("○"), danger,
		m.pageNum, pages, m.page.Total,
	)
}

func (m Model) renderDetailView() string {
	var b strings.Builder
	d := m.detail

	b.WriteString(styleHeader.Width(m.width).Render("  Order " + d.OrderNumber))
	b.WriteString("\n\n")
	m.renderStatus(&b)

	lines := m.detailLines()
	viewport := m.detailViewport()
	start := min(m.detailScrollOffset, max(len(lines)-viewport, 0))
	end := min(start+viewport, len(lines))
	b.WriteString(strings.Join(lines[start:end], "\n"))
	b.WriteString("\n\n")
	if len(lines) > viewport {
		b.WriteString(styleMuted().Render(fmt.Sprintf("  Lines %d-%d of %d", start+1, end, len(lines))))
		b.WriteString("\n")
	}
	b.WriteString(styleHelp.Render("  [↑/↓] Scroll  [a] Approve  [x] Reject  [r] Refresh  [esc] Back  [q] Quit"))
	return b.String()
}

func (m Model) detailViewport() int {
	return max(m.height-8, 5)
}

func (m Model) maxDetailScroll() int {
	if m.detail == nil {
		return 0
	}
	return max(len(m.detailLines())-m.detailViewport(), 0)
}

// detailLines 把订单详情展开为逐行文本，便于滚动。
func (m Model) detailLines() []string {
	d := m.detail
	if d == nil || d.Order == nil {
		return nil
	}
	var lines []string
	section := func(title string) {
		if len(lines) > 0 {
			lines = append(lines, "")
		}
		lines = append(lines, "  "+styleSection.Render(title))
	}
	field := func(label, value string) {
		lines = append(lines, "  "+styleLabel.Render(label)+styleValue.Render(value))
	}

	section("Summary")
	field("Customer", customerName(*d.Order))
	field("Email", d.Email)
	field("Status", d.OrderStatus+" / "+d.ApprovalStatus)
	field("Payment", d.PaymentMethod+" ("+d.PaymentStatus+")")
	field("Placed", time.Unix(d.OrderDate, 0).UTC().Format("2006-01-02 15:04 MST"))
	if d.IsResell {
		field("Resold for", d.ResellFromName+" "+d.ResellFromPhone)
	}

	section("Risk")
	lines = append(lines, "  "+ScoreBar(d.RiskScore, 30)+" "+RiskBadge(d.RiskLevel, d.RiskLabel))
	for _, reason := range splitReasons(d.SuspiciousReason) {
		lines = append(lines, "  • "+reason)
	}

	section("Items")
	for _, item := range d.Items {
		name := item.ProductName
		if item.Size != "" || item.Color != "" {
			name += " [" + strings.Trim(item.Size+" "+item.Color, " ") + "]"
		}
		lines = append(lines, fmt.Sprintf("  %-36s x%-3d %12s", truncate(name, 36), item.Quantity, formatMoney(item.Subtotal.StringFixed(2))))
	}

	section("Totals")
	field("Subtotal", formatMoney(d.Subtotal.StringFixed(2)))
	field("Tax", formatMoney(d.Tax.StringFixed(2)))
	field("Shipping", formatMoney(d.ShippingCost.StringFixed(2)))
	if d.Discount.IsPositive() {
		field("Discount", "-"+formatMoney(d.Discount.StringFixed(2))+fmt.Sprintf(" (%d pts)", d.PointsRedeemed))
	}
	field("Total", formatMoney(d.TotalAmount.StringFixed(2)))

	section("Shipping address")
	for _, l := range strings.Split(d.ShippingAddress, "\n") {
		lines = append(lines, "  "+l)
	}
	if d.CustomerNotes != "" {
		section("Customer notes")
		lines = append(lines, "  "+d.CustomerNotes)
	}

	if len(d.History) > 0 {
		section("History")
		for _, h := range d.History {
			from := h.OldStatus
			if from == "" {
				from = "-"
			}
			lines = append(lines, fmt.Sprintf("  %s  %s → %s  %s",
				time.Unix(h.CreatedAt, 0).UTC().Format("01-02 15:04"), from, h.NewStatus, h.Notes))
		}
	}
	return lines
}

func customerName(o repository.Order) string {
	if o.CustomerName != "" {
		return o.CustomerName
	}
	return fmt.Sprintf("user #%d", o.UserID)
}

func splitReasons(raw string) []string {
	var out []string
	for _, r := range strings.Split(raw, ";") {
		if r = strings.TrimSpace(r); r != "" {
			out = append(out, r)
		}
	}
	return out
}

func formatMoney(amount string) string {
	return "₹" + amount
}

// formatAge 把时间戳格式化为 "5m ago" 这类相对时间
func formatAge(ts, now int64) string {
	if ts == 0 {
		return "never"
	}
	diff := now - ts
	switch {
	case diff < 60:
		return "just now"
	case diff < 3600:
		return fmt.Sprintf("%dm ago", diff/60)
	case diff < 86400:
		return fmt.Sprintf("%dh ago", diff/3600)
	default:
		return fmt.Sprintf("%dd ago", diff/86400)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func repeat(s string, n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat(s, n)
}
