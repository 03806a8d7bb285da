package tui

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/creamcroissant/vibemall/internal/notifier"
	"github.com/creamcroissant/vibemall/internal/repository"
	"github.com/creamcroissant/vibemall/internal/repository/sqlite/sqlitetest"
	"github.com/creamcroissant/vibemall/internal/service"
)

type console struct {
	store  repository.Store
	model  Model
	orders []*repository.Order
}

// newConsole 准备两个待审核的货到付款订单。
func newConsole(t *testing.T) *console {
	t.Helper()
	ctx := context.Background()
	store := sqlitetest.New(t)
	settings := service.DefaultShopSettings()
	mail := notifier.NewLoggerService(nil)
	now := time.Now().Unix()

	user, err := store.Users().Create(ctx, &repository.User{
		Username: "asha", Email: "asha@example.com", PasswordHash: "x",
		FirstName: "Asha", IsActive: true, CreatedAt: now, UpdatedAt: now,
	})
	require.NoError(t, err)
	require.NoError(t, store.Profiles().Create(ctx, &repository.UserProfile{
		UserID: user.ID, TotalSpent: decimal.Zero, CustomerSegment: repository.SegmentNew, CreatedAt: now, UpdatedAt: now,
	}))
	product, err := store.Products().Create(ctx, &repository.Product{
		Name: "lamp", Slug: "lamp", SKU: "LAMP-1", Price: decimal.RequireFromString("300"),
		Stock: 10, Category: repository.CategoryRecommended, IsActive: true, CreatedAt: now, UpdatedAt: now,
	})
	require.NoError(t, err)

	checkout := service.NewCheckoutService(store, mail, settings, nil, nil)
	c := &console{store: store}
	for i := 0; i < 2; i++ {
		order, err := checkout.PlaceOrder(ctx, user.ID, service.PlaceOrderInput{
			QuoteInput:      service.QuoteInput{BuyNowProductID: product.ID, BuyNowQuantity: 1},
			ShippingAddress: "12 MG Road, Bengaluru",
			PaymentMethod:   repository.MethodCOD,
		})
		require.NoError(t, err)
		require.Equal(t, repository.ApprovalPending, order.ApprovalStatus)
		c.orders = append(c.orders, order)
	}

	c.model = NewModel(Deps{
		Approvals: service.NewApprovalService(store, mail, nil, settings, nil, nil),
		Orders:    service.NewOrderService(store, mail, nil, settings, nil, nil),
		ActorID:   user.ID,
	})
	c.send(t, tea.WindowSizeMsg{Width: 120, Height: 40})
	c.run(t, c.model.loadQueue())
	return c
}

// send 把消息交给模型，并同步执行返回的命令（忽略定时器）。
func (c *console) send(t *testing.T, msg tea.Msg) {
	t.Helper()
	next, cmd := c.model.Update(msg)
	c.model = next.(Model)
	c.run(t, cmd)
}

func (c *console) run(t *testing.T, cmd tea.Cmd) {
	t.Helper()
	if cmd == nil {
		return
	}
	switch msg := cmd().(type) {
	case nil, tickMsg:
	case tea.BatchMsg:
		for _, inner := range msg {
			c.run(t, inner)
		}
	default:
		c.send(t, msg)
	}
}

func keyPress(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestConsoleLoadsQueue(t *testing.T) {
	c := newConsole(t)
	require.False(t, c.model.loading)
	require.Len(t, c.model.orders, 2)
	require.Equal(t, int64(2), c.model.page.Total)

	view := c.model.View()
	require.Contains(t, view, "Order Approval")
	require.Contains(t, view, c.orders[0].OrderNumber)
	require.Contains(t, view, "Pending: 2")
}

func TestConsoleNavigationWraps(t *testing.T) {
	c := newConsole(t)
	c.send(t, tea.KeyMsg{Type: tea.KeyUp})
	require.Equal(t, 1, c.model.selected)
	c.send(t, keyPress("j"))
	require.Equal(t, 0, c.model.selected)
}

func TestConsoleDetailAndApprove(t *testing.T) {
	c := newConsole(t)
	target := c.model.orders[0]

	c.send(t, tea.KeyMsg{Type: tea.KeyEnter})
	require.Equal(t, ViewOrderDetail, c.model.view)
	require.NotNil(t, c.model.detail)
	require.Equal(t, target.ID, c.model.detail.ID)
	view := c.model.View()
	require.Contains(t, view, "Cash on delivery")
	require.Contains(t, view, "12 MG Road")

	c.send(t, keyPress("a"))
	require.Equal(t, ViewQueue, c.model.view)
	require.Len(t, c.model.orders, 1)
	require.Contains(t, c.model.flash, "approved")

	got, err := c.store.Orders().FindByID(context.Background(), target.ID)
	require.NoError(t, err)
	require.Equal(t, repository.ApprovalApproved, got.ApprovalStatus)
	require.Equal(t, repository.OrderProcessing, got.OrderStatus)
}

func TestConsoleRejectFromQueue(t *testing.T) {
	c := newConsole(t)
	target := c.model.orders[1]
	c.send(t, keyPress("j"))
	c.send(t, keyPress("x"))

	require.Len(t, c.model.orders, 1)
	require.Equal(t, 0, c.model.selected)
	got, err := c.store.Orders().FindByID(context.Background(), target.ID)
	require.NoError(t, err)
	require.Equal(t, repository.ApprovalRejected, got.ApprovalStatus)
	require.Equal(t, repository.OrderCancelled, got.OrderStatus)
}

func TestConsoleBackLeavesDetail(t *testing.T) {
	c := newConsole(t)
	c.send(t, tea.KeyMsg{Type: tea.KeyEnter})
	c.send(t, tea.KeyMsg{Type: tea.KeyEsc})
	require.Equal(t, ViewQueue, c.model.view)
	require.Nil(t, c.model.detail)
}

func TestFormatAge(t *testing.T) {
	require.Equal(t, "never", formatAge(0, 100))
	require.Equal(t, "just now", formatAge(100, 130))
	require.Equal(t, "5m ago", formatAge(1000, 1300))
	require.Equal(t, "2h ago", formatAge(1000, 1000+7200))
	require.Equal(t, "3d ago", formatAge(1000, 1000+3*86400))
	require.Equal(t, "ab...", truncate("abcdefgh", 5))
}
