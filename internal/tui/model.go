package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/creamcroissant/vibemall/internal/repository"
	"github.com/creamcroissant/vibemall/internal/service"
)

// ViewType 表示当前视图
type ViewType int

const (
	ViewQueue       ViewType = iota // 待审核订单列表
	ViewOrderDetail                 // 订单详情
)

// Deps 是审核台依赖的服务；ActorID 记入审核人。
type Deps struct {
	Approvals service.ApprovalService
	Orders    service.OrderService
	ActorID   int64
}

// Model 是审核台的主模型
type Model struct {
	deps Deps

	// 待审核队列
	orders   []repository.Order
	page     service.Page
	pageNum  int
	selected int

	// 视图状态
	view   ViewType
	detail *service.OrderDetail

	// 终端尺寸
	width  int
	height int

	detailScrollOffset int

	loading bool
	err     error
	flash   string

	keys keyMap
}

// keyMap 定义全部按键绑定
type keyMap struct {
	Up       key.Binding
	Down     key.Binding
	Enter    key.Binding
	Back     key.Binding
	Approve  key.Binding
	Reject   key.Binding
	NextPage key.Binding
	PrevPage key.Binding
	Quit     key.Binding
	Refresh  key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Enter: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "details"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc", "backspace"),
			key.WithHelp("esc", "back"),
		),
		Approve: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "approve"),
		),
		Reject: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "reject"),
		),
		NextPage: key.NewBinding(
			key.WithKeys("right", "n"),
			key.WithHelp("→/n", "next page"),
		),
		PrevPage: key.NewBinding(
			key.WithKeys("left", "p"),
			key.WithHelp("←/p", "prev page"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
	}
}

// NewModel 创建审核台模型
func NewModel(deps Deps) Model {
	return Model{
		deps:    deps,
		view:    ViewQueue,
		pageNum: 1,
		keys:    defaultKeyMap(),
		loading: true,
	}
}

// Init 实现 tea.Model
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.loadQueue(),
		tickCmd(),
	)
}

// 消息类型

type queueLoadedMsg struct {
	orders []repository.Order
	page   service.Page
}

type detailLoadedMsg struct {
	detail *service.OrderDetail
}

type decidedMsg struct {
	action string
	number string
	count  int
}

type errorMsg struct {
	err error
}

type tickMsg time.Time

const requestTimeout = 10 * time.Second

// 命令

func (m Model) loadQueue() tea.Cmd {
	approvals, page := m.deps.Approvals, m.pageNum
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		orders, p, err := approvals.Queue(ctx, page)
		if err != nil {
			return errorMsg{err: err}
		}
		return queueLoadedMsg{orders: orders, page: p}
	}
}

func (m Model) loadDetail(orderID int64) tea.Cmd {
	orders := m.deps.Orders
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		detail, err := orders.Get(ctx, orderID)
		if err != nil {
			return errorMsg{err: err}
		}
		return detailLoadedMsg{detail: detail}
	}
}

// decide 对单个订单执行审核通过或拒绝。
func (m Model) decide(order repository.Order, approve bool) tea.Cmd {
	deps := m.deps
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		ids := []int64{order.ID}
		var (
			count  int
			err    error
			action = "approved"
		)
		if approve {
			count, err = deps.Approvals.Approve(ctx, deps.ActorID, ids, "approved from console")
		} else {
			action = "rejected"
			count, err = deps.Approvals.Reject(ctx, deps.ActorID, ids, "rejected from console")
		}
		if err != nil {
			return errorMsg{err: err}
		}
		return decidedMsg{action: action, number: order.OrderNumber, count: count}
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(15*time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// current 返回当前操作对象：详情页为详情订单，列表页为选中行。
func (m Model) current() (repository.Order, bool) {
	if m.view == ViewOrderDetail && m.detail != nil && m.detail.Order != nil {
		return *m.detail.Order, true
	}
	if m.selected >= 0 && m.selected < len(m.orders) {
		return m.orders[m.selected], true
	}
	return repository.Order{}, false
}
