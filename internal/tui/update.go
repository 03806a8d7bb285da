package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// Update implements tea.Model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case queueLoadedMsg:
		m.loading = false
		m.err = nil
		m.orders = msg.orders
		m.page = msg.page
		// 最后一页被处理空后回退一页
		if len(m.orders) == 0 && m.pageNum > 1 {
			m.pageNum--
			m.loading = true
			return m, m.loadQueue()
		}
		if m.selected >= len(m.orders) {
			m.selected = max(len(m.orders)-1, 0)
		}
		return m, nil

	case detailLoadedMsg:
		m.loading = false
		m.err = nil
		m.detail = msg.detail
		m.view = ViewOrderDetail
		m.detailScrollOffset = 0
		return m, nil

	case decidedMsg:
		m.loading = true
		if msg.count == 0 {
			m.flash = fmt.Sprintf("%s was already processed", msg.number)
		} else {
			m.flash = fmt.Sprintf("%s %s", msg.number, msg.action)
		}
		m.view = ViewQueue
		m.detail = nil
		return m, m.loadQueue()

	case errorMsg:
		m.loading = false
		m.err = msg.err
		return m, nil

	case tickMsg:
		// 详情页不自动刷新，避免打断阅读
		if m.view == ViewQueue {
			return m, tea.Batch(m.loadQueue(), tickCmd())
		}
		return m, tickCmd()
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Up):
		return m.handleUp()

	case key.Matches(msg, m.keys.Down):
		return m.handleDown()

	case key.Matches(msg, m.keys.Enter):
		return m.handleEnter()

	case key.Matches(msg, m.keys.Back):
		return m.handleBack()

	case key.Matches(msg, m.keys.Approve):
		return m.handleDecision(true)

	case key.Matches(msg, m.keys.Reject):
		return m.handleDecision(false)

	case key.Matches(msg, m.keys.NextPage):
		if m.view == ViewQueue && m.pageNum < m.page.Pages {
			m.pageNum++
			m.selected = 0
			m.loading = true
			return m, m.loadQueue()
		}

	case key.Matches(msg, m.keys.PrevPage):
		if m.view == ViewQueue && m.pageNum > 1 {
			m.pageNum--
			m.selected = 0
			m.loading = true
			return m, m.loadQueue()
		}

	case key.Matches(msg, m.keys.Refresh):
		m.loading = true
		m.flash = ""
		if m.view == ViewOrderDetail && m.detail != nil {
			return m, m.loadDetail(m.detail.ID)
		}
		return m, m.loadQueue()
	}

	return m, nil
}

func (m Model) handleUp() (tea.Model, tea.Cmd) {
	switch m.view {
	case ViewQueue:
		if len(m.orders) > 0 {
			m.selected--
			if m.selected < 0 {
				m.selected = len(m.orders) - 1
			}
		}
	case ViewOrderDetail:
		if m.detailScrollOffset > 0 {
			m.detailScrollOffset--
		}
	}
	return m, nil
}

func (m Model) handleDown() (tea.Model, tea.Cmd) {
	switch m.view {
	case ViewQueue:
		if len(m.orders) > 0 {
			m.selected++
			if m.selected >= len(m.orders) {
				m.selected = 0
			}
		}
	case ViewOrderDetail:
		if m.detailScrollOffset < m.maxDetailScroll() {
			m.detailScrollOffset++
		}
	}
	return m, nil
}

func (m Model) handleEnter() (tea.Model, tea.Cmd) {
	if m.view != ViewQueue || len(m.orders) == 0 {
		return m, nil
	}
	m.loading = true
	return m, m.loadDetail(m.orders[m.selected].ID)
}

func (m Model) handleBack() (tea.Model, tea.Cmd) {
	if m.view == ViewOrderDetail {
		m.view = ViewQueue
		m.detail = nil
		m.detailScrollOffset = 0
	}
	return m, nil
}

func (m Model) handleDecision(approve bool) (tea.Model, tea.Cmd) {
	order, ok := m.current()
	if !ok || m.loading {
		return m, nil
	}
	m.loading = true
	m.flash = ""
	return m, m.decide(order, approve)
}
