package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/shopspring/decimal"

	"github.com/creamcroissant/vibemall/internal/repository"
)

// Page 描述分页结果。
type Page struct {
	Number int   `json:"page"`
	Size   int   `json:"page_size"`
	Total  int64 `json:"total"`
	Pages  int   `json:"pages"`
}

// Offset returns the row offset for the page.
func (p Page) Offset() int {
	if p.Number <= 1 {
		return 0
	}
	return (p.Number - 1) * p.Size
}

// ParsePage turns a query string value into a page number; garbage means page 1.
func ParsePage(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 {
		return 1
	}
	return n
}

func newPage(number, size int) Page {
	if size <= 0 {
		size = 20
	}
	if number < 1 {
		number = 1
	}
	return Page{Number: number, Size: size}
}

// withTotal 计算总页数，并把越界页码夹到最后一页。
func (p Page) withTotal(total int64) Page {
	p.Total = total
	p.Pages = int((total + int64(p.Size) - 1) / int64(p.Size))
	if p.Pages < 1 {
		p.Pages = 1
	}
	if p.Number > p.Pages {
		p.Number = p.Pages
	}
	return p
}

func mapNotFound(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

// sanitizeText 去掉评论、问答和备注中的全部 HTML。
func sanitizeText(input string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return ""
	}
	return strings.TrimSpace(plainTextPolicy().Sanitize(trimmed))
}

var plainTextPolicy = sync.OnceValue(func() *bluemonday.Policy {
	policy := bluemonday.StrictPolicy()
	policy.AddSpaceWhenStrippingTag(true)
	return policy
})

// formatNumber 生成 PREFIX + YYYYMMDD + 至少三位序号，例如 ORD20240115001。
func formatNumber(prefix string, day time.Time, seq int64) string {
	return fmt.Sprintf("%s%s%03d", prefix, day.UTC().Format("20060102"), seq)
}

func nextNumber(ctx context.Context, seqs repository.SequenceRepository, prefix string, now time.Time) (string, error) {
	day := now.UTC().Format("20060102")
	seq, err := seqs.Next(ctx, prefix, day)
	if err != nil {
		return "", fmt.Errorf("next %s number: %w", strings.ToLower(prefix), err)
	}
	return formatNumber(prefix, now, seq), nil
}

// rupees 统一金额展示，例如 ₹1499.00。
func rupees(d decimal.Decimal) string {
	return "₹" + d.StringFixed(2)
}

func int64Ptr(v int64) *int64 {
	return &v
}

// unixDate 格式化为 "January 2, 2006"，0 返回空串。
func unixDate(ts int64) string {
	if ts <= 0 {
		return ""
	}
	return time.Unix(ts, 0).UTC().Format("January 2, 2006")
}
