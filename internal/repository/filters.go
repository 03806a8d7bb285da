package repository

import "github.com/shopspring/decimal"

// ProductFilter constrains catalog searches. Nil pointers mean "no bound".
type ProductFilter struct {
	Category   string
	MinPrice   *decimal.Decimal
	MaxPrice   *decimal.Decimal
	MinRating  *float64
	Query      string
	ActiveOnly bool
	Limit      int
	Offset     int
}

// OrderFilter constrains order listings; UserID restricts to one customer.
type OrderFilter struct {
	UserID         *int64
	Status         string
	PaymentStatus  string
	PaymentMethod  string
	ApprovalStatus string
	Suspicious     *bool
	IsResell       *bool
	Search         string
	From           int64
	To             int64
	Limit          int
	Offset         int
}

// CustomerFilter constrains admin customer listings.
type CustomerFilter struct {
	Search  string
	Segment string
	Blocked *bool
	Limit   int
	Offset  int
}

// ReviewFilter constrains review listings.
type ReviewFilter struct {
	ProductID *int64
	Approved  *bool
	Limit     int
	Offset    int
}

// QuestionFilter constrains Q&A listings.
type QuestionFilter struct {
	ProductID *int64
	Approved  *bool
	Answered  *bool
	Limit     int
	Offset    int
}

// ReturnFilter constrains return request listings.
type ReturnFilter struct {
	UserID  *int64
	OrderID *int64
	Status  string
	Limit   int
	Offset  int
}

// BannerFilter constrains banner listings. Page matches the page itself or BOTH.
type BannerFilter struct {
	Page       string
	ActiveOnly bool
}

// ChatThreadFilter constrains support thread listings. UnreadFrom selects whose unread messages are counted.
type ChatThreadFilter struct {
	UserID     *int64
	Status     string
	UnreadFrom string
	Limit      int
	Offset     int
}
