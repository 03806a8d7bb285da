package service

import (
	"github.com/shopspring/decimal"

	"github.com/creamcroissant/vibemall/internal/config"
)

// ShopSettings 是业务层使用的计价与风控参数，已解析为 decimal。
type ShopSettings struct {
	Name                  string
	Currency              string
	TaxRate               decimal.Decimal
	ShippingFee           decimal.Decimal
	FreeShippingThreshold decimal.Decimal
	PageSize              int
	PointsPerRupee        int64
	PointValue            decimal.Decimal
	ReturnWindowDays      int
	LowStockThreshold     int64
	AutoApproveBelow      int
	SuspiciousThreshold   int
	PaymentKeyID          string
	PaymentKeySecret      string
}

// DefaultShopSettings 与 config 默认值一致，测试和 CLI 直接使用。
func DefaultShopSettings() ShopSettings {
	return ShopSettings{
		Name:                  "VibeMall",
		Currency:              "INR",
		TaxRate:               decimal.RequireFromString("0.18"),
		ShippingFee:           decimal.NewFromInt(50),
		FreeShippingThreshold: decimal.NewFromInt(500),
		PageSize:              16,
		PointsPerRupee:        33,
		PointValue:            decimal.RequireFromString("0.03"),
		ReturnWindowDays:      7,
		LowStockThreshold:     5,
		AutoApproveBelow:      30,
		SuspiciousThreshold:   70,
	}
}

// NewShopSettings 从配置构建参数，缺失项回落到默认值。
func NewShopSettings(cfg *config.Config) ShopSettings {
	s := DefaultShopSettings()
	if cfg == nil {
		return s
	}
	shop := cfg.Shop
	if shop.Name != "" {
		s.Name = shop.Name
	}
	if shop.Currency != "" {
		s.Currency = shop.Currency
	}
	if shop.TaxRate != "" {
		s.TaxRate = shop.TaxRateDecimal()
	}
	if shop.ShippingFee != "" {
		s.ShippingFee = shop.ShippingFeeDecimal()
	}
	if shop.FreeShippingThreshold != "" {
		s.FreeShippingThreshold = shop.FreeShippingThresholdDecimal()
	}
	if shop.PageSize > 0 {
		s.PageSize = shop.PageSize
	}
	if shop.PointsPerRupee > 0 {
		s.PointsPerRupee = shop.PointsPerRupee
	}
	if v := shop.PointValueDecimal(); v.IsPositive() {
		s.PointValue = v
	}
	if shop.ReturnWindowDays > 0 {
		s.ReturnWindowDays = shop.ReturnWindowDays
	}
	if shop.LowStockThreshold > 0 {
		s.LowStockThreshold = shop.LowStockThreshold
	}
	if shop.Risk.AutoApproveBelow > 0 {
		s.AutoApproveBelow = shop.Risk.AutoApproveBelow
	}
	if shop.Risk.SuspiciousThreshold > 0 {
		s.SuspiciousThreshold = shop.Risk.SuspiciousThreshold
	}
	s.PaymentKeyID = cfg.Payment.KeyID
	s.PaymentKeySecret = cfg.Payment.KeySecret
	return s
}
