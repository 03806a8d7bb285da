package config

import (
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
)

// Config 汇总应用的全部配置。
type Config struct {
	HTTP    HTTPConfig    `mapstructure:"http"`
	Log     LogConfig     `mapstructure:"log"`
	DB      DBConfig      `mapstructure:"database"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Shop    ShopConfig    `mapstructure:"shop"`
	Payment PaymentConfig `mapstructure:"payment"`
	Events  EventsConfig  `mapstructure:"events"`
	Mail    MailConfig    `mapstructure:"mail"`
	Jobs    JobsConfig    `mapstructure:"jobs"`
	Admin   AdminConfig   `mapstructure:"admin"`
	I18n    I18nConfig    `mapstructure:"i18n"`
}

// I18nConfig 定义默认语言与外部语言包目录。
type I18nConfig struct {
	DefaultLang string `mapstructure:"default_lang"`
	LocalesDir  string `mapstructure:"locales_dir"`
}

// MetricsConfig 定义 Prometheus 指标配置。
type MetricsConfig struct {
	Enabled   bool      `mapstructure:"enabled"`
	Namespace string    `mapstructure:"namespace"`
	Subsystem string    `mapstructure:"subsystem"`
	Token     string    `mapstructure:"token"`
	Buckets   []float64 `mapstructure:"buckets"`
}

// HTTPConfig 定义 HTTP 服务配置。
type HTTPConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	RateLimit       int           `mapstructure:"rate_limit"`
	RateWindow      time.Duration `mapstructure:"rate_window"`
}

// LogConfig 定义日志配置。
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Format      string `mapstructure:"format"`
	AddSource   bool   `mapstructure:"add_source"`
	Environment string `mapstructure:"environment"`
}

// DBConfig 定义数据库配置。
type DBConfig struct {
	Driver string `mapstructure:"driver"`
	Path   string `mapstructure:"path"`
}

// AuthConfig 定义认证配置。
type AuthConfig struct {
	SigningKey string        `mapstructure:"signing_key"`
	TokenTTL   time.Duration `mapstructure:"token_ttl"`
	RefreshTTL time.Duration `mapstructure:"refresh_ttl"`
	Issuer     string        `mapstructure:"issuer"`
	Audience   string        `mapstructure:"audience"`
	Leeway     time.Duration `mapstructure:"leeway"`
	BcryptCost int           `mapstructure:"bcrypt_cost"`
}

// ShopConfig 定义店铺计价、积分与风控阈值。
type ShopConfig struct {
	Name                  string     `mapstructure:"name"`
	Currency              string     `mapstructure:"currency"`
	TaxRate               string     `mapstructure:"tax_rate"`
	ShippingFee           string     `mapstructure:"shipping_fee"`
	FreeShippingThreshold string     `mapstructure:"free_shipping_threshold"`
	PageSize              int        `mapstructure:"page_size"`
	PointsPerRupee        int64      `mapstructure:"points_per_rupee"`
	PointValue            string     `mapstructure:"point_value"`
	ReturnWindowDays      int        `mapstructure:"return_window_days"`
	LowStockThreshold     int64      `mapstructure:"low_stock_threshold"`
	Risk                  RiskConfig `mapstructure:"risk"`
}

// RiskConfig 定义订单风控评分阈值。
type RiskConfig struct {
	AutoApproveBelow    int `mapstructure:"auto_approve_below"`
	SuspiciousThreshold int `mapstructure:"suspicious_threshold"`
}

// PaymentConfig 定义支付网关签名所需的密钥。
type PaymentConfig struct {
	KeyID     string `mapstructure:"key_id"`
	KeySecret string `mapstructure:"key_secret"`
}

// EventsConfig 定义订单事件投递目标。
type EventsConfig struct {
	AMQPURL  string `mapstructure:"amqp_url"`
	Exchange string `mapstructure:"exchange"`
}

// MailConfig 定义 SMTP 发信配置；Host 为空时邮件只写日志。
type MailConfig struct {
	Host     string `mapstructure:"smtp_host"`
	Port     int    `mapstructure:"smtp_port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

// JobsConfig 定义后台任务的 cron 表达式。
type JobsConfig struct {
	EmailDispatch    string `mapstructure:"email_dispatch"`
	OutboxRelay      string `mapstructure:"outbox_relay"`
	PriceAlerts      string `mapstructure:"price_alerts"`
	PaymentReconcile string `mapstructure:"payment_reconcile"`
	SegmentRefresh   string `mapstructure:"segment_refresh"`
	TokenCleanup     string `mapstructure:"token_cleanup"`
}

// AdminConfig 定义后台面板元信息。
type AdminConfig struct {
	Version string `mapstructure:"version"`
}

func (c LogConfig) SlogLevel() slog.Level {
	switch c.Level {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// TaxRateDecimal 解析税率，非法值按 0 处理。
func (c ShopConfig) TaxRateDecimal() decimal.Decimal {
	return parseDecimal(c.TaxRate)
}

// ShippingFeeDecimal 解析基础运费。
func (c ShopConfig) ShippingFeeDecimal() decimal.Decimal {
	return parseDecimal(c.ShippingFee)
}

// FreeShippingThresholdDecimal 解析包邮门槛。
func (c ShopConfig) FreeShippingThresholdDecimal() decimal.Decimal {
	return parseDecimal(c.FreeShippingThreshold)
}

// PointValueDecimal 解析每个积分对应的金额。
func (c ShopConfig) PointValueDecimal() decimal.Decimal {
	return parseDecimal(c.PointValue)
}

func parseDecimal(raw string) decimal.Decimal {
	if raw == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero
	}
	return d
}
