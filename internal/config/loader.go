package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Load reads config.yaml, the legacy .env file and VIBEMALL_* environment variables.
func Load() (*Config, error) {
	return LoadFrom("")
}

// LoadFrom behaves like Load but reads an explicit config file when path is not empty.
func LoadFrom(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/vibemall/")
	}

	v.SetEnvPrefix("VIBEMALL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("payment.key_id", "VIBEMALL_PAYMENT_KEY_ID", "RAZORPAY_KEY_ID"); err != nil {
		return nil, fmt.Errorf("bind env payment.key_id: %w", err)
	}
	if err := v.BindEnv("payment.key_secret", "VIBEMALL_PAYMENT_KEY_SECRET", "RAZORPAY_KEY_SECRET"); err != nil {
		return nil, fmt.Errorf("bind env payment.key_secret: %w", err)
	}
	if err := v.BindEnv("events.amqp_url", "VIBEMALL_EVENTS_AMQP_URL", "AMQP_URL"); err != nil {
		return nil, fmt.Errorf("bind env events.amqp_url: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || path != "" {
			return nil, fmt.Errorf("read config: %w", err)
		}
		// 没有配置文件也可以，依赖环境变量与默认值。
	}

	if err := loadDotEnv(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.addr", "0.0.0.0:8080")
	v.SetDefault("http.shutdown_timeout", "15s")
	v.SetDefault("http.rate_limit", 120)
	v.SetDefault("http.rate_window", "1m")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.environment", "production")
	v.SetDefault("log.add_source", false)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "data/vibemall.db")

	v.SetDefault("auth.signing_key", "change-me")
	v.SetDefault("auth.token_ttl", "24h")
	v.SetDefault("auth.refresh_ttl", "168h")
	v.SetDefault("auth.issuer", "vibemall")
	v.SetDefault("auth.audience", "vibemall-client")
	v.SetDefault("auth.leeway", "30s")
	v.SetDefault("auth.bcrypt_cost", 12)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.namespace", "vibemall")
	v.SetDefault("metrics.subsystem", "http")
	v.SetDefault("metrics.token", "")

	v.SetDefault("shop.name", "VibeMall")
	v.SetDefault("shop.currency", "INR")
	v.SetDefault("shop.tax_rate", "0.18")
	v.SetDefault("shop.shipping_fee", "50")
	v.SetDefault("shop.free_shipping_threshold", "500")
	v.SetDefault("shop.page_size", 16)
	v.SetDefault("shop.points_per_rupee", 33)
	v.SetDefault("shop.point_value", "0.03")
	v.SetDefault("shop.return_window_days", 7)
	v.SetDefault("shop.low_stock_threshold", 5)
	v.SetDefault("shop.risk.auto_approve_below", 30)
	v.SetDefault("shop.risk.suspicious_threshold", 70)

	v.SetDefault("events.exchange", "vibemall.orders")

	v.SetDefault("mail.smtp_host", "")
	v.SetDefault("mail.smtp_port", 587)
	v.SetDefault("mail.username", "")
	v.SetDefault("mail.password", "")
	v.SetDefault("mail.from", "VibeMall <noreply@vibemall.local>")

	v.SetDefault("jobs.email_dispatch", "@every 10s")
	v.SetDefault("jobs.outbox_relay", "@every 15s")
	v.SetDefault("jobs.price_alerts", "@every 30m")
	v.SetDefault("jobs.payment_reconcile", "0 30 2 * * *")
	v.SetDefault("jobs.segment_refresh", "0 0 3 * * *")
	v.SetDefault("jobs.token_cleanup", "@daily")

	v.SetDefault("admin.version", "1.0.0")

	v.SetDefault("i18n.default_lang", "en-US")
	v.SetDefault("i18n.locales_dir", "data/locales")
}

func loadDotEnv(v *viper.Viper) error {
	candidates := []string{".", ".."}
	for _, path := range candidates {
		file := filepath.Clean(filepath.Join(path, ".env"))
		if _, err := os.Stat(file); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return fmt.Errorf("stat .env: %w", err)
		}

		// .env 用独立的 viper 实例读取，避免和主配置类型混淆
		envViper := viper.New()
		envViper.SetConfigFile(file)
		envViper.SetConfigType("env")
		if err := envViper.ReadInConfig(); err != nil {
			return fmt.Errorf("read .env: %w", err)
		}
		bindLegacyEnv(v, envViper)
	}
	return nil
}

// bindLegacyEnv maps the flat variables used by the previous deployment onto config keys.
func bindLegacyEnv(target *viper.Viper, source *viper.Viper) {
	mappings := map[string]string{
		"HTTP_ADDR":           "http.addr",
		"SHUTDOWN_TIMEOUT":    "http.shutdown_timeout",
		"LOG_LEVEL":           "log.level",
		"LOG_FORMAT":          "log.format",
		"DEBUG":               "log.environment",
		"DB_PATH":             "database.path",
		"SECRET_KEY":          "auth.signing_key",
		"AUTH_TOKEN_TTL":      "auth.token_ttl",
		"RAZORPAY_KEY_ID":     "payment.key_id",
		"RAZORPAY_KEY_SECRET": "payment.key_secret",
		"SITE_NAME":           "shop.name",
		"AMQP_URL":            "events.amqp_url",
		"EMAIL_HOST":          "mail.smtp_host",
		"EMAIL_PORT":          "mail.smtp_port",
		"EMAIL_HOST_USER":     "mail.username",
		"EMAIL_HOST_PASSWORD": "mail.password",
		"DEFAULT_FROM_EMAIL":  "mail.from",
	}

	for oldKey, newKey := range mappings {
		val := source.GetString(oldKey)
		if val == "" {
			continue
		}
		if oldKey == "DEBUG" {
			if strings.EqualFold(val, "true") {
				val = "development"
			} else {
				val = "production"
			}
		}
		// 真实环境变量仍然优先（AutomaticEnv 在 Get 时生效）
		target.Set(newKey, val)
	}
}
