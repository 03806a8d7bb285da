package bootstrap

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

// SecretSource 标记密钥来源，启动日志会打印它。
type SecretSource string

const (
	SecretSourceConfig    SecretSource = "config"
	SecretSourceSettings  SecretSource = "settings"
	SecretSourceGenerated SecretSource = "generated"
)

const (
	placeholderSecret     = "change-me"
	signingKeySettingKey  = "auth_signing_key"
	secretSettingCategory = "security"
	generatedSecretBytes  = 32
)

// secretSpec describes one persisted secret living in the settings table.
type secretSpec struct {
	settingKey string
	envHint    string
	configured string
}

type secretResolver struct {
	db   *sql.DB
	now  func() time.Time
	rand io.Reader
}

// ResolveJWTSigningKey returns the key used for storefront access tokens.
// Order: auth.signing_key (config or env) > settings table > a freshly generated key persisted once.
func ResolveJWTSigningKey(ctx context.Context, db *sql.DB, configuredKey string, now func() time.Time) (string, SecretSource, error) {
	r := secretResolver{db: db, now: now, rand: rand.Reader}
	return r.resolve(ctx, secretSpec{
		settingKey: signingKeySettingKey,
		envHint:    "VIBEMALL_AUTH_SIGNING_KEY",
		configured: configuredKey,
	})
}

func (r secretResolver) resolve(ctx context.Context, spec secretSpec) (string, SecretSource, error) {
	if v := strings.TrimSpace(spec.configured); v != "" && v != placeholderSecret {
		return v, SecretSourceConfig, nil
	}
	if r.db == nil {
		return "", "", fmt.Errorf("%s: database required when no key is configured (set %s)", spec.settingKey, spec.envHint)
	}
	if r.now == nil {
		r.now = time.Now
	}
	if r.rand == nil {
		r.rand = rand.Reader
	}

	stored, err := r.read(ctx, spec.settingKey)
	if err != nil {
		return "", "", fmt.Errorf("%s: read settings: %w", spec.settingKey, err)
	}
	if stored != "" {
		return stored, SecretSourceSettings, nil
	}

	buf := make([]byte, generatedSecretBytes)
	if _, err := io.ReadFull(r.rand, buf); err != nil {
		return "", "", fmt.Errorf("%s: generate: %w", spec.settingKey, err)
	}
	generated := hex.EncodeToString(buf)

	// 另一个进程可能已经抢先写入，这里只在空值时覆盖，然后以库里的值为准
	const upsert = `INSERT INTO settings(key, value, category, updated_at) VALUES(?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
		WHERE TRIM(settings.value) = ''`
	if _, err := r.db.ExecContext(ctx, upsert, spec.settingKey, generated, secretSettingCategory, r.now().Unix()); err != nil {
		return "", "", fmt.Errorf("%s: persist: %w (set %s)", spec.settingKey, err, spec.envHint)
	}

	stored, err = r.read(ctx, spec.settingKey)
	if err != nil {
		return "", "", fmt.Errorf("%s: reread settings: %w", spec.settingKey, err)
	}
	switch stored {
	case "":
		return "", "", fmt.Errorf("%s: missing after persist (set %s)", spec.settingKey, spec.envHint)
	case generated:
		return stored, SecretSourceGenerated, nil
	default:
		return stored, SecretSourceSettings, nil
	}
}

func (r secretResolver) read(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(value), nil
}
