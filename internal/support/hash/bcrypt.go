// 文件路径: internal/support/hash/bcrypt.go
// 模块说明: 密码哈希。新密码用 bcrypt，旧站迁移过来的 pbkdf2_sha256 哈希仍可校验并在登录后重新哈希。
package hash

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/crypto/pbkdf2"
)

// Hasher 抽象密码哈希能力。
type Hasher interface {
	Hash(password string) (string, error)
	Compare(hashed, password string) error
	NeedsRehash(hashed string) bool
}

// BcryptHasher 使用 golang.org/x/crypto/bcrypt 实现 Hasher。
type BcryptHasher struct {
	cost int
}

var (
	// ErrPasswordMismatch 表示密码与哈希不匹配。
	ErrPasswordMismatch = errors.New("password mismatch / 密码不匹配")
	// ErrUnknownHash 表示无法识别的哈希格式。
	ErrUnknownHash = errors.New("unknown password hash format / 无法识别的密码哈希格式")
)

const legacyPBKDF2Prefix = "pbkdf2_sha256$"

// NewBcryptHasher 校验 cost 并返回基于 bcrypt 的哈希器。
func NewBcryptHasher(cost int) (*BcryptHasher, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost must be between %d and %d / bcrypt cost 必须在 %d 到 %d 之间", bcrypt.MinCost, bcrypt.MaxCost, bcrypt.MinCost, bcrypt.MaxCost)
	}
	return &BcryptHasher{cost: cost}, nil
}

// Hash 生成密码的 bcrypt 哈希。
func (h *BcryptHasher) Hash(password string) (string, error) {
	if h == nil {
		return "", fmt.Errorf("bcrypt hasher is required / bcrypt hasher 不能为空")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("password hash failed: %w / 密码哈希失败", err)
	}
	return string(hashed), nil
}

// Compare 校验明文密码与哈希是否匹配。
func (h *BcryptHasher) Compare(hashed, password string) error {
	if h == nil {
		return fmt.Errorf("bcrypt hasher is required / bcrypt hasher 不能为空")
	}
	if strings.HasPrefix(hashed, legacyPBKDF2Prefix) {
		return comparePBKDF2(hashed, password)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hashed), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrPasswordMismatch
		}
		return fmt.Errorf("hash comparison failed: %w / 校验哈希失败", err)
	}
	return nil
}

// NeedsRehash 判断哈希是否需要换成当前 cost 的 bcrypt。
func (h *BcryptHasher) NeedsRehash(hashed string) bool {
	if h == nil {
		return false
	}
	if strings.HasPrefix(hashed, legacyPBKDF2Prefix) {
		return true
	}
	cost, err := bcrypt.Cost([]byte(hashed))
	if err != nil {
		return true
	}
	return cost != h.cost
}

// comparePBKDF2 校验 pbkdf2_sha256$<iterations>$<salt>$<base64> 格式。
func comparePBKDF2(encoded, password string) error {
	parts := strings.Split(encoded, "$")
	if len(parts) != 4 {
		return ErrUnknownHash
	}
	iterations, err := strconv.Atoi(parts[1])
	if err != nil || iterations <= 0 {
		return ErrUnknownHash
	}
	want, err := base64.StdEncoding.DecodeString(parts[3])
	if err != nil || len(want) == 0 {
		return ErrUnknownHash
	}
	got := pbkdf2.Key([]byte(password), []byte(parts[2]), iterations, len(want), sha256.New)
	if subtle.ConstantTimeCompare(got, want) != 1 {
		return ErrPasswordMismatch
	}
	return nil
}
