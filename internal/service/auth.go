// 文件路径: internal/service/auth.go
// 模块说明: 注册、登录、刷新令牌与活跃时间。登录按标识限流，并统计密码错误次数。
package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/creamcroissant/vibemall/internal/auth/token"
	"github.com/creamcroissant/vibemall/internal/cache"
	"github.com/creamcroissant/vibemall/internal/repository"
	"github.com/creamcroissant/vibemall/internal/security"
	"github.com/creamcroissant/vibemall/internal/support/hash"
)

// AuthService coordinates registration, login and session issuance.
type AuthService interface {
	Register(ctx context.Context, input RegisterInput) (*LoginResult, error)
	Login(ctx context.Context, input LoginInput) (*LoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (*LoginResult, error)
	Logout(ctx context.Context, refreshToken string) error
	Verify(ctx context.Context, rawToken string) (*Claims, error)
	TouchActivity(ctx context.Context, userID int64) error
	SetPassword(ctx context.Context, userID int64, password string) error
}

// RegisterInput 是注册表单。
type RegisterInput struct {
	Username        string
	Email           string
	Password        string
	ConfirmPassword string
	FirstName       string
	LastName        string
	CountryCode     string
	MobileNumber    string
	IsStaff         bool
	IP              string
	UserAgent       string
}

// LoginInput represents the payload required for user login.
type LoginInput struct {
	Identifier string
	Password   string
	IP         string
	UserAgent  string
}

// LoginResult returns issued token information and user snapshot.
type LoginResult struct {
	Token            string    `json:"token"`
	ExpiresAt        time.Time `json:"expires_at"`
	UserID           int64     `json:"user_id"`
	Email            string    `json:"email"`
	Username         string    `json:"username"`
	IsStaff          bool      `json:"is_staff"`
	RefreshToken     string    `json:"refresh_token"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

// Claims describe the authenticated user extracted from a token.
type Claims struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	IsStaff  bool   `json:"is_staff"`
}

const (
	loginLimit           = 30
	loginWindow          = time.Minute
	passwordFailLimit    = 5
	passwordFailWindow   = time.Hour
	minPasswordLength    = 8
	activityThrottle     = time.Minute
	defaultRefreshTokenT = 7 * 24 * time.Hour
)

type authService struct {
	store         repository.Store
	hasher        hash.Hasher
	tokenMgr      *token.Manager
	rate          *security.RateLimiter
	audit         security.Recorder
	loginFailures cache.Store
	activity      cache.Store
	refreshTTL    time.Duration
	now           func() time.Time
}

// NewAuthService wires repository + infrastructure helpers.
func NewAuthService(store repository.Store, hasher hash.Hasher, tokenMgr *token.Manager, rate *security.RateLimiter, audit security.Recorder, cacheStore cache.Store, refreshTTL time.Duration) AuthService {
	var loginFailures, activity cache.Store
	if cacheStore != nil {
		namespace := cacheStore.Scope("auth")
		loginFailures = namespace.Scope("password_fail")
		activity = namespace.Scope("activity")
	}
	if refreshTTL <= 0 {
		refreshTTL = defaultRefreshTokenT
	}
	return &authService{
		store:         store,
		hasher:        hasher,
		tokenMgr:      tokenMgr,
		rate:          rate,
		audit:         audit,
		loginFailures: loginFailures,
		activity:      activity,
		refreshTTL:    refreshTTL,
		now:           time.Now,
	}
}

func (s *authService) Register(ctx context.Context, input RegisterInput) (*LoginResult, error) {
	if s == nil || s.store == nil || s.hasher == nil || s.tokenMgr == nil {
		return nil, fmt.Errorf("auth service not fully configured / 认证服务未完整配置")
	}
	username := strings.TrimSpace(input.Username)
	email := normalizeEmail(input.Email)
	if username == "" || email == "" {
		return nil, fmt.Errorf("%w: username and email required / 用户名和邮箱不能为空", ErrValidation)
	}
	if input.Password != input.ConfirmPassword {
		return nil, ErrPasswordMismatch
	}
	if len(input.Password) < minPasswordLength {
		return nil, ErrWeakPassword
	}
	if _, err := s.store.Users().FindByUsername(ctx, username); err == nil {
		return nil, ErrUsernameExists
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	if _, err := s.store.Users().FindByEmail(ctx, email); err == nil {
		return nil, ErrEmailExists
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	hashed, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, err
	}
	now := s.now().Unix()
	segment := repository.SegmentNew
	if input.IsStaff {
		segment = repository.SegmentAdmin
	}
	countryCode := strings.TrimSpace(input.CountryCode)
	if countryCode == "" {
		countryCode = "+91"
	}
	mobile := strings.TrimSpace(input.MobileNumber)

	var user *repository.User
	err = s.store.InTx(ctx, func(tx repository.Store) error {
		created, err := tx.Users().Create(ctx, &repository.User{
			Username:     username,
			Email:        email,
			PasswordHash: hashed,
			FirstName:    strings.TrimSpace(input.FirstName),
			LastName:     strings.TrimSpace(input.LastName),
			IsStaff:      input.IsStaff,
			IsActive:     true,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
		if err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return ErrUsernameExists
			}
			return err
		}
		user = created
		return tx.Profiles().Create(ctx, &repository.UserProfile{
			UserID:          created.ID,
			Phone:           countryCode + mobile,
			CountryCode:     countryCode,
			MobileNumber:    mobile,
			CustomerSegment: segment,
			LastActivity:    &now,
			CreatedAt:       now,
			UpdatedAt:       now,
		})
	})
	if err != nil {
		return nil, err
	}
	return s.issueTokens(ctx, user, input.IP, input.UserAgent)
}

func (s *authService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	if s == nil || s.store == nil || s.tokenMgr == nil || s.hasher == nil {
		return nil, fmt.Errorf("auth service not fully configured / 认证服务未完整配置")
	}
	identifier := strings.TrimSpace(input.Identifier)
	if identifier == "" || input.Password == "" {
		return nil, fmt.Errorf("%w: account and password required / 账号和密码不能为空", ErrValidation)
	}
	limitKey := strings.ToLower(identifier)
	if s.loginFailureCount(ctx, limitKey) >= passwordFailLimit {
		s.recordAudit(ctx, security.KindLoginThrottled, 0, input, map[string]any{"identifier": identifier, "reason": "password_limit"})
		return nil, fmt.Errorf("%w: retry after %d minutes / 请在 %d 分钟后重试", ErrRateLimited, int(passwordFailWindow.Minutes()), int(passwordFailWindow.Minutes()))
	}
	if s.rate != nil {
		res, err := s.rate.Allow(ctx, security.Key("login", limitKey), loginLimit, loginWindow)
		if err != nil {
			return nil, err
		}
		if !res.Allowed {
			s.recordAudit(ctx, security.KindLoginThrottled, 0, input, map[string]any{"identifier": identifier, "limit": loginLimit})
			return nil, ErrRateLimited
		}
	}

	user, err := s.findUserByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.bumpLoginFailure(ctx, limitKey)
			s.recordAudit(ctx, security.KindLoginFailure, 0, input, map[string]any{"identifier": identifier, "reason": "not_found"})
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := s.hasher.Compare(user.PasswordHash, input.Password); err != nil {
		if errors.Is(err, hash.ErrPasswordMismatch) || errors.Is(err, hash.ErrUnknownHash) {
			s.bumpLoginFailure(ctx, limitKey)
			s.recordAudit(ctx, security.KindLoginFailure, user.ID, input, map[string]any{"reason": "password"})
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.IsActive {
		s.recordAudit(ctx, security.KindLoginFailure, user.ID, input, map[string]any{"reason": "inactive"})
		return nil, ErrAccountDisabled
	}
	if blocked, err := s.isBlocked(ctx, user.ID); err != nil {
		return nil, err
	} else if blocked {
		s.recordAudit(ctx, security.KindLoginFailure, user.ID, input, map[string]any{"reason": "blocked"})
		return nil, ErrAccountBlocked
	}

	// 旧站 pbkdf2 哈希登录成功后换成 bcrypt
	if s.hasher.NeedsRehash(user.PasswordHash) {
		if rehashed, err := s.hasher.Hash(input.Password); err == nil {
			_ = s.store.Users().UpdatePassword(ctx, user.ID, rehashed)
		}
	}

	result, err := s.issueTokens(ctx, user, input.IP, input.UserAgent)
	if err != nil {
		return nil, err
	}
	_ = s.store.Users().TouchLogin(ctx, user.ID, s.now().Unix())
	s.clearLoginFailure(ctx, limitKey)
	s.recordAudit(ctx, security.KindLoginSuccess, user.ID, input, nil)
	return result, nil
}

func (s *authService) Refresh(ctx context.Context, refreshToken string) (*LoginResult, error) {
	if s == nil || s.store == nil || s.tokenMgr == nil {
		return nil, fmt.Errorf("auth service not fully configured / 认证服务未完整配置")
	}
	raw := strings.TrimSpace(refreshToken)
	if raw == "" {
		return nil, ErrInvalidRefreshToken
	}
	hashed := hashRefreshToken(raw)
	record, err := s.store.RefreshTokens().FindByHash(ctx, hashed)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, err
	}
	now := s.now()
	if record.RevokedAt != nil || record.ExpiresAt <= now.Unix() {
		return nil, ErrInvalidRefreshToken
	}
	user, err := s.store.Users().FindByID(ctx, record.UserID)
	if err != nil {
		return nil, ErrInvalidRefreshToken
	}
	if !user.IsActive {
		return nil, ErrAccountDisabled
	}
	if blocked, err := s.isBlocked(ctx, user.ID); err != nil {
		return nil, err
	} else if blocked {
		return nil, ErrAccountBlocked
	}
	// 刷新即轮换
	if err := s.store.RefreshTokens().Revoke(ctx, hashed, now.Unix()); err != nil {
		return nil, err
	}
	return s.issueTokens(ctx, user, record.IP, record.UserAgent)
}

func (s *authService) Logout(ctx context.Context, refreshToken string) error {
	if s == nil || s.store == nil {
		return fmt.Errorf("auth service not configured / 认证服务未配置")
	}
	raw := strings.TrimSpace(refreshToken)
	if raw == "" {
		return nil
	}
	err := s.store.RefreshTokens().Revoke(ctx, hashRefreshToken(raw), s.now().Unix())
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	return err
}

func (s *authService) Verify(ctx context.Context, rawToken string) (*Claims, error) {
	if s == nil || s.store == nil || s.tokenMgr == nil {
		return nil, fmt.Errorf("auth service not fully configured / 认证服务未完整配置")
	}
	tokenStr := strings.TrimSpace(rawToken)
	if tokenStr == "" {
		return nil, ErrUnauthorized
	}
	principal, err := s.tokenMgr.Verify(tokenStr)
	if err != nil {
		return nil, ErrUnauthorized
	}
	user, err := s.store.Users().FindByID(ctx, principal.UserID)
	if err != nil {
		return nil, ErrUnauthorized
	}
	if !user.IsActive {
		return nil, ErrAccountDisabled
	}
	// 后台可以随时封禁客户，这里每次都要查资料表
	if !user.IsStaff {
		blocked, err := s.isBlocked(ctx, user.ID)
		if err != nil {
			return nil, err
		}
		if blocked {
			return nil, ErrAccountBlocked
		}
	}
	return &Claims{UserID: user.ID, Username: user.Username, Email: user.Email, IsStaff: user.IsStaff}, nil
}

// TouchActivity 更新 last_activity，同一用户每分钟最多写一次。
func (s *authService) TouchActivity(ctx context.Context, userID int64) error {
	if s == nil || s.store == nil || userID <= 0 {
		return nil
	}
	key := fmt.Sprintf("%d", userID)
	if s.activity != nil {
		if s.activity.Marked(ctx, key) {
			return nil
		}
	}
	if err := s.store.Profiles().TouchActivity(ctx, userID, s.now().Unix()); err != nil {
		return err
	}
	if s.activity != nil {
		s.activity.Mark(ctx, key, activityThrottle)
	}
	return nil
}

func (s *authService) SetPassword(ctx context.Context, userID int64, password string) error {
	if s == nil || s.store == nil || s.hasher == nil {
		return fmt.Errorf("auth service not configured / 认证服务未配置")
	}
	if len(password) < minPasswordLength {
		return ErrWeakPassword
	}
	hashed, err := s.hasher.Hash(password)
	if err != nil {
		return err
	}
	if err := s.store.Users().UpdatePassword(ctx, userID, hashed); err != nil {
		return mapNotFound(err)
	}
	// 改密后旧会话全部失效
	return s.store.RefreshTokens().RevokeAllForUser(ctx, userID, s.now().Unix())
}

func (s *authService) issueTokens(ctx context.Context, user *repository.User, ip, userAgent string) (*LoginResult, error) {
	sessionID := uuid.NewString()
	signed, claims, err := s.tokenMgr.Issue(token.Principal{
		UserID:    user.ID,
		Username:  user.Username,
		IsStaff:   user.IsStaff,
		SessionID: sessionID,
	})
	if err != nil {
		return nil, err
	}
	now := s.now()
	refresh := strings.ReplaceAll(uuid.NewString()+uuid.NewString(), "-", "")
	refreshExpires := now.Add(s.refreshTTL)
	if err := s.store.RefreshTokens().Create(ctx, &repository.RefreshToken{
		UserID:    user.ID,
		TokenHash: hashRefreshToken(refresh),
		IP:        ip,
		UserAgent: userAgent,
		ExpiresAt: refreshExpires.Unix(),
		CreatedAt: now.Unix(),
	}); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}
	return &LoginResult{
		Token:            signed,
		ExpiresAt:        claims.ExpiresAt.Time,
		UserID:           user.ID,
		Email:            user.Email,
		Username:         user.Username,
		IsStaff:          user.IsStaff,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExpires.UTC(),
	}, nil
}

func (s *authService) findUserByIdentifier(ctx context.Context, identifier string) (*repository.User, error) {
	if strings.Contains(identifier, "@") {
		user, err := s.store.Users().FindByEmail(ctx, normalizeEmail(identifier))
		if err == nil || !errors.Is(err, repository.ErrNotFound) {
			return user, err
		}
	}
	return s.store.Users().FindByUsername(ctx, identifier)
}

func (s *authService) isBlocked(ctx context.Context, userID int64) (bool, error) {
	profile, err := s.store.Profiles().FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return profile.IsBlocked, nil
}

func (s *authService) loginFailureCount(ctx context.Context, key string) int64 {
	if s.loginFailures == nil || key == "" {
		return 0
	}
	return s.loginFailures.Count(ctx, key)
}

func (s *authService) bumpLoginFailure(ctx context.Context, key string) {
	if s.loginFailures == nil || key == "" {
		return
	}
	_, _ = s.loginFailures.Incr(ctx, key, 1, passwordFailWindow)
}

func (s *authService) clearLoginFailure(ctx context.Context, key string) {
	if s.loginFailures == nil || key == "" {
		return
	}
	s.loginFailures.Forget(ctx, key)
}

func (s *authService) recordAudit(ctx context.Context, kind string, actorID int64, input LoginInput, meta map[string]any) {
	if s.audit == nil {
		return
	}
	s.audit.Record(ctx, security.Event{
		Kind:      kind,
		ActorID:   actorID,
		IP:        input.IP,
		UserAgent: input.UserAgent,
		Metadata:  meta,
		Occurred:  s.now().UTC(),
	})
}

func hashRefreshToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
