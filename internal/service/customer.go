package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/creamcroissant/vibemall/internal/repository"
	"github.com/creamcroissant/vibemall/internal/security"
)

// VIP 分群门槛。
var (
	vipSpentThreshold     = decimal.NewFromInt(50000)
	vipDeliveredThreshold = int64(10)
)

// CustomerService 管理用户资料以及后台客户列表、封禁和分群。
type CustomerService interface {
	Profile(ctx context.Context, userID int64) (*ProfileView, error)
	UpdateProfile(ctx context.Context, userID int64, input ProfileInput) (*ProfileView, error)
	List(ctx context.Context, filter CustomerListFilter) ([]repository.Customer, Page, error)
	SetBlocked(ctx context.Context, actorID, userID int64, blocked bool) error
	SetAdminSegments(ctx context.Context) (int64, error)
	RefreshSegments(ctx context.Context) (int64, error)
}

// ProfileView 合并 users 与 user_profiles。
type ProfileView struct {
	UserID          int64           `json:"user_id"`
	Username        string          `json:"username"`
	Email           string          `json:"email"`
	FirstName       string          `json:"first_name"`
	LastName        string          `json:"last_name"`
	FullName        string          `json:"full_name"`
	IsStaff         bool            `json:"is_staff"`
	Phone           string          `json:"phone"`
	CountryCode     string          `json:"country_code"`
	MobileNumber    string          `json:"mobile_number"`
	IsBlocked       bool            `json:"is_blocked"`
	TotalSpent      decimal.Decimal `json:"total_spent"`
	CustomerSegment string          `json:"customer_segment"`
	LastActivity    *int64          `json:"last_activity,omitempty"`
	JoinedAt        int64           `json:"joined_at"`
}

// ProfileInput 是可修改的资料字段，nil 表示不修改。
type ProfileInput struct {
	FirstName    *string
	LastName     *string
	Email        *string
	CountryCode  *string
	MobileNumber *string
}

// CustomerListFilter 是后台客户筛选条件。
type CustomerListFilter struct {
	Search  string
	Segment string
	Blocked *bool
	Page    int
	Size    int
}

type customerService struct {
	store repository.Store
	audit security.Recorder
	now   func() time.Time
}

// NewCustomerService 组装客户服务。
func NewCustomerService(store repository.Store, audit security.Recorder) CustomerService {
	return &customerService{store: store, audit: audit, now: time.Now}
}

func (s *customerService) Profile(ctx context.Context, userID int64) (*ProfileView, error) {
	if s == nil || s.store == nil {
		return nil, fmt.Errorf("customer service not configured / 客户服务未配置")
	}
	user, err := s.store.Users().FindByID(ctx, userID)
	if err != nil {
		return nil, mapNotFound(err)
	}
	profile, err := s.ensureProfile(ctx, user)
	if err != nil {
		return nil, err
	}
	return buildProfileView(user, profile), nil
}

func (s *customerService) UpdateProfile(ctx context.Context, userID int64, input ProfileInput) (*ProfileView, error) {
	if s == nil || s.store == nil {
		return nil, fmt.Errorf("customer service not configured / 客户服务未配置")
	}
	var view *ProfileView
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		user, err := tx.Users().FindByID(ctx, userID)
		if err != nil {
			return mapNotFound(err)
		}
		profile, err := tx.Profiles().FindByUserID(ctx, userID)
		if err != nil {
			return mapNotFound(err)
		}
		now := s.now().Unix()
		if input.FirstName != nil {
			user.FirstName = strings.TrimSpace(*input.FirstName)
		}
		if input.LastName != nil {
			user.LastName = strings.TrimSpace(*input.LastName)
		}
		if input.Email != nil {
			email := normalizeEmail(*input.Email)
			if email == "" || !strings.Contains(email, "@") {
				return fmt.Errorf("%w: invalid email / 邮箱无效", ErrValidation)
			}
			if !strings.EqualFold(email, user.Email) {
				if other, err := tx.Users().FindByEmail(ctx, email); err == nil && other.ID != user.ID {
					return ErrEmailExists
				} else if err != nil && !errors.Is(err, repository.ErrNotFound) {
					return err
				}
			}
			user.Email = email
		}
		if input.CountryCode != nil {
			profile.CountryCode = strings.TrimSpace(*input.CountryCode)
		}
		if input.MobileNumber != nil {
			profile.MobileNumber = strings.TrimSpace(*input.MobileNumber)
		}
		profile.Phone = profile.CountryCode + profile.MobileNumber
		user.UpdatedAt = now
		profile.UpdatedAt = now
		if err := tx.Users().Update(ctx, user); err != nil {
			return err
		}
		if err := tx.Profiles().Update(ctx, profile); err != nil {
			return err
		}
		view = buildProfileView(user, profile)
		return nil
	})
	return view, err
}

func (s *customerService) List(ctx context.Context, filter CustomerListFilter) ([]repository.Customer, Page, error) {
	if s == nil || s.store == nil {
		return nil, Page{}, fmt.Errorf("customer service not configured / 客户服务未配置")
	}
	page := newPage(filter.Page, filter.Size)
	segment := strings.ToUpper(strings.TrimSpace(filter.Segment))
	customers, total, err := s.store.Users().ListCustomers(ctx, repository.CustomerFilter{
		Search:  strings.TrimSpace(filter.Search),
		Segment: segment,
		Blocked: filter.Blocked,
		Limit:   page.Size,
		Offset:  page.Offset(),
	})
	if err != nil {
		return nil, Page{}, err
	}
	return customers, page.withTotal(total), nil
}

func (s *customerService) SetBlocked(ctx context.Context, actorID, userID int64, blocked bool) error {
	if s == nil || s.store == nil {
		return fmt.Errorf("customer service not configured / 客户服务未配置")
	}
	user, err := s.store.Users().FindByID(ctx, userID)
	if err != nil {
		return mapNotFound(err)
	}
	if user.IsStaff && blocked {
		return fmt.Errorf("%w: staff accounts cannot be blocked / 不能封禁管理员", ErrForbidden)
	}
	if _, err := s.ensureProfile(ctx, user); err != nil {
		return err
	}
	if err := s.store.Profiles().SetBlocked(ctx, userID, blocked); err != nil {
		return mapNotFound(err)
	}
	if blocked {
		// 封禁后刷新令牌全部作废
		if err := s.store.RefreshTokens().RevokeAllForUser(ctx, userID, s.now().Unix()); err != nil {
			return err
		}
	}
	if s.audit != nil {
		s.audit.Record(ctx, security.Event{
			Kind:     security.KindCustomerBlocked,
			ActorID:  actorID,
			TargetID: userID,
			Metadata: map[string]any{"blocked": blocked},
			Occurred: s.now().UTC(),
		})
	}
	return nil
}

func (s *customerService) SetAdminSegments(ctx context.Context) (int64, error) {
	if s == nil || s.store == nil {
		return 0, fmt.Errorf("customer service not configured / 客户服务未配置")
	}
	return s.store.Profiles().MarkStaffAsAdmin(ctx)
}

func (s *customerService) RefreshSegments(ctx context.Context) (int64, error) {
	if s == nil || s.store == nil {
		return 0, fmt.Errorf("customer service not configured / 客户服务未配置")
	}
	return s.store.Profiles().RefreshSegments(ctx, vipSpentThreshold, vipDeliveredThreshold)
}

// ensureProfile 为缺少资料行的旧账号补建一行。
func (s *customerService) ensureProfile(ctx context.Context, user *repository.User) (*repository.UserProfile, error) {
	profile, err := s.store.Profiles().FindByUserID(ctx, user.ID)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	now := s.now().Unix()
	segment := repository.SegmentNew
	if user.IsStaff {
		segment = repository.SegmentAdmin
	}
	profile = &repository.UserProfile{
		UserID:          user.ID,
		CountryCode:     "+91",
		CustomerSegment: segment,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.store.Profiles().Create(ctx, profile); err != nil && !errors.Is(err, repository.ErrConflict) {
		return nil, err
	}
	return profile, nil
}

func buildProfileView(user *repository.User, profile *repository.UserProfile) *ProfileView {
	return &ProfileView{
		UserID:          user.ID,
		Username:        user.Username,
		Email:           user.Email,
		FirstName:       user.FirstName,
		LastName:        user.LastName,
		FullName:        user.FullName(),
		IsStaff:         user.IsStaff,
		Phone:           profile.Phone,
		CountryCode:     profile.CountryCode,
		MobileNumber:    profile.MobileNumber,
		IsBlocked:       profile.IsBlocked,
		TotalSpent:      profile.TotalSpent,
		CustomerSegment: profile.CustomerSegment,
		LastActivity:    profile.LastActivity,
		JoinedAt:        user.CreatedAt,
	}
}
