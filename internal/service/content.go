// 文件路径: internal/service/content.go
// 模块说明: 首页内容：轮播、卖点、横幅与分类图标的前台读取和后台维护。
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/creamcroissant/vibemall/internal/repository"
)

const defaultSliderButton = "HOT DEALS"

// ContentService 管理首页与商品列表页的展示内容。
type ContentService interface {
	Banners(ctx context.Context, page string) ([]repository.Banner, error)

	ListSliders(ctx context.Context) ([]repository.Slider, error)
	SaveSlider(ctx context.Context, slider repository.Slider) (*repository.Slider, error)
	DeleteSlider(ctx context.Context, id int64) error

	ListFeatures(ctx context.Context) ([]repository.Feature, error)
	SaveFeature(ctx context.Context, feature repository.Feature) (*repository.Feature, error)
	DeleteFeature(ctx context.Context, id int64) error

	ListBanners(ctx context.Context) ([]repository.Banner, error)
	SaveBanner(ctx context.Context, banner repository.Banner) (*repository.Banner, error)
	DeleteBanner(ctx context.Context, id int64) error

	ListCategoryIcons(ctx context.Context) ([]repository.CategoryIcon, error)
	SaveCategoryIcon(ctx context.Context, icon repository.CategoryIcon) (*repository.CategoryIcon, error)
	DeleteCategoryIcon(ctx context.Context, id int64) error
}

type contentService struct {
	store repository.Store
}

// NewContentService 组装首页内容服务。
func NewContentService(store repository.Store) ContentService {
	return &contentService{store: store}
}

var errContentNotConfigured = errors.New("content service not configured / 首页内容服务未配置")

// Banners 返回某个页面（HOME 或 SHOP）启用中的横幅，包含 BOTH。
func (s *contentService) Banners(ctx context.Context, page string) ([]repository.Banner, error) {
	if s == nil || s.store == nil {
		return nil, errContentNotConfigured
	}
	page = strings.ToUpper(strings.TrimSpace(page))
	if page == "" {
		page = repository.BannerPageHome
	}
	if page != repository.BannerPageHome && page != repository.BannerPageShop {
		return nil, fmt.Errorf("%w: unknown banner page / 横幅页面无效", ErrValidation)
	}
	return s.store.Content().ListBanners(ctx, repository.BannerFilter{Page: page, ActiveOnly: true})
}

func (s *contentService) ListSliders(ctx context.Context) ([]repository.Slider, error) {
	if s == nil || s.store == nil {
		return nil, errContentNotConfigured
	}
	return s.store.Content().ListSliders(ctx, false)
}

// SaveSlider 新建或更新轮播；标题、图片和按钮链接必填。
func (s *contentService) SaveSlider(ctx context.Context, slider repository.Slider) (*repository.Slider, error) {
	if s == nil || s.store == nil {
		return nil, errContentNotConfigured
	}
	slider.Title = sanitizeText(slider.Title)
	slider.Subtitle = sanitizeText(slider.Subtitle)
	slider.Description = sanitizeText(slider.Description)
	slider.TopButtonText = sanitizeText(slider.TopButtonText)
	slider.ImageURL = strings.TrimSpace(slider.ImageURL)
	slider.TopButtonURL = strings.TrimSpace(slider.TopButtonURL)
	if slider.Title == "" || slider.ImageURL == "" || slider.TopButtonURL == "" {
		return nil, fmt.Errorf("%w: title, image and button link are required / 标题、图片和按钮链接不能为空", ErrValidation)
	}
	if slider.TopButtonText == "" {
		slider.TopButtonText = defaultSliderButton
	}
	saved, err := s.store.Content().SaveSlider(ctx, &slider)
	return saved, mapNotFound(err)
}

func (s *contentService) DeleteSlider(ctx context.Context, id int64) error {
	if s == nil || s.store == nil {
		return errContentNotConfigured
	}
	return mapNotFound(s.store.Content().DeleteSlider(ctx, id))
}

func (s *contentService) ListFeatures(ctx context.Context) ([]repository.Feature, error) {
	if s == nil || s.store == nil {
		return nil, errContentNotConfigured
	}
	return s.store.Content().ListFeatures(ctx, false)
}

func (s *contentService) SaveFeature(ctx context.Context, feature repository.Feature) (*repository.Feature, error) {
	if s == nil || s.store == nil {
		return nil, errContentNotConfigured
	}
	feature.Title = sanitizeText(feature.Title)
	feature.Description = sanitizeText(feature.Description)
	feature.IconClass = strings.TrimSpace(feature.IconClass)
	if feature.Title == "" || feature.IconClass == "" {
		return nil, fmt.Errorf("%w: title and icon are required / 标题和图标不能为空", ErrValidation)
	}
	saved, err := s.store.Content().SaveFeature(ctx, &feature)
	return saved, mapNotFound(err)
}

func (s *contentService) DeleteFeature(ctx context.Context, id int64) error {
	if s == nil || s.store == nil {
		return errContentNotConfigured
	}
	return mapNotFound(s.store.Content().DeleteFeature(ctx, id))
}

func (s *contentService) ListBanners(ctx context.Context) ([]repository.Banner, error) {
	if s == nil || s.store == nil {
		return nil, errContentNotConfigured
	}
	return s.store.Content().ListBanners(ctx, repository.BannerFilter{})
}

// SaveBanner 校验尺寸、页面和按钮样式，缺省为大横幅、首页、无按钮。
func (s *contentService) SaveBanner(ctx context.Context, banner repository.Banner) (*repository.Banner, error) {
	if s == nil || s.store == nil {
		return nil, errContentNotConfigured
	}
	banner.Title = sanitizeText(banner.Title)
	banner.Subtitle = sanitizeText(banner.Subtitle)
	banner.BadgeText = sanitizeText(banner.BadgeText)
	banner.ButtonText = sanitizeText(banner.ButtonText)
	banner.ImageURL = strings.TrimSpace(banner.ImageURL)
	banner.LinkURL = strings.TrimSpace(banner.LinkURL)
	banner.BackgroundColor = strings.TrimSpace(banner.BackgroundColor)
	if banner.Title == "" || banner.ImageURL == "" {
		return nil, fmt.Errorf("%w: title and image are required / 标题和图片不能为空", ErrValidation)
	}
	if banner.LinkURL == "" {
		banner.LinkURL = "#"
	}

	banner.BannerType = strings.ToUpper(strings.TrimSpace(banner.BannerType))
	switch banner.BannerType {
	case "":
		banner.BannerType = repository.BannerLarge
	case repository.BannerSmall, repository.BannerMedium, repository.BannerLarge:
	default:
		return nil, fmt.Errorf("%w: unknown banner type / 横幅尺寸无效", ErrValidation)
	}
	banner.PageType = strings.ToUpper(strings.TrimSpace(banner.PageType))
	switch banner.PageType {
	case "":
		banner.PageType = repository.BannerPageHome
	case repository.BannerPageHome, repository.BannerPageShop, repository.BannerPageBoth:
	default:
		return nil, fmt.Errorf("%w: unknown banner page / 横幅页面无效", ErrValidation)
	}
	banner.ButtonStyle = strings.TrimSpace(banner.ButtonStyle)
	switch banner.ButtonStyle {
	case "":
		banner.ButtonStyle = repository.ButtonStyleNone
	case repository.ButtonStyleHotDeals, repository.ButtonStyleShopDeals, repository.ButtonStyleNone:
	default:
		return nil, fmt.Errorf("%w: unknown button style / 按钮样式无效", ErrValidation)
	}

	saved, err := s.store.Content().SaveBanner(ctx, &banner)
	return saved, mapNotFound(err)
}

func (s *contentService) DeleteBanner(ctx context.Context, id int64) error {
	if s == nil || s.store == nil {
		return errContentNotConfigured
	}
	return mapNotFound(s.store.Content().DeleteBanner(ctx, id))
}

func (s *contentService) ListCategoryIcons(ctx context.Context) ([]repository.CategoryIcon, error) {
	if s == nil || s.store == nil {
		return nil, errContentNotConfigured
	}
	return s.store.Content().ListCategoryIcons(ctx, false)
}

// SaveCategoryIcon 每个分类最多一个图标。
func (s *contentService) SaveCategoryIcon(ctx context.Context, icon repository.CategoryIcon) (*repository.CategoryIcon, error) {
	if s == nil || s.store == nil {
		return nil, errContentNotConfigured
	}
	icon.Name = sanitizeText(icon.Name)
	icon.IconClass = strings.TrimSpace(icon.IconClass)
	icon.CategoryKey = strings.ToUpper(strings.TrimSpace(icon.CategoryKey))
	icon.BackgroundGradient = strings.TrimSpace(icon.BackgroundGradient)
	icon.IconColor = strings.TrimSpace(icon.IconColor)
	if icon.Name == "" || icon.IconClass == "" {
		return nil, fmt.Errorf("%w: name and icon are required / 名称和图标不能为空", ErrValidation)
	}
	if !repository.ValidCategory(icon.CategoryKey) {
		return nil, fmt.Errorf("%w: unknown category / 分类无效", ErrValidation)
	}
	if icon.IconColor == "" {
		icon.IconColor = "#ffffff"
	}
	saved, err := s.store.Content().SaveCategoryIcon(ctx, &icon)
	if errors.Is(err, repository.ErrConflict) {
		return nil, ErrCategoryIconExists
	}
	return saved, mapNotFound(err)
}

func (s *contentService) DeleteCategoryIcon(ctx context.Context, id int64) error {
	if s == nil || s.store == nil {
		return errContentNotConfigured
	}
	return mapNotFound(s.store.Content().DeleteCategoryIcon(ctx, id))
}
