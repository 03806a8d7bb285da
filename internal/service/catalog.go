// 文件路径: internal/service/catalog.go
// 模块说明: 商品目录：前台搜索、详情、首页与分类计数，后台商品维护和 YAML 导入。
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/creamcroissant/vibemall/internal/cache"
	"github.com/creamcroissant/vibemall/internal/repository"
)

const (
	categoryCountsKey = "category_counts"
	categoryCountsTTL = 5 * time.Minute
	specialOfferLimit = 5
	topDealsLimit     = 8
	detailReviewLimit = 50
)

// CatalogService 提供前台商品浏览与后台商品维护。
type CatalogService interface {
	Search(ctx context.Context, input SearchInput) (*SearchResult, error)
	Get(ctx context.Context, id int64, viewerID int64) (*ProductDetail, error)
	SpecialOffers(ctx context.Context) ([]repository.Product, error)
	CategoryCounts(ctx context.Context) ([]CategoryCount, error)
	Home(ctx context.Context) (*HomeView, error)

	Create(ctx context.Context, input ProductInput) (*repository.Product, error)
	Update(ctx context.Context, id int64, input ProductInput) (*repository.Product, error)
	Delete(ctx context.Context, id int64) error
	SetImages(ctx context.Context, id int64, urls []string) ([]repository.ProductImage, error)
	AdjustRating(ctx context.Context, id int64, rating float64) error
	SetCountdown(ctx context.Context, title string, endTime int64) (*repository.DealCountdown, error)
	SetMainPageSection(ctx context.Context, section string, productIDs []int64) error
	Import(ctx context.Context, r io.Reader) (*ImportResult, error)
}

// SearchInput 保留查询串原值，无法解析的数字条件直接忽略。
type SearchInput struct {
	Category  string
	MinPrice  string
	MaxPrice  string
	MinRating string
	Query     string
	Page      string
}

// SearchResult 是一页搜索结果。
type SearchResult struct {
	Products   []repository.Product `json:"products"`
	Page       Page                 `json:"page"`
	Categories []CategoryCount      `json:"categories"`
	Banners    []repository.Banner  `json:"banners"`
}

// CategoryCount 是侧边栏分类及其在售商品数。
type CategoryCount struct {
	Code  string `json:"code"`
	Label string `json:"label"`
	Count int64  `json:"count"`
}

// ProductDetail 是商品详情页数据。
type ProductDetail struct {
	Product         repository.Product        `json:"product"`
	Images          []repository.ProductImage `json:"images"`
	Reviews         []repository.Review       `json:"reviews"`
	Questions       []repository.Question     `json:"questions"`
	ReviewCount     int64                     `json:"review_count"`
	AverageRating   float64                   `json:"average_rating"`
	InWishlist      bool                      `json:"in_wishlist"`
	ProgressPercent float64                   `json:"progress_percent"`
}

// HomeView 是首页数据。
type HomeView struct {
	TopDeals      []repository.Product            `json:"top_deals"`
	TopSelling    []repository.Product            `json:"top_selling"`
	Sections      map[string][]repository.Product `json:"sections"`
	Countdown     *repository.DealCountdown       `json:"countdown,omitempty"`
	Sliders       []repository.Slider             `json:"sliders"`
	Features      []repository.Feature            `json:"features"`
	Banners       []repository.Banner             `json:"banners"`
	CategoryIcons []repository.CategoryIcon       `json:"category_icons"`
}

// ProductInput 是后台商品表单，也是 YAML 导入的一条记录。
type ProductInput struct {
	Name            string   `yaml:"name" json:"name"`
	Slug            string   `yaml:"slug" json:"slug"`
	SKU             string   `yaml:"sku" json:"sku"`
	Description     string   `yaml:"description" json:"description"`
	Price           string   `yaml:"price" json:"price"`
	OldPrice        string   `yaml:"old_price" json:"old_price"`
	DiscountPercent *int     `yaml:"discount_percent" json:"discount_percent"`
	Stock           int64    `yaml:"stock" json:"stock"`
	Sold            int64    `yaml:"sold" json:"sold"`
	Category        string   `yaml:"category" json:"category"`
	Brand           string   `yaml:"brand" json:"brand"`
	Color           string   `yaml:"color" json:"color"`
	Size            string   `yaml:"size" json:"size"`
	Weight          string   `yaml:"weight" json:"weight"`
	Dimensions      string   `yaml:"dimensions" json:"dimensions"`
	ShippingInfo    string   `yaml:"shipping_info" json:"shipping_info"`
	CareInfo        string   `yaml:"care_info" json:"care_info"`
	Tags            []string `yaml:"tags" json:"tags"`
	ImageURL        string   `yaml:"image_url" json:"image_url"`
	Images          []string `yaml:"images" json:"images"`
	IsTopDeal       bool     `yaml:"is_top_deal" json:"is_top_deal"`
	IsActive        *bool    `yaml:"is_active" json:"is_active"`
}

// ImportResult 汇总一次导入。
type ImportResult struct {
	Created int      `json:"created"`
	Updated int      `json:"updated"`
	Errors  []string `json:"errors,omitempty"`
}

type catalogService struct {
	store    repository.Store
	counts   cache.Store
	settings ShopSettings
	now      func() time.Time
}

// NewCatalogService 组装商品目录服务。
func NewCatalogService(store repository.Store, cacheStore cache.Store, settings ShopSettings) CatalogService {
	var counts cache.Store
	if cacheStore != nil {
		counts = cacheStore.Scope("catalog")
	}
	return &catalogService{store: store, counts: counts, settings: settings, now: time.Now}
}

func (s *catalogService) Search(ctx context.Context, input SearchInput) (*SearchResult, error) {
	if s == nil || s.store == nil {
		return nil, fmt.Errorf("catalog service not configured / 商品服务未配置")
	}
	filter := repository.ProductFilter{ActiveOnly: true, Query: strings.TrimSpace(input.Query)}
	if category := strings.ToUpper(strings.TrimSpace(input.Category)); repository.ValidCategory(category) {
		filter.Category = category
	}
	if v, err := decimal.NewFromString(strings.TrimSpace(input.MinPrice)); err == nil {
		filter.MinPrice = &v
	}
	if v, err := decimal.NewFromString(strings.TrimSpace(input.MaxPrice)); err == nil {
		filter.MaxPrice = &v
	}
	if v, err := strconv.ParseFloat(strings.TrimSpace(input.MinRating), 64); err == nil && !math.IsNaN(v) && !math.IsInf(v, 0) {
		filter.MinRating = &v
	}

	page := newPage(ParsePage(input.Page), s.settings.PageSize)
	filter.Limit = page.Size
	filter.Offset = page.Offset()
	products, total, err := s.store.Products().Search(ctx, filter)
	if err != nil {
		return nil, err
	}
	clamped := page.withTotal(total)
	if clamped.Number != page.Number {
		// 页码越界时返回最后一页
		filter.Offset = clamped.Offset()
		products, total, err = s.store.Products().Search(ctx, filter)
		if err != nil {
			return nil, err
		}
		clamped = clamped.withTotal(total)
	}
	counts, err := s.CategoryCounts(ctx)
	if err != nil {
		return nil, err
	}
	if products == nil {
		products = []repository.Product{}
	}
	banners, err := s.store.Content().ListBanners(ctx, repository.BannerFilter{Page: repository.BannerPageShop, ActiveOnly: true})
	if err != nil {
		return nil, err
	}
	return &SearchResult{Products: products, Page: clamped, Categories: counts, Banners: banners}, nil
}

func (s *catalogService) Get(ctx context.Context, id int64, viewerID int64) (*ProductDetail, error) {
	if s == nil || s.store == nil {
		return nil, fmt.Errorf("catalog service not configured / 商品服务未配置")
	}
	product, err := s.store.Products().FindByID(ctx, id)
	if err != nil {
		return nil, mapNotFound(err)
	}
	if !product.IsActive {
		return nil, ErrNotFound
	}
	images, err := s.store.ProductImages().ListByProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	approved := true
	reviews, _, err := s.store.Reviews().List(ctx, repository.ReviewFilter{ProductID: &id, Approved: &approved, Limit: detailReviewLimit})
	if err != nil {
		return nil, err
	}
	questions, _, err := s.store.Questions().List(ctx, repository.QuestionFilter{ProductID: &id, Approved: &approved, Limit: detailReviewLimit})
	if err != nil {
		return nil, err
	}
	summary, err := s.store.Reviews().Summary(ctx, id)
	if err != nil {
		return nil, err
	}
	detail := &ProductDetail{
		Product:         *product,
		Images:          images,
		Reviews:         reviews,
		Questions:       questions,
		ReviewCount:     summary.Count,
		AverageRating:   product.Rating,
		ProgressPercent: product.ProgressPercent(),
	}
	if summary.Count > 0 {
		detail.AverageRating = roundTo(summary.Average, 1)
	}
	if viewerID > 0 {
		detail.InWishlist, err = s.store.Wishlists().Exists(ctx, viewerID, id)
		if err != nil {
			return nil, err
		}
	}
	return detail, nil
}

func (s *catalogService) SpecialOffers(ctx context.Context) ([]repository.Product, error) {
	if s == nil || s.store == nil {
		return nil, fmt.Errorf("catalog service not configured / 商品服务未配置")
	}
	return s.store.Products().TopByDiscount(ctx, specialOfferLimit)
}

func (s *catalogService) CategoryCounts(ctx context.Context) ([]CategoryCount, error) {
	if s == nil || s.store == nil {
		return nil, fmt.Errorf("catalog service not configured / 商品服务未配置")
	}
	return cache.RememberJSON(ctx, s.counts, categoryCountsKey, categoryCountsTTL, func(ctx context.Context) ([]CategoryCount, error) {
		byCode, err := s.store.Products().CountByCategory(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]CategoryCount, 0, len(repository.Categories))
		for _, c := range repository.Categories {
			out = append(out, CategoryCount{Code: c.Code, Label: c.Label, Count: byCode[c.Code]})
		}
		return out, nil
	})
}

func (s *catalogService) Home(ctx context.Context) (*HomeView, error) {
	if s == nil || s.store == nil {
		return nil, fmt.Errorf("catalog service not configured / 商品服务未配置")
	}
	deals, err := s.store.Products().TopDeals(ctx, topDealsLimit)
	if err != nil {
		return nil, err
	}
	selling, err := s.store.Products().TopSelling(ctx, topDealsLimit)
	if err != nil {
		return nil, err
	}
	entries, err := s.store.Home().ListMainPage(ctx)
	if err != nil {
		return nil, err
	}
	sections := make(map[string][]repository.Product, len(repository.MainPageSections))
	for _, section := range repository.MainPageSections {
		sections[section] = []repository.Product{}
	}
	for _, e := range entries {
		if e.Product != nil {
			sections[e.Section] = append(sections[e.Section], *e.Product)
		}
	}
	view := &HomeView{TopDeals: deals, TopSelling: selling, Sections: sections}
	if err := s.fillContent(ctx, view); err != nil {
		return nil, err
	}
	countdown, err := s.store.Home().ActiveCountdown(ctx, s.now().Unix())
	switch {
	case err == nil:
		view.Countdown = countdown
	case !errors.Is(err, repository.ErrNotFound):
		return nil, err
	}
	return view, nil
}

// fillContent 填充首页启用中的轮播、卖点、横幅与分类图标。
func (s *catalogService) fillContent(ctx context.Context, view *HomeView) error {
	content := s.store.Content()
	var err error
	if view.Sliders, err = content.ListSliders(ctx, true); err != nil {
		return err
	}
	if view.Features, err = content.ListFeatures(ctx, true); err != nil {
		return err
	}
	if view.Banners, err = content.ListBanners(ctx, repository.BannerFilter{Page: repository.BannerPageHome, ActiveOnly: true}); err != nil {
		return err
	}
	view.CategoryIcons, err = content.ListCategoryIcons(ctx, true)
	return err
}

func (s *catalogService) Create(ctx context.Context, input ProductInput) (*repository.Product, error) {
	if s == nil || s.store == nil {
		return nil, fmt.Errorf("catalog service not configured / 商品服务未配置")
	}
	var created *repository.Product
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		product := &repository.Product{IsActive: true}
		if err := s.applyInput(ctx, tx, product, input); err != nil {
			return err
		}
		now := s.now().Unix()
		product.CreatedAt = now
		product.UpdatedAt = now
		p, err := tx.Products().Create(ctx, product)
		if err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return ErrSKUExists
			}
			return err
		}
		created = p
		if len(input.Images) > 0 {
			return tx.ProductImages().Replace(ctx, p.ID, imagesFromURLs(input.Images, now))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.invalidateCounts(ctx)
	return created, nil
}

func (s *catalogService) Update(ctx context.Context, id int64, input ProductInput) (*repository.Product, error) {
	if s == nil || s.store == nil {
		return nil, fmt.Errorf("catalog service not configured / 商品服务未配置")
	}
	var updated *repository.Product
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		product, err := tx.Products().FindByID(ctx, id)
		if err != nil {
			return mapNotFound(err)
		}
		if err := s.applyInput(ctx, tx, product, input); err != nil {
			return err
		}
		product.UpdatedAt = s.now().Unix()
		if err := tx.Products().Update(ctx, product); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return ErrSKUExists
			}
			return err
		}
		if input.Images != nil {
			if err := tx.ProductImages().Replace(ctx, id, imagesFromURLs(input.Images, product.UpdatedAt)); err != nil {
				return err
			}
		}
		updated = product
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.invalidateCounts(ctx)
	return updated, nil
}

func (s *catalogService) Delete(ctx context.Context, id int64) error {
	if s == nil || s.store == nil {
		return fmt.Errorf("catalog service not configured / 商品服务未配置")
	}
	if err := s.store.Products().Delete(ctx, id); err != nil {
		return mapNotFound(err)
	}
	s.invalidateCounts(ctx)
	return nil
}

func (s *catalogService) SetImages(ctx context.Context, id int64, urls []string) ([]repository.ProductImage, error) {
	if s == nil || s.store == nil {
		return nil, fmt.Errorf("catalog service not configured / 商品服务未配置")
	}
	if _, err := s.store.Products().FindByID(ctx, id); err != nil {
		return nil, mapNotFound(err)
	}
	if err := s.store.ProductImages().Replace(ctx, id, imagesFromURLs(urls, s.now().Unix())); err != nil {
		return nil, err
	}
	return s.store.ProductImages().ListByProduct(ctx, id)
}

// AdjustRating 手动覆盖商品评分，评价数保持不变。
func (s *catalogService) AdjustRating(ctx context.Context, id int64, rating float64) error {
	if s == nil || s.store == nil {
		return fmt.Errorf("catalog service not configured / 商品服务未配置")
	}
	if rating < 0 || rating > 5 {
		return ErrInvalidRating
	}
	product, err := s.store.Products().FindByID(ctx, id)
	if err != nil {
		return mapNotFound(err)
	}
	return s.store.Products().UpdateRating(ctx, id, roundTo(rating, 1), product.ReviewCount)
}

func (s *catalogService) SetCountdown(ctx context.Context, title string, endTime int64) (*repository.DealCountdown, error) {
	if s == nil || s.store == nil {
		return nil, fmt.Errorf("catalog service not configured / 商品服务未配置")
	}
	if endTime <= s.now().Unix() {
		return nil, fmt.Errorf("%w: countdown must end in the future / 倒计时结束时间必须晚于当前", ErrValidation)
	}
	title = strings.TrimSpace(title)
	if title == "" {
		title = "Deals of the Day"
	}
	return s.store.Home().SaveCountdown(ctx, &repository.DealCountdown{Title: title, EndTime: endTime, IsActive: true, CreatedAt: s.now().Unix()})
}

func (s *catalogService) SetMainPageSection(ctx context.Context, section string, productIDs []int64) error {
	if s == nil || s.store == nil {
		return fmt.Errorf("catalog service not configured / 商品服务未配置")
	}
	section = strings.ToUpper(strings.TrimSpace(section))
	valid := false
	for _, known := range repository.MainPageSections {
		if known == section {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("%w: unknown section %q / 未知推荐位", ErrValidation, section)
	}
	return s.store.Home().SetSection(ctx, section, productIDs)
}

// Import 读取 YAML 商品清单，按 SKU 新增或更新。单条失败不影响其余记录。
func (s *catalogService) Import(ctx context.Context, r io.Reader) (*ImportResult, error) {
	if s == nil || s.store == nil {
		return nil, fmt.Errorf("catalog service not configured / 商品服务未配置")
	}
	var doc struct {
		Products []ProductInput `yaml:"products"`
	}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return &ImportResult{}, nil
		}
		return nil, fmt.Errorf("%w: decode catalog yaml: %v / 商品文件解析失败", ErrValidation, err)
	}
	result := &ImportResult{}
	for i, item := range doc.Products {
		sku := strings.TrimSpace(item.SKU)
		existing, err := s.store.Products().FindBySKU(ctx, sku)
		switch {
		case sku != "" && err == nil:
			if _, err := s.Update(ctx, existing.ID, item); err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("#%d %s: %v", i+1, sku, err))
				continue
			}
			result.Updated++
		case sku == "" || errors.Is(err, repository.ErrNotFound):
			if _, err := s.Create(ctx, item); err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("#%d %s: %v", i+1, item.Name, err))
				continue
			}
			result.Created++
		default:
			return result, err
		}
	}
	return result, nil
}

func (s *catalogService) applyInput(ctx context.Context, tx repository.Store, p *repository.Product, input ProductInput) error {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return fmt.Errorf("%w: product name required / 商品名称不能为空", ErrValidation)
	}
	price, err := decimal.NewFromString(strings.TrimSpace(input.Price))
	if err != nil || price.IsNegative() {
		return fmt.Errorf("%w: invalid price / 价格无效", ErrValidation)
	}
	if input.Stock < 0 || input.Sold < 0 {
		return fmt.Errorf("%w: stock must not be negative / 库存不能为负", ErrValidation)
	}
	category := strings.ToUpper(strings.TrimSpace(input.Category))
	if category == "" {
		category = repository.CategoryRecommended
	}
	if !repository.ValidCategory(category) {
		return fmt.Errorf("%w: unknown category %q / 未知分类", ErrValidation, input.Category)
	}

	p.Name = name
	p.Price = price.Round(2)
	p.OldPrice = decimal.NullDecimal{}
	if raw := strings.TrimSpace(input.OldPrice); raw != "" {
		old, err := decimal.NewFromString(raw)
		if err != nil || old.IsNegative() {
			return fmt.Errorf("%w: invalid old price / 原价无效", ErrValidation)
		}
		p.OldPrice = decimal.NewNullDecimal(old.Round(2))
	}
	switch {
	case input.DiscountPercent != nil:
		p.DiscountPercent = min(max(*input.DiscountPercent, 0), 100)
	case p.OldPrice.Valid && p.OldPrice.Decimal.GreaterThan(p.Price):
		p.DiscountPercent = discountPercent(p.OldPrice.Decimal, p.Price)
	default:
		p.DiscountPercent = 0
	}

	slug := slugify(input.Slug)
	if slug == "" {
		slug = slugify(name)
	}
	if slug == "" {
		slug = "product"
	}
	unique, err := uniqueSlug(ctx, tx.Products(), slug, p.ID)
	if err != nil {
		return err
	}
	p.Slug = unique
	if sku := strings.TrimSpace(input.SKU); sku != "" {
		p.SKU = sku
	}
	if p.SKU == "" {
		p.SKU = strings.ToUpper(strings.ReplaceAll(unique, "-", ""))
		if len(p.SKU) > 12 {
			p.SKU = p.SKU[:12]
		}
		p.SKU = fmt.Sprintf("%s-%d", p.SKU, s.now().UnixNano()%100000)
	}
	p.Description = strings.TrimSpace(input.Description)
	p.Stock = input.Stock
	p.Sold = input.Sold
	p.Category = category
	p.Brand = strings.TrimSpace(input.Brand)
	p.Color = strings.TrimSpace(input.Color)
	p.Size = strings.TrimSpace(input.Size)
	p.Weight = strings.TrimSpace(input.Weight)
	p.Dimensions = strings.TrimSpace(input.Dimensions)
	p.ShippingInfo = strings.TrimSpace(input.ShippingInfo)
	p.CareInfo = strings.TrimSpace(input.CareInfo)
	p.Tags = cleanTags(input.Tags)
	p.ImageURL = strings.TrimSpace(input.ImageURL)
	p.IsTopDeal = input.IsTopDeal
	if input.IsActive != nil {
		p.IsActive = *input.IsActive
	}
	return nil
}

func (s *catalogService) invalidateCounts(ctx context.Context) {
	if s.counts != nil {
		s.counts.Forget(ctx, categoryCountsKey)
	}
}

// discountPercent = round((old − price) / old × 100)。
func discountPercent(old, price decimal.Decimal) int {
	if !old.IsPositive() {
		return 0
	}
	pct := old.Sub(price).Div(old).Mul(decimal.NewFromInt(100)).Round(0)
	return int(min(max(pct.IntPart(), 0), 100))
}

func uniqueSlug(ctx context.Context, products repository.ProductRepository, base string, excludeID int64) (string, error) {
	candidate := base
	for i := 2; ; i++ {
		exists, err := products.SlugExists(ctx, candidate, excludeID)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
}

func slugify(raw string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(raw)) {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		key := strings.ToLower(t)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, t)
	}
	return out
}

func imagesFromURLs(urls []string, now int64) []repository.ProductImage {
	images := make([]repository.ProductImage, 0, len(urls))
	for i, u := range urls {
		if u = strings.TrimSpace(u); u != "" {
			images = append(images, repository.ProductImage{URL: u, Sort: i, IsActive: true, CreatedAt: now})
		}
	}
	return images
}

func roundTo(v float64, places int32) float64 {
	f, _ := decimal.NewFromFloat(v).Round(places).Float64()
	return f
}
