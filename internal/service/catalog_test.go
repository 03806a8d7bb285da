package service

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/creamcroissant/vibemall/internal/cache"
	"github.com/creamcroissant/vibemall/internal/repository"
)

func (e *shopEnv) catalog() CatalogService {
	return NewCatalogService(e.store, nil, e.settings)
}

func boolPtr(v bool) *bool { return &v }

func TestCreateProductDerivesSlugAndDiscount(t *testing.T) {
	env := newShopEnv(t)
	svc := env.catalog()

	first, err := svc.Create(env.ctx, ProductInput{Name: "Blue Lamp!", Price: "300", OldPrice: "400", Stock: 5, Category: "home_kitchen", Tags: []string{"lamp", " Lamp ", ""}})
	require.NoError(t, err)
	require.Equal(t, "blue-lamp", first.Slug)
	require.Equal(t, 25, first.DiscountPercent)
	require.Equal(t, repository.CategoryHomeKitchen, first.Category)
	require.Equal(t, []string{"lamp"}, first.Tags)
	require.NotEmpty(t, first.SKU)
	require.True(t, first.IsActive)

	second, err := svc.Create(env.ctx, ProductInput{Name: "Blue lamp", Price: "310", SKU: "LAMP-2"})
	require.NoError(t, err)
	require.Equal(t, "blue-lamp-2", second.Slug)
	require.Equal(t, repository.CategoryRecommended, second.Category)
	require.Zero(t, second.DiscountPercent)

	_, err = svc.Create(env.ctx, ProductInput{Name: "Other", Price: "10", SKU: "LAMP-2"})
	require.ErrorIs(t, err, ErrSKUExists)
}

func TestCreateProductValidation(t *testing.T) {
	env := newShopEnv(t)
	cases := []struct {
		name  string
		input ProductInput
	}{
		{name: "missing name", input: ProductInput{Price: "10"}},
		{name: "negative price", input: ProductInput{Name: "x", Price: "-1"}},
		{name: "negative stock", input: ProductInput{Name: "x", Price: "1", Stock: -1}},
		{name: "unknown category", input: ProductInput{Name: "x", Price: "1", Category: "TOYS"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.catalog().Create(env.ctx, tc.input)
			require.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestSearchFiltersAndPaging(t *testing.T) {
	env := newShopEnv(t)
	env.settings.PageSize = 2
	svc := env.catalog()
	for _, in := range []ProductInput{
		{Name: "Phone A", Price: "9000", Category: "MOBILES", SKU: "PA"},
		{Name: "Phone B", Price: "12000", Category: "MOBILES", SKU: "PB"},
		{Name: "Phone C", Price: "15000", Category: "MOBILES", SKU: "PC"},
		{Name: "Old Phone", Price: "500", Category: "MOBILES", SKU: "PD", IsActive: boolPtr(false)},
		{Name: "Sofa", Price: "20000", Category: "FURNITURE", SKU: "SF"},
	} {
		_, err := svc.Create(env.ctx, in)
		require.NoError(t, err)
	}

	res, err := svc.Search(env.ctx, SearchInput{Category: "mobiles", MinPrice: "abc", Page: "x"})
	require.NoError(t, err)
	require.Equal(t, int64(3), res.Page.Total)
	require.Equal(t, 2, res.Page.Pages)
	require.Equal(t, 1, res.Page.Number)
	require.Equal(t, "Phone C", res.Products[0].Name)

	for _, raw := range []string{"NaN", "Inf", "+Inf", "nan"} {
		res, err = svc.Search(env.ctx, SearchInput{Category: "MOBILES", MinRating: raw})
		require.NoError(t, err)
		require.Equal(t, int64(3), res.Page.Total, raw)
	}
	res, err = svc.Search(env.ctx, SearchInput{Category: "MOBILES", MinRating: "4.5"})
	require.NoError(t, err)
	require.Zero(t, res.Page.Total)

	res, err = svc.Search(env.ctx, SearchInput{Category: "MOBILES", Page: "99"})
	require.NoError(t, err)
	require.Equal(t, 2, res.Page.Number)
	require.Len(t, res.Products, 1)
	require.Equal(t, "Phone A", res.Products[0].Name)

	res, err = svc.Search(env.ctx, SearchInput{MinPrice: "10000", MaxPrice: "16000"})
	require.NoError(t, err)
	require.Equal(t, int64(2), res.Page.Total)

	res, err = svc.Search(env.ctx, SearchInput{Query: "sofa"})
	require.NoError(t, err)
	require.Len(t, res.Products, 1)

	var mobiles int64
	for _, c := range res.Categories {
		if c.Code == repository.CategoryMobiles {
			mobiles = c.Count
		}
	}
	require.Equal(t, int64(3), mobiles)
	require.Len(t, res.Categories, len(repository.Categories))
}

func TestCategoryCountsInvalidatedOnWrite(t *testing.T) {
	env := newShopEnv(t)
	svc := NewCatalogService(env.store, cache.NewStore(cache.Options{}), env.settings)
	count := func() int64 {
		counts, err := svc.CategoryCounts(env.ctx)
		require.NoError(t, err)
		for _, c := range counts {
			if c.Code == repository.CategorySports {
				return c.Count
			}
		}
		return -1
	}

	require.Zero(t, count())
	_, err := svc.Create(env.ctx, ProductInput{Name: "Bat", Price: "900", Category: "SPORTS"})
	require.NoError(t, err)
	require.Equal(t, int64(1), count())

	// 绕过服务直接写库时沿用缓存
	seeded := env.seedProduct(t, "ball", "100", 3)
	seeded.Category = repository.CategorySports
	require.NoError(t, env.store.Products().Update(env.ctx, seeded))
	require.Equal(t, int64(1), count())
}

func TestProductDetail(t *testing.T) {
	env := newShopEnv(t)
	svc := env.catalog()
	user := env.seedUser(t, "asha", 0)
	product, err := svc.Create(env.ctx, ProductInput{Name: "Kettle", Price: "800", Stock: 10, Sold: 4})
	require.NoError(t, err)
	hidden, err := svc.Create(env.ctx, ProductInput{Name: "Hidden", Price: "1", IsActive: boolPtr(false)})
	require.NoError(t, err)

	_, err = svc.Get(env.ctx, hidden.ID, 0)
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, svc.AdjustRating(env.ctx, product.ID, 4.26))
	require.ErrorIs(t, svc.AdjustRating(env.ctx, product.ID, 6), ErrInvalidRating)

	_, _, err = env.wishlist().Add(env.ctx, user.ID, product.ID)
	require.NoError(t, err)

	detail, err := svc.Get(env.ctx, product.ID, user.ID)
	require.NoError(t, err)
	require.True(t, detail.InWishlist)
	require.Zero(t, detail.ReviewCount)
	require.InDelta(t, 4.3, detail.AverageRating, 0.001)
	require.InDelta(t, 40.0, detail.ProgressPercent, 0.001)

	anon, err := svc.Get(env.ctx, product.ID, 0)
	require.NoError(t, err)
	require.False(t, anon.InWishlist)
}

func TestSpecialOffersOrderedByDiscount(t *testing.T) {
	env := newShopEnv(t)
	svc := env.catalog()
	for i, pct := range []int{10, 50, 30, 50, 5, 20} {
		p := pct
		_, err := svc.Create(env.ctx, ProductInput{Name: "Deal " + string(rune('A'+i)), Price: "100", DiscountPercent: &p})
		require.NoError(t, err)
	}
	offers, err := svc.SpecialOffers(env.ctx)
	require.NoError(t, err)
	require.Len(t, offers, 5)
	// 折扣相同按 id 倒序
	require.Equal(t, "Deal D", offers[0].Name)
	require.Equal(t, "Deal B", offers[1].Name)
	require.Equal(t, 30, offers[2].DiscountPercent)
}

func TestImportCatalogYAML(t *testing.T) {
	env := newShopEnv(t)
	svc := env.catalog()
	doc := `
products:
  - name: Steel Bottle
    sku: BOT-1
    price: "499"
    stock: 20
    category: SPORTS
    images: [a.jpg, b.jpg]
  - name: Yoga Mat
    sku: MAT-1
    price: "899"
    old_price: "1299"
  - name: Broken
    price: "not-a-number"
`
	res, err := svc.Import(env.ctx, strings.NewReader(doc))
	require.NoError(t, err)
	require.Equal(t, 2, res.Created)
	require.Zero(t, res.Updated)
	require.Len(t, res.Errors, 1)

	bottle, err := env.store.Products().FindBySKU(env.ctx, "BOT-1")
	require.NoError(t, err)
	images, err := env.store.ProductImages().ListByProduct(env.ctx, bottle.ID)
	require.NoError(t, err)
	require.Len(t, images, 2)

	res, err = svc.Import(env.ctx, strings.NewReader("products:\n  - name: Steel Bottle\n    sku: BOT-1\n    price: \"449\"\n"))
	require.NoError(t, err)
	require.Equal(t, 1, res.Updated)
	bottle, err = env.store.Products().FindBySKU(env.ctx, "BOT-1")
	require.NoError(t, err)
	require.True(t, bottle.Price.Equal(dec("449")))

	_, err = svc.Import(env.ctx, strings.NewReader("products:\n  - name: x\n    colour: red\n"))
	require.ErrorIs(t, err, ErrValidation)

	empty, err := svc.Import(env.ctx, strings.NewReader(""))
	require.NoError(t, err)
	require.Zero(t, empty.Created)
}

func TestHomeSections(t *testing.T) {
	env := newShopEnv(t)
	svc := env.catalog()
	deal, err := svc.Create(env.ctx, ProductInput{Name: "Deal", Price: "10", IsTopDeal: true})
	require.NoError(t, err)

	require.ErrorIs(t, svc.SetMainPageSection(env.ctx, "TOP_DEALS_9", []int64{deal.ID}), ErrValidation)
	require.NoError(t, svc.SetMainPageSection(env.ctx, "top_deals_1", []int64{deal.ID}))
	_, err = svc.SetCountdown(env.ctx, "", time.Now().Add(time.Hour).Unix())
	require.NoError(t, err)

	home, err := svc.Home(env.ctx)
	require.NoError(t, err)
	require.Len(t, home.TopDeals, 1)
	require.Len(t, home.Sections[repository.MainPageSections[0]], 1)
	require.Len(t, home.Sections, len(repository.MainPageSections))
	require.NotNil(t, home.Countdown)
	require.Equal(t, "Deals of the Day", home.Countdown.Title)
	// 迁移预置的分类图标
	require.Len(t, home.CategoryIcons, 8)
	require.Empty(t, home.Sliders)

	content := NewContentService(env.store)
	_, err = content.SaveSlider(env.ctx, repository.Slider{Title: "Sale", ImageURL: "/s.jpg", TopButtonURL: "/shop", IsActive: true})
	require.NoError(t, err)
	_, err = content.SaveBanner(env.ctx, repository.Banner{Title: "Shop only", ImageURL: "/b.jpg", PageType: "shop", IsActive: true})
	require.NoError(t, err)
	_, err = content.SaveBanner(env.ctx, repository.Banner{Title: "Everywhere", ImageURL: "/c.jpg", PageType: "both", IsActive: true})
	require.NoError(t, err)

	home, err = svc.Home(env.ctx)
	require.NoError(t, err)
	require.Len(t, home.Sliders, 1)
	require.Equal(t, defaultSliderButton, home.Sliders[0].TopButtonText)
	require.Len(t, home.Banners, 1)
	require.Equal(t, "Everywhere", home.Banners[0].Title)

	result, err := svc.Search(env.ctx, SearchInput{})
	require.NoError(t, err)
	require.Len(t, result.Banners, 2)
}
