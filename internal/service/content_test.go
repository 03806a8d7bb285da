package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creamcroissant/vibemall/internal/repository"
)

func TestContentBannerValidation(t *testing.T) {
	env := newShopEnv(t)
	svc := NewContentService(env.store)

	cases := []struct {
		name   string
		banner repository.Banner
	}{
		{"missing image", repository.Banner{Title: "x"}},
		{"bad type", repository.Banner{Title: "x", ImageURL: "/x.jpg", BannerType: "HUGE"}},
		{"bad page", repository.Banner{Title: "x", ImageURL: "/x.jpg", PageType: "CART"}},
		{"bad style", repository.Banner{Title: "x", ImageURL: "/x.jpg", ButtonStyle: "blink"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.SaveBanner(env.ctx, tc.banner)
			require.ErrorIs(t, err, ErrValidation)
		})
	}

	saved, err := svc.SaveBanner(env.ctx, repository.Banner{Title: "  Monsoon sale ", ImageURL: " /m.jpg ", IsActive: true})
	require.NoError(t, err)
	assert.Equal(t, "Monsoon sale", saved.Title)
	assert.Equal(t, "/m.jpg", saved.ImageURL)
	assert.Equal(t, repository.BannerLarge, saved.BannerType)
	assert.Equal(t, repository.BannerPageHome, saved.PageType)
	assert.Equal(t, repository.ButtonStyleNone, saved.ButtonStyle)
	assert.Equal(t, "#", saved.LinkURL)

	saved.IsActive = false
	_, err = svc.SaveBanner(env.ctx, *saved)
	require.NoError(t, err)
	home, err := svc.Banners(env.ctx, "home")
	require.NoError(t, err)
	require.Empty(t, home)
	all, err := svc.ListBanners(env.ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)

	_, err = svc.Banners(env.ctx, "cart")
	require.ErrorIs(t, err, ErrValidation)

	require.NoError(t, svc.DeleteBanner(env.ctx, saved.ID))
	require.ErrorIs(t, svc.DeleteBanner(env.ctx, saved.ID), ErrNotFound)
	_, err = svc.SaveBanner(env.ctx, repository.Banner{ID: saved.ID, Title: "gone", ImageURL: "/g.jpg"})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestContentSlidersAndFeatures(t *testing.T) {
	env := newShopEnv(t)
	svc := NewContentService(env.store)

	_, err := svc.SaveSlider(env.ctx, repository.Slider{Title: "No link", ImageURL: "/s.jpg"})
	require.ErrorIs(t, err, ErrValidation)
	first, err := svc.SaveSlider(env.ctx, repository.Slider{Title: "First", ImageURL: "/1.jpg", TopButtonURL: "/shop", Sort: 2, IsActive: true})
	require.NoError(t, err)
	second, err := svc.SaveSlider(env.ctx, repository.Slider{Title: "Second", ImageURL: "/2.jpg", TopButtonURL: "/shop", TopButtonText: "SHOP NOW", Sort: 1, IsActive: true})
	require.NoError(t, err)

	sliders, err := svc.ListSliders(env.ctx)
	require.NoError(t, err)
	require.Len(t, sliders, 2)
	require.Equal(t, second.ID, sliders[0].ID)
	require.Equal(t, first.ID, sliders[1].ID)
	require.Equal(t, "SHOP NOW", sliders[0].TopButtonText)

	_, err = svc.SaveFeature(env.ctx, repository.Feature{Title: "Free shipping"})
	require.ErrorIs(t, err, ErrValidation)
	feature, err := svc.SaveFeature(env.ctx, repository.Feature{Title: "Free shipping", Description: "Over ₹500", IconClass: "fas fa-truck", IsActive: true})
	require.NoError(t, err)
	feature.Description = "On every order"
	_, err = svc.SaveFeature(env.ctx, *feature)
	require.NoError(t, err)
	features, err := svc.ListFeatures(env.ctx)
	require.NoError(t, err)
	require.Len(t, features, 1)
	require.Equal(t, "On every order", features[0].Description)
	require.NoError(t, svc.DeleteFeature(env.ctx, feature.ID))
	require.NoError(t, svc.DeleteSlider(env.ctx, first.ID))
}

func TestContentCategoryIcons(t *testing.T) {
	env := newShopEnv(t)
	svc := NewContentService(env.store)

	icons, err := svc.ListCategoryIcons(env.ctx)
	require.NoError(t, err)
	require.Len(t, icons, 8)
	require.Equal(t, repository.CategoryMobiles, icons[0].CategoryKey)

	_, err = svc.SaveCategoryIcon(env.ctx, repository.CategoryIcon{Name: "Gadgets", IconClass: "fas fa-bolt", CategoryKey: "GADGETS"})
	require.ErrorIs(t, err, ErrValidation)
	_, err = svc.SaveCategoryIcon(env.ctx, repository.CategoryIcon{Name: "Phones", IconClass: "fas fa-phone", CategoryKey: "mobiles"})
	require.ErrorIs(t, err, ErrCategoryIconExists)

	created, err := svc.SaveCategoryIcon(env.ctx, repository.CategoryIcon{Name: "Top Deals", IconClass: "fas fa-fire", CategoryKey: "top_deals", IsActive: true})
	require.NoError(t, err)
	require.Equal(t, repository.CategoryTopDeals, created.CategoryKey)
	require.Equal(t, "#ffffff", created.IconColor)

	require.NoError(t, svc.DeleteCategoryIcon(env.ctx, created.ID))
	icons, err = svc.ListCategoryIcons(env.ctx)
	require.NoError(t, err)
	require.Len(t, icons, 8)
}
