package service

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/creamcroissant/vibemall/internal/repository"
)

func (e *shopEnv) cart() CartService { return NewCartService(e.store) }

func (e *shopEnv) wishlist() WishlistService { return NewWishlistService(e.store) }

func TestCartAddAndUpdate(t *testing.T) {
	env := newShopEnv(t)
	user := env.seedUser(t, "asha", 0)
	other := env.seedUser(t, "other", 0)
	product := env.seedProduct(t, "mug", "150", 4)
	svc := env.cart()

	view, err := svc.Add(env.ctx, user.ID, CartAddInput{ProductID: product.ID})
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	require.Equal(t, int64(1), view.ItemCount)

	view, err = svc.Add(env.ctx, user.ID, CartAddInput{ProductID: product.ID, Quantity: 2})
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	require.Equal(t, int64(3), view.Items[0].Quantity)
	require.True(t, view.Items[0].LineTotal.Equal(dec("450")))
	require.True(t, view.Subtotal.Equal(dec("450")))

	_, err = svc.Add(env.ctx, user.ID, CartAddInput{ProductID: product.ID, Quantity: 2})
	require.ErrorIs(t, err, ErrOutOfStock)
	_, err = svc.Add(env.ctx, user.ID, CartAddInput{ProductID: product.ID, Quantity: -1})
	require.ErrorIs(t, err, ErrInvalidQuantity)
	_, err = svc.Add(env.ctx, user.ID, CartAddInput{ProductID: 9999})
	require.ErrorIs(t, err, ErrNotFound)

	itemID := view.Items[0].ID
	_, err = svc.UpdateQuantity(env.ctx, other.ID, itemID, 1)
	require.ErrorIs(t, err, ErrNotFound)
	_, err = svc.UpdateQuantity(env.ctx, user.ID, itemID, 5)
	require.ErrorIs(t, err, ErrOutOfStock)

	view, err = svc.UpdateQuantity(env.ctx, user.ID, itemID, 1)
	require.NoError(t, err)
	require.True(t, view.Subtotal.Equal(dec("150")))

	view, err = svc.UpdateQuantity(env.ctx, user.ID, itemID, 0)
	require.NoError(t, err)
	require.Empty(t, view.Items)
	require.True(t, view.Subtotal.IsZero())
}

func TestCartRemoveAndClear(t *testing.T) {
	env := newShopEnv(t)
	user := env.seedUser(t, "asha", 0)
	a := env.seedProduct(t, "a", "10", 5)
	b := env.seedProduct(t, "b", "20", 5)
	svc := env.cart()

	_, err := svc.Add(env.ctx, user.ID, CartAddInput{ProductID: a.ID})
	require.NoError(t, err)
	view, err := svc.Add(env.ctx, user.ID, CartAddInput{ProductID: b.ID, Size: " L ", Color: "red"})
	require.NoError(t, err)
	require.Len(t, view.Items, 2)

	var itemB repository.CartItem
	for _, line := range view.Items {
		if line.ProductID == b.ID {
			itemB = line.CartItem
		}
	}
	require.Equal(t, "L", itemB.Size)

	view, err = svc.Remove(env.ctx, user.ID, itemB.ID)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)

	require.NoError(t, svc.Clear(env.ctx, user.ID))
	view, err = svc.View(env.ctx, user.ID)
	require.NoError(t, err)
	require.Empty(t, view.Items)
}

func TestWishlistAddIsIdempotent(t *testing.T) {
	env := newShopEnv(t)
	user := env.seedUser(t, "asha", 0)
	product := env.seedProduct(t, "lamp", "300", 5)
	svc := env.wishlist()

	item, added, err := svc.Add(env.ctx, user.ID, product.ID)
	require.NoError(t, err)
	require.True(t, added)

	again, added, err := svc.Add(env.ctx, user.ID, product.ID)
	require.NoError(t, err)
	require.False(t, added)
	require.Equal(t, item.ID, again.ID)

	list, err := svc.List(env.ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)

	alert, err := env.store.PriceAlerts().FindByUserProduct(env.ctx, user.ID, product.ID)
	require.NoError(t, err)
	require.True(t, alert.IsActive)
	require.True(t, alert.OriginalPrice.Equal(dec("300")))
}

func TestWishlistToggleAndRemove(t *testing.T) {
	env := newShopEnv(t)
	user := env.seedUser(t, "asha", 0)
	other := env.seedUser(t, "other", 0)
	product := env.seedProduct(t, "lamp", "300", 5)
	svc := env.wishlist()

	on, err := svc.Toggle(env.ctx, user.ID, product.ID)
	require.NoError(t, err)
	require.True(t, on)
	on, err = svc.Toggle(env.ctx, user.ID, product.ID)
	require.NoError(t, err)
	require.False(t, on)

	item, _, err := svc.Add(env.ctx, user.ID, product.ID)
	require.NoError(t, err)
	require.ErrorIs(t, svc.Remove(env.ctx, other.ID, item.ID), ErrNotFound)
	require.NoError(t, svc.Remove(env.ctx, user.ID, item.ID))

	list, err := svc.List(env.ctx, user.ID)
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestWishlistMoveToCart(t *testing.T) {
	env := newShopEnv(t)
	user := env.seedUser(t, "asha", 0)
	product := env.seedProduct(t, "lamp", "300", 5)
	env.addToCart(t, user.ID, product.ID, 2)
	svc := env.wishlist()

	item, _, err := svc.Add(env.ctx, user.ID, product.ID)
	require.NoError(t, err)
	require.NoError(t, svc.MoveToCart(env.ctx, user.ID, item.ID))

	cart, err := env.store.Carts().ListByUser(env.ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, cart, 1)
	require.Equal(t, int64(3), cart[0].Quantity)

	list, err := svc.List(env.ctx, user.ID)
	require.NoError(t, err)
	require.Empty(t, list)

	require.ErrorIs(t, svc.MoveToCart(env.ctx, user.ID, item.ID), ErrNotFound)
}

func TestSetPriceAlert(t *testing.T) {
	env := newShopEnv(t)
	user := env.seedUser(t, "asha", 0)
	product := env.seedProduct(t, "lamp", "300", 5)
	svc := env.wishlist()

	_, err := svc.SetPriceAlert(env.ctx, user.ID, product.ID, "-5")
	require.ErrorIs(t, err, ErrValidation)

	alert, err := svc.SetPriceAlert(env.ctx, user.ID, product.ID, "250")
	require.NoError(t, err)
	require.True(t, alert.TargetPrice.Valid)
	require.True(t, alert.TargetPrice.Decimal.Equal(dec("250")))

	// 设置提醒会顺带加入心愿单
	list, err := svc.List(env.ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestAddressDefaults(t *testing.T) {
	env := newShopEnv(t)
	user := env.seedUser(t, "asha", 0)
	other := env.seedUser(t, "other", 0)
	svc := NewAddressService(env.store)
	input := AddressInput{FullName: "Asha Rao", Mobile: "9876543210", Line1: "12 MG Road", City: "Bengaluru", State: "KA", Pincode: "560001"}

	_, err := svc.Create(env.ctx, user.ID, AddressInput{FullName: "x"})
	require.ErrorIs(t, err, ErrValidation)
	bad := input
	bad.Type = "castle"
	_, err = svc.Create(env.ctx, user.ID, bad)
	require.ErrorIs(t, err, ErrValidation)

	first, err := svc.Create(env.ctx, user.ID, input)
	require.NoError(t, err)
	require.True(t, first.IsDefault)
	require.Equal(t, "India", first.Country)
	require.Equal(t, repository.AddressHome, first.Type)

	office := input
	office.Type = "office"
	office.IsDefault = true
	second, err := svc.Create(env.ctx, user.ID, office)
	require.NoError(t, err)
	require.True(t, second.IsDefault)

	list, err := svc.List(env.ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, second.ID, list[0].ID)
	require.False(t, list[1].IsDefault)

	require.ErrorIs(t, svc.SetDefault(env.ctx, other.ID, first.ID), ErrNotFound)
	require.NoError(t, svc.SetDefault(env.ctx, user.ID, first.ID))
	list, err = svc.List(env.ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, first.ID, list[0].ID)
	require.True(t, list[0].IsDefault)
	require.False(t, list[1].IsDefault)

	// 删除默认地址后剩下的一条接替
	require.NoError(t, svc.Delete(env.ctx, user.ID, first.ID))
	list, err = svc.List(env.ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.True(t, list[0].IsDefault)
}

func TestFormatAddress(t *testing.T) {
	got := FormatAddress(repository.Address{FullName: "Asha", Line1: "12 MG Road", City: "Bengaluru", State: "KA", Pincode: "560001", Country: "India", Mobile: "98"})
	require.Equal(t, "Asha\n12 MG Road\nBengaluru, KA - 560001\nIndia\nPhone: 98", got)
}
