package service

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/creamcroissant/vibemall/internal/repository"
)

func TestCreateResell(t *testing.T) {
	env := newShopEnv(t)
	user := env.seedUser(t, "reseller", 0)
	other := env.seedUser(t, "other", 0)
	product := env.seedProduct(t, "saree", "400", 10)
	source := env.placeBuyNow(t, user.ID, product.ID, 1, repository.MethodCOD)
	items, err := env.store.Orders().ListItems(env.ctx, source.ID)
	require.NoError(t, err)
	svc := NewResellService(env.store, env.mail, env.settings, nil, nil)

	_, err = svc.CreateResell(env.ctx, user.ID, source.ID, ResellInput{ShippingAddress: "x"})
	require.ErrorIs(t, err, ErrValidation)
	_, err = svc.CreateResell(env.ctx, other.ID, source.ID, ResellInput{FromName: "Meera", ShippingAddress: "x"})
	require.ErrorIs(t, err, ErrNotFound)

	order, err := svc.CreateResell(env.ctx, user.ID, source.ID, ResellInput{
		FromName:        "Meera Boutique",
		FromPhone:       "9000000000",
		ShippingAddress: "44 Park Street, Kolkata",
		Margins:         map[int64]string{items[0].ID: "100"},
		Quantities:      map[int64]int64{items[0].ID: 2},
	})
	require.NoError(t, err)
	require.True(t, order.IsResell)
	require.NotNil(t, order.ResellSourceID)
	require.Equal(t, source.ID, *order.ResellSourceID)
	require.Equal(t, "Meera Boutique", order.ResellFromName)
	require.True(t, order.Subtotal.Equal(dec("1000")))
	require.Len(t, order.Items, 1)
	require.True(t, order.Items[0].ProductPrice.Equal(dec("500")))
	require.Equal(t, int64(7), env.stock(t, product.ID))

	_, err = svc.CreateResell(env.ctx, user.ID, source.ID, ResellInput{FromName: "x", ShippingAddress: "x", Margins: map[int64]string{items[0].ID: "abc"}})
	require.ErrorIs(t, err, ErrValidation)
}

func TestCreateResellFallsBackToSnapshotPrice(t *testing.T) {
	env := newShopEnv(t)
	user := env.seedUser(t, "reseller", 0)
	saree := env.seedProduct(t, "saree", "400", 10)
	scarf := env.seedProduct(t, "scarf", "150", 10)
	source := env.placeBuyNow(t, user.ID, saree.ID, 1, repository.MethodCOD)
	items, err := env.store.Orders().ListItems(env.ctx, source.ID)
	require.NoError(t, err)

	require.NoError(t, env.store.Products().Delete(env.ctx, saree.ID))
	svc := NewResellService(env.store, env.mail, env.settings, nil, nil)

	order, err := svc.CreateResell(env.ctx, user.ID, source.ID, ResellInput{
		FromName:        "Meera Boutique",
		ShippingAddress: "44 Park Street, Kolkata",
		Margins:         map[int64]string{items[0].ID: "50"},
		Quantities:      map[int64]int64{items[0].ID: 20},
	})
	require.NoError(t, err)
	require.Len(t, order.Items, 1)
	require.Nil(t, order.Items[0].ProductID)
	require.Equal(t, "saree", order.Items[0].ProductName)
	require.True(t, order.Items[0].ProductPrice.Equal(dec("450")))
	require.True(t, order.Subtotal.Equal(dec("9000")))

	// 仍在售的商品照常校验库存
	other := env.placeBuyNow(t, user.ID, scarf.ID, 1, repository.MethodCOD)
	otherItems, err := env.store.Orders().ListItems(env.ctx, other.ID)
	require.NoError(t, err)
	_, err = svc.CreateResell(env.ctx, user.ID, other.ID, ResellInput{
		FromName:        "Meera Boutique",
		ShippingAddress: "44 Park Street, Kolkata",
		Quantities:      map[int64]int64{otherItems[0].ID: 50},
	})
	require.ErrorIs(t, err, ErrOutOfStock)
}
