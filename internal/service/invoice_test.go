package service

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/creamcroissant/vibemall/internal/repository"
)

func TestInvoiceGenerate(t *testing.T) {
	env := newShopEnv(t)
	user := env.seedUser(t, "asha", 0)
	other := env.seedUser(t, "other", 0)
	product := env.seedProduct(t, "lamp", "300", 5)
	order := env.placeBuyNow(t, user.ID, product.ID, 1, repository.MethodCOD)
	svc := NewInvoiceService(env.store, env.settings)

	_, err := svc.Generate(env.ctx, other.ID, false, order.OrderNumber)
	require.ErrorIs(t, err, ErrNotFound)
	_, err = svc.Generate(env.ctx, user.ID, false, "ORD-missing")
	require.ErrorIs(t, err, ErrNotFound)

	file, err := svc.Generate(env.ctx, user.ID, false, order.OrderNumber)
	require.NoError(t, err)
	require.Regexp(t, `^INV\d{8}001$`, file.InvoiceNumber)
	require.Equal(t, order.OrderNumber+"_invoice.pdf", file.Filename)
	require.True(t, bytes.HasPrefix(file.Content, []byte("%PDF-")))

	// 管理员再次下载沿用同一编号
	again, err := svc.Generate(env.ctx, other.ID, true, order.OrderNumber)
	require.NoError(t, err)
	require.Equal(t, file.InvoiceNumber, again.InvoiceNumber)
	require.Equal(t, file.InvoiceNumber, env.reload(t, order.ID).InvoiceNumber)
}
