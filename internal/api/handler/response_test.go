package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creamcroissant/vibemall/internal/api/requestctx"
	"github.com/creamcroissant/vibemall/internal/service"
	"github.com/creamcroissant/vibemall/internal/support/i18n"
)

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err    error
		status int
		key    string
	}{
		{service.ErrNotFound, http.StatusNotFound, "error.not_found"},
		{fmt.Errorf("%w: bad price", service.ErrValidation), http.StatusBadRequest, "error.validation"},
		{service.ErrOutOfStock, http.StatusConflict, "error.out_of_stock"},
		{service.ErrAccountBlocked, http.StatusForbidden, "error.account_blocked"},
		{service.ErrPaymentNotConfigured, http.StatusServiceUnavailable, "error.payment_not_configured"},
		{errors.New("disk full"), http.StatusInternalServerError, "error.internal_server_error"},
	}
	for _, tc := range cases {
		status, key := statusFor(tc.err)
		assert.Equal(t, tc.status, status, tc.err.Error())
		assert.Equal(t, tc.key, key, tc.err.Error())
	}
}

func TestRespondServiceErrorTranslates(t *testing.T) {
	manager, err := i18n.NewManager()
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	ctx := requestctx.WithLanguage(context.Background(), "en-US")
	respondServiceError(ctx, rec, "cart.add", fmt.Errorf("%w: quantity", service.ErrValidation), manager)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "Please check the submitted fields", body["error"])
	require.Equal(t, "cart.add", body["action"])
	require.Contains(t, body["detail"], "quantity")
}

func TestLocalesCoverErrorTable(t *testing.T) {
	manager, err := i18n.NewManager()
	require.NoError(t, err)
	for _, lang := range manager.GetSupportedLanguages() {
		for _, m := range errorTable {
			assert.NotEqual(t, m.key, manager.Translate(lang, m.key), "%s missing %s", lang, m.key)
		}
	}
}

func TestQueryHelpers(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/?page=3&suspicious=true&resell=maybe", nil)
	require.Equal(t, 3, queryInt(r, "page"))
	require.Zero(t, queryInt(r, "missing"))
	require.NotNil(t, queryBool(r, "suspicious"))
	require.True(t, *queryBool(r, "suspicious"))
	require.Nil(t, queryBool(r, "resell"))
	require.Nil(t, queryBool(r, "blocked"))
}
