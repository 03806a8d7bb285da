// 文件路径: internal/api/handler/cart.go
// 模块说明: 购物车与心愿单（含降价提醒）。
package handler

import (
	"net/http"

	"github.com/creamcroissant/vibemall/internal/service"
	"github.com/creamcroissant/vibemall/internal/support/i18n"
)

// CartHandler serves cart and wishlist endpoints.
type CartHandler struct {
	cart     service.CartService
	wishlist service.WishlistService
	i18n     *i18n.Manager
}

func NewCartHandler(cart service.CartService, wishlist service.WishlistService, i18nMgr *i18n.Manager) *CartHandler {
	return &CartHandler{cart: cart, wishlist: wishlist, i18n: i18nMgr}
}

type cartAddRequest struct {
	ProductID int64  `json:"product_id"`
	Quantity  int64  `json:"quantity"`
	Size      string `json:"size"`
	Color     string `json:"color"`
}

type quantityRequest struct {
	Quantity int64 `json:"quantity"`
}

// View handles GET /cart
func (h *CartHandler) View(w http.ResponseWriter, r *http.Request) {
	view, err := h.cart.View(r.Context(), currentUser(r).ID)
	if err != nil {
		respondServiceError(r.Context(), w, "cart.view", err, h.i18n)
		return
	}
	respondData(w, http.StatusOK, view)
}

// Add handles POST /cart/items
func (h *CartHandler) Add(w http.ResponseWriter, r *http.Request) {
	var payload cartAddRequest
	if err := decodeJSON(r, &payload); err != nil {
		respondServiceError(r.Context(), w, "cart.add", err, h.i18n)
		return
	}
	view, err := h.cart.Add(r.Context(), currentUser(r).ID, service.CartAddInput{
		ProductID: payload.ProductID,
		Quantity:  payload.Quantity,
		Size:      payload.Size,
		Color:     payload.Color,
	})
	if err != nil {
		respondServiceError(r.Context(), w, "cart.add", err, h.i18n)
		return
	}
	RespondSuccessI18n(r.Context(), w, "success.cart_added", h.i18n, view)
}

// Update handles PATCH /cart/items/{id}
func (h *CartHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondServiceError(r.Context(), w, "cart.update", err, h.i18n)
		return
	}
	var payload quantityRequest
	if err := decodeJSON(r, &payload); err != nil {
		respondServiceError(r.Context(), w, "cart.update", err, h.i18n)
		return
	}
	view, err := h.cart.UpdateQuantity(r.Context(), currentUser(r).ID, id, payload.Quantity)
	if err != nil {
		respondServiceError(r.Context(), w, "cart.update", err, h.i18n)
		return
	}
	RespondSuccessI18n(r.Context(), w, "success.cart_updated", h.i18n, view)
}

// Remove handles DELETE /cart/items/{id}
func (h *CartHandler) Remove(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondServiceError(r.Context(), w, "cart.remove", err, h.i18n)
		return
	}
	view, err := h.cart.Remove(r.Context(), currentUser(r).ID, id)
	if err != nil {
		respondServiceError(r.Context(), w, "cart.remove", err, h.i18n)
		return
	}
	RespondSuccessI18n(r.Context(), w, "success.cart_removed", h.i18n, view)
}

// Clear handles DELETE /cart
func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.cart.Clear(r.Context(), currentUser(r).ID); err != nil {
		respondServiceError(r.Context(), w, "cart.clear", err, h.i18n)
		return
	}
	RespondSuccessI18n(r.Context(), w, "success.cart_removed", h.i18n, nil)
}

type wishlistRequest struct {
	ProductID int64 `json:"product_id"`
}

type priceAlertRequest struct {
	TargetPrice string `json:"target_price"`
}

// Wishlist handles GET /wishlist
func (h *CartHandler) Wishlist(w http.ResponseWriter, r *http.Request) {
	list, err := h.wishlist.List(r.Context(), currentUser(r).ID)
	if err != nil {
		respondServiceError(r.Context(), w, "wishlist.list", err, h.i18n)
		return
	}
	respondData(w, http.StatusOK, list)
}

// AddWishlist handles POST /wishlist；重复添加返回 success.wishlist_exists。
func (h *CartHandler) AddWishlist(w http.ResponseWriter, r *http.Request) {
	var payload wishlistRequest
	if err := decodeJSON(r, &payload); err != nil {
		respondServiceError(r.Context(), w, "wishlist.add", err, h.i18n)
		return
	}
	item, added, err := h.wishlist.Add(r.Context(), currentUser(r).ID, payload.ProductID)
	if err != nil {
		respondServiceError(r.Context(), w, "wishlist.add", err, h.i18n)
		return
	}
	key := "success.wishlist_added"
	if !added {
		key = "success.wishlist_exists"
	}
	RespondSuccessI18n(r.Context(), w, key, h.i18n, item)
}

// ToggleWishlist handles POST /wishlist/toggle
func (h *CartHandler) ToggleWishlist(w http.ResponseWriter, r *http.Request) {
	var payload wishlistRequest
	if err := decodeJSON(r, &payload); err != nil {
		respondServiceError(r.Context(), w, "wishlist.toggle", err, h.i18n)
		return
	}
	inList, err := h.wishlist.Toggle(r.Context(), currentUser(r).ID, payload.ProductID)
	if err != nil {
		respondServiceError(r.Context(), w, "wishlist.toggle", err, h.i18n)
		return
	}
	key := "success.wishlist_added"
	if !inList {
		key = "success.wishlist_removed"
	}
	RespondSuccessI18n(r.Context(), w, key, h.i18n, map[string]bool{"in_wishlist": inList})
}

// RemoveWishlist handles DELETE /wishlist/{id}
func (h *CartHandler) RemoveWishlist(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err == nil {
		err = h.wishlist.Remove(r.Context(), currentUser(r).ID, id)
	}
	if err != nil {
		respondServiceError(r.Context(), w, "wishlist.remove", err, h.i18n)
		return
	}
	RespondSuccessI18n(r.Context(), w, "success.wishlist_removed", h.i18n, nil)
}

// MoveToCart handles POST /wishlist/{id}/move-to-cart
func (h *CartHandler) MoveToCart(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err == nil {
		err = h.wishlist.MoveToCart(r.Context(), currentUser(r).ID, id)
	}
	if err != nil {
		respondServiceError(r.Context(), w, "wishlist.move", err, h.i18n)
		return
	}
	RespondSuccessI18n(r.Context(), w, "success.wishlist_moved", h.i18n, nil)
}

// SetPriceAlert handles PUT /wishlist/products/{id}/price-alert
func (h *CartHandler) SetPriceAlert(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondServiceError(r.Context(), w, "wishlist.price_alert", err, h.i18n)
		return
	}
	var payload priceAlertRequest
	if err := decodeJSON(r, &payload); err != nil {
		respondServiceError(r.Context(), w, "wishlist.price_alert", err, h.i18n)
		return
	}
	alert, err := h.wishlist.SetPriceAlert(r.Context(), currentUser(r).ID, id, payload.TargetPrice)
	if err != nil {
		respondServiceError(r.Context(), w, "wishlist.price_alert", err, h.i18n)
		return
	}
	RespondSuccessI18n(r.Context(), w, "success.updated", h.i18n, alert)
}
