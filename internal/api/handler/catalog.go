// 文件路径: internal/api/handler/catalog.go
// 模块说明: 商品浏览、详情、评价与问答（游客可访问，登录用户附带身份）。
package handler

import (
	"net/http"

	"github.com/creamcroissant/vibemall/internal/service"
	"github.com/creamcroissant/vibemall/internal/support/i18n"
)

// CatalogHandler exposes the storefront.
type CatalogHandler struct {
	catalog   service.CatalogService
	reviews   service.ReviewService
	questions service.QuestionService
	i18n      *i18n.Manager
}

func NewCatalogHandler(catalog service.CatalogService, reviews service.ReviewService, questions service.QuestionService, i18nMgr *i18n.Manager) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, reviews: reviews, questions: questions, i18n: i18nMgr}
}

// Home handles GET /home
func (h *CatalogHandler) Home(w http.ResponseWriter, r *http.Request) {
	view, err := h.catalog.Home(r.Context())
	if err != nil {
		respondServiceError(r.Context(), w, "catalog.home", err, h.i18n)
		return
	}
	respondData(w, http.StatusOK, view)
}

// Search handles GET /products?category=&min_price=&max_price=&min_rating=&q=&page=
func (h *CatalogHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	result, err := h.catalog.Search(r.Context(), service.SearchInput{
		Category:  q.Get("category"),
		MinPrice:  q.Get("min_price"),
		MaxPrice:  q.Get("max_price"),
		MinRating: q.Get("min_rating"),
		Query:     q.Get("q"),
		Page:      q.Get("page"),
	})
	if err != nil {
		respondServiceError(r.Context(), w, "catalog.search", err, h.i18n)
		return
	}
	respondData(w, http.StatusOK, result)
}

// Get handles GET /products/{id}
func (h *CatalogHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondServiceError(r.Context(), w, "catalog.get", err, h.i18n)
		return
	}
	detail, err := h.catalog.Get(r.Context(), id, currentUser(r).ID)
	if err != nil {
		respondServiceError(r.Context(), w, "catalog.get", err, h.i18n)
		return
	}
	respondData(w, http.StatusOK, detail)
}

// SpecialOffers handles GET /products/offers
func (h *CatalogHandler) SpecialOffers(w http.ResponseWriter, r *http.Request) {
	list, err := h.catalog.SpecialOffers(r.Context())
	if err != nil {
		respondServiceError(r.Context(), w, "catalog.offers", err, h.i18n)
		return
	}
	respondData(w, http.StatusOK, list)
}

// Categories handles GET /categories
func (h *CatalogHandler) Categories(w http.ResponseWriter, r *http.Request) {
	list, err := h.catalog.CategoryCounts(r.Context())
	if err != nil {
		respondServiceError(r.Context(), w, "catalog.categories", err, h.i18n)
		return
	}
	respondData(w, http.StatusOK, list)
}

// Reviews handles GET /products/{id}/reviews
func (h *CatalogHandler) Reviews(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondServiceError(r.Context(), w, "catalog.reviews", err, h.i18n)
		return
	}
	list, page, err := h.reviews.ListForProduct(r.Context(), id, queryInt(r, "page"))
	if err != nil {
		respondServiceError(r.Context(), w, "catalog.reviews", err, h.i18n)
		return
	}
	respondPage(w, list, page)
}

// SubmitReview handles POST /products/{id}/reviews；游客也可以提交，审核后展示。
func (h *CatalogHandler) SubmitReview(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondServiceError(r.Context(), w, "catalog.review.submit", err, h.i18n)
		return
	}
	var payload service.ReviewInput
	if err := decodeJSON(r, &payload); err != nil {
		respondServiceError(r.Context(), w, "catalog.review.submit", err, h.i18n)
		return
	}
	payload.ProductID = id
	review, err := h.reviews.Submit(r.Context(), currentUser(r).ID, payload)
	if err != nil {
		respondServiceError(r.Context(), w, "catalog.review.submit", err, h.i18n)
		return
	}
	RespondSuccessI18n(r.Context(), w, "success.review_submitted", h.i18n, review)
}

type voteRequest struct {
	Helpful bool `json:"helpful"`
}

// VoteReview handles POST /reviews/{id}/vote
func (h *CatalogHandler) VoteReview(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	if !user.Authenticated() {
		respondServiceError(r.Context(), w, "catalog.review.vote", service.ErrUnauthorized, h.i18n)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		respondServiceError(r.Context(), w, "catalog.review.vote", err, h.i18n)
		return
	}
	var payload voteRequest
	if err := decodeJSON(r, &payload); err != nil {
		respondServiceError(r.Context(), w, "catalog.review.vote", err, h.i18n)
		return
	}
	review, err := h.reviews.Vote(r.Context(), user.ID, id, payload.Helpful)
	if err != nil {
		respondServiceError(r.Context(), w, "catalog.review.vote", err, h.i18n)
		return
	}
	RespondSuccessI18n(r.Context(), w, "success.vote_recorded", h.i18n, review)
}

// Questions handles GET /products/{id}/questions
func (h *CatalogHandler) Questions(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondServiceError(r.Context(), w, "catalog.questions", err, h.i18n)
		return
	}
	list, page, err := h.questions.ListForProduct(r.Context(), id, queryInt(r, "page"))
	if err != nil {
		respondServiceError(r.Context(), w, "catalog.questions", err, h.i18n)
		return
	}
	respondPage(w, list, page)
}

type questionRequest struct {
	Question string `json:"question"`
}

// AskQuestion handles POST /products/{id}/questions (login required)
func (h *CatalogHandler) AskQuestion(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondServiceError(r.Context(), w, "catalog.question.ask", err, h.i18n)
		return
	}
	var payload questionRequest
	if err := decodeJSON(r, &payload); err != nil {
		respondServiceError(r.Context(), w, "catalog.question.ask", err, h.i18n)
		return
	}
	question, err := h.questions.Ask(r.Context(), currentUser(r).ID, id, payload.Question)
	if err != nil {
		respondServiceError(r.Context(), w, "catalog.question.ask", err, h.i18n)
		return
	}
	RespondSuccessI18n(r.Context(), w, "success.question_submitted", h.i18n, question)
}
