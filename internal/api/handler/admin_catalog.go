// 文件路径: internal/api/handler/admin_catalog.go
// 模块说明: 后台商品、首页运营位、评价与问答审核。
package handler

import (
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/creamcroissant/vibemall/internal/service"
	"github.com/creamcroissant/vibemall/internal/support/i18n"
)

const maxImportBytes = 5 << 20

// AdminCatalogHandler exposes product and moderation endpoints.
type AdminCatalogHandler struct {
	catalog   service.CatalogService
	reviews   service.ReviewService
	questions service.QuestionService
	i18n      *i18n.Manager
}

func NewAdminCatalogHandler(catalog service.CatalogService, reviews service.ReviewService, questions service.QuestionService, i18nMgr *i18n.Manager) *AdminCatalogHandler {
	return &AdminCatalogHandler{catalog: catalog, reviews: reviews, questions: questions, i18n: i18nMgr}
}

// CreateProduct handles POST /admin/products
func (h *AdminCatalogHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var payload service.ProductInput
	if err := decodeJSON(r, &payload); err != nil {
		respondServiceError(r.Context(), w, "admin.products.create", err, h.i18n)
		return
	}
	product, err := h.catalog.Create(r.Context(), payload)
	if err != nil {
		respondServiceError(r.Context(), w, "admin.products.create", err, h.i18n)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{
		"message": translate(r.Context(), h.i18n, "success.created"),
		"data":    product,
	})
}

// UpdateProduct handles PUT /admin/products/{id}
func (h *AdminCatalogHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondServiceError(r.Context(), w, "admin.products.update", err, h.i18n)
		return
	}
	var payload service.ProductInput
	if err := decodeJSON(r, &payload); err != nil {
		respondServiceError(r.Context(), w, "admin.products.update", err, h.i18n)
		return
	}
	product, err := h.catalog.Update(r.Context(), id, payload)
	if err != nil {
		respondServiceError(r.Context(), w, "admin.products.update", err, h.i18n)
		return
	}
	RespondSuccessI18n(r.Context(), w, "success.updated", h.i18n, product)
}

// DeleteProduct handles DELETE /admin/products/{id}
func (h *AdminCatalogHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err == nil {
		err = h.catalog.Delete(r.Context(), id)
	}
	if err != nil {
		respondServiceError(r.Context(), w, "admin.products.delete", err, h.i18n)
		return
	}
	RespondSuccessI18n(r.Context(), w, "success.deleted", h.i18n, nil)
}

type imagesRequest struct {
	URLs []string `json:"urls"`
}

// SetImages handles PUT /admin/products/{id}/images，整体替换图片列表。
func (h *AdminCatalogHandler) SetImages(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondServiceError(r.Context(), w, "admin.products.images", err, h.i18n)
		return
	}
	var payload imagesRequest
	if err := decodeJSON(r, &payload); err != nil {
		respondServiceError(r.Context(), w, "admin.products.images", err, h.i18n)
		return
	}
	images, err := h.catalog.SetImages(r.Context(), id, payload.URLs)
	if err != nil {
		respondServiceError(r.Context(), w, "admin.products.images", err, h.i18n)
		return
	}
	RespondSuccessI18n(r.Context(), w, "success.updated", h.i18n, images)
}

type ratingRequest struct {
	Rating float64 `json:"rating"`
}

// AdjustRating handles POST /admin/products/{id}/rating
func (h *AdminCatalogHandler) AdjustRating(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondServiceError(r.Context(), w, "admin.products.rating", err, h.i18n)
		return
	}
	var payload ratingRequest
	if err := decodeJSON(r, &payload); err != nil {
		respondServiceError(r.Context(), w, "admin.products.rating", err, h.i18n)
		return
	}
	if err := h.catalog.AdjustRating(r.Context(), id, payload.Rating); err != nil {
		respondServiceError(r.Context(), w, "admin.products.rating", err, h.i18n)
		return
	}
	RespondSuccessI18n(r.Context(), w, "success.updated", h.i18n, nil)
}

// Import handles POST /admin/products/import，请求体为 YAML 商品清单。
func (h *AdminCatalogHandler) Import(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImportBytes)
	var body io.Reader = r.Body
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		file, _, err := r.FormFile("file")
		if err != nil {
			respondServiceError(r.Context(), w, "admin.products.import", errBadRequest, h.i18n)
			return
		}
		defer file.Close()
		body = file
	}
	result, err := h.catalog.Import(r.Context(), body)
	if err != nil {
		respondServiceError(r.Context(), w, "admin.products.import", err, h.i18n)
		return
	}
	RespondSuccessI18n(r.Context(), w, "success.import_done", h.i18n, result)
}

type countdownRequest struct {
	Title   string `json:"title"`
	EndTime int64  `json:"end_time"`
}

// SetCountdown handles PUT /admin/home/countdown
func (h *AdminCatalogHandler) SetCountdown(w http.ResponseWriter, r *http.Request) {
	var payload countdownRequest
	if err := decodeJSON(r, &payload); err != nil {
		respondServiceError(r.Context(), w, "admin.home.countdown", err, h.i18n)
		return
	}
	countdown, err := h.catalog.SetCountdown(r.Context(), payload.Title, payload.EndTime)
	if err != nil {
		respondServiceError(r.Context(), w, "admin.home.countdown", err, h.i18n)
		return
	}
	RespondSuccessI18n(r.Context(), w, "success.updated", h.i18n, countdown)
}

type sectionRequest struct {
	ProductIDs []int64 `json:"product_ids"`
}

// SetSection handles PUT /admin/home/sections/{section}
func (h *AdminCatalogHandler) SetSection(w http.ResponseWriter, r *http.Request) {
	var payload sectionRequest
	if err := decodeJSON(r, &payload); err != nil {
		respondServiceError(r.Context(), w, "admin.home.section", err, h.i18n)
		return
	}
	if err := h.catalog.SetMainPageSection(r.Context(), chi.URLParam(r, "section"), payload.ProductIDs); err != nil {
		respondServiceError(r.Context(), w, "admin.home.section", err, h.i18n)
		return
	}
	RespondSuccessI18n(r.Context(), w, "success.updated", h.i18n, nil)
}

// PendingReviews handles GET /admin/reviews
func (h *AdminCatalogHandler) PendingReviews(w http.ResponseWriter, r *http.Request) {
	list, page, err := h.reviews.ListPending(r.Context(), queryInt(r, "page"))
	if err != nil {
		respondServiceError(r.Context(), w, "admin.reviews.list", err, h.i18n)
		return
	}
	respondPage(w, list, page)
}

// ApproveReview handles POST /admin/reviews/{id}/approve
func (h *AdminCatalogHandler) ApproveReview(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err == nil {
		err = h.reviews.Approve(r.Context(), id)
	}
	if err != nil {
		respondServiceError(r.Context(), w, "admin.reviews.approve", err, h.i18n)
		return
	}
	RespondSuccessI18n(r.Context(), w, "success.updated", h.i18n, nil)
}

// DeleteReview handles DELETE /admin/reviews/{id}
func (h *AdminCatalogHandler) DeleteReview(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err == nil {
		err = h.reviews.Delete(r.Context(), id)
	}
	if err != nil {
		respondServiceError(r.Context(), w, "admin.reviews.delete", err, h.i18n)
		return
	}
	RespondSuccessI18n(r.Context(), w, "success.deleted", h.i18n, nil)
}

// DeleteReviewImage handles DELETE /admin/reviews/{id}/images/{imageID}
func (h *AdminCatalogHandler) DeleteReviewImage(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondServiceError(r.Context(), w, "admin.reviews.images.delete", err, h.i18n)
		return
	}
	imageID, err := pathID(r, "imageID")
	if err == nil {
		err = h.reviews.DeleteImage(r.Context(), id, imageID)
	}
	if err != nil {
		respondServiceError(r.Context(), w, "admin.reviews.images.delete", err, h.i18n)
		return
	}
	RespondSuccessI18n(r.Context(), w, "success.deleted", h.i18n, nil)
}

// Questions handles GET /admin/questions?answered=
func (h *AdminCatalogHandler) Questions(w http.ResponseWriter, r *http.Request) {
	list, page, err := h.questions.ListAdmin(r.Context(), queryBool(r, "answered"), queryInt(r, "page"))
	if err != nil {
		respondServiceError(r.Context(), w, "admin.questions.list", err, h.i18n)
		return
	}
	respondPage(w, list, page)
}

type answerRequest struct {
	Answer string `json:"answer"`
}

// AnswerQuestion handles POST /admin/questions/{id}/answer
func (h *AdminCatalogHandler) AnswerQuestion(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondServiceError(r.Context(), w, "admin.questions.answer", err, h.i18n)
		return
	}
	var payload answerRequest
	if err := decodeJSON(r, &payload); err != nil {
		respondServiceError(r.Context(), w, "admin.questions.answer", err, h.i18n)
		return
	}
	question, err := h.questions.Answer(r.Context(), currentUser(r).ID, id, payload.Answer)
	if err != nil {
		respondServiceError(r.Context(), w, "admin.questions.answer", err, h.i18n)
		return
	}
	RespondSuccessI18n(r.Context(), w, "success.updated", h.i18n, question)
}

type approvedRequest struct {
	Approved bool `json:"approved"`
}

// SetQuestionApproved handles POST /admin/questions/{id}/approval
func (h *AdminCatalogHandler) SetQuestionApproved(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondServiceError(r.Context(), w, "admin.questions.approval", err, h.i18n)
		return
	}
	var payload approvedRequest
	if err := decodeJSON(r, &payload); err != nil {
		respondServiceError(r.Context(), w, "admin.questions.approval", err, h.i18n)
		return
	}
	if err := h.questions.SetApproved(r.Context(), id, payload.Approved); err != nil {
		respondServiceError(r.Context(), w, "admin.questions.approval", err, h.i18n)
		return
	}
	RespondSuccessI18n(r.Context(), w, "success.updated", h.i18n, nil)
}

// DeleteQuestion handles DELETE /admin/questions/{id}
func (h *AdminCatalogHandler) DeleteQuestion(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err == nil {
		err = h.questions.Delete(r.Context(), id)
	}
	if err != nil {
		respondServiceError(r.Context(), w, "admin.questions.delete", err, h.i18n)
		return
	}
	RespondSuccessI18n(r.Context(), w, "success.deleted", h.i18n, nil)
}
