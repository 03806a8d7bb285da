// 文件路径: internal/api/handler/content.go
// 模块说明: 首页内容接口：前台横幅，后台轮播、卖点、横幅和分类图标维护。
package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/creamcroissant/vibemall/internal/repository"
	"github.com/creamcroissant/vibemall/internal/service"
	"github.com/creamcroissant/vibemall/internal/support/i18n"
)

// ContentHandler exposes home page content endpoints.
type ContentHandler struct {
	content service.ContentService
	i18n    *i18n.Manager
}

func NewContentHandler(content service.ContentService, i18nMgr *i18n.Manager) *ContentHandler {
	return &ContentHandler{content: content, i18n: i18nMgr}
}

// ContentEndpoints 是一类内容的后台增删改查。
type ContentEndpoints struct {
	List   http.HandlerFunc
	Save   http.HandlerFunc
	Delete http.HandlerFunc
}

// Banners handles GET /content/banners?page=HOME|SHOP
func (h *ContentHandler) Banners(w http.ResponseWriter, r *http.Request) {
	list, err := h.content.Banners(r.Context(), r.URL.Query().Get("page"))
	if err != nil {
		respondServiceError(r.Context(), w, "content.banners", err, h.i18n)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"data": list})
}

func (h *ContentHandler) Sliders() ContentEndpoints {
	return contentEndpoints(h, "sliders", h.content.ListSliders, h.content.SaveSlider, h.content.DeleteSlider,
		func(s *repository.Slider, id int64) { s.ID = id })
}

func (h *ContentHandler) Features() ContentEndpoints {
	return contentEndpoints(h, "features", h.content.ListFeatures, h.content.SaveFeature, h.content.DeleteFeature,
		func(f *repository.Feature, id int64) { f.ID = id })
}

func (h *ContentHandler) AdminBanners() ContentEndpoints {
	return contentEndpoints(h, "banners", h.content.ListBanners, h.content.SaveBanner, h.content.DeleteBanner,
		func(b *repository.Banner, id int64) { b.ID = id })
}

func (h *ContentHandler) CategoryIcons() ContentEndpoints {
	return contentEndpoints(h, "category_icons", h.content.ListCategoryIcons, h.content.SaveCategoryIcon, h.content.DeleteCategoryIcon,
		func(c *repository.CategoryIcon, id int64) { c.ID = id })
}

// contentEndpoints 生成 GET / POST / PUT {id} / DELETE {id} 四个处理器；POST 新建，PUT 按路径 id 更新。
func contentEndpoints[T any](
	h *ContentHandler,
	kind string,
	list func(context.Context) ([]T, error),
	save func(context.Context, T) (*T, error),
	remove func(context.Context, int64) error,
	setID func(*T, int64),
) ContentEndpoints {
	prefix := "admin.content." + kind
	return ContentEndpoints{
		List: func(w http.ResponseWriter, r *http.Request) {
			items, err := list(r.Context())
			if err != nil {
				respondServiceError(r.Context(), w, prefix+".list", err, h.i18n)
				return
			}
			respondJSON(w, http.StatusOK, map[string]any{"data": items})
		},
		Save: func(w http.ResponseWriter, r *http.Request) {
			action := prefix + ".save"
			var payload T
			if err := decodeJSON(r, &payload); err != nil {
				respondServiceError(r.Context(), w, action, err, h.i18n)
				return
			}
			var id int64
			if chi.URLParam(r, "id") != "" {
				var err error
				if id, err = pathID(r, "id"); err != nil {
					respondServiceError(r.Context(), w, action, err, h.i18n)
					return
				}
			}
			setID(&payload, id)
			saved, err := save(r.Context(), payload)
			if err != nil {
				respondServiceError(r.Context(), w, action, err, h.i18n)
				return
			}
			if id == 0 {
				respondJSON(w, http.StatusCreated, map[string]any{
					"message": translate(r.Context(), h.i18n, "success.created"),
					"data":    saved,
				})
				return
			}
			RespondSuccessI18n(r.Context(), w, "success.updated", h.i18n, saved)
		},
		Delete: func(w http.ResponseWriter, r *http.Request) {
			id, err := pathID(r, "id")
			if err == nil {
				err = remove(r.Context(), id)
			}
			if err != nil {
				respondServiceError(r.Context(), w, prefix+".delete", err, h.i18n)
				return
			}
			RespondSuccessI18n(r.Context(), w, "success.deleted", h.i18n, nil)
		},
	}
}
