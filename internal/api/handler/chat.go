// 文件路径: internal/api/handler/chat.go
// 模块说明: 客服会话接口：登录用户、访客（凭 access key）与后台。
package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/creamcroissant/vibemall/internal/service"
	"github.com/creamcroissant/vibemall/internal/support/i18n"
)

// ChatHandler exposes support chat endpoints.
type ChatHandler struct {
	chat service.ChatService
	i18n *i18n.Manager
}

func NewChatHandler(chat service.ChatService, i18nMgr *i18n.Manager) *ChatHandler {
	return &ChatHandler{chat: chat, i18n: i18nMgr}
}

// Open handles POST /chat，返回当前用户未关闭的会话。
func (h *ChatHandler) Open(w http.ResponseWriter, r *http.Request) {
	thread, err := h.chat.Open(r.Context(), currentUser(r).ID)
	if err != nil {
		respondServiceError(r.Context(), w, "chat.open", err, h.i18n)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"data": thread})
}

type guestChatRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// OpenGuest handles POST /guest-chat
func (h *ChatHandler) OpenGuest(w http.ResponseWriter, r *http.Request) {
	var payload guestChatRequest
	if err := decodeJSON(r, &payload); err != nil {
		respondServiceError(r.Context(), w, "chat.guest.open", err, h.i18n)
		return
	}
	result, err := h.chat.OpenGuest(r.Context(), payload.Name, payload.Email)
	if err != nil {
		respondServiceError(r.Context(), w, "chat.guest.open", err, h.i18n)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{"data": result})
}

// Messages 返回 GET .../messages?after= 的处理器。
func (h *ChatHandler) Messages(scope string) http.HandlerFunc {
	action := scope + ".messages"
	return func(w http.ResponseWriter, r *http.Request) {
		actor, threadID, err := h.actor(r, scope)
		if err != nil {
			respondServiceError(r.Context(), w, action, err, h.i18n)
			return
		}
		after, _ := strconv.ParseInt(r.URL.Query().Get("after"), 10, 64)
		list, err := h.chat.Messages(r.Context(), actor, threadID, after)
		if err != nil {
			respondServiceError(r.Context(), w, action, err, h.i18n)
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{"data": list})
	}
}

// Send 返回 POST .../messages 的处理器。
func (h *ChatHandler) Send(scope string) http.HandlerFunc {
	action := scope + ".send"
	return func(w http.ResponseWriter, r *http.Request) {
		actor, threadID, err := h.actor(r, scope)
		if err != nil {
			respondServiceError(r.Context(), w, action, err, h.i18n)
			return
		}
		var payload service.ChatInput
		if err := decodeJSON(r, &payload); err != nil {
			respondServiceError(r.Context(), w, action, err, h.i18n)
			return
		}
		msg, err := h.chat.Send(r.Context(), actor, threadID, payload)
		if err != nil {
			respondServiceError(r.Context(), w, action, err, h.i18n)
			return
		}
		respondJSON(w, http.StatusCreated, map[string]any{"data": msg})
	}
}

// actor 按路由范围识别调用方：chat 用登录用户，chat.guest 用路径中的 key，admin.chats 为后台。
func (h *ChatHandler) actor(r *http.Request, scope string) (service.ChatActor, int64, error) {
	switch scope {
	case "chat.guest":
		key := chi.URLParam(r, "key")
		if key == "" {
			return service.ChatActor{}, 0, errBadRequest
		}
		return service.ChatActor{AccessKey: key}, 0, nil
	case "admin.chats":
		id, err := pathID(r, "id")
		return service.ChatActor{Admin: true}, id, err
	}
	id, err := pathID(r, "id")
	return service.ChatActor{UserID: currentUser(r).ID}, id, err
}

// Threads handles GET /admin/chats?status=&page=
func (h *ChatHandler) Threads(w http.ResponseWriter, r *http.Request) {
	list, page, err := h.chat.ListThreads(r.Context(), r.URL.Query().Get("status"), queryInt(r, "page"))
	if err != nil {
		respondServiceError(r.Context(), w, "admin.chats.list", err, h.i18n)
		return
	}
	respondPage(w, list, page)
}

type chatStatusRequest struct {
	Status string `json:"status"`
}

// SetStatus handles POST /admin/chats/{id}/status
func (h *ChatHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondServiceError(r.Context(), w, "admin.chats.status", err, h.i18n)
		return
	}
	var payload chatStatusRequest
	if err := decodeJSON(r, &payload); err != nil {
		respondServiceError(r.Context(), w, "admin.chats.status", err, h.i18n)
		return
	}
	if err := h.chat.SetStatus(r.Context(), id, payload.Status); err != nil {
		respondServiceError(r.Context(), w, "admin.chats.status", err, h.i18n)
		return
	}
	RespondSuccessI18n(r.Context(), w, "success.updated", h.i18n, nil)
}
