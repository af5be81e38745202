package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/wooahyo/internal/middleware"
	"github.com/wooahyo/internal/service"
)

type ChatHandler struct {
	rooms *service.Rooms
}

func NewChatHandler(rooms *service.Rooms) *ChatHandler {
	return &ChatHandler{rooms: rooms}
}

type createPostChatRequest struct {
	PostID string `json:"post_id"`
}

func (h *ChatHandler) CreateForPost(w http.ResponseWriter, r *http.Request) {
	var req createPostChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PostID == "" {
		writeError(w, http.StatusBadRequest, "post_id required")
		return
	}

	room, created, err := h.rooms.GetOrCreateForPost(r.Context(), req.PostID, middleware.GetUserID(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, room)
}

type createOpenChatRoomRequest struct {
	OpenChatID string `json:"open_chat_id"`
}

func (h *ChatHandler) CreateForOpenChat(w http.ResponseWriter, r *http.Request) {
	var req createOpenChatRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.OpenChatID == "" {
		writeError(w, http.StatusBadRequest, "open_chat_id required")
		return
	}

	room, created, err := h.rooms.GetOrCreateForOpenChat(r.Context(), req.OpenChatID, middleware.GetUserID(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, room)
}

func (h *ChatHandler) List(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.rooms.ListForUser(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summaries)
}

func (h *ChatHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	room, err := h.rooms.Get(r.Context(), chi.URLParam(r, "id"), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	unread, err := h.rooms.Unread(r.Context(), room.ID, userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"room": room, "unread": unread})
}

func (h *ChatHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	if err := h.rooms.MarkRead(r.Context(), chi.URLParam(r, "id"), middleware.GetUserID(r.Context())); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
