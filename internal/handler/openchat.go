package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/wooahyo/internal/middleware"
	"github.com/wooahyo/internal/model"
	"github.com/wooahyo/internal/service"
	"github.com/wooahyo/internal/ws"
)

type OpenChatHandler struct {
	openChats *service.OpenChats
	rooms     *service.Rooms
	hub       *ws.Hub
}

func NewOpenChatHandler(openChats *service.OpenChats, rooms *service.Rooms, hub *ws.Hub) *OpenChatHandler {
	return &OpenChatHandler{openChats: openChats, rooms: rooms, hub: hub}
}

type createOpenChatRequest struct {
	ApartmentID  string  `json:"apartment_id"`
	Title        string  `json:"title"`
	Description  string  `json:"description"`
	ChatType     string  `json:"chat_type"`
	ExternalLink *string `json:"external_link"`
	AccessCode   *string `json:"access_code"`
	Category     string  `json:"category"`
}

func (h *OpenChatHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createOpenChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if req.ApartmentID == "" {
		writeError(w, http.StatusBadRequest, "apartment_id required")
		return
	}

	oc, err := h.openChats.Create(r.Context(), service.CreateOpenChatInput{
		ApartmentID:  req.ApartmentID,
		CreatorID:    middleware.GetUserID(r.Context()),
		Title:        req.Title,
		Description:  req.Description,
		ChatType:     model.OpenChatType(req.ChatType),
		ExternalLink: req.ExternalLink,
		AccessCode:   req.AccessCode,
		Category:     req.Category,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, oc)
}

func (h *OpenChatHandler) Get(w http.ResponseWriter, r *http.Request) {
	oc, err := h.openChats.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, oc)
}

func (h *OpenChatHandler) List(w http.ResponseWriter, r *http.Request) {
	apartmentID := r.URL.Query().Get("apartment_id")
	if apartmentID == "" {
		writeError(w, http.StatusBadRequest, "apartment_id required")
		return
	}
	chats, err := h.openChats.ListByApartment(r.Context(), apartmentID, queryInt(r, "limit", 50))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, chats)
}

func (h *OpenChatHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	if err := h.openChats.Deactivate(r.Context(), chi.URLParam(r, "id"), middleware.GetUserID(r.Context())); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deactivated": true})
}

// Approve posts the approval card into an access-request room and pushes it
// to both participants.
func (h *OpenChatHandler) Approve(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "id")
	userID := middleware.GetUserID(r.Context())

	msg, err := h.openChats.ApproveAccess(r.Context(), roomID, userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	if h.hub != nil {
		if room, err := h.rooms.Get(r.Context(), roomID, userID); err == nil {
			h.hub.Broadcast(r.Context(), roomID, []string{room.BuyerID, room.SellerID},
				ws.OutgoingMessage{Type: ws.EventNewMessage, Payload: msg})
		}
	}
	writeJSON(w, http.StatusCreated, msg)
}
