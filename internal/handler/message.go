package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/wooahyo/internal/middleware"
	"github.com/wooahyo/internal/service"
	"github.com/wooahyo/internal/ws"
)

type MessageHandler struct {
	messages *service.Messages
	rooms    *service.Rooms
	hub      *ws.Hub
}

func NewMessageHandler(messages *service.Messages, rooms *service.Rooms, hub *ws.Hub) *MessageHandler {
	return &MessageHandler{messages: messages, rooms: rooms, hub: hub}
}

func (h *MessageHandler) List(w http.ResponseWriter, r *http.Request) {
	msgs, err := h.messages.List(r.Context(), chi.URLParam(r, "id"), middleware.GetUserID(r.Context()), queryInt(r, "limit", 100))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, msgs)
}

type sendMessageRequest struct {
	Content   string `json:"content"`
	ClientKey string `json:"client_key"`
}

// Send is the REST fallback for clients without a live WebSocket. Delivery
// to connected participants still goes through the hub.
func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	roomID := chi.URLParam(r, "id")
	userID := middleware.GetUserID(r.Context())

	var clientKey *string
	if req.ClientKey != "" {
		clientKey = &req.ClientKey
	}
	msg, err := h.messages.Send(r.Context(), roomID, userID, req.Content, clientKey)
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
