package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/wooahyo/internal/logger"
	"github.com/wooahyo/internal/middleware"
	"github.com/wooahyo/internal/model"
	"github.com/wooahyo/internal/service"
	"github.com/wooahyo/internal/ws"
)

type PostHandler struct {
	posts        *service.Posts
	transactions *service.Transactions
	rooms        *service.Rooms
	messages     *service.Messages
	hub          *ws.Hub
}

func NewPostHandler(posts *service.Posts, transactions *service.Transactions, rooms *service.Rooms, messages *service.Messages, hub *ws.Hub) *PostHandler {
	return &PostHandler{posts: posts, transactions: transactions, rooms: rooms, messages: messages, hub: hub}
}

type postRequest struct {
	ApartmentID  string   `json:"apartment_id"`
	Type         string   `json:"type"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	CategoryID   *string  `json:"category_id"`
	LocationID   *string  `json:"location_id"`
	Images       []string `json:"images"`
	Price        *int64   `json:"price"`
	IsNegotiable bool     `json:"is_negotiable"`
	Quantity     int      `json:"quantity"`
	Deposit      *int64   `json:"deposit"`
	RentalFee    *int64   `json:"rental_fee"`
	RentalPeriod *string  `json:"rental_period"`
}

func (req *postRequest) input() service.PostInput {
	return service.PostInput{
		Type:         model.PostType(req.Type),
		Title:        req.Title,
		Description:  req.Description,
		CategoryID:   req.CategoryID,
		LocationID:   req.LocationID,
		Images:       req.Images,
		Price:        req.Price,
		IsNegotiable: req.IsNegotiable,
		Quantity:     req.Quantity,
		Deposit:      req.Deposit,
		RentalFee:    req.RentalFee,
		RentalPeriod: req.RentalPeriod,
	}
}

func (h *PostHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req postRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if req.ApartmentID == "" {
		writeError(w, http.StatusBadRequest, "apartment_id required")
		return
	}

	userID := middleware.GetUserID(r.Context())
	post, err := h.posts.Create(r.Context(), userID, req.ApartmentID, req.input())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, post)
}

func (h *PostHandler) Get(w http.ResponseWriter, r *http.Request) {
	post, err := h.posts.Get(r.Context(), chi.URLParam(r, "id"), middleware.GetUserID(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

func (h *PostHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req postRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	post, err := h.posts.Update(r.Context(), chi.URLParam(r, "id"), middleware.GetUserID(r.Context()), req.input())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

func (h *PostHandler) List(w http.ResponseWriter, r *http.Request) {
	apartmentID := r.URL.Query().Get("apartment_id")
	if apartmentID == "" {
		writeError(w, http.StatusBadRequest, "apartment_id required")
		return
	}
	posts, err := h.posts.ListByApartment(r.Context(), apartmentID, queryInt(r, "limit", 50))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

func (h *PostHandler) Hide(w http.ResponseWriter, r *http.Request) {
	if err := h.transactions.Hide(r.Context(), chi.URLParam(r, "id"), middleware.GetUserID(r.Context())); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"hidden": true})
}

type changeStatusRequest struct {
	Status string `json:"status"`
	// BuyerID selects the reservation target; on cancel it locates the room
	// for the notice.
	BuyerID *string `json:"buyer_id"`
}

func (h *PostHandler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	var req changeStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	postID := chi.URLParam(r, "id")
	userID := middleware.GetUserID(r.Context())
	next := model.PostStatus(req.Status)

	post, err := h.transactions.ChangeStatus(r.Context(), postID, userID, next, req.BuyerID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	h.notifyStatusChange(r.Context(), post, userID, req.BuyerID)
	writeJSON(w, http.StatusOK, post)
}

// notifyStatusChange pushes the canned notice into the buyer's room and
// broadcasts the lifecycle event. Best-effort: the transition already
// happened and is never rolled back over a failed notice.
func (h *PostHandler) notifyStatusChange(ctx context.Context, post *model.Post, actorID string, reqBuyer *string) {
	buyerID := post.BuyerID
	if buyerID == nil {
		buyerID = reqBuyer
	}
	if buyerID == nil || *buyerID == "" {
		return
	}

	room, err := h.rooms.FindForPost(ctx, post.ID, *buyerID)
	if err != nil {
		logger.Infof("status notice: no room for post=%s buyer=%s", post.ID, *buyerID)
		return
	}

	participants := []string{room.BuyerID, room.SellerID}
	if notice, ok := service.StatusNotice(post.Status); ok {
		msg, err := h.messages.SendSystem(ctx, room.ID, actorID, model.MessageKindNotice, notice)
		if err != nil {
			logger.Errorf("status notice post=%s room=%s: %v", post.ID, room.ID, err)
		} else if h.hub != nil {
			h.hub.Broadcast(ctx, room.ID, participants, ws.OutgoingMessage{Type: ws.EventNewMessage, Payload: msg})
		}
	}
	if h.hub != nil {
		h.hub.Broadcast(ctx, room.ID, participants, ws.OutgoingMessage{
			Type:    ws.EventStatusChanged,
			Payload: ws.StatusChangedPayload{RoomID: room.ID, PostID: post.ID, Status: string(post.Status)},
		})
	}
}

func (h *PostHandler) ToggleBookmark(w http.ResponseWriter, r *http.Request) {
	bookmarked, err := h.posts.ToggleBookmark(r.Context(), chi.URLParam(r, "id"), middleware.GetUserID(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"bookmarked": bookmarked})
}
