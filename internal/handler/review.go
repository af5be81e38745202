package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/wooahyo/internal/middleware"
	"github.com/wooahyo/internal/service"
)

type ReviewHandler struct {
	reviews *service.Reviews
}

func NewReviewHandler(reviews *service.Reviews) *ReviewHandler {
	return &ReviewHandler{reviews: reviews}
}

type createReviewRequest struct {
	Rating  int    `json:"rating"`
	Content string `json:"content"`
}

func (h *ReviewHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	review, err := h.reviews.Create(r.Context(), chi.URLParam(r, "id"), middleware.GetUserID(r.Context()), req.Rating, req.Content)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, review)
}

func (h *ReviewHandler) ListForUser(w http.ResponseWriter, r *http.Request) {
	reviews, err := h.reviews.ListForUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reviews)
}
