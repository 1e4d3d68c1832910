package rating

import (
	"encoding/json"
	"errors"
	"net/http"

	"bookrec/internal/book"
	"bookrec/internal/httpx"
)

const (
	MessageAdded     = "Rating added successfully"
	MessageUpdated   = "Rating updated successfully"
	MessageNotFound  = "No rating found for this book"
	MessageNoRatings = "You have no ratings yet!"
)

type HTTPHandler struct {
	service *Service
}

func NewHTTPHandler(service *Service) *HTTPHandler {
	return &HTTPHandler{service: service}
}

type rateReq struct {
	Value int `json:"value"`
}

type rateResp struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Rating  Rating `json:"rating"`
}

// Rate handles POST /books/{id}/rating
// @Summary Rate a book
// @Description Create or replace the current user's 1-5 rating of a book
// @Tags ratings
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "Book ID"
// @Param request body rateReq true "Rating request"
// @Success 200 {object} httpx.SuccessResponse
// @Success 201 {object} httpx.SuccessResponse
// @Failure 400 {object} httpx.ErrorResponse
// @Failure 401 {object} httpx.ErrorResponse
// @Failure 404 {object} httpx.ErrorResponse
// @Failure 500 {object} httpx.ErrorResponse
// @Router /books/{id}/rating [post]
func (h *HTTPHandler) Rate(w http.ResponseWriter, r *http.Request) {
	userID := httpx.UserIDFrom(r)
	if userID == "" {
		httpx.Unauthorized(w, r)
		return
	}

	bookID, ok := book.ParseID(r)
	if !ok {
		httpx.JSONError(w, r, http.StatusBadRequest, "BAD_REQUEST", "Invalid book ID", nil)
		return
	}

	var req rateReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, r, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body", nil)
		return
	}

	created, err := h.service.Rate(r.Context(), userID, bookID, req.Value)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidRating):
			httpx.JSONError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid input", []httpx.ErrorDetail{
				{Field: "value", Message: ErrInvalidRating.Error()},
			})
		case errors.Is(err, book.ErrNotFound):
			httpx.JSONError(w, r, http.StatusNotFound, "NOT_FOUND", "Book not found", nil)
		default:
			httpx.InternalError(w, r, err)
		}
		return
	}

	resp := rateResp{
		Status:  "updated",
		Message: MessageUpdated,
		Rating:  Rating{UserID: userID, BookID: bookID, Value: req.Value},
	}
	if created {
		resp.Status = "added"
		resp.Message = MessageAdded
		httpx.JSONCreated(w, r, resp)
		return
	}
	httpx.JSONSuccess(w, r, resp, nil)
}

// Get handles GET /books/{id}/rating
// @Summary Get my rating of a book
// @Tags ratings
// @Produce json
// @Security Bearer
// @Param id path int true "Book ID"
// @Success 200 {object} httpx.SuccessResponse
// @Failure 401 {object} httpx.ErrorResponse
// @Failure 404 {object} httpx.ErrorResponse
// @Router /books/{id}/rating [get]
func (h *HTTPHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := httpx.UserIDFrom(r)
	if userID == "" {
		httpx.Unauthorized(w, r)
		return
	}

	bookID, ok := book.ParseID(r)
	if !ok {
		httpx.JSONError(w, r, http.StatusBadRequest, "BAD_REQUEST", "Invalid book ID", nil)
		return
	}

	rating, err := h.service.UserRating(r.Context(), userID, bookID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.JSONError(w, r, http.StatusNotFound, "NOT_FOUND", MessageNotFound, nil)
			return
		}
		httpx.InternalError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, rating, nil)
}

// ListMine handles GET /me/ratings
// @Summary List my rated books
// @Tags ratings
// @Produce json
// @Security Bearer
// @Success 200 {object} httpx.SuccessResponse
// @Failure 401 {object} httpx.ErrorResponse
// @Router /me/ratings [get]
func (h *HTTPHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	userID := httpx.UserIDFrom(r)
	if userID == "" {
		httpx.Unauthorized(w, r)
		return
	}

	rated, err := h.service.RatedBooks(r.Context(), userID)
	if err != nil {
		httpx.InternalError(w, r, err)
		return
	}

	meta := map[string]any{"total": len(rated)}
	if len(rated) == 0 {
		meta["message"] = MessageNoRatings
	}
	httpx.JSONSuccess(w, r, rated, meta)
}
