package wishlist

import (
	"errors"
	"net/http"

	"bookrec/internal/book"
	"bookrec/internal/httpx"
)

type HTTPHandler struct {
	service *Service
}

func NewHTTPHandler(service *Service) *HTTPHandler {
	return &HTTPHandler{service: service}
}

// Toggle handles POST /me/wishlist/{id}
// @Summary Toggle wishlist membership
// @Description Adds the book to the wishlist, or removes it if already present
// @Tags wishlist
// @Produce json
// @Security Bearer
// @Param id path int true "Book ID"
// @Success 200 {object} httpx.SuccessResponse
// @Failure 401 {object} httpx.ErrorResponse
// @Failure 404 {object} httpx.ErrorResponse
// @Failure 500 {object} httpx.ErrorResponse
// @Router /me/wishlist/{id} [post]
func (h *HTTPHandler) Toggle(w http.ResponseWriter, r *http.Request) {
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

	on, err := h.service.Toggle(r.Context(), userID, bookID)
	if err != nil {
		if errors.Is(err, book.ErrNotFound) {
			httpx.JSONError(w, r, http.StatusNotFound, "NOT_FOUND", "Book not found", nil)
			return
		}
		httpx.InternalError(w, r, err)
		return
	}

	httpx.JSONSuccess(w, r, map[string]any{
		"book_id":    bookID,
		"wishlisted": on,
	}, nil)
}

// List handles GET /me/wishlist
// @Summary List wishlisted books
// @Tags wishlist
// @Produce json
// @Security Bearer
// @Success 200 {object} httpx.SuccessResponse
// @Failure 401 {object} httpx.ErrorResponse
// @Router /me/wishlist [get]
func (h *HTTPHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := httpx.UserIDFrom(r)
	if userID == "" {
		httpx.Unauthorized(w, r)
		return
	}

	books, err := h.service.Books(r.Context(), userID)
	if err != nil {
		httpx.InternalError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, books, map[string]any{"total": len(books)})
}
