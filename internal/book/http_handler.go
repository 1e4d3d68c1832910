package book

import (
	"errors"
	"net/http"
	"strconv"

	"bookrec/internal/httpx"
)

type HTTPHandler struct {
	service *Service
}

func NewHTTPHandler(service *Service) *HTTPHandler {
	return &HTTPHandler{service: service}
}

// ParseID reads the {id} path value as a book id.
func ParseID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// List handles GET /books
// @Summary List or search books
// @Description Pages through the catalog, or searches titles and authors when q is set
// @Tags books
// @Produce json
// @Param q query string false "Title or author substring"
// @Param page query int false "Page number (default 1)"
// @Param page_size query int false "Page size (default 20, max 100; search default 10)"
// @Success 200 {object} httpx.SuccessResponse
// @Router /books [get]
func (h *HTTPHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	pageSize, _ := strconv.Atoi(query.Get("page_size"))

	if q := query.Get("q"); q != "" {
		if pageSize <= 0 || pageSize > 100 {
			pageSize = defaultSearchLimit
		}
		books := h.service.Search(q, pageSize)
		if books == nil {
			books = []Book{}
		}
		httpx.JSONSuccess(w, r, books, map[string]any{"q": q, "total": len(books)})
		return
	}

	page, _ := strconv.Atoi(query.Get("page"))
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}

	result := h.service.List(pageSize, (page-1)*pageSize)
	httpx.JSONSuccess(w, r, result.Books, map[string]any{
		"page":        page,
		"page_size":   pageSize,
		"total":       result.Total,
		"total_pages": (result.Total + pageSize - 1) / pageSize,
	})
}

// Get handles GET /books/{id}
// @Summary Get book
// @Tags books
// @Produce json
// @Param id path int true "Book ID"
// @Success 200 {object} httpx.SuccessResponse
// @Failure 404 {object} httpx.ErrorResponse
// @Router /books/{id} [get]
func (h *HTTPHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseID(r)
	if !ok {
		httpx.JSONError(w, r, http.StatusBadRequest, "BAD_REQUEST", "Invalid book ID", nil)
		return
	}

	b, err := h.service.Get(id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.JSONError(w, r, http.StatusNotFound, "NOT_FOUND", "Book not found", nil)
			return
		}
		httpx.InternalError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, b, nil)
}

// Metadata handles GET /books/{id}/metadata
// @Summary Get external book metadata
// @Description Description and up to five genre tags from external services. Upstream failures yield placeholders, never errors.
// @Tags books
// @Produce json
// @Param id path int true "Book ID"
// @Success 200 {object} httpx.SuccessResponse
// @Failure 404 {object} httpx.ErrorResponse
// @Router /books/{id}/metadata [get]
func (h *HTTPHandler) Metadata(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseID(r)
	if !ok {
		httpx.JSONError(w, r, http.StatusBadRequest, "BAD_REQUEST", "Invalid book ID", nil)
		return
	}

	res, err := h.service.Metadata(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.JSONError(w, r, http.StatusNotFound, "NOT_FOUND", "Book not found", nil)
			return
		}
		httpx.InternalError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, res, nil)
}
