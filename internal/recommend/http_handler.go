package recommend

import (
	"net/http"
	"strconv"

	"bookrec/internal/httpx"

	"github.com/rs/zerolog/log"
)

const maxLimit = 50

type HTTPHandler struct {
	scorer       *Scorer
	defaultLimit int
}

func NewHTTPHandler(scorer *Scorer, defaultLimit int) *HTTPHandler {
	if defaultLimit <= 0 {
		defaultLimit = DefaultLimit
	}
	return &HTTPHandler{scorer: scorer, defaultLimit: defaultLimit}
}

// Recommend handles GET /me/recommendations
// @Summary Recommend books
// @Description Rank unseen books by the authors and genres of the user's highly rated books
// @Tags recommendations
// @Produce json
// @Security Bearer
// @Param limit query int false "Maximum number of books (default 10, max 50)"
// @Success 200 {object} httpx.SuccessResponse
// @Failure 400 {object} httpx.ErrorResponse
// @Failure 401 {object} httpx.ErrorResponse
// @Failure 500 {object} httpx.ErrorResponse
// @Router /me/recommendations [get]
func (h *HTTPHandler) Recommend(w http.ResponseWriter, r *http.Request) {
	userID := httpx.UserIDFrom(r)
	if userID == "" {
		httpx.Unauthorized(w, r)
		return
	}

	limit := h.defaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxLimit {
			httpx.JSONError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid input", []httpx.ErrorDetail{
				{Field: "limit", Message: "limit must be between 1 and 50"},
			})
			return
		}
		limit = n
	}

	rec, err := h.scorer.Recommend(r.Context(), userID, limit)
	if err != nil {
		httpx.InternalError(w, r, err)
		return
	}

	log.Debug().
		Str("user_id", userID).
		Str("status", string(rec.Status)).
		Int("count", len(rec.Books)).
		Msg("recommendations computed")

	httpx.JSONSuccess(w, r, rec, map[string]any{"limit": limit})
}
