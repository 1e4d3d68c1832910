package user

import (
	"encoding/json"
	"errors"
	"net/http"

	"bookrec/internal/httpx"
)

type HTTPHandler struct {
	service *Service
}

func NewHTTPHandler(service *Service) *HTTPHandler {
	return &HTTPHandler{service: service}
}

type RegisterReq struct {
	Username string `json:"username" validate:"notblank,max=64"`
	Password string `json:"password" validate:"notblank,max=72"`
}

// Register handles POST /users/register
// @Summary Register a new user
// @Tags users
// @Accept json
// @Produce json
// @Param request body RegisterReq true "Registration request"
// @Success 201 {object} httpx.SuccessResponse
// @Failure 400 {object} httpx.ErrorResponse
// @Failure 409 {object} httpx.ErrorResponse
// @Failure 500 {object} httpx.ErrorResponse
// @Router /users/register [post]
func (h *HTTPHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, r, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body", nil)
		return
	}

	if validationErrors := httpx.ValidateStruct(req); len(validationErrors) > 0 {
		httpx.JSONError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "Username and password cannot be empty", validationErrors)
		return
	}

	u, err := h.service.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, ErrEmptyCredentials):
			httpx.JSONError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "Username and password cannot be empty", nil)
		case errors.Is(err, ErrAlreadyExists):
			httpx.JSONError(w, r, http.StatusConflict, "CONFLICT", "Username already exists", nil)
		default:
			httpx.InternalError(w, r, err)
		}
		return
	}

	httpx.JSONCreated(w, r, u)
}

// Me handles GET /me
// @Summary Get current user
// @Tags users
// @Produce json
// @Security Bearer
// @Success 200 {object} httpx.SuccessResponse
// @Failure 401 {object} httpx.ErrorResponse
// @Router /me [get]
func (h *HTTPHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID := httpx.UserIDFrom(r)
	if userID == "" {
		httpx.Unauthorized(w, r)
		return
	}

	u, err := h.service.GetByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.Unauthorized(w, r)
			return
		}
		httpx.InternalError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, u, nil)
}
