package auth

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

type LoginReq struct {
	Username string `json:"username" validate:"notblank"`
	Password string `json:"password" validate:"notblank"`
}

// Login handles POST /users/login
// @Summary User login
// @Description Authenticate and receive a bearer token bound to a new session
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginReq true "Login request"
// @Success 200 {object} httpx.SuccessResponse
// @Failure 400 {object} httpx.ErrorResponse
// @Failure 401 {object} httpx.ErrorResponse
// @Failure 500 {object} httpx.ErrorResponse
// @Router /users/login [post]
func (h *HTTPHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, r, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body", nil)
		return
	}

	if validationErrors := httpx.ValidateStruct(req); len(validationErrors) > 0 {
		httpx.JSONError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "Username and password cannot be empty", validationErrors)
		return
	}

	token, err := h.service.Login(r.Context(), req.Username, req.Password, r.UserAgent(), httpx.ClientIP(r))
	if err != nil {
		if errors.Is(err, ErrUnauthorized) {
			httpx.JSONError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid username or password", nil)
			return
		}
		httpx.InternalError(w, r, err)
		return
	}

	httpx.JSONSuccess(w, r, token, nil)
}

// Logout handles POST /users/logout
// @Summary Logout
// @Description End the session behind the presented token
// @Tags auth
// @Security Bearer
// @Success 204
// @Failure 401 {object} httpx.ErrorResponse
// @Failure 500 {object} httpx.ErrorResponse
// @Router /users/logout [post]
func (h *HTTPHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Logout(r.Context(), httpx.SessionIDFrom(r)); err != nil {
		if errors.Is(err, ErrUnauthorized) {
			httpx.Unauthorized(w, r)
			return
		}
		httpx.InternalError(w, r, err)
		return
	}
	httpx.JSONNoContent(w)
}
