package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/hayekcoin/campus-wallet/internal/auth"
	"github.com/hayekcoin/campus-wallet/internal/models"
	"github.com/hayekcoin/campus-wallet/internal/service"
	u "github.com/hayekcoin/campus-wallet/internal/utils"
)

type AuthHandler struct {
	authService service.AuthService
	logger      *slog.Logger
}

func NewAuthHandler(authService service.AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		logger:      logger,
	}
}

// RegisterRoutes mounts the public auth endpoints. Me is registered separately
// on the authenticated router.
func (h *AuthHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/register", h.Register).Methods(http.MethodPost)
	router.HandleFunc("/login", h.Login).Methods(http.MethodPost)
	router.HandleFunc("/forgot-password", h.ForgotPassword).Methods(http.MethodPost)
	router.HandleFunc("/reset-password", h.ResetPassword).Methods(http.MethodPost)
}

func (h *AuthHandler) RegisterProtectedRoutes(router *mux.Router) {
	router.HandleFunc("/me", h.Me).Methods(http.MethodGet)
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		u.WriteError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	resp, err := h.authService.Register(r.Context(), &req)
	if err != nil {
		handleServiceError(w, h.logger, err, "register")
		return
	}
	u.WriteJSON(w, http.StatusCreated, resp)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		u.WriteError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	resp, err := h.authService.Login(r.Context(), &req)
	if err != nil {
		handleServiceError(w, h.logger, err, "login")
		return
	}
	u.WriteJSON(w, http.StatusOK, resp)
}

// ForgotPassword always answers 200 with the same shape; whether the email
// exists must not be observable from the response.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req models.ForgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		u.WriteError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if _, err := h.authService.ForgotPassword(r.Context(), req.Email); err != nil {
		handleServiceError(w, h.logger, err, "forgot password")
		return
	}
	u.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "if the email exists, a reset token has been sent",
	})
}

func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req models.ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		u.WriteError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if req.Token == "" {
		u.WriteError(w, http.StatusBadRequest, "validation error", "token must be non-empty")
		return
	}

	if err := h.authService.ResetPassword(r.Context(), req.Token, req.Password); err != nil {
		handleServiceError(w, h.logger, err, "reset password")
		return
	}
	u.WriteJSON(w, http.StatusOK, map[string]string{"message": "password updated"})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		u.WriteError(w, http.StatusUnauthorized, "unauthorized", "")
		return
	}

	user, err := h.authService.Me(r.Context(), actor.ID)
	if err != nil {
		handleServiceError(w, h.logger, err, "get current user")
		return
	}
	u.WriteJSON(w, http.StatusOK, user)
}
