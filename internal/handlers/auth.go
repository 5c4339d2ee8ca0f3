package handlers

import (
	"errors"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/resumehub/apiserver/internal/auth"
	"github.com/resumehub/apiserver/internal/services"
	"github.com/resumehub/apiserver/internal/store"
)

// CookieOptions controls the cookie the access token is delivered in.
type CookieOptions struct {
	Name   string
	Secure bool
}

// AuthHandler provides registration, login and identity endpoints.
type AuthHandler struct {
	userService *services.UserService
	tokens      *auth.TokenService
	cookie      CookieOptions
}

// NewAuthHandler constructs an AuthHandler with the provided dependencies.
func NewAuthHandler(userService *services.UserService, tokens *auth.TokenService, cookie CookieOptions) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		tokens:      tokens,
		cookie:      cookie,
	}
}

// AuthRouter registers auth routes on the given router. /me is mounted
// behind authMiddleware.
func AuthRouter(r chi.Router, handler *AuthHandler, authMiddleware func(http.Handler) http.Handler) {
	r.Post("/register", handler.Register)
	r.Post("/login", handler.Login)
	r.With(authMiddleware).Get("/me", handler.Me)
}

// Register creates a new user account.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, err, "register")
		return
	}
	if err := req.validate(); err != nil {
		writeServiceError(w, r, err, "register")
		return
	}

	user, err := h.userService.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			writeError(w, http.StatusBadRequest, "email already registered")
			return
		}
		writeServiceError(w, r, err, "register")
		return
	}

	writeJSON(w, http.StatusOK, RegisterResponse{
		Message: "User registered successfully",
		ID:      user.ID,
		Email:   user.Email,
	})
}

// Login verifies credentials, sets the access token cookie and also returns
// the token in the body. No cookie is set on failure.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, err, "log in")
		return
	}
	if err := req.validate(); err != nil {
		writeServiceError(w, r, err, "log in")
		return
	}

	user, err := h.userService.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, r, err, "log in")
		return
	}

	token, expiresAt, err := h.tokens.Issue(user.Email)
	if err != nil {
		writeServiceError(w, r, err, "create token")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		MaxAge:   int(h.tokens.TTL() / time.Second),
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, LoginResponse{AccessToken: token})
}

// Me returns the current authenticated user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromRequest(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, MeResponse{Email: user.Email, ID: user.ID})
}

type CredentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (req *CredentialsRequest) validate() error {
	email := strings.TrimSpace(req.Email)
	if email == "" {
		return invalid("email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return invalid("invalid email address")
	}
	if req.Password == "" {
		return invalid("password is required")
	}
	if len(req.Password) > auth.MaxPasswordBytes {
		return invalid(auth.ErrPasswordTooLong.Error())
	}
	req.Email = email
	return nil
}

type RegisterResponse struct {
	Message string `json:"message"`
	ID      int    `json:"id"`
	Email   string `json:"email"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
}

type MeResponse struct {
	Email string `json:"email"`
	ID    int    `json:"id"`
}
