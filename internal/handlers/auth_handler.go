package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/pasiforum/backend/internal/middlewares"
	"github.com/pasiforum/backend/internal/models"
	"go.uber.org/zap"
)

// AuthService is the interface that wraps methods for authentication business logic
type AuthService interface {
	// Register creates a new user account and logs it in immediately.
	// Returns models.ErrUsernameTaken when the username is already in use.
	Register(ctx context.Context, username, password string, role models.Role) (*models.Session, error)
	// Login authenticates a user and creates a session. Returns
	// models.ErrInvalidCredentials on any credential failure.
	Login(ctx context.Context, username, password string) (*models.Session, error)
	// Logout destroys a session. Idempotent.
	Logout(ctx context.Context, sessionID string) error
	// Session retrieves the session for the given id.
	Session(ctx context.Context, sessionID string) (*models.Session, error)
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	BaseHandler
	authService AuthService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		BaseHandler: BaseHandler{Logger: logger},
		authService: authService,
	}
}

// Index handles GET /
// @Summary Index page
// @Description Reports whether the caller holds a live session.
// @Tags auth
// @Produce json
// @Success 200 {object} map[string]bool
// @Router / [get]
func (h *AuthHandler) Index(w http.ResponseWriter, r *http.Request) {
	authenticated := false
	if cookie, err := r.Cookie(middlewares.SessionCookieName); err == nil && cookie.Value != "" {
		if _, err := h.authService.Session(r.Context(), cookie.Value); err == nil {
			authenticated = true
		}
	}

	h.RespondJSON(w, http.StatusOK, map[string]bool{"authenticated": authenticated})
}

// Login handles POST /
// @Summary Log in
// @Description Authenticate with username and password. Sets the session cookie.
// @Tags auth
// @Accept x-www-form-urlencoded
// @Produce json
// @Param username formData string true "Username"
// @Param password formData string true "Password"
// @Success 200 {object} map[string]string "Login successful"
// @Failure 400 {object} map[string]string "Missing fields"
// @Failure 401 {object} map[string]string "Incorrect username or password"
// @Router / [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.RespondError(w, http.StatusBadRequest, "failed to parse request")
		return
	}

	username := r.PostFormValue("username")
	password := r.PostFormValue("password")
	if username == "" || password == "" {
		h.RespondError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	session, err := h.authService.Login(r.Context(), username, password)
	if err != nil {
		// Unknown user and wrong password render identically
		if errors.Is(err, models.ErrInvalidCredentials) {
			h.RespondError(w, http.StatusUnauthorized, "Incorrect username or password")
			return
		}
		h.Logger.Error("failed to login user", zap.Error(err))
		h.RespondError(w, http.StatusInternalServerError, "failed to login")
		return
	}

	h.setSessionCookie(w, session)
	h.RespondJSON(w, http.StatusOK, map[string]string{"message": "login successful"})
}

// Register handles POST /register
// @Summary Register a new user
// @Description Create an account and log it in immediately. Sets the session cookie.
// @Tags auth
// @Accept x-www-form-urlencoded
// @Produce json
// @Param username formData string true "Username"
// @Param password formData string true "Password"
// @Success 201 {object} map[string]string "User registered"
// @Failure 400 {object} map[string]string "Invalid fields"
// @Failure 409 {object} map[string]string "Username already exists"
// @Router /register [post]
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.RespondError(w, http.StatusBadRequest, "failed to parse request")
		return
	}

	username := r.PostFormValue("username")
	password := r.PostFormValue("password")
	if username == "" || password == "" {
		h.RespondError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	// Roles are never taken from the request; every self-registered account
	// starts as an ordinary user.
	session, err := h.authService.Register(r.Context(), username, password, models.RoleUser)
	if err != nil {
		if errors.Is(err, models.ErrUsernameTaken) {
			h.RespondError(w, http.StatusConflict, "username already exists")
			return
		}
		h.Logger.Error("failed to register user", zap.Error(err))
		h.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.setSessionCookie(w, session)
	h.RespondJSON(w, http.StatusCreated, map[string]string{"message": "user registered successfully"})
}

// Logout handles POST /logout
// @Summary Log out
// @Description Destroy the current session and clear the cookie.
// @Tags auth
// @Produce json
// @Success 200 {object} map[string]string "Logged out"
// @Failure 401 {object} map[string]string "Authentication required"
// @Router /logout [post]
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	session, ok := middlewares.GetSession(r.Context())
	if !ok {
		h.RespondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	if err := h.authService.Logout(r.Context(), session.ID); err != nil {
		h.Logger.Error("failed to logout", zap.Error(err))
		h.RespondError(w, http.StatusInternalServerError, "failed to logout")
		return
	}

	h.clearSessionCookie(w)
	h.RespondJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// setSessionCookie sets the opaque session id as an HTTP-only cookie
func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, session *models.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     middlewares.SessionCookieName,
		Value:    session.ID,
		Path:     "/",
		MaxAge:   int(time.Until(session.ExpiresAt).Seconds()),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
}

// clearSessionCookie expires the session cookie
func (h *AuthHandler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     middlewares.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
}
