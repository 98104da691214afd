package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/pipecraft/apiserver/config"
	"github.com/pipecraft/apiserver/internal/logging"
	"github.com/pipecraft/apiserver/internal/services"
	"github.com/pipecraft/apiserver/types"
)

const formFieldAvatar = "avatar"

// AuthHandler serves the session endpoints and the admin user endpoints.
type AuthHandler struct {
	sessions *services.SessionService
	users    *services.UserService
	cookies  config.CookieConfig
	logger   logging.Logger
}

func NewAuthHandler(sessions *services.SessionService, users *services.UserService, cookies config.CookieConfig, logger logging.Logger) *AuthHandler {
	return &AuthHandler{
		sessions: sessions,
		users:    users,
		cookies:  cookies,
		logger:   logger,
	}
}

// AuthRouter registers user routes on the given router.
func AuthRouter(r chi.Router, h *AuthHandler, authMiddleware func(http.Handler) http.Handler) {
	r.Post("/register", h.Register)
	r.Post("/login", h.Login)
	r.Get("/refresh-token", h.Refresh)
	r.Post("/refresh-token", h.Refresh)

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)
		r.Get("/me", h.Me)
		r.Get("/logout", h.Logout)
		r.Post("/logout", h.Logout)
		r.Post("/change-password", h.ChangePassword)

		r.Group(func(r chi.Router) {
			r.Use(RequireAdmin(h.logger))
			r.Get("/users", h.ListUsers)
			r.Put("/users/{userID}", h.UpdateUser)
			r.Delete("/users/{userID}", h.DeleteUser)
		})
	})
}

// Register creates an account from JSON or from a multipart form carrying an
// optional avatar.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req types.RegisterRequest
	var avatar *services.File
	if isMultipart(r) {
		if err := parseMultipart(w, r); err != nil {
			writeError(w, r, h.logger, err)
			return
		}
		age, err := formInt(r, "age")
		if err != nil {
			writeError(w, r, h.logger, err)
			return
		}
		req = types.RegisterRequest{
			Email:    formValue(r, "email"),
			Password: formValue(r, "password"),
			Name:     formValue(r, "name"),
			Phone:    formString(r, "phone"),
			Age:      age,
		}
		file, closeFile, err := formFile(r, formFieldAvatar)
		if err != nil {
			writeError(w, r, h.logger, err)
			return
		}
		defer closeFile()
		avatar = file
	} else if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	req.Name = strings.TrimSpace(req.Name)

	user, err := h.sessions.Register(r.Context(), req, avatar)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusCreated, "User created successfully", user)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req types.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	req.Email = strings.TrimSpace(req.Email)

	session, err := h.sessions.Login(r.Context(), req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	setSessionCookies(w, h.cookies, session.AccessToken, session.RefreshToken)
	writeSuccess(w, http.StatusOK, "Login successful", session)
}

// Refresh accepts the refresh token from its cookie or, failing that, from a
// JSON body.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	token := ""
	if cookie, err := r.Cookie(refreshCookie); err == nil {
		token = cookie.Value
	}
	if strings.TrimSpace(token) == "" && r.Body != nil && r.ContentLength != 0 {
		var req types.RefreshRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, h.logger, err)
			return
		}
		token = req.RefreshToken
	}

	session, err := h.sessions.Refresh(r.Context(), token)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	setSessionCookies(w, h.cookies, session.AccessToken, session.RefreshToken)
	writeSuccess(w, http.StatusOK, "Access token generated successfully", session)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, http.StatusOK, "User profile retrieved successfully", actor(r))
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Logout(r.Context(), actor(r).ID); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	clearSessionCookies(w, h.cookies)
	writeSuccess(w, http.StatusOK, "User logged out", struct{}{})
}

func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req types.ChangePasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if err := h.sessions.ChangePassword(r.Context(), actor(r), req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Password changed successfully", struct{}{})
}

func (h *AuthHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context(), actor(r))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Users retrieved successfully", users)
}

func (h *AuthHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	var req types.UpdateUserRequest
	var avatar *services.File
	if isMultipart(r) {
		if err := parseMultipart(w, r); err != nil {
			writeError(w, r, h.logger, err)
			return
		}
		age, err := formInt(r, "age")
		if err != nil {
			writeError(w, r, h.logger, err)
			return
		}
		req = types.UpdateUserRequest{
			Name:  formString(r, "name"),
			Email: formString(r, "email"),
			Phone: formString(r, "phone"),
			Age:   age,
		}
		file, closeFile, err := formFile(r, formFieldAvatar)
		if err != nil {
			writeError(w, r, h.logger, err)
			return
		}
		defer closeFile()
		avatar = file
	} else if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	user, err := h.users.Update(r.Context(), actor(r), urlParam(r, "userID"), req, avatar)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, "User profile updated successfully", user)
}

// DeleteUser removes an account. Deleting one's own account also ends the
// browser session.
func (h *AuthHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	self, err := h.users.Delete(r.Context(), actor(r), urlParam(r, "userID"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if self {
		clearSessionCookies(w, h.cookies)
	}
	writeSuccess(w, http.StatusOK, "User deleted successfully", struct{}{})
}
