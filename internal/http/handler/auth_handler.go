package handler

import (
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/teacherportal/marks-portal-service/internal/http/middleware"
	"github.com/teacherportal/marks-portal-service/internal/http/response"
	"github.com/teacherportal/marks-portal-service/internal/security"
	"github.com/teacherportal/marks-portal-service/internal/service"
)

type AuthHandler struct {
	auth          *service.AuthService
	secureCookies bool
}

func NewAuthHandler(auth *service.AuthService, secureCookies bool) *AuthHandler {
	return &AuthHandler{auth: auth, secureCookies: secureCookies}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login verifies credentials and starts a session. The token is returned
// in the body for API clients and duplicated in an HttpOnly cookie for
// browsers, together with a csrf_token cookie for the double-submit check.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body", nil)
		return
	}

	res, err := h.auth.Login(r.Context(), req.Username, req.Password, requestIP(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	csrf, err := security.NewSessionToken()
	if err != nil {
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "internal server error", nil)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     "session_token",
		Value:    res.Token,
		Path:     "/",
		Expires:  res.ExpiresAt,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     "csrf_token",
		Value:    csrf,
		Path:     "/",
		Expires:  res.ExpiresAt,
		HttpOnly: false,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})

	response.JSON(w, r, http.StatusOK, res)
}

// Logout revokes the current session and clears the cookies. It sits
// behind SessionAuth, so the token in context is known to be valid.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token, _ := middleware.SessionTokenFromContext(r.Context())
	if err := h.auth.Logout(r.Context(), token, requestIP(r)); err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.clearSessionCookies(w)
	response.JSON(w, r, http.StatusOK, map[string]string{"status": "logged_out"})
}

func (h *AuthHandler) clearSessionCookies(w http.ResponseWriter) {
	expired := time.Unix(0, 0)
	for _, name := range []string{"session_token", "csrf_token"} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			Expires:  expired,
			MaxAge:   -1,
			HttpOnly: name == "session_token",
			Secure:   h.secureCookies,
			SameSite: http.SameSiteLaxMode,
		})
	}
}

func requestIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
