package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/tasklist/internal/auth"
	"github.com/dukerupert/tasklist/internal/model"
	"github.com/dukerupert/tasklist/internal/service"
)

type userBody struct {
	Success bool              `json:"success"`
	User    model.UserSummary `json:"user"`
}

type AuthHandler struct {
	svc *service.AuthService
	responder
}

// NewAuthHandler builds the auth endpoints. In production the session
// cookie is Secure and SameSite=None; otherwise it is SameSite=Lax.
func NewAuthHandler(svc *service.AuthService, logger *slog.Logger, production bool) *AuthHandler {
	return &AuthHandler{
		svc:       svc,
		responder: responder{logger: logger, production: production},
	}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var in service.RegisterInput
	if err := decodeJSON(w, r, &in); err != nil {
		h.fail(w, r, err)
		return
	}

	sess, err := h.svc.Register(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.setSessionCookie(w, sess)
	writeJSON(w, http.StatusOK, userBody{Success: true, User: sess.User})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var in service.LoginInput
	if err := decodeJSON(w, r, &in); err != nil {
		h.fail(w, r, err)
		return
	}

	sess, err := h.svc.Login(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.setSessionCookie(w, sess)
	writeJSON(w, http.StatusOK, userBody{Success: true, User: sess.User})
}

// Logout only clears the cookie. Tokens are not tracked server side, so a
// copied token stays valid until it expires.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.production,
		SameSite: h.sameSite(),
	})
	writeJSON(w, http.StatusOK, messageBody{Success: true, Message: "Logged out successfully"})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, "Not authorized")
		return
	}
	writeJSON(w, http.StatusOK, userBody{
		Success: true,
		User:    model.UserSummary{ID: id.UserID, Name: id.Name, Email: id.Email},
	})
}

func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, sess *service.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    sess.Token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		MaxAge:   int(time.Until(sess.ExpiresAt).Seconds()),
		HttpOnly: true,
		Secure:   h.production,
		SameSite: h.sameSite(),
	})
}

func (h *AuthHandler) sameSite() http.SameSite {
	if h.production {
		return http.SameSiteNoneMode
	}
	return http.SameSiteLaxMode
}
