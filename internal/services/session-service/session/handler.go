package session

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/NordCoder/Rotatus/internal/domain/token"
	"github.com/NordCoder/Rotatus/internal/domain/user"
	"github.com/NordCoder/Rotatus/internal/obs"
)

// Handler is the thin HTTP boundary: cookie plumbing and status mapping,
// no lifecycle rules of its own.
type Handler struct {
	uc           *Usecase
	users        user.Repo
	log          *zap.Logger
	cookieName   string
	cookieDomain string
	cookiePath   string
	cookieSecure bool
}

type HandlerOpts struct {
	Logger       *zap.Logger
	CookieName   string
	CookieDomain string
	CookiePath   string
	CookieSecure bool
}

func NewHandler(uc *Usecase, users user.Repo, o HandlerOpts) *Handler {
	log := o.Logger
	if log == nil {
		log = zap.NewNop()
	}
	name := o.CookieName
	if name == "" {
		name = "refresh_token"
	}
	path := o.CookiePath
	if path == "" {
		path = "/"
	}
	return &Handler{
		uc:           uc,
		users:        users,
		log:          log,
		cookieName:   name,
		cookieDomain: o.CookieDomain,
		cookiePath:   path,
		cookieSecure: o.CookieSecure,
	}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/users", h.createUser)
	mux.HandleFunc("POST /v1/sessions", h.createSession)
	mux.HandleFunc("POST /v1/sessions/refresh", h.refresh)
	mux.HandleFunc("POST /v1/sessions/logout", h.logout)
	mux.HandleFunc("DELETE /v1/users/{id}/sessions", h.revokeAll)
}

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	u := &user.User{Email: req.Email}
	if err := h.users.Create(r.Context(), u); err != nil {
		if errors.Is(err, user.ErrExists) {
			writeError(w, http.StatusConflict, "email_exists")
			return
		}
		h.fail(w, r, "create user", err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

func (h *Handler) createSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID int64 `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID <= 0 {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	raw, expiresAt, err := h.uc.Create(r.Context(), req.UserID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user_not_found")
			return
		}
		h.fail(w, r, "create session", err)
		return
	}

	h.setRefreshCookie(w, raw, expiresAt)
	writeJSON(w, http.StatusCreated, map[string]any{
		"refresh_token": raw,
		"expires_at":    expiresAt,
	})
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	raw := h.rawFromRequest(r)

	rot, err := h.uc.Rotate(r.Context(), raw)
	if err != nil {
		h.clearRefreshCookie(w)
		switch {
		case errors.Is(err, token.ErrReuseDetected):
			writeError(w, http.StatusUnauthorized, "reuse_detected")
		case errors.Is(err, token.ErrExpired):
			writeError(w, http.StatusUnauthorized, "expired")
		case errors.Is(err, token.ErrNotFound):
			writeError(w, http.StatusUnauthorized, "not_found")
		default:
			h.fail(w, r, "refresh", err)
		}
		return
	}

	h.setRefreshCookie(w, rot.RawToken, rot.ExpiresAt)
	writeJSON(w, http.StatusOK, map[string]any{
		"user":          rot.User,
		"refresh_token": rot.RawToken,
		"expires_at":    rot.ExpiresAt,
	})
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	raw := h.rawFromRequest(r)

	// Logout never fails outward; a stale cookie is not the client's problem.
	if err := h.uc.RevokeByRawToken(r.Context(), raw); err != nil {
		obs.WithTrace(r.Context(), h.log).Error("logout", zap.Error(err))
	}
	h.clearRefreshCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) revokeAll(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if err := h.uc.RevokeAllForUser(r.Context(), id); err != nil {
		h.fail(w, r, "revoke all", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	obs.WithTrace(r.Context(), h.log).Error(op, zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal")
}

// rawFromRequest prefers the cookie, then the header fallback for clients
// that cannot carry cookies.
func (h *Handler) rawFromRequest(r *http.Request) string {
	if c, err := r.Cookie(h.cookieName); err == nil && c.Value != "" {
		return c.Value
	}
	return r.Header.Get("X-Refresh-Token")
}

func (h *Handler) setRefreshCookie(w http.ResponseWriter, raw string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    raw,
		Path:     h.cookiePath,
		Domain:   h.cookieDomain,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
		Expires:  expiresAt.UTC(),
		MaxAge:   int(time.Until(expiresAt).Seconds()),
	})
}

func (h *Handler) clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    "",
		Path:     h.cookiePath,
		Domain:   h.cookieDomain,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0).UTC(),
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, errCode string) {
	writeJSON(w, code, map[string]string{"error": errCode})
}
