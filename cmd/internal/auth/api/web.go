package api

import (
	"net/http"
	"strings"

	"github.com/gouveags/moviescore/cmd/internal/auth/session"
)

// Session cookie names and scopes. The refresh cookie only travels to the auth routes.
const (
	AccessCookieName  = "moviescore_access"
	RefreshCookieName = "moviescore_refresh"

	accessCookiePath  = "/"
	refreshCookiePath = "/api/auth"
)

func (h *Handler) setSessionCookies(w http.ResponseWriter, issued session.Issued) {
	http.SetCookie(w, h.cookie(AccessCookieName, issued.AccessToken, accessCookiePath, int(h.cfg.AccessTTL.Seconds())))
	http.SetCookie(w, h.cookie(RefreshCookieName, issued.RefreshToken, refreshCookiePath, int(h.cfg.RefreshTTL.Seconds())))
}

func (h *Handler) clearSessionCookies(w http.ResponseWriter) {
	http.SetCookie(w, h.cookie(AccessCookieName, "", accessCookiePath, -1))
	http.SetCookie(w, h.cookie(RefreshCookieName, "", refreshCookiePath, -1))
}

func (h *Handler) cookie(name, value, path string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.cfg.Production,
		SameSite: http.SameSiteStrictMode,
	}
}

func cookieValue(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(c.Value)
}
