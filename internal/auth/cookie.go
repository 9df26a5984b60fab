package auth

import (
	"net/http"
	"time"
)

// Cookie names. SessionCookie carries the JWT; StateCookie carries the
// OAuth state between /auth/github/login and the callback.
const (
	SessionCookie = "token"
	StateCookie   = "oauth_state"
)

// Cookies writes and clears auth cookies. Secure must be true whenever
// the site is served over HTTPS.
type Cookies struct {
	Secure bool
}

// SetSession stores token in an HttpOnly cookie that expires with it.
func (c Cookies) SetSession(w http.ResponseWriter, token string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSession expires the session cookie. This is all sign out does;
// tokens are stateless.
func (c Cookies) ClearSession(w http.ResponseWriter) {
	c.clear(w, SessionCookie, "/")
}

// SetState stores the OAuth state for ten minutes, scoped to /auth/github.
func (c Cookies) SetState(w http.ResponseWriter, state string) {
	http.SetCookie(w, &http.Cookie{
		Name:     StateCookie,
		Value:    state,
		Path:     "/auth/github",
		MaxAge:   int((10 * time.Minute).Seconds()),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearState removes the OAuth state once the callback consumed it.
func (c Cookies) ClearState(w http.ResponseWriter) {
	c.clear(w, StateCookie, "/auth/github")
}

func (c Cookies) clear(w http.ResponseWriter, name, path string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     path,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
