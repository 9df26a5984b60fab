package handler

import (
	"errors"
	"net/http"

	"github.com/rs/xid"
	"go.uber.org/zap"

	"github.com/sakif/sneaker-rotation/internal/apperror"
	"github.com/sakif/sneaker-rotation/internal/auth"
	"github.com/sakif/sneaker-rotation/internal/model"
	"github.com/sakif/sneaker-rotation/internal/service"
)

// AuthHandler manages sign-up, sign-in, sign-out and the GitHub OAuth flow.
//
// HANDLER RESPONSIBILITIES:
//   - HandleSignUp / HandleLogin → check credentials, set the session cookie
//   - HandleLogout               → clear the session cookie
//   - HandleGitHubLogin          → redirect the browser to GitHub
//   - HandleGitHubCallback       → exchange the code, upsert the user, set the cookie
//   - HandleSession              → who is signed in
//
// github is nil when GitHub sign-in is not configured; its two routes then
// answer 404.
type AuthHandler struct {
	auth    *service.AuthService
	github  *auth.GitHubProvider
	cookies auth.Cookies
	logger  *zap.Logger
}

// NewAuthHandler creates an AuthHandler. github may be nil.
func NewAuthHandler(
	authService *service.AuthService,
	github *auth.GitHubProvider,
	cookies auth.Cookies,
	logger *zap.Logger,
) *AuthHandler {
	return &AuthHandler{auth: authService, github: github, cookies: cookies, logger: logger}
}

// authResponse is the body of a successful sign-up or sign-in. The token
// itself travels only in the HttpOnly cookie.
type authResponse struct {
	User model.Session `json:"user"`
}

func sessionOf(u *model.User) model.Session {
	return model.Session{UserID: u.ID, Email: u.Email, Username: u.Username}
}

// HandleSignUp registers an email + password account.
//
// HTTP: POST /auth/signup  {"email", "username", "password"} → 201
func (h *AuthHandler) HandleSignUp(w http.ResponseWriter, r *http.Request) {
	var in service.SignUpInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}
	res, err := h.auth.SignUp(r.Context(), in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.cookies.SetSession(w, res.Token, h.auth.TokenTTL())
	writeJSON(w, http.StatusCreated, authResponse{User: sessionOf(res.User)})
}

// HandleLogin signs in with email + password.
//
// HTTP: POST /auth/login  {"email", "password"}
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var in service.SignInInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}
	res, err := h.auth.SignIn(r.Context(), in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.cookies.SetSession(w, res.Token, h.auth.TokenTTL())
	writeJSON(w, http.StatusOK, authResponse{User: sessionOf(res.User)})
}

// HandleLogout clears the session cookie.
//
// HTTP: POST /auth/logout
//
// Tokens are stateless, so "logout" only deletes the cookie. POST keeps
// link prefetchers from signing people out.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, _ *http.Request) {
	h.cookies.ClearSession(w)
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// HandleSession returns the signed-in user.
//
// HTTP: GET /api/session  (RequireAuth)
func (h *AuthHandler) HandleSession(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	sess, err := h.auth.Session(r.Context(), userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// HandleGitHubLogin redirects the user to GitHub's authorization page.
//
// HTTP: GET /auth/github/login
//
// CSRF PROTECTION VIA STATE:
// A random state goes into a short-lived cookie and into the redirect.
// The callback only proceeds when the two match.
func (h *AuthHandler) HandleGitHubLogin(w http.ResponseWriter, r *http.Request) {
	if h.github == nil {
		writeError(w, h.logger, apperror.NotFound("sign-in provider", "github"))
		return
	}
	state := xid.New().String()
	h.cookies.SetState(w, state)
	http.Redirect(w, r, h.github.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleGitHubCallback completes the OAuth flow.
//
// HTTP: GET /auth/github/callback?code=xxx&state=yyy
//
// FLOW:
//  1. Validate the state parameter (CSRF check)
//  2. Exchange the code for a GitHub user profile
//  3. Upsert the user and make sure they have a profile
//  4. Set the session cookie and go to the collection page
func (h *AuthHandler) HandleGitHubCallback(w http.ResponseWriter, r *http.Request) {
	if h.github == nil {
		writeError(w, h.logger, apperror.NotFound("sign-in provider", "github"))
		return
	}

	// --- Step 1: Validate CSRF state ---
	q := r.URL.Query()
	stateCookie, err := r.Cookie(auth.StateCookie)
	if err != nil || stateCookie.Value == "" || q.Get("state") != stateCookie.Value {
		h.logger.Warn("auth callback: state mismatch", zap.String("got", q.Get("state")))
		http.Error(w, "invalid OAuth state", http.StatusBadRequest)
		return
	}
	h.cookies.ClearState(w)

	if errParam := q.Get("error"); errParam != "" {
		h.logger.Info("auth callback: user denied authorization", zap.String("error", errParam))
		http.Redirect(w, r, auth.LoginPath+"?error=github_denied", http.StatusSeeOther)
		return
	}

	// --- Step 2: Exchange code for GitHub user profile ---
	code := q.Get("code")
	if code == "" {
		http.Error(w, "missing OAuth code", http.StatusBadRequest)
		return
	}
	ghUser, err := h.github.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("auth callback: GitHub exchange failed", zap.Error(err))
		http.Error(w, "authentication failed", http.StatusBadGateway)
		return
	}

	// --- Step 3: Upsert user ---
	res, err := h.auth.LoginOrRegisterGitHub(r.Context(), ghUser)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, apperror.ErrConflict) {
			status = http.StatusConflict
		}
		h.logger.Error("auth callback: sign-in failed", zap.Int64("github_id", ghUser.ID), zap.Error(err))
		http.Error(w, "authentication failed", status)
		return
	}

	// --- Step 4: Session cookie ---
	h.cookies.SetSession(w, res.Token, h.auth.TokenTTL())
	http.Redirect(w, r, homePath, http.StatusSeeOther)
}
