package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/sneaker-rotation/internal/apperror"
	"github.com/sakif/sneaker-rotation/internal/auth"
	"github.com/sakif/sneaker-rotation/internal/model"
	"github.com/sakif/sneaker-rotation/internal/repository/sqlite"
	"github.com/sakif/sneaker-rotation/internal/service"
	"github.com/sakif/sneaker-rotation/internal/storage"
	"github.com/sakif/sneaker-rotation/internal/validation"
	"github.com/sakif/sneaker-rotation/web"
)

// pngHeader is enough for http.DetectContentType to report image/png.
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01")

const testSecret = "handler-test-secret-0123456789"

// fakeSearcher stands in for the catalog client.
type fakeSearcher struct {
	products []model.CatalogProduct
	err      error
	queries  []string
}

func (f *fakeSearcher) Search(_ context.Context, query string) ([]model.CatalogProduct, error) {
	f.queries = append(f.queries, query)
	if strings.TrimSpace(query) == "" {
		return nil, apperror.ValidationFailed("query", "Missing query")
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.products, nil
}

// testApp wires real services over an in-memory SQLite store and a local
// upload directory, and mounts the handlers the way the server does.
type testApp struct {
	router     http.Handler
	db         *sqlite.DB
	auth       *service.AuthService
	sneakers   *service.SneakerService
	search     *fakeSearcher
	uploadsDir string
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	log := zaptest.NewLogger(t)

	db, err := sqlite.New(context.Background(), ":memory:", log)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	tokens, err := auth.NewTokenService(testSecret, "sneaker-rotation", time.Hour)
	require.NoError(t, err)

	v := validation.New()
	authSvc := service.NewAuthService(db, db, tokens, auth.NewPasswordServiceForTest(bcrypt.MinCost), v, log)

	dir := t.TempDir()
	local, err := storage.NewLocalStore(dir, "http://localhost/uploads")
	require.NoError(t, err)
	sneakers := service.NewSneakerService(db, service.NewImageService(local, 1<<20, log), v, log)
	profiles := service.NewProfileService(db, db)
	search := &fakeSearcher{}
	cookies := auth.Cookies{}

	pages, err := NewPageHandler(PageConfig{
		Templates: web.FS,
		Auth:      authSvc,
		Sneakers:  sneakers,
		Profiles:  profiles,
		Catalog:   search,
		Cookies:   cookies,
		MaxUpload: 1 << 20,
	}, log)
	require.NoError(t, err)

	authH := NewAuthHandler(authSvc, nil, cookies, log)
	sneakerH := NewSneakerHandler(sneakers, 1<<20, log)
	profileH := NewProfileHandler(profiles, log)
	catalogH := NewCatalogHandler(search, log)

	r := chi.NewRouter()
	r.Get("/healthz", NewHealthHandler(db, log).HandleHealth)
	r.Route("/auth", func(r chi.Router) {
		r.Post("/signup", authH.HandleSignUp)
		r.Post("/login", authH.HandleLogin)
		r.Post("/logout", authH.HandleLogout)
		r.Get("/github/login", authH.HandleGitHubLogin)
	})
	r.Route("/api", func(r chi.Router) {
		r.Use(auth.RequireAuth(tokens))
		r.Get("/session", authH.HandleSession)
		r.Get("/sneakers", sneakerH.HandleList)
		r.Post("/sneakers", sneakerH.HandleCreate)
		r.Get("/sneakers/{id}", sneakerH.HandleGet)
		r.Patch("/sneakers/{id}", sneakerH.HandleUpdate)
		r.Put("/sneakers/{id}/rotation", sneakerH.HandleSetRotation)
		r.Delete("/sneakers/{id}", sneakerH.HandleDelete)
		r.Get("/rotation", sneakerH.HandleRotation)
		r.Post("/uploads", sneakerH.HandleUpload)
		r.Get("/profiles", profileH.HandleList)
		r.Get("/profiles/{id}", profileH.HandleGet)
		r.Get("/catalog/search", catalogH.HandleSearch)
	})
	r.Group(func(r chi.Router) {
		r.Use(auth.OptionalAuth(tokens))
		r.Get("/login", pages.HandleLogin)
		r.Post("/login", pages.HandleLoginSubmit)
		r.Post("/signup", pages.HandleSignUpSubmit)
		r.Post("/logout", pages.HandleLogoutSubmit)
		r.Get("/users", pages.HandleUsers)
		r.Get("/users/{id}", pages.HandleUserProfile)
	})
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireSession(tokens))
		r.Get("/", pages.HandleHome)
		r.Get("/my-sneakers", pages.HandleCollection)
		r.Get("/my-rotation", pages.HandleRotation)
		r.Get("/my-sneakers/add", pages.HandleAdd)
		r.Post("/my-sneakers/add", pages.HandleAddSubmit)
		r.Get("/my-sneakers/{id}/edit", pages.HandleEdit)
		r.Post("/my-sneakers/{id}/edit", pages.HandleEditSubmit)
		r.Get("/sneakers/{id}", pages.HandleDetail)
		r.Post("/sneakers/{id}/rotation", pages.HandleToggleRotation)
		r.Post("/sneakers/{id}/delete", pages.HandleDeleteSubmit)
	})

	return &testApp{router: r, db: db, auth: authSvc, sneakers: sneakers, search: search, uploadsDir: dir}
}

// signUp registers a user and returns them with a ready session cookie.
func (a *testApp) signUp(t *testing.T, username string) (*model.User, *http.Cookie) {
	t.Helper()
	res, err := a.auth.SignUp(context.Background(), service.SignUpInput{
		Email:    username + "@example.com",
		Username: username,
		Password: "correct horse battery",
	})
	require.NoError(t, err)
	return res.User, &http.Cookie{Name: auth.SessionCookie, Value: res.Token}
}

// seed creates a sneaker through the service.
func (a *testApp) seed(t *testing.T, userID string, in model.NewSneaker) *model.Sneaker {
	t.Helper()
	sn, err := a.sneakers.Create(context.Background(), userID, in, nil)
	require.NoError(t, err)
	return sn
}

func (a *testApp) do(req *http.Request, cookie *http.Cookie) *httptest.ResponseRecorder {
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func jsonRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// multipartRequest builds a multipart body from fields plus an optional file.
func multipartRequest(t *testing.T, method, target string, fields map[string]string, fileField, filename string, file []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if fileField != "" {
		fw, err := mw.CreateFormFile(fileField, filename)
		require.NoError(t, err)
		_, err = io.Copy(fw, bytes.NewReader(file))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func formRequest(method, target string, values url.Values) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v), "body: %s", rec.Body.String())
	return v
}

// forgeToken signs a session for userID with the test app's secret.
func forgeToken(t *testing.T, userID string) string {
	t.Helper()
	tokens, err := auth.NewTokenService(testSecret, "sneaker-rotation", time.Hour)
	require.NoError(t, err)
	token, err := tokens.Generate(userID)
	require.NoError(t, err)
	return token
}

func ptr[T any](v T) *T { return &v }
