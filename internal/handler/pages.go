// Package handler contains the HTTP handlers: a JSON API under /api and
// /auth, and server-rendered HTML pages for the browser.
//
// HANDLER RESPONSIBILITIES:
//  1. Parse the incoming request (path params, query, form or JSON body)
//  2. Call a service
//  3. Write the response (JSON, a rendered page, or a redirect)
//
// Handlers hold no business rules. Ownership, validation and the
// upload-before-write ordering all live in internal/service.
package handler

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sakif/sneaker-rotation/internal/apperror"
	"github.com/sakif/sneaker-rotation/internal/auth"
	"github.com/sakif/sneaker-rotation/internal/catalog"
	"github.com/sakif/sneaker-rotation/internal/collection"
	"github.com/sakif/sneaker-rotation/internal/model"
	"github.com/sakif/sneaker-rotation/internal/service"
)

// homePath is where a signed-in user lands.
const homePath = "/my-sneakers"

// pageNames are the templates under templates/, each parsed together with
// base.html.
var pageNames = []string{"login", "collection", "rotation", "form", "detail", "users", "profile", "error"}

// PageConfig carries what the HTML pages need.
type PageConfig struct {
	Templates     fs.FS // must contain templates/base.html and one file per page
	Auth          *service.AuthService
	Sneakers      *service.SneakerService
	Profiles      *service.ProfileService
	Catalog       catalog.Searcher
	Cookies       auth.Cookies
	GitHubEnabled bool
	MaxUpload     int64
}

// PageHandler renders the browser pages.
//
// TEMPLATE COMPOSITION:
// base.html defines the page frame with a {{template "content" .}} hole.
// Each page file defines "content". Every page is parsed with its own copy
// of base.html, so the "content" blocks never collide.
type PageHandler struct {
	templates map[string]*template.Template
	cfg       PageConfig
	logger    *zap.Logger
}

// page is the data every template receives. Data holds the page-specific part.
type page struct {
	Title   string
	Session *model.Session
	Error   string
	Fields  map[string]string
	Data    any
}

// NewPageHandler parses all templates once at startup.
func NewPageHandler(cfg PageConfig, logger *zap.Logger) (*PageHandler, error) {
	funcs := template.FuncMap{
		"rating": func(r float64) string { return strconv.FormatFloat(r, 'f', 1, 64) },
	}

	templates := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		tmpl, err := template.New(name).Funcs(funcs).ParseFS(cfg.Templates,
			"templates/base.html",
			"templates/"+name+".html",
		)
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", name, err)
		}
		templates[name] = tmpl
	}
	return &PageHandler{templates: templates, cfg: cfg, logger: logger}, nil
}

// render executes into a buffer first, so a template error becomes a clean
// 500 instead of half a page.
func (h *PageHandler) render(w http.ResponseWriter, status int, name string, p page) {
	var buf bytes.Buffer
	if err := h.templates[name].ExecuteTemplate(&buf, "base", p); err != nil {
		h.logger.Error("template render failed", zap.String("template", name), zap.Error(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// renderError shows the error page with the status errorResponse assigns.
func (h *PageHandler) renderError(w http.ResponseWriter, sess *model.Session, err error) {
	status, body := errorResponse(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("page request failed", zap.Int("status", status), zap.Error(err))
	}
	h.render(w, status, "error", page{Title: http.StatusText(status), Session: sess, Error: body.Message})
}

// session loads the signed-in user for the navigation bar. It returns nil
// for anonymous visitors and for tokens whose user no longer exists.
func (h *PageHandler) session(r *http.Request) (*model.Session, error) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		return nil, nil
	}
	sess, err := h.cfg.Auth.Session(r.Context(), userID)
	if errors.Is(err, apperror.ErrUnauthorized) {
		return nil, nil
	}
	return sess, err
}

// requireSession is session for pages behind auth.RequireSession. A user
// deleted since the token was issued is signed out and sent to /login.
func (h *PageHandler) requireSession(w http.ResponseWriter, r *http.Request) (*model.Session, bool) {
	sess, err := h.session(r)
	if err != nil {
		h.renderError(w, nil, err)
		return nil, false
	}
	if sess == nil {
		h.cfg.Cookies.ClearSession(w)
		http.Redirect(w, r, auth.LoginPath, http.StatusSeeOther)
		return nil, false
	}
	return sess, true
}

// HandleHome sends visitors to their collection; RequireSession takes
// anonymous ones on to /login.
//
// HTTP: GET /
func (h *PageHandler) HandleHome(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, homePath, http.StatusSeeOther)
}

// ---------------------------------------------------------------------------
// Sign in / sign up / sign out
// ---------------------------------------------------------------------------

type loginData struct {
	Next     string
	Email    string
	Username string
	GitHub   bool
}

// HandleLogin renders the sign-in and sign-up forms.
//
// HTTP: GET /login?next=/my-rotation
func (h *PageHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	next := safeNext(r.URL.Query().Get("next"))
	if _, ok := auth.UserIDFromContext(r.Context()); ok {
		http.Redirect(w, r, next, http.StatusSeeOther)
		return
	}

	p := page{Title: "Sign in", Data: loginData{Next: next, GitHub: h.cfg.GitHubEnabled}}
	if r.URL.Query().Get("error") == "github_denied" {
		p.Error = "GitHub sign-in was cancelled."
	}
	h.render(w, http.StatusOK, "login", p)
}

// HandleLoginSubmit signs in from the login form.
//
// HTTP: POST /login
func (h *PageHandler) HandleLoginSubmit(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(w, r, 0); err != nil {
		h.renderError(w, nil, err)
		return
	}
	in := service.SignInInput{Email: r.PostForm.Get("email"), Password: r.PostForm.Get("password")}
	res, err := h.cfg.Auth.SignIn(r.Context(), in)
	if err != nil {
		h.renderLoginError(w, r, err)
		return
	}
	h.cfg.Cookies.SetSession(w, res.Token, h.cfg.Auth.TokenTTL())
	http.Redirect(w, r, safeNext(r.PostForm.Get("next")), http.StatusSeeOther)
}

// HandleSignUpSubmit registers from the sign-up form.
//
// HTTP: POST /signup
func (h *PageHandler) HandleSignUpSubmit(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(w, r, 0); err != nil {
		h.renderError(w, nil, err)
		return
	}
	in := service.SignUpInput{
		Email:    r.PostForm.Get("email"),
		Username: r.PostForm.Get("username"),
		Password: r.PostForm.Get("password"),
	}
	res, err := h.cfg.Auth.SignUp(r.Context(), in)
	if err != nil {
		h.renderLoginError(w, r, err)
		return
	}
	h.cfg.Cookies.SetSession(w, res.Token, h.cfg.Auth.TokenTTL())
	http.Redirect(w, r, safeNext(r.PostForm.Get("next")), http.StatusSeeOther)
}

func (h *PageHandler) renderLoginError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := errorResponse(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("sign-in failed", zap.Error(err))
	}
	h.render(w, status, "login", page{
		Title:  "Sign in",
		Error:  body.Message,
		Fields: body.Fields,
		Data: loginData{
			Next:     safeNext(r.PostForm.Get("next")),
			Email:    r.PostForm.Get("email"),
			Username: r.PostForm.Get("username"),
			GitHub:   h.cfg.GitHubEnabled,
		},
	})
}

// HandleLogoutSubmit clears the session and returns to /login.
//
// HTTP: POST /logout
func (h *PageHandler) HandleLogoutSubmit(w http.ResponseWriter, r *http.Request) {
	h.cfg.Cookies.ClearSession(w)
	http.Redirect(w, r, auth.LoginPath, http.StatusSeeOther)
}

// safeNext only follows local paths, so ?next= cannot bounce a user to
// another site after sign-in.
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return homePath
	}
	return next
}

// ---------------------------------------------------------------------------
// Collection and rotation
// ---------------------------------------------------------------------------

// filterLink is one chip in the filter bar.
type filterLink struct {
	Tag       string
	URL       string
	RemoveURL string
	Active    bool
}

type collectionData struct {
	View         model.CollectionView
	All          filterLink
	StoredTags   []filterLink // one per distinct tag on the user's sneakers
	Tags         []filterLink // the editable filter bar vocabulary
	RotationURL  string
	RotationOnly bool
	Vocab        []string
	ActiveTag    string
}

// HandleCollection renders the signed-in user's sneakers.
//
// HTTP: GET /my-sneakers?tag=&rotation=on&vocab=&add_tag=&remove_tag=
//
// The tags offered for filtering are the distinct tags stored on the user's
// sneakers, linked with their exact stored spelling. The filter bar
// vocabulary is a separate list that lives in the page, not in the
// database: it is carried between requests as repeated ?vocab= values and
// edited with add_tag / remove_tag. Removing the active tag falls back to
// "All".
func (h *PageHandler) HandleCollection(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.requireSession(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	vocab := collection.RestoreTagVocabulary(q["vocab"])
	vocab.Select(strings.TrimSpace(q.Get("tag")))
	vocab.Add(q.Get("add_tag"))
	if rm := q.Get("remove_tag"); rm != "" {
		vocab.Remove(rm)
	}
	filter := model.Filter{Tag: vocab.Active(), RotationOnly: formBool(q.Get("rotation"))}

	view, err := h.cfg.Sneakers.Collection(r.Context(), sess.UserID, filter)
	if err != nil {
		h.renderError(w, sess, err)
		return
	}

	tags := vocab.Tags()
	data := collectionData{
		View:         view,
		All:          filterLink{URL: collectionURL("", filter.RotationOnly, tags), Active: filter.Tag == ""},
		RotationURL:  collectionURL(filter.Tag, !filter.RotationOnly, tags),
		RotationOnly: filter.RotationOnly,
		Vocab:        tags,
		ActiveTag:    filter.Tag,
	}
	for _, t := range view.Tags {
		data.StoredTags = append(data.StoredTags, filterLink{
			Tag:    t,
			URL:    collectionURL(t, filter.RotationOnly, tags),
			Active: t == filter.Tag,
		})
	}
	for _, t := range tags {
		remaining := make([]string, 0, len(tags))
		for _, other := range tags {
			if other != t {
				remaining = append(remaining, other)
			}
		}
		active := filter.Tag
		if active == t {
			active = ""
		}
		data.Tags = append(data.Tags, filterLink{
			Tag:       t,
			URL:       collectionURL(t, filter.RotationOnly, tags),
			RemoveURL: collectionURL(active, filter.RotationOnly, remaining),
			Active:    t == filter.Tag,
		})
	}

	h.render(w, http.StatusOK, "collection", page{Title: "My sneakers", Session: sess, Data: data})
}

func collectionURL(tag string, rotationOnly bool, vocab []string) string {
	v := url.Values{}
	if tag != "" {
		v.Set("tag", tag)
	}
	if rotationOnly {
		v.Set("rotation", "on")
	}
	if len(vocab) > 0 {
		v["vocab"] = vocab
	}
	if len(v) == 0 {
		return homePath
	}
	return homePath + "?" + v.Encode()
}

// HandleRotation renders the rotation cards.
//
// HTTP: GET /my-rotation
func (h *PageHandler) HandleRotation(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.requireSession(w, r)
	if !ok {
		return
	}
	slots, err := h.cfg.Sneakers.Rotation(r.Context(), sess.UserID)
	if err != nil {
		h.renderError(w, sess, err)
		return
	}
	h.render(w, http.StatusOK, "rotation", page{Title: "My rotation", Session: sess, Data: slots})
}

// ---------------------------------------------------------------------------
// Add / edit
// ---------------------------------------------------------------------------

// formValues are the add/edit form fields as the user typed them.
type formValues struct {
	Brand      string
	Title      string
	Tag        string
	Rating     string
	Image      string
	InRotation bool
}

type productCard struct {
	Product model.CatalogProduct
	PickURL string
}

type formData struct {
	Heading      string
	Action       string // POST target
	SearchAction string // GET target for the catalog search
	Submit       string
	Values       formValues
	Query        string
	Searched     bool
	Products     []productCard
	SearchError  string
	Vocabulary   []string
}

// HandleAdd renders the add form. ?query= runs a catalog search; picking a
// result reloads the form with brand, title and image prefilled.
//
// HTTP: GET /my-sneakers/add?query=&brand=&title=&image=
func (h *PageHandler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.requireSession(w, r)
	if !ok {
		return
	}
	data := h.newForm(r, "Add a pair", "/my-sneakers/add", "Add to collection")
	data.Values = prefillValues(formValues{}, r.URL.Query())
	h.render(w, http.StatusOK, "form", page{Title: data.Heading, Session: sess, Data: data})
}

// HandleAddSubmit creates the sneaker. A chosen file replaces any catalog
// image; if storing the file fails, no record is created.
//
// HTTP: POST /my-sneakers/add  (multipart)
func (h *PageHandler) HandleAddSubmit(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.requireSession(w, r)
	if !ok {
		return
	}
	data := h.newForm(r, "Add a pair", "/my-sneakers/add", "Add to collection")

	sn, err := h.createFromForm(w, r, sess.UserID)
	if err != nil {
		data.Values = submittedValues(r)
		h.renderFormError(w, sess, data, err)
		return
	}
	http.Redirect(w, r, "/sneakers/"+sn.ID, http.StatusSeeOther)
}

func (h *PageHandler) createFromForm(w http.ResponseWriter, r *http.Request, userID string) (*model.Sneaker, error) {
	if err := parseForm(w, r, h.cfg.MaxUpload); err != nil {
		return nil, err
	}
	in, err := newSneakerFromForm(r)
	if err != nil {
		return nil, err
	}
	upload, closeFile, err := formFile(r, "image_file")
	if err != nil {
		return nil, err
	}
	defer closeFile()
	return h.cfg.Sneakers.Create(r.Context(), userID, in, upload)
}

// HandleEdit renders the edit form for a sneaker the user owns.
//
// HTTP: GET /my-sneakers/{id}/edit
func (h *PageHandler) HandleEdit(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.requireSession(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	sn, err := h.ownedSneaker(r, sess, id)
	if err != nil {
		h.renderError(w, sess, err)
		return
	}

	action := "/my-sneakers/" + id + "/edit"
	data := h.newForm(r, "Edit "+sn.Brand+" "+sn.Title, action, "Save changes")
	data.Values = prefillValues(valuesOf(sn), r.URL.Query())
	h.render(w, http.StatusOK, "form", page{Title: data.Heading, Session: sess, Data: data})
}

// HandleEditSubmit saves the edit form. Every field is on the form, so
// every field is sent; an unchecked rotation box means "not in rotation"
// and a blank rating leaves the stored rating alone.
//
// HTTP: POST /my-sneakers/{id}/edit  (multipart)
func (h *PageHandler) HandleEditSubmit(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.requireSession(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	data := h.newForm(r, "Edit sneaker", "/my-sneakers/"+id+"/edit", "Save changes")

	sn, err := h.updateFromForm(w, r, sess.UserID, id)
	if err != nil {
		data.Values = submittedValues(r)
		h.renderFormError(w, sess, data, err)
		return
	}
	http.Redirect(w, r, "/sneakers/"+sn.ID, http.StatusSeeOther)
}

func (h *PageHandler) updateFromForm(w http.ResponseWriter, r *http.Request, userID, id string) (*model.Sneaker, error) {
	if err := parseForm(w, r, h.cfg.MaxUpload); err != nil {
		return nil, err
	}
	patch, err := patchFromForm(r)
	if err != nil {
		return nil, err
	}
	inRotation := formBool(r.FormValue("in_rotation"))
	patch.InRotation = &inRotation

	upload, closeFile, err := formFile(r, "image_file")
	if err != nil {
		return nil, err
	}
	defer closeFile()
	return h.cfg.Sneakers.Update(r.Context(), userID, id, patch, upload)
}

func (h *PageHandler) renderFormError(w http.ResponseWriter, sess *model.Session, data formData, err error) {
	status, body := errorResponse(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("saving sneaker failed", zap.Error(err))
	}
	h.render(w, status, "form", page{Title: data.Heading, Session: sess, Error: body.Message, Fields: body.Fields, Data: data})
}

// newForm fills the parts of formData shared by add and edit, including
// the catalog search when ?query= is set. A failed search shows its message
// and an empty result list; the form still works.
func (h *PageHandler) newForm(r *http.Request, heading, action, submit string) formData {
	data := formData{
		Heading:      heading,
		Action:       action,
		SearchAction: action,
		Submit:       submit,
		Vocabulary:   collection.DefaultVocabulary,
	}

	query := strings.TrimSpace(r.URL.Query().Get("query"))
	if query == "" || r.Method != http.MethodGet {
		return data
	}
	data.Query = query
	data.Searched = true

	products, err := h.cfg.Catalog.Search(r.Context(), query)
	if err != nil {
		_, body := errorResponse(err)
		data.SearchError = body.Message
		return data
	}
	for _, p := range products {
		data.Products = append(data.Products, productCard{Product: p, PickURL: pickURL(action, query, p)})
	}
	return data
}

// pickURL reloads the form with the product's fields prefilled.
func pickURL(action, query string, p model.CatalogProduct) string {
	pre := p.Prefill()
	v := url.Values{}
	v.Set("query", query)
	v.Set("brand", pre.Brand)
	v.Set("title", pre.Title)
	if pre.Image != nil {
		v.Set("image", *pre.Image)
	}
	return action + "?" + v.Encode()
}

// prefillValues overlays brand, title and image picked from the catalog.
func prefillValues(base formValues, q url.Values) formValues {
	if v := q.Get("brand"); v != "" {
		base.Brand = v
	}
	if v := q.Get("title"); v != "" {
		base.Title = v
	}
	if v := q.Get("image"); v != "" {
		base.Image = v
	}
	if v := q.Get("tag"); v != "" {
		base.Tag = v
	}
	return base
}

func submittedValues(r *http.Request) formValues {
	return formValues{
		Brand:      r.FormValue("brand"),
		Title:      r.FormValue("title"),
		Tag:        r.FormValue("tag"),
		Rating:     r.FormValue("rating"),
		Image:      r.FormValue("image"),
		InRotation: formBool(r.FormValue("in_rotation")),
	}
}

func valuesOf(sn *model.Sneaker) formValues {
	v := formValues{Brand: sn.Brand, Title: sn.Title, Tag: sn.Tag, InRotation: sn.InRotation}
	if sn.Rating != nil {
		v.Rating = strconv.FormatFloat(*sn.Rating, 'f', -1, 64)
	}
	if sn.Image != nil {
		v.Image = *sn.Image
	}
	return v
}

// ownedSneaker fetches id and refuses sneakers that belong to someone else.
func (h *PageHandler) ownedSneaker(r *http.Request, sess *model.Session, id string) (*model.Sneaker, error) {
	sn, err := h.cfg.Sneakers.Get(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if sn.UserID != sess.UserID {
		return nil, apperror.Forbidden("you can only edit your own sneakers")
	}
	return sn, nil
}

// ---------------------------------------------------------------------------
// Detail, rotation toggle, delete
// ---------------------------------------------------------------------------

type detailData struct {
	Sneaker model.SneakerView
	Owner   bool
}

// HandleDetail renders one sneaker. The owner also gets the rotation
// toggle, an edit link and the delete form.
//
// HTTP: GET /sneakers/{id}
func (h *PageHandler) HandleDetail(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.requireSession(w, r)
	if !ok {
		return
	}
	h.renderDetail(w, r, sess, http.StatusOK, "")
}

func (h *PageHandler) renderDetail(w http.ResponseWriter, r *http.Request, sess *model.Session, status int, message string) {
	sn, err := h.cfg.Sneakers.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.renderError(w, sess, err)
		return
	}
	view := collection.Display(*sn)
	h.render(w, status, "detail", page{
		Title:   view.Name,
		Session: sess,
		Error:   message,
		Data:    detailData{Sneaker: view, Owner: sn.UserID == sess.UserID},
	})
}

// HandleToggleRotation sets or clears the rotation flag.
//
// HTTP: POST /sneakers/{id}/rotation  (in_rotation=on|off)
func (h *PageHandler) HandleToggleRotation(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.requireSession(w, r)
	if !ok {
		return
	}
	if err := parseForm(w, r, 0); err != nil {
		h.renderError(w, sess, err)
		return
	}
	id := chi.URLParam(r, "id")
	if _, err := h.cfg.Sneakers.SetRotation(r.Context(), sess.UserID, id, formBool(r.PostForm.Get("in_rotation"))); err != nil {
		h.renderError(w, sess, err)
		return
	}
	http.Redirect(w, r, "/sneakers/"+id, http.StatusSeeOther)
}

// HandleDeleteSubmit deletes after the user ticked the confirmation box.
// Without it the detail page comes back with a message and nothing is
// deleted.
//
// HTTP: POST /sneakers/{id}/delete  (confirm=on)
func (h *PageHandler) HandleDeleteSubmit(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.requireSession(w, r)
	if !ok {
		return
	}
	if err := parseForm(w, r, 0); err != nil {
		h.renderError(w, sess, err)
		return
	}
	confirmed := formBool(r.PostForm.Get("confirm"))
	if _, err := h.cfg.Sneakers.Delete(r.Context(), sess.UserID, chi.URLParam(r, "id"), confirmed); err != nil {
		if errors.Is(err, apperror.ErrValidation) {
			status, body := errorResponse(err)
			h.renderDetail(w, r, sess, status, body.Message)
			return
		}
		h.renderError(w, sess, err)
		return
	}
	http.Redirect(w, r, homePath, http.StatusSeeOther)
}

// ---------------------------------------------------------------------------
// Users
// ---------------------------------------------------------------------------

// HandleUsers lists every profile.
//
// HTTP: GET /users
func (h *PageHandler) HandleUsers(w http.ResponseWriter, r *http.Request) {
	sess, err := h.session(r)
	if err != nil {
		h.renderError(w, nil, err)
		return
	}
	profiles, err := h.cfg.Profiles.List(r.Context())
	if err != nil {
		h.renderError(w, sess, err)
		return
	}
	h.render(w, http.StatusOK, "users", page{Title: "Users", Session: sess, Data: profiles})
}

// HandleUserProfile shows one user's collection.
//
// HTTP: GET /users/{id}
func (h *PageHandler) HandleUserProfile(w http.ResponseWriter, r *http.Request) {
	sess, err := h.session(r)
	if err != nil {
		h.renderError(w, nil, err)
		return
	}
	pp, err := h.cfg.Profiles.PublicProfile(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.renderError(w, sess, err)
		return
	}
	h.render(w, http.StatusOK, "profile", page{Title: pp.Profile.Username, Session: sess, Data: pp})
}
