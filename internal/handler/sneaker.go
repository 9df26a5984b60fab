package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sakif/sneaker-rotation/internal/apperror"
	"github.com/sakif/sneaker-rotation/internal/auth"
	"github.com/sakif/sneaker-rotation/internal/model"
	"github.com/sakif/sneaker-rotation/internal/service"
)

// SneakerHandler serves the /api/sneakers, /api/rotation and /api/uploads
// endpoints. Every route sits behind auth.RequireAuth, so the user ID is
// always in the context.
//
// Create and update accept either a JSON body or a multipart form. Only the
// multipart form can carry a file ("image_file"); when it does, the file
// wins over any "image" URL sent alongside.
type SneakerHandler struct {
	sneakers  *service.SneakerService
	maxUpload int64
	logger    *zap.Logger
}

// NewSneakerHandler creates a SneakerHandler. maxUpload caps request bodies
// that carry a file.
func NewSneakerHandler(sneakers *service.SneakerService, maxUpload int64, logger *zap.Logger) *SneakerHandler {
	return &SneakerHandler{sneakers: sneakers, maxUpload: maxUpload, logger: logger}
}

// rotationRequest is the body of PUT /api/sneakers/{id}/rotation.
type rotationRequest struct {
	InRotation *bool `json:"in_rotation"`
}

// uploadResponse is returned by POST /api/uploads.
type uploadResponse struct {
	URL string `json:"url"`
}

// HandleList returns the caller's collection with the tag and rotation
// filters applied.
//
// HTTP: GET /api/sneakers?tag=heater&rotation=true
func (h *SneakerHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	q := r.URL.Query()
	filter := model.Filter{Tag: q.Get("tag"), RotationOnly: formBool(q.Get("rotation"))}

	view, err := h.sneakers.Collection(r.Context(), userID, filter)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// HandleRotation returns the rotation cards.
//
// HTTP: GET /api/rotation
func (h *SneakerHandler) HandleRotation(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	slots, err := h.sneakers.Rotation(r.Context(), userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"slots": slots, "empty": len(slots) == 0})
}

// HandleCreate adds a sneaker to the caller's collection.
//
// HTTP: POST /api/sneakers → 201
func (h *SneakerHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var (
		in     model.NewSneaker
		upload *model.ImageUpload
	)
	if isMultipart(r) {
		if err := parseForm(w, r, h.maxUpload); err != nil {
			writeError(w, h.logger, err)
			return
		}
		var err error
		if in, err = newSneakerFromForm(r); err != nil {
			writeError(w, h.logger, err)
			return
		}
		var closeFile func()
		upload, closeFile, err = formFile(r, "image_file")
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		defer closeFile()
	} else if err := decodeJSON(r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}

	sn, err := h.sneakers.Create(r.Context(), userID, in, upload)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, sn)
}

// HandleGet returns one sneaker as stored.
//
// HTTP: GET /api/sneakers/{id}
func (h *SneakerHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	sn, err := h.sneakers.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, sn)
}

// HandleUpdate applies a partial update. Fields left out are not touched.
//
// HTTP: PATCH /api/sneakers/{id}
func (h *SneakerHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var (
		patch  model.SneakerPatch
		upload *model.ImageUpload
	)
	if isMultipart(r) {
		if err := parseForm(w, r, h.maxUpload); err != nil {
			writeError(w, h.logger, err)
			return
		}
		var err error
		if patch, err = patchFromForm(r); err != nil {
			writeError(w, h.logger, err)
			return
		}
		var closeFile func()
		upload, closeFile, err = formFile(r, "image_file")
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		defer closeFile()
	} else if err := decodeJSON(r, &patch); err != nil {
		writeError(w, h.logger, err)
		return
	}

	sn, err := h.sneakers.Update(r.Context(), userID, chi.URLParam(r, "id"), patch, upload)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, sn)
}

// HandleSetRotation is the rotation toggle.
//
// HTTP: PUT /api/sneakers/{id}/rotation  {"in_rotation": true}
func (h *SneakerHandler) HandleSetRotation(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var req rotationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if req.InRotation == nil {
		writeError(w, h.logger, apperror.ValidationFailed("in_rotation", "in_rotation is required"))
		return
	}

	sn, err := h.sneakers.SetRotation(r.Context(), userID, chi.URLParam(r, "id"), *req.InRotation)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, sn)
}

// HandleDelete removes a sneaker. The client must say confirm=true; the
// browser pages ask the user first and send it only after they agree.
//
// HTTP: DELETE /api/sneakers/{id}?confirm=true → 204
func (h *SneakerHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	confirmed := formBool(r.URL.Query().Get("confirm"))

	if _, err := h.sneakers.Delete(r.Context(), userID, chi.URLParam(r, "id"), confirmed); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleUpload stores an image on its own and returns its public URL, for
// clients that upload first and create the record afterwards.
//
// HTTP: POST /api/uploads  (multipart, field "file") → 201 {"url": "..."}
func (h *SneakerHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	if !isMultipart(r) {
		writeError(w, h.logger, apperror.ValidationFailed("file", "expected a multipart form with a file"))
		return
	}
	if err := parseForm(w, r, h.maxUpload); err != nil {
		writeError(w, h.logger, err)
		return
	}
	upload, closeFile, err := formFile(r, "file")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	defer closeFile()

	url, err := h.sneakers.UploadImage(r.Context(), userID, upload)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, uploadResponse{URL: url})
}
