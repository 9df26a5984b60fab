package handler

import (
	"errors"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/sakif/sneaker-rotation/internal/apperror"
	"github.com/sakif/sneaker-rotation/internal/model"
)

// multipartMemory is how much of a multipart body is kept in memory before
// parts spill to temporary files.
const multipartMemory = 8 << 20

// formOverhead leaves room for the text fields on top of the image cap.
const formOverhead = 1 << 20

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "multipart/form-data"
}

// parseForm parses a urlencoded or multipart body, capping its size at
// maxUpload plus room for the text fields.
func parseForm(w http.ResponseWriter, r *http.Request, maxUpload int64) error {
	if maxUpload > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxUpload+formOverhead)
	}
	var err error
	if isMultipart(r) {
		err = r.ParseMultipartForm(multipartMemory)
	} else {
		err = r.ParseForm()
	}
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return apperror.ValidationFailed("image_file", "upload is too large")
		}
		return apperror.ValidationFailed("", "invalid form body")
	}
	return nil
}

// formFile returns the uploaded file in field, or nil when none was chosen.
// The caller closes the returned closer.
func formFile(r *http.Request, field string) (*model.ImageUpload, func(), error) {
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, func() {}, nil
	}
	if err != nil {
		return nil, func() {}, apperror.ValidationFailed(field, "could not read the uploaded file")
	}
	return imageUpload(file, header), func() { _ = file.Close() }, nil
}

func imageUpload(file multipart.File, header *multipart.FileHeader) *model.ImageUpload {
	return &model.ImageUpload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	}
}

// newSneakerFromForm reads the add form.
func newSneakerFromForm(r *http.Request) (model.NewSneaker, error) {
	in := model.NewSneaker{
		Brand:      r.FormValue("brand"),
		Title:      r.FormValue("title"),
		Tag:        r.FormValue("tag"),
		InRotation: formBool(r.FormValue("in_rotation")),
	}
	rating, err := formRating(r.FormValue("rating"))
	if err != nil {
		return in, err
	}
	in.Rating = rating
	if img := strings.TrimSpace(r.FormValue("image")); img != "" {
		in.Image = &img
	}
	return in, nil
}

// patchFromForm reads only the fields present in the form, so a multipart
// PATCH can change one field at a time. A present but blank rating is
// ignored; a present but blank image clears the image.
func patchFromForm(r *http.Request) (model.SneakerPatch, error) {
	var p model.SneakerPatch
	present := func(key string) (string, bool) {
		if _, ok := r.Form[key]; !ok {
			return "", false
		}
		return r.FormValue(key), true
	}

	if v, ok := present("brand"); ok {
		p.Brand = &v
	}
	if v, ok := present("title"); ok {
		p.Title = &v
	}
	if v, ok := present("tag"); ok {
		p.Tag = &v
	}
	if v, ok := present("image"); ok {
		p.Image = &v
	}
	if v, ok := present("rating"); ok {
		rating, err := formRating(v)
		if err != nil {
			return p, err
		}
		p.Rating = rating
	}
	if v, ok := present("in_rotation"); ok {
		b := formBool(v)
		p.InRotation = &b
	}
	return p, nil
}

func formRating(v string) (*float64, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil, apperror.ValidationFailed("rating", "rating must be a number")
	}
	return &f, nil
}

// formBool accepts what checkboxes and query strings send.
func formBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "on", "true", "yes":
		return true
	}
	return false
}
