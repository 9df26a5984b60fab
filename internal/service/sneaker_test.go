package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/sneaker-rotation/internal/apperror"
	"github.com/sakif/sneaker-rotation/internal/collection"
	"github.com/sakif/sneaker-rotation/internal/model"
)

func upload(name string) *model.ImageUpload {
	return &model.ImageUpload{Filename: name, ContentType: "image/png", Size: 4, Body: strings.NewReader("\x89PNG")}
}

func TestCreate(t *testing.T) {
	store := newFakeStore()
	svc := newTestSneakerService(t, store, nil)

	sn, err := svc.Create(context.Background(), "u1", model.NewSneaker{
		Brand: " Nike ", Title: "Dunk Low", Tag: "everyday", Rating: ptr(4.5),
	}, nil)
	require.NoError(t, err)

	assert.NotEmpty(t, sn.ID)
	assert.Equal(t, "u1", sn.UserID)
	assert.Equal(t, "Nike", sn.Brand)
	assert.False(t, sn.InRotation)
	assert.Nil(t, sn.Image)
	assert.Equal(t, 4.5, *sn.Rating)
}

func TestCreate_RequiresBrandTitleTag(t *testing.T) {
	store := newFakeStore()
	svc := newTestSneakerService(t, store, nil)

	_, err := svc.Create(context.Background(), "u1", model.NewSneaker{Brand: "Nike", Title: "  "}, nil)
	require.ErrorIs(t, err, apperror.ErrValidation)

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Contains(t, appErr.Fields, "title")
	assert.Contains(t, appErr.Fields, "tag")
	assert.Zero(t, store.calls)
}

func TestCreate_UploadOverridesCatalogImage(t *testing.T) {
	store := newFakeStore()
	up := &fakeUploader{}
	svc := newTestSneakerService(t, store, up)

	sn, err := svc.Create(context.Background(), "u1", model.NewSneaker{
		Brand: "Jordan", Title: "4 Retro", Tag: "heater", Image: ptr("https://catalog/aj4.png"),
	}, upload("mine.png"))
	require.NoError(t, err)
	require.NotNil(t, sn.Image)
	assert.Equal(t, "https://cdn.example.com/u1/mine.png", *sn.Image)
	assert.Equal(t, 1, up.calls)
}

func TestCreate_UploadFailureAbortsBeforeStore(t *testing.T) {
	store := newFakeStore()
	up := &fakeUploader{err: apperror.Upstream("image upload failed", errors.New("bucket gone"))}
	svc := newTestSneakerService(t, store, up)

	_, err := svc.Create(context.Background(), "u1", model.NewSneaker{Brand: "A", Title: "B", Tag: "c"}, upload("x.png"))
	require.ErrorIs(t, err, apperror.ErrUpstream)
	assert.Zero(t, store.calls, "no record may be written")
	assert.Empty(t, store.sneakers)
}

func TestCreate_BlankImageStoredAsNull(t *testing.T) {
	store := newFakeStore()
	sn, err := newTestSneakerService(t, store, nil).Create(context.Background(), "u1",
		model.NewSneaker{Brand: "A", Title: "B", Tag: "c", Image: ptr("   ")}, nil)
	require.NoError(t, err)
	assert.Nil(t, sn.Image)
}

func TestUpdate_Partial(t *testing.T) {
	store := newFakeStore()
	id := store.seed(model.Sneaker{UserID: "u1", Brand: "Nike", Title: "Dunk", Tag: "everyday", Rating: ptr(3.0)})
	svc := newTestSneakerService(t, store, nil)

	sn, err := svc.Update(context.Background(), "u1", id, model.SneakerPatch{Tag: ptr("dressy")}, nil)
	require.NoError(t, err)
	assert.Equal(t, "dressy", sn.Tag)
	assert.Equal(t, "Nike", sn.Brand, "absent fields are untouched")
	assert.Equal(t, 3.0, *sn.Rating)
}

func TestUpdate_EmptyPatch(t *testing.T) {
	store := newFakeStore()
	id := store.seed(model.Sneaker{UserID: "u1", Brand: "Nike", Title: "Dunk", Tag: "x"})

	_, err := newTestSneakerService(t, store, nil).Update(context.Background(), "u1", id, model.SneakerPatch{}, nil)
	require.ErrorIs(t, err, apperror.ErrValidation)
	assert.Zero(t, store.calls)
}

func TestUpdate_ForeignOwnerForbidden(t *testing.T) {
	store := newFakeStore()
	id := store.seed(model.Sneaker{UserID: "owner", Brand: "Nike", Title: "Dunk", Tag: "x"})
	up := &fakeUploader{}
	svc := newTestSneakerService(t, store, up)

	_, err := svc.Update(context.Background(), "intruder", id, model.SneakerPatch{Brand: ptr("Hacked")}, upload("x.png"))
	require.ErrorIs(t, err, apperror.ErrForbidden)
	assert.Equal(t, "Nike", store.sneakers[id].Brand)
	assert.Zero(t, up.calls, "nothing is uploaded for a refused write")
}

func TestUpdate_NotFound(t *testing.T) {
	_, err := newTestSneakerService(t, newFakeStore(), nil).
		Update(context.Background(), "u1", "missing", model.SneakerPatch{Tag: ptr("x")}, nil)
	require.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestUpdate_UploadOnly(t *testing.T) {
	store := newFakeStore()
	id := store.seed(model.Sneaker{UserID: "u1", Brand: "Nike", Title: "Dunk", Tag: "x"})

	sn, err := newTestSneakerService(t, store, nil).Update(context.Background(), "u1", id, model.SneakerPatch{}, upload("new.webp"))
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/u1/new.webp", *sn.Image)
}

func TestUpdate_StoreErrorSurfaces(t *testing.T) {
	store := newFakeStore()
	id := store.seed(model.Sneaker{UserID: "u1", Brand: "Nike", Title: "Dunk", Tag: "x"})
	store.updateErr = errStoreDown

	_, err := newTestSneakerService(t, store, nil).Update(context.Background(), "u1", id, model.SneakerPatch{Tag: ptr("y")}, nil)
	require.ErrorIs(t, err, errStoreDown)
	assert.Contains(t, err.Error(), "database is locked")
}

func TestSetRotation(t *testing.T) {
	store := newFakeStore()
	id := store.seed(model.Sneaker{UserID: "u1", Brand: "Nike", Title: "Dunk", Tag: "x", Rating: ptr(5.0)})
	svc := newTestSneakerService(t, store, nil)

	sn, err := svc.SetRotation(context.Background(), "u1", id, true)
	require.NoError(t, err)
	assert.True(t, sn.InRotation)
	assert.Equal(t, 5.0, *sn.Rating)

	sn, err = svc.SetRotation(context.Background(), "u1", id, false)
	require.NoError(t, err)
	assert.False(t, sn.InRotation)

	_, err = svc.SetRotation(context.Background(), "someone-else", id, true)
	require.ErrorIs(t, err, apperror.ErrForbidden)
}

func TestDelete(t *testing.T) {
	store := newFakeStore()
	id := store.seed(model.Sneaker{UserID: "u1", Brand: "Nike", Title: "Dunk", Tag: "x"})
	svc := newTestSneakerService(t, store, nil)

	_, err := svc.Delete(context.Background(), "u1", id, false)
	require.ErrorIs(t, err, apperror.ErrValidation)
	assert.Zero(t, store.calls, "unconfirmed delete never reaches the store")

	_, err = svc.Delete(context.Background(), "intruder", id, true)
	require.ErrorIs(t, err, apperror.ErrForbidden)
	assert.Contains(t, store.sneakers, id)

	removed, err := svc.Delete(context.Background(), "u1", id, true)
	require.NoError(t, err)
	assert.Equal(t, id, removed.ID)
	assert.NotContains(t, store.sneakers, id)

	_, err = svc.Delete(context.Background(), "u1", id, true)
	require.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestCollection(t *testing.T) {
	store := newFakeStore()
	store.seed(model.Sneaker{UserID: "u1", Brand: "Nike", Title: "Dunk", Tag: "everyday", InRotation: true})
	store.seed(model.Sneaker{UserID: "u1", Brand: "Asics", Title: "Gel", Tag: "chunky"})
	store.seed(model.Sneaker{UserID: "u1", Brand: "Nike", Title: "Cortez", Tag: "everyday"})
	store.seed(model.Sneaker{UserID: "u2", Brand: "Vans", Title: "Era", Tag: "skinny", InRotation: true})
	svc := newTestSneakerService(t, store, nil)

	all, err := svc.Collection(context.Background(), "u1", model.Filter{})
	require.NoError(t, err)
	assert.Equal(t, 3, all.Total)
	assert.Len(t, all.Sneakers, 3)
	assert.Equal(t, []string{"everyday", "chunky"}, all.Tags)

	both, err := svc.Collection(context.Background(), "u1", model.Filter{Tag: "everyday", RotationOnly: true})
	require.NoError(t, err)
	require.Len(t, both.Sneakers, 1)
	assert.Equal(t, "Nike Dunk", both.Sneakers[0].Name)
	assert.Equal(t, []string{"everyday", "chunky"}, both.Tags, "tags come from the whole collection")

	none, err := svc.Collection(context.Background(), "u1", model.Filter{Tag: "skinny"})
	require.NoError(t, err)
	assert.True(t, none.Empty)
	assert.NotNil(t, none.Sneakers)
}

func TestCollection_StoreFailure(t *testing.T) {
	store := newFakeStore()
	store.listErr = errStoreDown

	_, err := newTestSneakerService(t, store, nil).Collection(context.Background(), "u1", model.Filter{})
	require.ErrorIs(t, err, errStoreDown)
}

func TestRotation(t *testing.T) {
	store := newFakeStore()
	store.seed(model.Sneaker{UserID: "u1", Brand: "A", Title: "1", Tag: "x", InRotation: true})
	store.seed(model.Sneaker{UserID: "u1", Brand: "B", Title: "2", Tag: "x"})
	store.seed(model.Sneaker{UserID: "u1", Brand: "C", Title: "3", Tag: "x", InRotation: true})

	slots, err := newTestSneakerService(t, store, nil).Rotation(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, slots, 2)
	assert.Equal(t, collection.RotationHeadings[0], slots[0].Heading)
	assert.Equal(t, "A 1", slots[0].Sneaker.Name)
	assert.Equal(t, collection.RotationHeadings[1], slots[1].Heading)
	assert.Equal(t, collection.PlaceholderImage, slots[1].Sneaker.Image)
}

func TestGet(t *testing.T) {
	store := newFakeStore()
	id := store.seed(model.Sneaker{UserID: "u1", Brand: "A", Title: "B", Tag: "c"})
	svc := newTestSneakerService(t, store, nil)

	sn, err := svc.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "A", sn.Brand)

	_, err = svc.Get(context.Background(), "nope")
	require.ErrorIs(t, err, apperror.ErrNotFound)
}
