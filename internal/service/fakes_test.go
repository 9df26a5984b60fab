package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/sneaker-rotation/internal/apperror"
	"github.com/sakif/sneaker-rotation/internal/auth"
	"github.com/sakif/sneaker-rotation/internal/model"
	"github.com/sakif/sneaker-rotation/internal/repository"
	"github.com/sakif/sneaker-rotation/internal/validation"
)

// fakeStore is an in-memory repository.Store. It counts calls so tests can
// assert that a rule rejected a request before the store was touched.
type fakeStore struct {
	users    map[string]*model.User
	profiles map[string]*model.Profile
	sneakers map[string]*model.Sneaker
	order    []string
	nextID   int

	calls int

	// set to simulate a failing store
	listErr   error
	updateErr error
	profErr   error
}

var _ repository.Store = (*fakeStore)(nil)

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:    map[string]*model.User{},
		profiles: map[string]*model.Profile{},
		sneakers: map[string]*model.Sneaker{},
	}
}

func (f *fakeStore) id(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s-%d", prefix, f.nextID)
}

func (f *fakeStore) Ping(context.Context) error { return nil }
func (f *fakeStore) Close() error               { return nil }

func (f *fakeStore) CreateUser(_ context.Context, u *model.User) error {
	f.calls++
	for _, existing := range f.users {
		if existing.Email == u.Email {
			return apperror.Conflict("user", u.Email)
		}
	}
	u.ID = f.id("user")
	u.CreatedAt, u.UpdatedAt = time.Now(), time.Now()
	cp := *u
	f.users[u.ID] = &cp
	return nil
}

func (f *fakeStore) GetUserByID(_ context.Context, id string) (*model.User, error) {
	f.calls++
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	cp := *u
	return &cp, nil
}

func (f *fakeStore) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	f.calls++
	for _, u := range f.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apperror.NotFound("user", email)
}

func (f *fakeStore) UpsertGitHub(ctx context.Context, u *model.User) (bool, error) {
	f.calls++
	for _, existing := range f.users {
		if existing.GitHubID == u.GitHubID {
			existing.Email = u.Email
			*u = *existing
			return false, nil
		}
	}
	if err := f.CreateUser(ctx, u); err != nil {
		return false, err
	}
	return true, nil
}

func (f *fakeStore) CreateProfile(_ context.Context, p *model.Profile) error {
	f.calls++
	if f.profErr != nil {
		return f.profErr
	}
	if _, ok := f.profiles[p.ID]; ok {
		return apperror.Conflict("profile", p.ID)
	}
	cp := *p
	f.profiles[p.ID] = &cp
	return nil
}

func (f *fakeStore) GetProfile(_ context.Context, id string) (*model.Profile, error) {
	f.calls++
	p, ok := f.profiles[id]
	if !ok {
		return nil, apperror.NotFound("profile", id)
	}
	cp := *p
	return &cp, nil
}

func (f *fakeStore) ListProfiles(context.Context) ([]model.Profile, error) {
	f.calls++
	out := make([]model.Profile, 0, len(f.profiles))
	for _, p := range f.profiles {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (f *fakeStore) Create(_ context.Context, s *model.Sneaker) error {
	f.calls++
	s.ID = f.id("sneaker")
	cp := *s
	f.sneakers[s.ID] = &cp
	f.order = append(f.order, s.ID)
	return nil
}

func (f *fakeStore) GetByID(_ context.Context, id string) (*model.Sneaker, error) {
	f.calls++
	s, ok := f.sneakers[id]
	if !ok {
		return nil, apperror.NotFound("sneaker", id)
	}
	cp := *s
	return &cp, nil
}

func (f *fakeStore) List(_ context.Context, q repository.SneakerQuery) ([]model.Sneaker, error) {
	f.calls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]model.Sneaker, 0)
	for _, id := range f.order {
		s, ok := f.sneakers[id]
		if !ok || s.UserID != q.UserID {
			continue
		}
		if q.InRotation != nil && s.InRotation != *q.InRotation {
			continue
		}
		out = append(out, *s)
	}
	return out, nil
}

func (f *fakeStore) Update(_ context.Context, id, ownerID string, p model.SneakerPatch) (*model.Sneaker, error) {
	f.calls++
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	s, ok := f.sneakers[id]
	if !ok || s.UserID != ownerID {
		return nil, apperror.NotFound("sneaker", id)
	}
	if p.Brand != nil {
		s.Brand = *p.Brand
	}
	if p.Title != nil {
		s.Title = *p.Title
	}
	if p.Tag != nil {
		s.Tag = *p.Tag
	}
	if p.Rating != nil {
		r := *p.Rating
		s.Rating = &r
	}
	if p.Image != nil {
		if *p.Image == "" {
			s.Image = nil
		} else {
			img := *p.Image
			s.Image = &img
		}
	}
	if p.InRotation != nil {
		s.InRotation = *p.InRotation
	}
	cp := *s
	return &cp, nil
}

func (f *fakeStore) Delete(_ context.Context, id, ownerID string) (*model.Sneaker, error) {
	f.calls++
	s, ok := f.sneakers[id]
	if !ok || s.UserID != ownerID {
		return nil, apperror.NotFound("sneaker", id)
	}
	delete(f.sneakers, id)
	return s, nil
}

// fakeUploader records uploads and can be told to fail.
type fakeUploader struct {
	err   error
	calls int
}

func (u *fakeUploader) Upload(_ context.Context, userID string, up *model.ImageUpload) (string, error) {
	u.calls++
	if u.err != nil {
		return "", u.err
	}
	return "https://cdn.example.com/" + userID + "/" + up.Filename, nil
}

var errStoreDown = errors.New("database is locked")

func ptr[T any](v T) *T { return &v }

func newTestAuthService(t *testing.T, store *fakeStore) *AuthService {
	t.Helper()
	ts, err := auth.NewTokenService("test-secret-at-least-16-chars!!", "sneaker-rotation", time.Hour)
	require.NoError(t, err)
	return NewAuthService(store, store, ts, auth.NewPasswordServiceForTest(bcrypt.MinCost),
		validation.New(), zaptest.NewLogger(t))
}

func newTestSneakerService(t *testing.T, store *fakeStore, up Uploader) *SneakerService {
	t.Helper()
	if up == nil {
		up = &fakeUploader{}
	}
	return NewSneakerService(store, up, validation.New(), zaptest.NewLogger(t))
}

// seed inserts a sneaker directly, bypassing the service.
func (f *fakeStore) seed(s model.Sneaker) string {
	_ = f.Create(context.Background(), &s)
	f.calls = 0
	return s.ID
}
