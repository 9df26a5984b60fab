package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/sneaker-rotation/internal/apperror"
	"github.com/sakif/sneaker-rotation/internal/model"
)

func TestCreateProfile(t *testing.T) {
	db, mock := newDB(t)
	q := regexp.QuoteMeta(`INSERT INTO profiles (id, username) VALUES ($1, $2)`)

	mock.ExpectExec(q).WithArgs("u1", "kay").WillReturnResult(pgxmock.NewResult("INSERT", 1))
	require.NoError(t, db.CreateProfile(context.Background(), &model.Profile{ID: "u1", Username: "kay"}))
}

func TestGetProfile(t *testing.T) {
	db, mock := newDB(t)
	q := regexp.QuoteMeta(`SELECT id, username FROM profiles WHERE id=$1`)

	mock.ExpectQuery(q).WithArgs("u1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "username"}).AddRow("u1", "kay"))
	p, err := db.GetProfile(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "kay", p.Username)

	mock.ExpectQuery(q).WithArgs("nope").WillReturnError(pgx.ErrNoRows)
	_, err = db.GetProfile(context.Background(), "nope")
	require.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestListProfiles(t *testing.T) {
	db, mock := newDB(t)
	q := regexp.QuoteMeta(`SELECT id, username FROM profiles ORDER BY username, id`)

	mock.ExpectQuery(q).
		WillReturnRows(pgxmock.NewRows([]string{"id", "username"}).AddRow("u2", "ana").AddRow("u1", "zoe"))
	list, err := db.ListProfiles(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []model.Profile{{ID: "u2", Username: "ana"}, {ID: "u1", Username: "zoe"}}, list)

	mock.ExpectQuery(q).WillReturnError(errors.New("connection reset"))
	_, err = db.ListProfiles(context.Background())
	assert.ErrorContains(t, err, "connection reset")
}
