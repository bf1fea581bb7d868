package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/bookmyseat/internal/model"
	"github.com/iliyamo/bookmyseat/internal/testutil"
)

func seedMovies(t *testing.T, repo *MovieRepo) {
	t.Helper()
	for _, m := range []model.Movie{
		{Name: "The Dark Knight", Genre: "Action", Language: "English", Rating: 9.0},
		{Name: "Dilwale", Genre: "Romance", Language: "Hindi", Rating: 8.1},
		{Name: "Dark Waters", Genre: "Drama", Language: "English", Rating: 7.6},
		{Name: "Vikram", Genre: "Action", Language: "Tamil", Rating: 8.4},
	} {
		m := m
		require.NoError(t, repo.Create(context.Background(), &m))
	}
}

func TestMovieListFilters(t *testing.T) {
	repo := NewMovieRepo(testutil.NewDB(t))
	seedMovies(t, repo)
	ctx := context.Background()

	names := func(ms []model.Movie) []string {
		out := []string{}
		for _, m := range ms {
			out = append(out, m.Name)
		}
		return out
	}

	all, total, err := repo.List(ctx, MovieFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
	assert.Equal(t, []string{"Dark Waters", "Dilwale", "The Dark Knight", "Vikram"}, names(all))

	got, total, err := repo.List(ctx, MovieFilter{Search: "  DARK "})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Equal(t, []string{"Dark Waters", "The Dark Knight"}, names(got))

	got, _, err = repo.List(ctx, MovieFilter{Genre: "Action", Language: "English"})
	require.NoError(t, err)
	assert.Equal(t, []string{"The Dark Knight"}, names(got))

	got, total, err = repo.List(ctx, MovieFilter{Page: 2, PageSize: 3})
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
	assert.Equal(t, []string{"Vikram"}, names(got))

	// wildcards in the search term match literally
	for _, term := range []string{"%", "_", "D%k", "!"} {
		_, total, err = repo.List(ctx, MovieFilter{Search: term})
		require.NoError(t, err)
		assert.Zero(t, total, term)
	}
	require.NoError(t, repo.Create(ctx, &model.Movie{Name: "100% Love"}))
	got, _, err = repo.List(ctx, MovieFilter{Search: "0%"})
	require.NoError(t, err)
	assert.Equal(t, []string{"100% Love"}, names(got))
}

func TestMovieCreateNormalizesTrailer(t *testing.T) {
	repo := NewMovieRepo(testutil.NewDB(t))
	ctx := context.Background()

	m := model.Movie{Name: "Heat", TrailerURL: "https://youtu.be/xyz"}
	require.NoError(t, repo.Create(ctx, &m))

	got, err := repo.GetByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://www.youtube.com/embed/xyz", got.TrailerURL)

	updated, err := repo.UpdateTrailer(ctx, m.ID, "https://www.youtube.com/shorts/abc")
	require.NoError(t, err)
	assert.Equal(t, "https://www.youtube.com/embed/abc", updated)

	_, err = repo.UpdateTrailer(ctx, m.ID+1, "x")
	assert.ErrorIs(t, err, ErrMovieNotFound)
}

func TestMovieGetByIDNotFound(t *testing.T) {
	_, err := NewMovieRepo(testutil.NewDB(t)).GetByID(context.Background(), 99)
	assert.ErrorIs(t, err, ErrMovieNotFound)
}

func TestMovieGetByName(t *testing.T) {
	repo := NewMovieRepo(testutil.NewDB(t))
	seedMovies(t, repo)
	ctx := context.Background()

	m, err := repo.GetByName(ctx, "Vikram")
	require.NoError(t, err)
	assert.Equal(t, "Tamil", m.Language)

	_, err = repo.GetByName(ctx, "vikram")
	assert.ErrorIs(t, err, ErrMovieNotFound)
}

func TestTheaterListByMovie(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewTheaterRepo(db)
	ctx := context.Background()
	movie := testutil.InsertMovie(t, db, "Heat")
	late := model.Theater{Name: "Late", MovieID: movie, ShowTime: time.Date(2026, 1, 2, 22, 0, 0, 0, time.UTC)}
	early := model.Theater{Name: "Early", MovieID: movie, ShowTime: time.Date(2026, 1, 2, 18, 0, 0, 0, time.UTC)}
	require.NoError(t, repo.Create(ctx, &late))
	require.NoError(t, repo.Create(ctx, &early))

	list, err := repo.ListByMovie(ctx, movie)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Early", list[0].Name)
	assert.Equal(t, early.ShowTime, list[0].ShowTime.UTC())

	_, err = repo.GetByID(ctx, 999)
	assert.ErrorIs(t, err, ErrTheaterNotFound)
}

func TestUserRepo(t *testing.T) {
	repo := NewUserRepo(testutil.NewDB(t))
	ctx := context.Background()

	id, err := repo.Create(ctx, " Ann@Example.com ", "pw", model.RoleCustomer, 4)
	require.NoError(t, err)

	_, err = repo.Create(ctx, "ann@example.com", "pw", model.RoleCustomer, 4)
	assert.ErrorIs(t, err, ErrEmailExists)

	u, err := repo.GetByEmail(ctx, "ANN@example.com")
	require.NoError(t, err)
	assert.Equal(t, id, u.ID)
	assert.True(t, u.IsActive)

	require.NoError(t, repo.SetRole(ctx, "ann@example.com", model.RoleAdmin))
	u, err = repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, u.Role)

	assert.ErrorIs(t, repo.SetRole(ctx, "nobody@example.com", model.RoleAdmin), ErrUserNotFound)
	_, err = repo.GetByID(ctx, 404)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestTokenRepo(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewTokenRepo(db)
	ctx := context.Background()
	user := testutil.InsertUser(t, db, "t@example.com", "CUSTOMER")

	require.NoError(t, repo.StoreRefresh(ctx, user, "h1", time.Now().Add(time.Hour)))
	require.NoError(t, repo.StoreRefresh(ctx, user, "h2", time.Now().Add(-time.Hour)))

	got, err := repo.ValidateRefresh(ctx, "h1")
	require.NoError(t, err)
	assert.Equal(t, user, got)

	_, err = repo.ValidateRefresh(ctx, "h2")
	assert.ErrorIs(t, err, ErrInvalidRefresh)
	_, err = repo.ValidateRefresh(ctx, "missing")
	assert.ErrorIs(t, err, ErrInvalidRefresh)

	require.NoError(t, repo.RevokeByHash(ctx, "h1"))
	_, err = repo.ValidateRefresh(ctx, "h1")
	assert.ErrorIs(t, err, ErrInvalidRefresh)
}
