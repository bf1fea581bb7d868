package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/bookmyseat/internal/model"
)

// ErrTheaterNotFound is returned when a theater id does not exist.
var ErrTheaterNotFound = errors.New("theater not found")

// TheaterRepo provides access to theaters (screenings of a movie).
type TheaterRepo struct {
	db *sql.DB
}

func NewTheaterRepo(db *sql.DB) *TheaterRepo { return &TheaterRepo{db: db} }

func (r *TheaterRepo) Create(ctx context.Context, t *model.Theater) error {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO theaters (name, movie_id, show_time) VALUES (?, ?, ?)",
		t.Name, t.MovieID, dbTime(t.ShowTime))
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)
	return nil
}

func (r *TheaterRepo) GetByID(ctx context.Context, id uint64) (*model.Theater, error) {
	return getTheater(ctx, r.db, id)
}

// GetByIDTx is GetByID inside the caller's transaction.
func (r *TheaterRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Theater, error) {
	return getTheater(ctx, tx, id)
}

type rowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getTheater(ctx context.Context, q rowQuerier, id uint64) (*model.Theater, error) {
	var t model.Theater
	err := q.QueryRowContext(ctx,
		"SELECT id, name, movie_id, show_time FROM theaters WHERE id = ?", id).
		Scan(&t.ID, &t.Name, &t.MovieID, &t.ShowTime)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTheaterNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ListByMovie returns the theaters of a movie ordered by show time.
func (r *TheaterRepo) ListByMovie(ctx context.Context, movieID uint64) ([]model.Theater, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, name, movie_id, show_time FROM theaters WHERE movie_id = ? ORDER BY show_time ASC, id ASC",
		movieID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Theater{}
	for rows.Next() {
		var t model.Theater
		if err := rows.Scan(&t.ID, &t.Name, &t.MovieID, &t.ShowTime); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
