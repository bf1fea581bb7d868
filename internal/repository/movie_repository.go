package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/iliyamo/bookmyseat/internal/model"
	"github.com/iliyamo/bookmyseat/internal/utils"
)

// ErrMovieNotFound is returned when a movie id does not exist.
var ErrMovieNotFound = errors.New("movie not found")

// MovieFilter narrows the movie listing.  Search is a case-insensitive
// substring of the name; Genre and Language must match exactly.
type MovieFilter struct {
	Search   string
	Genre    string
	Language string
	Page     int
	PageSize int
}

// MovieRepo encapsulates queries on the movies table.
type MovieRepo struct {
	db *sql.DB
}

func NewMovieRepo(db *sql.DB) *MovieRepo { return &MovieRepo{db: db} }

const movieColumns = "id, name, image, rating, cast_list, description, genre, language, trailer_url, created_at"

// Create inserts m and fills in its ID.  The trailer link is stored in its
// embeddable form.
func (r *MovieRepo) Create(ctx context.Context, m *model.Movie) error {
	m.TrailerURL = utils.EmbedTrailerURL(m.TrailerURL)
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO movies (name, image, rating, cast_list, description, genre, language, trailer_url)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		m.Name, m.Image, m.Rating, m.Cast, nullString(m.Description), m.Genre, m.Language, nullString(m.TrailerURL))
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	m.ID = uint64(id)
	return nil
}

// UpdateTrailer replaces the trailer link of a movie, normalizing it.
func (r *MovieRepo) UpdateTrailer(ctx context.Context, id uint64, trailer string) (string, error) {
	trailer = utils.EmbedTrailerURL(trailer)
	res, err := r.db.ExecContext(ctx, "UPDATE movies SET trailer_url = ? WHERE id = ?", nullString(trailer), id)
	if err != nil {
		return "", err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return "", ErrMovieNotFound
	}
	return trailer, nil
}

func (r *MovieRepo) GetByID(ctx context.Context, id uint64) (*model.Movie, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+movieColumns+" FROM movies WHERE id = ?", id)
	m, err := scanMovie(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMovieNotFound
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

// GetByName returns the first movie with exactly this name.
func (r *MovieRepo) GetByName(ctx context.Context, name string) (*model.Movie, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+movieColumns+" FROM movies WHERE name = ? ORDER BY id LIMIT 1", name)
	m, err := scanMovie(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMovieNotFound
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

// List returns one page of movies matching f, ordered by name, plus the
// total number of matches.
func (r *MovieRepo) List(ctx context.Context, f MovieFilter) ([]model.Movie, int64, error) {
	where := []string{}
	args := []any{}
	if term := normalizeSearch(f.Search); term != "" {
		where = append(where, "LOWER(name) LIKE ? ESCAPE '!'")
		args = append(args, "%"+likeEscaper.Replace(term)+"%")
	}
	if f.Genre != "" {
		where = append(where, "genre = ?")
		args = append(args, f.Genre)
	}
	if f.Language != "" {
		where = append(where, "language = ?")
		args = append(args, f.Language)
	}
	cond := "1=1"
	if len(where) > 0 {
		cond = strings.Join(where, " AND ")
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM movies WHERE "+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	page, size := f.Page, f.PageSize
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 20
	}
	dataArgs := append(append([]any{}, args...), size, (page-1)*size)
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+movieColumns+" FROM movies WHERE "+cond+" ORDER BY name ASC, id ASC LIMIT ? OFFSET ?",
		dataArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]model.Movie, 0, size)
	for rows.Next() {
		m, err := scanMovie(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *m)
	}
	return out, total, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMovie(s rowScanner) (*model.Movie, error) {
	var (
		m       model.Movie
		desc    sql.NullString
		trailer sql.NullString
	)
	if err := s.Scan(&m.ID, &m.Name, &m.Image, &m.Rating, &m.Cast, &desc, &m.Genre, &m.Language, &trailer, &m.CreatedAt); err != nil {
		return nil, err
	}
	m.Description = desc.String
	m.TrailerURL = trailer.String
	return &m, nil
}

// likeEscaper quotes LIKE wildcards.  '!' is the escape character since a
// backslash literal is read differently by MySQL and SQLite.
var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// normalizeSearch composes the term to NFC and lower-cases it so that
// visually identical input matches the stored names.
func normalizeSearch(s string) string {
	return strings.ToLower(norm.NFC.String(strings.TrimSpace(s)))
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
