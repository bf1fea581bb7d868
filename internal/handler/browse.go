package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bookmyseat/internal/model"
	"github.com/iliyamo/bookmyseat/internal/repository"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// BrowseHandler serves the public catalogue: movies and their show times.
type BrowseHandler struct {
	Movies   *repository.MovieRepo
	Theaters *repository.TheaterRepo
}

func NewBrowseHandler(movies *repository.MovieRepo, theaters *repository.TheaterRepo) *BrowseHandler {
	return &BrowseHandler{Movies: movies, Theaters: theaters}
}

// ListMovies handles GET /.  Query parameters: search, genre, language,
// page, page_size.  Unknown genres or languages are rejected.
func (h *BrowseHandler) ListMovies(c echo.Context) error {
	f := repository.MovieFilter{
		Search:   strings.TrimSpace(c.QueryParam("search")),
		Genre:    strings.TrimSpace(c.QueryParam("genre")),
		Language: strings.TrimSpace(c.QueryParam("language")),
		Page:     queryInt(c, "page", 1),
		PageSize: queryInt(c, "page_size", defaultPageSize),
	}
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 {
		f.PageSize = defaultPageSize
	}
	if f.PageSize > maxPageSize {
		f.PageSize = maxPageSize
	}

	// no movie carries an unknown genre or language
	movies, total := []model.Movie{}, int64(0)
	if model.ValidGenre(f.Genre) && model.ValidLanguage(f.Language) {
		var err error
		if movies, total, err = h.Movies.List(c.Request().Context(), f); err != nil {
			return fail(c, err)
		}
	}
	return c.JSON(http.StatusOK, echo.Map{
		"items":     movies,
		"total":     total,
		"page":      f.Page,
		"page_size": f.PageSize,
		"genres":    model.Genres,
		"languages": model.Languages,
	})
}

// MovieTheaters handles GET /:movie_id/theaters/.
func (h *BrowseHandler) MovieTheaters(c echo.Context) error {
	id, ok := parseID(c, "movie_id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid movie id"})
	}
	ctx := c.Request().Context()
	movie, err := h.Movies.GetByID(ctx, id)
	if err != nil {
		return fail(c, err)
	}
	theaters, err := h.Theaters.ListByMovie(ctx, id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"movie": movie, "theaters": theaters})
}

func queryInt(c echo.Context, name string, def int) int {
	v := c.QueryParam(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
