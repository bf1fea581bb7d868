package cli

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/iliyamo/bookmyseat/internal/model"
	"github.com/iliyamo/bookmyseat/internal/repository"
)

// SeedFile is the YAML document accepted by `seed`.
type SeedFile struct {
	Movies []SeedMovie `yaml:"movies"`
}

type SeedMovie struct {
	Name        string        `yaml:"name"`
	Image       string        `yaml:"image"`
	Rating      float64       `yaml:"rating"`
	Cast        string        `yaml:"cast"`
	Description string        `yaml:"description"`
	Genre       string        `yaml:"genre"`
	Language    string        `yaml:"language"`
	TrailerURL  string        `yaml:"trailer_url"`
	Theaters    []SeedTheater `yaml:"theaters"`
}

type SeedTheater struct {
	Name   string     `yaml:"name"`
	Time   time.Time  `yaml:"time"`
	Layout SeatLayout `yaml:"layout"`
}

// SeatLayout describes a rectangular room.  Rows are lettered from A.
type SeatLayout struct {
	Rows        int `yaml:"rows"`
	SeatsPerRow int `yaml:"seats_per_row"`
}

// SeatNumbers lists the seats row by row: A1, A2, ..., B1, ...
func (l SeatLayout) SeatNumbers() []string {
	out := make([]string, 0, l.Rows*l.SeatsPerRow)
	for r := 0; r < l.Rows; r++ {
		row := string(rune('A' + r))
		for n := 1; n <= l.SeatsPerRow; n++ {
			out = append(out, row+strconv.Itoa(n))
		}
	}
	return out
}

// LoadSeed decodes a seed document.  Unknown fields are rejected so typos
// do not silently drop data.
func LoadSeed(r io.Reader) (*SeedFile, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var f SeedFile
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("seed file is empty")
		}
		return nil, fmt.Errorf("decode seed: %w", err)
	}
	if err := f.validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

func (f *SeedFile) validate() error {
	for i, m := range f.Movies {
		if m.Name == "" {
			return fmt.Errorf("movies[%d]: name is required", i)
		}
		if !model.ValidGenre(m.Genre) {
			return fmt.Errorf("movie %q: unknown genre %q", m.Name, m.Genre)
		}
		if !model.ValidLanguage(m.Language) {
			return fmt.Errorf("movie %q: unknown language %q", m.Name, m.Language)
		}
		for _, t := range m.Theaters {
			if t.Name == "" || t.Time.IsZero() {
				return fmt.Errorf("movie %q: theaters need a name and a time", m.Name)
			}
			if t.Layout.Rows < 1 || t.Layout.Rows > 26 || t.Layout.SeatsPerRow < 1 {
				return fmt.Errorf("theater %q: layout needs 1-26 rows and at least one seat per row", t.Name)
			}
		}
	}
	return nil
}

// SeedSummary counts what Seed inserted or refreshed.
type SeedSummary struct {
	Movies   int
	Updated  int
	Theaters int
	Seats    int
}

// Seed inserts every movie with its theaters and seats.  A movie whose name
// already exists is not duplicated: its trailer is refreshed when the file
// names one, and the listed theaters are added to it.
func Seed(ctx context.Context, db *sql.DB, f *SeedFile) (SeedSummary, error) {
	movies := repository.NewMovieRepo(db)
	theaters := repository.NewTheaterRepo(db)
	seats := repository.NewSeatRepo(db)

	var sum SeedSummary
	for _, sm := range f.Movies {
		m, err := movies.GetByName(ctx, sm.Name)
		switch {
		case err == nil:
			if sm.TrailerURL != "" {
				if m.TrailerURL, err = movies.UpdateTrailer(ctx, m.ID, sm.TrailerURL); err != nil {
					return sum, fmt.Errorf("movie %q: %w", sm.Name, err)
				}
			}
			sum.Updated++
		case errors.Is(err, repository.ErrMovieNotFound):
			m = &model.Movie{
				Name:        sm.Name,
				Image:       sm.Image,
				Rating:      sm.Rating,
				Cast:        sm.Cast,
				Description: sm.Description,
				Genre:       sm.Genre,
				Language:    sm.Language,
				TrailerURL:  sm.TrailerURL,
			}
			if err := movies.Create(ctx, m); err != nil {
				return sum, fmt.Errorf("movie %q: %w", sm.Name, err)
			}
			sum.Movies++
		default:
			return sum, fmt.Errorf("movie %q: %w", sm.Name, err)
		}
		for _, st := range sm.Theaters {
			t := &model.Theater{Name: st.Name, MovieID: m.ID, ShowTime: st.Time.UTC()}
			if err := theaters.Create(ctx, t); err != nil {
				return sum, fmt.Errorf("theater %q: %w", st.Name, err)
			}
			sum.Theaters++
			numbers := st.Layout.SeatNumbers()
			if err := seats.CreateMany(ctx, t.ID, numbers); err != nil {
				return sum, fmt.Errorf("seats of %q: %w", st.Name, err)
			}
			sum.Seats += len(numbers)
		}
	}
	return sum, nil
}

// NewSeedCommand creates the seed command.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:          "seed <file.yaml>",
		Short:        "Load movies, theaters and seats from a YAML file",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			f, err := LoadSeed(bytes.NewReader(raw))
			if err != nil {
				return err
			}
			db, err := rootOpts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			sum, err := Seed(cmd.Context(), db, f)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d movies, %d theaters, %d seats\n", sum.Movies, sum.Theaters, sum.Seats)
			if sum.Updated > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "updated %d existing movies\n", sum.Updated)
			}
			return nil
		},
	}
}
