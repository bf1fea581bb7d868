package model

import "time"

// Genres and Languages list the values accepted for Movie.Genre and
// Movie.Language.  An empty value means "not set".
var (
	Genres    = []string{"Action", "Comedy", "Drama", "Thriller", "Horror", "Romance"}
	Languages = []string{"English", "Hindi", "Tamil", "Telugu", "Spanish"}
)

// Movie mirrors a row of the `movies` table.
//
// Fields:
//
//	ID          – primary key.
//	Name        – display title.
//	Image       – relative path of the poster image.
//	Rating      – score with one decimal (e.g. 8.4).
//	Cast        – free-form cast list.
//	Description – optional synopsis.
//	Genre       – one of Genres or empty.
//	Language    – one of Languages or empty.
//	TrailerURL  – embeddable trailer link, normalized on write.
type Movie struct {
	ID          uint64    `json:"id"`
	Name        string    `json:"name"`
	Image       string    `json:"image"`
	Rating      float64   `json:"rating"`
	Cast        string    `json:"cast"`
	Description string    `json:"description,omitempty"`
	Genre       string    `json:"genre,omitempty"`
	Language    string    `json:"language,omitempty"`
	TrailerURL  string    `json:"trailer_url,omitempty"`
	CreatedAt   time.Time `json:"-"`
}

// ValidGenre reports whether g is empty or a known genre.
func ValidGenre(g string) bool { return g == "" || contains(Genres, g) }

// ValidLanguage reports whether l is empty or a known language.
func ValidLanguage(l string) bool { return l == "" || contains(Languages, l) }

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
