package model

import "time"

// Theater is a single screening of a movie: a named room at a show time.
// Many theaters may point at the same movie.
type Theater struct {
	ID       uint64    `json:"id"`        // theaters.id
	Name     string    `json:"name"`      // theaters.name
	MovieID  uint64    `json:"movie_id"`  // theaters.movie_id
	ShowTime time.Time `json:"show_time"` // theaters.show_time (UTC)
}
