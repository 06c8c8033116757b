package models

import "time"

// Rating is a user's verdict on a set of search results.
type Rating string

const (
	RatingUnset Rating = ""
	RatingYes   Rating = "yes"
	RatingNo    Rating = "no"
)

// FeedbackEntry records one search and its later rating. A user has at
// most one unset entry outstanding at a time; asking again replaces it.
type FeedbackEntry struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Query     string    `json:"query"`
	Links     []string  `json:"links"`
	Timestamp time.Time `json:"timestamp"`
	Rating    Rating    `json:"rating"`
	Detail    string    `json:"detail,omitempty"`
}
