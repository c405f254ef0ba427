package models

import (
	"time"
)

// Survey is the persisted unit: a named answer set with timestamps.
// Names are unique among saved surveys.
type Survey struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Responses    AnswerSet `json:"responses"`
	DateCreated  time.Time `json:"date_created"`
	DateModified time.Time `json:"date_modified"`
}

// SaveSurveyRequest is the body of PUT /surveys/{name}
type SaveSurveyRequest struct {
	Responses AnswerSet `json:"responses"`
}

// SurveyList is the response of GET /surveys
type SurveyList struct {
	Surveys []string `json:"surveys"`
	Total   int      `json:"total"`
}
