package models

import (
	"time"
)

// WizardState is the persisted state of the survey wizard
type WizardState struct {
	ActiveSection int               `json:"active_section"`
	Answers       AnswerSet         `json:"answers"`
	FieldErrors   map[string]string `json:"field_errors"`
}

// WizardSession is a server-hosted wizard editing one answer set
type WizardSession struct {
	ID         string      `json:"id"`
	SurveyName string      `json:"survey_name,omitempty"`
	Baseline   AnswerSet   `json:"baseline"`
	State      WizardState `json:"state"`
	Dirty      bool        `json:"dirty"`
	Submitted  bool        `json:"submitted"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// WizardView is the API representation of a wizard session
type WizardView struct {
	ID            string            `json:"id"`
	SurveyName    string            `json:"survey_name,omitempty"`
	ActiveSection int               `json:"active_section"`
	SectionName   string            `json:"section_name"`
	SectionCount  int               `json:"section_count"`
	Answers       AnswerSet         `json:"answers"`
	FieldErrors   map[string]string `json:"field_errors"`
	Dirty         bool              `json:"dirty"`
	Valid         bool              `json:"valid"`
	Submitted     bool              `json:"submitted"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// StartWizardRequest starts a wizard, optionally from a saved survey
type StartWizardRequest struct {
	SurveyName string `json:"survey_name,omitempty"`
}

// SetAnswerRequest is the body of PUT /wizards/{id}/answers/{questionId}
type SetAnswerRequest struct {
	Value Answer `json:"value"`
}

// JumpRequest is the body of POST /wizards/{id}/jump
type JumpRequest struct {
	Section int `json:"section"`
}

// CommitWizardRequest names the survey a wizard is saved under
type CommitWizardRequest struct {
	Name string `json:"name"`
}
