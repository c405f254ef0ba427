package wizard

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/terra-clan/roi-insights/internal/models"
)

// Common errors
var (
	ErrUnknownQuestion   = errors.New("unknown question")
	ErrSectionOutOfRange = errors.New("section index out of range")
)

// Validation messages
const (
	MsgRequired      = "This field is required"
	MsgInvalidNumber = "Please enter a valid number"
	MsgInvalidAnswer = "Please provide a valid answer"
)

// Option configures a Wizard
type Option func(*Wizard)

// WithOnChange registers the callback invoked with the answer set after every SetAnswer
func WithOnChange(fn func(models.AnswerSet)) Option {
	return func(w *Wizard) {
		w.onChange = fn
	}
}

// WithOnSubmit registers the callback invoked by Finalize and SaveProgress
func WithOnSubmit(fn func(models.AnswerSet)) Option {
	return func(w *Wizard) {
		w.onSubmit = fn
	}
}

// WithOnNavigate registers the callback invoked whenever the active section changes
func WithOnNavigate(fn func(section int)) Option {
	return func(w *Wizard) {
		w.onNavigate = fn
	}
}

// Wizard walks a user through the taxonomy sections.
// Forward movement is gated by validation of the active section; backward
// and random navigation are not. A Wizard has a single writer and is not
// safe for concurrent use.
type Wizard struct {
	taxonomy *models.Taxonomy
	active   int
	answers  models.AnswerSet
	errors   map[string]string

	onChange   func(models.AnswerSet)
	onSubmit   func(models.AnswerSet)
	onNavigate func(int)
}

// New creates a wizard positioned on the first section.
// The initial answers are copied; the caller keeps ownership of its map.
func New(t *models.Taxonomy, initial models.AnswerSet, opts ...Option) *Wizard {
	w := &Wizard{
		taxonomy: t,
		answers:  initial.Clone(),
		errors:   make(map[string]string),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Resume rebuilds a wizard from persisted state. The active section is
// clamped into range and errors outside it are dropped.
func Resume(t *models.Taxonomy, state models.WizardState, opts ...Option) *Wizard {
	w := New(t, state.Answers, opts...)
	w.active = clamp(state.ActiveSection, t.SectionCount())

	for id, msg := range state.FieldErrors {
		if t.SectionOf(id) == w.active {
			w.errors[id] = msg
		}
	}
	return w
}

// ActiveSection returns the index of the section being edited
func (w *Wizard) ActiveSection() int {
	return w.active
}

// IsLastSection reports whether the active section is the final one
func (w *Wizard) IsLastSection() bool {
	return w.active >= w.taxonomy.SectionCount()-1
}

// Answers returns a copy of the current answer set
func (w *Wizard) Answers() models.AnswerSet {
	return w.answers.Clone()
}

// Errors returns a copy of the visible field errors
func (w *Wizard) Errors() map[string]string {
	out := make(map[string]string, len(w.errors))
	for k, v := range w.errors {
		out[k] = v
	}
	return out
}

// State returns a snapshot suitable for persistence
func (w *Wizard) State() models.WizardState {
	return models.WizardState{
		ActiveSection: w.active,
		Answers:       w.Answers(),
		FieldErrors:   w.Errors(),
	}
}

// SetAnswer upserts an answer. A null answer removes the entry. A non-empty
// answer clears any error recorded for the question; an answer of the wrong
// shape for the question type is stored and flagged as a field error. The
// change callback fires on every successful call.
func (w *Wizard) SetAnswer(questionID string, value models.Answer) error {
	q := w.taxonomy.Question(questionID)
	if q == nil {
		return fmt.Errorf("%w: %s", ErrUnknownQuestion, questionID)
	}

	if value.Kind() == models.AnswerNull {
		delete(w.answers, questionID)
	} else {
		w.answers[questionID] = value
	}

	if _, ok := w.errors[questionID]; ok && !value.IsEmpty() {
		delete(w.errors, questionID)
	}
	if !accepts(q, value) {
		w.errors[questionID] = MsgInvalidAnswer
	}

	if w.onChange != nil {
		w.onChange(w.answers.Clone())
	}
	return nil
}

// ValidateSection checks every question of the section and replaces the
// error map with exactly the errors found. Out-of-range indexes validate
// trivially and leave the errors untouched.
func (w *Wizard) ValidateSection(index int) bool {
	if index < 0 || index >= w.taxonomy.SectionCount() {
		return true
	}

	found := make(map[string]string)
	for i := range w.taxonomy.Sections[index].Questions {
		q := &w.taxonomy.Sections[index].Questions[i]
		if msg := validate(q, w.answers[q.ID]); msg != "" {
			found[q.ID] = msg
		}
	}

	w.errors = found
	return len(found) == 0
}

// Advance validates the active section and moves to the next one.
// On the last section it finalizes instead. Returns false when validation failed.
func (w *Wizard) Advance() bool {
	if w.taxonomy.SectionCount() == 0 {
		return false
	}
	if w.IsLastSection() {
		return w.Finalize()
	}
	if !w.ValidateSection(w.active) {
		return false
	}
	w.navigate(w.active + 1)
	return true
}

// Retreat moves to the previous section without validation; no-op on the first
func (w *Wizard) Retreat() {
	if w.active > 0 {
		w.navigate(w.active - 1)
	}
}

// JumpTo moves to any section without validation
func (w *Wizard) JumpTo(index int) error {
	if index < 0 || index >= w.taxonomy.SectionCount() {
		return fmt.Errorf("%w: %d", ErrSectionOutOfRange, index)
	}
	w.navigate(index)
	return nil
}

// Finalize validates the active section and, when valid, hands the answer
// set to the submit callback. The active section does not change.
func (w *Wizard) Finalize() bool {
	if !w.ValidateSection(w.active) {
		return false
	}
	w.submit()
	return true
}

// SaveProgress hands the answer set to the submit callback without validation
func (w *Wizard) SaveProgress() {
	w.submit()
}

func (w *Wizard) submit() {
	if w.onSubmit != nil {
		w.onSubmit(w.answers.Clone())
	}
}

// navigate switches sections; errors belong to the section they were computed for
func (w *Wizard) navigate(index int) {
	w.active = index
	w.errors = make(map[string]string)
	if w.onNavigate != nil {
		w.onNavigate(index)
	}
}

// validate returns the error message for one answer, or ""
func validate(q *models.Question, a models.Answer) string {
	if a.IsEmpty() {
		if q.Required {
			return MsgRequired
		}
		return ""
	}
	if !accepts(q, a) {
		return MsgInvalidAnswer
	}

	if !q.IsNumeric() {
		return ""
	}

	n, ok := ParseNumber(a)
	if !ok {
		return MsgInvalidNumber
	}
	if q.Min != nil && n < *q.Min {
		return "Value must be at least " + formatBound(*q.Min)
	}
	if q.Max != nil && n > *q.Max {
		return "Value must not exceed " + formatBound(*q.Max)
	}
	return ""
}

// ParseNumber interprets an answer as a plain number. Text must be a complete
// decimal literal after trimming whitespace.
func ParseNumber(a models.Answer) (float64, bool) {
	switch a.Kind() {
	case models.AnswerNumber:
		n, _ := a.Float()
		return n, true
	case models.AnswerText:
		n, err := strconv.ParseFloat(strings.TrimSpace(a.String()), 64)
		if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

// accepts checks the answer variant against the question type
func accepts(q *models.Question, a models.Answer) bool {
	switch a.Kind() {
	case models.AnswerNull:
		return true
	case models.AnswerList:
		return q.Type == models.QuestionCheckbox
	default:
		return q.Type != models.QuestionCheckbox
	}
}

func formatBound(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func clamp(i, n int) int {
	if n == 0 || i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
