package models

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// QuestionType is the input kind of a question
type QuestionType string

const (
	QuestionText     QuestionType = "text"
	QuestionNumber   QuestionType = "number"
	QuestionEmail    QuestionType = "email"
	QuestionSelect   QuestionType = "select"
	QuestionRadio    QuestionType = "radio"
	QuestionCheckbox QuestionType = "checkbox"
)

// IsValid reports whether t is a known question type
func (t QuestionType) IsValid() bool {
	switch t {
	case QuestionText, QuestionNumber, QuestionEmail, QuestionSelect, QuestionRadio, QuestionCheckbox:
		return true
	}
	return false
}

// HasOptions reports whether the type requires a fixed option list
func (t QuestionType) HasOptions() bool {
	return t == QuestionSelect || t == QuestionRadio || t == QuestionCheckbox
}

// Category is the financial role of a monetary question
type Category string

const (
	CategoryNone          Category = ""
	CategoryInitialBudget Category = "initial-budget"
	CategoryCost          Category = "cost"
	CategoryBenefit       Category = "benefit"
)

// IsValid reports whether c is empty or a known category
func (c Category) IsValid() bool {
	switch c {
	case CategoryNone, CategoryInitialBudget, CategoryCost, CategoryBenefit:
		return true
	}
	return false
}

// Option is a selectable choice. Plain string options decode with value == label.
type Option struct {
	Value string `json:"value" yaml:"value"`
	Label string `json:"label" yaml:"label"`
}

// UnmarshalYAML accepts either a scalar or a {value, label} mapping
func (o *Option) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		o.Value = node.Value
		o.Label = node.Value
		return nil
	}

	var raw struct {
		Value string `yaml:"value"`
		Label string `yaml:"label"`
	}
	if err := node.Decode(&raw); err != nil {
		return fmt.Errorf("invalid option: %w", err)
	}
	o.Value = raw.Value
	o.Label = raw.Label
	if o.Label == "" {
		o.Label = o.Value
	}
	return nil
}

// UnmarshalJSON accepts either a string or a {value, label} object
func (o *Option) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		o.Value = s
		o.Label = s
		return nil
	}

	type plain Option
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*o = Option(p)
	if o.Label == "" {
		o.Label = o.Value
	}
	return nil
}

// Question is one immutable entry of the survey taxonomy
type Question struct {
	ID        string       `json:"id" yaml:"id"`
	Type      QuestionType `json:"type" yaml:"type"`
	Label     string       `json:"label" yaml:"label"`
	Options   []Option     `json:"options,omitempty" yaml:"options"`
	Required  bool         `json:"required" yaml:"required"`
	Multiline bool         `json:"multiline,omitempty" yaml:"multiline"`
	Min       *float64     `json:"min,omitempty" yaml:"min"`
	Max       *float64     `json:"max,omitempty" yaml:"max"`
	HelpText  string       `json:"help_text,omitempty" yaml:"help_text"`
	Category  Category     `json:"category,omitempty" yaml:"category"`
	// Short name used for chart labels; falls back to the label
	ChartName string `json:"chart_name,omitempty" yaml:"chart_name"`
}

// IsNumeric reports whether the answer must parse as a number
func (q *Question) IsNumeric() bool {
	return q.Type == QuestionNumber || q.Min != nil || q.Max != nil
}

// Section is a named, ordered group of questions
type Section struct {
	Name      string     `json:"section" yaml:"section"`
	Questions []Question `json:"questions" yaml:"questions"`
}

// Taxonomy is the ordered list of sections making up the survey
type Taxonomy struct {
	Sections []Section `json:"sections" yaml:"sections"`
}

// SectionCount returns the number of sections
func (t *Taxonomy) SectionCount() int {
	if t == nil {
		return 0
	}
	return len(t.Sections)
}

// Question finds a question by id
func (t *Taxonomy) Question(id string) *Question {
	if t == nil {
		return nil
	}
	for i := range t.Sections {
		for j := range t.Sections[i].Questions {
			if t.Sections[i].Questions[j].ID == id {
				return &t.Sections[i].Questions[j]
			}
		}
	}
	return nil
}

// SectionOf returns the index of the section containing the question, or -1
func (t *Taxonomy) SectionOf(id string) int {
	if t == nil {
		return -1
	}
	for i, s := range t.Sections {
		for _, q := range s.Questions {
			if q.ID == id {
				return i
			}
		}
	}
	return -1
}

// Label returns the question label, or the id when the question is unknown
func (t *Taxonomy) Label(id string) string {
	if q := t.Question(id); q != nil {
		return q.Label
	}
	return id
}
