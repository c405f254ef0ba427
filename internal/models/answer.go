package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// AnswerKind identifies which variant an Answer holds
type AnswerKind uint8

const (
	AnswerNull AnswerKind = iota
	AnswerText
	AnswerNumber
	AnswerList
)

// Answer is a single survey answer: a string, a number, a list of strings or null.
// The zero value is null and counts as unanswered.
type Answer struct {
	kind AnswerKind
	text string
	num  float64
	list []string
}

// Text returns a string answer
func Text(s string) Answer {
	return Answer{kind: AnswerText, text: s}
}

// Number returns a numeric answer
func Number(n float64) Answer {
	return Answer{kind: AnswerNumber, num: n}
}

// List returns a multi-value answer (checkbox questions)
func List(values ...string) Answer {
	return Answer{kind: AnswerList, list: slices.Clone(values)}
}

// Kind returns the answer variant
func (a Answer) Kind() AnswerKind {
	return a.kind
}

// Values returns a copy of the list variant (nil for other kinds)
func (a Answer) Values() []string {
	if a.kind != AnswerList {
		return nil
	}
	return slices.Clone(a.list)
}

// Float returns the numeric value and whether the answer is the number variant
func (a Answer) Float() (float64, bool) {
	return a.num, a.kind == AnswerNumber
}

// IsEmpty reports whether the answer counts as unanswered: null, a blank string or an empty list.
// Numbers are never empty.
func (a Answer) IsEmpty() bool {
	switch a.kind {
	case AnswerText:
		return strings.TrimSpace(a.text) == ""
	case AnswerNumber:
		return false
	case AnswerList:
		return len(a.list) == 0
	default:
		return true
	}
}

// String renders the answer as plain text
func (a Answer) String() string {
	switch a.kind {
	case AnswerText:
		return a.text
	case AnswerNumber:
		return strconv.FormatFloat(a.num, 'f', -1, 64)
	case AnswerList:
		return strings.Join(a.list, ", ")
	default:
		return ""
	}
}

// Equal reports value equality
func (a Answer) Equal(b Answer) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case AnswerText:
		return a.text == b.text
	case AnswerNumber:
		return a.num == b.num
	case AnswerList:
		return slices.Equal(a.list, b.list)
	default:
		return true
	}
}

// MarshalJSON encodes the answer as its natural JSON value
func (a Answer) MarshalJSON() ([]byte, error) {
	switch a.kind {
	case AnswerText:
		return json.Marshal(a.text)
	case AnswerNumber:
		return json.Marshal(a.num)
	case AnswerList:
		if a.list == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(a.list)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON decodes a string, number, array of strings or null
func (a *Answer) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*a = Answer{}
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = Text(s)
	case '[':
		var values []string
		if err := json.Unmarshal(data, &values); err != nil {
			return fmt.Errorf("answer list must contain strings: %w", err)
		}
		if values == nil {
			values = []string{}
		}
		*a = Answer{kind: AnswerList, list: values}
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*a = Text(strconv.FormatBool(b))
	default:
		var n float64
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("unsupported answer value %s", string(data))
		}
		*a = Number(n)
	}
	return nil
}

// AnswerSet maps question id to answer. Any subset of ids may be present.
type AnswerSet map[string]Answer

// IsAnswered reports whether the question has a non-empty answer
func (s AnswerSet) IsAnswered(id string) bool {
	a, ok := s[id]
	return ok && !a.IsEmpty()
}

// Clone returns an independent copy
func (s AnswerSet) Clone() AnswerSet {
	out := make(AnswerSet, len(s))
	for k, v := range s {
		if v.kind == AnswerList {
			v.list = slices.Clone(v.list)
		}
		out[k] = v
	}
	return out
}

// Equal compares two sets key by key, ignoring order
func (s AnswerSet) Equal(other AnswerSet) bool {
	if len(s) != len(other) {
		return false
	}
	for k, v := range s {
		o, ok := other[k]
		if !ok || !v.Equal(o) {
			return false
		}
	}
	return true
}

// AnsweredCount returns how many questions carry a non-empty answer
func (s AnswerSet) AnsweredCount() int {
	n := 0
	for _, v := range s {
		if !v.IsEmpty() {
			n++
		}
	}
	return n
}
