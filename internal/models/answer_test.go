package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnswerSetSurvivesSurveyRecord(t *testing.T) {
	original := AnswerSet{
		"company":  Text("Acme"),
		"staff":    Number(12.5),
		"tools":    List("crm", "erp"),
		"nothing":  List(),
		"optional": Text(""),
	}

	data, err := json.Marshal(Survey{Name: "pilot", Responses: original})
	require.NoError(t, err)

	var decoded Survey
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.True(t, original.Equal(decoded.Responses))
}

func TestAnswerUnmarshal(t *testing.T) {
	var set AnswerSet
	require.NoError(t, json.Unmarshal([]byte(`{"a":"x","b":3,"c":["1","2"],"d":null,"e":true}`), &set))

	assert.Equal(t, AnswerText, set["a"].Kind())
	n, ok := set["b"].Float()
	assert.True(t, ok)
	assert.Equal(t, 3.0, n)
	assert.Equal(t, []string{"1", "2"}, set["c"].Values())
	assert.Equal(t, AnswerNull, set["d"].Kind())
	assert.Equal(t, "true", set["e"].String())

	var bad Answer
	assert.Error(t, json.Unmarshal([]byte(`[1,2]`), &bad))
	assert.Error(t, json.Unmarshal([]byte(`{"x":1}`), &bad))
}

func TestAnswerIsEmpty(t *testing.T) {
	assert.True(t, Answer{}.IsEmpty())
	assert.True(t, Text(" \t").IsEmpty())
	assert.True(t, List().IsEmpty())
	assert.False(t, Number(0).IsEmpty())
	assert.False(t, Text("0").IsEmpty())
	assert.False(t, List("x").IsEmpty())
}

func TestAnswerSetHelpers(t *testing.T) {
	set := AnswerSet{"a": Text("x"), "b": Text(""), "c": List("1")}

	assert.True(t, set.IsAnswered("a"))
	assert.False(t, set.IsAnswered("b"))
	assert.False(t, set.IsAnswered("missing"))
	assert.Equal(t, 2, set.AnsweredCount())

	clone := set.Clone()
	assert.True(t, set.Equal(clone))
	clone["c"] = List("2")
	assert.Equal(t, []string{"1"}, set["c"].Values())
	assert.False(t, set.Equal(clone))

	assert.False(t, AnswerSet{"a": Text("1")}.Equal(AnswerSet{"a": Number(1)}))
	assert.True(t, AnswerSet{}.Equal(nil))
}
