package analysis

import (
	"encoding/json"
	"fmt"
	"strings"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
	hjson "github.com/hjson/hjson-go/v4"
)

// Decode parses a model response into a Result. Strict JSON is tried first,
// on the raw text and without a markdown fence, then Hjson, which accepts
// single quotes and trailing commas, and finally a repaired version of the
// text. json-repair narrows numbers to float32 and runs last.
func Decode(text string) (*Result, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyResponse
	}

	r, err := decodeResponse(text)
	if err != nil {
		return nil, err
	}
	if err := Normalize(r); err != nil {
		return nil, err
	}
	return r, nil
}

func decodeResponse(text string) (*Result, error) {
	var r Result
	strictErr := json.Unmarshal([]byte(text), &r)
	if strictErr == nil {
		return &r, nil
	}

	body := stripFence(text)
	if body != text {
		r = Result{}
		if err := json.Unmarshal([]byte(body), &r); err == nil {
			return &r, nil
		}
	}

	r = Result{}
	if err := decodeHJSON(body, &r); err == nil {
		return &r, nil
	}

	r = Result{}
	repaired, err := jsonrepair.RepairJSON(body)
	if err == nil {
		err = json.Unmarshal([]byte(repaired), &r)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode analysis response: %w", strictErr)
	}
	return &r, nil
}

// stripFence removes a surrounding ```json ... ``` block
func stripFence(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	body := strings.TrimPrefix(text, "```")
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		body = body[nl+1:]
	} else {
		return text
	}
	body = strings.TrimSpace(body)
	body = strings.TrimSuffix(body, "```")
	return strings.TrimSpace(body)
}

// decodeHJSON goes through a generic value so json tags drive the mapping
func decodeHJSON(text string, r *Result) error {
	var raw interface{}
	if err := hjson.Unmarshal([]byte(text), &raw); err != nil {
		return err
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, r)
}
