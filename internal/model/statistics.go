package model

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Statistics is the typed form of a user's statistics blob. Achievements and
// Courses are opaque client-defined entries; any other top-level keys are
// preserved in Extra so a merge never loses data it does not understand.
type Statistics struct {
	Achievements []json.RawMessage
	Courses      []json.RawMessage
	Extra        map[string]json.RawMessage
}

func DefaultStatistics() Statistics {
	return Statistics{
		Achievements: []json.RawMessage{},
		Courses:      []json.RawMessage{},
	}
}

func (s Statistics) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(s.Extra)+2)
	for k, v := range s.Extra {
		out[k] = v
	}
	out["achievements"] = nonNil(s.Achievements)
	out["courses"] = nonNil(s.Courses)
	return json.Marshal(out)
}

// UnmarshalJSON decodes a stored blob. A list holding something other than
// an array is reset to empty; use DecodeStatistics to learn which were.
func (s *Statistics) UnmarshalJSON(data []byte) error {
	out, _, err := DecodeStatistics(data)
	if err != nil {
		return err
	}
	*s = out
	return nil
}

// DecodeStatistics is the lenient decoder for stored statistics. The blob
// must be a JSON object; reset names the list keys whose values were not
// arrays and were replaced with empty lists.
func DecodeStatistics(data []byte) (out Statistics, reset []string, err error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return Statistics{}, nil, fmt.Errorf("statistics: %w", err)
	}
	if raw == nil {
		return Statistics{}, nil, errors.New("statistics: not an object")
	}

	out = DefaultStatistics()
	for _, key := range []string{"achievements", "courses"} {
		value, ok := raw[key]
		if !ok {
			continue
		}
		if _, err := decodeList(value); err != nil {
			delete(raw, key)
			reset = append(reset, key)
		}
	}
	if err := out.Merge(raw); err != nil {
		return Statistics{}, nil, fmt.Errorf("statistics: %w", err)
	}
	return out, reset, nil
}

// Merge overwrites the top-level keys named in patch. achievements and
// courses must be arrays (null resets them to empty).
func (s *Statistics) Merge(patch map[string]json.RawMessage) error {
	next := Statistics{
		Achievements: s.Achievements,
		Courses:      s.Courses,
		Extra:        make(map[string]json.RawMessage, len(s.Extra)),
	}
	for k, v := range s.Extra {
		next.Extra[k] = v
	}

	for key, value := range patch {
		switch key {
		case "achievements":
			list, err := decodeList(value)
			if err != nil {
				return &FieldError{Field: key, Err: err}
			}
			next.Achievements = list
		case "courses":
			list, err := decodeList(value)
			if err != nil {
				return &FieldError{Field: key, Err: err}
			}
			next.Courses = list
		default:
			next.Extra[key] = value
		}
	}

	if len(next.Extra) == 0 {
		next.Extra = nil
	}
	*s = next
	return nil
}

func decodeList(raw json.RawMessage) ([]json.RawMessage, error) {
	if isNull(raw) {
		return []json.RawMessage{}, nil
	}
	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, errors.New("must be an array")
	}
	return list, nil
}

func nonNil(list []json.RawMessage) []json.RawMessage {
	if list == nil {
		return []json.RawMessage{}
	}
	return list
}
