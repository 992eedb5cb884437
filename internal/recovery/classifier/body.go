package classifier

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"
)

var errNotObject = errors.New("not a json object")

// field is one member of a JSON object, kept in document order.
type field struct {
	key   string
	value json.RawMessage
}

// responseBody is a decoded JSON error body. Non-JSON bodies decode to an empty one.
type responseBody struct {
	fields []field
}

func parseBody(raw []byte) responseBody {
	fields, err := orderedFields(raw)
	if err != nil {
		return responseBody{}
	}
	return responseBody{fields: fields}
}

// orderedFields decodes a JSON object without losing key order, which encoding/json
// maps discard.
func orderedFields(raw []byte) ([]field, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, errNotObject
	}

	var out []field
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, errNotObject
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, err
		}
		out = append(out, field{key: key, value: value})
	}
	return out, nil
}

func (b responseBody) get(key string) (json.RawMessage, bool) {
	for _, f := range b.fields {
		if f.key == key {
			return f.value, true
		}
	}
	return nil, false
}

// str returns the first non-empty string value among keys.
func (b responseBody) str(keys ...string) string {
	for _, k := range keys {
		raw, ok := b.get(k)
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil && s != "" {
			return s
		}
	}
	return ""
}

// asMap returns the body as a generic map, for attaching to a classification.
func (b responseBody) asMap() map[string]any {
	if len(b.fields) == 0 {
		return nil
	}
	out := make(map[string]any, len(b.fields))
	for _, f := range b.fields {
		var v any
		if err := json.Unmarshal(f.value, &v); err == nil {
			out[f.key] = v
		}
	}
	return out
}

// retryAfter reads a retry hint in seconds from the body.
func (b responseBody) retryAfter() time.Duration {
	for _, k := range []string{"retry_after", "retryAfter"} {
		raw, ok := b.get(k)
		if !ok {
			continue
		}
		var n float64
		if err := json.Unmarshal(raw, &n); err == nil && n > 0 {
			return time.Duration(n * float64(time.Second))
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			if d := parseRetryAfter(s); d > 0 {
				return d
			}
		}
	}
	return 0
}

// parseRetryAfter accepts delta-seconds or a Go duration string.
func parseRetryAfter(s string) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if n, err := strconv.ParseFloat(s, 64); err == nil && n > 0 {
		return time.Duration(n * float64(time.Second))
	}
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return 0
}

// firstMessage returns the first string found in raw, descending at most depth
// levels into arrays.
func firstMessage(raw json.RawMessage, depth int) (string, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, s != ""
	}
	if depth <= 0 {
		return "", false
	}
	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err != nil || len(list) == 0 {
		return "", false
	}
	return firstMessage(list[0], depth-1)
}

// validationErrors extracts the message and field errors of a 400 body.
func (b responseBody) validationErrors() (string, map[string][]string) {
	message := b.str("detail")

	raw, ok := b.get("errors")
	if !ok {
		return message, nil
	}

	if message == "" {
		if m, ok := firstMessage(raw, 1); ok {
			// errors is a string or an array
			message = m
		}
	}

	fields, err := orderedFields(raw)
	if err != nil {
		return message, nil
	}

	fieldErrors := make(map[string][]string, len(fields))
	for i, f := range fields {
		msgs := stringList(f.value)
		if len(msgs) > 0 {
			fieldErrors[f.key] = msgs
		}
		if i == 0 && message == "" {
			if m, ok := firstMessage(f.value, 1); ok {
				message = m
			}
		}
	}
	return message, fieldErrors
}

// stringList reads either a string or an array of strings.
func stringList(raw json.RawMessage) []string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if s == "" {
			return nil
		}
		return []string{s}
	}
	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		if err := json.Unmarshal(item, &s); err == nil && s != "" {
			out = append(out, s)
		}
	}
	return out
}
