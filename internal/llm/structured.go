// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"encoding/json"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// StructuredOutputError reports a completion that did not parse into the
// expected shape.
type StructuredOutputError struct {
	Kind string
	Raw  string
	Err  error
}

func (e *StructuredOutputError) Error() string {
	return fmt.Sprintf("invalid %s output: %v", e.Kind, e.Err)
}

func (e *StructuredOutputError) Unwrap() error { return e.Err }

// DecodeStructured parses raw as strict JSON into T and validates it.
// A surrounding Markdown code fence is tolerated; anything else outside
// the JSON value, unknown fields, or failed validation tags are errors.
// kind names the expected value in error messages.
func DecodeStructured[T any](raw, kind string) (T, error) {
	var out T

	body := stripFence(raw)
	if body == "" {
		return out, &StructuredOutputError{Kind: kind, Raw: raw, Err: fmt.Errorf("empty output")}
	}

	dec := json.NewDecoder(strings.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&out); err != nil {
		return out, &StructuredOutputError{Kind: kind, Raw: raw, Err: err}
	}
	if _, err := dec.Token(); err != io.EOF {
		return out, &StructuredOutputError{Kind: kind, Raw: raw, Err: fmt.Errorf("trailing content after JSON value")}
	}

	if err := validateValue(out); err != nil {
		return out, &StructuredOutputError{Kind: kind, Raw: raw, Err: err}
	}
	return out, nil
}

// validateValue checks struct tags; other kinds carry none.
func validateValue(v any) error {
	if reflect.Indirect(reflect.ValueOf(v)).Kind() != reflect.Struct {
		return nil
	}
	return validate.Struct(v)
}

// stripFence removes a ```json ... ``` wrapper if present.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		return ""
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
