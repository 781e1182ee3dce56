// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ScoringError reports a completion that did not contain a usable score.
type ScoringError struct {
	Raw string
	Err error
}

func (e *ScoringError) Error() string {
	return fmt.Sprintf("invalid score %q: %v", truncate(e.Raw, 40), e.Err)
}

func (e *ScoringError) Unwrap() error { return e.Err }

// ParseScore reads a single decimal number from raw and clamps it to
// [0, 1]. Surrounding whitespace and a trailing period are tolerated;
// any other text is an error.
func ParseScore(raw string) (float64, error) {
	s := strings.TrimSuffix(strings.TrimSpace(raw), ".")
	if s == "" {
		return 0, &ScoringError{Raw: raw, Err: fmt.Errorf("empty output")}
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, &ScoringError{Raw: raw, Err: err}
	}
	if math.IsNaN(v) {
		return 0, &ScoringError{Raw: raw, Err: fmt.Errorf("not a number")}
	}
	return Clamp01(v), nil
}

// Clamp01 limits v to [0, 1].
func Clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
