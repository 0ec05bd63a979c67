// Package model defines the judging domain types.
package model

import (
	"encoding/json"
	"time"

	"verdict/internal/judge/sandbox/spec"
)

// Verdict is the aggregate outcome of one judge call.
type Verdict string

const (
	VerdictAC Verdict = "AC" // accepted, every weighted test passed
	VerdictWA Verdict = "WA" // wrong answer, nothing passed
	VerdictPA Verdict = "PA" // partial credit
	VerdictCE Verdict = "CE" // compilation error
	VerdictRE Verdict = "RE" // runtime error or unusable output
)

// Test case visibility.
const (
	VisibilityVisible = "visible"
	VisibilityHidden  = "hidden"
)

// TestCase is one scored case of a problem. Hidden cases are scored like
// visible ones but their payloads are withheld from callers.
type TestCase struct {
	ID          string          `json:"id"`
	Input       json.RawMessage `json:"input"`
	Expected    json.RawMessage `json:"expected"`
	Comparator  string          `json:"comparator,omitempty"`
	Visibility  string          `json:"visibility,omitempty"`
	Weight      float64         `json:"weight,omitempty"`
	Tolerance   float64         `json:"tolerance,omitempty"`
	Description string          `json:"description,omitempty"`
}

// Hidden reports whether the case's payloads must be redacted.
func (tc TestCase) Hidden() bool {
	return tc.Visibility == VisibilityHidden
}

// EffectiveWeight returns the scoring weight, defaulting to 1.
func (tc TestCase) EffectiveWeight() float64 {
	if tc.Weight <= 0 {
		return 1
	}
	return tc.Weight
}

// ProblemDefinition is the read-only judging contract for one problem.
// Harness maps a language name to a source template containing the
// {{USER_CODE}} placeholder; Starter maps a language to the snippet shown
// to users before they have written anything.
type ProblemDefinition struct {
	ID        string             `json:"id"`
	Title     string             `json:"title"`
	Harness   map[string]string  `json:"harness"`
	Starter   map[string]string  `json:"starter,omitempty"`
	TestCases []TestCase         `json:"testCases"`
	Limits    spec.ResourceLimit `json:"limits,omitempty"`
}

// TestResult is the per-case outcome inside a JudgeResult. ActualOutput and
// ExpectedOutput are empty for hidden cases.
type TestResult struct {
	TestID         string  `json:"testId"`
	Passed         bool    `json:"passed"`
	Verdict        Verdict `json:"verdict"`
	ActualOutput   string  `json:"actualOutput,omitempty"`
	ExpectedOutput string  `json:"expectedOutput,omitempty"`
	TimeMs         int64   `json:"timeMs"`
	Error          string  `json:"error,omitempty"`
	Hidden         bool    `json:"hidden,omitempty"`
	Description    string  `json:"description,omitempty"`
}

// JudgeResult is the durable output of one judge call. TestResults order
// mirrors the problem's test-case order.
type JudgeResult struct {
	ID               string       `json:"id"`
	ProblemID        string       `json:"problemId"`
	Language         string       `json:"language"`
	Verdict          Verdict      `json:"verdict"`
	Score            float64      `json:"score"`
	TestResults      []TestResult `json:"testResults"`
	TotalTimeMs      int64        `json:"totalTimeMs"`
	CompilationError string       `json:"compilationError,omitempty"`
	RuntimeError     string       `json:"runtimeError,omitempty"`
	UserStdout       string       `json:"userStdout,omitempty"`
	Stderr           string       `json:"stderr,omitempty"`
	CreatedAt        time.Time    `json:"createdAt"`
}

// VerdictEvent is the message published after a judge call completes.
type VerdictEvent struct {
	ResultID    string    `json:"resultId"`
	ProblemID   string    `json:"problemId"`
	Language    string    `json:"language"`
	Verdict     Verdict   `json:"verdict"`
	Score       float64   `json:"score"`
	TotalTimeMs int64     `json:"totalTimeMs"`
	CreatedAt   time.Time `json:"createdAt"`
}
