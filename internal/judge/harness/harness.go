// Package harness synthesizes submission sources and speaks the results
// envelope protocol between the judged process and the orchestrator.
//
// A harness template is problem- and language-specific source text holding
// the {{USER_CODE}} placeholder. The synthesized program reads one JSON
// payload with every test case from stdin, invokes the user's function once
// per case inside a local failure boundary, and prints a JSON envelope
// between two sentinel lines after the last case.
package harness

import (
	"encoding/json"
	"fmt"
	"strings"

	"verdict/internal/judge/model"
)

// UserCodePlaceholder marks where the submission is spliced into a template.
const UserCodePlaceholder = "{{USER_CODE}}"

// Sentinel lines delimiting the results envelope on stdout.
const (
	BeginMarker = "----VERDICT RESULTS BEGIN----"
	EndMarker   = "----VERDICT RESULTS END----"
)

// Case result statuses inside the envelope.
const (
	StatusOK    = "OK"
	StatusError = "ERROR"
)

// Synthesize splices userCode into the harness template.
func Synthesize(template, userCode string) (string, error) {
	if !strings.Contains(template, UserCodePlaceholder) {
		return "", fmt.Errorf("harness template has no %s placeholder", UserCodePlaceholder)
	}
	return strings.ReplaceAll(template, UserCodePlaceholder, userCode), nil
}

// StdinPayload is the batched input handed to the harness process: every
// test case in one payload, so a single process run services all cases.
type StdinPayload struct {
	Tests []TestInput `json:"tests"`
}

// TestInput is one case inside the stdin payload.
type TestInput struct {
	ID    string          `json:"id"`
	Input json.RawMessage `json:"input"`
}

// BuildStdin serializes the test cases of a problem into the harness
// stdin payload, preserving order.
func BuildStdin(tests []model.TestCase) (string, error) {
	payload := StdinPayload{Tests: make([]TestInput, 0, len(tests))}
	for _, tc := range tests {
		payload.Tests = append(payload.Tests, TestInput{ID: tc.ID, Input: tc.Input})
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal stdin payload: %w", err)
	}
	return string(data), nil
}

// Envelope is the structured result block the harness prints between the
// sentinel markers.
type Envelope struct {
	Results []CaseResult `json:"results"`
	Meta    EnvelopeMeta `json:"meta"`
}

// CaseResult is one per-test record inside the envelope. Status is OK with
// a raw output, or ERROR with a message caught by the per-test boundary.
type CaseResult struct {
	Case   string          `json:"case"`
	Status string          `json:"status"`
	Output json.RawMessage `json:"output,omitempty"`
	Error  string          `json:"error,omitempty"`
	TimeMs int64           `json:"timeMs,omitempty"`
}

// EnvelopeMeta carries harness-level bookkeeping.
type EnvelopeMeta struct {
	TimeMs int64 `json:"timeMs"`
}

// ParseStdout splits a run phase's stdout into the submission's own output
// and the parsed envelope. Text before the begin marker belongs to the
// user; a missing or malformed envelope is an error the caller maps to a
// runtime-error verdict.
func ParseStdout(stdout string) (userStdout string, env *Envelope, err error) {
	begin := strings.Index(stdout, BeginMarker)
	if begin < 0 {
		return stdout, nil, fmt.Errorf("results envelope begin marker not found")
	}
	userStdout = stdout[:begin]

	rest := stdout[begin+len(BeginMarker):]
	end := strings.Index(rest, EndMarker)
	if end < 0 {
		return userStdout, nil, fmt.Errorf("results envelope end marker not found")
	}

	body := strings.TrimSpace(rest[:end])
	var parsed Envelope
	if err := json.Unmarshal([]byte(body), &parsed); err != nil {
		return userStdout, nil, fmt.Errorf("parse results envelope: %w", err)
	}
	return userStdout, &parsed, nil
}
