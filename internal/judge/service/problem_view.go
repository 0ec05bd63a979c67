package service

import (
	"context"
	"encoding/json"
	"sort"

	"verdict/internal/judge/model"
	apperrors "verdict/pkg/errors"
)

// ProblemView is the caller-facing projection of a problem: starter code
// and visible test cases only. Hidden cases and harness templates never
// leave the service.
type ProblemView struct {
	ID        string            `json:"id"`
	Title     string            `json:"title"`
	Languages []string          `json:"languages"`
	Starter   map[string]string `json:"starter,omitempty"`
	TestCases []TestCaseView    `json:"testCases"`
}

// TestCaseView is one visible test case inside a ProblemView.
type TestCaseView struct {
	ID          string          `json:"id"`
	Input       json.RawMessage `json:"input"`
	Expected    json.RawMessage `json:"expected"`
	Comparator  string          `json:"comparator,omitempty"`
	Description string          `json:"description,omitempty"`
}

// GetProblem returns the redacted view of a problem.
func (s *JudgeService) GetProblem(ctx context.Context, problemID string) (*ProblemView, error) {
	def, err := s.catalog.Get(ctx, problemID)
	if err != nil {
		return nil, err
	}

	languages := make([]string, 0, len(def.Harness))
	for name := range def.Harness {
		languages = append(languages, name)
	}
	sort.Strings(languages)

	view := &ProblemView{
		ID:        def.ID,
		Title:     def.Title,
		Languages: languages,
		Starter:   def.Starter,
	}
	for _, tc := range def.TestCases {
		if tc.Hidden() {
			continue
		}
		view.TestCases = append(view.TestCases, TestCaseView{
			ID:          tc.ID,
			Input:       tc.Input,
			Expected:    tc.Expected,
			Comparator:  tc.Comparator,
			Description: tc.Description,
		})
	}
	return view, nil
}

// GetResult loads a previously stored judge result.
func (s *JudgeService) GetResult(ctx context.Context, resultID string) (*model.JudgeResult, error) {
	if s.results == nil {
		return nil, apperrors.New(apperrors.ServiceUnavailable).WithMessage("result storage is not configured")
	}
	return s.results.Get(ctx, resultID)
}

// Languages lists the configured language profiles.
func (s *JudgeService) Languages() []string {
	return s.languages.Names()
}
