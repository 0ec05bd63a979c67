// Package catalog loads read-only problem definitions for judging.
package catalog

import (
	"context"

	"verdict/internal/judge/model"
	apperrors "verdict/pkg/errors"
)

// ProblemCatalog resolves a problem id into its judging contract.
type ProblemCatalog interface {
	Get(ctx context.Context, problemID string) (*model.ProblemDefinition, error)
}

func validateProblem(def *model.ProblemDefinition) error {
	if def.ID == "" {
		return apperrors.ValidationError("id", "required")
	}
	if len(def.Harness) == 0 {
		return apperrors.New(apperrors.ProblemPackInvalid).WithMessage("problem has no harness templates")
	}
	if len(def.TestCases) == 0 {
		return apperrors.New(apperrors.ProblemPackInvalid).WithMessage("problem has no test cases")
	}
	seen := make(map[string]struct{}, len(def.TestCases))
	for _, tc := range def.TestCases {
		if tc.ID == "" {
			return apperrors.New(apperrors.ProblemPackInvalid).WithMessage("test case without id")
		}
		if _, ok := seen[tc.ID]; ok {
			return apperrors.Newf(apperrors.ProblemPackInvalid, "duplicate test case id %q", tc.ID)
		}
		seen[tc.ID] = struct{}{}
	}
	return nil
}
