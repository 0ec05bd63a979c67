package catalog

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"verdict/internal/judge/model"
	apperrors "verdict/pkg/errors"
)

// FSCatalog serves problems from a directory of <id>.json files. Intended
// for local development and tests.
type FSCatalog struct {
	dir string
}

// NewFSCatalog creates a filesystem-backed catalog.
func NewFSCatalog(dir string) (*FSCatalog, error) {
	if dir == "" {
		return nil, apperrors.ValidationError("dir", "required")
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, apperrors.Newf(apperrors.InvalidParams, "problems dir %q is not a directory", dir)
	}
	return &FSCatalog{dir: dir}, nil
}

func (c *FSCatalog) Get(ctx context.Context, problemID string) (*model.ProblemDefinition, error) {
	if problemID == "" || filepath.Base(problemID) != problemID {
		return nil, apperrors.ValidationError("problemId", "invalid")
	}
	data, err := os.ReadFile(filepath.Join(c.dir, problemID+".json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.Newf(apperrors.ProblemNotFound, "problem %q not found", problemID)
		}
		return nil, apperrors.Wrapf(err, apperrors.InternalServerError, "read problem %q", problemID)
	}

	var def model.ProblemDefinition
	if err := json.Unmarshal(data, &def); err != nil {
		return nil, apperrors.Wrapf(err, apperrors.ProblemPackInvalid, "parse problem %q", problemID)
	}
	if def.ID == "" {
		def.ID = problemID
	}
	if err := validateProblem(&def); err != nil {
		return nil, err
	}
	return &def, nil
}
