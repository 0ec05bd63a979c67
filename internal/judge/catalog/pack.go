package catalog

import (
	"archive/tar"
	"context"
	"encoding/json"
	"errors"
	"io"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"

	"verdict/internal/common/storage"
	"verdict/internal/judge/model"
	apperrors "verdict/pkg/errors"
)

const (
	packSuffix      = ".tar.zst"
	problemFileName = "problem.json"

	// Problem packs are small; the definition inside is capped to keep a
	// hostile archive from exhausting memory.
	maxProblemBytes = 16 * 1024 * 1024
)

// PackCatalog serves problems from object storage. Each problem lives in a
// zstd-compressed tar archive named <id>.tar.zst holding a problem.json.
type PackCatalog struct {
	bucket  string
	storage storage.ObjectStorage
}

// NewPackCatalog creates an object-storage-backed catalog.
func NewPackCatalog(bucket string, storageClient storage.ObjectStorage) (*PackCatalog, error) {
	if bucket == "" {
		return nil, apperrors.ValidationError("bucket", "required")
	}
	if storageClient == nil {
		return nil, apperrors.New(apperrors.InvalidParams).WithMessage("storage client is required")
	}
	return &PackCatalog{bucket: bucket, storage: storageClient}, nil
}

func (c *PackCatalog) Get(ctx context.Context, problemID string) (*model.ProblemDefinition, error) {
	if problemID == "" || filepath.Base(problemID) != problemID {
		return nil, apperrors.ValidationError("problemId", "invalid")
	}

	key := problemID + packSuffix
	reader, err := c.storage.GetObject(ctx, c.bucket, key)
	if err != nil {
		return nil, apperrors.Wrapf(err, apperrors.ProblemNotFound, "fetch problem pack %q", key)
	}
	defer reader.Close()

	def, err := extractProblem(reader)
	if err != nil {
		return nil, err
	}
	if def.ID == "" {
		def.ID = problemID
	}
	if err := validateProblem(def); err != nil {
		return nil, err
	}
	return def, nil
}

// extractProblem scans a zstd-compressed tar stream for problem.json.
// Other entries (statements, assets) are skipped; entry paths must stay
// inside the archive root.
func extractProblem(r io.Reader) (*model.ProblemDefinition, error) {
	zstdReader, err := zstd.NewReader(r)
	if err != nil {
		return nil, apperrors.Wrapf(err, apperrors.ProblemPackInvalid, "create zstd reader")
	}
	defer zstdReader.Close()

	tr := tar.NewReader(zstdReader)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, apperrors.Wrapf(err, apperrors.ProblemPackInvalid, "read tar entry")
		}
		if hdr.Name == "" || hdr.Typeflag != tar.TypeReg {
			continue
		}
		cleanName := filepath.Clean(hdr.Name)
		if strings.HasPrefix(cleanName, "..") || filepath.IsAbs(cleanName) {
			return nil, apperrors.New(apperrors.ProblemPackInvalid).WithMessage("tar entry escapes the archive root")
		}
		if filepath.Base(cleanName) != problemFileName {
			continue
		}

		data, err := io.ReadAll(io.LimitReader(tr, maxProblemBytes+1))
		if err != nil {
			return nil, apperrors.Wrapf(err, apperrors.ProblemPackInvalid, "read problem definition")
		}
		if len(data) > maxProblemBytes {
			return nil, apperrors.New(apperrors.ProblemPackInvalid).WithMessage("problem definition exceeds size cap")
		}

		var def model.ProblemDefinition
		if err := json.Unmarshal(data, &def); err != nil {
			return nil, apperrors.Wrapf(err, apperrors.ProblemPackInvalid, "parse problem definition")
		}
		return &def, nil
	}
	return nil, apperrors.Newf(apperrors.ProblemPackInvalid, "archive has no %s", problemFileName)
}
