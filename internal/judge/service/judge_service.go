// Package service orchestrates judging: it resolves the problem, synthesizes
// the harness, drives the sandbox engine, and turns raw phase output into a
// scored JudgeResult.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"verdict/internal/judge/catalog"
	"verdict/internal/judge/comparator"
	"verdict/internal/judge/harness"
	"verdict/internal/judge/lang"
	"verdict/internal/judge/model"
	"verdict/internal/judge/repository"
	"verdict/internal/judge/sandbox/engine"
	"verdict/internal/judge/sandbox/result"
	"verdict/internal/judge/sandbox/spec"
	apperrors "verdict/pkg/errors"
	"verdict/pkg/utils/logger"
)

// JudgeService is the orchestrator. Each Judge or Execute call owns its own
// sandbox instance; the service holds no per-call state.
type JudgeService struct {
	engine      engine.Engine
	catalog     catalog.ProblemCatalog
	languages   *lang.Registry
	comparators *comparator.Registry
	defaults    spec.ResourceLimit

	results   repository.ResultRepository
	publisher *repository.VerdictPublisher
}

// NewJudgeService wires the orchestrator's collaborators.
func NewJudgeService(eng engine.Engine, cat catalog.ProblemCatalog, languages *lang.Registry, comparators *comparator.Registry, defaults spec.ResourceLimit) *JudgeService {
	return &JudgeService{
		engine:      eng,
		catalog:     cat,
		languages:   languages,
		comparators: comparators,
		defaults:    defaults,
	}
}

// WithResultRepository enables result persistence.
func (s *JudgeService) WithResultRepository(repo repository.ResultRepository) *JudgeService {
	s.results = repo
	return s
}

// WithPublisher enables verdict event publishing.
func (s *JudgeService) WithPublisher(pub *repository.VerdictPublisher) *JudgeService {
	s.publisher = pub
	return s
}

// Execute runs a raw execute request through the sandbox, filling in the
// execution id and default limits. Failures are data in the result.
func (s *JudgeService) Execute(ctx context.Context, req spec.ExecuteRequest) result.ExecuteResult {
	if req.ExecutionID == "" {
		req.ExecutionID = uuid.NewString()
	}
	req.Limits = spec.Merge(s.defaults, req.Limits)
	return s.engine.Execute(ctx, req)
}

// Judge runs one submission against a problem and scores it.
func (s *JudgeService) Judge(ctx context.Context, problemID, code, language string) (*model.JudgeResult, error) {
	if code == "" {
		return nil, apperrors.ValidationError("code", "required")
	}

	def, err := s.catalog.Get(ctx, problemID)
	if err != nil {
		return nil, err
	}
	langSpec, err := s.languages.Resolve(language)
	if err != nil {
		return nil, err
	}
	template, ok := def.Harness[language]
	if !ok {
		return nil, apperrors.Newf(apperrors.LanguageNotSupported, "problem %q has no %s harness", problemID, language)
	}

	source, err := harness.Synthesize(template, code)
	if err != nil {
		return nil, apperrors.Wrapf(err, apperrors.HarnessError, "synthesize %s source", language)
	}
	stdin, err := harness.BuildStdin(def.TestCases)
	if err != nil {
		return nil, apperrors.Wrapf(err, apperrors.HarnessError, "build stdin payload")
	}

	req := spec.ExecuteRequest{
		ExecutionID: uuid.NewString(),
		Language:    language,
		Files:       []spec.FileSpec{{Path: langSpec.SourceFile, Content: source}},
		Compile:     langSpec.CompileCommand(),
		Run:         langSpec.RunCommand(stdin),
		Limits:      spec.Merge(spec.Merge(s.defaults, langSpec.Limits), def.Limits),
		Env:         langSpec.Env,
	}

	execRes := s.engine.Execute(ctx, req)
	judgeRes := s.resolveVerdict(def, execRes)
	judgeRes.ID = req.ExecutionID
	judgeRes.ProblemID = def.ID
	judgeRes.Language = language
	judgeRes.CreatedAt = time.Now().UTC()

	if s.results != nil {
		if err := s.results.Save(ctx, judgeRes); err != nil {
			logger.Warn(ctx, "save judge result failed", zap.String("resultId", judgeRes.ID), zap.Error(err))
		}
	}
	if s.publisher != nil {
		s.publisher.Publish(ctx, model.VerdictEvent{
			ResultID:    judgeRes.ID,
			ProblemID:   judgeRes.ProblemID,
			Language:    judgeRes.Language,
			Verdict:     judgeRes.Verdict,
			Score:       judgeRes.Score,
			TotalTimeMs: judgeRes.TotalTimeMs,
			CreatedAt:   judgeRes.CreatedAt,
		})
	}
	return judgeRes, nil
}

// resolveVerdict applies the verdict priority order: CE first, then engine
// faults and unusable run output as RE, then per-case comparison.
func (s *JudgeService) resolveVerdict(def *model.ProblemDefinition, res result.ExecuteResult) *model.JudgeResult {
	if res.Compile != nil && !res.Compile.Success {
		compileErr := res.Compile.Stderr
		if compileErr == "" {
			compileErr = res.Compile.Stdout
		}
		if compileErr == "" {
			compileErr = fmt.Sprintf("compiler exited with code %d", res.Compile.ExitCode)
		}
		return &model.JudgeResult{
			Verdict:          model.VerdictCE,
			Score:            0,
			CompilationError: compileErr,
		}
	}

	if res.Error != nil {
		return &model.JudgeResult{
			Verdict:      model.VerdictRE,
			Score:        0,
			RuntimeError: engineErrorMessage(res.Error),
		}
	}
	if res.Run == nil {
		return &model.JudgeResult{
			Verdict:      model.VerdictRE,
			Score:        0,
			RuntimeError: "sandbox fault: no run phase result",
		}
	}

	judgeRes := &model.JudgeResult{
		TotalTimeMs: res.Run.TimeMs,
		Stderr:      res.Run.Stderr,
	}

	userStdout, env, parseErr := harness.ParseStdout(res.Run.Stdout)
	judgeRes.UserStdout = userStdout

	if !res.Run.Success || parseErr != nil {
		judgeRes.Verdict = model.VerdictRE
		judgeRes.Score = 0
		switch {
		case res.Run.Stderr != "":
			judgeRes.RuntimeError = res.Run.Stderr
		case parseErr != nil:
			judgeRes.RuntimeError = parseErr.Error()
		default:
			judgeRes.RuntimeError = fmt.Sprintf("process exited with code %d", res.Run.ExitCode)
		}
		return judgeRes
	}

	if env.Meta.TimeMs > 0 {
		judgeRes.TotalTimeMs = env.Meta.TimeMs
	}

	byCase := make(map[string]harness.CaseResult, len(env.Results))
	for _, cr := range env.Results {
		byCase[cr.Case] = cr
	}

	var totalWeight, passedWeight float64
	for _, tc := range def.TestCases {
		weight := tc.EffectiveWeight()
		totalWeight += weight

		tr := model.TestResult{
			TestID:  tc.ID,
			Verdict: model.VerdictWA,
			Hidden:  tc.Hidden(),
		}
		if !tc.Hidden() {
			tr.Description = tc.Description
		}

		cr, ok := byCase[tc.ID]
		switch {
		case !ok:
			tr.Verdict = model.VerdictRE
			tr.Error = "no result recorded for this test case"
		case cr.Status == harness.StatusError:
			tr.Verdict = model.VerdictRE
			tr.Error = cr.Error
			tr.TimeMs = cr.TimeMs
		default:
			tr.TimeMs = cr.TimeMs
			passed, err := s.compare(tc, cr)
			if err != nil {
				tr.Verdict = model.VerdictRE
				tr.Error = err.Error()
			}
			if passed {
				tr.Passed = true
				tr.Verdict = model.VerdictAC
				passedWeight += weight
			}
			if !tc.Hidden() {
				tr.ActualOutput = string(cr.Output)
				tr.ExpectedOutput = string(tc.Expected)
			}
		}
		judgeRes.TestResults = append(judgeRes.TestResults, tr)
	}

	if totalWeight > 0 {
		judgeRes.Score = passedWeight / totalWeight
	}
	switch {
	case judgeRes.Score == 1.0:
		judgeRes.Verdict = model.VerdictAC
	case judgeRes.Score == 0:
		judgeRes.Verdict = model.VerdictWA
	default:
		judgeRes.Verdict = model.VerdictPA
	}
	return judgeRes
}

func (s *JudgeService) compare(tc model.TestCase, cr harness.CaseResult) (bool, error) {
	fn, err := s.comparators.Get(tc.Comparator)
	if err != nil {
		return false, err
	}
	return fn(cr.Output, tc.Expected, comparator.Options{Tolerance: tc.Tolerance})
}

// engineErrorMessage keeps the engine error type visible in the runtime
// error string, with sandbox faults flagged as infrastructure problems.
func engineErrorMessage(engErr *result.EngineError) string {
	switch engErr.Type {
	case result.ErrTimeout:
		return fmt.Sprintf("timeout: %s phase: %s", engErr.Phase, engErr.Message)
	case result.ErrOOM:
		return fmt.Sprintf("oom: %s phase: %s", engErr.Phase, engErr.Message)
	default:
		return fmt.Sprintf("sandbox fault (not a defect in the submission): %s phase: %s", engErr.Phase, engErr.Message)
	}
}
