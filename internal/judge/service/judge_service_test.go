package service

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"verdict/internal/common/mq"
	"verdict/internal/judge/comparator"
	"verdict/internal/judge/harness"
	"verdict/internal/judge/lang"
	"verdict/internal/judge/model"
	"verdict/internal/judge/repository"
	"verdict/internal/judge/sandbox/result"
	"verdict/internal/judge/sandbox/spec"
	apperrors "verdict/pkg/errors"
)

type fakeEngine struct {
	fn      func(req spec.ExecuteRequest) result.ExecuteResult
	lastReq spec.ExecuteRequest
}

func (f *fakeEngine) Execute(ctx context.Context, req spec.ExecuteRequest) result.ExecuteResult {
	f.lastReq = req
	res := f.fn(req)
	res.ExecutionID = req.ExecutionID
	return res
}

type staticCatalog struct {
	def *model.ProblemDefinition
}

func (c *staticCatalog) Get(ctx context.Context, problemID string) (*model.ProblemDefinition, error) {
	if c.def == nil || c.def.ID != problemID {
		return nil, apperrors.Newf(apperrors.ProblemNotFound, "problem %q not found", problemID)
	}
	return c.def, nil
}

func raw(s string) json.RawMessage { return json.RawMessage(s) }

func sumProblem() *model.ProblemDefinition {
	return &model.ProblemDefinition{
		ID:    "sum-two",
		Title: "Sum of Two Numbers",
		Harness: map[string]string{
			"python": "{{USER_CODE}}\n# batch driver appended here",
			"cpp":    "// prelude\n{{USER_CODE}}\n// driver",
		},
		TestCases: []model.TestCase{
			{ID: "t1", Input: raw(`[1,2]`), Expected: raw(`3`)},
			{ID: "t2", Input: raw(`[2,2]`), Expected: raw(`4`), Visibility: model.VisibilityHidden},
			{ID: "t3", Input: raw(`[0,0]`), Expected: raw(`0`)},
		},
	}
}

func testLanguages(t *testing.T) *lang.Registry {
	t.Helper()
	registry, err := lang.NewRegistry([]lang.Spec{
		{Name: "python", SourceFile: "main.py", RunCmd: "python3 {src}"},
		{Name: "cpp", SourceFile: "main.cpp", CompileCmd: "g++ -O2 -o {bin} {src}", RunCmd: "./{bin}"},
	})
	if err != nil {
		t.Fatalf("lang registry: %v", err)
	}
	return registry
}

func newTestService(t *testing.T, def *model.ProblemDefinition, eng *fakeEngine) *JudgeService {
	t.Helper()
	return NewJudgeService(eng, &staticCatalog{def: def}, testLanguages(t), comparator.NewRegistry(), spec.ResourceLimit{CPUTimeMs: 2000, MemoryMB: 256})
}

func envelopeStdout(userStdout, resultsJSON string) string {
	return userStdout + harness.BeginMarker + "\n" +
		`{"results":` + resultsJSON + `,"meta":{"timeMs":7}}` + "\n" +
		harness.EndMarker + "\n"
}

func okRun(stdout string) result.ExecuteResult {
	return result.ExecuteResult{
		Run: &result.PhaseResult{Success: true, ExitCode: 0, Stdout: stdout, TimeMs: 15},
	}
}

func TestJudgeAllPassing(t *testing.T) {
	eng := &fakeEngine{fn: func(req spec.ExecuteRequest) result.ExecuteResult {
		return okRun(envelopeStdout("", `[
			{"case":"t1","status":"OK","output":3},
			{"case":"t2","status":"OK","output":4},
			{"case":"t3","status":"OK","output":0}
		]`))
	}}
	svc := newTestService(t, sumProblem(), eng)

	res, err := svc.Judge(context.Background(), "sum-two", "def solve(a,b): return a+b", "python")
	if err != nil {
		t.Fatalf("judge: %v", err)
	}
	if res.Verdict != model.VerdictAC || res.Score != 1.0 {
		t.Fatalf("expected AC 1.0, got %s %v", res.Verdict, res.Score)
	}
	for _, tr := range res.TestResults {
		if !tr.Passed || tr.Verdict != model.VerdictAC {
			t.Fatalf("every test should pass: %+v", tr)
		}
	}
	if res.TotalTimeMs != 7 {
		t.Fatalf("envelope meta time not used: %d", res.TotalTimeMs)
	}
}

func TestJudgeCompilationError(t *testing.T) {
	eng := &fakeEngine{fn: func(req spec.ExecuteRequest) result.ExecuteResult {
		return result.ExecuteResult{
			Compile: &result.PhaseResult{Success: false, ExitCode: 1, Stderr: "main.cpp:3:5: error: expected ';'"},
			Run:     &result.PhaseResult{Success: false, ExitCode: 127, Stderr: "./main: not found"},
		}
	}}
	svc := newTestService(t, sumProblem(), eng)

	res, err := svc.Judge(context.Background(), "sum-two", "int solve(int a, int b) { return a+b }", "cpp")
	if err != nil {
		t.Fatalf("judge: %v", err)
	}
	if res.Verdict != model.VerdictCE || res.Score != 0 {
		t.Fatalf("expected CE 0, got %s %v", res.Verdict, res.Score)
	}
	if res.CompilationError == "" {
		t.Fatal("compilation error message missing")
	}
	if len(res.TestResults) != 0 {
		t.Fatalf("CE must carry no test results: %+v", res.TestResults)
	}
}

func TestJudgeRuntimeCrash(t *testing.T) {
	eng := &fakeEngine{fn: func(req spec.ExecuteRequest) result.ExecuteResult {
		return result.ExecuteResult{
			Run: &result.PhaseResult{
				Success:  false,
				ExitCode: 1,
				Stdout:   "partial debug output\n",
				Stderr:   "AttributeError: 'NoneType' object has no attribute 'x'",
			},
		}
	}}
	svc := newTestService(t, sumProblem(), eng)

	res, err := svc.Judge(context.Background(), "sum-two", "def solve(a,b): return None.x", "python")
	if err != nil {
		t.Fatalf("judge: %v", err)
	}
	if res.Verdict != model.VerdictRE || res.Score != 0 {
		t.Fatalf("expected RE 0, got %s %v", res.Verdict, res.Score)
	}
	if !strings.Contains(res.RuntimeError, "NoneType") {
		t.Fatalf("runtime error lost: %q", res.RuntimeError)
	}
	if res.UserStdout != "partial debug output\n" {
		t.Fatalf("user stdout lost: %q", res.UserStdout)
	}
}

func TestJudgeMissingEnvelopeIsRuntimeError(t *testing.T) {
	eng := &fakeEngine{fn: func(req spec.ExecuteRequest) result.ExecuteResult {
		return okRun("printed something but never the envelope\n")
	}}
	svc := newTestService(t, sumProblem(), eng)

	res, err := svc.Judge(context.Background(), "sum-two", "code", "python")
	if err != nil {
		t.Fatalf("judge: %v", err)
	}
	if res.Verdict != model.VerdictRE || res.Score != 0 {
		t.Fatalf("expected RE 0, got %s %v", res.Verdict, res.Score)
	}
	if res.RuntimeError == "" {
		t.Fatal("runtime error message missing")
	}
}

func TestJudgeConstantWrongAnswer(t *testing.T) {
	// A constant 0 coincidentally matches t3, so partial credit applies.
	eng := &fakeEngine{fn: func(req spec.ExecuteRequest) result.ExecuteResult {
		return okRun(envelopeStdout("", `[
			{"case":"t1","status":"OK","output":0},
			{"case":"t2","status":"OK","output":0},
			{"case":"t3","status":"OK","output":0}
		]`))
	}}
	svc := newTestService(t, sumProblem(), eng)

	res, err := svc.Judge(context.Background(), "sum-two", "def solve(a,b): return 0", "python")
	if err != nil {
		t.Fatalf("judge: %v", err)
	}
	if res.Verdict != model.VerdictPA {
		t.Fatalf("expected PA, got %s", res.Verdict)
	}
	if res.Score <= 0 || res.Score >= 1 {
		t.Fatalf("PA score must be strictly between 0 and 1: %v", res.Score)
	}
}

func TestJudgeAllWrongIsWA(t *testing.T) {
	eng := &fakeEngine{fn: func(req spec.ExecuteRequest) result.ExecuteResult {
		return okRun(envelopeStdout("", `[
			{"case":"t1","status":"OK","output":99},
			{"case":"t2","status":"OK","output":99},
			{"case":"t3","status":"OK","output":99}
		]`))
	}}
	svc := newTestService(t, sumProblem(), eng)

	res, err := svc.Judge(context.Background(), "sum-two", "def solve(a,b): return 99", "python")
	if err != nil {
		t.Fatalf("judge: %v", err)
	}
	if res.Verdict != model.VerdictWA || res.Score != 0 {
		t.Fatalf("expected WA 0, got %s %v", res.Verdict, res.Score)
	}
}

func TestJudgeUnorderedComparator(t *testing.T) {
	def := sumProblem()
	def.TestCases = []model.TestCase{
		{ID: "t1", Input: raw(`[[3,1,2]]`), Expected: raw(`[1,2,3]`), Comparator: comparator.UnorderedCollection},
	}
	eng := &fakeEngine{fn: func(req spec.ExecuteRequest) result.ExecuteResult {
		return okRun(envelopeStdout("", `[{"case":"t1","status":"OK","output":[3,2,1]}]`))
	}}
	svc := newTestService(t, def, eng)

	res, err := svc.Judge(context.Background(), "sum-two", "code", "python")
	if err != nil {
		t.Fatalf("judge: %v", err)
	}
	if res.Verdict != model.VerdictAC {
		t.Fatalf("order-insensitive comparator should accept permutation, got %s", res.Verdict)
	}
}

func TestJudgePerTestErrorBoundary(t *testing.T) {
	eng := &fakeEngine{fn: func(req spec.ExecuteRequest) result.ExecuteResult {
		return okRun(envelopeStdout("", `[
			{"case":"t1","status":"ERROR","error":"ZeroDivisionError: division by zero"},
			{"case":"t2","status":"OK","output":4},
			{"case":"t3","status":"OK","output":0}
		]`))
	}}
	svc := newTestService(t, sumProblem(), eng)

	res, err := svc.Judge(context.Background(), "sum-two", "code", "python")
	if err != nil {
		t.Fatalf("judge: %v", err)
	}
	if res.Verdict != model.VerdictPA {
		t.Fatalf("one failed case must not abort the rest, got %s", res.Verdict)
	}
	first := res.TestResults[0]
	if first.Passed || first.Verdict != model.VerdictRE || !strings.Contains(first.Error, "ZeroDivisionError") {
		t.Fatalf("per-test error not recorded: %+v", first)
	}
	if !res.TestResults[1].Passed || !res.TestResults[2].Passed {
		t.Fatalf("remaining cases should still be compared: %+v", res.TestResults)
	}
}

func TestJudgeHiddenRedaction(t *testing.T) {
	eng := &fakeEngine{fn: func(req spec.ExecuteRequest) result.ExecuteResult {
		return okRun(envelopeStdout("", `[
			{"case":"t1","status":"OK","output":3},
			{"case":"t2","status":"OK","output":999},
			{"case":"t3","status":"OK","output":0}
		]`))
	}}
	svc := newTestService(t, sumProblem(), eng)

	res, err := svc.Judge(context.Background(), "sum-two", "code", "python")
	if err != nil {
		t.Fatalf("judge: %v", err)
	}
	hidden := res.TestResults[1]
	if !hidden.Hidden {
		t.Fatal("t2 should be marked hidden")
	}
	if hidden.ActualOutput != "" || hidden.ExpectedOutput != "" {
		t.Fatalf("hidden payloads must be redacted: %+v", hidden)
	}
	if hidden.Passed {
		t.Fatal("hidden case is still scored")
	}
	if res.Verdict != model.VerdictPA {
		t.Fatalf("hidden failure must affect the score, got %s", res.Verdict)
	}

	visible := res.TestResults[0]
	if visible.ActualOutput == "" || visible.ExpectedOutput == "" {
		t.Fatalf("visible payloads must be present: %+v", visible)
	}
}

func TestJudgeEngineErrorSurfacesAsRE(t *testing.T) {
	eng := &fakeEngine{fn: func(req spec.ExecuteRequest) result.ExecuteResult {
		return result.ExecuteResult{
			Error: &result.EngineError{Type: result.ErrOOM, Phase: result.PhaseRun, Message: "memory limit of 256 MB exceeded"},
		}
	}}
	svc := newTestService(t, sumProblem(), eng)

	res, err := svc.Judge(context.Background(), "sum-two", "code", "python")
	if err != nil {
		t.Fatalf("judge: %v", err)
	}
	if res.Verdict != model.VerdictRE || res.Score != 0 {
		t.Fatalf("expected RE 0, got %s %v", res.Verdict, res.Score)
	}
	if !strings.Contains(res.RuntimeError, "oom") {
		t.Fatalf("engine error type must stay visible: %q", res.RuntimeError)
	}
}

func TestJudgeBuildsBatchedRequest(t *testing.T) {
	eng := &fakeEngine{fn: func(req spec.ExecuteRequest) result.ExecuteResult {
		return okRun(envelopeStdout("", `[]`))
	}}
	svc := newTestService(t, sumProblem(), eng)

	if _, err := svc.Judge(context.Background(), "sum-two", "USER_MARKER = 1", "python"); err != nil {
		t.Fatalf("judge: %v", err)
	}

	req := eng.lastReq
	if req.ExecutionID == "" {
		t.Fatal("execution id not assigned")
	}
	if len(req.Files) != 1 || req.Files[0].Path != "main.py" {
		t.Fatalf("unexpected files: %+v", req.Files)
	}
	if !strings.Contains(req.Files[0].Content, "USER_MARKER = 1") {
		t.Fatal("user code not spliced into harness")
	}
	if strings.Contains(req.Files[0].Content, harness.UserCodePlaceholder) {
		t.Fatal("placeholder survived synthesis")
	}
	if req.Compile != nil {
		t.Fatal("python must not have a compile phase")
	}

	var payload harness.StdinPayload
	if err := json.Unmarshal([]byte(req.Run.Stdin), &payload); err != nil {
		t.Fatalf("stdin payload: %v", err)
	}
	if len(payload.Tests) != 3 || payload.Tests[0].ID != "t1" || payload.Tests[2].ID != "t3" {
		t.Fatalf("batched stdin payload wrong: %+v", payload.Tests)
	}
	if req.Limits.CPUTimeMs != 2000 || req.Limits.MemoryMB != 256 {
		t.Fatalf("default limits not applied: %+v", req.Limits)
	}
}

func TestJudgeUnknownProblemAndLanguage(t *testing.T) {
	eng := &fakeEngine{fn: func(req spec.ExecuteRequest) result.ExecuteResult { return okRun("") }}
	svc := newTestService(t, sumProblem(), eng)

	if _, err := svc.Judge(context.Background(), "missing", "code", "python"); apperrors.GetCode(err) != apperrors.ProblemNotFound {
		t.Fatalf("expected ProblemNotFound, got %v", err)
	}
	if _, err := svc.Judge(context.Background(), "sum-two", "code", "cobol"); apperrors.GetCode(err) != apperrors.LanguageNotSupported {
		t.Fatalf("expected LanguageNotSupported, got %v", err)
	}
}

type fakeProducer struct {
	topics   []string
	messages []*mq.Message
}

func (f *fakeProducer) Publish(ctx context.Context, topic string, message *mq.Message) error {
	f.topics = append(f.topics, topic)
	f.messages = append(f.messages, message)
	return nil
}
func (f *fakeProducer) Ping(ctx context.Context) error { return nil }
func (f *fakeProducer) Close() error                   { return nil }

type memoryResults struct {
	saved map[string]*model.JudgeResult
}

func (m *memoryResults) Save(ctx context.Context, res *model.JudgeResult) error {
	if m.saved == nil {
		m.saved = make(map[string]*model.JudgeResult)
	}
	m.saved[res.ID] = res
	return nil
}

func (m *memoryResults) Get(ctx context.Context, id string) (*model.JudgeResult, error) {
	res, ok := m.saved[id]
	if !ok {
		return nil, apperrors.Newf(apperrors.NotFound, "result %q not found", id)
	}
	return res, nil
}

func TestJudgePersistsAndPublishes(t *testing.T) {
	eng := &fakeEngine{fn: func(req spec.ExecuteRequest) result.ExecuteResult {
		return okRun(envelopeStdout("", `[
			{"case":"t1","status":"OK","output":3},
			{"case":"t2","status":"OK","output":4},
			{"case":"t3","status":"OK","output":0}
		]`))
	}}
	producer := &fakeProducer{}
	results := &memoryResults{}
	svc := newTestService(t, sumProblem(), eng).
		WithResultRepository(results).
		WithPublisher(repository.NewVerdictPublisher(producer, "judge.verdicts"))

	res, err := svc.Judge(context.Background(), "sum-two", "code", "python")
	if err != nil {
		t.Fatalf("judge: %v", err)
	}

	stored, err := svc.GetResult(context.Background(), res.ID)
	if err != nil {
		t.Fatalf("get result: %v", err)
	}
	if stored.Verdict != model.VerdictAC {
		t.Fatalf("stored verdict wrong: %s", stored.Verdict)
	}

	if len(producer.messages) != 1 || producer.topics[0] != "judge.verdicts" {
		t.Fatalf("verdict event not published: %+v", producer.topics)
	}
	var event model.VerdictEvent
	if err := json.Unmarshal(producer.messages[0].Body, &event); err != nil {
		t.Fatalf("event body: %v", err)
	}
	if event.ResultID != res.ID || event.Verdict != model.VerdictAC {
		t.Fatalf("unexpected event: %+v", event)
	}
}

func TestExecutePassthrough(t *testing.T) {
	eng := &fakeEngine{fn: func(req spec.ExecuteRequest) result.ExecuteResult {
		return result.ExecuteResult{Run: &result.PhaseResult{Success: true}}
	}}
	svc := newTestService(t, sumProblem(), eng)

	res := svc.Execute(context.Background(), spec.ExecuteRequest{
		Run: spec.RunCommand{CommandSpec: spec.CommandSpec{Command: "echo hi", TimeoutMs: 1000}},
	})
	if res.ExecutionID == "" {
		t.Fatal("execution id not assigned")
	}
	if eng.lastReq.Limits.MemoryMB != 256 {
		t.Fatalf("default limits not merged: %+v", eng.lastReq.Limits)
	}
}

func TestGetProblemRedactsHiddenCases(t *testing.T) {
	eng := &fakeEngine{fn: func(req spec.ExecuteRequest) result.ExecuteResult { return okRun("") }}
	def := sumProblem()
	def.Starter = map[string]string{"python": "def solve(a, b):\n    pass"}
	svc := newTestService(t, def, eng)

	view, err := svc.GetProblem(context.Background(), "sum-two")
	if err != nil {
		t.Fatalf("get problem: %v", err)
	}
	if len(view.TestCases) != 2 {
		t.Fatalf("hidden case leaked: %+v", view.TestCases)
	}
	if len(view.Languages) != 2 || view.Languages[0] != "cpp" {
		t.Fatalf("unexpected languages: %v", view.Languages)
	}
	if view.Starter["python"] == "" {
		t.Fatal("starter code missing")
	}
}
