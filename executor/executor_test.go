package executor_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sluiceworks/sluice/executor"
)

// MockExecutor implements the Executor interface for testing
type MockExecutor struct {
	ExecuteFunc          func(ctx context.Context, opts ...executor.Option) (*executor.Result, error)
	ExecuteWithInputFunc func(ctx context.Context, input string, opts ...executor.Option) (*executor.Result, error)
	CallCount            int
}

func (m *MockExecutor) Execute(ctx context.Context, opts ...executor.Option) (*executor.Result, error) {
	m.CallCount++
	if m.ExecuteFunc != nil {
		return m.ExecuteFunc(ctx, opts...)
	}
	return &executor.Result{
		Stdout:   "mock stdout",
		Stderr:   "mock stderr",
		ExitCode: 0,
	}, nil
}

func (m *MockExecutor) ExecuteWithInput(
	ctx context.Context,
	input string,
	opts ...executor.Option,
) (*executor.Result, error) {
	m.CallCount++
	if m.ExecuteWithInputFunc != nil {
		return m.ExecuteWithInputFunc(ctx, input, opts...)
	}
	return m.Execute(ctx, opts...)
}

func TestBasicExecution(t *testing.T) {
	cmd := executor.New("echo", "hello", "world")
	result, err := cmd.Execute(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(result.Stdout, "hello world") {
		t.Errorf("expected stdout to contain 'hello world', got: %s", result.Stdout)
	}

	if result.ExitCode != 0 {
		t.Errorf("expected exit code 0, got: %d", result.ExitCode)
	}

	if !result.Success() {
		t.Error("expected result to report success")
	}
}

func TestShellScript(t *testing.T) {
	cmd := executor.NewShell("sh", "echo first && echo second")
	result, err := cmd.Execute(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(result.Stdout, "first") || !strings.Contains(result.Stdout, "second") {
		t.Errorf("expected both lines in stdout, got: %s", result.Stdout)
	}
}

func TestShellScriptStopsOnFirstFailure(t *testing.T) {
	// errexit must abort the script before the second echo runs
	cmd := executor.NewShell("sh", "false\necho should-not-run")
	result, _ := cmd.Execute(context.Background())

	if result.ExitCode == 0 {
		t.Fatal("expected non-zero exit code")
	}
	if strings.Contains(result.Stdout, "should-not-run") {
		t.Errorf("expected script to stop at first failure, got stdout: %s", result.Stdout)
	}
}

func TestExitCodePreserved(t *testing.T) {
	cmd := executor.NewShell("sh", "exit 3")
	result, err := cmd.Execute(context.Background())
	if err == nil {
		t.Fatal("expected error for non-zero exit")
	}

	if result.ExitCode != 3 {
		t.Errorf("expected exit code 3, got: %d", result.ExitCode)
	}
	if result.Success() {
		t.Error("expected result to report failure")
	}
}

func TestEnvironmentIsolation(t *testing.T) {
	t.Setenv("SLUICE_EXECUTOR_LEAK", "leaked")

	cmd := executor.NewShell("sh", "echo value=${SLUICE_EXECUTOR_LEAK:-empty}")
	result, err := cmd.Execute(
		context.Background(),
		executor.WithInheritEnv(false),
		executor.WithEnvVar("PATH", "/usr/bin:/bin"),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(result.Stdout, "value=empty") {
		t.Errorf("expected isolated environment, got: %s", result.Stdout)
	}
}

func TestEnvironmentVariable(t *testing.T) {
	cmd := executor.NewShell("sh", "echo greeting=$GREETING")
	result, err := cmd.Execute(context.Background(), executor.WithEnvVar("GREETING", "hi"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(result.Stdout, "greeting=hi") {
		t.Errorf("expected injected variable, got: %s", result.Stdout)
	}
}

func TestWorkingDirectory(t *testing.T) {
	dir := t.TempDir()

	cmd := executor.New("pwd")
	result, err := cmd.Execute(context.Background(), executor.WithWorkingDir(dir))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(result.Stdout, dir) {
		t.Errorf("expected working dir %q, got: %s", dir, result.Stdout)
	}
}

func TestCombinedOutput(t *testing.T) {
	cmd := executor.NewShell("sh", "echo out; echo err >&2")
	result, err := cmd.Execute(context.Background(), executor.WithCapture(false, false, true))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(result.Combined, "out") || !strings.Contains(result.Combined, "err") {
		t.Errorf("expected combined output to contain both streams, got: %s", result.Combined)
	}
}

func TestCustomWriters(t *testing.T) {
	var stream bytes.Buffer

	cmd := executor.New("echo", "streamed")
	_, err := cmd.Execute(context.Background(), executor.WithStdoutWriter(&stream))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(stream.String(), "streamed") {
		t.Errorf("expected custom writer to receive output, got: %s", stream.String())
	}
}

func TestContextCancellation(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	cmd := executor.New("sleep", "10")
	result, err := cmd.Execute(ctx)
	if err == nil {
		t.Fatal("expected error from cancelled command")
	}

	if result.ExitCode == 0 {
		t.Errorf("expected non-zero exit code, got: %d", result.ExitCode)
	}
}

func TestRetrySucceedsEventually(t *testing.T) {
	mock := &MockExecutor{}
	attempts := 0
	mock.ExecuteFunc = func(ctx context.Context, opts ...executor.Option) (*executor.Result, error) {
		attempts++
		if attempts < 3 {
			return &executor.Result{ExitCode: 1}, errors.New("transient")
		}
		return &executor.Result{ExitCode: 0}, nil
	}

	var result *executor.Result
	var err error
	for i := 0; i < 3; i++ {
		result, err = mock.Execute(context.Background())
		if err == nil {
			break
		}
	}

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mock.CallCount != 3 {
		t.Errorf("expected 3 attempts, got: %d", mock.CallCount)
	}
	if result.ExitCode != 0 {
		t.Errorf("expected success after retries, got exit code: %d", result.ExitCode)
	}
}

func TestRetryRealCommand(t *testing.T) {
	// A command that always fails should exhaust retries and return the
	// last result.
	cmd := executor.New("false")
	start := time.Now()
	result, err := cmd.Execute(
		context.Background(),
		executor.WithRetry(2, 10*time.Millisecond),
	)
	elapsed := time.Since(start)

	if err == nil {
		t.Fatal("expected error")
	}
	if result.ExitCode != 1 {
		t.Errorf("expected exit code 1, got: %d", result.ExitCode)
	}
	if elapsed < 20*time.Millisecond {
		t.Errorf("expected retry delays to apply, elapsed: %v", elapsed)
	}
}

func TestRetryConditionStopsRetries(t *testing.T) {
	cmd := executor.New("false")
	start := time.Now()
	_, err := cmd.Execute(
		context.Background(),
		executor.WithRetry(5, 100*time.Millisecond),
		executor.WithRetryCondition(func(error) bool { return false }),
	)
	elapsed := time.Since(start)

	if err == nil {
		t.Fatal("expected error")
	}
	if elapsed > 90*time.Millisecond {
		t.Errorf("expected no retry delay when condition declines, elapsed: %v", elapsed)
	}
}

func TestToolExecution(t *testing.T) {
	sh := executor.NewTool("sh")

	result, err := sh.Execute(context.Background(), []string{"-c", "echo tool"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(result.Stdout, "tool") {
		t.Errorf("expected tool output, got: %s", result.Stdout)
	}
}

func TestExecuteWithInput(t *testing.T) {
	cmd := executor.New("cat")
	result, err := cmd.ExecuteWithInput(context.Background(), "piped input")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(result.Stdout, "piped input") {
		t.Errorf("expected stdin to be forwarded, got: %s", result.Stdout)
	}
}
