package executor

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunCapturesStdout(t *testing.T) {
	var r Runner
	result, err := r.Run(context.Background(), "sh", []string{"-c", "echo hello"}, Options{})
	require.NoError(t, err)
	assert.Equal(t, "hello\n", result.Stdout)
	assert.Empty(t, result.Stderr)
	assert.Equal(t, 0, result.ExitCode)
}

func TestRunReportsNonZeroExit(t *testing.T) {
	var r Runner
	result, err := r.Run(context.Background(), "sh", []string{"-c", "echo oops >&2; exit 3"}, Options{})
	require.NoError(t, err)
	assert.Equal(t, 3, result.ExitCode)
	assert.Equal(t, "oops\n", result.Stderr)
}

func TestRunPipesStdin(t *testing.T) {
	var r Runner
	result, err := r.Run(context.Background(), "sh", []string{"-c", "cat"}, Options{Stdin: "line in\n"})
	require.NoError(t, err)
	assert.Equal(t, "line in\n", result.Stdout)
}

func TestRunAppendsEnv(t *testing.T) {
	var r Runner
	result, err := r.Run(context.Background(), "sh", []string{"-c", "echo $SKILLS_TEST_VALUE"}, Options{
		Env: []string{"SKILLS_TEST_VALUE=from-env"},
	})
	require.NoError(t, err)
	assert.Equal(t, "from-env\n", result.Stdout)
}

func TestRunSetsWorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	resolved, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)

	var r Runner
	result, err := r.Run(context.Background(), "sh", []string{"-c", "pwd"}, Options{Dir: dir})
	require.NoError(t, err)

	got, err := filepath.EvalSymlinks(result.Stdout[:len(result.Stdout)-1])
	require.NoError(t, err)
	assert.Equal(t, resolved, got)
}

func TestRunMissingBinary(t *testing.T) {
	var r Runner
	_, err := r.Run(context.Background(), "skills-no-such-binary", nil, Options{})
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.Contains(t, err.Error(), "not found in PATH")
}

func TestRunMissingBinaryHint(t *testing.T) {
	err := &NotFoundError{Binary: "gh"}
	assert.Contains(t, err.Error(), "https://cli.github.com")
}

func TestRunContextCancellation(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	var r Runner
	_, err := r.Run(ctx, "sh", []string{"-c", "sleep 5"}, Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestOutputReturnsStdout(t *testing.T) {
	var r Runner
	out, err := r.Output(context.Background(), "sh", []string{"-c", "echo ok"}, Options{})
	require.NoError(t, err)
	assert.Equal(t, "ok\n", out)
}

func TestOutputWrapsStderrOnFailure(t *testing.T) {
	var r Runner
	_, err := r.Output(context.Background(), "sh", []string{"-c", "echo broken pipe >&2; exit 1"}, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sh: broken pipe")
}

func TestOutputFallsBackToExitStatus(t *testing.T) {
	var r Runner
	_, err := r.Output(context.Background(), "sh", []string{"-c", "exit 7"}, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exit status 7")
}

func TestWhichFindsBinary(t *testing.T) {
	path := Which("sh")
	assert.NotEmpty(t, path)

	// Second call hits the cache.
	assert.Equal(t, path, Which("sh"))
}

func TestWhichMissingBinary(t *testing.T) {
	assert.Empty(t, Which("skills-no-such-binary"))
	assert.Empty(t, Which(""))
}

func TestWhichInvalidatesOnPathChange(t *testing.T) {
	require.NotEmpty(t, Which("sh"))

	t.Setenv("PATH", t.TempDir())
	assert.Empty(t, Which("sh"))
}
