package question

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/textchain/textchain/pkg/testutils"
)

// writeStubRunner writes an executable shell script standing in for a local
// model command.
func writeStubRunner(t *testing.T, script string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stub-runner")
	err := os.WriteFile(path, []byte(script), 0o755)
	require.NoError(t, err)
	return path
}

func TestRunnerQuestionGenerator_GenerateQuestion(t *testing.T) {
	promptFile := filepath.Join(t.TempDir(), "prompt.txt")
	script := fmt.Sprintf(
		"#!/bin/sh\ncat > %q\nprintf '  What caused the policy shift?\\n'\n",
		promptFile,
	)

	cfg := testutils.NewTestConfig()
	cfg.Question.Runner.Command = writeStubRunner(t, script)
	cfg.Question.Runner.Args = nil
	cfg.Question.Runner.Model = ""

	generator := NewRunnerQuestionGenerator(cfg)
	question, err := generator.GenerateQuestion(context.Background(), testutils.TestSummary)
	require.NoError(t, err)

	// stdout is trimmed before being handed to the next stage.
	assert.Equal(t, "What caused the policy shift?", question)

	prompt, err := os.ReadFile(promptFile)
	require.NoError(t, err)
	expectedPrompt := "Generate a simple question based on the following summary:\n\n" +
		testutils.TestSummary + "\n\nQuestion:"
	assert.Equal(t, expectedPrompt, string(prompt))
}

func TestRunnerQuestionGenerator_NonZeroExit(t *testing.T) {
	script := "#!/bin/sh\ncat > /dev/null\necho 'model not found' >&2\nexit 3\n"

	cfg := testutils.NewTestConfig()
	cfg.Question.Runner.Command = writeStubRunner(t, script)
	cfg.Question.Runner.Args = nil
	cfg.Question.Runner.Model = ""

	generator := NewRunnerQuestionGenerator(cfg)
	_, err := generator.GenerateQuestion(context.Background(), testutils.TestSummary)
	require.Error(t, err)

	var processErr *ProcessError
	require.ErrorAs(t, err, &processErr)
	assert.Equal(t, 3, processErr.ExitCode)
	assert.Equal(t, "model not found", processErr.Stderr)
}

func TestRunnerQuestionGenerator_MissingCommand(t *testing.T) {
	cfg := testutils.NewTestConfig()
	cfg.Question.Runner.Command = filepath.Join(t.TempDir(), "no-such-runner")
	cfg.Question.Runner.Args = nil
	cfg.Question.Runner.Model = ""

	generator := NewRunnerQuestionGenerator(cfg)
	_, err := generator.GenerateQuestion(context.Background(), testutils.TestSummary)
	require.Error(t, err)

	var processErr *ProcessError
	assert.False(t, errors.As(err, &processErr))
}

func TestNewRunnerQuestionGenerator_ModelArg(t *testing.T) {
	cfg := testutils.NewTestConfig()
	cfg.Question.Runner.Command = "ollama"
	cfg.Question.Runner.Args = []string{"run"}
	cfg.Question.Runner.Model = "llama2"

	generator := NewRunnerQuestionGenerator(cfg)
	assert.Equal(t, "ollama", generator.command)
	assert.Equal(t, []string{"run", "llama2"}, generator.args)
}

func TestNewQuestionGenerator(t *testing.T) {
	cfg := testutils.NewTestConfig()
	cfg.Question.Backend = "runner"

	generator, err := NewQuestionGenerator(context.Background(), cfg)
	require.NoError(t, err)
	assert.IsType(t, &RunnerQuestionGenerator{}, generator)

	cfg.Question.Backend = "carrier-pigeon"
	_, err = NewQuestionGenerator(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid question backend")
}
