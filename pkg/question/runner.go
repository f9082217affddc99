package question

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/textchain/textchain/config"
	"github.com/textchain/textchain/internal"
	"github.com/textchain/textchain/pkg/models"
)

// ProcessError is returned when the runner command started but exited with a
// non-zero status. Failures to start at all, such as a missing binary, are
// returned unwrapped.
type ProcessError struct {
	ExitCode int
	Stderr   string
}

func (e *ProcessError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("question runner exited with status %d", e.ExitCode)
	}
	return fmt.Sprintf("question runner exited with status %d: %s", e.ExitCode, e.Stderr)
}

func NewProcessError(exitCode int, stderr string) *ProcessError {
	return &ProcessError{ExitCode: exitCode, Stderr: stderr}
}

// Force compiler to validate that RunnerQuestionGenerator implements the
// QuestionGenerator interface.
var _ models.QuestionGenerator = &RunnerQuestionGenerator{}

// RunnerQuestionGenerator generates questions by running a local model
// command. The rendered prompt is written to the child process's stdin and
// stdout is captured as the question. stderr is logged but never parsed.
// No deadline is imposed beyond what ctx carries.
type RunnerQuestionGenerator struct {
	command string
	args    []string
}

func NewRunnerQuestionGenerator(cfg *config.Config) *RunnerQuestionGenerator {
	args := make([]string, 0, len(cfg.Question.Runner.Args)+1)
	args = append(args, cfg.Question.Runner.Args...)
	if cfg.Question.Runner.Model != "" {
		args = append(args, cfg.Question.Runner.Model)
	}
	return &RunnerQuestionGenerator{
		command: cfg.Question.Runner.Command,
		args:    args,
	}
}

func (r *RunnerQuestionGenerator) GenerateQuestion(
	ctx context.Context,
	summary string,
) (string, error) {
	prompt, err := internal.ParsePrompt(
		questionPromptTemplate,
		QuestionPromptTemplateData{Summary: summary},
	)
	if err != nil {
		return "", err
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, r.command, r.args...)
	cmd.Stdin = strings.NewReader(prompt)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	log.Debugf("question runner: %s %s", r.command, strings.Join(r.args, " "))

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			stderrText := strings.TrimSpace(stderr.String())
			if stderrText != "" {
				log.Warnf("question runner stderr: %s", stderrText)
			}
			return "", NewProcessError(exitErr.ExitCode(), stderrText)
		}
		return "", fmt.Errorf("question runner failed to start: %w", err)
	}

	if stderr.Len() > 0 {
		log.Debugf("question runner stderr: %s", strings.TrimSpace(stderr.String()))
	}

	return strings.TrimSpace(stdout.String()), nil
}
