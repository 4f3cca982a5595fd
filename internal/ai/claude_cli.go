package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"
)

// cleanEnv returns os.Environ() with Claude Code session vars removed
// so the subprocess doesn't get blocked by the nested-session check.
func cleanEnv() []string {
	blocked := map[string]bool{
		"CLAUDECODE":             true,
		"CLAUDE_CODE_ENTRYPOINT": true,
	}
	var env []string
	for _, e := range os.Environ() {
		key, _, _ := strings.Cut(e, "=")
		if !blocked[key] {
			env = append(env, e)
		}
	}
	return env
}

// ClaudeCLI runs inference through a locally installed claude binary. It is
// the offline-friendly alternative to the OpenAI provider.
type ClaudeCLI struct {
	Model  string
	logger *slog.Logger
}

func NewClaudeCLI(model string, logger *slog.Logger) *ClaudeCLI {
	if model == "" {
		model = "sonnet"
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &ClaudeCLI{Model: model, logger: logger}
}

func (c *ClaudeCLI) Infer(ctx context.Context, text string, reference time.Time) (*Inference, error) {
	args := []string{
		"-p", buildUserPrompt(text),
		"--output-format", "json",
		"--model", c.Model,
		"--system-prompt", buildSystemPrompt(reference),
		"--json-schema", inferenceSchemaJSON(),
		"--no-session-persistence",
		"--effort", "low",
		"--no-thinking",
	}

	c.logger.Debug("invoking claude CLI",
		"model", c.Model,
		"text_len", len(text),
	)

	result, err := c.runCLI(ctx, args)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var inf Inference
	if err := json.Unmarshal([]byte(result), &inf); err != nil {
		c.logger.Error("failed to parse inference",
			"error", err,
			"raw", truncateStr(result, 1000),
		)
		return nil, fmt.Errorf("%w: parsing inference: %v", ErrUnavailable, err)
	}
	return &inf, nil
}

func (c *ClaudeCLI) runCLI(ctx context.Context, args []string) (string, error) {
	cmd := exec.CommandContext(ctx, "claude", args...)
	cmd.Env = cleanEnv()

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	c.logger.Debug("claude CLI finished",
		"elapsed", elapsed,
		"stdout_bytes", stdout.Len(),
		"error", err,
	)

	if err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("claude CLI timed out after %s", elapsed.Truncate(time.Second))
		}
		return "", fmt.Errorf("running claude CLI: %w (stderr: %s)", err, stderr.String())
	}

	// Unwrap the claude --output-format json envelope. structured_output is
	// the typed JSON from --json-schema; result may hold it as a string or
	// as a raw object.
	var wrapper struct {
		Result           json.RawMessage `json:"result"`
		StructuredOutput json.RawMessage `json:"structured_output"`
	}
	if err := json.Unmarshal(stdout.Bytes(), &wrapper); err == nil {
		if len(wrapper.StructuredOutput) > 0 && wrapper.StructuredOutput[0] == '{' {
			return string(wrapper.StructuredOutput), nil
		}
		if len(wrapper.Result) > 0 {
			var s string
			if err := json.Unmarshal(wrapper.Result, &s); err == nil && s != "" {
				return s, nil
			}
			if wrapper.Result[0] == '{' {
				return string(wrapper.Result), nil
			}
		}
	}

	return stdout.String(), nil
}

func truncateStr(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
