package adapter

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dcpsystems/dcp/internal/model"
)

// Shell runs commands through /bin/sh -c and captures their output. It is
// the most fundamental adapter; most other adapters are thin wrappers
// around the same pattern.
//
// Action params:
//
//	command (string, required)
//	cwd     (string, optional — overrides ctx.WorkingDir())
//	timeout (string/number, seconds, optional, default 300)
type Shell struct {
	log *logrus.Entry
}

// NewShell builds a Shell adapter, logging through log (may be nil).
func NewShell(log *logrus.Entry) *Shell {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Shell{log: log}
}

func (s *Shell) Name() string { return "shell" }

func (s *Shell) Available() bool {
	_, err := exec.LookPath("sh")
	return err == nil
}

func (s *Shell) Validate(ctx ExecutionContext) (bool, string) {
	command := ctx.Param("command", "")
	if command == "" {
		return false, "missing required param: 'command'"
	}
	cwd := ctx.Param("cwd", ctx.WorkingDir())
	if cwd != "" {
		info, err := os.Stat(cwd)
		if err != nil || !info.IsDir() {
			return false, fmt.Sprintf("working directory does not exist: %s", cwd)
		}
	}
	return true, ""
}

func (s *Shell) Execute(ctx ExecutionContext) model.Receipt {
	command := ctx.Param("command", "")
	cwd := ctx.Param("cwd", ctx.WorkingDir())
	timeout := timeoutSeconds(ctx, 300)

	s.log.WithFields(logrus.Fields{"command": command, "cwd": cwd}).Debug("executing shell command")

	runCtx, cancel := context.WithTimeout(context.Background(), time.Duration(timeout)*time.Second)
	defer cancel()

	start := time.Now()
	cmd := exec.CommandContext(runCtx, "sh", "-c", command)
	cmd.Dir = cwd

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	elapsedMs := time.Since(start).Milliseconds()

	if runCtx.Err() == context.DeadlineExceeded {
		return model.Receipt{
			Adapter:    s.Name(),
			ActionID:   ctx.Action.ID,
			Status:     model.ReceiptFailed,
			Error:      fmt.Sprintf("command timed out after %ds", timeout),
			DurationMs: elapsedMs,
			Metadata:   map[string]interface{}{"command": command, "timeout_seconds": timeout},
		}
	}

	if err != nil {
		exitCode := -1
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		}
		errMsg := stderr.String()
		if errMsg == "" {
			errMsg = fmt.Sprintf("command exited with code %d", exitCode)
		}
		return model.Receipt{
			Adapter:    s.Name(),
			ActionID:   ctx.Action.ID,
			Status:     model.ReceiptFailed,
			Error:      errMsg,
			DurationMs: elapsedMs,
			Metadata: map[string]interface{}{
				"command":     command,
				"return_code": exitCode,
				"stdout":      stdout.String(),
			},
		}
	}

	return model.Receipt{
		Adapter:    s.Name(),
		ActionID:   ctx.Action.ID,
		Status:     model.ReceiptOK,
		Output:     strings.TrimSpace(stdout.String()),
		DurationMs: elapsedMs,
		Metadata: map[string]interface{}{
			"command":     command,
			"return_code": 0,
			"stderr":      stderr.String(),
		},
	}
}

func timeoutSeconds(ctx ExecutionContext, def int) int {
	v, ok := ctx.Params["timeout"]
	if !ok {
		return def
	}
	switch t := v.(type) {
	case int:
		return t
	case float64:
		return int(t)
	case string:
		if n, err := strconv.Atoi(t); err == nil {
			return n
		}
	}
	return def
}
