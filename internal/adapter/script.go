package adapter

import (
	"bytes"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/dop251/goja"

	"github.com/dcpsystems/dcp/internal/model"
)

// Script runs params["script"] as JavaScript inside an in-process goja
// VM, exposing a small host API (env, workingDir, run) so capabilities can
// express project-specific checks without shelling out to a real
// interpreter. It has no original_source analogue: the control plane adds
// it because embedding a scripting engine is cheap insurance for capability
// authors who need more than a single shell command but don't want to ship
// a standalone script file.
//
// Action params:
//
//	script (string, required): JavaScript source. The value of the last
//	  evaluated expression becomes the receipt output.
type Script struct {
	timeout time.Duration
}

// NewScript builds a Script adapter with a default per-run timeout.
func NewScript() *Script {
	return &Script{timeout: 10 * time.Second}
}

func (s *Script) Name() string { return "script" }

func (s *Script) Available() bool { return true }

func (s *Script) Validate(ctx ExecutionContext) (bool, string) {
	if ctx.Param("script", "") == "" {
		return false, "missing required param: 'script'"
	}
	return true, ""
}

func (s *Script) Execute(ctx ExecutionContext) model.Receipt {
	source := ctx.Param("script", "")
	start := time.Now()

	vm := goja.New()
	_ = vm.Set("env", ctx.Environment)
	_ = vm.Set("workingDir", ctx.WorkingDir())
	_ = vm.Set("run", func(cmd string) string {
		out, _ := runShell(cmd, ctx.WorkingDir())
		return out
	})

	done := make(chan struct {
		val goja.Value
		err error
	}, 1)

	go func() {
		val, err := vm.RunString(source)
		done <- struct {
			val goja.Value
			err error
		}{val, err}
	}()

	select {
	case result := <-done:
		elapsed := time.Since(start).Milliseconds()
		if result.err != nil {
			return model.NewFailureReceipt(s.Name(), ctx.Action.ID, result.err.Error(), elapsed)
		}
		output := ""
		if result.val != nil && !goja.IsUndefined(result.val) && !goja.IsNull(result.val) {
			output = result.val.String()
		}
		return model.NewSuccessReceipt(s.Name(), ctx.Action.ID, output, elapsed)
	case <-time.After(s.timeout):
		vm.Interrupt("timeout")
		return model.NewFailureReceipt(s.Name(), ctx.Action.ID, fmt.Sprintf("script timed out after %s", s.timeout), s.timeout.Milliseconds())
	}
}

func runShell(command, cwd string) (string, error) {
	cmd := exec.Command("sh", "-c", command)
	cmd.Dir = cwd
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	err := cmd.Run()
	return strings.TrimSpace(out.String()), err
}
