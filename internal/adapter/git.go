package adapter

import (
	"bytes"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/dcpsystems/dcp/internal/model"
)

// Git performs version control operations through the git CLI — never a
// Go git library — mirroring how the shell adapter shells out.
//
// Action params:
//
//	operation (string): one of status, commit, push, pull, log, branch, diff, init.
//	message   (string): commit message, required for "commit".
//	files     ([]string): paths to stage for "commit" (default: all).
//	count     (int): log entries to show (default 10).
//
// When operation is absent but command is present, Git falls back to
// running command verbatim through the shell, the same accommodation the
// stack capability layer relies on for git-backed capabilities defined as
// raw commands.
type Git struct{}

func NewGit() *Git { return &Git{} }

func (g *Git) Name() string { return "git" }

func (g *Git) Available() bool {
	_, err := exec.LookPath("git")
	return err == nil
}

var validGitOps = map[string]bool{
	"status": true, "commit": true, "push": true, "pull": true,
	"log": true, "branch": true, "diff": true, "init": true,
}

func (g *Git) Validate(ctx ExecutionContext) (bool, string) {
	op := ctx.Param("operation", "")
	if op == "" {
		if ctx.Param("command", "") != "" {
			return true, ""
		}
		return false, "missing required param: 'operation' or 'command'"
	}
	if !validGitOps[op] {
		return false, fmt.Sprintf("unknown operation %q", op)
	}
	if op == "commit" && ctx.Param("message", "") == "" {
		return false, "missing required param: 'message' for commit operation"
	}
	return true, ""
}

func (g *Git) Execute(ctx ExecutionContext) model.Receipt {
	if command := ctx.Param("command", ""); command != "" && ctx.Param("operation", "") == "" {
		return g.runShellStyle(ctx, command)
	}

	op := ctx.Param("operation", "")
	switch op {
	case "status":
		return g.status(ctx)
	case "commit":
		return g.commit(ctx)
	case "push":
		return g.simple(ctx, "push")
	case "pull":
		return g.simple(ctx, "pull")
	case "log":
		return g.log(ctx)
	case "branch":
		return g.branch(ctx)
	case "diff":
		return g.simple(ctx, "diff", "--stat")
	case "init":
		return g.simple(ctx, "init")
	default:
		return model.NewFailureReceipt(g.Name(), ctx.Action.ID, fmt.Sprintf("unknown operation: %s", op), 0)
	}
}

func (g *Git) runShellStyle(ctx ExecutionContext, command string) model.Receipt {
	start := time.Now()
	cmd := exec.Command("sh", "-c", command)
	cmd.Dir = ctx.WorkingDir()
	var stdout, stderr bytes.Buffer
	cmd.Stdout, cmd.Stderr = &stdout, &stderr
	err := cmd.Run()
	elapsed := time.Since(start).Milliseconds()
	if err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return model.NewFailureReceipt(g.Name(), ctx.Action.ID, msg, elapsed)
	}
	return model.NewSuccessReceipt(g.Name(), ctx.Action.ID, strings.TrimSpace(stdout.String()), elapsed)
}

func (g *Git) status(ctx ExecutionContext) model.Receipt {
	branch, err := g.git(ctx.WorkingDir(), "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return model.NewFailureReceipt(g.Name(), ctx.Action.ID, err.Error(), 0)
	}
	porcelain, err := g.git(ctx.WorkingDir(), "status", "--porcelain")
	if err != nil {
		return model.NewFailureReceipt(g.Name(), ctx.Action.ID, err.Error(), 0)
	}
	dirty := strings.TrimSpace(porcelain) != ""
	changes := 0
	if dirty {
		changes = len(strings.Split(strings.TrimSpace(porcelain), "\n"))
	}
	r := model.NewSuccessReceipt(g.Name(), ctx.Action.ID, fmt.Sprintf("branch=%s, dirty=%v", strings.TrimSpace(branch), dirty), 0)
	r.Metadata = map[string]interface{}{"branch": strings.TrimSpace(branch), "dirty": dirty, "changes": changes}
	return r
}

func (g *Git) commit(ctx ExecutionContext) model.Receipt {
	message := ctx.Param("message", "")
	cwd := ctx.WorkingDir()

	files := stringSlice(ctx.Params["files"])
	if len(files) > 0 {
		for _, f := range files {
			if _, err := g.git(cwd, "add", f); err != nil {
				return model.NewFailureReceipt(g.Name(), ctx.Action.ID, err.Error(), 0)
			}
		}
	} else if _, err := g.git(cwd, "add", "-A"); err != nil {
		return model.NewFailureReceipt(g.Name(), ctx.Action.ID, err.Error(), 0)
	}

	out, err := g.git(cwd, "commit", "-m", message)
	if err != nil {
		return model.NewFailureReceipt(g.Name(), ctx.Action.ID, err.Error(), 0)
	}
	r := model.NewSuccessReceipt(g.Name(), ctx.Action.ID, out, 0)
	r.Metadata = map[string]interface{}{"message": message}
	return r
}

func (g *Git) simple(ctx ExecutionContext, args ...string) model.Receipt {
	out, err := g.git(ctx.WorkingDir(), args...)
	if err != nil {
		return model.NewFailureReceipt(g.Name(), ctx.Action.ID, err.Error(), 0)
	}
	return model.NewSuccessReceipt(g.Name(), ctx.Action.ID, out, 0)
}

func (g *Git) log(ctx ExecutionContext) model.Receipt {
	count := 10
	if v, ok := ctx.Params["count"]; ok {
		switch n := v.(type) {
		case int:
			count = n
		case float64:
			count = int(n)
		case string:
			if parsed, err := strconv.Atoi(n); err == nil {
				count = parsed
			}
		}
	}
	out, err := g.git(ctx.WorkingDir(), "log", fmt.Sprintf("--max-count=%d", count), "--oneline", "--no-decorate")
	if err != nil {
		return model.NewFailureReceipt(g.Name(), ctx.Action.ID, err.Error(), 0)
	}
	r := model.NewSuccessReceipt(g.Name(), ctx.Action.ID, out, 0)
	r.Metadata = map[string]interface{}{"count": count}
	return r
}

func (g *Git) branch(ctx ExecutionContext) model.Receipt {
	out, err := g.git(ctx.WorkingDir(), "branch", "--list", "--no-color")
	if err != nil {
		return model.NewFailureReceipt(g.Name(), ctx.Action.ID, err.Error(), 0)
	}
	var branches []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "*"))
		if line != "" {
			branches = append(branches, strings.TrimSpace(line))
		}
	}
	r := model.NewSuccessReceipt(g.Name(), ctx.Action.ID, out, 0)
	r.Metadata = map[string]interface{}{"branches": branches}
	return r
}

func (g *Git) git(cwd string, args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = cwd
	var stdout, stderr bytes.Buffer
	cmd.Stdout, cmd.Stderr = &stdout, &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return "", fmt.Errorf("%s", msg)
	}
	return stdout.String(), nil
}

func stringSlice(v interface{}) []string {
	switch t := v.(type) {
	case []string:
		return t
	case []interface{}:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
