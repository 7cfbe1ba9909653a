package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
)

// Action is one opaque provisioning or workload step. Its output goes
// to the job-owned sink; the returned error is its success signal.
// Actions run to their own natural completion, the harness imposes no
// deadline beyond ctx.
type Action func(ctx context.Context, sink io.Writer) error

// CommandAction runs an argv command with its output on the sink.
func CommandAction(cmd Command) Action {
	return func(ctx context.Context, sink io.Writer) error {
		return runCommand(ctx, cmd, sink)
	}
}

// ShellAction runs script through `bash -c` in dir, with extra
// KEY=VAL pairs appended to the environment. The idiom the framework
// catalog relies on: venv activation and the serve/benchmark one
// liners are shell scripts.
func ShellAction(dir, script string, env ...string) Action {
	return func(ctx context.Context, sink io.Writer) error {
		return runCommand(ctx, Command{
			Path: "bash",
			Args: []string{"-c", script},
			Dir:  dir,
			Env:  env,
		}, sink)
	}
}

// Steps chains actions, stopping at the first failure.
func Steps(actions ...Action) Action {
	return func(ctx context.Context, sink io.Writer) error {
		for _, action := range actions {
			if err := action(ctx, sink); err != nil {
				return err
			}
		}
		return nil
	}
}

func runCommand(ctx context.Context, cmd Command, sink io.Writer) error {
	slog.DebugContext(ctx, "running command", "path", cmd.Path, "args", cmd.Args, "dir", cmd.Dir)
	c := exec.CommandContext(ctx, cmd.Path, cmd.Args...)
	c.Dir = cmd.Dir
	c.Env = append(os.Environ(), cmd.Env...)
	c.Stdout = sink
	c.Stderr = sink
	if err := c.Run(); err != nil {
		return fmt.Errorf("running %s: %w", cmd.Path, err)
	}
	return nil
}
