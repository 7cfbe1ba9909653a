package harness_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/infermark/infermark/internal/harness"
	"github.com/stretchr/testify/require"
)

func TestShellAction(t *testing.T) {
	if _, err := exec.LookPath("bash"); err != nil {
		t.Skipf("bash not available: %v", err)
	}
	t.Parallel()

	t.Run("output and env on the sink", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		err := harness.ShellAction("", "echo out-$INFERMARK_TEST_MARK; echo err-$INFERMARK_TEST_MARK >&2",
			"INFERMARK_TEST_MARK=xyzzy")(t.Context(), &buf)
		require.NoError(t, err)
		require.Contains(t, buf.String(), "out-xyzzy")
		require.Contains(t, buf.String(), "err-xyzzy")
	})

	t.Run("runs in dir", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		var buf bytes.Buffer
		err := harness.ShellAction(dir, "pwd")(t.Context(), &buf)
		require.NoError(t, err)
		require.Contains(t, buf.String(), filepath.Base(dir))
	})

	t.Run("exit code surfaces", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		err := harness.ShellAction("", "exit 3")(t.Context(), &buf)
		require.Error(t, err)

		var exitErr *exec.ExitError
		require.ErrorAs(t, err, &exitErr)
		require.Equal(t, 3, exitErr.ExitCode())
	})
}

func TestCommandAction(t *testing.T) {
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skipf("sh not available: %v", err)
	}
	t.Parallel()

	var buf bytes.Buffer
	action := harness.CommandAction(harness.Command{Path: sh, Args: []string{"-c", "echo hello"}})
	require.NoError(t, action(t.Context(), &buf))
	require.Contains(t, buf.String(), "hello")
}

func TestSteps(t *testing.T) {
	t.Parallel()

	boom := errors.New("step failed")
	step := func(name string, err error, trace *[]string) harness.Action {
		return func(ctx context.Context, sink io.Writer) error {
			*trace = append(*trace, name)
			return err
		}
	}

	t.Run("all steps run in order", func(t *testing.T) {
		t.Parallel()
		var trace []string
		err := harness.Steps(
			step("one", nil, &trace),
			step("two", nil, &trace),
		)(t.Context(), io.Discard)
		require.NoError(t, err)
		require.Equal(t, []string{"one", "two"}, trace)
	})

	t.Run("stops at the first failure", func(t *testing.T) {
		t.Parallel()
		var trace []string
		err := harness.Steps(
			step("one", nil, &trace),
			step("two", boom, &trace),
			step("three", nil, &trace),
		)(t.Context(), io.Discard)
		require.ErrorIs(t, err, boom)
		require.Equal(t, []string{"one", "two"}, trace)
	})

	t.Run("no steps is a no-op", func(t *testing.T) {
		t.Parallel()
		require.NoError(t, harness.Steps()(t.Context(), io.Discard))
	})
}
