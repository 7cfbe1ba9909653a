package harness_test

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/infermark/infermark/internal/harness"
	"github.com/stretchr/testify/require"
)

func TestPreparerStaleDirs(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	for _, d := range []string{"venv-old", "checkout"} {
		require.NoError(t, os.MkdirAll(filepath.Join(root, d, "nested"), 0755))
		require.NoError(t, os.WriteFile(filepath.Join(root, d, "nested", "f"), []byte("x"), 0644))
	}

	p := harness.Preparer{
		Root:      root,
		StaleDirs: []string{"venv-old", "checkout", "never-existed"},
	}
	require.NoError(t, p.Do(t.Context(), &bytes.Buffer{}))

	for _, d := range []string{"venv-old", "checkout"} {
		_, err := os.Stat(filepath.Join(root, d))
		require.ErrorIs(t, err, os.ErrNotExist)
	}
}

func TestPreparerTools(t *testing.T) {
	if _, err := exec.LookPath("bash"); err != nil {
		t.Skipf("bash not available: %v", err)
	}
	t.Parallel()

	t.Run("present tool is not installed", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		p := harness.Preparer{
			Root:  t.TempDir(),
			Tools: []harness.Tool{{Name: "sh", InstallCmd: "echo installed"}},
		}
		require.NoError(t, p.Do(t.Context(), &buf))
		require.NotContains(t, buf.String(), "installed")
	})

	t.Run("missing tool runs its installer", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		p := harness.Preparer{
			Root:  t.TempDir(),
			Tools: []harness.Tool{{Name: "infermark-no-such-tool", InstallCmd: "echo installed"}},
		}
		require.NoError(t, p.Do(t.Context(), &buf))
		require.Contains(t, buf.String(), "installed")
	})

	t.Run("failed installer is fatal", func(t *testing.T) {
		t.Parallel()
		p := harness.Preparer{
			Root:  t.TempDir(),
			Tools: []harness.Tool{{Name: "infermark-no-such-tool", InstallCmd: "exit 1"}},
		}
		err := p.Do(t.Context(), &bytes.Buffer{})
		require.ErrorContains(t, err, "ensuring infermark-no-such-tool")
	})
}

func TestPreparerRepos(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skipf("git not available: %v", err)
	}
	t.Parallel()

	t.Run("clones and tolerates a missing branch", func(t *testing.T) {
		t.Parallel()
		src := t.TempDir()
		var buf bytes.Buffer
		init := harness.CommandAction(harness.Command{Path: "git", Args: []string{"init", src}})
		require.NoError(t, init(t.Context(), &buf))

		root := t.TempDir()
		p := harness.Preparer{
			Root:  root,
			Repos: []harness.Repo{{URL: src, Dest: "checkout", Branch: "no-such-branch"}},
		}
		require.NoError(t, p.Do(t.Context(), &buf))

		info, err := os.Stat(filepath.Join(root, "checkout", ".git"))
		require.NoError(t, err)
		require.True(t, info.IsDir())
	})

	t.Run("unreachable repo is fatal", func(t *testing.T) {
		t.Parallel()
		p := harness.Preparer{
			Root:  t.TempDir(),
			Repos: []harness.Repo{{URL: filepath.Join(t.TempDir(), "missing"), Dest: "checkout"}},
		}
		err := p.Do(t.Context(), &bytes.Buffer{})
		require.ErrorContains(t, err, "cloning")
	})
}
