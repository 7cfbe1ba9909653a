package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"

	"golang.org/x/sync/errgroup"
)

// Tool is a host binary the run depends on, with the script that
// installs it when it is not on PATH.
type Tool struct {
	Name       string
	InstallCmd string
}

// Repo is an external git repository the benchmark needs checked out.
type Repo struct {
	URL    string
	Dest   string // relative to the preparer root
	Branch string // optional checkout after clone
}

// Preparer resets shared working directories and fetches external
// resources. It runs exactly once, before the first job; everything
// it does is mechanical invocation of host tools.
type Preparer struct {
	Root      string
	StaleDirs []string // relative to Root, removed wholesale
	Tools     []Tool
	Repos     []Repo
}

// Do prepares the run environment. Output of invoked tools goes to
// sink.
func (p Preparer) Do(ctx context.Context, sink io.Writer) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, d := range p.StaleDirs {
		dir := filepath.Join(p.Root, d)
		g.Go(func() error {
			slog.DebugContext(gctx, "removing stale directory", "dir", dir)
			return os.RemoveAll(dir)
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("removing stale directories: %w", err)
	}

	for _, t := range p.Tools {
		if err := p.ensureTool(ctx, t, sink); err != nil {
			return fmt.Errorf("ensuring %s: %w", t.Name, err)
		}
	}

	for _, r := range p.Repos {
		if err := p.cloneRepo(ctx, r, sink); err != nil {
			return fmt.Errorf("cloning %s: %w", r.URL, err)
		}
	}
	return nil
}

func (p Preparer) ensureTool(ctx context.Context, t Tool, sink io.Writer) error {
	if _, err := exec.LookPath(t.Name); err == nil {
		return nil
	}
	slog.InfoContext(ctx, "tool not found, installing", "tool", t.Name)
	return ShellAction(p.Root, t.InstallCmd)(ctx, sink)
}

func (p Preparer) cloneRepo(ctx context.Context, r Repo, sink io.Writer) error {
	dest := filepath.Join(p.Root, r.Dest)
	slog.InfoContext(ctx, "cloning repository", "url", r.URL, "dest", dest)
	clone := Command{Path: "git", Args: []string{"clone", r.URL, dest}}
	if err := runCommand(ctx, clone, sink); err != nil {
		return err
	}
	if r.Branch != "" {
		checkout := Command{Path: "git", Args: []string{"-C", dest, "checkout", r.Branch}}
		// best-effort, matching the branch being optional
		if err := runCommand(ctx, checkout, sink); err != nil {
			slog.WarnContext(ctx, "branch checkout failed", "branch", r.Branch, "error", err)
		}
	}
	return nil
}
