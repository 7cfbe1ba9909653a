// Package framework is the catalog of benchmarkable inference
// frameworks. Each entry knows how to provision its environment, how
// to launch its server and how to run the comparison benchmark
// against it; the harness stays framework-agnostic.
package framework

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/infermark/infermark/internal/harness"
	"github.com/infermark/infermark/internal/model"
)

const (
	benchRepoURL = "https://github.com/neuralmagic/benchmark-compare.git"
	vllmRepoURL  = "https://github.com/vllm-project/vllm.git"
	vllmBranch   = "benchmark-output"

	benchDirName = "benchmark-compare"
	benchScript  = "benchmark_1000_in_100_out.sh"

	// ResultsFile is where the benchmark scripts leave their
	// structured results, relative to the run root.
	ResultsFile = benchDirName + "/results.json"
)

// Builder constructs the JobSpec for one framework. root is the run's
// working directory.
type Builder func(cfg model.Config, root string) harness.JobSpec

var builders = map[string]Builder{
	model.FrameworkVLLM:   VLLM,
	model.FrameworkSGLang: SGLang,
}

// Names lists the known frameworks, sorted.
func Names() []string {
	names := make([]string, 0, len(builders))
	for name := range builders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Specs resolves cfg.Jobs into job specs, preserving the configured
// order. The order is meaningful: the sglang benchmark reuses the
// source checkout venv the vllm job sets up.
func Specs(cfg model.Config, root string) ([]harness.JobSpec, error) {
	specs := make([]harness.JobSpec, 0, len(cfg.Jobs))
	for _, name := range cfg.Jobs {
		builder, ok := builders[name]
		if !ok {
			return nil, fmt.Errorf("unknown framework %q", name)
		}
		specs = append(specs, builder(cfg, root))
	}
	return specs, nil
}

// Preparer describes the one-time environment reset: stale virtual
// envs and checkouts are dropped, uv is bootstrapped when missing and
// the benchmark repositories are cloned fresh.
func Preparer(root string) harness.Preparer {
	return harness.Preparer{
		Root: root,
		StaleDirs: []string{
			benchDirName,
			"venv-vllm",
			"venv-vllm-src",
			"venv-sgl",
		},
		Tools: []harness.Tool{
			{Name: "uv", InstallCmd: "curl -LsSf https://astral.sh/uv/install.sh | sh"},
		},
		Repos: []harness.Repo{
			{URL: benchRepoURL, Dest: benchDirName},
			{URL: vllmRepoURL, Dest: filepath.Join(benchDirName, "vllm"), Branch: vllmBranch},
		},
	}
}

func benchDir(root string) string {
	return filepath.Join(root, benchDirName)
}

func vllmSrcDir(root string) string {
	return filepath.Join(root, benchDirName, "vllm")
}

func cudaEnv(cfg model.Config) []string {
	if cfg.CudaDevice == "" {
		return nil
	}
	return []string{"CUDA_VISIBLE_DEVICES=" + cfg.CudaDevice}
}
