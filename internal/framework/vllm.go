package framework

import (
	"fmt"

	"github.com/infermark/infermark/internal/harness"
	"github.com/infermark/infermark/internal/model"
)

// VLLM builds the vLLM benchmark job: install a pinned vllm release
// into a fresh venv, run `vllm serve`, then build the vllm source
// checkout venv and drive the comparison benchmark against the
// server.
func VLLM(cfg model.Config, root string) harness.JobSpec {
	serve := fmt.Sprintf(
		"source venv-vllm/bin/activate && vllm serve %q --disable-log-requests --port %d",
		cfg.Model, cfg.Port,
	)

	provision := harness.Steps(
		harness.CommandAction(harness.Command{
			Path: "uv",
			Args: []string{"venv", "venv-vllm", "--python", "3.12"},
			Dir:  root,
		}),
		harness.ShellAction(root,
			"source venv-vllm/bin/activate && uv pip install vllm==0.8.3"),
	)

	// the source checkout venv is built only after the server is up,
	// its install is slow and the server warms up meanwhile
	workload := harness.Steps(
		harness.CommandAction(harness.Command{
			Path: "uv",
			Args: []string{"venv", "venv-vllm-src", "--python", "3.12"},
			Dir:  vllmSrcDir(root),
		}),
		harness.ShellAction(vllmSrcDir(root),
			"source venv-vllm-src/bin/activate && export VLLM_USE_PRECOMPILED=1 && uv pip install -e . && uv pip install numpy pandas datasets"),
		harness.ShellAction(benchDir(root),
			"source vllm/venv-vllm-src/bin/activate && bash ./"+benchScript,
			"VLLM_USE_PRECOMPILED=1",
			"MODEL="+cfg.Model,
			"FRAMEWORK=vllm",
		),
	)

	return harness.JobSpec{
		Name: model.FrameworkVLLM,
		Host: cfg.Host,
		Port: cfg.Port,
		Serve: harness.Command{
			Path: "bash",
			Args: []string{"-c", serve},
			Dir:  root,
			Env:  cudaEnv(cfg),
		},
		Provision:    provision,
		Workload:     workload,
		SweepPattern: "vllm serve",
	}
}
