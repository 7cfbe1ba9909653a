package framework

import (
	"fmt"

	"github.com/infermark/infermark/internal/harness"
	"github.com/infermark/infermark/internal/model"
)

// SGLang builds the SGLang benchmark job. It assumes the vllm job ran
// earlier in the sequence: the benchmark script reuses the vllm
// source checkout venv.
func SGLang(cfg model.Config, root string) harness.JobSpec {
	serve := fmt.Sprintf(
		"source venv-sgl/bin/activate && python3 -m sglang.launch_server --model-path %q --host 0.0.0.0 --port %d",
		cfg.Model, cfg.Port,
	)

	provision := harness.Steps(
		harness.CommandAction(harness.Command{
			Path: "uv",
			Args: []string{"venv", "venv-sgl", "--python", "3.12"},
			Dir:  root,
		}),
		harness.ShellAction(root,
			`source venv-sgl/bin/activate && uv pip install "sglang[all]==0.4.4.post1" --find-links https://flashinfer.ai/whl/cu124/torch2.5/flashinfer-python`),
	)

	workload := harness.ShellAction(benchDir(root),
		"source vllm/venv-vllm-src/bin/activate && bash ./"+benchScript,
		"VLLM_USE_PRECOMPILED=1",
		"MODEL="+cfg.Model,
		"FRAMEWORK=sgl",
	)

	return harness.JobSpec{
		Name: model.FrameworkSGLang,
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
		SweepPattern: "sglang.launch_server",
	}
}
