package harness

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/shirou/gopsutil/v3/process"
)

// SweepProcesses is the default Sweeper. It walks the process table
// and SIGKILLs every process whose cmdline contains pattern, except
// the harness itself. Processes that vanish mid-walk are skipped
// silently.
func SweepProcesses(ctx context.Context, pattern string) (int, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing processes: %w", err)
	}

	self := int32(os.Getpid())
	var killed int
	var errs []error
	for _, p := range procs {
		if p.Pid == self {
			continue
		}
		cmdline, err := p.CmdlineWithContext(ctx)
		if err != nil || cmdline == "" {
			continue
		}
		if !strings.Contains(cmdline, pattern) {
			continue
		}
		if err := p.KillWithContext(ctx); err != nil {
			errs = append(errs, fmt.Errorf("killing pid %d: %w", p.Pid, err))
			continue
		}
		killed++
	}
	return killed, errors.Join(errs...)
}
