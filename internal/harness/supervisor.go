package harness

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
)

// Command describes a process to launch: the executable, its
// arguments, the working directory and extra KEY=VAL pairs appended
// to the inherited environment.
type Command struct {
	Path string
	Args []string
	Dir  string
	Env  []string
}

// Handle identifies a spawned server process and its process group.
// The zero Handle is invalid; Terminate on it is a no-op.
type Handle struct {
	PID  int
	PGID int
	proc *supervised
}

// Valid reports whether the handle refers to a spawned process.
func (h Handle) Valid() bool { return h.proc != nil }

type supervised struct {
	cmd  *exec.Cmd
	reap sync.Once
}

// Supervisor spawns server processes and terminates their whole
// process group. Jobs hold it as an interface so tests can inject a
// fake without spawning anything.
type Supervisor interface {
	// Spawn starts cmd detached into its own process group, with all
	// output redirected to sink. It returns as soon as the process is
	// running; readiness is the probe's concern.
	Spawn(cmd Command, sink io.Writer) (Handle, error)

	// Terminate SIGKILLs the whole process group of h and blocks
	// until the leader is reaped. Calling it on an invalid or
	// already-dead handle is not an error.
	Terminate(h Handle) error
}

// ExecSupervisor is the os/exec backed Supervisor used outside of
// tests.
type ExecSupervisor struct{}

func NewExecSupervisor() *ExecSupervisor {
	return &ExecSupervisor{}
}

func (s *ExecSupervisor) Spawn(cmd Command, sink io.Writer) (Handle, error) {
	c := exec.Command(cmd.Path, cmd.Args...)
	c.Dir = cmd.Dir
	c.Env = append(os.Environ(), cmd.Env...)
	c.Stdout = sink
	c.Stderr = sink
	// own process group, so killing the group cannot reach us and we
	// can reach any children the server forks
	setProcessGroup(c)

	if err := c.Start(); err != nil {
		return Handle{}, fmt.Errorf("starting %s: %w", cmd.Path, err)
	}

	pid := c.Process.Pid
	pgid, err := processGroup(pid)
	if err != nil {
		// group unknown, fall back to the pid itself
		pgid = pid
	}
	return Handle{PID: pid, PGID: pgid, proc: &supervised{cmd: c}}, nil
}

func (s *ExecSupervisor) Terminate(h Handle) error {
	if !h.Valid() {
		return nil
	}
	if err := killGroup(h.PGID); err != nil {
		return fmt.Errorf("killing process group %d: %w", h.PGID, err)
	}
	// reap the leader; the wait error is the expected "signal: killed"
	h.proc.reap.Do(func() {
		_ = h.proc.cmd.Wait()
	})
	return nil
}
