package harness

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"
)

var ErrJobAlreadyRun = errors.New("job already run")

// State of a Job's lifecycle. Terminal states are final; a Job is
// never restarted.
type State int

const (
	StateCreated State = iota
	StateProvisioning
	StateStarting
	StateWaitingReady
	StateRunningWorkload
	StateTearingDown
	StateCompleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateProvisioning:
		return "provisioning"
	case StateStarting:
		return "starting"
	case StateWaitingReady:
		return "waiting-ready"
	case StateRunningWorkload:
		return "running-workload"
	case StateTearingDown:
		return "tearing-down"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Stage names the step at which a Job failed. The zero value means no
// failure.
type Stage int

const (
	StageNone Stage = iota
	StageProvisioning
	StageStart
	StageReadiness
	StageWorkload
	StageTeardown
)

func (s Stage) String() string {
	switch s {
	case StageNone:
		return "none"
	case StageProvisioning:
		return "provisioning"
	case StageStart:
		return "start"
	case StageReadiness:
		return "readiness"
	case StageWorkload:
		return "workload"
	case StageTeardown:
		return "teardown"
	default:
		return "unknown"
	}
}

// Result is the single outcome a Job reports to the Runner.
type Result struct {
	Job     string
	Stage   Stage // StageNone when the job completed
	Started time.Time
	Stopped time.Time
	Err     error
}

func (r Result) Failed() bool { return r.Err != nil }

// LogValue makes results render compactly in slog output.
func (r Result) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("job", r.Job),
		slog.Duration("took", r.Stopped.Sub(r.Started)),
	}
	if r.Err != nil {
		attrs = append(attrs,
			slog.String("stage", r.Stage.String()),
			slog.String("error", r.Err.Error()),
		)
	}
	return slog.GroupValue(attrs...)
}

// JobSpec is everything a Job needs to know about its framework:
// how to provision it, how to start its server, how to benchmark it
// and which cmdline pattern identifies stray server processes.
type JobSpec struct {
	Name         string
	Host         string
	Port         int
	Serve        Command
	Provision    Action
	Workload     Action
	SweepPattern string
}

// Job composes provisioning, a supervised server start, the readiness
// wait, the workload run and teardown into one unit of work. It
// exclusively owns its two log sinks and its process handle.
type Job struct {
	spec        JobSpec
	supervisor  Supervisor
	probe       ReadinessProbe
	serverLog   io.WriteCloser
	workloadLog io.WriteCloser

	state  State
	handle Handle
}

// NewJob binds a spec to its collaborators. serverLog receives the
// provisioning and server output, workloadLog the benchmark output;
// the Job closes both when its run ends.
func NewJob(spec JobSpec, supervisor Supervisor, probe ReadinessProbe, serverLog, workloadLog io.WriteCloser) *Job {
	return &Job{
		spec:        spec,
		supervisor:  supervisor,
		probe:       probe,
		serverLog:   serverLog,
		workloadLog: workloadLog,
		state:       StateCreated,
	}
}

func (j *Job) Name() string         { return j.spec.Name }
func (j *Job) State() State         { return j.state }
func (j *Job) SweepPattern() string { return j.spec.SweepPattern }

// Close releases the log sinks of a job that never ran, such as one
// skipped after an earlier failure. Run closes the sinks itself, so
// Close is a no-op once the job has left StateCreated.
func (j *Job) Close(ctx context.Context) {
	if j.state != StateCreated {
		return
	}
	j.closeSinks(ctx)
}

// Run drives the job to a terminal state and returns its one Result.
// All failures are converted into the Result; nothing escapes a job.
func (j *Job) Run(ctx context.Context) Result {
	res := Result{Job: j.spec.Name, Started: time.Now().UTC()}
	if j.state != StateCreated {
		res.Stage = StageNone
		res.Err = ErrJobAlreadyRun
		res.Stopped = time.Now().UTC()
		return res
	}
	defer func() {
		j.closeSinks(ctx)
	}()

	j.state = StateProvisioning
	slog.InfoContext(ctx, "provisioning")
	if err := j.spec.Provision(ctx, j.serverLog); err != nil {
		// no process was ever started, teardown is skipped
		return j.fail(&res, StageProvisioning, err)
	}

	j.state = StateStarting
	slog.InfoContext(ctx, "starting server", "path", j.spec.Serve.Path)
	handle, err := j.supervisor.Spawn(j.spec.Serve, j.serverLog)
	if err != nil {
		return j.fail(&res, StageStart, err)
	}
	j.handle = handle
	slog.InfoContext(ctx, "server started", "pid", handle.PID, "pgid", handle.PGID)

	var stage Stage
	var failure error

	j.state = StateWaitingReady
	slog.InfoContext(ctx, "waiting for server", "host", j.spec.Host, "port", j.spec.Port)
	if err := j.probe.WaitReady(ctx, j.spec.Host, j.spec.Port); err != nil {
		stage, failure = StageReadiness, err
	}

	if failure == nil {
		j.state = StateRunningWorkload
		slog.InfoContext(ctx, "running workload")
		if err := j.spec.Workload(ctx, j.workloadLog); err != nil {
			stage, failure = StageWorkload, err
		}
	}

	// teardown runs unconditionally once a process exists; its errors
	// never override an already-determined outcome
	j.state = StateTearingDown
	slog.InfoContext(ctx, "stopping server", "pgid", j.handle.PGID)
	// a stray process is less harmful than a mis-attributed run
	// outcome, so a teardown error alone fails nothing
	if err := j.supervisor.Terminate(j.handle); err != nil {
		slog.WarnContext(ctx, "teardown failed", "stage", StageTeardown.String(), "error", err)
	}
	j.handle = Handle{}

	if failure != nil {
		return j.fail(&res, stage, failure)
	}
	j.state = StateCompleted
	res.Stopped = time.Now().UTC()
	return res
}

func (j *Job) fail(res *Result, stage Stage, err error) Result {
	j.state = StateFailed
	res.Stage = stage
	res.Err = err
	res.Stopped = time.Now().UTC()
	return *res
}

func (j *Job) closeSinks(ctx context.Context) {
	for _, c := range []io.Closer{j.serverLog, j.workloadLog} {
		if c == nil {
			continue
		}
		if err := c.Close(); err != nil {
			slog.WarnContext(ctx, "closing log sink failed", "error", err)
		}
	}
}
