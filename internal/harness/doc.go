package harness

// Package harness implements the benchmark job engine: supervised
// server processes, readiness probing and the sequential run loop.
//
// Overview
// A Job is one end-to-end unit of work: provision an isolated
// environment, start a framework server, wait for it to accept
// requests, run the benchmark workload against it and kill the server
// again. The Runner executes a fixed sequence of Jobs strictly one
// after another; the jobs share one port and one GPU, so they must
// never overlap.
//
// The Supervisor is a thin, opinionated wrapper around os/exec:
//   - starts the server detached into its own process group
//   - redirects all server output to the job-owned log sink
//   - kills the whole group with SIGKILL and reaps the leader
//
// Data flow:
//
//   Runner                 Job{name}                Supervisor
//     |                       |                         |
//     | run ----------------->| Provision               |
//     |                       | Spawn ----------------->| Start (setpgid)
//     |                       | WaitReady (poll)        |
//     |                       | Workload                |
//     |                       | Terminate ------------->| kill(-pgid) + Wait
//     |<------ Result --------|                         |
//     | sweep strays          |
//
// Invariants:
//   - Jobs run strictly sequentially, never concurrently.
//   - A Job's process handle is valid only between Spawn and Terminate.
//   - The workload never starts before the readiness probe succeeded.
//   - Teardown always runs once a process was spawned; its errors are
//     logged and never change an already-determined outcome.
//   - Each Job produces exactly one terminal Result.
//   - The first failed Job stops the remaining sequence.
//   - Sweep and teardown failures are best-effort, never fatal.
