// Package spawn implements the unix-level mechanics of launching a
// detached MongoDB server process: session-leader detachment, pid-file
// tracking, log redirection, signaling, and exit polling. Everything
// above this primitive (what to launch, in what order) lives in the
// planner and orchestrator packages.
package spawn

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/p-mongodb/mongo-manager/internal/model"
)

// SignalKind is the subset of signals this tool sends to children.
type SignalKind int

const (
	SignalTerm SignalKind = iota
	SignalKill
)

func (k SignalKind) os() syscall.Signal {
	if k == SignalKill {
		return syscall.SIGKILL
	}
	return syscall.SIGTERM
}

// aliveGrace is how long Spawn waits after starting a child before
// concluding it is alive, rather than having crashed on startup.
const aliveGrace = 300 * time.Millisecond

// tailLines is the number of trailing log lines attached to a failure.
const tailLines = 50

// Spawner launches and supervises detached server processes.
type Spawner struct {
	logger zerolog.Logger
}

// New creates a Spawner that logs through logger.
func New(logger zerolog.Logger) *Spawner {
	return &Spawner{logger: logger.With().Str("component", "spawner").Logger()}
}

// Spawn starts argv[0] with the remaining elements of argv as its
// arguments. The child is detached into its own session (so it survives
// this process exiting), its stdout/stderr are appended to logPath, and
// its pid is written to pidPath before Spawn returns successfully. Spawn
// blocks only long enough to notice an immediate crash.
func (s *Spawner) Spawn(ctx context.Context, argv []string, logPath, pidPath string) (int, error) {
	if len(argv) == 0 {
		return 0, fmt.Errorf("spawn: empty argv")
	}

	s.logger.Info().Strs("argv", argv).Str("log", logPath).Msg("spawning process")

	logFile, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return 0, fmt.Errorf("open log file %s: %w", logPath, err)
	}
	defer logFile.Close()

	cmd := newCmd(ctx, argv)
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	setDetached(cmd)

	if err := cmd.Start(); err != nil {
		return 0, &model.SpawnError{Argv: argv, LogTail: TailFile(logPath, tailLines), Cause: err}
	}

	pid := cmd.Process.Pid

	exited := make(chan error, 1)
	go func() { exited <- cmd.Wait() }()

	select {
	case err := <-exited:
		return 0, &model.SpawnError{
			Argv:    argv,
			LogTail: TailFile(logPath, tailLines),
			Cause:   fmt.Errorf("process exited immediately: %w", err),
		}
	case <-time.After(aliveGrace):
	}

	if err := os.WriteFile(pidPath, []byte(strconv.Itoa(pid)), 0644); err != nil {
		return 0, &model.SpawnError{Argv: argv, LogTail: TailFile(logPath, tailLines), Cause: fmt.Errorf("write pid file: %w", err)}
	}

	s.logger.Info().Int("pid", pid).Str("pid_file", pidPath).Msg("process is alive")
	return pid, nil
}

// Signal sends TERM or KILL to pid. A pid that no longer exists is
// silently ignored -- that is not an error condition for this tool.
func (s *Spawner) Signal(pid int, kind SignalKind) error {
	if err := syscall.Kill(pid, kind.os()); err != nil {
		if err == syscall.ESRCH {
			return nil
		}
		return fmt.Errorf("signal pid %d: %w", pid, err)
	}
	return nil
}

// WaitForExit polls until pid no longer exists or the deadline passes. On
// timeout it tails logPath so the caller's error carries the log context
// a StopTimeout needs for diagnosis. logPath may be empty when no log
// file is known for pid, in which case LogTail is left blank.
func (s *Spawner) WaitForExit(ctx context.Context, pid int, timeout time.Duration, label, logPath string) error {
	deadline := time.Now().Add(timeout)
	for {
		if !processAlive(pid) {
			return nil
		}
		if time.Now().After(deadline) {
			var logTail string
			if logPath != "" {
				logTail = TailFile(logPath, tailLines)
			}
			return &model.StopTimeout{PID: pid, Label: label, Timeout: timeout.String(), LogTail: logTail}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}
}

// processAlive reports whether pid refers to a live process, using the
// kernel's own notion of process existence (kill(pid, 0) semantics). A pid
// that has been recycled by an unrelated process reads as alive.
func processAlive(pid int) bool {
	err := syscall.Kill(pid, 0)
	return err == nil
}
