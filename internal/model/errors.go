package model

import "fmt"

// OptionError reports one or more invalid or inconsistent fields on Options.
// It is raised before any side effects occur.
type OptionError struct {
	Violations []string
}

func (e *OptionError) Error() string {
	if len(e.Violations) == 1 {
		return fmt.Sprintf("invalid options: %s", e.Violations[0])
	}
	msg := "invalid options:"
	for _, v := range e.Violations {
		msg += "\n  - " + v
	}
	return msg
}

// VersionProbeError reports that `mongod --version` failed to run or its
// output did not contain a recognizable version string.
type VersionProbeError struct {
	BinaryPath string
	Cause      error
}

func (e *VersionProbeError) Error() string {
	return fmt.Sprintf("probe version of %s: %v", e.BinaryPath, e.Cause)
}

func (e *VersionProbeError) Unwrap() error { return e.Cause }

// SpawnError reports that a child process failed to start, or failed to
// write its pid file before the spawner's internal timeout elapsed. It
// carries the tail of the process's own log file.
type SpawnError struct {
	Argv    []string
	LogTail string
	Cause   error
}

func (e *SpawnError) Error() string {
	msg := fmt.Sprintf("spawn %v: %v", e.Argv, e.Cause)
	if e.LogTail != "" {
		msg += "\n--- log tail ---\n" + e.LogTail
	}
	return msg
}

func (e *SpawnError) Unwrap() error { return e.Cause }

// StopTimeout reports that a process did not exit within the Spawner's
// deadline after receiving TERM.
type StopTimeout struct {
	PID     int
	Label   string
	Timeout string
	LogTail string
}

func (e *StopTimeout) Error() string {
	msg := fmt.Sprintf("process %d (%s) did not exit within %s", e.PID, e.Label, e.Timeout)
	if e.LogTail != "" {
		msg += "\n--- log tail ---\n" + e.LogTail
	}
	return msg
}

// ProbeError reports that a ping or cluster-formation admin command failed.
type ProbeError struct {
	Op      string
	Address string
	Cause   error
}

func (e *ProbeError) Error() string {
	return fmt.Sprintf("%s against %s: %v", e.Op, e.Address, e.Cause)
}

func (e *ProbeError) Unwrap() error { return e.Cause }

// ProvisionTimeout reports that a replica set member never reported
// primary/secondary state within the provisioning deadline.
type ProvisionTimeout struct {
	Host    string
	Timeout string
}

func (e *ProvisionTimeout) Error() string {
	return fmt.Sprintf("node %s failed to provision within %s", e.Host, e.Timeout)
}

// AddShardError reports that a router rejected an addShard command.
type AddShardError struct {
	Shard   string
	Router  string
	Cause   error
}

func (e *AddShardError) Error() string {
	return fmt.Sprintf("addShard %s via %s: %v", e.Shard, e.Router, e.Cause)
}

func (e *AddShardError) Unwrap() error { return e.Cause }
