package model

// ProcessKind tags what role a planned process plays, purely for
// diagnostics and descriptor readability -- reconstruction at start/stop
// time only ever reads StartCmd.
type ProcessKind string

const (
	KindStandalone ProcessKind = "standalone"
	KindRSMember   ProcessKind = "rs"
	KindArbiter    ProcessKind = "arbiter"
	KindConfig     ProcessKind = "config"
	KindShard      ProcessKind = "shard"
	KindRouter     ProcessKind = "router"
)

// ProcessPlan is one child process the Orchestrator must bring up: its
// directory, its port, and the argv that both starts it now and restarts
// it later from the persisted descriptor.
type ProcessPlan struct {
	Dir            string
	Port           int
	Binary         string // basename: "mongod" or "mongos"
	Kind           ProcessKind
	ReplicaSetName string // empty for standalone members and non-CSRS config servers
	Arbiter        bool
	Argv           []string
}

// PidPath is where the Spawner expects this process to record its pid.
func (p *ProcessPlan) PidPath() string {
	return p.Dir + "/" + p.Binary + ".pid"
}

// LogPath is where the Spawner redirects this process's stdout/stderr.
func (p *ProcessPlan) LogPath() string {
	return p.Dir + "/" + p.Binary + ".log"
}

// Plan is the complete, ordered realization of an Options record: every
// process to spawn, in start order, plus the cluster-formation metadata
// the Orchestrator needs once the processes are up.
type Plan struct {
	Topology Topology

	// Processes are in start order; stop order is this reversed.
	Processes []ProcessPlan

	// ConfigDBOpt is the --configdb value routers receive (sharded only).
	ConfigDBOpt string

	// KeyFilePath is non-empty when auth is enabled.
	KeyFilePath string
}
