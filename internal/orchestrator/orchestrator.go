// Package orchestrator drives the topology-specific init sequence and the
// start/stop lifecycle: the top-level state machine of this tool. It calls
// the Spawner and Prober to realize a Planner-produced plan and records
// the outcome through the ConfigStore so that start/stop can replay it
// from a cold process.
package orchestrator

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/p-mongodb/mongo-manager/internal/model"
	"github.com/p-mongodb/mongo-manager/internal/planner"
	"github.com/p-mongodb/mongo-manager/internal/probe"
	"github.com/p-mongodb/mongo-manager/internal/spawn"
	"github.com/p-mongodb/mongo-manager/internal/store"
	"github.com/p-mongodb/mongo-manager/internal/version"
)

// Orchestrator is the top-level state machine: init, start, stop.
type Orchestrator struct {
	logger   zerolog.Logger
	spawner  *spawn.Spawner
	prober   *probe.Prober
	detector *version.Detector
}

// New wires an Orchestrator against opts-scoped collaborators. A fresh
// Prober is built per-Orchestrator because it needs opts' TLS settings.
func New(logger zerolog.Logger, opts *model.Options) *Orchestrator {
	return &Orchestrator{
		logger:   logger,
		spawner:  spawn.New(logger),
		prober:   probe.New(opts),
		detector: version.New(),
	}
}

// Init validates nothing further (opts arrives pre-validated from
// model.New), creates dir, and dispatches to the topology-specific init
// sequence. Any failure is decorated with the tail of every *.log file
// under dir before it is returned; the deployment is left in whatever
// partial state it reached.
func (o *Orchestrator) Init(ctx context.Context, opts *model.Options) error {
	runID := uuid.NewString()
	log := o.logger.With().Str("run_id", runID).Str("op", "init").Logger()
	o.logger = log

	if err := os.MkdirAll(opts.Dir, 0755); err != nil {
		return fmt.Errorf("create deployment dir: %w", err)
	}

	ver, err := o.detector.Detect(ctx, opts.BinDir)
	if err != nil {
		return o.decorate(opts.Dir, err)
	}
	log.Info().Str("version", ver.String()).Msg("detected server version")

	plan, err := planner.Plan(opts, ver)
	if err != nil {
		return o.decorate(opts.Dir, fmt.Errorf("plan topology: %w", err))
	}

	var runErr error
	switch opts.Topology() {
	case model.TopologyStandalone:
		runErr = o.initStandalone(ctx, opts, plan)
	case model.TopologyReplicaSet:
		runErr = o.initReplicaSet(ctx, opts, plan)
	case model.TopologySharded:
		runErr = o.initSharded(ctx, opts, plan)
	default:
		runErr = fmt.Errorf("unknown topology")
	}

	if runErr != nil {
		return o.decorate(opts.Dir, runErr)
	}
	return nil
}

// decorate walks dir for every *.log file, sorts by path, appends their
// tails to the error message, and reraises, preserving the original
// error's kind via Unwrap so callers can still errors.As into it.
func (o *Orchestrator) decorate(dir string, err error) error {
	if err == nil {
		return nil
	}
	tails := spawn.TailAllLogs(dir, 50)
	if tails == "" {
		return err
	}
	return &decoratedError{cause: err, logTails: tails}
}

type decoratedError struct {
	cause    error
	logTails string
}

func (e *decoratedError) Error() string {
	return fmt.Sprintf("%v\n%s", e.cause, e.logTails)
}

func (e *decoratedError) Unwrap() error { return e.cause }

func hostAddr(port int) string {
	return fmt.Sprintf("localhost:%d", port)
}

// mkdirForProcess ensures a process's directory exists before it is
// spawned; the planner only computes paths, it has no side effects.
func mkdirForProcess(dir string) error {
	return os.MkdirAll(dir, 0755)
}

func descriptorSkeleton(opts *model.Options, plan *model.Plan) *model.Descriptor {
	d := &model.Descriptor{}
	if opts.Topology() == model.TopologySharded {
		d.Sharded = model.ShardedField(opts.Sharded)
		d.Mongos = opts.Mongos
	}
	return d
}

func persistDescriptor(opts *model.Options, d *model.Descriptor) error {
	return store.Save(opts.Dir, d)
}
