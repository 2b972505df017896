package orchestrator

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/p-mongodb/mongo-manager/internal/model"
	"github.com/p-mongodb/mongo-manager/internal/spawn"
	"github.com/p-mongodb/mongo-manager/internal/store"
)

// stopTimeout is how long Stop waits for a TERM'd process to exit before
// raising StopTimeout.
const stopTimeout = 15 * time.Second

// spawnProcess ensures p's directory exists and starts it via the
// Spawner, verbatim.
func (o *Orchestrator) spawnProcess(ctx context.Context, p model.ProcessPlan) error {
	if err := mkdirForProcess(p.Dir); err != nil {
		return fmt.Errorf("create process dir %s: %w", p.Dir, err)
	}
	_, err := o.spawner.Spawn(ctx, p.Argv, p.LogPath(), p.PidPath())
	return err
}

// stopProcess sends TERM to p's recorded pid and waits up to stopTimeout
// for it to exit. A missing pid file is not an error.
func (o *Orchestrator) stopProcess(ctx context.Context, p model.ProcessPlan) error {
	pid, err := o.loadPid(p)
	if err != nil {
		return nil
	}
	if err := o.spawner.Signal(pid, spawn.SignalTerm); err != nil {
		return err
	}
	return o.spawner.WaitForExit(ctx, pid, stopTimeout, p.Binary, p.LogPath())
}

func (o *Orchestrator) loadPid(p model.ProcessPlan) (int, error) {
	return spawn.ReadPid(p.PidPath())
}

// Start loads the descriptor and spawns every directory's recorded
// start_cmd verbatim, in db_dirs order. There is no readiness probing:
// starts are fire-and-forget aside from the Spawner's own alive-check.
func (o *Orchestrator) Start(ctx context.Context, dir string) error {
	runID := uuid.NewString()
	log := o.logger.With().Str("run_id", runID).Str("op", "start").Logger()
	o.logger = log

	d, err := store.Load(dir)
	if err != nil {
		return fmt.Errorf("load descriptor: %w", err)
	}

	for _, procDir := range d.DBDirs {
		settings, ok := d.Settings[procDir]
		if !ok {
			return fmt.Errorf("descriptor missing settings for %s", procDir)
		}
		basename := filepath.Base(settings.StartCmd[0])
		logPath := filepath.Join(procDir, basename+".log")
		pidPath := filepath.Join(procDir, basename+".pid")

		if err := mkdirForProcess(procDir); err != nil {
			return fmt.Errorf("create process dir %s: %w", procDir, err)
		}
		log.Info().Str("dir", procDir).Msg("starting process")
		if _, err := o.spawner.Spawn(ctx, settings.StartCmd, logPath, pidPath); err != nil {
			return err
		}
	}
	return nil
}

// Stop loads the descriptor and tears the deployment down in reverse
// start order. Sharded deployments wait synchronously for each process to
// exit before signaling the next -- killing the config server before the
// shards causes the shards to stall for ~60s, so processes must die in
// the order that puts config servers last.
func (o *Orchestrator) Stop(ctx context.Context, dir string) error {
	runID := uuid.NewString()
	log := o.logger.With().Str("run_id", runID).Str("op", "stop").Logger()
	o.logger = log

	d, err := store.Load(dir)
	if err != nil {
		return fmt.Errorf("load descriptor: %w", err)
	}

	sharded := d.Sharded != 0

	type pending struct {
		dir      string
		pid      int
		logPath  string
		basename string
	}
	var waiting []pending

	for i := len(d.DBDirs) - 1; i >= 0; i-- {
		procDir := d.DBDirs[i]
		settings, ok := d.Settings[procDir]
		if !ok {
			continue
		}
		basename := filepath.Base(settings.StartCmd[0])
		pidPath := filepath.Join(procDir, basename+".pid")
		logPath := filepath.Join(procDir, basename+".log")

		pid, err := spawn.ReadPid(pidPath)
		if err != nil {
			log.Info().Str("dir", procDir).Msg("no pid file, skipping")
			continue
		}

		if err := o.spawner.Signal(pid, spawn.SignalTerm); err != nil {
			return err
		}

		if sharded {
			if err := o.spawner.WaitForExit(ctx, pid, stopTimeout, basename, logPath); err != nil {
				return err
			}
		} else {
			waiting = append(waiting, pending{dir: procDir, pid: pid, logPath: logPath, basename: basename})
		}
	}

	for _, w := range waiting {
		if err := o.spawner.WaitForExit(ctx, w.pid, stopTimeout, w.basename, w.logPath); err != nil {
			return err
		}
	}

	return nil
}
