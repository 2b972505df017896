package orchestrator

import (
	"context"
	"fmt"

	"github.com/p-mongodb/mongo-manager/internal/model"
	"github.com/p-mongodb/mongo-manager/internal/probe"
)

// initStandalone spawns the one node, and if auth is requested, creates
// the root user against it, stops it, and respawns it with --auth
// appended -- standalone nodes never need a key file since they have no
// peers to authenticate.
func (o *Orchestrator) initStandalone(ctx context.Context, opts *model.Options, plan *model.Plan) error {
	p := plan.Processes[0]

	if err := o.spawnProcess(ctx, p); err != nil {
		return err
	}

	finalArgv := p.Argv
	if opts.AuthEnabled() {
		addr := hostAddr(p.Port)

		if err := o.prober.CreateUser(ctx, addr, probe.Direct(), opts.Username, opts.Password, []string{"root"}); err != nil {
			return err
		}

		if err := o.stopProcess(ctx, p); err != nil {
			return fmt.Errorf("stop standalone node for auth restart: %w", err)
		}

		finalArgv = append(append([]string{}, p.Argv...), "--auth")
		p.Argv = finalArgv
		if err := o.spawnProcess(ctx, p); err != nil {
			return fmt.Errorf("respawn standalone node with auth: %w", err)
		}
	}

	descriptor := descriptorSkeleton(opts, plan)
	descriptor.AddProcess(p.Dir, finalArgv, p.Binary, string(p.Kind))
	return persistDescriptor(opts, descriptor)
}
