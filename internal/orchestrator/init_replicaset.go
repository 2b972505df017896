package orchestrator

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/p-mongodb/mongo-manager/internal/keymaterial"
	"github.com/p-mongodb/mongo-manager/internal/model"
	"github.com/p-mongodb/mongo-manager/internal/probe"
)

// provisionWindow bounds how long a freshly initiated replica set has to
// elect a primary and settle its secondaries before WaitUntilProvisioned
// gives up.
const provisionWindow = 30 * time.Second

// initReplicaSet generates the key file if auth is requested, spawns
// every data-bearing node and the arbiter (if any), persists the
// descriptor so the deployment is stoppable even if cluster formation
// never completes, initiates the set, waits for it to settle, and -- if
// auth is requested -- creates the root user and restarts the whole set
// with --keyFile already in effect so the new user is enforced from the
// first connection after the bounce.
func (o *Orchestrator) initReplicaSet(ctx context.Context, opts *model.Options, plan *model.Plan) error {
	if opts.AuthEnabled() {
		if _, err := keymaterial.Create(opts.KeyFilePath()); err != nil {
			return fmt.Errorf("create key file: %w", err)
		}
	}

	for _, p := range plan.Processes {
		if err := o.spawnProcess(ctx, p); err != nil {
			return err
		}
	}

	descriptor := descriptorSkeleton(opts, plan)
	for _, p := range plan.Processes {
		descriptor.AddProcess(p.Dir, p.Argv, p.Binary, string(p.Kind))
	}
	if err := persistDescriptor(opts, descriptor); err != nil {
		return err
	}

	if err := o.pingAllDirect(ctx, plan.Processes); err != nil {
		return err
	}

	if err := o.initiateReplicaSet(ctx, opts, plan); err != nil {
		return err
	}

	if err := o.prober.Ping(ctx, hostAddr(plan.Processes[0].Port), probe.InReplicaSet(opts.ReplicaSet)); err != nil {
		return fmt.Errorf("ping initiated replica set: %w", err)
	}

	if !opts.AuthEnabled() {
		return nil
	}

	if err := o.prober.CreateUser(ctx, hostAddr(plan.Processes[0].Port), probe.InReplicaSet(opts.ReplicaSet), opts.Username, opts.Password, []string{"root"}); err != nil {
		return err
	}

	for _, p := range plan.Processes {
		if err := o.stopProcess(ctx, p); err != nil {
			return fmt.Errorf("stop %s for auth restart: %w", p.Dir, err)
		}
	}
	for _, p := range plan.Processes {
		if err := o.spawnProcess(ctx, p); err != nil {
			return fmt.Errorf("respawn %s with auth: %w", p.Dir, err)
		}
	}

	creds := probe.Credentials{Username: opts.Username, Password: opts.Password}
	if err := o.prober.PingWithCredentials(ctx, hostAddr(plan.Processes[0].Port), probe.InReplicaSet(opts.ReplicaSet), creds); err != nil {
		return fmt.Errorf("ping replica set after auth restart: %w", err)
	}

	return nil
}

// pingAllDirect confirms every freshly spawned node answers before the
// set is initiated, each on its own connection, concurrently.
func (o *Orchestrator) pingAllDirect(ctx context.Context, procs []model.ProcessPlan) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, p := range procs {
		p := p
		g.Go(func() error {
			return o.prober.Ping(gctx, hostAddr(p.Port), probe.Direct())
		})
	}
	return g.Wait()
}

func (o *Orchestrator) initiateReplicaSet(ctx context.Context, opts *model.Options, plan *model.Plan) error {
	members := make([]probe.Member, 0, len(plan.Processes))
	for i, p := range plan.Processes {
		members = append(members, probe.Member{
			ID:          i,
			Host:        hostAddr(p.Port),
			ArbiterOnly: p.Arbiter,
		})
	}

	seed := hostAddr(plan.Processes[0].Port)
	if err := o.prober.ReplicaSetInitiate(ctx, seed, opts.ReplicaSet, members, false); err != nil {
		return err
	}

	deadline := time.Now().Add(provisionWindow)
	for _, p := range plan.Processes {
		if p.Arbiter {
			continue
		}
		if err := o.prober.WaitUntilProvisioned(ctx, hostAddr(p.Port), deadline); err != nil {
			return err
		}
	}
	return nil
}
