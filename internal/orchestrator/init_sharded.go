package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/p-mongodb/mongo-manager/internal/keymaterial"
	"github.com/p-mongodb/mongo-manager/internal/model"
	"github.com/p-mongodb/mongo-manager/internal/probe"
)

// initSharded generates the key file if auth is requested, brings up the
// config server (as a one-member CSRS when the version or opts require
// it, otherwise a bare config-server mongod), brings up and initiates
// every shard as its own one-member replica set, spawns the routers
// against the config server, persists the descriptor so the deployment
// is stoppable even if shard registration never completes, registers
// every shard with the first router, and creates the root user through a
// router once the cluster answers.
func (o *Orchestrator) initSharded(ctx context.Context, opts *model.Options, plan *model.Plan) error {
	if opts.AuthEnabled() {
		if _, err := keymaterial.Create(opts.KeyFilePath()); err != nil {
			return fmt.Errorf("create key file: %w", err)
		}
	}

	var configProc model.ProcessPlan
	var shards []model.ProcessPlan
	var routers []model.ProcessPlan
	for _, p := range plan.Processes {
		switch p.Kind {
		case model.KindConfig:
			configProc = p
		case model.KindShard:
			shards = append(shards, p)
		case model.KindRouter:
			routers = append(routers, p)
		}
	}

	if err := o.bringUpConfigServer(ctx, opts, configProc); err != nil {
		return err
	}

	for _, shard := range shards {
		if err := o.bringUpShard(ctx, opts, shard); err != nil {
			return err
		}
	}

	for _, r := range routers {
		if err := o.spawnProcess(ctx, r); err != nil {
			return err
		}
		if err := o.prober.Ping(ctx, hostAddr(r.Port), probe.Direct()); err != nil {
			return fmt.Errorf("ping router %s: %w", r.Dir, err)
		}
	}

	descriptor := descriptorSkeleton(opts, plan)
	for _, p := range plan.Processes {
		descriptor.AddProcess(p.Dir, p.Argv, p.Binary, string(p.Kind))
	}
	if err := persistDescriptor(opts, descriptor); err != nil {
		return err
	}

	router1 := hostAddr(routers[0].Port)
	for _, shard := range shards {
		if err := o.prober.Ping(ctx, hostAddr(shard.Port), probe.InReplicaSet(shard.ReplicaSetName)); err != nil {
			return fmt.Errorf("ping shard %s before registration: %w", shard.Dir, err)
		}
		shardSpec := fmt.Sprintf("%s/%s", shard.ReplicaSetName, hostAddr(shard.Port))
		if err := o.prober.AddShard(ctx, router1, shardSpec); err != nil {
			return err
		}
	}

	if !opts.AuthEnabled() {
		return nil
	}

	if err := o.prober.CreateUser(ctx, router1, probe.Direct(), opts.Username, opts.Password, []string{"root"}); err != nil {
		return err
	}

	creds := probe.Credentials{Username: opts.Username, Password: opts.Password}
	if err := o.prober.PingWithCredentials(ctx, router1, probe.Direct(), creds); err != nil {
		return fmt.Errorf("ping router after user creation: %w", err)
	}

	return nil
}

// bringUpConfigServer spawns the config server and, when it is a CSRS
// member (ReplicaSetName set), initiates it as a one-member replica set
// and waits for it to settle.
func (o *Orchestrator) bringUpConfigServer(ctx context.Context, opts *model.Options, p model.ProcessPlan) error {
	if err := o.spawnProcess(ctx, p); err != nil {
		return err
	}

	if p.ReplicaSetName == "" {
		return o.prober.Ping(ctx, hostAddr(p.Port), probe.Direct())
	}

	addr := hostAddr(p.Port)
	members := []probe.Member{{ID: 0, Host: addr}}
	if err := o.prober.ReplicaSetInitiate(ctx, addr, p.ReplicaSetName, members, true); err != nil {
		return err
	}

	deadline := time.Now().Add(provisionWindow)
	return o.prober.WaitUntilProvisioned(ctx, addr, deadline)
}

// bringUpShard spawns a shard's single member and initiates it as a
// one-member replica set -- every shard is its own replica set even with
// a single member, since mongos only registers replica-set shards.
func (o *Orchestrator) bringUpShard(ctx context.Context, opts *model.Options, p model.ProcessPlan) error {
	if err := o.spawnProcess(ctx, p); err != nil {
		return err
	}

	addr := hostAddr(p.Port)
	if err := o.prober.Ping(ctx, addr, probe.Direct()); err != nil {
		return fmt.Errorf("ping shard %s before initiate: %w", p.Dir, err)
	}

	members := []probe.Member{{ID: 0, Host: addr}}
	if err := o.prober.ReplicaSetInitiate(ctx, addr, p.ReplicaSetName, members, false); err != nil {
		return err
	}

	deadline := time.Now().Add(provisionWindow)
	return o.prober.WaitUntilProvisioned(ctx, addr, deadline)
}
