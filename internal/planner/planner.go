// Package planner derives the ordered list of processes a deployment
// needs -- directory, port, argv, role -- as a function of topology and
// detected server version. The Planner has no side effects: it reads
// Options and a version, and returns a Plan for the Orchestrator to
// realize.
package planner

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/p-mongodb/mongo-manager/internal/model"
)

var (
	csrsThreshold = semver.MustParse("3.4.0")
	tlsThreshold  = semver.MustParse("4.2.0")
)

// Plan derives the complete, ordered process plan for opts given the
// server's detected version.
func Plan(opts *model.Options, ver *semver.Version) (*model.Plan, error) {
	switch opts.Topology() {
	case model.TopologyStandalone:
		return planStandalone(opts, ver)
	case model.TopologyReplicaSet:
		return planReplicaSet(opts, ver)
	case model.TopologySharded:
		return planSharded(opts, ver)
	default:
		return nil, fmt.Errorf("unknown topology")
	}
}

func planStandalone(opts *model.Options, ver *semver.Version) (*model.Plan, error) {
	dir := filepath.Join(opts.Dir, "standalone")
	port := opts.BasePort

	p := model.ProcessPlan{
		Dir:    dir,
		Port:   port,
		Binary: "mongod",
		Kind:   model.KindStandalone,
	}
	p.Argv = buildMongodArgv(opts, ver, p)

	// A standalone node has no peers to authenticate, so it never gets a
	// key file even when auth is enabled.
	plan := &model.Plan{
		Topology:  model.TopologyStandalone,
		Processes: []model.ProcessPlan{p},
	}
	return plan, nil
}

func planReplicaSet(opts *model.Options, ver *semver.Version) (*model.Plan, error) {
	n := opts.DataBearingNodes
	base := opts.BasePort

	plan := &model.Plan{Topology: model.TopologyReplicaSet}
	if opts.AuthEnabled() {
		plan.KeyFilePath = opts.KeyFilePath()
	}

	for i := 0; i < n; i++ {
		dir := filepath.Join(opts.Dir, fmt.Sprintf("rs%d", i+1))
		p := model.ProcessPlan{
			Dir:            dir,
			Port:           base + i,
			Binary:         "mongod",
			Kind:           model.KindRSMember,
			ReplicaSetName: opts.ReplicaSet,
		}
		p.Argv = buildMongodArgv(opts, ver, p)
		plan.Processes = append(plan.Processes, p)
	}

	if opts.Arbiter {
		dir := filepath.Join(opts.Dir, "arbiter")
		p := model.ProcessPlan{
			Dir:            dir,
			Port:           base + n,
			Binary:         "mongod",
			Kind:           model.KindArbiter,
			ReplicaSetName: opts.ReplicaSet,
			Arbiter:        true,
		}
		p.Argv = buildMongodArgv(opts, ver, p)
		plan.Processes = append(plan.Processes, p)
	}

	return plan, nil
}

func planSharded(opts *model.Options, ver *semver.Version) (*model.Plan, error) {
	m := opts.Mongos
	s := opts.Sharded
	base := opts.BasePort

	plan := &model.Plan{Topology: model.TopologySharded}
	if opts.AuthEnabled() {
		plan.KeyFilePath = opts.KeyFilePath()
	}

	configPort := base + m
	csrs := opts.CSRS || !ver.LessThan(csrsThreshold)

	configDir := filepath.Join(opts.Dir, "csrs")
	configProc := model.ProcessPlan{
		Dir:    configDir,
		Port:   configPort,
		Binary: "mongod",
		Kind:   model.KindConfig,
	}
	if csrs {
		configProc.ReplicaSetName = "csrs"
		plan.ConfigDBOpt = fmt.Sprintf("csrs/localhost:%d", configPort)
	} else {
		plan.ConfigDBOpt = fmt.Sprintf("localhost:%d", configPort)
	}
	configProc.Argv = buildMongodArgv(opts, ver, configProc)
	plan.Processes = append(plan.Processes, configProc)

	for i := 1; i <= s; i++ {
		dir := filepath.Join(opts.Dir, fmt.Sprintf("shard%02d", i))
		p := model.ProcessPlan{
			Dir:            dir,
			Port:           configPort + i,
			Binary:         "mongod",
			Kind:           model.KindShard,
			ReplicaSetName: fmt.Sprintf("shard%02d", i),
		}
		p.Argv = buildMongodArgv(opts, ver, p)
		plan.Processes = append(plan.Processes, p)
	}

	routerBase := base
	var routers []model.ProcessPlan
	for i := 0; i < m; i++ {
		dir := filepath.Join(opts.Dir, fmt.Sprintf("router%02d", i+1))
		p := model.ProcessPlan{
			Dir:    dir,
			Port:   routerBase + i,
			Binary: "mongos",
			Kind:   model.KindRouter,
		}
		p.Argv = buildMongosArgv(opts, ver, p, plan.ConfigDBOpt)
		routers = append(routers, p)
	}
	plan.Processes = append(plan.Processes, routers...)

	return plan, nil
}

// buildMongodArgv assembles a mongod process's full argv: common prefix,
// replSet flag, common args (keyFile), role flags, TLS args, passthrough.
func buildMongodArgv(opts *model.Options, ver *semver.Version, p model.ProcessPlan) []string {
	argv := []string{binaryPath(opts, "mongod"), "--dbpath", p.Dir, "--port", fmt.Sprint(p.Port)}

	if p.ReplicaSetName != "" {
		argv = append(argv, "--replSet", p.ReplicaSetName)
	}

	// A standalone node has no peers to authenticate against, so it never
	// receives a key file -- the orchestrator enables auth on it with a
	// plain --auth flag instead.
	if opts.AuthEnabled() && p.Kind != model.KindStandalone {
		argv = append(argv, "--keyFile", opts.KeyFilePath())
	}

	switch p.Kind {
	case model.KindConfig:
		if p.ReplicaSetName != "" {
			argv = append(argv, "--configsvr")
		}
	case model.KindShard:
		argv = append(argv, "--shardsvr")
	}

	argv = append(argv, tlsArgs(opts, ver)...)

	argv = append(argv, opts.PassthroughArgs...)
	argv = append(argv, opts.MongodPassthroughArgs...)
	if p.Kind == model.KindConfig {
		argv = append(argv, opts.ConfigServerPassthroughArgs...)
	}

	return argv
}

// buildMongosArgv assembles a router's argv: common prefix (no --dbpath),
// common args, --configdb, TLS args, passthrough.
func buildMongosArgv(opts *model.Options, ver *semver.Version, p model.ProcessPlan, configDBOpt string) []string {
	argv := []string{binaryPath(opts, "mongos"), "--port", fmt.Sprint(p.Port)}

	if opts.AuthEnabled() {
		argv = append(argv, "--keyFile", opts.KeyFilePath())
	}

	argv = append(argv, "--configdb", configDBOpt)

	argv = append(argv, tlsArgs(opts, ver)...)

	argv = append(argv, opts.PassthroughArgs...)
	argv = append(argv, opts.MongosPassthroughArgs...)

	return argv
}

// tlsArgs resolves the version-gated TLS flag family once, so nothing
// downstream ever branches on server version again.
func tlsArgs(opts *model.Options, ver *semver.Version) []string {
	if opts.TLSMode == "" {
		return nil
	}

	if !ver.LessThan(tlsThreshold) {
		args := []string{"--tlsMode", opts.TLSMode}
		if opts.TLSCertificateKeyFile != "" {
			args = append(args, "--tlsCertificateKeyFile", opts.TLSCertificateKeyFile)
		}
		if opts.TLSCAFile != "" {
			args = append(args, "--tlsCAFile", opts.TLSCAFile)
		}
		return args
	}

	mode := strings.ReplaceAll(opts.TLSMode, "TLS", "SSL")
	args := []string{"--sslMode", mode}
	if opts.TLSCertificateKeyFile != "" {
		args = append(args, "--sslPEMKeyFile", opts.TLSCertificateKeyFile)
	}
	if opts.TLSCAFile != "" {
		args = append(args, "--sslCAFile", opts.TLSCAFile)
	}
	return args
}

func binaryPath(opts *model.Options, name string) string {
	if opts.BinDir == "" {
		return name
	}
	return filepath.Join(opts.BinDir, name)
}
