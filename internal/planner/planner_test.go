package planner

import (
	"fmt"
	"testing"

	"github.com/Masterminds/semver/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/p-mongodb/mongo-manager/internal/model"
)

func mustOptions(t *testing.T, o model.Options) *model.Options {
	opts, err := model.New(o)
	require.NoError(t, err)
	return opts
}

func portsOf(plan *model.Plan) []int {
	var ports []int
	for _, p := range plan.Processes {
		ports = append(ports, p.Port)
	}
	return ports
}

func assertPortsDistinctAndContiguous(t *testing.T, plan *model.Plan, base int) {
	ports := portsOf(plan)
	seen := make(map[int]bool)
	for _, p := range ports {
		assert.False(t, seen[p], "duplicate port %d", p)
		seen[p] = true
		assert.GreaterOrEqual(t, p, base)
		assert.Less(t, p, base+len(ports))
	}
}

func TestPlan_S1_StandaloneNoAuth(t *testing.T) {
	opts := mustOptions(t, model.Options{Dir: "/tmp/d", BasePort: 27017})
	plan, err := Plan(opts, semver.MustParse("7.0.0"))
	require.NoError(t, err)

	require.Len(t, plan.Processes, 1)
	assert.Equal(t, 27017, plan.Processes[0].Port)
	assert.Equal(t, "/tmp/d/standalone", plan.Processes[0].Dir)
	assert.Empty(t, plan.KeyFilePath)
	assert.NotContains(t, plan.Processes[0].Argv, "--auth")
	assert.NotContains(t, plan.Processes[0].Argv, "--keyFile")
}

func TestPlan_S2_StandaloneAuth_NoKeyFile(t *testing.T) {
	opts := mustOptions(t, model.Options{Dir: "/tmp/d", Username: "root", Password: "hunter2"})
	plan, err := Plan(opts, semver.MustParse("7.0.0"))
	require.NoError(t, err)

	assert.Empty(t, plan.KeyFilePath, "standalone does not need a key file")
	assert.NotContains(t, plan.Processes[0].Argv, "--keyFile")
}

func TestPlan_S3_ThreeNodeRS(t *testing.T) {
	opts := mustOptions(t, model.Options{Dir: "/tmp/d", ReplicaSet: "rs0"})
	plan, err := Plan(opts, semver.MustParse("7.0.0"))
	require.NoError(t, err)

	require.Len(t, plan.Processes, 3)
	assert.Equal(t, []int{27017, 27018, 27019}, portsOf(plan))
	for _, p := range plan.Processes {
		assert.Equal(t, "rs0", p.ReplicaSetName)
		assert.Contains(t, p.Argv, "--replSet")
	}
}

func TestPlan_S4_RSWithArbiter(t *testing.T) {
	opts := mustOptions(t, model.Options{Dir: "/tmp/d", ReplicaSet: "rs0", Arbiter: true})
	plan, err := Plan(opts, semver.MustParse("7.0.0"))
	require.NoError(t, err)

	require.Len(t, plan.Processes, 3)
	assert.Equal(t, []int{27017, 27018, 27019}, portsOf(plan))
	assert.True(t, plan.Processes[2].Arbiter)
	assert.Equal(t, "/tmp/d/arbiter", plan.Processes[2].Dir)
}

func TestPlan_S5_Sharded_ModernVersion_Auth(t *testing.T) {
	opts := mustOptions(t, model.Options{
		Dir: "/tmp/d", BasePort: 30000, Sharded: 2, Mongos: 2,
		Username: "u", Password: "p",
	})
	plan, err := Plan(opts, semver.MustParse("6.0.0"))
	require.NoError(t, err)

	require.Len(t, plan.Processes, 5) // 2 routers + 1 config + 2 shards
	assertPortsDistinctAndContiguous(t, plan, 30000)

	assert.Equal(t, "csrs/localhost:30002", plan.ConfigDBOpt)
	assert.NotEmpty(t, plan.KeyFilePath)

	for _, p := range plan.Processes {
		if p.Kind == model.KindRouter {
			assert.Contains(t, p.Argv, "csrs/localhost:30002")
		}
	}
}

func TestPlan_S6_Sharded_OldVersion_StandaloneConfigServer(t *testing.T) {
	opts := mustOptions(t, model.Options{Dir: "/tmp/d", BasePort: 30000, Sharded: 2, Mongos: 2})
	plan, err := Plan(opts, semver.MustParse("3.2.0"))
	require.NoError(t, err)

	assert.Equal(t, "localhost:30002", plan.ConfigDBOpt)

	var config model.ProcessPlan
	for _, p := range plan.Processes {
		if p.Kind == model.KindConfig {
			config = p
		}
	}
	assert.Empty(t, config.ReplicaSetName)
	assert.NotContains(t, config.Argv, "--configsvr")
}

func TestPlan_CSRSForced(t *testing.T) {
	opts := mustOptions(t, model.Options{Dir: "/tmp/d", BasePort: 30000, Sharded: 1, CSRS: true})
	plan, err := Plan(opts, semver.MustParse("3.2.0"))
	require.NoError(t, err)

	assert.Contains(t, plan.ConfigDBOpt, "csrs/")
}

func TestPlan_Invariant_DBDirCount(t *testing.T) {
	cases := []struct {
		name string
		opts model.Options
		want int
	}{
		{"standalone", model.Options{Dir: "/d"}, 1},
		{"rs default", model.Options{Dir: "/d", ReplicaSet: "rs0"}, 3},
		{"rs arbiter", model.Options{Dir: "/d", ReplicaSet: "rs0", Arbiter: true}, 3},
		{"sharded", model.Options{Dir: "/d", Sharded: 3, Mongos: 2}, 1 + 3 + 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			opts := mustOptions(t, tc.opts)
			plan, err := Plan(opts, semver.MustParse("7.0.0"))
			require.NoError(t, err)
			assert.Len(t, plan.Processes, tc.want)
		})
	}
}

func TestPlan_Invariant_PidLogPathsMatchBasename(t *testing.T) {
	opts := mustOptions(t, model.Options{Dir: "/tmp/d", Sharded: 1, Mongos: 1})
	plan, err := Plan(opts, semver.MustParse("7.0.0"))
	require.NoError(t, err)

	for _, p := range plan.Processes {
		assert.Equal(t, fmt.Sprintf("%s/%s.pid", p.Dir, p.Binary), p.PidPath())
		assert.Equal(t, fmt.Sprintf("%s/%s.log", p.Dir, p.Binary), p.LogPath())
	}
}

func TestPlan_KeyFilePresentOnEveryNodeIffAuth(t *testing.T) {
	withAuth := mustOptions(t, model.Options{Dir: "/tmp/d", Sharded: 1, Mongos: 1, Username: "u", Password: "p"})
	plan, err := Plan(withAuth, semver.MustParse("7.0.0"))
	require.NoError(t, err)
	for _, p := range plan.Processes {
		assert.Contains(t, p.Argv, "--keyFile")
	}

	noAuth := mustOptions(t, model.Options{Dir: "/tmp/d", Sharded: 1, Mongos: 1})
	plan2, err := Plan(noAuth, semver.MustParse("7.0.0"))
	require.NoError(t, err)
	for _, p := range plan2.Processes {
		assert.NotContains(t, p.Argv, "--keyFile")
	}
}

func TestTLSArgs_ModernVersion(t *testing.T) {
	opts := mustOptions(t, model.Options{
		Dir: "/tmp/d", TLSMode: "requireTLS",
		TLSCertificateKeyFile: "/certs/server.pem", TLSCAFile: "/certs/ca.pem",
	})
	plan, err := Plan(opts, semver.MustParse("4.2.0"))
	require.NoError(t, err)

	argv := plan.Processes[0].Argv
	assert.Contains(t, argv, "--tlsMode")
	assert.Contains(t, argv, "requireTLS")
	assert.Contains(t, argv, "--tlsCertificateKeyFile")
	assert.NotContains(t, argv, "--sslMode")
}

func TestTLSArgs_LegacyVersionRewritesModeString(t *testing.T) {
	opts := mustOptions(t, model.Options{
		Dir: "/tmp/d", TLSMode: "requireTLS",
		TLSCertificateKeyFile: "/certs/server.pem",
	})
	plan, err := Plan(opts, semver.MustParse("4.0.0"))
	require.NoError(t, err)

	argv := plan.Processes[0].Argv
	assert.Contains(t, argv, "--sslMode")
	assert.Contains(t, argv, "requireSSL")
	assert.Contains(t, argv, "--sslPEMKeyFile")
	assert.NotContains(t, argv, "--tlsMode")
}

func TestPassthroughArgs_AppliedToMatchingClasses(t *testing.T) {
	opts := mustOptions(t, model.Options{
		Dir: "/tmp/d", Sharded: 1, Mongos: 1,
		PassthroughArgs:             []string{"--quiet"},
		MongodPassthroughArgs:       []string{"--wiredTigerCacheSizeGB", "1"},
		MongosPassthroughArgs:       []string{"--maxConns", "100"},
		ConfigServerPassthroughArgs: []string{"--configsvrModeFlag"},
	})
	plan, err := Plan(opts, semver.MustParse("7.0.0"))
	require.NoError(t, err)

	for _, p := range plan.Processes {
		assert.Contains(t, p.Argv, "--quiet")
		switch p.Kind {
		case model.KindConfig:
			assert.Contains(t, p.Argv, "--configsvrModeFlag")
			assert.Contains(t, p.Argv, "--wiredTigerCacheSizeGB")
		case model.KindShard:
			assert.Contains(t, p.Argv, "--wiredTigerCacheSizeGB")
			assert.NotContains(t, p.Argv, "--configsvrModeFlag")
		case model.KindRouter:
			assert.Contains(t, p.Argv, "--maxConns")
			assert.NotContains(t, p.Argv, "--wiredTigerCacheSizeGB")
		}
	}
}
