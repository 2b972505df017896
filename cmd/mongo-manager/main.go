// Command mongo-manager provisions and manages local MongoDB deployments
// for testing: a standalone server, a replica set, or a sharded cluster.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/p-mongodb/mongo-manager/internal/logging"
	"github.com/p-mongodb/mongo-manager/internal/model"
	"github.com/p-mongodb/mongo-manager/internal/orchestrator"
	"github.com/p-mongodb/mongo-manager/internal/store"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "init":
		err = runInit(os.Args[2:])
	case "start":
		err = runStart(os.Args[2:])
	case "stop":
		err = runStop(os.Args[2:])
	default:
		usage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: mongo-manager <init|start|stop> --dir PATH [flags]")
}

func runInit(args []string) error {
	fs := flag.NewFlagSet("init", flag.ExitOnError)

	dir := fs.String("dir", "", "deployment directory (required)")
	binDir := fs.String("bin-dir", "", "directory containing mongod/mongos, defaults to PATH")
	basePort := fs.Int("base-port", 0, "first port allocated (default 27017)")
	replicaSet := fs.String("replica-set", "", "replica set name; selects the replica-set topology")
	sharded := fs.Int("sharded", 0, "number of shards; selects the sharded topology")
	mongos := fs.Int("mongos", 0, "number of routers (sharded only, default 1)")
	csrs := fs.Bool("csrs", false, "force the config server to run as a replica set")
	arbiter := fs.Bool("arbiter", false, "add an arbiter (replica set only)")
	dataBearingNodes := fs.Int("data-bearing-nodes", 0, "data-bearing replica set members (default 3, or 2 with --arbiter)")
	username := fs.String("username", "", "root user to create; enables auth")
	password := fs.String("password", "", "password for --username")
	tlsMode := fs.String("tls-mode", "", "TLS mode, e.g. requireTLS")
	tlsCertKeyFile := fs.String("tls-certificate-key-file", "", "combined PEM cert+key file")
	tlsCAFile := fs.String("tls-ca-file", "", "CA file")
	logLevel := fs.String("log-level", "", "zerolog level (default info)")

	var passthrough, mongodPassthrough, mongosPassthrough, configPassthrough stringList
	fs.Var(&passthrough, "extra-arg", "extra argv appended to every mongod and mongos (repeatable)")
	fs.Var(&mongodPassthrough, "extra-mongod-arg", "extra argv appended to every mongod (repeatable)")
	fs.Var(&mongosPassthrough, "extra-mongos-arg", "extra argv appended to every mongos (repeatable)")
	fs.Var(&configPassthrough, "extra-configsvr-arg", "extra argv appended to the config server only (repeatable)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	opts, err := model.New(model.Options{
		Dir:                         *dir,
		BinDir:                      *binDir,
		BasePort:                    *basePort,
		ReplicaSet:                  *replicaSet,
		Sharded:                     *sharded,
		Mongos:                      *mongos,
		CSRS:                        *csrs,
		Arbiter:                     *arbiter,
		DataBearingNodes:            *dataBearingNodes,
		Username:                    *username,
		Password:                    *password,
		TLSMode:                     *tlsMode,
		TLSCertificateKeyFile:       *tlsCertKeyFile,
		TLSCAFile:                   *tlsCAFile,
		PassthroughArgs:             passthrough,
		MongodPassthroughArgs:       mongodPassthrough,
		MongosPassthroughArgs:       mongosPassthrough,
		ConfigServerPassthroughArgs: configPassthrough,
		LogLevel:                    *logLevel,
	})
	if err != nil {
		return err
	}

	logger := logging.New(opts, "")
	return orchestrator.New(logger, opts).Init(context.Background(), opts)
}

func runStart(args []string) error {
	fs := flag.NewFlagSet("start", flag.ExitOnError)
	dir := fs.String("dir", "", "deployment directory (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *dir == "" {
		return fmt.Errorf("--dir is required")
	}

	logger := logging.New(&model.Options{Dir: *dir}, "")
	return orchestrator.New(logger, &model.Options{Dir: *dir}).Start(context.Background(), *dir)
}

func runStop(args []string) error {
	fs := flag.NewFlagSet("stop", flag.ExitOnError)
	dir := fs.String("dir", "", "deployment directory (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *dir == "" {
		return fmt.Errorf("--dir is required")
	}

	// Stop only needs the Spawner/ConfigStore, but the Orchestrator is
	// cheap to build and keeps the dispatch surface uniform across
	// subcommands.
	_, err := store.Load(*dir)
	if err != nil {
		return fmt.Errorf("load descriptor: %w", err)
	}

	logger := logging.New(&model.Options{Dir: *dir}, "")
	return orchestrator.New(logger, &model.Options{Dir: *dir}).Stop(context.Background(), *dir)
}

// stringList accumulates repeated -flag values into a slice.
type stringList []string

func (s *stringList) String() string { return fmt.Sprint(*s) }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}
