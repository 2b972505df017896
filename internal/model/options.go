package model

import (
	"fmt"
	"path/filepath"
)

// Topology discriminates the three deployment shapes this tool understands.
type Topology string

const (
	TopologyStandalone Topology = "standalone"
	TopologyReplicaSet Topology = "replica_set"
	TopologySharded    Topology = "sharded"
)

// Options is the flat, validated record describing a deployment. It mirrors
// the fields a CLI or config file would set one-to-one; there is no
// inheritance or topology-specific subtype.
type Options struct {
	Dir    string
	BinDir string

	BasePort int

	ReplicaSet string
	Sharded    int
	Mongos     int
	CSRS       bool

	Arbiter          bool
	DataBearingNodes int

	Username string
	Password string

	TLSMode               string
	TLSCertificateKeyFile string
	TLSCAFile             string

	PassthroughArgs             []string
	MongodPassthroughArgs       []string
	MongosPassthroughArgs       []string
	ConfigServerPassthroughArgs []string

	LogLevel string
}

// New applies defaults and normalizes Dir to an absolute path, then
// validates the result. Constraint violations are rejected here, before
// any side effect (directory creation, process spawn) takes place.
func New(o Options) (*Options, error) {
	opts := o

	if opts.Dir != "" {
		abs, err := filepath.Abs(opts.Dir)
		if err != nil {
			return nil, fmt.Errorf("resolve dir: %w", err)
		}
		opts.Dir = abs
	}

	if opts.BasePort == 0 {
		opts.BasePort = 27017
	}
	if opts.Sharded > 0 && opts.Mongos == 0 {
		opts.Mongos = 1
	}
	if opts.ReplicaSet != "" && opts.DataBearingNodes == 0 {
		if opts.Arbiter {
			opts.DataBearingNodes = 2
		} else {
			opts.DataBearingNodes = 3
		}
	}
	if opts.LogLevel == "" {
		opts.LogLevel = "info"
	}

	if err := opts.validate(); err != nil {
		return nil, err
	}
	return &opts, nil
}

func (o *Options) validate() error {
	var violations []string

	if o.Dir == "" {
		violations = append(violations, "dir is required")
	}

	if (o.Username == "") != (o.Password == "") {
		violations = append(violations, "username and password must be set together")
	}

	if o.Arbiter && o.ReplicaSet == "" {
		violations = append(violations, "arbiter requires replica_set")
	}

	if o.DataBearingNodes != 0 && o.ReplicaSet == "" {
		violations = append(violations, "data_bearing_nodes requires replica_set")
	}

	if o.Sharded < 0 {
		violations = append(violations, "sharded must be >= 1 when set")
	}
	if o.Sharded > 0 && o.Mongos < 1 {
		violations = append(violations, "mongos must be >= 1 when sharded")
	}
	if o.ReplicaSet != "" && o.Sharded > 0 {
		violations = append(violations, "replica_set and sharded are mutually exclusive topologies")
	}

	if len(violations) > 0 {
		return &OptionError{Violations: violations}
	}
	return nil
}

// Topology reports which of the three deployment shapes these Options
// select, discriminated purely by ReplicaSet and Sharded.
func (o *Options) Topology() Topology {
	switch {
	case o.Sharded > 0:
		return TopologySharded
	case o.ReplicaSet != "":
		return TopologyReplicaSet
	default:
		return TopologyStandalone
	}
}

// AuthEnabled reports whether a username/password pair was supplied.
func (o *Options) AuthEnabled() bool {
	return o.Username != ""
}

// KeyFilePath is the path of the shared key file this deployment's nodes
// authenticate each other with, when auth is enabled.
func (o *Options) KeyFilePath() string {
	return filepath.Join(o.Dir, ".key")
}
