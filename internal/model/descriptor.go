package model

import "gopkg.in/yaml.v3"

// ShardedField round-trips the descriptor's "sharded" field, which is an
// integer shard count for sharded deployments and the literal `false` for
// standalone/replica-set ones -- matching how the original options record
// is either "absent" or "a positive integer".
type ShardedField int

func (f ShardedField) MarshalYAML() (any, error) {
	if f == 0 {
		return false, nil
	}
	return int(f), nil
}

func (f *ShardedField) UnmarshalYAML(node *yaml.Node) error {
	var asBool bool
	if err := node.Decode(&asBool); err == nil {
		*f = 0
		return nil
	}
	var asInt int
	if err := node.Decode(&asInt); err != nil {
		return err
	}
	*f = ShardedField(asInt)
	return nil
}

// ProcessSettings is the persisted start command for one deployment
// directory, recorded once at init time so start/stop never needs the
// Planner again.
type ProcessSettings struct {
	StartCmd []string `yaml:"start_cmd"`
	Role     string   `yaml:"role,omitempty"`
	Kind     string   `yaml:"kind,omitempty"`
}

// Descriptor is the on-disk deployment record, "mongo-manager.yml".
// DBDirs order is semantically meaningful: it is start order, and its
// reverse is stop order.
type Descriptor struct {
	Sharded  ShardedField               `yaml:"sharded"`
	Mongos   int                        `yaml:"mongos,omitempty"`
	DBDirs   []string                   `yaml:"db_dirs"`
	Settings map[string]ProcessSettings `yaml:"settings"`
}

// AddProcess appends dir to DBDirs (preserving insertion order) and
// records its start command and diagnostic tags in Settings.
func (d *Descriptor) AddProcess(dir string, startCmd []string, role, kind string) {
	d.DBDirs = append(d.DBDirs, dir)
	if d.Settings == nil {
		d.Settings = make(map[string]ProcessSettings)
	}
	d.Settings[dir] = ProcessSettings{
		StartCmd: startCmd,
		Role:     role,
		Kind:     kind,
	}
}
