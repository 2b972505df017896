package store

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/p-mongodb/mongo-manager/internal/model"
)

func readRaw(dir string) (string, error) {
	data, err := os.ReadFile(Path(dir))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	dir := t.TempDir()

	d := &model.Descriptor{
		Sharded: 2,
		Mongos:  2,
		DBDirs:  []string{dir + "/csrs", dir + "/shard01", dir + "/shard02", dir + "/router01", dir + "/router02"},
		Settings: map[string]model.ProcessSettings{
			dir + "/csrs": {StartCmd: []string{"/usr/bin/mongod", "--dbpath", dir + "/csrs", "--port", "30002"}, Role: "mongod", Kind: "config"},
		},
	}

	require.NoError(t, Save(dir, d))

	loaded, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, d.DBDirs, loaded.DBDirs)
	assert.Equal(t, int(d.Sharded), int(loaded.Sharded))
	assert.Equal(t, d.Mongos, loaded.Mongos)
	assert.Equal(t, d.Settings[dir+"/csrs"].StartCmd, loaded.Settings[dir+"/csrs"].StartCmd)
}

func TestSaveLoad_StandaloneShardedIsFalse(t *testing.T) {
	dir := t.TempDir()
	d := &model.Descriptor{
		DBDirs: []string{dir + "/standalone"},
		Settings: map[string]model.ProcessSettings{
			dir + "/standalone": {StartCmd: []string{"/usr/bin/mongod", "--port", "27017"}},
		},
	}

	require.NoError(t, Save(dir, d))

	data, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, model.ShardedField(0), data.Sharded)

	raw, err := readRaw(dir)
	require.NoError(t, err)
	assert.Contains(t, raw, "sharded: false")
}

func TestLoad_MissingDescriptor(t *testing.T) {
	dir := t.TempDir()
	_, err := Load(dir)
	assert.Error(t, err)
}
