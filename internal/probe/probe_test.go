package probe

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/p-mongodb/mongo-manager/internal/model"
)

func TestMode_DirectIsDirect(t *testing.T) {
	m := Direct()
	assert.True(t, m.isDirect())
	assert.Empty(t, m.ReplicaSetName)
}

func TestMode_InReplicaSetIsNotDirect(t *testing.T) {
	m := InReplicaSet("rs0")
	assert.False(t, m.isDirect())
	assert.Equal(t, "rs0", m.ReplicaSetName)
}

func TestBuildTLSConfig_NoFilesIsEmptyConfig(t *testing.T) {
	opts := &model.Options{}
	cfg, err := buildTLSConfig(opts)
	require.NoError(t, err)
	assert.Empty(t, cfg.Certificates)
	assert.Nil(t, cfg.RootCAs)
}

func TestBuildTLSConfig_MissingCertificateKeyFile(t *testing.T) {
	opts := &model.Options{TLSCertificateKeyFile: filepath.Join(t.TempDir(), "missing.pem")}
	_, err := buildTLSConfig(opts)
	assert.Error(t, err)
}

func TestBuildTLSConfig_MissingCAFile(t *testing.T) {
	opts := &model.Options{TLSCAFile: filepath.Join(t.TempDir(), "missing-ca.pem")}
	_, err := buildTLSConfig(opts)
	assert.Error(t, err)
}
