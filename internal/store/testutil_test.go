package store

import (
	"testing"

	"github.com/stretchr/testify/require"

	"carbonis/internal/ids"
	"carbonis/internal/nodeconfig"
)

// newTestConfig builds a config backed by 8 fresh temp directories and a
// freshly generated node key, the store-level analogue of the config
// t.TempDir() already gives every other test in this package.
func newTestConfig(t *testing.T) *nodeconfig.Config {
	t.Helper()
	sk, err := ids.GeneratePrivateKey()
	require.NoError(t, err)

	cfg := &nodeconfig.Config{PrivateKey: sk}
	for i := range cfg.Volumes {
		cfg.Volumes[i] = nodeconfig.Volume{Path: t.TempDir(), AllocatedMiB: 1024}
	}
	return cfg
}

func newTestPK(t *testing.T) ids.PublicKey {
	t.Helper()
	sk, err := ids.GeneratePrivateKey()
	require.NoError(t, err)
	return sk.PubKey()
}
