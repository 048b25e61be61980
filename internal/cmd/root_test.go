package cmd

import (
	"context"
	"testing"

	"github.com/fulmenhq/gofulmen/appidentity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamrand/streamrand/internal/appid"
)

func TestApplyIdentityBrandsRootCommand(t *testing.T) {
	identity, err := appid.Get(context.Background())
	require.NoError(t, err)

	applyIdentity(identity)

	assert.Equal(t, "streamrand", rootCmd.Use)
	assert.Equal(t, identity.Description, rootCmd.Short)
	assert.Contains(t, rootCmd.Long, "--source")
	assert.Contains(t, rootCmd.PersistentFlags().Lookup("config").Usage, "streamrand/config.yaml")
	assert.Same(t, identity, GetAppIdentity())
}

func TestApplyIdentityKeepsDefaultsForSparseIdentity(t *testing.T) {
	original := GetAppIdentity()
	use, short := rootCmd.Use, rootCmd.Short
	t.Cleanup(func() {
		appIdentity = original
		rootCmd.Use, rootCmd.Short = use, short
	})

	applyIdentity(&appidentity.Identity{EnvPrefix: "STREAMRAND_"})

	assert.Equal(t, use, rootCmd.Use)
	assert.Equal(t, short, rootCmd.Short)
}

func TestRootRegistersCommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"serve", "keys", "sources", "rate-limit", "health", "envinfo", "version"} {
		assert.True(t, names[want], "missing %s command", want)
	}
}
