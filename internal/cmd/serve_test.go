package cmd

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamrand/streamrand/internal/entropy"
	"github.com/streamrand/streamrand/internal/server/handlers"
)

type constantSegments struct{}

func (constantSegments) Fetch(context.Context, entropy.Source) ([]byte, error) {
	return []byte{0, 0, 0, 0, 0, 0, 0, 0}, nil
}

func TestCatalogHealthCheckerEmptyCatalog(t *testing.T) {
	checker := catalogHealthChecker{catalog: entropy.NewStaticCatalog()}

	assert.ErrorIs(t, checker.CheckHealth(context.Background()), entropy.ErrEmptyCatalog)
}

func TestCatalogHealthCheckerReportsRepeatingSource(t *testing.T) {
	catalog := entropy.NewStaticCatalog(entropy.Source{URL: "https://streams.example/a.m3u8"})
	rotation := entropy.NewRotation(catalog, constantSegments{})
	checker := catalogHealthChecker{catalog: catalog, rotation: rotation}

	require.NoError(t, checker.CheckHealth(context.Background()))

	for i := 0; i < entropy.WindowSize; i++ {
		_, err := rotation.NextBytes(context.Background())
		require.NoError(t, err)
	}

	err := checker.CheckHealth(context.Background())
	var degraded *handlers.DegradedError
	require.ErrorAs(t, err, &degraded)
	assert.Contains(t, err.Error(), "entropy source 0")
}
