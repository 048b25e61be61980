// Package appid resolves the application identity (binary name, env prefix,
// config name). A copy of .fulmen/app.yaml is compiled in so an installed
// binary works outside the repository.
package appid

import (
	"context"
	_ "embed"

	"github.com/fulmenhq/gofulmen/appidentity"
)

// DefaultEnvPrefix is used when no identity can be resolved.
const DefaultEnvPrefix = "STREAMRAND_"

// embedded mirrors .fulmen/app.yaml.
//
//go:embed app.yaml
var embedded []byte

func init() {
	// FULMEN_APP_IDENTITY_PATH and an on-disk .fulmen/app.yaml still win.
	_ = appidentity.RegisterEmbeddedIdentityYAML(embedded)
}

// Get returns the process identity.
func Get(ctx context.Context) (*appidentity.Identity, error) {
	return appidentity.Get(ctx)
}

// EnvPrefix returns the identity's environment prefix, or DefaultEnvPrefix.
func EnvPrefix(ctx context.Context) string {
	identity, err := appidentity.Get(ctx)
	if err != nil || identity == nil || identity.EnvPrefix == "" {
		return DefaultEnvPrefix
	}
	return identity.EnvPrefix
}
