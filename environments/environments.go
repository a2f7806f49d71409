// Package environments ships the known deployments of the account API and
// registers them under the "environment" pluggable type. The production
// environment carries priority 10 and wins automatic selection; the atlas
// test environment has no priority and is only reachable by name or
// through an override.
package environments

import (
	"fmt"
	"os"
	"strings"

	"github.com/goliatone/go-session/core"
	"github.com/goliatone/go-session/registry"
)

// TypeName is the pluggable type environments register under.
const TypeName = "environment"

// AtlasURLEnvVar points the atlas environment at a scientist deployment.
const AtlasURLEnvVar = "SESSION_ATLAS_URL"

func init() {
	registry.Announce(TypeName, "prod", func() (registry.Component, error) {
		return Prod{}, nil
	})
	registry.Announce(TypeName, "atlas", func() (registry.Component, error) {
		return Atlas{}, nil
	})
}

// Prod is the production deployment.
type Prod struct {
	registry.AlwaysValid
}

func (Prod) Priority() (int, bool) { return 10, true }

func (Prod) Name() string { return "prod" }

func (Prod) BaseURL() string { return "https://api.protonvpn.ch" }

func (Prod) ExtraHeaders() map[string]string { return nil }

func (Prod) TLSPinningHashes() []string {
	return []string{
		"drtmcR2kFkM8qJClsuWgUzxgBkePfRCkRpqUesyDmeE=",
		"YRGlaY0jyJ4Jw2/4M8FIftwbDIQfh8Sdro96CeEel54=",
		"AfMENBVvOS8MnISprtvyPsjKlPooqh8nMB/pvCrpJpw=",
	}
}

func (Prod) TLSPinningHashesAR() []string {
	return []string{
		"EU6TS9MO0L/GsDHvVc9D5fChYLNy5JdGYpJw0ccgetM=",
		"iKPIHPnDNqdkvOnTClQ8zQAIKG0XavaPkcEo0LBAABA=",
		"MSlVrBCdL0hKyczvgYVSRNm88RicyY04Q2y5qrBt0xA=",
		"C2UxW0T1Ckl9s+8cXfjXxlEqwAfPM4HiW2y3UdtBeCw=",
	}
}

// Atlas targets a disposable test deployment named by SESSION_ATLAS_URL.
// It never participates in automatic selection.
type Atlas struct{}

func (Atlas) Priority() (int, bool) { return 0, false }

// Validate accepts only when a deployment URL is configured.
func (Atlas) Validate(map[string]any) bool {
	return strings.TrimSpace(os.Getenv(AtlasURLEnvVar)) != ""
}

func (Atlas) Name() string { return "atlas" }

func (Atlas) BaseURL() string {
	if url := strings.TrimSpace(os.Getenv(AtlasURLEnvVar)); url != "" {
		return url
	}
	return "https://atlas.protonvpn.ch"
}

func (Atlas) ExtraHeaders() map[string]string { return nil }

// Atlas deployments use throwaway certificates; nothing to pin.
func (Atlas) TLSPinningHashes() []string { return nil }

func (Atlas) TLSPinningHashesAR() []string { return nil }

// FromName resolves a registered environment by its logical name.
func FromName(name string) (core.Environment, error) {
	component, err := registry.Get(TypeName, registry.WithName(name))
	if err != nil {
		return nil, err
	}
	environment, ok := component.(core.Environment)
	if !ok {
		return nil, core.NewUsageError(fmt.Sprintf(
			"environments: %q does not implement the environment contract", name,
		))
	}
	return environment, nil
}

// Default resolves the preferred environment through the registry.
func Default() (core.Environment, error) {
	component, err := registry.Get(TypeName)
	if err != nil {
		return nil, err
	}
	environment, ok := component.(core.Environment)
	if !ok {
		return nil, core.NewUsageError(
			"environments: selected implementation does not implement the environment contract",
		)
	}
	return environment, nil
}

var (
	_ core.Environment   = Prod{}
	_ core.Environment   = Atlas{}
	_ registry.Component = Prod{}
	_ registry.Component = Atlas{}
)
