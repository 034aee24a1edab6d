package cli

import (
	"fmt"

	"github.com/aidanlsb/shed/internal/dispatch"
	"github.com/aidanlsb/shed/internal/prototype"
	"github.com/aidanlsb/shed/internal/spawn"
	"github.com/aidanlsb/shed/internal/world"
)

// engine is one world plus the command registry bound to it.
type engine struct {
	catalog *prototype.Catalog
	store   *world.Store
	reg     *dispatch.Registry
	inv     *dispatch.Invoker
}

// catalogPath picks the --catalog flag over the configured catalog.
func catalogPath(flags map[string]interface{}) string {
	if p, _ := flags["catalog"].(string); p != "" {
		return p
	}
	return cfg.Prototypes
}

func newEngine(catalog *prototype.Catalog, policy dispatch.LiftPolicy) (*engine, error) {
	store, err := world.Open(catalog)
	if err != nil {
		return nil, err
	}

	reg := dispatch.NewRegistry()
	if err := spawn.Register(reg, store); err != nil {
		store.Close()
		return nil, fmt.Errorf("register spawn commands: %w", err)
	}
	reg.Seal()

	inv := dispatch.NewInvoker(reg, dispatch.WithPolicy(policy), dispatch.WithLogger(logger))
	return &engine{catalog: catalog, store: store, reg: reg, inv: inv}, nil
}

func (e *engine) Close() error {
	return e.store.Close()
}
