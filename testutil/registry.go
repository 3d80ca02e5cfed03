package testutil

import (
	"time"

	"github.com/skosovsky/finagent"
)

// NewTestRegistry returns a Registry with long timeout and panic recovery enabled,
// suitable for tests. It panics if any tool fails to register.
func NewTestRegistry(tools ...finagent.Tool) *finagent.Registry {
	reg := finagent.NewRegistry(
		finagent.WithDefaultTimeout(30*time.Second),
		finagent.WithRecoverPanics(true),
	)
	reg.MustRegister(tools...)
	return reg
}
