// Package provider defines the lens data-source registry and the
// built-in providers (references, diagnostics, last_author, complexity).
package provider

import (
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/funclens/funclens/internal/config"
	"github.com/funclens/funclens/internal/host"
	"github.com/funclens/funclens/internal/model"
)

// Outcome discriminates the two handler calling conventions. A handler
// either returns Immediate with its item (possibly nil for "no
// contribution") or returns Deferred and later resolves through the
// supplied completion callback, never both for the same call.
type Outcome int

const (
	Immediate Outcome = iota
	Deferred
)

// HandlerFunc computes one lens contribution for one function. complete
// must be invoked exactly once if and only if the returned outcome is
// Deferred. Handlers must never trigger a top-level refresh from within
// themselves.
type HandlerFunc func(buf host.Buffer, fn model.Func, cfg config.Provider, complete func(*model.LensItem)) (*model.LensItem, Outcome)

// Registration is one enabled data source: unique name, handler, and
// its resolved configuration blob. Constructed at setup, never mutated
// by the executor.
type Registration struct {
	Name    string
	Handler HandlerFunc
	Config  config.Provider
}

// Registry holds enabled providers in configuration order. Invocation
// and merge order follow this ordering.
type Registry struct {
	regs []Registration
}

// NewRegistry builds a registry directly from registrations, in the
// given order. Embedding hosts use this to register custom providers.
func NewRegistry(regs ...Registration) *Registry {
	return &Registry{regs: regs}
}

// Providers returns the registrations in declared order.
func (r *Registry) Providers() []Registration {
	return r.regs
}

// Len returns the number of enabled providers.
func (r *Registry) Len() int {
	return len(r.regs)
}

// Deps carries the collaborators built-in providers may need.
type Deps struct {
	Logger      *log.Logger
	Root        string
	Style       config.Style
	Diagnostics host.DiagnosticSource
}

// Factory constructs a provider registration from its configuration.
type Factory func(deps Deps, cfg config.Provider) (Registration, error)

// builtins maps provider names to their factories.
var builtins = map[string]Factory{
	"references":  newReferences,
	"diagnostics": newDiagnostics,
	"last_author": newLastAuthor,
	"complexity":  newComplexity,
}

// Build constructs a Registry from a profile, preserving declared order
// and skipping disabled entries. An unknown provider name is a setup
// error.
func Build(profile *config.Profile, deps Deps) (*Registry, error) {
	r := &Registry{}
	for i := range profile.Providers {
		pc := profile.Providers[i]
		if !pc.On() {
			continue
		}
		factory, ok := builtins[pc.Name]
		if !ok {
			return nil, fmt.Errorf("unknown provider %q", pc.Name)
		}
		reg, err := factory(deps, pc)
		if err != nil {
			return nil, fmt.Errorf("provider %q: %w", pc.Name, err)
		}
		r.regs = append(r.regs, reg)
	}
	return r, nil
}

// Names lists the built-in provider names (for the CLI).
func Names() []string {
	return []string{"references", "diagnostics", "last_author", "complexity"}
}
