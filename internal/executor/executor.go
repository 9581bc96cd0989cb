// Package executor drives refresh cycles: debounced entry, stale-then-
// fresh two-phase rendering, provider fan-out with a pending-counter
// barrier, per-cycle timeout, and policy skips.
package executor

import (
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/funclens/funclens/internal/config"
	"github.com/funclens/funclens/internal/discover"
	"github.com/funclens/funclens/internal/discovery"
	"github.com/funclens/funclens/internal/host"
	"github.com/funclens/funclens/internal/model"
	"github.com/funclens/funclens/internal/presenter"
	"github.com/funclens/funclens/internal/provider"
)

// RenderFunc receives the merged lens lines for one phase of a refresh
// cycle. The stale-phase call, when it happens, always precedes the
// fresh-phase call of the same cycle.
type RenderFunc func(buf host.Buffer, phase model.Phase, lenses []model.RenderedLens)

// Executor orchestrates discovery and provider fan-out per buffer. At
// most one cycle runs per buffer; a refresh arriving while a cycle is
// collecting is coalesced (dropped), bounding concurrent work.
type Executor struct {
	profile  *config.Profile
	registry *provider.Registry
	disc     *discovery.Service
	excluder *discover.Excluder
	logger   *log.Logger
	render   RenderFunc

	mu       sync.Mutex
	cycles   map[model.BufferID]*cycle
	debounce map[model.BufferID]*time.Timer
}

// cycle tracks one in-flight refresh for one buffer. The pointer itself
// is the generation token: completions reaching a finished cycle are
// no-ops and can never touch a later cycle's state.
type cycle struct {
	id        string
	buf       host.Buffer
	pending   int
	collected map[string][]model.LensItem
	timer     *time.Timer
	started   bool // fresh fan-out has begun
	done      bool
}

// New creates an executor.
func New(profile *config.Profile, registry *provider.Registry, disc *discovery.Service, excluder *discover.Excluder, render RenderFunc, logger *log.Logger) *Executor {
	return &Executor{
		profile:  profile,
		registry: registry,
		disc:     disc,
		excluder: excluder,
		logger:   logger,
		render:   render,
		cycles:   make(map[model.BufferID]*cycle),
		debounce: make(map[model.BufferID]*time.Timer),
	}
}

// Refresh schedules a debounced refresh for buf. Rapid successive calls
// collapse into one cycle.
func (e *Executor) Refresh(buf host.Buffer) {
	d := time.Duration(e.profile.DebounceMs) * time.Millisecond
	if d == 0 {
		e.RefreshNow(buf)
		return
	}
	e.mu.Lock()
	if t, ok := e.debounce[buf.ID()]; ok {
		t.Stop()
	}
	e.debounce[buf.ID()] = time.AfterFunc(d, func() {
		e.mu.Lock()
		delete(e.debounce, buf.ID())
		e.mu.Unlock()
		e.RefreshNow(buf)
	})
	e.mu.Unlock()
}

// RefreshNow starts a refresh cycle immediately (no debounce).
func (e *Executor) RefreshNow(buf host.Buffer) {
	if !buf.Valid() {
		return
	}
	if skip, reason := e.policySkip(buf); skip {
		e.logger.Debug("policy skip", "path", buf.Path(), "reason", reason)
		return
	}

	c := &cycle{
		id:        uuid.NewString(),
		buf:       buf,
		collected: make(map[string][]model.LensItem),
	}

	e.mu.Lock()
	if _, inFlight := e.cycles[buf.ID()]; inFlight {
		e.mu.Unlock()
		e.logger.Debug("refresh coalesced", "buffer", int(buf.ID()))
		return
	}
	e.cycles[buf.ID()] = c
	e.mu.Unlock()

	e.logger.Debug("cycle start", "cycle", c.id, "buffer", int(buf.ID()), "tag", buf.ChangeTag())

	// Stale pass: anything cached for this buffer, tag-valid or not,
	// renders immediately from whatever resolves synchronously.
	if funcs, ok := e.disc.Cached(buf.ID()); ok {
		e.renderPhase(c, model.PhaseStale, e.staleCollect(buf, funcs))
	}

	// Authoritative pass.
	e.disc.Discover(buf, func(funcs []model.Func) {
		e.beginCollect(c, funcs)
	})
}

// CloseBuffer drops any in-flight cycle and pending debounce for id and
// force-evicts its discovery cache entry. Wired to host close events.
func (e *Executor) CloseBuffer(id model.BufferID) {
	e.mu.Lock()
	if t, ok := e.debounce[id]; ok {
		t.Stop()
		delete(e.debounce, id)
	}
	if c, ok := e.cycles[id]; ok {
		c.done = true
		if c.timer != nil {
			c.timer.Stop()
		}
		delete(e.cycles, id)
	}
	e.mu.Unlock()
	e.disc.Cache().Invalidate(id)
}

func (e *Executor) policySkip(buf host.Buffer) (bool, string) {
	if n := buf.LineCount(); n > e.profile.Limits.MaxLines {
		return true, "max_lines"
	}
	if e.excluder != nil && e.excluder.Excluded(buf.Path()) {
		return true, "excluded"
	}
	return false, ""
}

// staleCollect invokes every enabled provider for every cached function
// and keeps only contributions that resolve immediately. Deferred
// completions from this pass are discarded.
func (e *Executor) staleCollect(buf host.Buffer, funcs []model.Func) map[string][]model.LensItem {
	collected := make(map[string][]model.LensItem)
	for _, fn := range funcs {
		for _, reg := range e.registry.Providers() {
			item, outcome := e.call(reg, buf, fn, func(*model.LensItem) {})
			if outcome == provider.Immediate && item != nil {
				collected[reg.Name] = append(collected[reg.Name], *item)
			}
		}
	}
	return collected
}

// beginCollect starts the fresh fan-out once discovery resolves.
func (e *Executor) beginCollect(c *cycle, funcs []model.Func) {
	e.mu.Lock()
	if c.done {
		e.mu.Unlock()
		return
	}
	c.started = true
	c.pending = len(funcs) * e.registry.Len()
	if c.pending == 0 {
		e.mu.Unlock()
		e.finish(c, false)
		return
	}
	timeout := time.Duration(e.profile.ProviderTimeoutMs) * time.Millisecond
	c.timer = time.AfterFunc(timeout, func() {
		e.finish(c, true)
	})
	e.mu.Unlock()

	// Declared configuration order, per function.
	for _, fn := range funcs {
		for _, reg := range e.registry.Providers() {
			reg := reg
			name := reg.Name
			item, outcome := e.call(reg, c.buf, fn, func(item *model.LensItem) {
				e.complete(c, name, item)
			})
			if outcome == provider.Immediate {
				e.complete(c, name, item)
			}
		}
	}
}

// call invokes one handler with panic containment. A panicking handler
// contributes nothing and is treated as immediately completed.
func (e *Executor) call(reg provider.Registration, buf host.Buffer, fn model.Func, complete func(*model.LensItem)) (item *model.LensItem, outcome provider.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn("provider handler failed", "provider", reg.Name, "function", fn.Name, "err", r)
			item = nil
			outcome = provider.Immediate
		}
	}()
	return reg.Handler(buf, fn, reg.Config, complete)
}

// complete records one handler result. Completions arriving after the
// cycle finished (timeout fired, buffer closed) are discarded.
func (e *Executor) complete(c *cycle, providerName string, item *model.LensItem) {
	e.mu.Lock()
	if c.done || !c.started {
		e.mu.Unlock()
		return
	}
	if item != nil {
		c.collected[providerName] = append(c.collected[providerName], *item)
	}
	c.pending--
	last := c.pending == 0
	e.mu.Unlock()

	if last {
		e.finish(c, false)
	}
}

// finish closes the cycle and runs the fresh render with whatever has
// been collected, possibly nothing when the timeout won the race.
func (e *Executor) finish(c *cycle, timedOut bool) {
	e.mu.Lock()
	if c.done {
		e.mu.Unlock()
		return
	}
	c.done = true
	if c.timer != nil {
		c.timer.Stop()
	}
	collected := c.collected
	pending := c.pending
	e.mu.Unlock()

	if timedOut {
		e.logger.Debug("cycle timeout", "cycle", c.id, "pending", pending)
	}
	e.renderPhase(c, model.PhaseFresh, collected)

	e.mu.Lock()
	if e.cycles[c.buf.ID()] == c {
		delete(e.cycles, c.buf.ID())
	}
	e.mu.Unlock()
}

// renderPhase merges collected items and hands them to the render
// callback, unless the lens-count ceiling suppresses the whole cycle.
func (e *Executor) renderPhase(c *cycle, phase model.Phase, collected map[string][]model.LensItem) {
	combined := presenter.Combine(collected, e.profile.Providers)
	lenses := presenter.Lenses(combined)
	if len(lenses) > e.profile.Limits.MaxLenses {
		e.logger.Debug("policy skip", "cycle", c.id, "reason", "max_lenses", "count", len(lenses))
		return
	}
	e.logger.Debug("render", "cycle", c.id, "phase", phase.String(), "lenses", len(lenses))
	e.render(c.buf, phase, lenses)
}
