// Package lifecycle implements the Signal & Lifecycle Controller (C8):
// the process-wide PROCESSING flag the worker's poll loop gates on, and
// a control-action router that flips it in response to OS signals (or
// any other caller-driven control channel) per spec.md §4.5.
//
// Grounded on the teacher's internal/cli.coordinator_cmd.go
// signal.Notify/select/signal.Stop shutdown shape, generalized from a
// one-shot wait into a standing dispatcher since this controller must
// keep routing actions for the worker's entire run, and on
// internal/ratelimit/coordinator's split between the thing that owns
// mutable state (Server) and the thing that reacts to external signals
// (coordinator_cmd.go) — here both halves are small enough to live in
// one package.
package lifecycle

import (
	"os"
	"os/signal"
	"sync"
	"sync/atomic"

	"github.com/Electrostatics/apbs-aws/internal/logging"
)

// Action is one of the control actions spec.md §4.5's table recognizes.
type Action string

const (
	ActionToggle Action = "toggle"
	ActionReload Action = "reload"
	ActionStop   Action = "stop"
	ActionHelp   Action = "help"
)

// Controller owns PROCESSING and dispatches control actions to it.
// Word-sized atomic semantics suffice per spec.md §5: PROCESSING is set
// by the control channel and read by the worker's loop header.
type Controller struct {
	processing atomic.Bool

	stopCh   chan struct{}
	stopOnce sync.Once

	log *logging.Logger

	// onReload and onHelp are invoked synchronously by Do; nil is a no-op.
	// onReload re-reads configuration (spec.md §6); onHelp dumps current
	// configuration and PROCESSING to stderr.
	onReload func()
	onHelp   func()
}

// New returns a Controller with PROCESSING initially true, per spec.md
// §4.5. onReload and onHelp may be nil.
func New(log *logging.Logger, onReload, onHelp func()) *Controller {
	c := &Controller{
		stopCh:   make(chan struct{}),
		log:      log,
		onReload: onReload,
		onHelp:   onHelp,
	}
	c.processing.Store(true)
	return c
}

// IsProcessing reports the current PROCESSING value.
func (c *Controller) IsProcessing() bool {
	return c.processing.Load()
}

// Stopped returns a channel closed once the "stop" action has fired.
func (c *Controller) Stopped() <-chan struct{} {
	return c.stopCh
}

// Do applies a control action, per spec.md §4.5's action table.
func (c *Controller) Do(action Action) {
	switch action {
	case ActionToggle:
		next := !c.processing.Load()
		c.processing.Store(next)
		c.log.Info().Bool("processing", next).Msg("lifecycle: toggled")

	case ActionReload:
		if c.onReload != nil {
			c.onReload()
		}
		c.log.Info().Msg("lifecycle: configuration reloaded")

	case ActionStop:
		c.stopOnce.Do(func() { close(c.stopCh) })
		c.log.Info().Msg("lifecycle: stop requested")

	case ActionHelp:
		if c.onHelp != nil {
			c.onHelp()
		}

	default:
		c.log.Warn().Str("action", string(action)).Msg("lifecycle: unrecognized control action")
	}
}

// ListenSignals registers the platform's control-action signal bindings
// (signals_unix.go / signals_windows.go) and dispatches them to Do for
// as long as the process runs. It returns a stop function that
// unregisters the handlers, mirroring the teacher's
// signal.Notify/signal.Stop pairing in coordinator_cmd.go.
func (c *Controller) ListenSignals() (stop func()) {
	bindings := signalMap()
	sigs := make([]os.Signal, 0, len(bindings))
	for s := range bindings {
		sigs = append(sigs, s)
	}

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, sigs...)

	done := make(chan struct{})
	go func() {
		for {
			select {
			case sig := <-ch:
				c.Do(bindings[sig])
			case <-done:
				return
			}
		}
	}()

	return func() {
		signal.Stop(ch)
		close(done)
	}
}
