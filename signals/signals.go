// Package signals implements the child process's signal handling (C7,
// §4.7): interactive interrupts are ignored mid-fetch, termination
// signals run a cleanup pass before the process exits, and a
// cleanup-check guard guarantees the same pass runs even on a normal
// exit path. Built directly on os/signal: this is inherently a
// standard-library concern with no ecosystem library in the corpus
// addressing it.
package signals

import (
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// Handler installs the child's signal policy and runs cleanup exactly
// once, whichever path triggers it first: a caught termination signal,
// or an explicit Stop call from the orchestrator's own shutdown path.
type Handler struct {
	sigc    chan os.Signal
	cleanup func()
	once    sync.Once
	done    chan struct{}
}

// Install starts catching SIGINT, SIGTERM, and SIGHUP. SIGINT is
// ignored outright (§4.7: "interactive interrupts must not abort a
// fetch in progress"); SIGTERM and SIGHUP run cleanup once and then
// terminate the process.
func Install(cleanup func()) *Handler {
	h := &Handler{
		sigc:    make(chan os.Signal, 1),
		cleanup: cleanup,
		done:    make(chan struct{}),
	}
	signal.Notify(h.sigc, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	go h.loop()
	return h
}

func (h *Handler) loop() {
	for {
		select {
		case sig, ok := <-h.sigc:
			if !ok {
				return
			}
			if sig == syscall.SIGINT {
				continue
			}
			h.runCleanup()
			os.Exit(1)
		case <-h.done:
			return
		}
	}
}

func (h *Handler) runCleanup() {
	h.once.Do(func() {
		if h.cleanup != nil {
			h.cleanup()
		}
	})
}

// Stop deregisters the signal handlers and, on a normal exit path that
// never caught a termination signal, runs the cleanup pass itself
// (§4.7's cleanup-check guarantee: cleanup always runs exactly once,
// regardless of which exit path triggered it).
func (h *Handler) Stop() {
	signal.Stop(h.sigc)
	select {
	case <-h.done:
	default:
		close(h.done)
	}
	h.runCleanup()
}
