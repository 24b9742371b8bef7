package relay

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Heartbeat runs a lightweight periodic task while at least one user is
// signed in. It owns its timer and re-entrancy guard explicitly: Start and
// Stop are the only way to control it, and a tick whose work is still in
// flight when the next interval fires is skipped rather than overlapped.
type Heartbeat struct {
	interval time.Duration
	ping     func(ctx context.Context) error
	logger   *slog.Logger

	mu   sync.Mutex
	stop chan struct{}
	busy bool
}

// NewHeartbeat constructs a stopped heartbeat around the provided ping.
func NewHeartbeat(interval time.Duration, ping func(ctx context.Context) error, logger *slog.Logger) *Heartbeat {
	if interval <= 0 {
		interval = 20 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Heartbeat{interval: interval, ping: ping, logger: logger}
}

// Start begins ticking. Calling Start on a running heartbeat is a no-op.
func (h *Heartbeat) Start() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.stop != nil {
		return
	}

	stop := make(chan struct{})
	h.stop = stop

	go h.run(stop)
}

// Stop halts the ticker. Safe to call on a stopped heartbeat.
func (h *Heartbeat) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.stop == nil {
		return
	}
	close(h.stop)
	h.stop = nil
}

// Running reports whether the heartbeat is ticking.
func (h *Heartbeat) Running() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stop != nil
}

func (h *Heartbeat) run(stop chan struct{}) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			h.tick()
		}
	}
}

func (h *Heartbeat) tick() {
	h.mu.Lock()
	if h.busy {
		h.mu.Unlock()
		return
	}
	h.busy = true
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		h.busy = false
		h.mu.Unlock()
	}()

	if h.ping == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.interval)
	defer cancel()

	if err := h.ping(ctx); err != nil {
		h.logger.Warn("keep-alive ping failed", "error", err)
	}
}
