package topology

import (
	"fmt"
	"math"
	"sync"

	"github.com/nerrad567/netmap-core/internal/connection"
	"github.com/nerrad567/netmap-core/internal/device"
)

// Engine projects the inventory and remembers pinned node positions by
// device ID. It is safe for concurrent use.
type Engine struct {
	opts   Options
	pinned map[string]Position
	mu     sync.RWMutex
}

// NewEngine creates an Engine. Zero option fields take the defaults.
func NewEngine(opts Options) *Engine {
	def := DefaultOptions()
	if opts.Radius <= 0 {
		opts.Radius = def.Radius
	}
	if opts.CenterX == 0 && opts.CenterY == 0 {
		opts.CenterX, opts.CenterY = def.CenterX, def.CenterY
	}
	return &Engine{opts: opts, pinned: make(map[string]Position)}
}

// Options returns the layout geometry in use.
func (e *Engine) Options() Options {
	return e.opts
}

// Pin fixes deviceID at pos in every later projection.
func (e *Engine) Pin(deviceID string, pos Position) error {
	if !finite(pos.X) || !finite(pos.Y) {
		return fmt.Errorf("%w: (%v, %v)", ErrInvalidPosition, pos.X, pos.Y)
	}
	e.mu.Lock()
	e.pinned[deviceID] = pos
	e.mu.Unlock()
	return nil
}

// Unpin releases deviceID back to circular placement. It reports whether
// a pin existed.
func (e *Engine) Unpin(deviceID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.pinned[deviceID]
	delete(e.pinned, deviceID)
	return ok
}

// Pinned returns a copy of the current pins.
func (e *Engine) Pinned() map[string]Position {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make(map[string]Position, len(e.pinned))
	for id, p := range e.pinned {
		out[id] = p
	}
	return out
}

// Prune drops pins for devices not in devices and returns how many
// were removed.
func (e *Engine) Prune(devices []device.Device) int {
	present := make(map[string]struct{}, len(devices))
	for i := range devices {
		present[devices[i].ID] = struct{}{}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	removed := 0
	for id := range e.pinned {
		if _, ok := present[id]; !ok {
			delete(e.pinned, id)
			removed++
		}
	}
	return removed
}

// Project lays out devices and connections, then applies pins.
func (e *Engine) Project(devices []device.Device, connections []connection.Connection) Graph {
	g := Layout(devices, connections, e.opts)

	e.mu.RLock()
	defer e.mu.RUnlock()
	for i := range g.Nodes {
		if pos, ok := e.pinned[g.Nodes[i].ID]; ok {
			g.Nodes[i].Position = pos
			g.Nodes[i].Pinned = true
		}
	}
	return g
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
