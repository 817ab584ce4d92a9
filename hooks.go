package pkgfeed

import (
	"sync"

	"github.com/agentstation/pkgfeed/pkg/differ"
)

// Hook function types for package events
type (
	// PackageAddedHook is called when a package appears in the project
	PackageAddedHook func(change differ.Change)

	// PackageUpdatedHook is called when a monitored field of a package changes
	PackageUpdatedHook func(change differ.Change)

	// PackageRemovedHook is called when a package disappears from the project
	PackageRemovedHook func(change differ.Change)
)

// Hooks provides access to event callback registration.
type Hooks interface {
	OnPackageAdded(fn PackageAddedHook)
	OnPackageUpdated(fn PackageUpdatedHook)
	OnPackageRemoved(fn PackageRemovedHook)
}

// hooks manages event callbacks for detected changes
type hooks struct {
	mu               sync.RWMutex
	onPackageAdded   []PackageAddedHook
	onPackageUpdated []PackageUpdatedHook
	onPackageRemoved []PackageRemovedHook
}

// newHooks creates a new hooks instance
func newHooks() *hooks {
	return &hooks{}
}

// OnPackageAdded registers a callback for when packages are added
func (h *hooks) OnPackageAdded(fn PackageAddedHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onPackageAdded = append(h.onPackageAdded, fn)
}

// OnPackageUpdated registers a callback for when packages are updated
func (h *hooks) OnPackageUpdated(fn PackageUpdatedHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onPackageUpdated = append(h.onPackageUpdated, fn)
}

// OnPackageRemoved registers a callback for when packages are removed
func (h *hooks) OnPackageRemoved(fn PackageRemovedHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onPackageRemoved = append(h.onPackageRemoved, fn)
}

// trigger calls the registered hooks for each change in order.
// Initialization runs publish nothing, so they trigger nothing.
func (h *hooks) trigger(cs *differ.Changeset) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, change := range cs.ForFeed() {
		switch change.Type {
		case differ.ChangeTypeNew:
			for _, hook := range h.onPackageAdded {
				hook(change)
			}
		case differ.ChangeTypeUpdate:
			for _, hook := range h.onPackageUpdated {
				hook(change)
			}
		case differ.ChangeTypeRemove:
			for _, hook := range h.onPackageRemoved {
				hook(change)
			}
		}
	}
}
