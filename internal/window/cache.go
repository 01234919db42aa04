package window

import (
	"sync"
	"time"

	"github.com/southflowpeak/pin/internal/model"
)

// cacheTTL is chosen well under the 100ms geometry-poll interval of
// spec.md §4.4, so the liveness monitor (1Hz) and the overlay's
// geometry observer (10Hz) never force two independent full
// CGWindowListCopyWindowInfo enumerations within the same tick.
const cacheTTL = 80 * time.Millisecond

// cachedLister memoizes the full window list for cacheTTL, following
// the TTL-cache pattern of mj1618-desktop-cli's internal/server/cache.go.
// Exists/Bounds are served from the same cached snapshot.
type cachedLister struct {
	backing Lister

	mu        sync.Mutex
	snapshot  []RawWindow
	fetchedAt time.Time
}

func newCachedLister(backing Lister) *cachedLister {
	return &cachedLister{backing: backing}
}

func (c *cachedLister) List() ([]RawWindow, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if time.Since(c.fetchedAt) < cacheTTL && c.snapshot != nil {
		return c.snapshot, nil
	}
	raws, err := c.backing.List()
	if err != nil {
		return nil, err
	}
	c.snapshot = raws
	c.fetchedAt = time.Now()
	return raws, nil
}

func (c *cachedLister) Exists(windowID uint32) (bool, error) {
	raws, err := c.List()
	if err != nil {
		return false, err
	}
	for _, w := range raws {
		if w.WindowID == windowID && w.OnScreen {
			return true, nil
		}
	}
	return false, nil
}

func (c *cachedLister) Bounds(windowID uint32) (*model.Rectangle, error) {
	raws, err := c.List()
	if err != nil {
		return nil, err
	}
	for _, w := range raws {
		if w.WindowID == windowID {
			b := w.Bounds
			return &b, nil
		}
	}
	return nil, nil
}
