package processing

import (
	"context"
	"sync"
)

// Controller carries the cooperative pause/cancel signals for one run. The
// processor polls it between records; signals never interrupt a record
// mid-write.
type Controller struct {
	mu        sync.Mutex
	paused    bool
	cancelled bool
	resumeCh  chan struct{}
	cancelCh  chan struct{}
}

func NewController() *Controller {
	return &Controller{cancelCh: make(chan struct{})}
}

func (c *Controller) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.paused || c.cancelled {
		return
	}
	c.paused = true
	c.resumeCh = make(chan struct{})
}

func (c *Controller) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.paused {
		return
	}
	c.paused = false
	close(c.resumeCh)
}

func (c *Controller) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancelled {
		return
	}
	c.cancelled = true
	close(c.cancelCh)
}

func (c *Controller) Cancelled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cancelled
}

func (c *Controller) Paused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.paused
}

// wait blocks while paused, returning false if the run was cancelled (or the
// context expired) either before or during the pause.
func (c *Controller) wait(ctx context.Context) bool {
	for {
		c.mu.Lock()
		if c.cancelled {
			c.mu.Unlock()
			return false
		}
		if !c.paused {
			c.mu.Unlock()
			return true
		}
		resume := c.resumeCh
		c.mu.Unlock()

		select {
		case <-resume:
		case <-c.cancelCh:
			return false
		case <-ctx.Done():
			return false
		}
	}
}
