package session

import "time"

// Timer is the handle returned by the function that schedules status clears.
type Timer = timer

// SetAfterFunc replaces the scheduler of status clears.
func SetAfterFunc(c *Controller, fn func(time.Duration, func()) Timer) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.afterFunc = fn
}
