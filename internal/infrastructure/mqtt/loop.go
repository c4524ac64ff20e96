package mqtt

import (
	"context"
	"fmt"
	"time"
)

// Run connects, then supervises the session until ctx is cancelled.
//
// The loop checks the connected flag every PollInterval, and immediately
// when a disconnect or refusal wakes it. While disconnected it waits
// Backoff and issues a fresh connect attempt. Failed attempts (refused or
// unreachable) are retried indefinitely.
//
// Returns:
//   - error from the initial Connect if the broker could not be reached
//   - ErrAlreadyRunning if Run was already called
//   - ErrLoopFailed if the loop itself panicked
//   - nil on cancellation, including during the initial Connect
//
// In every case the dispatcher is stopped and the client disconnected
// before Run returns.
func (c *Client) Run(ctx context.Context) (err error) {
	if !c.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrLoopFailed, r)
			c.getLogger().Error("monitoring loop failed", "panic", r)
		}
		c.shutdown()
	}()

	if err := c.Connect(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}

	c.wg.Add(1)
	go c.dispatch()

	return c.monitor(ctx)
}

// monitor is the reconnect loop.
func (c *Client) monitor(ctx context.Context) error {
	ticker := time.NewTicker(c.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		case <-c.wake:
		}

		if c.IsConnected() {
			continue
		}

		c.getLogger().Warn("connection lost, attempting to reconnect",
			"backoff", c.opts.Backoff,
		)
		if !sleepCtx(ctx, c.opts.Backoff) {
			return nil
		}

		// paho may have come back on its own while we slept.
		if c.IsConnected() {
			continue
		}

		if err := c.connect(ctx, true); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			// Logged by connect; next tick retries.
			continue
		}
	}
}

// dispatch hands queued messages to the handler, one at a time, in order.
func (c *Client) dispatch() {
	defer c.wg.Done()

	for {
		select {
		case msg := <-c.inbound:
			c.deliver(msg)
		case <-c.stopped:
			return
		}
	}
}

// deliver runs the handler with panic recovery so one message can never
// stop the dispatcher.
func (c *Client) deliver(msg InboundMessage) {
	defer func() {
		if r := recover(); r != nil {
			c.getLogger().Error("error processing message",
				"topic", msg.Topic,
				"panic", r,
			)
		}
	}()
	c.handler(msg.Topic, msg.Payload)
}

// sleepCtx waits d or until ctx is done. Reports false if ctx ended first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
