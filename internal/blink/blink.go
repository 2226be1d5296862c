// Package blink implements the status LED task.
package blink

import (
	"context"
	"fmt"
	"time"

	"github.com/jpalmerr/ethnode/internal/hal"
	"github.com/jpalmerr/ethnode/internal/rtos"
)

// DefaultPeriod is the time between toggles.
const DefaultPeriod = time.Second

// Run initialises led and toggles it every period until ctx is done, then
// returns ctx's error. It has no knowledge of network state.
func Run(ctx context.Context, led hal.LED, period time.Duration) error {
	if period <= 0 {
		period = DefaultPeriod
	}
	if err := led.Init(); err != nil {
		return fmt.Errorf("initialising led: %w", err)
	}
	for {
		if err := led.Toggle(); err != nil {
			return err
		}
		if err := rtos.Delay(ctx, period); err != nil {
			return err
		}
	}
}
