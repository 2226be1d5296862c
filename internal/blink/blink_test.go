package blink

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// countingLED records calls and signals after a target number of toggles.
type countingLED struct {
	mu      sync.Mutex
	inits   int
	toggles int
	target  int
	reached chan struct{}
	initErr error
	failAt  int
}

func (l *countingLED) Init() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.inits++
	return l.initErr
}

func (l *countingLED) Toggle() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.toggles++
	if l.failAt > 0 && l.toggles == l.failAt {
		return errors.New("gpio fault")
	}
	if l.toggles == l.target && l.reached != nil {
		close(l.reached)
	}
	return nil
}

func (l *countingLED) counts() (int, int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inits, l.toggles
}

func TestRun_TogglesUntilCancelled(t *testing.T) {
	led := &countingLED{target: 3, reached: make(chan struct{})}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- Run(ctx, led, 5*time.Millisecond) }()

	select {
	case <-led.reached:
	case <-time.After(5 * time.Second):
		t.Fatal("led was not toggled three times")
	}
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run() error = %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return after cancellation")
	}

	inits, _ := led.counts()
	if inits != 1 {
		t.Errorf("Init called %d times, want 1", inits)
	}
}

func TestRun_InitFailure(t *testing.T) {
	led := &countingLED{initErr: errors.New("no such device")}
	err := Run(context.Background(), led, time.Millisecond)
	if err == nil {
		t.Fatal("Run() error = nil, want init failure")
	}
	if _, toggles := led.counts(); toggles != 0 {
		t.Errorf("toggled %d times after failed init", toggles)
	}
}

func TestRun_ToggleFailure(t *testing.T) {
	led := &countingLED{failAt: 2}
	err := Run(context.Background(), led, time.Millisecond)
	if err == nil || err.Error() != "gpio fault" {
		t.Errorf("Run() error = %v, want gpio fault", err)
	}
}

func TestRun_DefaultPeriod(t *testing.T) {
	led := &countingLED{}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_ = Run(ctx, led, 0)
	if _, toggles := led.counts(); toggles != 1 {
		t.Errorf("toggled %d times within 50ms at default period, want 1", toggles)
	}
}
