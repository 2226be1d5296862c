// Package hal is the node's hardware abstraction: a status LED and a source
// of random bytes.
package hal

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// LED is a single digital output.
type LED interface {
	// Init configures the output and switches it off.
	Init() error
	// Toggle inverts the output.
	Toggle() error
}

// Entropy returns the default random source used for hardware address
// generation.
func Entropy() io.Reader {
	return rand.Reader
}

// SysfsLED drives a Linux LED class device, e.g. /sys/class/leds/led0.
type SysfsLED struct {
	dir string
	max string
	on  bool
}

// NewSysfsLED returns an LED for the class directory dir.
func NewSysfsLED(dir string) *SysfsLED {
	return &SysfsLED{dir: dir}
}

// Init detaches any kernel trigger and turns the LED off. Devices without a
// trigger or max_brightness file are accepted.
func (l *SysfsLED) Init() error {
	l.max = "1"
	raw, err := os.ReadFile(filepath.Join(l.dir, "max_brightness"))
	switch {
	case err == nil:
		if v := strings.TrimSpace(string(raw)); v != "" {
			l.max = v
		}
	case !errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("reading max brightness: %w", err)
	}

	if err := l.write("trigger", "none"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("clearing trigger: %w", err)
	}

	l.on = false
	if err := l.write("brightness", "0"); err != nil {
		return fmt.Errorf("switching led off: %w", err)
	}
	return nil
}

// Toggle flips the brightness between off and max_brightness.
func (l *SysfsLED) Toggle() error {
	value := "0"
	if !l.on {
		value = l.max
	}
	if err := l.write("brightness", value); err != nil {
		return fmt.Errorf("toggling led: %w", err)
	}
	l.on = !l.on
	return nil
}

// On reports the last state written.
func (l *SysfsLED) On() bool { return l.on }

func (l *SysfsLED) write(name, value string) error {
	// sysfs attributes exist already; O_CREATE is never wanted here
	f, err := os.OpenFile(filepath.Join(l.dir, name), os.O_WRONLY|os.O_TRUNC, 0)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(value); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// LogLED stands in for a physical LED by logging each change at debug.
type LogLED struct {
	logger *slog.Logger
	on     bool
}

// NewLogLED returns a log-only LED. A nil logger uses slog.Default().
func NewLogLED(logger *slog.Logger) *LogLED {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogLED{logger: logger}
}

func (l *LogLED) Init() error {
	l.on = false
	l.logger.Debug("led initialised")
	return nil
}

func (l *LogLED) Toggle() error {
	l.on = !l.on
	l.logger.Debug("led toggled", "on", l.on)
	return nil
}

// On reports the current simulated state.
func (l *LogLED) On() bool { return l.on }

var (
	_ LED = (*SysfsLED)(nil)
	_ LED = (*LogLED)(nil)
)
