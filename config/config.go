// Package config provides YAML configuration parsing for ethnode.
//
// This package enables running ethnode as a standalone binary with a
// configuration file, as an alternative to the programmatic SDK approach.
//
// Example configuration:
//
//	interface:
//	  name: eth0
//	  driver: sim
//	  addressing: static
//	  ip: 192.168.0.223
//	  netmask: 255.255.255.0
//	  gateway: 192.168.0.1
//
//	http:
//	  listen: 0.0.0.0:8000
//	  idle_timeout: 30s
//
//	stats_interval: 1s
//
//	blink:
//	  period: 500ms
//	  led: /sys/class/leds/led0
package config

import (
	"fmt"
	"net"
	"net/netip"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jpalmerr/ethnode/internal/netif"
)

const (
	DriverSim = "sim"
	DriverRaw = "raw"

	AddressingDynamic = "dynamic"
	AddressingStatic  = "static"

	// MACAuto generates a locally administered address at start.
	MACAuto = "auto"
)

// Config is the root configuration structure for ethnode.
//
// It maps directly to the YAML configuration file structure.
// Use [Load] or [Parse] to create a Config from YAML.
type Config struct {
	Interface InterfaceConfig `yaml:"interface"`
	HTTP      HTTPConfig      `yaml:"http"`

	// StatsInterval is the period of the stats log line. Defaults to 1s.
	StatsInterval Duration `yaml:"stats_interval"`

	Blink BlinkConfig `yaml:"blink"`
	Log   LogConfig   `yaml:"log"`
}

// InterfaceConfig describes the network interface.
type InterfaceConfig struct {
	// Name is the interface name. The raw driver binds to it and dynamic
	// addressing adopts its host address. Defaults to eth0.
	Name string `yaml:"name"`

	// Driver is "sim" (in-memory, link up) or "raw" (Linux AF_PACKET).
	// Defaults to sim.
	Driver string `yaml:"driver"`

	// MAC is "auto" or an explicit address such as 02:00:00:aa:bb:cc.
	// Defaults to auto.
	MAC string `yaml:"mac"`

	// Addressing is "dynamic" or "static". Defaults to dynamic.
	Addressing string `yaml:"addressing"`

	// IP, Netmask and Gateway are required for static addressing and
	// rejected for dynamic.
	IP      string `yaml:"ip"`
	Netmask string `yaml:"netmask"`
	Gateway string `yaml:"gateway"`

	// Announce sends a gratuitous ARP when the interface is ready.
	Announce bool `yaml:"announce"`

	// LinkCheck is how often the link is sampled; 0 samples on every
	// poll. Defaults to 1s.
	LinkCheck *Duration `yaml:"link_check"`

	// AcquireRetry is the wait between dynamic address attempts; 0 retries
	// on every poll. Defaults to 1s.
	AcquireRetry *Duration `yaml:"acquire_retry"`
}

// HTTPConfig configures the listener.
type HTTPConfig struct {
	// Listen is host:port. Defaults to 0.0.0.0:80.
	Listen string `yaml:"listen"`

	// MaxConnections bounds the connection table. Defaults to 8.
	MaxConnections int `yaml:"max_connections"`

	// WriteTimeout bounds each reply write. Defaults to 1s.
	WriteTimeout Duration `yaml:"write_timeout"`

	// IdleTimeout closes connections that send no request. Defaults to 30s.
	IdleTimeout Duration `yaml:"idle_timeout"`
}

// BlinkConfig configures the status LED task.
type BlinkConfig struct {
	// Period between toggles. Defaults to 1s.
	Period Duration `yaml:"period"`

	// LED is a Linux LED class directory. Empty logs toggles instead.
	LED string `yaml:"led"`
}

// LogConfig configures the CLI logger.
type LogConfig struct {
	// Level is debug, info, warn or error. Defaults to debug.
	Level string `yaml:"level"`

	// Format is text or json. Defaults to text.
	Format string `yaml:"format"`
}

// Duration wraps time.Duration for YAML unmarshalling.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}

	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
// Group 1: variable name
// Group 2: the ":-default" part (if present, indicates a default was specified)
// Group 3: the default value (may be empty for ${VAR:-})
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} patterns with environment values.
func expandEnvVars(s string) (string, error) {
	var firstErr error

	result := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if firstErr != nil {
			return match
		}

		submatches := envVarPattern.FindStringSubmatch(match)
		varName := submatches[1]
		hasDefault := submatches[2] != ""
		defaultVal := submatches[3]

		value, exists := os.LookupEnv(varName)
		if !exists {
			if hasDefault {
				return defaultVal
			}
			firstErr = fmt.Errorf("environment variable %q is not set", varName)
			return match
		}
		return value
	})

	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

// Load reads and parses a YAML configuration file.
//
// Environment variables in string settings are expanded after parsing.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML configuration data, applies defaults, expands
// environment variables in string settings and validates the result.
// An empty document is a valid configuration.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.expand(); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	ifc := &c.Interface
	if ifc.Name == "" {
		ifc.Name = "eth0"
	}
	if ifc.Driver == "" {
		ifc.Driver = DriverSim
	}
	if ifc.MAC == "" {
		ifc.MAC = MACAuto
	}
	if ifc.Addressing == "" {
		ifc.Addressing = AddressingDynamic
	}
	if ifc.LinkCheck == nil {
		d := Duration(time.Second)
		ifc.LinkCheck = &d
	}
	if ifc.AcquireRetry == nil {
		d := Duration(time.Second)
		ifc.AcquireRetry = &d
	}

	if c.HTTP.Listen == "" {
		c.HTTP.Listen = "0.0.0.0:80"
	}
	if c.HTTP.MaxConnections == 0 {
		c.HTTP.MaxConnections = 8
	}
	if c.HTTP.WriteTimeout == 0 {
		c.HTTP.WriteTimeout = Duration(time.Second)
	}
	if c.HTTP.IdleTimeout == 0 {
		c.HTTP.IdleTimeout = Duration(30 * time.Second)
	}
	if c.StatsInterval == 0 {
		c.StatsInterval = Duration(time.Second)
	}
	if c.Blink.Period == 0 {
		c.Blink.Period = Duration(time.Second)
	}
	if c.Log.Level == "" {
		c.Log.Level = "debug"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// expand substitutes environment variables in every string setting that
// names a host resource or address.
func (c *Config) expand() error {
	fields := []struct {
		path string
		val  *string
	}{
		{"interface.name", &c.Interface.Name},
		{"interface.mac", &c.Interface.MAC},
		{"interface.ip", &c.Interface.IP},
		{"interface.netmask", &c.Interface.Netmask},
		{"interface.gateway", &c.Interface.Gateway},
		{"http.listen", &c.HTTP.Listen},
		{"blink.led", &c.Blink.LED},
	}
	for _, f := range fields {
		expanded, err := expandEnvVars(*f.val)
		if err != nil {
			return fmt.Errorf("%s: %w", f.path, err)
		}
		*f.val = expanded
	}
	return nil
}

func (c *Config) validate() error {
	ifc := c.Interface

	switch ifc.Driver {
	case DriverSim, DriverRaw:
	default:
		return fmt.Errorf("interface.driver must be %q or %q, got %q", DriverSim, DriverRaw, ifc.Driver)
	}

	if ifc.MAC != MACAuto {
		mac, err := netif.ParseMAC(ifc.MAC)
		if err != nil {
			return fmt.Errorf("interface.mac: %w", err)
		}
		if mac.IsZero() || mac.Multicast() {
			return fmt.Errorf("interface.mac must be a non-zero unicast address, got %s", mac)
		}
	}

	switch ifc.Addressing {
	case AddressingStatic:
		for _, f := range []struct{ key, val string }{
			{"interface.ip", ifc.IP},
			{"interface.netmask", ifc.Netmask},
			{"interface.gateway", ifc.Gateway},
		} {
			if f.val == "" {
				return fmt.Errorf("%s is required for static addressing", f.key)
			}
			a, err := netip.ParseAddr(f.val)
			if err != nil {
				return fmt.Errorf("%s: %w", f.key, err)
			}
			if !a.Is4() {
				return fmt.Errorf("%s must be an IPv4 address, got %s", f.key, f.val)
			}
		}
		if ip, _ := netip.ParseAddr(ifc.IP); ip.IsUnspecified() {
			return fmt.Errorf("interface.ip cannot be %s", ifc.IP)
		}
	case AddressingDynamic:
		if ifc.IP != "" || ifc.Netmask != "" || ifc.Gateway != "" {
			return fmt.Errorf("interface.ip, netmask and gateway are only valid with addressing %q", AddressingStatic)
		}
	default:
		return fmt.Errorf("interface.addressing must be %q or %q, got %q", AddressingDynamic, AddressingStatic, ifc.Addressing)
	}

	if ifc.LinkCheck.Duration() < 0 {
		return fmt.Errorf("interface.link_check cannot be negative, got %s", ifc.LinkCheck.Duration())
	}

	if ifc.AcquireRetry.Duration() < 0 {
		return fmt.Errorf("interface.acquire_retry cannot be negative, got %s", ifc.AcquireRetry.Duration())
	}

	if _, _, err := net.SplitHostPort(c.HTTP.Listen); err != nil {
		return fmt.Errorf("http.listen: %w", err)
	}
	if c.HTTP.MaxConnections < 0 {
		return fmt.Errorf("http.max_connections must be positive, got %d", c.HTTP.MaxConnections)
	}
	if c.HTTP.WriteTimeout.Duration() < 0 {
		return fmt.Errorf("http.write_timeout must be positive, got %s", c.HTTP.WriteTimeout.Duration())
	}
	if c.HTTP.IdleTimeout.Duration() < 0 {
		return fmt.Errorf("http.idle_timeout must be positive, got %s", c.HTTP.IdleTimeout.Duration())
	}

	if c.StatsInterval.Duration() < 0 {
		return fmt.Errorf("stats_interval must be positive, got %s", c.StatsInterval.Duration())
	}
	if c.Blink.Period.Duration() < 0 {
		return fmt.Errorf("blink.period must be positive, got %s", c.Blink.Period.Duration())
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be debug, info, warn or error, got %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}

	return nil
}
