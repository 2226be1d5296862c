package config

import (
	"fmt"
	"log/slog"
	"net/netip"

	"github.com/jpalmerr/ethnode"
	"github.com/jpalmerr/ethnode/internal/driver"
	"github.com/jpalmerr/ethnode/internal/hal"
	"github.com/jpalmerr/ethnode/internal/netif"
)

// BuildOptions converts a parsed configuration into SDK options.
//
// The logger is passed through to the node and to the log-only LED. The
// config must come from [Parse] or [Load] so that defaults are applied
// and values validated.
func BuildOptions(cfg *Config, logger *slog.Logger) ([]ethnode.Option, error) {
	if logger == nil {
		logger = slog.Default()
	}
	ifc := cfg.Interface

	opts := []ethnode.Option{
		ethnode.WithLogger(logger),
		ethnode.WithInterfaceName(ifc.Name),
		ethnode.WithDriver(buildDriver(ifc)),
		ethnode.WithLED(buildLED(cfg.Blink, logger)),
		ethnode.WithListenAddr(cfg.HTTP.Listen),
		ethnode.WithMaxConnections(cfg.HTTP.MaxConnections),
		ethnode.WithStatsInterval(cfg.StatsInterval.Duration()),
		ethnode.WithBlinkPeriod(cfg.Blink.Period.Duration()),
		ethnode.WithLinkCheckInterval(ifc.LinkCheck.Duration()),
		ethnode.WithAcquireRetry(ifc.AcquireRetry.Duration()),
		ethnode.WithWriteTimeout(cfg.HTTP.WriteTimeout.Duration()),
		ethnode.WithIdleTimeout(cfg.HTTP.IdleTimeout.Duration()),
		ethnode.WithAnnounce(ifc.Announce),
	}

	if ifc.MAC != MACAuto {
		mac, err := netif.ParseMAC(ifc.MAC)
		if err != nil {
			return nil, fmt.Errorf("interface.mac: %w", err)
		}
		opts = append(opts, ethnode.WithMAC(mac))
	}

	if ifc.Addressing == AddressingStatic {
		ip, err := netip.ParseAddr(ifc.IP)
		if err != nil {
			return nil, fmt.Errorf("interface.ip: %w", err)
		}
		mask, err := netip.ParseAddr(ifc.Netmask)
		if err != nil {
			return nil, fmt.Errorf("interface.netmask: %w", err)
		}
		gw, err := netip.ParseAddr(ifc.Gateway)
		if err != nil {
			return nil, fmt.Errorf("interface.gateway: %w", err)
		}
		opts = append(opts, ethnode.WithStaticAddress(ip, mask, gw))
	}

	return opts, nil
}

func buildDriver(ifc InterfaceConfig) ethnode.Driver {
	if ifc.Driver == DriverRaw {
		return driver.NewRaw(ifc.Name)
	}
	return driver.NewSim(true)
}

func buildLED(bc BlinkConfig, logger *slog.Logger) ethnode.LED {
	if bc.LED == "" {
		return hal.NewLogLED(logger)
	}
	return hal.NewSysfsLED(bc.LED)
}
