package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/danmuck/usbtotal/internal/config"
)

type cli struct {
	Config      string   `help:"Path to a usbtotal.toml config file" type:"existingfile" env:"USBTOTAL_CONFIG"`
	Vid         string   `help:"USB vendor id of the peer (decimal or 0x hex)"`
	Pid         string   `help:"USB product id of the peer (decimal or 0x hex)"`
	NoPrefetch  bool     `help:"Disable sequential read-ahead"`
	MaxSendKbps int      `help:"Cap outbound throughput in KiB/s (0 for unlimited)" default:"-1"`
	StatusAddr  string   `help:"Listen address for the HTTP status server"`
	LogLevel    string   `help:"Log level (trace|debug|info|warn|error|disabled)" env:"USBTOTAL_LOG_LEVEL"`
	Paths       []string `arg:"" name:"path" help:"Files or directories to offer" type:"path"`
}

// resolveConfig loads the config file, if any, and applies flag overrides.
func (c cli) resolveConfig() (config.Config, error) {
	cfg := config.Default()
	if c.Config != "" {
		loaded, err := config.Load(c.Config)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}
	if c.Vid != "" {
		v, err := parseID(c.Vid)
		if err != nil {
			return config.Config{}, fmt.Errorf("--vid: %w", err)
		}
		cfg.VendorID = v
	}
	if c.Pid != "" {
		v, err := parseID(c.Pid)
		if err != nil {
			return config.Config{}, fmt.Errorf("--pid: %w", err)
		}
		cfg.ProductID = v
	}
	if c.NoPrefetch {
		cfg.Prefetch = false
	}
	if c.MaxSendKbps >= 0 {
		cfg.MaxSendKbps = c.MaxSendKbps
	}
	if c.StatusAddr != "" {
		cfg.StatusAddr = c.StatusAddr
	}
	if err := config.Validate(cfg); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func parseID(raw string) (uint16, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(raw), 0, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid usb id %q", raw)
	}
	if v == 0 {
		return 0, fmt.Errorf("usb id must be non-zero")
	}
	return uint16(v), nil
}
