package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/usbtotal/internal/catalog"
	"github.com/danmuck/usbtotal/internal/transport"
)

// Config is the resolved host configuration.
type Config struct {
	VendorID        uint16
	ProductID       uint16
	Interface       uint8
	PollInterval    time.Duration
	PollMaxInterval time.Duration
	PollMultiplier  float64
	Extensions      []string
	Prefetch        bool
	MaxSendKbps     int
	StatusAddr      string
	StatusToken     string
	CorsOrigins     []string
}

// fileConfig is the on-disk shape. Durations are strings ("500ms").
type fileConfig struct {
	VendorID        int64    `toml:"vendor_id" comment:"USB vendor id of the peer (1406 = 0x057E)"`
	ProductID       int64    `toml:"product_id" comment:"USB product id of the peer (12288 = 0x3000)"`
	Interface       int64    `toml:"interface" comment:"interface number holding the bulk endpoints"`
	PollInterval    string   `toml:"poll_interval" comment:"delay between device scans"`
	PollMaxInterval string   `toml:"poll_max_interval"`
	PollMultiplier  float64  `toml:"poll_multiplier" comment:"1.0 polls at a constant rate"`
	Extensions      []string `toml:"extensions" comment:"file extensions offered to the peer"`
	Prefetch        bool     `toml:"prefetch" comment:"read ahead after each sequential range"`
	MaxSendKbps     int      `toml:"max_send_kbps" comment:"outbound cap in KiB/s, 0 for unlimited"`
	StatusAddr      string   `toml:"status_addr" comment:"listen address for the status server, empty to disable"`
	StatusToken     string   `toml:"status_token" comment:"bearer token required by /status and /metrics, empty to allow all"`
	CorsOrigins     []string `toml:"cors_origins"`
}

func Default() Config {
	b := transport.DefaultBackoff()
	return Config{
		VendorID:        0x057E,
		ProductID:       0x3000,
		Interface:       0,
		PollInterval:    b.InitialDelay,
		PollMaxInterval: b.MaxDelay,
		PollMultiplier:  b.Multiplier,
		Extensions:      append([]string(nil), catalog.DefaultExtensions...),
		Prefetch:        true,
	}
}

// Backoff converts the poll settings for device discovery.
func (c Config) Backoff() transport.Backoff {
	return transport.Backoff{
		InitialDelay: c.PollInterval,
		Multiplier:   c.PollMultiplier,
		MaxDelay:     c.PollMaxInterval,
	}
}

// Load overlays keys present in path onto Default and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("config parse failed (%s): unknown key %q", path, undecoded[0].String())
	}

	if meta.IsDefined("vendor_id") {
		if raw.VendorID <= 0 || raw.VendorID > 0xFFFF {
			return Config{}, fmt.Errorf("vendor_id out of range: %d", raw.VendorID)
		}
		cfg.VendorID = uint16(raw.VendorID)
	}
	if meta.IsDefined("product_id") {
		if raw.ProductID <= 0 || raw.ProductID > 0xFFFF {
			return Config{}, fmt.Errorf("product_id out of range: %d", raw.ProductID)
		}
		cfg.ProductID = uint16(raw.ProductID)
	}
	if meta.IsDefined("interface") {
		if raw.Interface < 0 || raw.Interface > 0xFF {
			return Config{}, fmt.Errorf("interface out of range: %d", raw.Interface)
		}
		cfg.Interface = uint8(raw.Interface)
	}
	if meta.IsDefined("poll_interval") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.PollInterval))
		if err != nil {
			return Config{}, fmt.Errorf("parse poll_interval: %w", err)
		}
		cfg.PollInterval = d
	}
	if meta.IsDefined("poll_max_interval") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.PollMaxInterval))
		if err != nil {
			return Config{}, fmt.Errorf("parse poll_max_interval: %w", err)
		}
		cfg.PollMaxInterval = d
	}
	if meta.IsDefined("poll_multiplier") {
		cfg.PollMultiplier = raw.PollMultiplier
	}
	if meta.IsDefined("extensions") {
		cfg.Extensions = normalizeList(raw.Extensions)
	}
	if meta.IsDefined("prefetch") {
		cfg.Prefetch = raw.Prefetch
	}
	if meta.IsDefined("max_send_kbps") {
		cfg.MaxSendKbps = raw.MaxSendKbps
	}
	if meta.IsDefined("status_addr") {
		cfg.StatusAddr = strings.TrimSpace(raw.StatusAddr)
	}
	if meta.IsDefined("status_token") {
		cfg.StatusToken = strings.TrimSpace(raw.StatusToken)
	}
	if meta.IsDefined("cors_origins") {
		cfg.CorsOrigins = normalizeList(raw.CorsOrigins)
	}

	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func Validate(cfg Config) error {
	if cfg.VendorID == 0 {
		return fmt.Errorf("config missing vendor_id")
	}
	if cfg.ProductID == 0 {
		return fmt.Errorf("config missing product_id")
	}
	if cfg.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive")
	}
	if cfg.PollMaxInterval > 0 && cfg.PollMaxInterval < cfg.PollInterval {
		return fmt.Errorf("poll_max_interval shorter than poll_interval")
	}
	if cfg.PollMultiplier < 1.0 {
		return fmt.Errorf("poll_multiplier must be >= 1.0")
	}
	if len(cfg.Extensions) == 0 {
		return fmt.Errorf("config missing extensions")
	}
	for i, ext := range cfg.Extensions {
		if !strings.HasPrefix(ext, ".") || len(ext) < 2 {
			return fmt.Errorf("extensions[%d] invalid: %q", i, ext)
		}
	}
	if cfg.MaxSendKbps < 0 {
		return fmt.Errorf("max_send_kbps must not be negative")
	}
	return nil
}

func toFile(cfg Config) fileConfig {
	return fileConfig{
		VendorID:        int64(cfg.VendorID),
		ProductID:       int64(cfg.ProductID),
		Interface:       int64(cfg.Interface),
		PollInterval:    cfg.PollInterval.String(),
		PollMaxInterval: cfg.PollMaxInterval.String(),
		PollMultiplier:  cfg.PollMultiplier,
		Extensions:      cfg.Extensions,
		Prefetch:        cfg.Prefetch,
		MaxSendKbps:     cfg.MaxSendKbps,
		StatusAddr:      cfg.StatusAddr,
		StatusToken:     cfg.StatusToken,
		CorsOrigins:     cfg.CorsOrigins,
	}
}

func normalizeList(in []string) []string {
	if len(in) == 0 {
		return []string{}
	}
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}
