package usbfs

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/danmuck/usbtotal/internal/transport"
)

var ErrUnsupported = errors.New("usbfs: unsupported platform")

// Filter selects devices by vendor and product id.
type Filter struct {
	VendorID  uint16
	ProductID uint16
}

func (f Filter) Match(d DeviceInfo) bool {
	return d.VendorID == f.VendorID && d.ProductID == f.ProductID
}

// Finder locates devices. Empty roots fall back to the system paths.
type Finder struct {
	SysfsRoot string
	DevfsRoot string
}

func (f Finder) sysfs() string {
	if f.SysfsRoot == "" {
		return SysfsUSBPath
	}
	return f.SysfsRoot
}

func (f Finder) devfs() string {
	if f.DevfsRoot == "" {
		return DevfsUSBPath
	}
	return f.DevfsRoot
}

func (f Finder) Scan() ([]DeviceInfo, error) {
	return scanDevices(f.sysfs(), f.devfs())
}

// Find returns the first attached device matching filter.
func (f Finder) Find(filter Filter) (DeviceInfo, bool, error) {
	devices, err := f.Scan()
	if err != nil {
		return DeviceInfo{}, false, err
	}
	for _, d := range devices {
		if filter.Match(d) {
			return d, true, nil
		}
	}
	return DeviceInfo{}, false, nil
}

// Refresh re-reads info from sysfs, e.g. after a configuration change.
func (f Finder) Refresh(info DeviceInfo) (DeviceInfo, error) {
	return parseDevice(info.SysfsPath, f.devfs())
}

// Endpoints lists the endpoints of interface iface of an attached device.
func (f Finder) Endpoints(info DeviceInfo, iface uint8) ([]Endpoint, error) {
	return interfaceEndpoints(info, iface)
}

// Wait polls until a matching device appears or ctx is done.
func (f Finder) Wait(ctx context.Context, filter Filter, backoff transport.Backoff) (DeviceInfo, error) {
	if !supported {
		return DeviceInfo{}, ErrUnsupported
	}
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	for attempt := 1; ; attempt++ {
		info, ok, err := f.Find(filter)
		if err != nil {
			return DeviceInfo{}, err
		}
		if ok {
			return info, nil
		}
		timer := time.NewTimer(backoff.NextDelay(attempt, rng))
		select {
		case <-ctx.Done():
			timer.Stop()
			return DeviceInfo{}, ctx.Err()
		case <-timer.C:
		}
	}
}
