//go:build linux && (amd64 || arm64 || arm || 386 || riscv64 || loong64)

package usbfs

import (
	"fmt"
	"sync"

	"github.com/danmuck/usbtotal/internal/logging"
	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"
)

// maxBulkChunk bounds a single USBDEVFS_BULK submission. It is a multiple
// of every bulk max packet size, so chunking never inserts a short packet.
const maxBulkChunk = 1 << 20

// Device is an opened peer with a claimed interface. It implements
// transport.Transport.
type Device struct {
	info  DeviceInfo
	iface uint8
	epIn  uint8
	epOut uint8
	log   zerolog.Logger

	mu     sync.Mutex
	fd     int
	closed bool
}

// Open opens the device node, activates configuration 1 when the device is
// unconfigured, and claims iface.
func (f Finder) Open(info DeviceInfo, iface uint8) (*Device, error) {
	fd, err := unix.Open(info.DevfsPath, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("usbfs: open %s: %w", info.DevfsPath, err)
	}
	logger := logging.Component("usbfs")

	if info.Configuration == 0 {
		if err := setConfiguration(fd, 1); err != nil {
			unix.Close(fd)
			return nil, fmt.Errorf("usbfs: set configuration on %s: %w", info, err)
		}
		if refreshed, err := f.Refresh(info); err == nil {
			info = refreshed
		}
	}
	eps, err := f.Endpoints(info, iface)
	if err != nil {
		unix.Close(fd)
		return nil, err
	}
	in, out, err := bulkPair(eps)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("%w on %s", err, info)
	}
	if err := claimInterface(fd, uint32(iface)); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("usbfs: claim interface %d on %s: %w", iface, info, err)
	}

	logger.Info().
		Str("device", info.String()).
		Str("manufacturer", info.Manufacturer).
		Str("product", info.Product).
		Str("serial", info.Serial).
		Str("speed_mbps", info.SpeedMbps).
		Str("bcd_usb", fmt.Sprintf("%#04x", info.BcdUSB)).
		Msg("device opened")
	logger.Debug().
		Str("ep_in", fmt.Sprintf("%#02x", in)).
		Str("ep_out", fmt.Sprintf("%#02x", out)).
		Msg("bulk endpoints")

	return &Device{info: info, iface: iface, epIn: in, epOut: out, log: logger, fd: fd}, nil
}

func (d *Device) Info() DeviceInfo { return d.info }

func (d *Device) BusSpeed() uint32 { return uint32(d.info.BcdUSB) }

func (d *Device) handle() (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return -1, unix.EBADF
	}
	return d.fd, nil
}

// Read performs one bulk IN transfer into p.
func (d *Device) Read(p []byte) (int, error) {
	fd, err := d.handle()
	if err != nil {
		return 0, err
	}
	return bulk(fd, d.epIn, p, 0)
}

// Write sends p as one logical bulk OUT transfer.
func (d *Device) Write(p []byte) (int, error) {
	fd, err := d.handle()
	if err != nil {
		return 0, err
	}
	if len(p) == 0 {
		return bulk(fd, d.epOut, p, 0)
	}
	written := 0
	for written < len(p) {
		end := written + maxBulkChunk
		if end > len(p) {
			end = len(p)
		}
		chunk := p[written:end]
		n, err := bulk(fd, d.epOut, chunk, 0)
		written += n
		if err != nil {
			return written, err
		}
		if n < len(chunk) {
			return written, nil
		}
	}
	return written, nil
}

// Reset issues a port reset and closes the device.
func (d *Device) Reset() error {
	fd, err := d.handle()
	if err != nil {
		return err
	}
	resetErr := resetDevice(fd)
	if resetErr != nil {
		d.log.Warn().Err(resetErr).Str("device", d.info.String()).Msg("reset failed")
	} else {
		d.log.Info().Str("device", d.info.String()).Msg("device reset")
	}
	d.Close()
	return resetErr
}

// Close releases the interface and the file descriptor. It is idempotent.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	_ = releaseInterface(d.fd, uint32(d.iface))
	return unix.Close(d.fd)
}
