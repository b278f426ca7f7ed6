//go:build !(linux && (amd64 || arm64 || arm || 386 || riscv64 || loong64))

package usbfs

const supported = false

// Device is unavailable on this platform.
type Device struct {
	info DeviceInfo
}

func (f Finder) Open(info DeviceInfo, iface uint8) (*Device, error) {
	return nil, ErrUnsupported
}

func (d *Device) Info() DeviceInfo            { return d.info }
func (d *Device) BusSpeed() uint32            { return uint32(d.info.BcdUSB) }
func (d *Device) Read(p []byte) (int, error)  { return 0, ErrUnsupported }
func (d *Device) Write(p []byte) (int, error) { return 0, ErrUnsupported }
func (d *Device) Reset() error                { return ErrUnsupported }
func (d *Device) Close() error                { return nil }
