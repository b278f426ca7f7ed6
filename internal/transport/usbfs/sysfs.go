package usbfs

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	SysfsUSBPath = "/sys/bus/usb/devices"
	DevfsUSBPath = "/dev/bus/usb"
)

// DeviceInfo is what sysfs reports about one attached device.
type DeviceInfo struct {
	Name          string
	SysfsPath     string
	DevfsPath     string
	Bus           uint8
	Address       uint8
	VendorID      uint16
	ProductID     uint16
	BcdUSB        uint16
	SpeedMbps     string
	Manufacturer  string
	Product       string
	Serial        string
	Configuration int
}

func (d DeviceInfo) String() string {
	return fmt.Sprintf("%03d/%03d %04x:%04x", d.Bus, d.Address, d.VendorID, d.ProductID)
}

// Endpoint is one endpoint of a claimed interface.
type Endpoint struct {
	Address uint8
	Type    string
	In      bool
}

// scanDevices lists device entries, skipping root hubs ("usb1") and
// interfaces ("1-1:1.0").
func scanDevices(sysfsRoot, devfsRoot string) ([]DeviceInfo, error) {
	entries, err := os.ReadDir(sysfsRoot)
	if err != nil {
		return nil, err
	}
	var devices []DeviceInfo
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, "usb") || strings.Contains(name, ":") {
			continue
		}
		info, err := parseDevice(filepath.Join(sysfsRoot, name), devfsRoot)
		if err != nil {
			continue
		}
		devices = append(devices, info)
	}
	return devices, nil
}

func parseDevice(sysfsPath, devfsRoot string) (DeviceInfo, error) {
	info := DeviceInfo{Name: filepath.Base(sysfsPath), SysfsPath: sysfsPath}

	bus, err := readUint(filepath.Join(sysfsPath, "busnum"), 10, 8)
	if err != nil {
		return info, err
	}
	dev, err := readUint(filepath.Join(sysfsPath, "devnum"), 10, 8)
	if err != nil {
		return info, err
	}
	info.Bus, info.Address = uint8(bus), uint8(dev)
	info.DevfsPath = filepath.Join(devfsRoot, fmt.Sprintf("%03d", bus), fmt.Sprintf("%03d", dev))

	if v, err := readUint(filepath.Join(sysfsPath, "idVendor"), 16, 16); err == nil {
		info.VendorID = uint16(v)
	}
	if v, err := readUint(filepath.Join(sysfsPath, "idProduct"), 16, 16); err == nil {
		info.ProductID = uint16(v)
	}
	if s, err := readString(filepath.Join(sysfsPath, "version")); err == nil {
		if bcd, err := parseBCDVersion(s); err == nil {
			info.BcdUSB = bcd
		}
	}
	if v, err := readUint(filepath.Join(sysfsPath, "bConfigurationValue"), 10, 8); err == nil {
		info.Configuration = int(v)
	}
	info.SpeedMbps, _ = readString(filepath.Join(sysfsPath, "speed"))
	info.Manufacturer, _ = readString(filepath.Join(sysfsPath, "manufacturer"))
	info.Product, _ = readString(filepath.Join(sysfsPath, "product"))
	info.Serial, _ = readString(filepath.Join(sysfsPath, "serial"))
	return info, nil
}

// interfaceEndpoints reads ep_XX entries of <dev>:<cfg>.<iface>.
func interfaceEndpoints(info DeviceInfo, iface uint8) ([]Endpoint, error) {
	matches, err := filepath.Glob(filepath.Join(info.SysfsPath, info.Name+":*."+strconv.Itoa(int(iface))))
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("usbfs: %s has no interface %d", info, iface)
	}
	eps, err := filepath.Glob(filepath.Join(matches[0], "ep_*"))
	if err != nil {
		return nil, err
	}
	out := make([]Endpoint, 0, len(eps))
	for _, dir := range eps {
		addr, err := readUint(filepath.Join(dir, "bEndpointAddress"), 16, 8)
		if err != nil {
			continue
		}
		typ, _ := readString(filepath.Join(dir, "type"))
		out = append(out, Endpoint{Address: uint8(addr), Type: typ, In: addr&0x80 != 0})
	}
	return out, nil
}

// bulkPair picks the first bulk IN and bulk OUT endpoint.
func bulkPair(eps []Endpoint) (in, out uint8, err error) {
	var haveIn, haveOut bool
	for _, ep := range eps {
		if !strings.EqualFold(ep.Type, "Bulk") {
			continue
		}
		if ep.In && !haveIn {
			in, haveIn = ep.Address, true
		}
		if !ep.In && !haveOut {
			out, haveOut = ep.Address, true
		}
	}
	if !haveIn || !haveOut {
		return 0, 0, fmt.Errorf("usbfs: interface lacks a bulk endpoint pair")
	}
	return in, out, nil
}

// parseBCDVersion turns sysfs "version" (" 2.00") into bcdUSB (0x0200).
func parseBCDVersion(raw string) (uint16, error) {
	raw = strings.TrimSpace(raw)
	major, minor, ok := strings.Cut(raw, ".")
	if !ok {
		minor = "00"
	}
	maj, err := strconv.ParseUint(major, 10, 8)
	if err != nil || maj > 99 {
		return 0, fmt.Errorf("usbfs: bad version %q", raw)
	}
	if len(minor) == 1 {
		minor += "0"
	}
	if len(minor) != 2 || minor[0] < '0' || minor[0] > '9' || minor[1] < '0' || minor[1] > '9' {
		return 0, fmt.Errorf("usbfs: bad version %q", raw)
	}
	bcd := uint16(maj/10)<<12 | uint16(maj%10)<<8 | uint16(minor[0]-'0')<<4 | uint16(minor[1]-'0')
	return bcd, nil
}

func readString(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func readUint(path string, base, bitSize int) (uint64, error) {
	s, err := readString(path)
	if err != nil {
		return 0, err
	}
	if base == 16 {
		s = strings.TrimPrefix(s, "0x")
	}
	return strconv.ParseUint(s, base, bitSize)
}
