// Package usbfs talks to the peer through the Linux usbfs interface.
//
// Devices are discovered by scanning sysfs (/sys/bus/usb/devices) and opened
// through their node under /dev/bus/usb. Bulk transfers are issued with
// USBDEVFS_BULK and a zero timeout, so every read and write blocks until the
// peer completes it.
//
// The caller needs read/write access to the device node, either as root or
// through a udev rule for the peer's vendor/product id.
package usbfs
