//go:build linux && (amd64 || arm64 || arm || 386 || riscv64 || loong64)

package usbfs

import (
	"runtime"
	"unsafe"

	"golang.org/x/sys/unix"
)

const supported = true

// asm-generic ioctl encoding.
const (
	iocNone  = 0
	iocWrite = 1
	iocRead  = 2

	iocNRShift   = 0
	iocTypeShift = 8
	iocSizeShift = 16
	iocDirShift  = 30
)

func ioc(dir, typ, nr, size uintptr) uintptr {
	return dir<<iocDirShift | typ<<iocTypeShift | nr<<iocNRShift | size<<iocSizeShift
}

// usbdevfs_bulktransfer
type bulkTransfer struct {
	Ep      uint32
	Len     uint32
	Timeout uint32
	Data    uintptr
}

// usbdevfs_disconnect_claim
type disconnectClaim struct {
	Interface uint32
	Flags     uint32
	Driver    [256]byte
}

const disconnectClaimExceptDriver = 0x02

var (
	usbdevfsSetConfiguration = ioc(iocRead, 'U', 5, 4)
	usbdevfsBulk             = ioc(iocRead|iocWrite, 'U', 2, unsafe.Sizeof(bulkTransfer{}))
	usbdevfsClaimInterface   = ioc(iocRead, 'U', 15, 4)
	usbdevfsReleaseInterface = ioc(iocRead, 'U', 16, 4)
	usbdevfsReset            = ioc(iocNone, 'U', 20, 0)
	usbdevfsDisconnectClaim  = ioc(iocRead, 'U', 27, unsafe.Sizeof(disconnectClaim{}))
)

func ioctl(fd int, req uintptr, arg unsafe.Pointer) (int, error) {
	r, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), req, uintptr(arg))
	if errno != 0 {
		return int(r), errno
	}
	return int(r), nil
}

func setConfiguration(fd int, value uint32) error {
	_, err := ioctl(fd, usbdevfsSetConfiguration, unsafe.Pointer(&value))
	return err
}

// claimInterface detaches any kernel driver bound to iface and claims it.
// Kernels without DISCONNECT_CLAIM fall back to a plain claim.
func claimInterface(fd int, iface uint32) error {
	dc := disconnectClaim{Interface: iface, Flags: disconnectClaimExceptDriver}
	copy(dc.Driver[:], "usbfs")
	_, err := ioctl(fd, usbdevfsDisconnectClaim, unsafe.Pointer(&dc))
	if err == nil {
		return nil
	}
	if err != unix.ENOTTY && err != unix.EINVAL {
		return err
	}
	_, err = ioctl(fd, usbdevfsClaimInterface, unsafe.Pointer(&iface))
	return err
}

func releaseInterface(fd int, iface uint32) error {
	_, err := ioctl(fd, usbdevfsReleaseInterface, unsafe.Pointer(&iface))
	return err
}

func resetDevice(fd int) error {
	_, err := ioctl(fd, usbdevfsReset, nil)
	return err
}

// bulk issues one bulk transfer on ep. A zero timeout waits forever.
func bulk(fd int, ep uint8, data []byte, timeoutMS uint32) (int, error) {
	bt := bulkTransfer{
		Ep:      uint32(ep),
		Len:     uint32(len(data)),
		Timeout: timeoutMS,
	}
	if len(data) > 0 {
		bt.Data = uintptr(unsafe.Pointer(&data[0]))
	}
	n, err := ioctl(fd, usbdevfsBulk, unsafe.Pointer(&bt))
	runtime.KeepAlive(data)
	if err != nil {
		return 0, err
	}
	return n, nil
}
