//go:build linux && (amd64 || arm64 || arm || 386 || riscv64 || loong64)

package usbfs

import (
	"testing"
	"unsafe"
)

func TestIoctlNumbers(t *testing.T) {
	wantBulk := uintptr(0xC0185502)
	if unsafe.Sizeof(uintptr(0)) == 4 {
		wantBulk = 0xC0105502
	}
	cases := []struct {
		name string
		got  uintptr
		want uintptr
	}{
		{"bulk", usbdevfsBulk, wantBulk},
		{"setconfiguration", usbdevfsSetConfiguration, 0x80045505},
		{"claiminterface", usbdevfsClaimInterface, 0x8004550F},
		{"releaseinterface", usbdevfsReleaseInterface, 0x80045510},
		{"reset", usbdevfsReset, 0x5514},
		{"disconnect_claim", usbdevfsDisconnectClaim, 0x8108551B},
	}
	for _, tc := range cases {
		if tc.got != tc.want {
			t.Fatalf("%s: got=%#x want=%#x", tc.name, tc.got, tc.want)
		}
	}
}
