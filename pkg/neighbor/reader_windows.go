//go:build windows

package neighbor

import (
	"context"
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	modiphlpapi = windows.NewLazySystemDLL("iphlpapi.dll")

	procGetIpNetTable2 = modiphlpapi.NewProc("GetIpNetTable2")
	procFreeMibTable   = modiphlpapi.NewProc("FreeMibTable")
)

// IPHelperReader reads the neighbor cache with GetIpNetTable2.
type IPHelperReader struct{}

func newPlatformReader() (Reader, error) {
	if err := procGetIpNetTable2.Find(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return &IPHelperReader{}, nil
}

// Read snapshots both address families with one GetIpNetTable2 call.
func (r *IPHelperReader) Read(ctx context.Context) (*Table, error) {
	return readAsync(ctx, getIPNetTable2)
}

func getIPNetTable2() (*Table, error) {
	var table unsafe.Pointer
	ret, _, _ := procGetIpNetTable2.Call(uintptr(windows.AF_UNSPEC), uintptr(unsafe.Pointer(&table)))
	if ret != 0 {
		return nil, fmt.Errorf("GetIpNetTable2 failed: %w", windows.Errno(ret))
	}
	if table == nil {
		return nil, fmt.Errorf("GetIpNetTable2 returned no table")
	}
	defer procFreeMibTable.Call(uintptr(table))

	// Expose the OS-owned memory as a bounded byte slice and decode it with
	// the checked parser; the struct layout is never trusted directly.
	count := *(*uint32)(table)
	size := ipNetTableHeaderLen + int(count)*ipNetRowLen
	buf := unsafe.Slice((*byte)(table), size)

	return parseIPNetTable2(buf)
}
