package neighbor

import (
	"encoding/binary"
	"fmt"
	"net/netip"
)

// Layout of MIB_IPNET_TABLE2 / MIB_IPNET_ROW2 as returned by GetIpNetTable2
// on 64-bit Windows. Offsets are relative to the start of a row.
const (
	ipNetTableHeaderLen = 8  // ULONG NumEntries, padded to the row alignment
	ipNetRowLen         = 88 // sizeof(MIB_IPNET_ROW2)

	ipNetRowFamilyOff  = 0  // SOCKADDR_INET.si_family
	ipNetRowIPv4Off    = 4  // SOCKADDR_IN.sin_addr
	ipNetRowIPv6Off    = 8  // SOCKADDR_IN6.sin6_addr
	ipNetRowPhysOff    = 40 // PhysicalAddress[32]
	ipNetRowPhysLenOff = 72 // PhysicalAddressLength

	ipNetRowPhysMax = 32

	winAFInet  = 2
	winAFInet6 = 23
)

// parseIPNetTable2 decodes a MIB_IPNET_TABLE2 buffer. The declared entry
// count is checked against the buffer length before any row is touched, so a
// truncated or corrupt buffer fails as a whole instead of yielding a partial
// table. Rows of an unknown family or without a 6-byte physical address are
// dropped.
func parseIPNetTable2(buf []byte) (*Table, error) {
	if len(buf) < ipNetTableHeaderLen {
		return nil, fmt.Errorf("%w: ipnet table header truncated (%d bytes)", ErrUnavailable, len(buf))
	}

	count := uint64(binary.LittleEndian.Uint32(buf[0:4]))
	need := uint64(ipNetTableHeaderLen) + count*ipNetRowLen
	if uint64(len(buf)) < need {
		return nil, fmt.Errorf("%w: ipnet table declares %d rows but holds %d bytes", ErrUnavailable, count, len(buf))
	}

	b := newTableBuilder()
	for i := uint64(0); i < count; i++ {
		off := ipNetTableHeaderLen + i*ipNetRowLen
		row := buf[off : off+ipNetRowLen]

		ip, ok := ipNetRowAddr(row)
		if !ok {
			b.dropped++
			continue
		}

		physLen := binary.LittleEndian.Uint32(row[ipNetRowPhysLenOff : ipNetRowPhysLenOff+4])
		if physLen > ipNetRowPhysMax {
			b.dropped++
			continue
		}
		b.add(ip, row[ipNetRowPhysOff:ipNetRowPhysOff+int(physLen)])
	}
	logDropped("GetIpNetTable2", b)

	return b.table(), nil
}

func ipNetRowAddr(row []byte) (netip.Addr, bool) {
	switch binary.LittleEndian.Uint16(row[ipNetRowFamilyOff : ipNetRowFamilyOff+2]) {
	case winAFInet:
		return netip.AddrFrom4([4]byte(row[ipNetRowIPv4Off : ipNetRowIPv4Off+4])), true
	case winAFInet6:
		return netip.AddrFrom16([16]byte(row[ipNetRowIPv6Off : ipNetRowIPv6Off+16])), true
	default:
		return netip.Addr{}, false
	}
}
