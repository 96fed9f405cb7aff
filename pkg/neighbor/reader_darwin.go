//go:build darwin

package neighbor

import (
	"context"
	"fmt"
	"net/netip"

	"golang.org/x/net/route"
	"golang.org/x/sys/unix"
)

// ribFlags asks the kernel to filter the dump by route flags (NET_RT_FLAGS),
// which is how arp(8) fetches only RTF_LLINFO routes.
const ribFlags = route.RIBType(unix.NET_RT_FLAGS)

// RIBReader reads the neighbor cache from a routing-table snapshot of
// link-layer routes, the same data `arp -an` and `ndp -an` print.
type RIBReader struct{}

func newPlatformReader() (Reader, error) {
	return &RIBReader{}, nil
}

// Read fetches RTF_LLINFO routes for all address families in one sysctl.
func (r *RIBReader) Read(ctx context.Context) (*Table, error) {
	return readAsync(ctx, func() (*Table, error) {
		rib, err := route.FetchRIB(unix.AF_UNSPEC, ribFlags, unix.RTF_LLINFO)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch routing table: %w", err)
		}

		msgs, err := route.ParseRIB(ribFlags, rib)
		if err != nil {
			return nil, fmt.Errorf("failed to parse routing table: %w", err)
		}

		b := newTableBuilder()
		for _, msg := range msgs {
			rm, ok := msg.(*route.RouteMessage)
			if !ok || rm.Flags&unix.RTF_LLINFO == 0 {
				continue
			}

			ip, hw, ok := routeNeighbor(rm)
			if !ok {
				b.dropped++
				continue
			}
			b.add(ip, hw)
		}
		logDropped("route", b)

		return b.table(), nil
	})
}

// routeNeighbor extracts the destination and the gateway link-layer address
// of a link-layer route.
func routeNeighbor(rm *route.RouteMessage) (netip.Addr, []byte, bool) {
	if len(rm.Addrs) <= unix.RTAX_GATEWAY {
		return netip.Addr{}, nil, false
	}

	var ip netip.Addr
	switch dst := rm.Addrs[unix.RTAX_DST].(type) {
	case *route.Inet4Addr:
		ip = netip.AddrFrom4(dst.IP)
	case *route.Inet6Addr:
		raw := dst.IP
		// KAME stores the scope ID of link-local addresses in bytes 2-3.
		if raw[0] == 0xfe && raw[1]&0xc0 == 0x80 {
			raw[2], raw[3] = 0, 0
		}
		ip = netip.AddrFrom16(raw)
	default:
		return netip.Addr{}, nil, false
	}

	gw, ok := rm.Addrs[unix.RTAX_GATEWAY].(*route.LinkAddr)
	if !ok {
		return netip.Addr{}, nil, false
	}
	return ip, gw.Addr, true
}
