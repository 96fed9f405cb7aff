//go:build linux

package neighbor

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"sync"

	"github.com/projectdiscovery/gologger"
	"github.com/vishvananda/netlink"
	"golang.org/x/sys/unix"
)

// NeighLister dumps the kernel neighbour table. *netlink.Handle satisfies it;
// every call is an independent dump request over the handle's socket.
type NeighLister interface {
	NeighList(linkIndex, family int) ([]netlink.Neigh, error)
}

// NetlinkReader reads the neighbor cache over rtnetlink.
type NetlinkReader struct {
	lister func() (NeighLister, error)
}

// NewNetlinkReader returns a reader that dumps neighbours through lister.
func NewNetlinkReader(lister NeighLister) *NetlinkReader {
	return &NetlinkReader{
		lister: func() (NeighLister, error) { return lister, nil },
	}
}

// newPlatformReader opens the route netlink handle on first use and keeps it
// for the lifetime of the process.
func newPlatformReader() (Reader, error) {
	opener := &lazyLister{open: openNetlinkHandle}
	return &NetlinkReader{lister: opener.get}, nil
}

func openNetlinkHandle() (NeighLister, error) {
	handle, err := netlink.NewHandle(unix.NETLINK_ROUTE)
	if err != nil {
		return nil, fmt.Errorf("failed to open netlink handle: %w", err)
	}
	return handle, nil
}

// lazyLister keeps the first lister open succeeds with. A failed open is not
// remembered, so the next read tries again.
type lazyLister struct {
	mu     sync.Mutex
	lister NeighLister
	open   func() (NeighLister, error)
}

func (l *lazyLister) get() (NeighLister, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.lister != nil {
		return l.lister, nil
	}
	lister, err := l.open()
	if err != nil {
		return nil, err
	}
	l.lister = lister
	return lister, nil
}

// Read dumps IPv4 and IPv6 neighbours in a single AF_UNSPEC request. A dump
// the kernel flags as interrupted is repeated once.
func (r *NetlinkReader) Read(ctx context.Context) (*Table, error) {
	return readAsync(ctx, func() (*Table, error) {
		lister, err := r.lister()
		if err != nil {
			return nil, err
		}

		neighs, err := lister.NeighList(0, netlink.FAMILY_ALL)
		if errors.Is(err, netlink.ErrDumpInterrupted) {
			gologger.Debug().Msgf("netlink: neighbour dump interrupted, retrying")
			neighs, err = lister.NeighList(0, netlink.FAMILY_ALL)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list neighbours: %w", err)
		}

		b := newTableBuilder()
		for _, neigh := range neighs {
			ip, ok := neighAddr(neigh)
			if !ok {
				b.dropped++
				continue
			}
			b.add(ip, neigh.HardwareAddr)
		}
		logDropped("netlink", b)

		return b.table(), nil
	})
}

// neighAddr decodes the destination address according to the record's
// family. Bridge FDB and other non-IP records are rejected.
func neighAddr(neigh netlink.Neigh) (netip.Addr, bool) {
	switch neigh.Family {
	case unix.AF_INET:
		if ip4 := neigh.IP.To4(); ip4 != nil {
			return netip.AddrFrom4([4]byte(ip4)), true
		}
	case unix.AF_INET6:
		if len(neigh.IP) == net.IPv6len {
			return netip.AddrFrom16([16]byte(neigh.IP)), true
		}
	}
	return netip.Addr{}, false
}
