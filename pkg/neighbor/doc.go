// Package neighbor reads the operating system's neighbor cache (the IPv4 ARP
// table and the IPv6 neighbor-discovery table) into an immutable Table.
//
// Reading is passive: the package never sends ARP requests or neighbor
// solicitations, it only reports what the kernel has already resolved.
//
// Exactly one Reader implementation is compiled per target:
//   - linux: an rtnetlink neighbour dump over a lazily opened netlink handle
//   - darwin: a routing-table snapshot of link-layer (RTF_LLINFO) routes
//   - windows: GetIpNetTable2 from iphlpapi.dll
//   - anything else: a reader that always reports ErrUnavailable
//
// Records that lack a destination address or a 6-byte link-layer address
// (incomplete or failed resolutions) are dropped. Any error while talking to
// the OS fails the whole read; a partial table is never returned.
//
// Example usage:
//
//	reader, err := neighbor.NewReader()
//	table, err := reader.Read(ctx)
//	macs := table.MACsFor(netip.MustParseAddr("192.168.1.10"))
package neighbor
