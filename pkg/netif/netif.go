// Package netif enumerates the local IPv4 networks a magic packet can be
// directed at.
package netif

import (
	"fmt"
	"net"
	"net/netip"
)

// Network is an IPv4 subnet configured on an up, non-loopback interface.
type Network struct {
	Interface string
	Prefix    netip.Prefix
}

// Broadcast returns the directed broadcast address of the network.
func (n Network) Broadcast() netip.Addr {
	addr := n.Prefix.Masked().Addr().As4()
	mask := net.CIDRMask(n.Prefix.Bits(), 32)
	for i := range addr {
		addr[i] |= ^mask[i]
	}
	return netip.AddrFrom4(addr)
}

func (n Network) String() string {
	return fmt.Sprintf("%s (%s)", n.Prefix, n.Interface)
}

// LocalNetworks returns the IPv4 networks of every up, non-loopback
// interface. Point-to-point prefixes (/31, /32) have no broadcast address and
// are skipped.
func LocalNetworks() ([]Network, error) {
	interfaces, err := net.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("failed to list interfaces: %w", err)
	}

	var networks []Network
	seen := make(map[netip.Prefix]struct{})

	for _, iface := range interfaces {
		if iface.Flags&net.FlagLoopback != 0 || iface.Flags&net.FlagUp == 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}

		for _, n := range networksFrom(iface.Name, addrs) {
			if _, exists := seen[n.Prefix]; exists {
				continue
			}
			seen[n.Prefix] = struct{}{}
			networks = append(networks, n)
		}
	}

	return networks, nil
}

func networksFrom(name string, addrs []net.Addr) []Network {
	var networks []Network
	for _, addr := range addrs {
		ipNet, ok := addr.(*net.IPNet)
		if !ok {
			continue
		}

		ip4 := ipNet.IP.To4()
		if ip4 == nil {
			continue
		}
		ones, bits := ipNet.Mask.Size()
		if bits != 32 || ones > 30 {
			continue
		}

		ip, _ := netip.AddrFromSlice(ip4)
		networks = append(networks, Network{
			Interface: name,
			Prefix:    netip.PrefixFrom(ip, ones).Masked(),
		})
	}
	return networks
}
