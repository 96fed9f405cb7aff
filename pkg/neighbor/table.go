package neighbor

import (
	"bytes"
	"encoding/json"
	"net/netip"
	"slices"

	"github.com/projectdiscovery/wol-agent/pkg/macaddr"
)

// Entry is a single network address to link-layer address binding.
type Entry struct {
	IP  netip.Addr   `json:"address"`
	MAC macaddr.Addr `json:"mac"`
}

// Table is a point-in-time snapshot of the neighbor cache. It is never
// modified after construction and is safe for concurrent use.
type Table struct {
	entries map[Entry]struct{}
}

// NewTable builds a table from the given entries. Identical entries collapse
// into one; entries with an invalid IP are ignored.
func NewTable(entries ...Entry) *Table {
	b := newTableBuilder()
	for _, e := range entries {
		b.addEntry(e)
	}
	return b.table()
}

// Len returns the number of distinct entries.
func (t *Table) Len() int {
	return len(t.entries)
}

// Entries returns the entries sorted by address, then by MAC.
func (t *Table) Entries() []Entry {
	result := make([]Entry, 0, len(t.entries))
	for e := range t.entries {
		result = append(result, e)
	}
	slices.SortFunc(result, func(a, b Entry) int {
		if c := a.IP.Compare(b.IP); c != 0 {
			return c
		}
		return bytes.Compare(a.MAC[:], b.MAC[:])
	})
	return result
}

// MACsFor returns every link-layer address bound to ip, in no particular
// order. The result is empty, never nil, when ip is absent.
func (t *Table) MACsFor(ip netip.Addr) []macaddr.Addr {
	ip = normalizeIP(ip)
	result := []macaddr.Addr{}
	for e := range t.entries {
		if e.IP == ip {
			result = append(result, e.MAC)
		}
	}
	return result
}

// IPsFor returns every network address bound to mac, in no particular order.
// The result is empty, never nil, when mac is absent.
func (t *Table) IPsFor(mac macaddr.Addr) []netip.Addr {
	result := []netip.Addr{}
	for e := range t.entries {
		if e.MAC == mac {
			result = append(result, e.IP)
		}
	}
	return result
}

// MarshalJSON encodes the table as an array of {"address", "mac"} objects.
func (t *Table) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Entries())
}

// normalizeIP maps IPv4-mapped IPv6 addresses to IPv4 and drops IPv6 zones so
// that lookups by a socket peer address match kernel entries.
func normalizeIP(ip netip.Addr) netip.Addr {
	return ip.Unmap().WithZone("")
}

// tableBuilder accumulates raw neighbor records, applying the drop rules.
type tableBuilder struct {
	entries map[Entry]struct{}
	dropped int
}

func newTableBuilder() *tableBuilder {
	return &tableBuilder{entries: make(map[Entry]struct{})}
}

// add records a raw (address, hardware address) pair. It reports false and
// drops the record when either half is missing or hw is not 6 bytes long.
func (b *tableBuilder) add(ip netip.Addr, hw []byte) bool {
	mac, err := macaddr.FromBytes(hw)
	if err != nil {
		b.dropped++
		return false
	}
	return b.addEntry(Entry{IP: ip, MAC: mac})
}

func (b *tableBuilder) addEntry(e Entry) bool {
	if !e.IP.IsValid() {
		b.dropped++
		return false
	}
	e.IP = normalizeIP(e.IP)
	b.entries[e] = struct{}{}
	return true
}

func (b *tableBuilder) table() *Table {
	return &Table{entries: b.entries}
}
