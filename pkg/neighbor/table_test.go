package neighbor

import (
	"encoding/json"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/projectdiscovery/wol-agent/pkg/macaddr"
)

var (
	macA = macaddr.MustParse("aa:bb:cc:dd:ee:ff")
	macB = macaddr.MustParse("11:22:33:44:55:66")
	ipA  = netip.MustParseAddr("10.0.0.5")
	ipB  = netip.MustParseAddr("10.0.0.6")
	ip6  = netip.MustParseAddr("fe80::1")
)

func TestEmptyTable(t *testing.T) {
	table := NewTable()

	assert.Equal(t, 0, table.Len())
	assert.NotNil(t, table.MACsFor(ipA))
	assert.Empty(t, table.MACsFor(ipA))
	assert.NotNil(t, table.IPsFor(macA))
	assert.Empty(t, table.IPsFor(macA))

	data, err := json.Marshal(table)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(data))
}

func TestMultiMapping(t *testing.T) {
	table := NewTable(
		Entry{IP: ipA, MAC: macA},
		Entry{IP: ipA, MAC: macB},
		Entry{IP: ipB, MAC: macA},
		Entry{IP: ip6, MAC: macA},
	)

	assert.ElementsMatch(t, []macaddr.Addr{macA, macB}, table.MACsFor(ipA))
	assert.ElementsMatch(t, []macaddr.Addr{macA}, table.MACsFor(ipB))
	assert.ElementsMatch(t, []netip.Addr{ipA, ipB, ip6}, table.IPsFor(macA))
	assert.ElementsMatch(t, []netip.Addr{ipA}, table.IPsFor(macB))
	assert.Empty(t, table.MACsFor(netip.MustParseAddr("10.0.0.7")))
}

func TestDeduplication(t *testing.T) {
	table := NewTable(
		Entry{IP: ipA, MAC: macA},
		Entry{IP: ipA, MAC: macA},
	)
	assert.Equal(t, 1, table.Len())
	assert.Equal(t, []macaddr.Addr{macA}, table.MACsFor(ipA))
}

func TestNormalization(t *testing.T) {
	table := NewTable(
		Entry{IP: netip.MustParseAddr("::ffff:10.0.0.5"), MAC: macA},
		Entry{IP: ipA, MAC: macA},
	)
	assert.Equal(t, 1, table.Len())

	// Socket peer addresses may come back IPv4-mapped or zoned.
	assert.Equal(t, []macaddr.Addr{macA}, table.MACsFor(netip.MustParseAddr("::ffff:10.0.0.5")))

	table = NewTable(Entry{IP: ip6, MAC: macB})
	assert.Equal(t, []macaddr.Addr{macB}, table.MACsFor(netip.MustParseAddr("fe80::1%eth0")))
}

func TestInvalidEntryIgnored(t *testing.T) {
	table := NewTable(Entry{MAC: macA}, Entry{IP: ipA, MAC: macA})
	assert.Equal(t, 1, table.Len())
}

func TestEntriesSorted(t *testing.T) {
	table := NewTable(
		Entry{IP: ipB, MAC: macA},
		Entry{IP: ipA, MAC: macA},
		Entry{IP: ipA, MAC: macB},
	)
	assert.Equal(t, []Entry{
		{IP: ipA, MAC: macB},
		{IP: ipA, MAC: macA},
		{IP: ipB, MAC: macA},
	}, table.Entries())
}

func TestTableJSON(t *testing.T) {
	table := NewTable(
		Entry{IP: ipA, MAC: macA},
		Entry{IP: ip6, MAC: macB},
	)

	data, err := json.Marshal(table)
	require.NoError(t, err)
	assert.JSONEq(t, `[
		{"address": "10.0.0.5", "mac": "aa:bb:cc:dd:ee:ff"},
		{"address": "fe80::1", "mac": "11:22:33:44:55:66"}
	]`, string(data))
}

func TestBuilderDropsIncompleteRecords(t *testing.T) {
	b := newTableBuilder()

	assert.True(t, b.add(ipA, macA[:]))
	assert.False(t, b.add(ipB, nil), "no link-layer attribute")
	assert.False(t, b.add(ipB, []byte{1, 2, 3, 4, 5}), "short link-layer attribute")
	assert.False(t, b.add(ipB, make([]byte, 8)), "eui-64 link-layer attribute")
	assert.False(t, b.add(netip.Addr{}, macB[:]), "no destination")
	assert.True(t, b.add(ip6, macB[:]), "records after a dropped one are kept")

	table := b.table()
	assert.Equal(t, 2, table.Len())
	assert.Equal(t, 4, b.dropped)
	assert.Empty(t, table.MACsFor(ipB))
}

func TestLookupsDoNotCopyTable(t *testing.T) {
	entries := make([]Entry, 0, 1024)
	for i := 0; i < 1024; i++ {
		ip := netip.AddrFrom4([4]byte{10, 1, byte(i >> 8), byte(i)})
		entries = append(entries, Entry{IP: ip, MAC: macaddr.Addr{0x02, 0, 0, 0, byte(i >> 8), byte(i)}})
	}
	entries = append(entries, Entry{IP: ipA, MAC: macA})
	table := NewTable(entries...)

	// One allocation for the single-element result; the table itself is
	// neither copied nor sorted.
	allocs := testing.AllocsPerRun(10, func() {
		_ = table.MACsFor(ipA)
	})
	assert.LessOrEqual(t, allocs, 1.0)

	allocs = testing.AllocsPerRun(10, func() {
		_ = table.IPsFor(macA)
	})
	assert.LessOrEqual(t, allocs, 1.0)

	assert.Equal(t, []macaddr.Addr{macA}, table.MACsFor(ipA))
	assert.Equal(t, []netip.Addr{ipA}, table.IPsFor(macA))
}
