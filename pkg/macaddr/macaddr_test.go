package macaddr

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Addr
		wantErr bool
	}{
		{
			name:  "lowercase",
			input: "01:23:45:67:89:ab",
			want:  Addr{0x01, 0x23, 0x45, 0x67, 0x89, 0xab},
		},
		{
			name:  "uppercase",
			input: "AA:BB:CC:DD:EE:FF",
			want:  Addr{0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff},
		},
		{
			name:  "broadcast is structurally valid",
			input: "ff:ff:ff:ff:ff:ff",
			want:  Addr{0xff, 0xff, 0xff, 0xff, 0xff, 0xff},
		},
		{name: "empty", input: "", wantErr: true},
		{name: "five groups", input: "01:23:45:67:89", wantErr: true},
		{name: "seven groups", input: "01:23:45:67:89:ab:cd", wantErr: true},
		{name: "invalid hex", input: "01:23:45:67:89:zz", wantErr: true},
		{name: "single digit group", input: "1:23:45:67:89:ab", wantErr: true},
		{name: "three digit group", input: "001:23:45:67:89:ab", wantErr: true},
		{name: "trailing separator", input: "01:23:45:67:89:ab:", wantErr: true},
		{name: "dash separated", input: "01-23-45-67-89-ab", wantErr: true},
		{name: "eui-64", input: "01:23:45:67:89:ab:cd:ef", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrMalformed)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFromBytes(t *testing.T) {
	for _, n := range []int{0, 1, 5, 7, 8, 20} {
		_, err := FromBytes(make([]byte, n))
		assert.ErrorIs(t, err, ErrMalformed, "length %d", n)
	}

	a, err := FromBytes([]byte{0xde, 0xad, 0xbe, 0xef, 0x00, 0x01})
	require.NoError(t, err)
	assert.Equal(t, "de:ad:be:ef:00:01", a.String())
}

func TestFromBytesCopies(t *testing.T) {
	raw := []byte{1, 2, 3, 4, 5, 6}
	a, err := FromBytes(raw)
	require.NoError(t, err)

	raw[0] = 0xff
	assert.Equal(t, byte(1), a[0])
}

func TestRoundTrip(t *testing.T) {
	// Walk a spread of byte patterns, including zero padding edge cases.
	for i := 0; i < 256; i += 7 {
		raw := []byte{byte(i), byte(255 - i), 0x00, 0x0f, byte(i * 3), 0xf0}

		a, err := FromBytes(raw)
		require.NoError(t, err)

		parsed, err := Parse(a.String())
		require.NoError(t, err)
		assert.Equal(t, a, parsed)
		assert.Len(t, a.String(), 17)
	}
}

func TestJSON(t *testing.T) {
	type machine struct {
		MAC Addr `json:"mac"`
	}

	data, err := json.Marshal(machine{MAC: MustParse("01:23:45:67:89:AB")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"mac":"01:23:45:67:89:ab"}`, string(data))

	var m machine
	require.NoError(t, json.Unmarshal([]byte(`{"mac":"aa:bb:cc:dd:ee:ff"}`), &m))
	assert.Equal(t, MustParse("aa:bb:cc:dd:ee:ff"), m.MAC)

	err = json.Unmarshal([]byte(`{"mac":"aa:bb:cc"}`), &m)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestSQL(t *testing.T) {
	a := MustParse("01:23:45:67:89:ab")

	v, err := a.Value()
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x23, 0x45, 0x67, 0x89, 0xab}, v)

	var scanned Addr
	require.NoError(t, scanned.Scan(v))
	assert.Equal(t, a, scanned)

	assert.ErrorIs(t, scanned.Scan([]byte{1, 2, 3}), ErrMalformed)
	assert.ErrorIs(t, scanned.Scan("01:23:45:67:89:ab"), ErrMalformed)
	assert.ErrorIs(t, scanned.Scan(nil), ErrMalformed)
}

func TestHardwareAddr(t *testing.T) {
	a := MustParse("01:23:45:67:89:ab")
	assert.Equal(t, a.String(), a.HardwareAddr().String())
}
