// Package macaddr implements the 6-byte link-layer (EUI-48) address used to
// identify wakeable machines and neighbor table entries.
//
// An Addr is a comparable value type: two addresses are equal when their bytes
// are equal, so it can be used directly as a map key. The canonical text form
// is lowercase colon-separated hex ("01:23:45:67:89:ab"); the binary form is
// the raw 6 bytes.
package macaddr

import (
	"database/sql/driver"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"strings"
)

// Len is the length in bytes of an address.
const Len = 6

// ErrMalformed is returned when a text or binary value cannot represent a
// 6-byte link-layer address.
var ErrMalformed = errors.New("malformed mac address")

// Addr is a 6-byte link-layer address.
type Addr [Len]byte

// Parse parses the canonical text form xx:xx:xx:xx:xx:xx. Hex digits are
// case-insensitive; every group must have exactly two digits.
func Parse(s string) (Addr, error) {
	var a Addr

	groups := strings.Split(s, ":")
	if len(groups) != Len {
		return a, fmt.Errorf("%w: %q: need %d colon-separated groups, got %d", ErrMalformed, s, Len, len(groups))
	}
	for i, group := range groups {
		if len(group) != 2 {
			return a, fmt.Errorf("%w: %q: group %d must be two hex digits", ErrMalformed, s, i)
		}
		if _, err := hex.Decode(a[i:i+1], []byte(group)); err != nil {
			return a, fmt.Errorf("%w: %q: %v", ErrMalformed, s, err)
		}
	}

	return a, nil
}

// MustParse is like Parse but panics on error.
func MustParse(s string) Addr {
	a, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return a
}

// FromBytes decodes a raw address. It fails unless b is exactly 6 bytes long,
// whatever the source of b (database blob, netlink attribute, OS structure).
func FromBytes(b []byte) (Addr, error) {
	var a Addr
	if len(b) != Len {
		return a, fmt.Errorf("%w: got %d bytes, need %d", ErrMalformed, len(b), Len)
	}
	copy(a[:], b)
	return a, nil
}

// String returns the canonical lowercase colon-separated form.
func (a Addr) String() string {
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x", a[0], a[1], a[2], a[3], a[4], a[5])
}

// Bytes returns a copy of the raw address bytes.
func (a Addr) Bytes() []byte {
	b := make([]byte, Len)
	copy(b, a[:])
	return b
}

// HardwareAddr converts the address to a net.HardwareAddr.
func (a Addr) HardwareAddr() net.HardwareAddr {
	return net.HardwareAddr(a.Bytes())
}

// MarshalText implements encoding.TextMarshaler; JSON encodes an Addr as its
// canonical string.
func (a Addr) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Addr) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Value implements driver.Valuer. Addresses are stored as a 6-byte blob.
func (a Addr) Value() (driver.Value, error) {
	return a.Bytes(), nil
}

// Scan implements sql.Scanner for 6-byte blob columns.
func (a *Addr) Scan(src any) error {
	b, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("%w: cannot scan %T", ErrMalformed, src)
	}
	parsed, err := FromBytes(b)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
