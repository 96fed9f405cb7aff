package wol

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/projectdiscovery/gologger"
	syncutil "github.com/projectdiscovery/utils/sync"

	"github.com/projectdiscovery/wol-agent/pkg/macaddr"
)

const (
	// DefaultPort is the UDP port magic packets are broadcast to (echo).
	DefaultPort = 7
	// MagicPacketSize is 6 bytes of 0xFF followed by 16 copies of the MAC.
	MagicPacketSize = 6 + 16*macaddr.Len
	// DefaultParallelism bounds concurrent sends in WakeAll.
	DefaultParallelism = 4
)

// ErrBroadcastFailed is returned when the magic packet could not be handed
// to the local network stack.
var ErrBroadcastFailed = errors.New("wake broadcast failed")

// DefaultTarget is the limited broadcast address on DefaultPort.
func DefaultTarget() *net.UDPAddr {
	return &net.UDPAddr{IP: net.IPv4bcast, Port: DefaultPort}
}

// MagicPacket builds the wake-on-LAN payload for mac.
func MagicPacket(mac macaddr.Addr) [MagicPacketSize]byte {
	var packet [MagicPacketSize]byte
	for i := 0; i < 6; i++ {
		packet[i] = 0xFF
	}
	for off := 6; off < MagicPacketSize; off += macaddr.Len {
		copy(packet[off:], mac[:])
	}
	return packet
}

// Option configures a Broadcaster.
type Option func(*options)

type options struct {
	Targets     []*net.UDPAddr
	Parallelism int
}

// WithTarget sends packets to addr instead of 255.255.255.255:7, e.g. a
// directed broadcast address.
func WithTarget(addr *net.UDPAddr) Option {
	return func(o *options) {
		o.Targets = []*net.UDPAddr{addr}
	}
}

// WithExtraTargets adds destinations that receive a copy of every packet,
// e.g. the directed broadcast address of each local network.
func WithExtraTargets(addrs ...*net.UDPAddr) Option {
	return func(o *options) {
		o.Targets = append(o.Targets, addrs...)
	}
}

// WithParallelism bounds the number of concurrent sends in WakeAll.
func WithParallelism(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.Parallelism = n
		}
	}
}

// Broadcaster sends magic packets. It holds no sockets between calls.
type Broadcaster struct {
	targets     []*net.UDPAddr
	parallelism int
}

// NewBroadcaster creates a new broadcaster.
func NewBroadcaster(opts ...Option) *Broadcaster {
	o := &options{
		Targets:     []*net.UDPAddr{DefaultTarget()},
		Parallelism: DefaultParallelism,
	}
	for _, opt := range opts {
		opt(o)
	}

	return &Broadcaster{
		targets:     o.Targets,
		parallelism: o.Parallelism,
	}
}

// Targets returns the addresses packets are sent to.
func (b *Broadcaster) Targets() []*net.UDPAddr {
	return b.targets
}

// Wake sends a single magic packet for mac to each target. Success only means
// the datagrams were accepted for transmission.
func (b *Broadcaster) Wake(ctx context.Context, mac macaddr.Addr) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrBroadcastFailed, mac, err)
	}

	// Go enables SO_BROADCAST on every datagram socket it creates.
	var lc net.ListenConfig
	conn, err := lc.ListenPacket(ctx, "udp4", ":0")
	if err != nil {
		return fmt.Errorf("%w: %s: failed to open socket: %w", ErrBroadcastFailed, mac, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetWriteDeadline(deadline)
	}

	packet := MagicPacket(mac)
	var errs []error
	for _, target := range b.targets {
		if _, err := conn.WriteTo(packet[:], target); err != nil {
			errs = append(errs, fmt.Errorf("%w: %s: failed to send to %s: %w", ErrBroadcastFailed, mac, target, err))
			continue
		}
		gologger.Debug().Msgf("sent magic packet for %s to %s", mac, target)
	}
	return errors.Join(errs...)
}

// WakeAll sends one magic packet per address. Every failure is reported in
// the joined error; a failing address does not stop the others.
func (b *Broadcaster) WakeAll(ctx context.Context, macs []macaddr.Addr) error {
	awg, err := syncutil.New(syncutil.WithSize(b.parallelism))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBroadcastFailed, err)
	}

	var (
		mu   sync.Mutex
		errs []error
	)
	for _, mac := range macs {
		awg.Add()
		go func(mac macaddr.Addr) {
			defer awg.Done()

			if err := b.Wake(ctx, mac); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
		}(mac)
	}
	awg.Wait()

	return errors.Join(errs...)
}
