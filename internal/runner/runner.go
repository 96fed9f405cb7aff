package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/netip"
	"strings"

	"github.com/projectdiscovery/gologger"
	sliceutil "github.com/projectdiscovery/utils/slice"

	"github.com/projectdiscovery/wol-agent/internal/server"
	"github.com/projectdiscovery/wol-agent/pkg/macaddr"
	"github.com/projectdiscovery/wol-agent/pkg/neighbor"
	"github.com/projectdiscovery/wol-agent/pkg/netif"
	"github.com/projectdiscovery/wol-agent/pkg/store"
	"github.com/projectdiscovery/wol-agent/pkg/version"
	"github.com/projectdiscovery/wol-agent/pkg/wol"
)

// Runner contains the internal logic of the program
type Runner struct {
	options     *Options
	reader      neighbor.Reader
	broadcaster *wol.Broadcaster
}

// NewRunner creates a new runner instance
func NewRunner(options *Options) (*Runner, error) {
	target, err := net.ResolveUDPAddr("udp4", options.Broadcast)
	if err != nil {
		return nil, fmt.Errorf("invalid broadcast address %q: %w", options.Broadcast, err)
	}

	reader, err := neighbor.NewReader()
	if err != nil {
		return nil, fmt.Errorf("could not create neighbor reader: %w", err)
	}

	opts := []wol.Option{
		wol.WithTarget(target),
		wol.WithParallelism(options.WakeParallelism),
	}
	if options.DirectedBroadcast {
		extra, err := directedTargets(target.Port)
		if err != nil {
			return nil, err
		}
		opts = append(opts, wol.WithExtraTargets(extra...))
	}

	return &Runner{
		options:     options,
		reader:      reader,
		broadcaster: wol.NewBroadcaster(opts...),
	}, nil
}

// directedTargets returns the broadcast address of every local IPv4 network.
func directedTargets(port int) ([]*net.UDPAddr, error) {
	networks, err := netif.LocalNetworks()
	if err != nil {
		return nil, err
	}

	var targets []*net.UDPAddr
	for _, n := range networks {
		gologger.Verbose().Msgf("directed broadcast enabled for %s", n)
		targets = append(targets, net.UDPAddrFromAddrPort(netip.AddrPortFrom(n.Broadcast(), uint16(port))))
	}
	if len(targets) == 0 {
		gologger.Warning().Msg("no local ipv4 network found for directed broadcast")
	}
	return targets, nil
}

func targetList(targets []*net.UDPAddr) string {
	values := make([]string, 0, len(targets))
	for _, t := range targets {
		values = append(values, t.String())
	}
	return strings.Join(values, ", ")
}

// Run executes the one-shot mode selected by the options, or serves the http
// api until ctx is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	switch {
	case r.options.ARP:
		return r.printNeighbors(ctx)
	case len(r.options.Wake) > 0:
		return r.wake(ctx, r.options.Wake)
	default:
		return r.serve(ctx)
	}
}

func (r *Runner) printNeighbors(ctx context.Context) error {
	table, err := r.reader.Read(ctx)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(table, "", "  ")
	if err != nil {
		return fmt.Errorf("could not encode neighbor table: %w", err)
	}
	gologger.Silent().Msg(string(data))
	return nil
}

func (r *Runner) wake(ctx context.Context, raw []string) error {
	var macs []macaddr.Addr
	for _, value := range raw {
		mac, err := macaddr.Parse(value)
		if err != nil {
			return err
		}
		macs = append(macs, mac)
	}
	macs = sliceutil.Dedupe(macs)

	if err := r.broadcaster.WakeAll(ctx, macs); err != nil {
		return err
	}
	for _, mac := range macs {
		gologger.Info().Msgf("sent magic packet for %s to %s", mac, targetList(r.broadcaster.Targets()))
	}
	return nil
}

func (r *Runner) serve(ctx context.Context) error {
	inventory, err := store.Open(ctx, r.options.Database)
	if err != nil {
		return err
	}
	defer func() {
		if err := inventory.Close(); err != nil {
			gologger.Warning().Msgf("could not close database: %s", err)
		}
	}()
	gologger.Info().Msgf("using database %s", r.options.Database)
	gologger.Verbose().Msgf("magic packets go to %s", targetList(r.broadcaster.Targets()))

	srv := server.New(&server.Options{
		Inventory:   inventory,
		Neighbors:   r.reader,
		Waker:       r.broadcaster,
		FrontendDir: r.options.Frontend,
		Version:     version.GetVersion(),
	})
	return srv.ListenAndServe(ctx, r.options.Listen)
}
