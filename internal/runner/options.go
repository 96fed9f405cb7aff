package runner

import (
	"net"
	"os"
	"strconv"

	"github.com/projectdiscovery/goflags"
	"github.com/projectdiscovery/gologger"
	"github.com/projectdiscovery/gologger/formatter"
	"github.com/projectdiscovery/gologger/levels"
	envutil "github.com/projectdiscovery/utils/env"

	"github.com/projectdiscovery/wol-agent/pkg/store"
	"github.com/projectdiscovery/wol-agent/pkg/version"
	"github.com/projectdiscovery/wol-agent/pkg/wol"
)

var (
	ListenEnv          = envutil.GetEnvOrDefault("WOL_LISTEN", "")
	AppPortEnv         = envutil.GetEnvOrDefault("APP_PORT", "8080")
	DatabaseEnv        = envutil.GetEnvOrDefault("WOL_DB", store.DefaultPath)
	FrontendEnv        = envutil.GetEnvOrDefault("WOL_FRONTEND", "")
	BroadcastEnv       = envutil.GetEnvOrDefault("WOL_BROADCAST", wol.DefaultTarget().String())
	WakeParallelismEnv = envutil.GetEnvOrDefault("WOL_WAKE_PARALLELISM", "")
	DirectedEnv        = envutil.GetEnvOrDefault("WOL_DIRECTED_BROADCAST", "")
	VerboseEnv         = envutil.GetEnvOrDefault("WOL_VERBOSE", "")
)

// Options contains the configuration options for the agent.
type Options struct {
	Listen   string
	Database string
	Frontend string

	Broadcast         string
	DirectedBroadcast bool
	WakeParallelism   int

	ARP  bool
	Wake goflags.StringSlice

	Verbose bool
	Silent  bool
	NoColor bool
	Version bool
}

// defaultListen prefers WOL_LISTEN and falls back to every interface on
// APP_PORT.
func defaultListen() string {
	if ListenEnv != "" {
		return ListenEnv
	}
	return net.JoinHostPort("", AppPortEnv)
}

func defaultWakeParallelism() int {
	if val, err := strconv.Atoi(WakeParallelismEnv); err == nil && val > 0 {
		return val
	}
	return wol.DefaultParallelism
}

// ParseOptions parses the command line flags provided by a user
func ParseOptions() *Options {
	options := &Options{}
	flagSet := goflags.NewFlagSet()

	flagSet.SetDescription(`wol-agent keeps an inventory of machines and wakes them over the local network`)

	flagSet.CreateGroup("server", "Server",
		flagSet.StringVarP(&options.Listen, "listen", "l", defaultListen(), "address the http api listens on"),
		flagSet.StringVar(&options.Database, "db", DatabaseEnv, "sqlite database holding the machine inventory"),
		flagSet.StringVarP(&options.Frontend, "frontend", "fe", FrontendEnv, "directory with static frontend files to serve at /"),
	)

	flagSet.CreateGroup("wake", "Wake",
		flagSet.StringVarP(&options.Broadcast, "broadcast", "b", BroadcastEnv, "udp address magic packets are sent to"),
		flagSet.BoolVarP(&options.DirectedBroadcast, "directed-broadcast", "dbc", false, "also send to the broadcast address of every local ipv4 network"),
		flagSet.IntVarP(&options.WakeParallelism, "wake-parallelism", "wp", defaultWakeParallelism(), "number of magic packets sent in parallel"),
		flagSet.StringSliceVarP(&options.Wake, "wake", "w", nil, "wake the given mac addresses then exit (comma separated)", goflags.CommaSeparatedStringSliceOptions),
		flagSet.BoolVar(&options.ARP, "arp", false, "print the neighbor table as json then exit"),
	)

	flagSet.CreateGroup("debug", "Debug",
		flagSet.BoolVar(&options.Version, "version", false, "show version of the project"),
		flagSet.BoolVarP(&options.Verbose, "verbose", "v", false, "show verbose output"),
		flagSet.BoolVar(&options.Silent, "silent", false, "show only results in output"),
		flagSet.BoolVarP(&options.NoColor, "no-color", "nc", false, "disable output content coloring (ANSI escape codes)"),
	)

	if err := flagSet.Parse(); err != nil {
		gologger.Fatal().Msgf("%s\n", err)
	}

	if VerboseEnv == "true" || VerboseEnv == "1" {
		options.Verbose = true
	}
	if DirectedEnv == "true" || DirectedEnv == "1" {
		options.DirectedBroadcast = true
	}

	options.configureOutput()

	showBanner()

	if options.Version {
		gologger.Info().Msgf("Current Version: %s\n", version.GetVersion())
		os.Exit(0)
	}

	if options.WakeParallelism < 1 {
		options.WakeParallelism = 1
	}

	return options
}

// configureOutput configures the output on the screen
func (options *Options) configureOutput() {
	// If the user desires verbose output, show verbose output
	if options.Verbose {
		gologger.DefaultLogger.SetMaxLevel(levels.LevelVerbose)
	}
	if options.NoColor {
		gologger.DefaultLogger.SetFormatter(formatter.NewCLI(true))
	}
	if options.Silent {
		gologger.DefaultLogger.SetMaxLevel(levels.LevelSilent)
	}
}
