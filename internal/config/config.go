// Package config parses CLI arguments and environment variables into the
// settings the rest of termegle needs.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/alexflint/go-arg"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Args holds CLI arguments parsed by go-arg.
type Args struct {
	ListenAddr         string        `arg:"--listen,env:TERMEGLE_LISTEN" default:":6767" placeholder:"ADDR" help:"SSH listen address"`
	HostKeyPath        string        `arg:"--host-key,env:TERMEGLE_HOST_KEY" default:"termegle_host_key" placeholder:"PATH" help:"path to the persisted SSH host key"`
	RateLimitMax       int           `arg:"--rate-limit-max,env:TERMEGLE_RATE_LIMIT_MAX" default:"5" placeholder:"NUM" help:"max new connections per source IP within the rate limit window"`
	RateLimitWindow    time.Duration `arg:"--rate-limit-window,env:TERMEGLE_RATE_LIMIT_WINDOW" default:"60s" placeholder:"DURATION" help:"sliding window for the connection rate limiter"`
	LineRatePerMinute  int           `arg:"--line-rate,env:TERMEGLE_LINE_RATE" default:"120" placeholder:"NUM" help:"max chat input lines per minute per session"`
	SupervisorInterval time.Duration `arg:"--supervisor-interval,env:TERMEGLE_SUPERVISOR_INTERVAL" default:"30s" placeholder:"DURATION" help:"inactivity supervisor tick cadence"`
	WarnAfter          time.Duration `arg:"--warn-after,env:TERMEGLE_WARN_AFTER" default:"240s" placeholder:"DURATION" help:"idle time before a warning is issued"`
	EvictAfter         time.Duration `arg:"--evict-after,env:TERMEGLE_EVICT_AFTER" default:"300s" placeholder:"DURATION" help:"idle time before a session is evicted"`
	MetricsAddr        string        `arg:"--metrics-addr,env:TERMEGLE_METRICS_ADDR" default:":9767" placeholder:"ADDR" help:"Prometheus metrics listen address (empty disables it)"`
	LogFile            string        `arg:"--log-file,env:TERMEGLE_LOG_FILE" placeholder:"PATH" help:"rotate logs to this file instead of stderr"`
	LogMaxSizeMB       int           `arg:"--log-max-size-mb,env:TERMEGLE_LOG_MAX_SIZE_MB" default:"50" placeholder:"MB" help:"rotate the log file once it exceeds this size"`
	ShowVersion        bool          `arg:"--version" help:"show version and exit"`
}

// Description returns the program description for go-arg.
func (Args) Description() string {
	return "termegle - anonymous two-party SSH chat"
}

// Version returns the version string for go-arg.
func (Args) Version() string {
	return "termegle " + Version
}

// Config holds all configuration for the termegle server.
type Config struct {
	ListenAddr  string
	HostKeyPath string

	RateLimitMax    int
	RateLimitWindow time.Duration
	LineRatePerMin  int

	SupervisorInterval time.Duration
	WarnAfter          time.Duration
	EvictAfter         time.Duration

	MetricsAddr string

	LogFile      string
	LogMaxSizeMB int
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("listen address must not be empty")
	}
	if c.HostKeyPath == "" {
		return fmt.Errorf("host key path must not be empty")
	}
	if c.RateLimitMax <= 0 {
		return fmt.Errorf("rate limit max must be positive")
	}
	if c.RateLimitWindow <= 0 {
		return fmt.Errorf("rate limit window must be positive")
	}
	if c.LineRatePerMin <= 0 {
		return fmt.Errorf("line rate must be positive")
	}
	if c.SupervisorInterval <= 0 {
		return fmt.Errorf("supervisor interval must be positive")
	}
	if c.WarnAfter <= 0 || c.EvictAfter <= 0 {
		return fmt.Errorf("warn-after and evict-after must be positive")
	}
	if c.WarnAfter >= c.EvictAfter {
		return fmt.Errorf("warn-after (%s) must be shorter than evict-after (%s)", c.WarnAfter, c.EvictAfter)
	}
	if c.LogMaxSizeMB <= 0 {
		return fmt.Errorf("log max size must be positive")
	}
	return nil
}

// Parse parses CLI arguments and environment variables into Config.
func Parse() (*Config, error) {
	var args Args
	p, err := arg.NewParser(arg.Config{}, &args)
	if err != nil {
		return nil, fmt.Errorf("arg parser: %w", err)
	}

	if err := p.Parse(os.Args[1:]); err != nil {
		if err == arg.ErrHelp {
			p.WriteHelp(os.Stdout)
			os.Exit(0)
		}
		if err == arg.ErrVersion {
			p.WriteUsage(os.Stdout)
			os.Exit(0)
		}
		return nil, err
	}

	if args.ShowVersion {
		fmt.Printf("termegle %s\n", Version)
		os.Exit(0)
	}

	return buildConfig(args), nil
}

func buildConfig(args Args) *Config {
	return &Config{
		ListenAddr:  args.ListenAddr,
		HostKeyPath: args.HostKeyPath,

		RateLimitMax:    args.RateLimitMax,
		RateLimitWindow: args.RateLimitWindow,
		LineRatePerMin:  args.LineRatePerMinute,

		SupervisorInterval: args.SupervisorInterval,
		WarnAfter:          args.WarnAfter,
		EvictAfter:         args.EvictAfter,

		MetricsAddr: args.MetricsAddr,

		LogFile:      args.LogFile,
		LogMaxSizeMB: args.LogMaxSizeMB,
	}
}
