// Package probe implements the individual diagnosis probes: DNS resolution,
// TCP connect against every resolved address, TLS handshake inspection, HTTP
// timing, and a network path trace that runs external tooling through the
// process supervisor.
package probe

import (
	"context"
	"log/slog"
	"time"

	"github.com/hugo-lorenzo-mato/netdiag/internal/supervise"
)

// Config bounds each probe stage.
type Config struct {
	ResolveTimeout   time.Duration
	ConnectTimeout   time.Duration
	HandshakeTimeout time.Duration
	HTTPTimeout      time.Duration
	TraceTimeout     time.Duration
	// MaxTCPAttempts caps how many resolved addresses are dialed per target.
	MaxTCPAttempts int
	// InsecureTLS skips certificate verification during the TLS probe. The
	// probe reports on the certificate either way.
	InsecureTLS bool
}

// DefaultConfig returns the stock probe timeouts.
func DefaultConfig() Config {
	return Config{
		ResolveTimeout:   5 * time.Second,
		ConnectTimeout:   5 * time.Second,
		HandshakeTimeout: 10 * time.Second,
		HTTPTimeout:      15 * time.Second,
		TraceTimeout:     5 * time.Minute,
		MaxTCPAttempts:   3,
	}
}

// Target names one diagnosis subject.
type Target struct {
	Host  string `json:"host" yaml:"host"`
	Port  int    `json:"port" yaml:"port"`
	URL   string `json:"url,omitempty" yaml:"url,omitempty"`
	Trace bool   `json:"trace,omitempty" yaml:"trace,omitempty"`
}

// Result is the aggregate outcome of one target diagnosis.
type Result struct {
	Target    string        `json:"target"`
	Timestamp time.Time     `json:"timestamp"`
	DNS       *DNSResult    `json:"dns,omitempty"`
	TCP       []TCPResult   `json:"tcp,omitempty"`
	TLS       *TLSResult    `json:"tls,omitempty"`
	HTTP      *HTTPResult   `json:"http,omitempty"`
	Path      *PathResult   `json:"path,omitempty"`
	TotalTime time.Duration `json:"total_time"`
	Success   bool          `json:"success"`
	Errors    []string      `json:"errors,omitempty"`
}

// Prober runs the probe stages. The supervisor is only needed for the path
// trace; a nil supervisor disables tracing.
type Prober struct {
	cfg    Config
	sup    *supervise.Supervisor
	logger *slog.Logger

	mtrCmd        string
	tracerouteCmd string
}

// NewProber creates a prober. logger must not be nil for tracing targets.
func NewProber(cfg Config, sup *supervise.Supervisor, logger *slog.Logger) *Prober {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxTCPAttempts <= 0 {
		cfg.MaxTCPAttempts = DefaultConfig().MaxTCPAttempts
	}
	return &Prober{
		cfg:           cfg,
		sup:           sup,
		logger:        logger,
		mtrCmd:        "mtr",
		tracerouteCmd: "traceroute",
	}
}

// Diagnose runs all applicable probe stages for the target. Stage failures
// are collected into the result; the returned Result always carries whatever
// was gathered before a stage failed.
func (p *Prober) Diagnose(ctx context.Context, target Target) Result {
	started := time.Now()
	res := Result{Target: target.Host, Timestamp: started}

	dns, err := p.ResolveDNS(ctx, target.Host)
	res.DNS = &dns
	if err != nil {
		res.Errors = append(res.Errors, err.Error())
		res.TotalTime = time.Since(started)
		return res
	}

	port := target.Port
	if port == 0 {
		port = 443
	}
	res.TCP = p.ConnectAll(ctx, target.Host, port, dns.IPs)
	var connected bool
	for _, tcp := range res.TCP {
		if tcp.Connected {
			connected = true
			break
		}
	}
	if !connected {
		res.Errors = append(res.Errors, "tcp: no resolved address accepted the connection")
	}

	if connected && port == 443 {
		tlsInfo, err := p.HandshakeTLS(ctx, target.Host, port)
		if err != nil {
			res.Errors = append(res.Errors, err.Error())
		} else {
			res.TLS = &tlsInfo
		}
	}

	if target.URL != "" {
		httpInfo, err := p.FetchHTTP(ctx, target.URL)
		if err != nil {
			res.Errors = append(res.Errors, err.Error())
		} else {
			res.HTTP = &httpInfo
		}
	}

	if target.Trace && p.sup != nil {
		path, err := p.TracePath(ctx, target.Host)
		if err != nil {
			res.Errors = append(res.Errors, err.Error())
		} else {
			res.Path = path
		}
	}

	res.TotalTime = time.Since(started)
	res.Success = len(res.Errors) == 0
	return res
}
