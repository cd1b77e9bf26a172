package probe

import (
	"context"
	"net"
	"time"

	"github.com/hugo-lorenzo-mato/netdiag/internal/core"
)

// DNSResult captures one resolution attempt.
type DNSResult struct {
	Domain     string        `json:"domain"`
	IPs        []string      `json:"ips,omitempty"`
	PrimaryIP  string        `json:"primary_ip,omitempty"`
	Resolution time.Duration `json:"resolution_time"`
	Err        string        `json:"error,omitempty"`
}

// ResolveDNS resolves the host and records the timing. A host that is
// already a literal IP short-circuits without a lookup.
func (p *Prober) ResolveDNS(ctx context.Context, host string) (DNSResult, error) {
	res := DNSResult{Domain: host}

	if ip := net.ParseIP(host); ip != nil {
		res.IPs = []string{host}
		res.PrimaryIP = host
		return res, nil
	}

	ctx, cancel := context.WithTimeout(ctx, p.cfg.ResolveTimeout)
	defer cancel()

	started := time.Now()
	ips, err := net.DefaultResolver.LookupHost(ctx, host)
	res.Resolution = time.Since(started)
	if err != nil {
		res.Err = err.Error()
		return res, core.ErrNetwork("DNS_RESOLUTION", "resolving "+host).WithCause(err)
	}

	res.IPs = ips
	if len(ips) > 0 {
		res.PrimaryIP = ips[0]
	}
	p.logger.Debug("probe: dns resolved",
		"host", host, "ips", len(ips), "duration", res.Resolution)
	return res, nil
}
