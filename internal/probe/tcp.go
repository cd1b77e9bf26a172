package probe

import (
	"context"
	"net"
	"strconv"
	"time"
)

// TCPResult captures one connect attempt against a single resolved address.
type TCPResult struct {
	Host        string        `json:"host"`
	Port        int           `json:"port"`
	TargetIP    string        `json:"target_ip"`
	ConnectTime time.Duration `json:"connect_time"`
	Connected   bool          `json:"connected"`
	Family      string        `json:"family"`
	LocalAddr   string        `json:"local_addr,omitempty"`
	Err         string        `json:"error,omitempty"`
}

// ConnectTCP dials one resolved address and records the outcome. Connection
// failures are reported in the result, not as an error.
func (p *Prober) ConnectTCP(ctx context.Context, host string, port int, targetIP string) TCPResult {
	res := TCPResult{Host: host, Port: port, TargetIP: targetIP, Family: ipFamily(targetIP)}

	dialer := net.Dialer{Timeout: p.cfg.ConnectTimeout}
	started := time.Now()
	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(targetIP, strconv.Itoa(port)))
	res.ConnectTime = time.Since(started)
	if err != nil {
		res.Err = err.Error()
		p.logger.Warn("probe: tcp connect failed",
			"host", host, "ip", targetIP, "port", port, "error", err)
		return res
	}
	defer conn.Close()

	res.Connected = true
	res.LocalAddr = conn.LocalAddr().String()
	p.logger.Debug("probe: tcp connected",
		"host", host, "ip", targetIP, "port", port, "duration", res.ConnectTime)
	return res
}

// ConnectAll dials the resolved addresses in order, up to the configured
// attempt cap, and returns one result per attempt.
func (p *Prober) ConnectAll(ctx context.Context, host string, port int, ips []string) []TCPResult {
	if len(ips) > p.cfg.MaxTCPAttempts {
		ips = ips[:p.cfg.MaxTCPAttempts]
	}
	results := make([]TCPResult, 0, len(ips))
	for _, ip := range ips {
		results = append(results, p.ConnectTCP(ctx, host, port, ip))
	}
	return results
}

func ipFamily(addr string) string {
	ip := net.ParseIP(addr)
	if ip != nil && ip.To4() == nil {
		return "IPv6"
	}
	return "IPv4"
}
