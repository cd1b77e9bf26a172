package probe

import (
	"context"
	"crypto/sha256"
	"crypto/tls"
	"encoding/hex"
	"net"
	"strconv"
	"time"

	"github.com/hugo-lorenzo-mato/netdiag/internal/core"
)

// CertInfo summarizes the leaf certificate presented during the handshake.
type CertInfo struct {
	Subject         string    `json:"subject"`
	Issuer          string    `json:"issuer"`
	NotBefore       time.Time `json:"not_before"`
	NotAfter        time.Time `json:"not_after"`
	DaysUntilExpiry int       `json:"days_until_expiry"`
	Expired         bool      `json:"expired"`
	SHA256          string    `json:"fingerprint_sha256"`
}

// TLSResult captures the negotiated session parameters.
type TLSResult struct {
	Version       string        `json:"version"`
	CipherSuite   string        `json:"cipher_suite"`
	HandshakeTime time.Duration `json:"handshake_time"`
	ChainLength   int           `json:"chain_length"`
	Certificate   *CertInfo     `json:"certificate,omitempty"`
}

// HandshakeTLS performs a full TLS handshake against host:port and reports
// the negotiated protocol, cipher and leaf certificate.
func (p *Prober) HandshakeTLS(ctx context.Context, host string, port int) (TLSResult, error) {
	var res TLSResult

	dialer := tls.Dialer{
		NetDialer: &net.Dialer{Timeout: p.cfg.ConnectTimeout},
		Config: &tls.Config{
			ServerName:         host,
			InsecureSkipVerify: p.cfg.InsecureTLS,
		},
	}

	ctx, cancel := context.WithTimeout(ctx, p.cfg.HandshakeTimeout)
	defer cancel()

	started := time.Now()
	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	res.HandshakeTime = time.Since(started)
	if err != nil {
		return res, core.ErrNetwork("TLS_HANDSHAKE", "tls handshake with "+host).WithCause(err)
	}
	defer conn.Close()

	state := conn.(*tls.Conn).ConnectionState()
	res.Version = tls.VersionName(state.Version)
	res.CipherSuite = tls.CipherSuiteName(state.CipherSuite)
	res.ChainLength = len(state.PeerCertificates)

	if len(state.PeerCertificates) > 0 {
		leaf := state.PeerCertificates[0]
		sum := sha256.Sum256(leaf.Raw)
		now := time.Now()
		res.Certificate = &CertInfo{
			Subject:         leaf.Subject.String(),
			Issuer:          leaf.Issuer.String(),
			NotBefore:       leaf.NotBefore,
			NotAfter:        leaf.NotAfter,
			DaysUntilExpiry: int(leaf.NotAfter.Sub(now).Hours() / 24),
			Expired:         now.After(leaf.NotAfter),
			SHA256:          hex.EncodeToString(sum[:]),
		}
	}

	p.logger.Debug("probe: tls handshake complete",
		"host", host, "version", res.Version, "duration", res.HandshakeTime)
	return res, nil
}
